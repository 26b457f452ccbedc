package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/inkwell-cms/inkgate/internal/domain"
	"github.com/inkwell-cms/inkgate/internal/storage"
)

// Store is the SQLite system-of-record for endpoint descriptors, roles,
// tokens, sessions and posts.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := store.seedRoles(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed roles: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS user_roles (
			id TEXT PRIMARY KEY,
			role_name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS roles_assignment (
			user_id TEXT NOT NULL,
			role_id TEXT NOT NULL,
			PRIMARY KEY (user_id, role_id),
			FOREIGN KEY (role_id) REFERENCES user_roles(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS api_rate_limits (
			role_id TEXT PRIMARY KEY,
			requests_per_minute INTEGER NOT NULL,
			requests_per_hour INTEGER NOT NULL,
			requests_per_day INTEGER NOT NULL,
			FOREIGN KEY (role_id) REFERENCES user_roles(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS api_endpoints (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			method TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			is_public INTEGER NOT NULL DEFAULT 0,
			required_roles TEXT NOT NULL DEFAULT '[]',
			cache_strategy TEXT NOT NULL DEFAULT 'none',
			cache_ttl_seconds INTEGER NOT NULL DEFAULT 0,
			rl_per_minute INTEGER,
			rl_per_hour INTEGER,
			rl_per_day INTEGER,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (path, method)
		)`,
		`CREATE TABLE IF NOT EXISTS api_tokens (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			token_hash TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL DEFAULT 'active',
			expires_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token_hash TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'draft',
			author_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_roles_assignment_user ON roles_assignment(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_api_tokens_user ON api_tokens(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_status ON posts(status)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// seedRoles installs the built-in roles and their default request budgets
// on first start. The original keeps these rows in migrations.
func (s *Store) seedRoles() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM user_roles`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seed := []struct {
		name      string
		perMinute int
		perHour   int
		perDay    int
	}{
		{domain.RoleSuperAdmin, 120, 5000, 50000},
		{domain.RoleAdmin, 120, 5000, 50000},
		{domain.RoleEditor, 60, 2000, 20000},
		{domain.RoleAuthor, 60, 1000, 10000},
		{domain.RoleSubscriber, 30, 500, 5000},
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range seed {
		id := uuid.New().String()
		if _, err := tx.Exec(`INSERT INTO user_roles (id, role_name) VALUES (?, ?)`, id, r.name); err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO api_rate_limits (role_id, requests_per_minute, requests_per_hour, requests_per_day) VALUES (?, ?, ?, ?)`,
			id, r.perMinute, r.perHour, r.perDay); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- endpoints ---

func (s *Store) FindEndpoint(ctx context.Context, path, method string) (*domain.Endpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, path, method, is_active, is_public, required_roles,
		        cache_strategy, cache_ttl_seconds, rl_per_minute, rl_per_hour, rl_per_day
		 FROM api_endpoints WHERE path = ? AND method = ?`,
		path, method)
	return scanEndpoint(row)
}

func (s *Store) ListEndpoints(ctx context.Context) ([]*domain.Endpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, method, is_active, is_public, required_roles,
		        cache_strategy, cache_ttl_seconds, rl_per_minute, rl_per_hour, rl_per_day
		 FROM api_endpoints ORDER BY path, method`)
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []*domain.Endpoint
	for rows.Next() {
		ep, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, rows.Err()
}

func (s *Store) CreateEndpoint(ctx context.Context, ep *domain.Endpoint) error {
	if ep.ID == "" {
		ep.ID = uuid.New().String()
	}
	roles, err := json.Marshal(ep.RequiredRoles)
	if err != nil {
		return fmt.Errorf("failed to marshal required roles: %w", err)
	}

	var perMinute, perHour, perDay *int
	if o := ep.RateLimitOverride; o != nil {
		perMinute, perHour, perDay = &o.RequestsPerMinute, &o.RequestsPerHour, &o.RequestsPerDay
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO api_endpoints
		 (id, path, method, is_active, is_public, required_roles, cache_strategy,
		  cache_ttl_seconds, rl_per_minute, rl_per_hour, rl_per_day, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ep.ID, ep.Path, ep.Method, ep.IsActive, ep.IsPublic, string(roles),
		string(ep.CacheStrategy), ep.CacheTTLSeconds, perMinute, perHour, perDay, now, now)
	if err != nil {
		return fmt.Errorf("failed to create endpoint: %w", err)
	}
	return nil
}

func (s *Store) UpdateEndpoint(ctx context.Context, ep *domain.Endpoint) error {
	roles, err := json.Marshal(ep.RequiredRoles)
	if err != nil {
		return fmt.Errorf("failed to marshal required roles: %w", err)
	}

	var perMinute, perHour, perDay *int
	if o := ep.RateLimitOverride; o != nil {
		perMinute, perHour, perDay = &o.RequestsPerMinute, &o.RequestsPerHour, &o.RequestsPerDay
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE api_endpoints SET path = ?, method = ?, is_active = ?, is_public = ?,
		        required_roles = ?, cache_strategy = ?, cache_ttl_seconds = ?,
		        rl_per_minute = ?, rl_per_hour = ?, rl_per_day = ?, updated_at = ?
		 WHERE id = ?`,
		ep.Path, ep.Method, ep.IsActive, ep.IsPublic, string(roles),
		string(ep.CacheStrategy), ep.CacheTTLSeconds, perMinute, perHour, perDay,
		time.Now(), ep.ID)
	if err != nil {
		return fmt.Errorf("failed to update endpoint: %w", err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEndpoint(row rowScanner) (*domain.Endpoint, error) {
	var (
		ep        domain.Endpoint
		roles     string
		strategy  string
		perMinute sql.NullInt64
		perHour   sql.NullInt64
		perDay    sql.NullInt64
	)
	err := row.Scan(&ep.ID, &ep.Path, &ep.Method, &ep.IsActive, &ep.IsPublic, &roles,
		&strategy, &ep.CacheTTLSeconds, &perMinute, &perHour, &perDay)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan endpoint: %w", err)
	}

	if err := json.Unmarshal([]byte(roles), &ep.RequiredRoles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal required roles: %w", err)
	}
	ep.CacheStrategy = domain.CacheStrategy(strategy)
	if perMinute.Valid {
		ep.RateLimitOverride = &domain.RateLimits{
			RequestsPerMinute: int(perMinute.Int64),
			RequestsPerHour:   int(perHour.Int64),
			RequestsPerDay:    int(perDay.Int64),
		}
	}
	return &ep, nil
}

// --- roles ---

func (s *Store) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, role_name FROM user_roles ORDER BY role_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*domain.Role
	for rows.Next() {
		var r domain.Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &r)
	}
	return roles, rows.Err()
}

func (s *Store) CreateRole(ctx context.Context, name string) (*domain.Role, error) {
	r := &domain.Role{ID: uuid.New().String(), Name: name}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO user_roles (id, role_name) VALUES (?, ?)`, r.ID, r.Name); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return r, nil
}

func (s *Store) UpdateRole(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE user_roles SET role_name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteRole(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_roles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return requireRow(res)
}

func (s *Store) RolesForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ur.role_name FROM roles_assignment ra
		 JOIN user_roles ur ON ur.id = ra.role_id
		 WHERE ra.user_id = ? ORDER BY ur.role_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles for user: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan role name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) AssignRole(ctx context.Context, userID, roleID string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO roles_assignment (user_id, role_id) VALUES (?, ?)`,
		userID, roleID); err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

func (s *Store) UnassignRole(ctx context.Context, userID, roleID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM roles_assignment WHERE user_id = ? AND role_id = ?`, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to unassign role: %w", err)
	}
	return requireRow(res)
}

func (s *Store) RateLimitsForUser(ctx context.Context, userID string) (*domain.RateLimits, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT rl.requests_per_minute, rl.requests_per_hour, rl.requests_per_day
		 FROM roles_assignment ra
		 JOIN api_rate_limits rl ON rl.role_id = ra.role_id
		 WHERE ra.user_id = ?
		 ORDER BY rl.requests_per_minute DESC LIMIT 1`, userID)

	var limits domain.RateLimits
	err := row.Scan(&limits.RequestsPerMinute, &limits.RequestsPerHour, &limits.RequestsPerDay)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rate limits: %w", err)
	}
	return &limits, nil
}

func (s *Store) SetRateLimits(ctx context.Context, roleID string, limits domain.RateLimits) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_rate_limits (role_id, requests_per_minute, requests_per_hour, requests_per_day)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (role_id) DO UPDATE SET
		   requests_per_minute = excluded.requests_per_minute,
		   requests_per_hour = excluded.requests_per_hour,
		   requests_per_day = excluded.requests_per_day`,
		roleID, limits.RequestsPerMinute, limits.RequestsPerHour, limits.RequestsPerDay)
	if err != nil {
		return fmt.Errorf("failed to set rate limits: %w", err)
	}
	return nil
}

// --- tokens ---

func (s *Store) CreateToken(ctx context.Context, t *storage.Token) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = storage.TokenActive
	}
	t.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_tokens (id, user_id, name, description, token_hash, status, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Name, t.Description, t.TokenHash, t.Status, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

func (s *Store) ListTokens(ctx context.Context, userID string) ([]*storage.Token, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, token_hash, status, expires_at, created_at
		 FROM api_tokens WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*storage.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *Store) RevokeToken(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE api_tokens SET status = ? WHERE id = ?`, storage.TokenRevoked, id)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return requireRow(res)
}

func (s *Store) FindTokenByHash(ctx context.Context, hash string) (*storage.Token, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, token_hash, status, expires_at, created_at
		 FROM api_tokens WHERE token_hash = ?`, hash)
	return scanToken(row)
}

func scanToken(row rowScanner) (*storage.Token, error) {
	var (
		t         storage.Token
		expiresAt sql.NullTime
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Description, &t.TokenHash,
		&t.Status, &expiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan token: %w", err)
	}
	if expiresAt.Valid {
		t.ExpiresAt = &expiresAt.Time
	}
	return &t, nil
}

// --- sessions ---

func (s *Store) CreateSession(ctx context.Context, sess *storage.Session) error {
	sess.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token_hash, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		sess.TokenHash, sess.UserID, sess.ExpiresAt, sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *Store) FindSessionByHash(ctx context.Context, hash string) (*storage.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT token_hash, user_id, expires_at, created_at FROM sessions WHERE token_hash = ?`, hash)

	var sess storage.Session
	err := row.Scan(&sess.TokenHash, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return &sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, hash string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return requireRow(res)
}

// --- posts ---

func (s *Store) CreatePost(ctx context.Context, p *storage.Post) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = "draft"
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, slug, content, status, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Slug, p.Content, p.Status, p.AuthorID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*storage.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, slug, content, status, author_id, created_at, updated_at
		 FROM posts WHERE id = ?`, id)

	var p storage.Post
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &p.Status, &p.AuthorID,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan post: %w", err)
	}
	return &p, nil
}

func (s *Store) ListPosts(ctx context.Context, opts storage.ListOptions) ([]*storage.Post, error) {
	query := `SELECT id, title, slug, content, status, author_id, created_at, updated_at FROM posts`
	args := []any{}
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, opts.Status)
	}
	query += ` ORDER BY created_at DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*storage.Post
	for rows.Next() {
		var p storage.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &p.Status, &p.AuthorID,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, &p)
	}
	return posts, rows.Err()
}

func (s *Store) UpdatePost(ctx context.Context, p *storage.Post) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET title = ?, slug = ?, content = ?, status = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Slug, p.Content, p.Status, time.Now(), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
