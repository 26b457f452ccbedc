package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell-cms/inkgate/internal/domain"
	"github.com/inkwell-cms/inkgate/internal/storage"
)

// Store is an in-memory implementation of storage.Store used by tests and
// single-process development setups.
type Store struct {
	mu          sync.RWMutex
	endpoints   map[string]*domain.Endpoint // "METHOD path" -> descriptor
	roles       map[string]*domain.Role     // role id -> role
	assignments map[string][]string         // user id -> role ids
	limits      map[string]domain.RateLimits
	tokens      map[string]*storage.Token // token id -> token
	sessions    map[string]*storage.Session
	posts       map[string]*storage.Post
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		endpoints:   make(map[string]*domain.Endpoint),
		roles:       make(map[string]*domain.Role),
		assignments: make(map[string][]string),
		limits:      make(map[string]domain.RateLimits),
		tokens:      make(map[string]*storage.Token),
		sessions:    make(map[string]*storage.Session),
		posts:       make(map[string]*storage.Post),
	}
}

func (s *Store) Close() error { return nil }

func endpointKey(path, method string) string {
	return method + " " + path
}

// --- endpoints ---

func (s *Store) FindEndpoint(ctx context.Context, path, method string) (*domain.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ep, ok := s.endpoints[endpointKey(path, method)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ep
	return &cp, nil
}

func (s *Store) ListEndpoints(ctx context.Context) ([]*domain.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var endpoints []*domain.Endpoint
	for _, ep := range s.endpoints {
		cp := *ep
		endpoints = append(endpoints, &cp)
	}
	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].Path != endpoints[j].Path {
			return endpoints[i].Path < endpoints[j].Path
		}
		return endpoints[i].Method < endpoints[j].Method
	})
	return endpoints, nil
}

func (s *Store) CreateEndpoint(ctx context.Context, ep *domain.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := endpointKey(ep.Path, ep.Method)
	if _, exists := s.endpoints[key]; exists {
		return fmt.Errorf("endpoint %s already exists", key)
	}
	if ep.ID == "" {
		ep.ID = uuid.New().String()
	}
	cp := *ep
	s.endpoints[key] = &cp
	return nil
}

func (s *Store) UpdateEndpoint(ctx context.Context, ep *domain.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, cur := range s.endpoints {
		if cur.ID == ep.ID {
			delete(s.endpoints, key)
			cp := *ep
			s.endpoints[endpointKey(ep.Path, ep.Method)] = &cp
			return nil
		}
	}
	return domain.ErrNotFound
}

// --- roles ---

func (s *Store) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var roles []*domain.Role
	for _, r := range s.roles {
		cp := *r
		roles = append(roles, &cp)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (s *Store) CreateRole(ctx context.Context, name string) (*domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.roles {
		if r.Name == name {
			return nil, fmt.Errorf("role %s already exists", name)
		}
	}
	r := &domain.Role{ID: uuid.New().String(), Name: name}
	s.roles[r.ID] = r
	cp := *r
	return &cp, nil
}

func (s *Store) UpdateRole(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.roles[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Name = name
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.roles, id)
	delete(s.limits, id)
	for user, roleIDs := range s.assignments {
		kept := roleIDs[:0]
		for _, rid := range roleIDs {
			if rid != id {
				kept = append(kept, rid)
			}
		}
		s.assignments[user] = kept
	}
	return nil
}

func (s *Store) RolesForUser(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for _, rid := range s.assignments[userID] {
		if r, ok := s.roles[rid]; ok {
			names = append(names, r.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) AssignRole(ctx context.Context, userID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[roleID]; !ok {
		return domain.ErrNotFound
	}
	for _, rid := range s.assignments[userID] {
		if rid == roleID {
			return nil
		}
	}
	s.assignments[userID] = append(s.assignments[userID], roleID)
	return nil
}

func (s *Store) UnassignRole(ctx context.Context, userID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	roleIDs := s.assignments[userID]
	for i, rid := range roleIDs {
		if rid == roleID {
			s.assignments[userID] = append(roleIDs[:i], roleIDs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) RateLimitsForUser(ctx context.Context, userID string) (*domain.RateLimits, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.RateLimits
	for _, rid := range s.assignments[userID] {
		if l, ok := s.limits[rid]; ok {
			if best == nil || l.RequestsPerMinute > best.RequestsPerMinute {
				cp := l
				best = &cp
			}
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return best, nil
}

func (s *Store) SetRateLimits(ctx context.Context, roleID string, limits domain.RateLimits) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[roleID]; !ok {
		return domain.ErrNotFound
	}
	s.limits[roleID] = limits
	return nil
}

// --- tokens ---

func (s *Store) CreateToken(ctx context.Context, t *storage.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = storage.TokenActive
	}
	t.CreatedAt = time.Now()
	cp := *t
	s.tokens[t.ID] = &cp
	return nil
}

func (s *Store) ListTokens(ctx context.Context, userID string) ([]*storage.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tokens []*storage.Token
	for _, t := range s.tokens {
		if t.UserID != userID {
			continue
		}
		cp := *t
		tokens = append(tokens, &cp)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].CreatedAt.After(tokens[j].CreatedAt) })
	return tokens, nil
}

func (s *Store) RevokeToken(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = storage.TokenRevoked
	return nil
}

func (s *Store) FindTokenByHash(ctx context.Context, hash string) (*storage.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tokens {
		if t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// --- sessions ---

func (s *Store) CreateSession(ctx context.Context, sess *storage.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.CreatedAt = time.Now()
	cp := *sess
	s.sessions[sess.TokenHash] = &cp
	return nil
}

func (s *Store) FindSessionByHash(ctx context.Context, hash string) (*storage.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) DeleteSession(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[hash]; !ok {
		return domain.ErrNotFound
	}
	delete(s.sessions, hash)
	return nil
}

// --- posts ---

func (s *Store) CreatePost(ctx context.Context, p *storage.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = "draft"
	}
	for _, cur := range s.posts {
		if cur.Slug == p.Slug {
			return fmt.Errorf("post slug %q already exists", p.Slug)
		}
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	s.posts[p.ID] = &cp
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*storage.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListPosts(ctx context.Context, opts storage.ListOptions) ([]*storage.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var posts []*storage.Post
	for _, p := range s.posts {
		if opts.Status != "" && !strings.EqualFold(p.Status, opts.Status) {
			continue
		}
		cp := *p
		posts = append(posts, &cp)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })

	start := opts.Offset
	if start >= len(posts) {
		return []*storage.Post{}, nil
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(posts) {
		end = len(posts)
	}
	return posts[start:end], nil
}

func (s *Store) UpdatePost(ctx context.Context, p *storage.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.posts[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Title = p.Title
	cur.Slug = p.Slug
	cur.Content = p.Content
	cur.Status = p.Status
	cur.UpdatedAt = time.Now()
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}
