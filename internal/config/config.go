package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Redis     RedisConfig     `koanf:"redis"`
	Gate      GateConfig      `koanf:"gate"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
	// RequestTimeout bounds the whole pipeline including the downstream
	// handler. Duration string like "30s".
	RequestTimeout string `koanf:"request_timeout"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// RedisConfig selects the shared cache/rate-limit backend. An empty Addr
// selects the in-process fallback stores (single-instance degraded mode).
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// TelemetryConfig tunes trace sampling. SampleRatio 1.0 samples every
// root span.
type TelemetryConfig struct {
	SampleRatio float64 `koanf:"sample_ratio"`
}

type GateConfig struct {
	// PublicPaths is the literal allowlist bypassing the pipeline.
	PublicPaths []string `koanf:"public_paths"`
	// RegistryCacheTTL bounds how stale a cached endpoint descriptor may
	// get. Duration string like "15s".
	RegistryCacheTTL string `koanf:"registry_cache_ttl"`
}

// Load reads config.yaml (when present) and INKGATE_-prefixed environment
// variables, env winning. Nested keys use double underscores:
// INKGATE_SERVER__PORT=9000.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = "config.yaml"
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("INKGATE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "INKGATE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("server.request_timeout") {
		k.Set("server.request_timeout", "30s")
	}
	if !k.Exists("storage.type") {
		k.Set("storage.type", "sqlite")
	}
	if !k.Exists("storage.sqlite.path") {
		k.Set("storage.sqlite.path", "./data/inkgate.db")
	}
	if !k.Exists("gate.public_paths") {
		k.Set("gate.public_paths", []string{"/", "/sign-in", "/api/search"})
	}
	if !k.Exists("gate.registry_cache_ttl") {
		k.Set("gate.registry_cache_ttl", "15s")
	}
	if !k.Exists("telemetry.sample_ratio") {
		k.Set("telemetry.sample_ratio", 1.0)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Timeout parses the configured request timeout, falling back to 30s on a
// malformed value.
func (c ServerConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// TTL parses the configured registry cache TTL, falling back to 15s.
func (c GateConfig) TTL() time.Duration {
	d, err := time.ParseDuration(c.RegistryCacheTTL)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}
