package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if envTransformFunc(key) != "" || key == ConfigPathEnvVar {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"SERVER_PORT", "server.port"},
		{"ARTIFACTS_DIR", "artifacts.dir"},
		{"ARTIFACTS_MAX_MEMORY", "artifacts.max_memory"},
		{"CACHE_MAX_ENTRIES", "cache.max_entries"},
		{"JWT_EXPIRY_HOURS", "jwt.expiry_hours"},
		{"CORS_ALLOWED_ORIGINS", "cors.allowed_origins"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, envTransformFunc(tt.key))
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gota", cfg.Artifacts.Engine)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 8, cfg.Cache.MaxEntries)
	assert.Equal(t, 15*time.Minute, cfg.Cache.WarmInterval)
	assert.Equal(t, 10, cfg.Auth.LoginPerMinute)
	assert.Equal(t, uint64(42), cfg.Pseudonym.Seed)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 24, cfg.JWT.ExpiryHours)
	assert.Equal(t, "*", cfg.CORS.AllowedOrigins)
}

func TestLoadConfigCustom(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("ARTIFACTS_DIR", "/srv/artifacts")
	t.Setenv("ARTIFACTS_ENGINE", "duckdb")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("PSEUDONYM_SEED", "7")
	t.Setenv("JWT_EXPIRY_HOURS", "48")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/srv/artifacts", cfg.Artifacts.Dir)
	assert.Equal(t, "duckdb", cfg.Artifacts.Engine)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, uint64(7), cfg.Pseudonym.Seed)
	assert.Equal(t, 48, cfg.JWT.ExpiryHours)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "dashboard.yaml")
	content := "artifacts:\n  dir: /from/file\ncache:\n  max_entries: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("CACHE_MAX_ENTRIES", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/from/file", cfg.Artifacts.Dir)
	// env wins over the file
	assert.Equal(t, 5, cfg.Cache.MaxEntries)
}

func TestLoadConfigInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "invalid")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, defaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown engine", func(c *Config) { c.Artifacts.Engine = "pandas" }},
		{"auth without secret", func(c *Config) {
			c.Auth.Enabled = true
			c.Auth.PasswordHash = "$2a$10$abc"
		}},
		{"page size above max", func(c *Config) { c.Dashboard.HistoryPageSize = 500 }},
		{"negative warm interval", func(c *Config) { c.Cache.WarmInterval = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}
