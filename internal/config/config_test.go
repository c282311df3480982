package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key Load reads. Viper ignores empty variables, so
// the defaults apply regardless of the host environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "STORE_DRIVER", "DATABASE_URL", "MONGODB_URI",
		"MONGODB_DATABASE", "REDIS_URL", "REDIS_CHANNEL_PREFIX", "JWT_SECRET",
		"TOKEN_TTL", "CORS_ORIGINS", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Empty(t, cfg.RedisURL, "no redis means the in-process notifier")
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoadReadsEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_DRIVER", " Memory ")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 90*time.Minute, cfg.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "redis://cache:6379/0", cfg.RedisURL)
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("PORT=7070\nSTORE_DRIVER=memory\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
}

func TestLoadWithoutDotEnvFile(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.Port)
}

func TestLoadRejectsMalformedDotEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("PORT=7070\nthis is not an env line\n"), 0o600))

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "read .env")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Env:             "development",
			StoreDriver:     DriverMemory,
			JWTSecret:       "short",
			TokenTTL:        time.Hour,
			ShutdownTimeout: time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid dev config", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.StoreDriver = "cassandra" }, true},
		{"postgres without url", func(c *Config) { c.StoreDriver = DriverPostgres }, true},
		{"mongo without database", func(c *Config) { c.StoreDriver = DriverMongo; c.MongoURI = "mongodb://x" }, true},
		{"short secret in production", func(c *Config) { c.Env = "production" }, true},
		{"long secret in production", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = "0123456789abcdef0123456789abcdef"
		}, false},
		{"zero ttl", func(c *Config) { c.TokenTTL = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
