package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.EqualValues(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, "https://www.googleapis.com/books/v1/volumes", cfg.GoogleBooks.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.GoogleBooks.Timeout)
	assert.Zero(t, cfg.GoogleBooks.RequestsPerSecond)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Empty(t, cfg.Auth.TokenHash)
	assert.True(t, cfg.Thumbnails.Enabled)
	assert.Empty(t, cfg.Thumbnails.CacheDir)
	assert.True(t, cfg.Tasks.Enabled)
	assert.Equal(t, 2, cfg.Tasks.Workers)
	assert.Equal(t, 90, cfg.Audit.RetentionDays)
	assert.Equal(t, "0 3 * * *", cfg.Audit.CleanupSchedule)
}

func TestNewConfig_Environment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_DSN", "postgres://localhost/bookstack")
	t.Setenv("GOOGLE_BOOKS_RPS", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://books.example.com,")
	t.Setenv("TASKS_ENABLED", "false")
	t.Setenv("TASK_RELEASE_AFTER", "30m")
	t.Setenv("THUMBNAIL_CACHE_DIR", "/var/cache/bookstack")

	cfg := NewConfig()

	assert.EqualValues(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/bookstack", cfg.Database.DSN)
	assert.Equal(t, 2.5, cfg.GoogleBooks.RequestsPerSecond)
	assert.Equal(t, []string{"http://localhost:3000", "https://books.example.com"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Tasks.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Tasks.ReleaseAfter)
	assert.Equal(t, "/var/cache/bookstack", cfg.Thumbnails.CacheDir)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("AUDIT_RETENTION_DAYS=7\nHOST=127.0.0.1\n"), 0o600))

	// Existing variables are not overridden.
	t.Setenv("HOST", "10.0.0.1")
	// Registers cleanup for a variable the file sets.
	t.Setenv("AUDIT_RETENTION_DAYS", "")
	os.Unsetenv("AUDIT_RETENTION_DAYS")

	LoadEnvFiles(filepath.Join(dir, "missing.env"), envFile)

	cfg := NewConfig()
	assert.Equal(t, 7, cfg.Audit.RetentionDays)
	assert.Equal(t, "10.0.0.1", cfg.HTTP.Host)
}
