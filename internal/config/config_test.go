package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory so no stray .env is read,
// and clears every variable Load looks at.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{
		"APP_CONFIG_FILE", "LOG_LEVEL", "LOG_FORMAT", "HOST", "PORT",
		"DATABASE_URL", "DATABASE_MAX_CONNS", "REDIS_URL", "DRAFT_TTL_SECONDS",
		"API_BASE_URL", "TENANT_ID",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
	assert.Equal(t, 24*time.Hour, cfg.DraftTTL())
	assert.Equal(t, "http://localhost:3000", cfg.API.BaseURL)
	assert.Error(t, cfg.RequireDatabase())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: DEBUG
server:
  port: 8080
database:
  url: postgres://file
redis:
  url: redis://localhost:6379/0
api:
  base_url: http://api.local/
  tenant_id: from-file
`), 0o600))
	t.Setenv("APP_CONFIG_FILE", path)
	t.Setenv("TENANT_ID", "from-env")
	t.Setenv("DRAFT_TTL_SECONDS", "60")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres://file", cfg.Database.URL)
	assert.NoError(t, cfg.RequireDatabase())
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "http://api.local", cfg.API.BaseURL)
	assert.Equal(t, "from-env", cfg.API.TenantID)
	assert.Equal(t, time.Minute, cfg.DraftTTL())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DATABASE_URL=postgres://dotenv\n"), 0o600))
	// godotenv never overrides variables that are already set.
	require.NoError(t, os.Unsetenv("DATABASE_URL"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://dotenv", cfg.Database.URL)
}

func TestLoad_Invalid(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "70000")
	_, err := Load()
	assert.ErrorContains(t, err, "PORT")

	t.Setenv("PORT", "")
	t.Setenv("LOG_FORMAT", "xml")
	_, err = Load()
	assert.ErrorContains(t, err, "LOG_FORMAT")
}

func TestLoad_BadFile(t *testing.T) {
	dir := isolate(t)
	t.Setenv("APP_CONFIG_FILE", filepath.Join(dir, "missing.yaml"))
	_, err := Load()
	assert.ErrorContains(t, err, "APP_CONFIG_FILE")
}
