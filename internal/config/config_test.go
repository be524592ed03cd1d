package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/T-6891/Dementor-API/internal/auth"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "./cmdb.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout.Std())
	assert.Equal(t, 100, cfg.Pagination.DefaultPageSize)
	assert.Equal(t, 1000, cfg.Pagination.MaxPageSize)
	assert.Equal(t, 20, cfg.Pagination.DefaultSearchLimit)
	assert.Equal(t, 100, cfg.Pagination.MaxSearchLimit)
	require.Len(t, cfg.APIKeys, 1)
	assert.Equal(t, "default", cfg.APIKeys[0].ClientID)
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	raw := `
app_name: Test CMDB
server:
  addr: ":9100"
  request_timeout: 15s
database:
  path: /tmp/test-cmdb.db
pagination:
  default_page_size: 25
api_keys:
  - client_id: ci
    key: ci-key
    permissions: [read, write]
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, from, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, path, from)
	assert.Equal(t, "Test CMDB", cfg.AppName)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout.Std())
	assert.Equal(t, "/tmp/test-cmdb.db", cfg.Database.Path)
	assert.Equal(t, 25, cfg.Pagination.DefaultPageSize)
	// Unset values still get defaults.
	assert.Equal(t, 1000, cfg.Pagination.MaxPageSize)
	require.Len(t, cfg.APIKeys, 1)
	assert.Equal(t, "ci", cfg.APIKeys[0].ClientID)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CMDB_LISTEN_ADDR", ":7777")
	t.Setenv("CMDB_DB_PATH", "/tmp/env.db")
	t.Setenv("CMDB_API_KEYS", "env-client:env-key:read,write,admin")

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnv())

	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
	require.Len(t, cfg.APIKeys, 1)
	assert.Equal(t, "env-client", cfg.APIKeys[0].ClientID)
	assert.Contains(t, cfg.APIKeys[0].Permissions, auth.PermissionAdmin)
}

func TestEnvBadKeyTable(t *testing.T) {
	t.Setenv("CMDB_API_KEYS", "broken")

	cfg := DefaultConfig()
	assert.Error(t, cfg.applyEnv())
}
