package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "data/inboundpanel.db", cfg.DB.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "inboundpanel", cfg.Export.AppName)
	assert.Equal(t, 7, cfg.Backup.Keep)
	assert.NotEmpty(t, cfg.Metrics.Buckets)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: 127.0.0.1:9000
log:
  level: debug
database:
  path: /tmp/panel.db
export:
  app_name: edge-panel
  version: "2.3"
`)
	t.Setenv("INBOUNDPANEL_HTTP_ADDR", "127.0.0.1:9100")
	t.Setenv("INBOUNDPANEL_BACKUP_KEEP", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", cfg.HTTP.Addr, "env wins over file")
	assert.Equal(t, "/tmp/panel.db", cfg.DB.Path)
	assert.Equal(t, "edge-panel", cfg.Export.AppName)
	assert.Equal(t, "2.3", cfg.Export.Version)
	assert.Equal(t, 3, cfg.Backup.Keep)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	bad := *cfg
	bad.DB.Driver = "mysql"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Backup = BackupConfig{Enabled: true, Spec: "@daily", Dir: "x", Keep: 0}
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.RateLimit = RateLimitConfig{Enabled: true, Limit: 0, Window: time.Second}
	assert.Error(t, bad.Validate())
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", LogConfig{Level: "debug"}.SlogLevel().String())
	assert.Equal(t, "WARN", LogConfig{Level: "Warning"}.SlogLevel().String())
	assert.Equal(t, "INFO", LogConfig{Level: ""}.SlogLevel().String())
}
