package bootstrap

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/inboundpanel/internal/config"
	"github.com/creamcroissant/inboundpanel/internal/migrations"
	"github.com/creamcroissant/inboundpanel/internal/support/logging"
)

func TestResolveSigningKey(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "panel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(db))

	key, source, err := ResolveJWTSigningKey(ctx, db, "  explicit-key ", time.Now)
	require.NoError(t, err)
	assert.Equal(t, "explicit-key", key)
	assert.Equal(t, SigningKeyFromConfig, source)

	entropy := bytes.NewReader(bytes.Repeat([]byte{0xab}, signingKeyBytes))
	key, source, err = resolveSigningKey(ctx, db, "change-me", time.Now, entropy)
	require.NoError(t, err)
	assert.Equal(t, SigningKeyFromGenerated, source)
	assert.Equal(t, strings.Repeat("ab", signingKeyBytes), key)

	again, source, err := ResolveJWTSigningKey(ctx, db, "", time.Now)
	require.NoError(t, err)
	assert.Equal(t, SigningKeyFromSettings, source)
	assert.Equal(t, key, again)
}

func TestResolveSigningKeyNeedsDatabase(t *testing.T) {
	_, _, err := ResolveJWTSigningKey(context.Background(), nil, "change-me", nil)
	assert.Error(t, err)
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}

func TestBuildInfrastructure(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth = config.AuthConfig{SigningKey: "change-me", Issuer: "inboundpanel", TokenTTL: time.Hour}
	_, err := BuildInfrastructure(cfg, logging.Discard())
	assert.Error(t, err, "default key is refused")

	cfg.Auth.SigningKey = "0123456789abcdef"
	infra, err := BuildInfrastructure(cfg, logging.Discard())
	require.NoError(t, err)

	signed, _, err := infra.Token.IssueAdmin("root", 0)
	require.NoError(t, err)
	claims, err := infra.Token.Parse(signed)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())

	res, err := infra.RateLimiter.Allow(context.Background(), "127.0.0.1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
