package bootstrap

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// SigningKeySource 说明签名密钥来自哪里。
type SigningKeySource string

const (
	defaultJWTSigningKey  = "change-me"
	signingKeySettingName = "auth_signing_key"
	signingKeyCategory    = "security"
	signingKeyBytes       = 32

	SigningKeyFromConfig    SigningKeySource = "config"
	SigningKeyFromSettings  SigningKeySource = "settings"
	SigningKeyFromGenerated SigningKeySource = "generated"
)

const signingKeyHint = "set INBOUNDPANEL_AUTH_SIGNING_KEY to skip the settings table"

// settingsTable 读写 settings 表里的单个键。
type settingsTable struct {
	db *sql.DB
}

func (s settingsTable) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// putIfBlank 只在键不存在或值为空时写入，多个进程同时启动时先写入的胜出。
func (s settingsTable) putIfBlank(ctx context.Context, key, value, category string, at time.Time) error {
	const statement = `INSERT INTO settings(key, value, category, updated_at) VALUES(?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, category = excluded.category, updated_at = excluded.updated_at
		WHERE TRIM(settings.value) = ''`
	_, err := s.db.ExecContext(ctx, statement, key, value, category, at.Unix())
	return err
}

// ResolveJWTSigningKey picks the admin token signing key: an explicitly configured key wins,
// then a key persisted in the settings table, otherwise a random key is generated and stored.
func ResolveJWTSigningKey(ctx context.Context, db *sql.DB, configured string, now func() time.Time) (string, SigningKeySource, error) {
	return resolveSigningKey(ctx, db, configured, now, rand.Reader)
}

func resolveSigningKey(ctx context.Context, db *sql.DB, configured string, now func() time.Time, entropy io.Reader) (string, SigningKeySource, error) {
	if key := strings.TrimSpace(configured); key != "" && key != defaultJWTSigningKey {
		return key, SigningKeyFromConfig, nil
	}
	if db == nil {
		return "", "", fmt.Errorf("resolve signing key: database is required when auth.signing_key is unset; %s", signingKeyHint)
	}
	if now == nil {
		now = time.Now
	}
	table := settingsTable{db: db}

	stored, err := table.get(ctx, signingKeySettingName)
	if err != nil {
		return "", "", fmt.Errorf("read signing key: %w; %s", err, signingKeyHint)
	}
	if stored != "" {
		return stored, SigningKeyFromSettings, nil
	}

	buf := make([]byte, signingKeyBytes)
	if _, err := io.ReadFull(entropy, buf); err != nil {
		return "", "", fmt.Errorf("generate signing key: %w; %s", err, signingKeyHint)
	}
	generated := hex.EncodeToString(buf)
	if err := table.putIfBlank(ctx, signingKeySettingName, generated, signingKeyCategory, now()); err != nil {
		return "", "", fmt.Errorf("persist signing key: %w; %s", err, signingKeyHint)
	}

	// 重新读一次：并发启动时别的进程可能先写入了。
	resolved, err := table.get(ctx, signingKeySettingName)
	if err != nil {
		return "", "", fmt.Errorf("read signing key after persist: %w; %s", err, signingKeyHint)
	}
	if resolved == "" {
		return "", "", fmt.Errorf("signing key missing after persist; %s", signingKeyHint)
	}
	if resolved == generated {
		return resolved, SigningKeyFromGenerated, nil
	}
	return resolved, SigningKeyFromSettings, nil
}
