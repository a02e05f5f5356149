// 文件路径: internal/bootstrap/infra.go
// 模块说明: 这是 internal 模块里的 infra 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/creamcroissant/inboundpanel/internal/auth/token"
	"github.com/creamcroissant/inboundpanel/internal/cache"
	"github.com/creamcroissant/inboundpanel/internal/config"
	"github.com/creamcroissant/inboundpanel/internal/security"
)

// Infrastructure bundles shared helpers used by the HTTP layer and the CLI.
type Infrastructure struct {
	Cache       cache.Store
	Token       *token.Manager
	RateLimiter *security.RateLimiter
}

// BuildInfrastructure wires the default cache, token manager and rate limiter.
// cfg.Auth.SigningKey must already be resolved (see ResolveJWTSigningKey).
func BuildInfrastructure(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required / 配置不能为空")
	}
	if cfg.Auth.SigningKey == "" || cfg.Auth.SigningKey == defaultJWTSigningKey {
		return nil, fmt.Errorf("auth.signing_key must be changed from default value")
	}

	if logger == nil {
		logger = slog.Default()
	}

	window := cfg.RateLimit.Window
	if window <= 0 {
		window = time.Minute
	}
	cacheStore := cache.NewStore(cache.Options{
		Prefix:          "inboundpanel",
		DefaultTTL:      window,
		CleanupInterval: time.Minute,
	})

	tokenManager, err := token.NewManager(token.Options{
		SigningKey: []byte(cfg.Auth.SigningKey),
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		TTL:        cfg.Auth.TokenTTL,
		Leeway:     cfg.Auth.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	rateLimiter, err := security.NewRateLimiter(cacheStore)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	logger.Debug("infrastructure ready",
		"issuer", cfg.Auth.Issuer,
		"token_ttl", cfg.Auth.TokenTTL.String(),
		"rate_limit_window", window.String(),
	)

	return &Infrastructure{
		Cache:       cacheStore,
		Token:       tokenManager,
		RateLimiter: rateLimiter,
	}, nil
}
