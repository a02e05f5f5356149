// 文件路径: internal/api/middleware/auth.go
// 模块说明: 这是 internal 模块里的 auth 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/creamcroissant/inboundpanel/internal/api/requestctx"
	"github.com/creamcroissant/inboundpanel/internal/auth/token"
	"github.com/creamcroissant/inboundpanel/internal/security"
	"github.com/creamcroissant/inboundpanel/internal/support/i18n"
)

// TokenParser 校验 Bearer token，*token.Manager 满足它。
type TokenParser interface {
	Parse(tokenString string) (*token.Claims, error)
}

// AdminGuard ensures requests carry a valid admin JWT. The admin subject and client IP are
// attached to the context for handlers and the audit trail.
func AdminGuard(tokens TokenParser, i18nMgr *i18n.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := requestctx.GetLanguage(r.Context())
			if tokens == nil {
				writeError(w, http.StatusUnauthorized, i18nMgr.Translate(lang, "error.unauthorized"))
				return
			}
			raw := extractBearer(r.Header.Get("Authorization"))
			if raw == "" {
				writeError(w, http.StatusUnauthorized, i18nMgr.Translate(lang, "error.unauthorized"))
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				msg := i18nMgr.Translate(lang, "error.unauthorized")
				if errors.Is(err, token.ErrExpiredToken) {
					w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="expired"`)
				}
				writeError(w, http.StatusUnauthorized, msg)
				return
			}
			if !claims.IsAdmin() {
				writeError(w, http.StatusForbidden, i18nMgr.Translate(lang, "error.forbidden"))
				return
			}
			requestctx.AddLogAttrs(r.Context(), slog.String("admin", claims.Subject))
			ctx := requestctx.WithAdminClaims(r.Context(), requestctx.AdminClaims{Subject: claims.Subject, Role: claims.Role})
			ctx = security.WithActor(ctx, claims.Subject, getClientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearer(header string) string {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return ""
	}
	parts := strings.SplitN(trimmed, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return trimmed
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
