// 文件路径: internal/api/requestctx/admin.go
// 模块说明: 这是 internal 模块里的 requestctx 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package requestctx

import "context"

// DefaultLanguage 在请求没有携带语言时使用。
const DefaultLanguage = "en-US"

// AdminClaims captures admin guard metadata.
type AdminClaims struct {
	Subject string
	Role    string
}

type contextKey string

const adminContextKey contextKey = "inboundpanel-admin"

// I18nKey 用于在 context 中存储语言标识的 key 类型。
type I18nKey struct{}

// WithLanguage 将语言标识附加到 context 中供下游使用。
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, I18nKey{}, lang)
}

// GetLanguage 从 context 中获取语言标识，若未设置则返回 DefaultLanguage。
func GetLanguage(ctx context.Context) string {
	if ctx == nil {
		return DefaultLanguage
	}
	if lang, ok := ctx.Value(I18nKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLanguage
}

// WithAdminClaims attaches admin data to context.
func WithAdminClaims(ctx context.Context, claims AdminClaims) context.Context {
	return context.WithValue(ctx, adminContextKey, claims)
}

// AdminFromContext fetches admin claims or zero value.
func AdminFromContext(ctx context.Context) AdminClaims {
	if ctx == nil {
		return AdminClaims{}
	}
	claims, _ := ctx.Value(adminContextKey).(AdminClaims)
	return claims
}
