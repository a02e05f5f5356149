package middleware

import (
	"net/http"
	"time"

	"github.com/creamcroissant/inboundpanel/internal/api/requestctx"
	"github.com/creamcroissant/inboundpanel/internal/support/i18n"
)

const languageCookie = "i18next"

// I18n 依次从 ?lang、X-I18N-Lang、cookie、Accept-Language 取语言偏好，匹配到受支持的语言后
// 放进 context。
func I18n(manager *i18n.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			queryLang := r.URL.Query().Get("lang")
			var cookieLang string
			if cookie, err := r.Cookie(languageCookie); err == nil {
				cookieLang = cookie.Value
			}

			lang := requestctx.DefaultLanguage
			if manager != nil {
				lang = firstMatch(manager, queryLang, r.Header.Get("X-I18N-Lang"), cookieLang, r.Header.Get("Accept-Language"))
			}
			ctx := requestctx.WithLanguage(r.Context(), lang)

			// 通过 ?lang 显式选择时写回 cookie，之后的请求沿用。
			if queryLang != "" {
				http.SetCookie(w, &http.Cookie{
					Name:    languageCookie,
					Value:   lang,
					Path:    "/",
					Expires: time.Now().Add(365 * 24 * time.Hour),
				})
			}
			w.Header().Set("Content-Language", lang)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// firstMatch 用第一个非空的偏好去匹配。
func firstMatch(manager *i18n.Manager, prefs ...string) string {
	for _, pref := range prefs {
		if pref != "" {
			return manager.Match(pref)
		}
	}
	return manager.Match()
}
