package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/creamcroissant/inboundpanel/internal/api/requestctx"
	"github.com/creamcroissant/inboundpanel/internal/support/i18n"
)

// Helper to respond with JSON
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response JSON", "error", err)
	}
}

// respondData 输出 {"data": ...}。
func respondData(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, map[string]any{"data": data})
}

// RespondErrorI18nAction 输出翻译后的错误信息，action 用于前端定位是哪个操作失败。
func RespondErrorI18nAction(ctx context.Context, w http.ResponseWriter, status int, action string, key string, i18nMgr *i18n.Manager, args ...interface{}) {
	if key == "" {
		key = action
	}
	msg := i18nMgr.Translate(requestctx.GetLanguage(ctx), key, args...)
	resp := map[string]any{
		"error": msg,
	}
	if action != "" {
		resp["action"] = action
	}
	respondJSON(w, status, resp)
}

// RespondSuccessI18n 输出翻译后的提示信息以及可选的数据。
func RespondSuccessI18n(ctx context.Context, w http.ResponseWriter, status int, key string, i18nMgr *i18n.Manager, data any, args ...interface{}) {
	resp := map[string]any{
		"message": i18nMgr.Translate(requestctx.GetLanguage(ctx), key, args...),
	}
	if data != nil {
		resp["data"] = data
	}
	respondJSON(w, status, resp)
}
