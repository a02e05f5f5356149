// 文件路径: internal/api/handler/admin_util.go
// 模块说明: 这是 internal 模块里的 admin_util 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/creamcroissant/inboundpanel/internal/service"
	"github.com/creamcroissant/inboundpanel/internal/support/i18n"
)

// errBodyTooLarge 由 readBody 在超过 BodyLimit 时返回。
var errBodyTooLarge = errors.New("request body too large / 请求体过大")

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return err
	}
	return nil
}

// readBody 读出完整请求体；导入和草稿表单需要原始字节。
func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge
		}
		return nil, err
	}
	return data, nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// clampQueryInt 解析分页大小：空值、非法值和非正数都用 def，超过上限截到 maxListLimit。
func clampQueryInt(raw string, def int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return def
	}
	if value > maxListLimit {
		return maxListLimit
	}
	return value
}

func clampNonNegativeQueryInt(raw string, def int) int {
	if strings.TrimSpace(raw) == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if value < 0 {
		return 0
	}
	return value
}

func parseInt64(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

// pathID 解析 URL 中的 {id}，必须是正整数。
func pathID(r *http.Request) (int64, bool) {
	id, err := parseInt64(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryBool 把 1/true/yes/on 识别为真。
func queryBool(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// respondServiceError 把服务层错误映射为 HTTP 状态码与翻译键。
func respondServiceError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, action string, err error, i18nMgr *i18n.Manager) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		RespondErrorI18nAction(ctx, w, http.StatusRequestEntityTooLarge, action, "error.invalid_request", i18nMgr)
	case errors.Is(err, service.ErrInvalidInput):
		detail := strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": ")
		RespondErrorI18nAction(ctx, w, http.StatusBadRequest, action, "error.invalid_input", i18nMgr, detail)
	case errors.Is(err, service.ErrNotFound):
		key := "error.inbound_not_found"
		if strings.HasPrefix(action, "admin.directory.") {
			key = "error.not_found"
		}
		RespondErrorI18nAction(ctx, w, http.StatusNotFound, action, key, i18nMgr)
	case errors.Is(err, service.ErrPortConflict):
		RespondErrorI18nAction(ctx, w, http.StatusConflict, action, "error.port_conflict", i18nMgr)
	case errors.Is(err, service.ErrTagConflict):
		RespondErrorI18nAction(ctx, w, http.StatusConflict, action, "error.tag_conflict", i18nMgr)
	case errors.Is(err, service.ErrUnknownPack):
		RespondErrorI18nAction(ctx, w, http.StatusNotFound, action, "error.unknown_pack", i18nMgr)
	case errors.Is(err, service.ErrServerAddressRequired):
		RespondErrorI18nAction(ctx, w, http.StatusUnprocessableEntity, action, "error.server_address_required", i18nMgr)
	default:
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(ctx, "admin request failed", "action", action, "error", err)
		RespondErrorI18nAction(ctx, w, http.StatusInternalServerError, action, "error.internal", i18nMgr)
	}
}
