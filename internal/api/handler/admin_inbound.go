package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/creamcroissant/inboundpanel/internal/api/requestctx"
	"github.com/creamcroissant/inboundpanel/internal/repository"
	"github.com/creamcroissant/inboundpanel/internal/service"
	"github.com/creamcroissant/inboundpanel/internal/support/i18n"
)

// AdminInboundHandler 处理入站 CRUD、草稿、克隆、导入与导出。
type AdminInboundHandler struct {
	inbounds service.InboundService
	i18n     *i18n.Manager
	logger   *slog.Logger
}

// NewAdminInboundHandler 创建入站处理器。
func NewAdminInboundHandler(svc service.InboundService, i18nMgr *i18n.Manager, logger *slog.Logger) *AdminInboundHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminInboundHandler{inbounds: svc, i18n: i18nMgr, logger: logger}
}

func writeOptions(r *http.Request) service.WriteOptions {
	return service.WriteOptions{Strict: queryBool(r, "strict")}
}

// List 处理 GET /api/v1/admin/inbounds
// 查询参数: protocol, keyword, limit (默认 50，最大 200), offset
// 匹配总数写在 X-Total-Count 响应头里。
func (h *AdminInboundHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.InboundFilter{
		Protocol: strings.TrimSpace(query.Get("protocol")),
		Keyword:  strings.TrimSpace(query.Get("keyword")),
		Limit:    clampQueryInt(query.Get("limit"), defaultListLimit),
		Offset:   clampNonNegativeQueryInt(query.Get("offset"), 0),
	}
	views, err := h.inbounds.List(r.Context(), filter)
	if err != nil {
		respondServiceError(r.Context(), w, h.logger, "admin.inbound.list", err, h.i18n)
		return
	}
	total, err := h.inbounds.Count(r.Context(), filter)
	if err != nil {
		respondServiceError(r.Context(), w, h.logger, "admin.inbound.list", err, h.i18n)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	respondData(w, http.StatusOK, views)
}

// Get 处理 GET /api/v1/admin/inbounds/{id}
func (h *AdminInboundHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		RespondErrorI18nAction(r.Context(), w, http.StatusBadRequest, "admin.inbound.get", "error.invalid_id", h.i18n)
		return
	}
	view, err := h.inbounds.Get(r.Context(), id)
	if err != nil {
		respondServiceError(r.Context(), w, h.logger, "admin.inbound.get", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, view)
}

// Create 处理 POST /api/v1/admin/inbounds，请求体是编辑草稿表单。
func (h *AdminInboundHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		respondServiceError(r.Context(), w, h.logger, "admin.inbound.create", err, h.i18n)
		return
	}
	view, err := h.inbounds.CreateFromDraft(r.Context(), body, writeOptions(r))
	if err != nil {
		respondServiceError(r.Context(), w, h.logger, "admin.inbound.create", err, h.i18n)
		return
	}
	annotateInbound(r, view)
	RespondSuccessI18n(r.Context(), w, http.StatusCreated, "message.inbound_created", h.i18n, view)
}

// Update 处理 PUT /api/v1/admin/inbounds/{id}
func (h *AdminInboundHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		RespondErrorI18nAction(r.Context(), w, http.StatusBadRequest, "admin.inbound.update", "error.invalid_id", h.i18n)
		return
	}
	body, err := readBody(r)
	if err != nil {
		respondServiceError(r.Context(), w, h.logger, "admin.inbound.update", err, h.i18n)
		return
	}
	view, err := h.inbounds.Update(r.Context(), id, body, writeOptions(r))
	if err != nil {
		respondServiceError(r.Context(), w, h.logger, "admin.inbound.update", err, h.i18n)
		return
	}
	annotateInbound(r, view)
	RespondSuccessI18n(r.Context(), w, http.StatusOK, "message.inbound_updated", h.i18n, view)
}

// Delete 处理 DELETE /api/v1/admin/inbounds/{id}
func (h *AdminInboundHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		RespondErrorI18nAction(r.Context(), w, http.StatusBadRequest, "admin.inbound.delete", "error.invalid_id", h.i18n)
		return
	}
	if err := h.inbounds.Delete(r.Context(), id); err != nil {
		respondServiceError(r.Context(), w, h.logger, "admin.inbound.delete", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, http.StatusOK, "message.inbound_deleted", h.i18n, map[string]int64{"id": id})
}

// Draft 处理 GET /api/v1/admin/inbounds/{id}/draft，返回编辑表单需要的草稿。
func (h *AdminInboundHandler) Draft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		RespondErrorI18nAction(r.Context(), w, http.StatusBadRequest, "admin.inbound.draft", "error.invalid_id", h.i18n)
		return
	}
	draft, err := h.inbounds.Draft(r.Context(), id)
	if err != nil {
		respondServiceError(r.Context(), w, h.logger, "admin.inbound.draft", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, draft)
}

// Clone 处理 POST /api/v1/admin/inbounds/{id}/clone
func (h *AdminInboundHandler) Clone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		RespondErrorI18nAction(r.Context(), w, http.StatusBadRequest, "admin.inbound.clone", "error.invalid_id", h.i18n)
		return
	}
	view, err := h.inbounds.Clone(r.Context(), id)
	if err != nil {
		respondServiceError(r.Context(), w, h.logger, "admin.inbound.clone", err, h.i18n)
		return
	}
	annotateInbound(r, view)
	RespondSuccessI18n(r.Context(), w, http.StatusCreated, "message.inbound_cloned", h.i18n, view)
}

// Import 处理 POST /api/v1/admin/inbounds/import。单条失败不影响整体，结果里逐条列出。
func (h *AdminInboundHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		respondServiceError(r.Context(), w, h.logger, "admin.inbound.import", err, h.i18n)
		return
	}
	result, err := h.inbounds.Import(r.Context(), body, writeOptions(r))
	if err != nil && result == nil {
		respondServiceError(r.Context(), w, h.logger, "admin.inbound.import", err, h.i18n)
		return
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "import stopped early", "error", err, "success", result.Success, "total", result.Total)
	}
	requestctx.AddLogAttrs(r.Context(), slog.Int("import_total", result.Total), slog.Int("import_success", result.Success))
	RespondSuccessI18n(r.Context(), w, http.StatusOK, "message.import_finished", h.i18n, result, result.Success, result.Total)
}

// Export 处理 GET /api/v1/admin/inbounds/export，直接返回可下载的导出文档。
func (h *AdminInboundHandler) Export(w http.ResponseWriter, r *http.Request) {
	result, err := h.inbounds.Export(r.Context())
	if err != nil {
		respondServiceError(r.Context(), w, h.logger, "admin.inbound.export", err, h.i18n)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result.Document); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write export", "error", err)
	}
}

func annotateInbound(r *http.Request, view *service.InboundView) {
	if view == nil {
		return
	}
	requestctx.AddLogAttrs(r.Context(), slog.String("tag", view.Tag), slog.Int("port", view.Port))
}
