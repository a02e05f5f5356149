// 文件路径: internal/api/handler/admin_pack.go
// 模块说明: 这是 internal 模块里的 admin_pack 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/creamcroissant/inboundpanel/internal/api/requestctx"
	"github.com/creamcroissant/inboundpanel/internal/inbound"
	"github.com/creamcroissant/inboundpanel/internal/service"
	"github.com/creamcroissant/inboundpanel/internal/support/i18n"
)

// AdminPackHandler 处理预设包的列表与应用。
type AdminPackHandler struct {
	packs  service.PackService
	i18n   *i18n.Manager
	logger *slog.Logger
}

// NewAdminPackHandler 创建预设包处理器。
func NewAdminPackHandler(svc service.PackService, i18nMgr *i18n.Manager, logger *slog.Logger) *AdminPackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminPackHandler{packs: svc, i18n: i18nMgr, logger: logger}
}

// List 处理 GET /api/v1/admin/packs
func (h *AdminPackHandler) List(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.packs.Packs())
}

// Apply 处理 POST /api/v1/admin/packs/{name}
// 请求体: {"serverAddress", "serverName", "cdnHost", "fallbackPorts", "userIds", "groupIds", "dryRun"}
func (h *AdminPackHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req inbound.PackRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			respondServiceError(r.Context(), w, h.logger, "admin.pack.apply", err, h.i18n)
			return
		}
		RespondErrorI18nAction(r.Context(), w, http.StatusBadRequest, "admin.pack.apply", "error.invalid_request", h.i18n)
		return
	}
	result, err := h.packs.Apply(r.Context(), chi.URLParam(r, "name"), req)
	if err != nil {
		respondServiceError(r.Context(), w, h.logger, "admin.pack.apply", err, h.i18n)
		return
	}
	requestctx.AddLogAttrs(r.Context(),
		slog.String("plan_id", result.PlanID),
		slog.Bool("dry_run", result.DryRun),
		slog.Int("planned", len(result.Planned)),
		slog.Int("created", len(result.Created)),
	)
	if result.DryRun {
		RespondSuccessI18n(r.Context(), w, http.StatusOK, "message.pack_planned", h.i18n, result)
		return
	}
	RespondSuccessI18n(r.Context(), w, http.StatusCreated, "message.pack_committed", h.i18n, result)
}
