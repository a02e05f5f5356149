package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/creamcroissant/inboundpanel/internal/service"
	"github.com/creamcroissant/inboundpanel/internal/support/i18n"
)

// AdminDirectoryHandler 管理可分配入站的用户和分组。
type AdminDirectoryHandler struct {
	directory service.DirectoryService
	i18n      *i18n.Manager
	logger    *slog.Logger
}

func NewAdminDirectoryHandler(svc service.DirectoryService, i18nMgr *i18n.Manager, logger *slog.Logger) *AdminDirectoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminDirectoryHandler{directory: svc, i18n: i18nMgr, logger: logger}
}

type createUserRequest struct {
	Email    string  `json:"email"`
	GroupIDs []int64 `json:"groupIds"`
}

type createGroupRequest struct {
	Name string `json:"name"`
}

// CreateUser 处理 POST /api/v1/admin/users
func (h *AdminDirectoryHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	const action = "admin.directory.user_create"
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.decodeFailed(w, r, action, err)
		return
	}
	user, err := h.directory.AddUser(r.Context(), req.Email, req.GroupIDs)
	if err != nil {
		respondServiceError(r.Context(), w, h.logger, action, err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, http.StatusCreated, "message.user_created", h.i18n, user)
}

// CreateGroup 处理 POST /api/v1/admin/groups
func (h *AdminDirectoryHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	const action = "admin.directory.group_create"
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		h.decodeFailed(w, r, action, err)
		return
	}
	group, err := h.directory.AddGroup(r.Context(), req.Name)
	if err != nil {
		respondServiceError(r.Context(), w, h.logger, action, err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, http.StatusCreated, "message.group_created", h.i18n, group)
}

// UserInbounds 处理 GET /api/v1/admin/users/{id}/inbounds，返回直接或经分组分配给该用户的入站 ID。
func (h *AdminDirectoryHandler) UserInbounds(w http.ResponseWriter, r *http.Request) {
	const action = "admin.directory.user_inbounds"
	id, ok := pathID(r)
	if !ok {
		RespondErrorI18nAction(r.Context(), w, http.StatusBadRequest, action, "error.invalid_user_id", h.i18n)
		return
	}
	ids, err := h.directory.UserInbounds(r.Context(), id)
	if err != nil {
		respondServiceError(r.Context(), w, h.logger, action, err, h.i18n)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	respondData(w, http.StatusOK, map[string]any{"userId": id, "inboundIds": ids})
}

func (h *AdminDirectoryHandler) decodeFailed(w http.ResponseWriter, r *http.Request, action string, err error) {
	if errors.Is(err, errBodyTooLarge) {
		respondServiceError(r.Context(), w, h.logger, action, err, h.i18n)
		return
	}
	RespondErrorI18nAction(r.Context(), w, http.StatusBadRequest, action, "error.invalid_request", h.i18n)
}
