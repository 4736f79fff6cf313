package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	sessionService "github.com/Julian1897/smart-data-qa/internal/service/session"
	"github.com/Julian1897/smart-data-qa/pkg/utils"
)

// Handler 会话管理的HTTP处理器
type Handler struct {
	registry *sessionService.Registry
}

// New 创建会话处理器
func New(registry *sessionService.Registry) *Handler {
	return &Handler{registry: registry}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions", h.handleList)
	r.Get("/sessions/{sessionID}", h.handleGet)
	r.Delete("/sessions/{sessionID}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.registry.List(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.registry.Get(r.Context(), sessionID)
	if err != nil {
		utils.RespondDomainError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session_id": session.ID,
		"file_name":  session.FileName,
		"columns":    session.Table.ColumnNames(),
		"schema":     session.Columns,
		"row_count":  session.RowCount,
		"created_at": session.CreatedAt,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.registry.Delete(r.Context(), sessionID); err != nil {
		utils.RespondDomainError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "会话已删除"})
}
