package conversation

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	conversationService "github.com/Julian1897/smart-data-qa/internal/service/conversation"
	sessionService "github.com/Julian1897/smart-data-qa/internal/service/session"
	"github.com/Julian1897/smart-data-qa/pkg/utils"
)

// Handler 对话线程管理的HTTP处理器
type Handler struct {
	registry *sessionService.Registry
	convs    *conversationService.Store
}

// New 创建对话处理器
func New(registry *sessionService.Registry, convs *conversationService.Store) *Handler {
	return &Handler{registry: registry, convs: convs}
}

// RegisterRoutes 注册对话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions/{sessionID}/conversations", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{conversationID}", h.handleGet)
		r.Delete("/{conversationID}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	summaries, err := h.convs.List(r.Context(), sessionID)
	if err != nil {
		utils.RespondDomainError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	// 先确认会话仍然存活，同时刷新其活跃时间。
	if _, err := h.registry.Get(r.Context(), sessionID); err != nil {
		utils.RespondDomainError(w, err)
		return
	}

	conv, err := h.convs.Create(r.Context(), sessionID)
	if err != nil {
		utils.RespondDomainError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, conv)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	conversationID := chi.URLParam(r, "conversationID")

	conv, err := h.convs.Get(r.Context(), sessionID, conversationID)
	if err != nil {
		utils.RespondDomainError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"id":          conv.ID,
		"session_id":  conv.SessionID,
		"title":       conv.Title(),
		"entries":     conv.Entries,
		"created_at":  conv.CreatedAt,
		"last_active": conv.LastActive,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	conversationID := chi.URLParam(r, "conversationID")
	active := r.URL.Query().Get("active") == "true"

	replacementID, err := h.convs.Delete(r.Context(), sessionID, conversationID, active)
	if err != nil {
		utils.RespondDomainError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"conversation_id": replacementID})
}
