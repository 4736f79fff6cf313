package query

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	resolverService "github.com/Julian1897/smart-data-qa/internal/service/resolver"
	"github.com/Julian1897/smart-data-qa/pkg/utils"
)

// Handler 问答解析的HTTP处理器
type Handler struct {
	resolver *resolverService.Service
}

// New 创建问答处理器
func New(resolver *resolverService.Service) *Handler {
	return &Handler{resolver: resolver}
}

// RegisterRoutes 注册问答路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/query", h.handleQuery)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Question       string `json:"question"`
		SessionID      string `json:"session_id"`
		ConversationID string `json:"conversation_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	response, err := h.resolver.Resolve(r.Context(), resolverService.Request{
		SessionID:      payload.SessionID,
		ConversationID: payload.ConversationID,
		Question:       payload.Question,
	})
	if err != nil {
		utils.RespondDomainError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, response)
}
