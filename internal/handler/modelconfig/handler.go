package modelconfig

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Julian1897/smart-data-qa/internal/service/modelcfg"
	"github.com/Julian1897/smart-data-qa/pkg/utils"
)

// Handler 模型配置的HTTP处理器
type Handler struct {
	manager *modelcfg.Manager
}

// New 创建模型配置处理器
func New(manager *modelcfg.Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes 注册模型配置路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/config/model", h.handleSet)
	r.Get("/config/model", h.handleStatus)
}

func (h *Handler) handleSet(w http.ResponseWriter, r *http.Request) {
	var payload modelcfg.Config
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.manager.Set(r.Context(), payload); err != nil {
		utils.RespondDomainError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "模型配置成功"})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.manager.GetStatus())
}
