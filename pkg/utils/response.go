package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/Julian1897/smart-data-qa/internal/model/qa"
)

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondDomainError 将领域错误映射为对应的HTTP状态码。
func RespondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, qa.ErrSessionNotFound), errors.Is(err, qa.ErrConversationNotFound):
		RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, qa.ErrInvalidDataset), errors.Is(err, qa.ErrInvalidModelConfig), errors.Is(err, qa.ErrEmptyQuestion):
		RespondError(w, http.StatusBadRequest, err.Error())
	default:
		RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
