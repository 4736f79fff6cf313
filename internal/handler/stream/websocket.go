package stream

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Julian1897/smart-data-qa/internal/model/qa"
	resolverService "github.com/Julian1897/smart-data-qa/internal/service/resolver"
)

// Handler 通过WebSocket提供持续问答通道，供保持长连接的聊天界面使用。
type Handler struct {
	resolver *resolverService.Service
	upgrader websocket.Upgrader
}

// New 创建WebSocket问答处理器
func New(resolver *resolverService.Service) *Handler {
	return &Handler{
		resolver: resolver,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

type questionFrame struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type answerFrame struct {
	Success        bool   `json:"success"`
	Answer         string `json:"answer,omitempty"`
	Note           string `json:"note,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	conversationID := r.URL.Query().Get("conversation")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[stream] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[stream] opened query stream session=%s", sessionID)

	for {
		var frame questionFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[stream] read failed session=%s: %v", sessionID, err)
			}
			return
		}

		if frame.ConversationID != "" {
			conversationID = frame.ConversationID
		}

		response, err := h.resolver.Resolve(r.Context(), resolverService.Request{
			SessionID:      sessionID,
			ConversationID: conversationID,
			Question:       frame.Question,
		})
		if err != nil {
			if writeErr := conn.WriteJSON(answerFrame{Error: err.Error()}); writeErr != nil {
				return
			}
			// 会话已消失时没有继续服务的意义。
			if errors.Is(err, qa.ErrSessionNotFound) {
				return
			}
			continue
		}

		// 后续问题默认续写同一对话。
		conversationID = response.ConversationID

		if err := conn.WriteJSON(answerFrame{
			Success:        response.Success,
			Answer:         response.Answer,
			Note:           response.Note,
			ConversationID: response.ConversationID,
		}); err != nil {
			return
		}
	}
}
