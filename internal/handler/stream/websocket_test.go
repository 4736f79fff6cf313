package stream_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Julian1897/smart-data-qa/internal/handler/stream"
	"github.com/Julian1897/smart-data-qa/internal/model/dataset"
	"github.com/Julian1897/smart-data-qa/internal/service/conversation"
	"github.com/Julian1897/smart-data-qa/internal/service/engine"
	"github.com/Julian1897/smart-data-qa/internal/service/modelcfg"
	"github.com/Julian1897/smart-data-qa/internal/service/resolver"
	"github.com/Julian1897/smart-data-qa/internal/service/session"
)

type frame struct {
	Success        bool   `json:"success"`
	Answer         string `json:"answer"`
	Note           string `json:"note"`
	ConversationID string `json:"conversation_id"`
	Error          string `json:"error"`
}

func newStreamServer(t *testing.T) (*httptest.Server, *conversation.Store, string) {
	t.Helper()

	table := &dataset.Table{
		SourceName: "people.csv",
		Columns: []dataset.Column{
			{Name: "dept", Type: dataset.Text},
			{Name: "salary", Type: dataset.Number},
		},
		Rows: [][]string{
			{"A", "100"},
			{"B", "300"},
			{"A", "200"},
		},
	}

	convs := conversation.NewStore()
	eng := engine.NewStore()
	registry := session.NewRegistry(convs, eng, 0)
	models := modelcfg.NewManager(2 * time.Second)
	resolverSvc := resolver.NewService(registry, convs, models, eng)

	sess, _, err := registry.Create(context.Background(), table)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	router := chi.NewRouter()
	stream.New(resolverSvc).RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, convs, sess.ID
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestStreamQuestionRoundTrip(t *testing.T) {
	server, _, sessionID := newStreamServer(t)
	conn := dial(t, server, "/stream/"+sessionID)

	if err := conn.WriteJSON(map[string]string{"question": "数据有多少行"}); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	var answer frame
	if err := conn.ReadJSON(&answer); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !answer.Success {
		t.Fatalf("expected successful answer, got %+v", answer)
	}
	if !strings.Contains(answer.Answer, "3") {
		t.Fatalf("expected row count in answer, got %q", answer.Answer)
	}
	if answer.Note != resolver.NoteFallback {
		t.Fatalf("expected fallback note, got %q", answer.Note)
	}
	if answer.ConversationID == "" {
		t.Fatalf("missing conversation_id: %+v", answer)
	}
}

func TestStreamReusesConversation(t *testing.T) {
	server, convs, sessionID := newStreamServer(t)
	conn := dial(t, server, "/stream/"+sessionID)

	var first, second frame
	if err := conn.WriteJSON(map[string]string{"question": "数据有多少行"}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	// 第二帧不带对话 id，应续写上一帧的对话。
	if err := conn.WriteJSON(map[string]string{"question": "显示前2条记录"}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read frame: %v", err)
	}

	if second.ConversationID != first.ConversationID {
		t.Fatalf("conversation not carried forward: %q vs %q", second.ConversationID, first.ConversationID)
	}

	conv, err := convs.Get(context.Background(), sessionID, first.ConversationID)
	if err != nil {
		t.Fatalf("Get conversation: %v", err)
	}
	if len(conv.Entries) != 2 {
		t.Fatalf("expected both turns recorded, got %d entries", len(conv.Entries))
	}
}

func TestStreamUnknownSessionCloses(t *testing.T) {
	server, _, _ := newStreamServer(t)
	conn := dial(t, server, "/stream/missing")

	if err := conn.WriteJSON(map[string]string{"question": "数据有多少行"}); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	var answer frame
	if err := conn.ReadJSON(&answer); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if answer.Error == "" {
		t.Fatalf("expected error frame, got %+v", answer)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&answer); err == nil {
		t.Fatalf("connection should close after unknown session, got %+v", answer)
	}
}
