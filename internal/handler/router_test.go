package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Julian1897/smart-data-qa/internal/handler"
	"github.com/Julian1897/smart-data-qa/internal/service/conversation"
	"github.com/Julian1897/smart-data-qa/internal/service/engine"
	"github.com/Julian1897/smart-data-qa/internal/service/modelcfg"
	"github.com/Julian1897/smart-data-qa/internal/service/resolver"
	"github.com/Julian1897/smart-data-qa/internal/service/session"
)

const sampleCSV = "dept,salary\nA,100\nB,300\nA,200\n"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	convs := conversation.NewStore()
	eng := engine.NewStore()
	registry := session.NewRegistry(convs, eng, 0)
	models := modelcfg.NewManager(2 * time.Second)

	router := handler.NewRouter(handler.Deps{
		Registry:      registry,
		Conversations: convs,
		Models:        models,
		Resolver:      resolver.NewService(registry, convs, models, eng),
		UploadMax:     1 << 20,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func uploadCSV(t *testing.T, server *httptest.Server, fileName, content string) (int, map[string]any) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("CreateFormFile err: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part err: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer err: %v", err)
	}

	resp, err := http.Post(server.URL+"/api/upload", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("upload request err: %v", err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return resp.StatusCode, payload
}

func postJSON(t *testing.T, url string, payload any) (int, map[string]any) {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal err: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post err: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, body
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get err: %v", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode
}

func doDelete(t *testing.T, url string) (int, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		t.Fatalf("new request err: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete err: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, body
}

func TestUploadCreatesSession(t *testing.T) {
	server := newTestServer(t)

	status, payload := uploadCSV(t, server, "people.csv", sampleCSV)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", status, payload)
	}

	sessionID, _ := payload["session_id"].(string)
	if sessionID == "" {
		t.Fatalf("missing session_id: %v", payload)
	}
	info, _ := payload["data_info"].(map[string]any)
	if info == nil {
		t.Fatalf("missing data_info: %v", payload)
	}
	if info["file_name"] != "people.csv" {
		t.Fatalf("unexpected file_name: %v", info["file_name"])
	}
	if info["row_count"] != float64(3) {
		t.Fatalf("unexpected row_count: %v", info["row_count"])
	}
	if samples, _ := info["sample_data"].([]any); len(samples) != 3 {
		t.Fatalf("expected 3 sample rows, got %v", info["sample_data"])
	}
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	server := newTestServer(t)

	status, payload := uploadCSV(t, server, "people.xlsx", sampleCSV)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported format, got %d: %v", status, payload)
	}
}

func TestQueryFallbackFlow(t *testing.T) {
	server := newTestServer(t)

	_, payload := uploadCSV(t, server, "people.csv", sampleCSV)
	sessionID := payload["session_id"].(string)

	status, body := postJSON(t, server.URL+"/api/query", map[string]string{
		"question":   "数据总共有多少行",
		"session_id": sessionID,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if body["success"] != true {
		t.Fatalf("expected success, got %v", body)
	}
	if answer, _ := body["answer"].(string); !strings.Contains(answer, "3") {
		t.Fatalf("expected row count in answer, got %q", answer)
	}
	if body["note"] != resolver.NoteFallback {
		t.Fatalf("expected fallback note, got %v", body["note"])
	}
	if id, _ := body["conversation_id"].(string); id == "" {
		t.Fatalf("missing conversation_id: %v", body)
	}
}

func TestQueryUnknownSession(t *testing.T) {
	server := newTestServer(t)

	status, _ := postJSON(t, server.URL+"/api/query", map[string]string{
		"question":   "有多少行",
		"session_id": "missing",
	})
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestQueryEmptyQuestion(t *testing.T) {
	server := newTestServer(t)

	_, payload := uploadCSV(t, server, "people.csv", sampleCSV)
	sessionID := payload["session_id"].(string)

	status, _ := postJSON(t, server.URL+"/api/query", map[string]string{
		"question":   "  ",
		"session_id": sessionID,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty question, got %d", status)
	}
}

func TestConversationLifecycle(t *testing.T) {
	server := newTestServer(t)

	_, payload := uploadCSV(t, server, "people.csv", sampleCSV)
	sessionID := payload["session_id"].(string)
	base := server.URL + "/api/sessions/" + sessionID + "/conversations"

	var summaries []map[string]any
	if status := getJSON(t, base, &summaries); status != http.StatusOK {
		t.Fatalf("list conversations: %d", status)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected one seeded conversation, got %d", len(summaries))
	}
	seeded := summaries[0]["id"].(string)
	if summaries[0]["title"] != "新对话" {
		t.Fatalf("unexpected default title: %v", summaries[0]["title"])
	}

	// 问一个问题，标题应随之变为该问题。
	postJSON(t, server.URL+"/api/query", map[string]string{
		"question":        "显示前2条记录",
		"session_id":      sessionID,
		"conversation_id": seeded,
	})

	var detail map[string]any
	if status := getJSON(t, base+"/"+seeded, &detail); status != http.StatusOK {
		t.Fatalf("get conversation: %d", status)
	}
	if detail["title"] != "显示前2条记录" {
		t.Fatalf("title not derived from first question: %v", detail["title"])
	}
	if entries, _ := detail["entries"].([]any); len(entries) != 1 {
		t.Fatalf("expected one entry, got %v", detail["entries"])
	}

	// 删除当前活跃对话必须返回替代对话。
	status, body := doDelete(t, base+"/"+seeded+"?active=true")
	if status != http.StatusOK {
		t.Fatalf("delete conversation: %d %v", status, body)
	}
	replacement, _ := body["conversation_id"].(string)
	if replacement == "" || replacement == seeded {
		t.Fatalf("expected a fresh replacement conversation, got %q", replacement)
	}
	if status := getJSON(t, base+"/"+replacement, &detail); status != http.StatusOK {
		t.Fatalf("replacement not retrievable: %d", status)
	}
}

func TestSessionLifecycle(t *testing.T) {
	server := newTestServer(t)

	_, payload := uploadCSV(t, server, "people.csv", sampleCSV)
	sessionID := payload["session_id"].(string)

	var listed []map[string]any
	if status := getJSON(t, server.URL+"/api/sessions", &listed); status != http.StatusOK {
		t.Fatalf("list sessions: %d", status)
	}
	if len(listed) != 1 || listed[0]["session_id"] != sessionID {
		t.Fatalf("unexpected session list: %v", listed)
	}

	var detail map[string]any
	if status := getJSON(t, server.URL+"/api/sessions/"+sessionID, &detail); status != http.StatusOK {
		t.Fatalf("get session: %d", status)
	}
	if detail["row_count"] != float64(3) {
		t.Fatalf("unexpected row_count: %v", detail["row_count"])
	}

	status, _ := doDelete(t, server.URL+"/api/sessions/"+sessionID)
	if status != http.StatusOK {
		t.Fatalf("delete session: %d", status)
	}
	if status := getJSON(t, server.URL+"/api/sessions/"+sessionID, &detail); status != http.StatusNotFound {
		t.Fatalf("deleted session still retrievable: %d", status)
	}
}

func TestModelConfigValidation(t *testing.T) {
	server := newTestServer(t)

	var status int
	var body map[string]any

	status, body = postJSON(t, server.URL+"/api/config/model", map[string]string{
		"api_base": "https://api.example.com/v1",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing api_key, got %d: %v", status, body)
	}

	var modelStatus map[string]any
	if code := getJSON(t, server.URL+"/api/config/model", &modelStatus); code != http.StatusOK {
		t.Fatalf("get status: %d", code)
	}
	if modelStatus["configured"] != false {
		t.Fatalf("rejected config must not activate, got %v", modelStatus)
	}
	if _, leaked := modelStatus["api_key"]; leaked {
		t.Fatalf("status must never expose the key: %v", modelStatus)
	}
}

func TestModelConfigRoundTrip(t *testing.T) {
	server := newTestServer(t)

	status, body := postJSON(t, server.URL+"/api/config/model", map[string]string{
		"api_key":  "test-key",
		"api_base": "http://127.0.0.1:9",
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}

	var modelStatus map[string]any
	if code := getJSON(t, server.URL+"/api/config/model", &modelStatus); code != http.StatusOK {
		t.Fatalf("get status: %d", code)
	}
	if modelStatus["configured"] != true {
		t.Fatalf("expected configured status: %v", modelStatus)
	}
	if modelStatus["api_base"] != "http://127.0.0.1:9" {
		t.Fatalf("unexpected api_base: %v", modelStatus)
	}
	if modelStatus["model_name"] != "gpt-3.5-turbo" {
		t.Fatalf("expected default model name, got %v", modelStatus)
	}
	if _, leaked := modelStatus["api_key"]; leaked {
		t.Fatalf("status must never expose the key: %v", modelStatus)
	}
}
