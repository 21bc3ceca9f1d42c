package chatapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/config"
	"chat-widget/internal/history"
	"chat-widget/internal/llm"
	"chat-widget/internal/storage"
)

const fallback = "I’m sorry—something went wrong. Could you rephrase?"

func init() { gin.SetMode(gin.TestMode) }

type fakeLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	seen  [][]llm.Message
	ctxOK bool
}

func (f *fakeLLM) Generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, msgs)
	_, f.ctxOK = ctx.Deadline()
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Content: f.reply, Model: "fake"}, nil
}

type sliceRecorder struct {
	mu     sync.Mutex
	events []storage.Event
}

func (r *sliceRecorder) AppendInteraction(e storage.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *sliceRecorder) LoadInteractions() ([]storage.Event, error) { return r.events, nil }

func newServer(client llm.Client, rec storage.Recorder) (*Server, http.Handler) {
	s := New(client, history.NewManager(), Options{
		SystemPrompt:          "You are a construction project assistant.",
		FallbackMessage:       fallback,
		MaxConversationLength: 4,
		ResponseTimeout:       time.Second,
		AllowedOrigins:        []string{"http://localhost:3000"},
		Recorder:              rec,
	})
	return s, s.Handler()
}

func do(h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestChat_Success(t *testing.T) {
	fake := &fakeLLM{reply: "**3** active projects"}
	rec := &sliceRecorder{}
	s, h := newServer(fake, rec)

	w := do(h, http.MethodPost, "/api/chat", `{"message":"Show me all active projects","chat_id":"main-chat"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, "**3** active projects", body["message"])
	require.Equal(t, true, body["success"])
	require.Equal(t, "main-chat", body["chat_id"])

	require.Len(t, fake.seen, 1)
	require.Equal(t, llm.RoleSystem, fake.seen[0][0].Role)
	require.Equal(t, "Show me all active projects", fake.seen[0][len(fake.seen[0])-1].Content)
	require.True(t, fake.ctxOK, "generation should run under the response timeout")

	hist := s.history.Get("main-chat")
	require.Len(t, hist, 2)
	require.Equal(t, llm.RoleAssistant, hist[1].Role)

	require.Len(t, rec.events, 1)
	require.True(t, rec.events[0].Success)
}

func TestChat_HistoryIsSentAndTrimmed(t *testing.T) {
	fake := &fakeLLM{reply: "ok"}
	s, h := newServer(fake, nil)

	for i := 0; i < 3; i++ {
		w := do(h, http.MethodPost, "/api/chat", fmt.Sprintf(`{"message":"q%d","chat_id":"c"}`, i), nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	// system + 4 kept history messages + new user message
	require.Len(t, fake.seen[2], 6)
	hist := s.history.Get("c")
	require.Len(t, hist, 4)
	require.Equal(t, "q1", hist[0].Content)
	require.Equal(t, "ok", hist[3].Content)
}

func TestChat_DefaultChatID(t *testing.T) {
	s, h := newServer(&fakeLLM{reply: "hi"}, nil)
	w := do(h, http.MethodPost, "/api/chat", `{"message":"hello"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "default", decode(t, w)["chat_id"])
	require.Len(t, s.history.Get("default"), 2)
}

func TestChat_MissingMessage(t *testing.T) {
	fake := &fakeLLM{reply: "unused"}
	_, h := newServer(fake, nil)
	for _, body := range []string{`{}`, `{"chat_id":"x"}`, `{"message":"   "}`, `not json`, ``} {
		w := do(h, http.MethodPost, "/api/chat", body, nil)
		require.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
		require.Equal(t, "No message provided", decode(t, w)["error"])
	}
	require.Empty(t, fake.seen)
}

func TestChat_LLMFailure(t *testing.T) {
	rec := &sliceRecorder{}
	s, h := newServer(&fakeLLM{err: errors.New("upstream down")}, rec)
	w := do(h, http.MethodPost, "/api/chat", `{"message":"status?","chat_id":"c"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, fallback, body["message"])
	require.Equal(t, false, body["success"])
	require.Len(t, s.history.Get("c"), 2)
	require.Len(t, rec.events, 1)
	require.False(t, rec.events[0].Success)
}

func TestChat_EmptyCompletionFallsBack(t *testing.T) {
	_, h := newServer(&fakeLLM{reply: "  "}, nil)
	w := do(h, http.MethodPost, "/api/chat", `{"message":"hi"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, false, decode(t, w)["success"])
}

func TestHealth(t *testing.T) {
	_, h := newServer(&fakeLLM{reply: "ok"}, nil)
	do(h, http.MethodPost, "/api/chat", `{"message":"hi","chat_id":"a"}`, nil)
	w := do(h, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "operational", body["api"])
	require.EqualValues(t, 1, body["chats"])
}

func TestClearChat(t *testing.T) {
	s, h := newServer(&fakeLLM{reply: "ok"}, nil)
	do(h, http.MethodPost, "/api/chat", `{"message":"hi","chat_id":"main-chat"}`, nil)
	do(h, http.MethodPost, "/api/chat", `{"message":"hi","chat_id":"other"}`, nil)

	w := do(h, http.MethodPost, "/api/clear-chat/main-chat", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, true, body["success"])
	require.Equal(t, "Chat main-chat cleared successfully", body["message"])
	require.Empty(t, s.history.Get("main-chat"))
	require.Len(t, s.history.Get("other"), 2)

	// clearing an unknown chat still succeeds
	w = do(h, http.MethodPost, "/api/clear-chat/nope", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestNotFound(t *testing.T) {
	_, h := newServer(&fakeLLM{}, nil)
	w := do(h, http.MethodGet, "/api/tables", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Not found", decode(t, w)["error"])
}

func TestCORS(t *testing.T) {
	_, h := newServer(&fakeLLM{reply: "ok"}, nil)

	w := do(h, http.MethodOptions, "/api/chat", "", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": "POST",
	})
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, allowedMethods, w.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, allowedHeaders, w.Header().Get("Access-Control-Allow-Headers"))

	w = do(h, http.MethodPost, "/api/chat", `{"message":"hi"}`, map[string]string{"Origin": "http://evil.example"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

type panicLLM struct{}

func (panicLLM) Generate(context.Context, []llm.Message) (llm.Response, error) {
	panic("boom")
}

func TestPanicRecovered(t *testing.T) {
	_, h := newServer(panicLLM{}, nil)
	w := do(h, http.MethodPost, "/api/chat", `{"message":"hi"}`, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Internal server error", decode(t, w)["error"])
}

func TestChat_DefaultFallbackMessage(t *testing.T) {
	s := New(&fakeLLM{err: errors.New("down")}, nil, Options{})
	w := do(s.Handler(), http.MethodPost, "/api/chat", `{"message":"hi"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, config.DefaultFallbackMessage, decode(t, w)["message"])
}
