package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cwal8202/chill-tuna-web/internal/chat"
	"github.com/cwal8202/chill-tuna-web/internal/conversation"
	"github.com/cwal8202/chill-tuna-web/internal/persona"
	"github.com/cwal8202/chill-tuna-web/pkg/logging"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newTestRouter(proc TurnProcessor, store chat.Store) http.Handler {
	personas := persona.NewInMemoryRepository(persona.Persona{ID: 1, Name: "지수", SummaryTag: "30대 1인 가구"})
	h := NewHandler(NewChatService(proc, store, logging.Discard()), personas, logging.Discard())

	r := chi.NewRouter()
	r.Post("/api/chat", h.HandleSend)
	r.Get("/api/chat/threads/{threadID}/messages", h.HandleThreadMessages)
	r.Get("/api/personas/{personaID}", h.HandlePersona)
	r.Get("/ws/chat", h.HandleWebSocket)
	return r
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHandleSend(t *testing.T) {
	router := newTestRouter(&stubProcessor{reply: "한 달에 4개요."}, chat.NewMemoryStore())

	body := `{"message":"참치캔 몇 개 살래?","persona_id":1,"model":"gpt-5-mini"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp SendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "한 달에 4개요.", resp.PersonaMsg)
	assert.True(t, resp.IsNewThread)
	assert.NotEmpty(t, resp.ThreadID)
}

func TestHandleSend_Validation(t *testing.T) {
	router := newTestRouter(&stubProcessor{reply: "ok"}, chat.NewMemoryStore())

	cases := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"message":`, msgInvalidJSON},
		{"missing message", `{"persona_id":1}`, msgMessageRequired},
		{"missing persona", `{"message":"안녕"}`, msgPersonaRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, decodeBody(t, w)["error"])
		})
	}
}

func TestHandleSend_ErrorMapping(t *testing.T) {
	store := chat.NewMemoryStore()
	thread, err := store.CreateThread(context.Background(), 2, "")
	require.NoError(t, err)

	cases := []struct {
		name   string
		proc   *stubProcessor
		body   string
		status int
		want   string
	}{
		{
			name:   "persona not found",
			proc:   &stubProcessor{err: conversation.ErrPersonaNotFound},
			body:   `{"message":"안녕","persona_id":99}`,
			status: http.StatusNotFound,
			want:   conversation.PersonaNotFoundMessage,
		},
		{
			name:   "persona mismatch",
			proc:   &stubProcessor{reply: "unused"},
			body:   `{"message":"안녕","persona_id":1,"thread_id":"` + thread.ID + `"}`,
			status: http.StatusBadRequest,
			want:   msgPersonaMismatch,
		},
		{
			name:   "unknown thread",
			proc:   &stubProcessor{reply: "unused"},
			body:   `{"message":"안녕","persona_id":1,"thread_id":"missing"}`,
			status: http.StatusNotFound,
			want:   msgThreadNotFound,
		},
		{
			name:   "generation failure",
			proc:   &stubProcessor{err: conversation.ErrGenerationFailure},
			body:   `{"message":"참치캔 몇 개 살래?","persona_id":1}`,
			status: http.StatusInternalServerError,
			want:   msgInternal,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(tc.proc, store)
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.want, decodeBody(t, w)["error"])
		})
	}
}

func TestHandleThreadMessages(t *testing.T) {
	store := chat.NewMemoryStore()
	thread, err := store.CreateThread(context.Background(), 1, "")
	require.NoError(t, err)
	require.NoError(t, store.AppendExchange(context.Background(), thread.ID, "우유 몇 개?", "두 개요."))
	router := newTestRouter(&stubProcessor{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/threads/"+thread.ID+"/messages", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Thread   chat.Thread `json:"thread"`
		Messages []chat.Turn `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, thread.ID, resp.Thread.ID)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "우유 몇 개?", resp.Messages[0].Text)
	assert.Equal(t, chat.SenderPersona, resp.Messages[1].Sender)

	req = httptest.NewRequest(http.MethodGet, "/api/chat/threads/missing/messages", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlePersona(t *testing.T) {
	router := newTestRouter(&stubProcessor{}, chat.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/api/personas/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var p persona.Persona
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "지수", p.Name)

	req = httptest.NewRequest(http.MethodGet, "/api/personas/42", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, conversation.PersonaNotFoundMessage, decodeBody(t, w)["error"])

	req = httptest.NewRequest(http.MethodGet, "/api/personas/abc", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWebSocket(t *testing.T) {
	store := chat.NewMemoryStore()
	server := httptest.NewServer(newTestRouter(&stubProcessor{reply: "한 달에 4개요."}, store))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat?persona=1"
	conn, err := websocket.Dial(wsURL, "", server.URL)
	require.NoError(t, err)
	defer conn.Close()

	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "session", msg.Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "pong", msg.Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "참치캔 몇 개 살래?"}))
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "typing", msg.Type)

	var reply OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &reply))
	assert.Equal(t, "message", reply.Type)
	assert.Equal(t, "한 달에 4개요.", reply.Text)
	require.NotEmpty(t, reply.ThreadID)

	turns, err := store.ListTurns(context.Background(), reply.ThreadID)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestHandleWebSocket_InvalidPersona(t *testing.T) {
	server := httptest.NewServer(newTestRouter(&stubProcessor{}, chat.NewMemoryStore()))
	defer server.Close()

	conn, err := websocket.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws/chat", "", server.URL)
	require.NoError(t, err)
	defer conn.Close()

	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, msgInvalidPersonaID, msg.Text)
}

type countdownLimiter struct {
	mu        sync.Mutex
	remaining int
	ips       []string
}

func (l *countdownLimiter) seen() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ips...)
}

func (l *countdownLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ips = append(l.ips, ip)
	if l.remaining <= 0 {
		return false
	}
	l.remaining--
	return true
}

func TestHandleWebSocket_LimitsEveryMessageFrame(t *testing.T) {
	store := chat.NewMemoryStore()
	proc := &stubProcessor{reply: "한 달에 4개요."}
	limiter := &countdownLimiter{remaining: 1}
	personas := persona.NewInMemoryRepository(persona.Persona{ID: 1, Name: "지수"})
	h := NewHandler(NewChatService(proc, store, logging.Discard()), personas, logging.Discard()).WithTurnLimiter(limiter)

	r := chi.NewRouter()
	r.Get("/ws/chat", h.HandleWebSocket)
	server := httptest.NewServer(r)
	defer server.Close()

	conn, err := websocket.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws/chat?persona=1", "", server.URL)
	require.NoError(t, err)
	defer conn.Close()

	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "session", msg.Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "참치캔 몇 개 살래?"}))
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "typing", msg.Type)
	var reply OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &reply))
	assert.Equal(t, "message", reply.Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "pong", msg.Type, "pings do not spend the limit")

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "2000원이면?"}))
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, msgRateLimited, msg.Text)

	turns, err := store.ListTurns(context.Background(), reply.ThreadID)
	require.NoError(t, err)
	assert.Len(t, turns, 2, "the limited frame must not run a turn")
	ips := limiter.seen()
	require.Len(t, ips, 2)
	assert.Equal(t, "127.0.0.1", ips[0])
}
