package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cwal8202/chill-tuna-web/internal/chat"
	"github.com/cwal8202/chill-tuna-web/internal/conversation"
	httpmiddleware "github.com/cwal8202/chill-tuna-web/internal/http/middleware"
	"github.com/cwal8202/chill-tuna-web/internal/persona"
	"github.com/cwal8202/chill-tuna-web/pkg/logging"
	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"
)

// User-facing error texts.
const (
	msgInvalidJSON      = "잘못된 JSON 형식입니다."
	msgMessageRequired  = "message는 필수 항목입니다."
	msgPersonaRequired  = "persona_id는 필수 항목입니다."
	msgThreadNotFound   = "존재하지 않는 채팅입니다."
	msgPersonaMismatch  = "thread_id와 persona_id가 일치하지 않습니다."
	msgInternal         = "서버 내부 오류가 발생했습니다."
	msgInvalidPersonaID = "잘못된 persona_id입니다."
	msgRateLimited      = "요청이 너무 많습니다. 잠시 후 다시 시도해주세요."
)

// PersonaReader loads a persona by id.
type PersonaReader interface {
	Get(ctx context.Context, id int64) (*persona.Persona, error)
}

// TurnLimiter decides whether a client IP may start another turn.
type TurnLimiter interface {
	Allow(ip string) bool
}

// Handler serves the chat JSON API and the websocket chat.
type Handler struct {
	service  *ChatService
	personas PersonaReader
	limiter  TurnLimiter
	logger   *logging.Logger
}

// InboundMessage is what a websocket client sends.
type InboundMessage struct {
	Type  string `json:"type"` // "message", "ping"
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

// OutboundMessage is what the websocket sends back.
type OutboundMessage struct {
	Type      string      `json:"type"` // "session", "history", "typing", "message", "error", "pong"
	Text      string      `json:"text,omitempty"`
	Role      string      `json:"role,omitempty"`
	ThreadID  string      `json:"thread_id,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
	Messages  []chat.Turn `json:"messages,omitempty"`
}

func NewHandler(service *ChatService, personas PersonaReader, logger *logging.Logger) *Handler {
	if service == nil {
		panic("webchat: chat service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, personas: personas, logger: logger}
}

// WithTurnLimiter returns a copy of h that checks limiter before every
// websocket turn. HTTP turns are limited by the router middleware.
func (h *Handler) WithTurnLimiter(limiter TurnLimiter) *Handler {
	clone := *h
	clone.limiter = limiter
	return &clone
}

// HandleSend is POST /api/chat.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, msgMessageRequired)
		return
	}
	if req.PersonaID <= 0 {
		writeError(w, http.StatusBadRequest, msgPersonaRequired)
		return
	}

	resp, err := h.service.Send(r.Context(), req)
	if err != nil {
		status, msg := h.classify(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleThreadMessages is GET /api/chat/threads/{threadID}/messages.
func (h *Handler) HandleThreadMessages(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	thread, turns, err := h.service.History(r.Context(), threadID)
	if err != nil {
		status, msg := h.classify(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"thread":   thread,
		"messages": turns,
	})
}

// HandlePersona is GET /api/personas/{personaID}.
func (h *Handler) HandlePersona(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "personaID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, msgInvalidPersonaID)
		return
	}
	if h.personas == nil {
		writeError(w, http.StatusNotFound, conversation.PersonaNotFoundMessage)
		return
	}
	p, err := h.personas.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, persona.ErrNotFound) {
			writeError(w, http.StatusNotFound, conversation.PersonaNotFoundMessage)
			return
		}
		h.logger.Error("webchat: failed to load persona", "persona_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleWebSocket is GET /ws/chat?persona=<id>&thread=<id>.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	personaID, err := strconv.ParseInt(r.URL.Query().Get("persona"), 10, 64)
	if err != nil || personaID <= 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: msgInvalidPersonaID})
		return
	}
	threadID := strings.TrimSpace(r.URL.Query().Get("thread"))
	ip := httpmiddleware.ClientIP(r)

	if threadID != "" {
		thread, turns, err := h.service.History(ctx, threadID)
		if err != nil {
			_, msg := h.classify(err)
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: msg})
			return
		}
		if thread.PersonaID != personaID {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: msgPersonaMismatch})
			return
		}
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", ThreadID: threadID})
		if len(turns) > 0 {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", ThreadID: threadID, Messages: turns})
		}
	} else {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session"})
	}

	h.logger.Info("webchat: connection opened", "persona_id", personaID, "thread_id", threadID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "persona_id", personaID, "error", err)
			return
		}
		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}
		if h.limiter != nil && !h.limiter.Allow(ip) {
			h.logger.Warn("webchat: turn rate limited", "persona_id", personaID, "remote_ip", ip)
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: msgRateLimited})
			continue
		}

		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})
		resp, err := h.service.Send(ctx, SendRequest{
			Message:   msg.Text,
			Model:     msg.Model,
			PersonaID: personaID,
			ThreadID:  threadID,
		})
		if err != nil {
			_, text := h.classify(err)
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: text})
			continue
		}
		threadID = resp.ThreadID
		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type:      "message",
			Role:      chat.SenderPersona,
			Text:      resp.PersonaMsg,
			ThreadID:  resp.ThreadID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// classify maps service errors to a status and a user-facing message.
func (h *Handler) classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		return http.StatusBadRequest, msgMessageRequired
	case errors.Is(err, conversation.ErrPersonaNotFound):
		return http.StatusNotFound, conversation.PersonaNotFoundMessage
	case errors.Is(err, chat.ErrThreadNotFound):
		return http.StatusNotFound, msgThreadNotFound
	case errors.Is(err, chat.ErrPersonaMismatch):
		return http.StatusBadRequest, msgPersonaMismatch
	default:
		h.logger.Error("webchat: turn failed", "error", err)
		return http.StatusInternalServerError, msgInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
