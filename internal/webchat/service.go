package webchat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cwal8202/chill-tuna-web/internal/chat"
	"github.com/cwal8202/chill-tuna-web/internal/conversation"
	"github.com/cwal8202/chill-tuna-web/pkg/logging"
)

// ErrEmptyMessage is returned when a send carries no text.
var ErrEmptyMessage = errors.New("webchat: message is required")

// TurnProcessor produces a persona reply for one utterance.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, req conversation.TurnRequest) (string, error)
}

// SendRequest is one user message to a persona, optionally inside an
// existing thread.
type SendRequest struct {
	Message   string `json:"message"`
	Model     string `json:"model,omitempty"`
	PersonaID int64  `json:"persona_id"`
	ThreadID  string `json:"thread_id,omitempty"`
	UserID    string `json:"-"`
}

// SendResponse carries the persona reply and the thread it was stored in.
type SendResponse struct {
	PersonaMsg  string `json:"persona_msg"`
	ThreadID    string `json:"thread_id"`
	IsNewThread bool   `json:"is_new_thread"`
}

// ChatService ties the turn pipeline to thread storage.
type ChatService struct {
	turns  TurnProcessor
	store  chat.Store
	logger *logging.Logger
}

func NewChatService(turns TurnProcessor, store chat.Store, logger *logging.Logger) *ChatService {
	if turns == nil {
		panic("webchat: turn processor cannot be nil")
	}
	if store == nil {
		panic("webchat: chat store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatService{turns: turns, store: store, logger: logger}
}

// Send runs one turn. A new thread is only created once the reply exists, so
// failed turns leave nothing behind; the user and persona turns are stored
// together.
func (s *ChatService) Send(ctx context.Context, req SendRequest) (SendResponse, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return SendResponse{}, ErrEmptyMessage
	}

	threadID := strings.TrimSpace(req.ThreadID)
	if threadID != "" {
		thread, err := s.store.GetThread(ctx, threadID)
		if err != nil {
			return SendResponse{}, fmt.Errorf("webchat: load thread: %w", err)
		}
		if thread.PersonaID != req.PersonaID {
			return SendResponse{}, chat.ErrPersonaMismatch
		}
	}

	reply, err := s.turns.ProcessTurn(ctx, conversation.TurnRequest{
		PersonaID: req.PersonaID,
		UserText:  text,
		ThreadID:  threadID,
		Model:     req.Model,
	})
	if err != nil {
		return SendResponse{}, err
	}

	isNew := threadID == ""
	if isNew {
		thread, err := s.store.CreateThread(ctx, req.PersonaID, req.UserID)
		if err != nil {
			return SendResponse{}, fmt.Errorf("webchat: create thread: %w", err)
		}
		threadID = thread.ID
	}
	if err := s.store.AppendExchange(ctx, threadID, text, reply); err != nil {
		return SendResponse{}, fmt.Errorf("webchat: store exchange: %w", err)
	}

	s.logger.Info("webchat: turn stored",
		"thread_id", threadID,
		"persona_id", req.PersonaID,
		"new_thread", isNew,
	)
	return SendResponse{PersonaMsg: reply, ThreadID: threadID, IsNewThread: isNew}, nil
}

// History returns a thread and its turns in creation order.
func (s *ChatService) History(ctx context.Context, threadID string) (*chat.Thread, []chat.Turn, error) {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, nil, fmt.Errorf("webchat: load thread: %w", err)
	}
	turns, err := s.store.ListTurns(ctx, threadID)
	if err != nil {
		return nil, nil, fmt.Errorf("webchat: list turns: %w", err)
	}
	if turns == nil {
		turns = []chat.Turn{}
	}
	return thread, turns, nil
}
