package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists threads and turns.
type Store interface {
	CreateThread(ctx context.Context, personaID int64, userID string) (*Thread, error)
	GetThread(ctx context.Context, threadID string) (*Thread, error)
	// ListTurns returns every turn of the thread in creation order.
	ListTurns(ctx context.Context, threadID string) ([]Turn, error)
	// AppendExchange stores the user turn and the persona reply atomically and
	// bumps the thread's LastUpdated.
	AppendExchange(ctx context.Context, threadID, userText, personaText string) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	threads map[string]*Thread
	turns   map[string][]Turn
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads: make(map[string]*Thread),
		turns:   make(map[string][]Turn),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) CreateThread(ctx context.Context, personaID int64, userID string) (*Thread, error) {
	now := s.now()
	thread := &Thread{
		ID:          uuid.NewString(),
		PersonaID:   personaID,
		UserID:      userID,
		CreatedAt:   now,
		LastUpdated: now,
	}

	s.mu.Lock()
	s.threads[thread.ID] = thread
	s.mu.Unlock()

	copied := *thread
	return &copied, nil
}

func (s *MemoryStore) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thread, ok := s.threads[threadID]
	if !ok {
		return nil, ErrThreadNotFound
	}
	copied := *thread
	return &copied, nil
}

func (s *MemoryStore) ListTurns(ctx context.Context, threadID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := append([]Turn(nil), s.turns[threadID]...)
	sort.Slice(turns, func(i, j int) bool { return turns[i].ID < turns[j].ID })
	return turns, nil
}

func (s *MemoryStore) AppendExchange(ctx context.Context, threadID, userText, personaText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threads[threadID]
	if !ok {
		return ErrThreadNotFound
	}
	now := s.now()
	for _, t := range []struct{ sender, text string }{
		{SenderUser, userText},
		{SenderPersona, personaText},
	} {
		s.nextID++
		s.turns[threadID] = append(s.turns[threadID], Turn{
			ID:        s.nextID,
			ThreadID:  threadID,
			Sender:    t.sender,
			Text:      t.text,
			CreatedAt: now,
		})
	}
	thread.LastUpdated = now
	return nil
}
