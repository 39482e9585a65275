package conversation

import (
	"context"
	"sync"

	"github.com/cwal8202/chill-tuna-web/internal/chat"
	"github.com/cwal8202/chill-tuna-web/internal/persona"
)

// stubLLMClient answers by call purpose and records every request.
type stubLLMClient struct {
	mu       sync.Mutex
	requests []LLMRequest
	answers  map[string]string
	errs     map[string]error
}

func newStubLLMClient(answers map[string]string) *stubLLMClient {
	return &stubLLMClient{answers: answers, errs: map[string]error{}}
}

func (s *stubLLMClient) failing(purpose string, err error) *stubLLMClient {
	s.errs[purpose] = err
	return s
}

func (s *stubLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	purpose := purposeOf(req)
	if err := s.errs[purpose]; err != nil {
		return LLMResponse{}, err
	}
	return LLMResponse{Text: s.answers[purpose], StopReason: "stop"}, nil
}

func (s *stubLLMClient) calls() []LLMRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LLMRequest(nil), s.requests...)
}

func (s *stubLLMClient) callsFor(purpose string) []LLMRequest {
	var out []LLMRequest
	for _, req := range s.calls() {
		if purposeOf(req) == purpose {
			out = append(out, req)
		}
	}
	return out
}

func purposeOf(req LLMRequest) string {
	if len(req.System) == 0 {
		return ""
	}
	switch req.System[0] {
	case scopeHistorySystemPrompt:
		return purposeScopeHistory
	case scopeUtteranceSystemPrompt:
		return purposeScopeUtterance
	case snapshotSystemPrompt:
		return purposeSnapshot
	default:
		return purposeGeneration
	}
}

type stubTurns struct {
	turns []chat.Turn
	err   error
	calls int
}

func (s *stubTurns) ListTurns(ctx context.Context, threadID string) ([]chat.Turn, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]chat.Turn(nil), s.turns...), nil
}

func userTurn(text string) chat.Turn {
	return chat.Turn{Sender: chat.SenderUser, Text: text}
}

func personaTurn(text string) chat.Turn {
	return chat.Turn{Sender: chat.SenderPersona, Text: text}
}

type stubPersonas struct {
	personas map[int64]*persona.Persona
	err      error
}

func (s stubPersonas) Get(ctx context.Context, id int64) (*persona.Persona, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.personas[id]
	if !ok {
		return nil, persona.ErrNotFound
	}
	return p, nil
}

type recordingObserver struct {
	mu         sync.Mutex
	outcomes   []string
	scopes     []string
	quantities []string
	prices     []string
}

func (o *recordingObserver) ObserveOutcome(stage string, _ float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, stage)
}

func (o *recordingObserver) ObserveScopeDecision(strategy string, inScope bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if inScope {
		o.scopes = append(o.scopes, strategy+":in")
	} else {
		o.scopes = append(o.scopes, strategy+":out")
	}
}

func (o *recordingObserver) ObserveQuantityAdjustment(category, direction string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quantities = append(o.quantities, category+":"+direction)
}

func (o *recordingObserver) ObservePriceGuard(category string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices = append(o.prices, category)
}
