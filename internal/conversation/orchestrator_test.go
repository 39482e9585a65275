package conversation

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/cwal8202/chill-tuna-web/internal/chat"
	"github.com/cwal8202/chill-tuna-web/internal/persona"
	"github.com/cwal8202/chill-tuna-web/pkg/logging"
)

func testPersonas() stubPersonas {
	return stubPersonas{personas: map[int64]*persona.Persona{
		1: {ID: 1, Name: "지수", SummaryTag: "30대 여자 1인 가구 직장인, health_orientation: 0.3"},
	}}
}

func newTestOrchestrator(client LLMClient, turns TurnReader, obs TurnObserver) *Orchestrator {
	return NewOrchestrator(testPersonas(), turns, client,
		WithLogger(logging.Discard()),
		WithObserver(obs),
	)
}

func TestOrchestrator_GreetingSkipsBackend(t *testing.T) {
	client := newStubLLMClient(nil)
	obs := &recordingObserver{}
	o := newTestOrchestrator(client, &stubTurns{}, obs)

	got, err := o.ProcessTurn(context.Background(), TurnRequest{PersonaID: 1, UserText: "안녕하세요!"})
	if err != nil {
		t.Fatalf("ProcessTurn returned error: %v", err)
	}
	if got != "안녕하세요! 저는 지수이에요! 식품 판매에 대한 질문을 해주실래요?" {
		t.Fatalf("unexpected greeting %q", got)
	}
	if len(client.calls()) != 0 {
		t.Fatalf("greeting should not call the backend, got %d calls", len(client.calls()))
	}
	if !reflect.DeepEqual(obs.outcomes, []string{StageGreeting}) {
		t.Fatalf("unexpected outcomes %v", obs.outcomes)
	}
}

func TestOrchestrator_SelfIntroSkipsBackend(t *testing.T) {
	client := newStubLLMClient(nil)
	o := newTestOrchestrator(client, nil, nil)

	got, err := o.ProcessTurn(context.Background(), TurnRequest{PersonaID: 1, UserText: "너는 누구야?"})
	if err != nil {
		t.Fatalf("ProcessTurn returned error: %v", err)
	}
	if !strings.HasPrefix(got, "저는 30대 여자 1인 가구의 지수이고") {
		t.Fatalf("unexpected self intro %q", got)
	}
	if len(client.calls()) != 0 {
		t.Fatalf("self intro should not call the backend")
	}
}

func TestOrchestrator_OutOfScopeRefuses(t *testing.T) {
	client := newStubLLMClient(map[string]string{purposeScopeHistory: "아니오"})
	obs := &recordingObserver{}
	o := newTestOrchestrator(client, &stubTurns{}, obs)

	got, err := o.ProcessTurn(context.Background(), TurnRequest{PersonaID: 1, UserText: "오늘 날씨 어때?", ThreadID: "thread-1"})
	if err != nil {
		t.Fatalf("ProcessTurn returned error: %v", err)
	}
	if got != RefusalText {
		t.Fatalf("expected refusal, got %q", got)
	}
	if len(client.callsFor(purposeGeneration)) != 0 || len(client.callsFor(purposeSnapshot)) != 0 {
		t.Fatalf("refused turn should stop before snapshot and generation")
	}
	if !reflect.DeepEqual(obs.outcomes, []string{StageRefusal}) {
		t.Fatalf("unexpected outcomes %v", obs.outcomes)
	}
}

func TestOrchestrator_OutOfScopePreferenceReply(t *testing.T) {
	client := newStubLLMClient(map[string]string{purposeScopeHistory: "아니오"})
	o := newTestOrchestrator(client, &stubTurns{}, nil)

	got, err := o.ProcessTurn(context.Background(), TurnRequest{PersonaID: 1, UserText: "참치 좋아해?", ThreadID: "thread-1"})
	if err != nil {
		t.Fatalf("ProcessTurn returned error: %v", err)
	}
	if got != "저는 캔 참치 가끔 먹어요. 가성비 좋은 제품이면 괜찮아요." {
		t.Fatalf("unexpected preference reply %q", got)
	}
}

func TestOrchestrator_PriceGuardSkipsGeneration(t *testing.T) {
	client := newStubLLMClient(map[string]string{purposeScopeHistory: "예"})
	obs := &recordingObserver{}
	o := newTestOrchestrator(client, &stubTurns{}, obs)

	got, err := o.ProcessTurn(context.Background(), TurnRequest{PersonaID: 1, UserText: "초코우유 15,000원이면 몇 개 살래?", ThreadID: "thread-1"})
	if err != nil {
		t.Fatalf("ProcessTurn returned error: %v", err)
	}
	if !strings.HasPrefix(got, "예상 구매수량은 0개, 기간은 1개월입니다.") {
		t.Fatalf("expected price override, got %q", got)
	}
	if len(client.callsFor(purposeGeneration)) != 0 {
		t.Fatalf("price override should skip generation")
	}
	if !reflect.DeepEqual(obs.prices, []string{PriceCategoryDairyBeverage}) {
		t.Fatalf("unexpected price observations %v", obs.prices)
	}
	if !reflect.DeepEqual(obs.outcomes, []string{StagePriceGuard}) {
		t.Fatalf("unexpected outcomes %v", obs.outcomes)
	}
}

func TestOrchestrator_PriceGuardFullReply(t *testing.T) {
	client := newStubLLMClient(map[string]string{purposeScopeHistory: "예"})
	o := newTestOrchestrator(client, &stubTurns{}, &recordingObserver{})

	got, err := o.ProcessTurn(context.Background(), TurnRequest{PersonaID: 1, UserText: "우유 200000원짜리 사고 싶어", ThreadID: "thread-1"})
	if err != nil {
		t.Fatalf("ProcessTurn returned error: %v", err)
	}
	for _, want := range []string{
		"예상 구매수량은 0개, 기간은 1개월입니다.",
		"1) 가격(200,000원)이 B2C 소매 단품 기준으로 비현실적으로 높아 수요가 거의 발생하지 않습니다.",
		"2) 대체재 대비 지불의사(WTP)를 크게 초과합니다.",
		"3) 프로모션으로도 가격 장벽 해소가 어려워 재구매 가능성이 낮습니다.",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("reply missing %q:\n%s", want, got)
		}
	}
	if len(client.callsFor(purposeGeneration)) != 0 {
		t.Fatalf("price override should skip generation")
	}
}

func TestOrchestrator_GeneratesAndClampsQuantity(t *testing.T) {
	client := newStubLLMClient(map[string]string{
		purposeScopeHistory: "예",
		purposeSnapshot:     "현재 대상: 참치캔 150g, 기간 1개월.",
		purposeGeneration:   "한 달에 20개 정도 살 것 같아요.\n이유: 자주 먹어요.",
	})
	obs := &recordingObserver{}
	o := newTestOrchestrator(client, &stubTurns{}, obs)

	got, err := o.ProcessTurn(context.Background(), TurnRequest{PersonaID: 1, UserText: "참치캔 몇 개 살래?", ThreadID: "thread-1"})
	if err != nil {
		t.Fatalf("ProcessTurn returned error: %v", err)
	}
	want := "한 달에 8개 정도 살 것 같아요. (일반 가정 기준, 8개로 잡아 설명 드렸어요)\n이유: 자주 먹어요."
	if got != want {
		t.Fatalf("ProcessTurn = %q, want %q", got, want)
	}

	gens := client.callsFor(purposeGeneration)
	if len(gens) != 1 {
		t.Fatalf("expected one generation call, got %d", len(gens))
	}
	req := gens[0]
	if len(req.System) != 2 || req.System[1] != "[컨텍스트 스냅샷]\n현재 대상: 참치캔 150g, 기간 1개월." {
		t.Fatalf("unexpected system blocks %#v", req.System)
	}
	if req.Temperature != 0.25 || req.MaxTokens != 900 || req.Model != defaultOpenAIModel {
		t.Fatalf("unexpected generation settings %#v", req)
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != ChatRoleUser || last.Content != "참치캔 몇 개 살래?" {
		t.Fatalf("utterance should close the message list, got %#v", last)
	}
	if !reflect.DeepEqual(obs.quantities, []string{CategoryCannedTuna + ":" + QuantityCapped}) {
		t.Fatalf("unexpected quantity observations %v", obs.quantities)
	}
	if !reflect.DeepEqual(obs.outcomes, []string{StageGenerated}) {
		t.Fatalf("unexpected outcomes %v", obs.outcomes)
	}
}

func TestOrchestrator_DoesNotRepeatPersistedUtterance(t *testing.T) {
	client := newStubLLMClient(map[string]string{
		purposeScopeHistory: "예",
		purposeGeneration:   "한 달에 4개 정도요.",
	})
	turns := &stubTurns{turns: []chat.Turn{userTurn("참치캔 몇 개 살래?")}}
	o := newTestOrchestrator(client, turns, nil)

	if _, err := o.ProcessTurn(context.Background(), TurnRequest{PersonaID: 1, UserText: "참치캔 몇 개 살래?", ThreadID: "thread-1", Model: "gpt-4o-mini"}); err != nil {
		t.Fatalf("ProcessTurn returned error: %v", err)
	}
	gen := client.callsFor(purposeGeneration)[0]
	if len(gen.Messages) != 1 {
		t.Fatalf("expected the stored utterance once, got %#v", gen.Messages)
	}
	if len(gen.System) != 1 {
		t.Fatalf("empty snapshot should not add a system block, got %#v", gen.System)
	}
	if gen.Model != "gpt-4o-mini" {
		t.Fatalf("request model should win, got %s", gen.Model)
	}
}

func TestOrchestrator_BackendFailureApologises(t *testing.T) {
	client := newStubLLMClient(map[string]string{purposeScopeHistory: "예"}).
		failing(purposeGeneration, &BackendError{Provider: "openai", Err: errors.New("503")})
	obs := &recordingObserver{}
	o := newTestOrchestrator(client, &stubTurns{}, obs)

	got, err := o.ProcessTurn(context.Background(), TurnRequest{PersonaID: 1, UserText: "참치캔 몇 개 살래?"})
	if err != nil {
		t.Fatalf("backend failures should not surface, got %v", err)
	}
	if got != ApologyText {
		t.Fatalf("expected apology, got %q", got)
	}
	if !reflect.DeepEqual(obs.outcomes, []string{StageApology}) {
		t.Fatalf("unexpected outcomes %v", obs.outcomes)
	}
}

func TestOrchestrator_EmptyGenerationApologises(t *testing.T) {
	client := newStubLLMClient(map[string]string{purposeScopeHistory: "예", purposeGeneration: "   "})
	o := newTestOrchestrator(client, &stubTurns{}, nil)

	got, err := o.ProcessTurn(context.Background(), TurnRequest{PersonaID: 1, UserText: "참치캔 몇 개 살래?"})
	if err != nil || got != ApologyText {
		t.Fatalf("expected apology, got %q, %v", got, err)
	}
}

func TestOrchestrator_UnexpectedGenerationError(t *testing.T) {
	client := newStubLLMClient(map[string]string{purposeScopeHistory: "예"}).
		failing(purposeGeneration, errors.New("unsupported role"))
	obs := &recordingObserver{}
	o := newTestOrchestrator(client, &stubTurns{}, obs)

	_, err := o.ProcessTurn(context.Background(), TurnRequest{PersonaID: 1, UserText: "참치캔 몇 개 살래?"})
	if !errors.Is(err, ErrGenerationFailure) {
		t.Fatalf("expected ErrGenerationFailure, got %v", err)
	}
	if !reflect.DeepEqual(obs.outcomes, []string{StageFailed}) {
		t.Fatalf("unexpected outcomes %v", obs.outcomes)
	}
}

func TestOrchestrator_PersonaErrors(t *testing.T) {
	client := newStubLLMClient(nil)

	o := newTestOrchestrator(client, nil, nil)
	if _, err := o.ProcessTurn(context.Background(), TurnRequest{PersonaID: 99, UserText: "안녕"}); !errors.Is(err, ErrPersonaNotFound) {
		t.Fatalf("expected ErrPersonaNotFound, got %v", err)
	}

	storeErr := errors.New("connection refused")
	broken := NewOrchestrator(stubPersonas{err: storeErr}, nil, client, WithLogger(logging.Discard()))
	_, err := broken.ProcessTurn(context.Background(), TurnRequest{PersonaID: 1, UserText: "안녕"})
	if !errors.Is(err, storeErr) || errors.Is(err, ErrPersonaNotFound) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if len(client.calls()) != 0 {
		t.Fatalf("persona failures should not reach the backend")
	}
}

func TestNewOrchestrator_PanicsOnNilDependencies(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for nil client")
		}
	}()
	NewOrchestrator(testPersonas(), nil, nil)
}
