package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cwal8202/chill-tuna-web/internal/persona"
	"github.com/cwal8202/chill-tuna-web/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ApologyText is returned when the generation backend fails.
const ApologyText = "잠시 응답이 지연되고 있어요. 제품명과 기간/가격/프로모션 조건을 한 줄로 알려주시면 바로 추정해드릴게요."

// Terminal stages of a turn, reported to the observer.
const (
	StageGreeting   = "greeting"
	StageSelfIntro  = "self_intro"
	StagePreference = "preference"
	StageRefusal    = "refusal"
	StagePriceGuard = "price_guard"
	StageGenerated  = "generated"
	StageApology    = "apology"
	StageFailed     = "failed"
)

var turnTracer = otel.Tracer("chilltuna.internal.conversation.turn")

// PersonaGetter loads a persona; a missing id is reported as persona.ErrNotFound.
type PersonaGetter interface {
	Get(ctx context.Context, id int64) (*persona.Persona, error)
}

// TurnRequest is one user utterance addressed to a persona.
type TurnRequest struct {
	PersonaID int64
	UserText  string
	ThreadID  string
	Model     string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfig overrides timeouts, model and generation settings.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		o.cfg = cfg
	}
}

// WithLogger sets the logger used by every stage.
func WithLogger(logger *logging.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithObserver reports stage outcomes, typically to Prometheus.
func WithObserver(observer TurnObserver) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// Orchestrator runs the turn pipeline: greeting, self intro, scope gate,
// snapshot, price guard, generation and quantity guard. It keeps no per-turn
// state, so one instance serves concurrent threads.
type Orchestrator struct {
	personas  PersonaGetter
	client    LLMClient
	history   *HistoryCurator
	scope     *ScopeDecider
	snapshots *SnapshotExtractor
	cfg       Config
	logger    *logging.Logger
	observer  TurnObserver
}

// NewOrchestrator wires the pipeline. turns may be nil, in which case every
// turn is treated as the start of a thread.
func NewOrchestrator(personas PersonaGetter, turns TurnReader, client LLMClient, opts ...Option) *Orchestrator {
	if personas == nil {
		panic("conversation: persona getter cannot be nil")
	}
	if client == nil {
		panic("conversation: llm client cannot be nil")
	}
	o := &Orchestrator{
		personas: personas,
		client:   client,
		cfg:      DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.cfg = o.cfg.withDefaults()
	if o.logger == nil {
		o.logger = logging.Default()
	}
	if o.observer == nil {
		o.observer = noopObserver{}
	}

	o.history = NewHistoryCurator(turns, o.logger)
	o.scope = NewScopeDecider(client, o.history, o.cfg.ScopeTimeout, o.logger, o.observer)
	o.snapshots = NewSnapshotExtractor(client, o.history, o.cfg.SnapshotTimeout, o.logger)
	return o
}

// ProcessTurn produces the persona's reply to one utterance. The only errors
// are ErrPersonaNotFound, persona lookup failures and ErrGenerationFailure;
// backend trouble in any stage degrades instead of failing.
func (o *Orchestrator) ProcessTurn(ctx context.Context, req TurnRequest) (string, error) {
	ctx, span := turnTracer.Start(ctx, "conversation.turn")
	defer span.End()
	start := time.Now()

	p, err := o.personas.Get(ctx, req.PersonaID)
	if err != nil || p == nil {
		if err == nil || errors.Is(err, persona.ErrNotFound) {
			o.logger.Info("conversation: persona not found", "persona_id", req.PersonaID)
			return "", ErrPersonaNotFound
		}
		span.RecordError(err)
		return "", fmt.Errorf("conversation: load persona %d: %w", req.PersonaID, err)
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = o.cfg.DefaultModel
	}
	utterance := req.UserText

	reply, stage, err := o.run(ctx, p, req.ThreadID, utterance, model)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("chilltuna.turn.stage", stage),
			attribute.Int64("chilltuna.turn.persona_id", req.PersonaID),
			attribute.String("chilltuna.turn.model", model),
		)
	}
	latency := time.Since(start)
	o.observer.ObserveOutcome(stage, latency.Seconds())
	if err != nil {
		span.RecordError(err)
		o.logger.Error("conversation: turn failed",
			"persona_id", req.PersonaID,
			"thread_id", req.ThreadID,
			"model", model,
			"error", err,
		)
		return "", err
	}

	o.logger.Info("conversation: turn finished",
		"persona_id", req.PersonaID,
		"thread_id", req.ThreadID,
		"stage", stage,
		"model", model,
		"latency_ms", latency.Milliseconds(),
	)
	o.logger.Debug("conversation: turn text",
		"utterance", logging.Preview(utterance, 40),
		"reply", logging.Preview(reply, 40),
	)
	return reply, nil
}

func (o *Orchestrator) run(ctx context.Context, p *persona.Persona, threadID, utterance, model string) (string, string, error) {
	if IsGreeting(utterance) {
		return GreetingReply(p), StageGreeting, nil
	}
	if IsSelfIntroRequest(utterance) {
		return SelfIntroReply(p), StageSelfIntro, nil
	}

	if !o.scope.IsInScope(ctx, utterance, threadID, model) {
		if pref := FoodPreferenceReply(p, utterance); pref != "" {
			return pref, StagePreference, nil
		}
		return RefusalText, StageRefusal, nil
	}

	snapshot := o.snapshots.Extract(ctx, threadID, utterance, model)
	if guard := ApplyPriceGuard(snapshot, utterance); guard.Override {
		o.observer.ObservePriceGuard(guard.Category)
		o.logger.Debug("conversation: price guard override", "reason", guard.Reason)
		return guard.Text, StagePriceGuard, nil
	}

	text, err := o.generate(ctx, p, threadID, snapshot, utterance, model)
	if err != nil {
		if IsBackendError(err) || errors.Is(err, context.DeadlineExceeded) {
			return ApologyText, StageApology, nil
		}
		return "", StageFailed, fmt.Errorf("%w: %v", ErrGenerationFailure, err)
	}
	if text == "" {
		o.logger.Warn("conversation: generation returned empty text", "model", model)
		return ApologyText, StageApology, nil
	}

	productHint := snapshot
	if productHint == "" {
		productHint = utterance
	}
	adjusted, adj, changed := AdjustQuantity(productHint, p.Tag(), text)
	if changed {
		o.observer.ObserveQuantityAdjustment(adj.Category, adj.Direction)
		o.logger.Debug("conversation: quantity clamped",
			"category", adj.Category,
			"household", adj.Household,
			"from", adj.From,
			"to", adj.To,
		)
	}
	return adjusted, StageGenerated, nil
}

func (o *Orchestrator) generate(ctx context.Context, p *persona.Persona, threadID, snapshot, utterance, model string) (string, error) {
	system := []string{BuildSystemPrompt(p)}
	if snapshot != "" {
		system = append(system, "[컨텍스트 스냅샷]\n"+snapshot)
	}

	messages := o.history.Messages(ctx, threadID, o.cfg.HistoryLimit)
	// Callers may persist the user turn before generating; do not send it twice.
	if n := len(messages); n == 0 || messages[n-1].Role != ChatRoleUser || messages[n-1].Content != utterance {
		messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: utterance})
	}

	resp, err := instrumentedCall(ctx, o.client, o.logger, purposeGeneration, o.cfg.GenerationTimeout, LLMRequest{
		Model:       model,
		System:      system,
		Messages:    messages,
		MaxTokens:   o.cfg.GenerationMaxTokens,
		Temperature: o.cfg.GenerationTemperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}
