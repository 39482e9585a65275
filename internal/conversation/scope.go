package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cwal8202/chill-tuna-web/pkg/logging"
)

const scopeHistorySystemPrompt = `너는 '도메인/후속 판별기'다. 다음 대화의 최근 흐름과 새 발화를 보고, 주제가 '식품/가공식품/음료' 제품과 관련된
구매·수요·가격·프로모션·계절성·채널·번들·구독·재구매·월별 패턴 또는 **제품 간 비교/선호/추천** 의사결정인지 판정하라.
후속 축약형(예: '그럼 초코가 낫지?', '어때?', 'vs?')도 IN이다.
OUT은 비식품 주제/일상대화/정치/날씨/맞춤법·번역·글쓰기·코딩 같은 일반 작업이다.
반드시 한 단어로만 출력: 예 또는 아니오.`

const scopeHistoryExamples = `[예시]
문장: 민트커피 vs 초코커피 뭐가 더 잘 팔릴까? → 예
문장: 가격 2천원이면 몇 개 사게 될까? → 예
문장: 다음주 장마면 판매가 늘까? → 예
문장: 맞춤법 맞춰줘. → 아니오
문장: 오늘 날씨 어때? → 아니오
문장: 전자레인지 고장났어. → 아니오
`

const scopeUtteranceSystemPrompt = `다음 문장이 '식품/가공식품/음료' 제품의 판매량·수요예측 또는 그것을 늘리는 전략과 직접적으로 관련이 있는지 판정하라.
- IN-SCOPE: 식품류 전반에 관한 질문으로서, 구매 개수/월별 패턴/가격·프로모션/계절성/채널/번들/구독/재구매 전략, 또는 **제품 간 비교·선호·추천**.
- OUT-OF-SCOPE: 비식품, 일상대화, 맞춤법/번역/일반 글쓰기 등.
반드시 한 단어로만 출력: 예 또는 아니오.`

const (
	scopeDigestTurns = 12
	scopeDigestRunes = 1600
	scopeMaxTokens   = 2
)

// Scope strategy names, reported to the observer.
const (
	ScopeStrategyModelHistory   = "model_history"
	ScopeStrategyHeuristic      = "heuristic"
	ScopeStrategyModelUtterance = "model_utterance"
	ScopeStrategyDefault        = "default"
)

type scopeDecision int

const (
	scopeUndecided scopeDecision = iota
	scopeIn
	scopeOut
)

type scopeQuery struct {
	utterance string
	threadID  string
	model     string
}

type scopeStrategy struct {
	name   string
	decide func(ctx context.Context, q scopeQuery) scopeDecision
}

// ScopeDecider runs the scope strategies in order; the first decisive one wins.
type ScopeDecider struct {
	client     LLMClient
	history    *HistoryCurator
	timeout    time.Duration
	logger     *logging.Logger
	observer   TurnObserver
	strategies []scopeStrategy
}

func NewScopeDecider(client LLMClient, history *HistoryCurator, timeout time.Duration, logger *logging.Logger, observer TurnObserver) *ScopeDecider {
	if logger == nil {
		logger = logging.Default()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	d := &ScopeDecider{
		client:   client,
		history:  history,
		timeout:  timeout,
		logger:   logger,
		observer: observer,
	}
	d.strategies = []scopeStrategy{
		{name: ScopeStrategyModelHistory, decide: d.decideWithHistory},
		{name: ScopeStrategyHeuristic, decide: decideHeuristic},
		{name: ScopeStrategyModelUtterance, decide: d.decideUtteranceOnly},
	}
	return d
}

// IsInScope reports whether the utterance is about food demand. Backend
// failures only make a strategy undecided; this never fails.
func (d *ScopeDecider) IsInScope(ctx context.Context, utterance, threadID, model string) bool {
	q := scopeQuery{utterance: strings.TrimSpace(utterance), threadID: threadID, model: model}
	for _, s := range d.strategies {
		switch s.decide(ctx, q) {
		case scopeIn:
			d.record(s.name, true)
			return true
		case scopeOut:
			d.record(s.name, false)
			return false
		}
	}
	d.record(ScopeStrategyDefault, false)
	return false
}

func (d *ScopeDecider) record(strategy string, inScope bool) {
	d.observer.ObserveScopeDecision(strategy, inScope)
	d.logger.Debug("conversation: scope decided", "strategy", strategy, "in_scope", inScope)
}

func (d *ScopeDecider) decideWithHistory(ctx context.Context, q scopeQuery) scopeDecision {
	digest := d.history.Digest(ctx, q.threadID, scopeDigestTurns, scopeDigestRunes)
	user := fmt.Sprintf("[히스토리]\n%s\n\n%s[새 발화]\n%s\n답:", digest, scopeHistoryExamples, q.utterance)
	switch d.ask(ctx, purposeScopeHistory, q.model, scopeHistorySystemPrompt, user) {
	case VerdictYes:
		return scopeIn
	case VerdictNo:
		return scopeOut
	default:
		return scopeUndecided
	}
}

func decideHeuristic(_ context.Context, q scopeQuery) scopeDecision {
	if IsFoodInScopeHeuristic(q.utterance) {
		return scopeIn
	}
	return scopeUndecided
}

// decideUtteranceOnly is the last resort: only a model "yes" admits the
// utterance, anything else leaves it undecided and therefore out.
func (d *ScopeDecider) decideUtteranceOnly(ctx context.Context, q scopeQuery) scopeDecision {
	if d.ask(ctx, purposeScopeUtterance, q.model, scopeUtteranceSystemPrompt, "문장: "+q.utterance) == VerdictYes {
		return scopeIn
	}
	return scopeUndecided
}

func (d *ScopeDecider) ask(ctx context.Context, purpose, model, system, user string) Verdict {
	if d.client == nil {
		return VerdictUnknown
	}
	resp, err := instrumentedCall(ctx, d.client, d.logger, purpose, d.timeout, LLMRequest{
		Model:       model,
		System:      []string{system},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: user}},
		MaxTokens:   scopeMaxTokens,
		Temperature: 0,
	})
	if err != nil {
		return VerdictUnknown
	}
	return ParseYesNo(resp.Text)
}
