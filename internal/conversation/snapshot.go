package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cwal8202/chill-tuna-web/pkg/logging"
)

const snapshotSystemPrompt = "다음 대화 히스토리와 최신 발화를 보고, 현재 논의 중인 식품 제품의 " +
	"'상품명/규격', '가격(있으면 숫자)', '기간(예: 1개월)', '특성(예: 락토프리, 친환경 포장)'을 " +
	"한두 문장으로 요약하라. 모르면 추정하지 말고 생략하라. " +
	"예: '현재 대상: 초코우유 250ml 락토프리, 기간 1개월, 가격 1,500원 가정, 친환경 포장 언급됨.'"

const (
	snapshotDigestTurns = 12
	snapshotDigestRunes = 1800
	snapshotMaxTokens   = 120
)

// SnapshotExtractor summarizes the product currently under discussion.
type SnapshotExtractor struct {
	client  LLMClient
	history *HistoryCurator
	timeout time.Duration
	logger  *logging.Logger
}

func NewSnapshotExtractor(client LLMClient, history *HistoryCurator, timeout time.Duration, logger *logging.Logger) *SnapshotExtractor {
	if logger == nil {
		logger = logging.Default()
	}
	return &SnapshotExtractor{client: client, history: history, timeout: timeout, logger: logger}
}

// Extract returns a one or two sentence product summary, or "" when the
// backend fails. The result is never persisted.
func (e *SnapshotExtractor) Extract(ctx context.Context, threadID, utterance, model string) string {
	if e.client == nil {
		return ""
	}
	digest := e.history.Digest(ctx, threadID, snapshotDigestTurns, snapshotDigestRunes)
	resp, err := instrumentedCall(ctx, e.client, e.logger, purposeSnapshot, e.timeout, LLMRequest{
		Model:  model,
		System: []string{snapshotSystemPrompt},
		Messages: []ChatMessage{{
			Role:    ChatRoleUser,
			Content: fmt.Sprintf("[히스토리]\n%s\n\n[최신]\n%s", digest, utterance),
		}},
		MaxTokens:   snapshotMaxTokens,
		Temperature: 0,
	})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(resp.Text)
}
