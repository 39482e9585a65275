package conversation

import (
	"context"
	"strings"

	"github.com/cwal8202/chill-tuna-web/internal/chat"
	"github.com/cwal8202/chill-tuna-web/pkg/logging"
)

// TurnReader lists a thread's stored turns in creation order.
type TurnReader interface {
	ListTurns(ctx context.Context, threadID string) ([]chat.Turn, error)
}

const (
	digestLabelPersona = "페르소나"
	digestLabelUser    = "사용자"
)

// HistoryCurator turns stored thread turns into model context, dropping
// refusals and user chatter that would pull the model off topic.
type HistoryCurator struct {
	turns  TurnReader
	logger *logging.Logger
}

func NewHistoryCurator(turns TurnReader, logger *logging.Logger) *HistoryCurator {
	if logger == nil {
		logger = logging.Default()
	}
	return &HistoryCurator{turns: turns, logger: logger}
}

// Digest renders the last limit turns as "label: text" lines and keeps only
// the final charLimit runes.
func (h *HistoryCurator) Digest(ctx context.Context, threadID string, limit, charLimit int) string {
	turns := h.curated(ctx, threadID, limit)
	if len(turns) == 0 {
		return ""
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		label := digestLabelUser
		if t.Sender == chat.SenderPersona {
			label = digestLabelPersona
		}
		lines = append(lines, label+": "+t.Text)
	}
	return tailRunes(strings.Join(lines, "\n"), charLimit)
}

// Messages returns the last limit turns as role-tagged chat messages.
func (h *HistoryCurator) Messages(ctx context.Context, threadID string, limit int) []ChatMessage {
	turns := h.curated(ctx, threadID, limit)
	out := make([]ChatMessage, 0, len(turns))
	for _, t := range turns {
		role := ChatRoleUser
		if t.Sender == chat.SenderPersona {
			role = ChatRoleAssistant
		}
		out = append(out, ChatMessage{Role: role, Content: t.Text})
	}
	return out
}

// curated windows first and filters second, so a thread full of refusals
// yields a short history rather than reaching further back.
func (h *HistoryCurator) curated(ctx context.Context, threadID string, limit int) []chat.Turn {
	if h == nil || h.turns == nil || strings.TrimSpace(threadID) == "" || limit <= 0 {
		return nil
	}
	all, err := h.turns.ListTurns(ctx, threadID)
	if err != nil {
		h.logger.Warn("conversation: history unavailable, continuing without it",
			"thread_id", threadID,
			"error", err,
		)
		return nil
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}

	kept := make([]chat.Turn, 0, len(all))
	for _, t := range all {
		if t.Sender == chat.SenderPersona {
			if IsRefusal(t.Text) {
				continue
			}
		} else if !ShouldIncludeUserTurn(t.Text) {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

func tailRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[len(runes)-limit:])
}
