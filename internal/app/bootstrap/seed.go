package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/cwal8202/chill-tuna-web/internal/persona"
	"github.com/cwal8202/chill-tuna-web/pkg/logging"
)

// SeedPersonasIfEmpty imports source into repo unless it already holds
// personas. It returns the number imported.
func SeedPersonasIfEmpty(ctx context.Context, repo persona.Repository, loader *persona.SeedLoader, source string, logger *logging.Logger) (int, error) {
	source = strings.TrimSpace(source)
	if source == "" || repo == nil || loader == nil {
		return 0, nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	existing, err := repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("bootstrap: list personas: %w", err)
	}
	if len(existing) > 0 {
		logger.Debug("persona store already seeded", "count", len(existing))
		return 0, nil
	}

	n, err := persona.Import(ctx, loader, repo, source)
	if err != nil {
		return 0, fmt.Errorf("bootstrap: seed personas: %w", err)
	}
	logger.Info("personas seeded", "source", source, "count", n)
	return n, nil
}
