package conversation

// TurnObserver receives pipeline events for metrics. Implementations must be
// safe for concurrent use.
type TurnObserver interface {
	ObserveOutcome(stage string, seconds float64)
	ObserveScopeDecision(strategy string, inScope bool)
	ObserveQuantityAdjustment(category, direction string)
	ObservePriceGuard(category string)
}

type noopObserver struct{}

func (noopObserver) ObserveOutcome(string, float64) {}
func (noopObserver) ObserveScopeDecision(string, bool) {}
func (noopObserver) ObserveQuantityAdjustment(string, string) {}
func (noopObserver) ObservePriceGuard(string) {}
