package conversation

import (
	"context"
	"time"

	"github.com/cwal8202/chill-tuna-web/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var llmTracer = otel.Tracer("chilltuna.internal.conversation.llm")

var llmLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "chilltuna",
		Subsystem: "conversation",
		Name:      "llm_latency_seconds",
		Help:      "Latency of LLM completions",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10, 15, 30, 60},
	},
	[]string{"model", "purpose", "status"},
)

var llmTokensTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "chilltuna",
		Subsystem: "conversation",
		Name:      "llm_tokens_total",
		Help:      "Tokens used by the LLM",
	},
	[]string{"model", "purpose", "type"}, // type: input, output, total
)

func init() {
	prometheus.MustRegister(llmLatency)
	prometheus.MustRegister(llmTokensTotal)
}

// RegisterMetrics registers conversation metrics with a custom registry.
// Use this when exposing a non-default registry.
func RegisterMetrics(reg prometheus.Registerer) {
	if reg == nil || reg == prometheus.DefaultRegisterer {
		return
	}
	reg.MustRegister(llmLatency, llmTokensTotal)
}

// Call purposes, used as metric and span labels.
const (
	purposeScopeHistory   = "scope_history"
	purposeScopeUtterance = "scope_utterance"
	purposeSnapshot       = "snapshot"
	purposeGeneration     = "generation"
)

// instrumentedCall runs one completion under its own timeout and records
// latency, tokens and a span.
func instrumentedCall(ctx context.Context, client LLMClient, logger *logging.Logger, purpose string, timeout time.Duration, req LLMRequest) (LLMResponse, error) {
	ctx, span := llmTracer.Start(ctx, "conversation.llm."+purpose)
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := client.Complete(callCtx, req)
	latency := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	llmLatency.WithLabelValues(req.Model, purpose, status).Observe(latency.Seconds())
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("chilltuna.llm.purpose", purpose),
			attribute.String("chilltuna.llm.model", req.Model),
			attribute.Float64("chilltuna.llm.latency_ms", float64(latency.Milliseconds())),
			attribute.Int("chilltuna.llm.input_tokens", int(resp.Usage.InputTokens)),
			attribute.Int("chilltuna.llm.output_tokens", int(resp.Usage.OutputTokens)),
			attribute.String("chilltuna.llm.stop_reason", resp.StopReason),
		)
	}
	if err != nil {
		span.RecordError(err)
		logger.Warn("llm completion failed",
			"purpose", purpose,
			"model", req.Model,
			"latency_ms", latency.Milliseconds(),
			"error", err,
		)
		return LLMResponse{}, err
	}

	if resp.Usage.InputTokens > 0 {
		llmTokensTotal.WithLabelValues(req.Model, purpose, "input").Add(float64(resp.Usage.InputTokens))
	}
	if resp.Usage.OutputTokens > 0 {
		llmTokensTotal.WithLabelValues(req.Model, purpose, "output").Add(float64(resp.Usage.OutputTokens))
	}
	if resp.Usage.TotalTokens > 0 {
		llmTokensTotal.WithLabelValues(req.Model, purpose, "total").Add(float64(resp.Usage.TotalTokens))
	}
	logger.Debug("llm completion finished",
		"purpose", purpose,
		"model", req.Model,
		"latency_ms", latency.Milliseconds(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"stop_reason", resp.StopReason,
	)
	return resp, nil
}
