package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	appconfig "github.com/cwal8202/chill-tuna-web/internal/config"
	"github.com/cwal8202/chill-tuna-web/internal/conversation"
	"github.com/cwal8202/chill-tuna-web/pkg/logging"
)

// BuildLLMClient wires the configured provider, wrapped in a FallbackLLMClient
// when LLM_FALLBACK_PROVIDER is set. The returned cleanup releases provider
// connections and is never nil.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (conversation.LLMClient, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	primary, closePrimary, err := buildProvider(ctx, cfg.LLMProvider, cfg.DefaultModel, cfg, awsCfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.LLMFallbackProvider == "" {
		logger.Info("using LLM provider", "provider", cfg.LLMProvider, "model", cfg.DefaultModel)
		return primary, closePrimary, nil
	}

	fallback, closeFallback, err := buildProvider(ctx, cfg.LLMFallbackProvider, cfg.FallbackModel, cfg, awsCfg)
	if err != nil {
		closePrimary()
		return nil, nil, err
	}
	logger.Info("using LLM provider with fallback",
		"provider", cfg.LLMProvider,
		"model", cfg.DefaultModel,
		"fallback_provider", cfg.LLMFallbackProvider,
		"fallback_model", cfg.FallbackModel,
	)
	client := conversation.NewFallbackLLMClient(primary, fallback, logger).WithFallbackModel(cfg.FallbackModel)
	return client, func() {
		closePrimary()
		closeFallback()
	}, nil
}

func buildProvider(ctx context.Context, provider, model string, cfg *appconfig.Config, awsCfg aws.Config) (conversation.LLMClient, func(), error) {
	noop := func() {}
	switch provider {
	case appconfig.ProviderOpenAI:
		client, err := conversation.NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: openai client: %w", err)
		}
		return client, noop, nil
	case appconfig.ProviderBedrock:
		return conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg), model), noop, nil
	case appconfig.ProviderGemini:
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, model)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		return client, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unsupported llm provider %q", provider)
	}
}

// ConversationConfig maps application settings onto the turn pipeline.
func ConversationConfig(cfg *appconfig.Config) conversation.Config {
	out := conversation.DefaultConfig()
	if cfg == nil {
		return out
	}
	if cfg.DefaultModel != "" {
		out.DefaultModel = cfg.DefaultModel
	}
	if cfg.ScopeTimeout > 0 {
		out.ScopeTimeout = cfg.ScopeTimeout
	}
	if cfg.SnapshotTimeout > 0 {
		out.SnapshotTimeout = cfg.SnapshotTimeout
	}
	if cfg.GenerationTimeout > 0 {
		out.GenerationTimeout = cfg.GenerationTimeout
	}
	return out
}

// BuildOrchestrator assembles the turn pipeline over the given stores.
func BuildOrchestrator(cfg *appconfig.Config, stores *Stores, client conversation.LLMClient, observer conversation.TurnObserver, logger *logging.Logger) *conversation.Orchestrator {
	opts := []conversation.Option{
		conversation.WithConfig(ConversationConfig(cfg)),
		conversation.WithLogger(logger),
	}
	if observer != nil {
		opts = append(opts, conversation.WithObserver(observer))
	}
	return conversation.NewOrchestrator(stores.Personas, stores.Chat, client, opts...)
}
