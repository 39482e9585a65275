package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	appconfig "github.com/cwal8202/chill-tuna-web/internal/config"
	"github.com/cwal8202/chill-tuna-web/internal/conversation"
	"github.com/cwal8202/chill-tuna-web/pkg/logging"
)

func TestBuildLLMClientRequiresConfig(t *testing.T) {
	if _, _, err := BuildLLMClient(context.Background(), nil, aws.Config{}, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildLLMClientOpenAI(t *testing.T) {
	cfg := &appconfig.Config{
		LLMProvider:  appconfig.ProviderOpenAI,
		OpenAIAPIKey: "sk-test",
		DefaultModel: "gpt-5-mini",
	}

	client, cleanup, err := BuildLLMClient(context.Background(), cfg, aws.Config{}, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()
	if _, ok := client.(*conversation.OpenAILLMClient); !ok {
		t.Fatalf("expected OpenAILLMClient, got %T", client)
	}
}

func TestBuildLLMClientWrapsFallback(t *testing.T) {
	cfg := &appconfig.Config{
		LLMProvider:         appconfig.ProviderOpenAI,
		LLMFallbackProvider: appconfig.ProviderBedrock,
		OpenAIAPIKey:        "sk-test",
		DefaultModel:        "gpt-5-mini",
		FallbackModel:       "anthropic.claude-3-haiku-20240307-v1:0",
	}

	client, cleanup, err := BuildLLMClient(context.Background(), cfg, aws.Config{Region: "us-east-1"}, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()
	if _, ok := client.(*conversation.FallbackLLMClient); !ok {
		t.Fatalf("expected FallbackLLMClient, got %T", client)
	}
}

func TestBuildLLMClientErrors(t *testing.T) {
	cases := []struct {
		name string
		cfg  appconfig.Config
	}{
		{"unknown provider", appconfig.Config{LLMProvider: "llama"}},
		{"openai without key", appconfig.Config{LLMProvider: appconfig.ProviderOpenAI}},
		{"bad fallback", appconfig.Config{LLMProvider: appconfig.ProviderOpenAI, OpenAIAPIKey: "sk", LLMFallbackProvider: "llama"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			if _, _, err := BuildLLMClient(context.Background(), &cfg, aws.Config{}, logging.Discard()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestConversationConfig(t *testing.T) {
	def := conversation.DefaultConfig()
	if got := ConversationConfig(nil); got != def {
		t.Fatalf("expected defaults for nil config, got %+v", got)
	}

	got := ConversationConfig(&appconfig.Config{
		DefaultModel:      "gpt-4o-mini",
		ScopeTimeout:      3 * time.Second,
		GenerationTimeout: 20 * time.Second,
	})
	if got.DefaultModel != "gpt-4o-mini" {
		t.Fatalf("expected model override, got %s", got.DefaultModel)
	}
	if got.ScopeTimeout != 3*time.Second || got.GenerationTimeout != 20*time.Second {
		t.Fatalf("expected timeout overrides, got %+v", got)
	}
	if got.SnapshotTimeout != def.SnapshotTimeout || got.HistoryLimit != def.HistoryLimit {
		t.Fatalf("unset fields should keep defaults, got %+v", got)
	}
}
