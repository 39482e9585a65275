package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cwal8202/chill-tuna-web/cmd/mainconfig"
	"github.com/cwal8202/chill-tuna-web/internal/app/bootstrap"
	"github.com/cwal8202/chill-tuna-web/internal/chat"
	appconfig "github.com/cwal8202/chill-tuna-web/internal/config"
	"github.com/cwal8202/chill-tuna-web/internal/conversation"
	"github.com/cwal8202/chill-tuna-web/internal/persona"
	"github.com/cwal8202/chill-tuna-web/pkg/logging"
)

// smokePersona is used when the persona store is empty.
var smokePersona = persona.Persona{
	ID:              1,
	Name:            "민지",
	AgeGroup:        "30대",
	Gender:          "여자",
	FamilyStructure: "1인 가구",
	PurchasePattern: persona.StringList{"주 1회 온라인 장보기", "할인 행사 때 묶음 구매"},
	SummaryTag:      "가격민감도 0.8, 건강지향 0.6, 서울 거주 알뜰 소비자",
}

var defaultUtterances = []string{
	"안녕하세요",
	"너는 누구야?",
	"오늘 날씨 어때?",
	"서울우유 1L 2,900원이면 한 달에 몇 개 살래?",
	"그럼 1+1 행사하면 몇 개 살래?",
}

// runSmoke plays utterances through one thread and prints each reply.
func runSmoke(ctx context.Context, orch *conversation.Orchestrator, store chat.Store, personaID int64, utterances []string) error {
	thread, err := store.CreateThread(ctx, personaID, "llmtest")
	if err != nil {
		return err
	}
	for i, text := range utterances {
		start := time.Now()
		reply, err := orch.ProcessTurn(ctx, conversation.TurnRequest{
			PersonaID: personaID,
			UserText:  text,
			ThreadID:  thread.ID,
		})
		if err != nil {
			return fmt.Errorf("turn %d: %w", i+1, err)
		}
		fmt.Printf("\n[%d] 사용자: %s\n    페르소나 (%v): %s\n", i+1, text, time.Since(start).Round(time.Millisecond), reply)
		if err := store.AppendExchange(ctx, thread.ID, text, reply); err != nil {
			return fmt.Errorf("turn %d: save: %w", i+1, err)
		}
	}
	return nil
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load aws config: %v\n", err)
		os.Exit(1)
	}
	client, closeLLM, err := bootstrap.BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build llm client: %v\n", err)
		os.Exit(1)
	}
	defer closeLLM()

	stores := &bootstrap.Stores{
		Personas: persona.NewInMemoryRepository(smokePersona),
		Chat:     chat.NewMemoryStore(),
	}
	orch := bootstrap.BuildOrchestrator(cfg, stores, client, nil, logger)

	utterances := defaultUtterances
	if len(os.Args) > 1 {
		utterances = os.Args[1:]
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Persona chat smoke test (provider=%s model=%s)\n", cfg.LLMProvider, cfg.DefaultModel)
	fmt.Println(strings.Repeat("=", 60))

	if err := runSmoke(ctx, orch, stores.Chat, smokePersona.ID, utterances); err != nil {
		fmt.Fprintf(os.Stderr, "\nsmoke test failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("all turns answered")
}
