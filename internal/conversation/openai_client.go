package conversation

import (
	"context"
	"errors"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	providerOpenAI     = "openai"
	defaultOpenAIModel = "gpt-5-mini"

	reasoningTokenHeadroom = 2048
)

var reasoningModelPrefixes = []string{"o1", "o3", "o4", "gpt-5"}

func isReasoningModel(model string) bool {
	m := strings.ToLower(model)
	for _, prefix := range reasoningModelPrefixes {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

type openAIChatAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAILLMClient implements LLMClient on the chat completions API. It also
// serves OpenAI-compatible gateways via a custom base URL.
type OpenAILLMClient struct {
	api          openAIChatAPI
	defaultModel string
}

// NewOpenAILLMClient builds a client from an API key and optional base URL.
func NewOpenAILLMClient(apiKey, baseURL, defaultModel string) (*OpenAILLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: openai api key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return newOpenAILLMClient(openai.NewClientWithConfig(cfg), defaultModel), nil
}

func newOpenAILLMClient(api openAIChatAPI, defaultModel string) *OpenAILLMClient {
	if api == nil {
		panic("conversation: openai client cannot be nil")
	}
	if strings.TrimSpace(defaultModel) == "" {
		defaultModel = defaultOpenAIModel
	}
	return &OpenAILLMClient{api: api, defaultModel: defaultModel}
}

func (c *OpenAILLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.defaultModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.System)+len(req.Messages))
	for _, block := range req.System {
		if strings.TrimSpace(block) == "" {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: block})
	}
	for _, msg := range req.Messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case ChatRoleSystem:
			role = openai.ChatMessageRoleSystem
		case ChatRoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}

	creq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if isReasoningModel(model) {
		// Reasoning models reject max_tokens and custom sampling, and spend
		// hidden tokens before the visible answer.
		if req.MaxTokens > 0 {
			creq.MaxCompletionTokens = int(req.MaxTokens) + reasoningTokenHeadroom
		}
	} else {
		if req.MaxTokens > 0 {
			creq.MaxTokens = int(req.MaxTokens)
		}
		switch {
		case req.Temperature > 0:
			creq.Temperature = req.Temperature
		case req.Temperature == 0:
			// go-openai omits a zero temperature from the request body.
			creq.Temperature = math.SmallestNonzeroFloat32
		}
		if req.TopP > 0 {
			creq.TopP = req.TopP
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, creq)
	if err != nil {
		return LLMResponse{}, backendError(providerOpenAI, err)
	}
	if len(resp.Choices) == 0 {
		return LLMResponse{}, backendError(providerOpenAI, errors.New("no choices returned"))
	}

	choice := resp.Choices[0]
	return LLMResponse{
		Text:       strings.TrimSpace(choice.Message.Content),
		StopReason: string(choice.FinishReason),
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}, nil
}
