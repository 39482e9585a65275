package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	providerGemini     = "gemini"
	defaultGeminiModel = "gemini-2.5-flash"
)

// Gemini 2.5 models think before answering, and the thinking tokens count
// against MaxOutputTokens.
func geminiOutputTokens(modelID string, maxTokens int32) int32 {
	if maxTokens <= 0 {
		return 0
	}
	if strings.HasPrefix(strings.ToLower(modelID), "gemini-2.5") {
		return maxTokens + reasoningTokenHeadroom
	}
	return maxTokens
}

// GeminiLLMClient implements LLMClient using Google's Gemini API.
type GeminiLLMClient struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiLLMClient creates a new Gemini LLM client. defaultModel is used
// when a request does not name one.
func NewGeminiLLMClient(ctx context.Context, apiKey, defaultModel string) (*GeminiLLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(defaultModel) == "" {
		defaultModel = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create gemini client: %w", err)
	}

	return &GeminiLLMClient{
		client:       client,
		defaultModel: defaultModel,
	}, nil
}

// Complete sends a completion request to Gemini and returns the response.
func (c *GeminiLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	modelID := strings.TrimSpace(req.Model)
	if modelID == "" || !strings.HasPrefix(modelID, "gemini") {
		modelID = c.defaultModel
	}
	model := c.client.GenerativeModel(modelID)

	if req.Temperature >= 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.TopP > 0 {
		model.SetTopP(req.TopP)
	}
	if limit := geminiOutputTokens(modelID, req.MaxTokens); limit > 0 {
		model.SetMaxOutputTokens(limit)
	}

	system, turns := geminiSplit(req)
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}
	if len(turns) == 0 {
		return LLMResponse{}, errors.New("conversation: gemini requires at least one message")
	}

	cs := model.StartChat()
	cs.History = turns[:len(turns)-1]
	last := turns[len(turns)-1]

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return LLMResponse{}, backendError(providerGemini, err)
	}
	if len(resp.Candidates) == 0 {
		return LLMResponse{}, backendError(providerGemini, errors.New("no candidates returned"))
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}

	result := LLMResponse{
		Text:       strings.TrimSpace(text.String()),
		StopReason: candidate.FinishReason.String(),
	}
	if resp.UsageMetadata != nil {
		result.Usage = TokenUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}
	return result, nil
}

// geminiSplit folds system-role messages into the system instruction and maps
// the remaining turns onto Gemini's user/model roles.
func geminiSplit(req LLMRequest) (string, []*genai.Content) {
	system := make([]string, 0, len(req.System)+1)
	for _, block := range req.System {
		if strings.TrimSpace(block) != "" {
			system = append(system, block)
		}
	}

	turns := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		if msg.Role == ChatRoleSystem {
			system = append(system, content)
			continue
		}
		role := "user"
		if msg.Role == ChatRoleAssistant {
			role = "model"
		}
		turns = append(turns, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(content)},
		})
	}
	return strings.Join(system, "\n\n"), turns
}

// Close releases resources held by the Gemini client.
func (c *GeminiLLMClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
