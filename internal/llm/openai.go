package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/tokens"
)

const ProviderOpenAI = "openai"

var openaiModels = []string{"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini"}

// OpenAIProvider cleans transcripts via the OpenAI chat completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a provider for the given API key.
func NewOpenAIProvider(apiKey string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	L_debug("openai provider created")

	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  openaiModels[0],
	}, nil
}

func (p *OpenAIProvider) Name() string         { return ProviderOpenAI }
func (p *OpenAIProvider) Kind() Kind           { return KindCloud }
func (p *OpenAIProvider) Model() string        { return p.model }
func (p *OpenAIProvider) DefaultModel() string { return openaiModels[0] }
func (p *OpenAIProvider) Models() []string     { return append([]string(nil), openaiModels...) }
func (p *OpenAIProvider) RequiresAPIKey() bool { return true }

func (p *OpenAIProvider) WithModel(model string) Provider {
	clone := *p
	clone.model = model
	return &clone
}

func (p *OpenAIProvider) Availability(ctx context.Context) (bool, string) {
	if p == nil || p.client == nil {
		return false, "API key not configured"
	}
	return true, ""
}

func (p *OpenAIProvider) Complete(ctx context.Context, system string, user string) (string, error) {
	maxOut := tokens.CapOutput(cleanupMaxOutputTokens, cleanupContextWindow, tokens.Estimate(system+user))

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: maxOut,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", &RequestError{Provider: ProviderOpenAI, Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &RequestError{Provider: ProviderOpenAI, Err: fmt.Errorf("empty response")}
	}

	L_debug("openai: request completed",
		"model", p.model,
		"duration", time.Since(start).Round(time.Millisecond),
		"inputTokens", resp.Usage.PromptTokens,
		"outputTokens", resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}
