package llm

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/tokens"
)

const ProviderAnthropic = "anthropic"

var anthropicModels = []string{"claude-sonnet-4-5", "claude-opus-4-5", "claude-haiku-4-5"}

// Cleanup responses are roughly the size of the input transcript.
const cleanupMaxOutputTokens = 8192

// cleanupContextWindow is a conservative floor shared by the cloud
// providers' chat models; used to cap the output budget for very long
// transcripts.
const cleanupContextWindow = 128000

// AnthropicProvider cleans transcripts via the Anthropic Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider creates a provider for the given API key.
func NewAnthropicProvider(apiKey string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	L_debug("anthropic provider created")

	return &AnthropicProvider{
		client: &client,
		model:  anthropicModels[0],
	}, nil
}

func (p *AnthropicProvider) Name() string         { return ProviderAnthropic }
func (p *AnthropicProvider) Kind() Kind           { return KindCloud }
func (p *AnthropicProvider) Model() string        { return p.model }
func (p *AnthropicProvider) DefaultModel() string { return anthropicModels[0] }
func (p *AnthropicProvider) Models() []string     { return append([]string(nil), anthropicModels...) }
func (p *AnthropicProvider) RequiresAPIKey() bool { return true }

func (p *AnthropicProvider) WithModel(model string) Provider {
	clone := *p
	clone.model = model
	return &clone
}

func (p *AnthropicProvider) Availability(ctx context.Context) (bool, string) {
	if p == nil || p.client == nil {
		return false, "API key not configured"
	}
	return true, ""
}

// Complete sends a single-turn message and concatenates the text blocks
// of the response.
func (p *AnthropicProvider) Complete(ctx context.Context, system string, user string) (string, error) {
	maxOut := tokens.CapOutput(cleanupMaxOutputTokens, cleanupContextWindow, tokens.Estimate(system+user))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxOut),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	start := time.Now()
	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", &RequestError{Provider: ProviderAnthropic, Err: err}
	}

	var text strings.Builder
	for _, block := range message.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	L_debug("anthropic: request completed",
		"model", p.model,
		"duration", time.Since(start).Round(time.Millisecond),
		"inputTokens", message.Usage.InputTokens,
		"outputTokens", message.Usage.OutputTokens)

	return text.String(), nil
}
