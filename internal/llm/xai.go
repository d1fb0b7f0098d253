package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roelfdiedericks/xai-go"
	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/tokens"
)

const ProviderXAI = "xai"

var xaiModels = []string{"grok-4-1-fast-non-reasoning", "grok-4-1-fast-reasoning", "grok-3-mini"}

// XAIProvider cleans transcripts via xAI's Grok API. The client is
// lazily initialized on first use.
type XAIProvider struct {
	apiKey string
	model  string

	clientMu sync.Mutex
	client   *xai.Client
}

// NewXAIProvider creates a provider for the given API key.
func NewXAIProvider(apiKey string) (*XAIProvider, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	L_debug("xai provider created")

	return &XAIProvider{
		apiKey: apiKey,
		model:  xaiModels[0],
	}, nil
}

func (p *XAIProvider) getClient() (*xai.Client, error) {
	p.clientMu.Lock()
	defer p.clientMu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	client, err := xai.New(xai.Config{
		APIKey:  xai.NewSecureString(p.apiKey),
		Timeout: 120 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create xai client: %w", err)
	}

	p.client = client
	return p.client, nil
}

func (p *XAIProvider) Name() string         { return ProviderXAI }
func (p *XAIProvider) Kind() Kind           { return KindCloud }
func (p *XAIProvider) Model() string        { return p.model }
func (p *XAIProvider) DefaultModel() string { return xaiModels[0] }
func (p *XAIProvider) Models() []string     { return append([]string(nil), xaiModels...) }
func (p *XAIProvider) RequiresAPIKey() bool { return true }

func (p *XAIProvider) WithModel(model string) Provider {
	return &XAIProvider{
		apiKey: p.apiKey,
		model:  model,
		client: p.client,
	}
}

func (p *XAIProvider) Availability(ctx context.Context) (bool, string) {
	if p == nil || p.apiKey == "" {
		return false, "API key not configured"
	}
	return true, ""
}

func (p *XAIProvider) Complete(ctx context.Context, system string, user string) (string, error) {
	client, err := p.getClient()
	if err != nil {
		return "", &RequestError{Provider: ProviderXAI, Err: err}
	}

	maxOut := tokens.CapOutput(cleanupMaxOutputTokens, cleanupContextWindow, tokens.Estimate(system+user))

	req := xai.NewChatRequest().
		WithModel(p.model).
		WithMaxTokens(int32(maxOut))
	if system != "" {
		req.SystemMessage(xai.SystemContent{Text: system})
	}
	req.UserMessage(xai.UserContent{Text: user})

	start := time.Now()
	resp, err := client.CompleteChat(ctx, req)
	if err != nil {
		return "", &RequestError{Provider: ProviderXAI, Err: err}
	}

	L_debug("xai: request completed",
		"model", p.model,
		"duration", time.Since(start).Round(time.Millisecond),
		"inputTokens", resp.Usage.PromptTokens,
		"outputTokens", resp.Usage.CompletionTokens)

	return resp.Content, nil
}
