package stt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
)

// GroqProvider implements STT using Groq's Whisper API.
type GroqProvider struct {
	config GroqConfig
	client *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewGroqProvider creates a new Groq Whisper STT provider.
func NewGroqProvider(cfg GroqConfig) (*GroqProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq API key not configured")
	}

	model := cfg.Model
	if model == "" {
		model = "whisper-large-v3"
	}

	L_info("stt: groq provider initialized", "model", model)

	return &GroqProvider{
		config: GroqConfig{
			APIKey: cfg.APIKey,
			Model:  model,
		},
		client: &http.Client{},
	}, nil
}

// Transcribe converts an audio file to text using Groq's Whisper API.
func (g *GroqProvider) Transcribe(ctx context.Context, filePath string, onProgress ProgressFunc) (string, error) {
	L_debug("stt: groq transcribing", "file", filePath)
	if onProgress != nil {
		onProgress(0)
	}

	ctx, cancel := context.WithCancel(ctx)
	g.mu.Lock()
	g.cancel = cancel
	g.mu.Unlock()
	defer func() {
		cancel()
		g.mu.Lock()
		g.cancel = nil
		g.mu.Unlock()
	}()

	body, contentType, err := whisperMultipartBody(filePath, g.config.Model)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.groq.com/openai/v1/audio/transcriptions", body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+g.config.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		L_error("stt: groq request failed", "status", resp.StatusCode, "body", string(respBody))
		return "", whisperAPIError("groq", resp.StatusCode, respBody)
	}

	result := string(respBody)
	if onProgress != nil {
		onProgress(1.0)
	}
	L_debug("stt: groq transcription complete", "length", len(result))

	return result, nil
}

// Name returns the provider name.
func (g *GroqProvider) Name() string {
	return "groq"
}

// Cancel aborts an in-flight request, if any.
func (g *GroqProvider) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
	}
}

// Close releases any resources (none for HTTP client).
func (g *GroqProvider) Close() error {
	return nil
}
