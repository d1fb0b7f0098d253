// Package llm provides the transcript cleanup providers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
)

const (
	ProviderOllama = "ollama"

	defaultOllamaURL = "http://localhost:11434"

	// On-device models are slow on laptop hardware, give them room.
	ollamaTimeout = 300 * time.Second
)

var ollamaModels = []string{"llama3.2:3b", "llama3.2:1b", "qwen2.5:3b"}

// OllamaProvider runs cleanup against a local Ollama daemon. It is the
// on-device backend and needs no API key.
type OllamaProvider struct {
	url    string
	model  string
	client *http.Client
}

// ollamaChatRequest is the request body for the Ollama chat API.
type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
}

// NewOllamaProvider creates the on-device provider. An empty url uses
// the default local daemon address.
func NewOllamaProvider(url string) *OllamaProvider {
	if url == "" {
		url = defaultOllamaURL
	}
	url = strings.TrimSuffix(url, "/")

	L_debug("ollama provider created", "url", url)

	return &OllamaProvider{
		url:    url,
		model:  ollamaModels[0],
		client: &http.Client{Timeout: ollamaTimeout},
	}
}

func (p *OllamaProvider) Name() string         { return ProviderOllama }
func (p *OllamaProvider) Kind() Kind           { return KindOnDevice }
func (p *OllamaProvider) Model() string        { return p.model }
func (p *OllamaProvider) DefaultModel() string { return ollamaModels[0] }
func (p *OllamaProvider) Models() []string     { return append([]string(nil), ollamaModels...) }
func (p *OllamaProvider) RequiresAPIKey() bool { return false }

func (p *OllamaProvider) WithModel(model string) Provider {
	clone := *p
	clone.model = model
	return &clone
}

// Availability pings the daemon's tag listing. A failure means Ollama
// is not running or not reachable.
func (p *OllamaProvider) Availability(ctx context.Context) (bool, string) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(pingCtx, "GET", p.url+"/api/tags", nil)
	if err != nil {
		return false, err.Error()
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false, "Ollama is not running at " + p.url
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Sprintf("Ollama returned status %d", resp.StatusCode)
	}
	return true, ""
}

// Complete sends a non-streaming chat request to the local daemon.
func (p *OllamaProvider) Complete(ctx context.Context, system string, user string) (string, error) {
	reqBody := ollamaChatRequest{
		Model: p.model,
		Messages: []ollamaChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", &RequestError{Provider: ProviderOllama, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.url+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", &RequestError{Provider: ProviderOllama, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return "", &RequestError{Provider: ProviderOllama, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &RequestError{
			Provider: ProviderOllama,
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &RequestError{Provider: ProviderOllama, Err: err}
	}

	L_debug("ollama: chat completed", "model", p.model, "duration", time.Since(start).Round(time.Millisecond))
	return result.Message.Content, nil
}
