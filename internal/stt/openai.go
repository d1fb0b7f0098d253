package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
)

// OpenAIProvider implements STT using OpenAI's Whisper API.
type OpenAIProvider struct {
	config OpenAIConfig
	client *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewOpenAIProvider creates a new OpenAI Whisper STT provider.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key not configured")
	}

	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}

	L_info("stt: openai provider initialized", "model", model)

	return &OpenAIProvider{
		config: OpenAIConfig{
			APIKey: cfg.APIKey,
			Model:  model,
		},
		client: &http.Client{},
	}, nil
}

// Transcribe converts an audio file to text using OpenAI's Whisper API.
// The API accepts OGG/Opus directly - no conversion needed. Cloud
// transcription has no incremental progress; callers see 0 then 1.
func (o *OpenAIProvider) Transcribe(ctx context.Context, filePath string, onProgress ProgressFunc) (string, error) {
	L_debug("stt: openai transcribing", "file", filePath)
	if onProgress != nil {
		onProgress(0)
	}

	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()
	defer func() {
		cancel()
		o.mu.Lock()
		o.cancel = nil
		o.mu.Unlock()
	}()

	body, contentType, err := whisperMultipartBody(filePath, o.config.Model)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/audio/transcriptions", body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+o.config.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		L_error("stt: openai request failed", "status", resp.StatusCode, "body", string(respBody))
		return "", whisperAPIError("openai", resp.StatusCode, respBody)
	}

	// Response is plain text when response_format=text
	result := string(respBody)
	if onProgress != nil {
		onProgress(1.0)
	}
	L_debug("stt: openai transcription complete", "length", len(result))

	return result, nil
}

// Name returns the provider name.
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// Cancel aborts an in-flight request, if any.
func (o *OpenAIProvider) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// Close releases any resources (none for HTTP client).
func (o *OpenAIProvider) Close() error {
	return nil
}

// whisperMultipartBody builds the multipart form shared by the
// Whisper-compatible cloud endpoints.
func whisperMultipartBody(filePath, model string) (*bytes.Buffer, string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy file to form: %w", err)
	}

	if err := writer.WriteField("model", model); err != nil {
		return nil, "", fmt.Errorf("write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "text"); err != nil {
		return nil, "", fmt.Errorf("write response_format field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

// whisperAPIError extracts the provider error message if the body is the
// standard {"error": {"message": ...}} shape.
func whisperAPIError(provider string, status int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		return fmt.Errorf("%s API error: %s", provider, errResp.Error.Message)
	}
	return fmt.Errorf("%s API error: status %d", provider, status)
}
