package stt

import (
	"fmt"
	"path/filepath"

	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/paths"
)

// STTConfig holds STT configuration.
type STTConfig struct {
	Provider   string           `json:"provider"`   // "whispercpp", "openai", "groq"
	WhisperCpp WhisperCppConfig `json:"whispercpp"` // Local whisper.cpp
	OpenAI     OpenAIConfig     `json:"openai"`     // OpenAI Whisper API
	Groq       GroqConfig       `json:"groq"`       // Groq Whisper API
}

// OpenAIConfig holds OpenAI Whisper configuration.
type OpenAIConfig struct {
	APIKey string `json:"apiKey,omitempty"`
	Model  string `json:"model,omitempty"` // "whisper-1"
}

// GroqConfig holds Groq Whisper configuration.
type GroqConfig struct {
	APIKey string `json:"apiKey,omitempty"`
	Model  string `json:"model,omitempty"` // "whisper-large-v3", "whisper-large-v3-turbo"
}

// New builds the configured STT provider.
// Returns (nil, nil) if no provider is configured; transcription is then
// skipped and the pipeline falls back to placeholder text.
func New(cfg STTConfig) (Provider, error) {
	switch cfg.Provider {
	case "":
		L_debug("stt: no provider configured")
		return nil, nil
	case "whispercpp":
		return newWhisperCppFromConfig(cfg.WhisperCpp)
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI)
	case "groq":
		return NewGroqProvider(cfg.Groq)
	default:
		return nil, fmt.Errorf("stt: unknown provider: %s", cfg.Provider)
	}
}

// newWhisperCppFromConfig resolves paths and validates the model before
// loading whisper.cpp.
func newWhisperCppFromConfig(cfg WhisperCppConfig) (Provider, error) {
	modelsDir := cfg.ModelsDir
	if modelsDir == "" {
		var err error
		modelsDir, err = paths.WhisperModelsDir()
		if err != nil {
			return nil, err
		}
	}

	modelsDir, err := paths.ExpandTilde(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("stt: failed to expand models dir: %w", err)
	}

	if cfg.Model == "" {
		return nil, fmt.Errorf("stt: whispercpp model not configured")
	}
	if !IsModelDownloaded(modelsDir, cfg.Model) {
		modelPath := filepath.Join(modelsDir, cfg.Model)
		return nil, fmt.Errorf("stt: model not found at %s - run 'voicenote download-model' first", modelPath)
	}

	return NewWhisperCppProvider(WhisperCppConfig{
		ModelsDir: modelsDir,
		Model:     cfg.Model,
		Language:  cfg.Language,
		Threads:   cfg.Threads,
	})
}
