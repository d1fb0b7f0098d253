package stt

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
)

// WhisperCppProvider implements on-device STT using whisper.cpp.
type WhisperCppProvider struct {
	model  whisper.Model
	config WhisperCppConfig
}

// WhisperCppConfig holds configuration for Whisper.cpp.
type WhisperCppConfig struct {
	ModelsDir string `json:"modelsDir,omitempty"` // Directory containing whisper models
	Model     string `json:"model,omitempty"`     // Model name (e.g., "ggml-base.en.bin")
	Language  string `json:"language,omitempty"`  // Language code (e.g., "en", "auto" for detection)
	Threads   uint   `json:"threads,omitempty"`   // Number of threads (0 = auto)
}

// NewWhisperCppProvider creates a new Whisper.cpp STT provider.
func NewWhisperCppProvider(cfg WhisperCppConfig) (*WhisperCppProvider, error) {
	if cfg.ModelsDir == "" {
		return nil, fmt.Errorf("whisper.cpp modelsDir not configured")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("whisper.cpp model not configured")
	}

	modelPath := filepath.Join(cfg.ModelsDir, cfg.Model)
	L_info("stt: loading whisper.cpp model", "path", modelPath)

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model: %w", err)
	}

	L_info("stt: whisper.cpp model loaded", "multilingual", model.IsMultilingual())

	return &WhisperCppProvider{
		model:  model,
		config: cfg,
	}, nil
}

// Transcribe converts an audio file to text using Whisper.cpp.
func (w *WhisperCppProvider) Transcribe(ctx context.Context, filePath string, onProgress ProgressFunc) (string, error) {
	L_debug("stt: whisper.cpp transcribing", "file", filePath)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	samples, err := DecodeSamples(filePath)
	if err != nil {
		return "", fmt.Errorf("convert audio: %w", err)
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create whisper context: %w", err)
	}

	if w.config.Language != "" {
		if err := wctx.SetLanguage(w.config.Language); err != nil {
			L_warn("stt: failed to set language", "language", w.config.Language, "error", err)
		}
	}

	if w.config.Threads > 0 {
		wctx.SetThreads(w.config.Threads)
	}

	var progressCb func(int)
	if onProgress != nil {
		progressCb = func(percent int) {
			onProgress(float64(percent) / 100.0)
		}
	}

	if err := wctx.Process(samples, nil, nil, progressCb); err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}

	// Collect all segments
	var text strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("get segment: %w", err)
		}
		text.WriteString(segment.Text)
	}

	result := strings.TrimSpace(text.String())
	if onProgress != nil {
		onProgress(1.0)
	}
	L_debug("stt: whisper.cpp transcription complete", "length", len(result))

	return result, nil
}

// Name returns the provider name.
func (w *WhisperCppProvider) Name() string {
	return "whispercpp"
}

// Cancel is a no-op: whisper.cpp cannot abort mid-inference.
func (w *WhisperCppProvider) Cancel() {
	L_debug("stt: whisper.cpp cancel requested (unsupported, ignoring)")
}

// Close releases the whisper model.
func (w *WhisperCppProvider) Close() error {
	L_debug("stt: closing whisper.cpp model")
	return w.model.Close()
}
