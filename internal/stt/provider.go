// Package stt provides speech-to-text transcription for recorded memos.
package stt

import "context"

// ProgressFunc receives fractional transcription progress in [0, 1].
// May be nil when the caller does not care.
type ProgressFunc func(fraction float64)

// Provider is the interface for STT implementations.
type Provider interface {
	// Transcribe converts an audio file to text.
	// filePath should be an audio file (OGG, WAV, etc.). Progress is
	// reported via onProgress where the backend supports it.
	Transcribe(ctx context.Context, filePath string, onProgress ProgressFunc) (string, error)

	// Name returns the provider name (e.g., "whispercpp", "openai")
	Name() string

	// Cancel aborts an in-flight transcription, best effort.
	// Safe to call when idle.
	Cancel()

	// Close releases any resources held by the provider.
	Close() error
}
