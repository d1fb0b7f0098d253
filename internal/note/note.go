// Package note defines the persisted voice note entity.
package note

import (
	"time"

	"github.com/google/uuid"
)

// Status describes where a note is in its processing lifecycle.
type Status string

const (
	// StatusProcessing is set while the capture pipeline is still running.
	StatusProcessing Status = "processing"
	// StatusComplete means the pipeline finished, including tolerated
	// partial failures (failed transcription, skipped cleanup, failed
	// vault export). The note is locally complete and usable.
	StatusComplete Status = "complete"
	// StatusError marks an unrecoverable failure.
	StatusError Status = "error"
)

// WelcomeNoteID is the fixed ID of the onboarding note synthesized on
// first launch. It must never be generated by the recording pipeline.
const WelcomeNoteID = "00000000-0000-0000-0000-00000000feed"

// Note is a captured voice memo. It is created when a recording stops and
// mutated in place as each pipeline stage completes: transcription fills
// OriginalTranscript, the LLM stage fills CleanedTranscript and Title, and
// the vault stage fills VaultPath.
type Note struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	OriginalTranscript string    `json:"originalTranscript"`
	CleanedTranscript  string    `json:"cleanedTranscript"`
	Duration           float64   `json:"duration"` // seconds
	CreatedAt          time.Time `json:"createdAt"`
	AudioFilename      string    `json:"audioFilename"`       // relative to the audio dir; empty for the welcome note
	VaultPath          *string   `json:"vaultPath,omitempty"` // nil until exported
	Status             Status    `json:"status"`
	LLMProvider        *string   `json:"llmProvider,omitempty"` // nil if no cleanup ran
	LLMModel           *string   `json:"llmModel,omitempty"`
}

// New creates a note seeded from a finished recording.
func New(createdAt time.Time, duration float64, audioFilename string) *Note {
	return &Note{
		ID:            uuid.New().String(),
		Title:         "New Voice Note",
		CreatedAt:     createdAt,
		Duration:      duration,
		AudioFilename: audioFilename,
		Status:        StatusProcessing,
	}
}

// Exported reports whether the note has been written to the vault.
func (n *Note) Exported() bool {
	return n.VaultPath != nil && *n.VaultPath != ""
}

// SetCleanup records the result of a successful LLM cleanup pass.
func (n *Note) SetCleanup(cleaned, title, provider, model string) {
	n.CleanedTranscript = cleaned
	n.Title = title
	n.LLMProvider = &provider
	n.LLMModel = &model
}

// Welcome synthesizes the onboarding note shown on first launch.
// Zero duration, no backing audio artifact, already complete.
func Welcome(now time.Time) *Note {
	body := "Welcome to Voice Note!\n\n" +
		"Tap record, talk, and stop. Your memo is transcribed, optionally " +
		"cleaned up by an AI model, and saved as a markdown note in your " +
		"Obsidian vault.\n\n" +
		"Configure a transcription engine, an AI provider, and a vault " +
		"location in settings to get the full pipeline."
	return &Note{
		ID:                 WelcomeNoteID,
		Title:              "Welcome to Voice Note",
		OriginalTranscript: body,
		CleanedTranscript:  body,
		CreatedAt:          now,
		Status:             StatusComplete,
	}
}
