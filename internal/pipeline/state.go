// Package pipeline orchestrates record, transcribe, cleanup and export
// into a persisted voice note.
package pipeline

// State is the UI-facing snapshot of the coordinator.
type State struct {
	IsRecording           bool
	IsProcessing          bool
	RecordingDuration     float64 // seconds, live while recording
	TranscriptionProgress float64 // 0..1, live while transcribing
	LastNotice            string  // last user-facing failure notice
}

// Stage names published on the bus while a pipeline run progresses.
const (
	StageRecording   = "recording"
	StageTranscribe  = "transcribe"
	StageCleanup     = "cleanup"
	StageVaultExport = "vault-export"
	StagePersist     = "persist"
	StageIdle        = "idle"
)

// FallbackTranscript is stored when transcription fails. The audio file
// is kept so the user can retry or listen manually.
const FallbackTranscript = "Transcription unavailable. The audio recording has been preserved."
