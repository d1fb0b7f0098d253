// Package recorder captures microphone audio for voice notes.
package recorder

import (
	"context"
	"errors"
	"time"
)

// Clip describes a finished recording in the audio directory.
type Clip struct {
	AudioFilename string
	Duration      float64 // seconds
	CreatedAt     time.Time
}

var (
	ErrAlreadyRecording = errors.New("recorder: already recording")
	ErrNotRecording     = errors.New("recorder: not recording")
)

// Recorder captures audio into the local audio directory. Start and
// Stop are fail-fast: a failure leaves no recording in progress.
type Recorder interface {
	// Start begins capturing from the default input device.
	Start(ctx context.Context) error

	// Stop ends the capture and returns the finished clip.
	Stop() (*Clip, error)

	// IsRecording reports whether a capture is in progress.
	IsRecording() bool

	// Close stops any in-progress capture and releases the device.
	Close() error
}
