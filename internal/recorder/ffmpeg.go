package recorder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/bus"
	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
)

// FFmpegRecorder captures microphone audio via an ffmpeg subprocess and
// writes opus-in-ogg files into the audio directory. ffmpeg handles the
// platform capture backends so the recorder stays portable.
type FFmpegRecorder struct {
	audioDir string
	device   string // capture device, empty uses the platform default

	mu        sync.Mutex
	cmd       *exec.Cmd
	filename  string
	startedAt time.Time
	stopTick  chan struct{}
}

// NewFFmpeg creates a recorder writing into audioDir. It fails when the
// ffmpeg binary is not on PATH.
func NewFFmpeg(audioDir string, device string) (*FFmpegRecorder, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("recorder: ffmpeg not found in PATH: %w", err)
	}
	if err := os.MkdirAll(audioDir, 0o750); err != nil {
		return nil, fmt.Errorf("recorder: create audio dir: %w", err)
	}
	return &FFmpegRecorder{audioDir: audioDir, device: device}, nil
}

// captureArgs returns the platform-specific input arguments.
func (r *FFmpegRecorder) captureArgs() []string {
	device := r.device
	switch runtime.GOOS {
	case "darwin":
		if device == "" {
			device = ":0"
		}
		return []string{"-f", "avfoundation", "-i", device}
	case "windows":
		if device == "" {
			device = "audio=default"
		}
		return []string{"-f", "dshow", "-i", device}
	default:
		if device == "" {
			device = "default"
		}
		return []string{"-f", "alsa", "-i", device}
	}
}

func (r *FFmpegRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return ErrAlreadyRecording
	}

	filename := uuid.New().String() + ".ogg"
	outPath := filepath.Join(r.audioDir, filename)

	args := append(r.captureArgs(),
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "libopus",
		"-b:a", "24k",
		"-y", outPath,
	)

	cmd := exec.Command("ffmpeg", args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("recorder: start capture: %w", err)
	}

	r.cmd = cmd
	r.filename = filename
	r.startedAt = time.Now()
	r.stopTick = make(chan struct{})

	go r.publishDuration(r.startedAt, r.stopTick)

	L_info("recorder: capture started", "file", filename)
	return nil
}

// publishDuration pushes the elapsed time onto the bus twice a second
// so the UI can show a live counter.
func (r *FFmpegRecorder) publishDuration(startedAt time.Time, stop chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			bus.Publish(bus.TopicRecorderDuration, time.Since(startedAt).Seconds())
		}
	}
}

func (r *FFmpegRecorder) Stop() (*Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil {
		return nil, ErrNotRecording
	}

	cmd := r.cmd
	filename := r.filename
	startedAt := r.startedAt
	close(r.stopTick)
	r.cmd = nil
	r.filename = ""
	r.stopTick = nil

	duration := time.Since(startedAt).Seconds()

	// SIGINT lets ffmpeg finalize the ogg container.
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		<-done
	}

	outPath := filepath.Join(r.audioDir, filename)
	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(outPath)
		return nil, fmt.Errorf("recorder: capture produced no audio")
	}

	L_info("recorder: capture stopped", "file", filename, "duration", fmt.Sprintf("%.1fs", duration))

	return &Clip{
		AudioFilename: filename,
		Duration:      duration,
		CreatedAt:     startedAt,
	}, nil
}

func (r *FFmpegRecorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cmd != nil
}

// Close discards any in-progress capture.
func (r *FFmpegRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil {
		return nil
	}

	close(r.stopTick)
	_ = r.cmd.Process.Kill()
	_ = r.cmd.Wait()

	outPath := filepath.Join(r.audioDir, r.filename)
	_ = os.Remove(outPath)

	r.cmd = nil
	r.filename = ""
	r.stopTick = nil

	L_debug("recorder: closed, in-progress capture discarded")
	return nil
}
