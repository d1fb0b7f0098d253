package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/bus"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/llm"
	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/note"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/notestore"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/recorder"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/stt"
)

var (
	ErrAlreadyRecording = errors.New("pipeline: already recording")
	ErrNotRecording     = errors.New("pipeline: not recording")
	ErrBusyProcessing   = errors.New("pipeline: previous recording still processing")
)

// Cleaner is the slice of the LLM service the pipeline depends on.
type Cleaner interface {
	ActiveProvider() string
	ProcessTranscript(ctx context.Context, transcript string) (*llm.Result, error)
}

// VaultWriter exports a finished note into the external vault.
type VaultWriter interface {
	WriteNote(n *note.Note) (string, error)
	CopyAudio(srcPath string) error
}

// Factories build the coordinator's collaborators on first use. A
// factory returning (nil, nil) means the capability is not configured
// and its stage is skipped.
type Factories struct {
	Recorder    func() (recorder.Recorder, error)
	Transcriber func() (stt.Provider, error)
	Cleaner     func() (Cleaner, error)
	Vault       func() (VaultWriter, error)
	Store       func() (*notestore.Store, error)
}

// Coordinator drives the record, transcribe, cleanup, export, persist
// sequence. Collaborators are constructed lazily so startup stays cheap.
type Coordinator struct {
	audioDir  string
	factories Factories

	mu    sync.Mutex
	state State

	durationSub bus.SubscriptionID

	recorder    recorder.Recorder
	transcriber stt.Provider
	cleaner     Cleaner
	vault       VaultWriter
	store       *notestore.Store

	recorderBuilt    bool
	transcriberBuilt bool
	cleanerBuilt     bool
	vaultBuilt       bool
	storeBuilt       bool
}

// New creates a coordinator. audioDir is where the recorder drops audio
// artifacts and where the vault export copies them from.
func New(audioDir string, factories Factories) *Coordinator {
	c := &Coordinator{
		audioDir:  audioDir,
		factories: factories,
	}
	c.durationSub = bus.Subscribe(bus.TopicRecorderDuration, func(e bus.Event) {
		seconds, ok := e.Data.(float64)
		if !ok {
			return
		}
		c.mu.Lock()
		if c.state.IsRecording {
			c.state.RecordingDuration = seconds
		}
		c.mu.Unlock()
	})
	return c
}

// State returns a snapshot of the coordinator's UI-facing state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Warmup eagerly constructs every configured collaborator. The default
// path is lazy construction on first use.
func (c *Coordinator) Warmup() error {
	if _, err := c.getStore(); err != nil {
		return err
	}
	if _, err := c.getRecorder(); err != nil {
		return err
	}
	if _, err := c.getTranscriber(); err != nil {
		return err
	}
	if _, err := c.getCleaner(); err != nil {
		return err
	}
	if _, err := c.getVault(); err != nil {
		return err
	}
	L_debug("pipeline: warmup complete")
	return nil
}

// StartRecording begins a capture. Rejected with an error while a
// recording or a processing run is in progress.
func (c *Coordinator) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.state.IsRecording {
		c.mu.Unlock()
		return ErrAlreadyRecording
	}
	if c.state.IsProcessing {
		c.mu.Unlock()
		return ErrBusyProcessing
	}
	c.mu.Unlock()

	rec, err := c.getRecorder()
	if err != nil {
		return err
	}

	if err := rec.Start(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.state.IsRecording = true
	c.state.RecordingDuration = 0
	c.state.TranscriptionProgress = 0
	c.state.LastNotice = ""
	c.mu.Unlock()

	bus.Publish(bus.TopicPipelineStage, StageRecording)
	return nil
}

// StopRecording ends the capture and runs the remaining pipeline
// stages. The user always gets a persisted note unless stopping the
// capture itself fails.
func (c *Coordinator) StopRecording(ctx context.Context) (*note.Note, error) {
	c.mu.Lock()
	if c.state.IsProcessing {
		c.mu.Unlock()
		return nil, ErrBusyProcessing
	}
	if !c.state.IsRecording {
		c.mu.Unlock()
		return nil, ErrNotRecording
	}
	c.state.IsRecording = false
	c.state.IsProcessing = true
	c.mu.Unlock()

	rec, err := c.getRecorder()
	if err != nil {
		c.finishProcessing()
		return nil, err
	}

	clip, err := rec.Stop()
	if err != nil {
		c.finishProcessing()
		return nil, fmt.Errorf("pipeline: stop recording: %w", err)
	}

	n := note.New(clip.CreatedAt, clip.Duration, clip.AudioFilename)

	c.runTranscription(ctx, n)
	c.runCleanup(ctx, n)
	c.runVaultExport(n)
	n.Status = note.StatusComplete

	bus.Publish(bus.TopicPipelineStage, StagePersist)
	store, err := c.getStore()
	if err != nil {
		c.finishProcessing()
		return nil, err
	}
	if err := store.Add(n); err != nil {
		c.finishProcessing()
		return nil, fmt.Errorf("pipeline: persist note: %w", err)
	}

	c.finishProcessing()
	bus.Publish(bus.TopicPipelineStage, StageIdle)

	L_info("pipeline: note created",
		"id", n.ID,
		"title", n.Title,
		"duration", fmt.Sprintf("%.1fs", n.Duration),
		"exported", n.VaultPath != nil)

	return n, nil
}

// runTranscription fills OriginalTranscript, tolerating failure with
// the fallback text.
func (c *Coordinator) runTranscription(ctx context.Context, n *note.Note) {
	bus.Publish(bus.TopicPipelineStage, StageTranscribe)

	transcriber, err := c.getTranscriber()
	if err != nil || transcriber == nil {
		if err != nil {
			L_warn("pipeline: transcriber unavailable", "error", err)
			c.setNotice("Transcription is unavailable: " + err.Error())
		}
		n.OriginalTranscript = FallbackTranscript
		return
	}

	audioPath := filepath.Join(c.audioDir, n.AudioFilename)
	text, err := transcriber.Transcribe(ctx, audioPath, func(progress float64) {
		c.mu.Lock()
		c.state.TranscriptionProgress = progress
		c.mu.Unlock()
		bus.Publish(bus.TopicSTTProgress, progress)
	})
	if err != nil {
		L_error("pipeline: transcription failed", "error", err)
		c.setNotice("Transcription failed. The audio recording has been kept.")
		n.OriginalTranscript = FallbackTranscript
		return
	}

	n.OriginalTranscript = text
}

// runCleanup fills CleanedTranscript and Title via the LLM service.
// With no provider configured the stage is skipped silently; a
// configured provider that fails produces a user notice.
func (c *Coordinator) runCleanup(ctx context.Context, n *note.Note) {
	bus.Publish(bus.TopicPipelineStage, StageCleanup)

	// The placeholder text is not a usable transcript; sending it to a
	// model would produce a note about nothing.
	if n.OriginalTranscript == FallbackTranscript {
		L_debug("pipeline: no usable transcript, skipping cleanup")
		n.CleanedTranscript = n.OriginalTranscript
		n.Title = llm.DefaultTitle(n.CreatedAt)
		return
	}

	cleaner, err := c.getCleaner()
	if err != nil || cleaner == nil || cleaner.ActiveProvider() == "" {
		n.CleanedTranscript = n.OriginalTranscript
		n.Title = llm.DefaultTitle(n.CreatedAt)
		return
	}

	result, err := cleaner.ProcessTranscript(ctx, n.OriginalTranscript)
	if err != nil {
		L_error("pipeline: cleanup failed", "provider", cleaner.ActiveProvider(), "error", err)
		c.setNotice(llm.FormatErrorForUser(err.Error(), llm.ClassifyError(err.Error())))
		n.CleanedTranscript = n.OriginalTranscript
		n.Title = llm.DefaultTitle(n.CreatedAt)
		return
	}

	n.SetCleanup(result.Cleaned, result.Title, result.Provider, result.Model)
}

// runVaultExport writes the markdown note and copies the audio. Either
// may fail independently; VaultPath is only set on a successful note
// write.
func (c *Coordinator) runVaultExport(n *note.Note) {
	bus.Publish(bus.TopicPipelineStage, StageVaultExport)

	writer, err := c.getVault()
	if err != nil {
		L_warn("pipeline: vault unavailable", "error", err)
		c.setNotice("Vault export failed: " + err.Error())
		return
	}
	if writer == nil {
		// No vault configured.
		return
	}

	relPath, err := writer.WriteNote(n)
	if err != nil {
		L_error("pipeline: vault write failed", "error", err)
		c.setNotice("Could not write the note to your vault.")
		return
	}
	n.VaultPath = &relPath

	audioPath := filepath.Join(c.audioDir, n.AudioFilename)
	if err := writer.CopyAudio(audioPath); err != nil {
		L_warn("pipeline: audio copy to vault failed", "error", err)
		c.setNotice("Note exported, but copying the audio to the vault failed.")
	}
}

// Close releases everything that was built. Safe to call when nothing
// was constructed.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	rec := c.recorder
	transcriber := c.transcriber
	c.mu.Unlock()

	bus.Unsubscribe(c.durationSub)

	var firstErr error
	if rec != nil {
		if err := rec.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if transcriber != nil {
		if err := transcriber.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Coordinator) finishProcessing() {
	c.mu.Lock()
	c.state.IsProcessing = false
	c.state.TranscriptionProgress = 0
	c.state.RecordingDuration = 0
	c.mu.Unlock()
}

func (c *Coordinator) setNotice(msg string) {
	c.mu.Lock()
	c.state.LastNotice = msg
	c.mu.Unlock()
	bus.Publish(bus.TopicPipelineError, msg)
}

func (c *Coordinator) getRecorder() (recorder.Recorder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recorderBuilt {
		return c.recorder, nil
	}
	if c.factories.Recorder == nil {
		return nil, errors.New("pipeline: no recorder configured")
	}
	rec, err := c.factories.Recorder()
	if err != nil {
		return nil, err
	}
	c.recorder = rec
	c.recorderBuilt = true
	return rec, nil
}

func (c *Coordinator) getTranscriber() (stt.Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transcriberBuilt {
		return c.transcriber, nil
	}
	if c.factories.Transcriber == nil {
		c.transcriberBuilt = true
		return nil, nil
	}
	t, err := c.factories.Transcriber()
	if err != nil {
		return nil, err
	}
	c.transcriber = t
	c.transcriberBuilt = true
	return t, nil
}

func (c *Coordinator) getCleaner() (Cleaner, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cleanerBuilt {
		return c.cleaner, nil
	}
	if c.factories.Cleaner == nil {
		c.cleanerBuilt = true
		return nil, nil
	}
	cl, err := c.factories.Cleaner()
	if err != nil {
		return nil, err
	}
	c.cleaner = cl
	c.cleanerBuilt = true
	return cl, nil
}

func (c *Coordinator) getVault() (VaultWriter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vaultBuilt {
		return c.vault, nil
	}
	if c.factories.Vault == nil {
		c.vaultBuilt = true
		return nil, nil
	}
	w, err := c.factories.Vault()
	if err != nil {
		return nil, err
	}
	c.vault = w
	c.vaultBuilt = true
	return w, nil
}

func (c *Coordinator) getStore() (*notestore.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.storeBuilt {
		return c.store, nil
	}
	if c.factories.Store == nil {
		return nil, errors.New("pipeline: no note store configured")
	}
	s, err := c.factories.Store()
	if err != nil {
		return nil, err
	}
	c.store = s
	c.storeBuilt = true
	return s, nil
}

// Store exposes the note store, building it on first use, so callers
// outside a pipeline run (list, delete) share the single writer.
func (c *Coordinator) Store() (*notestore.Store, error) {
	return c.getStore()
}
