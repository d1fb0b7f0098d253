package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/llm"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/note"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/notestore"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/recorder"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/stt"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/vault"
)

type fakeRecorder struct {
	clip      *recorder.Clip
	stopErr   error
	recording bool
}

func (f *fakeRecorder) Start(ctx context.Context) error {
	if f.recording {
		return recorder.ErrAlreadyRecording
	}
	f.recording = true
	return nil
}

func (f *fakeRecorder) Stop() (*recorder.Clip, error) {
	if !f.recording {
		return nil, recorder.ErrNotRecording
	}
	f.recording = false
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	return f.clip, nil
}

func (f *fakeRecorder) IsRecording() bool { return f.recording }
func (f *fakeRecorder) Close() error      { return nil }

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, filePath string, onProgress stt.ProgressFunc) (string, error) {
	if onProgress != nil {
		onProgress(0.5)
		onProgress(1.0)
	}
	return f.text, f.err
}

func (f *fakeTranscriber) Name() string { return "fake" }
func (f *fakeTranscriber) Cancel()      {}
func (f *fakeTranscriber) Close() error { return nil }

type fakeCleaner struct {
	result *llm.Result
	err    error
	calls  int
}

func (f *fakeCleaner) ActiveProvider() string { return "anthropic" }

func (f *fakeCleaner) ProcessTranscript(ctx context.Context, transcript string) (*llm.Result, error) {
	f.calls++
	return f.result, f.err
}

type failingVault struct{}

func (failingVault) WriteNote(n *note.Note) (string, error) {
	return "", errors.New("disk full")
}

func (failingVault) CopyAudio(srcPath string) error {
	return errors.New("disk full")
}

// testCoordinator builds a coordinator over temp storage with the given
// collaborators. A nil vaultWriter leaves the vault unconfigured.
func testCoordinator(t *testing.T, rec recorder.Recorder, tr stt.Provider, cl Cleaner, vw VaultWriter) (*Coordinator, string) {
	t.Helper()
	dir := t.TempDir()
	audioDir := filepath.Join(dir, "audio")
	if err := os.MkdirAll(audioDir, 0o750); err != nil {
		t.Fatal(err)
	}

	factories := Factories{
		Recorder: func() (recorder.Recorder, error) { return rec, nil },
		Store: func() (*notestore.Store, error) {
			return notestore.Open(filepath.Join(dir, "notes.json"), audioDir)
		},
	}
	if tr != nil {
		factories.Transcriber = func() (stt.Provider, error) { return tr, nil }
	}
	if cl != nil {
		factories.Cleaner = func() (Cleaner, error) { return cl, nil }
	}
	if vw != nil {
		factories.Vault = func() (VaultWriter, error) { return vw, nil }
	}

	c := New(audioDir, factories)
	t.Cleanup(func() { c.Close() })
	return c, audioDir
}

func TestGuardExclusivity(t *testing.T) {
	rec := &fakeRecorder{clip: &recorder.Clip{AudioFilename: "a.ogg", Duration: 1, CreatedAt: time.Now()}}
	c, _ := testCoordinator(t, rec, nil, nil, nil)
	ctx := context.Background()

	if _, err := c.StopRecording(ctx); !errors.Is(err, ErrNotRecording) {
		t.Errorf("stop while idle = %v", err)
	}
	if c.State().IsRecording || c.State().IsProcessing {
		t.Error("rejected stop must not change state")
	}

	if err := c.StartRecording(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.StartRecording(ctx); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second start = %v, want ErrAlreadyRecording", err)
	}
	if !c.State().IsRecording {
		t.Error("rejected start must not clear the recording flag")
	}
}

func TestStopFailureIsFailFast(t *testing.T) {
	rec := &fakeRecorder{stopErr: errors.New("device wedged")}
	rec.clip = &recorder.Clip{AudioFilename: "a.ogg"}
	c, _ := testCoordinator(t, rec, nil, nil, nil)
	ctx := context.Background()

	if err := c.StartRecording(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.StopRecording(ctx); err == nil {
		t.Fatal("stop failure should propagate")
	}

	st := c.State()
	if st.IsRecording || st.IsProcessing {
		t.Error("flags must be reset after a failed stop")
	}
}

func TestFailureTolerance(t *testing.T) {
	start := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := &fakeRecorder{clip: &recorder.Clip{AudioFilename: "a.ogg", Duration: 10, CreatedAt: start}}
	tr := &fakeTranscriber{text: "we talked about the launch"}
	cl := &fakeCleaner{err: errors.New("429 too many requests")}

	c, audioDir := testCoordinator(t, rec, tr, cl, failingVault{})
	if err := os.WriteFile(filepath.Join(audioDir, "a.ogg"), []byte("ogg"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := c.StartRecording(ctx); err != nil {
		t.Fatal(err)
	}
	n, err := c.StopRecording(ctx)
	if err != nil {
		t.Fatalf("LLM and vault failures must be tolerated: %v", err)
	}

	if n.Status == note.StatusError {
		t.Errorf("status = %v, want non-error", n.Status)
	}
	if n.VaultPath != nil {
		t.Errorf("VaultPath = %q, want nil after vault failure", *n.VaultPath)
	}
	if n.OriginalTranscript != "we talked about the launch" {
		t.Errorf("OriginalTranscript = %q", n.OriginalTranscript)
	}
	if n.CleanedTranscript != n.OriginalTranscript {
		t.Errorf("cleanup failure should keep the original transcript, got %q", n.CleanedTranscript)
	}
	if n.Title != llm.DefaultTitle(start) {
		t.Errorf("Title = %q, want timestamp default", n.Title)
	}
	if c.State().LastNotice == "" {
		t.Error("a configured provider that failed should surface a notice")
	}

	// The note must be persisted.
	store, err := c.Store()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, got := range store.Notes() {
		if got.ID == n.ID {
			found = true
		}
	}
	if !found {
		t.Error("note missing from store after tolerated failures")
	}
}

func TestTranscriptionFailureFallsBack(t *testing.T) {
	rec := &fakeRecorder{clip: &recorder.Clip{AudioFilename: "a.ogg", Duration: 2, CreatedAt: time.Now()}}
	tr := &fakeTranscriber{err: errors.New("model crashed")}
	c, _ := testCoordinator(t, rec, tr, nil, nil)

	ctx := context.Background()
	if err := c.StartRecording(ctx); err != nil {
		t.Fatal(err)
	}
	n, err := c.StopRecording(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if n.OriginalTranscript != FallbackTranscript {
		t.Errorf("OriginalTranscript = %q, want fallback", n.OriginalTranscript)
	}
	if n.Status != note.StatusComplete {
		t.Errorf("Status = %v", n.Status)
	}
}

func TestCleanupSkippedWithoutUsableTranscript(t *testing.T) {
	start := time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)
	rec := &fakeRecorder{clip: &recorder.Clip{AudioFilename: "a.ogg", Duration: 4, CreatedAt: start}}
	tr := &fakeTranscriber{err: errors.New("model crashed")}
	cl := &fakeCleaner{result: &llm.Result{Title: "Should Not Appear"}}

	c, _ := testCoordinator(t, rec, tr, cl, nil)

	ctx := context.Background()
	if err := c.StartRecording(ctx); err != nil {
		t.Fatal(err)
	}
	n, err := c.StopRecording(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if cl.calls != 0 {
		t.Errorf("placeholder transcript must not reach the LLM, got %d calls", cl.calls)
	}
	if n.CleanedTranscript != FallbackTranscript {
		t.Errorf("CleanedTranscript = %q", n.CleanedTranscript)
	}
	if n.Title != llm.DefaultTitle(start) {
		t.Errorf("Title = %q, want timestamp default", n.Title)
	}
}

func TestNoCleanupConfiguredIsSilent(t *testing.T) {
	rec := &fakeRecorder{clip: &recorder.Clip{AudioFilename: "a.ogg", Duration: 2, CreatedAt: time.Now()}}
	tr := &fakeTranscriber{text: "three word transcript"}
	c, _ := testCoordinator(t, rec, tr, nil, nil)

	ctx := context.Background()
	if err := c.StartRecording(ctx); err != nil {
		t.Fatal(err)
	}
	n, err := c.StopRecording(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if c.State().LastNotice != "" {
		t.Errorf("no provider configured should not produce a notice, got %q", c.State().LastNotice)
	}
	if n.CleanedTranscript != n.OriginalTranscript {
		t.Error("skipped cleanup should mirror the transcript")
	}
}

func TestEndToEnd(t *testing.T) {
	start := time.Date(2026, 7, 9, 14, 30, 0, 0, time.UTC)
	rec := &fakeRecorder{clip: &recorder.Clip{
		AudioFilename: "clip.ogg",
		Duration:      35.7,
		CreatedAt:     start,
	}}
	tr := &fakeTranscriber{text: "Um, so for project X we need to, uh, finish..."}
	cl := &fakeCleaner{result: &llm.Result{
		Title:    "Project X Update",
		Cleaned:  "For Project X, we need to finish...",
		Provider: "anthropic",
		Model:    "claude-sonnet-4-5",
	}}

	vaultDir := t.TempDir()
	vw, err := vault.New(vaultDir)
	if err != nil {
		t.Fatal(err)
	}

	c, audioDir := testCoordinator(t, rec, tr, cl, vw)
	if err := os.WriteFile(filepath.Join(audioDir, "clip.ogg"), []byte("ogg"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := c.StartRecording(ctx); err != nil {
		t.Fatal(err)
	}
	n, err := c.StopRecording(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if n.Duration != 35.7 {
		t.Errorf("Duration = %v", n.Duration)
	}
	if n.OriginalTranscript != "Um, so for project X we need to, uh, finish..." {
		t.Errorf("OriginalTranscript = %q", n.OriginalTranscript)
	}
	if n.CleanedTranscript != "For Project X, we need to finish..." {
		t.Errorf("CleanedTranscript = %q", n.CleanedTranscript)
	}
	if n.Title != "Project X Update" {
		t.Errorf("Title = %q", n.Title)
	}
	if n.VaultPath == nil || *n.VaultPath != "Voice Notes/Project X Update.md" {
		t.Errorf("VaultPath = %v", n.VaultPath)
	}
	if n.Status != note.StatusComplete {
		t.Errorf("Status = %v", n.Status)
	}

	if _, err := os.Stat(filepath.Join(vaultDir, "Voice Notes", "Project X Update.md")); err != nil {
		t.Errorf("exported markdown missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(vaultDir, vault.AttachmentsSubdir, "clip.ogg")); err != nil {
		t.Errorf("audio not copied into vault: %v", err)
	}
}

func TestWarmupAndCloseWithNothingBuilt(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, Factories{
		Recorder: func() (recorder.Recorder, error) { return &fakeRecorder{}, nil },
		Store: func() (*notestore.Store, error) {
			return notestore.Open(filepath.Join(dir, "notes.json"), dir)
		},
	})

	// Close before anything is constructed.
	if err := c.Close(); err != nil {
		t.Errorf("Close on fresh coordinator: %v", err)
	}
}

func TestWarmupConstructsCollaborators(t *testing.T) {
	rec := &fakeRecorder{}
	tr := &fakeTranscriber{}
	built := 0
	dir := t.TempDir()

	c := New(dir, Factories{
		Recorder:    func() (recorder.Recorder, error) { built++; return rec, nil },
		Transcriber: func() (stt.Provider, error) { built++; return tr, nil },
		Store: func() (*notestore.Store, error) {
			built++
			return notestore.Open(filepath.Join(dir, "notes.json"), dir)
		},
	})
	defer c.Close()

	if built != 0 {
		t.Fatal("factories must not run before first use")
	}
	if err := c.Warmup(); err != nil {
		t.Fatal(err)
	}
	if built != 3 {
		t.Errorf("Warmup built %d collaborators, want 3", built)
	}
	if err := c.Warmup(); err != nil {
		t.Fatal(err)
	}
	if built != 3 {
		t.Error("Warmup must not rebuild collaborators")
	}
}
