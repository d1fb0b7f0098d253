// Package notestore provides durable, paginated storage of voice notes.
//
// The backing store is a single JSON file holding the full ordered
// collection (most recent first), rewritten wholesale on every mutation.
// That trades write efficiency for simplicity, which is fine at the
// expected scale of hundreds of notes. The in-memory working set is
// filled page by page via LoadMore.
package notestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/bus"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/config"
	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/note"
)

// PageSize is the number of notes loaded per LoadMore call.
const PageSize = 10

// storeState is the sidecar state persisted next to the notes file.
// WelcomeSeeded is authoritative: once true the welcome note is never
// re-inserted, even if the notes file itself was lost.
type storeState struct {
	WelcomeSeeded bool `json:"welcomeSeeded"`
}

// Store owns the in-memory working set of notes. The working set, the
// pagination cursor, and the backing-file reads and writes all happen
// under a single mutex (single-writer discipline).
type Store struct {
	path      string // notes collection file
	statePath string // welcome-flag sidecar
	audioDir  string // where audio artifacts live; "" disables artifact deletion

	mu        sync.Mutex
	notes     []*note.Note
	offset    int // records consumed from the backing collection
	loadedAll bool
}

// Open creates a store over the collection file at path. Audio artifacts
// referenced by notes are resolved against audioDir when deleting.
// The first-ever open seeds the welcome note exactly once.
func Open(path, audioDir string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("notestore: path not configured")
	}

	s := &Store{
		path:      path,
		statePath: path + ".state",
		audioDir:  audioDir,
	}

	if err := s.seedWelcome(); err != nil {
		return nil, err
	}

	L_debug("notestore: opened", "path", path)
	return s, nil
}

// seedWelcome inserts the onboarding note on first-ever run, gated by the
// persisted one-time flag.
func (s *Store) seedWelcome() error {
	state, err := s.readState()
	if err != nil {
		return err
	}
	if state.WelcomeSeeded {
		return nil
	}

	all, err := s.readAll()
	if err != nil {
		return err
	}

	// Oldest entry in the collection, so it sorts last.
	all = append(all, note.Welcome(time.Now()))
	if err := s.writeAll(all); err != nil {
		return err
	}

	state.WelcomeSeeded = true
	if err := config.AtomicWriteJSON(s.statePath, state, 0600); err != nil {
		return fmt.Errorf("notestore: persist state: %w", err)
	}

	L_info("notestore: welcome note seeded")
	return nil
}

// LoadMore loads the next page from the backing store into the working
// set. It is a no-op once everything is loaded. The read and the cursor
// advance happen under one lock hold so a concurrent Add cannot shift
// the collection out from under the snapshot.
func (s *Store) LoadMore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadedAll {
		return nil
	}

	all, err := s.readAll()
	if err != nil {
		return err
	}

	end := s.offset + PageSize
	if end >= len(all) {
		end = len(all)
		s.loadedAll = true
	}
	if s.offset < end {
		s.notes = append(s.notes, all[s.offset:end]...)
		s.offset = end
	}

	L_debug("notestore: page loaded", "loaded", len(s.notes), "total", len(all), "loadedAll", s.loadedAll)
	return nil
}

// Refresh discards the working set and pagination cursor, then loads the
// first page.
func (s *Store) Refresh() error {
	s.mu.Lock()
	s.notes = nil
	s.offset = 0
	s.loadedAll = false
	s.mu.Unlock()

	return s.LoadMore()
}

// Add inserts a new note at the head of the working set and persists the
// entire updated collection.
func (s *Store) Add(n *note.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return err
	}

	all = append([]*note.Note{n}, all...)
	if err := s.writeAll(all); err != nil {
		return err
	}

	s.notes = append([]*note.Note{n}, s.notes...)
	s.offset++

	bus.Publish(bus.TopicNoteAdded, n.ID)
	L_info("notestore: note added", "id", n.ID, "title", n.Title)
	return nil
}

// Delete removes a note and its backing audio artifact. Artifact removal
// is best-effort; a missing file is tolerated. Markdown previously
// exported to the vault is left in place.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return err
	}

	var removed *note.Note
	kept := all[:0]
	for _, n := range all {
		if n.ID == id {
			removed = n
			continue
		}
		kept = append(kept, n)
	}
	if removed == nil {
		return fmt.Errorf("notestore: note not found: %s", id)
	}

	if err := s.writeAll(kept); err != nil {
		return err
	}

	if removed.AudioFilename != "" && s.audioDir != "" {
		audioPath := filepath.Join(s.audioDir, removed.AudioFilename)
		if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
			L_warn("notestore: failed to remove audio artifact", "path", audioPath, "error", err)
		}
	}

	for i, n := range s.notes {
		if n.ID == id {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			s.offset--
			break
		}
	}

	bus.Publish(bus.TopicNoteDeleted, id)
	L_info("notestore: note deleted", "id", id)
	return nil
}

// Notes returns a snapshot of the loaded working set, most recent first.
func (s *Store) Notes() []*note.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*note.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

// LoadedAll reports whether the full backing collection has been paged in.
func (s *Store) LoadedAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedAll
}

// Count returns the size of the loaded working set.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

func (s *Store) readAll() ([]*note.Note, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("notestore: read %s: %w", s.path, err)
	}

	var all []*note.Note
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("notestore: parse %s: %w", s.path, err)
	}
	return all, nil
}

func (s *Store) writeAll(all []*note.Note) error {
	if all == nil {
		all = []*note.Note{}
	}
	if err := config.AtomicWriteJSON(s.path, all, 0600); err != nil {
		return fmt.Errorf("notestore: persist: %w", err)
	}
	return nil
}

func (s *Store) readState() (*storeState, error) {
	state := &storeState{}
	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return nil, fmt.Errorf("notestore: read state: %w", err)
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("notestore: parse state: %w", err)
	}
	return state, nil
}
