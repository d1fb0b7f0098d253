package notestore

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/note"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "notes.json"), dir)
	if err != nil {
		t.Fatal(err)
	}
	return s, dir
}

func addNotes(t *testing.T, s *Store, count int) []*note.Note {
	t.Helper()
	created := make([]*note.Note, 0, count)
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		n := note.New(base.Add(time.Duration(i)*time.Minute), 5, "")
		n.Title = fmt.Sprintf("Note %d", i)
		if err := s.Add(n); err != nil {
			t.Fatal(err)
		}
		created = append(created, n)
	}
	return created
}

func TestWelcomeSeededOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")

	s, err := Open(path, dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.LoadMore(); err != nil {
		t.Fatal(err)
	}
	if s.Count() != 1 || s.Notes()[0].ID != note.WelcomeNoteID {
		t.Fatalf("first open should surface exactly the welcome note, got %d", s.Count())
	}

	// A second open must not seed again.
	s2, err := Open(path, dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s2.LoadMore(); err != nil {
		t.Fatal(err)
	}
	if s2.Count() != 1 {
		t.Errorf("welcome note duplicated on reopen: %d notes", s2.Count())
	}
}

func TestRefreshDoesNotReseedWelcome(t *testing.T) {
	s, _ := openTestStore(t)
	if err := s.LoadMore(); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(note.WelcomeNoteID); err != nil {
		t.Fatal(err)
	}
	addNotes(t, s, 3)

	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}

	for _, n := range s.Notes() {
		if n.ID == note.WelcomeNoteID {
			t.Fatal("refresh reseeded the deleted welcome note")
		}
	}
	if s.Count() != 3 {
		t.Errorf("Count = %d after refresh, want 3", s.Count())
	}
	if !s.LoadedAll() {
		t.Error("three notes fit in one page, LoadedAll should be true")
	}
}

func TestAddBetweenPagesKeepsCursorAligned(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")

	writer, err := Open(path, dir)
	if err != nil {
		t.Fatal(err)
	}
	addNotes(t, writer, 15)

	s, err := Open(path, dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.LoadMore(); err != nil {
		t.Fatal(err)
	}

	// Adding mid-pagination must not make a later page skip a record.
	added := note.New(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC), 5, "")
	added.Title = "Added Mid Page"
	if err := s.Add(added); err != nil {
		t.Fatal(err)
	}

	for !s.LoadedAll() {
		if err := s.LoadMore(); err != nil {
			t.Fatal(err)
		}
	}

	// 15 written + welcome + the mid-pagination add.
	if s.Count() != 17 {
		t.Fatalf("Count = %d, want 17", s.Count())
	}
	seen := make(map[string]bool)
	for _, n := range s.Notes() {
		if seen[n.ID] {
			t.Errorf("duplicate note %s", n.ID)
		}
		seen[n.ID] = true
	}
	if !seen[added.ID] || !seen[note.WelcomeNoteID] {
		t.Error("added or welcome note missing after interleaved paging")
	}
}

func TestWelcomeNotReseededAfterDeletion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")

	s, err := Open(path, dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.LoadMore(); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(note.WelcomeNoteID); err != nil {
		t.Fatal(err)
	}

	// The persisted flag, not collection emptiness, gates seeding.
	s2, err := Open(path, dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s2.LoadMore(); err != nil {
		t.Fatal(err)
	}
	if s2.Count() != 0 {
		t.Errorf("welcome note reappeared after deletion: %d notes", s2.Count())
	}
}

func TestPaginationCompleteness(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")
	writer, err := Open(path, dir)
	if err != nil {
		t.Fatal(err)
	}
	const added = 25
	addNotes(t, writer, added)

	// A fresh store pages the collection in from a zero cursor.
	s, err := Open(path, dir)
	if err != nil {
		t.Fatal(err)
	}

	// Page everything in: 25 added + 1 welcome = 26 records, 3 pages.
	pages := 0
	for !s.LoadedAll() {
		if err := s.LoadMore(); err != nil {
			t.Fatal(err)
		}
		pages++
		if pages > 10 {
			t.Fatal("pagination did not terminate")
		}
	}

	notes := s.Notes()
	if len(notes) != added+1 {
		t.Fatalf("loaded %d notes, want %d", len(notes), added+1)
	}
	if pages != 3 {
		t.Errorf("loaded in %d pages, want 3", pages)
	}

	// No duplicates, no gaps, most recent first, welcome last.
	seen := make(map[string]bool)
	for _, n := range notes {
		if seen[n.ID] {
			t.Errorf("duplicate note %s", n.ID)
		}
		seen[n.ID] = true
	}
	for i := 0; i < added; i++ {
		want := fmt.Sprintf("Note %d", added-1-i)
		if notes[i].Title != want {
			t.Errorf("notes[%d].Title = %q, want %q", i, notes[i].Title, want)
		}
	}
	if notes[added].ID != note.WelcomeNoteID {
		t.Errorf("welcome note should sort last")
	}
}

func TestLoadMoreAfterLoadedAllIsNoop(t *testing.T) {
	s, _ := openTestStore(t)
	for !s.LoadedAll() {
		if err := s.LoadMore(); err != nil {
			t.Fatal(err)
		}
	}
	before := s.Count()
	if err := s.LoadMore(); err != nil {
		t.Fatal(err)
	}
	if s.Count() != before {
		t.Errorf("LoadMore after loadedAll changed the working set")
	}
}

func TestAddPrependsAndPersists(t *testing.T) {
	s, dir := openTestStore(t)
	if err := s.LoadMore(); err != nil {
		t.Fatal(err)
	}
	ns := addNotes(t, s, 2)

	notes := s.Notes()
	if notes[0].ID != ns[1].ID || notes[1].ID != ns[0].ID {
		t.Error("Add should prepend most recent first")
	}

	// A fresh store over the same file sees the same order.
	s2, err := Open(filepath.Join(dir, "notes.json"), dir)
	if err != nil {
		t.Fatal(err)
	}
	for !s2.LoadedAll() {
		if err := s2.LoadMore(); err != nil {
			t.Fatal(err)
		}
	}
	persisted := s2.Notes()
	if len(persisted) != 3 {
		t.Fatalf("persisted %d notes, want 3", len(persisted))
	}
	if persisted[0].ID != ns[1].ID {
		t.Error("persisted order should be most recent first")
	}
}

func TestDeleteRemovesAudioArtifact(t *testing.T) {
	s, dir := openTestStore(t)
	if err := s.LoadMore(); err != nil {
		t.Fatal(err)
	}

	n := note.New(time.Now(), 3, "clip.ogg")
	audioPath := filepath.Join(dir, "clip.ogg")
	if err := os.WriteFile(audioPath, []byte("ogg"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(n); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(n.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(audioPath); !os.IsNotExist(err) {
		t.Error("audio artifact should be removed with the note")
	}

	for _, got := range s.Notes() {
		if got.ID == n.ID {
			t.Error("deleted note still in working set")
		}
	}
}

func TestDeleteMissingAudioTolerated(t *testing.T) {
	s, _ := openTestStore(t)
	n := note.New(time.Now(), 3, "gone.ogg")
	if err := s.Add(n); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(n.ID); err != nil {
		t.Errorf("missing audio artifact should not fail deletion: %v", err)
	}
}

func TestDeleteUnknownID(t *testing.T) {
	s, _ := openTestStore(t)
	if err := s.Delete("does-not-exist"); err == nil {
		t.Error("deleting an unknown note should fail")
	}
}
