// Package vault writes finished voice notes into an Obsidian vault.
package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/note"
)

const (
	// NotesSubdir is where voice notes land inside the vault.
	NotesSubdir = "Voice Notes"

	// AttachmentsSubdir receives copied audio artifacts.
	AttachmentsSubdir = "Voice Notes/Attachments"
)

// forbiddenTitleChars break Obsidian wiki links or filesystem paths and
// are stripped from filenames.
const forbiddenTitleChars = `*"/\<>:|?[]#^`

// Writer exports notes as markdown files under a vault root.
type Writer struct {
	root string // absolute path to the vault directory
}

// New creates a writer rooted at dir. The directory must exist.
func New(dir string) (*Writer, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: root is not a directory: %s", abs)
	}
	return &Writer{root: abs}, nil
}

// Root returns the absolute vault root.
func (w *Writer) Root() string {
	return w.root
}

// WriteNote renders n as markdown and writes it under the notes
// subdirectory, avoiding collisions with existing files. It returns the
// vault-relative path of the written file.
func (w *Writer) WriteNote(n *note.Note) (string, error) {
	name := SanitizeTitle(n.Title)
	if name == "" {
		name = "Voice Note"
	}

	rel, err := w.availablePath(name)
	if err != nil {
		return "", err
	}

	content := renderMarkdown(n)
	if err := w.write(rel, []byte(content)); err != nil {
		return "", err
	}

	L_info("vault: note written", "path", rel, "title", n.Title)
	return rel, nil
}

// CopyAudio copies an audio artifact into the attachments subdirectory.
// The copy keeps the original filename so embed links resolve.
func (w *Writer) CopyAudio(srcPath string) error {
	filename := filepath.Base(srcPath)
	abs, err := w.safePath(filepath.Join(AttachmentsSubdir, filename))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("vault: mkdir attachments: %w", err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("vault: open audio: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(filepath.Dir(abs), ".voicenote-audio-*")
	if err != nil {
		return fmt.Errorf("vault: create temp: %w", err)
	}
	tmpName := dst.Name()

	success := false
	defer func() {
		if !success {
			_ = dst.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("vault: copy audio: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("vault: fsync audio: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("vault: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("vault: rename audio: %w", err)
	}
	success = true

	L_debug("vault: audio copied", "file", filename)
	return nil
}

// SanitizeTitle removes characters that cannot appear in vault
// filenames and collapses the remaining whitespace.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if strings.ContainsRune(forbiddenTitleChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// availablePath finds a collision-free relative path for a note name,
// trying "Name.md", then "Name 2.md", "Name 3.md" and so on.
func (w *Writer) availablePath(name string) (string, error) {
	for i := 1; ; i++ {
		candidate := name
		if i > 1 {
			candidate = fmt.Sprintf("%s %d", name, i)
		}
		rel := filepath.Join(NotesSubdir, candidate+".md")
		abs, err := w.safePath(rel)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			return rel, nil
		} else if err != nil {
			return "", fmt.Errorf("vault: stat %s: %w", rel, err)
		}
	}
}

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it.
func (w *Writer) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("vault: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(w.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("vault: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, w.root+string(os.PathSeparator)) && abs != w.root {
		return "", fmt.Errorf("vault: path escapes vault root: %s", rel)
	}
	return abs, nil
}

// write atomically writes content: tmp file, fsync, rename.
func (w *Writer) write(rel string, content []byte) error {
	abs, err := w.safePath(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vault: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".voicenote-tmp-*")
	if err != nil {
		return fmt.Errorf("vault: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("vault: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("vault: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vault: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("vault: rename: %w", err)
	}
	success = true
	return nil
}
