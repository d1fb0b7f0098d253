package vault

import (
	"fmt"
	"strings"

	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/note"
)

// renderMarkdown builds the Obsidian note body: YAML front matter, the
// cleaned transcript, an audio embed, and the original transcript for
// reference.
func renderMarkdown(n *note.Note) string {
	var b strings.Builder

	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %s\n", yamlString(n.Title))
	fmt.Fprintf(&b, "date: %s\n", n.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "duration: %.1f\n", n.Duration)
	b.WriteString("tags: [voice-note]\n")
	b.WriteString("---\n\n")

	transcript := n.CleanedTranscript
	if transcript == "" {
		transcript = n.OriginalTranscript
	}
	b.WriteString(transcript)
	b.WriteString("\n")

	if n.AudioFilename != "" {
		fmt.Fprintf(&b, "\n![[%s]]\n", n.AudioFilename)
	}

	if n.CleanedTranscript != "" && n.OriginalTranscript != "" &&
		n.CleanedTranscript != n.OriginalTranscript {
		b.WriteString("\n#### Original Transcript\n\n")
		b.WriteString(n.OriginalTranscript)
		b.WriteString("\n")
	}

	return b.String()
}

// yamlString quotes a scalar when it contains characters that would
// change its YAML meaning.
func yamlString(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, ":#'\"{}[]&,%@`|>!") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}
