package llm

import (
	"strings"
	"time"
)

// ForbiddenTitleChars are characters that may not appear in note titles
// because they break wiki links or filesystem paths.
const ForbiddenTitleChars = `*"/\<>:|?[]#^`

const systemPrompt = `You are an assistant that cleans up raw voice memo transcripts. You remove filler words, fix grammar and punctuation, and preserve the speaker's meaning and tone. You always answer in the exact output format you are asked for, with no extra commentary.`

const titleMarker = "TITLE:"
const transcriptMarker = "CLEANED TRANSCRIPT:"

// BuildPrompt assembles the cleanup request for a raw transcript.
// customWords, when present, are domain terms the model should prefer
// when the transcription looks close but misspelled.
func BuildPrompt(transcript string, customWords []string) string {
	var b strings.Builder

	b.WriteString("Below is the raw transcript of a voice memo. Rewrite it so that:\n")
	b.WriteString("- filler words (um, uh, like, you know) are removed\n")
	b.WriteString("- grammar and punctuation are corrected\n")
	b.WriteString("- the speaker's meaning and tone are preserved\n\n")

	b.WriteString("Also write a short descriptive title of 5 to 7 words. ")
	b.WriteString("The title must not contain any of these characters: ")
	b.WriteString(ForbiddenTitleChars)
	b.WriteString("\n\n")

	if len(customWords) > 0 {
		b.WriteString("The speaker uses these specific terms. If a word in the transcript looks like a mistranscription of one of them, use the correct spelling: ")
		b.WriteString(strings.Join(customWords, ", "))
		b.WriteString("\n\n")
	}

	b.WriteString("Answer in exactly this format:\n")
	b.WriteString(titleMarker + " <title>\n\n")
	b.WriteString(transcriptMarker + "\n<cleaned transcript>\n\n")

	b.WriteString("TRANSCRIPT:\n")
	b.WriteString(transcript)

	return b.String()
}

// ParseResponse extracts the title and cleaned transcript from a model
// response. Either marker may be missing: a missing title falls back to
// a timestamp title and a missing transcript marker falls back to the
// whole response.
func ParseResponse(response string, now time.Time) (title string, cleaned string) {
	title = parseTitle(response)
	if title == "" {
		title = DefaultTitle(now)
	}

	cleaned = parseCleanedTranscript(response)
	if cleaned == "" {
		cleaned = strings.TrimSpace(response)
	}
	return title, cleaned
}

// DefaultTitle is used when the model response carries no usable title.
func DefaultTitle(t time.Time) string {
	return "Voice Note " + t.Format("Jan 2, 2006 3:04 PM")
}

func parseTitle(response string) string {
	idx := strings.Index(response, titleMarker)
	if idx < 0 {
		return ""
	}
	rest := response[idx+len(titleMarker):]

	// The title runs to the first blank line, or to the transcript
	// marker when the model skipped the blank line.
	if end := strings.Index(rest, "\n\n"); end >= 0 {
		rest = rest[:end]
	}
	if end := strings.Index(rest, transcriptMarker); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func parseCleanedTranscript(response string) string {
	idx := strings.Index(response, transcriptMarker)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(response[idx+len(transcriptMarker):])
}
