// Package tokens estimates how many LLM tokens a transcript will
// consume in a cleanup request.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
)

// encoding is cl100k_base, a reasonable approximation across the cloud
// providers and local models used for transcript cleanup.
const encoding = "cl100k_base"

// fallbackCharsPerToken backs the estimate when the encoding cannot be
// loaded (first use downloads the vocabulary).
const fallbackCharsPerToken = 4

var (
	enc     *tiktoken.Tiktoken
	encOnce sync.Once
)

// Estimate returns the approximate token count of text. Falls back to
// a character heuristic when the tokenizer is unavailable.
func Estimate(text string) int {
	encOnce.Do(func() {
		var err error
		enc, err = tiktoken.GetEncoding(encoding)
		if err != nil {
			L_warn("tokens: tokenizer unavailable, estimating by characters", "error", err)
		}
	})

	if enc == nil {
		return len(text) / fallbackCharsPerToken
	}
	return len(enc.Encode(text, nil, nil))
}

// safetyMargin pads input estimates; cl100k_base undercounts for
// non-OpenAI vocabularies.
const safetyMargin = 1.2

// minOutputTokens keeps a floor on the response budget.
const minOutputTokens = 100

// CapOutput bounds a requested max_tokens so input plus output fit the
// model's context window. A zero contextWindow leaves the request as is.
func CapOutput(requested, contextWindow, inputTokens int) int {
	if contextWindow <= 0 {
		return requested
	}

	available := contextWindow - int(float64(inputTokens)*safetyMargin)
	if available < minOutputTokens {
		available = minOutputTokens
	}
	if requested > 0 && requested < available {
		return requested
	}
	return available
}
