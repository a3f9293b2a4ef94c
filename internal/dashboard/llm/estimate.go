package llm

import (
	"strings"
	"unicode/utf8"
)

// EstimateTokens approximates the token count of text. It averages a
// character-based estimate (~4 chars per token) with a word-based one
// (~1.3 tokens per word), floored to an integer.
//
// Only used when real usage counts are unavailable: pre-call sizing and
// failed calls. Never overrides metered counts from the vendor.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	charCount := utf8.RuneCountInString(text)
	wordCount := len(strings.Fields(text))

	charEstimate := float64(charCount) / 4
	wordEstimate := float64(wordCount) * 1.3

	return int((charEstimate + wordEstimate) / 2)
}
