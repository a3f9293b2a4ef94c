package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokensEmpty(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
}

func TestEstimateTokensKnownValues(t *testing.T) {
	tests := []struct {
		text     string
		expected int
	}{
		// 4 chars, 1 word: (1 + 1.3)/2 = 1.15 -> 1
		{"word", 1},
		// 11 chars, 2 words: (2.75 + 2.6)/2 = 2.675 -> 2
		{"hello world", 2},
		// 35 chars, 7 words: (8.75 + 9.1)/2 = 8.925 -> 8
		{"the quick brown fox jumps over lazy", 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, EstimateTokens(tt.text), "text %q", tt.text)
	}
}

func TestEstimateTokensMonotonicForRepeatedChars(t *testing.T) {
	prev := 0
	for n := 1; n <= 2000; n *= 2 {
		est := EstimateTokens(strings.Repeat("a", n))
		assert.GreaterOrEqual(t, est, prev, "length %d", n)
		prev = est
	}
}

func TestEstimateTokensNonNegative(t *testing.T) {
	for _, text := range []string{" ", "\n\t", "a", "é", strings.Repeat("x y ", 100)} {
		assert.GreaterOrEqual(t, EstimateTokens(text), 0)
	}
}
