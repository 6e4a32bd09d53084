// Package tokenizer provides token counting for prompt budgeting.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Encoding is the tokenizer encoding used for counting. cl100k_base covers
// the GPT-4 family and is a close-enough estimate for compatible models.
const Encoding = "cl100k_base"

// Tokenizer counts tokens in text. Safe for concurrent use.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// New creates a tokenizer. Fails if the encoding cannot be loaded.
func New() (*Tokenizer, error) {
	encoding, err := tiktoken.GetEncoding(Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", Encoding, err)
	}
	return &Tokenizer{encoding: encoding}, nil
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}

// Truncate returns text cut down to at most maxTokens tokens. Text within
// the budget is returned unchanged.
func (t *Tokenizer) Truncate(text string, maxTokens int) string {
	tokens := t.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.encoding.Decode(tokens[:maxTokens])
}
