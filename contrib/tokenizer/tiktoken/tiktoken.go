// Package tiktoken provides a research.Tokenizer backed by the tiktoken BPE
// encodings, used to keep evaluation prompts inside a token budget.
package tiktoken

import (
	"github.com/pkoukk/tiktoken-go"
)

type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New creates a tokenizer for the given model or encoding name.
func New(name string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		// try by encoding name
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Truncate returns text cut down to at most maxTokens tokens.
func (t *Tokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	ids := t.enc.Encode(text, nil, nil)
	if len(ids) <= maxTokens {
		return text
	}
	return t.enc.Decode(ids[:maxTokens])
}
