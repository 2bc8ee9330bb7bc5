package types

import (
	"crypto/sha256"
	"errors"
	"unicode/utf8"
)

// Metadata keys written by the chunker on every chunk
const (
	MetaOriginalLength = "original_length"
	MetaTotalChunks    = "total_chunks"
)

// Chunk is one contiguous slice of a longer text.
//
// StartPos and EndPos are half-open rune offsets into the original text
// (after any global truncation), so Text == string(runes[StartPos:EndPos]).
type Chunk struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	StartPos int    `json:"start_pos"`
	EndPos   int    `json:"end_pos"`

	// IsTruncated is set when content was dropped for any reason.
	IsTruncated bool `json:"is_truncated"`
	// TruncatedBySize is set on every chunk when the input exceeded the
	// global size ceiling and was cut before chunking.
	TruncatedBySize bool `json:"truncated_by_size,omitempty"`
	// TruncatedByCount is set on the final chunk when the chunk count cap
	// was reached before the end of the text.
	TruncatedByCount bool `json:"truncated_by_count,omitempty"`

	Metadata map[string]any `json:"metadata"`
}

// Len returns the chunk length in runes
func (c *Chunk) Len() int {
	return c.EndPos - c.StartPos
}

// TotalChunks returns the total_chunks metadata value, or 0 if unset
func (c *Chunk) TotalChunks() int {
	if v, ok := c.Metadata[MetaTotalChunks].(int); ok {
		return v
	}
	return 0
}

// ContentHash returns the SHA-256 hash of the chunk text
func (c *Chunk) ContentHash() [32]byte {
	return sha256.Sum256([]byte(c.Text))
}

// Validate checks the positional invariants of the chunk
func (c *Chunk) Validate() error {
	if c.Index < 0 {
		return errors.New("chunk index must be non-negative")
	}

	if c.StartPos < 0 || c.StartPos >= c.EndPos {
		return ErrInvalidSpan
	}

	if utf8.RuneCountInString(c.Text) != c.Len() {
		return errors.New("chunk text length does not match its span")
	}

	if c.IsTruncated != (c.TruncatedBySize || c.TruncatedByCount) {
		return errors.New("truncation flags are inconsistent")
	}

	return nil
}
