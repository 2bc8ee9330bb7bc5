package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/longtext-mcp/pkg/types"
)

// Chunker splits long text into bounded, overlapping chunks.
// A Chunker holds only immutable configuration and is safe for concurrent use.
type Chunker struct {
	config Config
	tiers  []Boundary
}

// New creates a Chunker from a validated configuration
func New(config Config) (*Chunker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	tiers := config.Boundaries
	if tiers == nil {
		tiers = DefaultBoundaries
	}

	return &Chunker{config: config, tiers: tiers}, nil
}

// Default creates a Chunker with DefaultConfig
func Default() *Chunker {
	c, err := New(DefaultConfig())
	if err != nil {
		// DefaultConfig is always valid
		panic(fmt.Sprintf("invalid default chunker config: %v", err))
	}
	return c
}

// Config returns the chunker configuration
func (c *Chunker) Config() Config {
	return c.config
}

// Chunk splits text using the configured max chunk size
func (c *Chunker) Chunk(text string) []types.Chunk {
	return c.chunk(text, c.config.MaxChunkSize)
}

// ChunkWithMaxSize splits text using maxSize as the per-chunk ceiling
func (c *Chunker) ChunkWithMaxSize(text string, maxSize int) ([]types.Chunk, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxSize, maxSize)
	}
	return c.chunk(text, maxSize), nil
}

func (c *Chunker) chunk(text string, maxSize int) []types.Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	truncatedBySize := false
	if len(runes) > c.config.MaxTotalSize {
		runes = runes[:c.config.MaxTotalSize]
		truncatedBySize = true
	}
	n := len(runes)

	if n <= maxSize {
		return []types.Chunk{{
			Index:           0,
			Text:            string(runes),
			StartPos:        0,
			EndPos:          n,
			IsTruncated:     truncatedBySize,
			TruncatedBySize: truncatedBySize,
			Metadata: map[string]any{
				types.MetaOriginalLength: n,
				types.MetaTotalChunks:    1,
			},
		}}
	}

	chunks := make([]types.Chunk, 0, min(c.config.MaxChunks, n/maxSize+1))
	cursor := 0

	for cursor < n && len(chunks) < c.config.MaxChunks {
		end := min(cursor+maxSize, n)
		if c.config.SmartBoundary && end < n {
			end = findBoundary(runes, cursor, end, c.config.BoundaryWindow, c.tiers)
		}

		isLast := end >= n
		truncatedByCount := !isLast && len(chunks) == c.config.MaxChunks-1

		chunks = append(chunks, types.Chunk{
			Index:            len(chunks),
			Text:             string(runes[cursor:end]),
			StartPos:         cursor,
			EndPos:           end,
			IsTruncated:      truncatedBySize || truncatedByCount,
			TruncatedBySize:  truncatedBySize,
			TruncatedByCount: truncatedByCount,
			Metadata: map[string]any{
				types.MetaOriginalLength: n,
			},
		})

		if isLast {
			break
		}

		next := end - c.config.OverlapSize
		if next <= cursor {
			// Overlap swallowed the whole chunk; skip it to keep moving.
			next = end
		}
		cursor = next
	}

	for i := range chunks {
		chunks[i].Metadata[types.MetaTotalChunks] = len(chunks)
	}

	return chunks
}

// ValidateLength checks text against the global ceiling and reports whether
// it is longer than maxLength. Exceeding maxLength is not an error: callers
// chunk such text instead of rejecting it.
func (c *Chunker) ValidateLength(text string, maxLength int, name string) (needsChunking bool, err error) {
	if name == "" {
		name = "text"
	}
	if text == "" {
		return false, fmt.Errorf("%s: %w", name, ErrEmptyText)
	}
	n := utf8.RuneCountInString(text)
	if n > c.config.MaxTotalSize {
		return false, fmt.Errorf("%s: %w (%d chars)", name, ErrExceedsTotalSize, c.config.MaxTotalSize)
	}
	return n > maxLength, nil
}

// Join reassembles the text covered by an ordered chunk sequence, dropping
// the overlap between neighbours. Gaps between chunks are not filled.
func Join(chunks []types.Chunk) string {
	var b strings.Builder
	covered := 0
	for i := range chunks {
		ch := &chunks[i]
		if ch.EndPos <= covered {
			continue
		}
		text := ch.Text
		if skip := covered - ch.StartPos; skip > 0 {
			text = string([]rune(text)[skip:])
		}
		b.WriteString(text)
		covered = ch.EndPos
	}
	return b.String()
}
