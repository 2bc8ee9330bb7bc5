package splitter

import (
	"errors"
	"fmt"

	"github.com/dshills/longtext-mcp/internal/chunker"
	"github.com/dshills/longtext-mcp/pkg/types"
)

const (
	// DefaultMaxQuerySize is the query ceiling in runes
	DefaultMaxQuerySize = chunker.DefaultMaxChunkSize

	// DefaultMaxAnswerSize is the answer ceiling in runes
	DefaultMaxAnswerSize = 3 * chunker.DefaultMaxChunkSize

	// DefaultContinuationFormat receives the query, the 1-based chunk
	// position and the chunk count
	DefaultContinuationFormat = "%s (continued %d/%d)"
)

// ErrInvalidLimit is returned for non-positive size limits
var ErrInvalidLimit = errors.New("size limit must be positive")

// Config controls record splitting
type Config struct {
	MaxQuerySize       int    // Query ceiling in runes (default: 8000)
	MaxAnswerSize      int    // Answer ceiling in runes (default: 24000)
	ContinuationFormat string // Continuation query format (default: "%s (continued %d/%d)")
}

// DefaultConfig returns the standard splitting configuration
func DefaultConfig() Config {
	return Config{
		MaxQuerySize:       DefaultMaxQuerySize,
		MaxAnswerSize:      DefaultMaxAnswerSize,
		ContinuationFormat: DefaultContinuationFormat,
	}
}

// Splitter turns one oversized question/answer pair into storable records
type Splitter struct {
	chunker *chunker.Chunker
	config  Config
}

// New creates a Splitter. A nil chunker means chunker.Default(); zero
// config fields take their defaults.
func New(c *chunker.Chunker, cfg Config) *Splitter {
	if c == nil {
		c = chunker.Default()
	}
	if cfg.MaxQuerySize <= 0 {
		cfg.MaxQuerySize = DefaultMaxQuerySize
	}
	if cfg.MaxAnswerSize <= 0 {
		cfg.MaxAnswerSize = DefaultMaxAnswerSize
	}
	if cfg.ContinuationFormat == "" {
		cfg.ContinuationFormat = DefaultContinuationFormat
	}
	return &Splitter{chunker: c, config: cfg}
}

// Config returns the splitter configuration
func (s *Splitter) Config() Config {
	return s.config
}

// Split splits using the configured ceilings
func (s *Splitter) Split(query, answer string) []types.QARecord {
	records, _ := s.SplitWithLimits(query, answer, s.config.MaxQuerySize, s.config.MaxAnswerSize)
	return records
}

// SplitWithLimits splits answer into records of at most maxAnswer runes.
//
// A query longer than maxQuery is cut hard. An answer that fits yields a
// single record without a span. Otherwise the answer is chunked: the first
// record keeps the query and later records get a continuation query built
// from ContinuationFormat. Split records carry their answer span.
func (s *Splitter) SplitWithLimits(query, answer string, maxQuery, maxAnswer int) ([]types.QARecord, error) {
	if maxQuery <= 0 {
		return nil, fmt.Errorf("max query size: %w, got %d", ErrInvalidLimit, maxQuery)
	}
	if maxAnswer <= 0 {
		return nil, fmt.Errorf("max answer size: %w, got %d", ErrInvalidLimit, maxAnswer)
	}

	if q := []rune(query); len(q) > maxQuery {
		query = string(q[:maxQuery])
	}

	if len([]rune(answer)) <= maxAnswer {
		return []types.QARecord{{
			Query:  query,
			Answer: answer,
			Metadata: types.RecordMetadata{
				ChunkIndex:  0,
				TotalChunks: 1,
			},
		}}, nil
	}

	chunks, err := s.chunker.ChunkWithMaxSize(answer, maxAnswer)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk answer: %w", err)
	}

	total := len(chunks)
	records := make([]types.QARecord, 0, total)
	for _, ch := range chunks {
		q := query
		if ch.Index > 0 {
			q = fmt.Sprintf(s.config.ContinuationFormat, query, ch.Index+1, total)
		}

		start, end := ch.StartPos, ch.EndPos
		records = append(records, types.QARecord{
			Query:  q,
			Answer: ch.Text,
			Metadata: types.RecordMetadata{
				ChunkIndex:      ch.Index,
				TotalChunks:     total,
				IsContinuation:  ch.Index > 0,
				AnswerStartPos:  &start,
				AnswerEndPos:    &end,
				AnswerTruncated: ch.IsTruncated,
			},
		})
	}

	return records, nil
}
