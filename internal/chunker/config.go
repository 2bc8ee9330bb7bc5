package chunker

import (
	"errors"
	"fmt"
)

const (
	// DefaultMaxChunkSize is the default per-chunk ceiling in runes
	DefaultMaxChunkSize = 8000

	// DefaultOverlapSize is the number of runes shared by adjacent chunks
	DefaultOverlapSize = 200

	// DefaultMaxChunks caps the number of chunks produced for one input
	DefaultMaxChunks = 20

	// DefaultMaxTotalSize is the global input ceiling; longer input is truncated
	DefaultMaxTotalSize = 500000

	// DefaultBoundaryWindow is how far back from a proposed chunk end the
	// boundary search looks
	DefaultBoundaryWindow = 200
)

var (
	// ErrInvalidConfig is returned by New for unusable configuration
	ErrInvalidConfig = errors.New("invalid chunker configuration")

	// ErrInvalidMaxSize is returned when a non-positive max size is requested
	ErrInvalidMaxSize = errors.New("max size must be positive")

	// ErrEmptyText is returned by ValidateLength for empty input
	ErrEmptyText = errors.New("text is empty")

	// ErrExceedsTotalSize is returned by ValidateLength for input beyond the global ceiling
	ErrExceedsTotalSize = errors.New("text exceeds maximum total size")
)

// Config controls how text is split
type Config struct {
	MaxChunkSize   int  // Per-chunk ceiling in runes (default: 8000)
	OverlapSize    int  // Runes shared between adjacent chunks (default: 200)
	MaxChunks      int  // Maximum chunks per input (default: 20)
	MaxTotalSize   int  // Global input ceiling in runes (default: 500000)
	SmartBoundary  bool // Prefer paragraph/sentence breaks (default: true)
	BoundaryWindow int  // Lookback for the boundary search (default: 200)

	// Boundaries overrides the boundary tiers. Nil means DefaultBoundaries.
	Boundaries []Boundary
}

// DefaultConfig returns the standard chunking configuration
func DefaultConfig() Config {
	return Config{
		MaxChunkSize:   DefaultMaxChunkSize,
		OverlapSize:    DefaultOverlapSize,
		MaxChunks:      DefaultMaxChunks,
		MaxTotalSize:   DefaultMaxTotalSize,
		SmartBoundary:  true,
		BoundaryWindow: DefaultBoundaryWindow,
	}
}

// Validate rejects sizes that cannot produce chunks.
// An overlap as large as the chunk size is accepted; the chunker forces
// forward progress in that case.
func (c Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: max chunk size must be positive, got %d", ErrInvalidConfig, c.MaxChunkSize)
	}
	if c.OverlapSize < 0 {
		return fmt.Errorf("%w: overlap size cannot be negative, got %d", ErrInvalidConfig, c.OverlapSize)
	}
	if c.MaxChunks <= 0 {
		return fmt.Errorf("%w: max chunks must be positive, got %d", ErrInvalidConfig, c.MaxChunks)
	}
	if c.MaxTotalSize <= 0 {
		return fmt.Errorf("%w: max total size must be positive, got %d", ErrInvalidConfig, c.MaxTotalSize)
	}
	if c.BoundaryWindow < 0 {
		return fmt.Errorf("%w: boundary window cannot be negative, got %d", ErrInvalidConfig, c.BoundaryWindow)
	}
	for i, b := range c.Boundaries {
		if b.Pattern == nil {
			return fmt.Errorf("%w: boundary %d (%s) has no pattern", ErrInvalidConfig, i, b.Name)
		}
	}
	return nil
}
