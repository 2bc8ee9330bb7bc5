package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidSpan         = errors.New("start position must be non-negative and before end position")
	ErrEmptyQuery          = errors.New("query cannot be empty")
	ErrInvalidChunkIndex   = errors.New("chunk index must be within [0, total_chunks)")
	ErrInvalidContinuation = errors.New("only non-first records may be continuations")
)
