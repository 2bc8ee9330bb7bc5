// Package types provides shared type definitions for the longtext MCP server.
//
// This package defines the values passed between the chunker, the result
// merger, the record splitter and the storage layer.
//
// # Core Types
//
// Chunk is one bounded, position-tracked slice of a longer text:
//
//	chunk := types.Chunk{
//	    Index:    1,
//	    Text:     text,
//	    StartPos: 7800,
//	    EndPos:   15800,
//	}
//
// Positions are rune offsets, so multi-byte text is never cut inside a
// character. A chunk reports dropped content through IsTruncated, and
// distinguishes the two causes through TruncatedBySize (the whole input was
// longer than the global ceiling) and TruncatedByCount (the chunk-count cap
// was reached).
//
// Match is one retrieval candidate. Only qa_id and score are interpreted;
// every other field is carried through untouched:
//
//	var m types.Match
//	_ = json.Unmarshal([]byte(`{"qa_id":"qa-1","score":0.9,"question":"..."}`), &m)
//	m.Fields["question"] // "..."
//
// MergedResult is the deduplicated, score-ordered union of the result sets
// produced for each chunk of a chunked query.
//
// QARecord is a (query, answer, metadata) triple ready for storage. When an
// answer is split, later records are marked as continuations and carry the
// answer span they cover.
//
// # Validation
//
//	if err := chunk.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := record.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package types
