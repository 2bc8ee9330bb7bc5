// Package chunker splits long text into bounded, overlapping chunks.
//
// The chunker works on runes, never bytes, so positions are stable for
// multi-byte text and a chunk never ends inside a character.
//
// # Basic Usage
//
//	c, err := chunker.New(chunker.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, ch := range c.Chunk(longText) {
//	    fmt.Printf("chunk %d: [%d, %d) truncated=%v\n",
//	        ch.Index, ch.StartPos, ch.EndPos, ch.IsTruncated)
//	}
//
// # Chunking Strategy
//
// A cursor walks the text. Each step proposes an end of cursor+maxSize and,
// with SmartBoundary enabled, moves that end back to the last natural break
// found in the preceding BoundaryWindow runes:
//   - Paragraph: one or more blank lines
//   - Sentence: terminal punctuation (Latin or CJK) or a line break
//   - Neither: the proposed end is kept
//
// The next chunk starts OverlapSize runes before the previous end, so a
// phrase cut by a split still appears whole in one of the two chunks. When
// the overlap would not move the cursor forward, the cursor jumps to the
// previous end instead.
//
// # Limits
//
// Input longer than MaxTotalSize is cut before chunking and every chunk is
// flagged TruncatedBySize. At most MaxChunks chunks are produced; when the
// cap stops chunking early, the last chunk is flagged TruncatedByCount.
// Both set IsTruncated. Neither is an error.
//
// # Metadata
//
// Every chunk carries original_length (rune length of the possibly truncated
// input) and total_chunks in its Metadata map.
//
// # Reassembly
//
//	text := chunker.Join(chunks) // original text, overlap removed
package chunker
