// Package splitter breaks an oversized question/answer pair into records
// small enough to store and index one by one.
//
// The answer is chunked with the chunker package. The first record keeps the
// original query; each later record gets a continuation query such as
//
//	How do I configure it? (continued 2/3)
//
// so every stored fragment is still findable by the question it answers.
// Record metadata links the fragments: chunk_index, total_chunks,
// is_continuation and the answer span [answer_start_pos, answer_end_pos).
package splitter
