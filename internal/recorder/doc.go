// Package recorder stores question/answer pairs for later search.
//
// A pair whose answer exceeds the splitter ceiling is split into several
// records. Every record gets its own qa_id; all records of one pair share a
// group id equal to the first record's qa_id. One pair is written in one
// transaction, retried with exponential backoff when the write fails.
//
// # Basic Usage
//
//	rec := recorder.New(store, splitter.New(nil, splitter.DefaultConfig()), recorder.DefaultConfig(), logger)
//	rec.OnWrite(searcher.InvalidateCache)
//
//	res, err := rec.Record(ctx, recorder.RecordRequest{
//	    Project: "default",
//	    Query:   question,
//	    Answer:  answer,
//	})
//
// # Duplicates
//
// Pairs are identified by a SHA-256 of query and answer. With
// SkipDuplicates set, recording a pair already stored in the project returns
// the existing group with Duplicate set and writes nothing.
//
// # Batch Import
//
// RecordBatch writes many pairs with bounded concurrency. Failures are
// collected in BatchStatistics instead of aborting the batch, and an
// ImportLock rejects a second concurrent batch with ErrImportInProgress.
package recorder
