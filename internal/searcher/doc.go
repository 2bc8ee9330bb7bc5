// Package searcher answers queries that may be longer than one search can
// take.
//
// A query is split with the chunker, each chunk is searched concurrently
// against the record store, and the per-chunk result sets are reconciled by
// the merger. Short queries take the same path with a single chunk.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, chunker.Default(), searcher.DefaultConfig(), logger)
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    ProjectID: project.ID,
//	    Query:     longQuestion,
//	    Limit:     5,
//	    MinScore:  0.6,
//	})
//
//	for _, m := range resp.Result.Matches {
//	    fmt.Printf("%s (score: %.2f)\n", m.QAID, m.ScoreValue())
//	}
//
// # Failure Handling
//
// A failed chunk search is logged and treated as a chunk with no matches,
// and the response reports it in FailedChunks. Search returns an error only
// when every chunk failed, when the context is cancelled, or when the
// request is invalid.
//
// # Caching
//
// With UseCache set, complete responses are kept in an LRU cache keyed by
// project, query, limit, min score and filters. Entries expire after the
// request's CacheTTL (default 1h). Callers get copies, so mutating a
// response never changes the cache. Writers call InvalidateCache after
// recording new records.
package searcher
