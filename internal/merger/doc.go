// Package merger reconciles search results produced for the chunks of one
// long query.
//
// When a query is too long to search in one piece it is chunked and each
// chunk is searched on its own. The same knowledge item often matches more
// than one chunk, so the per-chunk result sets overlap. Merge folds them back
// into a single answer:
//
//	merged := merger.Merge([]types.ResultSet{first, second}, originalQuery)
//	top := merger.Filter(merged, 0.6, 5)
//
// Deduplication is by qa_id and the strongest score wins; scores are never
// summed or averaged. Every other field of a match is carried through
// untouched from the winning instance.
package merger
