package merger

import (
	"sort"

	"github.com/dshills/longtext-mcp/pkg/types"
)

// Merge combines per-chunk result sets into one deduplicated, ranked result.
//
// Matches are flattened in input order and keyed by QAID. For each key the
// match with the strictly highest score is kept; on equal scores the first
// one seen stays. Matches without a QAID are dropped. The output is sorted by
// descending score, stable with respect to first-seen order.
//
// Merge never fails: no input, or only empty sets, yields an empty result
// with QueryChunks set to len(sets). The winning matches are returned as
// independent copies.
func Merge(sets []types.ResultSet, query string) *types.MergedResult {
	winners := make(map[string]int)
	matches := make([]types.Match, 0)

	for _, set := range sets {
		for _, m := range set.Matches {
			if m.QAID == "" {
				continue
			}
			i, seen := winners[m.QAID]
			if !seen {
				winners[m.QAID] = len(matches)
				matches = append(matches, m.Clone())
				continue
			}
			if m.ScoreValue() > matches[i].ScoreValue() {
				matches[i] = m.Clone()
			}
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].ScoreValue() > matches[b].ScoreValue()
	})

	return &types.MergedResult{
		Matches:     matches,
		Query:       query,
		Count:       len(matches),
		QueryChunks: len(sets),
		Merged:      true,
	}
}

// Filter returns a copy of result keeping matches scored at least minScore,
// capped at limit entries. A limit of zero or less means no cap.
// Matches without a score count as 0.
func Filter(result *types.MergedResult, minScore float64, limit int) *types.MergedResult {
	if result == nil {
		return nil
	}

	out := &types.MergedResult{
		Matches:     make([]types.Match, 0, len(result.Matches)),
		Query:       result.Query,
		QueryChunks: result.QueryChunks,
		Merged:      result.Merged,
	}

	for _, m := range result.Matches {
		if limit > 0 && len(out.Matches) >= limit {
			break
		}
		if m.ScoreValue() < minScore {
			continue
		}
		out.Matches = append(out.Matches, m.Clone())
	}
	out.Count = len(out.Matches)

	return out
}
