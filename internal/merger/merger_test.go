package merger

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/longtext-mcp/pkg/types"
)

func set(matches ...types.Match) types.ResultSet {
	return types.ResultSet{Matches: matches}
}

func ids(r *types.MergedResult) []string {
	out := make([]string, 0, len(r.Matches))
	for _, m := range r.Matches {
		out = append(out, m.QAID)
	}
	return out
}

func TestMerge_Dedup(t *testing.T) {
	sets := []types.ResultSet{
		set(types.NewMatch("qa-1", 0.9), types.NewMatch("qa-2", 0.7)),
		set(types.NewMatch("qa-1", 0.85), types.NewMatch("qa-3", 0.8)),
	}

	result := Merge(sets, "original query")

	require.Equal(t, 3, result.Count)
	if diff := cmp.Diff([]string{"qa-1", "qa-3", "qa-2"}, ids(result)); diff != "" {
		t.Errorf("merge order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0.9, result.Matches[0].ScoreValue())
	assert.Equal(t, 0.8, result.Matches[1].ScoreValue())
	assert.Equal(t, 0.7, result.Matches[2].ScoreValue())
	assert.Equal(t, "original query", result.Query)
	assert.Equal(t, 2, result.QueryChunks)
	assert.True(t, result.Merged)
}

func TestMerge_Empty(t *testing.T) {
	result := Merge(nil, "q")

	assert.Equal(t, 0, result.Count)
	assert.Equal(t, 0, result.QueryChunks)
	assert.NotNil(t, result.Matches)
	assert.Empty(t, result.Matches)

	out, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"matches":[],"query":"q","count":0,"query_chunks":0,"merged":true}`, string(out))
}

func TestMerge_AllSetsEmpty(t *testing.T) {
	result := Merge([]types.ResultSet{set(), set(), set()}, "q")

	assert.Equal(t, 0, result.Count)
	assert.Equal(t, 3, result.QueryChunks)
}

func TestMerge_HigherScoreLaterReplacesWinner(t *testing.T) {
	winner := types.NewMatch("qa-1", 0.95).WithField("source", "chunk-2")
	sets := []types.ResultSet{
		set(types.NewMatch("qa-1", 0.4).WithField("source", "chunk-1")),
		set(winner),
	}

	result := Merge(sets, "q")

	require.Len(t, result.Matches, 1)
	assert.Equal(t, 0.95, result.Matches[0].ScoreValue())
	assert.Equal(t, "chunk-2", result.Matches[0].Fields["source"])
}

func TestMerge_TieKeepsFirstSeen(t *testing.T) {
	sets := []types.ResultSet{
		set(types.NewMatch("qa-1", 0.5).WithField("source", "first")),
		set(types.NewMatch("qa-1", 0.5).WithField("source", "second")),
	}

	result := Merge(sets, "q")

	require.Len(t, result.Matches, 1)
	assert.Equal(t, "first", result.Matches[0].Fields["source"])
}

func TestMerge_StableForEqualScores(t *testing.T) {
	sets := []types.ResultSet{
		set(types.NewMatch("c", 0.5), types.NewMatch("a", 0.5)),
		set(types.NewMatch("b", 0.5), types.NewMatch("top", 0.6)),
	}

	result := Merge(sets, "q")

	if diff := cmp.Diff([]string{"top", "c", "a", "b"}, ids(result)); diff != "" {
		t.Errorf("merge order mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_SkipsMatchesWithoutID(t *testing.T) {
	sets := []types.ResultSet{
		set(types.NewMatch("", 0.99), types.NewMatch("qa-1", 0.3)),
	}

	result := Merge(sets, "q")

	assert.Equal(t, []string{"qa-1"}, ids(result))
}

func TestMerge_MissingScoreRanksAsZero(t *testing.T) {
	sets := []types.ResultSet{
		set(types.Match{QAID: "unscored"}, types.NewMatch("negative", -0.5), types.NewMatch("scored", 0.1)),
	}

	result := Merge(sets, "q")

	assert.Equal(t, []string{"scored", "unscored", "negative"}, ids(result))
	assert.Nil(t, result.Matches[1].Score, "missing score is not filled in")
}

func TestMerge_FieldsPassThrough(t *testing.T) {
	var rs types.ResultSet
	require.NoError(t, json.Unmarshal([]byte(`{"matches":[
		{"qa_id":"qa-1","score":0.8,"question":"What is it?","answer":"A thing.","tags":["x","y"]}
	]}`), &rs))

	result := Merge([]types.ResultSet{rs}, "What")

	out, err := json.Marshal(result.Matches[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"qa_id":"qa-1","score":0.8,"question":"What is it?","answer":"A thing.","tags":["x","y"]}`, string(out))
}

func TestMerge_DoesNotAliasInput(t *testing.T) {
	in := types.NewMatch("qa-1", 0.5).WithField("k", "v")
	sets := []types.ResultSet{set(in)}

	result := Merge(sets, "q")
	result.Matches[0].Fields["k"] = "changed"
	*result.Matches[0].Score = 0

	assert.Equal(t, "v", sets[0].Matches[0].Fields["k"])
	assert.Equal(t, 0.5, sets[0].Matches[0].ScoreValue())
}

func TestFilter(t *testing.T) {
	merged := Merge([]types.ResultSet{
		set(
			types.NewMatch("a", 0.9),
			types.NewMatch("b", 0.7),
			types.NewMatch("c", 0.6),
			types.NewMatch("d", 0.2),
		),
	}, "q")

	tests := []struct {
		name     string
		minScore float64
		limit    int
		want     []string
	}{
		{"no filtering", 0, 0, []string{"a", "b", "c", "d"}},
		{"min score inclusive", 0.6, 0, []string{"a", "b", "c"}},
		{"limit", 0, 2, []string{"a", "b"}},
		{"both", 0.65, 5, []string{"a", "b"}},
		{"nothing passes", 0.95, 3, []string{}},
		{"negative limit means no cap", 0, -1, []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(merged, tt.minScore, tt.limit)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, len(tt.want), got.Count)
			assert.Equal(t, merged.QueryChunks, got.QueryChunks)
			assert.True(t, got.Merged)
		})
	}

	assert.Equal(t, 4, merged.Count, "filter must not modify its input")
}

func TestFilter_Nil(t *testing.T) {
	assert.Nil(t, Filter(nil, 0, 0))
}
