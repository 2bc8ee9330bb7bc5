package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSearchData(t *testing.T, s *SQLiteStorage) (*Project, *Project) {
	t.Helper()
	ctx := context.Background()
	alpha := createTestProject(t, s, "alpha")
	beta := createTestProject(t, s, "beta")

	records := []*Record{
		{QAID: "retry", GroupID: "g-retry", ProjectID: alpha.ID,
			Query: "How do I configure retries?", Answer: "Use exponential backoff with jitter.",
			TotalChunks: 1, Tags: []string{"go", "retry"}},
		{QAID: "pool-0", GroupID: "g-pool", ProjectID: alpha.ID,
			Query: "How big should the worker pool be?", Answer: "Start with the number of CPUs.",
			TotalChunks: 2, Tags: []string{"go"}},
		{QAID: "pool-1", GroupID: "g-pool", ProjectID: alpha.ID, ChunkIndex: 1, IsContinuation: true,
			Query: "How big should the worker pool be? (continued 2/2)", Answer: "Measure before tuning the pool.",
			TotalChunks: 2, Tags: []string{"go"}},
		{QAID: "beta-retry", GroupID: "g-beta", ProjectID: beta.ID,
			Query: "Retries in Python?", Answer: "Use tenacity with backoff.",
			TotalChunks: 1, Tags: []string{"python"}},
	}
	for _, r := range records {
		require.NoError(t, s.UpsertRecord(ctx, r))
	}
	return alpha, beta
}

func resultIDs(results []TextResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Record.QAID)
	}
	return ids
}

func TestSearchText(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	alpha, beta := seedSearchData(t, storage)

	results, err := storage.SearchText(ctx, alpha.ID, "backoff", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"retry"}, resultIDs(results))
	assert.Greater(t, results[0].BM25Score, 0.0)
	assert.LessOrEqual(t, results[0].BM25Score, 1.0)
	assert.Equal(t, "How do I configure retries?", results[0].Record.Query)

	results, err = storage.SearchText(ctx, beta.ID, "backoff", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta-retry"}, resultIDs(results), "search is scoped to the project")
}

func TestSearchText_CaseInsensitive(t *testing.T) {
	storage := setupTestDB(t)
	alpha, _ := seedSearchData(t, storage)

	results, err := storage.SearchText(context.Background(), alpha.ID, "JITTER", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"retry"}, resultIDs(results))
}

func TestSearchText_AnyTermMatches(t *testing.T) {
	storage := setupTestDB(t)
	alpha, _ := seedSearchData(t, storage)

	results, err := storage.SearchText(context.Background(), alpha.ID, "jitter CPUs", 10, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"retry", "pool-0"}, resultIDs(results))
}

func TestSearchText_Limit(t *testing.T) {
	storage := setupTestDB(t)
	alpha, _ := seedSearchData(t, storage)

	results, err := storage.SearchText(context.Background(), alpha.ID, "pool", 1, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchText_NoMatch(t *testing.T) {
	storage := setupTestDB(t)
	alpha, _ := seedSearchData(t, storage)

	results, err := storage.SearchText(context.Background(), alpha.ID, "zebra", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchText_OperatorsAreLiteral(t *testing.T) {
	storage := setupTestDB(t)
	alpha, _ := seedSearchData(t, storage)

	for _, q := range []string{`NOT backoff`, `"unbalanced`, `pool*`, `(backoff`, `backoff AND`, `NEAR(pool jitter)`} {
		_, err := storage.SearchText(context.Background(), alpha.ID, q, 10, nil)
		assert.NoError(t, err, "query %q", q)
	}

	// NOT is a search term, not an operator, so backoff still matches
	results, err := storage.SearchText(context.Background(), alpha.ID, "NOT backoff", 10, nil)
	require.NoError(t, err)
	assert.Contains(t, resultIDs(results), "retry")
}

func TestSearchText_PunctuationOnly(t *testing.T) {
	storage := setupTestDB(t)
	alpha, _ := seedSearchData(t, storage)

	results, err := storage.SearchText(context.Background(), alpha.ID, "?! ...", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchText_Filters(t *testing.T) {
	storage := setupTestDB(t)
	alpha, _ := seedSearchData(t, storage)
	ctx := context.Background()

	tests := []struct {
		name    string
		query   string
		filters *SearchFilters
		want    []string
	}{
		{"tag hit", "backoff", &SearchFilters{Tags: []string{"retry"}}, []string{"retry"}},
		{"tag miss", "backoff", &SearchFilters{Tags: []string{"python"}}, []string{}},
		{"any tag", "backoff", &SearchFilters{Tags: []string{"python", "go"}}, []string{"retry"}},
		{"group", "pool", &SearchFilters{GroupID: "g-pool"}, []string{"pool-0", "pool-1"}},
		{"exclude continuations", "pool", &SearchFilters{ExcludeContinuations: true}, []string{"pool-0"}},
		{"min relevance above max", "backoff", &SearchFilters{MinRelevance: 1.01}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := storage.SearchText(ctx, alpha.ID, tt.query, 10, tt.filters)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, resultIDs(results))
		})
	}
}

func TestSearchText_FollowsUpdatesAndDeletes(t *testing.T) {
	storage := setupTestDB(t)
	alpha, _ := seedSearchData(t, storage)
	ctx := context.Background()

	rec, err := storage.GetRecord(ctx, "retry")
	require.NoError(t, err)
	rec.Answer = "Use a circuit breaker."
	require.NoError(t, storage.UpsertRecord(ctx, rec))

	results, err := storage.SearchText(ctx, alpha.ID, "jitter", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = storage.SearchText(ctx, alpha.ID, "circuit", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"retry"}, resultIDs(results))

	_, err = storage.DeleteRecordGroup(ctx, "g-retry")
	require.NoError(t, err)

	results, err = storage.SearchText(ctx, alpha.ID, "circuit", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSanitizeFTSQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"hello", `"hello"`},
		{"hello world", `"hello" OR "world"`},
		{"retry Retry retry", `"retry"`},
		{`say "hi"`, `"say" OR "hi"`},
		{"a AND b", `"a" OR "AND" OR "b"`},
		{"pool* (x)", `"pool*" OR "(x)"`},
		{"?! ...", ""},
		{"重试 策略", `"重试" OR "策略"`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFTSQuery(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeBM25(t *testing.T) {
	assert.Equal(t, 1.0, normalizeBM25(0))
	assert.InDelta(t, 0.5, normalizeBM25(-50), 1e-9)
	assert.Greater(t, normalizeBM25(-1), normalizeBM25(-10))
}
