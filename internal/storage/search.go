package storage

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"
)

// searchText performs BM25 full-text search using FTS5.
// A query with no searchable terms returns no results rather than an error.
func searchText(ctx context.Context, q querier, projectID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return []TextResult{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	sqlQuery := "SELECT " + recordColumns + `,
			bm25(qa_records_fts) AS score
		FROM qa_records_fts
		INNER JOIN qa_records r ON qa_records_fts.rowid = r.id
		WHERE qa_records_fts MATCH ?
		AND r.project_id = ?
	`
	args := []interface{}{sanitized, projectID}

	sqlQuery, args = applyTextFilters(sqlQuery, args, filters)

	// Order by BM25 score (lower is better) and limit
	sqlQuery += " ORDER BY score, r.id LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextResult, 0)
	for rows.Next() {
		var bm25 float64
		record, err := scanRecord(rows, &bm25)
		if err != nil {
			return nil, err
		}

		score := normalizeBM25(bm25)
		if filters != nil && filters.MinRelevance > 0 && score < filters.MinRelevance {
			continue
		}

		results = append(results, TextResult{Record: record, BM25Score: score})
	}

	return results, rows.Err()
}

// normalizeBM25 maps an FTS5 bm25 score (negative, lower is better) onto
// (0, 1], higher is better. Typical scores fall in [-50, 0].
func normalizeBM25(score float64) float64 {
	return 1.0 / (1.0 + math.Abs(score)/50.0)
}

// applyTextFilters adds WHERE clause filters for text search
func applyTextFilters(query string, args []interface{}, filters *SearchFilters) (string, []interface{}) {
	if filters == nil {
		return query, args
	}

	if len(filters.Tags) > 0 {
		query += " AND EXISTS (SELECT 1 FROM json_each(r.tags) WHERE json_each.value IN ("
		for i, tag := range filters.Tags {
			if i > 0 {
				query += ","
			}
			query += "?"
			args = append(args, tag)
		}
		query += "))"
	}

	if filters.GroupID != "" {
		query += " AND r.group_id = ?"
		args = append(args, filters.GroupID)
	}

	if filters.ExcludeContinuations {
		query += " AND r.is_continuation = 0"
	}

	return query, args
}

// sanitizeFTSQuery turns free text into an FTS5 query that cannot carry
// operators: every term is quoted and the terms are OR-ed together, so a
// record matching any term is a candidate and BM25 ranks it. Terms without
// a letter or digit are dropped since they tokenize to nothing.
func sanitizeFTSQuery(query string) string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return unicode.IsSpace(r) || r == '"'
	})

	terms := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if !strings.ContainsFunc(f, func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsNumber(r)
		}) {
			continue
		}
		// Repeated terms add nothing to an OR query
		key := strings.ToLower(f)
		if seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, `"`+f+`"`)
	}

	return strings.Join(terms, " OR ")
}
