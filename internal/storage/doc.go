// Package storage provides SQLite-based persistence for recorded QA pairs.
//
// The storage layer manages:
//   - Projects, the namespace records are recorded under
//   - QA records, one row per split sub-record
//   - A full-text search index over queries, answers and tags
//
// # Database Schema
//
// Tables:
//   - projects: Project name and record counters
//   - qa_records: Query, answer, split metadata, tags and content hash
//   - qa_records_fts: FTS5 index kept in sync by triggers
//   - schema_version: Applied migrations (semantic versions)
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("~/.longtext/records.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	project := &storage.Project{Name: "my-project"}
//	if err := store.CreateProject(ctx, project); err != nil {
//	    return err
//	}
//
// # Transactions
//
// All records split from one answer are written in one transaction:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	for _, rec := range records {
//	    if err := tx.UpsertRecord(ctx, rec); err != nil {
//	        return err
//	    }
//	}
//
//	return tx.Commit()
//
// # Duplicate Detection
//
// Every record of a group stores the SHA-256 of the original, unsplit pair.
// GetRecordByHash finds an existing group so the same answer is not stored
// twice in one project.
//
// # Full-Text Search
//
// SearchText ranks records with BM25 and normalizes the score to (0, 1]:
//
//	results, err := store.SearchText(ctx, project.ID, "retry backoff", 10, nil)
//	for _, r := range results {
//	    fmt.Printf("%s: %.3f\n", r.Record.QAID, r.BM25Score)
//	}
//
// Free text is never passed to FTS5 as-is. Each term is quoted and the terms
// are OR-ed, so user input cannot inject FTS5 operators.
//
// # Build Tags
//
// Pure Go build (default):
//
//   - Uses modernc.org/sqlite
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build ./...
//
// CGO build (cgo_sqlite tag):
//
//   - Uses github.com/mattn/go-sqlite3
//
//   - Requires a C compiler and the sqlite_fts5 tag
//
//     CGO_ENABLED=1 go build -tags "cgo_sqlite sqlite_fts5" ./...
package storage
