package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrNestedTx is returned by BeginTx on a transaction
	ErrNestedTx = errors.New("nested transactions not supported")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single writer; also keeps an in-memory database on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Project operations

func createProject(ctx context.Context, q querier, project *Project) error {
	query := `
		INSERT INTO projects (name, created_at, updated_at)
		VALUES (?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query, project.Name, now, now)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	project.ID = id
	project.CreatedAt = now
	project.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateProject(ctx context.Context, project *Project) error {
	return createProject(ctx, s.querier(), project)
}

const projectColumns = `id, name, total_records, last_recorded_at, created_at, updated_at`

func scanProject(row *sql.Row) (*Project, error) {
	var project Project
	var lastRecordedAt sql.NullTime
	err := row.Scan(
		&project.ID, &project.Name, &project.TotalRecords,
		&lastRecordedAt, &project.CreatedAt, &project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastRecordedAt.Valid {
		project.LastRecordedAt = lastRecordedAt.Time
	}
	return &project, nil
}

func getProject(ctx context.Context, q querier, name string) (*Project, error) {
	return scanProject(q.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE name = ?", name))
}

func getProjectByID(ctx context.Context, q querier, projectID int64) (*Project, error) {
	return scanProject(q.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", projectID))
}

func (s *SQLiteStorage) GetProject(ctx context.Context, name string) (*Project, error) {
	return getProject(ctx, s.querier(), name)
}

func updateProject(ctx context.Context, q querier, project *Project) error {
	query := `
		UPDATE projects
		SET total_records = ?, last_recorded_at = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	var lastRecordedAt interface{}
	if !project.LastRecordedAt.IsZero() {
		lastRecordedAt = project.LastRecordedAt
	}
	result, err := q.ExecContext(ctx, query, project.TotalRecords, lastRecordedAt, now, project.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	project.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateProject(ctx context.Context, project *Project) error {
	return updateProject(ctx, s.querier(), project)
}

// Record operations

func upsertRecord(ctx context.Context, q querier, record *Record) error {
	tags := record.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `
		INSERT INTO qa_records (
			qa_id, group_id, project_id, query, answer, content_hash,
			chunk_index, total_chunks, is_continuation,
			answer_start_pos, answer_end_pos, answer_truncated,
			tags, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(qa_id) DO UPDATE SET
			group_id = excluded.group_id,
			query = excluded.query,
			answer = excluded.answer,
			content_hash = excluded.content_hash,
			chunk_index = excluded.chunk_index,
			total_chunks = excluded.total_chunks,
			is_continuation = excluded.is_continuation,
			answer_start_pos = excluded.answer_start_pos,
			answer_end_pos = excluded.answer_end_pos,
			answer_truncated = excluded.answer_truncated,
			tags = excluded.tags,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	err = q.QueryRowContext(ctx, query,
		record.QAID, record.GroupID, record.ProjectID, record.Query, record.Answer,
		record.ContentHash[:], record.ChunkIndex, record.TotalChunks, record.IsContinuation,
		record.AnswerStartPos, record.AnswerEndPos, record.AnswerTruncated,
		string(tagsJSON), createdAt, now).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}

	record.CreatedAt = createdAt
	record.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertRecord(ctx context.Context, record *Record) error {
	return upsertRecord(ctx, s.querier(), record)
}

const recordColumns = `
	r.id, r.qa_id, r.group_id, r.project_id, r.query, r.answer, r.content_hash,
	r.chunk_index, r.total_chunks, r.is_continuation,
	r.answer_start_pos, r.answer_end_pos, r.answer_truncated,
	r.tags, r.created_at, r.updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord reads recordColumns followed by any extra destinations
func scanRecord(row rowScanner, extra ...interface{}) (*Record, error) {
	var record Record
	var hash []byte
	var startPos, endPos sql.NullInt64
	var tags string

	dest := []interface{}{
		&record.ID, &record.QAID, &record.GroupID, &record.ProjectID,
		&record.Query, &record.Answer, &hash,
		&record.ChunkIndex, &record.TotalChunks, &record.IsContinuation,
		&startPos, &endPos, &record.AnswerTruncated,
		&tags, &record.CreatedAt, &record.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	copy(record.ContentHash[:], hash)
	if startPos.Valid {
		v := int(startPos.Int64)
		record.AnswerStartPos = &v
	}
	if endPos.Valid {
		v := int(endPos.Int64)
		record.AnswerEndPos = &v
	}
	if err := json.Unmarshal([]byte(tags), &record.Tags); err != nil {
		return nil, fmt.Errorf("invalid tags for record %s: %w", record.QAID, err)
	}
	return &record, nil
}

func getRecord(ctx context.Context, q querier, qaID string) (*Record, error) {
	row := q.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM qa_records r WHERE r.qa_id = ?", qaID)
	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return record, err
}

func (s *SQLiteStorage) GetRecord(ctx context.Context, qaID string) (*Record, error) {
	return getRecord(ctx, s.querier(), qaID)
}

// getRecordByHash returns the first record of the oldest group with the hash
func getRecordByHash(ctx context.Context, q querier, projectID int64, contentHash [32]byte) (*Record, error) {
	query := "SELECT " + recordColumns + `
		FROM qa_records r
		WHERE r.project_id = ? AND r.content_hash = ?
		ORDER BY r.id, r.chunk_index
		LIMIT 1
	`
	record, err := scanRecord(q.QueryRowContext(ctx, query, projectID, contentHash[:]))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return record, err
}

func (s *SQLiteStorage) GetRecordByHash(ctx context.Context, projectID int64, contentHash [32]byte) (*Record, error) {
	return getRecordByHash(ctx, s.querier(), projectID, contentHash)
}

func listRecordsByGroup(ctx context.Context, q querier, groupID string) ([]*Record, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+recordColumns+" FROM qa_records r WHERE r.group_id = ? ORDER BY r.chunk_index", groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteStorage) ListRecordsByGroup(ctx context.Context, groupID string) ([]*Record, error) {
	return listRecordsByGroup(ctx, s.querier(), groupID)
}

func deleteRecordGroup(ctx context.Context, q querier, groupID string) (int, error) {
	result, err := q.ExecContext(ctx, "DELETE FROM qa_records WHERE group_id = ?", groupID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete record group: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStorage) DeleteRecordGroup(ctx context.Context, groupID string) (int, error) {
	return deleteRecordGroup(ctx, s.querier(), groupID)
}

func countRecords(ctx context.Context, q querier, projectID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM qa_records WHERE project_id = ?", projectID).Scan(&n)
	return n, err
}

func (s *SQLiteStorage) CountRecords(ctx context.Context, projectID int64) (int, error) {
	return countRecords(ctx, s.querier(), projectID)
}

// Search operations

func (s *SQLiteStorage) SearchText(ctx context.Context, projectID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return searchText(ctx, s.querier(), projectID, query, limit, filters)
}

// Status operations

func getStatus(ctx context.Context, q querier, projectID int64) (*ProjectStatus, error) {
	project, err := getProjectByID(ctx, q, projectID)
	if err != nil {
		return nil, err
	}

	status := &ProjectStatus{
		Project:        project,
		LastRecordedAt: project.LastRecordedAt,
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT group_id),
		       COALESCE(SUM(is_continuation), 0),
		       COALESCE(SUM(answer_truncated), 0)
		FROM qa_records
		WHERE project_id = ?
	`, projectID).Scan(&status.RecordsCount, &status.GroupsCount, &status.ContinuationCount, &status.TruncatedCount)
	if err != nil {
		return nil, err
	}

	// Calculate database size
	var pageCount, pageSize int
	err = q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DatabaseSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	var ftsTable string
	ftsErr := q.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='qa_records_fts'").Scan(&ftsTable)

	status.Health = HealthStatus{
		DatabaseAccessible: true,
		FTSIndexesBuilt:    ftsErr == nil,
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error) {
	return getStatus(ctx, s.querier(), projectID)
}

// Transaction implementations. Every operation runs on the transaction;
// with a single pooled connection, touching the DB handle here would block.

func (t *sqliteTx) CreateProject(ctx context.Context, project *Project) error {
	return createProject(ctx, t.querier(), project)
}

func (t *sqliteTx) GetProject(ctx context.Context, name string) (*Project, error) {
	return getProject(ctx, t.querier(), name)
}

func (t *sqliteTx) UpdateProject(ctx context.Context, project *Project) error {
	return updateProject(ctx, t.querier(), project)
}

func (t *sqliteTx) UpsertRecord(ctx context.Context, record *Record) error {
	return upsertRecord(ctx, t.querier(), record)
}

func (t *sqliteTx) GetRecord(ctx context.Context, qaID string) (*Record, error) {
	return getRecord(ctx, t.querier(), qaID)
}

func (t *sqliteTx) GetRecordByHash(ctx context.Context, projectID int64, contentHash [32]byte) (*Record, error) {
	return getRecordByHash(ctx, t.querier(), projectID, contentHash)
}

func (t *sqliteTx) ListRecordsByGroup(ctx context.Context, groupID string) ([]*Record, error) {
	return listRecordsByGroup(ctx, t.querier(), groupID)
}

func (t *sqliteTx) DeleteRecordGroup(ctx context.Context, groupID string) (int, error) {
	return deleteRecordGroup(ctx, t.querier(), groupID)
}

func (t *sqliteTx) CountRecords(ctx context.Context, projectID int64) (int, error) {
	return countRecords(ctx, t.querier(), projectID)
}

func (t *sqliteTx) SearchText(ctx context.Context, projectID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return searchText(ctx, t.querier(), projectID, query, limit, filters)
}

func (t *sqliteTx) GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error) {
	return getStatus(ctx, t.querier(), projectID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, ErrNestedTx
}
