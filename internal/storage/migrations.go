package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.1.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
	{
		Version: "1.1.0",
		Up:      migrationV11Up,
		Down:    migrationV11Down,
	},
}

const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Projects table
CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    total_records INTEGER DEFAULT 0,
    last_recorded_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- QA records table, one row per split sub-record
CREATE TABLE IF NOT EXISTS qa_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    qa_id TEXT NOT NULL UNIQUE,
    group_id TEXT NOT NULL,
    project_id INTEGER NOT NULL,
    query TEXT NOT NULL,
    answer TEXT NOT NULL,
    content_hash BLOB NOT NULL,
    chunk_index INTEGER NOT NULL DEFAULT 0,
    total_chunks INTEGER NOT NULL DEFAULT 1,
    is_continuation BOOLEAN DEFAULT 0,
    answer_start_pos INTEGER,
    answer_end_pos INTEGER,
    answer_truncated BOOLEAN DEFAULT 0,
    tags TEXT NOT NULL DEFAULT '[]',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_qa_records_project ON qa_records(project_id);
CREATE INDEX IF NOT EXISTS idx_qa_records_group ON qa_records(group_id);
CREATE INDEX IF NOT EXISTS idx_qa_records_hash ON qa_records(project_id, content_hash);

-- Full-text search on records
CREATE VIRTUAL TABLE IF NOT EXISTS qa_records_fts USING fts5(
    query, answer, tags,
    content='qa_records',
    content_rowid='id'
);

-- Triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS qa_records_ai AFTER INSERT ON qa_records BEGIN
    INSERT INTO qa_records_fts(rowid, query, answer, tags)
    VALUES (new.id, new.query, new.answer, new.tags);
END;

CREATE TRIGGER IF NOT EXISTS qa_records_ad AFTER DELETE ON qa_records BEGIN
    INSERT INTO qa_records_fts(qa_records_fts, rowid, query, answer, tags)
    VALUES ('delete', old.id, old.query, old.answer, old.tags);
END;

CREATE TRIGGER IF NOT EXISTS qa_records_au AFTER UPDATE ON qa_records BEGIN
    INSERT INTO qa_records_fts(qa_records_fts, rowid, query, answer, tags)
    VALUES ('delete', old.id, old.query, old.answer, old.tags);
    INSERT INTO qa_records_fts(rowid, query, answer, tags)
    VALUES (new.id, new.query, new.answer, new.tags);
END;
`

const migrationV1Down = `
DROP TRIGGER IF EXISTS qa_records_au;
DROP TRIGGER IF EXISTS qa_records_ad;
DROP TRIGGER IF EXISTS qa_records_ai;

DROP TABLE IF EXISTS qa_records_fts;
DROP TABLE IF EXISTS qa_records;
DROP TABLE IF EXISTS projects;
DROP TABLE IF EXISTS schema_version;
`

// 1.1.0: one row per (group, position)
const migrationV11Up = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_qa_records_group_chunk ON qa_records(group_id, chunk_index);
`

const migrationV11Down = `
DROP INDEX IF EXISTS idx_qa_records_group_chunk;
`

// currentVersion reads the applied schema version, 0.0.0 for a fresh database
func currentVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if err == sql.ErrNoRows {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	// Versions are compared semantically; applied_at has second resolution
	// and cannot order migrations applied in the same run.
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer func() { _ = rows.Close() }()

	latest := semver.MustParse("0.0.0")
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", s, err)
		}
		if v.GreaterThan(latest) {
			latest = v
		}
	}
	return latest, rows.Err()
}

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !current.LessThan(migrationVersion) {
			continue // Already applied
		}

		if _, err := db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		current = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}
	if current.Equal(semver.MustParse("0.0.0")) {
		return fmt.Errorf("no migrations to rollback")
	}

	var migration *Migration
	for i := range AllMigrations {
		v, err := semver.NewVersion(AllMigrations[i].Version)
		if err == nil && v.Equal(current) {
			migration = &AllMigrations[i]
			break
		}
	}

	if migration == nil {
		return fmt.Errorf("migration %s not found", current)
	}

	if _, err := db.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
	}

	// The 1.0.0 down migration drops schema_version itself.
	var tableName string
	err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check schema_version table: %w", err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", migration.Version); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", migration.Version, err)
	}

	return nil
}
