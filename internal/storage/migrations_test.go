package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDatabase(t *testing.T) *sql.DB {
	t.Helper()
	db, err := openDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func objectExists(t *testing.T, db *sql.DB, kind, name string) bool {
	t.Helper()
	var found string
	err := db.QueryRowContext(context.Background(),
		"SELECT name FROM sqlite_master WHERE type = ? AND name = ?", kind, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false
	}
	require.NoError(t, err)
	return true
}

func schemaVersion(t *testing.T, db *sql.DB) string {
	t.Helper()
	v, err := currentVersion(context.Background(), db)
	require.NoError(t, err)
	return v.String()
}

func TestApplyMigrations(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, db))
	assert.Equal(t, CurrentSchemaVersion, schemaVersion(t, db))

	for _, table := range []string{"schema_version", "projects", "qa_records", "qa_records_fts"} {
		assert.True(t, objectExists(t, db, "table", table), "table %s", table)
	}
	for _, trigger := range []string{"qa_records_ai", "qa_records_ad", "qa_records_au"} {
		assert.True(t, objectExists(t, db, "trigger", trigger), "trigger %s", trigger)
	}
	assert.True(t, objectExists(t, db, "index", "idx_qa_records_group_chunk"))
}

func TestMigrationsIdempotent(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, db))
	require.NoError(t, ApplyMigrations(ctx, db))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count))
	assert.Equal(t, len(AllMigrations), count)
}

func TestRollbackMigration(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()
	require.NoError(t, ApplyMigrations(ctx, db))

	require.NoError(t, RollbackMigration(ctx, db))
	assert.Equal(t, "1.0.0", schemaVersion(t, db))
	assert.False(t, objectExists(t, db, "index", "idx_qa_records_group_chunk"))
	assert.True(t, objectExists(t, db, "table", "qa_records"))

	require.NoError(t, RollbackMigration(ctx, db))
	assert.Equal(t, "0.0.0", schemaVersion(t, db))
	assert.False(t, objectExists(t, db, "table", "qa_records"))

	assert.Error(t, RollbackMigration(ctx, db), "nothing left to roll back")

	// A rolled back database migrates forward again
	require.NoError(t, ApplyMigrations(ctx, db))
	assert.Equal(t, CurrentSchemaVersion, schemaVersion(t, db))
}

func TestApplyMigrations_FromPartialSchema(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, migrationV1Up)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES ('1.0.0')")
	require.NoError(t, err)

	require.NoError(t, ApplyMigrations(ctx, db))
	assert.Equal(t, CurrentSchemaVersion, schemaVersion(t, db))
	assert.True(t, objectExists(t, db, "index", "idx_qa_records_group_chunk"))
}
