package storage

import (
	"context"
	"time"

	"github.com/dshills/longtext-mcp/pkg/types"
)

// Storage defines the interface for persisting and querying QA records
type Storage interface {
	// Project operations
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, name string) (*Project, error)
	UpdateProject(ctx context.Context, project *Project) error

	// Record operations
	UpsertRecord(ctx context.Context, record *Record) error
	GetRecord(ctx context.Context, qaID string) (*Record, error)
	GetRecordByHash(ctx context.Context, projectID int64, contentHash [32]byte) (*Record, error)
	ListRecordsByGroup(ctx context.Context, groupID string) ([]*Record, error)
	DeleteRecordGroup(ctx context.Context, groupID string) (deletedCount int, err error)
	CountRecords(ctx context.Context, projectID int64) (int, error)

	// Search operations
	SearchText(ctx context.Context, projectID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error)

	// Status operations
	GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Project is a namespace for recorded QA pairs
type Project struct {
	ID             int64
	Name           string
	TotalRecords   int
	LastRecordedAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Record is one stored sub-record of a question/answer pair.
// All records split from the same answer share GroupID and ContentHash.
type Record struct {
	ID              int64
	QAID            string
	GroupID         string
	ProjectID       int64
	Query           string
	Answer          string
	ContentHash     [32]byte // Hash of the original, unsplit pair
	ChunkIndex      int
	TotalChunks     int
	IsContinuation  bool
	AnswerStartPos  *int // Nullable
	AnswerEndPos    *int // Nullable
	AnswerTruncated bool
	Tags            []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SearchFilters contains filters for narrowing search results
type SearchFilters struct {
	Tags                 []string // Match records carrying any of these tags
	GroupID              string   // Restrict to one split group
	ExcludeContinuations bool     // Only first records of each group
	MinRelevance         float64  // Minimum normalized relevance score
}

// TextResult represents a result from full-text search
type TextResult struct {
	Record    *Record
	BM25Score float64 // Normalized to (0, 1], higher is better
}

// ProjectStatus contains statistics about a project's records
type ProjectStatus struct {
	Project           *Project
	RecordsCount      int
	GroupsCount       int
	ContinuationCount int
	TruncatedCount    int
	DatabaseSizeMB    float64
	LastRecordedAt    time.Time
	Health            HealthStatus
}

// HealthStatus represents the health of the store
type HealthStatus struct {
	DatabaseAccessible bool
	FTSIndexesBuilt    bool
}

// FromQARecord converts a split record into a storable Record
func FromQARecord(r types.QARecord, projectID int64, qaID, groupID string, hash [32]byte, tags []string) *Record {
	rec := &Record{
		QAID:            qaID,
		GroupID:         groupID,
		ProjectID:       projectID,
		Query:           r.Query,
		Answer:          r.Answer,
		ContentHash:     hash,
		ChunkIndex:      r.Metadata.ChunkIndex,
		TotalChunks:     r.Metadata.TotalChunks,
		IsContinuation:  r.Metadata.IsContinuation,
		AnswerTruncated: r.Metadata.AnswerTruncated,
		Tags:            tags,
	}
	if r.Metadata.AnswerStartPos != nil {
		start := *r.Metadata.AnswerStartPos
		rec.AnswerStartPos = &start
	}
	if r.Metadata.AnswerEndPos != nil {
		end := *r.Metadata.AnswerEndPos
		rec.AnswerEndPos = &end
	}
	return rec
}

// ToQARecord converts a stored Record back into a QARecord
func (r *Record) ToQARecord() types.QARecord {
	return types.QARecord{
		Query:  r.Query,
		Answer: r.Answer,
		Metadata: types.RecordMetadata{
			ChunkIndex:      r.ChunkIndex,
			TotalChunks:     r.TotalChunks,
			IsContinuation:  r.IsContinuation,
			AnswerStartPos:  r.AnswerStartPos,
			AnswerEndPos:    r.AnswerEndPos,
			AnswerTruncated: r.AnswerTruncated,
		},
	}
}
