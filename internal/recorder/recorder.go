package recorder

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/longtext-mcp/internal/splitter"
	"github.com/dshills/longtext-mcp/internal/storage"
	"github.com/dshills/longtext-mcp/pkg/types"
)

// DefaultWorkers bounds concurrent writes in a batch import
const DefaultWorkers = 4

var (
	// ErrImportInProgress is returned when a batch import is already running
	ErrImportInProgress = errors.New("batch import already in progress")
	// ErrEmptyProject is returned for a request without a project name
	ErrEmptyProject = errors.New("project is required")
	// ErrEmptyAnswer is returned for a request without an answer
	ErrEmptyAnswer = errors.New("answer is required")
	// ErrEmptyRecordQuery is returned for a request without a query
	ErrEmptyRecordQuery = errors.New("query is required")
)

// Config contains configuration for the recorder
type Config struct {
	Workers        int         // Concurrent writes during RecordBatch (default: 4)
	Retry          RetryConfig // Backoff for failed write transactions
	SkipDuplicates bool        // Reuse the stored group when the same pair was recorded before
}

// DefaultConfig returns the standard recorder configuration
func DefaultConfig() Config {
	return Config{
		Workers:        DefaultWorkers,
		Retry:          DefaultRetryConfig(),
		SkipDuplicates: true,
	}
}

// RecordRequest is one question/answer pair to store
type RecordRequest struct {
	Project string   // Project name, created on first use
	Query   string
	Answer  string
	Tags    []string
}

// RecordResult describes the records written for one request
type RecordResult struct {
	ProjectID int64
	GroupID   string
	QAIDs     []string
	Records   []*storage.Record
	Duplicate bool // The pair already existed and nothing was written
}

// BatchStatistics summarizes a RecordBatch call
type BatchStatistics struct {
	Recorded       int
	Skipped        int
	Failed         int
	RecordsCreated int
	Duration       time.Duration
	ErrorMessages  []string
}

// Recorder coordinates the write pipeline: split -> dedup -> store
type Recorder struct {
	storage  storage.Storage
	splitter *splitter.Splitter
	config   Config
	logger   *zap.Logger
	lock     ImportLock

	hooksMu sync.RWMutex
	onWrite []func(projectID int64)
}

// New creates a Recorder. A nil splitter means splitter.New(nil, DefaultConfig())
// and a nil logger discards logs.
func New(store storage.Storage, sp *splitter.Splitter, config Config, logger *zap.Logger) *Recorder {
	if sp == nil {
		sp = splitter.New(nil, splitter.DefaultConfig())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.Retry.MaxRetries <= 0 {
		config.Retry = DefaultRetryConfig()
	}
	return &Recorder{
		storage:  store,
		splitter: sp,
		config:   config,
		logger:   logger,
	}
}

// OnWrite registers a callback run after every committed write
func (r *Recorder) OnWrite(fn func(projectID int64)) {
	r.hooksMu.Lock()
	r.onWrite = append(r.onWrite, fn)
	r.hooksMu.Unlock()
}

func (r *Recorder) notifyWrite(projectID int64) {
	r.hooksMu.RLock()
	hooks := r.onWrite
	r.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(projectID)
	}
}

// Record splits a question/answer pair and stores every resulting record
// in one transaction. Records of one pair share a group id, which is the
// qa_id of the first record.
func (r *Recorder) Record(ctx context.Context, req RecordRequest) (*RecordResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, fmt.Errorf("invalid record request: %w", err)
	}
	if r.storage == nil {
		return nil, errors.New("recorder has no storage")
	}

	parts := r.splitter.Split(req.Query, req.Answer)
	hash := ContentHash(req.Query, req.Answer)
	tags := normalizeTags(req.Tags)

	result, err := retryWithBackoff(ctx, r.config.Retry, func() (*RecordResult, error) {
		return r.writeGroup(ctx, req.Project, parts, hash, tags)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record %q: %w", req.Project, err)
	}

	if result.Duplicate {
		r.logger.Debug("Duplicate pair skipped",
			zap.String("project", req.Project),
			zap.String("group_id", result.GroupID))
		return result, nil
	}

	r.logger.Debug("Pair recorded",
		zap.String("project", req.Project),
		zap.String("group_id", result.GroupID),
		zap.Int("records", len(result.Records)))
	r.notifyWrite(result.ProjectID)
	return result, nil
}

// writeGroup runs one write attempt inside a transaction
func (r *Recorder) writeGroup(ctx context.Context, projectName string, parts []types.QARecord, hash [32]byte, tags []string) (result *RecordResult, err error) {
	tx, err := r.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	project, err := getOrCreateProject(ctx, tx, projectName)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create project: %w", err)
	}

	if r.config.SkipDuplicates {
		existing, err := findDuplicate(ctx, tx, project.ID, hash)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if err := tx.Rollback(); err != nil {
				return nil, fmt.Errorf("failed to close transaction: %w", err)
			}
			existing.ProjectID = project.ID
			return existing, nil
		}
	}

	result = &RecordResult{
		ProjectID: project.ID,
		QAIDs:     make([]string, 0, len(parts)),
		Records:   make([]*storage.Record, 0, len(parts)),
	}
	for _, part := range parts {
		qaID := uuid.NewString()
		if result.GroupID == "" {
			result.GroupID = qaID
		}
		rec := storage.FromQARecord(part, project.ID, qaID, result.GroupID, hash, tags)
		if err := tx.UpsertRecord(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to store record %d/%d: %w", part.Metadata.ChunkIndex+1, len(parts), err)
		}
		result.QAIDs = append(result.QAIDs, qaID)
		result.Records = append(result.Records, rec)
	}

	project.LastRecordedAt = time.Now()
	if err := updateProjectStats(ctx, tx, project); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// findDuplicate returns the stored group for hash, or nil
func findDuplicate(ctx context.Context, store storage.Storage, projectID int64, hash [32]byte) (*RecordResult, error) {
	first, err := store.GetRecordByHash(ctx, projectID, hash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate: %w", err)
	}

	records, err := store.ListRecordsByGroup(ctx, first.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load duplicate group: %w", err)
	}

	result := &RecordResult{
		ProjectID: projectID,
		GroupID:   first.GroupID,
		QAIDs:     make([]string, 0, len(records)),
		Records:   records,
		Duplicate: true,
	}
	for _, rec := range records {
		result.QAIDs = append(result.QAIDs, rec.QAID)
	}
	return result, nil
}

// RecordBatch records many pairs with bounded concurrency. A failed pair
// is counted and reported in ErrorMessages; it does not stop the batch.
// Only one batch may run at a time on a Recorder.
func (r *Recorder) RecordBatch(ctx context.Context, reqs []RecordRequest) (*BatchStatistics, error) {
	if !r.lock.TryAcquire() {
		return nil, ErrImportInProgress
	}
	defer r.lock.Release()

	startTime := time.Now()
	stats := &BatchStatistics{ErrorMessages: make([]string, 0)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)

	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := r.Record(gctx, req)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				stats.Failed++
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("request %d: %v", i, err))
			case res.Duplicate:
				stats.Skipped++
			default:
				stats.Recorded++
				stats.RecordsCreated += len(res.Records)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch import cancelled: %w", err)
	}

	stats.Duration = time.Since(startTime)
	r.logger.Info("Batch import completed",
		zap.Int("recorded", stats.Recorded),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Int("records_created", stats.RecordsCreated),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// Importing reports whether a batch import is running
func (r *Recorder) Importing() bool {
	return r.lock.Held()
}

// DeleteGroup removes every record of a split group and refreshes the
// owning project's counters. Deleting an unknown group returns ErrNotFound.
func (r *Recorder) DeleteGroup(ctx context.Context, groupID string) (int, error) {
	deleted, err := retryWithBackoff(ctx, r.config.Retry, func() (deleteResult, error) {
		return r.deleteGroup(ctx, groupID)
	})
	if err != nil {
		return 0, err
	}

	r.logger.Debug("Group deleted", zap.String("group_id", groupID), zap.Int("records", deleted.count))
	r.notifyWrite(deleted.projectID)
	return deleted.count, nil
}

type deleteResult struct {
	projectID int64
	count     int
}

func (r *Recorder) deleteGroup(ctx context.Context, groupID string) (res deleteResult, err error) {
	tx, err := r.storage.BeginTx(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	records, err := tx.ListRecordsByGroup(ctx, groupID)
	if err != nil {
		return res, fmt.Errorf("failed to load group: %w", err)
	}
	if len(records) == 0 {
		return res, permanent(fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound))
	}
	res.projectID = records[0].ProjectID

	res.count, err = tx.DeleteRecordGroup(ctx, groupID)
	if err != nil {
		return res, err
	}

	status, err := tx.GetStatus(ctx, res.projectID)
	if err != nil {
		return res, fmt.Errorf("failed to load project: %w", err)
	}
	if err = updateProjectStats(ctx, tx, status.Project); err != nil {
		return res, err
	}

	if err = tx.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return res, nil
}

// getOrCreateProject retrieves an existing project or creates a new one
func getOrCreateProject(ctx context.Context, store storage.Storage, name string) (*storage.Project, error) {
	project, err := store.GetProject(ctx, name)
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	project = &storage.Project{Name: name}
	if err := store.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// updateProjectStats refreshes the record counter of a project
func updateProjectStats(ctx context.Context, store storage.Storage, project *storage.Project) error {
	count, err := store.CountRecords(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}
	project.TotalRecords = count
	if err := store.UpdateProject(ctx, project); err != nil {
		return fmt.Errorf("failed to update project stats: %w", err)
	}
	return nil
}

// ContentHash identifies a question/answer pair independent of how it is split
func ContentHash(query, answer string) [32]byte {
	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte{0})
	h.Write([]byte(answer))
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

func validateRequest(req RecordRequest) error {
	if strings.TrimSpace(req.Project) == "" {
		return ErrEmptyProject
	}
	if strings.TrimSpace(req.Query) == "" {
		return ErrEmptyRecordQuery
	}
	if strings.TrimSpace(req.Answer) == "" {
		return ErrEmptyAnswer
	}
	return nil
}

// normalizeTags trims, drops empties, and removes duplicates keeping order
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
