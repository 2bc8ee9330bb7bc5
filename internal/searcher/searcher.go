package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/longtext-mcp/internal/chunker"
	"github.com/dshills/longtext-mcp/internal/merger"
	"github.com/dshills/longtext-mcp/internal/storage"
	"github.com/dshills/longtext-mcp/pkg/types"
)

const (
	// DefaultLimit is the number of matches returned when none is requested
	DefaultLimit = 10
	// MaxLimit caps the number of matches per request
	MaxLimit = 100
	// DefaultWorkers bounds concurrent per-chunk searches
	DefaultWorkers = 4
	// DefaultCacheSize is the number of merged responses kept in memory
	DefaultCacheSize = 1000
	// DefaultCacheTTL is how long a cached response stays valid
	DefaultCacheTTL = time.Hour
)

// Pass-through fields attached to every match
const (
	FieldQuery           = "query"
	FieldAnswer          = "answer"
	FieldGroupID         = "group_id"
	FieldChunkIndex      = "chunk_index"
	FieldTotalChunks     = "total_chunks"
	FieldIsContinuation  = "is_continuation"
	FieldAnswerStartPos  = "answer_start_pos"
	FieldAnswerEndPos    = "answer_end_pos"
	FieldAnswerTruncated = "answer_truncated"
	FieldTags            = "tags"
	FieldQueryChunk      = "query_chunk"
)

// ErrAllChunksFailed is returned when no chunk of the query could be searched
var ErrAllChunksFailed = errors.New("all chunk searches failed")

// Config controls search fan-out and caching
type Config struct {
	Workers       int           // Concurrent chunk searches (default: 4)
	PerChunkLimit int           // Matches fetched per chunk; 0 means the request limit
	CacheSize     int           // LRU entries (default: 1000)
	CacheTTL      time.Duration // Default entry lifetime (default: 1h)
}

// DefaultConfig returns the standard search configuration
func DefaultConfig() Config {
	return Config{
		Workers:   DefaultWorkers,
		CacheSize: DefaultCacheSize,
		CacheTTL:  DefaultCacheTTL,
	}
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	ProjectID int64
	Query     string
	Limit     int
	MinScore  float64
	Filters   *storage.SearchFilters
	UseCache  bool // Whether to use the response cache
	CacheTTL  time.Duration
}

// SearchResponse contains the merged result and search metadata
type SearchResponse struct {
	Result       *types.MergedResult
	Duration     time.Duration
	CacheHit     bool
	FailedChunks int
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher answers long queries by searching each query chunk and merging
// the per-chunk results
type Searcher struct {
	storage storage.Storage
	chunker *chunker.Chunker
	config  Config
	logger  *zap.Logger
	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// NewSearcher creates a new Searcher instance. A nil chunker means
// chunker.Default() and a nil logger discards logs.
func NewSearcher(store storage.Storage, c *chunker.Chunker, config Config, logger *zap.Logger) *Searcher {
	if c == nil {
		c = chunker.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultCacheSize
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultCacheTTL
	}

	cache, err := lru.New[[32]byte, *cacheEntry](config.CacheSize)
	if err != nil {
		// Only fails for a non-positive size
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		storage: store,
		chunker: c,
		config:  config,
		logger:  logger,
		cache:   cache,
	}
}

// Search chunks the query, searches every chunk concurrently, and merges the
// per-chunk result sets into one ranked, deduplicated result.
//
// A chunk whose search fails contributes an empty set and is counted in
// FailedChunks; the request fails only when every chunk failed or ctx ends.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	if req.UseCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	chunks := s.chunker.Chunk(req.Query)
	sets, failed, err := s.searchChunks(ctx, req, chunks)
	if err != nil {
		return nil, err
	}

	merged := merger.Merge(sets, req.Query)
	response := &SearchResponse{
		Result:       merger.Filter(merged, req.MinScore, req.Limit),
		FailedChunks: failed,
	}
	response.Duration = time.Since(startTime)

	s.logger.Debug("Search completed",
		zap.Int64("project_id", req.ProjectID),
		zap.Int("query_chunks", len(chunks)),
		zap.Int("failed_chunks", failed),
		zap.Int("candidates", merged.Count),
		zap.Int("results", response.Result.Count),
		zap.Duration("duration", response.Duration))

	// Partial results are not cached so a retry can recover the missing chunks
	if req.UseCache && failed == 0 {
		s.storeInCache(req, response)
	}

	return response, nil
}

// searchChunks runs one text search per chunk with bounded concurrency.
// Result sets are returned in chunk order.
func (s *Searcher) searchChunks(ctx context.Context, req SearchRequest, chunks []types.Chunk) ([]types.ResultSet, int, error) {
	sets := make([]types.ResultSet, len(chunks))
	errs := make([]error, len(chunks))
	var failed atomic.Int32

	perChunk := s.config.PerChunkLimit
	if perChunk <= 0 {
		perChunk = req.Limit
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	for i := range chunks {
		ch := chunks[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			results, err := s.storage.SearchText(gctx, req.ProjectID, ch.Text, perChunk, req.Filters)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logger.Warn("Chunk search failed",
					zap.Int("chunk", ch.Index),
					zap.Int("total_chunks", len(chunks)),
					zap.Error(err))
				failed.Add(1)
				errs[i] = err
				sets[i] = types.ResultSet{Matches: []types.Match{}}
				return nil
			}

			sets[i] = toResultSet(results, ch.Index)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("search cancelled: %w", err)
	}

	n := int(failed.Load())
	if n > 0 && n == len(chunks) {
		return nil, n, fmt.Errorf("%w: %w", ErrAllChunksFailed, errors.Join(errs...))
	}

	return sets, n, nil
}

// toResultSet converts storage hits into matches for the merger
func toResultSet(results []storage.TextResult, queryChunk int) types.ResultSet {
	set := types.ResultSet{Matches: make([]types.Match, 0, len(results))}
	for _, r := range results {
		rec := r.Record
		m := types.NewMatch(rec.QAID, r.BM25Score)
		m.Fields = map[string]any{
			FieldQuery:           rec.Query,
			FieldAnswer:          rec.Answer,
			FieldGroupID:         rec.GroupID,
			FieldChunkIndex:      rec.ChunkIndex,
			FieldTotalChunks:     rec.TotalChunks,
			FieldIsContinuation:  rec.IsContinuation,
			FieldAnswerTruncated: rec.AnswerTruncated,
			FieldTags:            append([]string(nil), rec.Tags...),
			FieldQueryChunk:      queryChunk,
		}
		if rec.AnswerStartPos != nil {
			m.Fields[FieldAnswerStartPos] = *rec.AnswerStartPos
		}
		if rec.AnswerEndPos != nil {
			m.Fields[FieldAnswerEndPos] = *rec.AnswerEndPos
		}
		set.Matches = append(set.Matches, m)
	}
	return set
}

// validateRequest ensures search request is valid
func (s *Searcher) validateRequest(req *SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return types.ErrEmptyQuery
	}

	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}

	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}

	if req.MinScore < 0 {
		return fmt.Errorf("min score cannot be negative, got %g", req.MinScore)
	}

	if req.CacheTTL <= 0 {
		req.CacheTTL = s.config.CacheTTL
	}

	return nil
}

// checkCache returns a copy of a live cached response, or nil
func (s *Searcher) checkCache(req SearchRequest) *SearchResponse {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}

	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()

	return response
}

// storeInCache saves a copy of the response
func (s *Searcher) storeInCache(req SearchRequest, response *SearchResponse) {
	hash := computeQueryHash(req)

	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(hash, entry)
	s.cacheMu.Unlock()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Result = src.Result.Clone()
	return &dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	fmt.Fprintf(&data, "%s|%d|%d|%g", req.Query, req.ProjectID, req.Limit, req.MinScore)

	if req.Filters != nil {
		tags := append([]string(nil), req.Filters.Tags...)
		sort.Strings(tags)
		fmt.Fprintf(&data, "|filters:%s|%s|%t|%g",
			strings.Join(tags, ","),
			req.Filters.GroupID,
			req.Filters.ExcludeContinuations,
			req.Filters.MinRelevance)
	}

	return sha256.Sum256([]byte(data.String()))
}

// InvalidateCache drops cached responses. The LRU cannot filter by project,
// so the whole cache is purged.
func (s *Searcher) InvalidateCache(projectID int64) {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
	s.logger.Debug("Search cache invalidated", zap.Int64("project_id", projectID))
}

// CacheLen reports the number of cached responses
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}
