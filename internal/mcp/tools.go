package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/longtext-mcp/internal/chunker"
	"github.com/dshills/longtext-mcp/internal/merger"
	"github.com/dshills/longtext-mcp/internal/recorder"
	"github.com/dshills/longtext-mcp/internal/searcher"
	"github.com/dshills/longtext-mcp/internal/storage"
	"github.com/dshills/longtext-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleChunkText handles the chunk_text tool invocation
func (s *Server) handleChunkText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	text, ok := args["text"].(string)
	if !ok {
		return nil, missingParam("text")
	}

	maxSize := getIntDefault(args, "max_size", s.chunker.Config().MaxChunkSize)
	if maxSize < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_size must be positive", map[string]interface{}{
			"param": "max_size",
			"value": maxSize,
		})
	}

	chunks, err := s.chunker.ChunkWithMaxSize(text, maxSize)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "failed to chunk text", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if chunks == nil {
		chunks = []types.Chunk{}
	}

	needsChunking, lengthErr := s.chunker.ValidateLength(text, maxSize, "text")
	truncated := false
	for i := range chunks {
		truncated = truncated || chunks[i].IsTruncated
	}

	response := map[string]interface{}{
		"chunks":          chunks,
		"total_chunks":    len(chunks),
		"original_length": utf8.RuneCountInString(text),
		"needs_chunking":  needsChunking,
		"truncated":       truncated,
	}
	if errors.Is(lengthErr, chunker.ErrExceedsTotalSize) {
		response["warning"] = lengthErr.Error()
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleMergeResults handles the merge_results tool invocation
func (s *Server) handleMergeResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	raw, ok := args["chunk_results"].([]interface{})
	if !ok {
		return nil, missingParam("chunk_results")
	}

	sets, err := decodeResultSets(raw)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid chunk_results", map[string]interface{}{
			"param":  "chunk_results",
			"reason": err.Error(),
		})
	}

	query := getStringDefault(args, "query", "")
	return mcp.NewToolResultText(formatJSON(merger.Merge(sets, query))), nil
}

// handleSplitRecord handles the split_record tool invocation
func (s *Server) handleSplitRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok {
		return nil, missingParam("query")
	}
	answer, ok := args["answer"].(string)
	if !ok {
		return nil, missingParam("answer")
	}

	cfg := s.splitter.Config()
	maxQuery := getIntDefault(args, "max_query_size", cfg.MaxQuerySize)
	maxAnswer := getIntDefault(args, "max_answer_size", cfg.MaxAnswerSize)

	records, err := s.splitter.SplitWithLimits(query, answer, maxQuery, maxAnswer)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid size limits", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"records":       records,
		"total_records": len(records),
		"split":         len(records) > 1,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRecordQA handles the record_qa tool invocation
func (s *Server) handleRecordQA(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, emptyQuery()
	}
	answer, ok := args["answer"].(string)
	if !ok || strings.TrimSpace(answer) == "" {
		return nil, missingParam("answer")
	}

	tags, err := getStringSlice(args, "tags")
	if err != nil {
		return nil, err
	}

	project := s.projectName(args)
	result, err := s.recorder.Record(ctx, recorder.RecordRequest{
		Project: project,
		Query:   query,
		Answer:  answer,
		Tags:    tags,
	})
	if err != nil {
		s.logger.Error("Record failed", zap.String("project", project), zap.Error(err))
		return nil, newMCPError(ErrorCodeInternalError, "recording failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"recorded":      !result.Duplicate,
		"duplicate":     result.Duplicate,
		"project_id":    project,
		"group_id":      result.GroupID,
		"qa_ids":        result.QAIDs,
		"total_records": len(result.QAIDs),
		"split":         len(result.QAIDs) > 1,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// searchResult is the search_qa response body
type searchResult struct {
	*types.MergedResult
	ProjectID    string `json:"project_id"`
	DurationMs   int64  `json:"duration_ms"`
	CacheHit     bool   `json:"cache_hit"`
	FailedChunks int    `json:"failed_chunks"`
}

// handleSearchQA handles the search_qa tool invocation
func (s *Server) handleSearchQA(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, emptyQuery()
	}

	limit := getIntDefault(args, "limit", s.config.Search.Limit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", searcher.MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	minScore := getFloatDefault(args, "min_score", s.config.Search.MinScore)
	if minScore < 0 || minScore > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "min_score must be between 0 and 1", map[string]interface{}{
			"param": "min_score",
			"value": minScore,
		})
	}

	filters, err := parseFilters(args)
	if err != nil {
		return nil, err
	}

	project := s.projectName(args)
	response := searchResult{ProjectID: project}

	p, err := s.storage.GetProject(ctx, project)
	if errors.Is(err, storage.ErrNotFound) {
		// Nothing recorded yet is an empty result, not an error
		response.MergedResult = merger.Merge(nil, query)
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load project", map[string]interface{}{
			"error": err.Error(),
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		ProjectID: p.ID,
		Query:     query,
		Limit:     limit,
		MinScore:  minScore,
		Filters:   filters,
		UseCache:  s.config.Search.UseCache,
	})
	if err != nil {
		s.logger.Error("Search failed", zap.String("project", project), zap.Error(err))
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response.MergedResult = resp.Result
	response.DurationMs = resp.Duration.Milliseconds()
	response.CacheHit = resp.CacheHit
	response.FailedChunks = resp.FailedChunks
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	name := s.projectName(args)
	project, err := s.storage.GetProject(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		response := map[string]interface{}{
			"exists":     false,
			"project_id": name,
			"message":    "No records for this project. Use record_qa to add some.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get project status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status, err := s.storage.GetStatus(ctx, project.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	lastRecorded := ""
	if !status.LastRecordedAt.IsZero() {
		lastRecorded = status.LastRecordedAt.Format(time.RFC3339)
	}

	response := map[string]interface{}{
		"exists": true,
		"project": map[string]interface{}{
			"project_id":       project.Name,
			"created_at":       project.CreatedAt.Format(time.RFC3339),
			"last_recorded_at": lastRecorded,
		},
		"statistics": map[string]interface{}{
			"records_count":      status.RecordsCount,
			"groups_count":       status.GroupsCount,
			"continuation_count": status.ContinuationCount,
			"truncated_count":    status.TruncatedCount,
			"database_size_mb":   fmt.Sprintf("%.2f", status.DatabaseSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"fts_indexes_built":   status.Health.FTSIndexesBuilt,
			"import_in_progress":  s.recorder.Importing(),
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func missingParam(name string) error {
	return newMCPError(ErrorCodeInvalidParams, name+" parameter is required", map[string]interface{}{
		"param":  name,
		"reason": "missing or wrong type",
	})
}

func emptyQuery() error {
	return newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
		"param":  "query",
		"reason": "missing or empty",
	})
}

// arguments returns the call arguments; a call without arguments yields an empty map
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// projectName returns project_id or the configured default project
func (s *Server) projectName(args map[string]interface{}) string {
	if name := strings.TrimSpace(getStringDefault(args, "project_id", "")); name != "" {
		return name
	}
	return s.config.Record.DefaultProject
}

// parseFilters reads the optional search filters object
func parseFilters(args map[string]interface{}) (*storage.SearchFilters, error) {
	raw, ok := args["filters"].(map[string]interface{})
	if !ok {
		return nil, nil
	}

	tags, err := getStringSlice(raw, "tags")
	if err != nil {
		return nil, err
	}

	filters := &storage.SearchFilters{
		Tags:                 tags,
		GroupID:              getStringDefault(raw, "group_id", ""),
		ExcludeContinuations: getBoolDefault(raw, "exclude_continuations", false),
	}
	return filters, nil
}

// decodeResultSets round-trips the decoded arguments through JSON so the
// result set decoder sees the original shapes
func decodeResultSets(raw []interface{}) ([]types.ResultSet, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return types.DecodeResultSets(data)
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	switch val := args[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts an optional array of strings
func getStringSlice(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, newMCPError(ErrorCodeInvalidParams, key+" must be an array of strings", map[string]interface{}{
					"param": key,
				})
			}
			out = append(out, str)
		}
		return out, nil
	}
	return nil, newMCPError(ErrorCodeInvalidParams, key+" must be an array of strings", map[string]interface{}{
		"param": key,
	})
}
