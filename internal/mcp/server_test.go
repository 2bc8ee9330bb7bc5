package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/longtext-mcp/internal/config"
)

// newTestServer creates a server backed by an in-memory database
func newTestServer(t *testing.T, mutate ...func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.DBPath = ":memory:"
	for _, m := range mutate {
		m(cfg)
	}

	s, err := NewServer(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// callTool invokes a handler and decodes its JSON text result
func callTool(t *testing.T, handler server.ToolHandlerFunc, args map[string]interface{}) (map[string]interface{}, error) {
	t.Helper()
	req := mcp.CallToolRequest{}
	if args != nil {
		req.Params.Arguments = args
	}

	res, err := handler(context.Background(), req)
	if err != nil {
		return nil, err
	}
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)

	var text string
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		text = c.Text
	case *mcp.TextContent:
		text = c.Text
	default:
		t.Fatalf("unexpected content type %T", res.Content[0])
	}

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &out), "result: %s", text)
	return out, nil
}

// requireMCPError asserts err is an *MCPError with the given code
func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code)
	return mcpErr
}

func TestServer_Initialization(t *testing.T) {
	t.Run("in-memory database", func(t *testing.T) {
		s := newTestServer(t)

		assert.NotNil(t, s.mcp, "MCP server should be initialized")
		assert.NotNil(t, s.Storage(), "Storage should be initialized")
		assert.NotNil(t, s.Recorder(), "Recorder should be initialized")
		assert.NotNil(t, s.Searcher(), "Searcher should be initialized")
		assert.NotNil(t, s.chunker)
		assert.NotNil(t, s.splitter)
	})

	t.Run("file path creates directory", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "nested", "longtext.db")
		cfg := config.DefaultConfig()
		cfg.Storage.DBPath = dbPath

		s, err := NewServer(cfg, nil)
		require.NoError(t, err)
		defer s.Close()

		assert.FileExists(t, dbPath)
	})

	t.Run("invalid chunking config", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Storage.DBPath = ":memory:"
		cfg.Chunking.MaxChunkSize = 0

		_, err := NewServer(cfg, nil)
		assert.Error(t, err)
	})

	t.Run("components share the configured chunker", func(t *testing.T) {
		s := newTestServer(t, func(c *config.Config) { c.Chunking.MaxChunkSize = 1234 })
		assert.Equal(t, 1234, s.chunker.Config().MaxChunkSize)
	})
}

func TestServer_RecordInvalidatesSearchCache(t *testing.T) {
	s := newTestServer(t)

	_, err := callTool(t, s.handleRecordQA, map[string]interface{}{
		"query":  "How do retries work?",
		"answer": "Exponential backoff.",
	})
	require.NoError(t, err)

	_, err = callTool(t, s.handleSearchQA, map[string]interface{}{"query": "backoff"})
	require.NoError(t, err)
	require.Equal(t, 1, s.Searcher().CacheLen())

	_, err = callTool(t, s.handleRecordQA, map[string]interface{}{
		"query":  "What about jitter?",
		"answer": "Add jitter to backoff.",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Searcher().CacheLen(), "a write purges cached searches")

	out, err := callTool(t, s.handleSearchQA, map[string]interface{}{"query": "backoff"})
	require.NoError(t, err)
	assert.Equal(t, float64(2), out["count"])
	assert.Equal(t, false, out["cache_hit"])
}
