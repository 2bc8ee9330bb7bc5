package mcp

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/longtext-mcp/internal/chunker"
	"github.com/dshills/longtext-mcp/internal/config"
	"github.com/dshills/longtext-mcp/internal/recorder"
	"github.com/dshills/longtext-mcp/internal/searcher"
	"github.com/dshills/longtext-mcp/internal/splitter"
	"github.com/dshills/longtext-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "longtext-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	config   *config.Config
	logger   *zap.Logger
	storage  storage.Storage
	chunker  *chunker.Chunker
	splitter *splitter.Splitter
	searcher *searcher.Searcher
	recorder *recorder.Recorder
}

// NewServer creates a new MCP server instance. A nil config means
// config.DefaultConfig() and a nil logger discards logs.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	s, err := newServer(store, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Info("Storage ready",
		zap.String("db_path", dbPath),
		zap.String("driver", storage.DriverName),
		zap.String("build_mode", storage.BuildMode))
	return s, nil
}

// newServer wires the components around an open store
func newServer(store storage.Storage, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	ch, err := chunker.New(cfg.ChunkerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chunker: %w", err)
	}

	sp := splitter.New(ch, cfg.SplitterConfig())
	srch := searcher.NewSearcher(store, ch, cfg.SearcherConfig(), logger.Named("searcher"))
	rec := recorder.New(store, sp, cfg.RecorderConfig(), logger.Named("recorder"))

	// Cached search results go stale once a project changes
	rec.OnWrite(srch.InvalidateCache)

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		mcp:      mcpServer,
		config:   cfg,
		logger:   logger,
		storage:  store,
		chunker:  ch,
		splitter: sp,
		searcher: srch,
		recorder: rec,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until ctx ends or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// Close releases the store
func (s *Server) Close() error {
	return s.storage.Close()
}

// Recorder exposes the write pipeline to in-process callers such as the CLI
func (s *Server) Recorder() *recorder.Recorder {
	return s.recorder
}

// Searcher exposes the search pipeline to in-process callers such as the CLI
func (s *Server) Searcher() *searcher.Searcher {
	return s.searcher
}

// Storage exposes the store to in-process callers such as the CLI
func (s *Server) Storage() storage.Storage {
	return s.storage
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(chunkTextTool(), s.handleChunkText)
	s.mcp.AddTool(mergeResultsTool(), s.handleMergeResults)
	s.mcp.AddTool(splitRecordTool(), s.handleSplitRecord)
	s.mcp.AddTool(recordQATool(), s.handleRecordQA)
	s.mcp.AddTool(searchQATool(), s.handleSearchQA)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
