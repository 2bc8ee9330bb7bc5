package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/longtext-mcp/internal/chunker"
	"github.com/dshills/longtext-mcp/internal/recorder"
	"github.com/dshills/longtext-mcp/internal/splitter"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "longtext.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8000, cfg.Chunking.MaxChunkSize)
	assert.Equal(t, 200, cfg.Chunking.OverlapSize)
	assert.Equal(t, 20, cfg.Chunking.MaxChunks)
	assert.Equal(t, 500000, cfg.Chunking.MaxTotalSize)
	assert.True(t, cfg.Chunking.SmartBoundary)
	assert.Equal(t, 200, cfg.Chunking.BoundaryWindow)
	assert.Equal(t, 8000, cfg.Record.MaxQuerySize)
	assert.Equal(t, 24000, cfg.Record.MaxAnswerSize)
	assert.Equal(t, DefaultProject, cfg.Record.DefaultProject)
	assert.Equal(t, DefaultDBPath, cfg.Storage.DBPath)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
chunking:
  max_chunk_size: 1000
  overlap_size: 50
search:
  limit: 5
  cache_ttl: 10m
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Chunking.MaxChunkSize)
	assert.Equal(t, 50, cfg.Chunking.OverlapSize)
	assert.Equal(t, 20, cfg.Chunking.MaxChunks, "unset keys keep defaults")
	assert.Equal(t, 5, cfg.Search.Limit)
	assert.Equal(t, 10*time.Minute, cfg.Search.CacheTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Chunking, cfg.Chunking)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeFile(t, "chunking: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LONGTEXT_MAX_CHUNK_SIZE", "3000")
	t.Setenv("LONGTEXT_SMART_BOUNDARY", "false")
	t.Setenv("LONGTEXT_MIN_SCORE", "0.6")
	t.Setenv("LONGTEXT_DB_PATH", ":memory:")
	t.Setenv("LONGTEXT_DEFAULT_PROJECT", "notes")

	cfg, err := Load(writeFile(t, "chunking:\n  max_chunk_size: 1000\n"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Chunking.MaxChunkSize, "env wins over file")
	assert.False(t, cfg.Chunking.SmartBoundary)
	assert.Equal(t, 0.6, cfg.Search.MinScore)
	assert.Equal(t, ":memory:", cfg.Storage.DBPath)
	assert.Equal(t, "notes", cfg.Record.DefaultProject)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("LONGTEXT_MAX_CHUNKS", "many")
	_, err := Load("")
	assert.ErrorContains(t, err, "LONGTEXT_MAX_CHUNKS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Chunking.MaxChunkSize = 0 }},
		{"negative overlap", func(c *Config) { c.Chunking.OverlapSize = -1 }},
		{"zero answer size", func(c *Config) { c.Record.MaxAnswerSize = 0 }},
		{"negative workers", func(c *Config) { c.Search.Workers = -1 }},
		{"negative min score", func(c *Config) { c.Search.MinScore = -0.1 }},
		{"limit too high", func(c *Config) { c.Search.Limit = 1000 }},
		{"no project", func(c *Config) { c.Record.DefaultProject = " " }},
		{"no db path", func(c *Config) { c.Storage.DBPath = "" }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chunking.MaxChunkSize = 1234
	cfg.Search.CacheTTL = 90 * time.Second

	path := filepath.Join(t.TempDir(), "nested", "longtext.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConverters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Record.MaxRetries = 7

	assert.Equal(t, chunker.DefaultConfig().MaxChunkSize, cfg.ChunkerConfig().MaxChunkSize)
	_, err := chunker.New(cfg.ChunkerConfig())
	assert.NoError(t, err)

	assert.Equal(t, splitter.DefaultConfig(), cfg.SplitterConfig())

	rc := cfg.RecorderConfig()
	assert.Equal(t, 7, rc.Retry.MaxRetries)
	assert.Equal(t, recorder.DefaultBaseDelay, rc.Retry.BaseDelay)
	assert.True(t, rc.SkipDuplicates)

	sc := cfg.SearcherConfig()
	assert.Equal(t, cfg.Search.Workers, sc.Workers)
	assert.Equal(t, cfg.Search.CacheTTL, sc.CacheTTL)
}

func TestResolveDBPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := DefaultConfig()
	path, err := cfg.ResolveDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".longtext", "longtext.db"), path)
	assert.DirExists(t, filepath.Join(home, ".longtext"))

	cfg.Storage.DBPath = ":memory:"
	path, err = cfg.ResolveDBPath()
	require.NoError(t, err)
	assert.Equal(t, ":memory:", path)
}
