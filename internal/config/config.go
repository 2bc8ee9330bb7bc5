package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/dshills/longtext-mcp/internal/chunker"
	"github.com/dshills/longtext-mcp/internal/recorder"
	"github.com/dshills/longtext-mcp/internal/searcher"
	"github.com/dshills/longtext-mcp/internal/splitter"
)

const (
	// EnvPrefix prefixes every environment override
	EnvPrefix = "LONGTEXT_"
	// DefaultDBPath is the default location for the database
	DefaultDBPath = "~/.longtext/longtext.db"
	// DefaultProject is used when a request names no project
	DefaultProject = "default"
	// DefaultConfigFile is looked up in the working directory
	DefaultConfigFile = "longtext.yaml"
)

// Config holds all configuration for the server and CLI
type Config struct {
	Chunking ChunkingConfig `yaml:"chunking"`
	Record   RecordConfig   `yaml:"record"`
	Search   SearchConfig   `yaml:"search"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ChunkingConfig holds text chunking configuration
type ChunkingConfig struct {
	MaxChunkSize   int  `yaml:"max_chunk_size"`
	OverlapSize    int  `yaml:"overlap_size"`
	MaxChunks      int  `yaml:"max_chunks"`
	MaxTotalSize   int  `yaml:"max_total_size"`
	SmartBoundary  bool `yaml:"smart_boundary"`
	BoundaryWindow int  `yaml:"boundary_window"`
}

// RecordConfig holds record splitting and write configuration
type RecordConfig struct {
	MaxQuerySize       int    `yaml:"max_query_size"`
	MaxAnswerSize      int    `yaml:"max_answer_size"`
	ContinuationFormat string `yaml:"continuation_format"`
	SkipDuplicates     bool   `yaml:"skip_duplicates"`
	Workers            int    `yaml:"workers"`
	MaxRetries         int    `yaml:"max_retries"`
	DefaultProject     string `yaml:"default_project"`
}

// SearchConfig holds search configuration
type SearchConfig struct {
	Limit     int           `yaml:"limit"`
	MinScore  float64       `yaml:"min_score"` // Filter results below this score (0 = disabled)
	Workers   int           `yaml:"workers"`
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	UseCache  bool          `yaml:"use_cache"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DBPath string `yaml:"db_path"` // ":memory:" for a throwaway database
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			MaxChunkSize:   chunker.DefaultMaxChunkSize,
			OverlapSize:    chunker.DefaultOverlapSize,
			MaxChunks:      chunker.DefaultMaxChunks,
			MaxTotalSize:   chunker.DefaultMaxTotalSize,
			SmartBoundary:  true,
			BoundaryWindow: chunker.DefaultBoundaryWindow,
		},
		Record: RecordConfig{
			MaxQuerySize:       splitter.DefaultMaxQuerySize,
			MaxAnswerSize:      splitter.DefaultMaxAnswerSize,
			ContinuationFormat: splitter.DefaultContinuationFormat,
			SkipDuplicates:     true,
			Workers:            recorder.DefaultWorkers,
			MaxRetries:         recorder.DefaultMaxRetries,
			DefaultProject:     DefaultProject,
		},
		Search: SearchConfig{
			Limit:     searcher.DefaultLimit,
			Workers:   searcher.DefaultWorkers,
			CacheSize: searcher.DefaultCacheSize,
			CacheTTL:  searcher.DefaultCacheTTL,
			UseCache:  true,
		},
		Storage: StorageConfig{
			DBPath: DefaultDBPath,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path, a
// .env file in the working directory, and LONGTEXT_* environment variables,
// in that order of precedence. An empty path tries DefaultConfigFile; a
// missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// Defaults only
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnv overrides fields from LONGTEXT_* variables
func (c *Config) applyEnv() error {
	var errs []error
	setInt := func(key string, dst *int) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	setFloat := func(key string, dst *float64) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}

	setInt("MAX_CHUNK_SIZE", &c.Chunking.MaxChunkSize)
	setInt("OVERLAP_SIZE", &c.Chunking.OverlapSize)
	setInt("MAX_CHUNKS", &c.Chunking.MaxChunks)
	setInt("MAX_TOTAL_SIZE", &c.Chunking.MaxTotalSize)
	setBool("SMART_BOUNDARY", &c.Chunking.SmartBoundary)
	setInt("BOUNDARY_WINDOW", &c.Chunking.BoundaryWindow)

	setInt("MAX_QUERY_SIZE", &c.Record.MaxQuerySize)
	setInt("MAX_ANSWER_SIZE", &c.Record.MaxAnswerSize)
	setBool("SKIP_DUPLICATES", &c.Record.SkipDuplicates)
	setInt("RECORD_WORKERS", &c.Record.Workers)
	setString("DEFAULT_PROJECT", &c.Record.DefaultProject)

	setInt("SEARCH_LIMIT", &c.Search.Limit)
	setFloat("MIN_SCORE", &c.Search.MinScore)
	setInt("SEARCH_WORKERS", &c.Search.Workers)
	setBool("USE_CACHE", &c.Search.UseCache)

	setString("DB_PATH", &c.Storage.DBPath)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FORMAT", &c.Logging.Format)

	return errors.Join(errs...)
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if _, err := chunker.New(c.ChunkerConfig()); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	if c.Record.MaxQuerySize <= 0 || c.Record.MaxAnswerSize <= 0 {
		return fmt.Errorf("record: max_query_size and max_answer_size must be positive")
	}
	if c.Record.Workers < 0 || c.Search.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	if c.Search.MinScore < 0 {
		return fmt.Errorf("search: min_score cannot be negative")
	}
	if c.Search.Limit < 0 || c.Search.Limit > searcher.MaxLimit {
		return fmt.Errorf("search: limit must be between 0 and %d", searcher.MaxLimit)
	}
	if strings.TrimSpace(c.Record.DefaultProject) == "" {
		return fmt.Errorf("record: default_project is required")
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage: db_path is required")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}
	return nil
}

// ChunkerConfig converts the chunking section
func (c *Config) ChunkerConfig() chunker.Config {
	return chunker.Config{
		MaxChunkSize:   c.Chunking.MaxChunkSize,
		OverlapSize:    c.Chunking.OverlapSize,
		MaxChunks:      c.Chunking.MaxChunks,
		MaxTotalSize:   c.Chunking.MaxTotalSize,
		SmartBoundary:  c.Chunking.SmartBoundary,
		BoundaryWindow: c.Chunking.BoundaryWindow,
	}
}

// SplitterConfig converts the record section for the splitter
func (c *Config) SplitterConfig() splitter.Config {
	return splitter.Config{
		MaxQuerySize:       c.Record.MaxQuerySize,
		MaxAnswerSize:      c.Record.MaxAnswerSize,
		ContinuationFormat: c.Record.ContinuationFormat,
	}
}

// RecorderConfig converts the record section for the recorder
func (c *Config) RecorderConfig() recorder.Config {
	retry := recorder.DefaultRetryConfig()
	if c.Record.MaxRetries > 0 {
		retry.MaxRetries = c.Record.MaxRetries
	}
	return recorder.Config{
		Workers:        c.Record.Workers,
		Retry:          retry,
		SkipDuplicates: c.Record.SkipDuplicates,
	}
}

// SearcherConfig converts the search section
func (c *Config) SearcherConfig() searcher.Config {
	return searcher.Config{
		Workers:   c.Search.Workers,
		CacheSize: c.Search.CacheSize,
		CacheTTL:  c.Search.CacheTTL,
	}
}

// ResolveDBPath expands a leading ~ and creates the parent directory.
// ":memory:" is returned unchanged.
func (c *Config) ResolveDBPath() (string, error) {
	path := c.Storage.DBPath
	if path == ":memory:" {
		return path, nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return path, nil
}
