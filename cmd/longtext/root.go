package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/longtext-mcp/internal/config"
	"github.com/dshills/longtext-mcp/internal/logging"
)

// app holds state shared by all subcommands of one invocation
type app struct {
	cfgFile string
	dbPath  string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "longtext",
		Short: "Chunk, split, record and search long question/answer text",
		Long: `longtext splits long text into bounded, overlapping chunks and keeps a
searchable store of question/answer pairs whose answers may be far larger than
one record.

Run "longtext serve" to expose the tools to an MCP client over stdio.

Example usage:
  longtext chunk --file notes.md            # Split a file into chunks
  longtext record -q "question" < answer.md # Store a QA pair
  longtext search -q "retry backoff"        # Search stored pairs`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./longtext.yaml)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database path (overrides config and LONGTEXT_DB_PATH)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(a),
		newChunkCmd(a),
		newSplitCmd(a),
		newMergeCmd(a),
		newRecordCmd(a),
		newSearchCmd(a),
		newStatusCmd(a),
		newDeleteCmd(a),
		newVersionCmd(),
	)
	return root
}

// init loads configuration and builds the logger
func (a *app) init() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.dbPath != "" {
		cfg.Storage.DBPath = a.dbPath
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// readInput returns the flag value, the named file, or stdin, in that order
func readInput(cmd *cobra.Command, value, file string) (string, error) {
	if value != "" {
		return value, nil
	}
	if file != "" && file != "-" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// writeJSON writes v as indented JSON to the command's stdout
func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// splitTags parses a comma-separated tag list
func splitTags(raw []string) []string {
	var tags []string
	for _, r := range raw {
		for _, t := range strings.Split(r, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}
