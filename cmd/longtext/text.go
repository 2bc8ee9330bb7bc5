package main

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/dshills/longtext-mcp/internal/chunker"
	"github.com/dshills/longtext-mcp/internal/merger"
	"github.com/dshills/longtext-mcp/internal/splitter"
	"github.com/dshills/longtext-mcp/pkg/types"
)

func newChunkCmd(a *app) *cobra.Command {
	var (
		text    string
		file    string
		maxSize int
	)

	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "Split text into overlapping chunks",
		Long: `Split text into chunks of at most --max-size characters, preferring
paragraph and sentence boundaries. Text comes from --text, --file or stdin.

Examples:
  longtext chunk --file notes.md
  cat notes.md | longtext chunk --max-size 2000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, text, file)
			if err != nil {
				return err
			}

			c, err := chunker.New(a.cfg.ChunkerConfig())
			if err != nil {
				return err
			}
			if maxSize == 0 {
				maxSize = c.Config().MaxChunkSize
			}

			chunks, err := c.ChunkWithMaxSize(input, maxSize)
			if err != nil {
				return err
			}
			if chunks == nil {
				chunks = []types.Chunk{}
			}

			needsChunking, _ := c.ValidateLength(input, maxSize, "text")
			return writeJSON(cmd, map[string]interface{}{
				"chunks":          chunks,
				"total_chunks":    len(chunks),
				"original_length": utf8.RuneCountInString(input),
				"needs_chunking":  needsChunking,
			})
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "text to split")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read text from file (- for stdin)")
	cmd.Flags().IntVarP(&maxSize, "max-size", "m", 0, "per-chunk ceiling in characters (default from config)")
	return cmd
}

func newSplitCmd(a *app) *cobra.Command {
	var (
		query     string
		answer    string
		file      string
		maxQuery  int
		maxAnswer int
	)

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split an oversized question/answer pair into records",
		Long: `Split a question/answer pair into records whose answers fit
--max-answer-size. Later records get a continuation query. The answer comes
from --answer, --file or stdin.

Example:
  longtext split -q "How does the scheduler work?" --file answer.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd, answer, file)
			if err != nil {
				return err
			}

			c, err := chunker.New(a.cfg.ChunkerConfig())
			if err != nil {
				return err
			}
			sp := splitter.New(c, a.cfg.SplitterConfig())
			if maxQuery == 0 {
				maxQuery = sp.Config().MaxQuerySize
			}
			if maxAnswer == 0 {
				maxAnswer = sp.Config().MaxAnswerSize
			}

			records, err := sp.SplitWithLimits(query, body, maxQuery, maxAnswer)
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]interface{}{
				"records":       records,
				"total_records": len(records),
				"split":         len(records) > 1,
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "question text (required)")
	cmd.Flags().StringVarP(&answer, "answer", "a", "", "answer text")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the answer from file (- for stdin)")
	cmd.Flags().IntVar(&maxQuery, "max-query-size", 0, "query ceiling in characters (default from config)")
	cmd.Flags().IntVar(&maxAnswer, "max-answer-size", 0, "answer ceiling in characters (default from config)")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newMergeCmd(a *app) *cobra.Command {
	var (
		query    string
		file     string
		minScore float64
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge per-chunk search results",
		Long: `Merge a JSON array of per-chunk result sets into one list,
deduplicated by qa_id and ranked by score. Each set is {"matches": [...]}
or a bare array of matches.

Example:
  longtext merge -q "original query" --file results.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, "", file)
			if err != nil {
				return err
			}

			sets, err := types.DecodeResultSets([]byte(input))
			if err != nil {
				return fmt.Errorf("invalid result sets: %w", err)
			}

			merged := merger.Merge(sets, query)
			return writeJSON(cmd, merger.Filter(merged, minScore, limit))
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "original query echoed in the output")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read result sets from file (- for stdin)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "drop matches scoring below this")
	cmd.Flags().IntVarP(&limit, "limit", "k", 0, "maximum matches to keep (0 keeps all)")
	return cmd
}
