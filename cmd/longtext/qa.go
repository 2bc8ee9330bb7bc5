package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/longtext-mcp/internal/mcp"
	"github.com/dshills/longtext-mcp/internal/merger"
	"github.com/dshills/longtext-mcp/internal/recorder"
	"github.com/dshills/longtext-mcp/internal/searcher"
	"github.com/dshills/longtext-mcp/internal/storage"
)

// openServer builds the store-backed components
func (a *app) openServer() (*mcp.Server, error) {
	return mcp.NewServer(a.cfg, a.logger)
}

func (a *app) project(name string) string {
	if name != "" {
		return name
	}
	return a.cfg.Record.DefaultProject
}

func newRecordCmd(a *app) *cobra.Command {
	var (
		project string
		query   string
		answer  string
		file    string
		tags    []string
		batch   string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Store a question/answer pair",
		Long: `Store a question/answer pair. Long answers are split into linked
records. The answer comes from --answer, --file or stdin.

With --batch, read a JSON array of {"project", "query", "answer", "tags"}
objects and import them concurrently.

Examples:
  longtext record -p notes -q "How do retries work?" -a "Exponential backoff."
  longtext record --batch export.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if batch != "" {
				return runRecordBatch(cmd, a, batch)
			}
			if query == "" {
				return errors.New("--query is required")
			}

			body, err := readInput(cmd, answer, file)
			if err != nil {
				return err
			}

			server, err := a.openServer()
			if err != nil {
				return err
			}
			defer server.Close()

			res, err := server.Recorder().Record(cmd.Context(), recorder.RecordRequest{
				Project: a.project(project),
				Query:   query,
				Answer:  body,
				Tags:    splitTags(tags),
			})
			if err != nil {
				return err
			}

			return writeJSON(cmd, map[string]interface{}{
				"recorded":      !res.Duplicate,
				"duplicate":     res.Duplicate,
				"project_id":    a.project(project),
				"group_id":      res.GroupID,
				"qa_ids":        res.QAIDs,
				"total_records": len(res.QAIDs),
			})
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "project name (default from config)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "question text")
	cmd.Flags().StringVarP(&answer, "answer", "a", "", "answer text")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the answer from file (- for stdin)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma-separated tags")
	cmd.Flags().StringVar(&batch, "batch", "", "import a JSON array of pairs from file (- for stdin)")
	return cmd
}

// batchItem is one entry of a --batch import file
type batchItem struct {
	Project string   `json:"project"`
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Tags    []string `json:"tags"`
}

func runRecordBatch(cmd *cobra.Command, a *app, file string) error {
	input, err := readInput(cmd, "", file)
	if err != nil {
		return err
	}

	var items []batchItem
	if err := json.Unmarshal([]byte(input), &items); err != nil {
		return fmt.Errorf("invalid batch file: %w", err)
	}

	reqs := make([]recorder.RecordRequest, 0, len(items))
	for _, it := range items {
		reqs = append(reqs, recorder.RecordRequest{
			Project: a.project(it.Project),
			Query:   it.Query,
			Answer:  it.Answer,
			Tags:    it.Tags,
		})
	}

	server, err := a.openServer()
	if err != nil {
		return err
	}
	defer server.Close()

	stats, err := server.Recorder().RecordBatch(cmd.Context(), reqs)
	if err != nil {
		return err
	}

	return writeJSON(cmd, map[string]interface{}{
		"recorded":        stats.Recorded,
		"skipped":         stats.Skipped,
		"failed":          stats.Failed,
		"records_created": stats.RecordsCreated,
		"duration_ms":     stats.Duration.Milliseconds(),
		"errors":          stats.ErrorMessages,
	})
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		project  string
		query    string
		file     string
		limit    int
		minScore float64
		tags     []string
		firsts   bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search stored question/answer pairs",
		Long: `Search stored pairs. Long queries are chunked, each chunk is searched,
and the results are merged by qa_id. The query comes from --query, --file or
stdin.

Examples:
  longtext search -q "retry backoff"
  longtext search -p notes --file long_question.md --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := readInput(cmd, query, file)
			if err != nil {
				return err
			}

			server, err := a.openServer()
			if err != nil {
				return err
			}
			defer server.Close()

			name := a.project(project)
			p, err := server.Storage().GetProject(cmd.Context(), name)
			if errors.Is(err, storage.ErrNotFound) {
				return writeJSON(cmd, merger.Merge(nil, q))
			}
			if err != nil {
				return err
			}

			if limit == 0 {
				limit = a.cfg.Search.Limit
			}
			if !cmd.Flags().Changed("min-score") {
				minScore = a.cfg.Search.MinScore
			}

			var filters *storage.SearchFilters
			if t := splitTags(tags); len(t) > 0 || firsts {
				filters = &storage.SearchFilters{Tags: t, ExcludeContinuations: firsts}
			}

			resp, err := server.Searcher().Search(cmd.Context(), searcher.SearchRequest{
				ProjectID: p.ID,
				Query:     q,
				Limit:     limit,
				MinScore:  minScore,
				Filters:   filters,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd, resp.Result)
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "project name (default from config)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "search query")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the query from file (- for stdin)")
	cmd.Flags().IntVarP(&limit, "limit", "k", 0, "number of results (default from config)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum relevance score (default from config)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "only records carrying any of these tags")
	cmd.Flags().BoolVar(&firsts, "first-only", false, "skip continuation records")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show record counts for a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := a.openServer()
			if err != nil {
				return err
			}
			defer server.Close()

			name := a.project(project)
			p, err := server.Storage().GetProject(cmd.Context(), name)
			if errors.Is(err, storage.ErrNotFound) {
				return writeJSON(cmd, map[string]interface{}{"exists": false, "project_id": name})
			}
			if err != nil {
				return err
			}

			status, err := server.Storage().GetStatus(cmd.Context(), p.ID)
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]interface{}{
				"exists":             true,
				"project_id":         name,
				"records_count":      status.RecordsCount,
				"groups_count":       status.GroupsCount,
				"continuation_count": status.ContinuationCount,
				"truncated_count":    status.TruncatedCount,
				"database_size_mb":   status.DatabaseSizeMB,
				"fts_indexes_built":  status.Health.FTSIndexesBuilt,
			})
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "project name (default from config)")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <group-id>",
		Short: "Delete every record of a split answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := a.openServer()
			if err != nil {
				return err
			}
			defer server.Close()

			n, err := server.Recorder().DeleteGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]interface{}{"group_id": args[0], "deleted": n})
		},
	}
}
