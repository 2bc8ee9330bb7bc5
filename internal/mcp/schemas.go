package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/longtext-mcp/internal/searcher"
)

// chunkTextTool returns the tool definition for chunk_text
func chunkTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunk_text",
		Description: "Split long text into overlapping chunks that respect paragraph and sentence boundaries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Text to split; empty text yields no chunks",
				},
				"max_size": map[string]interface{}{
					"type":        "integer",
					"description": "Per-chunk ceiling in characters (defaults to the server's max_chunk_size)",
					"minimum":     1,
				},
			},
			Required: []string{"text"},
		},
	}
}

// mergeResultsTool returns the tool definition for merge_results
func mergeResultsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "merge_results",
		Description: "Merge per-chunk search results into one list deduplicated by qa_id and ranked by score",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"chunk_results": map[string]interface{}{
					"type":        "array",
					"description": "One entry per query chunk: {\"matches\": [...]} or an array of matches. Each match carries qa_id and score",
					"items": map[string]interface{}{
						"type": []string{"object", "array"},
					},
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Original query echoed in the merged result",
				},
			},
			Required: []string{"chunk_results"},
		},
	}
}

// splitRecordTool returns the tool definition for split_record
func splitRecordTool() mcp.Tool {
	return mcp.Tool{
		Name:        "split_record",
		Description: "Split an oversized question/answer pair into records with continuation queries and answer spans",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Question text; cut hard at max_query_size",
				},
				"answer": map[string]interface{}{
					"type":        "string",
					"description": "Answer text; chunked when longer than max_answer_size",
				},
				"max_query_size": map[string]interface{}{
					"type":        "integer",
					"description": "Query ceiling in characters",
					"minimum":     1,
				},
				"max_answer_size": map[string]interface{}{
					"type":        "integer",
					"description": "Answer ceiling in characters",
					"minimum":     1,
				},
			},
			Required: []string{"query", "answer"},
		},
	}
}

// recordQATool returns the tool definition for record_qa
func recordQATool() mcp.Tool {
	return mcp.Tool{
		Name:        "record_qa",
		Description: "Store a question/answer pair for later search, splitting long answers into linked records",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": projectProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Question text",
				},
				"answer": map[string]interface{}{
					"type":        "string",
					"description": "Answer text",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"description": "Labels usable as search filters",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"query", "answer"},
		},
	}
}

// searchQATool returns the tool definition for search_qa
func searchQATool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_qa",
		Description: "Search recorded question/answer pairs; long queries are chunked and the per-chunk results merged",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": projectProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (keywords or a long passage)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     searcher.DefaultLimit,
					"minimum":     1,
					"maximum":     searcher.MaxLimit,
				},
				"min_score": map[string]interface{}{
					"type":        "number",
					"description": "Minimum relevance score threshold (0.0-1.0)",
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"filters": map[string]interface{}{
					"type":        "object",
					"description": "Optional filters to narrow search",
					"properties": map[string]interface{}{
						"tags": map[string]interface{}{
							"type":        "array",
							"description": "Match records carrying any of these tags",
							"items": map[string]interface{}{
								"type": "string",
							},
						},
						"group_id": map[string]interface{}{
							"type":        "string",
							"description": "Restrict to the records of one split answer",
						},
						"exclude_continuations": map[string]interface{}{
							"type":        "boolean",
							"description": "Only return the first record of each split answer",
						},
					},
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query record counts and storage health for a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": projectProperty(),
			},
		},
	}
}

func projectProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Project name; records are isolated per project (defaults to the server's default project)",
	}
}
