// Package mcp implements the Model Context Protocol (MCP) server for longtext.
//
// The server exposes six tools over stdio:
//   - chunk_text: split long text into overlapping, boundary-aware chunks
//   - merge_results: merge per-chunk search results by qa_id and score
//   - split_record: split an oversized question/answer pair into records
//   - record_qa: store a question/answer pair, splitting long answers
//   - search_qa: search stored pairs; long queries are chunked and merged
//   - get_status: record counts and storage health for a project
//
// # Basic Usage
//
//	longtext serve
//
// The server reads MCP messages from stdin and writes responses to stdout.
// Logs go to stderr.
//
// # Tool: search_qa
//
//	Request:
//	{
//	  "name": "search_qa",
//	  "arguments": {
//	    "project_id": "notes",
//	    "query": "how do retries back off?",
//	    "limit": 5,
//	    "min_score": 0.2
//	  }
//	}
//
//	Response:
//	{
//	  "matches": [
//	    {"qa_id": "9b1d...", "score": 0.82, "query": "...", "answer": "...", "group_id": "9b1d..."}
//	  ],
//	  "query": "how do retries back off?",
//	  "count": 1,
//	  "query_chunks": 1,
//	  "merged": true,
//	  "project_id": "notes",
//	  "duration_ms": 3,
//	  "cache_hit": false,
//	  "failed_chunks": 0
//	}
//
// # Configuration
//
//	{
//	  "mcpServers": {
//	    "longtext": {
//	      "command": "/usr/local/bin/longtext",
//	      "args": ["serve"],
//	      "env": {
//	        "LONGTEXT_DB_PATH": "~/.longtext/longtext.db"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// Handler failures are returned as *MCPError values carrying a JSON-RPC code:
//   - -32602: invalid params (missing or invalid arguments)
//   - -32603: internal error (database, search failure)
//   - -32004: empty query
//
// Empty searches and unknown projects are not errors; they produce an empty
// result.
package mcp
