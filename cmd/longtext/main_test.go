package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI with args and stdin and returns stdout
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func decode(t *testing.T, out string) map[string]interface{} {
	t.Helper()
	var v map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &v), "output: %s", out)
	return v
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: dev")
	assert.Contains(t, out, "SQLite Driver:")
}

func TestChunkCmd(t *testing.T) {
	text := strings.Repeat("This is a sentence. ", 1000)

	out, err := run(t, text, "chunk")
	require.NoError(t, err)
	v := decode(t, out)
	assert.Equal(t, float64(3), v["total_chunks"])
	assert.Equal(t, float64(20000), v["original_length"])
	assert.Equal(t, true, v["needs_chunking"])

	out, err = run(t, "", "chunk", "--text", "short text")
	require.NoError(t, err)
	assert.Equal(t, float64(1), decode(t, out)["total_chunks"])
}

func TestChunkCmd_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("word ", 100)), 0644))

	out, err := run(t, "", "chunk", "--file", path, "--max-size", "100")
	require.NoError(t, err)
	assert.Greater(t, decode(t, out)["total_chunks"].(float64), float64(1))
}

func TestSplitCmd(t *testing.T) {
	out, err := run(t, strings.Repeat("a", 250), "split", "-q", "Q", "--max-answer-size", "100")
	require.NoError(t, err)

	v := decode(t, out)
	assert.Equal(t, true, v["split"])
	records := v["records"].([]interface{})
	assert.Equal(t, "Q", records[0].(map[string]interface{})["query"])

	_, err = run(t, "answer", "split")
	assert.Error(t, err, "query is required")
}

func TestMergeCmd(t *testing.T) {
	input := `[
		{"matches":[{"qa_id":"qa-1","score":0.9},{"qa_id":"qa-2","score":0.7}]},
		{"matches":[{"qa_id":"qa-1","score":0.6},{"qa_id":"qa-3","score":0.8}]}
	]`

	out, err := run(t, input, "merge", "-q", "long query")
	require.NoError(t, err)
	v := decode(t, out)
	assert.Equal(t, float64(3), v["count"])
	assert.Equal(t, true, v["merged"])

	out, err = run(t, input, "merge", "--limit", "1")
	require.NoError(t, err)
	assert.Equal(t, float64(1), decode(t, out)["count"])

	_, err = run(t, "{not json", "merge")
	assert.Error(t, err)
}

func TestRecordSearchStatusDelete(t *testing.T) {
	db := filepath.Join(t.TempDir(), "longtext.db")

	out, err := run(t, "", "--db", db, "record", "-p", "notes", "-q", "How do retries work?",
		"-a", "Use exponential backoff with jitter.", "--tags", "go,retry")
	require.NoError(t, err)
	rec := decode(t, out)
	assert.Equal(t, true, rec["recorded"])
	groupID := rec["group_id"].(string)

	out, err = run(t, "", "--db", db, "search", "-p", "notes", "-q", "backoff")
	require.NoError(t, err)
	res := decode(t, out)
	assert.Equal(t, float64(1), res["count"])

	out, err = run(t, "", "--db", db, "search", "-p", "notes", "-q", "backoff", "--tags", "python")
	require.NoError(t, err)
	assert.Equal(t, float64(0), decode(t, out)["count"])

	out, err = run(t, "", "--db", db, "status", "-p", "notes")
	require.NoError(t, err)
	st := decode(t, out)
	assert.Equal(t, true, st["exists"])
	assert.Equal(t, float64(1), st["records_count"])

	out, err = run(t, "", "--db", db, "delete", groupID)
	require.NoError(t, err)
	assert.Equal(t, float64(1), decode(t, out)["deleted"])

	out, err = run(t, "", "--db", db, "status", "-p", "missing")
	require.NoError(t, err)
	assert.Equal(t, false, decode(t, out)["exists"])
}

func TestRecordBatchCmd(t *testing.T) {
	db := filepath.Join(t.TempDir(), "longtext.db")
	input := `[
		{"project": "notes", "query": "q1", "answer": "a1"},
		{"project": "notes", "query": "q1", "answer": "a1"},
		{"project": "notes", "query": "", "answer": "a3"}
	]`

	out, err := run(t, input, "--db", db, "record", "--batch", "-")
	require.NoError(t, err)
	v := decode(t, out)
	assert.Equal(t, float64(1), v["recorded"])
	assert.Equal(t, float64(1), v["skipped"])
	assert.Equal(t, float64(1), v["failed"])
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitTags([]string{"a, b", "", "c"}))
	assert.Nil(t, splitTags(nil))
}
