package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/next-dataset/internal/service/dataset"
	"github.com/ashwinyue/next-dataset/internal/testutil"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`database:
  driver: sqlite
  path: %s
storage:
  uploadDir: %s
log:
  level: error
`, filepath.Join(dir, "test.db"), filepath.Join(dir, "uploads"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestImportCommand(t *testing.T) {
	cfg := writeConfig(t)
	src := testutil.WriteJSONL(t, t.TempDir(), "a.jsonl", testutil.TextLine, testutil.VideoLine)

	out, progress, err := run(t, "--config", cfg, "import", "--name", "a", "--root", "/r", "--file", src)
	require.NoError(t, err)
	assert.Contains(t, progress, "done")

	var res dataset.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 2, res.Dataset.ItemCount)

	// 同一个数据库再次导入同名数据集
	out, _, err = run(t, "--config", cfg, "import", "--name", "a", "--root", "/r", "--file", src)
	require.NoError(t, err)
	var again dataset.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &again))
	assert.True(t, again.Existing)
	assert.Equal(t, res.ID, again.ID)
}

func TestImportCommandErrors(t *testing.T) {
	cfg := writeConfig(t)

	_, _, err := run(t, "--config", cfg, "import", "--name", "a")
	assert.Error(t, err)

	bad := testutil.WriteJSONL(t, t.TempDir(), "bad.jsonl", "{")
	_, _, err = run(t, "--config", cfg, "import", "--name", "a", "--root", "/r", "--file", bad)
	assert.ErrorContains(t, err, "line 1")
}

func TestBatchImportCommand(t *testing.T) {
	cfg := writeConfig(t)
	dir := t.TempDir()
	a := testutil.WriteJSONL(t, dir, "a.jsonl", testutil.TextLine)
	batch, err := json.Marshal(map[string]interface{}{
		"a":       map[string]string{"root": "/r", "annotation": a},
		"missing": map[string]string{"root": "/r", "annotation": filepath.Join(dir, "nope.jsonl")},
	})
	require.NoError(t, err)
	batchFile := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(batchFile, batch, 0o644))

	out, _, err := run(t, "--config", cfg, "batch-import", "--batch", batchFile, "--group", "g")
	assert.ErrorContains(t, err, "1 of 2 datasets failed")

	var res dataset.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Succeeded)
	assert.Nil(t, res.Group)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "missing", res.Failures[0].Name)
}
