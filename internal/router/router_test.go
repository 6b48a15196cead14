package router

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-dataset/internal/config"
	"github.com/ashwinyue/next-dataset/internal/handler"
	"github.com/ashwinyue/next-dataset/internal/model"
	"github.com/ashwinyue/next-dataset/internal/repository"
	"github.com/ashwinyue/next-dataset/internal/service"
	"github.com/ashwinyue/next-dataset/internal/service/dataset"
	"github.com/ashwinyue/next-dataset/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	cfg := &config.Config{
		Cache:   config.CacheConfig{Backend: "memory"},
		Storage: config.StorageConfig{UploadDir: filepath.Join(t.TempDir(), "uploads")},
		Preview: config.PreviewConfig{PageSize: 4, MaxPageSize: 10},
	}
	repos := repository.NewRepositories(testutil.NewDB(t))
	svcs, err := service.NewServices(repos, cfg, nil, zap.NewNop())
	require.NoError(t, err)

	return SetupRouter(handler.NewHandlers(svcs), zap.NewNop())
}

func importDataset(t *testing.T, r *gin.Engine, name, root string, lines ...string) *dataset.ImportResult {
	t.Helper()

	src := testutil.WriteJSONL(t, t.TempDir(), name+".jsonl", lines...)
	w := testutil.Do(t, r, http.MethodPost, "/api/v1/datasets/import", gin.H{
		"name": name, "root_path": root, "file_path": src,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res dataset.ImportResult
	resp := testutil.Decode(t, w, &res)
	require.True(t, resp.Success)
	return &res
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	w := testutil.Do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var info handler.HealthInfo
	testutil.Decode(t, w, &info)
	assert.Equal(t, "ok", info.Status)
	assert.Equal(t, "memory", info.CacheBackend)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	testutil.Do(t, r, http.MethodGet, "/health", nil)

	w := testutil.Do(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "next_dataset_http_requests_total")
}

func TestImportAndQuery(t *testing.T) {
	r := newTestRouter(t)
	res := importDataset(t, r, "mixed", "/media", testutil.TextLine, testutil.ImageLine, testutil.VideoLine)
	assert.Equal(t, 3, res.Dataset.ItemCount)

	// 同名再次导入返回已有记录
	src := testutil.WriteJSONL(t, t.TempDir(), "again.jsonl", testutil.TextLine)
	w := testutil.Do(t, r, http.MethodPost, "/api/v1/datasets/import", gin.H{
		"name": "mixed", "root_path": "/media", "file_path": src,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var again dataset.ImportResult
	testutil.Decode(t, w, &again)
	assert.True(t, again.Existing)
	assert.Equal(t, res.ID, again.ID)

	w = testutil.Do(t, r, http.MethodGet, "/api/v1/datasets/"+res.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got model.Dataset
	testutil.Decode(t, w, &got)
	assert.Equal(t, "mixed", got.Name)
	assert.Equal(t, model.ModalityText, got.DataType)

	w = testutil.Do(t, r, http.MethodGet, "/api/v1/datasets/names", nil)
	var names []model.DatasetName
	testutil.Decode(t, w, &names)
	require.Len(t, names, 1)
	assert.Equal(t, res.ID, names[0].ID)
}

func TestImportErrors(t *testing.T) {
	r := newTestRouter(t)
	dir := t.TempDir()
	bad := testutil.WriteJSONL(t, dir, "bad.jsonl", testutil.TextLine, "{broken")
	empty := testutil.WriteJSONL(t, dir, "empty.jsonl")

	tests := []struct {
		name   string
		body   gin.H
		status int
	}{
		{name: "blank name", body: gin.H{"name": " ", "root_path": "/r", "file_path": bad}, status: http.StatusBadRequest},
		{name: "parse error", body: gin.H{"name": "bad", "root_path": "/r", "file_path": bad}, status: http.StatusBadRequest},
		{name: "empty file", body: gin.H{"name": "empty", "root_path": "/r", "file_path": empty}, status: http.StatusBadRequest},
		{name: "missing file", body: gin.H{"name": "x", "root_path": "/r", "file_path": filepath.Join(dir, "nope.jsonl")}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.Do(t, r, http.MethodPost, "/api/v1/datasets/import", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			resp := testutil.Decode(t, w, nil)
			assert.Equal(t, tt.status, resp.Code)
			assert.NotEmpty(t, resp.Msg)
		})
	}

	w := testutil.Do(t, r, http.MethodGet, "/api/v1/datasets", nil)
	var list []model.Dataset
	testutil.Decode(t, w, &list)
	assert.Empty(t, list)
}

func TestImportStream(t *testing.T) {
	r := newTestRouter(t)
	src := testutil.WriteJSONL(t, t.TempDir(), "s.jsonl", testutil.TextLine, testutil.ImageLine)

	w := testutil.Do(t, r, http.MethodPost, "/api/v1/datasets/import?stream=true", gin.H{
		"name": "streamed", "root_path": "/r", "file_path": src,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "event:progress")
	assert.Contains(t, body, `"stage":"done"`)
	assert.Contains(t, body, "event:result")
	assert.NotContains(t, body, "event:error")
}

func TestImportStreamError(t *testing.T) {
	r := newTestRouter(t)
	src := testutil.WriteJSONL(t, t.TempDir(), "s.jsonl", "[1]")

	w := testutil.Do(t, r, http.MethodPost, "/api/v1/datasets/import?stream=true", gin.H{
		"name": "streamed", "root_path": "/r", "file_path": src,
	})
	body := w.Body.String()
	assert.Contains(t, body, "event:error")
	assert.NotContains(t, body, "event:result")
}

func TestTagsAndFilter(t *testing.T) {
	r := newTestRouter(t)
	a := importDataset(t, r, "a", "/r", testutil.TextLine)
	b := importDataset(t, r, "b", "/r", testutil.VideoLine)

	w := testutil.Do(t, r, http.MethodPost, "/api/v1/datasets/"+a.ID+"/tags", gin.H{"tag": "train"})
	require.Equal(t, http.StatusOK, w.Code)
	w = testutil.Do(t, r, http.MethodPut, "/api/v1/datasets/"+b.ID, gin.H{"tags": []string{"eval", " ", "eval"}})
	require.Equal(t, http.StatusOK, w.Code)
	var updated model.Dataset
	testutil.Decode(t, w, &updated)
	assert.Equal(t, []string{"eval"}, []string(updated.Tags))

	w = testutil.Do(t, r, http.MethodGet, "/api/v1/datasets/tags", nil)
	var tags []string
	testutil.Decode(t, w, &tags)
	assert.ElementsMatch(t, []string{"train", "eval"}, tags)

	w = testutil.Do(t, r, http.MethodGet, "/api/v1/datasets?tags=train,missing", nil)
	var filtered []model.Dataset
	testutil.Decode(t, w, &filtered)
	require.Len(t, filtered, 1)
	assert.Equal(t, "a", filtered[0].Name)

	w = testutil.Do(t, r, http.MethodDelete, "/api/v1/datasets/"+a.ID+"/tags/train", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = testutil.Do(t, r, http.MethodGet, "/api/v1/datasets?tags=train", nil)
	filtered = nil
	testutil.Decode(t, w, &filtered)
	assert.Empty(t, filtered)

	w = testutil.Do(t, r, http.MethodPost, "/api/v1/datasets/"+a.ID+"/tags", gin.H{"tag": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = testutil.Do(t, r, http.MethodPost, "/api/v1/datasets/missing/tags", gin.H{"tag": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreviewAndMedia(t *testing.T) {
	r := newTestRouter(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.jpg"), []byte("jpeg"), 0o644))

	lines := append(testutil.RepeatLine(testutil.ImageLine, 5), "not json")
	res := importDatasetLenient(t, r, root, lines)

	w := testutil.Do(t, r, http.MethodGet, "/api/v1/datasets/"+res.ID+"/preview?page=0&page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page dataset.PreviewPage
	testutil.Decode(t, w, &page)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 6, page.TotalLines)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)
	require.Len(t, page.Items[0].Images, 1)
	assert.True(t, page.Items[0].Images[0].Exists)

	w = testutil.Do(t, r, http.MethodGet, "/api/v1/datasets/"+res.ID+"/preview?page=2&page_size=2", nil)
	page = dataset.PreviewPage{}
	testutil.Decode(t, w, &page)
	assert.Len(t, page.Items, 1)
	require.Len(t, page.Skipped, 1)
	assert.Equal(t, 6, page.Skipped[0].Line)
	assert.False(t, page.HasNext)

	w = testutil.Do(t, r, http.MethodGet, "/api/v1/datasets/"+res.ID+"/preview?page=4611686018427387904&page_size=4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = dataset.PreviewPage{}
	testutil.Decode(t, w, &page)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasNext)

	w = testutil.Do(t, r, http.MethodGet, "/api/v1/datasets/"+res.ID+"/preview?page_size=11", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = testutil.Do(t, r, http.MethodGet, "/api/v1/datasets/"+res.ID+"/preview?page=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(t, r, http.MethodGet, "/api/v1/datasets/"+res.ID+"/media?path=a.jpg", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg", w.Body.String())

	w = testutil.Do(t, r, http.MethodGet, "/api/v1/datasets/"+res.ID+"/media?path=../secret", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = testutil.Do(t, r, http.MethodGet, "/api/v1/datasets/"+res.ID+"/media?path=b.jpg", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// importDatasetLenient 导入后在受管文件末尾追加一行坏数据，模拟预览时的坏行
func importDatasetLenient(t *testing.T, r *gin.Engine, root string, lines []string) *dataset.ImportResult {
	t.Helper()
	res := importDataset(t, r, "preview", root, lines[:len(lines)-1]...)

	f, err := os.OpenFile(res.Dataset.ManagedContentPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(lines[len(lines)-1] + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w := testutil.Do(t, r, http.MethodPost, "/api/v1/cache/refresh?lines=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	return res
}

func TestGroups(t *testing.T) {
	r := newTestRouter(t)
	a := importDataset(t, r, "a", "/ra", testutil.TextLine, testutil.ImageLine)
	b := importDataset(t, r, "b", "/rb", testutil.MultiImageLine, testutil.VideoLine)

	w := testutil.Do(t, r, http.MethodPost, "/api/v1/groups", gin.H{"name": "g", "dataset_ids": []string{a.ID, b.ID}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var g model.DatasetGroup
	testutil.Decode(t, w, &g)

	w = testutil.Do(t, r, http.MethodPost, "/api/v1/groups", gin.H{"name": "g", "dataset_ids": []string{a.ID}})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = testutil.Do(t, r, http.MethodPost, "/api/v1/groups", gin.H{"name": "h", "dataset_ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(t, r, http.MethodGet, "/api/v1/groups/"+g.ID+"/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.GroupStats
	testutil.Decode(t, w, &stats)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Text)
	assert.Equal(t, 1, stats.SingleImage)
	assert.Equal(t, 1, stats.MultiImage)
	assert.Equal(t, 1, stats.Video)
	assert.Equal(t, map[string]int{"a": 2, "b": 2}, stats.Datasets)

	w = testutil.Do(t, r, http.MethodGet, "/api/v1/groups/"+g.ID+"/export", nil)
	var export map[string]model.ExportEntry
	testutil.Decode(t, w, &export)
	assert.Equal(t, "/ra", export["a"].Root)
	assert.Equal(t, a.Dataset.ManagedContentPath, export["a"].Annotation)
	assert.Equal(t, 2, export["b"].Length)

	w = testutil.Do(t, r, http.MethodPost, "/api/v1/stats", gin.H{"dataset_ids": []string{b.ID, "missing"}})
	stats = model.GroupStats{}
	testutil.Decode(t, w, &stats)
	assert.Equal(t, 2, stats.Total)

	w = testutil.Do(t, r, http.MethodPut, "/api/v1/groups/"+g.ID+"/datasets", gin.H{"dataset_ids": []string{b.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	w = testutil.Do(t, r, http.MethodGet, "/api/v1/groups/"+g.ID, nil)
	g = model.DatasetGroup{}
	testutil.Decode(t, w, &g)
	assert.Equal(t, []string{b.ID}, []string(g.DatasetIDs))

	w = testutil.Do(t, r, http.MethodGet, "/api/v1/groups", nil)
	var groups []model.DatasetGroup
	testutil.Decode(t, w, &groups)
	assert.Len(t, groups, 1)

	w = testutil.Do(t, r, http.MethodDelete, "/api/v1/groups/"+g.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = testutil.Do(t, r, http.MethodGet, "/api/v1/groups/"+g.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBatchImport(t *testing.T) {
	r := newTestRouter(t)
	dir := t.TempDir()
	a := testutil.WriteJSONL(t, dir, "a.jsonl", testutil.TextLine)
	b := testutil.WriteJSONL(t, dir, "b.jsonl", testutil.VideoLine)

	w := testutil.Do(t, r, http.MethodPost, "/api/v1/datasets/batch-import", gin.H{
		"datasets": gin.H{
			"a": gin.H{"root": "/r", "annotation": a},
			"b": gin.H{"root": "/r", "annotation": b},
		},
		"group_name": "both",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res dataset.BatchResult
	testutil.Decode(t, w, &res)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Succeeded)
	require.NotNil(t, res.Group)
	assert.Equal(t, "both", res.Group.Name)

	w = testutil.Do(t, r, http.MethodPost, "/api/v1/datasets/batch-import", gin.H{
		"datasets": gin.H{"c": gin.H{"root": "/r"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	res = dataset.BatchResult{}
	testutil.Decode(t, w, &res)
	assert.False(t, res.Success)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "c", res.Failures[0].Name)

	w = testutil.Do(t, r, http.MethodPost, "/api/v1/datasets/batch-import", gin.H{"datasets": gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotFoundRoutes(t *testing.T) {
	r := newTestRouter(t)

	for _, target := range []string{
		"/api/v1/datasets/missing",
		"/api/v1/datasets/missing/preview",
		"/api/v1/groups/missing/stats",
		"/api/v1/groups/missing/export",
	} {
		w := testutil.Do(t, r, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
	}
}
