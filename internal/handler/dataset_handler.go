package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-dataset/internal/service/dataset"
)

// DatasetHandler 数据集处理器
type DatasetHandler struct {
	svc *dataset.Service
}

// NewDatasetHandler 创建数据集处理器
func NewDatasetHandler(svc *dataset.Service) *DatasetHandler {
	return &DatasetHandler{svc: svc}
}

// ========== 导入 ==========

// ProgressEvent 导入进度事件
type ProgressEvent struct {
	Stage    string  `json:"stage"`
	Fraction float64 `json:"fraction"`
}

// ImportDataset 导入数据集
// POST /api/v1/datasets/import
// ?stream=true 时以 SSE 推送进度，最后推送 result 或 error 事件
func (h *DatasetHandler) ImportDataset(c *gin.Context) {
	var req dataset.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if c.Query("stream") == "true" {
		h.streamImport(c, &req)
		return
	}

	result, err := h.svc.Import(c.Request.Context(), &req, nil)
	if err != nil {
		Error(c, err)
		return
	}
	if result.Existing {
		Success(c, result)
		return
	}
	Created(c, result)
}

func (h *DatasetHandler) streamImport(c *gin.Context, req *dataset.ImportRequest) {
	ctx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Transfer-Encoding", "chunked")

	eventCh := make(chan ProgressEvent, 16)
	var (
		result *dataset.ImportResult
		err    error
	)
	go func() {
		defer close(eventCh)
		result, err = h.svc.Import(ctx, req, func(stage string, fraction float64) {
			select {
			case eventCh <- ProgressEvent{Stage: stage, Fraction: fraction}:
			case <-ctx.Done():
			}
		})
	}()

	for event := range eventCh {
		if ctx.Err() != nil {
			continue
		}
		c.SSEvent("progress", event)
		c.Writer.Flush()
	}
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		status := StatusFor(err)
		c.SSEvent("error", ErrorResponse{Code: status, Msg: err.Error()})
	} else {
		c.SSEvent("result", result)
	}
	c.Writer.Flush()
}

// BatchImport 批量导入
// POST /api/v1/datasets/batch-import
func (h *DatasetHandler) BatchImport(c *gin.Context) {
	var req dataset.BatchImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.svc.BatchImport(c.Request.Context(), &req, nil)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, result)
}

// ========== 查询 ==========

// ListDatasets 列出数据集
// GET /api/v1/datasets?tags=a,b
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	tags := splitTags(c.Query("tags"))

	data, err := h.svc.FilterByTags(c.Request.Context(), tags)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, data)
}

// ListDatasetNames 列出数据集名称
func (h *DatasetHandler) ListDatasetNames(c *gin.Context) {
	names, err := h.svc.ListDatasetNames(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, names)
}

// ListTags 列出所有标签
func (h *DatasetHandler) ListTags(c *gin.Context) {
	tags, err := h.svc.ListTags(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, tags)
}

// GetDataset 获取数据集
func (h *DatasetHandler) GetDataset(c *gin.Context) {
	id := c.Param("id")

	data, err := h.svc.GetDataset(c.Request.Context(), id)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, data)
}

// PreviewDataset 分页预览数据集内容
// GET /api/v1/datasets/:id/preview?page=0&page_size=4
func (h *DatasetHandler) PreviewDataset(c *gin.Context) {
	id := c.Param("id")
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil {
		BadRequest(c, "page must be an integer")
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "0"))
	if err != nil {
		BadRequest(c, "page_size must be an integer")
		return
	}

	data, err := h.svc.Preview(c.Request.Context(), id, page, pageSize)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, data)
}

// GetMedia 返回数据集引用的媒体文件
// GET /api/v1/datasets/:id/media?path=images/a.jpg
func (h *DatasetHandler) GetMedia(c *gin.Context) {
	id := c.Param("id")

	full, err := h.svc.ResolveMedia(c.Request.Context(), id, c.Query("path"))
	if err != nil {
		Error(c, err)
		return
	}

	c.File(full)
}

// ========== 修改 ==========

// UpdateDataset 更新数据集
func (h *DatasetHandler) UpdateDataset(c *gin.Context) {
	id := c.Param("id")
	var req dataset.UpdateDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	data, err := h.svc.UpdateDataset(c.Request.Context(), id, &req)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, data)
}

// AddTagRequest 添加标签请求
type AddTagRequest struct {
	Tag string `json:"tag"`
}

// AddTag 添加标签
func (h *DatasetHandler) AddTag(c *gin.Context) {
	id := c.Param("id")
	var req AddTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	data, err := h.svc.AddTag(c.Request.Context(), id, req.Tag)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, data)
}

// RemoveTag 删除标签
func (h *DatasetHandler) RemoveTag(c *gin.Context) {
	id := c.Param("id")

	data, err := h.svc.RemoveTag(c.Request.Context(), id, c.Param("tag"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, data)
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
