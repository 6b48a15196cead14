package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-dataset/internal/service/group"
	"github.com/ashwinyue/next-dataset/internal/service/types"
)

// GroupHandler 分组处理器
type GroupHandler struct {
	svc *group.Service
}

// NewGroupHandler 创建分组处理器
func NewGroupHandler(svc *group.Service) *GroupHandler {
	return &GroupHandler{svc: svc}
}

// DatasetIDsRequest 数据集 ID 列表请求
type DatasetIDsRequest struct {
	DatasetIDs []string `json:"dataset_ids"`
}

// CreateGroup 创建分组
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req types.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	data, err := h.svc.CreateGroup(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, data)
}

// ListGroups 列出分组
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.svc.ListGroups(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, groups)
}

// GetGroup 获取分组
func (h *GroupHandler) GetGroup(c *gin.Context) {
	data, err := h.svc.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, data)
}

// UpdateGroupDatasets 替换分组的数据集列表
func (h *GroupHandler) UpdateGroupDatasets(c *gin.Context) {
	id := c.Param("id")
	var req DatasetIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	data, err := h.svc.UpdateGroupDatasets(c.Request.Context(), id, req.DatasetIDs)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, data)
}

// DeleteGroup 删除分组
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	if err := h.svc.DeleteGroup(c.Request.Context(), c.Param("id")); err != nil {
		Error(c, err)
		return
	}

	NoContent(c)
}

// GetGroupStats 分组统计
func (h *GroupHandler) GetGroupStats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, stats)
}

// ExportGroup 导出分组
func (h *GroupHandler) ExportGroup(c *gin.Context) {
	data, err := h.svc.ExportGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, data)
}

// StatsForDatasets 对任意数据集集合做统计
// POST /api/v1/stats
func (h *GroupHandler) StatsForDatasets(c *gin.Context) {
	var req DatasetIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	stats, err := h.svc.StatsForDatasets(c.Request.Context(), req.DatasetIDs)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, stats)
}
