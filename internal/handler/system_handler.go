package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-dataset/internal/service"
)

// SystemHandler 系统处理器
type SystemHandler struct {
	svc *service.Services
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(svc *service.Services) *SystemHandler {
	return &SystemHandler{svc: svc}
}

// HealthInfo 健康检查信息
type HealthInfo struct {
	Status       string `json:"status"`
	CacheBackend string `json:"cache_backend"`
	CachedFiles  int    `json:"cached_files"`
}

// Health 健康检查
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	Success(c, HealthInfo{
		Status:       "ok",
		CacheBackend: h.svc.Config.Cache.Backend,
		CachedFiles:  h.svc.Lines.Len(),
	})
}

// RefreshCache 清空结果缓存
// POST /api/v1/cache/refresh?lines=true 同时清空 JSONL 行缓存
func (h *SystemHandler) RefreshCache(c *gin.Context) {
	lines := c.Query("lines") == "true"
	h.svc.Dataset.RefreshCache(c.Request.Context(), lines)

	Success(c, gin.H{"refreshed": true, "lines": lines})
}
