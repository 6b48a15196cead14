package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-dataset/internal/handler"
	"github.com/ashwinyue/next-dataset/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查和指标
	r.GET("/health", h.System.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Dataset 数据集
		datasets := v1.Group("/datasets")
		{
			datasets.POST("/import", h.Dataset.ImportDataset)
			datasets.POST("/batch-import", h.Dataset.BatchImport)
			datasets.GET("", h.Dataset.ListDatasets)
			datasets.GET("/names", h.Dataset.ListDatasetNames)
			datasets.GET("/tags", h.Dataset.ListTags)
			datasets.GET("/:id", h.Dataset.GetDataset)
			datasets.PUT("/:id", h.Dataset.UpdateDataset)
			datasets.POST("/:id/tags", h.Dataset.AddTag)
			datasets.DELETE("/:id/tags/:tag", h.Dataset.RemoveTag)
			datasets.GET("/:id/preview", h.Dataset.PreviewDataset)
			datasets.GET("/:id/media", h.Dataset.GetMedia)
		}

		// Group 数据集分组
		groups := v1.Group("/groups")
		{
			groups.POST("", h.Group.CreateGroup)
			groups.GET("", h.Group.ListGroups)
			groups.GET("/:id", h.Group.GetGroup)
			groups.PUT("/:id/datasets", h.Group.UpdateGroupDatasets)
			groups.DELETE("/:id", h.Group.DeleteGroup)
			groups.GET("/:id/stats", h.Group.GetGroupStats)
			groups.GET("/:id/export", h.Group.ExportGroup)
		}

		// 任意数据集集合统计
		v1.POST("/stats", h.Group.StatsForDatasets)

		// 缓存
		v1.POST("/cache/refresh", h.System.RefreshCache)
	}

	return r
}
