package handler

import (
	"github.com/ashwinyue/next-dataset/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Dataset *DatasetHandler
	Group   *GroupHandler
	System  *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Dataset: NewDatasetHandler(svc.Dataset),
		Group:   NewGroupHandler(svc.Group),
		System:  NewSystemHandler(svc),
	}
}
