// Package types 定义服务层共享的类型和错误
// 放在独立包中避免 handler 与各服务之间的循环导入
package types

// ProgressFunc 进度回调，fraction 取值 0.0 ~ 1.0
// 仅用于观察，回调为 nil 时所有操作照常执行
type ProgressFunc func(stage string, fraction float64)

// Report 安全地触发进度回调
func (f ProgressFunc) Report(stage string, fraction float64) {
	if f == nil {
		return
	}
	f(stage, fraction)
}

// CreateGroupRequest 创建分组请求
type CreateGroupRequest struct {
	Name       string   `json:"name" validate:"notblank,max=255"`
	DatasetIDs []string `json:"dataset_ids"`
}
