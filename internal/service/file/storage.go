package file

import (
	"context"
	"io"
)

// Storage 受管文件存储接口
// 导入的 JSONL 文件被复制进存储后不再修改
type Storage interface {
	// Save 写入文件，返回文件的完整路径；写入过程中失败不会留下半个文件
	Save(ctx context.Context, req *SaveRequest) (string, error)
	// Open 打开文件
	Open(ctx context.Context, filePath string) (io.ReadCloser, error)
	// Delete 删除文件，文件不存在不算错误
	Delete(ctx context.Context, filePath string) error
}

// SaveRequest 保存文件请求
type SaveRequest struct {
	Dir      string // 存储下的子目录，通常为数据集名称
	FileName string
	Reader   io.Reader
}
