package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStorage 本地文件存储
type LocalStorage struct {
	basePath string // 基础路径（绝对路径）
}

// NewLocalStorage 创建本地存储服务
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	// 确保基础路径存在
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalStorage{basePath: abs}, nil
}

// BasePath 存储根目录
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// Save 保存文件到 {basePath}/{dir}/{fileName}
// 先写入同目录下的临时文件再重命名，重命名在同一文件系统内是原子的
func (s *LocalStorage) Save(ctx context.Context, req *SaveRequest) (string, error) {
	fullPath, err := ResolveUnder(s.basePath, filepath.Join(req.Dir, filepath.Base(req.FileName)))
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := filepath.Join(dir, "."+uuid.New().String()+".tmp")
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: req.Reader}); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}

	return fullPath, nil
}

// Open 打开文件，filePath 必须位于存储目录下
func (s *LocalStorage) Open(ctx context.Context, filePath string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(filePath)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete 删除文件，目录变空时一并删除
func (s *LocalStorage) Delete(ctx context.Context, filePath string) error {
	fullPath, err := s.resolve(filePath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	dir := filepath.Dir(fullPath)
	if dir != s.basePath {
		// 目录非空时删除失败，忽略
		_ = os.Remove(dir)
	}
	return nil
}

// resolve 接受绝对路径或相对存储根目录的路径
func (s *LocalStorage) resolve(filePath string) (string, error) {
	if filepath.IsAbs(filePath) {
		rel, err := filepath.Rel(s.basePath, filePath)
		if err != nil {
			return "", fmt.Errorf("path %s is outside storage: %w", filePath, err)
		}
		filePath = rel
	}
	return ResolveUnder(s.basePath, filePath)
}

// ErrInvalidPath 路径为空、为绝对路径或逃出根目录
var ErrInvalidPath = errors.New("invalid path")

// ResolveUnder 把相对路径拼到 root 下，结果逃出 root 时返回错误
// 只做字面检查，不访问文件系统
func ResolveUnder(root, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s must be relative", ErrInvalidPath, rel)
	}

	full := filepath.Join(root, rel)
	if !within(root, full) {
		return "", fmt.Errorf("%w: %s escapes %s", ErrInvalidPath, rel, root)
	}
	return full, nil
}

// ResolveExisting 在 ResolveUnder 的基础上解析符号链接，真实路径也必须位于 root 下
// 文件不存在时返回的错误满足 errors.Is(err, fs.ErrNotExist)
func ResolveExisting(root, rel string) (string, error) {
	full, err := ResolveUnder(root, rel)
	if err != nil {
		return "", err
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(full)
	if err != nil {
		return "", err
	}
	if !within(realRoot, realPath) {
		return "", fmt.Errorf("%w: %s links outside %s", ErrInvalidPath, rel, root)
	}
	return full, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ctxReader 每次读取前检查 context 是否已取消
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
