package jsonl

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ashwinyue/next-dataset/internal/service/types"
)

// Page 一页解析后的记录
type Page struct {
	Records    []PageRecord `json:"records"`
	PageIndex  int          `json:"page_index"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
	TotalLines int          `json:"total_lines"`
	HasPrev    bool         `json:"has_prev"`
	HasNext    bool         `json:"has_next"`
	Skipped    []LineError  `json:"skipped,omitempty"`
}

// PageRecord 带行号的记录，行号从 1 开始
type PageRecord struct {
	Line   int    `json:"line"`
	Record Record `json:"record"`
}

// LineError 单行解析失败
type LineError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// TotalPages 计算总页数，空文件为 0
func TotalPages(totalLines, pageSize int) int {
	if totalLines <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalLines-1)/pageSize + 1
}

// SlicePage 只解析 [pageIndex*pageSize, (pageIndex+1)*pageSize) 范围内的行
// 超出末页返回空记录；单行解析失败记入 Skipped 而不是报错
func SlicePage(lines []string, pageIndex, pageSize int) (*Page, error) {
	if pageSize <= 0 {
		return nil, types.NewValidationError("page_size", "must be positive")
	}
	if pageIndex < 0 {
		return nil, types.NewValidationError("page", "must not be negative")
	}

	total := len(lines)
	page := &Page{
		Records:    []PageRecord{},
		PageIndex:  pageIndex,
		PageSize:   pageSize,
		TotalPages: TotalPages(total, pageSize),
		TotalLines: total,
		HasPrev:    pageIndex > 0,
	}

	// 先按页数比较，超大的 pageIndex 相乘会溢出
	if pageIndex >= page.TotalPages {
		return page, nil
	}
	start := pageIndex * pageSize
	end := total
	if pageSize < total-start {
		end = start + pageSize
	}
	page.HasNext = end < total

	for i := start; i < end; i++ {
		rec, err := ParseRecord([]byte(lines[i]))
		if err != nil {
			page.Skipped = append(page.Skipped, LineError{Line: i + 1, Reason: err.Error()})
			continue
		}
		page.Records = append(page.Records, PageRecord{Line: i + 1, Record: rec})
	}
	return page, nil
}

// LineCache 进程级原始行缓存，按文件路径索引
// 受管文件写入后不再变化，因此缓存只在显式 Clear 时失效
type LineCache struct {
	mu      sync.RWMutex
	entries map[string][]string
	group   singleflight.Group
	opener  Opener
	logger  *zap.Logger
}

// NewLineCache 创建行缓存，opener 为 nil 时直接读本地文件
func NewLineCache(opener Opener, logger *zap.Logger) *LineCache {
	if opener == nil {
		opener = osOpener{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LineCache{
		entries: make(map[string][]string),
		opener:  opener,
		logger:  logger,
	}
}

// Lines 返回文件的原始行，首次访问时加载，并发加载同一文件只读一次
func (c *LineCache) Lines(path string) ([]string, error) {
	c.mu.RLock()
	lines, ok := c.entries[path]
	c.mu.RUnlock()
	if ok {
		return lines, nil
	}

	v, err, _ := c.group.Do(path, func() (interface{}, error) {
		c.mu.RLock()
		cached, ok := c.entries[path]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		// 加载结果被多个调用方共享，不跟随单个请求取消
		loaded, err := readLines(context.Background(), c.opener, path)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[path] = loaded
		c.mu.Unlock()

		c.logger.Debug("jsonl lines cached", zap.String("path", path), zap.Int("lines", len(loaded)))
		return loaded, nil
	})
	if err != nil {
		return nil, &types.StorageError{Op: "read", Path: path, Err: err}
	}
	return v.([]string), nil
}

// ReadPage 读取指定页
func (c *LineCache) ReadPage(path string, pageIndex, pageSize int) (*Page, error) {
	if pageSize <= 0 {
		return nil, types.NewValidationError("page_size", "must be positive")
	}
	if pageIndex < 0 {
		return nil, types.NewValidationError("page", "must not be negative")
	}

	lines, err := c.Lines(path)
	if err != nil {
		return nil, err
	}

	page, err := SlicePage(lines, pageIndex, pageSize)
	if err != nil {
		return nil, err
	}
	for _, skipped := range page.Skipped {
		c.logger.Warn("skip unparsable line",
			zap.String("path", path),
			zap.Int("line", skipped.Line),
			zap.String("reason", skipped.Reason))
	}
	return page, nil
}

// Clear 清除单个文件的缓存
func (c *LineCache) Clear(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// ClearAll 清除全部缓存
func (c *LineCache) ClearAll() {
	c.mu.Lock()
	c.entries = make(map[string][]string)
	c.mu.Unlock()
}

// Len 已缓存的文件数
func (c *LineCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
