package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/ashwinyue/next-dataset/internal/jsonl"
	"github.com/ashwinyue/next-dataset/internal/metrics"
	"github.com/ashwinyue/next-dataset/internal/model"
	"github.com/ashwinyue/next-dataset/internal/service/file"
	"github.com/ashwinyue/next-dataset/internal/service/types"
)

// 对话角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// PreviewTurn 一轮对话
type PreviewTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MediaRef 媒体文件引用，Path 为拼接媒体根目录后的路径
type MediaRef struct {
	Source string `json:"source"`
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// PreviewItem 一条记录的展示形式
type PreviewItem struct {
	Line          int            `json:"line"`
	ID            string         `json:"id"`
	Modality      model.Modality `json:"modality"`
	Conversations []PreviewTurn  `json:"conversations"`
	Images        []MediaRef     `json:"images"`
	Videos        []MediaRef     `json:"videos"`
	Record        jsonl.Record   `json:"record"`
}

// PreviewPage 预览结果
type PreviewPage struct {
	DatasetID  string            `json:"dataset_id"`
	Items      []PreviewItem     `json:"items"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
	TotalLines int               `json:"total_lines"`
	HasPrev    bool              `json:"has_prev"`
	HasNext    bool              `json:"has_next"`
	Skipped    []jsonl.LineError `json:"skipped,omitempty"`
}

// Preview 读取数据集的一页内容，pageSize 为 0 时使用默认值
func (s *Service) Preview(ctx context.Context, id string, page, pageSize int) (*PreviewPage, error) {
	if pageSize == 0 {
		pageSize = s.pageSize
	}
	if pageSize > s.maxPageSize {
		return nil, types.NewValidationError("page_size", "exceeds maximum page size")
	}

	dataset, err := s.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}

	p, err := s.lines.ReadPage(dataset.ManagedContentPath, page, pageSize)
	if err != nil {
		return nil, err
	}
	metrics.PreviewPages.Inc()
	if n := len(p.Skipped); n > 0 {
		metrics.PreviewSkippedLines.Add(float64(n))
	}

	items := make([]PreviewItem, 0, len(p.Records))
	for _, rec := range p.Records {
		items = append(items, renderItem(dataset.RootPath, rec))
	}

	return &PreviewPage{
		DatasetID:  dataset.ID,
		Items:      items,
		Page:       p.PageIndex,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
		TotalLines: p.TotalLines,
		HasPrev:    p.HasPrev,
		HasNext:    p.HasNext,
		Skipped:    p.Skipped,
	}, nil
}

func renderItem(root string, rec jsonl.PageRecord) PreviewItem {
	turns := rec.Record.Conversations()
	conversations := make([]PreviewTurn, 0, len(turns))
	for _, t := range turns {
		role := RoleAssistant
		if t.IsHuman() {
			role = RoleUser
		}
		conversations = append(conversations, PreviewTurn{Role: role, Content: t.Value})
	}

	return PreviewItem{
		Line:          rec.Line,
		ID:            rec.Record.ID(),
		Modality:      jsonl.Classify(rec.Record),
		Conversations: conversations,
		Images:        mediaRefs(root, rec.Record.Images()),
		Videos:        mediaRefs(root, rec.Record.Videos()),
		Record:        rec.Record,
	}
}

func mediaRefs(root string, paths []string) []MediaRef {
	refs := make([]MediaRef, 0, len(paths))
	for _, p := range paths {
		full := p
		if !filepath.IsAbs(p) {
			full = filepath.Join(root, p)
		}
		info, err := os.Stat(full)
		refs = append(refs, MediaRef{
			Source: p,
			Path:   full,
			Exists: err == nil && info.Mode().IsRegular(),
		})
	}
	return refs
}

// ResolveMedia 把记录中的相对媒体路径解析为数据集根目录下的文件
// 路径跳出根目录或文件不存在时返回错误
func (s *Service) ResolveMedia(ctx context.Context, id, rel string) (string, error) {
	dataset, err := s.GetDataset(ctx, id)
	if err != nil {
		return "", err
	}

	full, err := file.ResolveExisting(dataset.RootPath, rel)
	if errors.Is(err, file.ErrInvalidPath) {
		return "", types.NewValidationError("path", err.Error())
	}
	if err != nil {
		return "", types.NewNotFoundError("media", rel)
	}

	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return "", types.NewNotFoundError("media", rel)
	}
	return full, nil
}
