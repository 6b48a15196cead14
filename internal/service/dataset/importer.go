package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ashwinyue/next-dataset/internal/cache"
	"github.com/ashwinyue/next-dataset/internal/jsonl"
	"github.com/ashwinyue/next-dataset/internal/metrics"
	"github.com/ashwinyue/next-dataset/internal/model"
	"github.com/ashwinyue/next-dataset/internal/service/file"
	"github.com/ashwinyue/next-dataset/internal/service/types"
)

// 导入阶段
const (
	StagePrepare  = "prepare"
	StageRead     = "read"
	StageParse    = "parse"
	StageClassify = "classify"
	StageCopy     = "copy"
	StageSave     = "save"
	StageDone     = "done"
)

// progressEvery 解析阶段每隔多少行上报一次进度
const progressEvery = 100

// ImportRequest 导入请求
type ImportRequest struct {
	Name     string `json:"name" validate:"notblank,safename,max=255"`
	RootPath string `json:"root_path" validate:"notblank"`
	FilePath string `json:"file_path" validate:"notblank"`
}

// ImportResult 导入结果
// Existing 为 true 表示同名数据集已存在，直接返回了已有记录
type ImportResult struct {
	ID       string         `json:"id"`
	Existing bool           `json:"existing"`
	Dataset  *model.Dataset `json:"dataset"`
}

// Import 导入一个 JSONL 数据集
// 整个过程持有写锁：要么同时留下受管文件和元信息记录，要么什么都不留下
func (s *Service) Import(ctx context.Context, req *ImportRequest, progress types.ProgressFunc) (*ImportResult, error) {
	start := time.Now()
	result, err := s.doImport(ctx, req, progress)

	status := "success"
	switch {
	case err != nil:
		status = "failed"
		s.logger.Warn("dataset import failed", zap.String("dataset", req.Name), zap.Error(err))
	case result.Existing:
		status = "existing"
	default:
		s.logger.Info("dataset imported",
			zap.String("dataset", req.Name),
			zap.String("id", result.ID),
			zap.Int("items", result.Dataset.ItemCount),
			zap.String("data_type", string(result.Dataset.DataType)),
			zap.Duration("elapsed", time.Since(start)))
	}
	metrics.RecordImport(status, time.Since(start).Seconds())
	return result, err
}

func (s *Service) doImport(ctx context.Context, req *ImportRequest, progress types.ProgressFunc) (*ImportResult, error) {
	progress.Report(StagePrepare, 0)

	req.Name = strings.TrimSpace(req.Name)
	req.RootPath = strings.TrimSpace(req.RootPath)
	req.FilePath = strings.TrimSpace(req.FilePath)
	if err := types.Validate(req); err != nil {
		return nil, err
	}

	info, err := os.Stat(req.FilePath)
	if err != nil || !info.Mode().IsRegular() {
		return nil, types.NewValidationError("file_path", "file not found: "+req.FilePath)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	existing, err := s.store.GetByName(ctx, req.Name)
	if err == nil {
		progress.Report(StageDone, 1)
		return &ImportResult{ID: existing.ID, Existing: true, Dataset: existing}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up dataset %s: %w", req.Name, err)
	}

	progress.Report(StageRead, 0.1)
	counts, err := scanFile(ctx, req.FilePath, info.Size(), progress)
	if err != nil {
		return nil, err
	}

	progress.Report(StageClassify, 0.7)
	dataType := counts.Dominant()

	progress.Report(StageCopy, 0.8)
	managedPath, err := s.copyIntoStorage(ctx, req.Name, req.FilePath)
	if err != nil {
		return nil, err
	}

	progress.Report(StageSave, 0.9)
	dataset := &model.Dataset{
		ID:                 uuid.New().String(),
		Name:               req.Name,
		ManagedContentPath: managedPath,
		RootPath:           req.RootPath,
		Tags:               []string{},
		DataType:           dataType,
		ItemCount:          counts.Total,
		TextCount:          counts.Text,
		SingleImageCount:   counts.Image,
		MultiImageCount:    counts.MultiImage,
		VideoCount:         counts.Video,
		UploadTime:         s.now(),
	}
	if err := s.store.Create(ctx, dataset); err != nil {
		// 数据库写入失败，删除已复制的文件
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), managedPath); delErr != nil {
			s.logger.Error("failed to remove managed copy", zap.String("path", managedPath), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to save dataset %s: %w", req.Name, err)
	}

	s.invalidate(ctx, cache.DatasetKeys...)
	metrics.RecordModalityCounts(map[string]int{
		string(model.ModalityText):       counts.Text,
		string(model.ModalityImage):      counts.Image,
		string(model.ModalityMultiImage): counts.MultiImage,
		string(model.ModalityVideo):      counts.Video,
	})

	progress.Report(StageDone, 1)
	return &ImportResult{ID: dataset.ID, Dataset: dataset}, nil
}

// scanFile 严格解析每一行并按模态计数，任一行失败即返回 ParseError
func scanFile(ctx context.Context, path string, size int64, progress types.ProgressFunc) (jsonl.Counts, error) {
	var counts jsonl.Counts

	f, err := os.Open(path)
	if err != nil {
		return counts, &types.StorageError{Op: "read", Path: path, Err: err}
	}
	defer f.Close()

	progress.Report(StageParse, 0.2)
	lr := jsonl.NewLineReader(f)
	for {
		line, err := lr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return counts, &types.StorageError{Op: "read", Path: path, Err: err}
		}

		rec, err := jsonl.ParseRecord(line)
		if err != nil {
			return counts, &types.ParseError{Line: lr.Line(), Err: err}
		}
		counts.Add(jsonl.Classify(rec))

		if lr.Line()%progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return counts, err
			}
			fraction := 0.6
			if size > 0 {
				fraction = 0.2 + 0.4*float64(lr.Offset())/float64(size)
			}
			progress.Report(StageParse, fraction)
		}
	}

	if counts.Total == 0 {
		return counts, &types.EmptyDatasetError{Path: path}
	}
	progress.Report(StageParse, 0.6)
	return counts, nil
}

// copyIntoStorage 把源文件原样复制到受管目录
func (s *Service) copyIntoStorage(ctx context.Context, name, src string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", &types.StorageError{Op: "copy", Path: src, Err: err}
	}
	defer f.Close()

	path, err := s.storage.Save(ctx, &file.SaveRequest{
		Dir:      name,
		FileName: filepath.Base(src),
		Reader:   f,
	})
	if err != nil {
		return "", &types.StorageError{Op: "copy", Path: src, Err: err}
	}
	return path, nil
}

// ========== 批量导入 ==========

// BatchEntry 批量导入配置中的一项
// 格式不符的项不会让整个配置解析失败，而是在导入时记为失败
type BatchEntry struct {
	Root       string `json:"root"`
	Annotation string `json:"annotation"`
	invalid    string
}

// UnmarshalJSON 宽松解析，记录格式错误而不返回错误
func (e *BatchEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		e.invalid = "entry must be an object with root and annotation"
		return nil
	}

	for _, field := range []struct {
		key string
		dst *string
	}{{"root", &e.Root}, {"annotation", &e.Annotation}} {
		v, ok := raw[field.key]
		if !ok {
			e.invalid = fmt.Sprintf("missing %s", field.key)
			return nil
		}
		if err := json.Unmarshal(v, field.dst); err != nil {
			e.invalid = fmt.Sprintf("%s must be a string", field.key)
			return nil
		}
	}
	return nil
}

// Invalid 格式错误原因，合法时为空
func (e BatchEntry) Invalid() string {
	if e.invalid != "" {
		return e.invalid
	}
	if strings.TrimSpace(e.Root) == "" {
		return "missing root"
	}
	if strings.TrimSpace(e.Annotation) == "" {
		return "missing annotation"
	}
	return ""
}

// BatchConfig 数据集名称到导入配置的映射
type BatchConfig map[string]BatchEntry

// LoadBatchConfig 从 JSON 文件读取批量导入配置
func LoadBatchConfig(path string) (BatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.StorageError{Op: "read", Path: path, Err: err}
	}
	return ParseBatchConfig(data)
}

// ParseBatchConfig 解析批量导入配置，顶层必须是对象
func ParseBatchConfig(data []byte) (BatchConfig, error) {
	var cfg BatchConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, types.NewValidationError("config", "must be a JSON object: "+err.Error())
	}
	if cfg == nil {
		return nil, types.NewValidationError("config", "must be a JSON object")
	}
	return cfg, nil
}

// BatchImportRequest 批量导入请求
// GroupName 非空时，全部成功后用导入的数据集创建分组
type BatchImportRequest struct {
	Datasets  BatchConfig `json:"datasets"`
	GroupName string      `json:"group_name"`
}

// BatchFailure 单个失败项
type BatchFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// BatchResult 批量导入结果
type BatchResult struct {
	Success     bool                `json:"success"`
	Total       int                 `json:"total"`
	Succeeded   int                 `json:"succeeded"`
	Failures    []BatchFailure      `json:"failures"`
	ImportedIDs []string            `json:"imported_ids"`
	Report      string              `json:"report"`
	Group       *model.DatasetGroup `json:"group,omitempty"`
	GroupError  string              `json:"group_error,omitempty"`
}

// BatchImport 逐个导入，单项失败不影响其他项
// 导入顺序按数据集名称字典序，与配置文件中的书写顺序无关，
// 因此 Failures 和 ImportedIDs 的顺序对同一份配置总是相同
func (s *Service) BatchImport(ctx context.Context, req *BatchImportRequest, progress types.ProgressFunc) (*BatchResult, error) {
	if len(req.Datasets) == 0 {
		return nil, types.NewValidationError("datasets", "is required")
	}

	names := make([]string, 0, len(req.Datasets))
	for name := range req.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)

	total := len(names)
	result := &BatchResult{
		Total:       total,
		Failures:    []BatchFailure{},
		ImportedIDs: []string{},
	}

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		base := float64(i) / float64(total)
		progress.Report(fmt.Sprintf("importing %s (%d/%d)", name, i+1, total), base)

		entry := req.Datasets[name]
		if reason := entry.Invalid(); reason != "" {
			result.Failures = append(result.Failures, BatchFailure{Name: name, Reason: reason})
			continue
		}

		entryName := name
		sub := func(stage string, fraction float64) {
			progress.Report(fmt.Sprintf("[%s] %s", entryName, stage), base+fraction/float64(total))
		}
		res, err := s.Import(ctx, &ImportRequest{
			Name:     name,
			RootPath: entry.Root,
			FilePath: entry.Annotation,
		}, sub)
		if err != nil {
			result.Failures = append(result.Failures, BatchFailure{Name: name, Reason: err.Error()})
			continue
		}
		result.ImportedIDs = append(result.ImportedIDs, res.ID)
	}

	result.Succeeded = len(result.ImportedIDs)
	result.Success = len(result.Failures) == 0
	result.Report = batchReport(result)

	if groupName := strings.TrimSpace(req.GroupName); groupName != "" && result.Success && len(result.ImportedIDs) > 0 {
		s.createBatchGroup(ctx, groupName, result)
	}

	progress.Report(StageDone, 1)
	return result, nil
}

func (s *Service) createBatchGroup(ctx context.Context, name string, result *BatchResult) {
	if s.groups == nil {
		result.GroupError = "group service not configured"
		return
	}
	group, err := s.groups.CreateGroup(ctx, &types.CreateGroupRequest{Name: name, DatasetIDs: result.ImportedIDs})
	if err != nil {
		result.GroupError = err.Error()
		s.logger.Warn("failed to create group after batch import", zap.String("group", name), zap.Error(err))
		return
	}
	result.Group = group
}

func batchReport(r *BatchResult) string {
	if len(r.Failures) == 0 {
		return fmt.Sprintf("batch import finished: all %d datasets imported", r.Total)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "batch import finished: %d total, %d succeeded, %d failed",
		r.Total, r.Succeeded, len(r.Failures))
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "\n%s: %s", f.Name, f.Reason)
	}
	return b.String()
}
