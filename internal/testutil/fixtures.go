// Package testutil 提供测试辅助工具
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ashwinyue/next-dataset/internal/model"
)

// ========== JSONL 样例 ==========

// 各模态的样例行
const (
	TextLine       = `{"id": "t", "conversations": [{"from": "human", "value": "hi"}, {"from": "gpt", "value": "hello"}]}`
	ImageLine      = `{"id": "i", "image": "a.jpg", "conversations": [{"from": "human", "value": "<image>\nwhat?"}, {"from": "gpt", "value": "a cat"}]}`
	MultiImageLine = `{"id": "m", "image": ["a.jpg", "b.jpg"], "conversations": []}`
	VideoLine      = `{"id": "v", "video": "clip.mp4", "conversations": []}`
)

// WriteJSONL 在 dir 下写入 JSONL 文件，每个元素一行
func WriteJSONL(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write jsonl: %v", err)
	}
	return path
}

// RepeatLine 生成 n 行相同内容
func RepeatLine(line string, n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = line
	}
	return lines
}

// NumberedLines 生成 n 行带递增 id 的文本记录
func NumberedLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf(`{"id": %d, "conversations": []}`, i+1)
	}
	return lines
}

// ========== 数据库 ==========

// NewDB 创建独立的 SQLite 测试库并完成迁移
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.AllModels...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ========== 模型 ==========

// NewDataset 构造数据集，计数按给定值填充
func NewDataset(name string, text, image, multi, video int, tags ...string) *model.Dataset {
	if tags == nil {
		tags = []string{}
	}
	return &model.Dataset{
		ID:                 uuid.New().String(),
		Name:               name,
		ManagedContentPath: filepath.Join("/managed", name, name+".jsonl"),
		RootPath:           filepath.Join("/media", name),
		Tags:               tags,
		DataType:           model.ModalityText,
		ItemCount:          text + image + multi + video,
		TextCount:          text,
		SingleImageCount:   image,
		MultiImageCount:    multi,
		VideoCount:         video,
		UploadTime:         time.Now(),
	}
}
