package model

import (
	"time"

	"gorm.io/datatypes"
)

// DatasetGroup 数据集分组
// DatasetIDs 不做引用完整性约束，已失效的 ID 在统计时直接跳过
type DatasetGroup struct {
	ID         string                      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name       string                      `json:"name" gorm:"type:varchar(255);uniqueIndex;not null"`
	DatasetIDs datatypes.JSONSlice[string] `json:"dataset_ids" gorm:"not null"`
	CreateTime time.Time                   `json:"create_time" gorm:"not null"`
}

// TableName 指定表名
func (DatasetGroup) TableName() string {
	return "dataset_groups"
}

// GroupStats 分组统计
type GroupStats struct {
	Total       int            `json:"total"`
	Text        int            `json:"text"`
	SingleImage int            `json:"single_image"`
	MultiImage  int            `json:"multi_image"`
	Video       int            `json:"video"`
	Datasets    map[string]int `json:"datasets"`
}

// ExportEntry 分组导出条目
type ExportEntry struct {
	Root       string `json:"root"`
	Annotation string `json:"annotation"`
	Length     int    `json:"length"`
}
