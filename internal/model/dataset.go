package model

import (
	"time"

	"gorm.io/datatypes"
)

// Modality 记录的模态类型
type Modality string

const (
	ModalityText       Modality = "text"        // 纯文本
	ModalityImage      Modality = "image"       // 单图
	ModalityMultiImage Modality = "multi-image" // 多图
	ModalityVideo      Modality = "video"       // 视频
)

// Modalities 按并列优先级从低到高排列
var Modalities = []Modality{ModalityText, ModalityImage, ModalityMultiImage, ModalityVideo}

// Dataset 数据集元信息
// 内容本身保存在受管目录中的 JSONL 文件里，这里只存计数和路径
type Dataset struct {
	ID                 string                      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name               string                      `json:"name" gorm:"type:varchar(255);uniqueIndex;not null"`
	ManagedContentPath string                      `json:"path" gorm:"column:path;not null"`
	RootPath           string                      `json:"root_path" gorm:"not null"`
	Tags               datatypes.JSONSlice[string] `json:"tags"`
	DataType           Modality                    `json:"data_type" gorm:"type:varchar(32);not null"`
	ItemCount          int                         `json:"item_count" gorm:"default:0"`
	TextCount          int                         `json:"text_count" gorm:"default:0"`
	SingleImageCount   int                         `json:"single_image_count" gorm:"default:0"`
	MultiImageCount    int                         `json:"multi_image_count" gorm:"default:0"`
	VideoCount         int                         `json:"video_count" gorm:"default:0"`
	UploadTime         time.Time                   `json:"upload_time" gorm:"not null"`
}

// TableName 指定表名
func (Dataset) TableName() string {
	return "datasets"
}

// HasTag 判断数据集是否包含标签
func (d *Dataset) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasAnyTag 判断数据集是否包含任一标签
func (d *Dataset) HasAnyTag(tags []string) bool {
	for _, tag := range tags {
		if d.HasTag(tag) {
			return true
		}
	}
	return false
}

// DatasetName 数据集 ID 与名称
type DatasetName struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
