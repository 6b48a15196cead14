package jsonl

import (
	"github.com/ashwinyue/next-dataset/internal/model"
)

// Classify 判断记录模态，按 video > image/images > text 的顺序命中即返回
//
// image 字段为列表时一律归为 multi-image，即使列表只有一个元素。
func Classify(r Record) model.Modality {
	if len(r.Videos()) > 0 {
		return model.ModalityVideo
	}
	if paths, isList := r.imageMedia(); len(paths) > 0 {
		if isList {
			return model.ModalityMultiImage
		}
		return model.ModalityImage
	}
	return model.ModalityText
}

// Counts 各模态计数
type Counts struct {
	Total      int `json:"total"`
	Text       int `json:"text"`
	Image      int `json:"image"`
	MultiImage int `json:"multi_image"`
	Video      int `json:"video"`
}

// Add 计入一条记录
func (c *Counts) Add(m model.Modality) {
	switch m {
	case model.ModalityVideo:
		c.Video++
	case model.ModalityMultiImage:
		c.MultiImage++
	case model.ModalityImage:
		c.Image++
	default:
		c.Text++
	}
	c.Total++
}

// Get 返回指定模态的计数
func (c Counts) Get(m model.Modality) int {
	switch m {
	case model.ModalityVideo:
		return c.Video
	case model.ModalityMultiImage:
		return c.MultiImage
	case model.ModalityImage:
		return c.Image
	default:
		return c.Text
	}
}

// Dominant 数量最多的模态；并列时取优先级更高者（text < image < multi-image < video）
func (c Counts) Dominant() model.Modality {
	if c.Total == 0 {
		return model.ModalityText
	}

	best := model.ModalityText
	bestCount := c.Text
	for _, m := range model.Modalities[1:] {
		if n := c.Get(m); n >= bestCount {
			best, bestCount = m, n
		}
	}
	return best
}
