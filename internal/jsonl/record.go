// Package jsonl 提供多模态 JSONL 记录的解析、模态分类和分页读取
package jsonl

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

var (
	// ErrEmptyLine 空行（包括只含空白字符的行）
	ErrEmptyLine = errors.New("empty line")
	// ErrNotObject 行内容是合法 JSON 但不是对象
	ErrNotObject = errors.New("JSON value is not an object")
	// ErrTrailingData JSON 值之后还有多余内容
	ErrTrailingData = errors.New("unexpected data after JSON value")
)

// Record 一行 JSONL 记录
// 字段访问都带类型检查：字段存在但类型不符时按缺失处理
type Record struct {
	fields map[string]any
}

// Turn 一轮对话
type Turn struct {
	From  string `json:"from"`
	Value string `json:"value"`
}

// IsHuman 是否为用户发言
func (t Turn) IsHuman() bool {
	return t.From == "human"
}

// ParseRecord 解析一行 JSONL，数字保留为 json.Number
func ParseRecord(line []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, ErrEmptyLine
		}
		return Record{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Record{}, ErrTrailingData
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return Record{}, ErrNotObject
	}
	return Record{fields: obj}, nil
}

// NewRecord 由已解码的字段构造记录
func NewRecord(fields map[string]any) Record {
	return Record{fields: fields}
}

// Raw 返回原始字段
func (r Record) Raw() map[string]any {
	return r.fields
}

// MarshalJSON 按原始字段输出
func (r Record) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.fields)
}

// UnmarshalJSON 只接受 JSON 对象
func (r *Record) UnmarshalJSON(data []byte) error {
	rec, err := ParseRecord(data)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// Has 字段是否存在（值为 null 视为不存在）
func (r Record) Has(key string) bool {
	v, ok := r.fields[key]
	return ok && v != nil
}

// ID 展示用的记录 ID，仅支持标量
func (r Record) ID() string {
	switch v := r.fields["id"].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// Conversations 返回对话轮次，格式不符的轮次直接跳过
func (r Record) Conversations() []Turn {
	list, ok := r.fields["conversations"].([]any)
	if !ok {
		return nil
	}

	turns := make([]Turn, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		from, _ := obj["from"].(string)
		value, ok := obj["value"].(string)
		if !ok {
			continue
		}
		turns = append(turns, Turn{From: from, Value: value})
	}
	return turns
}

// Videos 返回视频相对路径
func (r Record) Videos() []string {
	paths, _ := r.media("video")
	return paths
}

// Images 返回图片相对路径，优先读取 image，其次 images
func (r Record) Images() []string {
	paths, _ := r.imageMedia()
	return paths
}

// imageMedia 返回图片路径以及原字段是否为列表
func (r Record) imageMedia() ([]string, bool) {
	if paths, isList := r.media("image"); len(paths) > 0 {
		return paths, isList
	}
	return r.media("images")
}

// media 读取媒体字段：非空字符串或字符串列表
// 列表中的非字符串和空字符串元素被忽略，过滤后为空则视为缺失
func (r Record) media(key string) ([]string, bool) {
	switch v := r.fields[key].(type) {
	case string:
		if v == "" {
			return nil, false
		}
		return []string{v}, false
	case []any:
		paths := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				paths = append(paths, s)
			}
		}
		if len(paths) == 0 {
			return nil, true
		}
		return paths, true
	default:
		return nil, false
	}
}
