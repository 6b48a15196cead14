package types

import (
	"errors"
	"fmt"
)

// ValidationError 输入缺失或不合法
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError 引用的记录不存在
type NotFoundError struct {
	Kind string // dataset, group
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// ParseError JSONL 某一行解析失败，Line 从 1 开始
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("line %d: invalid JSON", e.Line)
	}
	return fmt.Sprintf("line %d: invalid JSON: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmptyDatasetError 文件中没有任何记录
type EmptyDatasetError struct {
	Path string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("dataset file is empty: %s", e.Path)
}

// DuplicateNameError 分组名称冲突
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("group name already exists: %s", e.Name)
}

// EmptyGroupError 分组不包含任何数据集
type EmptyGroupError struct{}

func (e *EmptyGroupError) Error() string {
	return "group must contain at least one dataset"
}

// StorageError 文件系统读写失败
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewValidationError 创建校验错误
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewNotFoundError 创建不存在错误
func NewNotFoundError(kind, key string) error {
	return &NotFoundError{Kind: kind, Key: key}
}

// IsNotFound 判断是否为不存在错误
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation 判断是否为校验类错误（包括解析失败、空数据集、空分组）
func IsValidation(err error) bool {
	var (
		ve *ValidationError
		pe *ParseError
		ee *EmptyDatasetError
		ge *EmptyGroupError
	)
	return errors.As(err, &ve) || errors.As(err, &pe) || errors.As(err, &ee) || errors.As(err, &ge)
}

// IsDuplicate 判断是否为名称冲突错误
func IsDuplicate(err error) bool {
	var de *DuplicateNameError
	return errors.As(err, &de)
}
