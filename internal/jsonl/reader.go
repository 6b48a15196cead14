package jsonl

import (
	"bufio"
	"context"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LineReader 逐行读取 JSONL，不限制单行长度
// 行尾的 \n 与 \r\n 会被去掉；文件最后一行可以没有换行
type LineReader struct {
	r      *bufio.Reader
	line   int
	offset int64
}

// NewLineReader 创建行读取器
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next 返回下一行内容，读完返回 io.EOF
func (lr *LineReader) Next() ([]byte, error) {
	buf, err := lr.r.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, io.EOF
	}

	lr.offset += int64(len(buf))
	lr.line++

	buf = bytes.TrimSuffix(buf, []byte("\n"))
	buf = bytes.TrimSuffix(buf, []byte("\r"))
	if lr.line == 1 {
		buf = bytes.TrimPrefix(buf, utf8BOM)
	}
	return buf, nil
}

// Line 当前行号，从 1 开始
func (lr *LineReader) Line() int {
	return lr.line
}

// Offset 已读取的字节数
func (lr *LineReader) Offset() int64 {
	return lr.offset
}

// Opener 打开待读取的文件，受管存储实现了该接口
type Opener interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

type osOpener struct{}

func (osOpener) Open(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// readLines 读取文件全部原始行（不解析）
func readLines(ctx context.Context, opener Opener, path string) ([]string, error) {
	rc, err := opener.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer rc.Close()

	var lines []string
	lr := NewLineReader(rc)
	for {
		line, err := lr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		lines = append(lines, string(line))
	}
	return lines, nil
}
