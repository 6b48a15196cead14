package jsonl

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ========== ParseRecord 测试 ==========

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr error
	}{
		{name: "object", line: `{"id": 1, "conversations": []}`},
		{name: "object with trailing spaces", line: `{"id": 1}   `},
		{name: "empty line", line: ``, wantErr: ErrEmptyLine},
		{name: "whitespace only", line: "  \t ", wantErr: ErrEmptyLine},
		{name: "array", line: `[1, 2]`, wantErr: ErrNotObject},
		{name: "string", line: `"hello"`, wantErr: ErrNotObject},
		{name: "number", line: `42`, wantErr: ErrNotObject},
		{name: "two objects", line: `{"a": 1} {"b": 2}`, wantErr: ErrTrailingData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord([]byte(tt.line))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestParseRecordInvalidJSON(t *testing.T) {
	_, err := ParseRecord([]byte(`{"id": `))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrEmptyLine))
}

// ========== 字段访问测试 ==========

func TestRecordID(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{`{"id": "abc"}`, "abc"},
		{`{"id": 12345678901234567890}`, "12345678901234567890"},
		{`{"id": true}`, "true"},
		{`{"id": {"nested": 1}}`, ""},
		{`{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			rec, err := ParseRecord([]byte(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.ID())
		})
	}
}

func TestRecordConversations(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"conversations": [
		{"from": "human", "value": "<image>\nWhat is this?"},
		"not a turn",
		{"from": "gpt"},
		{"from": "gpt", "value": "A cat."}
	]}`))
	require.NoError(t, err)

	turns := rec.Conversations()
	require.Len(t, turns, 2)
	assert.True(t, turns[0].IsHuman())
	assert.Equal(t, "A cat.", turns[1].Value)
	assert.False(t, turns[1].IsHuman())
}

func TestRecordConversationsWrongType(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"conversations": "hello"}`))
	require.NoError(t, err)
	assert.Empty(t, rec.Conversations())
}

func TestRecordMedia(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"image": "", "images": ["a.jpg", 3, "", "b.jpg"], "video": ["v.mp4"]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"a.jpg", "b.jpg"}, rec.Images())
	assert.Equal(t, []string{"v.mp4"}, rec.Videos())
}

func TestRecordMarshalJSON(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"id": 7, "image": "x.png"}`))
	require.NoError(t, err)

	data, err := rec.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 7, "image": "x.png"}`, string(data))

	empty, err := Record{}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(empty))

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "7", back.ID())
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &back))
}

func TestRecordHas(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"image": null, "video": "v.mp4"}`))
	require.NoError(t, err)

	assert.False(t, rec.Has("image"))
	assert.True(t, rec.Has("video"))
	assert.False(t, rec.Has("images"))
}

// ========== LineReader 测试 ==========

func TestLineReader(t *testing.T) {
	input := "\xEF\xBB\xBF{\"a\":1}\r\n{\"b\":2}\n\n{\"c\":3}"
	lr := NewLineReader(strings.NewReader(input))

	var lines []string
	for {
		line, err := lr.Next()
		if err != nil {
			break
		}
		lines = append(lines, string(line))
	}

	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`, ``, `{"c":3}`}, lines)
	assert.Equal(t, 4, lr.Line())
	assert.Equal(t, int64(len(input)), lr.Offset())
}
