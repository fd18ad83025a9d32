package verify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/bizplan-backend/internal/platform/apierr"
)

const sampleDraft = `{
  "type": "doc",
  "content": [
    {"type": "heading", "attrs": {"level": 1}, "content": [{"type": "text", "text": "1 사업 개요"}]},
    {"type": "heading", "attrs": {"level": 2}, "content": [{"type": "text", "text": "1.1 사업 배경"}]},
    {"type": "paragraph", "content": [
      {"type": "text", "text": "스마트팜 시장은 "},
      {"type": "text", "marks": [{"type": "bold"}], "text": "연 12%"},
      {"type": "text", "text": " 성장하고 있다."},
      {"type": "hardBreak"},
      {"type": "text", "text": "인력난이 심각하다."}
    ]},
    {"type": "heading", "attrs": {"level": 2}, "content": [{"type": "text", "text": "목표 및 성과지표"}]},
    {"type": "bulletList", "content": [
      {"type": "listItem", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "매출 20억"}]}]},
      {"type": "listItem", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "고용 5명"}]}]}
    ]},
    {"type": "heading", "attrs": {"level": 2}, "content": []}
  ]
}`

func TestFlatten(t *testing.T) {
	flat, err := Flatten(json.RawMessage(sampleDraft))
	require.NoError(t, err)

	assert.Equal(t, []string{"1 사업 개요", "1.1 사업 배경", "목표 및 성과지표"}, flat.Headings)
	assert.Equal(t, "1 사업 개요\n1.1 사업 배경\n스마트팜 시장은 연 12% 성장하고 있다.\n인력난이 심각하다.\n목표 및 성과지표\n매출 20억\n\n고용 5명", flat.Text)
}

func TestFlattenRejectsInvalidRoots(t *testing.T) {
	for _, raw := range []string{``, `[]`, `{"type":"paragraph"}`, `not json`} {
		_, err := Flatten(json.RawMessage(raw))
		require.ErrorIs(t, err, apierr.ErrInvalidArgument, raw)
	}
}

func TestStrictMatch(t *testing.T) {
	sec := sectionOf("1.1", "사업 배경")
	assert.True(t, strictMatch("1.1 사업 배경", sec))
	assert.True(t, strictMatch("1.1. 사업배경", sec))
	assert.True(t, strictMatch("사업 배경", sec))
	assert.True(t, strictMatch("가. 사업 배경", sec))
	assert.False(t, strictMatch("사업 배경 및 필요성", sec))
	assert.False(t, strictMatch("", sec))
}
