package toc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
)

// every number is unique and every parent appears earlier
func assertWellNumbered(t *testing.T, secs []analysis.Section) {
	t.Helper()
	seen := map[string]bool{}
	for _, s := range secs {
		require.False(t, seen[s.Number], "duplicate %s", s.Number)
		if i := strings.LastIndex(s.Number, "."); i >= 0 {
			require.True(t, seen[s.Number[:i]], "parent of %s missing", s.Number)
			assert.Equal(t, s.Number[:i], s.ParentNumber)
			assert.Equal(t, analysis.LevelSub, s.Level)
		} else {
			assert.Equal(t, analysis.LevelMain, s.Level)
		}
		seen[s.Number] = true
	}
}

func TestFinalizeKeepsValidNumbering(t *testing.T) {
	secs := finalizeNumbers([]entry{{Number: "1.", Title: "a"}, {Number: "1.1", Title: "b"}, {Number: "2", Title: "c"}})
	assert.Equal(t, []string{"1", "1.1", "2"}, numbers(secs))
	assertWellNumbered(t, secs)
}

func TestFinalizeRenumbersMixedStyles(t *testing.T) {
	secs := finalizeNumbers([]entry{
		{Number: "Ⅰ", Title: "개요"},
		{Number: "1.", Title: "배경"},
		{Number: "가.", Title: "시장"},
		{Number: "2.", Title: "목표"},
		{Number: "Ⅱ", Title: "계획"},
		{Number: "□", Title: "일정"},
	})
	assert.Equal(t, []string{"1", "1.1", "1.1.1", "1.2", "2", "2.1"}, numbers(secs))
	assertWellNumbered(t, secs)
}

func TestFinalizeRepairsOrphansAndDuplicates(t *testing.T) {
	secs := finalizeNumbers([]entry{
		{Number: "2.3", Title: "고아 항목"},
		{Number: "1", Title: "첫 장"},
		{Number: "1", Title: "중복 번호"},
		{Number: "", Title: "번호 없음"},
	})
	assertWellNumbered(t, secs)
	assert.Len(t, secs, 4)
}

func TestFiltersDropNonSections(t *testing.T) {
	long := strings.Repeat("가", 300)
	es := filterEntries([]entry{
		{Number: "1", Title: "사업 개요", Description: long},
		{Number: "", Title: "대표자 성명"},
		{Number: "", Title: "E-mail"},
		{Number: "", Title: "- 3 -"},
		{Number: "", Title: "AS-IS 대비 TO-BE"},
		{Number: "", Title: "홍길동 (예시)"},
		{Number: "", Title: "☐ 해당"},
		{Number: "", Title: "☑ 해당"},
		{Number: "", Title: "☒ 해당"},
		{Number: "2", Title: "사업  개요"},
		{Number: "3", Title: "기술 개발 계획"},
	})
	titles := make([]string, len(es))
	for i, e := range es {
		titles[i] = e.Title
	}
	assert.Equal(t, []string{"사업 개요", "☐ 해당", "☑ 해당", "기술 개발 계획"}, titles)
	assert.Equal(t, analysis.MaxDescriptionRunes, len([]rune(es[0].Description)))
}

func TestLocateRegionFallsBackToNumberedRun(t *testing.T) {
	text := "표지\n\n1. 기업 현황\n2. 기술 개요\n3. 사업화 계획\n4. 자금 계획"
	lines := locateRegion(text)
	require.NotEmpty(t, lines)
	assert.Equal(t, "1. 기업 현황", lines[0])
	assert.Nil(t, locateRegion("번호 없는 본문"))
}

func TestMatchLineStripsLeaderDotsAndPages(t *testing.T) {
	e, main, ok := matchLine("Ⅱ. 기술개발 계획 ........ 12")
	require.True(t, ok)
	assert.True(t, main)
	assert.Equal(t, "Ⅱ", e.Number)
	assert.Equal(t, "기술개발 계획", e.Title)

	_, _, ok = matchLine("일반 문장입니다")
	assert.False(t, ok)
}
