package drafting

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// SufficiencyThreshold is the score at which a section is generation-ready.
const SufficiencyThreshold = 80

const noDataReason = "no data"

var (
	scoreTag     = regexp.MustCompile(`(?s)<score>\s*(-?\d+(?:\.\d+)?)\s*</score>`)
	breakdownTag = regexp.MustCompile(`(?s)<breakdown>(.*?)</breakdown>`)
	reasonTag    = regexp.MustCompile(`(?s)<reason>(.*?)</reason>`)
	raterCode    = regexp.MustCompile(`(?i)[\[(]?\s*RATER[_\s-]?\d+\s*[\])]?\s*[:：]?\s*`)
)

type grade struct {
	Score     int
	Reason    string
	Breakdown map[string]int
}

func (a *Agent) assessInfo(ctx context.Context, t *turn) error {
	st := t.State
	sec, ok := st.TargetSection()
	if !ok || st.IsCompleted(st.TargetChapter) {
		return nil
	}
	fp := fingerprint(sec.Number, st.CollectedData)
	if fp == st.GradedFingerprint {
		return nil
	}

	if strings.TrimSpace(st.CollectedData) == "" {
		st.CompletenessScore = 0
		st.GradingReason = noDataReason
		st.RaterBreakdown = nil
		st.Sufficiency = false
		st.GradedFingerprint = fp
		t.graded = true
		return nil
	}

	raw, err := a.deps.AI.GenerateText(ctx, assessSystemPrompt, assessUserPrompt(st, sec))
	if err != nil {
		return fmt.Errorf("grade %s: %w", sec.Number, err)
	}
	g := parseGrade(raw)

	st.CompletenessScore = g.Score
	st.GradingReason = g.Reason
	st.RaterBreakdown = g.Breakdown
	st.Sufficiency = g.Score >= SufficiencyThreshold
	if prev, ok := st.SectionScores[sec.Number]; !ok || prev < SufficiencyThreshold || g.Score >= SufficiencyThreshold {
		st.SectionScores[sec.Number] = g.Score
	}
	st.GradedFingerprint = fp
	t.graded = true
	a.log.Debug("section graded", "section", sec.Number, "score", g.Score, "sufficient", st.Sufficiency)
	return nil
}

// parseGrade reads the rubric reply. The score is the rounded mean of the
// rater breakdown, or the <score> tag when no breakdown parses. Nothing
// parseable yields 0.
func parseGrade(raw string) grade {
	g := grade{}
	if m := breakdownTag.FindStringSubmatch(raw); m != nil {
		g.Breakdown = parseBreakdown(m[1])
	}
	switch {
	case len(g.Breakdown) > 0:
		sum := 0
		for _, v := range g.Breakdown {
			sum += v
		}
		g.Score = int(math.Round(float64(sum) / float64(len(g.Breakdown))))
	default:
		m := scoreTag.FindStringSubmatch(raw)
		if m == nil {
			return grade{Reason: "평가 응답을 해석하지 못해 0점으로 처리했습니다."}
		}
		f, _ := strconv.ParseFloat(m[1], 64)
		g.Score = clampScore(int(math.Round(f)))
	}

	if m := reasonTag.FindStringSubmatch(raw); m != nil {
		g.Reason = scrubRaters(m[1])
	}
	return g
}

func parseBreakdown(body string) map[string]int {
	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &obj); err != nil {
		return nil
	}
	out := map[string]int{}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v, ok := numeric(obj[k]); ok {
			out[strings.ToUpper(strings.TrimSpace(k))] = clampScore(int(math.Round(v)))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// numeric accepts a number, a numeric string or an object with a "score" key.
func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case map[string]any:
		return numeric(x["score"])
	}
	return 0, false
}

func scrubRaters(s string) string {
	s = raterCode.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

func clampScore(n int) int {
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	}
	return n
}

// fingerprint identifies what was graded: the section and the exact collected
// data. A replay with the same pair skips grading.
func fingerprint(number, collected string) string {
	sum := sha256.Sum256([]byte(number + "\x00" + collected))
	return hex.EncodeToString(sum[:])[:16]
}
