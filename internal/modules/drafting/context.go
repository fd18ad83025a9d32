package drafting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/domain/drafting"
	"github.com/yungbote/bizplan-backend/internal/modules/analysis/toc"
	"github.com/yungbote/bizplan-backend/internal/platform/apierr"
)

func (a *Agent) fetchContext(ctx context.Context, t *turn) error {
	st := t.State
	st.TargetAlreadyCompleted = ""
	st.EditedDocument = nil
	st.NextStep = ""

	if !st.Hydrated() {
		c, err := a.deps.Context.GetContext(ctx, st.ProjectIdx)
		switch {
		case errors.Is(err, apierr.ErrNotFound):
			a.log.Warn("no analysis context, using default toc", "project_idx", st.ProjectIdx)
			c = &analysis.Context{}
		case err != nil:
			return fmt.Errorf("get context: %w", err)
		case c == nil:
			c = &analysis.Context{}
		}
		if len(c.Sections()) == 0 {
			c.TOC = toc.Default()
			c.TOC.TotalSections = len(c.TOC.Sections)
		}
		sections := c.Sections()

		st.FetchedContext = c
		st.TOC = sections
		st.CurrentChapterIndex = 0
		st.TargetChapter = sections[0].Label()
		st.MajorChapterTitles = majorChapters(sections)
		st.CollectedData = ""
		st.Sufficiency = false
		derive(st)
		a.log.Info("draft thread hydrated", "project_idx", st.ProjectIdx, "sections", len(sections), "features", len(c.Features))
	}

	if t.prompt != "" {
		st.AddMessage(drafting.RoleUser, t.prompt)
	}
	return nil
}

func majorChapters(sections []analysis.Section) []string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		if s.IsMain() {
			out = append(out, s.Label())
		}
	}
	return out
}

// derive recomputes the sub-chapter view of the current target: the sections
// under its main chapter and the leaves among them not yet completed.
func derive(st *drafting.State) {
	st.TargetSubchapters = nil
	st.MissingSubsections = nil
	sec, ok := st.TargetSection()
	if !ok {
		return
	}
	main, _, _ := strings.Cut(sec.Number, ".")
	root := analysis.Section{Number: main}
	for i, s := range st.TOC {
		if !root.IsAncestorOf(s) {
			continue
		}
		st.TargetSubchapters = append(st.TargetSubchapters, s)
		if analysis.IsLeaf(st.TOC, i) && !st.IsCompleted(s.Label()) {
			st.MissingSubsections = append(st.MissingSubsections, s.Label())
		}
	}
}

// nextOpenLeaf returns the index of the earliest leaf section not yet
// completed, or -1 when every leaf is done.
func nextOpenLeaf(st *drafting.State) int {
	for i, s := range st.TOC {
		if analysis.IsLeaf(st.TOC, i) && !st.IsCompleted(s.Label()) {
			return i
		}
	}
	return -1
}

// strategyHint is the draft strategy from the analysis context, if any.
func strategyHint(st *drafting.State) string {
	if st.FetchedContext == nil {
		return ""
	}
	return strings.TrimSpace(st.FetchedContext.DraftStrategy)
}
