package sorter

import (
	"testing"

	"github.com/local/readorder/internal/layout"
)

// singleFlowPage is one clean left-aligned column, no anchors.
func singleFlowPage() []layout.Element {
	return []layout.Element{
		el(1, layout.ClassTitle, 100, 50, 600, 30),
		el(2, layout.ClassPlainText, 100, 100, 600, 120),
		el(3, layout.ClassPlainText, 100, 240, 600, 120),
		el(4, layout.ClassPlainText, 100, 380, 600, 120),
	}
}

func TestAnalyzeEmptyPage(t *testing.T) {
	p := NewDefault().Analyze(nil, 800, 1000)
	if p.GlobalConsistency != 1 {
		t.Errorf("consistency = %v, want 1", p.GlobalConsistency)
	}
	if p.LayoutType != LayoutSimple {
		t.Errorf("layout = %s, want simple", p.LayoutType)
	}
	if p.Recommended != GlobalFirst {
		t.Errorf("recommended = %s, want global_first", p.Recommended)
	}
}

func TestAnalyzeSingleFlow(t *testing.T) {
	// The title counts as one anchor; with MinAnchors at 2 the clean
	// left-edge signal still wins.
	p := NewDefault().Analyze(singleFlowPage(), 800, 1000)
	if p.GlobalConsistency < 0.75 {
		t.Errorf("consistency = %v, want >= 0.75", p.GlobalConsistency)
	}
	if p.AnchorCount != 1 {
		t.Errorf("anchors = %d, want 1", p.AnchorCount)
	}
	if p.Recommended != GlobalFirst {
		t.Errorf("recommended = %s, want global_first", p.Recommended)
	}
	if p.LayoutType != LayoutSimple {
		t.Errorf("layout = %s, want simple", p.LayoutType)
	}
}

func TestAnalyzeSideBySideColumnsAvoidsGlobalFirst(t *testing.T) {
	// No anchors, rows of elements sharing y-bands across disjoint
	// x-ranges: adjacency is high and the left edges split across two
	// clusters, so a single global flow would interleave the columns.
	page := []layout.Element{
		el(1, layout.ClassPlainText, 100, 50, 250, 60),
		el(2, layout.ClassPlainText, 450, 50, 250, 60),
		el(3, layout.ClassPlainText, 100, 150, 250, 60),
		el(4, layout.ClassPlainText, 450, 150, 250, 60),
	}
	p := NewDefault().Analyze(page, 800, 1000)
	if p.AnchorCount != 0 {
		t.Errorf("anchors = %d, want 0", p.AnchorCount)
	}
	if p.HorizontalAdjacency != 1 {
		t.Errorf("adjacency = %v, want 1", p.HorizontalAdjacency)
	}
	if p.GlobalConsistency > 0.5 {
		t.Errorf("consistency = %v, want <= 0.5", p.GlobalConsistency)
	}
	if p.Recommended == GlobalFirst {
		t.Errorf("recommended = %s; side-by-side columns must not flow globally", p.Recommended)
	}
}

func TestAnalyzeQuestionPage(t *testing.T) {
	p := NewDefault().Analyze(questionPage(), 800, 1000)
	if p.AnchorCount != 2 {
		t.Errorf("anchors = %d, want 2", p.AnchorCount)
	}
	if p.Recommended != LocalFirst {
		t.Errorf("recommended = %s, want local_first", p.Recommended)
	}
	if p.LayoutType != LayoutMultipleChoice {
		t.Errorf("layout = %s, want multiple_choice", p.LayoutType)
	}
}

func TestAnalyzeOrderIndependent(t *testing.T) {
	base := questionPage()
	reversed := make([]layout.Element, len(base))
	for i, e := range base {
		reversed[len(base)-1-i] = e
	}
	s := NewDefault()
	a := s.Analyze(base, 800, 1000)
	b := s.Analyze(reversed, 800, 1000)
	if a != b {
		t.Fatalf("profile depends on input order: %+v vs %+v", a, b)
	}
}

func TestSortAdaptiveForcedSkipsProfiling(t *testing.T) {
	forced := Hybrid
	res, err := NewDefault().SortAdaptive(questionPage(), DocReadingOrder, 800, 1000, &forced)
	if err != nil {
		t.Fatalf("SortAdaptive error: %v", err)
	}
	if res.Strategy != Hybrid {
		t.Errorf("strategy = %s, want hybrid", res.Strategy)
	}
	if res.Profile != nil {
		t.Error("forced sort should not attach a profile")
	}
}

func TestSortAdaptiveDocTypeBreaksWeakSignal(t *testing.T) {
	// One anchor is below MinAnchors, so the caller's document type
	// decides the strategy.
	page := []layout.Element{
		el(1, layout.ClassQuestionNumber, 100, 100, 30, 20),
		el(2, layout.ClassQuestionText, 140, 100, 500, 40),
		el(3, layout.ClassChoices, 140, 160, 500, 80),
	}
	s := NewDefault()

	res, err := s.SortAdaptive(page, DocQuestionBased, 800, 1000, nil)
	if err != nil {
		t.Fatalf("SortAdaptive error: %v", err)
	}
	if res.Strategy != LocalFirst {
		t.Errorf("question_based strategy = %s, want local_first", res.Strategy)
	}

	res, err = s.SortAdaptive(page, DocReadingOrder, 800, 1000, nil)
	if err != nil {
		t.Fatalf("SortAdaptive error: %v", err)
	}
	if res.Strategy != GlobalFirst {
		t.Errorf("reading_order strategy = %s, want global_first", res.Strategy)
	}
}

func TestSortAdaptiveProfilerWinsOverDocType(t *testing.T) {
	// Two anchors reach MinAnchors; the reading_order hint is ignored.
	res, err := NewDefault().SortAdaptive(questionPage(), DocReadingOrder, 800, 1000, nil)
	if err != nil {
		t.Fatalf("SortAdaptive error: %v", err)
	}
	if res.Strategy != LocalFirst {
		t.Errorf("strategy = %s, want local_first", res.Strategy)
	}
	if res.Profile == nil {
		t.Fatal("adaptive sort should attach the profile")
	}
}
