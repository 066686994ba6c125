package sorter

import (
	"testing"

	"github.com/local/readorder/internal/layout"
)

func el(id int, class string, x, y, w, h float64) layout.Element {
	return layout.NewElement(id, class, 0.9, layout.NewBBox(x, y, w, h))
}

// questionPage is two anchor-led questions in a single column, detector ids
// deliberately out of reading order.
func questionPage() []layout.Element {
	return []layout.Element{
		el(4, layout.ClassChoices, 140, 350, 500, 80),
		el(1, layout.ClassQuestionNumber, 100, 100, 30, 20),
		el(3, layout.ClassChoices, 140, 150, 500, 80),
		el(2, layout.ClassQuestionText, 140, 100, 500, 40),
		el(5, layout.ClassQuestionNumber, 100, 300, 30, 20),
		el(6, layout.ClassQuestionText, 140, 300, 500, 40),
	}
}

func ids(elems []layout.Element) []int {
	out := make([]int, len(elems))
	for i, e := range elems {
		out[i] = e.ID
	}
	return out
}

func assertIDs(t *testing.T, got []layout.Element, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("element count = %d, want %d (%v)", len(got), len(want), ids(got))
	}
	for i, e := range got {
		if e.ID != want[i] {
			t.Fatalf("order = %v, want %v", ids(got), want)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	cases := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"global_first", GlobalFirst, false},
		{"global", GlobalFirst, false},
		{"local_first", LocalFirst, false},
		{"local", LocalFirst, false},
		{"hybrid", Hybrid, false},
		{"", GlobalFirst, true},
		{"bogus", GlobalFirst, true},
	}
	for _, c := range cases {
		got, err := ParseStrategy(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("ParseStrategy(%q) err = %v, wantErr %v", c.in, err, c.wantErr)
			continue
		}
		if err == nil && got != c.want {
			t.Errorf("ParseStrategy(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSortEmptyInput(t *testing.T) {
	res, err := NewDefault().Sort(GlobalFirst, nil, 800, 1000)
	if err != nil {
		t.Fatalf("Sort(nil) error: %v", err)
	}
	if len(res.Elements) != 0 || len(res.Groups) != 0 {
		t.Fatalf("Sort(nil) = %d elements, %d groups", len(res.Elements), len(res.Groups))
	}
}

func TestSortDropsMalformedElements(t *testing.T) {
	elems := []layout.Element{
		el(1, layout.ClassPlainText, 100, 100, 600, 40),
		el(2, layout.ClassPlainText, 100, 200, 0, 40),   // zero width
		el(3, layout.ClassPlainText, 100, 300, 600, 0),  // zero height
		el(1, layout.ClassPlainText, 100, 400, 600, 40), // duplicate id
		el(4, layout.ClassPlainText, 100, 500, 600, 40),
	}
	res, err := NewDefault().Sort(GlobalFirst, elems, 800, 1000)
	if err != nil {
		t.Fatalf("Sort error: %v", err)
	}
	assertIDs(t, res.Elements, []int{1, 4})
}

func TestSortContract(t *testing.T) {
	for _, strategy := range []Strategy{GlobalFirst, LocalFirst, Hybrid} {
		t.Run(strategy.String(), func(t *testing.T) {
			res, err := NewDefault().Sort(strategy, questionPage(), 800, 1000)
			if err != nil {
				t.Fatalf("Sort error: %v", err)
			}
			if len(res.Elements) != 6 {
				t.Fatalf("element count = %d, want 6", len(res.Elements))
			}
			seen := map[int]bool{}
			groupRank := map[int]int{}
			for i, e := range res.Elements {
				if seen[e.ID] {
					t.Fatalf("element %d appears twice", e.ID)
				}
				seen[e.ID] = true
				if e.GroupID == layout.Ungrouped {
					t.Fatalf("element %d left ungrouped", e.ID)
				}
				if e.OrderInQuestion != i {
					t.Fatalf("order_in_question not dense at %d: %d", i, e.OrderInQuestion)
				}
				if e.OrderInGroup != groupRank[e.GroupID] {
					t.Fatalf("order_in_group not dense in group %d", e.GroupID)
				}
				groupRank[e.GroupID]++
			}
			for _, g := range res.Groups {
				if groupRank[g.ID] != g.ElementCount {
					t.Fatalf("group %d count = %d, want %d", g.ID, groupRank[g.ID], g.ElementCount)
				}
			}
		})
	}
}

func TestSortPermutationInvariant(t *testing.T) {
	base := questionPage()
	reversed := make([]layout.Element, len(base))
	for i, e := range base {
		reversed[len(base)-1-i] = e
	}

	s := NewDefault()
	a, err := s.Sort(LocalFirst, base, 800, 1000)
	if err != nil {
		t.Fatalf("Sort error: %v", err)
	}
	b, err := s.Sort(LocalFirst, reversed, 800, 1000)
	if err != nil {
		t.Fatalf("Sort error: %v", err)
	}
	assertIDs(t, b.Elements, ids(a.Elements))
}

func TestSortDoesNotMutateInput(t *testing.T) {
	elems := questionPage()
	if _, err := NewDefault().Sort(LocalFirst, elems, 800, 1000); err != nil {
		t.Fatalf("Sort error: %v", err)
	}
	for _, e := range elems {
		if e.GroupID != layout.Ungrouped {
			t.Fatalf("input element %d mutated: group_id = %d", e.ID, e.GroupID)
		}
	}
}

func TestLocalFirstGroupsByAnchor(t *testing.T) {
	res, err := NewDefault().Sort(LocalFirst, questionPage(), 800, 1000)
	if err != nil {
		t.Fatalf("Sort error: %v", err)
	}
	assertIDs(t, res.Elements, []int{1, 2, 3, 5, 6, 4})
	if len(res.Groups) != 2 {
		t.Fatalf("group count = %d, want 2", len(res.Groups))
	}
	for i, wantAnchor := range []int{1, 5} {
		g := res.Groups[i]
		if g.Type != layout.GroupAnchor {
			t.Errorf("group %d type = %s, want anchor", i, g.Type)
		}
		if g.AnchorID != wantAnchor {
			t.Errorf("group %d anchor = %d, want %d", i, g.AnchorID, wantAnchor)
		}
	}
}

func TestGlobalFirstExhaustsColumnsLeftToRight(t *testing.T) {
	// Two column bands 100px apart; ids interleaved across columns.
	elems := []layout.Element{
		el(2, layout.ClassPlainText, 450, 50, 250, 40),
		el(1, layout.ClassPlainText, 100, 100, 250, 40),
		el(4, layout.ClassPlainText, 450, 200, 250, 40),
		el(3, layout.ClassPlainText, 100, 300, 250, 40),
	}
	res, err := NewDefault().Sort(GlobalFirst, elems, 800, 1000)
	if err != nil {
		t.Fatalf("Sort error: %v", err)
	}
	assertIDs(t, res.Elements, []int{1, 3, 2, 4})
	if len(res.Groups) != 1 {
		t.Fatalf("group count = %d, want 1", len(res.Groups))
	}
	if res.Groups[0].Type != layout.GroupOrphan {
		t.Fatalf("group type = %s, want orphan", res.Groups[0].Type)
	}
}

func TestHybridAnchorsWithinColumns(t *testing.T) {
	// Two columns, each led by its own anchor. Column order beats the
	// anchors' shared vertical position.
	elems := []layout.Element{
		el(3, layout.ClassQuestionNumber, 450, 50, 250, 20),
		el(1, layout.ClassQuestionNumber, 100, 50, 250, 20),
		el(4, layout.ClassQuestionText, 450, 100, 250, 60),
		el(2, layout.ClassQuestionText, 100, 100, 250, 60),
	}
	res, err := NewDefault().Sort(Hybrid, elems, 800, 1000)
	if err != nil {
		t.Fatalf("Sort error: %v", err)
	}
	assertIDs(t, res.Elements, []int{1, 2, 3, 4})
	if len(res.Groups) != 2 {
		t.Fatalf("group count = %d, want 2", len(res.Groups))
	}
}

func TestLocalFirstOrphanRunsSplitOnGap(t *testing.T) {
	// No anchors at all: contiguous runs become separate orphan groups
	// when the vertical gap exceeds the orphan threshold (0.08*1000=80).
	elems := []layout.Element{
		el(1, layout.ClassPlainText, 100, 50, 600, 40),
		el(2, layout.ClassPlainText, 100, 100, 600, 40),
		el(3, layout.ClassPlainText, 100, 500, 600, 40),
	}
	res, err := NewDefault().Sort(LocalFirst, elems, 800, 1000)
	if err != nil {
		t.Fatalf("Sort error: %v", err)
	}
	if len(res.Groups) != 2 {
		t.Fatalf("group count = %d, want 2", len(res.Groups))
	}
	if res.Groups[0].ElementCount != 2 || res.Groups[1].ElementCount != 1 {
		t.Fatalf("group sizes = %d/%d, want 2/1",
			res.Groups[0].ElementCount, res.Groups[1].ElementCount)
	}
}
