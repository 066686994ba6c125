package layout

import "testing"

func TestBBoxEdges(t *testing.T) {
	b := NewBBox(10, 20, 30, 40)
	if b.Left() != 10 || b.Right() != 40 || b.Top() != 20 || b.Bottom() != 60 {
		t.Fatalf("edges = %v/%v/%v/%v", b.Left(), b.Right(), b.Top(), b.Bottom())
	}
	if b.CenterX() != 25 || b.CenterY() != 40 {
		t.Fatalf("center = %v,%v", b.CenterX(), b.CenterY())
	}
	if b.Area() != 1200 {
		t.Fatalf("area = %v", b.Area())
	}
}

func TestBBoxOverlap(t *testing.T) {
	a := NewBBox(0, 0, 100, 50)
	cases := []struct {
		name  string
		other BBox
		wantH float64
		wantV float64
	}{
		{"identical", NewBBox(0, 0, 100, 50), 100, 50},
		{"partial", NewBBox(50, 25, 100, 50), 50, 25},
		{"touching is disjoint", NewBBox(100, 50, 10, 10), 0, 0},
		{"disjoint", NewBBox(200, 200, 10, 10), 0, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := a.HorizontalOverlap(c.other); got != c.wantH {
				t.Errorf("HorizontalOverlap = %v, want %v", got, c.wantH)
			}
			if got := a.VerticalOverlap(c.other); got != c.wantV {
				t.Errorf("VerticalOverlap = %v, want %v", got, c.wantV)
			}
		})
	}
}

func TestBBoxUnion(t *testing.T) {
	a := NewBBox(0, 0, 10, 10)
	b := NewBBox(20, 30, 10, 10)
	u := a.Union(b)
	if u != (BBox{X: 0, Y: 0, W: 30, H: 40}) {
		t.Fatalf("Union = %+v", u)
	}
}

func TestClassSets(t *testing.T) {
	if !IsAnchorClass(ClassQuestionNumber) || !IsAnchorClass(ClassTitle) {
		t.Error("question_number and title should anchor groups")
	}
	if IsAnchorClass(ClassPlainText) {
		t.Error("plain_text should not anchor groups")
	}
	for _, c := range []string{ClassFigure, ClassTable, ClassFlowchart} {
		if !IsVisualClass(c) {
			t.Errorf("%s should be a visual class", c)
		}
	}
	if IsVisualClass(ClassFormula) {
		t.Error("formula should not be a visual class")
	}
}
