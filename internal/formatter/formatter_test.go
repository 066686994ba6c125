package formatter

import (
	"strings"
	"testing"

	"github.com/local/readorder/internal/layout"
	"github.com/local/readorder/internal/sorter"
)

func el(id int, class string, x, y, w, h float64) layout.Element {
	return layout.NewElement(id, class, 0.9, layout.NewBBox(x, y, w, h))
}

func TestFormatPageQuestionSheet(t *testing.T) {
	elems := []layout.Element{
		el(1, layout.ClassQuestionNumber, 100, 100, 30, 20),
		el(2, layout.ClassQuestionText, 140, 100, 500, 40),
		el(3, layout.ClassChoices, 140, 150, 500, 80),
		el(4, layout.ClassQuestionNumber, 100, 300, 30, 20),
		el(5, layout.ClassQuestionText, 140, 300, 500, 40),
	}
	res, err := sorter.NewDefault().Sort(sorter.LocalFirst, elems, 800, 1000)
	if err != nil {
		t.Fatalf("Sort error: %v", err)
	}
	ocr := map[int]string{
		1: "1",
		2: "What is the capital of France?",
		3: "A) Paris\nB) London",
		4: "2",
		5: "Name the largest ocean.",
	}

	got := FormatPage(res, ocr, nil, sorter.DocQuestionBased)

	want := strings.Join([]string{
		"1. What is the capital of France?",
		"   A) Paris",
		"   B) London",
		"",
		"2. Name the largest ocean.",
	}, "\n")
	if got != want {
		t.Fatalf("FormatPage =\n%q\nwant\n%q", got, want)
	}
}

func TestFormatPageTrailingAnchorKept(t *testing.T) {
	// A question number with nothing after it still shows up.
	elems := []layout.Element{
		el(1, layout.ClassQuestionNumber, 100, 100, 30, 20),
	}
	res, err := sorter.NewDefault().Sort(sorter.LocalFirst, elems, 800, 1000)
	if err != nil {
		t.Fatalf("Sort error: %v", err)
	}
	got := FormatPage(res, map[int]string{1: "7"}, nil, sorter.DocQuestionBased)
	if got != "7." {
		t.Fatalf("FormatPage = %q, want %q", got, "7.")
	}
}

func TestFormatPageMergesVisualDescription(t *testing.T) {
	elems := []layout.Element{
		el(1, layout.ClassFigure, 100, 100, 400, 300),
	}
	res, err := sorter.NewDefault().Sort(sorter.GlobalFirst, elems, 800, 1000)
	if err != nil {
		t.Fatalf("Sort error: %v", err)
	}
	got := FormatPage(res,
		map[int]string{1: "Figure 3: revenue by quarter"},
		map[int]string{1: "A bar chart comparing quarterly revenue."},
		sorter.DocReadingOrder)

	want := "A bar chart comparing quarterly revenue.\nFigure 3: revenue by quarter"
	if got != want {
		t.Fatalf("FormatPage = %q, want %q", got, want)
	}
}

func TestFormatPageEmpty(t *testing.T) {
	if got := FormatPage(nil, nil, nil, sorter.DocReadingOrder); got != "" {
		t.Fatalf("FormatPage(nil) = %q", got)
	}
	res, _ := sorter.NewDefault().Sort(sorter.GlobalFirst, nil, 800, 1000)
	if got := FormatPage(res, nil, nil, sorter.DocReadingOrder); got != "" {
		t.Fatalf("FormatPage(empty) = %q", got)
	}
}

func TestResolveTextPrefersOCR(t *testing.T) {
	e := el(1, layout.ClassPlainText, 0, 0, 10, 10)
	ocr := map[int]string{1: "from ocr"}
	ai := map[int]string{1: "from ai"}
	if got := ResolveText(e, ocr, ai, sorter.DocReadingOrder); got != "from ocr" {
		t.Errorf("ResolveText = %q, want ocr text", got)
	}
	if got := ResolveText(e, map[int]string{1: "  "}, ai, sorter.DocReadingOrder); got != "from ai" {
		t.Errorf("ResolveText = %q, want ai fallback", got)
	}
	if got := ResolveText(e, nil, nil, sorter.DocReadingOrder); got != "" {
		t.Errorf("ResolveText = %q, want empty", got)
	}
}

func TestRuleForUnknownClassPassesThrough(t *testing.T) {
	r := RuleFor("never_registered")
	if r.Prefix != "" || r.Suffix != "" || r.Indent != 0 || r.Transform != TransformNone {
		t.Fatalf("unknown class rule = %+v, want pass-through", r)
	}
}

func TestCleanOutput(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"trailing spaces", "a  \nb\t", "a\nb"},
		{"collapse blanks", "a\n\n\n\n\nb", "a\n\n\nb"},
		{"trim document ends", "\n\na\n\n", "a"},
		{"crlf", "a\r\nb", "a\nb"},
		{"empty", "", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := CleanOutput(c.in)
			if got != c.want {
				t.Fatalf("CleanOutput(%q) = %q, want %q", c.in, got, c.want)
			}
			if again := CleanOutput(got); again != got {
				t.Fatalf("not idempotent: %q -> %q", got, again)
			}
		})
	}
}
