package formatter

import "testing"

func TestCollapseLines(t *testing.T) {
	got := collapseLines("  first \n\n second\r\nthird  ")
	if got != "first second third" {
		t.Fatalf("collapseLines = %q", got)
	}
}

func TestNormalizeChoices(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"paren labels",
			"A) Paris\nB) London",
			"A) Paris\nB) London",
		},
		{
			"dot labels",
			"1. first\n2. second",
			"1. first\n2. second",
		},
		{
			"wrapped continuation joins previous choice",
			"A) a very long choice\nthat wrapped\nB) short",
			"A) a very long choice that wrapped\nB) short",
		},
		{
			"cjk delimiters",
			"1、apple\n2、orange",
			"1、 apple\n2、 orange",
		},
		{
			"no labels pass through",
			"just a line\nanother line",
			"just a line\nanother line",
		},
		{
			"preamble before first label stays its own line",
			"Choose one:\nA) yes\nB) no",
			"Choose one:\nA) yes\nB) no",
		},
		{
			"bare label",
			"A)",
			"A)",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := normalizeChoices(c.in); got != c.want {
				t.Fatalf("normalizeChoices(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestNormalizeList(t *testing.T) {
	in := "• apples\n- pears\nplums"
	if got := normalizeList(in, "-"); got != "- apples\n- pears\n- plums" {
		t.Fatalf("normalizeList dash = %q", got)
	}
	if got := normalizeList(in, "•"); got != "• apples\n• pears\n• plums" {
		t.Fatalf("normalizeList bullet = %q", got)
	}
}

func TestBulletFor(t *testing.T) {
	if got := bulletFor("reading_order"); got != "-" {
		t.Errorf("bulletFor(reading_order) = %q", got)
	}
	if got := bulletFor("question_based"); got != "•" {
		t.Errorf("bulletFor(question_based) = %q", got)
	}
}

func TestMergeVisual(t *testing.T) {
	if got := mergeVisual("desc", "caption"); got != "desc\ncaption" {
		t.Errorf("mergeVisual = %q", got)
	}
	if got := mergeVisual("", "caption"); got != "caption" {
		t.Errorf("mergeVisual caption only = %q", got)
	}
	if got := mergeVisual("desc", ""); got != "desc" {
		t.Errorf("mergeVisual desc only = %q", got)
	}
	if got := mergeVisual(" ", " "); got != "" {
		t.Errorf("mergeVisual blank = %q", got)
	}
}
