package mupdf

import "testing"

func TestCleanText(t *testing.T) {
	raw := "ACME CORP\n" +
		"The quick brown fox\n" +
		"jumps over the lazy dog.\n" +
		"***\n" +
		"Page 3\n" +
		"Next paragraph starts here.\n"

	got := cleanText(raw, 3)
	want := "The quick brown fox jumps over the lazy dog.\nNext paragraph starts here."
	if got != want {
		t.Errorf("cleanText:\n got %q\nwant %q", got, want)
	}
}

func TestIsPageNumber(t *testing.T) {
	cases := []struct {
		line string
		page int
		want bool
	}{
		{"3", 3, true},
		{"Page 3", 3, true},
		{"- 3 -", 3, true},
		{"[3]", 3, true},
		{"3", 4, false},
		{"Chapter 3", 3, false},
	}
	for _, c := range cases {
		if got := isPageNumber(c.line, c.page); got != c.want {
			t.Errorf("isPageNumber(%q, %d) = %v, want %v", c.line, c.page, got, c.want)
		}
	}
}

func TestIsHeaderFooter(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"CONFIDENTIAL - Internal Use", true},
		{"ACME CORP", true},
		{"ab", true},
		{"A normal sentence about something.", false},
		{"THIS IS A LONGER ALL CAPS HEADING WITH MANY WORDS", false},
	}
	for _, c := range cases {
		if got := isHeaderFooter(c.line); got != c.want {
			t.Errorf("isHeaderFooter(%q) = %v, want %v", c.line, got, c.want)
		}
	}
}

func TestFixBrokenLines(t *testing.T) {
	in := "This sentence was\nbroken by the text layer.\nThis one ends properly.\nNew line."
	want := "This sentence was broken by the text layer.\nThis one ends properly.\nNew line."
	if got := fixBrokenLines(in); got != want {
		t.Errorf("fixBrokenLines:\n got %q\nwant %q", got, want)
	}
}

func TestFixBrokenLinesKeepsHyphenation(t *testing.T) {
	in := "hyphen-\nated word continues"
	if got := fixBrokenLines(in); got != in {
		t.Errorf("hyphenated break should be untouched, got %q", got)
	}
}
