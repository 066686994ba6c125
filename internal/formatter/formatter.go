package formatter

import (
	"strings"

	"github.com/local/readorder/internal/layout"
	"github.com/local/readorder/internal/sorter"
)

// FormatPage renders a sorted page into the final text stream: groups in
// sorter order separated by a blank line, elements by their in-group rank,
// each wrapped per its class rule. The sorter's assignments are read, never
// recomputed.
func FormatPage(res *sorter.Result, ocr, ai map[int]string, docType string) string {
	if res == nil || len(res.Elements) == 0 {
		return ""
	}

	var blocks []string
	start := 0
	for _, g := range res.Groups {
		end := start + g.ElementCount
		block := renderGroup(res.Elements[start:end], ocr, ai, docType)
		if block != "" {
			blocks = append(blocks, block)
		}
		start = end
	}
	return CleanOutput(strings.Join(blocks, "\n\n"))
}

// renderGroup renders one group's elements. A question-number line is
// joined with the first line of the element that follows it, so "1." and
// its question body share a line.
func renderGroup(elems []layout.Element, ocr, ai map[int]string, docType string) string {
	var lines []string
	pendingAnchor := ""
	for _, e := range elems {
		rendered := renderElement(e, ocr, ai, docType)
		if len(rendered) == 0 {
			continue
		}
		if pendingAnchor != "" {
			rendered[0] = pendingAnchor + " " + strings.TrimLeft(rendered[0], " ")
			pendingAnchor = ""
		}
		if e.Class == layout.ClassQuestionNumber && len(rendered) == 1 {
			pendingAnchor = rendered[0]
			continue
		}
		lines = append(lines, rendered...)
	}
	if pendingAnchor != "" {
		lines = append(lines, pendingAnchor)
	}
	return strings.Join(lines, "\n")
}

// renderElement resolves the element text and wraps it with the rule's
// indent, prefix and suffix. An element with nothing to say and
// AllowEmpty=false contributes nothing, not even its prefix.
func renderElement(e layout.Element, ocr, ai map[int]string, docType string) []string {
	rule := RuleFor(e.Class)
	text := ResolveText(e, ocr, ai, docType)
	if text == "" {
		if !rule.AllowEmpty {
			return nil
		}
		marker := rule.Prefix
		if rule.KeepSuffixOnEmpty {
			marker += rule.Suffix
		}
		if marker == "" {
			return nil
		}
		return []string{indent(marker, rule.Indent)}
	}

	lines := strings.Split(text, "\n")
	lines[0] = rule.Prefix + lines[0]
	lines[len(lines)-1] += rule.Suffix
	for i := range lines {
		lines[i] = indent(lines[i], rule.Indent)
	}
	return lines
}

func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	return strings.Repeat(" ", n) + s
}

// CleanOutput right-trims every line, collapses runs of more than two
// consecutive blank lines down to two, and trims the document ends.
// Idempotent: cleaning twice equals cleaning once.
func CleanOutput(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			blanks++
			if blanks > 2 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, l)
	}
	// trim leading/trailing blank lines
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
