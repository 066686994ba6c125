package formatter

import (
	"regexp"
	"strings"
)

// Transform names a per-class text normalization. A closed enum with an
// explicit switch keeps the dispatch exhaustive at compile time instead of
// hiding behind a name-to-function table.
type Transform int

const (
	// TransformNone passes the text through unchanged.
	TransformNone Transform = iota
	// TransformCollapseLines joins multi-line OCR noise into one line.
	TransformCollapseLines
	// TransformChoices reformats enumerated choice lines into a canonical
	// "label body" layout, joining wrapped continuation lines.
	TransformChoices
	// TransformList turns loose lines into a bulleted list.
	TransformList
	// TransformFormula trims surrounding whitespace only.
	TransformFormula
	// TransformMergeVisual concatenates the AI description above the OCR
	// caption. It consumes both text sources, so the resolver applies it
	// instead of applyTransform.
	TransformMergeVisual
)

// choiceLabel recognizes "1)", "(2)", "3.", "A.", "b)" style labels with
// western or CJK delimiters.
var choiceLabel = regexp.MustCompile(`^\(?([0-9]+|[A-Za-z])[.)、．）]\)?\s*`)

// applyTransform runs the transform over already-resolved text. bullet is
// the list glyph for the current document type.
func applyTransform(t Transform, text, bullet string) string {
	switch t {
	case TransformNone:
		return text
	case TransformCollapseLines:
		return collapseLines(text)
	case TransformChoices:
		return normalizeChoices(text)
	case TransformList:
		return normalizeList(text, bullet)
	case TransformFormula:
		return strings.TrimSpace(text)
	default:
		return text
	}
}

func splitLines(text string) []string {
	var out []string
	for _, l := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func collapseLines(text string) string {
	return strings.Join(splitLines(text), " ")
}

// normalizeChoices emits one line per recognized choice label; lines
// without a label continue the previous choice. Text with no labels at all
// passes through line by line.
func normalizeChoices(text string) string {
	lines := splitLines(text)
	var choices []string
	seenLabel := false
	for _, l := range lines {
		m := choiceLabel.FindString(l)
		if m == "" {
			// Continuation lines only exist once a labeled choice has
			// opened; before that, keep the line as is.
			if seenLabel && len(choices) > 0 {
				choices[len(choices)-1] += " " + l
			} else {
				choices = append(choices, l)
			}
			continue
		}
		seenLabel = true
		body := strings.TrimSpace(l[len(m):])
		label := strings.TrimSpace(m)
		if body == "" {
			choices = append(choices, label)
		} else {
			choices = append(choices, label+" "+body)
		}
	}
	return strings.Join(choices, "\n")
}

var bulletGlyphs = "•·-*●○◦"

func normalizeList(text, bullet string) string {
	lines := splitLines(text)
	for i, l := range lines {
		l = strings.TrimSpace(strings.TrimLeft(l, bulletGlyphs))
		lines[i] = bullet + " " + l
	}
	return strings.Join(lines, "\n")
}

// mergeVisual places the AI-generated description above the OCR caption.
// Either one alone passes through.
func mergeVisual(description, caption string) string {
	description = strings.TrimSpace(description)
	caption = strings.TrimSpace(caption)
	switch {
	case description == "":
		return caption
	case caption == "":
		return description
	default:
		return description + "\n" + caption
	}
}
