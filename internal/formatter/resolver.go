package formatter

import (
	"strings"

	"github.com/local/readorder/internal/layout"
	"github.com/local/readorder/internal/sorter"
)

// bulletFor picks the list glyph by document type: reading-order documents
// use plain dashes, question sheets use round bullets.
func bulletFor(docType string) string {
	if docType == sorter.DocReadingOrder {
		return "-"
	}
	return "•"
}

// ResolveText picks the effective text for an element and applies its
// class transform. Visual classes (figure, table, flowchart) merge the AI
// description above the OCR caption; every other class prefers OCR and
// falls back to the AI description only when OCR is empty. Empty strings
// in either map count as absent.
func ResolveText(e layout.Element, ocr, ai map[int]string, docType string) string {
	rule := RuleFor(e.Class)
	ocrText := strings.TrimSpace(ocr[e.ID])
	aiText := strings.TrimSpace(ai[e.ID])

	if rule.Transform == TransformMergeVisual || layout.IsVisualClass(e.Class) {
		return mergeVisual(aiText, ocrText)
	}

	text := ocrText
	if text == "" {
		text = aiText
	}
	if text == "" {
		return ""
	}
	return applyTransform(rule.Transform, text, bulletFor(docType))
}
