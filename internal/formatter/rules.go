package formatter

import (
	"github.com/rs/zerolog/log"

	"github.com/local/readorder/internal/layout"
)

// Rule is the static per-class formatting configuration.
type Rule struct {
	Prefix string
	Suffix string
	// Indent is the number of leading spaces applied to every line.
	Indent    int
	Transform Transform
	// AllowEmpty emits the prefix even when the resolved text is empty,
	// for classes that act as structural markers.
	AllowEmpty        bool
	KeepSuffixOnEmpty bool
}

// passThrough is the recovery rule for classes nobody registered.
var passThrough = Rule{Transform: TransformNone}

var ruleTable = map[string]Rule{
	layout.ClassQuestionNumber: {Suffix: ".", Transform: TransformCollapseLines},
	layout.ClassQuestionText:   {Transform: TransformNone},
	layout.ClassQuestionType:   {Prefix: "[", Suffix: "]", Transform: TransformCollapseLines},
	layout.ClassChoices:        {Indent: 3, Transform: TransformChoices},
	layout.ClassFigure:         {Transform: TransformMergeVisual},
	layout.ClassTable:          {Transform: TransformMergeVisual},
	layout.ClassFlowchart:      {Transform: TransformMergeVisual},
	layout.ClassFormula:        {Transform: TransformFormula},
	layout.ClassList:           {Transform: TransformList},
	layout.ClassTitle:          {Transform: TransformCollapseLines},
	layout.ClassPlainText:      {Transform: TransformNone},
}

// RuleFor returns the formatting rule for a class, falling back to the
// pass-through rule for unregistered labels.
func RuleFor(class string) Rule {
	if r, ok := ruleTable[class]; ok {
		return r
	}
	log.Debug().Str("class", class).Msg("no formatting rule registered; using pass-through")
	return passThrough
}
