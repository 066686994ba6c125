package layout

// Detector class labels. The label set is closed but extensible:
// anything not listed here is handled as generic body text.
const (
	ClassQuestionNumber = "question_number"
	ClassQuestionText   = "question_text"
	ClassQuestionType   = "question_type"
	ClassChoices        = "choices"
	ClassFigure         = "figure"
	ClassTable          = "table"
	ClassFlowchart      = "flowchart"
	ClassFormula        = "formula"
	ClassList           = "list"
	ClassPlainText      = "plain_text"
	ClassTitle          = "title"
)

// Ungrouped is the GroupID sentinel for an element the sorter has not
// processed yet. No element may keep it after a successful sort.
const Ungrouped = -1

// anchorClasses are the classes that conventionally begin a new logical
// group. Defined once; the profiler, the strategies and the resolver all
// read this set so the lists cannot drift apart.
var anchorClasses = map[string]bool{
	ClassQuestionNumber: true,
	ClassTitle:          true,
}

// visualClasses are the AI-priority classes: their useful content comes
// from the vision-description pipeline rather than OCR.
var visualClasses = map[string]bool{
	ClassFigure:    true,
	ClassTable:     true,
	ClassFlowchart: true,
}

// IsAnchorClass reports whether class starts a new logical group.
func IsAnchorClass(class string) bool { return anchorClasses[class] }

// IsVisualClass reports whether class prefers the AI description pipeline.
func IsVisualClass(class string) bool { return visualClasses[class] }

// Element is one detected region on a page. ID is stable and unique within
// the page; Confidence is the detector confidence, passed through untouched.
// GroupID, OrderInGroup and OrderInQuestion are assigned exactly once by the
// sorter; downstream consumers only read them.
type Element struct {
	ID         int     `json:"element_id"`
	Class      string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
	Box        BBox    `json:"bbox"`

	GroupID         int `json:"group_id"`
	OrderInGroup    int `json:"order_in_group"`
	OrderInQuestion int `json:"order_in_question"`
}

// NewElement returns an element with the ungrouped sentinel set.
func NewElement(id int, class string, confidence float64, box BBox) Element {
	return Element{ID: id, Class: class, Confidence: confidence, Box: box, GroupID: Ungrouped}
}

// IsAnchor reports whether the element's class is in the anchor set.
func (e Element) IsAnchor() bool { return IsAnchorClass(e.Class) }
