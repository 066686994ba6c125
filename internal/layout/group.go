package layout

// GroupType tells whether a group is governed by an anchor element.
type GroupType string

const (
	GroupAnchor GroupType = "anchor"
	GroupOrphan GroupType = "orphan"
)

// Group is a derived logical unit of a sorted page (a question, or an
// orphan run of ungoverned elements). Recomputed on every sort, never
// persisted by the core.
type Group struct {
	ID           int       `json:"group_id"`
	Type         GroupType `json:"group_type"`
	AnchorID     int       `json:"anchor_element_id,omitempty"`
	ElementCount int       `json:"element_count"`
	StartY       float64   `json:"start_y"`
	EndY         float64   `json:"end_y"`
}
