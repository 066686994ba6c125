package sorter

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/local/readorder/internal/layout"
)

// Strategy selects one of the ordering algorithms.
type Strategy int

const (
	// GlobalFirst treats the page as one reading flow: exhaust a column
	// top-to-bottom before moving right.
	GlobalFirst Strategy = iota
	// LocalFirst groups elements under anchor elements (question numbers,
	// titles) and orders group by group.
	LocalFirst
	// Hybrid partitions the page into columns first, then applies the
	// anchor logic inside each column.
	Hybrid
)

func (s Strategy) String() string {
	switch s {
	case GlobalFirst:
		return "global_first"
	case LocalFirst:
		return "local_first"
	case Hybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a caller-supplied token to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "global_first", "global":
		return GlobalFirst, nil
	case "local_first", "local":
		return LocalFirst, nil
	case "hybrid":
		return Hybrid, nil
	default:
		return GlobalFirst, fmt.Errorf("unknown strategy %q", s)
	}
}

// Result is the sorted, grouped page. Elements is a fresh slice in
// order_in_question order; the caller's input is never mutated.
type Result struct {
	Elements []layout.Element `json:"elements"`
	Groups   []layout.Group   `json:"groups"`
	Strategy Strategy         `json:"-"`
	Profile  *Profile         `json:"-"`
}

// Sort runs a single strategy over the elements and verifies the ordering
// contract. Malformed elements (zero-area boxes, duplicate ids) are dropped
// with a warning before grouping; everything that survives sanitation must
// come back exactly once, grouped and densely ranked, or Sort fails.
func (s *Sorter) Sort(strategy Strategy, elements []layout.Element, pageW, pageH float64) (*Result, error) {
	clean := sanitize(elements)
	if len(clean) == 0 {
		return &Result{Strategy: strategy}, nil
	}

	var drafts []groupDraft
	switch strategy {
	case GlobalFirst:
		drafts = s.globalFirst(clean, pageW, pageH)
	case LocalFirst:
		drafts = s.localFirst(clean, pageW, pageH)
	case Hybrid:
		drafts = s.hybrid(clean, pageW, pageH)
	default:
		return nil, fmt.Errorf("sort: unknown strategy %d", strategy)
	}

	res := assemble(drafts, strategy)
	if err := verify(clean, res); err != nil {
		return nil, fmt.Errorf("sort contract violated (%s): %w", strategy, err)
	}
	return res, nil
}

// sanitize copies the input, resets sort-assigned fields, drops zero-area
// boxes and duplicate ids. The copy is ordered by id so the result does not
// depend on input permutation.
func sanitize(elements []layout.Element) []layout.Element {
	clean := make([]layout.Element, 0, len(elements))
	for _, e := range elements {
		if e.Box.W <= 0 || e.Box.H <= 0 {
			log.Warn().Int("element_id", e.ID).Str("class", e.Class).Msg("dropping zero-area element")
			continue
		}
		e.GroupID = layout.Ungrouped
		e.OrderInGroup = 0
		e.OrderInQuestion = 0
		clean = append(clean, e)
	}
	sort.Slice(clean, func(i, j int) bool { return clean[i].ID < clean[j].ID })
	out := clean[:0]
	var lastID int
	for i, e := range clean {
		if i > 0 && e.ID == lastID {
			log.Warn().Int("element_id", e.ID).Msg("dropping duplicate element id")
			continue
		}
		lastID = e.ID
		out = append(out, e)
	}
	return out
}

// groupDraft is a strategy's intermediate unit before ids and ranks are
// assigned.
type groupDraft struct {
	typ      layout.GroupType
	anchorID int
	members  []layout.Element
}

func (g groupDraft) startY() float64 {
	y := g.members[0].Box.Top()
	for _, m := range g.members[1:] {
		if m.Box.Top() < y {
			y = m.Box.Top()
		}
	}
	return y
}

func (g groupDraft) endY() float64 {
	y := g.members[0].Box.Bottom()
	for _, m := range g.members[1:] {
		if m.Box.Bottom() > y {
			y = m.Box.Bottom()
		}
	}
	return y
}

func (g groupDraft) minID() int {
	id := g.members[0].ID
	for _, m := range g.members[1:] {
		if m.ID < id {
			id = m.ID
		}
	}
	return id
}

// readingSort orders elements top-to-bottom, left-to-right, id on ties.
func readingSort(elems []layout.Element) {
	sort.Slice(elems, func(i, j int) bool {
		a, b := elems[i], elems[j]
		if a.Box.Top() != b.Box.Top() {
			return a.Box.Top() < b.Box.Top()
		}
		if a.Box.Left() != b.Box.Left() {
			return a.Box.Left() < b.Box.Left()
		}
		return a.ID < b.ID
	})
}

// assemble stamps group ids and dense ranks onto the drafts, in draft
// order. Members must already be in final intra-group order: GlobalFirst
// keys its single group by column before y, so assemble never re-sorts.
func assemble(drafts []groupDraft, strategy Strategy) *Result {
	res := &Result{Strategy: strategy}
	pageRank := 0
	for gid, d := range drafts {
		g := layout.Group{
			ID:           gid,
			Type:         d.typ,
			ElementCount: len(d.members),
			StartY:       d.startY(),
			EndY:         d.endY(),
		}
		if d.typ == layout.GroupAnchor {
			g.AnchorID = d.anchorID
		}
		for rank := range d.members {
			d.members[rank].GroupID = gid
			d.members[rank].OrderInGroup = rank
			d.members[rank].OrderInQuestion = pageRank
			pageRank++
		}
		res.Elements = append(res.Elements, d.members...)
		res.Groups = append(res.Groups, g)
	}
	return res
}

// verify enforces the strategy contract: bijection of ids, nothing left
// ungrouped, dense ranks per group and across the page.
func verify(input []layout.Element, res *Result) error {
	if len(res.Elements) != len(input) {
		return fmt.Errorf("element count changed: %d in, %d out", len(input), len(res.Elements))
	}
	seen := make(map[int]bool, len(input))
	for _, e := range input {
		seen[e.ID] = true
	}
	groupSizes := map[int]int{}
	for i, e := range res.Elements {
		if !seen[e.ID] {
			return fmt.Errorf("element %d not in input", e.ID)
		}
		delete(seen, e.ID)
		if e.GroupID == layout.Ungrouped {
			return fmt.Errorf("element %d left ungrouped", e.ID)
		}
		if e.OrderInQuestion != i {
			return fmt.Errorf("order_in_question not dense at index %d (got %d)", i, e.OrderInQuestion)
		}
		if e.OrderInGroup != groupSizes[e.GroupID] {
			return fmt.Errorf("order_in_group not dense in group %d (element %d)", e.GroupID, e.ID)
		}
		groupSizes[e.GroupID]++
	}
	for id := range seen {
		return fmt.Errorf("element %d dropped from output", id)
	}
	for _, g := range res.Groups {
		if groupSizes[g.ID] != g.ElementCount {
			return fmt.Errorf("group %d count mismatch: %d vs %d", g.ID, g.ElementCount, groupSizes[g.ID])
		}
	}
	return nil
}
