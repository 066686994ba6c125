package sorter

import (
	"sort"

	"github.com/local/readorder/internal/layout"
)

// localFirst builds question groups by anchor search over the whole page.
func (s *Sorter) localFirst(elems []layout.Element, pageW, pageH float64) []groupDraft {
	return s.groupByAnchors(elems, pageW, pageH)
}

// groupByAnchors is the shared anchor-grouping pass: every anchor element
// opens a group at its vertical position; other elements attach to the
// nearest preceding anchor in the same column; whatever is left over (runs
// before the first anchor, or stragglers in a different column) becomes
// orphan groups in document order. Hybrid reuses this per column band.
func (s *Sorter) groupByAnchors(elems []layout.Element, pageW, pageH float64) []groupDraft {
	if len(elems) == 0 {
		return nil
	}
	colGap := s.cfg.ColumnGapRatio * refWidth(elems, pageW)
	orphanGap := s.cfg.OrphanGapRatio * refHeight(elems, pageH)

	var anchors []layout.Element
	var rest []layout.Element
	for _, e := range elems {
		if e.IsAnchor() {
			anchors = append(anchors, e)
		} else {
			rest = append(rest, e)
		}
	}
	sort.Slice(anchors, func(i, j int) bool {
		if anchors[i].Box.Top() != anchors[j].Box.Top() {
			return anchors[i].Box.Top() < anchors[j].Box.Top()
		}
		return anchors[i].ID < anchors[j].ID
	})

	anchored := make([][]layout.Element, len(anchors))
	var loose []layout.Element
	for _, e := range rest {
		idx := s.governingAnchor(e, anchors, colGap)
		if idx < 0 {
			loose = append(loose, e)
			continue
		}
		anchored[idx] = append(anchored[idx], e)
	}

	var drafts []groupDraft
	for i, a := range anchors {
		members := append([]layout.Element{a}, anchored[i]...)
		readingSort(members)
		drafts = append(drafts, groupDraft{typ: layout.GroupAnchor, anchorID: a.ID, members: members})
	}
	drafts = append(drafts, orphanRuns(loose, orphanGap)...)

	// Groups follow document order by vertical start, smallest id on ties.
	sort.Slice(drafts, func(i, j int) bool {
		if drafts[i].startY() != drafts[j].startY() {
			return drafts[i].startY() < drafts[j].startY()
		}
		return drafts[i].minID() < drafts[j].minID()
	})
	return drafts
}

// governingAnchor returns the index of the nearest anchor above the element
// in the same column, or -1. The y tolerance absorbs detector jitter so a
// number box sitting a pixel below its question line still governs it.
func (s *Sorter) governingAnchor(e layout.Element, anchors []layout.Element, colGap float64) int {
	best := -1
	for i, a := range anchors {
		if a.Box.Top() > e.Box.Top()+s.cfg.AnchorYTol {
			break // anchors are sorted by y; the rest are below the element
		}
		if !sameColumn(e.Box, a.Box, colGap) {
			continue
		}
		best = i
	}
	return best
}

// sameColumn holds when the x-ranges overlap or the gap between them stays
// under the column-gap threshold (anchor numbers often sit in the margin
// just left of their body text).
func sameColumn(a, b layout.BBox, colGap float64) bool {
	if a.HorizontalOverlap(b) > 0 {
		return true
	}
	gap := a.Left() - b.Right()
	if b.Left() > a.Right() {
		gap = b.Left() - a.Right()
	}
	return gap <= colGap
}

// orphanRuns splits anchorless elements into runs of vertically contiguous
// neighbors, one orphan group per run, preserving document order.
func orphanRuns(loose []layout.Element, maxGap float64) []groupDraft {
	if len(loose) == 0 {
		return nil
	}
	readingSort(loose)
	var drafts []groupDraft
	var run []layout.Element
	var runBottom float64
	for _, e := range loose {
		if len(run) > 0 && e.Box.Top()-runBottom > maxGap {
			drafts = append(drafts, groupDraft{typ: layout.GroupOrphan, members: run})
			run = nil
		}
		run = append(run, e)
		if e.Box.Bottom() > runBottom || len(run) == 1 {
			runBottom = e.Box.Bottom()
		}
	}
	drafts = append(drafts, groupDraft{typ: layout.GroupOrphan, members: run})
	return drafts
}
