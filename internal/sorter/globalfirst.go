package sorter

import "github.com/local/readorder/internal/layout"

// globalFirst orders the whole page as one reading flow: detect column
// bands, exhaust each band top-to-bottom, move to the next band. There is
// no anchor concept here; the page degenerates to a single synthetic group.
func (s *Sorter) globalFirst(elems []layout.Element, pageW, pageH float64) []groupDraft {
	bands := s.detectColumns(elems, pageW)

	members := make([]layout.Element, 0, len(elems))
	for _, band := range bands {
		readingSort(band)
		members = append(members, band...)
	}
	return []groupDraft{{typ: layout.GroupOrphan, members: members}}
}
