package sorter

import "github.com/local/readorder/internal/layout"

// hybrid partitions the page into column bands first, then runs the anchor
// grouping independently inside each band and concatenates the bands in
// column order. Multi-column question sheets, where each column is
// internally anchor-structured, land here.
func (s *Sorter) hybrid(elems []layout.Element, pageW, pageH float64) []groupDraft {
	bands := s.detectColumns(elems, pageW)

	var drafts []groupDraft
	for _, band := range bands {
		drafts = append(drafts, s.groupByAnchors(band, pageW, pageH)...)
	}
	return drafts
}
