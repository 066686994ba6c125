package sorter

import (
	"sort"

	"github.com/local/readorder/internal/layout"
)

// detectColumns partitions elements into vertical column bands by clustering
// their x-ranges. Two elements share a band when their x-ranges overlap or
// sit closer than the configured gap. Bands come back left-to-right, each
// band's members in id order (callers sort further as needed).
func (s *Sorter) detectColumns(elems []layout.Element, pageW float64) [][]layout.Element {
	if len(elems) == 0 {
		return nil
	}
	gap := s.cfg.ColumnGapRatio * refWidth(elems, pageW)

	idx := make([]int, len(elems))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		ea, eb := elems[idx[a]], elems[idx[b]]
		if ea.Box.Left() != eb.Box.Left() {
			return ea.Box.Left() < eb.Box.Left()
		}
		return ea.ID < eb.ID
	})

	var bands [][]layout.Element
	var right float64
	for n, i := range idx {
		e := elems[i]
		if n == 0 || e.Box.Left() > right+gap {
			bands = append(bands, []layout.Element{e})
		} else {
			bands[len(bands)-1] = append(bands[len(bands)-1], e)
		}
		if e.Box.Right() > right || n == 0 {
			right = e.Box.Right()
		}
	}
	return bands
}

// refWidth falls back to the elements' horizontal extent when the caller
// supplied no page width (degenerate geometry is tolerated, never fatal).
func refWidth(elems []layout.Element, pageW float64) float64 {
	if pageW > 0 {
		return pageW
	}
	if len(elems) == 0 {
		return 1
	}
	left, right := elems[0].Box.Left(), elems[0].Box.Right()
	for _, e := range elems[1:] {
		if e.Box.Left() < left {
			left = e.Box.Left()
		}
		if e.Box.Right() > right {
			right = e.Box.Right()
		}
	}
	if right <= left {
		return 1
	}
	return right - left
}

func refHeight(elems []layout.Element, pageH float64) float64 {
	if pageH > 0 {
		return pageH
	}
	if len(elems) == 0 {
		return 1
	}
	top, bottom := elems[0].Box.Top(), elems[0].Box.Bottom()
	for _, e := range elems[1:] {
		if e.Box.Top() < top {
			top = e.Box.Top()
		}
		if e.Box.Bottom() > bottom {
			bottom = e.Box.Bottom()
		}
	}
	if bottom <= top {
		return 1
	}
	return bottom - top
}
