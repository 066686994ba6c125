package sorter

import (
	"sort"

	"github.com/local/readorder/internal/layout"
)

// LayoutType classifies the page geometry.
type LayoutType string

const (
	// LayoutSimple is a single uninterrupted flow with no anchors.
	LayoutSimple LayoutType = "simple"
	// LayoutStandard is ordinary body text with weak or mixed signals.
	LayoutStandard LayoutType = "standard"
	// LayoutSectioned has several anchor-led sections in one flow.
	LayoutSectioned LayoutType = "sectioned"
	// LayoutMultipleChoice has anchor-led sections laid out side by side.
	LayoutMultipleChoice LayoutType = "multiple_choice"
)

// Profile is the per-sort geometry summary. A value object, recomputed on
// every call and never shared mutably.
type Profile struct {
	GlobalConsistency   float64    `json:"global_consistency_score"`
	HorizontalAdjacency float64    `json:"horizontal_adjacency_ratio"`
	AnchorCount         int        `json:"anchor_count"`
	LayoutType          LayoutType `json:"layout_type"`
	Recommended         Strategy   `json:"-"`
}

// Analyze profiles the page geometry and recommends a strategy. Pure
// function of its inputs: element order never affects the outcome, and a
// zero-element or zero-dimension page yields the neutral profile rather
// than an error.
func (s *Sorter) Analyze(elements []layout.Element, pageW, pageH float64) Profile {
	elems := sanitize(elements)
	if len(elems) == 0 {
		return Profile{
			GlobalConsistency: 1,
			LayoutType:        LayoutSimple,
			Recommended:       GlobalFirst,
		}
	}

	p := Profile{
		GlobalConsistency:   s.globalConsistency(elems, pageW),
		HorizontalAdjacency: horizontalAdjacency(elems),
		AnchorCount:         countAnchors(elems),
	}
	p.LayoutType = s.classify(p)
	p.Recommended = s.recommend(p)
	return p
}

// globalConsistency measures how tightly the left edges cluster: the share
// of elements inside the dominant left-edge cluster. A single global column
// scores 1.0; scattered or multi-column layouts score lower.
func (s *Sorter) globalConsistency(elems []layout.Element, pageW float64) float64 {
	tol := s.cfg.LeftEdgeTolRatio * refWidth(elems, pageW)
	lefts := make([]float64, len(elems))
	for i, e := range elems {
		lefts[i] = e.Box.Left()
	}
	sort.Float64s(lefts)

	best, cur := 1, 1
	clusterStart := lefts[0]
	for i := 1; i < len(lefts); i++ {
		if lefts[i]-clusterStart <= tol {
			cur++
		} else {
			clusterStart = lefts[i]
			cur = 1
		}
		if cur > best {
			best = cur
		}
	}
	return float64(best) / float64(len(lefts))
}

// horizontalAdjacency is the fraction of elements that have at least one
// neighbor sharing a vertical band but occupying a disjoint x-range.
// Side-by-side column layouts score high.
func horizontalAdjacency(elems []layout.Element) float64 {
	if len(elems) < 2 {
		return 0
	}
	adjacent := make([]bool, len(elems))
	for i := 0; i < len(elems); i++ {
		for j := i + 1; j < len(elems); j++ {
			a, b := elems[i].Box, elems[j].Box
			if a.VerticalOverlap(b) > 0 && a.HorizontalOverlap(b) == 0 {
				adjacent[i] = true
				adjacent[j] = true
			}
		}
	}
	n := 0
	for _, ok := range adjacent {
		if ok {
			n++
		}
	}
	return float64(n) / float64(len(elems))
}

func countAnchors(elems []layout.Element) int {
	n := 0
	for _, e := range elems {
		if e.IsAnchor() {
			n++
		}
	}
	return n
}

func (s *Sorter) classify(p Profile) LayoutType {
	switch {
	case p.AnchorCount >= s.cfg.MinAnchors && p.HorizontalAdjacency >= s.cfg.HighAdjacency:
		return LayoutMultipleChoice
	case p.AnchorCount >= s.cfg.MinAnchors:
		return LayoutSectioned
	case p.GlobalConsistency >= s.cfg.HighConsistency:
		return LayoutSimple
	default:
		return LayoutStandard
	}
}

// recommend maps the profile to a strategy: anchor-rich side-by-side pages
// go local, clean single-flow pages go global, everything borderline goes
// hybrid.
func (s *Sorter) recommend(p Profile) Strategy {
	switch {
	case p.AnchorCount >= s.cfg.MinAnchors:
		return LocalFirst
	case p.GlobalConsistency >= s.cfg.HighConsistency && p.HorizontalAdjacency <= s.cfg.LowAdjacency:
		return GlobalFirst
	default:
		return Hybrid
	}
}
