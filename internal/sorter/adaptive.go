package sorter

import (
	"github.com/rs/zerolog/log"

	"github.com/local/readorder/internal/layout"
)

// Document types the callers use. Anything else falls back to the
// profiler's recommendation alone.
const (
	DocQuestionBased = "question_based"
	DocReadingOrder  = "reading_order"
)

// SortAdaptive is the single entry point the rest of the system uses.
// A forced strategy skips profiling entirely. Otherwise the page is
// profiled and the recommended strategy runs; the caller's document type
// only sways the decision while the anchor signal is weak. Once enough
// anchors are on the page, the profiler wins.
func (s *Sorter) SortAdaptive(elements []layout.Element, docType string, pageW, pageH float64, forced *Strategy) (*Result, error) {
	if forced != nil {
		return s.Sort(*forced, elements, pageW, pageH)
	}

	profile := s.Analyze(elements, pageW, pageH)
	strategy := profile.Recommended
	if profile.AnchorCount < s.cfg.MinAnchors {
		switch docType {
		case DocQuestionBased:
			strategy = LocalFirst
		case DocReadingOrder:
			strategy = GlobalFirst
		}
	}

	log.Debug().
		Str("strategy", strategy.String()).
		Str("layout", string(profile.LayoutType)).
		Float64("consistency", profile.GlobalConsistency).
		Float64("adjacency", profile.HorizontalAdjacency).
		Int("anchors", profile.AnchorCount).
		Msg("adaptive sort")

	res, err := s.Sort(strategy, elements, pageW, pageH)
	if err != nil {
		return nil, err
	}
	res.Profile = &profile
	return res, nil
}
