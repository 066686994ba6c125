package sorter

// Config holds the layout heuristics. The ratios are tuned against the
// golden regression corpus; treat them as knobs, not architecture.
type Config struct {
	// LeftEdgeTolRatio is the left-edge clustering tolerance used by the
	// profiler, as a fraction of page width.
	LeftEdgeTolRatio float64
	// ColumnGapRatio is the minimum horizontal gap between column bands,
	// as a fraction of page width.
	ColumnGapRatio float64
	// OrphanGapRatio caps the vertical gap inside one orphan run, as a
	// fraction of page height.
	OrphanGapRatio float64
	// AnchorYTol is the pixel slack when matching an element to a
	// preceding anchor (detectors jitter a few px on the same line).
	AnchorYTol float64

	// Profiler decision thresholds.
	HighConsistency float64
	LowAdjacency    float64
	HighAdjacency   float64
	// MinAnchors is the anchor count above which the profiler signal is
	// considered confident and wins over the caller's document type.
	MinAnchors int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		LeftEdgeTolRatio: 0.04,
		ColumnGapRatio:   0.05,
		OrphanGapRatio:   0.08,
		AnchorYTol:       4,
		HighConsistency:  0.75,
		LowAdjacency:     0.25,
		HighAdjacency:    0.40,
		MinAnchors:       2,
	}
}

// Sorter runs the adaptive reading-order pipeline. It holds no per-page
// state; one Sorter is safe for concurrent use across pages as long as each
// call gets its own element slice.
type Sorter struct {
	cfg Config
}

// New returns a Sorter with the given config.
func New(cfg Config) *Sorter { return &Sorter{cfg: cfg} }

// NewDefault returns a Sorter with DefaultConfig.
func NewDefault() *Sorter { return New(DefaultConfig()) }
