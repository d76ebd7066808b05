package display

import "time"

// Context carries everything a render pass needs from C3 (transfer
// engine) and C2 (clock) to produce one refresh line, per spec.md §4's
// data-flow description ("C5 ... asks C4 to format using C3's counters
// and C2's clock").
type Context struct {
	Name string

	Size        int64 // <=0 means unknown
	Transferred int64
	BufferPct   float64

	Elapsed time.Duration
	ETA     time.Duration
	FinAt   time.Time

	InstantRate float64
	AverageRate float64
	MaxRate     float64 // for rate-gauge mode when size is unknown

	Percentage    float64 // [0,100] when size is known, else the unfolded saw-tooth in [0,200)
	RateGauge     bool    // draw filled bar vs current-rate/peak when size unknown
	DecimalUnits  bool
	ReportBits    bool
	LineMode      bool

	LastWritten  []byte // rolling tail, <=256 bytes
	PreviousLine []byte

	FinalUpdate bool

	BarStyleName string

	ColorPermitted bool
}

// State is the C4 display state from spec.md §3: the parsed segment
// array, flags, the bar-style table, and rolling buffers carried between
// refreshes.
type State struct {
	Template string
	Segments []Segment

	Width  int
	Height int

	Flags struct {
		ShowingTimer       bool
		ShowingBytes       bool
		ShowingRate        bool
		ShowingLastWritten bool
		ShowingPreviousLine bool
		FormatUsesColor    bool
		ColourPermitted    bool
		SGRActive          bool
		FinalUpdate        bool
		OutputProduced     bool
	}

	PreviousLine string // the last rendered display line, for pad-to-erase
	NumericMode  bool
	CursorMode   bool
}

// NewState parses template once and derives the showing-* flags by
// inspecting the parsed segments (spec.md §4.2: "Parsing also runs each
// formatter with a zero-sized buffer to collect side-effect flags").
func NewState(template string, numeric, cursor bool) *State {
	s := &State{Template: template, NumericMode: numeric, CursorMode: cursor}
	s.Reparse()
	return s
}

// Reparse re-tokenizes the template (called on construction and whenever
// the control loop observes a format-string change) and recomputes the
// side-effect flags.
func (s *State) Reparse() {
	s.Segments = Parse(s.Template)
	s.Flags.ShowingTimer = false
	s.Flags.ShowingBytes = false
	s.Flags.ShowingRate = false
	s.Flags.ShowingLastWritten = false
	s.Flags.ShowingPreviousLine = false
	s.Flags.FormatUsesColor = false
	for _, seg := range s.Segments {
		switch seg.Kind {
		case KindTimer, KindProgress:
			s.Flags.ShowingTimer = true
		case KindBytes:
			s.Flags.ShowingBytes = true
		case KindRate, KindAverageRate:
			s.Flags.ShowingRate = true
		case KindLastWritten:
			s.Flags.ShowingLastWritten = true
		case KindPreviousLine:
			s.Flags.ShowingPreviousLine = true
		case KindSGR:
			s.Flags.FormatUsesColor = true
		}
	}
}
