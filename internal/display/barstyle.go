package display

// BarStyle is the tuple of (indicator, tip, filler strings) that renders
// a progress bar, per spec.md's glossary: "the tuple of (indicator
// string, tip string, filler string array) rendering a progress bar."
// The style table holds at most 4 distinct styles (spec.md §3), keyed by
// a small style id; id 0 is reserved "unset".
type BarStyle struct {
	ID        int
	Name      string
	Indicator string   // left bracket / leading marker
	Tip       string   // end bracket / trailing marker
	Fillers   []string // partial-cell glyphs from empty (first) to full (last)
}

// Known styles, resolved against original_source/pv/format/barstyle.c:
// plain is pure ASCII, the rest use UTF-8 block-drawing glyphs.
var (
	BarPlain = BarStyle{
		ID: 1, Name: "plain",
		Indicator: "[", Tip: "]",
		Fillers: []string{" ", ">", "="},
	}
	BarBlock = BarStyle{
		ID: 2, Name: "block",
		Indicator: "[", Tip: "]",
		Fillers: []string{" ", "█"},
	}
	BarGranular = BarStyle{
		ID: 3, Name: "granular",
		Indicator: "[", Tip: "]",
		Fillers: []string{" ", "▏", "▎", "▍", "▌", "▋", "▊", "▉", "█"},
	}
	BarShaded = BarStyle{
		ID: 4, Name: "shaded",
		Indicator: "[", Tip: "]",
		Fillers: []string{" ", "░", "▒", "▓", "█"},
	}
)

// styleTable is the ≤4-entry table from spec.md §3. All four styles are
// pre-populated rather than added on first use, since pv ships them as
// known names rather than discovering them at runtime.
var styleTable = []BarStyle{BarPlain, BarBlock, BarGranular, BarShaded}

// StyleByName resolves a bar style name to its table entry, defaulting
// to plain if unknown.
func StyleByName(name string) BarStyle {
	for _, s := range styleTable {
		if s.Name == name {
			return s
		}
	}
	return BarPlain
}

// RenderBar draws a bar of the given total width at the given fraction
// in [0,1], using style's filler granularity. The innermost characters
// are the literal bar between Indicator and Tip; width includes both
// brackets.
func RenderBar(style BarStyle, width int, fraction float64) string {
	if width < 2 {
		return ""
	}
	inner := width - len(style.Indicator) - len(style.Tip)
	if inner < 0 {
		inner = 0
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	levels := len(style.Fillers) - 1 // finest index beyond "empty"
	totalEighths := inner * levels
	filledEighths := int(fraction*float64(totalEighths) + 0.5)

	var b []byte
	b = append(b, style.Indicator...)
	full := filledEighths / levels
	rem := filledEighths % levels
	for i := 0; i < full && i < inner; i++ {
		b = append(b, style.Fillers[levels]...)
	}
	drawn := full
	if rem > 0 && drawn < inner {
		b = append(b, style.Fillers[rem]...)
		drawn++
	}
	for ; drawn < inner; drawn++ {
		b = append(b, style.Fillers[0]...)
	}
	b = append(b, style.Tip...)
	return string(b)
}

// RenderSawtoothBar draws the back-and-forth indicator used when total
// size is unknown: a short marker sweeps across the bar at a position
// derived from the folded saw-tooth percentage (spec.md §4.2).
func RenderSawtoothBar(style BarStyle, width int, foldedPercent float64) string {
	if width < 2 {
		return ""
	}
	inner := width - len(style.Indicator) - len(style.Tip)
	if inner <= 0 {
		return style.Indicator + style.Tip
	}
	pos := int(foldedPercent / 100 * float64(inner-1))
	if pos < 0 {
		pos = 0
	}
	if pos > inner-1 {
		pos = inner - 1
	}
	var b []byte
	b = append(b, style.Indicator...)
	for i := 0; i < inner; i++ {
		if i == pos {
			b = append(b, style.Fillers[len(style.Fillers)-1]...)
		} else {
			b = append(b, style.Fillers[0]...)
		}
	}
	b = append(b, style.Tip...)
	return string(b)
}
