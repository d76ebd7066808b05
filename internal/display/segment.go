// Package display implements the segment-based template language of
// spec.md §4.2: fixed and elastic segments are laid out to fit a
// terminal width, producing a single refresh line plus optional
// window/process-title outputs. This is C4.
package display

// Kind identifies a segment's formatter, or that it is a literal run of
// template text. A sum type (rather than the original's function-pointer
// table) dispatched via a switch on Kind in render.go, per spec.md §9.
type Kind int

const (
	KindLiteral Kind = iota
	KindProgress
	KindProgressBarOnly
	KindProgressAmountOnly
	KindBarPlain
	KindBarBlock
	KindBarGranular
	KindBarShaded
	KindTimer
	KindETA
	KindFinETA
	KindRate
	KindAverageRate
	KindBytes
	KindBufferPercent
	KindLastWritten
	KindPreviousLine
	KindName
	KindSGR
)

// Elastic reports whether a segment kind's rendered width depends on the
// terminal width remaining after fixed segments are placed.
func (k Kind) Elastic() bool {
	switch k {
	case KindProgress, KindProgressBarOnly, KindBarPlain, KindBarBlock, KindBarGranular, KindBarShaded, KindPreviousLine:
		return true
	default:
		return false
	}
}

// Segment is one parsed unit of the format template: either a literal
// run of text, or a formatter invocation with an optional fixed width
// (the numeric prefix, e.g. "%16A") and/or string argument (sgr's
// keyword list).
type Segment struct {
	Kind Kind

	// Literal holds the text for KindLiteral segments.
	Literal string

	// FixedWidth is >0 when the template specified a numeric prefix
	// ("%16A"); 0 means "use the formatter's natural/elastic width".
	FixedWidth int

	// Arg holds the string-arg after ':' in a "%{name:arg}" code, as used
	// by sgr ("%{sgr:bold,fg-red}"); the bar-* codes carry their style in
	// Kind, not in Arg.
	Arg string

	// Rendered is filled in by a render pass: byte offset, byte length,
	// and display width within the final buffer.
	Offset int
	Length int
	Width  int
}
