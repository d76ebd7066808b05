package display

import "fmt"

// ExtraKind distinguishes the two secondary-display sinks spec.md §4.2
// names: a terminal window-title OSC sequence, and an in-process
// argv[0] title rewrite.
type ExtraKind int

const (
	ExtraNone ExtraKind = iota
	ExtraWindowTitle
	ExtraProcessTitle
	ExtraBoth
)

// RenderExtra renders a secondary display using the same formatter but
// forbidden from using color (spec.md §4.2: "rendered with the same
// formatter but forbidden from using color").
func RenderExtra(segments []Segment, ctx Context, width int) string {
	s := &State{Segments: segments, Width: width}
	s.Flags.ColourPermitted = false
	return Render(s, ctx)
}

// WindowTitleSequence wraps text in the OSC 2 window-title escape, per
// spec.md §6: "ESC ] 2 ; <text> ESC \".
func WindowTitleSequence(text string) string {
	return fmt.Sprintf("\x1b]2;%s\x1b\\", text)
}
