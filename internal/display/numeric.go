package display

import (
	"fmt"
	"strings"
)

// renderNumeric implements spec.md §4.2's numeric mode: a single line of
// space-free numbers per tick, in order timer? bytes? rate? percentage?,
// terminated with '\n' instead of '\r'. Per spec.md §8 it contains only
// digits, space, '.', sign, and '\n'.
func renderNumeric(s *State, ctx Context) string {
	var fields []string
	if s.Flags.ShowingTimer {
		fields = append(fields, fmt.Sprintf("%.0f", ctx.Elapsed.Seconds()))
	}
	if s.Flags.ShowingBytes {
		fields = append(fields, fmt.Sprintf("%d", ctx.Transferred))
	}
	if s.Flags.ShowingRate {
		fields = append(fields, fmt.Sprintf("%.2f", ctx.InstantRate))
	}
	if ctx.Size > 0 {
		fields = append(fields, fmt.Sprintf("%.0f", ctx.Percentage))
	}
	return strings.Join(fields, " ") + "\n"
}
