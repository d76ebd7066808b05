package display

import (
	"strconv"
	"strings"
)

// Parse tokenizes a format template into a segment array, following the
// grammar in spec.md §4.2:
//
//	template := ( literal | '%' [digits] code )*
//	code     := single-letter | '{' name [':' arg] '}' | '%'  ('%%' -> '%')
//
// Unknown "%{...}" sequences are passed through literally, per spec.md.
func Parse(template string) []Segment {
	var segs []Segment
	var lit strings.Builder

	flushLit := func() {
		if lit.Len() > 0 {
			segs = append(segs, Segment{Kind: KindLiteral, Literal: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(template) {
		c := template[i]
		if c != '%' {
			lit.WriteByte(c)
			i++
			continue
		}
		// c == '%'
		if i+1 >= len(template) {
			lit.WriteByte(c)
			i++
			continue
		}
		j := i + 1
		if template[j] == '%' {
			lit.WriteByte('%')
			i = j + 1
			continue
		}

		width := 0
		digitsStart := j
		for j < len(template) && isDigit(template[j]) {
			j++
		}
		if j > digitsStart {
			width, _ = strconv.Atoi(template[digitsStart:j])
		}
		if j >= len(template) {
			lit.WriteByte('%')
			i++
			continue
		}

		if template[j] == '{' {
			end := strings.IndexByte(template[j:], '}')
			if end < 0 {
				// unterminated; pass through literally per spec.md.
				lit.WriteByte('%')
				i++
				continue
			}
			body := template[j+1 : j+end]
			name, arg, _ := strings.Cut(body, ":")
			kind, ok := nameToKind[name]
			if !ok {
				// unknown %{...}; pass through literally.
				lit.WriteString(template[i : j+end+1])
				i = j + end + 1
				continue
			}
			flushLit()
			segs = append(segs, Segment{Kind: kind, FixedWidth: width, Arg: arg})
			i = j + end + 1
			continue
		}

		kind, ok := letterToKind[template[j]]
		if !ok {
			lit.WriteByte('%')
			i++
			continue
		}
		flushLit()
		segs = append(segs, Segment{Kind: kind, FixedWidth: width})
		i = j + 1
	}
	flushLit()
	return segs
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// BuildFormat assembles a format template from the classic pv boolean
// toggles, used whenever no explicit template string was given — at
// startup from the CLI flags, or on a remote overlay that only sent
// toggles. Order matches pv's own default segment order.
func BuildFormat(explicit string, progress, timer, eta, fineta, rate, avgRate, bytes, bufPct, lastWritten bool) string {
	if explicit != "" {
		return explicit
	}
	var b strings.Builder
	add := func(on bool, code string) {
		if !on {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(code)
	}
	add(timer, "%t")
	add(bytes, "%b")
	add(bufPct, "%T")
	add(rate, "%r")
	add(avgRate, "%a")
	add(progress, "%p")
	add(eta, "%e")
	add(fineta, "%I")
	add(lastWritten, "%A")
	if b.Len() == 0 {
		return "%p %t %b %r %e"
	}
	return b.String()
}

var letterToKind = map[byte]Kind{
	'p': KindProgress,
	't': KindTimer,
	'e': KindETA,
	'I': KindFinETA,
	'r': KindRate,
	'a': KindAverageRate,
	'b': KindBytes,
	'T': KindBufferPercent,
	'A': KindLastWritten,
	'L': KindPreviousLine,
	'N': KindName,
}

var nameToKind = map[string]Kind{
	"progress":              KindProgress,
	"progress-bar-only":     KindProgressBarOnly,
	"progress-amount-only":  KindProgressAmountOnly,
	"bar-plain":             KindBarPlain,
	"bar-block":             KindBarBlock,
	"bar-granular":          KindBarGranular,
	"bar-shaded":            KindBarShaded,
	"timer":                 KindTimer,
	"eta":                   KindETA,
	"fineta":                KindFinETA,
	"rate":                  KindRate,
	"average-rate":          KindAverageRate,
	"bytes":                 KindBytes,
	"transferred":           KindBytes,
	"buffer-percent":        KindBufferPercent,
	"last-written":          KindLastWritten,
	"previous-line":         KindPreviousLine,
	"name":                  KindName,
	"sgr":                   KindSGR,
}

// DefaultTemplate matches pv's traditional default display.
const DefaultTemplate = "%N %t %b %r %p %e"
