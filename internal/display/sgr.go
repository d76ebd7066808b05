package display

import "strings"

// sgrCodes maps the named attributes spec.md §4.2 lists for "%{sgr:...}"
// to their ECMA-48 SGR parameter numbers.
var sgrCodes = map[string]int{
	"reset": 0, "bold": 1, "dim": 2, "italic": 3, "underline": 4, "blink": 5, "reverse": 7,
	"no-bold": 22, "no-italic": 23, "no-underline": 24, "no-blink": 25, "no-reverse": 27,
	"black": 30, "red": 31, "green": 32, "brown": 33, "yellow": 33, "blue": 34,
	"magenta": 35, "cyan": 36, "white": 37,
	"fg-black": 30, "fg-red": 31, "fg-green": 32, "fg-yellow": 33, "fg-blue": 34,
	"fg-magenta": 35, "fg-cyan": 36, "fg-white": 37, "fg-default": 39,
	"bg-black": 40, "bg-red": 41, "bg-green": 42, "bg-yellow": 43, "bg-blue": 44,
	"bg-magenta": 45, "bg-cyan": 46, "bg-white": 47, "bg-default": 49,
}

// ParseSGR turns a comma/semicolon separated keyword list (plus bare
// integers) into the raw SGR parameter sequence, e.g. "bold,fg-red" ->
// "\x1b[1;31m".
func ParseSGR(arg string) string {
	fields := strings.FieldsFunc(arg, func(r rune) bool { return r == ',' || r == ';' })
	var params []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if code, ok := sgrCodes[f]; ok {
			params = append(params, itoa(code))
			continue
		}
		if isAllDigits(f) {
			params = append(params, f)
		}
	}
	if len(params) == 0 {
		return ""
	}
	return "\x1b[" + strings.Join(params, ";") + "m"
}

// SGRReset is the sequence appended when color is still "active" at
// end-of-line, per spec.md §4.2.
const SGRReset = "\x1b[0m"

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// ColorCapable probes whether the terminal is known to support SGR
// color, following spec.md §4.2's "detected once through terminfo or via
// a fallback probe of `tput colors`" rule. Only the TERM-name allowlist
// fallback is implemented; there is no terminfo lookup and no `tput`
// probe anywhere in the module.
func ColorCapable(term string) bool {
	if term == "" || term == "dumb" {
		return false
	}
	for _, known := range []string{"xterm", "screen", "tmux", "vt100", "rxvt", "linux", "ansi", "cygwin"} {
		if strings.HasPrefix(term, known) {
			return true
		}
	}
	return strings.Contains(term, "color")
}
