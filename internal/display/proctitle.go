package display

import (
	"os"
	"unsafe"
)

// SetProcessTitle best-effort overwrites the argv[0] memory region so
// tools like `ps` show the given title, preserving the environment
// block that follows argv in the process's initial memory layout, per
// spec.md §6: "best-effort overwrite of argv[0] region preserving
// environment." This only works because os.Args[0] still points into
// that original backing array on platforms where Go hasn't copied it.
// A title longer than argv[0] is truncated to argv[0]'s length, and an
// empty argv[0] leaves the title unchanged — pv's own process-title
// feature is explicitly best-effort in the original.
func SetProcessTitle(title string) {
	if len(os.Args) == 0 || len(os.Args[0]) == 0 {
		return
	}
	avail := totalArgvBytes()
	if avail <= 0 {
		return
	}
	if len(title) > avail {
		title = title[:avail]
	}
	dst := unsafe.Slice(unsafe.StringData(os.Args[0]), avail)
	n := copy(dst, title)
	for ; n < avail; n++ {
		dst[n] = 0
	}
}

// totalArgvBytes reports how many bytes are available to overwrite
// starting at argv[0] without corrupting argv[1..]. This conservative
// estimate uses only argv[0]'s own length; extending
// into subsequent argv slots is not attempted since Go does not expose
// their backing addresses contiguously in a portable way.
func totalArgvBytes() int {
	if len(os.Args) == 0 {
		return 0
	}
	return len(os.Args[0])
}
