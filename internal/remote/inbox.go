package remote

import (
	"os"
	"path/filepath"
	"sort"
)

// Inbox locates control files addressed to one receiving pid. xid
// suffixes sort lexically by creation time, so the earliest-created
// pending file (oldest command) is always first after a sort.
type Inbox struct {
	PID int
}

// Pending lists control file paths addressed to the inbox's pid, oldest
// first, skipping the ".tmp" staging names writeFile uses mid-publish.
func (b Inbox) Pending() []string {
	matches, _ := filepath.Glob(filepath.Join(Dir, controlFilePattern(b.PID)))
	out := matches[:0]
	for _, m := range matches {
		if filepath.Ext(m) != ".tmp" {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

// Take reads and removes the oldest pending control file, if any.
func (b Inbox) Take() (path string, rec Record, ok bool) {
	pending := b.Pending()
	if len(pending) == 0 {
		return "", Record{}, false
	}
	path = pending[0]
	rec, err := readFile(path)
	if err != nil {
		_ = os.Remove(path)
		return "", Record{}, false
	}
	return path, rec, true
}
