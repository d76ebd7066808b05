package watch

import "testing"

type fakeSource struct {
	fds  map[int][]int
	info map[string]FDInfo
	pos  map[string]int64
}

func key(pid, fd int) string { return itoa(pid) + ":" + itoa(fd) }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (f *fakeSource) ListPidFDs(pid int) ([]int, error) { return f.fds[pid], nil }
func (f *fakeSource) DescribeFD(pid, fd int) (FDInfo, error) {
	return f.info[key(pid, fd)], nil
}
func (f *fakeSource) ReadFDPosition(pid, fd int) (int64, bool) {
	p, ok := f.pos[key(pid, fd)]
	return p, ok
}

func TestDiscoverAcceptsOnlyRegularOrBlock(t *testing.T) {
	src := &fakeSource{
		fds: map[int][]int{100: {3, 4}},
		info: map[string]FDInfo{
			key(100, 3): {IsRegularOrBlock: true, Size: 1024, Path: "/tmp/out"},
			key(100, 4): {IsRegularOrBlock: false, Path: "socket:[1]"},
		},
		pos: map[string]int64{key(100, 3): 512},
	}
	l := NewLoop(src, []Target{{PID: 100, FD: -1}}, 0, "%b", 80, 24)
	seen := make(map[string]bool)
	l.discover(100, 3, seen)
	l.discover(100, 4, seen)
	if len(l.entries) != 1 {
		t.Fatalf("expected exactly 1 tracked entry, got %d", len(l.entries))
	}
	if _, ok := l.entries[key(100, 3)]; !ok {
		t.Errorf("expected fd 3 to be tracked")
	}
}

func TestFormatPrefixedWithName(t *testing.T) {
	l := NewLoop(&fakeSource{}, nil, 0, "%b %r", 80, 24)
	if l.Format != "%N %b %r" {
		t.Errorf("Format = %q, want %%N prefix added", l.Format)
	}
	l2 := NewLoop(&fakeSource{}, nil, 0, "%N %b", 80, 24)
	if l2.Format != "%N %b" {
		t.Errorf("Format = %q, should not double-prefix %%N", l2.Format)
	}
}
