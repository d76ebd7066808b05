package control

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/AD-iOS/pv/internal/sig"
)

// Run opens each configured input in turn and drives the control loop
// over it, implementing spec.md §4.3's outer iteration ("iterate over
// the ordered list of input paths, opening each lazily"). It also
// implements the store-and-forward two-pass mode when configured.
func Run(s *Settings, flags *sig.Flags, progName string) error {
	if s.StoreAndForward != "" {
		return runStoreAndForward(s, flags, progName)
	}
	return runDirect(s, flags, progName)
}

func runDirect(s *Settings, flags *sig.Flags, progName string) error {
	out, outIsPipe, err := openOutput(s.Output, s.DirectIO)
	if err != nil {
		return fmt.Errorf("%s: %w", progName, err)
	}
	defer out.Close()

	loop := NewLoop(s, flags, progName, out, outIsPipe)

	inputs := s.Inputs
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	for _, name := range inputs {
		if flags.TriggerExit() {
			break
		}
		in, displayName, err := openInput(name, s.DirectIO)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s: %v\n", progName, name, err)
			continue
		}
		err = loop.RunOne(in, displayName)
		if in != os.Stdin {
			in.Close()
		}
		if err != nil {
			return err
		}
	}

	if s.Stats {
		fmt.Fprintln(os.Stderr, loop.Stats())
	}
	return nil
}

// runStoreAndForward implements spec.md §4.3's two-pass mode: first copy
// every input into a staging file (so size/ETA need not be known ahead
// of time), then replay the staging file into the real destination with
// an accurate, now-known size.
func runStoreAndForward(s *Settings, flags *sig.Flags, progName string) error {
	storePath := s.StoreAndForward
	var tmp *os.File
	var err error
	cleanup := func() {}

	if storePath == "-" {
		dir := tmpDir()
		tmp, err = os.CreateTemp(dir, "pv-store-*")
		if err != nil {
			return fmt.Errorf("%s: store-and-forward: %w", progName, err)
		}
		storePath = tmp.Name()
		cleanup = func() { os.Remove(storePath) }
	} else {
		tmp, err = os.Create(storePath)
		if err != nil {
			return fmt.Errorf("%s: store-and-forward: %w", progName, err)
		}
	}
	defer cleanup()

	pass1 := *s
	pass1.Output = storePath
	pass1.Name = "(storing)"
	if err := runDirect(&pass1, flags, progName); err != nil {
		tmp.Close()
		return err
	}
	tmp.Close()

	fi, err := os.Stat(storePath)
	if err != nil {
		return fmt.Errorf("%s: store-and-forward: %w", progName, err)
	}

	pass2 := *s
	pass2.Inputs = []string{storePath}
	pass2.Size = fi.Size()
	return runDirect(&pass2, flags, progName)
}

func tmpDir() string {
	for _, v := range []string{os.Getenv("TMPDIR"), os.Getenv("TMP"), "/tmp"} {
		if v != "" {
			return v
		}
	}
	return "/tmp"
}

func openInput(name string, directIO bool) (*os.File, string, error) {
	if name == "-" || name == "" {
		return os.Stdin, "stdin", nil
	}
	if directIO {
		if f, err := openDirect(name, os.O_RDONLY, 0); err == nil {
			return f, filepath.Base(name), nil
		}
		// O_DIRECT rejected by this filesystem; fall back silently, per
		// spec.md §4.1's treatment of unsupported transfer alignment.
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, "", err
	}
	return f, filepath.Base(name), nil
}

func openOutput(path string, directIO bool) (*os.File, bool, error) {
	if path == "" {
		return os.Stdout, isPipe(os.Stdout), nil
	}
	if directIO {
		if f, err := openDirect(path, os.O_CREATE|os.O_WRONLY, 0o666); err == nil {
			return f, isPipe(f), nil
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		return nil, false, err
	}
	return f, isPipe(f), nil
}

// openDirect opens path with O_DIRECT added to flag, wrapping the raw fd
// in an *os.File. Many filesystems (tmpfs, most network filesystems)
// reject O_DIRECT outright; callers treat any error here as "fall back
// to buffered I/O" rather than a hard failure, per spec.md §4.1.
func openDirect(path string, flag int, perm uint32) (*os.File, error) {
	fd, err := unix.Open(path, flag|unix.O_DIRECT, perm)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

func isPipe(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeNamedPipe != 0 || fi.Mode()&os.ModeSocket != 0
}
