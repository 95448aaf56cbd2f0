package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
)

// noErrors is an ErrorReporter that fails the test if invoked.
func noErrors(tb testing.TB) ErrorReporter {
	return func(path, stage string, err error) {
		tb.Errorf("unexpected scan error: path=%q stage=%q err=%v", path, stage, err)
	}
}

// errorLog is an ErrorReporter that records every report.
type errorLog struct {
	mu     sync.Mutex
	events []string
}

func (l *errorLog) report(path, stage string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, stage+":"+path)
}

func (l *errorLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// writeFiles creates each name (relative to root, parents created) with the
// given content.
func writeFiles(tb testing.TB, root string, files map[string]string) {
	tb.Helper()
	for name, content := range files {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			tb.Fatalf("mkdir %q: %v", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			tb.Fatalf("write %q: %v", p, err)
		}
	}
}

// createSyntheticTree builds a flat-ish directory tree with numFiles files.
// Every 10th file shares identical content (1 KB), creating a ~10% duplicate
// rate. Returns numFiles.
func createSyntheticTree(tb testing.TB, root string, numFiles int) int {
	tb.Helper()
	for i := 0; i < numFiles; i++ {
		subdir := filepath.Join(root, fmt.Sprintf("dir%03d", i/50))
		if err := os.MkdirAll(subdir, 0o755); err != nil {
			tb.Fatalf("mkdir %q: %v", subdir, err)
		}
		p := filepath.Join(subdir, fmt.Sprintf("file%04d.bin", i))
		content := fmt.Sprintf("%-1024d", i%10)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			tb.Fatalf("write %q: %v", p, err)
		}
	}
	return numFiles
}

// mustHasher returns a Hasher for algorithm or fails the test.
func mustHasher(tb testing.TB, algorithm string) *Hasher {
	tb.Helper()
	h, err := NewHasher(algorithm)
	if err != nil {
		tb.Fatalf("NewHasher(%q): %v", algorithm, err)
	}
	return h
}

// openCounter wraps a Hasher's open function and tracks how many files are
// open at once.
type openCounter struct {
	open atomic.Int64
	peak atomic.Int64
	hook func() // optional, runs while the file is held open
}

func (c *openCounter) install(h *Hasher) {
	inner := h.open
	h.open = func(name string) (fs.File, error) {
		f, err := inner(name)
		if err != nil {
			return nil, err
		}
		n := c.open.Add(1)
		for {
			p := c.peak.Load()
			if n <= p || c.peak.CompareAndSwap(p, n) {
				break
			}
		}
		if c.hook != nil {
			c.hook()
		}
		return &countedFile{File: f, c: c}, nil
	}
}

type countedFile struct {
	fs.File
	c    *openCounter
	once sync.Once
}

func (f *countedFile) Close() error {
	f.once.Do(func() { f.c.open.Add(-1) })
	return f.File.Close()
}

// feed returns a closed channel holding paths.
func feed(paths ...string) <-chan string {
	ch := make(chan string, len(paths))
	for _, p := range paths {
		ch <- p
	}
	close(ch)
	return ch
}

// collect drains results into a slice.
func collect(ch <-chan Result) []Result {
	var out []Result
	for r := range ch {
		out = append(out, r)
	}
	return out
}

// groupSets renders groups as sorted, comma-joined path sets for comparison
// independent of arrival order.
func groupSets(groups []Group) []string {
	var out []string
	for _, g := range groups {
		paths := append([]string(nil), g.Paths...)
		sort.Strings(paths)
		s := ""
		for i, p := range paths {
			if i > 0 {
				s += ","
			}
			s += filepath.Base(p)
		}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// runScan runs a scan over root with cfg and fails the test on error.
func runScan(tb testing.TB, cfg Config, in Input) *Report {
	tb.Helper()
	s, err := New(cfg)
	if err != nil {
		tb.Fatalf("New: %v", err)
	}
	rep, err := s.Run(context.Background(), in, nil)
	if err != nil {
		tb.Fatalf("Run: %v", err)
	}
	return rep
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
