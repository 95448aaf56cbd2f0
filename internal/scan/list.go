package scan

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// maxListLine bounds a single path line read from a list input.
const maxListLine = 64 * 1024

// ReadPaths sends each non-empty line of r to out as a candidate path and
// closes out when r is exhausted, fails, or ctx is cancelled.
//
// Lines are not checked for existence; a missing file fails later when it is
// hashed. A line naming a directory is expanded by walking it with
// numWorkers walkers. A file is emitted at most once, compared by its
// canonical form (see canonicalPath); the first spelling seen is the one
// emitted.
func ReadPaths(ctx context.Context, r io.Reader, excludePaths map[string]struct{}, numWorkers int, out chan<- string, report ErrorReporter) error {
	defer close(out)
	if report == nil {
		report = discardErrors
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
	)
	emit := func(path string) bool {
		key := canonicalPath(path)
		mu.Lock()
		_, dup := seen[key]
		if !dup {
			seen[key] = struct{}{}
		}
		mu.Unlock()
		if dup {
			return true
		}
		select {
		case out <- path:
			return true
		case <-ctx.Done():
			return false
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxListLine)
	for sc.Scan() {
		path := strings.TrimSpace(sc.Text())
		if path == "" {
			continue
		}

		if info, err := os.Stat(path); err == nil && info.IsDir() {
			walk(ctx, []string{path}, excludePaths, numWorkers, emit, report)
		} else if !emit(path) {
			return ctx.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		report("", "list", err)
		return err
	}
	return nil
}

// canonicalPath returns the absolute, symlink-free form of path, used to
// recognise the same file listed under different spellings. Paths that do
// not resolve fall back to their absolute cleaned form.
func canonicalPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
