package scan

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// dirQueue is an unbounded, concurrency-safe queue of directory paths.
// It tracks a pending counter so that walk() knows when all work is done.
//
// Termination protocol:
//   - Push increments pending BEFORE enqueuing (caller must own the increment).
//   - Done decrements pending AFTER all children of a directory have been
//     pushed. When pending reaches 0, Done closes the queue and broadcasts.
type dirQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []string
	head    int // index of the next item to pop; avoids O(n) re-slicing
	pending atomic.Int64
	closed  bool
}

func newDirQueue() *dirQueue {
	q := &dirQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues a directory. Must be called after incrementing pending.
func (q *dirQueue) Push(dir string) {
	q.mu.Lock()
	q.items = append(q.items, dir)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop blocks until an item is available or the queue is closed.
// Returns ("", false) when the queue is closed and empty.
func (q *dirQueue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.head >= len(q.items) && !q.closed {
		q.cond.Wait()
	}
	if q.closed || q.head >= len(q.items) {
		return "", false
	}
	item := q.items[q.head]
	q.items[q.head] = "" // release string reference so GC can collect it
	q.head++
	// Compact when we've consumed at least 1 000 items and head has passed
	// the midpoint; keeps the backing array from growing without bound.
	if q.head >= 1000 && q.head >= len(q.items)/2 {
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
	return item, true
}

// Done must be called once per directory after all its child-directories have
// been pushed. Decrements pending; if pending reaches 0, closes the queue.
func (q *dirQueue) Done() {
	if q.pending.Add(-1) == 0 {
		q.Close()
	}
}

// Close wakes every blocked Pop. Items still queued are abandoned.
func (q *dirQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Walk traverses roots concurrently using numWorkers goroutines and sends
// the path of every regular file it finds to out. Walk closes out when done.
// Paths listed in excludePaths are skipped, as are their subtrees.
// Symlinks to regular files are emitted; symlinks to directories are never
// followed. report is called for every entry that cannot be read.
func Walk(ctx context.Context, roots []string, excludePaths map[string]struct{}, numWorkers int, out chan<- string, report ErrorReporter) {
	defer close(out)
	walk(ctx, roots, excludePaths, numWorkers, func(path string) bool {
		select {
		case out <- path:
			return true
		case <-ctx.Done():
			return false
		}
	}, report)
}

// walk is Walk without channel ownership: emit is called for every file and
// returns false to stop the worker (cancellation).
func walk(ctx context.Context, roots []string, excludePaths map[string]struct{}, numWorkers int, emit func(string) bool, report ErrorReporter) {
	if len(roots) == 0 {
		return
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	if report == nil {
		report = discardErrors
	}

	q := newDirQueue()
	stop := context.AfterFunc(ctx, q.Close)
	defer stop()

	// Seed the queue with root directories.
	for _, root := range roots {
		q.pending.Add(1)
		q.Push(root)
	}

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			walkerWorker(ctx, q, excludePaths, emit, report)
		}()
	}
	wg.Wait()
}

// walkerWorker pops directories from q, reads their entries, enqueues
// sub-directories (incrementing pending first), emits files, then
// calls q.Done() to decrement pending.
func walkerWorker(ctx context.Context, q *dirQueue, excludePaths map[string]struct{}, emit func(string) bool, report ErrorReporter) {
	for {
		if ctx.Err() != nil {
			return
		}

		dir, ok := q.Pop()
		if !ok {
			return
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			report(dir, "walk", err)
			// ReadDir may return the entries it managed to read; keep them.
			if len(entries) == 0 {
				q.Done()
				continue
			}
		}

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())

			if _, excluded := excludePaths[path]; excluded {
				continue
			}

			if entry.IsDir() {
				// Increment BEFORE pushing so pending is never zero prematurely.
				q.pending.Add(1)
				q.Push(path)
				continue
			}

			if entry.Type()&fs.ModeSymlink != 0 {
				target, err := os.Stat(path)
				if err != nil {
					report(path, "walk", err)
					continue
				}
				if !target.Mode().IsRegular() {
					// Directory links are not followed: cycle avoidance.
					continue
				}
			} else if !entry.Type().IsRegular() {
				continue
			}

			if !emit(path) {
				q.Done()
				return
			}
		}

		q.Done()
	}
}

// checkRoot validates a directory-mode root before any work starts.
func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return &InputError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return &InputError{Path: root, Err: errors.New("not a directory")}
	}
	return nil
}
