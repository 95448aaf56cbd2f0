package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

// TestDirQueueNeverLosesItems pushes 5 000 items, pops all, and verifies the
// exact set is returned (compaction must not drop entries).
func TestDirQueueNeverLosesItems(t *testing.T) {
	const n = 5000
	q := newDirQueue()

	for i := 0; i < n; i++ {
		q.pending.Add(1)
		q.Push(fmt.Sprintf("dir%04d", i))
	}

	var got []string
	for {
		item, ok := q.Pop()
		if !ok {
			break
		}
		got = append(got, item)
		q.Done()
	}

	if len(got) != n {
		t.Fatalf("got %d items, want %d", len(got), n)
	}
	sort.Strings(got)
	for i, v := range got {
		if want := fmt.Sprintf("dir%04d", i); v != want {
			t.Errorf("item %d: got %q, want %q", i, v, want)
		}
	}
}

// TestDirQueueCloseWakesPop verifies a blocked Pop returns once the queue is
// closed, even though pending work remains.
func TestDirQueueCloseWakesPop(t *testing.T) {
	q := newDirQueue()
	q.pending.Add(1) // outstanding work that will never be pushed

	done := make(chan bool)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Pop returned an item from an empty closed queue")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Pop did not return after Close")
	}
}

// TestWalkFindsAllFiles creates a tree of 15 files across 3 subdirs and
// verifies Walk returns all of them exactly once.
func TestWalkFindsAllFiles(t *testing.T) {
	root := t.TempDir()
	want := map[string]struct{}{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 5; j++ {
			name := filepath.Join(fmt.Sprintf("sub%d", i), fmt.Sprintf("file%d.txt", j))
			writeFiles(t, root, map[string]string{name: "hello"})
			want[filepath.Join(root, name)] = struct{}{}
		}
	}

	out := make(chan string, 100)
	Walk(context.Background(), []string{root}, nil, 4, out, noErrors(t))

	got := map[string]int{}
	for p := range out {
		got[p]++
	}
	for p := range want {
		if got[p] != 1 {
			t.Errorf("file %q emitted %d times, want 1", p, got[p])
		}
	}
	if len(got) != len(want) {
		t.Errorf("found %d files, want %d", len(got), len(want))
	}
}

// TestWalkExcludesPaths verifies that a file listed in excludePaths is not
// returned, while a sibling file is still found.
func TestWalkExcludesPaths(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"keep.txt": "a", "skip.txt": "b", "skipdir/inner.txt": "c"})
	keep := filepath.Join(root, "keep.txt")

	excludes := map[string]struct{}{
		filepath.Join(root, "skip.txt"): {},
		filepath.Join(root, "skipdir"):  {},
	}
	out := make(chan string, 10)
	Walk(context.Background(), []string{root}, excludes, 2, out, noErrors(t))

	var got []string
	for p := range out {
		got = append(got, p)
	}
	if len(got) != 1 || got[0] != keep {
		t.Errorf("Walk returned %v, want only %q", got, keep)
	}
}

// TestWalkSymlinks verifies file links are emitted while directory links are
// not followed.
func TestWalkSymlinks(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"real/a.txt": "a"})
	fileLink := filepath.Join(root, "link.txt")
	if err := os.Symlink(filepath.Join(root, "real", "a.txt"), fileLink); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	// A loop back to root must not be traversed.
	if err := os.Symlink(root, filepath.Join(root, "real", "loop")); err != nil {
		t.Fatal(err)
	}

	out := make(chan string, 10)
	Walk(context.Background(), []string{root}, nil, 2, out, noErrors(t))

	got := map[string]bool{}
	for p := range out {
		got[p] = true
	}
	if !got[fileLink] {
		t.Errorf("symlinked file %q not emitted", fileLink)
	}
	if len(got) != 2 {
		t.Errorf("got %d paths %v, want 2", len(got), got)
	}
}

// TestWalkContinuesPastUnreadableDir verifies a permission error on one
// directory is reported once and siblings are still walked.
func TestWalkContinuesPastUnreadableDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"locked/x.txt": "x", "open/y.txt": "y"})
	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	var log errorLog
	out := make(chan string, 10)
	Walk(context.Background(), []string{root}, nil, 2, out, log.report)

	var got []string
	for p := range out {
		got = append(got, p)
	}
	if len(got) != 1 || filepath.Base(got[0]) != "y.txt" {
		t.Errorf("got %v, want only y.txt", got)
	}
	if log.len() != 1 {
		t.Errorf("reported %d errors, want 1", log.len())
	}
}

// TestWalkCancellation verifies Walk returns cleanly after ctx is cancelled.
func TestWalkCancellation(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 200; i++ {
		_ = os.WriteFile(filepath.Join(root, fmt.Sprintf("f%d.txt", i)), []byte("data"), 0o644)
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan string) // unbuffered: walkers block on sends

	done := make(chan struct{})
	go func() {
		Walk(ctx, []string{root}, nil, 2, out, noErrors(t))
		close(done)
	}()

	<-out
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Walk did not return after context cancel")
	}
}
