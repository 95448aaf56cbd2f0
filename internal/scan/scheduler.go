package scan

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Result is the outcome of hashing one candidate. Err is non-nil (a
// *HashError) when the file could not be hashed; Digest is then empty.
type Result struct {
	Path   string
	Digest Digest
	Size   int64
	Err    error
}

// RunHashers hashes every path received from in with at most limit files in
// flight, and sends one Result per path to out in completion order.
//
// Admission is a sliding window: the next path is pulled from in only once a
// slot is free, so upstream producers are throttled by hashing throughput.
// A slot is held until the task's Result has been handed to out.
// A failed hash is delivered as a Result with Err set and does not affect
// other tasks. When ctx is cancelled no further paths are admitted and
// in-flight tasks are abandoned without emitting a Result.
//
// RunHashers returns immediately; out is closed once in is exhausted (or ctx
// is cancelled) and every admitted task has finished.
func RunHashers(ctx context.Context, limit int, h *Hasher, progress *Progress, in <-chan string, out chan<- Result) {
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(int64(limit))

	go func() {
		var wg sync.WaitGroup
		defer close(out)
		defer wg.Wait()

		for {
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}

			var (
				path string
				ok   bool
			)
			select {
			case path, ok = <-in:
			case <-ctx.Done():
			}
			if !ok {
				sem.Release(1)
				return
			}
			progress.FilesDiscovered.Add(1)

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)

				res, ok := hashOne(ctx, h, progress, path)
				if !ok {
					return
				}
				select {
				case out <- res:
				case <-ctx.Done():
				}
			}()
		}
	}()
}

// hashOne runs a single task. ok is false when the task was abandoned
// because ctx was cancelled.
func hashOne(ctx context.Context, h *Hasher, progress *Progress, path string) (Result, bool) {
	progress.InFlight.Add(1)
	defer progress.InFlight.Add(-1)

	digest, n, err := h.Hash(ctx, path)
	if ctx.Err() != nil {
		return Result{}, false
	}
	progress.BytesRead.Add(n)
	if err != nil {
		progress.FilesFailed.Add(1)
		return Result{Path: path, Err: err}, true
	}
	progress.FilesHashed.Add(1)
	return Result{Path: path, Digest: digest, Size: n}, true
}
