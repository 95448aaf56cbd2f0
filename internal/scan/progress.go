package scan

import "sync/atomic"

// Progress holds live counters updated by the pipeline stages.
// All fields are atomic so they can be written from worker goroutines and
// read by a reporter without locks.
type Progress struct {
	FilesDiscovered atomic.Int64 // candidates emitted by the path source
	FilesHashed     atomic.Int64 // candidates hashed successfully
	FilesFailed     atomic.Int64 // candidates whose hash failed
	BytesRead       atomic.Int64
	WalkErrors      atomic.Int64 // unreadable directories / entries
	InFlight        atomic.Int64 // hashing tasks currently admitted
}

// ErrorReporter records a per-entry pipeline error. stage is "walk", "list"
// or "hash". Implementations must be safe for concurrent use.
type ErrorReporter func(path, stage string, err error)

// discardErrors is an ErrorReporter that drops every report.
func discardErrors(string, string, error) {}
