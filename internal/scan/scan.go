package scan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

// Config holds pipeline tuning parameters.
type Config struct {
	Walkers      int    // directory walker goroutines
	Workers      int    // maximum files hashed concurrently
	Algorithm    string // see Algorithms
	Verify       bool   // confirm groups byte by byte
	ExcludePaths []string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Walkers:   4,
		Workers:   runtime.NumCPU(),
		Algorithm: DefaultAlgorithm,
	}
}

// Input selects the candidate source. Exactly one field must be set.
type Input struct {
	Root string    // directory mode
	List io.Reader // list mode: one path per line
}

// Summary holds the aggregate counts of a finished scan.
type Summary struct {
	FilesScanned   int64 // files hashed successfully
	FilesFailed    int64
	GroupsFound    int64
	DuplicateFiles int64 // files that belong to a group
	BytesRead      int64
	WalkErrors     int64
	Duration       time.Duration
}

// Report is the finished output of a scan, handed to a result sink.
type Report struct {
	Algorithm string
	Groups    []Group
	Summary   Summary
}

// Scanner orchestrates the duplicate-detection pipeline.
type Scanner struct {
	cfg    Config
	hasher *Hasher
}

// New creates a Scanner. It fails only on an unknown hash algorithm.
func New(cfg Config) (*Scanner, error) {
	def := DefaultConfig()
	if cfg.Walkers < 1 {
		cfg.Walkers = def.Walkers
	}
	if cfg.Workers < 1 {
		cfg.Workers = def.Workers
	}
	h, err := NewHasher(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	return &Scanner{cfg: cfg, hasher: h}, nil
}

// Run executes the pipeline for in and blocks until every candidate has been
// hashed and grouped. An unusable input yields *InputError before any file is
// opened. A cancelled ctx returns ctx.Err() and no report. progress may be
// nil.
func (s *Scanner) Run(ctx context.Context, in Input, progress *Progress) (*Report, error) {
	if progress == nil {
		progress = &Progress{}
	}
	switch {
	case in.Root != "" && in.List != nil:
		return nil, &InputError{Err: errors.New("both a root directory and a path list were given")}
	case in.Root == "" && in.List == nil:
		return nil, &InputError{Err: errors.New("no root directory or path list given")}
	case in.Root != "":
		if err := checkRoot(in.Root); err != nil {
			return nil, err
		}
	}

	startedAt := time.Now()
	slog.Info("scan started", "root", in.Root, "list", in.List != nil,
		"workers", s.cfg.Workers, "hash", s.hasher.Algorithm())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	report := s.reporter(progress)
	excludes := make(map[string]struct{}, len(s.cfg.ExcludePaths))
	for _, p := range s.cfg.ExcludePaths {
		excludes[p] = struct{}{}
	}

	candidates := make(chan string)
	results := make(chan Result, s.cfg.Workers)

	if in.Root != "" {
		go Walk(ctx, []string{in.Root}, excludes, s.cfg.Walkers, candidates, report)
	} else {
		go func() {
			if err := ReadPaths(ctx, in.List, excludes, s.cfg.Walkers, candidates, report); err != nil && ctx.Err() == nil {
				slog.Warn("path list read stopped early", "error", err)
			}
		}()
	}
	RunHashers(ctx, s.cfg.Workers, s.hasher, progress, candidates, results)

	grouper := GroupResults(ctx, results, report)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	groups := grouper.Finalize()
	if s.cfg.Verify {
		before := len(groups)
		var err error
		if groups, err = Verify(ctx, groups, report); err != nil {
			return nil, err
		}
		slog.Debug("groups verified", "before", before, "after", len(groups))
	}

	sum := Summary{
		FilesScanned: grouper.Hashed(),
		FilesFailed:  grouper.Failed(),
		GroupsFound:  int64(len(groups)),
		BytesRead:    progress.BytesRead.Load(),
		WalkErrors:   progress.WalkErrors.Load(),
		Duration:     time.Since(startedAt),
	}
	for _, g := range groups {
		sum.DuplicateFiles += int64(len(g.Paths))
	}

	if sum.WalkErrors > 0 {
		slog.Debug("entries skipped during discovery", "count", sum.WalkErrors)
	}
	slog.Info("scan finished",
		"files_scanned", sum.FilesScanned,
		"files_failed", sum.FilesFailed,
		"groups", sum.GroupsFound,
		"duplicate_files", sum.DuplicateFiles,
		"bytes_read", humanize.Bytes(uint64(sum.BytesRead)),
		"duration", sum.Duration.Round(time.Millisecond))

	return &Report{Algorithm: s.hasher.Algorithm(), Groups: groups, Summary: sum}, nil
}

// reporter returns the ErrorReporter used by every stage: it counts discovery
// errors and forwards each event as a debug log line, so per-file diagnostics
// only show up at verbose level.
func (s *Scanner) reporter(progress *Progress) ErrorReporter {
	return func(path, stage string, err error) {
		if stage == "walk" || stage == "list" {
			progress.WalkErrors.Add(1)
		}
		slog.Debug("skipped", "stage", stage, "path", path, "error", err)
	}
}
