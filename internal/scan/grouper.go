package scan

import "context"

// Group is a set of files sharing one digest. ID is assigned at finalization.
type Group struct {
	ID     int64
	Digest Digest
	Paths  []string
}

// Grouper accumulates Results into groups keyed by digest.
// It is not safe for concurrent use: a single goroutine drains results into
// it (see GroupResults).
type Grouper struct {
	groups map[Digest][]string
	order  []Digest // digests in first-seen order
	failed int64
	hashed int64
}

// NewGrouper returns an empty Grouper.
func NewGrouper() *Grouper {
	return &Grouper{groups: make(map[Digest][]string)}
}

// Add records one result. Failures are only counted.
func (g *Grouper) Add(r Result) {
	if r.Err != nil {
		g.failed++
		return
	}
	g.hashed++
	paths, ok := g.groups[r.Digest]
	if !ok {
		g.order = append(g.order, r.Digest)
	}
	g.groups[r.Digest] = append(paths, r.Path)
}

// Failed returns the number of failed results seen.
func (g *Grouper) Failed() int64 { return g.failed }

// Hashed returns the number of successful results seen.
func (g *Grouper) Hashed() int64 { return g.hashed }

// Finalize returns every group with at least two members. IDs start at 1 and
// follow the order in which each digest was first seen; members keep their
// arrival order.
func (g *Grouper) Finalize() []Group {
	var out []Group
	for _, d := range g.order {
		paths := g.groups[d]
		if len(paths) < 2 {
			continue
		}
		out = append(out, Group{
			ID:     int64(len(out) + 1),
			Digest: d,
			Paths:  append([]string(nil), paths...),
		})
	}
	return out
}

// GroupResults drains in into a new Grouper on the calling goroutine,
// passing each failure to report. It returns when in is closed or ctx is
// cancelled.
func GroupResults(ctx context.Context, in <-chan Result, report ErrorReporter) *Grouper {
	if report == nil {
		report = discardErrors
	}
	g := NewGrouper()
	for {
		select {
		case <-ctx.Done():
			return g
		case r, ok := <-in:
			if !ok {
				return g
			}
			if r.Err != nil {
				report(r.Path, "hash", r.Err)
			}
			g.Add(r)
		}
	}
}
