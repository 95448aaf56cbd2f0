package scan

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestGrouperFinalizeOrdersByFirstSeen(t *testing.T) {
	g := NewGrouper()
	for _, r := range []Result{
		{Path: "/solo", Digest: "00"},
		{Path: "/b1", Digest: "bb"},
		{Path: "/a1", Digest: "aa"},
		{Path: "/a2", Digest: "aa"},
		{Path: "/bad", Err: errors.New("boom")},
		{Path: "/b2", Digest: "bb"},
		{Path: "/a3", Digest: "aa"},
	} {
		g.Add(r)
	}

	got := g.Finalize()
	want := []Group{
		{ID: 1, Digest: "bb", Paths: []string{"/b1", "/b2"}},
		{ID: 2, Digest: "aa", Paths: []string{"/a1", "/a2", "/a3"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Finalize() = %+v, want %+v", got, want)
	}
	if g.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", g.Failed())
	}
	if g.Hashed() != 6 {
		t.Errorf("Hashed() = %d, want 6", g.Hashed())
	}
}

func TestGrouperNoDuplicates(t *testing.T) {
	g := NewGrouper()
	g.Add(Result{Path: "/x", Digest: "1"})
	g.Add(Result{Path: "/y", Digest: "2"})
	if groups := g.Finalize(); len(groups) != 0 {
		t.Errorf("got %d groups, want 0", len(groups))
	}
}

func TestGroupResultsReportsFailuresOnce(t *testing.T) {
	in := make(chan Result, 3)
	in <- Result{Path: "/a", Digest: "1"}
	in <- Result{Path: "/bad", Err: &HashError{Op: OpRead, Path: "/bad", Err: errors.New("eio")}}
	in <- Result{Path: "/b", Digest: "1"}
	close(in)

	var log errorLog
	g := GroupResults(context.Background(), in, log.report)

	if log.len() != 1 || log.events[0] != "hash:/bad" {
		t.Errorf("reported %v, want [hash:/bad]", log.events)
	}
	if groups := g.Finalize(); len(groups) != 1 || len(groups[0].Paths) != 2 {
		t.Errorf("groups = %+v, want one group of 2", groups)
	}
}
