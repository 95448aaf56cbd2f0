package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestVerifySplitsCollidingGroup(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a1": "alpha", "a2": "alpha", "b1": "bravo", "c1": "charlie",
	})
	p := func(name string) string { return filepath.Join(dir, name) }

	// Pretend all four collided on one digest.
	in := []Group{{ID: 1, Digest: "ff", Paths: []string{p("a1"), p("b1"), p("a2"), p("c1")}}}

	got, err := Verify(context.Background(), in, noErrors(t))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d groups, want 1: %+v", len(got), got)
	}
	if got[0].ID != 1 || len(got[0].Paths) != 2 || got[0].Paths[0] != p("a1") || got[0].Paths[1] != p("a2") {
		t.Errorf("group = %+v, want [a1 a2]", got[0])
	}
}

func TestVerifyDropsVanishedRepresentative(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"x": "same", "y": "same", "z": "same"})
	p := func(name string) string { return filepath.Join(dir, name) }
	if err := os.Remove(p("x")); err != nil {
		t.Fatal(err)
	}

	var log errorLog
	got, err := Verify(context.Background(), []Group{{ID: 7, Digest: "aa", Paths: []string{p("x"), p("y"), p("z")}}}, log.report)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(got) != 1 || len(got[0].Paths) != 2 || got[0].ID != 1 {
		t.Errorf("got %+v, want one group [y z] with ID 1", got)
	}
	if log.len() != 1 {
		t.Errorf("reported %d errors, want 1", log.len())
	}
}

func TestSameContentDifferentLengths(t *testing.T) {
	dir := t.TempDir()
	long := make([]byte, ChunkSize+1)
	short := make([]byte, ChunkSize)
	if err := os.WriteFile(filepath.Join(dir, "long"), long, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "short"), short, 0o644); err != nil {
		t.Fatal(err)
	}

	same, err := sameContent(context.Background(), filepath.Join(dir, "long"), filepath.Join(dir, "short"))
	if err != nil {
		t.Fatalf("sameContent: %v", err)
	}
	if same {
		t.Error("files of different length compared equal")
	}
}
