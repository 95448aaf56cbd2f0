package scan

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
)

// Verify confirms each group byte by byte. Members are partitioned into
// classes of identical content (compared against the first member of each
// class); classes with fewer than two members are dropped. Files that can no
// longer be read are passed to report and left out. Surviving groups are
// renumbered from 1 in their original order.
func Verify(ctx context.Context, groups []Group, report ErrorReporter) ([]Group, error) {
	if report == nil {
		report = discardErrors
	}

	var out []Group
	for _, g := range groups {
		var classes [][]string
		for _, p := range g.Paths {
			var err error
			if classes, err = place(ctx, classes, p, report); err != nil {
				return nil, err
			}
		}

		for _, class := range classes {
			if len(class) < 2 {
				continue
			}
			out = append(out, Group{ID: int64(len(out) + 1), Digest: g.Digest, Paths: class})
		}
	}
	return out, nil
}

// place adds p to the first class whose representative has the same bytes,
// or starts a new class. A representative that can no longer be read is
// dropped and the next member of its class takes over.
func place(ctx context.Context, classes [][]string, p string, report ErrorReporter) ([][]string, error) {
	for i := 0; i < len(classes); i++ {
		rep := classes[i][0]
		same, err := sameContent(ctx, rep, p)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			var he *HashError
			if errors.As(err, &he) && he.Path == rep {
				report(rep, "verify", err)
				if classes[i] = classes[i][1:]; len(classes[i]) == 0 {
					classes = append(classes[:i], classes[i+1:]...)
				}
				i--
				continue
			}
			report(p, "verify", err)
			return classes, nil
		}
		if same {
			classes[i] = append(classes[i], p)
			return classes, nil
		}
	}
	return append(classes, []string{p}), nil
}

// sameContent streams both files in ChunkSize pieces and reports whether
// their bytes are identical.
func sameContent(ctx context.Context, a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, &HashError{Op: OpOpen, Path: a, Err: err}
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, &HashError{Op: OpOpen, Path: b, Err: err}
	}
	defer fb.Close()

	bufA := make([]byte, ChunkSize)
	bufB := make([]byte, ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if errA != nil && !isShortRead(errA) {
			return false, &HashError{Op: OpRead, Path: a, Err: errA}
		}
		if errB != nil && !isShortRead(errB) {
			return false, &HashError{Op: OpRead, Path: b, Err: errB}
		}
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		if errA != nil || errB != nil {
			// Both ended at the same offset with equal bytes.
			return isShortRead(errA) && isShortRead(errB), nil
		}
	}
}

func isShortRead(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
