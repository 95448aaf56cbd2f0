package report

import (
	"context"
	"fmt"
	"io"

	"github.com/eargollo/redup/internal/scan"
)

// GroupDelimiter precedes every group in text output.
const GroupDelimiter = "-"

// Text writes groups as plain text: a heading (unless Quiet), then for each
// group a delimiter line followed by one path per line.
type Text struct {
	Out   io.Writer
	Path  string
	Quiet bool
}

func (t *Text) Write(_ context.Context, rep *scan.Report) error {
	err := writeTo(t.Path, t.Out, func(w io.Writer) error {
		if !t.Quiet {
			heading := "No Duplicates Found!"
			if len(rep.Groups) > 0 {
				heading = "DUPLICATES FOUND!"
			}
			if _, err := fmt.Fprintf(w, "\n%s\n", heading); err != nil {
				return err
			}
		}
		for _, g := range rep.Groups {
			if _, err := fmt.Fprintln(w, GroupDelimiter); err != nil {
				return err
			}
			for _, p := range g.Paths {
				if _, err := fmt.Fprintln(w, p); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return &SinkError{Format: "text", Path: t.Path, Err: err}
	}
	return nil
}
