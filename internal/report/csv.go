package report

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/eargollo/redup/internal/scan"
)

// CSV writes one row per group member: hash, file_path, group_id.
type CSV struct {
	Out  io.Writer
	Path string
}

func (c *CSV) Write(_ context.Context, rep *scan.Report) error {
	err := writeTo(c.Path, c.Out, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"hash", "file_path", "group_id"}); err != nil {
			return err
		}
		for _, g := range rep.Groups {
			id := strconv.FormatInt(g.ID, 10)
			for _, p := range g.Paths {
				if err := cw.Write([]string{string(g.Digest), p, id}); err != nil {
					return err
				}
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return &SinkError{Format: "csv", Path: c.Path, Err: err}
	}
	return nil
}
