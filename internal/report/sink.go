// Package report renders a finished scan. Sinks are the only place that
// knows about output formats; the scan pipeline hands them a *scan.Report.
package report

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/eargollo/redup/internal/config"
	"github.com/eargollo/redup/internal/scan"
)

// DefaultDBPath is used by the SQLite sink when no output path is given.
const DefaultDBPath = "redup.db"

// ErrOutputExists is returned when the output path is already taken.
var ErrOutputExists = errors.New("output already exists")

// Sink consumes a finished report.
type Sink interface {
	Write(ctx context.Context, rep *scan.Report) error
}

// SinkError reports a failure to produce output. The report itself is intact
// and can be handed to another sink.
type SinkError struct {
	Format string
	Path   string
	Err    error
}

func (e *SinkError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("write %s output: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("write %s output %q: %v", e.Format, e.Path, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// New returns the sink for format. output is the destination file; when it is
// empty, text and CSV go to stdout and SQLite goes to DefaultDBPath.
// quiet suppresses the text heading.
func New(format, output string, stdout io.Writer, quiet bool) (Sink, error) {
	f, err := config.NormalizeFormat(format)
	if err != nil {
		return nil, err
	}
	if output, err = Destination(f, output); err != nil {
		return nil, err
	}
	switch f {
	case config.FormatCSV:
		return &CSV{Out: stdout, Path: output}, nil
	case config.FormatSQL:
		return &SQLite{Path: output}, nil
	default:
		return &Text{Out: stdout, Path: output, Quiet: quiet}, nil
	}
}

// Destination returns the file the sink for format will create, or "" when
// it writes to stdout.
func Destination(format, output string) (string, error) {
	f, err := config.NormalizeFormat(format)
	if err != nil {
		return "", err
	}
	if f == config.FormatSQL && output == "" {
		return DefaultDBPath, nil
	}
	return output, nil
}

// CheckOutput fails with ErrOutputExists if path is already present. An empty
// path always passes.
func CheckOutput(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrOutputExists, path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return nil
}

// writeTo runs fn against a buffered writer on path (created exclusively) or
// on stdout when path is empty.
func writeTo(path string, stdout io.Writer, fn func(w io.Writer) error) (err error) {
	if path == "" {
		bw := bufio.NewWriter(stdout)
		if err := fn(bw); err != nil {
			return err
		}
		return bw.Flush()
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		return err
	}
	return bw.Flush()
}
