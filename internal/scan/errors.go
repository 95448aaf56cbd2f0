package scan

import "fmt"

// HashOp identifies the step of hashing that failed.
type HashOp string

const (
	OpOpen HashOp = "open"
	OpRead HashOp = "read"
)

// HashError is a per-file failure. It is recoverable: the scan records it and
// carries on with the remaining files.
type HashError struct {
	Op   HashOp
	Path string
	Err  error
}

func (e *HashError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *HashError) Unwrap() error { return e.Err }

// InputError reports an unusable scan input (missing root, root that is not a
// directory, no input at all). It is returned before any hashing begins.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid input: %v", e.Err)
	}
	return fmt.Sprintf("invalid input %q: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }
