package scan

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
)

// ChunkSize is the read size used for streaming a file into its digest.
// Only one chunk per in-flight file is ever held in memory.
const ChunkSize = 8 * 1024

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = "xxh3"

// Digest is the lowercase hex encoding of a file's content hash.
type Digest string

// algorithms maps a configurable name to its hash constructor.
var algorithms = map[string]func() hash.Hash{
	"xxh3":   func() hash.Hash { return xxh3.New() },
	"sha256": sha256.New,
	"sha1":   sha1.New,
}

// Algorithms returns the supported algorithm names, sorted.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hasher computes content digests by streaming files in ChunkSize reads.
// It is safe for concurrent use; each call allocates its own state.
type Hasher struct {
	algorithm string
	newHash   func() hash.Hash
	open      func(name string) (fs.File, error)
}

// NewHasher returns a Hasher for the named algorithm ("xxh3", "sha256",
// "sha1"). An empty name selects DefaultAlgorithm.
func NewHasher(algorithm string) (*Hasher, error) {
	name := strings.ToLower(algorithm)
	if name == "" {
		name = DefaultAlgorithm
	}
	fn, ok := algorithms[name]
	if !ok {
		return nil, fmt.Errorf("unsupported hash algorithm %q (want one of %s)",
			algorithm, strings.Join(Algorithms(), ", "))
	}
	return &Hasher{
		algorithm: name,
		newHash:   fn,
		open:      func(name string) (fs.File, error) { return os.Open(name) },
	}, nil
}

// Algorithm returns the name of the hash function in use.
func (h *Hasher) Algorithm() string { return h.algorithm }

// Hash streams the file at path into a fresh digest and returns it together
// with the number of bytes read. Failures are returned as *HashError, except
// cancellation which returns ctx.Err() unwrapped. The file is closed on every
// return path.
func (h *Hasher) Hash(ctx context.Context, path string) (Digest, int64, error) {
	f, err := h.open(path)
	if err != nil {
		return "", 0, &HashError{Op: OpOpen, Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, &HashError{Op: OpOpen, Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", 0, &HashError{Op: OpOpen, Path: path, Err: fmt.Errorf("not a regular file (%s)", info.Mode().Type())}
	}

	sum := h.newHash()
	buf := make([]byte, ChunkSize)
	var total int64
	for {
		// Yield point: a cancelled scan abandons the file between chunks.
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}

		n, err := f.Read(buf)
		if n > 0 {
			sum.Write(buf[:n])
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", 0, &HashError{Op: OpRead, Path: path, Err: err}
		}
	}

	return Digest(hex.EncodeToString(sum.Sum(nil))), total, nil
}
