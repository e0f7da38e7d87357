// Package digest computes content hashes of documents before they are
// registered.
package digest

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/i5heu/ouroboros-registry/pkg/types"
	workerpool "github.com/i5heu/ouroboros-registry/pkg/workerPool"
	boxochunker "github.com/ipfs/boxo/chunker"
	"github.com/zeebo/blake3"
)

// ChunkSize is the read size of the splitter feeding the hasher.
const ChunkSize = 256 * 1024

type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

var ErrUnknownAlgorithm = errors.New("digest: unknown algorithm")

func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(s)) {
	case SHA256, "":
		return SHA256, nil
	case BLAKE3:
		return BLAKE3, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case SHA256, "":
		return sha256.New(), nil
	case BLAKE3:
		return blake3.New(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
}

// Reader hashes everything read from r.
func Reader(r io.Reader, algo Algorithm) (types.Hash, error) {
	h, err := algo.newHash()
	if err != nil {
		return types.Hash{}, err
	}

	splitter := boxochunker.NewSizeSplitter(r, ChunkSize)
	for {
		chunk, err := splitter.NextBytes()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return types.Hash{}, fmt.Errorf("digest: read chunk: %w", err)
		}
		h.Write(chunk)
	}

	var sum types.Hash
	if err := sum.HashFromBytes(h.Sum(nil)); err != nil {
		return types.Hash{}, err
	}
	return sum, nil
}

func File(path string, algo Algorithm) (types.Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Hash{}, fmt.Errorf("digest: %w", err)
	}
	defer f.Close()
	return Reader(f, algo)
}

func Bytes(data []byte, algo Algorithm) (types.Hash, error) {
	return Reader(bytes.NewReader(data), algo)
}

// FileResult is the outcome of hashing one file with Files.
type FileResult struct {
	Path string
	Hash types.Hash
	Err  error
}

// Files hashes paths concurrently on wp and returns the results in the
// order of paths.
func Files(wp *workerpool.WorkerPool, paths []string, algo Algorithm) ([]FileResult, error) {
	type indexed struct {
		index  int
		result FileResult
	}

	room := workerpool.NewRoom[indexed](wp, len(paths))
	for i, path := range paths {
		i, path := i, path
		err := room.NewTaskWaitForFreeSlot(func() indexed {
			h, err := File(path, algo)
			return indexed{index: i, result: FileResult{Path: path, Hash: h, Err: err}}
		})
		if err != nil {
			room.Collect()
			return nil, fmt.Errorf("digest: %w", err)
		}
	}

	results := make([]FileResult, len(paths))
	for _, r := range room.Collect() {
		results[r.index] = r.result
	}
	return results, nil
}
