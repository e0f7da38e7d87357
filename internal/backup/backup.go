// Package backup writes and reads compressed snapshots of all registered
// documents.
package backup

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/i5heu/ouroboros-registry/internal/binaryCoder"
	"github.com/i5heu/ouroboros-registry/pkg/types"
	"github.com/ulikunitz/xz"
)

var magic = []byte("OUREG1\n")

// ErrBadMagic is returned when a stream is not a registry export.
var ErrBadMagic = errors.New("backup: not a registry export")

// Source is anything that can list documents in id order, usually a
// *registry.Registry.
type Source interface {
	Each(fn func(types.Document) error) error
}

// Export writes every document of src as an xz compressed stream and returns
// the number of documents written.
func Export(ctx context.Context, w io.Writer, src Source) (int, error) {
	xw, err := xz.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("backup: xz writer: %w", err)
	}

	bw := bufio.NewWriter(xw)
	if _, err := bw.Write(magic); err != nil {
		return 0, fmt.Errorf("backup: write header: %w", err)
	}

	count := 0
	var frame []byte
	err = src.Each(func(doc types.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame = binaryCoder.AppendLengthDelimited(frame[:0], doc)
		if _, err := bw.Write(frame); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("backup: export: %w", err)
	}

	if err := bw.Flush(); err != nil {
		return count, fmt.Errorf("backup: flush: %w", err)
	}
	if err := xw.Close(); err != nil {
		return count, fmt.Errorf("backup: close xz stream: %w", err)
	}
	return count, nil
}

// ReadExport decodes a stream written by Export.
func ReadExport(r io.Reader) ([]types.Document, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMagic, err)
	}
	data, err := io.ReadAll(xr)
	if err != nil {
		return nil, fmt.Errorf("backup: decompress: %w", err)
	}
	if !bytes.HasPrefix(data, magic) {
		return nil, ErrBadMagic
	}
	data = data[len(magic):]

	var docs []types.Document
	for len(data) > 0 {
		doc, n, err := binaryCoder.ConsumeLengthDelimited(data)
		if err != nil {
			return docs, fmt.Errorf("backup: record %d: %w", len(docs)+1, err)
		}
		docs = append(docs, doc)
		data = data[n:]
	}
	return docs, nil
}
