package binaryCoder

import (
	"errors"
	"fmt"

	"github.com/i5heu/ouroboros-registry/pkg/types"
)

// ErrMalformed is returned for bytes that are not an encoded Document.
var ErrMalformed = errors.New("binaryCoder: malformed document")

func ByteToDocument(bytes []byte) (types.Document, error) {
	fields, err := consumeDocument(bytes)
	if err != nil {
		return types.Document{}, fmt.Errorf("Error decoding Document: %w", err)
	}
	return fields.toDocument()
}

func DocumentToByte(doc types.Document) []byte {
	return appendDocument(nil, doc)
}

// AppendLengthDelimited appends doc as a length-prefixed record, the framing
// used for export streams.
func AppendLengthDelimited(b []byte, doc types.Document) []byte {
	return appendLengthDelimited(b, DocumentToByte(doc))
}

// ConsumeLengthDelimited decodes one length-prefixed record from b and
// returns the number of bytes read.
func ConsumeLengthDelimited(b []byte) (types.Document, int, error) {
	raw, n, err := consumeLengthDelimited(b)
	if err != nil {
		return types.Document{}, 0, err
	}
	doc, err := ByteToDocument(raw)
	if err != nil {
		return types.Document{}, 0, err
	}
	return doc, n, nil
}
