package binaryCoder

import (
	"fmt"
	"time"

	"github.com/i5heu/ouroboros-registry/pkg/types"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the Document message. Unknown fields are skipped on
// decode, so new fields can be added without breaking old readers.
const (
	fieldLocator     protowire.Number = 1
	fieldTitle       protowire.Number = 2
	fieldCreatedAt   protowire.Number = 3 // unix seconds, zigzag
	fieldAuthor      protowire.Number = 4
	fieldContentHash protowire.Number = 5
	fieldID          protowire.Number = 6
)

type documentFields struct {
	locator     string
	title       []byte
	createdAt   int64
	author      []byte
	contentHash []byte
	id          uint64
}

func appendDocument(b []byte, doc types.Document) []byte {
	b = protowire.AppendTag(b, fieldLocator, protowire.BytesType)
	b = protowire.AppendString(b, doc.Locator)
	b = protowire.AppendTag(b, fieldTitle, protowire.BytesType)
	b = protowire.AppendBytes(b, doc.Title.Bytes())
	b = protowire.AppendTag(b, fieldCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(doc.CreatedAt.Unix()))
	b = protowire.AppendTag(b, fieldAuthor, protowire.BytesType)
	b = protowire.AppendBytes(b, doc.Author.Bytes())
	b = protowire.AppendTag(b, fieldContentHash, protowire.BytesType)
	b = protowire.AppendBytes(b, doc.ContentHash.Bytes())
	b = protowire.AppendTag(b, fieldID, protowire.VarintType)
	b = protowire.AppendVarint(b, doc.ID)
	return b
}

func consumeDocument(b []byte) (documentFields, error) {
	var f documentFields
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return f, fmt.Errorf("%w: tag: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldLocator && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return f, fieldError(num, n)
			}
			f.locator = v
			b = b[n:]
		case (num == fieldTitle || num == fieldAuthor || num == fieldContentHash) && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return f, fieldError(num, n)
			}
			v = append([]byte(nil), v...)
			switch num {
			case fieldTitle:
				f.title = v
			case fieldAuthor:
				f.author = v
			default:
				f.contentHash = v
			}
			b = b[n:]
		case (num == fieldCreatedAt || num == fieldID) && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return f, fieldError(num, n)
			}
			if num == fieldCreatedAt {
				f.createdAt = protowire.DecodeZigZag(v)
			} else {
				f.id = v
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return f, fieldError(num, n)
			}
			b = b[n:]
		}
	}
	return f, nil
}

func fieldError(num protowire.Number, n int) error {
	return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
}

func (f documentFields) toDocument() (types.Document, error) {
	doc := types.Document{
		Locator:   f.locator,
		CreatedAt: time.Unix(f.createdAt, 0).UTC(),
		ID:        f.id,
	}
	if err := doc.Title.TitleFromBytes(f.title); err != nil {
		return types.Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := doc.Author.IdentityFromBytes(f.author); err != nil {
		return types.Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := doc.ContentHash.HashFromBytes(f.contentHash); err != nil {
		return types.Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return doc, nil
}

func appendLengthDelimited(b, payload []byte) []byte {
	return protowire.AppendBytes(b, payload)
}

func consumeLengthDelimited(b []byte) ([]byte, int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("%w: frame: %v", ErrMalformed, protowire.ParseError(n))
	}
	return v, n, nil
}
