package types

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	IdentitySize = 20
	TitleSize    = 32
	HashSize     = 32
)

var (
	ErrInvalidIdentity = errors.New("types: invalid identity")
	ErrInvalidHash     = errors.New("types: invalid content hash")
	ErrTitleTooLong    = errors.New("types: title exceeds 32 bytes")
)

// Identity is the account that issued a call, for example the administrator
// or the author of a document.
type Identity [IdentitySize]byte

func (i Identity) String() string {
	return "0x" + hex.EncodeToString(i[:])
}

func (i Identity) Bytes() []byte {
	return i[:]
}

func (i Identity) IsZero() bool {
	return i == Identity{}
}

func (i *Identity) IdentityFromBytes(b []byte) error {
	if len(b) != IdentitySize {
		return fmt.Errorf("%w: byte length %d", ErrInvalidIdentity, len(b))
	}
	copy(i[:], b)
	return nil
}

func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// ParseIdentity accepts 40 hex digits with or without a 0x prefix.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	raw, err := decodeHex(s, IdentitySize)
	if err != nil {
		return id, fmt.Errorf("%w: %q", ErrInvalidIdentity, s)
	}
	copy(id[:], raw)
	return id, nil
}

// NewRandomIdentity is used for the registry's own system identity when none
// is configured.
func NewRandomIdentity() (Identity, error) {
	var id Identity
	if _, err := rand.Read(id[:]); err != nil {
		return id, fmt.Errorf("generate identity: %w", err)
	}
	return id, nil
}

// Title is a fixed-size name token. Shorter names are right-padded with zero
// bytes, the same way a bytes32 literal is.
type Title [TitleSize]byte

func TitleFromString(s string) (Title, error) {
	var t Title
	if len(s) > TitleSize {
		return t, fmt.Errorf("%w: %d bytes", ErrTitleTooLong, len(s))
	}
	copy(t[:], s)
	return t, nil
}

// MustTitle panics if s does not fit into a Title. Meant for tests and constants.
func MustTitle(s string) Title {
	t, err := TitleFromString(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTitle accepts a 0x-prefixed 64 digit hex token or plain text.
func ParseTitle(s string) (Title, error) {
	if strings.HasPrefix(s, "0x") && len(s) == 2+2*TitleSize {
		if raw, err := hex.DecodeString(s[2:]); err == nil {
			var t Title
			copy(t[:], raw)
			return t, nil
		}
	}
	return TitleFromString(s)
}

func (t Title) String() string {
	return string(bytes.TrimRight(t[:], "\x00"))
}

func (t Title) Hex() string {
	return "0x" + hex.EncodeToString(t[:])
}

func (t Title) Bytes() []byte {
	return t[:]
}

func (t Title) IsZero() bool {
	return t == Title{}
}

func (t *Title) TitleFromBytes(b []byte) error {
	if len(b) != TitleSize {
		return fmt.Errorf("invalid byte length for Title: %d", len(b))
	}
	copy(t[:], b)
	return nil
}

// Hash is the digest of a document's content.
type Hash [HashSize]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h *Hash) HashFromBytes(b []byte) error {
	if len(b) != HashSize {
		return fmt.Errorf("%w: byte length %d", ErrInvalidHash, len(b))
	}
	copy(h[:], b)
	return nil
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash accepts 64 hex digits with or without a 0x prefix.
func ParseHash(s string) (Hash, error) {
	var h Hash
	raw, err := decodeHex(s, HashSize)
	if err != nil {
		return h, fmt.Errorf("%w: %q", ErrInvalidHash, s)
	}
	copy(h[:], raw)
	return h, nil
}

func decodeHex(s string, size int) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != 2*size {
		return nil, fmt.Errorf("expected %d hex digits, got %d", 2*size, len(s))
	}
	return hex.DecodeString(s)
}
