package types

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestTitle_Bytes(t *testing.T) {
	title := MustTitle("EventTitle")
	expectedBytes := append([]byte("EventTitle"), make([]byte, TitleSize-len("EventTitle"))...)

	if !bytes.Equal(title.Bytes(), expectedBytes) {
		t.Errorf("Expected %v but got %v", expectedBytes, title.Bytes())
	}
}

func TestTitle_String(t *testing.T) {
	title := MustTitle("whitepaper")
	if title.String() != "whitepaper" {
		t.Errorf("Expected whitepaper but got %q", title.String())
	}
}

func TestTitleFromString_TooLong(t *testing.T) {
	_, err := TitleFromString(strings.Repeat("a", TitleSize+1))
	if !errors.Is(err, ErrTitleTooLong) {
		t.Errorf("Expected ErrTitleTooLong but got %v", err)
	}

	full, err := TitleFromString(strings.Repeat("a", TitleSize))
	if err != nil {
		t.Fatalf("Expected no error for %d bytes, got %v", TitleSize, err)
	}
	if full.String() != strings.Repeat("a", TitleSize) {
		t.Errorf("Unexpected title %q", full.String())
	}
}

func TestParseTitle_Hex(t *testing.T) {
	title := MustTitle("report")
	parsed, err := ParseTitle(title.Hex())
	if err != nil {
		t.Fatalf("ParseTitle failed: %v", err)
	}
	if parsed != title {
		t.Errorf("Expected %s but got %s", title.Hex(), parsed.Hex())
	}

	plain, err := ParseTitle("0xnot-hex")
	if err != nil {
		t.Fatalf("ParseTitle failed: %v", err)
	}
	if plain.String() != "0xnot-hex" {
		t.Errorf("Expected plain text title, got %q", plain.String())
	}
}

func TestHash_HashFromBytes(t *testing.T) {
	var h Hash
	if err := h.HashFromBytes(make([]byte, 31)); !errors.Is(err, ErrInvalidHash) {
		t.Errorf("Expected ErrInvalidHash but got %v", err)
	}

	raw := bytes.Repeat([]byte{0xab}, HashSize)
	if err := h.HashFromBytes(raw); err != nil {
		t.Fatalf("HashFromBytes failed: %v", err)
	}
	if !bytes.Equal(h.Bytes(), raw) {
		t.Errorf("Expected %x but got %x", raw, h.Bytes())
	}
}

func TestIdentity_IdentityFromBytes(t *testing.T) {
	var id Identity
	if err := id.IdentityFromBytes([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidIdentity) {
		t.Errorf("Expected ErrInvalidIdentity but got %v", err)
	}
}
