package chain

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLen is the byte length of an account or contract address.
const AddressLen = 20

// Address identifies an account or contract on the chain.
// The zero value is the null address, which never satisfies any role.
type Address [AddressLen]byte

// ZeroAddress is the null address.
var ZeroAddress Address

// ParseAddress parses a 0x-prefixed or bare hex address.
// Parsing is case-insensitive; the canonical rendering is lowercase.
func ParseAddress(s string) (Address, error) {
	var a Address
	h := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(h) != AddressLen*2 {
		return a, fmt.Errorf("parse address %q: want %d hex chars, got %d", s, AddressLen*2, len(h))
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return a, fmt.Errorf("parse address %q: %w", s, err)
	}
	copy(a[:], b)
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error.
// Use only in tests or with compile-time-known constants.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromPubKey derives the address for an ed25519 public key:
// the last 20 bytes of Keccak-256 over the raw key.
func AddressFromPubKey(pub ed25519.PublicKey) Address {
	var a Address
	sum := Keccak256(pub)
	copy(a[:], sum[len(sum)-AddressLen:])
	return a
}

// IsZero reports whether a is the null address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String renders the address as 0x-prefixed lowercase hex.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
