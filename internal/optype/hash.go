package optype

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/PracticalParticle/secureops/internal/chain"
)

// Domain prefix for operation type identity. The version suffix enables
// future algorithm migration without colliding with v1 ids.
const typeIDDomain = "secureops/optype/v1"

// TypeIDLen is the byte length of an operation type id.
const TypeIDLen = 32

// TypeID is the stable content-addressed identifier of an operation
// type: Keccak-256 over the domain prefix, a NUL separator, and the
// operation name. Stable across processes and releases for a given name.
type TypeID [TypeIDLen]byte

// ComputeTypeID derives the TypeID for an operation name.
// The NUL separator prevents domain/name boundary ambiguity.
func ComputeTypeID(name string) TypeID {
	var id TypeID
	copy(id[:], chain.Keccak256([]byte(typeIDDomain), []byte{0x00}, []byte(name)))
	return id
}

// ParseTypeID parses a 0x-prefixed or bare hex type id.
func ParseTypeID(s string) (TypeID, error) {
	var id TypeID
	h := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(h) != TypeIDLen*2 {
		return id, fmt.Errorf("parse type id %q: want %d hex chars, got %d", s, TypeIDLen*2, len(h))
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return id, fmt.Errorf("parse type id %q: %w", s, err)
	}
	copy(id[:], b)
	return id, nil
}

// String renders the type id as 0x-prefixed lowercase hex.
func (id TypeID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}
