package chain

import (
	"golang.org/x/crypto/sha3"
)

// Keccak256 computes the legacy Keccak-256 digest used by the EVM.
// This is NOT standard SHA3-256; the contract side hashes with the
// pre-finalization padding, so the client must match it exactly.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// SelectorLen is the byte length of a function selector.
const SelectorLen = 4

// Selector is the leading 4 bytes of the Keccak-256 hash of a function
// signature, identifying the contract function a call targets.
type Selector [SelectorLen]byte

// SelectorFromSignature derives the selector for a Solidity-style
// signature string such as "transferOwnership(address)".
func SelectorFromSignature(sig string) Selector {
	var s Selector
	copy(s[:], Keccak256([]byte(sig)))
	return s
}

// Bytes returns the selector as a slice.
func (s Selector) Bytes() []byte {
	return s[:]
}

// String renders the selector as 0x-prefixed hex.
func (s Selector) String() string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 2, 2+SelectorLen*2)
	out[0], out[1] = '0', 'x'
	for _, b := range s {
		out = append(out, hexdigits[b>>4], hexdigits[b&0x0f])
	}
	return string(out)
}
