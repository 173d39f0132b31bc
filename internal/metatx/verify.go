package metatx

import (
	"crypto/ed25519"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/PracticalParticle/secureops/internal/chain"
	"github.com/PracticalParticle/secureops/internal/optype"
)

var (
	// ErrDigestMismatch indicates the embedded digest does not match
	// the digest re-derived from the embedded payload.
	ErrDigestMismatch = errors.New("digest does not match payload")

	// ErrInvalidSignature indicates the signature does not verify
	// against the digest and public key.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrSignerMismatch indicates the public key does not belong to the
	// declared signer address.
	ErrSignerMismatch = errors.New("public key does not match signer address")

	// ErrSignatureExpired indicates the payload deadline has elapsed.
	ErrSignatureExpired = errors.New("signature deadline elapsed")

	// ErrGasPriceExceeded indicates current network gas price is above
	// the payload's ceiling.
	ErrGasPriceExceeded = errors.New("gas price above signed ceiling")

	// ErrInvalidPhase indicates a payload whose phase is not one of the
	// signable actions (META_APPROVE, META_CANCEL).
	ErrInvalidPhase = errors.New("phase is not a signable action")
)

// Verify checks a signed envelope end to end: authorized action, digest
// integrity, signer binding, signature validity, deadline, and gas
// ceiling.
//
// now is the verification instant. gasPrice is the current network gas
// price; pass nil to skip the ceiling check (e.g. when verifying a
// freshly produced envelope before persisting, where network conditions
// at broadcast time are not yet relevant).
//
// The deadline must be strictly in the future at verification time.
// A payload with MaxGasPrice of zero has no ceiling; this convention is
// shared with the contract and must not be read as "reject always".
func Verify(s *Signed, now time.Time, gasPrice *big.Int) error {
	if s == nil {
		return fmt.Errorf("verify: nil envelope")
	}
	if s.Payload.Phase != optype.PhaseMetaApprove && s.Payload.Phase != optype.PhaseMetaCancel {
		return ErrInvalidPhase
	}

	expected, err := Digest(&s.Payload)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if len(s.Digest) != DigestLen || subtle.ConstantTimeCompare(expected, s.Digest) != 1 {
		return ErrDigestMismatch
	}

	if len(s.PublicKey) != ed25519.PublicKeySize {
		return ErrSignerMismatch
	}
	if chain.AddressFromPubKey(s.PublicKey) != s.Payload.Signer {
		return ErrSignerMismatch
	}

	if len(s.Signature) != ed25519.SignatureSize {
		return ErrInvalidSignature
	}
	if !ed25519.Verify(ed25519.PublicKey(s.PublicKey), s.Digest, s.Signature) {
		return ErrInvalidSignature
	}

	// Fail closed on expiry: a deadline exactly at "now" is already void.
	if now.Unix() >= s.Payload.Deadline {
		return ErrSignatureExpired
	}

	if gasPrice != nil && s.Payload.MaxGasPrice != nil && s.Payload.MaxGasPrice.Sign() > 0 {
		if gasPrice.Cmp(s.Payload.MaxGasPrice) > 0 {
			return ErrGasPriceExceeded
		}
	}

	return nil
}
