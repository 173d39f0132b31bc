// Package metatx builds, signs, verifies and serializes
// meta-transactions: off-chain-signed authorizations for contract
// operations, later broadcast by a separate gas-funded party.
package metatx

import (
	"math/big"

	"github.com/PracticalParticle/secureops/internal/chain"
	"github.com/PracticalParticle/secureops/internal/optype"
)

// Domain prefix for meta-transaction digests. Keeps a signed operation
// payload from ever colliding with an operation type id or any other
// hashed structure in the system.
const digestDomain = "secureops/metatx/v1"

// DigestLen is the byte length of a message digest.
const DigestLen = 32

// UnsignedPayload is the canonical, deterministic content a party signs.
//
// Two payloads with the same field values always produce the same
// digest, regardless of who builds them or in which process.
type UnsignedPayload struct {
	// ChainID pins the signature to one chain.
	ChainID uint64
	// Contract is the target contract.
	Contract chain.Address
	// Selector is the contract function this operation executes.
	Selector chain.Selector
	// TypeID identifies the operation type.
	TypeID optype.TypeID
	// OperationID is the on-chain operation id for multi-phase
	// operations, or the nonce for single-phase ones.
	OperationID uint64
	// Phase is the action this signature authorizes, META_APPROVE or
	// META_CANCEL. It is part of the digest: a broadcaster holding an
	// approval envelope cannot submit it as a cancellation, nor the
	// other way around.
	Phase optype.Phase
	// Params are the operation parameters, opaque to the codec beyond
	// being canonically encodable.
	Params Params
	// Value is the native token amount the call carries. Nil means zero.
	Value *big.Int
	// Deadline is the unix second after which the signature is void.
	Deadline int64
	// MaxGasPrice caps the gas price the broadcaster may execute under.
	// Zero (or nil) means no ceiling. This is a convention the contract
	// shares: zero must never be read as "reject always".
	MaxGasPrice *big.Int
	// Signer is the address whose signature authorizes the operation.
	Signer chain.Address
}

// Signed is a complete, verifiable meta-transaction envelope.
type Signed struct {
	Payload UnsignedPayload
	// Digest is the Keccak-256 message digest of Payload.
	Digest []byte
	// Signature is the ed25519 signature over Digest.
	Signature []byte
	// PublicKey is the signer's ed25519 verifying key. Embedded so any
	// third party can verify without a key directory.
	PublicKey []byte
}

// canonicalMap lays the payload out for canonical JSON encoding.
// Field names here are part of the signed format: changing one changes
// every digest.
func (p *UnsignedPayload) canonicalMap() map[string]any {
	params := map[string]any(p.Params)
	if params == nil {
		params = map[string]any{}
	}
	return map[string]any{
		"chain_id":       p.ChainID,
		"contract":       p.Contract.String(),
		"selector":       p.Selector.String(),
		"operation_type": p.TypeID.String(),
		"operation_id":   p.OperationID,
		"phase":          p.Phase.String(),
		"params":         params,
		"value":          bigOrZero(p.Value),
		"deadline":       p.Deadline,
		"max_gas_price":  bigOrZero(p.MaxGasPrice),
		"signer":         p.Signer.String(),
	}
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
