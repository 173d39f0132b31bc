package metatx

import (
	"fmt"
	"math/big"

	"github.com/PracticalParticle/secureops/internal/canonical"
	"github.com/PracticalParticle/secureops/internal/chain"
	"github.com/PracticalParticle/secureops/internal/optype"
)

// BuildSpec is the caller-facing input for constructing an unsigned
// payload.
type BuildSpec struct {
	ChainID     uint64
	Contract    chain.Address
	Definition  *optype.Definition
	OperationID uint64
	Phase       optype.Phase
	Params      map[string]any
	Value       *big.Int
	Deadline    int64
	MaxGasPrice *big.Int
	Signer      chain.Address
}

// BuildUnsigned constructs the canonical unsigned payload for an
// operation. Parameters are normalized here so the payload that gets
// signed, stored and later re-verified is a single stable shape.
func BuildUnsigned(spec BuildSpec) (UnsignedPayload, error) {
	var p UnsignedPayload
	if spec.Definition == nil {
		return p, fmt.Errorf("build unsigned payload: nil operation definition")
	}
	if spec.Contract.IsZero() {
		return p, fmt.Errorf("build unsigned payload: zero contract address")
	}
	if spec.Signer.IsZero() {
		return p, fmt.Errorf("build unsigned payload: zero signer address")
	}
	if spec.Deadline <= 0 {
		return p, fmt.Errorf("build unsigned payload: deadline must be set")
	}
	if spec.Phase != optype.PhaseMetaApprove && spec.Phase != optype.PhaseMetaCancel {
		return p, fmt.Errorf("build unsigned payload: %s is not a signable action", spec.Phase)
	}
	params, err := NormalizeParams(spec.Params)
	if err != nil {
		return p, fmt.Errorf("build unsigned payload: %w", err)
	}

	p = UnsignedPayload{
		ChainID:     spec.ChainID,
		Contract:    spec.Contract,
		Selector:    spec.Definition.Selector,
		TypeID:      spec.Definition.TypeID,
		OperationID: spec.OperationID,
		Phase:       spec.Phase,
		Params:      params,
		Value:       bigOrZero(spec.Value),
		Deadline:    spec.Deadline,
		MaxGasPrice: bigOrZero(spec.MaxGasPrice),
		Signer:      spec.Signer,
	}
	return p, nil
}

// Digest computes the Keccak-256 message digest of p over its
// domain-separated canonical encoding.
func Digest(p *UnsignedPayload) ([]byte, error) {
	encoded, err := canonical.Marshal(p.canonicalMap())
	if err != nil {
		return nil, fmt.Errorf("digest payload: %w", err)
	}
	return chain.Keccak256([]byte(digestDomain), []byte{0x00}, encoded), nil
}
