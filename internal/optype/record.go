package optype

import (
	"math/big"

	"github.com/PracticalParticle/secureops/internal/chain"
)

// ExecutionType records which authorization path finalized an operation.
type ExecutionType int

const (
	// ExecNone means the operation has not been finalized.
	ExecNone ExecutionType = iota
	// ExecStandard means the direct, timelocked path.
	ExecStandard
	// ExecMeta means a broadcast signed meta-transaction.
	ExecMeta
)

func (e ExecutionType) String() string {
	switch e {
	case ExecNone:
		return "NONE"
	case ExecStandard:
		return "STANDARD"
	case ExecMeta:
		return "META"
	default:
		return "UNKNOWN"
	}
}

// OperationRecord is the contract-owned record of one operation
// instance. The engine only reads and projects it; status changes
// happen exclusively through on-chain confirmation.
type OperationRecord struct {
	OperationID uint64
	TypeID      TypeID
	Requester   chain.Address
	Target      chain.Address
	Value       *big.Int
	// ReleaseTime is the unix second at which direct approval unlocks.
	ReleaseTime int64
	Status      Status
	// Params are the operation parameters, opaque by type.
	Params map[string]any
	// ExecutionType is set once the record reaches a terminal state.
	ExecutionType ExecutionType
}
