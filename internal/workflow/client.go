package workflow

import (
	"context"

	"github.com/PracticalParticle/secureops/internal/chain"
	"github.com/PracticalParticle/secureops/internal/optype"
)

// ContractClient is the chain surface the workflow manager consumes.
//
// Submission args across this boundary are the canonical JSON encoding
// of the call parameters (or a serialized signed envelope for the
// meta-transaction entry points); the transport implementation adapts
// them to the wire format of the node it talks to.
type ContractClient interface {
	chain.Client

	// ReadOperation returns the record for an operation id. A record
	// with StatusUndefined means the contract knows no such operation.
	ReadOperation(ctx context.Context, contract chain.Address, operationID uint64) (optype.OperationRecord, error)

	// ListOperations returns all operation records for a contract.
	ListOperations(ctx context.Context, contract chain.Address) ([]optype.OperationRecord, error)
}
