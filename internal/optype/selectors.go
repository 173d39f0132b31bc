package optype

import (
	"github.com/PracticalParticle/secureops/internal/chain"
)

// Selectors of the contract's generic workflow entry points. Every
// operation type flows through these; the type-specific selector inside
// the payload tells the contract what to execute on approval.
var (
	// SelTxRequest opens a multi-phase operation and starts its timelock.
	SelTxRequest = chain.SelectorFromSignature("txRequest(bytes32,bytes)")

	// SelTxDelayedApproval approves directly after the timelock.
	SelTxDelayedApproval = chain.SelectorFromSignature("txDelayedApproval(uint256)")

	// SelTxCancellation cancels a pending operation.
	SelTxCancellation = chain.SelectorFromSignature("txCancellation(uint256)")

	// SelTxApprovalWithMetaTx approves via a broadcast signed envelope.
	SelTxApprovalWithMetaTx = chain.SelectorFromSignature("txApprovalWithMetaTx(bytes)")

	// SelTxCancellationWithMetaTx cancels via a broadcast signed envelope.
	SelTxCancellationWithMetaTx = chain.SelectorFromSignature("txCancellationWithMetaTx(bytes)")

	// SelRequestAndApproveWithMetaTx is the single-phase shortcut:
	// request and approval in one broadcast envelope.
	SelRequestAndApproveWithMetaTx = chain.SelectorFromSignature("requestAndApproveWithMetaTx(bytes)")
)
