package workflow

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/PracticalParticle/secureops/internal/chain"
	"github.com/PracticalParticle/secureops/internal/metatx"
	"github.com/PracticalParticle/secureops/internal/optype"
	"github.com/PracticalParticle/secureops/internal/pending"
	"github.com/PracticalParticle/secureops/internal/roles"
)

// ExecuteMetaTransaction submits a signed approval or cancellation for
// a pending multi-phase operation. The caller pays gas and must hold
// the broadcaster role; the signer's authority travels inside the
// envelope.
//
// The envelope is fully verified locally before anything is submitted,
// so an expired or tampered signature costs no gas.
func (m *Manager) ExecuteMetaTransaction(ctx context.Context, signed *metatx.Signed, phase optype.Phase, caller chain.Address) (optype.OperationRecord, error) {
	var zero optype.OperationRecord

	if signed == nil {
		return zero, &Error{Code: ErrCodeVerifyFailed, Message: "nil signed envelope"}
	}

	// The action travels inside the digest. The caller's phase argument
	// only selects which envelope it meant to submit; the envelope
	// itself decides the entry point.
	if signed.Payload.Phase != phase {
		return zero, &Error{
			Code:        ErrCodeVerifyFailed,
			Message:     fmt.Sprintf("envelope authorizes %s, not %s", signed.Payload.Phase, phase),
			OperationID: signed.Payload.OperationID,
		}
	}

	var sel chain.Selector
	switch signed.Payload.Phase {
	case optype.PhaseMetaApprove:
		sel = optype.SelTxApprovalWithMetaTx
	case optype.PhaseMetaCancel:
		sel = optype.SelTxCancellationWithMetaTx
	default:
		return zero, &Error{
			Code:    ErrCodeWrongWorkflowKind,
			Message: fmt.Sprintf("phase %s cannot be executed from a signed envelope", signed.Payload.Phase),
		}
	}

	def, _, err := m.checkEnvelope(ctx, signed, signed.Payload.Phase, caller)
	if err != nil {
		return zero, err
	}

	contract := signed.Payload.Contract
	operationID := signed.Payload.OperationID

	key := operationDedupKey(contract, def, operationID)
	if !m.inflight.tryAcquire(key) {
		return zero, &Error{
			Code:        ErrCodeAlreadyPending,
			Message:     "a transition for this operation is already in flight",
			Operation:   def.Name,
			OperationID: operationID,
		}
	}
	defer m.inflight.release(key)

	rec, err := m.readRecord(ctx, contract, def, operationID)
	if err != nil {
		return zero, err
	}
	if rec.Status != optype.StatusPending {
		return zero, &Error{
			Code:        ErrCodeNotPending,
			Message:     fmt.Sprintf("operation is %s", rec.Status),
			Operation:   def.Name,
			OperationID: operationID,
		}
	}

	if err := m.verifyLive(ctx, signed, def); err != nil {
		return zero, err
	}

	args, err := metatx.Encode(signed)
	if err != nil {
		return zero, &Error{Code: ErrCodeVerifyFailed, Message: "encode signed envelope", Operation: def.Name, Err: err}
	}

	// Flag the local entry before submitting. If confirmation times out
	// the envelope may still land, and an entry marked broadcast keeps
	// SyncPending in charge of its fate instead of a fresh signature.
	if err := m.store.MarkBroadcast(ctx, pendingKey(contract, operationID)); err != nil && !errors.Is(err, pending.ErrNotFound) {
		return zero, m.wrapStoreErr(err, "mark entry broadcast")
	}

	if _, err := m.submitAndWait(ctx, contract, sel, args, caller); err != nil {
		return zero, err
	}

	rec, err = m.readRecord(ctx, contract, def, operationID)
	if err != nil {
		return zero, err
	}
	m.afterTerminal(ctx, contract, def, rec)

	m.logger.Info("meta-transaction executed",
		"operation", def.Name,
		"operation_id", operationID,
		"phase", phase.String(),
		"status", rec.Status.String(),
		"broadcaster", caller.String())
	return rec, nil
}

// RequestAndApproveWithMetaTx submits a signed single-phase operation:
// request and approval collapse into one transaction and the contract
// allocates the operation id on the spot.
func (m *Manager) RequestAndApproveWithMetaTx(ctx context.Context, signed *metatx.Signed, caller chain.Address) (optype.OperationRecord, error) {
	var zero optype.OperationRecord

	if signed == nil {
		return zero, &Error{Code: ErrCodeVerifyFailed, Message: "nil signed envelope"}
	}
	if signed.Payload.Phase != optype.PhaseMetaApprove {
		return zero, &Error{
			Code:    ErrCodeVerifyFailed,
			Message: fmt.Sprintf("single-phase execution needs an approval envelope, got %s", signed.Payload.Phase),
		}
	}

	def, _, err := m.checkEnvelope(ctx, signed, optype.PhaseMetaApprove, caller)
	if err != nil {
		return zero, err
	}
	if def.Kind != optype.SinglePhase {
		return zero, &Error{
			Code:      ErrCodeWrongWorkflowKind,
			Message:   "multi-phase operations must be requested before approval",
			Operation: def.Name,
		}
	}

	contract := signed.Payload.Contract

	// No on-chain id exists yet; the digest is the only stable identity.
	key := "broadcast|" + contract.String() + "|" + hex.EncodeToString(signed.Digest)
	if !m.inflight.tryAcquire(key) {
		return zero, &Error{
			Code:      ErrCodeAlreadyPending,
			Message:   "this envelope is already being broadcast",
			Operation: def.Name,
		}
	}
	defer m.inflight.release(key)

	if err := m.verifyLive(ctx, signed, def); err != nil {
		return zero, err
	}

	args, err := metatx.Encode(signed)
	if err != nil {
		return zero, &Error{Code: ErrCodeVerifyFailed, Message: "encode signed envelope", Operation: def.Name, Err: err}
	}
	receipt, err := m.submitAndWait(ctx, contract, optype.SelRequestAndApproveWithMetaTx, args, caller)
	if err != nil {
		return zero, err
	}

	rec, err := m.readRecord(ctx, contract, def, receipt.OperationID)
	if err != nil {
		return zero, err
	}
	m.afterTerminal(ctx, contract, def, rec)
	m.removeMatchingEnvelopes(ctx, contract, args)

	m.logger.Info("single-phase meta-transaction executed",
		"operation", def.Name,
		"operation_id", receipt.OperationID,
		"status", rec.Status.String(),
		"broadcaster", caller.String())
	return rec, nil
}

// checkEnvelope performs the shared pre-flight for both broadcast
// entrypoints: type lookup, chain binding, broadcaster gate and the
// signer's role for the phase the envelope authorizes.
func (m *Manager) checkEnvelope(ctx context.Context, signed *metatx.Signed, phase optype.Phase, caller chain.Address) (*optype.Definition, roles.RoleSet, error) {
	var emptySet roles.RoleSet
	if signed == nil {
		return nil, emptySet, &Error{Code: ErrCodeVerifyFailed, Message: "nil signed envelope"}
	}

	def, ok := m.registry.LookupByHash(signed.Payload.TypeID)
	if !ok {
		return nil, emptySet, &Error{
			Code:    ErrCodeUnknownType,
			Message: "envelope operation type is not registered",
		}
	}

	chainID, err := m.client.ChainID(ctx)
	if err != nil {
		return nil, emptySet, m.wrapChainErr(err, "read chain id")
	}
	if chainID != signed.Payload.ChainID {
		return nil, emptySet, &Error{
			Code:      ErrCodeChainMismatch,
			Message:   fmt.Sprintf("envelope is bound to chain %d, connected to %d", signed.Payload.ChainID, chainID),
			Operation: def.Name,
			Err:       chain.ErrChainMismatch,
		}
	}

	set, err := m.resolver.ResolveFresh(ctx, signed.Payload.Contract)
	if err != nil {
		return nil, emptySet, m.wrapChainErr(err, "resolve roles")
	}
	if !roles.HoldsRole(caller, optype.RoleBroadcaster, set) {
		return nil, emptySet, &Error{
			Code:      ErrCodeUnauthorized,
			Message:   "only the broadcaster may submit meta-transactions",
			Operation: def.Name,
			Caller:    caller,
		}
	}
	if !roles.CanExecute(signed.Payload.Signer, def, phase, set) {
		return nil, emptySet, &Error{
			Code:      ErrCodeUnauthorized,
			Message:   fmt.Sprintf("signer does not hold the role required for %s", phase),
			Operation: def.Name,
			Caller:    signed.Payload.Signer,
		}
	}
	return def, set, nil
}

// verifyLive runs the full cryptographic and condition check against
// the current clock and gas price.
func (m *Manager) verifyLive(ctx context.Context, signed *metatx.Signed, def *optype.Definition) error {
	gasPrice, err := m.client.GasPrice(ctx)
	if err != nil {
		return m.wrapChainErr(err, "read gas price")
	}
	if err := metatx.Verify(signed, m.clock.Now(), gasPrice); err != nil {
		return &Error{
			Code:        ErrCodeVerifyFailed,
			Message:     "envelope failed verification",
			Operation:   def.Name,
			OperationID: signed.Payload.OperationID,
			Err:         err,
		}
	}
	return nil
}

// removeMatchingEnvelopes sweeps local entries holding exactly this
// envelope. Encode is deterministic, so byte equality is identity.
func (m *Manager) removeMatchingEnvelopes(ctx context.Context, contract chain.Address, encoded []byte) {
	entries, err := m.store.ListByContract(ctx, contract)
	if err != nil {
		var se *pending.SerializationError
		if !errors.As(err, &se) {
			m.logger.Warn("pending sweep failed", "contract", contract.String(), "error", err)
			return
		}
		m.logger.Warn("pending sweep skipped corrupt entry", "key", se.Key.String())
		return
	}
	for _, e := range entries {
		if e.SignedData != string(encoded) {
			continue
		}
		if err := m.store.Remove(ctx, e.Key); err != nil {
			m.logger.Warn("remove broadcast entry failed", "key", e.Key.String(), "error", err)
		}
	}
}
