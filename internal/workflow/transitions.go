package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/PracticalParticle/secureops/internal/canonical"
	"github.com/PracticalParticle/secureops/internal/chain"
	"github.com/PracticalParticle/secureops/internal/metatx"
	"github.com/PracticalParticle/secureops/internal/optype"
	"github.com/PracticalParticle/secureops/internal/pending"
)

// RequestOperation opens a multi-phase operation. The contract
// allocates the operation id and sets releaseTime = now + timelock.
//
// Concurrent identical requests (same type, same params) deduplicate
// locally: the second call fails with ErrCodeAlreadyPending instead of
// firing a duplicate submission.
func (m *Manager) RequestOperation(ctx context.Context, contract chain.Address, typeName string, rawParams map[string]any, caller chain.Address) (optype.OperationRecord, error) {
	var zero optype.OperationRecord

	def, err := m.lookupType(typeName)
	if err != nil {
		return zero, err
	}
	params, err := metatx.NormalizeParams(rawParams)
	if err != nil {
		return zero, &Error{Code: ErrCodeInvalidParams, Message: "invalid request params", Operation: def.Name, Err: err}
	}

	key, err := requestDedupKey(contract, def, params)
	if err != nil {
		return zero, &Error{Code: ErrCodeInvalidParams, Message: "invalid request params", Operation: def.Name, Err: err}
	}
	if !m.inflight.tryAcquire(key) {
		return zero, &Error{
			Code:      ErrCodeAlreadyPending,
			Message:   "an identical request is already in flight",
			Operation: def.Name,
			Caller:    caller,
		}
	}
	defer m.inflight.release(key)

	// Role gate before anything touches the network beyond resolution.
	if _, err := m.authorize(ctx, contract, def, optype.PhaseRequest, caller); err != nil {
		return zero, err
	}
	if def.Kind != optype.MultiPhase {
		return zero, &Error{
			Code:      ErrCodeWrongWorkflowKind,
			Message:   "single-phase operations are requested and approved in one signed step",
			Operation: def.Name,
		}
	}

	args, err := canonical.Marshal(map[string]any{
		"operation_type": def.TypeID.String(),
		"params":         map[string]any(params),
	})
	if err != nil {
		return zero, &Error{Code: ErrCodeInvalidParams, Message: "encode request args", Operation: def.Name, Err: err}
	}

	receipt, err := m.submitAndWait(ctx, contract, optype.SelTxRequest, args, caller)
	if err != nil {
		return zero, err
	}

	rec, err := m.readRecord(ctx, contract, def, receipt.OperationID)
	if err != nil {
		return zero, err
	}
	m.logger.Info("operation requested",
		"operation", def.Name,
		"operation_id", rec.OperationID,
		"release_time", rec.ReleaseTime,
		"caller", caller.String())
	return rec, nil
}

// ApproveOperation approves a pending operation through the direct,
// timelocked path. Requires the approval role and an elapsed timelock;
// the contract re-checks both.
//
// On success any matching local pending signature is removed: the
// direct path winning makes the stored envelope moot.
func (m *Manager) ApproveOperation(ctx context.Context, contract chain.Address, typeName string, operationID uint64, caller chain.Address) (optype.OperationRecord, error) {
	return m.finalizeDirect(ctx, contract, typeName, operationID, caller, optype.PhaseApprove)
}

// CancelOperation cancels a pending operation. No timelock wait: a
// pending operation can always be withdrawn by the cancel role.
func (m *Manager) CancelOperation(ctx context.Context, contract chain.Address, typeName string, operationID uint64, caller chain.Address) (optype.OperationRecord, error) {
	return m.finalizeDirect(ctx, contract, typeName, operationID, caller, optype.PhaseCancel)
}

func (m *Manager) finalizeDirect(ctx context.Context, contract chain.Address, typeName string, operationID uint64, caller chain.Address, phase optype.Phase) (optype.OperationRecord, error) {
	var zero optype.OperationRecord

	def, err := m.lookupType(typeName)
	if err != nil {
		return zero, err
	}

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

	if _, err := m.authorize(ctx, contract, def, phase, caller); err != nil {
		return zero, err
	}

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

	var sel chain.Selector
	switch phase {
	case optype.PhaseApprove:
		// Direct approval waits out the timelock; the meta path does not.
		if now := m.clock.Now().Unix(); now < rec.ReleaseTime {
			return zero, &Error{
				Code:        ErrCodeTimelockActive,
				Message:     fmt.Sprintf("timelock has not yet elapsed (%d seconds remaining)", rec.ReleaseTime-now),
				Operation:   def.Name,
				OperationID: operationID,
			}
		}
		sel = optype.SelTxDelayedApproval
	case optype.PhaseCancel:
		sel = optype.SelTxCancellation
	default:
		return zero, fmt.Errorf("finalizeDirect: unsupported phase %s", phase)
	}

	args, err := canonical.Marshal(map[string]any{"operation_id": operationID})
	if err != nil {
		return zero, &Error{Code: ErrCodeInvalidParams, Message: "encode args", Operation: def.Name, Err: err}
	}
	if _, err := m.submitAndWait(ctx, contract, sel, args, caller); err != nil {
		return zero, err
	}

	rec, err = m.readRecord(ctx, contract, def, operationID)
	if err != nil {
		return zero, err
	}
	m.afterTerminal(ctx, contract, def, rec)
	return rec, nil
}

// afterTerminal runs local housekeeping once the contract reports a
// terminal state: the stored signature for the operation (if any) is
// dead weight, and role assignments may just have changed.
func (m *Manager) afterTerminal(ctx context.Context, contract chain.Address, def *optype.Definition, rec optype.OperationRecord) {
	if !rec.Status.Terminal() {
		return
	}
	if err := m.store.Remove(ctx, pendingKey(contract, rec.OperationID)); err != nil {
		// Cleanup failure is not a transition failure; the entry will
		// be swept by the next SyncPending pass.
		m.logger.Warn("failed to remove pending entry",
			"operation", def.Name,
			"operation_id", rec.OperationID,
			"error", err)
	}
	m.resolver.Invalidate(contract)
	m.logger.Info("operation finalized",
		"operation", def.Name,
		"operation_id", rec.OperationID,
		"status", rec.Status.String())
}

// SyncPending reconciles the local store against contract state:
// entries whose operation reached a terminal state on-chain are
// removed. This is the cleanup half of the two-path tie-break: when
// the direct path wins, the loser's stored envelope is swept here.
// Returns the keys that were removed.
func (m *Manager) SyncPending(ctx context.Context, contract chain.Address) ([]pending.Key, error) {
	entries, err := m.store.ListByContract(ctx, contract)
	if err != nil {
		return nil, m.wrapStoreErr(err, "list pending entries")
	}

	var removed []pending.Key
	for _, e := range entries {
		opID, parseErr := parseOperationID(e.Key.OperationID)
		if parseErr != nil {
			// Synthetic single-phase ids have no on-chain record to
			// reconcile against until broadcast.
			continue
		}
		rec, err := m.client.ReadOperation(ctx, contract, opID)
		if err != nil {
			return removed, m.wrapChainErr(err, "read operation")
		}
		if !rec.Status.Terminal() {
			continue
		}
		if err := m.store.Remove(ctx, e.Key); err != nil {
			return removed, m.wrapStoreErr(err, "remove pending entry")
		}
		removed = append(removed, e.Key)
	}
	return removed, nil
}

func parseOperationID(s string) (uint64, error) {
	var id uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.New("not a numeric operation id")
		}
		id = id*10 + uint64(c-'0')
	}
	if s == "" {
		return 0, errors.New("empty operation id")
	}
	return id, nil
}
