package workflow

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/PracticalParticle/secureops/internal/chain"
	"github.com/PracticalParticle/secureops/internal/metatx"
	"github.com/PracticalParticle/secureops/internal/optype"
	"github.com/PracticalParticle/secureops/internal/pending"
)

// SignOptions tune the envelope a signer produces.
type SignOptions struct {
	// Deadline is the unix second the signature expires. Zero means
	// now plus the manager's signature TTL.
	Deadline int64
	// MaxGasPrice caps the gas price at execution. Nil or zero means
	// no ceiling.
	MaxGasPrice *big.Int
}

// SignApproval produces and persists a signed approval for a pending
// multi-phase operation. This is the gasless path: no timelock wait,
// but the envelope still needs a broadcaster to take effect.
//
// An abandoned wallet prompt leaves no partial state: nothing is
// persisted unless a complete, verified signature came back.
func (m *Manager) SignApproval(ctx context.Context, contract chain.Address, typeName string, operationID uint64, signer chain.Address, opts SignOptions) (*metatx.Signed, error) {
	return m.signPhase(ctx, contract, typeName, operationID, signer, optype.PhaseMetaApprove, opts)
}

// SignCancellation produces and persists a signed cancellation for a
// pending multi-phase operation.
func (m *Manager) SignCancellation(ctx context.Context, contract chain.Address, typeName string, operationID uint64, signer chain.Address, opts SignOptions) (*metatx.Signed, error) {
	return m.signPhase(ctx, contract, typeName, operationID, signer, optype.PhaseMetaCancel, opts)
}

func (m *Manager) signPhase(ctx context.Context, contract chain.Address, typeName string, operationID uint64, signer chain.Address, phase optype.Phase, opts SignOptions) (*metatx.Signed, error) {
	def, err := m.lookupType(typeName)
	if err != nil {
		return nil, err
	}

	key := operationDedupKey(contract, def, operationID)
	if !m.inflight.tryAcquire(key) {
		return nil, &Error{
			Code:        ErrCodeAlreadyPending,
			Message:     "a transition for this operation is already in flight",
			Operation:   def.Name,
			OperationID: operationID,
		}
	}
	defer m.inflight.release(key)

	if _, err := m.authorize(ctx, contract, def, phase, signer); err != nil {
		return nil, err
	}

	rec, err := m.readRecord(ctx, contract, def, operationID)
	if err != nil {
		return nil, err
	}
	if rec.Status != optype.StatusPending {
		return nil, &Error{
			Code:        ErrCodeNotPending,
			Message:     fmt.Sprintf("operation is %s", rec.Status),
			Operation:   def.Name,
			OperationID: operationID,
		}
	}

	// At most one unbroadcast signature per key. A corrupt entry blocks
	// re-signing too: treating it as absent would mint a duplicate.
	storeKey := pendingKey(contract, operationID)
	existing, err := m.store.Get(ctx, storeKey)
	switch {
	case err == nil:
		if existing.Metadata.Status == pending.EntryPending && !existing.Metadata.Broadcast {
			return nil, &Error{
				Code:        ErrCodeAlreadyPending,
				Message:     "an unbroadcast signature already exists for this operation",
				Operation:   def.Name,
				OperationID: operationID,
			}
		}
	case errors.Is(err, pending.ErrNotFound):
		// Free to sign.
	default:
		return nil, m.wrapStoreErr(err, "check existing signature")
	}

	signed, err := m.buildAndSign(ctx, metatx.BuildSpec{
		Contract:    contract,
		Definition:  def,
		OperationID: operationID,
		Phase:       phase,
		Params:      rec.Params,
		Value:       rec.Value,
		Signer:      signer,
	}, opts)
	if err != nil {
		return nil, err
	}

	purpose := "approve"
	if phase == optype.PhaseMetaCancel {
		purpose = "cancel"
	}
	if err := m.persistSigned(ctx, signed, storeKey, def, purpose); err != nil {
		return nil, err
	}

	m.logger.Info("meta-transaction signed",
		"operation", def.Name,
		"operation_id", operationID,
		"purpose", purpose,
		"signer", signer.String())
	return signed, nil
}

// SignSinglePhase produces and persists a signed envelope for a
// single-phase operation (mint, burn, recovery or timelock update).
// There is no on-chain record yet, so the store entry is keyed by a
// synthetic id; the returned key identifies it for later cleanup.
func (m *Manager) SignSinglePhase(ctx context.Context, contract chain.Address, typeName string, rawParams map[string]any, signer chain.Address, opts SignOptions) (*metatx.Signed, pending.Key, error) {
	var zeroKey pending.Key

	def, err := m.lookupType(typeName)
	if err != nil {
		return nil, zeroKey, err
	}
	if def.Kind != optype.SinglePhase {
		return nil, zeroKey, &Error{
			Code:      ErrCodeWrongWorkflowKind,
			Message:   "multi-phase operations are signed per pending operation id",
			Operation: def.Name,
		}
	}
	params, err := metatx.NormalizeParams(rawParams)
	if err != nil {
		return nil, zeroKey, &Error{Code: ErrCodeInvalidParams, Message: "invalid operation params", Operation: def.Name, Err: err}
	}

	key, err := requestDedupKey(contract, def, params)
	if err != nil {
		return nil, zeroKey, &Error{Code: ErrCodeInvalidParams, Message: "invalid operation params", Operation: def.Name, Err: err}
	}
	if !m.inflight.tryAcquire(key) {
		return nil, zeroKey, &Error{
			Code:      ErrCodeAlreadyPending,
			Message:   "an identical signing flow is already in flight",
			Operation: def.Name,
		}
	}
	defer m.inflight.release(key)

	if _, err := m.authorize(ctx, contract, def, optype.PhaseMetaApprove, signer); err != nil {
		return nil, zeroKey, err
	}

	// A random nonce makes the digest unique per envelope even for
	// identical operations signed at the same instant; the contract's
	// executed-digest ledger enforces replay protection.
	nonce := uuid.New()
	signed, err := m.buildAndSign(ctx, metatx.BuildSpec{
		Contract:    contract,
		Definition:  def,
		OperationID: binary.BigEndian.Uint64(nonce[:8]),
		Phase:       optype.PhaseMetaApprove,
		Params:      params,
		Signer:      signer,
	}, opts)
	if err != nil {
		return nil, zeroKey, err
	}

	storeKey := pending.Key{Contract: contract, OperationID: "meta-" + uuid.NewString()}
	if err := m.persistSigned(ctx, signed, storeKey, def, "execute"); err != nil {
		return nil, zeroKey, err
	}

	m.logger.Info("single-phase meta-transaction signed",
		"operation", def.Name,
		"key", storeKey.String(),
		"signer", signer.String())
	return signed, storeKey, nil
}

// buildAndSign fills in chain id and deadline defaults, delegates the
// digest to the wallet, and verifies the returned envelope before it
// goes anywhere near the store.
func (m *Manager) buildAndSign(ctx context.Context, spec metatx.BuildSpec, opts SignOptions) (*metatx.Signed, error) {
	chainID, err := m.client.ChainID(ctx)
	if err != nil {
		return nil, m.wrapChainErr(err, "read chain id")
	}
	spec.ChainID = chainID
	spec.Deadline = opts.Deadline
	if spec.Deadline == 0 {
		spec.Deadline = m.clock.Now().Add(m.sigTTL).Unix()
	}
	spec.MaxGasPrice = opts.MaxGasPrice

	payload, err := metatx.BuildUnsigned(spec)
	if err != nil {
		return nil, &Error{Code: ErrCodeInvalidParams, Message: "build unsigned payload", Operation: spec.Definition.Name, Err: err}
	}

	signed, err := metatx.Sign(ctx, payload, m.wallet)
	if err != nil {
		if errors.Is(err, chain.ErrWalletRejected) {
			return nil, &Error{
				Code:      ErrCodeWalletRejected,
				Message:   "signing was cancelled",
				Operation: spec.Definition.Name,
				Err:       err,
			}
		}
		return nil, &Error{Code: ErrCodeVerifyFailed, Message: "wallet signing failed", Operation: spec.Definition.Name, Err: err}
	}

	// Gas conditions are irrelevant until broadcast; nil skips them.
	if err := metatx.Verify(signed, m.clock.Now(), nil); err != nil {
		return nil, &Error{Code: ErrCodeVerifyFailed, Message: "freshly signed envelope failed verification", Operation: spec.Definition.Name, Err: err}
	}
	return signed, nil
}

func (m *Manager) persistSigned(ctx context.Context, signed *metatx.Signed, key pending.Key, def *optype.Definition, purpose string) error {
	data, err := metatx.Encode(signed)
	if err != nil {
		return &Error{Code: ErrCodeStore, Message: "encode signed envelope", Operation: def.Name, Err: err}
	}
	entry := pending.Entry{
		Key:        key,
		SignedData: string(data),
		Timestamp:  m.clock.Now().Unix(),
		Metadata: pending.Metadata{
			Type:    def.Name,
			Purpose: purpose,
			Status:  pending.EntryPending,
		},
	}
	if err := m.store.Put(ctx, entry); err != nil {
		return m.wrapStoreErr(err, "persist signed envelope")
	}
	return nil
}
