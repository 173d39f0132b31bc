// Package workflow orchestrates the secure operation state machine:
// the time-delayed direct path and the signature-based meta-transaction
// path, converging on identical on-chain outcomes.
//
// The manager is a cooperating actor, not an authority. Every check it
// performs (roles, timelock, signature validity) also exists on-chain;
// the local checks exist to fail fast and save gas, never to replace
// the contract's enforcement.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/PracticalParticle/secureops/internal/canonical"
	"github.com/PracticalParticle/secureops/internal/chain"
	"github.com/PracticalParticle/secureops/internal/metatx"
	"github.com/PracticalParticle/secureops/internal/optype"
	"github.com/PracticalParticle/secureops/internal/pending"
	"github.com/PracticalParticle/secureops/internal/roles"
)

// DefaultSignatureTTL is how long a signed meta-transaction stays valid
// when the signer does not pick a deadline.
const DefaultSignatureTTL = time.Hour

// Manager drives phase transitions for one or more contracts.
//
// Thread-safety: all methods are safe for concurrent use. Transitions
// for the same operation serialize through the in-flight table; a
// concurrent second call is rejected with ErrCodeAlreadyPending.
type Manager struct {
	client   ContractClient
	resolver *roles.Resolver
	registry *optype.Registry
	store    *pending.Store
	wallet   chain.Wallet
	clock    chain.Clock
	logger   *slog.Logger
	sigTTL   time.Duration
	inflight *inFlightTable
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the wall clock (tests).
func WithClock(clock chain.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithLogger sets the logger. Default discards nothing but logs at the
// handler's configured level; pass slog.New against a discard handler
// to silence.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithSignatureTTL overrides the default signature deadline horizon.
func WithSignatureTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.sigTTL = ttl
	}
}

// NewManager wires the workflow engine. The registry is expected to be
// fully populated before the first call; it is append-only afterwards.
func NewManager(
	client ContractClient,
	resolver *roles.Resolver,
	registry *optype.Registry,
	store *pending.Store,
	wallet chain.Wallet,
	opts ...Option,
) *Manager {
	m := &Manager{
		client:   client,
		resolver: resolver,
		registry: registry,
		store:    store,
		wallet:   wallet,
		clock:    chain.SystemClock{},
		logger:   slog.Default(),
		sigTTL:   DefaultSignatureTTL,
		inflight: newInFlightTable(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Operations returns all operation records for a contract, for display
// through the history projection.
func (m *Manager) Operations(ctx context.Context, contract chain.Address) ([]optype.OperationRecord, error) {
	recs, err := m.client.ListOperations(ctx, contract)
	if err != nil {
		return nil, m.wrapChainErr(err, "list operations")
	}
	return recs, nil
}

// PendingEntries returns the local pending store view for a contract.
func (m *Manager) PendingEntries(ctx context.Context, contract chain.Address) ([]pending.Entry, error) {
	entries, err := m.store.ListByContract(ctx, contract)
	if err != nil {
		return nil, m.wrapStoreErr(err, "list pending entries")
	}
	return entries, nil
}

// lookupType resolves an operation type name against the registry.
func (m *Manager) lookupType(name string) (*optype.Definition, error) {
	def, ok := m.registry.LookupByName(name)
	if !ok {
		return nil, &Error{
			Code:      ErrCodeUnknownType,
			Message:   "operation type is not registered",
			Operation: name,
		}
	}
	return def, nil
}

// authorize re-resolves roles and checks the caller against the phase
// table. Resolution is fresh, not cached: this gates a state-changing
// call and must not act on a stale role set.
func (m *Manager) authorize(ctx context.Context, contract chain.Address, def *optype.Definition, phase optype.Phase, caller chain.Address) (roles.RoleSet, error) {
	set, err := m.resolver.ResolveFresh(ctx, contract)
	if err != nil {
		return roles.RoleSet{}, m.wrapChainErr(err, "resolve roles")
	}
	if !roles.CanExecute(caller, def, phase, set) {
		return roles.RoleSet{}, &Error{
			Code:      ErrCodeUnauthorized,
			Message:   fmt.Sprintf("caller does not hold the role required for %s", phase),
			Operation: def.Name,
			Caller:    caller,
		}
	}
	return set, nil
}

// submitAndWait submits a call and waits for its confirmation, mapping
// transport failures into the workflow error taxonomy.
func (m *Manager) submitAndWait(ctx context.Context, contract chain.Address, sel chain.Selector, args []byte, from chain.Address) (chain.Receipt, error) {
	handle, err := m.client.Submit(ctx, contract, sel, args, from)
	if err != nil {
		return chain.Receipt{}, m.wrapChainErr(err, "submit")
	}
	receipt, err := m.client.WaitForConfirmation(ctx, handle)
	if err != nil {
		return chain.Receipt{}, m.wrapChainErr(err, "await confirmation")
	}
	if !receipt.Success {
		return receipt, &Error{
			Code:    ErrCodeReverted,
			Message: receipt.Reason,
			Err:     &chain.RevertError{Reason: receipt.Reason},
		}
	}
	return receipt, nil
}

// readRecord fetches the contract-owned record for an operation id.
func (m *Manager) readRecord(ctx context.Context, contract chain.Address, def *optype.Definition, operationID uint64) (optype.OperationRecord, error) {
	rec, err := m.client.ReadOperation(ctx, contract, operationID)
	if err != nil {
		return optype.OperationRecord{}, m.wrapChainErr(err, "read operation")
	}
	if rec.Status == optype.StatusUndefined {
		return rec, &Error{
			Code:        ErrCodeUnknownOperation,
			Message:     "no such operation on contract",
			Operation:   def.Name,
			OperationID: operationID,
		}
	}
	return rec, nil
}

// wrapChainErr converts chain-level failures into workflow errors while
// keeping the cause reachable through errors.Is.
func (m *Manager) wrapChainErr(err error, action string) error {
	var we *Error
	if errors.As(err, &we) {
		return err
	}
	e := &Error{Message: action + " failed", Err: err}
	switch {
	case errors.Is(err, chain.ErrNetworkTimeout):
		e.Code = ErrCodeNetwork
	case errors.Is(err, chain.ErrChainMismatch):
		e.Code = ErrCodeChainMismatch
	case errors.Is(err, chain.ErrWalletRejected):
		e.Code = ErrCodeWalletRejected
	case errors.Is(err, chain.ErrContractNotFound):
		e.Code = ErrCodeUnknownOperation
		e.Message = "no contract code at address"
	case chain.IsRevert(err):
		e.Code = ErrCodeReverted
	default:
		e.Code = ErrCodeNetwork
	}
	return e
}

// wrapStoreErr converts pending store failures, preserving the sentinel.
func (m *Manager) wrapStoreErr(err error, action string) error {
	return &Error{Code: ErrCodeStore, Message: action + " failed", Err: err}
}

// pendingKey is the store key for an on-chain operation id.
func pendingKey(contract chain.Address, operationID uint64) pending.Key {
	return pending.Key{Contract: contract, OperationID: strconv.FormatUint(operationID, 10)}
}

// requestDedupKey derives the in-flight key for a request: type plus
// canonical params, so two double-clicked identical requests collide
// and two different requests never do.
func requestDedupKey(contract chain.Address, def *optype.Definition, params metatx.Params) (string, error) {
	encoded, err := canonical.Marshal(map[string]any(params))
	if err != nil {
		return "", fmt.Errorf("derive request key: %w", err)
	}
	return "request|" + contract.String() + "|" + def.Name + "|" + string(encoded), nil
}

func operationDedupKey(contract chain.Address, def *optype.Definition, operationID uint64) string {
	return "op|" + contract.String() + "|" + def.Name + "|" + strconv.FormatUint(operationID, 10)
}
