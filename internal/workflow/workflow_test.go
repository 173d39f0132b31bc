package workflow_test

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PracticalParticle/secureops/internal/chain"
	"github.com/PracticalParticle/secureops/internal/metatx"
	"github.com/PracticalParticle/secureops/internal/optype"
	"github.com/PracticalParticle/secureops/internal/pending"
	"github.com/PracticalParticle/secureops/internal/roles"
	"github.com/PracticalParticle/secureops/internal/testutil"
	"github.com/PracticalParticle/secureops/internal/workflow"
)

const (
	testChainID  = uint64(31337)
	testTimelock = 120 * time.Second
)

type env struct {
	fc       *testutil.FakeChain
	clock    *testutil.ManualClock
	wallet   *testutil.FakeWallet
	store    *pending.Store
	resolver *roles.Resolver
	mgr      *workflow.Manager
	registry *optype.Registry

	contract    chain.Address
	owner       chain.Address
	broadcaster chain.Address
	recovery    chain.Address
	stranger    chain.Address
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		clock:    testutil.NewManualClock(time.Unix(1_700_000_000, 0)),
		wallet:   testutil.NewFakeWallet(),
		registry: optype.Builtin(),
	}
	e.owner = e.wallet.GenerateKey()
	e.broadcaster = e.wallet.GenerateKey()
	e.recovery = e.wallet.GenerateKey()
	e.stranger = e.wallet.GenerateKey()

	e.fc = testutil.NewFakeChain(testChainID, e.registry, e.clock)
	e.contract = e.fc.Deploy(e.owner, e.broadcaster, e.recovery, testTimelock)

	store, err := pending.Open(filepath.Join(t.TempDir(), "pending.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	e.store = store

	e.resolver = roles.NewResolver(e.fc, roles.WithClock(e.clock))
	e.mgr = workflow.NewManager(e.fc, e.resolver, e.registry, e.store, e.wallet,
		workflow.WithClock(e.clock),
		workflow.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return e
}

func (e *env) requestOwnershipTransfer(t *testing.T) optype.OperationRecord {
	t.Helper()
	rec, err := e.mgr.RequestOperation(context.Background(), e.contract,
		optype.OwnershipTransfer, nil, e.recovery)
	require.NoError(t, err)
	require.Equal(t, optype.StatusPending, rec.Status)
	return rec
}

func TestDirectPathOwnershipTransfer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec := e.requestOwnershipTransfer(t)
	assert.Equal(t, e.clock.Now().Add(testTimelock).Unix(), rec.ReleaseTime)
	assert.Equal(t, e.recovery, rec.Requester)

	// Too early: the timelock gate rejects locally, nothing submitted.
	_, err := e.mgr.ApproveOperation(ctx, e.contract, optype.OwnershipTransfer, rec.OperationID, e.owner)
	require.Error(t, err)
	assert.Equal(t, workflow.ErrCodeTimelockActive, workflow.CodeOf(err))

	e.clock.Advance(testTimelock)

	rec, err = e.mgr.ApproveOperation(ctx, e.contract, optype.OwnershipTransfer, rec.OperationID, e.owner)
	require.NoError(t, err)
	assert.Equal(t, optype.StatusCompleted, rec.Status)
	assert.Equal(t, optype.ExecStandard, rec.ExecutionType)

	// Ownership moved to the recovery address.
	assert.Equal(t, e.recovery, e.fc.State(e.contract).Owner)
}

func TestDirectCancellationNeedsNoTimelock(t *testing.T) {
	e := newEnv(t)
	rec := e.requestOwnershipTransfer(t)

	rec, err := e.mgr.CancelOperation(context.Background(), e.contract,
		optype.OwnershipTransfer, rec.OperationID, e.recovery)
	require.NoError(t, err)
	assert.Equal(t, optype.StatusCancelled, rec.Status)
}

func TestRequestUnauthorized(t *testing.T) {
	e := newEnv(t)

	// Only recovery may request an ownership transfer.
	_, err := e.mgr.RequestOperation(context.Background(), e.contract,
		optype.OwnershipTransfer, nil, e.owner)
	require.Error(t, err)
	assert.Equal(t, workflow.ErrCodeUnauthorized, workflow.CodeOf(err))
}

func TestRequestSinglePhaseTypeFailsAsUnauthorizedForStranger(t *testing.T) {
	e := newEnv(t)

	// A caller with no role gets the authorization failure, not a
	// workflow-shape complaint that would leak less useful information.
	_, err := e.mgr.RequestOperation(context.Background(), e.contract,
		optype.TimelockUpdate, map[string]any{"periodSeconds": 60}, e.stranger)
	require.Error(t, err)
	assert.Equal(t, workflow.ErrCodeUnauthorized, workflow.CodeOf(err))
}

func TestRequestSinglePhaseTypeWrongKindForOwner(t *testing.T) {
	e := newEnv(t)

	_, err := e.mgr.RequestOperation(context.Background(), e.contract,
		optype.TimelockUpdate, map[string]any{"periodSeconds": 60}, e.owner)
	require.Error(t, err)
	assert.Equal(t, workflow.ErrCodeWrongWorkflowKind, workflow.CodeOf(err))
}

func TestRequestUnknownType(t *testing.T) {
	e := newEnv(t)

	_, err := e.mgr.RequestOperation(context.Background(), e.contract, "NOT_A_TYPE", nil, e.owner)
	assert.Equal(t, workflow.ErrCodeUnknownType, workflow.CodeOf(err))
}

func TestRequestNetworkFailureIsRetryable(t *testing.T) {
	e := newEnv(t)
	e.fc.FailNextSubmit(chain.ErrNetworkTimeout)

	_, err := e.mgr.RequestOperation(context.Background(), e.contract,
		optype.OwnershipTransfer, nil, e.recovery)
	require.Error(t, err)
	assert.Equal(t, workflow.ErrCodeNetwork, workflow.CodeOf(err))
	assert.True(t, workflow.IsRetryable(err))
}

func TestMetaPathSkipsTimelock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := e.requestOwnershipTransfer(t)

	signed, err := e.mgr.SignApproval(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.owner, workflow.SignOptions{})
	require.NoError(t, err)

	// The signature landed in the local store.
	entries, err := e.mgr.PendingEntries(ctx, e.contract)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, optype.OwnershipTransfer, entries[0].Metadata.Type)
	assert.Equal(t, "approve", entries[0].Metadata.Purpose)

	// Broadcast immediately: no timelock on the signed path.
	rec, err = e.mgr.ExecuteMetaTransaction(ctx, signed, optype.PhaseMetaApprove, e.broadcaster)
	require.NoError(t, err)
	assert.Equal(t, optype.StatusCompleted, rec.Status)
	assert.Equal(t, optype.ExecMeta, rec.ExecutionType)
	assert.Equal(t, e.recovery, e.fc.State(e.contract).Owner)

	// Terminal state cleans the stored entry.
	entries, err = e.mgr.PendingEntries(ctx, e.contract)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecoveryMaySignOwnershipApprovalEarly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := e.requestOwnershipTransfer(t)

	signed, err := e.mgr.SignApproval(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.recovery, workflow.SignOptions{})
	require.NoError(t, err)

	rec, err = e.mgr.ExecuteMetaTransaction(ctx, signed, optype.PhaseMetaApprove, e.broadcaster)
	require.NoError(t, err)
	assert.Equal(t, optype.StatusCompleted, rec.Status)
}

func TestMetaCancellationRoleIsOwnerOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := e.requestOwnershipTransfer(t)

	// Recovery requested the transfer but cannot sign its meta-cancel.
	_, err := e.mgr.SignCancellation(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.recovery, workflow.SignOptions{})
	require.Error(t, err)
	assert.Equal(t, workflow.ErrCodeUnauthorized, workflow.CodeOf(err))

	signed, err := e.mgr.SignCancellation(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.owner, workflow.SignOptions{})
	require.NoError(t, err)

	rec, err = e.mgr.ExecuteMetaTransaction(ctx, signed, optype.PhaseMetaCancel, e.broadcaster)
	require.NoError(t, err)
	assert.Equal(t, optype.StatusCancelled, rec.Status)
}

func TestExecuteRequiresBroadcaster(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := e.requestOwnershipTransfer(t)

	signed, err := e.mgr.SignApproval(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.owner, workflow.SignOptions{})
	require.NoError(t, err)

	_, err = e.mgr.ExecuteMetaTransaction(ctx, signed, optype.PhaseMetaApprove, e.owner)
	require.Error(t, err)
	assert.Equal(t, workflow.ErrCodeUnauthorized, workflow.CodeOf(err))
}

func TestSecondSignatureForSameOperationRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := e.requestOwnershipTransfer(t)

	_, err := e.mgr.SignApproval(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.owner, workflow.SignOptions{})
	require.NoError(t, err)

	_, err = e.mgr.SignApproval(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.recovery, workflow.SignOptions{})
	require.Error(t, err)
	assert.Equal(t, workflow.ErrCodeAlreadyPending, workflow.CodeOf(err))
}

func TestWalletRejectionLeavesNoState(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := e.requestOwnershipTransfer(t)

	e.wallet.RejectNext()
	_, err := e.mgr.SignApproval(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.owner, workflow.SignOptions{})
	require.Error(t, err)
	assert.Equal(t, workflow.ErrCodeWalletRejected, workflow.CodeOf(err))

	entries, err := e.mgr.PendingEntries(ctx, e.contract)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The abandoned prompt does not burn the one-signature slot.
	_, err = e.mgr.SignApproval(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.owner, workflow.SignOptions{})
	assert.NoError(t, err)
}

func TestReplayedEnvelopeRejectedOnChain(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := e.requestOwnershipTransfer(t)

	signed, err := e.mgr.SignApproval(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.owner, workflow.SignOptions{})
	require.NoError(t, err)

	_, err = e.mgr.ExecuteMetaTransaction(ctx, signed, optype.PhaseMetaApprove, e.broadcaster)
	require.NoError(t, err)

	// Replaying the same envelope finds the operation terminal.
	_, err = e.mgr.ExecuteMetaTransaction(ctx, signed, optype.PhaseMetaApprove, e.broadcaster)
	require.Error(t, err)
	assert.Equal(t, workflow.ErrCodeNotPending, workflow.CodeOf(err))
}

func TestCancellationEnvelopeRejectedAtApprovalEntryPoint(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := e.requestOwnershipTransfer(t)

	// The owner signs a cancellation. The owner also satisfies the
	// approval role, so only the signed action itself can stop a
	// broadcaster from flipping the envelope's intent.
	signed, err := e.mgr.SignCancellation(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.owner, workflow.SignOptions{})
	require.NoError(t, err)

	_, err = e.mgr.ExecuteMetaTransaction(ctx, signed, optype.PhaseMetaApprove, e.broadcaster)
	require.Error(t, err)
	assert.Equal(t, workflow.ErrCodeVerifyFailed, workflow.CodeOf(err))

	// The contract refuses the same swap even when the broadcaster
	// bypasses the engine and hits the approval entry point directly.
	args, err := metatx.Encode(signed)
	require.NoError(t, err)
	handle, err := e.fc.Submit(ctx, e.contract, optype.SelTxApprovalWithMetaTx, args, e.broadcaster)
	require.NoError(t, err)
	receipt, err := e.fc.WaitForConfirmation(ctx, handle)
	require.NoError(t, err)
	assert.False(t, receipt.Success)

	// Nothing executed in either direction.
	onchain, err := e.fc.ReadOperation(ctx, e.contract, rec.OperationID)
	require.NoError(t, err)
	assert.Equal(t, optype.StatusPending, onchain.Status)
	assert.NotEqual(t, e.recovery, e.fc.State(e.contract).Owner)
}

func TestApprovalEnvelopeRejectedAtCancellationEntryPoint(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := e.requestOwnershipTransfer(t)

	signed, err := e.mgr.SignApproval(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.owner, workflow.SignOptions{})
	require.NoError(t, err)

	_, err = e.mgr.ExecuteMetaTransaction(ctx, signed, optype.PhaseMetaCancel, e.broadcaster)
	require.Error(t, err)
	assert.Equal(t, workflow.ErrCodeVerifyFailed, workflow.CodeOf(err))

	onchain, err := e.fc.ReadOperation(ctx, e.contract, rec.OperationID)
	require.NoError(t, err)
	assert.Equal(t, optype.StatusPending, onchain.Status)
}

func TestDirectApprovalAfterMetaExecution(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := e.requestOwnershipTransfer(t)

	signed, err := e.mgr.SignApproval(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.owner, workflow.SignOptions{})
	require.NoError(t, err)
	_, err = e.mgr.ExecuteMetaTransaction(ctx, signed, optype.PhaseMetaApprove, e.broadcaster)
	require.NoError(t, err)

	// The losing path observes the terminal record, never a double
	// execution.
	e.clock.Advance(testTimelock)
	_, err = e.mgr.ApproveOperation(ctx, e.contract, optype.OwnershipTransfer, rec.OperationID, e.owner)
	require.Error(t, err)
	assert.Equal(t, workflow.ErrCodeNotPending, workflow.CodeOf(err))
}

func TestExpiredSignatureFailsBeforeSubmission(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := e.requestOwnershipTransfer(t)

	signed, err := e.mgr.SignApproval(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.owner, workflow.SignOptions{Deadline: e.clock.Now().Add(time.Minute).Unix()})
	require.NoError(t, err)

	e.clock.Advance(2 * time.Minute)

	_, err = e.mgr.ExecuteMetaTransaction(ctx, signed, optype.PhaseMetaApprove, e.broadcaster)
	require.Error(t, err)
	assert.Equal(t, workflow.ErrCodeVerifyFailed, workflow.CodeOf(err))
	assert.ErrorIs(t, err, metatx.ErrSignatureExpired)

	// Nothing executed: the operation is still pending on-chain.
	onchain, err := e.fc.ReadOperation(ctx, e.contract, rec.OperationID)
	require.NoError(t, err)
	assert.Equal(t, optype.StatusPending, onchain.Status)
}

func TestGasCeilingBlocksExecution(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := e.requestOwnershipTransfer(t)

	signed, err := e.mgr.SignApproval(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.owner, workflow.SignOptions{MaxGasPrice: big.NewInt(100)})
	require.NoError(t, err)

	e.fc.SetGasPrice(big.NewInt(200))
	_, err = e.mgr.ExecuteMetaTransaction(ctx, signed, optype.PhaseMetaApprove, e.broadcaster)
	require.Error(t, err)
	assert.ErrorIs(t, err, metatx.ErrGasPriceExceeded)

	// Price falls back under the ceiling and the same envelope goes
	// through.
	e.fc.SetGasPrice(big.NewInt(50))
	got, err := e.mgr.ExecuteMetaTransaction(ctx, signed, optype.PhaseMetaApprove, e.broadcaster)
	require.NoError(t, err)
	assert.Equal(t, optype.StatusCompleted, got.Status)
}

func TestChainMismatchRejectedLocally(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := e.requestOwnershipTransfer(t)

	signed, err := e.mgr.SignApproval(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.owner, workflow.SignOptions{})
	require.NoError(t, err)

	// A second deployment on another chain with the same layout.
	other := testutil.NewFakeChain(testChainID+1, e.registry, e.clock)
	otherContract := other.Deploy(e.owner, e.broadcaster, e.recovery, testTimelock)
	require.Equal(t, e.contract, otherContract)

	store2, err := pending.Open(filepath.Join(t.TempDir(), "pending.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store2.Close() })

	mgr2 := workflow.NewManager(other, roles.NewResolver(other, roles.WithClock(e.clock)),
		e.registry, store2, e.wallet,
		workflow.WithClock(e.clock),
		workflow.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err = mgr2.ExecuteMetaTransaction(ctx, signed, optype.PhaseMetaApprove, e.broadcaster)
	require.Error(t, err)
	assert.Equal(t, workflow.ErrCodeChainMismatch, workflow.CodeOf(err))
}

func TestSinglePhaseTimelockUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	signed, key, err := e.mgr.SignSinglePhase(ctx, e.contract, optype.TimelockUpdate,
		map[string]any{"periodSeconds": 300}, e.owner, workflow.SignOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, key.OperationID)

	rec, err := e.mgr.RequestAndApproveWithMetaTx(ctx, signed, e.broadcaster)
	require.NoError(t, err)
	assert.Equal(t, optype.StatusCompleted, rec.Status)
	assert.Equal(t, optype.ExecMeta, rec.ExecutionType)
	assert.Equal(t, 300*time.Second, e.fc.State(e.contract).Timelock)

	// The synthetic entry was swept after broadcast.
	entries, err := e.mgr.PendingEntries(ctx, e.contract)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSinglePhaseTokenMintAndBurn(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	holder := e.stranger

	signed, _, err := e.mgr.SignSinglePhase(ctx, e.contract, optype.TokenMint,
		map[string]any{"to": holder.String(), "amount": 1000}, e.owner, workflow.SignOptions{})
	require.NoError(t, err)
	_, err = e.mgr.RequestAndApproveWithMetaTx(ctx, signed, e.broadcaster)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), e.fc.Balance(e.contract, holder))

	signed, _, err = e.mgr.SignSinglePhase(ctx, e.contract, optype.TokenBurn,
		map[string]any{"from": holder.String(), "amount": 400}, e.owner, workflow.SignOptions{})
	require.NoError(t, err)
	_, err = e.mgr.RequestAndApproveWithMetaTx(ctx, signed, e.broadcaster)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(600), e.fc.Balance(e.contract, holder))
}

func TestSinglePhaseEnvelopesDistinctAtSameInstant(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	holder := e.stranger

	// The clock never advances between the two signings; the envelopes
	// must still carry distinct digests so both mints land.
	first, firstKey, err := e.mgr.SignSinglePhase(ctx, e.contract, optype.TokenMint,
		map[string]any{"to": holder.String(), "amount": 100}, e.owner, workflow.SignOptions{})
	require.NoError(t, err)
	second, secondKey, err := e.mgr.SignSinglePhase(ctx, e.contract, optype.TokenMint,
		map[string]any{"to": holder.String(), "amount": 100}, e.owner, workflow.SignOptions{})
	require.NoError(t, err)

	assert.NotEqual(t, firstKey.OperationID, secondKey.OperationID)
	assert.NotEqual(t, first.Digest, second.Digest)

	_, err = e.mgr.RequestAndApproveWithMetaTx(ctx, first, e.broadcaster)
	require.NoError(t, err)
	_, err = e.mgr.RequestAndApproveWithMetaTx(ctx, second, e.broadcaster)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(200), e.fc.Balance(e.contract, holder))
}

func TestSinglePhaseBurnBeyondBalanceFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	signed, _, err := e.mgr.SignSinglePhase(ctx, e.contract, optype.TokenBurn,
		map[string]any{"from": e.stranger.String(), "amount": 1}, e.owner, workflow.SignOptions{})
	require.NoError(t, err)

	rec, err := e.mgr.RequestAndApproveWithMetaTx(ctx, signed, e.broadcaster)
	require.NoError(t, err)
	assert.Equal(t, optype.StatusFailed, rec.Status)
}

func TestSignSinglePhaseRejectsMultiPhaseType(t *testing.T) {
	e := newEnv(t)

	_, _, err := e.mgr.SignSinglePhase(context.Background(), e.contract,
		optype.OwnershipTransfer, nil, e.owner, workflow.SignOptions{})
	assert.Equal(t, workflow.ErrCodeWrongWorkflowKind, workflow.CodeOf(err))
}

func TestRequestAndApproveRejectsMultiPhaseEnvelope(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := e.requestOwnershipTransfer(t)

	signed, err := e.mgr.SignApproval(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.owner, workflow.SignOptions{})
	require.NoError(t, err)

	_, err = e.mgr.RequestAndApproveWithMetaTx(ctx, signed, e.broadcaster)
	assert.Equal(t, workflow.ErrCodeWrongWorkflowKind, workflow.CodeOf(err))
}

func TestSyncPendingSweepsForeignFinalization(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := e.requestOwnershipTransfer(t)

	// This device signs and stores an approval.
	_, err := e.mgr.SignApproval(ctx, e.contract, optype.OwnershipTransfer,
		rec.OperationID, e.owner, workflow.SignOptions{})
	require.NoError(t, err)

	// Another device finalizes the operation through the direct path.
	store2, err := pending.Open(filepath.Join(t.TempDir(), "pending.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store2.Close() })
	mgr2 := workflow.NewManager(e.fc, roles.NewResolver(e.fc, roles.WithClock(e.clock)),
		e.registry, store2, e.wallet,
		workflow.WithClock(e.clock),
		workflow.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	e.clock.Advance(testTimelock)
	_, err = mgr2.ApproveOperation(ctx, e.contract, optype.OwnershipTransfer, rec.OperationID, e.owner)
	require.NoError(t, err)

	// Our stored envelope is now dead weight; the sweep removes it.
	removed, err := e.mgr.SyncPending(ctx, e.contract)
	require.NoError(t, err)
	require.Len(t, removed, 1)

	entries, err := e.mgr.PendingEntries(ctx, e.contract)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOperationsListsAllRecords(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first := e.requestOwnershipTransfer(t)
	_, err := e.mgr.CancelOperation(ctx, e.contract, optype.OwnershipTransfer, first.OperationID, e.recovery)
	require.NoError(t, err)
	second := e.requestOwnershipTransfer(t)

	recs, err := e.mgr.Operations(ctx, e.contract)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, optype.StatusCancelled, recs[0].Status)
	assert.Equal(t, second.OperationID, recs[1].OperationID)
}
