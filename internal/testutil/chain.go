package testutil

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PracticalParticle/secureops/internal/chain"
	"github.com/PracticalParticle/secureops/internal/metatx"
	"github.com/PracticalParticle/secureops/internal/optype"
	"github.com/PracticalParticle/secureops/internal/roles"
)

// Read selectors the fake answers, mirroring the contract's accessors.
var (
	selOwner       = chain.SelectorFromSignature("owner()")
	selBroadcaster = chain.SelectorFromSignature("getBroadcaster()")
	selRecovery    = chain.SelectorFromSignature("getRecoveryAddress()")
	selTimelock    = chain.SelectorFromSignature("getTimeLockPeriodInSeconds()")
)

// ContractState is the emulated on-chain state of one deployed contract.
type ContractState struct {
	Addr        chain.Address
	Owner       chain.Address
	Broadcaster chain.Address
	Recovery    chain.Address
	Timelock    time.Duration

	records  map[uint64]optype.OperationRecord
	nextID   uint64
	executed map[string]struct{}
	balances map[chain.Address]*big.Int
}

// FakeChain emulates the contract side of the workflow. It is the
// authority the engine defers to: it enforces roles, the timelock and
// meta-transaction replay protection itself, so tests prove the engine
// cooperates with enforcement rather than substitutes for it.
//
// Transactions confirm synchronously: Submit executes the call and
// WaitForConfirmation hands back the stored receipt.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeChain struct {
	chainID  uint64
	clock    chain.Clock
	registry *optype.Registry

	mu        sync.Mutex
	gasPrice  *big.Int
	contracts map[chain.Address]*ContractState
	receipts  map[chain.TxHandle]chain.Receipt

	failSubmit error
	failWait   error
}

// NewFakeChain creates an empty chain with the given id.
func NewFakeChain(chainID uint64, registry *optype.Registry, clock chain.Clock) *FakeChain {
	return &FakeChain{
		chainID:   chainID,
		clock:     clock,
		registry:  registry,
		gasPrice:  big.NewInt(1_000_000_000),
		contracts: make(map[chain.Address]*ContractState),
		receipts:  make(map[chain.TxHandle]chain.Receipt),
	}
}

// Deploy creates a contract with the given role assignment and returns
// its address.
func (f *FakeChain) Deploy(owner, broadcaster, recovery chain.Address, timelock time.Duration) chain.Address {
	f.mu.Lock()
	defer f.mu.Unlock()

	var addr chain.Address
	addr[0] = 0xc0
	addr[chain.AddressLen-1] = byte(len(f.contracts) + 1)
	f.contracts[addr] = &ContractState{
		Addr:        addr,
		Owner:       owner,
		Broadcaster: broadcaster,
		Recovery:    recovery,
		Timelock:    timelock,
		records:     make(map[uint64]optype.OperationRecord),
		executed:    make(map[string]struct{}),
		balances:    make(map[chain.Address]*big.Int),
	}
	return addr
}

// State returns the live state of a deployed contract for assertions.
func (f *FakeChain) State(contract chain.Address) *ContractState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contracts[contract]
}

// Balance returns the token balance of addr on contract.
func (f *FakeChain) Balance(contract, addr chain.Address) *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[contract]
	if !ok {
		return big.NewInt(0)
	}
	if b, ok := c.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

// SetBalance seeds a token balance.
func (f *FakeChain) SetBalance(contract, addr chain.Address, amount *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contracts[contract].balances[addr] = new(big.Int).Set(amount)
}

// SetGasPrice changes the reported network gas price.
func (f *FakeChain) SetGasPrice(p *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gasPrice = new(big.Int).Set(p)
}

// FailNextSubmit makes the next Submit fail with err.
func (f *FakeChain) FailNextSubmit(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSubmit = err
}

// FailNextWait makes the next WaitForConfirmation fail with err. The
// submitted transaction still executes, emulating a confirmation
// timeout on a landed transaction.
func (f *FakeChain) FailNextWait(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWait = err
}

// ChainID implements chain.Reader.
func (f *FakeChain) ChainID(ctx context.Context) (uint64, error) {
	return f.chainID, ctx.Err()
}

// GasPrice implements chain.Reader.
func (f *FakeChain) GasPrice(ctx context.Context) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.gasPrice), nil
}

// ReadState implements chain.Reader for the role accessor selectors.
func (f *FakeChain) ReadState(ctx context.Context, contract chain.Address, selector chain.Selector, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.contracts[contract]
	if !ok {
		return nil, fmt.Errorf("read %s at %s: %w", selector, contract, chain.ErrContractNotFound)
	}
	switch selector {
	case selOwner:
		return chain.AddressToWord(c.Owner), nil
	case selBroadcaster:
		return chain.AddressToWord(c.Broadcaster), nil
	case selRecovery:
		return chain.AddressToWord(c.Recovery), nil
	case selTimelock:
		return chain.Uint64ToWord(uint64(c.Timelock / time.Second)), nil
	default:
		return nil, fmt.Errorf("read %s at %s: unknown selector", selector, contract)
	}
}

// Submit implements chain.Writer. Execution happens here; the receipt
// is released by WaitForConfirmation.
func (f *FakeChain) Submit(ctx context.Context, contract chain.Address, selector chain.Selector, args []byte, from chain.Address) (chain.TxHandle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSubmit != nil {
		err := f.failSubmit
		f.failSubmit = nil
		return "", err
	}

	c, ok := f.contracts[contract]
	if !ok {
		return "", fmt.Errorf("submit to %s: %w", contract, chain.ErrContractNotFound)
	}

	receipt := f.execute(c, selector, args, from)
	receipt.TxHandle = chain.TxHandle(uuid.NewString())
	receipt.ConfirmedAt = f.clock.Now()
	f.receipts[receipt.TxHandle] = receipt
	return receipt.TxHandle, nil
}

// WaitForConfirmation implements chain.Writer.
func (f *FakeChain) WaitForConfirmation(ctx context.Context, h chain.TxHandle) (chain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return chain.Receipt{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWait != nil {
		err := f.failWait
		f.failWait = nil
		return chain.Receipt{}, err
	}
	receipt, ok := f.receipts[h]
	if !ok {
		return chain.Receipt{}, fmt.Errorf("wait for %s: %w", h, chain.ErrNetworkTimeout)
	}
	return receipt, nil
}

// ReadOperation returns the record for an operation id. An unknown id
// yields a zero record with StatusUndefined, matching a contract
// returning empty storage.
func (f *FakeChain) ReadOperation(ctx context.Context, contract chain.Address, operationID uint64) (optype.OperationRecord, error) {
	if err := ctx.Err(); err != nil {
		return optype.OperationRecord{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.contracts[contract]
	if !ok {
		return optype.OperationRecord{}, fmt.Errorf("read operation at %s: %w", contract, chain.ErrContractNotFound)
	}
	return c.records[operationID], nil
}

// ListOperations returns all records for a contract, ascending by id.
func (f *FakeChain) ListOperations(ctx context.Context, contract chain.Address) ([]optype.OperationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.contracts[contract]
	if !ok {
		return nil, fmt.Errorf("list operations at %s: %w", contract, chain.ErrContractNotFound)
	}
	recs := make([]optype.OperationRecord, 0, len(c.records))
	for _, rec := range c.records {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].OperationID < recs[j].OperationID })
	return recs, nil
}

func revert(reason string) chain.Receipt {
	return chain.Receipt{Success: false, Reason: reason}
}

// execute runs one contract call under f.mu.
func (f *FakeChain) execute(c *ContractState, selector chain.Selector, args []byte, from chain.Address) chain.Receipt {
	switch selector {
	case optype.SelTxRequest:
		return f.execRequest(c, args, from)
	case optype.SelTxDelayedApproval:
		return f.execDirect(c, args, from, optype.PhaseApprove)
	case optype.SelTxCancellation:
		return f.execDirect(c, args, from, optype.PhaseCancel)
	case optype.SelTxApprovalWithMetaTx:
		return f.execMeta(c, args, from, optype.PhaseMetaApprove)
	case optype.SelTxCancellationWithMetaTx:
		return f.execMeta(c, args, from, optype.PhaseMetaCancel)
	case optype.SelRequestAndApproveWithMetaTx:
		return f.execSinglePhase(c, args, from)
	default:
		return revert("unknown function selector")
	}
}

func (c *ContractState) roleSet() roles.RoleSet {
	return roles.RoleSet{
		Owner:       c.Owner,
		Broadcaster: c.Broadcaster,
		Recovery:    c.Recovery,
		Timelock:    c.Timelock,
	}
}

func (f *FakeChain) execRequest(c *ContractState, args []byte, from chain.Address) chain.Receipt {
	var call struct {
		OperationType string        `json:"operation_type"`
		Params        metatx.Params `json:"params"`
	}
	if err := json.Unmarshal(args, &call); err != nil {
		return revert("malformed request args")
	}
	typeID, err := optype.ParseTypeID(call.OperationType)
	if err != nil {
		return revert("malformed operation type")
	}
	def, ok := f.registry.LookupByHash(typeID)
	if !ok {
		return revert("unknown operation type")
	}
	if def.Kind != optype.MultiPhase {
		return revert("operation type is not requestable")
	}
	if !roles.CanExecute(from, def, optype.PhaseRequest, c.roleSet()) {
		return revert("caller lacks request role")
	}

	c.nextID++
	id := c.nextID
	c.records[id] = optype.OperationRecord{
		OperationID: id,
		TypeID:      def.TypeID,
		Requester:   from,
		Target:      c.Addr,
		ReleaseTime: f.clock.Now().Add(c.Timelock).Unix(),
		Status:      optype.StatusPending,
		Params:      call.Params,
	}
	return chain.Receipt{Success: true, OperationID: id}
}

func (f *FakeChain) execDirect(c *ContractState, args []byte, from chain.Address, phase optype.Phase) chain.Receipt {
	var call struct {
		OperationID uint64 `json:"operation_id"`
	}
	if err := json.Unmarshal(args, &call); err != nil {
		return revert("malformed args")
	}
	rec, ok := c.records[call.OperationID]
	if !ok || rec.Status != optype.StatusPending {
		return revert("operation is not pending")
	}
	def, ok := f.registry.LookupByHash(rec.TypeID)
	if !ok {
		return revert("unknown operation type")
	}
	if !roles.CanExecute(from, def, phase, c.roleSet()) {
		return revert("caller lacks role")
	}

	if phase == optype.PhaseApprove {
		if f.clock.Now().Unix() < rec.ReleaseTime {
			return revert("timelock has not elapsed")
		}
		return f.finalize(c, rec, def, optype.ExecStandard)
	}
	rec.Status = optype.StatusCancelled
	rec.ExecutionType = optype.ExecStandard
	c.records[rec.OperationID] = rec
	return chain.Receipt{Success: true, OperationID: rec.OperationID}
}

func (f *FakeChain) execMeta(c *ContractState, args []byte, from chain.Address, phase optype.Phase) chain.Receipt {
	signed, def, receipt := f.verifyEnvelope(c, args, from, phase)
	if !receipt.Success {
		return receipt
	}

	rec, ok := c.records[signed.Payload.OperationID]
	if !ok || rec.Status != optype.StatusPending {
		return revert("operation is not pending")
	}
	if rec.TypeID != signed.Payload.TypeID {
		return revert("envelope type does not match operation")
	}

	c.executed[hex.EncodeToString(signed.Digest)] = struct{}{}
	if phase == optype.PhaseMetaCancel {
		rec.Status = optype.StatusCancelled
		rec.ExecutionType = optype.ExecMeta
		c.records[rec.OperationID] = rec
		return chain.Receipt{Success: true, OperationID: rec.OperationID}
	}
	return f.finalize(c, rec, def, optype.ExecMeta)
}

func (f *FakeChain) execSinglePhase(c *ContractState, args []byte, from chain.Address) chain.Receipt {
	signed, def, receipt := f.verifyEnvelope(c, args, from, optype.PhaseMetaApprove)
	if !receipt.Success {
		return receipt
	}
	if def.Kind != optype.SinglePhase {
		return revert("operation type requires a prior request")
	}

	c.executed[hex.EncodeToString(signed.Digest)] = struct{}{}
	c.nextID++
	rec := optype.OperationRecord{
		OperationID: c.nextID,
		TypeID:      def.TypeID,
		Requester:   signed.Payload.Signer,
		Target:      c.Addr,
		Value:       signed.Payload.Value,
		ReleaseTime: f.clock.Now().Unix(),
		Status:      optype.StatusPending,
		Params:      signed.Payload.Params,
	}
	return f.finalize(c, rec, def, optype.ExecMeta)
}

// verifyEnvelope is the contract-side envelope check shared by the meta
// entry points: broadcaster gate, decode, chain binding, signature and
// conditions, action binding, replay protection, signer role.
func (f *FakeChain) verifyEnvelope(c *ContractState, args []byte, from chain.Address, phase optype.Phase) (*metatx.Signed, *optype.Definition, chain.Receipt) {
	if from != c.Broadcaster {
		return nil, nil, revert("caller is not the broadcaster")
	}
	signed, err := metatx.Decode(args)
	if err != nil {
		return nil, nil, revert("malformed signed envelope")
	}
	if signed.Payload.ChainID != f.chainID {
		return nil, nil, revert("wrong chain")
	}
	if err := metatx.Verify(signed, f.clock.Now(), f.gasPrice); err != nil {
		return nil, nil, revert("signature verification failed")
	}
	if signed.Payload.Phase != phase {
		return nil, nil, revert("envelope does not authorize this action")
	}
	if _, done := c.executed[hex.EncodeToString(signed.Digest)]; done {
		return nil, nil, revert("meta-transaction already executed")
	}
	def, ok := f.registry.LookupByHash(signed.Payload.TypeID)
	if !ok {
		return nil, nil, revert("unknown operation type")
	}
	if !roles.CanExecute(signed.Payload.Signer, def, phase, c.roleSet()) {
		return nil, nil, revert("signer lacks role")
	}
	return signed, def, chain.Receipt{Success: true}
}

// finalize applies the operation's effect and completes the record.
// An effect that cannot apply marks the record failed, not completed.
func (f *FakeChain) finalize(c *ContractState, rec optype.OperationRecord, def *optype.Definition, exec optype.ExecutionType) chain.Receipt {
	rec.ExecutionType = exec
	if err := f.applyEffect(c, &rec, def); err != nil {
		rec.Status = optype.StatusFailed
		c.records[rec.OperationID] = rec
		return chain.Receipt{Success: true, OperationID: rec.OperationID, Reason: err.Error()}
	}
	rec.Status = optype.StatusCompleted
	c.records[rec.OperationID] = rec
	return chain.Receipt{Success: true, OperationID: rec.OperationID}
}

func (f *FakeChain) applyEffect(c *ContractState, rec *optype.OperationRecord, def *optype.Definition) error {
	switch def.Name {
	case optype.OwnershipTransfer:
		// Ownership always transfers to the recovery address; the
		// request carries no override.
		c.Owner = c.Recovery
	case optype.BroadcasterUpdate:
		addr, err := paramAddress(rec.Params, "newBroadcaster")
		if err != nil {
			return err
		}
		c.Broadcaster = addr
	case optype.RecoveryUpdate:
		addr, err := paramAddress(rec.Params, "newRecovery")
		if err != nil {
			return err
		}
		c.Recovery = addr
	case optype.TimelockUpdate:
		seconds, err := paramAmount(rec.Params, "periodSeconds")
		if err != nil {
			return err
		}
		c.Timelock = time.Duration(seconds.Int64()) * time.Second
	case optype.TokenMint:
		to, err := paramAddress(rec.Params, "to")
		if err != nil {
			return err
		}
		amount, err := paramAmount(rec.Params, "amount")
		if err != nil {
			return err
		}
		c.credit(to, amount)
	case optype.TokenBurn:
		from, err := paramAddress(rec.Params, "from")
		if err != nil {
			return err
		}
		amount, err := paramAmount(rec.Params, "amount")
		if err != nil {
			return err
		}
		bal := c.balances[from]
		if bal == nil || bal.Cmp(amount) < 0 {
			return fmt.Errorf("burn exceeds balance")
		}
		bal.Sub(bal, amount)
	default:
		return fmt.Errorf("no effect for %s", def.Name)
	}
	return nil
}

func (c *ContractState) credit(addr chain.Address, amount *big.Int) {
	if c.balances[addr] == nil {
		c.balances[addr] = big.NewInt(0)
	}
	c.balances[addr].Add(c.balances[addr], amount)
}

func paramAddress(params map[string]any, key string) (chain.Address, error) {
	s, ok := params[key].(string)
	if !ok {
		return chain.ZeroAddress, fmt.Errorf("missing address param %q", key)
	}
	addr, err := chain.ParseAddress(s)
	if err != nil {
		return chain.ZeroAddress, fmt.Errorf("bad address param %q: %w", key, err)
	}
	return addr, nil
}

func paramAmount(params map[string]any, key string) (*big.Int, error) {
	switch v := params[key].(type) {
	case int64:
		return big.NewInt(v), nil
	case *big.Int:
		return v, nil
	case json.Number:
		n, ok := new(big.Int).SetString(v.String(), 10)
		if !ok {
			return nil, fmt.Errorf("bad amount param %q", key)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("missing amount param %q", key)
	}
}

var _ chain.Client = (*FakeChain)(nil)
