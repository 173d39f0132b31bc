package chain

import (
	"context"
	"math/big"
	"time"
)

// TxHandle identifies a submitted transaction while it awaits confirmation.
type TxHandle string

// Receipt is the confirmed outcome of a submitted transaction.
type Receipt struct {
	TxHandle TxHandle
	// Success is false when the transaction was included but reverted.
	Success bool
	// Reason is the decoded revert reason, when available.
	Reason string
	// OperationID is the operation allocated or affected by the call,
	// zero when the call did not touch an operation record.
	OperationID uint64
	ConfirmedAt time.Time
}

// Reader is the read-only slice of the chain client.
//
// ReadState performs an eth_call-style constant read and returns the raw
// ABI-encoded result words. Implementations must honor ctx cancellation
// and surface ErrContractNotFound when no code exists at contract.
type Reader interface {
	ChainID(ctx context.Context) (uint64, error)
	ReadState(ctx context.Context, contract Address, selector Selector, args []byte) ([]byte, error)
	GasPrice(ctx context.Context) (*big.Int, error)
}

// Writer is the state-changing slice of the chain client.
//
// Submit signs nothing itself: caller identity travels as the from address
// and the node or wallet layer attaches the transaction signature. The
// engine's own authorization checks run before Submit is ever reached.
type Writer interface {
	Submit(ctx context.Context, contract Address, selector Selector, args []byte, from Address) (TxHandle, error)
	WaitForConfirmation(ctx context.Context, h TxHandle) (Receipt, error)
}

// Client is the full chain collaborator surface the engine consumes.
type Client interface {
	Reader
	Writer
}

// Wallet is the external key custodian. It receives message digests only,
// never payloads to interpret and never key material to hand out.
//
// RequestSignature may block arbitrarily long on user interaction and must
// return ErrWalletRejected (possibly wrapped) when the user cancels.
type Wallet interface {
	RequestSignature(ctx context.Context, digest []byte, signer Address) ([]byte, error)
	// PublicKeyFor returns the verifying key for an address held by this
	// wallet, so envelopes can embed it for third-party verification.
	PublicKeyFor(signer Address) ([]byte, error)
}

// Word is the fixed width of an ABI-encoded value slot.
const Word = 32

// WordToAddress decodes an address from a right-aligned 32-byte ABI word.
func WordToAddress(w []byte) Address {
	var a Address
	if len(w) >= Word {
		copy(a[:], w[Word-AddressLen:Word])
	}
	return a
}

// AddressToWord encodes an address as a right-aligned 32-byte ABI word.
func AddressToWord(a Address) []byte {
	w := make([]byte, Word)
	copy(w[Word-AddressLen:], a[:])
	return w
}

// Uint64ToWord encodes v as a right-aligned 32-byte ABI word.
func Uint64ToWord(v uint64) []byte {
	w := make([]byte, Word)
	for i := 0; i < 8; i++ {
		w[Word-1-i] = byte(v >> (8 * i))
	}
	return w
}

// WordToUint64 decodes a right-aligned 32-byte ABI word as uint64.
// High-order bytes beyond uint64 range are ignored.
func WordToUint64(w []byte) uint64 {
	var v uint64
	if len(w) < Word {
		return 0
	}
	for i := 0; i < 8; i++ {
		v |= uint64(w[Word-1-i]) << (8 * i)
	}
	return v
}
