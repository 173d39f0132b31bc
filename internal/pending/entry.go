// Package pending is the durable, size-bounded store of signed but not
// yet executed meta-transactions.
//
// The store is local and never authoritative: the contract decides what
// actually happened. Entries exist so a signature obtained once is not
// lost to a reload, and so the engine can refuse to let a user re-sign
// an operation that already has an unbroadcast signature.
package pending

import (
	"errors"
	"fmt"

	"github.com/PracticalParticle/secureops/internal/chain"
)

var (
	// ErrInvalidData indicates an empty key or empty signed payload.
	ErrInvalidData = errors.New("invalid pending entry data")

	// ErrStorageFull indicates the write would exceed the store quota.
	ErrStorageFull = errors.New("pending store quota exceeded")

	// ErrNotFound indicates no entry exists for the key.
	ErrNotFound = errors.New("pending entry not found")
)

// SerializationError reports a stored entry that cannot be decoded.
//
// This is deliberately distinct from ErrNotFound: a corrupted pending
// entry must not be treated as "no pending transaction", or the user
// would be allowed to re-sign and produce a duplicate authorization.
type SerializationError struct {
	Key Key
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("corrupt pending entry %s: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// EntryStatus is the local lifecycle of a stored signature.
type EntryStatus string

const (
	// EntryPending means signed and awaiting broadcast.
	EntryPending EntryStatus = "PENDING"
	// EntryCompleted means the contract reported a terminal state; the
	// entry survives only until cleanup removes it.
	EntryCompleted EntryStatus = "COMPLETED"
)

func validStatus(s EntryStatus) bool {
	return s == EntryPending || s == EntryCompleted
}

// Key addresses one entry: the contract plus the operation id (or the
// synthetic id allocated for single-phase operations that have no
// on-chain id yet).
type Key struct {
	Contract    chain.Address
	OperationID string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Contract, k.OperationID)
}

func (k Key) empty() bool {
	return k.Contract.IsZero() || k.OperationID == ""
}

// Metadata describes an entry for listing and display.
type Metadata struct {
	// Type is the operation type name.
	Type string
	// Purpose is optional free-form context ("approve", "cancel", ...).
	Purpose string
	// Broadcast records whether the envelope has been submitted.
	Broadcast bool
	// Status is the local entry lifecycle state.
	Status EntryStatus
}

// Entry is one stored signed meta-transaction.
type Entry struct {
	Key Key
	// SignedData is the serialized signed envelope (metatx.Encode output).
	SignedData string
	// Timestamp is the unix second the signature was obtained.
	Timestamp int64
	Metadata  Metadata
}
