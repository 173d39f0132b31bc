package workflow

import (
	"errors"
	"fmt"

	"github.com/PracticalParticle/secureops/internal/chain"
)

// Error is a structured workflow failure.
//
// Code categorizes the failure for programmatic handling; Message plus
// the contextual fields give the presentation layer enough to explain
// why without the engine knowing anything about rendering.
type Error struct {
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Operation is the operation type name, when known.
	Operation string

	// OperationID identifies the affected operation instance, when known.
	OperationID uint64

	// Caller is the address whose call failed, when relevant.
	Caller chain.Address

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes workflow errors.
type ErrorCode string

const (
	// ErrCodeUnknownType indicates an operation type not in the registry.
	ErrCodeUnknownType ErrorCode = "UNKNOWN_OPERATION_TYPE"

	// ErrCodeUnknownOperation indicates no record exists for the id.
	ErrCodeUnknownOperation ErrorCode = "UNKNOWN_OPERATION"

	// ErrCodeUnauthorized indicates the role check failed.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeAlreadyPending indicates a second call for the same
	// operation while one is outstanding, or a second signature for a
	// key that already has an unbroadcast one.
	ErrCodeAlreadyPending ErrorCode = "OPERATION_ALREADY_PENDING"

	// ErrCodeWrongWorkflowKind indicates a phase call that the
	// operation's workflow shape does not support.
	ErrCodeWrongWorkflowKind ErrorCode = "WRONG_WORKFLOW_KIND"

	// ErrCodeInvalidParams indicates operation parameters that cannot
	// be canonically encoded.
	ErrCodeInvalidParams ErrorCode = "INVALID_PARAMS"

	// ErrCodeNotPending indicates the record is not in the pending
	// state the transition requires.
	ErrCodeNotPending ErrorCode = "OPERATION_NOT_PENDING"

	// ErrCodeTimelockActive indicates direct approval before the
	// release time.
	ErrCodeTimelockActive ErrorCode = "TIMELOCK_NOT_ELAPSED"

	// ErrCodeVerifyFailed indicates a signed envelope that failed local
	// verification; nothing was submitted.
	ErrCodeVerifyFailed ErrorCode = "SIGNATURE_VERIFICATION_FAILED"

	// ErrCodeChainMismatch indicates the envelope targets another chain.
	ErrCodeChainMismatch ErrorCode = "CHAIN_MISMATCH"

	// ErrCodeReverted indicates the contract executed and rejected the
	// submission.
	ErrCodeReverted ErrorCode = "CONTRACT_REVERTED"

	// ErrCodeStore indicates a pending store failure (full, corrupt,
	// invalid data). The underlying sentinel stays reachable via
	// errors.Is / errors.As.
	ErrCodeStore ErrorCode = "PENDING_STORE"

	// ErrCodeNetwork indicates a transient network failure. Retryable,
	// but only after re-checking on-chain state: the submission may
	// have landed.
	ErrCodeNetwork ErrorCode = "NETWORK"

	// ErrCodeWalletRejected indicates the user cancelled signing.
	ErrCodeWalletRejected ErrorCode = "WALLET_REJECTED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Operation != "" && e.OperationID != 0:
		return fmt.Sprintf("%s: %s (op=%s, id=%d)", e.Code, e.Message, e.Operation, e.OperationID)
	case e.Operation != "":
		return fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Operation)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the workflow error code, or "" for non-workflow errors.
func CodeOf(err error) ErrorCode {
	var we *Error
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}

// IsRetryable reports whether err is a transient failure the caller may
// retry after re-checking on-chain state.
func IsRetryable(err error) bool {
	return CodeOf(err) == ErrCodeNetwork
}
