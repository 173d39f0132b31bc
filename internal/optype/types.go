// Package optype defines the operation type catalog: which sensitive
// operations exist, which workflow shape each follows, and which role
// may act at each phase.
package optype

import (
	"fmt"

	"github.com/PracticalParticle/secureops/internal/chain"
)

// Role is an authority tier resolved from contract state.
type Role int

const (
	// RoleOwner is the contract owner.
	RoleOwner Role = iota
	// RoleBroadcaster is the party allowed to submit meta-transactions.
	RoleBroadcaster
	// RoleRecovery is the fallback authority for ownership operations.
	RoleRecovery
	// RoleOwnerOrRecovery accepts either the owner or the recovery
	// address. Used by ownership transfer approval.
	RoleOwnerOrRecovery
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "OWNER"
	case RoleBroadcaster:
		return "BROADCASTER"
	case RoleRecovery:
		return "RECOVERY"
	case RoleOwnerOrRecovery:
		return "OWNER_OR_RECOVERY"
	default:
		return "UNKNOWN"
	}
}

// Phase is a point in the operation workflow at which a party acts.
type Phase int

const (
	// PhaseRequest opens a multi-phase operation and starts its timelock.
	PhaseRequest Phase = iota
	// PhaseApprove is the direct, on-chain approval after the timelock.
	PhaseApprove
	// PhaseCancel aborts a pending operation.
	PhaseCancel
	// PhaseMetaApprove is an off-chain signature authorizing approval.
	PhaseMetaApprove
	// PhaseMetaCancel is an off-chain signature authorizing cancellation.
	PhaseMetaCancel
)

func (p Phase) String() string {
	switch p {
	case PhaseRequest:
		return "REQUEST"
	case PhaseApprove:
		return "APPROVE"
	case PhaseCancel:
		return "CANCEL"
	case PhaseMetaApprove:
		return "META_APPROVE"
	case PhaseMetaCancel:
		return "META_CANCEL"
	default:
		return "UNKNOWN"
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "REQUEST":
		return PhaseRequest, nil
	case "APPROVE":
		return PhaseApprove, nil
	case "CANCEL":
		return PhaseCancel, nil
	case "META_APPROVE":
		return PhaseMetaApprove, nil
	case "META_CANCEL":
		return PhaseMetaCancel, nil
	default:
		return 0, fmt.Errorf("parse phase %q: unknown phase", s)
	}
}

// WorkflowKind distinguishes two-step timelocked operations from
// single-step signed operations.
type WorkflowKind int

const (
	// MultiPhase operations require a request, a timelock wait, and a
	// separate approval (or cancellation).
	MultiPhase WorkflowKind = iota
	// SinglePhase operations combine request and approval into one
	// signed meta-transaction; there is no timelock review window.
	SinglePhase
)

func (k WorkflowKind) String() string {
	switch k {
	case MultiPhase:
		return "MULTI_PHASE"
	case SinglePhase:
		return "SINGLE_PHASE"
	default:
		return "UNKNOWN"
	}
}

// Status is the lifecycle state of an operation record. Pending is the
// only non-terminal state; a record never leaves a terminal state.
type Status int

const (
	StatusUndefined Status = iota
	StatusPending
	StatusCompleted
	StatusCancelled
	StatusFailed
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusUndefined:
		return "UNDEFINED"
	case StatusPending:
		return "PENDING"
	case StatusCompleted:
		return "COMPLETED"
	case StatusCancelled:
		return "CANCELLED"
	case StatusFailed:
		return "FAILED"
	case StatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed, StatusRejected:
		return true
	default:
		return false
	}
}

// Definition is the immutable metadata for one operation type.
//
// Roles maps each phase a party can act in to the role required for it.
// A phase absent from Roles is not available for the type at all: no
// address is authorized, whatever roles it holds.
type Definition struct {
	Name        string
	Description string
	TypeID      TypeID
	Kind        WorkflowKind
	Selector    chain.Selector
	Roles       map[Phase]Role
}

// RequiredRole returns the role required for phase, and whether the
// phase is available for this type.
func (d *Definition) RequiredRole(phase Phase) (Role, bool) {
	r, ok := d.Roles[phase]
	return r, ok
}
