package optype

import (
	"github.com/PracticalParticle/secureops/internal/chain"
)

// Built-in operation type names.
const (
	OwnershipTransfer = "OWNERSHIP_TRANSFER"
	BroadcasterUpdate = "BROADCASTER_UPDATE"
	RecoveryUpdate    = "RECOVERY_UPDATE"
	TimelockUpdate    = "TIMELOCK_UPDATE"
	TokenMint         = "TOKEN_MINT"
	TokenBurn         = "TOKEN_BURN"
)

// Builtin returns a registry populated with the standard operation
// table. The table is compiled statically: every type the engine can
// drive is declared here, in one place, at startup.
//
// Role table notes:
//   - Ownership transfer is the special case: recovery requests it,
//     but approval accepts owner OR recovery, and only the owner can
//     sign a meta-cancellation.
//   - Recovery, timelock and token operations are single-phase: the
//     owner signs, the broadcaster submits, no timelock review.
func Builtin() *Registry {
	r := NewRegistry()
	for _, def := range builtinDefinitions() {
		if err := r.Register(def); err != nil {
			// The static table registering twice is a programming
			// error, not a runtime condition.
			panic(err)
		}
	}
	return r
}

func builtinDefinitions() []Definition {
	return []Definition{
		{
			Name:        OwnershipTransfer,
			Description: "Transfer contract ownership to the recovery address",
			TypeID:      ComputeTypeID(OwnershipTransfer),
			Kind:        MultiPhase,
			Selector:    chain.SelectorFromSignature("transferOwnership(address)"),
			Roles: map[Phase]Role{
				PhaseRequest:     RoleRecovery,
				PhaseApprove:     RoleOwnerOrRecovery,
				PhaseCancel:      RoleRecovery,
				PhaseMetaApprove: RoleOwnerOrRecovery,
				PhaseMetaCancel:  RoleOwner,
			},
		},
		{
			Name:        BroadcasterUpdate,
			Description: "Change the broadcaster address",
			TypeID:      ComputeTypeID(BroadcasterUpdate),
			Kind:        MultiPhase,
			Selector:    chain.SelectorFromSignature("updateBroadcaster(address)"),
			Roles: map[Phase]Role{
				PhaseRequest:     RoleOwner,
				PhaseApprove:     RoleOwner,
				PhaseCancel:      RoleOwner,
				PhaseMetaApprove: RoleOwner,
				PhaseMetaCancel:  RoleOwner,
			},
		},
		{
			Name:        RecoveryUpdate,
			Description: "Change the recovery address",
			TypeID:      ComputeTypeID(RecoveryUpdate),
			Kind:        SinglePhase,
			Selector:    chain.SelectorFromSignature("updateRecoveryAddress(address)"),
			Roles: map[Phase]Role{
				PhaseMetaApprove: RoleOwner,
			},
		},
		{
			Name:        TimelockUpdate,
			Description: "Change the timelock duration",
			TypeID:      ComputeTypeID(TimelockUpdate),
			Kind:        SinglePhase,
			Selector:    chain.SelectorFromSignature("updateTimeLockPeriod(uint256)"),
			Roles: map[Phase]Role{
				PhaseMetaApprove: RoleOwner,
			},
		},
		{
			Name:        TokenMint,
			Description: "Mint tokens to an address",
			TypeID:      ComputeTypeID(TokenMint),
			Kind:        SinglePhase,
			Selector:    chain.SelectorFromSignature("mint(address,uint256)"),
			Roles: map[Phase]Role{
				PhaseMetaApprove: RoleOwner,
			},
		},
		{
			Name:        TokenBurn,
			Description: "Burn tokens from an address",
			TypeID:      ComputeTypeID(TokenBurn),
			Kind:        SinglePhase,
			Selector:    chain.SelectorFromSignature("burn(address,uint256)"),
			Roles: map[Phase]Role{
				PhaseMetaApprove: RoleOwner,
			},
		},
	}
}
