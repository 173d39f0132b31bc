package roles

import (
	"github.com/PracticalParticle/secureops/internal/chain"
	"github.com/PracticalParticle/secureops/internal/optype"
)

// CanExecute reports whether addr satisfies the role required for phase
// of the given operation type, under the resolved role set.
//
// Pure function: no network, no cache. A phase the definition does not
// declare is closed to everyone. The zero address never qualifies, even
// if the contract somehow reports a zero role holder.
func CanExecute(addr chain.Address, def *optype.Definition, phase optype.Phase, set RoleSet) bool {
	if def == nil || addr.IsZero() {
		return false
	}
	required, ok := def.RequiredRole(phase)
	if !ok {
		return false
	}
	return HoldsRole(addr, required, set)
}

// HoldsRole reports whether addr satisfies role under set.
func HoldsRole(addr chain.Address, role optype.Role, set RoleSet) bool {
	if addr.IsZero() {
		return false
	}
	switch role {
	case optype.RoleOwner:
		return addr == set.Owner
	case optype.RoleBroadcaster:
		return addr == set.Broadcaster
	case optype.RoleRecovery:
		return addr == set.Recovery
	case optype.RoleOwnerOrRecovery:
		return addr == set.Owner || addr == set.Recovery
	default:
		return false
	}
}
