package roles_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PracticalParticle/secureops/internal/chain"
	"github.com/PracticalParticle/secureops/internal/optype"
	"github.com/PracticalParticle/secureops/internal/roles"
)

func testRoleSet() roles.RoleSet {
	return roles.RoleSet{
		Owner:       addr(0xa1),
		Broadcaster: addr(0xb2),
		Recovery:    addr(0xc3),
		Timelock:    time.Minute,
	}
}

func mustDef(t *testing.T, name string) *optype.Definition {
	t.Helper()
	def, ok := optype.Builtin().LookupByName(name)
	require.True(t, ok)
	return def
}

func TestCanExecuteOwnershipTransferPhases(t *testing.T) {
	def := mustDef(t, optype.OwnershipTransfer)
	set := testRoleSet()
	owner, recovery, broadcaster := addr(0xa1), addr(0xc3), addr(0xb2)

	cases := []struct {
		name  string
		who   chain.Address
		phase optype.Phase
		want  bool
	}{
		{"recovery requests", recovery, optype.PhaseRequest, true},
		{"owner cannot request", owner, optype.PhaseRequest, false},
		{"owner approves", owner, optype.PhaseApprove, true},
		{"recovery approves", recovery, optype.PhaseApprove, true},
		{"broadcaster cannot approve", broadcaster, optype.PhaseApprove, false},
		{"recovery cancels", recovery, optype.PhaseCancel, true},
		{"owner cannot cancel", owner, optype.PhaseCancel, false},
		{"owner signs meta-approval", owner, optype.PhaseMetaApprove, true},
		{"recovery signs meta-approval", recovery, optype.PhaseMetaApprove, true},
		{"owner signs meta-cancellation", owner, optype.PhaseMetaCancel, true},
		{"recovery cannot sign meta-cancellation", recovery, optype.PhaseMetaCancel, false},
		{"stranger nowhere", addr(0x99), optype.PhaseApprove, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, roles.CanExecute(tc.who, def, tc.phase, set))
		})
	}
}

func TestCanExecuteSinglePhaseOnlyDeclaresMetaApprove(t *testing.T) {
	def := mustDef(t, optype.TimelockUpdate)
	set := testRoleSet()
	owner := addr(0xa1)

	assert.True(t, roles.CanExecute(owner, def, optype.PhaseMetaApprove, set))

	// Undeclared phases are closed even to the owner.
	for _, phase := range []optype.Phase{
		optype.PhaseRequest,
		optype.PhaseApprove,
		optype.PhaseCancel,
		optype.PhaseMetaCancel,
	} {
		assert.False(t, roles.CanExecute(owner, def, phase, set), phase.String())
	}
}

func TestCanExecuteZeroAddressNeverQualifies(t *testing.T) {
	def := mustDef(t, optype.BroadcasterUpdate)
	set := testRoleSet()
	set.Owner = chain.ZeroAddress

	assert.False(t, roles.CanExecute(chain.ZeroAddress, def, optype.PhaseRequest, set))
}

func TestCanExecuteNilDefinition(t *testing.T) {
	assert.False(t, roles.CanExecute(addr(0xa1), nil, optype.PhaseRequest, testRoleSet()))
}

func TestHoldsRoleOwnerOrRecovery(t *testing.T) {
	set := testRoleSet()
	assert.True(t, roles.HoldsRole(addr(0xa1), optype.RoleOwnerOrRecovery, set))
	assert.True(t, roles.HoldsRole(addr(0xc3), optype.RoleOwnerOrRecovery, set))
	assert.False(t, roles.HoldsRole(addr(0xb2), optype.RoleOwnerOrRecovery, set))
}
