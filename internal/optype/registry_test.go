package optype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PracticalParticle/secureops/internal/chain"
)

func testDefinition(name string) Definition {
	return Definition{
		Name:     name,
		TypeID:   ComputeTypeID(name),
		Kind:     MultiPhase,
		Selector: chain.SelectorFromSignature("doThing(address)"),
		Roles: map[Phase]Role{
			PhaseRequest: RoleOwner,
			PhaseApprove: RoleOwner,
		},
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	def := testDefinition("THING_UPDATE")
	require.NoError(t, r.Register(def))

	byHash, ok := r.LookupByHash(def.TypeID)
	require.True(t, ok)
	assert.Equal(t, "THING_UPDATE", byHash.Name)

	byName, ok := r.LookupByName("THING_UPDATE")
	require.True(t, ok)
	assert.Equal(t, def.TypeID, byName.TypeID)
}

func TestRegistry_DuplicateTypeID(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testDefinition("THING_UPDATE")))

	err := r.Register(testDefinition("THING_UPDATE"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateOperationType)
}

func TestRegistry_LookupMissing(t *testing.T) {
	r := NewRegistry()
	_, ok := r.LookupByHash(ComputeTypeID("NOPE"))
	assert.False(t, ok)
	_, ok = r.LookupByName("NOPE")
	assert.False(t, ok)
}

func TestRegistry_RegisterCopiesDefinition(t *testing.T) {
	r := NewRegistry()
	def := testDefinition("THING_UPDATE")
	require.NoError(t, r.Register(def))

	// Mutating the caller's role table must not corrupt the catalog.
	def.Roles[PhaseRequest] = RoleRecovery

	got, ok := r.LookupByName("THING_UPDATE")
	require.True(t, ok)
	role, ok := got.RequiredRole(PhaseRequest)
	require.True(t, ok)
	assert.Equal(t, RoleOwner, role)
}

func TestRegistry_DefinitionsPreserveOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"A_UPDATE", "B_UPDATE", "C_UPDATE"}
	for _, n := range names {
		require.NoError(t, r.Register(testDefinition(n)))
	}

	defs := r.Definitions()
	require.Len(t, defs, 3)
	for i, n := range names {
		assert.Equal(t, n, defs[i].Name)
	}
}

func TestRegistry_RejectsEmptyName(t *testing.T) {
	r := NewRegistry()
	def := testDefinition("")
	assert.Error(t, r.Register(def))
}

func TestRegistry_RejectsEmptyRoleTable(t *testing.T) {
	r := NewRegistry()
	def := testDefinition("THING_UPDATE")
	def.Roles = nil
	assert.Error(t, r.Register(def))
}

func TestComputeTypeID_StableAndDistinct(t *testing.T) {
	a := ComputeTypeID(OwnershipTransfer)
	b := ComputeTypeID(OwnershipTransfer)
	c := ComputeTypeID(BroadcasterUpdate)

	assert.Equal(t, a, b, "type id must be stable for a given name")
	assert.NotEqual(t, a, c, "distinct names must hash to distinct ids")
}

func TestParseTypeID_RoundTrip(t *testing.T) {
	id := ComputeTypeID(TokenMint)
	parsed, err := ParseTypeID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseTypeID_RejectsBadLength(t *testing.T) {
	_, err := ParseTypeID("0x1234")
	assert.Error(t, err)
}

func TestBuiltin_ContainsStandardTable(t *testing.T) {
	r := Builtin()

	for _, name := range []string{
		OwnershipTransfer, BroadcasterUpdate, RecoveryUpdate,
		TimelockUpdate, TokenMint, TokenBurn,
	} {
		def, ok := r.LookupByName(name)
		require.True(t, ok, "missing builtin %s", name)
		assert.Equal(t, ComputeTypeID(name), def.TypeID)
	}

	// Ownership transfer role table is the special case worth pinning.
	ot, _ := r.LookupByName(OwnershipTransfer)
	assert.Equal(t, MultiPhase, ot.Kind)
	role, ok := ot.RequiredRole(PhaseRequest)
	require.True(t, ok)
	assert.Equal(t, RoleRecovery, role)
	role, ok = ot.RequiredRole(PhaseApprove)
	require.True(t, ok)
	assert.Equal(t, RoleOwnerOrRecovery, role)
	role, ok = ot.RequiredRole(PhaseMetaCancel)
	require.True(t, ok)
	assert.Equal(t, RoleOwner, role)

	// Single-phase types expose no request phase at all.
	tm, _ := r.LookupByName(TokenMint)
	assert.Equal(t, SinglePhase, tm.Kind)
	_, ok = tm.RequiredRole(PhaseRequest)
	assert.False(t, ok)
}
