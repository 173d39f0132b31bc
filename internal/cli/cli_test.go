package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PracticalParticle/secureops/internal/chain"
	"github.com/PracticalParticle/secureops/internal/optype"
	"github.com/PracticalParticle/secureops/internal/testutil"
)

type cliFixture struct {
	fc          *testutil.FakeChain
	wallet      *testutil.FakeWallet
	contract    chain.Address
	owner       chain.Address
	broadcaster chain.Address
	recovery    chain.Address
	configPath  string
}

// newCLIFixture deploys a zero-timelock contract and writes a profile
// pointing at it, so direct approvals work without waiting.
func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()

	f := &cliFixture{wallet: testutil.NewFakeWallet()}
	f.owner = f.wallet.GenerateKey()
	f.broadcaster = f.wallet.GenerateKey()
	f.recovery = f.wallet.GenerateKey()

	f.fc = testutil.NewFakeChain(31337, optype.Builtin(), chain.SystemClock{})
	f.contract = f.fc.Deploy(f.owner, f.broadcaster, f.recovery, 0)

	dir := t.TempDir()
	f.configPath = filepath.Join(dir, "secureops.yaml")
	profile := fmt.Sprintf(
		"endpoint: fake\nchain_id: 31337\ncontract: %q\nsigner: %q\nstore_path: %q\n",
		f.contract.String(), f.owner.String(), filepath.Join(dir, "pending.db"))
	require.NoError(t, os.WriteFile(f.configPath, []byte(profile), 0o600))
	return f
}

func (f *cliFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	backend := func(ctx context.Context, cfg *Config) (*Backend, error) {
		return &Backend{Client: f.fc, Wallet: f.wallet}, nil
	}
	root := NewRootCommand(backend)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", f.configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRootRejectsInvalidFormat(t *testing.T) {
	f := newCLIFixture(t)
	_, err := f.run(t, "--format", "xml", "roles")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRolesCommand(t *testing.T) {
	f := newCLIFixture(t)
	out, err := f.run(t, "roles")
	require.NoError(t, err)
	assert.Contains(t, out, f.owner.String())
	assert.Contains(t, out, f.broadcaster.String())
	assert.Contains(t, out, f.recovery.String())
}

func TestRequestApproveFlow(t *testing.T) {
	f := newCLIFixture(t)
	newBroadcaster := f.wallet.GenerateKey()

	out, err := f.run(t, "request", optype.BroadcasterUpdate,
		"--params", fmt.Sprintf(`{"newBroadcaster":%q}`, newBroadcaster.String()))
	require.NoError(t, err)
	assert.Contains(t, out, "operation 1 requested")

	out, err = f.run(t, "approve", optype.BroadcasterUpdate, "1")
	require.NoError(t, err)
	assert.Contains(t, out, "operation 1 is COMPLETED")

	assert.Equal(t, newBroadcaster, f.fc.State(f.contract).Broadcaster)
}

func TestApproveUnauthorizedExitsWithFailure(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.run(t, "request", optype.BroadcasterUpdate,
		"--params", fmt.Sprintf(`{"newBroadcaster":%q}`, f.recovery.String()))
	require.NoError(t, err)

	out, err := f.run(t, "approve", optype.BroadcasterUpdate, "1", "--as", f.recovery.String())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "UNAUTHORIZED")
}

func TestSignExecuteAndBroadcast(t *testing.T) {
	f := newCLIFixture(t)
	holder := f.wallet.GenerateKey()

	out, err := f.run(t, "sign", "execute", optype.TokenMint,
		"--params", fmt.Sprintf(`{"to":%q,"amount":1000}`, holder.String()))
	require.NoError(t, err)

	// The synthetic entry id is the last token of the output.
	fields := strings.Fields(strings.TrimSpace(out))
	entryID := fields[len(fields)-1]
	require.True(t, strings.HasPrefix(entryID, "meta-"), out)

	out, err = f.run(t, "pending")
	require.NoError(t, err)
	assert.Contains(t, out, entryID)
	assert.Contains(t, out, optype.TokenMint)

	out, err = f.run(t, "broadcast", entryID, "--as", f.broadcaster.String())
	require.NoError(t, err)
	assert.Contains(t, out, "is COMPLETED")
	assert.Equal(t, int64(1000), f.fc.Balance(f.contract, holder).Int64())

	out, err = f.run(t, "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "no pending envelopes")
}

func TestStatusCommand(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.run(t, "request", optype.BroadcasterUpdate,
		"--params", fmt.Sprintf(`{"newBroadcaster":%q}`, f.recovery.String()))
	require.NoError(t, err)

	out, err := f.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "pending")
}

func TestChainIDMismatchRefusesSession(t *testing.T) {
	f := newCLIFixture(t)
	other := testutil.NewFakeChain(1, optype.Builtin(), chain.SystemClock{})
	other.Deploy(f.owner, f.broadcaster, f.recovery, 0)
	f.fc = other

	_, err := f.run(t, "roles")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "chain")
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: from-file\nchain_id: 5\n"), 0o600))

	t.Setenv("SECUREOPS_ENDPOINT", "from-env")
	cfg, err := LoadConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Endpoint)
	assert.Equal(t, uint64(5), cfg.ChainID)
	assert.Equal(t, "pending.db", cfg.StorePath)
}

func TestLoadConfigExplicitMissingFileFails(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), true)
	assert.Error(t, err)
}

func TestLoadConfigDefaultMissingFileFallsThrough(t *testing.T) {
	t.Setenv("SECUREOPS_ENDPOINT", "http://localhost:8545")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8545", cfg.Endpoint)
}
