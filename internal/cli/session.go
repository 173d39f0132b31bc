package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/PracticalParticle/secureops/internal/chain"
	"github.com/PracticalParticle/secureops/internal/optype"
	"github.com/PracticalParticle/secureops/internal/pending"
	"github.com/PracticalParticle/secureops/internal/roles"
	"github.com/PracticalParticle/secureops/internal/workflow"
)

// Backend bundles the external collaborators a session talks to.
type Backend struct {
	Client workflow.ContractClient
	Wallet chain.Wallet
}

// BackendFactory connects to the configured endpoint. The CLI never
// constructs transports itself; main injects the real one and tests
// inject fakes.
type BackendFactory func(ctx context.Context, cfg *Config) (*Backend, error)

// session is one command's wired-up engine plus its profile.
type session struct {
	cfg      *Config
	mgr      *workflow.Manager
	resolver *roles.Resolver
	store    *pending.Store
	contract chain.Address
}

// openSession loads the profile, connects the backend and builds the
// workflow manager. The caller must close the session.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	cfg, err := LoadConfig(opts.ConfigPath, configExplicit(cmd))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load profile", err)
	}
	contract, err := cfg.ContractAddress()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid profile", err)
	}

	backend, err := opts.Backend(cmd.Context(), cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "connect backend", err)
	}

	// The profile's chain id guards against a profile pointing at the
	// wrong endpoint before any state-changing call happens.
	if cfg.ChainID != 0 {
		chainID, err := backend.Client.ChainID(cmd.Context())
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "read chain id", err)
		}
		if chainID != cfg.ChainID {
			return nil, NewExitError(ExitCommandError,
				fmt.Sprintf("endpoint serves chain %d, profile expects %d", chainID, cfg.ChainID))
		}
	}

	store, err := pending.Open(cfg.StorePath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open pending store", err)
	}

	resolver := roles.NewResolver(backend.Client)
	mgr := workflow.NewManager(backend.Client, resolver, optype.Builtin(), store, backend.Wallet,
		workflow.WithLogger(slog.Default()))

	return &session{
		cfg:      cfg,
		mgr:      mgr,
		resolver: resolver,
		store:    store,
		contract: contract,
	}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		slog.Error("error closing pending store", "error", err)
	}
}

// signerOrProfile resolves the acting address: an explicit --as flag
// wins, otherwise the profile's signer.
func (s *session) signerOrProfile(flag string) (chain.Address, error) {
	if flag != "" {
		return chain.ParseAddress(flag)
	}
	return s.cfg.SignerAddress()
}
