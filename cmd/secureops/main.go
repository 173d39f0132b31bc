package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PracticalParticle/secureops/internal/cli"
	"github.com/PracticalParticle/secureops/internal/keystore"
	"github.com/PracticalParticle/secureops/internal/rpc"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := cli.NewRootCommand(connect)
	root.SetContext(ctx)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}

// connect builds the production backend: a JSON-RPC gateway client and
// a file-backed keystore.
func connect(ctx context.Context, cfg *cli.Config) (*cli.Backend, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("no endpoint configured")
	}
	if cfg.KeyFile == "" {
		return nil, fmt.Errorf("no key file configured")
	}
	ks, err := keystore.Load(cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	return &cli.Backend{
		Client: rpc.New(cfg.Endpoint),
		Wallet: ks,
	}, nil
}
