package cli

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/PracticalParticle/secureops/internal/workflow"
)

// SignCmdOptions holds flags for the sign command.
type SignCmdOptions struct {
	*RootOptions
	Params      string
	As          string
	Deadline    int64
	MaxGasPrice string
}

// NewSignCommand creates the sign command.
func NewSignCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SignCmdOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sign <approve|cancel|execute> <operation-type> [operation-id]",
		Short: "Sign a gasless meta-transaction",
		Long: `Produce a signed envelope and persist it in the local pending store
until a broadcaster submits it.

  approve  sign an approval for a pending multi-phase operation
  cancel   sign a cancellation for a pending multi-phase operation
  execute  sign a single-phase operation (no prior request)

Examples:
  secureops sign approve OWNERSHIP_TRANSFER 7
  secureops sign execute TOKEN_MINT --params '{"to":"0x...","amount":1000}'`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSign(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Params, "params", "{}", "operation parameters as JSON (execute only)")
	cmd.Flags().StringVar(&opts.As, "as", "", "signer address (defaults to profile signer)")
	cmd.Flags().Int64Var(&opts.Deadline, "deadline", 0, "signature expiry as unix seconds (default: one hour out)")
	cmd.Flags().StringVar(&opts.MaxGasPrice, "max-gas-price", "", "gas price ceiling in wei (default: no ceiling)")

	return cmd
}

func runSign(cmd *cobra.Command, opts *SignCmdOptions, args []string) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	action, typeName := args[0], args[1]

	signOpts := workflow.SignOptions{Deadline: opts.Deadline}
	if opts.MaxGasPrice != "" {
		ceiling, ok := new(big.Int).SetString(opts.MaxGasPrice, 10)
		if !ok {
			return out.Fail(fmt.Errorf("invalid --max-gas-price %q", opts.MaxGasPrice))
		}
		signOpts.MaxGasPrice = ceiling
	}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	signer, err := s.signerOrProfile(opts.As)
	if err != nil {
		return out.Fail(err)
	}

	switch action {
	case "approve", "cancel":
		if len(args) != 3 {
			return out.Fail(fmt.Errorf("sign %s needs an operation id", action))
		}
		operationID, err := parseOperationIDArg(args[2])
		if err != nil {
			return out.Fail(err)
		}
		if action == "approve" {
			_, err = s.mgr.SignApproval(cmd.Context(), s.contract, typeName, operationID, signer, signOpts)
		} else {
			_, err = s.mgr.SignCancellation(cmd.Context(), s.contract, typeName, operationID, signer, signOpts)
		}
		if err != nil {
			return out.Fail(err)
		}
		return out.Success(fmt.Sprintf("%s signed for operation %d, stored for broadcast", action, operationID))

	case "execute":
		params, err := parseParamsFlag(opts.Params)
		if err != nil {
			return out.Fail(err)
		}
		_, key, err := s.mgr.SignSinglePhase(cmd.Context(), s.contract, typeName, params, signer, signOpts)
		if err != nil {
			return out.Fail(err)
		}
		return out.Success(fmt.Sprintf("%s signed, stored as %s", typeName, key.OperationID))

	default:
		return out.Fail(fmt.Errorf("unknown sign action %q: want approve, cancel or execute", action))
	}
}
