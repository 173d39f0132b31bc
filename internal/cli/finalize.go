package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/PracticalParticle/secureops/internal/optype"
)

// FinalizeOptions holds flags shared by approve and cancel.
type FinalizeOptions struct {
	*RootOptions
	As string
}

// NewApproveCommand creates the approve command.
func NewApproveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FinalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "approve <operation-type> <operation-id>",
		Short: "Approve a pending operation after its timelock",
		Long: `Approve a pending operation through the direct path. Fails while the
timelock is still running; use sign + broadcast for the gasless path
that skips the wait.

Example:
  secureops approve OWNERSHIP_TRANSFER 7`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFinalize(cmd, opts, args[0], args[1], optype.PhaseApprove)
		},
	}
	cmd.Flags().StringVar(&opts.As, "as", "", "acting address (defaults to profile signer)")
	return cmd
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FinalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cancel <operation-type> <operation-id>",
		Short: "Cancel a pending operation",
		Long: `Withdraw a pending operation. No timelock applies to cancellation.

Example:
  secureops cancel OWNERSHIP_TRANSFER 7`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFinalize(cmd, opts, args[0], args[1], optype.PhaseCancel)
		},
	}
	cmd.Flags().StringVar(&opts.As, "as", "", "acting address (defaults to profile signer)")
	return cmd
}

func runFinalize(cmd *cobra.Command, opts *FinalizeOptions, typeName, rawID string, phase optype.Phase) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	operationID, err := parseOperationIDArg(rawID)
	if err != nil {
		return out.Fail(err)
	}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	caller, err := s.signerOrProfile(opts.As)
	if err != nil {
		return out.Fail(err)
	}

	var rec optype.OperationRecord
	switch phase {
	case optype.PhaseApprove:
		rec, err = s.mgr.ApproveOperation(cmd.Context(), s.contract, typeName, operationID, caller)
	case optype.PhaseCancel:
		rec, err = s.mgr.CancelOperation(cmd.Context(), s.contract, typeName, operationID, caller)
	default:
		err = fmt.Errorf("unsupported phase %s", phase)
	}
	if err != nil {
		return out.Fail(err)
	}

	if opts.Format == "json" {
		return out.Success(rec)
	}
	return out.Success(fmt.Sprintf("operation %d is %s", rec.OperationID, rec.Status))
}

func parseOperationIDArg(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid operation id %q: %w", raw, err)
	}
	return id, nil
}
