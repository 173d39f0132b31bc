package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PracticalParticle/secureops/internal/metatx"
	"github.com/PracticalParticle/secureops/internal/optype"
	"github.com/PracticalParticle/secureops/internal/pending"
)

// BroadcastOptions holds flags for the broadcast command.
type BroadcastOptions struct {
	*RootOptions
	As string
}

// NewBroadcastCommand creates the broadcast command.
func NewBroadcastCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BroadcastOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "broadcast <entry-id>",
		Short: "Submit a stored signed envelope",
		Long: `Submit a signed envelope from the local pending store. The entry id is
the operation id (sign approve/cancel) or the synthetic id printed by
sign execute. The acting address must hold the broadcaster role and
pays the gas; the signer's authority travels inside the envelope.

Example:
  secureops broadcast 7
  secureops broadcast meta-4f9c...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBroadcast(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.As, "as", "", "broadcaster address (defaults to profile signer)")
	return cmd
}

func runBroadcast(cmd *cobra.Command, opts *BroadcastOptions, entryID string) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	caller, err := s.signerOrProfile(opts.As)
	if err != nil {
		return out.Fail(err)
	}

	entry, err := s.store.Get(cmd.Context(), pending.Key{Contract: s.contract, OperationID: entryID})
	if err != nil {
		return out.Fail(fmt.Errorf("load stored envelope: %w", err))
	}
	signed, err := metatx.Decode([]byte(entry.SignedData))
	if err != nil {
		return out.Fail(fmt.Errorf("decode stored envelope: %w", err))
	}

	var rec optype.OperationRecord
	switch entry.Metadata.Purpose {
	case "approve":
		rec, err = s.mgr.ExecuteMetaTransaction(cmd.Context(), signed, optype.PhaseMetaApprove, caller)
	case "cancel":
		rec, err = s.mgr.ExecuteMetaTransaction(cmd.Context(), signed, optype.PhaseMetaCancel, caller)
	case "execute":
		rec, err = s.mgr.RequestAndApproveWithMetaTx(cmd.Context(), signed, caller)
	default:
		err = fmt.Errorf("stored envelope has unknown purpose %q", entry.Metadata.Purpose)
	}
	if err != nil {
		return out.Fail(err)
	}

	if opts.Format == "json" {
		return out.Success(rec)
	}
	return out.Success(fmt.Sprintf("operation %d is %s", rec.OperationID, rec.Status))
}
