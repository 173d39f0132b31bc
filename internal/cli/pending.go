package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// PendingOptions holds flags for the pending command.
type PendingOptions struct {
	*RootOptions
	Sync bool
}

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PendingOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List stored signed envelopes",
		Long: `List the local pending store for the configured contract. With --sync,
entries whose operation already reached a terminal state on-chain are
removed first.

Example:
  secureops pending
  secureops pending --sync`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPending(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Sync, "sync", false, "reconcile against contract state before listing")
	return cmd
}

func runPending(cmd *cobra.Command, opts *PendingOptions) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.Sync {
		removed, err := s.mgr.SyncPending(cmd.Context(), s.contract)
		if err != nil {
			return out.Fail(err)
		}
		for _, key := range removed {
			fmt.Fprintf(cmd.ErrOrStderr(), "swept %s\n", key)
		}
	}

	entries, err := s.mgr.PendingEntries(cmd.Context(), s.contract)
	if err != nil {
		return out.Fail(err)
	}

	if opts.Format == "json" {
		return out.Success(entries)
	}
	if len(entries) == 0 {
		return out.Success("no pending envelopes")
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tPURPOSE\tBROADCAST\tSIGNED AT")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\n",
			e.Key.OperationID, e.Metadata.Type, e.Metadata.Purpose, e.Metadata.Broadcast, e.Timestamp)
	}
	w.Flush()
	return out.Success(strings.TrimRight(b.String(), "\n"))
}
