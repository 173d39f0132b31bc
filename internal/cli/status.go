package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/PracticalParticle/secureops/internal/history"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show operation history with timelock progress",
		Long: `Project the contract's operation records into display form: lowercase
status, timelock progress and remaining wait, newest first.

Example:
  secureops status
  secureops status --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, opts)
		},
	}
	return cmd
}

func runStatus(cmd *cobra.Command, opts *StatusOptions) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.mgr.Operations(cmd.Context(), s.contract)
	if err != nil {
		return out.Fail(err)
	}
	set, err := s.resolver.Resolve(cmd.Context(), s.contract)
	if err != nil {
		return out.Fail(err)
	}

	views := history.ProjectAll(recs, set.Timelock, time.Now())
	if opts.Format == "json" {
		return out.Success(views)
	}
	if len(views) == 0 {
		return out.Success("no operations")
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tREMAINING")
	for _, v := range views {
		fmt.Fprintf(w, "%d\t%s\t%3.0f%%\t%s\n",
			v.Record.OperationID, v.DisplayStatus, v.Progress*100, v.Remaining.Round(time.Second))
	}
	w.Flush()
	return out.Success(strings.TrimRight(b.String(), "\n"))
}
