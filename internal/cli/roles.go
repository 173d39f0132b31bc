package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// RolesOptions holds flags for the roles command.
type RolesOptions struct {
	*RootOptions
}

// NewRolesCommand creates the roles command.
func NewRolesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RolesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Show the contract's role assignment",
		Long: `Read the contract's current owner, broadcaster and recovery addresses
and its timelock period. Always a fresh read, never cached.

Example:
  secureops roles`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoles(cmd, opts)
		},
	}
	return cmd
}

func runRoles(cmd *cobra.Command, opts *RolesOptions) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	set, err := s.resolver.ResolveFresh(cmd.Context(), s.contract)
	if err != nil {
		return out.Fail(err)
	}

	if opts.Format == "json" {
		return out.Success(map[string]any{
			"owner":            set.Owner.String(),
			"broadcaster":      set.Broadcaster.String(),
			"recovery":         set.Recovery.String(),
			"timelock_seconds": int64(set.Timelock.Seconds()),
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "owner:       %s\n", set.Owner)
	fmt.Fprintf(&b, "broadcaster: %s\n", set.Broadcaster)
	fmt.Fprintf(&b, "recovery:    %s\n", set.Recovery)
	fmt.Fprintf(&b, "timelock:    %s", set.Timelock)
	return out.Success(b.String())
}
