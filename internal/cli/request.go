package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// RequestOptions holds flags for the request command.
type RequestOptions struct {
	*RootOptions
	Params string
	As     string
}

// NewRequestCommand creates the request command.
func NewRequestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RequestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "request <operation-type>",
		Short: "Open a timelocked operation",
		Long: `Open a multi-phase operation on the configured contract. The contract
allocates an operation id and starts the timelock; approval becomes
possible once it elapses.

Example:
  secureops request BROADCASTER_UPDATE --params '{"newBroadcaster":"0x..."}'
  secureops request OWNERSHIP_TRANSFER --as 0x...recovery...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Params, "params", "{}", "operation parameters as JSON")
	cmd.Flags().StringVar(&opts.As, "as", "", "acting address (defaults to profile signer)")

	return cmd
}

func runRequest(cmd *cobra.Command, opts *RequestOptions, typeName string) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	params, err := parseParamsFlag(opts.Params)
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

	rec, err := s.mgr.RequestOperation(cmd.Context(), s.contract, typeName, params, caller)
	if err != nil {
		return out.Fail(err)
	}

	if opts.Format == "json" {
		return out.Success(rec)
	}
	return out.Success(fmt.Sprintf("operation %d requested, releases at %d", rec.OperationID, rec.ReleaseTime))
}

func parseParamsFlag(raw string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	// Integers must survive beyond float64 precision.
	dec.UseNumber()
	var params map[string]any
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("invalid --params JSON: %w", err)
	}
	return params, nil
}
