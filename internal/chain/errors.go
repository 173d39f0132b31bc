package chain

import (
	"errors"
	"fmt"
)

var (
	// ErrContractNotFound indicates no code exists at the target address.
	ErrContractNotFound = errors.New("no contract code at address")

	// ErrNetworkTimeout indicates a read or submission exceeded its
	// caller-specified timeout. Transient: the caller must re-check
	// on-chain state before retrying a submission, since the original
	// may have landed.
	ErrNetworkTimeout = errors.New("network timeout")

	// ErrChainMismatch indicates the client is connected to a chain
	// whose id differs from the one the payload was built for.
	ErrChainMismatch = errors.New("chain id mismatch")

	// ErrWalletRejected indicates the user cancelled the signing prompt.
	ErrWalletRejected = errors.New("signing rejected by wallet")
)

// RevertError reports a submission the contract executed and rejected.
// Reason carries the decoded revert string when the node returns one.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return fmt.Sprintf("execution reverted: %s", e.Reason)
}

// IsRevert reports whether err is a contract revert, unwrapping as needed.
func IsRevert(err error) bool {
	var re *RevertError
	return errors.As(err, &re)
}
