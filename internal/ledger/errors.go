package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// CallError is an RPC failure or contract revert. Reason carries the
// machine-checkable revert string when the node supplies one.
type CallError struct {
	Method string
	Reason string
	Err    error
}

func (e *CallError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("ledger call %s reverted: %s", e.Method, e.Reason)
	}
	return fmt.Sprintf("ledger call %s failed: %v", e.Method, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// IsAlreadyVoted reports the "second vote on same article" revert.
func IsAlreadyVoted(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && strings.Contains(ce.Reason, "Already voted")
}

// IsNotFound reports reverts for article, version or proposal lookups on ids
// the registry has never issued.
func IsNotFound(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && strings.Contains(ce.Reason, "does not exist")
}

// IsMustStake reports the "voting without stake" revert.
func IsMustStake(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && strings.Contains(ce.Reason, "Must stake first")
}
