package aggregator

import (
	"errors"
	"fmt"

	"github.com/aurelia-chain/aurelia-go/model/aurelia"
)

// NoQuorumError indicates that the committee was exhausted without any
// result digest reaching the quorum threshold. The operation is definitive
// and is not retried automatically; Errs carries the per-authority failures
// observed along the way.
type NoQuorumError struct {
	TransactionID aurelia.Identifier
	Collected     uint64
	Threshold     uint64
	Errs          error
}

func (e NoQuorumError) Error() string {
	return fmt.Sprintf("no quorum for transaction %s: collected stake %d below threshold %d", e.TransactionID, e.Collected, e.Threshold)
}

func (e NoQuorumError) Unwrap() error { return e.Errs }

// IsNoQuorumError returns whether err is a NoQuorumError.
func IsNoQuorumError(err error) bool {
	var e NoQuorumError
	return errors.As(err, &e)
}

// ConflictError indicates that conflicting vote digests each gathered enough
// stake to make quorum impossible for any of them. This is evidence of
// byzantine behavior and is always surfaced.
type ConflictError struct {
	TransactionID aurelia.Identifier
	Digests       []aurelia.Identifier
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("conflicting votes for transaction %s across %d digests", e.TransactionID, len(e.Digests))
}

// IsConflictError returns whether err is a ConflictError.
func IsConflictError(err error) bool {
	var e ConflictError
	return errors.As(err, &e)
}

// EffectsConflictError indicates that validators holding at least one third
// of the stake reported divergent execution effects for the same
// certificate. This is a protocol violation: either an attack or a
// consistency bug in the execution layer. It is reported, never silently
// resolved.
type EffectsConflictError struct {
	TransactionID aurelia.Identifier
	Digests       []aurelia.Identifier
}

func (e EffectsConflictError) Error() string {
	return fmt.Sprintf("divergent execution effects for certified transaction %s across %d digests", e.TransactionID, len(e.Digests))
}

// IsEffectsConflictError returns whether err is an EffectsConflictError.
func IsEffectsConflictError(err error) bool {
	var e EffectsConflictError
	return errors.As(err, &e)
}

// ReconfigFailedError indicates that an epoch-advance step could not obtain
// quorum-certified next-epoch committee info. The whole catch-up aborts and
// the aggregator stays pinned at the last successfully verified epoch.
type ReconfigFailedError struct {
	Epoch uint64
	Err   error
}

func (e ReconfigFailedError) Error() string {
	return fmt.Sprintf("epoch catch-up failed at epoch %d: %s", e.Epoch, e.Err)
}

func (e ReconfigFailedError) Unwrap() error { return e.Err }

// IsReconfigFailedError returns whether err is a ReconfigFailedError.
func IsReconfigFailedError(err error) bool {
	var e ReconfigFailedError
	return errors.As(err, &e)
}

// RejectedError is a definitive per-authority rejection of a request. It is
// not transient and is never retried.
type RejectedError struct {
	Reason string
}

func NewRejectedErrorf(msg string, args ...interface{}) error {
	return RejectedError{Reason: fmt.Sprintf(msg, args...)}
}

func (e RejectedError) Error() string { return e.Reason }

// IsRejectedError returns whether err is a RejectedError.
func IsRejectedError(err error) bool {
	var e RejectedError
	return errors.As(err, &e)
}
