// Package module defines the interfaces through which the certification
// engine consumes cross-cutting infrastructure.
package module

import (
	"time"
)

// AggregatorMetrics exposes the counters and gauges emitted by the quorum
// certification engine. Emission points are the state transitions of the
// transaction certification state machine and the epoch reconfiguration
// driver. Implementations must be safe for concurrent use.
type AggregatorMetrics interface {
	// VoteCollected reports one valid vote folded into the accumulator.
	VoteCollected()

	// EffectsCollected reports one valid effects attestation folded into the
	// accumulator.
	EffectsCollected()

	// QuorumReached reports the wall-clock latency between issuing a request
	// to the committee and reaching a stake-weighted quorum.
	QuorumReached(phase string, duration time.Duration)

	// TransactionCertified reports a certificate successfully formed.
	TransactionCertified()

	// TransactionExecuted reports quorum-matching execution effects collected.
	TransactionExecuted()

	// RetriesExhausted reports an authority whose per-request retries were
	// exhausted within one operation.
	RetriesExhausted()

	// ConflictDetected reports a detected conflict; kind is one of
	// "votes", "effects" or "equivocation".
	ConflictDetected(kind string)

	// EpochAdvanced reports the aggregator's active epoch after a verified
	// committee handover.
	EpochAdvanced(epoch uint64)

	// ReconfigurationFailed reports a fatal epoch catch-up failure.
	ReconfigurationFailed()
}
