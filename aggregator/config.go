package aggregator

import (
	"time"
)

// DefaultRetries is the number of times a transient per-authority failure is
// retried within one logical operation before the authority's slot is
// treated as non-responsive.
const DefaultRetries = 3

// TimeoutConfig bounds the certification engine's interactions with the
// committee. It is read-only after construction and shared by all in-flight
// operations.
type TimeoutConfig struct {
	// RequestTimeout bounds a single authority call (one attempt). A
	// response arriving after this deadline is treated as a network error
	// for that validator.
	RequestTimeout time.Duration

	// TotalTimeout bounds the total wall-clock time of one logical
	// operation (certify, execute or catch-up), across all retries.
	TotalTimeout time.Duration

	// MaxRetries is the number of retries for transient per-authority
	// errors within one operation.
	MaxRetries uint64

	// RetryBase is the initial backoff between retries; it grows
	// exponentially up to RetryMax.
	RetryBase time.Duration
	RetryMax  time.Duration

	// RetryJitterPercent is the percentage jitter applied to each retry
	// interval.
	RetryJitterPercent uint64

	// ConflictThreshold is the stake a runner-up digest must hold for an
	// unreachable quorum to be reported as a conflict rather than plain
	// quorum failure. Zero selects the committee's validity threshold
	// (one third of total stake).
	ConflictThreshold uint64
}

// DefaultTimeoutConfig returns the default timeout policy.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		RequestTimeout:     3 * time.Second,
		TotalTimeout:       60 * time.Second,
		MaxRetries:         DefaultRetries,
		RetryBase:          100 * time.Millisecond,
		RetryMax:           2 * time.Second,
		RetryJitterPercent: 25,
	}
}
