// Package aggregator implements the client-side quorum-certification engine:
// it fans requests out to a stake-weighted validator committee, folds the
// individually signed responses as they arrive and aggregates them into
// threshold-certified results once a quorum agrees.
package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/aurelia-chain/aurelia-go/model/aurelia"
	"github.com/aurelia-chain/aurelia-go/module"
)

// Aggregator drives the certification of transactions against the active
// committee. The committee, client pool and timeout policy are read-only
// shared state across all concurrently in-flight operations; an epoch change
// replaces the whole snapshot atomically, and operations that started under
// the old committee complete under it.
type Aggregator struct {
	log     zerolog.Logger
	metrics module.AggregatorMetrics
	conf    TimeoutConfig
	dial    Dialer

	snap *snapshot // accessed through snapshot()/publish() only
	mu   sync.RWMutex
}

// snapshot pairs a committee with the client pool built for it.
type snapshot struct {
	committee *aurelia.Committee
	pool      *Pool
}

// New creates an aggregator for the given committee. The dialer is retained
// to rebuild the client pool on epoch change.
func New(
	log zerolog.Logger,
	metrics module.AggregatorMetrics,
	conf TimeoutConfig,
	committee *aurelia.Committee,
	dial Dialer,
) (*Aggregator, error) {

	pool, err := NewPool(committee, dial)
	if err != nil {
		return nil, err
	}
	a := &Aggregator{
		log:     log.With().Str("component", "aggregator").Logger(),
		metrics: metrics,
		conf:    conf,
		dial:    dial,
		snap:    &snapshot{committee: committee, pool: pool},
	}
	metrics.EpochAdvanced(committee.Epoch())
	return a, nil
}

// Committee returns the active committee snapshot.
func (a *Aggregator) Committee() *aurelia.Committee {
	return a.snapshot().committee
}

// Epoch returns the aggregator's active epoch.
func (a *Aggregator) Epoch() uint64 {
	return a.snapshot().committee.Epoch()
}

func (a *Aggregator) snapshot() *snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap
}

// publish atomically replaces the active committee snapshot. In-flight
// operations keep the snapshot they started with.
func (a *Aggregator) publish(s *snapshot) {
	a.mu.Lock()
	a.snap = s
	a.mu.Unlock()
}

// memberBudget bounds one member's slot in a reduction: all attempts plus
// the backoff in between.
func (a *Aggregator) memberBudget() time.Duration {
	attempts := time.Duration(a.conf.MaxRetries + 1)
	return attempts*a.conf.RequestTimeout + time.Duration(a.conf.MaxRetries)*a.conf.RetryMax
}

/// newBackoff builds the retry schedule for one authority call: exponential
// growth with jitter, where no single delay exceeds conf.RetryMax. The cap
// wraps the jitter so memberBudget stays a hard bound.
func newBackoff(conf TimeoutConfig) retry.Backoff {
	backoff := retry.NewExponential(conf.RetryBase)
	backoff = retry.WithJitterPercent(conf.RetryJitterPercent, backoff)
	backoff = retry.WithCappedDuration(conf.RetryMax, backoff)
	backoff = retry.WithMaxRetries(conf.MaxRetries, backoff)
	return backoff
}

// withRetry performs one authority call, retrying transient failures with
// exponential backoff up to conf.MaxRetries. Each attempt is bounded by
// conf.RequestTimeout. Definitive rejections and context cancellation are
// not retried.
func withRetry[R any](
	ctx context.Context,
	conf TimeoutConfig,
	metrics module.AggregatorMetrics,
	call func(ctx context.Context) (R, error),
) (R, error) {

	var result R

	err := retry.Do(ctx, newBackoff(conf), func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, conf.RequestTimeout)
		defer cancel()

		value, err := call(attemptCtx)
		if err != nil {
			if IsRejectedError(err) || errors.Is(err, context.Canceled) {
				return err
			}
			return retry.RetryableError(err)
		}
		result = value
		return nil
	})
	if err != nil && !IsRejectedError(err) && ctx.Err() == nil {
		metrics.RetriesExhausted()
	}
	return result, err
}
