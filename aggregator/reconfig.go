package aggregator

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/aurelia-chain/aurelia-go/model/aurelia"
)

// catchUpCollector folds committee-info responses for one target epoch. A
// single verified handover certificate settles the step, since it is
// self-certifying under the current committee. Declaring the chain caught up
// instead requires a quorum of "no such epoch" answers, so that a byzantine
// minority cannot hide an epoch from the client.
type catchUpCollector struct {
	current   *aurelia.Committee
	nextEpoch uint64

	respondedStake uint64
	noEpochStake   uint64
	errs           *multierror.Error

	next *aurelia.Committee
	done bool
}

func (c *catchUpCollector) fold(member *aurelia.Identity, info *aurelia.CommitteeInfo, err error) ReduceOutput {
	c.respondedStake += member.Weight

	if err != nil {
		c.errs = multierror.Append(c.errs, fmt.Errorf("authority %s: %w", member.NodeID, err))
		return ReduceContinue
	}
	if info == nil {
		c.noEpochStake += member.Weight
		if c.current.HasQuorum(c.noEpochStake) {
			c.done = true
			return ReduceReturnAndStop
		}
		return ReduceContinue
	}

	next, err := c.verify(info)
	if err != nil {
		c.errs = multierror.Append(c.errs, fmt.Errorf("authority %s: %w", member.NodeID, err))
		return ReduceContinue
	}
	c.next = next
	return ReduceReturnAndStop
}

// verify checks one claimed next-epoch committee: the epoch must be the one
// requested, and the handover certificate must carry a quorum of the current
// committee's stake over the new committee's fingerprint.
func (c *catchUpCollector) verify(info *aurelia.CommitteeInfo) (*aurelia.Committee, error) {
	if info.Epoch != c.nextEpoch {
		return nil, fmt.Errorf("committee info for epoch %d, want %d", info.Epoch, c.nextEpoch)
	}
	if info.Certificate == nil {
		return nil, fmt.Errorf("committee info for epoch %d lacks handover certificate", info.Epoch)
	}
	next, err := aurelia.NewCommittee(info.Epoch, info.Members)
	if err != nil {
		return nil, fmt.Errorf("malformed committee for epoch %d: %w", info.Epoch, err)
	}
	if info.Certificate.TransactionID != next.Fingerprint() {
		return nil, fmt.Errorf("handover certificate signs fingerprint %s, committee has %s", info.Certificate.TransactionID, next.Fingerprint())
	}
	if err := info.Certificate.VerifyHandover(c.current); err != nil {
		return nil, fmt.Errorf("invalid handover certificate for epoch %d: %w", info.Epoch, err)
	}
	return next, nil
}

// CatchUp walks the epoch chain from the aggregator's active epoch to the
// committee's latest one, verifying each handover certificate against the
// committee that issued it and republishing the snapshot after every step.
// Each step is bounded by TimeoutConfig.TotalTimeout, so a silent committee
// cannot stall the walk for longer than one round's worth of budget.
// It returns the epoch the aggregator ends up on. On failure the aggregator
// stays pinned at the last successfully verified epoch.
//
// Expected errors during normal operations:
//   - ReconfigFailedError if a step could not obtain a verified handover nor
//     a quorum of "no such epoch" answers
func (a *Aggregator) CatchUp(ctx context.Context) (uint64, error) {
	for {
		snap := a.snapshot()
		nextEpoch := snap.committee.Epoch() + 1

		collector := &catchUpCollector{current: snap.committee, nextEpoch: nextEpoch}

		request := func(ctx context.Context, client AuthorityClient, member *aurelia.Identity) (*aurelia.CommitteeInfo, error) {
			return withRetry(ctx, a.conf, a.metrics, func(ctx context.Context) (*aurelia.CommitteeInfo, error) {
				return client.CommitteeInfo(ctx, nextEpoch)
			})
		}
		fold := func(acc *catchUpCollector, member *aurelia.Identity, info *aurelia.CommitteeInfo, err error) (*catchUpCollector, ReduceOutput) {
			return acc, acc.fold(member, info, err)
		}

		stepCtx, cancel := context.WithTimeout(ctx, a.conf.TotalTimeout)
		collector, _, err := Reduce(stepCtx, snap.committee, snap.pool, a.memberBudget(), request, collector, fold)
		cancel()
		if err != nil {
			a.metrics.ReconfigurationFailed()
			return snap.committee.Epoch(), ReconfigFailedError{Epoch: nextEpoch, Err: err}
		}
		if collector.done {
			return snap.committee.Epoch(), nil
		}
		if collector.next == nil {
			a.metrics.ReconfigurationFailed()
			return snap.committee.Epoch(), ReconfigFailedError{
				Epoch: nextEpoch,
				Err:   fmt.Errorf("committee exhausted without verified handover: %w", collector.errs.ErrorOrNil()),
			}
		}

		pool, err := NewPool(collector.next, a.dial)
		if err != nil {
			a.metrics.ReconfigurationFailed()
			return snap.committee.Epoch(), ReconfigFailedError{Epoch: nextEpoch, Err: err}
		}
		a.publish(&snapshot{committee: collector.next, pool: pool})
		a.metrics.EpochAdvanced(collector.next.Epoch())
		a.log.Info().
			Uint64("epoch", collector.next.Epoch()).
			Int("committee_size", collector.next.Size()).
			Msg("advanced to next epoch committee")
	}
}
