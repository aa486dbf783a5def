package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/aurelia-chain/aurelia-go/model/aurelia"
	"github.com/aurelia-chain/aurelia-go/module"
	"github.com/aurelia-chain/aurelia-go/module/metrics"
	"github.com/aurelia-chain/aurelia-go/module/signature"
)

// voteCollector folds authority responses to a transaction submission. It
// accumulates vote stake per result digest, tracks equivocators, ingests
// fast-path certificates and effects, and decides between certification,
// conflict and quorum failure.
type voteCollector struct {
	log               zerolog.Logger
	metrics           module.AggregatorMetrics
	committee         *aurelia.Committee
	txID              aurelia.Identifier
	conflictThreshold uint64

	aggs  map[aurelia.Identifier]*signature.WeightedSigAggregator
	stake map[aurelia.Identifier]uint64
	voted map[aurelia.Identifier]aurelia.Identifier // signer -> first voted digest

	effects *effectsCollector

	respondedStake uint64
	errs           *multierror.Error

	result  *ProcessResult
	failure error
}

func newVoteCollector(
	log zerolog.Logger,
	metrics module.AggregatorMetrics,
	committee *aurelia.Committee,
	txID aurelia.Identifier,
	conflictThreshold uint64,
) *voteCollector {
	if conflictThreshold == 0 {
		conflictThreshold = committee.ValidityThreshold()
	}
	return &voteCollector{
		log:               log.With().Str("transaction", txID.String()).Logger(),
		metrics:           metrics,
		committee:         committee,
		txID:              txID,
		conflictThreshold: conflictThreshold,
		aggs:              make(map[aurelia.Identifier]*signature.WeightedSigAggregator),
		stake:             make(map[aurelia.Identifier]uint64),
		voted:             make(map[aurelia.Identifier]aurelia.Identifier),
		effects:           newEffectsCollector(committee, txID, conflictThreshold, metrics),
	}
}

// fold ingests one authority's response or error. It runs on the collecting
// goroutine only.
func (c *voteCollector) fold(member *aurelia.Identity, resp *TransactionResponse, err error) ReduceOutput {
	c.respondedStake += member.Weight

	if err != nil {
		c.errs = multierror.Append(c.errs, fmt.Errorf("authority %s: %w", member.NodeID, err))
		return c.checkProgress()
	}
	if resp == nil {
		c.errs = multierror.Append(c.errs, fmt.Errorf("authority %s: empty response", member.NodeID))
		return c.checkProgress()
	}

	// Fast path: authorities that already executed the transaction return
	// their signed effects; a quorum of matching effects finalizes the
	// outcome without forming a new certificate.
	if resp.Effects != nil {
		effects, err := c.effects.add(member, resp.Effects)
		if err != nil {
			c.errs = multierror.Append(c.errs, err)
		}
		if effects != nil {
			c.result = &ProcessResult{
				Status:      StatusExecuted,
				Certificate: c.fastPathCertificate(resp),
				Effects:     effects,
			}
			return ReduceReturnAndStop
		}
		if err := c.effects.conflict(); err != nil {
			c.failure = err
			return ReduceReturnAndStop
		}
	}

	// An already-formed certificate is self-certifying: it carries a quorum
	// of vote signatures and needs no further collection.
	if resp.Certificate != nil {
		if err := c.acceptCertificate(resp.Certificate); err != nil {
			c.errs = multierror.Append(c.errs, fmt.Errorf("authority %s: %w", member.NodeID, err))
		} else {
			c.result = &ProcessResult{Status: StatusCertified, Certificate: resp.Certificate}
			return ReduceReturnAndStop
		}
	}

	if resp.Vote != nil {
		if out := c.foldVote(member, resp.Vote); out != ReduceContinue {
			return out
		}
	}
	return c.checkProgress()
}

func (c *voteCollector) acceptCertificate(cert *aurelia.Certificate) error {
	if cert.TransactionID != c.txID {
		return fmt.Errorf("certificate for transaction %s, want %s", cert.TransactionID, c.txID)
	}
	if err := cert.Verify(c.committee); err != nil {
		return fmt.Errorf("invalid certificate: %w", err)
	}
	return nil
}

// fastPathCertificate returns the response's certificate if it verifies, so
// an executed fast-path result carries the certificate when one was offered.
func (c *voteCollector) fastPathCertificate(resp *TransactionResponse) *aurelia.Certificate {
	if resp.Certificate == nil || c.acceptCertificate(resp.Certificate) != nil {
		return nil
	}
	return resp.Certificate
}

func (c *voteCollector) foldVote(member *aurelia.Identity, vote *aurelia.Vote) ReduceOutput {
	if vote.SignerID != member.NodeID {
		c.errs = multierror.Append(c.errs, fmt.Errorf("vote signer %s does not match responding authority %s", vote.SignerID, member.NodeID))
		return ReduceContinue
	}
	if vote.TransactionID != c.txID {
		c.errs = multierror.Append(c.errs, fmt.Errorf("authority %s voted on transaction %s, want %s", member.NodeID, vote.TransactionID, c.txID))
		return ReduceContinue
	}
	if vote.Epoch != c.committee.Epoch() {
		c.errs = multierror.Append(c.errs, fmt.Errorf("authority %s voted in epoch %d, want %d", member.NodeID, vote.Epoch, c.committee.Epoch()))
		return ReduceContinue
	}

	// The first vote binds the validator. A second, differing vote is
	// equivocation: the first stays counted, the second is recorded as
	// byzantine evidence and discarded.
	if prev, ok := c.voted[member.NodeID]; ok {
		if prev == vote.ResultDigest {
			return ReduceContinue
		}
		c.metrics.ConflictDetected(metrics.ConflictEquivocation)
		c.log.Warn().
			Str("authority", member.NodeID.String()).
			Str("first_digest", prev.String()).
			Str("second_digest", vote.ResultDigest.String()).
			Msg("authority equivocated on transaction vote")
		c.errs = multierror.Append(c.errs, fmt.Errorf("authority %s equivocated: %s then %s", member.NodeID, prev, vote.ResultDigest))
		return ReduceContinue
	}

	agg, ok := c.aggs[vote.ResultDigest]
	if !ok {
		var err error
		agg, err = signature.NewWeightedSigAggregator(c.committee.Members(), vote.Message())
		if err != nil {
			c.failure = fmt.Errorf("could not create vote aggregator: %w", err)
			return ReduceReturnAndStop
		}
		c.aggs[vote.ResultDigest] = agg
	}

	err := agg.Verify(member.NodeID, vote.Signature)
	if err != nil {
		c.errs = multierror.Append(c.errs, fmt.Errorf("invalid vote signature from %s: %w", member.NodeID, err))
		return ReduceContinue
	}
	total, err := agg.TrustedAdd(member.NodeID, vote.Signature)
	if err != nil {
		c.errs = multierror.Append(c.errs, fmt.Errorf("could not add vote from %s: %w", member.NodeID, err))
		return ReduceContinue
	}
	c.voted[member.NodeID] = vote.ResultDigest
	c.stake[vote.ResultDigest] = total
	c.metrics.VoteCollected()

	if !c.committee.HasQuorum(total) {
		return ReduceContinue
	}

	signerIDs, aggregated, err := agg.Aggregate()
	if err != nil {
		c.failure = fmt.Errorf("could not aggregate quorum of votes: %w", err)
		return ReduceReturnAndStop
	}
	c.result = &ProcessResult{
		Status: StatusCertified,
		Certificate: &aurelia.Certificate{
			TransactionID:       c.txID,
			Epoch:               c.committee.Epoch(),
			ResultDigest:        vote.ResultDigest,
			SignerIDs:           signerIDs,
			AggregatedSignature: aggregated,
		},
	}
	// Remaining requests run to completion in the background; their votes
	// are no longer needed.
	return ReduceReturn
}

// checkProgress decides whether quorum has become unreachable: even if all
// outstanding members backed the leading digest, it would fall short. Both
// the vote path and the effects fast path can still reach quorum, so the
// round continues while either one can. Once neither can, the round is
// settled as either a conflict or a quorum failure.
func (c *voteCollector) checkProgress() ReduceOutput {
	best, second := c.topTwo()
	leader := best
	if effectsBest := c.effects.bestStake(); effectsBest > leader {
		leader = effectsBest
	}
	remaining := c.committee.TotalWeight() - c.respondedStake
	if leader+remaining >= c.committee.QuorumThreshold() {
		return ReduceContinue
	}
	c.failure = c.settle(best, second)
	return ReduceReturnAndStop
}

// settle classifies a failed round: a runner-up digest holding at least the
// conflict threshold of stake is evidence of conflicting votes rather than
// mere unavailability.
func (c *voteCollector) settle(best, second uint64) error {
	if len(c.stake) >= 2 && second >= c.conflictThreshold {
		c.metrics.ConflictDetected(metrics.ConflictVotes)
		digests := make([]aurelia.Identifier, 0, len(c.stake))
		for digest := range c.stake {
			digests = append(digests, digest)
		}
		return ConflictError{TransactionID: c.txID, Digests: digests}
	}
	return NoQuorumError{
		TransactionID: c.txID,
		Collected:     best,
		Threshold:     c.committee.QuorumThreshold(),
		Errs:          c.errs.ErrorOrNil(),
	}
}

// topTwo returns the two highest per-digest stakes.
func (c *voteCollector) topTwo() (best, second uint64) {
	for _, stake := range c.stake {
		switch {
		case stake > best:
			best, second = stake, best
		case stake > second:
			second = stake
		}
	}
	return best, second
}

// ProcessTransaction submits the transaction to the whole committee and
// folds the returned votes into a quorum certificate. Authorities that have
// already finalized the transaction short-circuit the round by returning the
// existing certificate or their signed execution effects.
//
// Expected errors during normal operations:
//   - NoQuorumError if the committee was exhausted below quorum
//   - ConflictError if conflicting votes made quorum impossible
//   - EffectsConflictError if fast-path effects diverged beyond tolerance
func (a *Aggregator) ProcessTransaction(ctx context.Context, tx *aurelia.Transaction) (*ProcessResult, error) {
	snap := a.snapshot()
	txID := tx.ID()

	ctx, cancel := context.WithTimeout(ctx, a.conf.TotalTimeout)
	defer cancel()

	start := time.Now()
	collector := newVoteCollector(a.log, a.metrics, snap.committee, txID, a.conf.ConflictThreshold)

	request := func(ctx context.Context, client AuthorityClient, member *aurelia.Identity) (*TransactionResponse, error) {
		return withRetry(ctx, a.conf, a.metrics, func(ctx context.Context) (*TransactionResponse, error) {
			return client.SubmitTransaction(ctx, tx)
		})
	}
	fold := func(acc *voteCollector, member *aurelia.Identity, resp *TransactionResponse, err error) (*voteCollector, ReduceOutput) {
		return acc, acc.fold(member, resp, err)
	}

	collector, exhausted, err := Reduce(ctx, snap.committee, snap.pool, a.memberBudget(), request, collector, fold)
	if err != nil {
		return nil, fmt.Errorf("transaction %s round aborted: %w", txID, err)
	}
	if collector.failure != nil {
		return nil, collector.failure
	}
	if exhausted || collector.result == nil {
		best, second := collector.topTwo()
		return nil, collector.settle(best, second)
	}

	switch collector.result.Status {
	case StatusExecuted:
		a.metrics.QuorumReached(metrics.PhaseEffects, time.Since(start))
		a.metrics.TransactionExecuted()
	case StatusCertified:
		a.metrics.QuorumReached(metrics.PhaseVotes, time.Since(start))
		a.metrics.TransactionCertified()
	}
	a.log.Debug().
		Str("transaction", txID.String()).
		Str("status", collector.result.Status.String()).
		Dur("latency", time.Since(start)).
		Msg("transaction processed")
	return collector.result, nil
}
