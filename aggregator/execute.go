package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/aurelia-chain/aurelia-go/model/aurelia"
	"github.com/aurelia-chain/aurelia-go/module/metrics"
)

// certCollector folds authority responses to a certificate submission into
// the shared effects collector.
type certCollector struct {
	effects *effectsCollector

	respondedStake uint64
	errs           *multierror.Error

	result  *aurelia.ExecutionEffects
	failure error
}

func (c *certCollector) fold(member *aurelia.Identity, resp *CertificateResponse, err error) ReduceOutput {
	c.respondedStake += member.Weight

	if err != nil {
		c.errs = multierror.Append(c.errs, fmt.Errorf("authority %s: %w", member.NodeID, err))
		return c.checkProgress()
	}
	if resp == nil || resp.Effects == nil {
		c.errs = multierror.Append(c.errs, fmt.Errorf("authority %s: empty effects response", member.NodeID))
		return c.checkProgress()
	}

	effects, err := c.effects.add(member, resp.Effects)
	if err != nil {
		c.errs = multierror.Append(c.errs, err)
	}
	if effects != nil {
		c.result = effects
		return ReduceReturn
	}
	if err := c.effects.conflict(); err != nil {
		c.failure = err
		return ReduceReturnAndStop
	}
	return c.checkProgress()
}

func (c *certCollector) checkProgress() ReduceOutput {
	if !c.effects.unreachable(c.respondedStake) {
		return ReduceContinue
	}
	c.failure = c.settle()
	return ReduceReturnAndStop
}

func (c *certCollector) settle() error {
	if err := c.effects.conflict(); err != nil {
		return err
	}
	return NoQuorumError{
		TransactionID: c.effects.txID,
		Collected:     c.effects.bestStake(),
		Threshold:     c.effects.committee.QuorumThreshold(),
		Errs:          c.errs.ErrorOrNil(),
	}
}

// ProcessCertificate submits the certificate to the whole committee for
// execution and folds the returned attestations until one effects digest
// accumulates quorum stake. A certificate is durable evidence, so execution
// cannot legitimately fail: divergent effects beyond the byzantine tolerance
// are surfaced as EffectsConflictError, never resolved silently.
//
// Expected errors during normal operations:
//   - NoQuorumError if the committee was exhausted below quorum
//   - EffectsConflictError if reported effects diverged beyond tolerance
func (a *Aggregator) ProcessCertificate(ctx context.Context, cert *aurelia.Certificate) (*aurelia.ExecutionEffects, error) {
	snap := a.snapshot()

	if err := cert.Verify(snap.committee); err != nil {
		return nil, fmt.Errorf("refusing to submit invalid certificate %s: %w", cert.ID(), err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.conf.TotalTimeout)
	defer cancel()

	start := time.Now()
	collector := &certCollector{
		effects: newEffectsCollector(snap.committee, cert.TransactionID, a.conf.ConflictThreshold, a.metrics),
	}

	request := func(ctx context.Context, client AuthorityClient, member *aurelia.Identity) (*CertificateResponse, error) {
		return withRetry(ctx, a.conf, a.metrics, func(ctx context.Context) (*CertificateResponse, error) {
			return client.SubmitCertificate(ctx, cert)
		})
	}
	fold := func(acc *certCollector, member *aurelia.Identity, resp *CertificateResponse, err error) (*certCollector, ReduceOutput) {
		return acc, acc.fold(member, resp, err)
	}

	collector, exhausted, err := Reduce(ctx, snap.committee, snap.pool, a.memberBudget(), request, collector, fold)
	if err != nil {
		return nil, fmt.Errorf("certificate %s round aborted: %w", cert.ID(), err)
	}
	if collector.failure != nil {
		return nil, collector.failure
	}
	if exhausted || collector.result == nil {
		return nil, collector.settle()
	}

	a.metrics.QuorumReached(metrics.PhaseEffects, time.Since(start))
	a.metrics.TransactionExecuted()
	a.log.Debug().
		Str("transaction", cert.TransactionID.String()).
		Dur("latency", time.Since(start)).
		Msg("certificate executed")
	return collector.result, nil
}

// ExecuteTransaction drives a transaction through both phases: certification
// then execution. If certification already finalized via the fast path, the
// executed result is returned directly.
func (a *Aggregator) ExecuteTransaction(ctx context.Context, tx *aurelia.Transaction) (*ProcessResult, error) {
	result, err := a.ProcessTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	if result.Status == StatusExecuted {
		return result, nil
	}

	effects, err := a.ProcessCertificate(ctx, result.Certificate)
	if err != nil {
		return nil, err
	}
	return &ProcessResult{
		Status:      StatusExecuted,
		Certificate: result.Certificate,
		Effects:     effects,
	}, nil
}
