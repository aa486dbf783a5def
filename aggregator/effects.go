package aggregator

import (
	"fmt"

	"github.com/aurelia-chain/aurelia-go/model/aurelia"
	"github.com/aurelia-chain/aurelia-go/module"
	"github.com/aurelia-chain/aurelia-go/module/metrics"
	"github.com/aurelia-chain/aurelia-go/module/signature"
)

// effectsCollector accumulates signed execution effects per effects digest.
// Honest validators executing the same certificate report identical effects,
// so under byzantine assumptions at most one digest can ever reach quorum.
// The collector is used both by the certificate execution phase and by the
// fast path of transaction processing, where authorities that already
// finalized the transaction return their effects directly.
type effectsCollector struct {
	committee         *aurelia.Committee
	txID              aurelia.Identifier
	conflictThreshold uint64
	metrics           module.AggregatorMetrics

	aggs     map[aurelia.Identifier]*signature.WeightedSigAggregator
	stake    map[aurelia.Identifier]uint64
	byDigest map[aurelia.Identifier]aurelia.ExecutionEffects
	attested map[aurelia.Identifier]aurelia.Identifier // signer -> first attested digest
}

func newEffectsCollector(
	committee *aurelia.Committee,
	txID aurelia.Identifier,
	conflictThreshold uint64,
	metrics module.AggregatorMetrics,
) *effectsCollector {
	if conflictThreshold == 0 {
		conflictThreshold = committee.ValidityThreshold()
	}
	return &effectsCollector{
		committee:         committee,
		txID:              txID,
		conflictThreshold: conflictThreshold,
		metrics:           metrics,
		aggs:              make(map[aurelia.Identifier]*signature.WeightedSigAggregator),
		stake:             make(map[aurelia.Identifier]uint64),
		byDigest:          make(map[aurelia.Identifier]aurelia.ExecutionEffects),
		attested:          make(map[aurelia.Identifier]aurelia.Identifier),
	}
}

// add verifies and folds one effects attestation. It returns the agreed
// effects once one digest accumulates quorum stake, and nil before that.
// A non-nil error means the attestation was rejected and did not count.
func (c *effectsCollector) add(member *aurelia.Identity, signed *aurelia.SignedEffects) (*aurelia.ExecutionEffects, error) {
	if signed == nil {
		return nil, fmt.Errorf("empty effects attestation")
	}
	if signed.SignerID != member.NodeID {
		return nil, fmt.Errorf("effects signer %s does not match responding authority %s", signed.SignerID, member.NodeID)
	}
	if signed.Epoch != c.committee.Epoch() {
		return nil, fmt.Errorf("effects for epoch %d, want %d", signed.Epoch, c.committee.Epoch())
	}
	if signed.Effects.TransactionID != c.txID {
		return nil, fmt.Errorf("effects for transaction %s, want %s", signed.Effects.TransactionID, c.txID)
	}

	digest := signed.Effects.ID()

	// The first attestation binds the validator to its digest. Duplicates
	// are dropped; a differing second attestation is equivocation and does
	// not count either.
	if prev, ok := c.attested[member.NodeID]; ok {
		if prev == digest {
			return nil, nil
		}
		c.metrics.ConflictDetected(metrics.ConflictEquivocation)
		return nil, fmt.Errorf("authority %s equivocated on effects: %s then %s", member.NodeID, prev, digest)
	}

	agg, ok := c.aggs[digest]
	if !ok {
		var err error
		agg, err = signature.NewWeightedSigAggregator(
			c.committee.Members(),
			aurelia.EffectsMessage(c.txID, c.committee.Epoch(), digest),
		)
		if err != nil {
			return nil, fmt.Errorf("could not create effects aggregator: %w", err)
		}
		c.aggs[digest] = agg
		c.byDigest[digest] = signed.Effects
	}

	err := agg.Verify(member.NodeID, signed.Signature)
	if err != nil {
		return nil, fmt.Errorf("invalid effects signature from %s: %w", member.NodeID, err)
	}
	total, err := agg.TrustedAdd(member.NodeID, signed.Signature)
	if err != nil {
		return nil, fmt.Errorf("could not add effects signature from %s: %w", member.NodeID, err)
	}
	c.attested[member.NodeID] = digest
	c.stake[digest] = total
	c.metrics.EffectsCollected()

	if c.committee.HasQuorum(total) {
		effects := c.byDigest[digest]
		return &effects, nil
	}
	return nil, nil
}

// conflict reports divergent effects: two or more digests each backed by at
// least the conflict threshold of stake prove that validators beyond the
// byzantine tolerance reported different outcomes for the same certificate.
func (c *effectsCollector) conflict() error {
	var over []aurelia.Identifier
	for digest, stake := range c.stake {
		if stake >= c.conflictThreshold {
			over = append(over, digest)
		}
	}
	if len(over) < 2 {
		return nil
	}
	c.metrics.ConflictDetected(metrics.ConflictEffects)
	return EffectsConflictError{TransactionID: c.txID, Digests: over}
}

// bestStake returns the highest stake accumulated by any single digest.
func (c *effectsCollector) bestStake() uint64 {
	var best uint64
	for _, stake := range c.stake {
		if stake > best {
			best = stake
		}
	}
	return best
}

// unreachable reports whether quorum has become impossible: even if every
// member that has not responded yet backed the leading digest, it would
// still fall short of the quorum threshold.
func (c *effectsCollector) unreachable(respondedStake uint64) bool {
	remaining := c.committee.TotalWeight() - respondedStake
	return c.bestStake()+remaining < c.committee.QuorumThreshold()
}
