package aggregator

import (
	"context"
	"fmt"

	"github.com/aurelia-chain/aurelia-go/crypto/bls"
	"github.com/aurelia-chain/aurelia-go/model/aurelia"
	"github.com/aurelia-chain/aurelia-go/module/signature"
)

// TransactionCertifier turns a transaction into a quorum certificate.
// Certificates from any implementation are interchangeable: they verify
// under the same committee rules regardless of how the votes were gathered.
type TransactionCertifier interface {
	Certify(ctx context.Context, tx *aurelia.Transaction) (*aurelia.Certificate, error)
}

// NetworkCertifier certifies transactions by gathering votes from the live
// committee through an aggregator.
type NetworkCertifier struct {
	agg *Aggregator
}

var _ TransactionCertifier = (*NetworkCertifier)(nil)

func NewNetworkCertifier(agg *Aggregator) *NetworkCertifier {
	return &NetworkCertifier{agg: agg}
}

func (c *NetworkCertifier) Certify(ctx context.Context, tx *aurelia.Transaction) (*aurelia.Certificate, error) {
	result, err := c.agg.ProcessTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	if result.Certificate == nil {
		return nil, fmt.Errorf("transaction %s finalized via effects fast path without certificate", tx.ID())
	}
	return result.Certificate, nil
}

// LocalCertifier certifies transactions by signing votes directly with the
// committee members' keys, without any network round trip. It serves local
// setups where a single operator runs the whole committee, and tests.
type LocalCertifier struct {
	committee *aurelia.Committee
	keys      map[aurelia.Identifier]*bls.KeyPair
}

var _ TransactionCertifier = (*LocalCertifier)(nil)

// NewLocalCertifier creates a certifier over the given committee. The keys
// map holds the staking keys of the members this certifier controls; their
// combined stake must meet the quorum threshold.
func NewLocalCertifier(committee *aurelia.Committee, keys map[aurelia.Identifier]*bls.KeyPair) (*LocalCertifier, error) {
	var weight uint64
	for nodeID, key := range keys {
		member, ok := committee.Member(nodeID)
		if !ok {
			return nil, fmt.Errorf("key holder %s is not a committee member", nodeID)
		}
		if key == nil {
			return nil, fmt.Errorf("missing key for member %s", nodeID)
		}
		weight += member.Weight
	}
	if !committee.HasQuorum(weight) {
		return nil, fmt.Errorf("controlled stake %d below quorum threshold %d", weight, committee.QuorumThreshold())
	}
	return &LocalCertifier{committee: committee, keys: keys}, nil
}

func (c *LocalCertifier) Certify(_ context.Context, tx *aurelia.Transaction) (*aurelia.Certificate, error) {
	txID := tx.ID()
	epoch := c.committee.Epoch()
	message := aurelia.VoteMessage(txID, epoch, txID)

	agg, err := signature.NewWeightedSigAggregator(c.committee.Members(), message)
	if err != nil {
		return nil, fmt.Errorf("could not create vote aggregator: %w", err)
	}

	// Sign in canonical order and stop as soon as quorum is met.
	for _, member := range c.committee.Members() {
		key, ok := c.keys[member.NodeID]
		if !ok {
			continue
		}
		total, err := agg.TrustedAdd(member.NodeID, key.Sign(message))
		if err != nil {
			return nil, fmt.Errorf("could not add vote of %s: %w", member.NodeID, err)
		}
		if c.committee.HasQuorum(total) {
			break
		}
	}

	signerIDs, aggregated, err := agg.Aggregate()
	if err != nil {
		return nil, fmt.Errorf("could not aggregate local votes: %w", err)
	}
	return &aurelia.Certificate{
		TransactionID:       txID,
		Epoch:               epoch,
		ResultDigest:        txID,
		SignerIDs:           signerIDs,
		AggregatedSignature: aggregated,
	}, nil
}
