// Package signature implements weighted aggregation of BLS signatures over a
// single agreed-upon message, as used to assemble quorum certificates from
// individual validator votes.
package signature

import (
	"fmt"
	"sync"

	"github.com/aurelia-chain/aurelia-go/crypto/bls"
	"github.com/aurelia-chain/aurelia-go/model/aurelia"
)

// WeightedSigAggregator aggregates signatures of the same message from
// different signers. The signer set, their public keys, weights and the
// message are agreed upon upfront. The aggregator tracks the total weight of
// all collected signatures. Safe for concurrent use.
type WeightedSigAggregator struct {
	mu          sync.Mutex
	message     []byte
	keys        map[aurelia.Identifier][]byte
	weights     map[aurelia.Identifier]uint64
	collected   map[aurelia.Identifier][]byte
	totalWeight uint64
}

// NewWeightedSigAggregator creates an aggregator for signatures over message
// from the given signer set.
func NewWeightedSigAggregator(signers aurelia.IdentityList, message []byte) (*WeightedSigAggregator, error) {
	if len(signers) == 0 {
		return nil, fmt.Errorf("signer set must not be empty")
	}
	keys := make(map[aurelia.Identifier][]byte, len(signers))
	weights := make(map[aurelia.Identifier]uint64, len(signers))
	for _, signer := range signers {
		if len(signer.StakingPubKey) != bls.PubKeyLen {
			return nil, fmt.Errorf("signer %s has malformed public key", signer.NodeID)
		}
		keys[signer.NodeID] = signer.StakingPubKey
		weights[signer.NodeID] = signer.Weight
	}
	return &WeightedSigAggregator{
		message:   message,
		keys:      keys,
		weights:   weights,
		collected: make(map[aurelia.Identifier][]byte),
	}, nil
}

// Verify verifies the signature under the signer's public key and the agreed
// message. Expected errors during normal operations:
//   - InvalidSignerError if the signer is not part of the signer set
//   - ErrInvalidSignature if the signature is cryptographically invalid
func (a *WeightedSigAggregator) Verify(signerID aurelia.Identifier, sig []byte) error {
	key, ok := a.keys[signerID]
	if !ok {
		return NewInvalidSignerError(signerID)
	}
	if !bls.Verify(key, a.message, sig) {
		return fmt.Errorf("verifying signature of %s: %w", signerID, ErrInvalidSignature)
	}
	return nil
}

// TrustedAdd adds a signature to the internal set and adds the signer's
// weight to the total collected weight, iff the signature is not a
// duplicate. The signature is not verified here; callers must verify before
// adding, the final Aggregate performs a safety post-check. The total weight
// collected so far is returned regardless of error.
// Expected errors during normal operations:
//   - InvalidSignerError if the signer is not part of the signer set
//   - DuplicatedSignerError if this signer was already added
func (a *WeightedSigAggregator) TrustedAdd(signerID aurelia.Identifier, sig []byte) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	weight, ok := a.weights[signerID]
	if !ok {
		return a.totalWeight, NewInvalidSignerError(signerID)
	}
	if _, ok := a.collected[signerID]; ok {
		return a.totalWeight, NewDuplicatedSignerError(signerID)
	}
	a.collected[signerID] = sig
	a.totalWeight += weight
	return a.totalWeight, nil
}

// TotalWeight returns the total weight presented by the collected signatures.
func (a *WeightedSigAggregator) TotalWeight() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalWeight
}

// Aggregate aggregates the collected signatures and returns the signer IDs
// in canonical order together with the aggregated signature. The aggregate
// is verified before returning; this is required for safety since TrustedAdd
// allows adding unverified signatures.
// Expected errors during normal operations:
//   - ErrInsufficientSignatures if no signature has been collected
//   - ErrInvalidSignature if some added signature is invalid
func (a *WeightedSigAggregator) Aggregate() ([]aurelia.Identifier, []byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.collected) == 0 {
		return nil, nil, ErrInsufficientSignatures
	}

	signers := make(aurelia.IdentityList, 0, len(a.collected))
	for signerID := range a.collected {
		signers = append(signers, &aurelia.Identity{NodeID: signerID})
	}
	signers = signers.Sort()

	sigs := make([][]byte, 0, len(signers))
	keys := make([][]byte, 0, len(signers))
	signerIDs := make([]aurelia.Identifier, 0, len(signers))
	for _, signer := range signers {
		sigs = append(sigs, a.collected[signer.NodeID])
		keys = append(keys, a.keys[signer.NodeID])
		signerIDs = append(signerIDs, signer.NodeID)
	}

	aggregated, err := bls.AggregateSignatures(sigs)
	if err != nil {
		return nil, nil, fmt.Errorf("could not aggregate signatures: %w", err)
	}
	if !bls.VerifyAggregate(keys, a.message, aggregated) {
		return nil, nil, fmt.Errorf("aggregate failed post-check: %w", ErrInvalidSignature)
	}
	return signerIDs, aggregated, nil
}
