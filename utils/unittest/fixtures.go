// Package unittest provides test fixtures for committees, identities,
// transactions and signed messages backed by real BLS keys.
package unittest

import (
	crand "crypto/rand"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aurelia-chain/aurelia-go/crypto/bls"
	"github.com/aurelia-chain/aurelia-go/model/aurelia"
)

func IdentifierFixture() aurelia.Identifier {
	var id aurelia.Identifier
	_, _ = crand.Read(id[:])
	return id
}

func IdentifierListFixture(n int) []aurelia.Identifier {
	ids := make([]aurelia.Identifier, n)
	for i := range ids {
		ids[i] = IdentifierFixture()
	}
	return ids
}

// IdentityFixture returns a committee member identity with a freshly
// generated staking key, and the key itself.
func IdentityFixture(t *testing.T, opts ...func(*aurelia.Identity)) (*aurelia.Identity, *bls.KeyPair) {
	key, err := bls.GenerateKeyPair()
	require.NoError(t, err)

	nodeID := IdentifierFixture()
	identity := &aurelia.Identity{
		NodeID:        nodeID,
		Address:       fmt.Sprintf("%x@aurelia.test:9000", nodeID[0:7]),
		Weight:        1000,
		StakingPubKey: key.PublicKey(),
	}
	for _, apply := range opts {
		apply(identity)
	}
	return identity, key
}

func WithWeight(weight uint64) func(*aurelia.Identity) {
	return func(identity *aurelia.Identity) {
		identity.Weight = weight
	}
}

// IdentityListFixture returns n identities with fresh staking keys, keyed by
// node ID.
func IdentityListFixture(t *testing.T, n int, opts ...func(*aurelia.Identity)) (aurelia.IdentityList, map[aurelia.Identifier]*bls.KeyPair) {
	identities := make(aurelia.IdentityList, 0, n)
	keys := make(map[aurelia.Identifier]*bls.KeyPair, n)
	for i := 0; i < n; i++ {
		identity, key := IdentityFixture(t, opts...)
		identities = append(identities, identity)
		keys[identity.NodeID] = key
	}
	return identities, keys
}

// CommitteeFixture returns a committee of n equally weighted members for the
// given epoch, together with every member's staking key.
func CommitteeFixture(t *testing.T, epoch uint64, n int) (*aurelia.Committee, map[aurelia.Identifier]*bls.KeyPair) {
	identities, keys := IdentityListFixture(t, n)
	committee, err := aurelia.NewCommittee(epoch, identities)
	require.NoError(t, err)
	return committee, keys
}

func TransactionFixture() *aurelia.Transaction {
	return &aurelia.Transaction{
		Sender:  IdentifierFixture(),
		Nonce:   42,
		Payload: []byte("transfer 7 coins"),
	}
}

// VoteFixture returns a validly signed vote from the given signer for the
// transaction, committing to the given result digest.
func VoteFixture(signerID aurelia.Identifier, key *bls.KeyPair, epoch uint64, txID, resultDigest aurelia.Identifier) *aurelia.Vote {
	vote := &aurelia.Vote{
		TransactionID: txID,
		Epoch:         epoch,
		SignerID:      signerID,
		ResultDigest:  resultDigest,
	}
	vote.Signature = key.Sign(vote.Message())
	return vote
}

func EffectsFixture(txID aurelia.Identifier) *aurelia.ExecutionEffects {
	return &aurelia.ExecutionEffects{
		TransactionID: txID,
		Status:        aurelia.ExecutionSuccess,
		Created:       IdentifierListFixture(2),
		Mutated:       IdentifierListFixture(1),
	}
}

// SignedEffectsFixture returns a validly signed effects attestation.
func SignedEffectsFixture(signerID aurelia.Identifier, key *bls.KeyPair, epoch uint64, effects *aurelia.ExecutionEffects) *aurelia.SignedEffects {
	signed := &aurelia.SignedEffects{
		Effects:  *effects,
		Epoch:    epoch,
		SignerID: signerID,
	}
	signed.Signature = key.Sign(signed.Message())
	return signed
}

// CertificateFixture aggregates votes from enough members, in canonical
// order, to form a valid certificate over the given transaction and digest.
func CertificateFixture(t *testing.T, committee *aurelia.Committee, keys map[aurelia.Identifier]*bls.KeyPair, txID, resultDigest aurelia.Identifier) *aurelia.Certificate {
	message := aurelia.VoteMessage(txID, committee.Epoch(), resultDigest)

	var signerIDs []aurelia.Identifier
	var sigs [][]byte
	var weight uint64
	for _, member := range committee.Members() {
		key, ok := keys[member.NodeID]
		require.True(t, ok, "missing key for member %s", member.NodeID)
		signerIDs = append(signerIDs, member.NodeID)
		sigs = append(sigs, key.Sign(message))
		weight += member.Weight
		if committee.HasQuorum(weight) {
			break
		}
	}

	aggregated, err := bls.AggregateSignatures(sigs)
	require.NoError(t, err)

	return &aurelia.Certificate{
		TransactionID:       txID,
		Epoch:               committee.Epoch(),
		ResultDigest:        resultDigest,
		SignerIDs:           signerIDs,
		AggregatedSignature: aggregated,
	}
}

// HandoverCertificateFixture aggregates a quorum of the prior committee's
// signatures over the next committee's fingerprint.
func HandoverCertificateFixture(t *testing.T, prior *aurelia.Committee, keys map[aurelia.Identifier]*bls.KeyPair, next *aurelia.Committee) *aurelia.Certificate {
	fingerprint := next.Fingerprint()
	message := aurelia.CommitteeHandoverMessage(fingerprint, prior.Epoch())

	var signerIDs []aurelia.Identifier
	var sigs [][]byte
	var weight uint64
	for _, member := range prior.Members() {
		key, ok := keys[member.NodeID]
		require.True(t, ok, "missing key for member %s", member.NodeID)
		signerIDs = append(signerIDs, member.NodeID)
		sigs = append(sigs, key.Sign(message))
		weight += member.Weight
		if prior.HasQuorum(weight) {
			break
		}
	}

	aggregated, err := bls.AggregateSignatures(sigs)
	require.NoError(t, err)

	return &aurelia.Certificate{
		TransactionID:       fingerprint,
		Epoch:               prior.Epoch(),
		SignerIDs:           signerIDs,
		AggregatedSignature: aggregated,
	}
}
