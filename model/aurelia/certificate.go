package aurelia

import (
	"fmt"

	"github.com/aurelia-chain/aurelia-go/crypto/bls"
)

// Certificate bundles a transaction digest with an aggregated signature from
// a stake-weighted quorum of the committee. It is verifiable without
// re-contacting the committee and immutable once formed.
type Certificate struct {
	// TransactionID is the digest of the certified transaction. For
	// committee handover certificates it is the new committee's fingerprint.
	TransactionID Identifier
	// Epoch is the epoch of the committee whose quorum signed.
	Epoch uint64
	// ResultDigest is the result digest the quorum agreed on.
	ResultDigest Identifier
	// SignerIDs lists the contributing validators in canonical order.
	SignerIDs []Identifier
	// AggregatedSignature is the BLS aggregate of the signers' votes.
	AggregatedSignature []byte
}

// ID returns a unique identifier for the certificate.
func (c *Certificate) ID() Identifier {
	return MakeID(c)
}

// SignedWeight returns the total stake weight of the certificate's signers
// within the given committee. Signers unknown to the committee contribute
// nothing.
func (c *Certificate) SignedWeight(committee *Committee) uint64 {
	var weight uint64
	for _, signerID := range c.SignerIDs {
		weight += committee.WeightOf(signerID)
	}
	return weight
}

// Verify checks the certificate against the given committee: the epoch must
// match, every signer must be a distinct committee member, the signers'
// combined stake must meet the quorum threshold, and the aggregated
// signature must verify over the vote message under the signers' keys.
func (c *Certificate) Verify(committee *Committee) error {
	return c.verify(committee, VoteMessage(c.TransactionID, c.Epoch, c.ResultDigest))
}

// VerifyHandover checks a committee handover certificate, which signs the
// new committee's fingerprint rather than a transaction vote.
func (c *Certificate) VerifyHandover(committee *Committee) error {
	return c.verify(committee, CommitteeHandoverMessage(c.TransactionID, c.Epoch))
}

func (c *Certificate) verify(committee *Committee, message []byte) error {
	if c.Epoch != committee.Epoch() {
		return fmt.Errorf("certificate epoch %d does not match committee epoch %d", c.Epoch, committee.Epoch())
	}
	if len(c.SignerIDs) == 0 {
		return fmt.Errorf("certificate has no signers")
	}

	seen := make(map[Identifier]struct{}, len(c.SignerIDs))
	pubKeys := make([][]byte, 0, len(c.SignerIDs))
	var weight uint64
	for _, signerID := range c.SignerIDs {
		if _, ok := seen[signerID]; ok {
			return fmt.Errorf("duplicate signer %s", signerID)
		}
		seen[signerID] = struct{}{}
		member, ok := committee.Member(signerID)
		if !ok {
			return fmt.Errorf("signer %s is not a committee member", signerID)
		}
		pubKeys = append(pubKeys, member.StakingPubKey)
		weight += member.Weight
	}
	if !committee.HasQuorum(weight) {
		return fmt.Errorf("signed weight %d below quorum threshold %d", weight, committee.QuorumThreshold())
	}
	if !bls.VerifyAggregate(pubKeys, message, c.AggregatedSignature) {
		return fmt.Errorf("invalid aggregated signature")
	}
	return nil
}
