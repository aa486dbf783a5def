package aurelia

import (
	"fmt"
)

// Committee is the immutable per-epoch validator set. It maps validator
// identities to their stake weights and network addresses, and computes the
// byzantine-safety thresholds. Committees are never mutated in place; an
// epoch change replaces the whole committee.
type Committee struct {
	epoch       uint64
	members     IdentityList
	totalWeight uint64
}

// NewCommittee constructs a committee for the given epoch. Members are
// stored in canonical order. All members must have a positive weight, a
// distinct node ID and a staking public key.
func NewCommittee(epoch uint64, members IdentityList) (*Committee, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("committee must have at least one member")
	}
	seen := make(map[Identifier]struct{}, len(members))
	for _, member := range members {
		if member.Weight == 0 {
			return nil, fmt.Errorf("member %s has zero weight", member.NodeID)
		}
		if len(member.StakingPubKey) == 0 {
			return nil, fmt.Errorf("member %s has no staking public key", member.NodeID)
		}
		if _, ok := seen[member.NodeID]; ok {
			return nil, fmt.Errorf("duplicate member %s", member.NodeID)
		}
		seen[member.NodeID] = struct{}{}
	}
	sorted := members.Sort()
	return &Committee{
		epoch:       epoch,
		members:     sorted,
		totalWeight: sorted.TotalWeight(),
	}, nil
}

// Epoch returns the epoch this committee is valid for.
func (c *Committee) Epoch() uint64 {
	return c.epoch
}

// Members returns the committee members in canonical order. The returned
// list must not be modified.
func (c *Committee) Members() IdentityList {
	return c.members
}

// Size returns the number of committee members.
func (c *Committee) Size() int {
	return len(c.members)
}

// TotalWeight returns the total stake weight of the committee.
func (c *Committee) TotalWeight() uint64 {
	return c.totalWeight
}

// Member returns the identity for the given node ID, if it is part of the
// committee.
func (c *Committee) Member(nodeID Identifier) (*Identity, bool) {
	return c.members.ByNodeID(nodeID)
}

// WeightOf returns the stake weight of the given member, or zero if the
// node is not part of the committee.
func (c *Committee) WeightOf(nodeID Identifier) uint64 {
	member, ok := c.members.ByNodeID(nodeID)
	if !ok {
		return 0
	}
	return member.Weight
}

// QuorumThreshold returns the weight that is minimally required for a quorum,
// i.e. the smallest integer t such that 2*totalWeight/3 < t. A set of votes
// carrying at least this weight is byzantine-safe, assuming less than one
// third of the total stake is faulty.
func (c *Committee) QuorumThreshold() uint64 {
	return QuorumThreshold(c.totalWeight)
}

// ValidityThreshold returns the weight guaranteeing that at least one honest
// member is included, i.e. the smallest integer t such that totalWeight/3 < t.
func (c *Committee) ValidityThreshold() uint64 {
	return ValidityThreshold(c.totalWeight)
}

// HasQuorum returns whether the given accumulated weight meets the quorum
// threshold.
func (c *Committee) HasQuorum(weight uint64) bool {
	return weight >= c.QuorumThreshold()
}

// Fingerprint returns an identifier covering the epoch and the full member
// list. It is the message that committee-handover certificates sign.
func (c *Committee) Fingerprint() Identifier {
	return MakeID(struct {
		Epoch   uint64
		Members Identifier
	}{
		Epoch:   c.epoch,
		Members: c.members.Fingerprint(),
	})
}

// QuorumThreshold returns the weight that is minimally required for a quorum
// over a total weight.
func QuorumThreshold(totalWeight uint64) uint64 {
	// We need the smallest integer t such that 2 * totalWeight / 3 < t.
	// Formally, the minimally required weight is: 2 * Floor(totalWeight/3) + max(1, totalWeight mod 3)
	floorOneThird := totalWeight / 3 // integer division, includes floor
	res := 2 * floorOneThird
	divRemainder := totalWeight % 3
	if divRemainder <= 1 {
		res = res + 1
	} else {
		res += divRemainder
	}
	return res
}

// ValidityThreshold returns the weight that guarantees at least one honest
// member's contribution over a total weight.
func ValidityThreshold(totalWeight uint64) uint64 {
	// We need the smallest integer t such that totalWeight / 3 < t, which
	// is Floor(totalWeight/3) + 1.
	return totalWeight/3 + 1
}

// CommitteeInfo is the quorum-certified description of a next-epoch
// committee, as returned by validators during epoch reconfiguration. The
// certificate is produced by the committee of the preceding epoch over the
// new committee's fingerprint.
type CommitteeInfo struct {
	Epoch       uint64
	Members     IdentityList
	Certificate *Certificate
}
