package aurelia

import (
	"bytes"
	"fmt"
	"sort"
)

// Identity represents a validator committee member: its identifier, network
// address, stake weight and staking public key.
type Identity struct {
	// NodeID uniquely identifies the validator.
	NodeID Identifier
	// Address is the network address where the validator's RPC surface is reachable.
	Address string
	// Weight is the validator's stake weight, its voting power within the committee.
	Weight uint64
	// StakingPubKey is the compressed BLS public key the validator votes with.
	StakingPubKey []byte
}

// String returns a string representation of the identity.
func (iy Identity) String() string {
	return fmt.Sprintf("%s@%s=%d", iy.NodeID, iy.Address, iy.Weight)
}

// ID returns a unique identifier for the identity.
func (iy Identity) ID() Identifier {
	return iy.NodeID
}

// IdentityList is a list of identities.
type IdentityList []*Identity

// Sort returns a copy of the list ordered canonically, by ascending node ID.
func (il IdentityList) Sort() IdentityList {
	dup := make(IdentityList, len(il))
	copy(dup, il)
	sort.Slice(dup, func(i, j int) bool {
		return bytes.Compare(dup[i].NodeID[:], dup[j].NodeID[:]) < 0
	})
	return dup
}

// NodeIDs returns the node IDs of all identities in the list.
func (il IdentityList) NodeIDs() []Identifier {
	nodeIDs := make([]Identifier, 0, len(il))
	for _, iy := range il {
		nodeIDs = append(nodeIDs, iy.NodeID)
	}
	return nodeIDs
}

// TotalWeight returns the total stake weight of all identities in the list.
func (il IdentityList) TotalWeight() uint64 {
	var total uint64
	for _, iy := range il {
		total += iy.Weight
	}
	return total
}

// ByNodeID gets a node from the list by node ID.
func (il IdentityList) ByNodeID(nodeID Identifier) (*Identity, bool) {
	for _, iy := range il {
		if iy.NodeID == nodeID {
			return iy, true
		}
	}
	return nil, false
}

// StakingKeys returns the staking public keys of all identities, in list order.
func (il IdentityList) StakingKeys() [][]byte {
	keys := make([][]byte, 0, len(il))
	for _, iy := range il {
		keys = append(keys, iy.StakingPubKey)
	}
	return keys
}

// Fingerprint returns an identifier covering the full content of the list.
// Two lists with the same members in the same order have the same fingerprint.
func (il IdentityList) Fingerprint() Identifier {
	encodable := make([]encodableIdentity, 0, len(il))
	for _, iy := range il {
		encodable = append(encodable, encodableIdentity{
			NodeID:        iy.NodeID,
			Address:       iy.Address,
			Weight:        iy.Weight,
			StakingPubKey: iy.StakingPubKey,
		})
	}
	return MakeID(encodable)
}

type encodableIdentity struct {
	NodeID        Identifier
	Address       string
	Weight        uint64
	StakingPubKey []byte
}
