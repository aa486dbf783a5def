package aurelia

import (
	"github.com/vmihailenco/msgpack/v4"
)

// Domain separation tags for the three kinds of signed messages. Votes,
// effects attestations and committee handovers must never be mistakable for
// one another.
const (
	TransactionVoteTag   = "AURELIA-V0-TX-VOTE"
	ExecutionEffectsTag  = "AURELIA-V0-EFFECTS"
	CommitteeHandoverTag = "AURELIA-V0-COMMITTEE"
)

// Vote is a validator's signed response to a transaction submission. Two
// votes from the same validator for the same transaction in the same epoch
// must be identical; a second, differing vote is equivocation.
type Vote struct {
	// TransactionID is the digest of the transaction being voted on.
	TransactionID Identifier
	// Epoch is the epoch in which the vote was produced.
	Epoch uint64
	// SignerID identifies the voting validator.
	SignerID Identifier
	// ResultDigest is the digest of the result the validator committed to.
	ResultDigest Identifier
	// Signature is the validator's BLS signature over the vote message.
	Signature []byte
}

// ID returns a unique identifier for the vote.
func (v *Vote) ID() Identifier {
	return MakeID(v)
}

// Message returns the canonical bytes the vote signature covers.
func (v *Vote) Message() []byte {
	return VoteMessage(v.TransactionID, v.Epoch, v.ResultDigest)
}

// VoteMessage builds the canonical signed message for a transaction vote.
func VoteMessage(txID Identifier, epoch uint64, resultDigest Identifier) []byte {
	return signableMessage(TransactionVoteTag, txID, epoch, resultDigest)
}

// EffectsMessage builds the canonical signed message for an execution
// effects attestation.
func EffectsMessage(txID Identifier, epoch uint64, effectsDigest Identifier) []byte {
	return signableMessage(ExecutionEffectsTag, txID, epoch, effectsDigest)
}

// CommitteeHandoverMessage builds the canonical signed message certifying a
// next-epoch committee.
func CommitteeHandoverMessage(fingerprint Identifier, epoch uint64) []byte {
	return signableMessage(CommitteeHandoverTag, fingerprint, epoch, ZeroID)
}

func signableMessage(tag string, subject Identifier, epoch uint64, digest Identifier) []byte {
	data, err := msgpack.Marshal(struct {
		Tag     string
		Subject Identifier
		Epoch   uint64
		Digest  Identifier
	}{
		Tag:     tag,
		Subject: subject,
		Epoch:   epoch,
		Digest:  digest,
	})
	if err != nil {
		panic("could not encode signable message: " + err.Error())
	}
	return data
}
