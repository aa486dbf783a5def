package aurelia

// ExecutionStatus is the terminal status validators report for an executed
// certificate.
type ExecutionStatus uint8

const (
	// ExecutionSuccess indicates the certified transaction executed cleanly.
	ExecutionSuccess ExecutionStatus = iota
	// ExecutionFailure indicates the certified transaction aborted. The
	// abort itself is deterministic and still quorum-certified.
	ExecutionFailure
)

// String returns a string representation of the execution status.
func (s ExecutionStatus) String() string {
	switch s {
	case ExecutionSuccess:
		return "success"
	case ExecutionFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// ExecutionEffects is the deterministic outcome validators report after
// executing a certificate. Honest validators executing the same certificate
// must report identical effects.
type ExecutionEffects struct {
	// TransactionID is the digest of the executed transaction.
	TransactionID Identifier
	// Status is the terminal execution status.
	Status ExecutionStatus
	// Created, Mutated and Deleted list the object IDs touched by execution.
	Created []Identifier
	Mutated []Identifier
	Deleted []Identifier
}

// ID returns the canonical digest of the effects.
func (e *ExecutionEffects) ID() Identifier {
	return MakeID(e)
}

// SignedEffects is one validator's attestation to the effects of executing
// a certificate. Quorum rules for effects mirror those for votes.
type SignedEffects struct {
	Effects   ExecutionEffects
	Epoch     uint64
	SignerID  Identifier
	Signature []byte
}

// Message returns the canonical bytes the effects signature covers.
func (s *SignedEffects) Message() []byte {
	return EffectsMessage(s.Effects.TransactionID, s.Epoch, s.Effects.ID())
}
