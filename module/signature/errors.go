package signature

import (
	"errors"
	"fmt"

	"github.com/aurelia-chain/aurelia-go/model/aurelia"
)

var (
	// ErrInvalidSignature is returned when a signature fails cryptographic
	// verification.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInsufficientSignatures is returned when aggregation is attempted
	// before any signature has been collected.
	ErrInsufficientSignatures = errors.New("insufficient signatures")
)

// InvalidSignerError indicates that the signer is not part of the signer set
// the aggregator was constructed with.
type InvalidSignerError struct {
	SignerID aurelia.Identifier
}

func NewInvalidSignerError(signerID aurelia.Identifier) error {
	return InvalidSignerError{SignerID: signerID}
}

func (e InvalidSignerError) Error() string {
	return fmt.Sprintf("signer %s is not an authorized signer", e.SignerID)
}

// IsInvalidSignerError returns whether err is an InvalidSignerError.
func IsInvalidSignerError(err error) bool {
	var e InvalidSignerError
	return errors.As(err, &e)
}

// DuplicatedSignerError indicates that a signature from this signer was
// already added.
type DuplicatedSignerError struct {
	SignerID aurelia.Identifier
}

func NewDuplicatedSignerError(signerID aurelia.Identifier) error {
	return DuplicatedSignerError{SignerID: signerID}
}

func (e DuplicatedSignerError) Error() string {
	return fmt.Sprintf("signer %s was already added", e.SignerID)
}

// IsDuplicatedSignerError returns whether err is a DuplicatedSignerError.
func IsDuplicatedSignerError(err error) bool {
	var e DuplicatedSignerError
	return errors.As(err, &e)
}
