package aggregator

import (
	"github.com/aurelia-chain/aurelia-go/model/aurelia"
)

// ProcessStatus captures how far a transaction got through certification.
type ProcessStatus int

const (
	// StatusCertified means a quorum of votes was aggregated into a
	// certificate, but execution effects have not been confirmed.
	StatusCertified ProcessStatus = iota + 1
	// StatusExecuted means a quorum of matching execution effects was
	// collected; the transaction outcome is final.
	StatusExecuted
)

func (s ProcessStatus) String() string {
	switch s {
	case StatusCertified:
		return "certified"
	case StatusExecuted:
		return "executed"
	default:
		return "unknown"
	}
}

// ProcessResult is the outcome of a successful certification round.
type ProcessResult struct {
	Status      ProcessStatus
	Certificate *aurelia.Certificate
	Effects     *aurelia.ExecutionEffects
}
