package grpcclient

import (
	"github.com/aurelia-chain/aurelia-go/model/aurelia"
)

// Full method names of the authority service. The service is defined by
// these hand-written message types together with the msgpack codec; there is
// no protobuf schema.
const (
	methodSubmitTransaction = "/aurelia.Authority/SubmitTransaction"
	methodSubmitCertificate = "/aurelia.Authority/SubmitCertificate"
	methodCommitteeInfo     = "/aurelia.Authority/CommitteeInfo"
)

type transactionRequest struct {
	Transaction *aurelia.Transaction
}

type transactionReply struct {
	Vote        *aurelia.Vote
	Certificate *aurelia.Certificate
	Effects     *aurelia.SignedEffects
}

type certificateRequest struct {
	Certificate *aurelia.Certificate
}

type certificateReply struct {
	Effects *aurelia.SignedEffects
}

type committeeInfoRequest struct {
	Epoch uint64
}

type committeeInfoReply struct {
	// Info is nil when the authority does not know the requested epoch.
	Info *aurelia.CommitteeInfo
}
