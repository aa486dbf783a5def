package aggregator

import (
	"context"
	"fmt"

	"github.com/aurelia-chain/aurelia-go/model/aurelia"
)

// TransactionResponse is a single authority's answer to a transaction
// submission. Exactly one of the paths is expected from an honest authority:
// a fresh vote, or — if the authority already finalized the transaction —
// the certificate and/or its signed execution effects.
type TransactionResponse struct {
	Vote        *aurelia.Vote
	Certificate *aurelia.Certificate
	Effects     *aurelia.SignedEffects
}

// CertificateResponse is a single authority's answer to a certificate
// submission: its attestation to the execution effects.
type CertificateResponse struct {
	Effects *aurelia.SignedEffects
}

// AuthorityClient is the request/response channel to one committee member.
// Implementations must be safe for concurrent use; one client serves all
// in-flight operations against its validator.
type AuthorityClient interface {
	// SubmitTransaction submits a transaction for voting.
	SubmitTransaction(ctx context.Context, tx *aurelia.Transaction) (*TransactionResponse, error)

	// SubmitCertificate submits a certificate for execution and returns the
	// authority's signed effects.
	SubmitCertificate(ctx context.Context, cert *aurelia.Certificate) (*CertificateResponse, error)

	// CommitteeInfo returns the quorum-certified committee of the given
	// epoch, or (nil, nil) if the authority knows no such epoch yet.
	CommitteeInfo(ctx context.Context, epoch uint64) (*aurelia.CommitteeInfo, error)
}

// Dialer creates an authority client for a committee member.
type Dialer func(identity *aurelia.Identity) (AuthorityClient, error)

// Pool holds one client per committee member. It is built once per
// committee and shared read-only across all in-flight operations; an epoch
// change builds a new pool.
type Pool struct {
	clients map[aurelia.Identifier]AuthorityClient
}

// NewPool dials every committee member and returns the resulting pool.
func NewPool(committee *aurelia.Committee, dial Dialer) (*Pool, error) {
	clients := make(map[aurelia.Identifier]AuthorityClient, committee.Size())
	for _, member := range committee.Members() {
		client, err := dial(member)
		if err != nil {
			return nil, fmt.Errorf("could not dial authority %s at %s: %w", member.NodeID, member.Address, err)
		}
		clients[member.NodeID] = client
	}
	return &Pool{clients: clients}, nil
}

// Client returns the client for the given committee member.
func (p *Pool) Client(nodeID aurelia.Identifier) (AuthorityClient, bool) {
	client, ok := p.clients[nodeID]
	return client, ok
}

// Size returns the number of clients in the pool.
func (p *Pool) Size() int {
	return len(p.clients)
}
