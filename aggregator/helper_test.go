package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aurelia-chain/aurelia-go/crypto/bls"
	"github.com/aurelia-chain/aurelia-go/model/aurelia"
	"github.com/aurelia-chain/aurelia-go/module/metrics"
	"github.com/aurelia-chain/aurelia-go/utils/unittest"
)

// fakeClient is a scriptable in-process authority. Unset behaviors reject.
type fakeClient struct {
	submitTx      func(ctx context.Context, tx *aurelia.Transaction) (*TransactionResponse, error)
	submitCert    func(ctx context.Context, cert *aurelia.Certificate) (*CertificateResponse, error)
	committeeInfo func(ctx context.Context, epoch uint64) (*aurelia.CommitteeInfo, error)
}

func (c *fakeClient) SubmitTransaction(ctx context.Context, tx *aurelia.Transaction) (*TransactionResponse, error) {
	if c.submitTx == nil {
		return nil, NewRejectedErrorf("submit transaction not supported")
	}
	return c.submitTx(ctx, tx)
}

func (c *fakeClient) SubmitCertificate(ctx context.Context, cert *aurelia.Certificate) (*CertificateResponse, error) {
	if c.submitCert == nil {
		return nil, NewRejectedErrorf("submit certificate not supported")
	}
	return c.submitCert(ctx, cert)
}

func (c *fakeClient) CommitteeInfo(ctx context.Context, epoch uint64) (*aurelia.CommitteeInfo, error) {
	if c.committeeInfo == nil {
		return nil, nil
	}
	return c.committeeInfo(ctx, epoch)
}

// testEffects derives the deterministic effects every honest validator
// reports for a transaction.
func testEffects(txID aurelia.Identifier) *aurelia.ExecutionEffects {
	return &aurelia.ExecutionEffects{
		TransactionID: txID,
		Status:        aurelia.ExecutionSuccess,
		Mutated:       []aurelia.Identifier{aurelia.MakeID(txID)},
	}
}

// honestClient votes for the transaction's own digest and attests to the
// deterministic effects on certificate submission.
func honestClient(committee *aurelia.Committee, nodeID aurelia.Identifier, key *bls.KeyPair) *fakeClient {
	epoch := committee.Epoch()
	return &fakeClient{
		submitTx: func(_ context.Context, tx *aurelia.Transaction) (*TransactionResponse, error) {
			txID := tx.ID()
			return &TransactionResponse{
				Vote: unittest.VoteFixture(nodeID, key, epoch, txID, txID),
			}, nil
		},
		submitCert: func(_ context.Context, cert *aurelia.Certificate) (*CertificateResponse, error) {
			return &CertificateResponse{
				Effects: unittest.SignedEffectsFixture(nodeID, key, epoch, testEffects(cert.TransactionID)),
			}, nil
		},
	}
}

// divergentClient votes for a digest of its own and attests to divergent
// effects, simulating a faulty or malicious validator.
func divergentClient(committee *aurelia.Committee, nodeID aurelia.Identifier, key *bls.KeyPair, salt string) *fakeClient {
	epoch := committee.Epoch()
	return &fakeClient{
		submitTx: func(_ context.Context, tx *aurelia.Transaction) (*TransactionResponse, error) {
			txID := tx.ID()
			return &TransactionResponse{
				Vote: unittest.VoteFixture(nodeID, key, epoch, txID, aurelia.MakeID(salt)),
			}, nil
		},
		submitCert: func(_ context.Context, cert *aurelia.Certificate) (*CertificateResponse, error) {
			effects := testEffects(cert.TransactionID)
			effects.Deleted = []aurelia.Identifier{aurelia.MakeID(salt)}
			return &CertificateResponse{
				Effects: unittest.SignedEffectsFixture(nodeID, key, epoch, effects),
			}, nil
		},
	}
}

// silentClient blocks until the request context expires.
func silentClient() *fakeClient {
	wait := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	return &fakeClient{
		submitTx: func(ctx context.Context, _ *aurelia.Transaction) (*TransactionResponse, error) {
			return nil, wait(ctx)
		},
		submitCert: func(ctx context.Context, _ *aurelia.Certificate) (*CertificateResponse, error) {
			return nil, wait(ctx)
		},
		committeeInfo: func(ctx context.Context, _ uint64) (*aurelia.CommitteeInfo, error) {
			return nil, wait(ctx)
		},
	}
}

// rejectingClient definitively rejects everything, so no retries kick in.
func rejectingClient() *fakeClient {
	return &fakeClient{
		submitTx: func(context.Context, *aurelia.Transaction) (*TransactionResponse, error) {
			return nil, NewRejectedErrorf("transaction rejected")
		},
		submitCert: func(context.Context, *aurelia.Certificate) (*CertificateResponse, error) {
			return nil, NewRejectedErrorf("certificate rejected")
		},
	}
}

func testConfig() TimeoutConfig {
	return TimeoutConfig{
		RequestTimeout:     100 * time.Millisecond,
		TotalTimeout:       5 * time.Second,
		MaxRetries:         0,
		RetryBase:          time.Millisecond,
		RetryMax:           5 * time.Millisecond,
		RetryJitterPercent: 10,
	}
}

// testAggregator builds an aggregator whose dialer hands out the scripted
// clients. Members without a scripted client reject all requests.
func testAggregator(t *testing.T, committee *aurelia.Committee, clients map[aurelia.Identifier]AuthorityClient) *Aggregator {
	return testAggregatorWithConfig(t, committee, clients, testConfig())
}

func testAggregatorWithConfig(t *testing.T, committee *aurelia.Committee, clients map[aurelia.Identifier]AuthorityClient, conf TimeoutConfig) *Aggregator {
	dial := func(identity *aurelia.Identity) (AuthorityClient, error) {
		if client, ok := clients[identity.NodeID]; ok {
			return client, nil
		}
		return rejectingClient(), nil
	}
	agg, err := New(unittest.Logger(), metrics.NewNoopCollector(), conf, committee, dial)
	require.NoError(t, err)
	return agg
}

// honestCommittee scripts every member as honest.
func honestCommittee(t *testing.T, epoch uint64, n int) (*aurelia.Committee, map[aurelia.Identifier]*bls.KeyPair, map[aurelia.Identifier]AuthorityClient) {
	committee, keys := unittest.CommitteeFixture(t, epoch, n)
	clients := make(map[aurelia.Identifier]AuthorityClient, n)
	for _, member := range committee.Members() {
		clients[member.NodeID] = honestClient(committee, member.NodeID, keys[member.NodeID])
	}
	return committee, keys, clients
}
