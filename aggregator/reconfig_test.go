package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurelia-chain/aurelia-go/model/aurelia"
	"github.com/aurelia-chain/aurelia-go/module/metrics"
	"github.com/aurelia-chain/aurelia-go/utils/unittest"
)

// infoClient serves committee info for exactly one epoch and answers "no
// such epoch" for every other.
func infoClient(epoch uint64, info *aurelia.CommitteeInfo) *fakeClient {
	return &fakeClient{
		committeeInfo: func(_ context.Context, requested uint64) (*aurelia.CommitteeInfo, error) {
			if requested == epoch {
				return info, nil
			}
			return nil, nil
		},
	}
}

// TestCatchUp_WalksEpochChain advances from genesis across two verified
// handovers and stops at the committee that knows no successor.
func TestCatchUp_WalksEpochChain(t *testing.T) {
	genesis, keys0 := unittest.CommitteeFixture(t, 0, 4)
	second, keys1 := unittest.CommitteeFixture(t, 1, 4)
	third, _ := unittest.CommitteeFixture(t, 2, 4)

	info1 := &aurelia.CommitteeInfo{
		Epoch:       1,
		Members:     second.Members(),
		Certificate: unittest.HandoverCertificateFixture(t, genesis, keys0, second),
	}
	info2 := &aurelia.CommitteeInfo{
		Epoch:       2,
		Members:     third.Members(),
		Certificate: unittest.HandoverCertificateFixture(t, second, keys1, third),
	}

	clients := make(map[aurelia.Identifier]AuthorityClient)
	for _, member := range genesis.Members() {
		clients[member.NodeID] = infoClient(1, info1)
	}
	for _, member := range second.Members() {
		clients[member.NodeID] = infoClient(2, info2)
	}
	for _, member := range third.Members() {
		clients[member.NodeID] = &fakeClient{}
	}

	agg := testAggregator(t, genesis, clients)

	epoch, err := agg.CatchUp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), epoch)
	assert.Equal(t, uint64(2), agg.Epoch())
	assert.Equal(t, third.Fingerprint(), agg.Committee().Fingerprint())
}

// TestCatchUp_AlreadyCurrent returns immediately when a quorum reports no
// next epoch.
func TestCatchUp_AlreadyCurrent(t *testing.T) {
	committee, _, clients := honestCommittee(t, 3, 4)
	agg := testAggregator(t, committee, clients)

	epoch, err := agg.CatchUp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), epoch)
}

// TestCatchUp_MinorityCannotHideEpoch advances as long as one authority
// serves a verifiable handover, even if others deny the epoch exists.
func TestCatchUp_MinorityCannotHideEpoch(t *testing.T) {
	genesis, keys0 := unittest.CommitteeFixture(t, 0, 4)
	second, _ := unittest.CommitteeFixture(t, 1, 4)

	info1 := &aurelia.CommitteeInfo{
		Epoch:       1,
		Members:     second.Members(),
		Certificate: unittest.HandoverCertificateFixture(t, genesis, keys0, second),
	}

	clients := make(map[aurelia.Identifier]AuthorityClient)
	members := genesis.Members()
	clients[members[0].NodeID] = &fakeClient{} // denies every epoch
	clients[members[1].NodeID] = infoClient(1, info1)
	clients[members[2].NodeID] = infoClient(1, info1)
	clients[members[3].NodeID] = infoClient(1, info1)
	for _, member := range second.Members() {
		clients[member.NodeID] = &fakeClient{}
	}

	agg := testAggregator(t, genesis, clients)

	epoch, err := agg.CatchUp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), epoch)
}

// TestCatchUp_RejectsForgedHandover stays pinned at the verified epoch when
// the offered handover certificate does not verify.
func TestCatchUp_RejectsForgedHandover(t *testing.T) {
	genesis, _ := unittest.CommitteeFixture(t, 0, 4)
	second, keys1 := unittest.CommitteeFixture(t, 1, 4)

	// certificate signed by the wrong committee's keys
	forged := &aurelia.CommitteeInfo{
		Epoch:       1,
		Members:     second.Members(),
		Certificate: unittest.HandoverCertificateFixture(t, second, keys1, second),
	}

	clients := make(map[aurelia.Identifier]AuthorityClient)
	for _, member := range genesis.Members() {
		clients[member.NodeID] = infoClient(1, forged)
	}

	agg := testAggregator(t, genesis, clients)

	epoch, err := agg.CatchUp(context.Background())
	require.True(t, IsReconfigFailedError(err), "got: %v", err)
	assert.Equal(t, uint64(0), epoch)
	assert.Equal(t, uint64(0), agg.Epoch())
}

// TestCatchUp_EpochMismatchRejected rejects committee info whose epoch is
// not the requested successor.
func TestCatchUp_EpochMismatchRejected(t *testing.T) {
	genesis, keys0 := unittest.CommitteeFixture(t, 0, 4)
	skipped, _ := unittest.CommitteeFixture(t, 5, 4)

	info := &aurelia.CommitteeInfo{
		Epoch:       5,
		Members:     skipped.Members(),
		Certificate: unittest.HandoverCertificateFixture(t, genesis, keys0, skipped),
	}

	clients := make(map[aurelia.Identifier]AuthorityClient)
	for _, member := range genesis.Members() {
		clients[member.NodeID] = infoClient(1, info)
	}

	agg := testAggregator(t, genesis, clients)

	_, err := agg.CatchUp(context.Background())
	require.True(t, IsReconfigFailedError(err), "got: %v", err)
	assert.Equal(t, uint64(0), agg.Epoch())
}

// TestCatchUp_StepBoundedByTotalTimeout aborts a step against a fully silent
// committee once TotalTimeout elapses, long before the per-member request
// budget would run out.
func TestCatchUp_StepBoundedByTotalTimeout(t *testing.T) {
	committee, _ := unittest.CommitteeFixture(t, 0, 4)
	clients := make(map[aurelia.Identifier]AuthorityClient)
	for _, member := range committee.Members() {
		clients[member.NodeID] = silentClient()
	}

	conf := testConfig()
	conf.RequestTimeout = 10 * time.Second
	conf.TotalTimeout = 100 * time.Millisecond
	agg := testAggregatorWithConfig(t, committee, clients, conf)

	start := time.Now()
	epoch, err := agg.CatchUp(context.Background())
	elapsed := time.Since(start)

	require.True(t, IsReconfigFailedError(err), "got: %v", err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, uint64(0), epoch)
	assert.Less(t, elapsed, conf.RequestTimeout/2, "step must end with TotalTimeout, not the request budget")
}

// TestCatchUp_EpochMetric exercises construction against the metrics
// collector wiring.
func TestCatchUp_EpochMetric(t *testing.T) {
	committee, _, clients := honestCommittee(t, 3, 4)
	dial := func(identity *aurelia.Identity) (AuthorityClient, error) {
		return clients[identity.NodeID], nil
	}
	agg, err := New(unittest.Logger(), metrics.NewNoopCollector(), testConfig(), committee, dial)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), agg.Epoch())
}
