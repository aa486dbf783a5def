package aggregator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/aurelia-chain/aurelia-go/model/aurelia"
	"github.com/aurelia-chain/aurelia-go/utils/unittest"
)

// reduceFixture builds a committee plus a pool whose clients report their
// own node ID through CommitteeInfo; the tests below reduce over that call.
func reduceFixture(t *testing.T, n int, client func(nodeID aurelia.Identifier) AuthorityClient) (*aurelia.Committee, *Pool) {
	committee, _ := unittest.CommitteeFixture(t, 1, n)
	pool, err := NewPool(committee, func(identity *aurelia.Identity) (AuthorityClient, error) {
		return client(identity.NodeID), nil
	})
	require.NoError(t, err)
	return committee, pool
}

func echoRequest(ctx context.Context, client AuthorityClient, member *aurelia.Identity) (aurelia.Identifier, error) {
	_, err := client.CommitteeInfo(ctx, 0)
	return member.NodeID, err
}

// TestReduce_Exhaustion folds every reply when the fold never signals
// completion; the engine must report exhaustion.
func TestReduce_Exhaustion(t *testing.T) {
	committee, pool := reduceFixture(t, 5, func(aurelia.Identifier) AuthorityClient {
		return &fakeClient{}
	})

	seen := make(map[aurelia.Identifier]struct{})
	fold := func(acc map[aurelia.Identifier]struct{}, member *aurelia.Identity, nodeID aurelia.Identifier, err error) (map[aurelia.Identifier]struct{}, ReduceOutput) {
		require.NoError(t, err)
		require.Equal(t, member.NodeID, nodeID)
		acc[nodeID] = struct{}{}
		return acc, ReduceContinue
	}

	seen, exhausted, err := Reduce(context.Background(), committee, pool, time.Second, echoRequest, seen, fold)
	require.NoError(t, err)
	assert.True(t, exhausted)
	assert.Len(t, seen, 5)
}

// TestReduce_EarlyReturn stops folding as soon as the accumulator crosses
// its threshold, regardless of which members answered first.
func TestReduce_EarlyReturn(t *testing.T) {
	committee, pool := reduceFixture(t, 5, func(aurelia.Identifier) AuthorityClient {
		return &fakeClient{}
	})

	fold := func(acc int, _ *aurelia.Identity, _ aurelia.Identifier, err error) (int, ReduceOutput) {
		require.NoError(t, err)
		acc++
		if acc == 3 {
			return acc, ReduceReturn
		}
		return acc, ReduceContinue
	}

	count, exhausted, err := Reduce(context.Background(), committee, pool, time.Second, echoRequest, 0, fold)
	require.NoError(t, err)
	assert.False(t, exhausted)
	assert.Equal(t, 3, count)
}

// TestReduce_StopCancelsOutstanding verifies that ReduceReturnAndStop
// releases still-blocked requests via context cancellation.
func TestReduce_StopCancelsOutstanding(t *testing.T) {
	cancelled := atomic.NewInt32(0)

	committee, _ := unittest.CommitteeFixture(t, 1, 4)
	fast := committee.Members()[0].NodeID
	pool, err := NewPool(committee, func(identity *aurelia.Identity) (AuthorityClient, error) {
		if identity.NodeID == fast {
			return &fakeClient{}, nil
		}
		return &fakeClient{
			committeeInfo: func(ctx context.Context, _ uint64) (*aurelia.CommitteeInfo, error) {
				<-ctx.Done()
				cancelled.Add(1)
				return nil, ctx.Err()
			},
		}, nil
	})
	require.NoError(t, err)

	fold := func(acc int, _ *aurelia.Identity, _ aurelia.Identifier, err error) (int, ReduceOutput) {
		if err == nil {
			return acc + 1, ReduceReturnAndStop
		}
		return acc, ReduceContinue
	}

	count, exhausted, err := Reduce(context.Background(), committee, pool, time.Minute, echoRequest, 0, fold)
	require.NoError(t, err)
	assert.False(t, exhausted)
	assert.Equal(t, 1, count)

	require.Eventually(t, func() bool {
		return cancelled.Load() == 3
	}, time.Second, 10*time.Millisecond, "outstanding requests must be released promptly")
}

// TestReduce_RequestTimeout converts slow responses into per-member errors.
func TestReduce_RequestTimeout(t *testing.T) {
	committee, pool := reduceFixture(t, 3, func(aurelia.Identifier) AuthorityClient {
		return silentClient()
	})

	var failures int
	fold := func(acc int, _ *aurelia.Identity, _ aurelia.Identifier, err error) (int, ReduceOutput) {
		if err != nil {
			failures++
		}
		return acc, ReduceContinue
	}

	_, exhausted, err := Reduce(context.Background(), committee, pool, 20*time.Millisecond, echoRequest, 0, fold)
	require.NoError(t, err)
	assert.True(t, exhausted)
	assert.Equal(t, 3, failures)
}

// TestReduce_ParentContextCancelled aborts the reduction with the context
// error.
func TestReduce_ParentContextCancelled(t *testing.T) {
	committee, pool := reduceFixture(t, 3, func(aurelia.Identifier) AuthorityClient {
		return silentClient()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	fold := func(acc int, _ *aurelia.Identity, _ aurelia.Identifier, err error) (int, ReduceOutput) {
		return acc, ReduceContinue
	}

	_, _, err := Reduce(ctx, committee, pool, time.Minute, echoRequest, 0, fold)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestReduce_MissingClient surfaces a per-member error instead of failing
// the whole reduction.
func TestReduce_MissingClient(t *testing.T) {
	committee, _ := unittest.CommitteeFixture(t, 1, 3)
	pool := &Pool{clients: map[aurelia.Identifier]AuthorityClient{}}

	var errs []error
	fold := func(acc int, member *aurelia.Identity, _ aurelia.Identifier, err error) (int, ReduceOutput) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", member.NodeID, err))
		}
		return acc, ReduceContinue
	}

	_, exhausted, err := Reduce(context.Background(), committee, pool, time.Second, echoRequest, 0, fold)
	require.NoError(t, err)
	assert.True(t, exhausted)
	assert.Len(t, errs, 3)
}
