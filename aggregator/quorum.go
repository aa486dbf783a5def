package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aurelia-chain/aurelia-go/model/aurelia"
)

// ReduceOutput is the signal a fold function returns to the reduction engine
// after folding one incoming response.
type ReduceOutput int

const (
	// ReduceContinue keeps waiting for more responses.
	ReduceContinue ReduceOutput = iota

	// ReduceReturn returns the accumulator to the caller while letting the
	// remaining requests run to completion in the background. Their results
	// are discarded.
	ReduceReturn

	// ReduceReturnAndStop returns the accumulator to the caller and cancels
	// all still-outstanding requests.
	ReduceReturnAndStop
)

// RequestFunc issues one request to one committee member.
type RequestFunc[R any] func(ctx context.Context, client AuthorityClient, member *aurelia.Identity) (R, error)

// FoldFunc folds one response (or error) from one committee member into the
// accumulator. It runs on the collecting goroutine only and must be
// synchronous and non-blocking: it sits on the hot path of every response
// arrival. Its success criterion must not depend on response arrival order.
type FoldFunc[A, R any] func(acc A, member *aurelia.Identity, value R, err error) (A, ReduceOutput)

type reply[R any] struct {
	member *aurelia.Identity
	value  R
	err    error
}

// Reduce issues the request to every committee member concurrently, folds
// responses as they arrive and terminates as soon as the fold signals a
// final result. Each request is individually bounded by requestTimeout; a
// late response counts as a network error for that member.
//
// The returned boolean reports exhaustion: true means every member responded
// (successfully or with an error) without the fold signaling a final result.
// Callers must treat an exhausted reduction as "no quorum reached" unless
// the accumulator itself encodes success. A non-nil error is only returned
// when the parent context ends before the reduction does.
func Reduce[A, R any](
	ctx context.Context,
	committee *aurelia.Committee,
	pool *Pool,
	requestTimeout time.Duration,
	request RequestFunc[R],
	acc A,
	fold FoldFunc[A, R],
) (A, bool, error) {

	members := committee.Members()
	replies := make(chan reply[R], len(members))

	// Outstanding requests are cancelled either by an explicit stop signal
	// or, cooperatively, once every request goroutine has returned.
	reqCtx, cancelOutstanding := context.WithCancel(ctx)

	var wg sync.WaitGroup
	for _, member := range members {
		member := member
		wg.Add(1)
		go func() {
			defer wg.Done()
			client, ok := pool.Client(member.NodeID)
			if !ok {
				var zero R
				replies <- reply[R]{member: member, value: zero, err: fmt.Errorf("no client for authority %s", member.NodeID)}
				return
			}
			callCtx, cancel := context.WithTimeout(reqCtx, requestTimeout)
			defer cancel()
			value, err := request(callCtx, client, member)
			replies <- reply[R]{member: member, value: value, err: err}
		}()
	}
	go func() {
		wg.Wait()
		cancelOutstanding()
	}()

	for range members {
		select {
		case r := <-replies:
			var out ReduceOutput
			acc, out = fold(acc, r.member, r.value, r.err)
			switch out {
			case ReduceContinue:
				continue
			case ReduceReturn:
				return acc, false, nil
			case ReduceReturnAndStop:
				cancelOutstanding()
				return acc, false, nil
			}
		case <-ctx.Done():
			cancelOutstanding()
			return acc, false, ctx.Err()
		}
	}
	return acc, true, nil
}
