package ws

import "context"

// Future is a future-valued SendResult. Senders performs each send
// synchronously on the calling goroutine and returns a Future that is
// already resolved to the outcome, so Wait and Poll return at once;
// sends are not queued for the engine goroutine.
type Future struct {
	ch chan SendResult
}

// newResolvedFuture returns a Future already resolved to r.
func newResolvedFuture(r SendResult) Future {
	f := newFuture()
	f.resolve(r)
	return f
}

func newFuture() Future {
	return Future{ch: make(chan SendResult, 1)}
}

func (f Future) resolve(r SendResult) {
	select {
	case f.ch <- r:
	default:
	}
}

// Wait blocks until the send resolves or ctx is done, in which case it
// returns SendFailure.
func (f Future) Wait(ctx context.Context) SendResult {
	select {
	case r := <-f.ch:
		return r
	case <-ctx.Done():
		return SendFailure
	}
}

// Poll returns the resolved result and true if already available,
// otherwise the zero value and false.
func (f Future) Poll() (SendResult, bool) {
	select {
	case r := <-f.ch:
		return r, true
	default:
		return 0, false
	}
}
