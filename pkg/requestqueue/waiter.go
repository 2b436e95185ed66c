package requestqueue

import (
	"context"
	"net/http"
)

// Response is the shared outcome of a successful transport call
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Waiter is the completion handle returned by Submit. It resolves once, with
// the result shared by every waiter attached to the same request. A cancelled
// waiter never resolves.
type Waiter struct {
	id  uint64
	key string
	q   *Queue

	// guarded by q.mu
	entry     *entry
	cancelled bool

	done chan struct{}
	resp *Response
	err  error
}

// ID returns the waiter's sequence number within its queue
func (w *Waiter) ID() uint64 { return w.id }

// Key returns the dedup key of the request the waiter was submitted for
func (w *Waiter) Key() string { return w.key }

// Done is closed when the waiter resolves
func (w *Waiter) Done() <-chan struct{} { return w.done }

// Result returns the outcome if the waiter has resolved, ErrNotResolved otherwise.
func (w *Waiter) Result() (*Response, error) {
	select {
	case <-w.done:
		return w.resp, w.err
	default:
		return nil, ErrNotResolved
	}
}

// Wait blocks until the waiter resolves or ctx is done. A ctx error does not
// cancel the waiter; call Cancel for that.
func (w *Waiter) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-w.done:
		return w.resp, w.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel detaches the waiter from its request. See Queue.Cancel.
func (w *Waiter) Cancel() {
	w.q.Cancel(w)
}

// resolve must be called with q.mu held, or before the waiter is published.
func (w *Waiter) resolve(resp *Response, err error) {
	w.resp = resp
	w.err = err
	w.entry = nil
	close(w.done)
}
