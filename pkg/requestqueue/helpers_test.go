package requestqueue

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type outcome struct {
	resp *Response
	err  error
}

// gatedTransport blocks every call until the test releases its path.
type gatedTransport struct {
	mu      sync.Mutex
	gates   map[string]chan outcome
	calls   map[string]int
	started chan string

	active    int32
	maxActive int32
}

func newGatedTransport() *gatedTransport {
	return &gatedTransport{
		gates:   make(map[string]chan outcome),
		calls:   make(map[string]int),
		started: make(chan string, 256),
	}
}

func (g *gatedTransport) gate(path string) chan outcome {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch, ok := g.gates[path]
	if !ok {
		ch = make(chan outcome, 1)
		g.gates[path] = ch
	}
	return ch
}

func (g *gatedTransport) Do(ctx context.Context, call Call) (*Response, error) {
	path := call.Spec.Path()

	g.mu.Lock()
	g.calls[path]++
	g.mu.Unlock()

	n := atomic.AddInt32(&g.active, 1)
	defer atomic.AddInt32(&g.active, -1)
	for {
		m := atomic.LoadInt32(&g.maxActive)
		if n <= m || atomic.CompareAndSwapInt32(&g.maxActive, m, n) {
			break
		}
	}

	g.started <- path

	select {
	case o := <-g.gate(path):
		return o.resp, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedTransport) release(path string, resp *Response, err error) {
	g.gate(path) <- outcome{resp: resp, err: err}
}

func (g *gatedTransport) succeed(path string) {
	g.release(path, &Response{StatusCode: http.StatusOK, Body: []byte(`{"path":"` + path + `"}`)}, nil)
}

func (g *gatedTransport) callCount(path string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[path]
}

func (g *gatedTransport) nextStarted(t *testing.T) string {
	t.Helper()
	select {
	case p := <-g.started:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a transport call to start")
		return ""
	}
}

func get(path string) RequestSpec {
	return NewRequestSpec(http.MethodGet, path, nil, nil)
}

func waitResolved(t *testing.T, w *Waiter) (*Response, error) {
	t.Helper()
	select {
	case <-w.Done():
		return w.Result()
	case <-time.After(2 * time.Second):
		require.FailNow(t, "waiter did not resolve")
		return nil, nil
	}
}

// startBlocker occupies the only slot of a limit-1 queue
func startBlocker(t *testing.T, q *Queue, g *gatedTransport, path string) *Waiter {
	t.Helper()
	w := q.Submit(context.Background(), get(path), 0)
	require.Equal(t, path, g.nextStarted(t))
	return w
}
