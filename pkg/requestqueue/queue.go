package requestqueue

import (
	"container/heap"
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/harun/profiler/internal/observability"
	"github.com/harun/profiler/internal/tracing"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "profiler.requestqueue"

// DefaultConcurrency is the number of requests allowed in flight at once
const DefaultConcurrency = 6

// State is the lifecycle state of a queue entry
type State int

const (
	StatePending State = iota
	StateInFlight
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInFlight:
		return "in_flight"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// Call is one admitted request handed to the transport
type Call struct {
	Spec     RequestSpec
	Priority int
}

// Transport performs the network call for an admitted request and reports
// exactly one outcome.
type Transport interface {
	Do(ctx context.Context, call Call) (*Response, error)
}

// TransportFunc adapts a function to Transport
type TransportFunc func(ctx context.Context, call Call) (*Response, error)

// Do implements Transport
func (f TransportFunc) Do(ctx context.Context, call Call) (*Response, error) {
	return f(ctx, call)
}

// Stats is a point-in-time snapshot of queue occupancy
type Stats struct {
	Pending     int
	InFlight    int
	Concurrency int
	Waiters     int
}

// Option configures a Queue
type Option func(*Queue)

// WithConcurrency sets the in-flight limit. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(q *Queue) {
		if n >= 1 {
			q.limit = n
		}
	}
}

// WithLogger sets the queue logger
func WithLogger(logger zerolog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// Queue schedules runtime requests under a fixed concurrency limit, best
// priority first, coalescing equivalent requests into one call.
//
// All state is guarded by one mutex. Submit, Cancel, Supersede and the
// completion of a call each run as a single critical section, and new calls
// are started only by the scheduling pass inside those sections.
type Queue struct {
	transport Transport
	limit     int
	logger    zerolog.Logger
	idGen     func() (string, error)

	mu        sync.Mutex
	index     map[string]*entry
	pending   pendingHeap
	inFlight  int
	seq       uint64
	waiterSeq uint64
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	eventHandlers map[EventType][]EventHandler
	eventMu       sync.RWMutex
}

// New creates a queue that executes requests through transport
func New(transport Transport, opts ...Option) *Queue {
	observability.EnsureRegistered()

	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		transport:     transport,
		limit:         DefaultConcurrency,
		logger:        log.Logger,
		idGen:         func() (string, error) { return gonanoid.New(12) },
		index:         make(map[string]*entry),
		ctx:           ctx,
		cancel:        cancel,
		eventHandlers: make(map[EventType][]EventHandler),
	}
	for _, opt := range opts {
		opt(q)
	}

	q.logger = q.logger.With().Str("component", "requestqueue").Logger()
	q.logger.Debug().Int("concurrency", q.limit).Msg("Request queue initialized")

	return q
}

// Submit registers interest in spec and returns immediately. If a pending or
// in-flight request with the same key exists the waiter attaches to it and no
// new call is made; otherwise a pending entry is created with the given
// priority (lower runs sooner).
func (q *Queue) Submit(ctx context.Context, spec RequestSpec, priority int) *Waiter {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := tracing.StartSpan(
		ctx,
		tracerName,
		"requestqueue.submit",
		attribute.String("http.method", spec.Method()),
		attribute.String("path", spec.Path()),
		attribute.Int("priority", priority),
	)
	defer span.End()

	if tracing.GetRequestID(ctx) == "" {
		ctx = tracing.WithRequestID(ctx, tracing.NewRequestID())
	}
	logger := tracing.LoggerFromContext(ctx, q.logger)

	q.mu.Lock()
	defer q.mu.Unlock()

	q.waiterSeq++
	w := &Waiter{
		id:   q.waiterSeq,
		key:  spec.Key(),
		q:    q,
		done: make(chan struct{}),
	}

	if q.closed {
		w.resolve(nil, ErrQueueClosed)
		observability.RecordSubmission("rejected")
		span.SetStatus(codes.Error, ErrQueueClosed.Error())
		return w
	}

	if e, ok := q.lookup(w.key); ok {
		promoted := q.attach(e, w, priority)
		span.SetAttributes(attribute.Bool("coalesced", true), attribute.String("entry_id", e.id))

		logger.Debug().
			Str("entryId", e.id).
			Str("key", e.key).
			Str("state", e.state.String()).
			Int("waiters", len(e.waiters)).
			Bool("promoted", promoted).
			Msg("Request coalesced")

		observability.RecordSubmission("coalesced")
		q.emit(EventCoalesced, e, map[string]interface{}{
			"waiterId": w.id,
			"waiters":  len(e.waiters),
			"promoted": promoted,
		})
		return w
	}

	e := q.admit(ctx, spec, priority)
	q.attach(e, w, priority)
	span.SetAttributes(attribute.Bool("coalesced", false), attribute.String("entry_id", e.id))

	logger.Debug().
		Str("entryId", e.id).
		Str("key", e.key).
		Int("priority", priority).
		Int("pending", q.pending.Len()).
		Msg("Request admitted")

	observability.RecordSubmission("admitted")
	q.emit(EventSubmitted, e, map[string]interface{}{
		"waiterId": w.id,
		"pending":  q.pending.Len(),
	})

	q.pump()
	return w
}

// Cancel detaches w from its request. When w was the last waiter of a pending
// request, the request is removed and never executed. Cancelling a waiter of
// an in-flight request only stops its notification; the shared call goes on.
// Cancel is a no-op for resolved or already cancelled waiters.
func (q *Queue) Cancel(w *Waiter) {
	if w == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	e := w.entry
	if e == nil || w.cancelled {
		return
	}

	delete(e.waiters, w.id)
	w.entry = nil
	w.cancelled = true
	observability.RecordCancellation("waiter")

	removed := false
	if len(e.waiters) == 0 && e.state == StatePending {
		q.dropPending(e, nil)
		removed = true
		observability.RecordCancellation("entry")
		observability.SetQueueDepth(q.pending.Len(), q.inFlight)
	}

	q.logger.Debug().
		Str("entryId", e.id).
		Uint64("waiterId", w.id).
		Str("state", e.state.String()).
		Bool("entryRemoved", removed).
		Msg("Waiter cancelled")

	q.emit(EventCancelled, e, map[string]interface{}{
		"waiterId":     w.id,
		"entryRemoved": removed,
		"waiters":      len(e.waiters),
	})
}

// Supersede drops every pending request whose spec matches. Their waiters
// resolve with ErrSuperseded. In-flight requests are not affected.
func (q *Queue) Supersede(match func(RequestSpec) bool) int {
	if match == nil {
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	var victims []*entry
	for _, e := range q.pending {
		if match(e.spec) {
			victims = append(victims, e)
		}
	}

	waiters := 0
	for _, e := range victims {
		waiters += q.dropPending(e, ErrSuperseded)
		q.emit(EventSuperseded, e, nil)
	}

	if len(victims) > 0 {
		observability.RecordSuperseded(len(victims))
		observability.SetQueueDepth(q.pending.Len(), q.inFlight)
		q.logger.Info().
			Int("entries", len(victims)).
			Int("waiters", waiters).
			Msg("Pending requests superseded")
	}

	return len(victims)
}

// Stats returns current queue occupancy
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	waiters := 0
	for _, e := range q.index {
		waiters += len(e.waiters)
	}

	return Stats{
		Pending:     q.pending.Len(),
		InFlight:    q.inFlight,
		Concurrency: q.limit,
		Waiters:     waiters,
	}
}

// Close stops the queue. Pending waiters resolve with ErrQueueClosed, the
// context of in-flight calls is cancelled, and Close waits for them to return.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true

	dropped := 0
	for q.pending.Len() > 0 {
		e := q.pending[0]
		q.dropPending(e, ErrQueueClosed)
		dropped++
	}
	observability.SetQueueDepth(0, q.inFlight)
	q.mu.Unlock()

	q.logger.Info().Int("dropped", dropped).Msg("Request queue closing")

	q.cancel()
	q.wg.Wait()
	return nil
}

// pump is the scheduling pass. Requires q.mu.
func (q *Queue) pump() {
	for q.inFlight < q.limit && q.pending.Len() > 0 {
		e := q.popPending()

		e.state = StateInFlight
		e.startedAt = time.Now()
		q.inFlight++

		wait := e.startedAt.Sub(e.submittedAt)
		observability.RecordQueueWait(wait)

		q.logger.Debug().
			Str("entryId", e.id).
			Str("key", e.key).
			Int("priority", e.priority).
			Int("inFlight", q.inFlight).
			Dur("wait", wait).
			Msg("Request started")

		q.emit(EventStarted, e, map[string]interface{}{
			"inFlight": q.inFlight,
			"waiters":  len(e.waiters),
		})

		q.wg.Add(1)
		go q.execute(e)
	}
	observability.SetQueueDepth(q.pending.Len(), q.inFlight)
}

func (q *Queue) popPending() *entry {
	return heap.Pop(&q.pending).(*entry)
}

// execute runs one in-flight entry and completes it
func (q *Queue) execute(e *entry) {
	defer q.wg.Done()

	// Detached from the first submitter's cancellation, stopped by Close.
	base := context.WithoutCancel(e.ctx)
	taskCtx, span := tracing.StartSpan(
		base,
		tracerName,
		"requestqueue.execute",
		attribute.String("entry_id", e.id),
		attribute.String("http.method", e.spec.Method()),
		attribute.String("path", e.spec.Path()),
		attribute.Int("priority", e.priority),
	)
	defer span.End()

	runCtx, cancel := context.WithCancel(taskCtx)
	stopCancel := context.AfterFunc(q.ctx, cancel)
	defer func() {
		stopCancel()
		cancel()
	}()

	startTime := time.Now()
	resp, err := q.call(runCtx, e)
	duration := time.Since(startTime)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	q.mu.Lock()
	q.complete(e, resp, err, duration)
	q.pump()
	q.mu.Unlock()
}

// call invokes the transport, converting a panic into a failure outcome.
func (q *Queue) call(ctx context.Context, e *entry) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	resp, err = q.transport.Do(ctx, Call{Spec: e.spec, Priority: e.priority})
	if err == nil && resp == nil {
		err = ErrNoResponse
	}
	return resp, err
}

// complete resolves every waiter of e with the shared outcome. Requires q.mu.
func (q *Queue) complete(e *entry, resp *Response, err error, duration time.Duration) {
	q.unlink(e)
	q.inFlight--

	status := "success"
	e.state = StateCompleted
	if err != nil {
		status = "error"
		if q.ctx.Err() != nil && errors.Is(err, context.Canceled) {
			e.state = StateCancelled
			status = "cancelled"
		}
	}

	notified := len(e.waiters)
	for id, w := range e.waiters {
		w.resolve(resp, err)
		delete(e.waiters, id)
	}

	logger := tracing.LoggerFromContext(e.ctx, q.logger)
	if err != nil {
		logger.Warn().
			Str("entryId", e.id).
			Str("key", e.key).
			Dur("duration", duration).
			Int("waiters", notified).
			Err(err).
			Msg("Request failed")
	} else {
		logger.Debug().
			Str("entryId", e.id).
			Str("key", e.key).
			Dur("duration", duration).
			Int("waiters", notified).
			Msg("Request completed")
	}

	observability.RecordCompletion(e.spec.Method(), status, duration)
	q.emit(EventCompleted, e, map[string]interface{}{
		"duration": duration.Milliseconds(),
		"success":  err == nil,
		"waiters":  notified,
		"state":    e.state.String(),
	})
}
