// Package requestqueue schedules runtime query requests under a concurrency limit.
//
// Invariants:
// - At most one live entry exists per request key; equivalent submissions share one call.
// - The number of in-flight requests never exceeds the configured limit.
// - Pending requests start in priority order (lower value first), FIFO among equals.
// - A freed slot is refilled from the pending set before any later submission is seen.
// - A pending request whose waiters all cancel is removed without being executed.
// - Every failure, including a transport panic, resolves all attached waiters once.
//
// Usage:
//
//	q := requestqueue.New(transport.NewHTTP(baseURL), requestqueue.WithConcurrency(4))
//	defer q.Close()
//	spec := requestqueue.NewRequestSpec(http.MethodGet, "/v1/instances/default/queries/null-count/tables/t", url.Values{"columnName": {"c"}}, nil)
//	w := q.Submit(ctx, spec, priority.For(priority.NullCount, true))
//	resp, err := w.Wait(ctx)
package requestqueue
