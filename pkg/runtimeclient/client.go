// Package runtimeclient builds column-profile queries for the analytics
// runtime and routes them through the request queue.
package runtimeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/harun/profiler/internal/tracing"
	"github.com/harun/profiler/pkg/priority"
	"github.com/harun/profiler/pkg/requestqueue"
)

const (
	// DefaultTopK is the number of values the topk query asks for
	DefaultTopK = 75

	// DefaultTopKAgg is the aggregate topk ranks values by
	DefaultTopKAgg = "count(*)"

	// DefaultPixels is the time series resolution requested for a sparkline
	DefaultPixels = 92
)

// Submitter is the part of the queue the client needs
type Submitter interface {
	Submit(ctx context.Context, spec requestqueue.RequestSpec, priority int) *requestqueue.Waiter
}

// Client issues runtime queries for one instance
type Client struct {
	queue      Submitter
	instanceID string
}

// New creates a client for instanceID
func New(queue Submitter, instanceID string) *Client {
	if instanceID == "" {
		instanceID = "default"
	}
	return &Client{queue: queue, instanceID: instanceID}
}

// InstanceID returns the runtime instance the client queries
func (c *Client) InstanceID() string {
	return c.instanceID
}

// Pending is an outstanding typed query
type Pending[T any] struct {
	kind   priority.Kind
	waiter *requestqueue.Waiter
	err    error // set when the request could not be built
}

var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Wait blocks until the query resolves and decodes its body
func (p *Pending[T]) Wait(ctx context.Context) (*T, error) {
	if p.err != nil {
		return nil, fmt.Errorf("%s query failed: %w", p.kind, p.err)
	}
	resp, err := p.waiter.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s query failed: %w", p.kind, err)
	}

	var out T
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			return nil, fmt.Errorf("failed to decode %s response: %w", p.kind, err)
		}
	}
	return &out, nil
}

// Done is closed when the query resolves
func (p *Pending[T]) Done() <-chan struct{} {
	if p.waiter == nil {
		return closedDone
	}
	return p.waiter.Done()
}

// Cancel withdraws interest in the result
func (p *Pending[T]) Cancel() {
	if p.waiter != nil {
		p.waiter.Cancel()
	}
}

// Kind returns the query kind
func (p *Pending[T]) Kind() priority.Kind {
	return p.kind
}

// Waiter returns the underlying queue waiter, nil when the request could not be built
func (p *Pending[T]) Waiter() *requestqueue.Waiter {
	return p.waiter
}

func submit[T any](ctx context.Context, c *Client, kind priority.Kind, spec requestqueue.RequestSpec, active bool) *Pending[T] {
	ctx = tracing.WithInstanceID(ctx, c.instanceID)
	return &Pending[T]{
		kind:   kind,
		waiter: c.queue.Submit(ctx, spec, priority.For(kind, active)),
	}
}

// TablePath returns the path prefix shared by every query on table
func (c *Client) TablePath(kind priority.Kind, table string) string {
	return fmt.Sprintf("/v1/instances/%s/queries/%s/tables/%s",
		url.PathEscape(c.instanceID), kind, url.PathEscape(table))
}

// ForTable matches every request the client built for table. Pass it to
// Queue.Supersede when the table is no longer shown.
func (c *Client) ForTable(table string) func(requestqueue.RequestSpec) bool {
	prefix := fmt.Sprintf("/v1/instances/%s/queries/", url.PathEscape(c.instanceID))
	suffix := "/tables/" + url.PathEscape(table)
	return func(spec requestqueue.RequestSpec) bool {
		path := spec.Path()
		return strings.HasPrefix(path, prefix) && strings.HasSuffix(path, suffix)
	}
}

func (c *Client) get(kind priority.Kind, table, column string) requestqueue.RequestSpec {
	var query url.Values
	if column != "" {
		query = url.Values{"columnName": {column}}
	}
	return requestqueue.NewRequestSpec(http.MethodGet, c.TablePath(kind, table), query, nil)
}

func (c *Client) post(kind priority.Kind, table string, body map[string]interface{}) (requestqueue.RequestSpec, error) {
	// json.Marshal sorts map keys, so equal bodies give equal keys
	data, err := json.Marshal(body)
	if err != nil {
		return requestqueue.RequestSpec{}, fmt.Errorf("failed to encode %s request: %w", kind, err)
	}
	return requestqueue.NewRequestSpec(http.MethodPost, c.TablePath(kind, table), nil, data), nil
}

// submitPost builds a POST query and submits it. An encoding failure is
// reported by Wait without reaching the queue.
func submitPost[T any](ctx context.Context, c *Client, kind priority.Kind, table string, body map[string]interface{}, active bool) *Pending[T] {
	spec, err := c.post(kind, table, body)
	if err != nil {
		return &Pending[T]{kind: kind, err: err}
	}
	return submit[T](ctx, c, kind, spec, active)
}

// GetNullCount counts NULL values of column
func (c *Client) GetNullCount(ctx context.Context, table, column string, active bool) *Pending[NullCountResponse] {
	return submit[NullCountResponse](ctx, c, priority.NullCount, c.get(priority.NullCount, table, column), active)
}

// GetCardinalityOfColumn counts distinct values of column
func (c *Client) GetCardinalityOfColumn(ctx context.Context, table, column string, active bool) *Pending[CardinalityResponse] {
	return submit[CardinalityResponse](ctx, c, priority.ColumnCardinality, c.get(priority.ColumnCardinality, table, column), active)
}

// GetTableCardinality counts rows of table
func (c *Client) GetTableCardinality(ctx context.Context, table string, active bool) *Pending[TableCardinalityResponse] {
	return submit[TableCardinalityResponse](ctx, c, priority.TableCardinality, c.get(priority.TableCardinality, table, ""), active)
}

// GetDescriptiveStatistics computes min, max, mean, quartiles and deviation of a numeric column
func (c *Client) GetDescriptiveStatistics(ctx context.Context, table, column string, active bool) *Pending[NumericSummaryResponse] {
	return submit[NumericSummaryResponse](ctx, c, priority.DescriptiveStatistics, c.get(priority.DescriptiveStatistics, table, column), active)
}

// GetNumericHistogram buckets a numeric column
func (c *Client) GetNumericHistogram(ctx context.Context, table, column string, active bool) *Pending[NumericSummaryResponse] {
	return submit[NumericSummaryResponse](ctx, c, priority.NumericHistogram, c.get(priority.NumericHistogram, table, column), active)
}

// EstimateSmallestTimeGrain finds the finest grain present in a timestamp column
func (c *Client) EstimateSmallestTimeGrain(ctx context.Context, table, column string, active bool) *Pending[SmallestTimeGrainResponse] {
	return submit[SmallestTimeGrainResponse](ctx, c, priority.SmallestTimeGrain, c.get(priority.SmallestTimeGrain, table, column), active)
}

// GetTopK returns the k most frequent values of column. Zero k and empty agg
// use DefaultTopK and DefaultTopKAgg.
func (c *Client) GetTopK(ctx context.Context, table, column, agg string, k int, active bool) *Pending[CardinalityResponse] {
	if agg == "" {
		agg = DefaultTopKAgg
	}
	if k <= 0 {
		k = DefaultTopK
	}
	return submitPost[CardinalityResponse](ctx, c, priority.TopK, table, map[string]interface{}{
		"columnName": column,
		"agg":        agg,
		"k":          k,
	}, active)
}

// GenerateTimeSeries rolls up a timestamp column into roughly pixels buckets
func (c *Client) GenerateTimeSeries(ctx context.Context, table, timestampColumn string, pixels int, active bool) *Pending[TimeSeriesResponse] {
	if pixels <= 0 {
		pixels = DefaultPixels
	}
	return submitPost[TimeSeriesResponse](ctx, c, priority.TimeSeries, table, map[string]interface{}{
		"timestampColumnName": timestampColumn,
		"pixels":              pixels,
	}, active)
}

// EstimateRollupInterval picks a rollup interval for a timestamp column
func (c *Client) EstimateRollupInterval(ctx context.Context, table, column string, active bool) *Pending[RollupIntervalResponse] {
	return submitPost[RollupIntervalResponse](ctx, c, priority.RollupInterval, table, map[string]interface{}{
		"columnName": column,
	}, active)
}
