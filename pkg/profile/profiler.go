package profile

import (
	"context"
	"sync"
	"time"

	"github.com/harun/profiler/internal/tracing"
	"github.com/harun/profiler/pkg/priority"
	"github.com/harun/profiler/pkg/runtimeclient"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ColumnProfile is everything known about one column after profiling
type ColumnProfile struct {
	Column
	Active bool `json:"active"`

	NullCount          int64   `json:"nullCount"`
	Cardinality        int64   `json:"cardinality"`
	NullPercentage     float64 `json:"nullPercentage"`
	DistinctPercentage float64 `json:"distinctPercentage"`

	TopK              []runtimeclient.TopKEntry             `json:"topK,omitempty"`
	Statistics        *runtimeclient.NumericStatistics      `json:"statistics,omitempty"`
	Histogram         []runtimeclient.HistogramBin          `json:"histogram,omitempty"`
	SmallestTimeGrain string                                `json:"smallestTimeGrain,omitempty"`
	RollupInterval    *runtimeclient.RollupIntervalResponse `json:"rollupInterval,omitempty"`
	TimeSeries        []runtimeclient.TimeSeriesValue       `json:"timeSeries,omitempty"`
	Spark             []runtimeclient.TimeSeriesValue       `json:"spark,omitempty"`

	// Errors holds the failure message of each kind that did not resolve
	Errors map[priority.Kind]string `json:"errors,omitempty"`
}

// TableProfile is the result of profiling a table
type TableProfile struct {
	Table    string          `json:"table"`
	Rows     int64           `json:"rows"`
	Columns  []ColumnProfile `json:"columns"`
	Duration time.Duration   `json:"duration"`
}

// Failed returns the number of queries that failed
func (t *TableProfile) Failed() int {
	n := 0
	for _, c := range t.Columns {
		n += len(c.Errors)
	}
	return n
}

// Option configures a Profiler
type Option func(*Profiler)

// WithLogger sets the profiler logger
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Profiler) {
		p.logger = logger
	}
}

// Profiler fans out every column query of a table through the runtime client
type Profiler struct {
	client *runtimeclient.Client
	logger zerolog.Logger
}

// NewProfiler creates a profiler
func NewProfiler(client *runtimeclient.Client, opts ...Option) *Profiler {
	p := &Profiler{
		client: client,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "profiler").Logger()
	return p
}

type tableRun struct {
	mu      sync.Mutex
	rows    int64
	rowsOK  bool
	columns []ColumnProfile
}

func (r *tableRun) fail(i int, kind priority.Kind, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.columns[i].Errors == nil {
		r.columns[i].Errors = make(map[priority.Kind]string)
	}
	r.columns[i].Errors[kind] = err.Error()
}

func (r *tableRun) update(i int, fn func(c *ColumnProfile)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.columns[i])
}

// collect waits for one query. Query failures are recorded on the column;
// only a done ctx aborts the run.
func collect[T any](ctx context.Context, g *errgroup.Group, pending *runtimeclient.Pending[T], onErr func(error), apply func(*T)) {
	g.Go(func() error {
		res, err := pending.Wait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				pending.Cancel()
				return ctx.Err()
			}
			onErr(err)
			return nil
		}
		apply(res)
		return nil
	})
}

// Profile submits every query for the columns of table and waits for all of
// them. Queries for the active column are prioritized over the rest. Failed
// queries are reported per column; the returned error is non-nil only when
// ctx ends first, in which case outstanding queries are cancelled.
func (p *Profiler) Profile(ctx context.Context, table string, columns []Column, active string) (*TableProfile, error) {
	start := time.Now()
	ctx = tracing.WithTable(ctx, table)
	logger := tracing.LoggerFromContext(ctx, p.logger)

	run := &tableRun{columns: make([]ColumnProfile, len(columns))}
	for i, col := range columns {
		run.columns[i] = ColumnProfile{Column: col, Active: col.Name == active}
	}

	g, gctx := errgroup.WithContext(ctx)

	collect(gctx, g, p.client.GetTableCardinality(gctx, table, true),
		func(err error) { logger.Warn().Err(err).Msg("Table cardinality failed") },
		func(res *runtimeclient.TableCardinalityResponse) {
			run.mu.Lock()
			run.rows, run.rowsOK = int64(res.Cardinality), true
			run.mu.Unlock()
		})

	for i, col := range columns {
		p.profileColumn(gctx, g, run, i, table, col, col.Name == active)
	}

	if err := g.Wait(); err != nil {
		logger.Info().Err(err).Msg("Profiling aborted")
		return nil, err
	}

	out := &TableProfile{
		Table:    table,
		Rows:     run.rows,
		Columns:  run.columns,
		Duration: time.Since(start),
	}
	if run.rowsOK {
		for i := range out.Columns {
			c := &out.Columns[i]
			c.NullPercentage, _ = NullPercentage(c.NullCount, out.Rows)
			c.DistinctPercentage, _ = CountDistinct(c.Cardinality, out.Rows)
		}
	}

	logger.Info().
		Int("columns", len(columns)).
		Int64("rows", out.Rows).
		Int("failed", out.Failed()).
		Dur("duration", out.Duration).
		Msg("Table profiled")

	return out, nil
}

func (p *Profiler) profileColumn(ctx context.Context, g *errgroup.Group, run *tableRun, i int, table string, col Column, active bool) {
	c := p.client
	name := col.Name
	failed := func(kind priority.Kind) func(error) {
		return func(err error) { run.fail(i, kind, err) }
	}

	for _, kind := range QueriesFor(col) {
		switch kind {
		case priority.NullCount:
			collect(ctx, g, c.GetNullCount(ctx, table, name, active), failed(kind),
				func(res *runtimeclient.NullCountResponse) {
					run.update(i, func(cp *ColumnProfile) { cp.NullCount = int64(res.Count) })
				})
		case priority.ColumnCardinality:
			collect(ctx, g, c.GetCardinalityOfColumn(ctx, table, name, active), failed(kind),
				func(res *runtimeclient.CardinalityResponse) {
					run.update(i, func(cp *ColumnProfile) { cp.Cardinality = int64(res.CategoricalSummary.Cardinality) })
				})
		case priority.TopK:
			collect(ctx, g, c.GetTopK(ctx, table, name, "", 0, active), failed(kind),
				func(res *runtimeclient.CardinalityResponse) {
					if res.CategoricalSummary.TopK == nil {
						return
					}
					run.update(i, func(cp *ColumnProfile) { cp.TopK = res.CategoricalSummary.TopK.Entries })
				})
		case priority.DescriptiveStatistics:
			collect(ctx, g, c.GetDescriptiveStatistics(ctx, table, name, active), failed(kind),
				func(res *runtimeclient.NumericSummaryResponse) {
					run.update(i, func(cp *ColumnProfile) { cp.Statistics = res.NumericSummary.NumericStatistics })
				})
		case priority.NumericHistogram:
			collect(ctx, g, c.GetNumericHistogram(ctx, table, name, active), failed(kind),
				func(res *runtimeclient.NumericSummaryResponse) {
					run.update(i, func(cp *ColumnProfile) { cp.Histogram = res.Bins() })
				})
		case priority.SmallestTimeGrain:
			collect(ctx, g, c.EstimateSmallestTimeGrain(ctx, table, name, active), failed(kind),
				func(res *runtimeclient.SmallestTimeGrainResponse) {
					run.update(i, func(cp *ColumnProfile) { cp.SmallestTimeGrain = res.TimeGrain })
				})
		case priority.RollupInterval:
			collect(ctx, g, c.EstimateRollupInterval(ctx, table, name, active), failed(kind),
				func(res *runtimeclient.RollupIntervalResponse) {
					run.update(i, func(cp *ColumnProfile) { cp.RollupInterval = res })
				})
		case priority.TimeSeries:
			collect(ctx, g, c.GenerateTimeSeries(ctx, table, name, 0, active), failed(kind),
				func(res *runtimeclient.TimeSeriesResponse) {
					run.update(i, func(cp *ColumnProfile) {
						cp.TimeSeries = res.Rollup.Results
						cp.Spark = res.Rollup.Spark
					})
				})
		}
	}
}
