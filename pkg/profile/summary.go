// Package profile derives column profiles from runtime query results.
package profile

import (
	"github.com/harun/profiler/pkg/priority"
)

// Column is one column of a profiled table
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Summary is the cheap per-column overview shown for every column
type Summary struct {
	Column
	NullCount   int64 `json:"nullCount"`
	Cardinality int64 `json:"cardinality"`
	Complete    bool  `json:"complete"`
}

// Summarize pairs each column with its null count and cardinality. Columns
// missing from either map keep zero values and are marked incomplete.
func Summarize(columns []Column, nullCounts, cardinalities map[string]int64) []Summary {
	out := make([]Summary, 0, len(columns))
	for _, col := range columns {
		nulls, okNulls := nullCounts[col.Name]
		card, okCard := cardinalities[col.Name]
		out = append(out, Summary{
			Column:      col,
			NullCount:   nulls,
			Cardinality: card,
			Complete:    okNulls && okCard,
		})
	}
	return out
}

// NullPercentage returns the share of NULL rows in [0, 1]. It reports false
// when the table is empty.
func NullPercentage(nullCount, totalRows int64) (float64, bool) {
	return ratio(nullCount, totalRows)
}

// CountDistinct returns the share of distinct values in [0, 1]. It reports
// false when the table is empty.
func CountDistinct(cardinality, totalRows int64) (float64, bool) {
	return ratio(cardinality, totalRows)
}

func ratio(part, total int64) (float64, bool) {
	if total <= 0 {
		return 0, false
	}
	r := float64(part) / float64(total)
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	return r, true
}

// QueriesFor lists the query kinds profiled for a column, cheapest first.
func QueriesFor(col Column) []priority.Kind {
	kinds := []priority.Kind{priority.NullCount, priority.ColumnCardinality}
	switch {
	case IsTimestamp(col.Type):
		kinds = append(kinds, priority.SmallestTimeGrain, priority.RollupInterval, priority.TimeSeries)
	case IsNumeric(col.Type):
		kinds = append(kinds, priority.TopK, priority.DescriptiveStatistics, priority.NumericHistogram)
	default:
		kinds = append(kinds, priority.TopK)
	}
	return kinds
}
