// Package priority maps column-profile query kinds to scheduling priorities.
//
// Lower values are serviced sooner. Requests for the active column always sort
// ahead of requests for inactive columns; among kinds, cheap summary stats come
// before expensive scans such as histograms. Equal priorities are not ordered
// here, the request queue breaks ties in submission order.
package priority

import "sort"

// Kind identifies a column-profile query type
type Kind string

const (
	NullCount             Kind = "null-count"
	ColumnCardinality     Kind = "column-cardinality"
	TableCardinality      Kind = "table-cardinality"
	SmallestTimeGrain     Kind = "smallest-time-grain"
	RollupInterval        Kind = "rollup-interval"
	TopK                  Kind = "topk"
	TimeSeries            Kind = "timeseries"
	DescriptiveStatistics Kind = "descriptive-statistics"
	NumericHistogram      Kind = "numeric-histogram"
)

const (
	// Default is the base priority for kinds not listed in the table
	Default = 60

	// InactiveOffset is added to every request for a column that is not
	// currently viewed. It is larger than any base priority.
	InactiveOffset = 100

	// BackendMax is the ceiling of the runtime's priority scale, where larger
	// values run sooner.
	BackendMax = Default + InactiveOffset
)

var basePriorities = map[Kind]int{
	NullCount:             10,
	ColumnCardinality:     10,
	TableCardinality:      10,
	SmallestTimeGrain:     20,
	RollupInterval:        20,
	TopK:                  30,
	TimeSeries:            40,
	DescriptiveStatistics: 40,
	NumericHistogram:      50,
}

// Base returns the priority of a kind ignoring column activity
func Base(kind Kind) int {
	if p, ok := basePriorities[kind]; ok {
		return p
	}
	return Default
}

// For returns the scheduling priority of a query kind for a column
func For(kind Kind, active bool) int {
	p := Base(kind)
	if !active {
		p += InactiveOffset
	}
	return p
}

// Backend converts a queue priority to the runtime's higher-is-sooner scale.
func Backend(p int) int {
	b := BackendMax - p
	if b < 0 {
		return 0
	}
	return b
}

// Parse resolves a kind name. Unknown names return false.
func Parse(name string) (Kind, bool) {
	k := Kind(name)
	_, ok := basePriorities[k]
	return k, ok
}

// Kinds returns every known kind ordered by base priority, then name.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(basePriorities))
	for k := range basePriorities {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		pi, pj := basePriorities[kinds[i]], basePriorities[kinds[j]]
		if pi != pj {
			return pi < pj
		}
		return kinds[i] < kinds[j]
	})
	return kinds
}
