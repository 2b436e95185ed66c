package runtimeclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Int64 decodes runtime integers, which arrive either as JSON numbers or as
// quoted strings.
type Int64 int64

// UnmarshalJSON implements json.Unmarshaler
func (i *Int64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*i = 0
			return nil
		}
		data = []byte(s)
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(data), 64)
		if ferr != nil {
			return fmt.Errorf("invalid integer %q: %w", data, err)
		}
		n = int64(f)
	}
	*i = Int64(n)
	return nil
}

// NullCountResponse is returned by the null-count query
type NullCountResponse struct {
	Count Int64 `json:"count"`
}

// CategoricalSummary carries cardinality or top-k results
type CategoricalSummary struct {
	Cardinality Int64 `json:"cardinality"`
	TopK        *TopK `json:"topK,omitempty"`
}

// TopK is the list of most frequent values of a column
type TopK struct {
	Entries []TopKEntry `json:"entries"`
}

// TopKEntry is one value and its aggregate
type TopKEntry struct {
	Value interface{} `json:"value"`
	Count float64     `json:"count"`
}

// CardinalityResponse is returned by the column-cardinality and topk queries
type CardinalityResponse struct {
	CategoricalSummary CategoricalSummary `json:"categoricalSummary"`
}

// TableCardinalityResponse is returned by the table-cardinality query
type TableCardinalityResponse struct {
	Cardinality Int64 `json:"cardinality"`
}

// NumericStatistics summarizes the distribution of a numeric column
type NumericStatistics struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Q25  float64 `json:"q25"`
	Q50  float64 `json:"q50"`
	Q75  float64 `json:"q75"`
	Sd   float64 `json:"sd"`
}

// HistogramBin is one bucket of a numeric histogram
type HistogramBin struct {
	Bucket Int64   `json:"bucket"`
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
	Count  float64 `json:"count"`
}

// NumericSummary holds either statistics or histogram bins
type NumericSummary struct {
	NumericStatistics    *NumericStatistics `json:"numericStatistics,omitempty"`
	NumericHistogramBins *struct {
		Bins []HistogramBin `json:"bins"`
	} `json:"numericHistogramBins,omitempty"`
}

// NumericSummaryResponse is returned by descriptive-statistics and numeric-histogram
type NumericSummaryResponse struct {
	NumericSummary NumericSummary `json:"numericSummary"`
}

// Bins returns the histogram bins, nil when the response carries none
func (r *NumericSummaryResponse) Bins() []HistogramBin {
	if r == nil || r.NumericSummary.NumericHistogramBins == nil {
		return nil
	}
	return r.NumericSummary.NumericHistogramBins.Bins
}

// SmallestTimeGrainResponse is returned by the smallest-time-grain query
type SmallestTimeGrainResponse struct {
	TimeGrain string `json:"timeGrain"`
}

// RollupIntervalResponse is returned by the rollup-interval query
type RollupIntervalResponse struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Interval string `json:"interval"`
}

// TimeSeriesValue is one rolled-up point
type TimeSeriesValue struct {
	Ts      string             `json:"ts"`
	Bin     float64            `json:"bin,omitempty"`
	Records map[string]float64 `json:"records"`
}

// Count returns the record count of the point
func (v TimeSeriesValue) Count() float64 {
	return v.Records["count"]
}

// TimeSeriesResponse is returned by the timeseries query
type TimeSeriesResponse struct {
	Rollup struct {
		Results    []TimeSeriesValue `json:"results"`
		Spark      []TimeSeriesValue `json:"spark"`
		TimeRange  json.RawMessage   `json:"timeRange,omitempty"`
		SampleSize Int64             `json:"sampleSize,omitempty"`
	} `json:"rollup"`
}
