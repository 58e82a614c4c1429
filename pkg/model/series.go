package model

import "time"

// Aggregation selects how raw samples are combined across a workload's
// pods before reduction.
type Aggregation string

// Supported aggregations.
const (
	AggregationAvg Aggregation = "avg"
	AggregationMax Aggregation = "max"
)

// QuerySpec is a single logical request for historical usage of one
// resource kind for one workload. Specs are built by the planner,
// executed immediately, and not retained. End must not be in the future
// at issue time and Step must keep the resulting sample count bounded.
type QuerySpec struct {
	Kind        ResourceKind  `json:"kind"`
	Aggregation Aggregation   `json:"aggregation"`
	Namespace   string        `json:"namespace"`
	Workload    string        `json:"workload"`
	PodSelector string        `json:"pod_selector"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	Step        time.Duration `json:"step"`
}

// WorkloadKey returns the "namespace/workload" grouping key.
func (q QuerySpec) WorkloadKey() string {
	return q.Namespace + "/" + q.Workload
}

// Sample is one observed value at a point in time. Timestamp is unix
// milliseconds.
type Sample struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// SampleSeries is an ordered sequence of samples. An empty series means
// "no data", which is distinct from an observed zero value.
type SampleSeries []Sample

// Span returns the duration covered by the series, zero when fewer than
// two samples exist.
func (s SampleSeries) Span() time.Duration {
	if len(s) < 2 {
		return 0
	}
	return time.Duration(s[len(s)-1].Timestamp-s[0].Timestamp) * time.Millisecond
}

// Values returns the sample values in order.
func (s SampleSeries) Values() []float64 {
	vals := make([]float64, len(s))
	for i, sample := range s {
		vals[i] = sample.Value
	}
	return vals
}
