package model

// Confidence qualifies whether enough history backed a recommendation.
type Confidence string

// Confidence tags.
const (
	ConfidenceSufficient   Confidence = "sufficient-data"
	ConfidenceInsufficient Confidence = "insufficient-data"
	ConfidenceSeasonal     Confidence = "seasonal-pattern-detected"
)

// ResourceRecommendation is the sizing outcome for one resource kind of
// one workload. SuggestedRequest and SuggestedLimit are nil whenever
// Confidence is insufficient-data; a number is never fabricated from too
// little history.
type ResourceRecommendation struct {
	Kind       ResourceKind `json:"kind"`
	Confidence Confidence   `json:"confidence"`

	SuggestedRequest *Quantity `json:"suggested_request,omitempty"`
	SuggestedLimit   *Quantity `json:"suggested_limit,omitempty"`

	Percentile  float64 `json:"percentile"`
	SampleCount int     `json:"sample_count"`
	SpanSeconds int64   `json:"span_seconds"`

	// Why the series was unusable: query failure, deadline, too few
	// samples. Empty on success.
	FailureReason string `json:"failure_reason,omitempty"`
}

// Recommendation is the derived sizing suggestion for one workload. Both
// resource kinds are always present; a workload is never reported half
// resolved.
type Recommendation struct {
	Namespace    string `json:"namespace"`
	Workload     string `json:"workload"`
	WorkloadKind string `json:"workload_kind"`

	CPU    ResourceRecommendation `json:"cpu"`
	Memory ResourceRecommendation `json:"memory"`
}

// WorkloadKey returns the "namespace/workload" grouping key.
func (r *Recommendation) WorkloadKey() string {
	return r.Namespace + "/" + r.Workload
}
