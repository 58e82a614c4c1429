package model

import "time"

// ScopeKind selects the unit of analysis.
type ScopeKind string

// Scope kinds.
const (
	ScopeCluster   ScopeKind = "cluster"
	ScopeNamespace ScopeKind = "namespace"
	ScopeWorkload  ScopeKind = "workload"
)

// Scope identifies what a report covers: the whole cluster, one
// namespace, or one workload within a namespace.
type Scope struct {
	Kind      ScopeKind `json:"kind"`
	Namespace string    `json:"namespace,omitempty"`
	Workload  string    `json:"workload,omitempty"`
}

// ClusterScope returns a scope covering the whole cluster.
func ClusterScope() Scope { return Scope{Kind: ScopeCluster} }

// NamespaceScope returns a scope covering one namespace.
func NamespaceScope(namespace string) Scope {
	return Scope{Kind: ScopeNamespace, Namespace: namespace}
}

// WorkloadScope returns a scope covering one workload.
func WorkloadScope(namespace, workload string) Scope {
	return Scope{Kind: ScopeWorkload, Namespace: namespace, Workload: workload}
}

// String renders the scope as a stable identifier.
func (s Scope) String() string {
	switch s.Kind {
	case ScopeNamespace:
		return "namespace/" + s.Namespace
	case ScopeWorkload:
		return "workload/" + s.Namespace + "/" + s.Workload
	default:
		return "cluster"
	}
}

// TimeRange is the historical window a report examines.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the window length.
func (r TimeRange) Duration() time.Duration { return r.End.Sub(r.Start) }

// OvercommitEntry is requested-versus-capacity for one resource kind.
// Capacity and Requested are millicores for CPU, bytes for memory. Ratio
// is nil when capacity is unknown; it never carries NaN or infinity.
type OvercommitEntry struct {
	Kind          ResourceKind `json:"kind"`
	Capacity      int64        `json:"capacity"`
	Requested     int64        `json:"requested"`
	Ratio         *float64     `json:"ratio,omitempty"`
	Severity      Severity     `json:"severity"`
	CapacityKnown bool         `json:"capacity_known"`

	// Containers whose request was absent and therefore contributed
	// nothing to Requested.
	Unaccounted int `json:"unaccounted"`
}

// OvercommitResult holds both resource kinds for the analyzed scope.
type OvercommitResult struct {
	Scope  string          `json:"scope"`
	CPU    OvercommitEntry `json:"cpu"`
	Memory OvercommitEntry `json:"memory"`
}

// WorkloadCategory buckets workloads for triage.
const (
	CategoryNew         = "new"
	CategoryOutlier     = "outlier"
	CategoryCompliant   = "compliant"
	CategoryEstablished = "established"
)

// WorkloadOverview is the per-workload triage row in a report.
type WorkloadOverview struct {
	Namespace    string `json:"namespace"`
	Workload     string `json:"workload"`
	WorkloadKind string `json:"workload_kind"`
	QoSClass     string `json:"qos_class"`
	Category     string `json:"category"`

	// 1 (routine) through 10 (needs immediate attention).
	Priority int `json:"priority"`

	ContainerCount int `json:"container_count"`
	FindingCount   int `json:"finding_count"`

	// Live usage sampled at generation time, summed across the
	// workload's containers; nil when sampling was unavailable.
	CPUUsageCores    *float64 `json:"cpu_usage_cores,omitempty"`
	MemoryUsageBytes *int64   `json:"memory_usage_bytes,omitempty"`
}

// NamespaceRollup counts findings per namespace for cluster reports.
type NamespaceRollup struct {
	Namespace     string `json:"namespace"`
	WorkloadCount int    `json:"workload_count"`
	FindingCount  int    `json:"finding_count"`
	CriticalCount int    `json:"critical_count"`
	ErrorCount    int    `json:"error_count"`
	WarningCount  int    `json:"warning_count"`
}

// ClusterContext carries environment details alongside a report.
type ClusterContext struct {
	Provider  string `json:"provider,omitempty"`
	NodeCount int    `json:"node_count"`
	PodCount  int    `json:"pod_count"`
}

// SourceHealth flags which data sources contributed fully to a report, so
// partial-data caveats are visible to the consumer.
type SourceHealth struct {
	InventoryComplete  bool `json:"inventory_complete"`
	CapacityKnown      bool `json:"capacity_known"`
	MetricsComplete    bool `json:"metrics_complete"`
	FailedQueries      int  `json:"failed_queries"`
	LiveUsageAvailable bool `json:"live_usage_available"`
}

// ReportSummary holds computed counters for a report.
type ReportSummary struct {
	SnapshotCount  int `json:"snapshot_count"`
	WorkloadCount  int `json:"workload_count"`
	NamespaceCount int `json:"namespace_count"`

	FindingCount  int `json:"finding_count"`
	CriticalCount int `json:"critical_count"`
	ErrorCount    int `json:"error_count"`
	WarningCount  int `json:"warning_count"`
	InfoCount     int `json:"info_count"`

	RecommendationCount   int `json:"recommendation_count"`
	SufficientDataCount   int `json:"sufficient_data_count"`
	InsufficientDataCount int `json:"insufficient_data_count"`
	SeasonalCount         int `json:"seasonal_count"`

	GuaranteedCount int `json:"guaranteed_count"`
	BurstableCount  int `json:"burstable_count"`
	BestEffortCount int `json:"best_effort_count"`
}

// GovernanceReport is the externally visible result of one analysis pass.
// It is built fresh per request, never mutated afterwards, and owned
// exclusively by the caller.
type GovernanceReport struct {
	// Identity
	ReportID    string    `json:"report_id"`
	Scope       Scope     `json:"scope"`
	Range       TimeRange `json:"range"`
	GeneratedAt int64     `json:"generated_at"`
	Version     string    `json:"version"`

	// Results
	Findings        []Finding        `json:"findings"`
	Recommendations []Recommendation `json:"recommendations"`
	Overcommit      OvercommitResult `json:"overcommit"`

	// Computed
	Summary    ReportSummary      `json:"summary"`
	Workloads  []WorkloadOverview `json:"workloads"`
	Namespaces []NamespaceRollup  `json:"namespaces,omitempty"`

	// Environment
	Cluster ClusterContext `json:"cluster"`
	Sources SourceHealth   `json:"sources"`
}
