package model

// ResourceKind identifies which compute resource a value refers to.
type ResourceKind string

// Resource kinds covered by the engine.
const (
	ResourceCPU    ResourceKind = "cpu"
	ResourceMemory ResourceKind = "memory"
)

// Kinds returns the resource kinds in evaluation order (cpu before memory).
func Kinds() []ResourceKind {
	return []ResourceKind{ResourceCPU, ResourceMemory}
}

// Quantity is a parsed resource amount. Value is millicores for CPU and
// bytes for memory; Raw preserves the canonical declaration string
// ("100m", "32Mi") so findings can quote the observed value verbatim.
type Quantity struct {
	Raw   string `json:"raw"`
	Value int64  `json:"value"`
}

// ResourceSpec holds the declared request and limit for one resource kind.
// A nil field means the value was not declared; a declared zero keeps a
// non-nil Quantity with Value 0. The distinction drives validation.
type ResourceSpec struct {
	Request *Quantity `json:"request,omitempty"`
	Limit   *Quantity `json:"limit,omitempty"`
}

// Spec returns the ResourceSpec for the given kind.
func (s *ResourceSnapshot) Spec(kind ResourceKind) ResourceSpec {
	if kind == ResourceMemory {
		return s.Memory
	}
	return s.CPU
}

// QoS classes assigned by the scheduler, derived from declared resources.
const (
	QoSGuaranteed = "Guaranteed"
	QoSBurstable  = "Burstable"
	QoSBestEffort = "BestEffort"
)

// ResourceSnapshot is one container's normalized resource configuration at
// analysis time. Snapshots are immutable after creation and live only for
// the duration of a single analysis pass.
type ResourceSnapshot struct {
	Namespace    string `json:"namespace"`
	Workload     string `json:"workload"`
	WorkloadKind string `json:"workload_kind"`
	Pod          string `json:"pod"`
	Container    string `json:"container"`

	CPU    ResourceSpec `json:"cpu"`
	Memory ResourceSpec `json:"memory"`

	QoSClass          string `json:"qos_class"`
	WorkloadCreatedAt int64  `json:"workload_created_at"`

	// Instant usage from the metrics-server API when available.
	CPUUsageCores    *float64 `json:"cpu_usage_cores,omitempty"`
	MemoryUsageBytes *int64   `json:"memory_usage_bytes,omitempty"`
}

// WorkloadKey returns the "namespace/workload" grouping key.
func (s *ResourceSnapshot) WorkloadKey() string {
	return s.Namespace + "/" + s.Workload
}

// ClusterCapacity summarizes the node inventory: allocatable compute,
// node count and the provider detected from node provider IDs. Known is
// false when node inventory could not be read; consumers must then treat
// capacity as unknown rather than zero.
type ClusterCapacity struct {
	CPUMillicores int64  `json:"cpu_millicores"`
	MemoryBytes   int64  `json:"memory_bytes"`
	NodeCount     int    `json:"node_count"`
	Known         bool   `json:"known"`
	Provider      string `json:"provider,omitempty"`
}

// Amount returns the capacity for the given kind in that kind's base unit.
func (c ClusterCapacity) Amount(kind ResourceKind) int64 {
	if kind == ResourceMemory {
		return c.MemoryBytes
	}
	return c.CPUMillicores
}
