package model

// ContainerDecl is one container's resource declarations exactly as the
// inventory source reported them. Empty strings mean the field was not
// declared. Quantities are unparsed; the normalizer owns parsing and
// rejects malformed values.
type ContainerDecl struct {
	Name          string `json:"name"`
	CPURequest    string `json:"cpu_request"`
	CPULimit      string `json:"cpu_limit"`
	MemoryRequest string `json:"memory_request"`
	MemoryLimit   string `json:"memory_limit"`
}

// PodDecl is one pod belonging to a workload.
type PodDecl struct {
	Name       string          `json:"name"`
	Containers []ContainerDecl `json:"containers"`
}

// WorkloadDecl is the raw inventory record for one workload: its resolved
// controller identity plus the pods currently belonging to it.
type WorkloadDecl struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`

	// CreatedAt is the controller's creation time in unix milliseconds,
	// zero when unknown.
	CreatedAt int64 `json:"created_at"`

	Pods []PodDecl `json:"pods"`
}
