// Package inventory reads the cluster state an audit pass works from:
// raw workload resource declarations, allocatable node capacity and,
// when the metrics-server API is present, instant container usage.
//
// Declarations leave this package as unparsed strings. The normalizer
// owns quantity parsing so malformed values become findings there, with
// one code path, instead of being silently dropped at the list boundary.
package inventory

import (
	"context"

	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// Source is the engine's boundary to the cluster inventory.
type Source interface {
	// ListWorkloads returns the raw declarations for every workload in
	// scope, pods grouped under their resolved top-level controller.
	ListWorkloads(ctx context.Context, scope model.Scope) ([]model.WorkloadDecl, error)

	// Capacity sums allocatable compute across the cluster's nodes. A
	// failed node read returns Known=false together with the error so
	// callers can degrade to "capacity unknown" instead of aborting.
	Capacity(ctx context.Context) (model.ClusterCapacity, error)
}
