// Package telemetry plans and executes historical usage queries against a
// Prometheus-compatible backend and hands the resulting series to the
// recommendation reducer.
//
// The package splits into a planner (which queries to run, at which step),
// an executor (bounded fan-out, rate cap, per-query timeout and retry,
// batch deadline) and a querier (the thin client boundary). Query failures
// degrade the affected workload, never the whole batch.
package telemetry

import (
	"context"

	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// Querier is the boundary to the metrics backend. Implementations run one
// query per call; concurrency, retries and deadlines belong to the
// executor, not here.
type Querier interface {
	// Range fetches the series for one query spec.
	Range(ctx context.Context, spec model.QuerySpec) (model.SampleSeries, error)
	// Reachable probes whether the backend answers at all.
	Reachable(ctx context.Context) bool
}

// WorkloadSeries is the complete telemetry outcome for one workload. Usage
// holds the avg-over-pods series per kind and drives request sizing; Peak
// holds the max-over-pods series and drives limit-pressure analysis.
// FailedKinds records why a kind has no usable usage series.
type WorkloadSeries struct {
	Namespace string
	Workload  string

	Usage map[model.ResourceKind]model.SampleSeries
	Peak  map[model.ResourceKind]model.SampleSeries

	FailedKinds map[model.ResourceKind]string
}

// WorkloadKey returns the "namespace/workload" grouping key.
func (w *WorkloadSeries) WorkloadKey() string {
	return w.Namespace + "/" + w.Workload
}

// Result is the outcome of one batch execution. Every planned workload has
// an entry; a workload whose queries all failed is present with its
// FailedKinds populated rather than silently missing.
type Result struct {
	Workloads     map[string]*WorkloadSeries
	FailedQueries int
	// Complete is true when every query in the batch succeeded.
	Complete bool
}
