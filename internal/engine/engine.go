// Package engine runs one governance pass end to end: inventory,
// normalization, static validation, historical telemetry, reduction,
// overcommit and report assembly.
//
// A pass holds no state between invocations; every intermediate structure
// is discarded once the report is built. Failures below the whole-scope
// level degrade into report markers (findings, confidence flags, source
// health) instead of aborting the pass. The one fatal path is a scope
// whose inventory cannot be listed at all, because then there is nothing
// to report on.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	auditerrors "github.com/kubegov/kubegov-auditor/internal/errors"
	"github.com/kubegov/kubegov-auditor/internal/inventory"
	"github.com/kubegov/kubegov-auditor/internal/normalize"
	"github.com/kubegov/kubegov-auditor/internal/overcommit"
	"github.com/kubegov/kubegov-auditor/internal/recommend"
	"github.com/kubegov/kubegov-auditor/internal/report"
	"github.com/kubegov/kubegov-auditor/internal/telemetry"
	"github.com/kubegov/kubegov-auditor/internal/validate"
	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// UsageSampler abstracts live metrics-server sampling for testability.
type UsageSampler interface {
	Sample(ctx context.Context, scope model.Scope) (map[string]inventory.ContainerUsage, error)
}

// Engine wires the pipeline stages together. The querier and usage
// sampler are optional: a nil querier marks every recommendation
// insufficient-data, a nil sampler skips live usage enrichment.
type Engine struct {
	source  inventory.Source
	usage   UsageSampler
	querier telemetry.Querier
	builder *report.Builder
	errors  *auditerrors.Collector
	logger  *slog.Logger
}

// New creates an Engine with all dependencies.
func New(
	source inventory.Source,
	usage UsageSampler,
	querier telemetry.Querier,
	builder *report.Builder,
	collector *auditerrors.Collector,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		source:  source,
		usage:   usage,
		querier: querier,
		builder: builder,
		errors:  collector,
		logger:  logger,
	}
}

// GenerateReport runs one pass over the given scope and window. Options
// are validated up front; an invalid set is rejected before any
// collaborator is called.
func (e *Engine) GenerateReport(ctx context.Context, scope model.Scope, rng model.TimeRange, opts Options) (*model.GovernanceReport, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !rng.End.After(rng.Start) {
		return nil, invalidOptions(fmt.Sprintf("time range must end after it starts, got start=%s end=%s",
			rng.Start.Format(time.RFC3339), rng.End.Format(time.RFC3339)))
	}

	start := time.Now()

	// Step 1: List the inventory. The one fatal path; everything after
	// this degrades into report markers instead of failing the pass.
	decls, err := e.source.ListWorkloads(ctx, scope)
	if err != nil {
		return nil, e.fatal(auditerrors.ErrInventoryUnavailable, "inventory",
			fmt.Sprintf("list workloads for %s: %v", scope, err), err)
	}
	decls = filterScope(decls, scope, opts)

	// Step 2: Normalize declarations into snapshots. Malformed containers
	// become data-quality findings here.
	snapshots, findings := normalize.Workloads(decls)

	// Step 3: Optional live usage enrichment, before the snapshots become
	// read-only for the rest of the pipeline.
	liveUsage := e.sampleUsage(ctx, scope, opts, snapshots)

	// Step 4: Static validation rules.
	findings = append(findings, validate.New(opts.thresholds()).Evaluate(snapshots)...)

	// Step 5: Plan and execute the historical queries.
	groups := groupWorkloads(snapshots)
	plan := telemetry.BuildPlan(planTargets(groups), rng, time.Now())
	result := e.executePlan(ctx, plan, opts)

	// Step 6: Reduce series into recommendations and adequacy findings.
	reducer := recommend.NewReducer(opts.settings())
	recommendations, adequacy := reduceGroups(reducer, opts, groups, result)
	findings = append(findings, adequacy...)

	// Step 7: Capacity and overcommit. Unknown capacity flows through as
	// an explicit marker, never as a zero ratio.
	capacity := e.clusterCapacity(ctx)
	oc := overcommit.Compute(scope, capacity, snapshots, opts.overcommit())

	// Step 8: Assemble.
	sources := model.SourceHealth{
		InventoryComplete:  true,
		CapacityKnown:      capacity.Known,
		LiveUsageAvailable: liveUsage,
	}
	if result != nil {
		sources.MetricsComplete = result.Complete
		sources.FailedQueries = result.FailedQueries
	} else {
		sources.MetricsComplete = len(plan) == 0
	}
	if !sources.MetricsComplete {
		e.report(auditerrors.ErrPartialData, "engine",
			fmt.Sprintf("report for %s generated with %d failed queries", scope, sources.FailedQueries), nil)
	}

	rep := e.builder.Build(report.Input{
		Scope:           scope,
		Range:           rng,
		Snapshots:       snapshots,
		Findings:        findings,
		Recommendations: recommendations,
		Overcommit:      oc,
		Capacity:        capacity,
		Sources:         sources,
	})

	e.logger.Info("governance pass complete",
		"scope", scope.String(),
		"workloads", len(groups),
		"snapshots", len(snapshots),
		"findings", len(findings),
		"failed_queries", sources.FailedQueries,
		"duration", time.Since(start),
	)

	return rep, nil
}

// sampleUsage enriches snapshots with instant metrics-server readings.
// Failure only disables the enrichment.
func (e *Engine) sampleUsage(ctx context.Context, scope model.Scope, opts Options, snapshots []model.ResourceSnapshot) bool {
	if !opts.LiveUsage || e.usage == nil || len(snapshots) == 0 {
		return false
	}
	usage, err := e.usage.Sample(ctx, scope)
	if err != nil {
		e.logger.Warn("live usage sampling failed, continuing without it", "error", err)
		e.report(auditerrors.ErrLiveUsageUnavailable, "inventory", err.Error(), err)
		return false
	}
	inventory.ApplyUsage(snapshots, usage)
	return true
}

// executePlan runs the telemetry batch. A nil querier leaves the plan
// unexecuted; the reducer then marks every workload insufficient-data.
func (e *Engine) executePlan(ctx context.Context, plan []telemetry.WorkloadQueries, opts Options) *telemetry.Result {
	if e.querier == nil {
		if len(plan) > 0 {
			e.report(auditerrors.ErrMetricsUnavailable, "telemetry",
				"no metrics backend configured, recommendations degrade to insufficient-data", nil)
		}
		return nil
	}
	executor := telemetry.NewExecutor(e.querier, opts.limits(), e.logger, e.errors)
	return executor.Execute(ctx, plan)
}

// clusterCapacity reads allocatable capacity, degrading to unknown on
// failure.
func (e *Engine) clusterCapacity(ctx context.Context) model.ClusterCapacity {
	capacity, err := e.source.Capacity(ctx)
	if err != nil {
		e.logger.Warn("cluster capacity unavailable, overcommit degrades to unknown", "error", err)
		e.report(auditerrors.ErrCapacityUnknown, "inventory", err.Error(), err)
	}
	return capacity
}

func (e *Engine) fatal(code auditerrors.Code, component, message string, err error) error {
	engineErr := &auditerrors.EngineError{
		Code:      code,
		Message:   message,
		Component: component,
		Timestamp: time.Now().UnixMilli(),
		Err:       err,
	}
	if e.errors != nil {
		e.errors.Report(*engineErr)
	}
	return engineErr
}

func (e *Engine) report(code auditerrors.Code, component, message string, err error) {
	if e.errors == nil {
		return
	}
	e.errors.Report(auditerrors.EngineError{
		Code:      code,
		Message:   message,
		Component: component,
		Timestamp: time.Now().UnixMilli(),
		Err:       err,
	})
}

// filterScope drops system namespaces from cluster-scope requests. An
// explicitly scoped request always gets what it asked for.
func filterScope(decls []model.WorkloadDecl, scope model.Scope, opts Options) []model.WorkloadDecl {
	if scope.Kind != model.ScopeCluster || opts.IncludeSystemNamespaces {
		return decls
	}
	kept := make([]model.WorkloadDecl, 0, len(decls))
	for _, d := range decls {
		if systemNamespace(d.Namespace, opts.SystemNamespacePrefixes) {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

func systemNamespace(namespace string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(namespace, p) {
			return true
		}
	}
	return false
}
