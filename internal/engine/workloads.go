package engine

import (
	"github.com/kubegov/kubegov-auditor/internal/normalize"
	"github.com/kubegov/kubegov-auditor/internal/recommend"
	"github.com/kubegov/kubegov-auditor/internal/telemetry"
	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// workloadGroup is one workload's snapshots in emission order.
type workloadGroup struct {
	namespace    string
	workload     string
	workloadKind string
	snapshots    []model.ResourceSnapshot
}

func (g *workloadGroup) key() string {
	return g.namespace + "/" + g.workload
}

// groupWorkloads buckets snapshots by workload, preserving first-seen
// order so recommendations come out deterministically.
func groupWorkloads(snapshots []model.ResourceSnapshot) []*workloadGroup {
	var groups []*workloadGroup
	index := make(map[string]*workloadGroup)

	for _, s := range snapshots {
		key := s.WorkloadKey()
		g, ok := index[key]
		if !ok {
			g = &workloadGroup{
				namespace:    s.Namespace,
				workload:     s.Workload,
				workloadKind: s.WorkloadKind,
			}
			index[key] = g
			groups = append(groups, g)
		}
		g.snapshots = append(g.snapshots, s)
	}

	return groups
}

// planTargets derives the telemetry targets from the grouped snapshots.
// Pods appear once each, in snapshot order; the planner sorts them into
// the selector itself.
func planTargets(groups []*workloadGroup) []telemetry.Target {
	targets := make([]telemetry.Target, 0, len(groups))
	for _, g := range groups {
		seen := make(map[string]bool)
		var pods []string
		for _, s := range g.snapshots {
			if seen[s.Pod] {
				continue
			}
			seen[s.Pod] = true
			pods = append(pods, s.Pod)
		}
		targets = append(targets, telemetry.Target{
			Namespace: g.namespace,
			Workload:  g.workload,
			Pods:      pods,
		})
	}
	return targets
}

// reduceGroups turns the telemetry outcome into one recommendation per
// workload plus usage-adequacy findings. Every group yields a
// recommendation with both resource kinds settled; a workload is never
// half resolved.
func reduceGroups(reducer *recommend.Reducer, opts Options, groups []*workloadGroup, result *telemetry.Result) ([]model.Recommendation, []model.Finding) {
	recommendations := make([]model.Recommendation, 0, len(groups))
	var findings []model.Finding

	for _, g := range groups {
		var ws *telemetry.WorkloadSeries
		if result != nil {
			ws = result.Workloads[g.key()]
		}

		rec := model.Recommendation{
			Namespace:    g.namespace,
			Workload:     g.workload,
			WorkloadKind: g.workloadKind,
		}
		for _, kind := range model.Kinds() {
			rr := reduceKind(reducer, opts, kind, ws)
			if kind == model.ResourceCPU {
				rec.CPU = rr
			} else {
				rec.Memory = rr
			}

			if ws == nil {
				continue
			}
			request, limit := podAggregate(g.snapshots, kind)
			findings = append(findings, reducer.Adequacy(recommend.AdequacyInput{
				Namespace: g.namespace,
				Workload:  g.workload,
				Kind:      kind,
				Request:   request,
				Limit:     limit,
				Usage:     ws.Usage[kind],
				Peak:      ws.Peak[kind],
			})...)
		}

		recommendations = append(recommendations, rec)
	}

	return recommendations, findings
}

// reduceKind resolves one resource kind for one workload. A failed or
// absent series never blocks the entry; it degrades to insufficient-data
// with the failure spelled out.
func reduceKind(reducer *recommend.Reducer, opts Options, kind model.ResourceKind, ws *telemetry.WorkloadSeries) model.ResourceRecommendation {
	if ws == nil {
		return insufficient(kind, opts.Percentile, "telemetry unavailable")
	}
	if reason, failed := ws.FailedKinds[kind]; failed {
		return insufficient(kind, opts.Percentile, reason)
	}
	return reducer.Reduce(kind, ws.Usage[kind])
}

func insufficient(kind model.ResourceKind, percentile float64, reason string) model.ResourceRecommendation {
	return model.ResourceRecommendation{
		Kind:          kind,
		Confidence:    model.ConfidenceInsufficient,
		Percentile:    percentile,
		FailureReason: reason,
	}
}

// podAggregate sums the declared values across one pod's containers. The
// usage series aggregate over pods of the workload, so a single pod's
// declaration is the comparison baseline, not the whole workload's.
func podAggregate(snapshots []model.ResourceSnapshot, kind model.ResourceKind) (request, limit *model.Quantity) {
	if len(snapshots) == 0 {
		return nil, nil
	}
	pod := snapshots[0].Pod

	var requests, limits []*model.Quantity
	for _, s := range snapshots {
		if s.Pod != pod {
			continue
		}
		spec := s.Spec(kind)
		requests = append(requests, spec.Request)
		limits = append(limits, spec.Limit)
	}

	return foldQuantities(requests, kind), foldQuantities(limits, kind)
}

// foldQuantities sums declared quantities, keeping the original raw
// string when only one container declares a value.
func foldQuantities(quantities []*model.Quantity, kind model.ResourceKind) *model.Quantity {
	var sum int64
	var single *model.Quantity
	declared := 0

	for _, q := range quantities {
		if q == nil {
			continue
		}
		sum += q.Value
		single = q
		declared++
	}

	switch declared {
	case 0:
		return nil
	case 1:
		return single
	default:
		return &model.Quantity{Raw: normalize.FormatValue(kind, sum), Value: sum}
	}
}
