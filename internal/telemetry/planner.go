package telemetry

import (
	"time"

	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// Target is one workload the planner should cover.
type Target struct {
	Namespace string
	Workload  string
	Pods      []string
}

// WorkloadQueries groups the query specs for one workload so its
// telemetry resolves atomically: the reducer only ever sees a workload
// with all of its queries settled.
type WorkloadQueries struct {
	Namespace string
	Workload  string
	Specs     []model.QuerySpec
}

// BuildPlan derives the query specs for the given targets and window. Per
// workload and resource kind it plans an avg and a max aggregation, CPU
// before memory. The window end is clamped to now so a caller-supplied
// future end never reaches the backend.
func BuildPlan(targets []Target, rng model.TimeRange, now time.Time) []WorkloadQueries {
	end := rng.End
	if end.After(now) {
		end = now
	}
	step := stepFor(end.Sub(rng.Start))

	plan := make([]WorkloadQueries, 0, len(targets))
	for _, t := range targets {
		if len(t.Pods) == 0 {
			continue
		}
		selector := podSelector(t.Pods)

		group := WorkloadQueries{
			Namespace: t.Namespace,
			Workload:  t.Workload,
			Specs:     make([]model.QuerySpec, 0, 4),
		}
		for _, kind := range model.Kinds() {
			for _, agg := range []model.Aggregation{model.AggregationAvg, model.AggregationMax} {
				group.Specs = append(group.Specs, model.QuerySpec{
					Kind:        kind,
					Aggregation: agg,
					Namespace:   t.Namespace,
					Workload:    t.Workload,
					PodSelector: selector,
					Start:       rng.Start,
					End:         end,
					Step:        step,
				})
			}
		}
		plan = append(plan, group)
	}
	return plan
}

// stepFor scales the query resolution with the window so the sample count
// per series stays bounded regardless of how much history is requested.
func stepFor(window time.Duration) time.Duration {
	switch {
	case window <= time.Hour:
		return time.Minute
	case window <= 6*time.Hour:
		return 5 * time.Minute
	case window <= 24*time.Hour:
		return 15 * time.Minute
	default:
		return time.Hour
	}
}
