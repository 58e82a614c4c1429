// Package overcommit compares the sum of declared requests against
// allocatable capacity for a scope and classifies the pressure.
package overcommit

import (
	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// Thresholds map a requested/capacity ratio to a severity.
type Thresholds struct {
	// Warning is the ratio above which the scope is flagged warning.
	Warning float64
	// Critical is the ratio above which the scope is flagged critical.
	Critical float64
}

// DefaultThresholds returns the standard overcommit bands.
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 0.75, Critical: 0.90}
}

// Compute sums present requests per resource kind across the snapshots
// and relates them to capacity. Containers without a declared request
// contribute nothing to the sum and are counted as unaccounted, so the
// ratio's blind spot is visible to the consumer.
//
// Pure function — no side effects, no time.Now(), no external calls.
func Compute(scope model.Scope, capacity model.ClusterCapacity, snapshots []model.ResourceSnapshot, t Thresholds) model.OvercommitResult {
	return model.OvercommitResult{
		Scope:  scope.String(),
		CPU:    entry(model.ResourceCPU, capacity, snapshots, t),
		Memory: entry(model.ResourceMemory, capacity, snapshots, t),
	}
}

func entry(kind model.ResourceKind, capacity model.ClusterCapacity, snapshots []model.ResourceSnapshot, t Thresholds) model.OvercommitEntry {
	e := model.OvercommitEntry{Kind: kind, Severity: model.SeverityInfo}

	for i := range snapshots {
		spec := snapshots[i].Spec(kind)
		if spec.Request == nil {
			e.Unaccounted++
			continue
		}
		e.Requested += spec.Request.Value
	}

	// An unknown or zero capacity must surface as "capacity unknown",
	// never as a NaN or infinite ratio.
	amount := capacity.Amount(kind)
	if !capacity.Known || amount <= 0 {
		return e
	}

	e.Capacity = amount
	e.CapacityKnown = true
	ratio := float64(e.Requested) / float64(amount)
	e.Ratio = &ratio

	switch {
	case ratio > t.Critical:
		e.Severity = model.SeverityCritical
	case ratio > t.Warning:
		e.Severity = model.SeverityWarning
	}

	return e
}
