// Package validate evaluates normalized resource snapshots against the
// capacity-management rule set and emits findings.
//
// The rule set is a fixed ordered table: for every snapshot each rule is
// evaluated for CPU and then memory, so two passes over identical input
// produce byte-identical findings. Rules are pure; malformed input never
// reaches them because the normalizer filters it upstream.
package validate

import (
	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// Engine evaluates snapshots against a fixed thresholds set.
type Engine struct {
	thresholds Thresholds
}

// New creates a rule engine bound to the given thresholds.
func New(t Thresholds) *Engine {
	return &Engine{thresholds: t}
}

// Evaluate runs every rule against every snapshot.
//
// Findings come out in snapshot order, then rule order, then CPU before
// memory within a rule. Pure function — no side effects, no time.Now(),
// no external calls.
func (e *Engine) Evaluate(snapshots []model.ResourceSnapshot) []model.Finding {
	findings := make([]model.Finding, 0, len(snapshots))

	for i := range snapshots {
		snap := &snapshots[i]
		for _, r := range ruleOrder {
			for _, kind := range model.Kinds() {
				v := r.check(e.thresholds, kind, snap.Spec(kind))
				if v == nil {
					continue
				}
				findings = append(findings, model.Finding{
					Rule:        r.id,
					Resource:    kind,
					Severity:    v.severity,
					Namespace:   snap.Namespace,
					Workload:    snap.Workload,
					Pod:         snap.Pod,
					Container:   snap.Container,
					Message:     v.message,
					Detail:      v.detail,
					Remediation: v.remediation,
				})
			}
		}
	}

	return findings
}
