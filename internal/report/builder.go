// Package report assembles validation, recommendation and overcommit
// outputs into the externally visible governance report. Nothing is
// filtered here: every finding and every recommendation the pipeline
// produced appears in the result, and the summary is derived from what
// is present, never the other way around.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// Input is everything one analysis pass produced.
type Input struct {
	Scope model.Scope
	Range model.TimeRange

	Snapshots       []model.ResourceSnapshot
	Findings        []model.Finding
	Recommendations []model.Recommendation
	Overcommit      model.OvercommitResult

	Capacity model.ClusterCapacity
	Sources  model.SourceHealth
}

// Builder assembles governance reports. Per-deployment fixtures (version,
// namespaces that boost finding priority) live on the builder; per-pass
// data arrives via Input.
type Builder struct {
	version            string
	criticalNamespaces map[string]bool
	now                func() time.Time
}

// NewBuilder creates a report builder. criticalNamespaces boost the
// priority of workloads in namespaces the operator flagged as production.
func NewBuilder(version string, criticalNamespaces []string) *Builder {
	critical := make(map[string]bool, len(criticalNamespaces))
	for _, ns := range criticalNamespaces {
		critical[ns] = true
	}
	return &Builder{
		version:            version,
		criticalNamespaces: critical,
		now:                time.Now,
	}
}

// Build assembles the report for one pass.
func (b *Builder) Build(in Input) *model.GovernanceReport {
	now := b.now()

	report := &model.GovernanceReport{
		ReportID:    uuid.New().String(),
		Scope:       in.Scope,
		Range:       in.Range,
		GeneratedAt: now.UnixMilli(),
		Version:     b.version,

		Findings:        in.Findings,
		Recommendations: in.Recommendations,
		Overcommit:      in.Overcommit,

		Cluster: model.ClusterContext{
			Provider:  in.Capacity.Provider,
			NodeCount: in.Capacity.NodeCount,
			PodCount:  countPods(in.Snapshots),
		},
		Sources: in.Sources,
	}

	// Consumers iterate these; nil and empty must look the same on the
	// wire.
	if report.Findings == nil {
		report.Findings = []model.Finding{}
	}
	if report.Recommendations == nil {
		report.Recommendations = []model.Recommendation{}
	}

	report.Summary = computeSummary(in)
	report.Workloads = workloadOverviews(in, b.criticalNamespaces, now)
	if in.Scope.Kind == model.ScopeCluster {
		report.Namespaces = namespaceRollups(in)
	}

	return report
}

// countPods counts distinct pods across the snapshot set.
func countPods(snapshots []model.ResourceSnapshot) int {
	pods := make(map[string]struct{}, len(snapshots))
	for i := range snapshots {
		s := &snapshots[i]
		pods[s.Namespace+"/"+s.Pod] = struct{}{}
	}
	return len(pods)
}
