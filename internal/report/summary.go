package report

import (
	"sort"
	"time"

	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// newWorkloadAge is the controller age below which a workload is
// categorized as new and its configuration gaps are expected.
const newWorkloadAge = 7 * 24 * time.Hour

// computeSummary derives the report counters. Confidence counters are per
// resource kind, two per workload.
func computeSummary(in Input) model.ReportSummary {
	s := model.ReportSummary{
		SnapshotCount:       len(in.Snapshots),
		FindingCount:        len(in.Findings),
		RecommendationCount: len(in.Recommendations),
	}

	workloads := make(map[string]struct{})
	namespaces := make(map[string]struct{})
	podQoS := make(map[string]string)
	for i := range in.Snapshots {
		snap := &in.Snapshots[i]
		workloads[snap.WorkloadKey()] = struct{}{}
		namespaces[snap.Namespace] = struct{}{}
		podQoS[snap.Namespace+"/"+snap.Pod] = snap.QoSClass
	}
	s.WorkloadCount = len(workloads)
	s.NamespaceCount = len(namespaces)

	for _, class := range podQoS {
		switch class {
		case model.QoSGuaranteed:
			s.GuaranteedCount++
		case model.QoSBurstable:
			s.BurstableCount++
		case model.QoSBestEffort:
			s.BestEffortCount++
		}
	}

	for i := range in.Findings {
		switch in.Findings[i].Severity {
		case model.SeverityCritical:
			s.CriticalCount++
		case model.SeverityError:
			s.ErrorCount++
		case model.SeverityWarning:
			s.WarningCount++
		case model.SeverityInfo:
			s.InfoCount++
		}
	}

	for i := range in.Recommendations {
		rec := &in.Recommendations[i]
		for _, rr := range []model.ResourceRecommendation{rec.CPU, rec.Memory} {
			switch rr.Confidence {
			case model.ConfidenceSufficient:
				s.SufficientDataCount++
			case model.ConfidenceInsufficient:
				s.InsufficientDataCount++
			case model.ConfidenceSeasonal:
				s.SeasonalCount++
			}
		}
	}

	return s
}

// workloadFacts accumulates per-workload state for overview rows.
type workloadFacts struct {
	namespace    string
	workload     string
	workloadKind string
	qosClass     string
	createdAt    int64

	containers map[string]struct{}
	findings   []model.Severity
	rules      map[string]bool

	cpuUsage float64
	memUsage int64
	sampled  bool
}

// workloadOverviews builds the triage table: one row per workload with
// category and priority, sorted most urgent first.
func workloadOverviews(in Input, critical map[string]bool, now time.Time) []model.WorkloadOverview {
	facts := make(map[string]*workloadFacts)

	get := func(namespace, workload string) *workloadFacts {
		key := namespace + "/" + workload
		f, ok := facts[key]
		if !ok {
			f = &workloadFacts{
				namespace:  namespace,
				workload:   workload,
				containers: make(map[string]struct{}),
				rules:      make(map[string]bool),
			}
			facts[key] = f
		}
		return f
	}

	for i := range in.Snapshots {
		snap := &in.Snapshots[i]
		f := get(snap.Namespace, snap.Workload)
		f.workloadKind = snap.WorkloadKind
		f.qosClass = snap.QoSClass
		f.createdAt = snap.WorkloadCreatedAt
		f.containers[snap.Container] = struct{}{}
		if snap.CPUUsageCores != nil {
			f.cpuUsage += *snap.CPUUsageCores
			f.sampled = true
		}
		if snap.MemoryUsageBytes != nil {
			f.memUsage += *snap.MemoryUsageBytes
			f.sampled = true
		}
	}

	// Findings can reference workloads with no surviving snapshots, for
	// example when every container declaration was malformed; those still
	// get a row.
	for i := range in.Findings {
		finding := &in.Findings[i]
		f := get(finding.Namespace, finding.Workload)
		f.findings = append(f.findings, finding.Severity)
		f.rules[finding.Rule] = true
	}

	overviews := make([]model.WorkloadOverview, 0, len(facts))
	for _, f := range facts {
		row := model.WorkloadOverview{
			Namespace:      f.namespace,
			Workload:       f.workload,
			WorkloadKind:   f.workloadKind,
			QoSClass:       f.qosClass,
			Category:       categorize(f, now),
			Priority:       priorityScore(f, critical),
			ContainerCount: len(f.containers),
			FindingCount:   len(f.findings),
		}
		if f.sampled {
			cpu, mem := f.cpuUsage, f.memUsage
			row.CPUUsageCores = &cpu
			row.MemoryUsageBytes = &mem
		}
		overviews = append(overviews, row)
	}

	sort.Slice(overviews, func(i, j int) bool {
		if overviews[i].Priority != overviews[j].Priority {
			return overviews[i].Priority > overviews[j].Priority
		}
		if overviews[i].Namespace != overviews[j].Namespace {
			return overviews[i].Namespace < overviews[j].Namespace
		}
		return overviews[i].Workload < overviews[j].Workload
	})
	return overviews
}

// categorize buckets a workload for triage. Age wins: a new workload is
// "new" even when misconfigured, because its owners are still iterating.
func categorize(f *workloadFacts, now time.Time) string {
	if f.createdAt > 0 {
		age := now.Sub(time.UnixMilli(f.createdAt))
		if age < newWorkloadAge {
			return model.CategoryNew
		}
	}

	worst := worstSeverity(f.findings)
	switch worst {
	case model.SeverityCritical, model.SeverityError:
		return model.CategoryOutlier
	case model.SeverityWarning:
		return model.CategoryEstablished
	default:
		return model.CategoryCompliant
	}
}

// priorityScore ranks a workload 1 (routine) to 10 (immediate attention).
// Severity sets the base, the specific gaps add weight, and operator-
// flagged namespaces push the result up.
func priorityScore(f *workloadFacts, critical map[string]bool) int {
	score := 1

	switch worstSeverity(f.findings) {
	case model.SeverityCritical:
		score += 4
	case model.SeverityError:
		score += 3
	case model.SeverityWarning:
		score += 1
	}

	if f.rules[model.RuleMissingRequest] {
		score += 3
	}
	if f.rules[model.RuleMissingLimit] {
		score += 2
	}
	if f.rules[model.RuleRatioOutOfBounds] {
		score += 1
	}

	if critical[f.namespace] {
		score += 2
	}

	if score > 10 {
		score = 10
	}
	return score
}

// worstSeverity returns the most severe entry, or "" for none.
func worstSeverity(severities []model.Severity) model.Severity {
	var worst model.Severity
	for _, s := range severities {
		if worst == "" || s.MoreSevere(worst) {
			worst = s
		}
	}
	return worst
}

// namespaceRollups aggregates finding counts per namespace for cluster
// reports.
func namespaceRollups(in Input) []model.NamespaceRollup {
	rollups := make(map[string]*model.NamespaceRollup)
	workloads := make(map[string]map[string]struct{})

	get := func(namespace string) *model.NamespaceRollup {
		r, ok := rollups[namespace]
		if !ok {
			r = &model.NamespaceRollup{Namespace: namespace}
			rollups[namespace] = r
			workloads[namespace] = make(map[string]struct{})
		}
		return r
	}

	for i := range in.Snapshots {
		snap := &in.Snapshots[i]
		get(snap.Namespace)
		workloads[snap.Namespace][snap.Workload] = struct{}{}
	}
	for i := range in.Findings {
		finding := &in.Findings[i]
		r := get(finding.Namespace)
		workloads[finding.Namespace][finding.Workload] = struct{}{}
		r.FindingCount++
		switch finding.Severity {
		case model.SeverityCritical:
			r.CriticalCount++
		case model.SeverityError:
			r.ErrorCount++
		case model.SeverityWarning:
			r.WarningCount++
		}
	}

	result := make([]model.NamespaceRollup, 0, len(rollups))
	for namespace, r := range rollups {
		r.WorkloadCount = len(workloads[namespace])
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Namespace < result[j].Namespace
	})
	return result
}
