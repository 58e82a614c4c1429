package normalize

import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// Workloads converts raw inventory declarations into per-container
// ResourceSnapshots. Containers with malformed or negative quantities are
// dropped from the snapshot set and recorded as data-quality findings;
// they never abort the pass. Absent declarations map to nil specs, never
// to zero.
// Pure function — no side effects, no time.Now(), no external calls.
func Workloads(decls []model.WorkloadDecl) ([]model.ResourceSnapshot, []model.Finding) {
	var snapshots []model.ResourceSnapshot
	var findings []model.Finding

	for _, w := range decls {
		if w.Namespace == "" || w.Name == "" {
			findings = append(findings, model.Finding{
				Rule:      model.RuleMissingMetadata,
				Severity:  model.SeverityInfo,
				Namespace: w.Namespace,
				Workload:  w.Name,
				Message:   "workload skipped: incomplete inventory metadata",
				Detail:    fmt.Sprintf("namespace=%q, name=%q", w.Namespace, w.Name),
			})
			continue
		}

		for _, pod := range w.Pods {
			snaps, podFindings := podSnapshots(w, pod)
			snapshots = append(snapshots, snaps...)
			findings = append(findings, podFindings...)
		}
	}

	return snapshots, findings
}

// podSnapshots converts one pod's containers, assigning the pod-level QoS
// class computed from the containers that parsed cleanly.
func podSnapshots(w model.WorkloadDecl, pod model.PodDecl) ([]model.ResourceSnapshot, []model.Finding) {
	snaps := make([]model.ResourceSnapshot, 0, len(pod.Containers))
	var findings []model.Finding

	for _, c := range pod.Containers {
		snap, finding, ok := containerSnapshot(w, pod.Name, c)
		if !ok {
			findings = append(findings, *finding)
			continue
		}
		snaps = append(snaps, snap)
	}

	qos := QoSClass(snaps)
	for i := range snaps {
		snaps[i].QoSClass = qos
	}

	return snaps, findings
}

// containerSnapshot parses one container's declarations. On any malformed
// or negative quantity the container is dropped and a finding describing
// the offending field is returned instead.
func containerSnapshot(w model.WorkloadDecl, podName string, c model.ContainerDecl) (model.ResourceSnapshot, *model.Finding, bool) {
	snap := model.ResourceSnapshot{
		Namespace:         w.Namespace,
		Workload:          w.Name,
		WorkloadKind:      w.Kind,
		Pod:               podName,
		Container:         c.Name,
		WorkloadCreatedAt: w.CreatedAt,
	}

	fields := []struct {
		name  string
		value string
		kind  model.ResourceKind
		dst   **model.Quantity
	}{
		{"cpu_request", c.CPURequest, model.ResourceCPU, &snap.CPU.Request},
		{"cpu_limit", c.CPULimit, model.ResourceCPU, &snap.CPU.Limit},
		{"memory_request", c.MemoryRequest, model.ResourceMemory, &snap.Memory.Request},
		{"memory_limit", c.MemoryLimit, model.ResourceMemory, &snap.Memory.Limit},
	}

	for _, f := range fields {
		q, err := parseQuantity(f.value, f.kind)
		if err != nil {
			finding := dataQualityFinding(w, podName, c.Name, f.kind, f.name, f.value, err)
			return model.ResourceSnapshot{}, &finding, false
		}
		*f.dst = q
	}

	return snap, nil, true
}

// parseQuantity parses a declared quantity string into its canonical form.
// Returns nil for an absent (empty) declaration. CPU values become
// millicores, memory values bytes.
func parseQuantity(s string, kind model.ResourceKind) (*model.Quantity, error) {
	if s == "" {
		return nil, nil
	}

	q, err := resource.ParseQuantity(s)
	if err != nil {
		return nil, err
	}
	if q.Sign() < 0 {
		return nil, fmt.Errorf("negative quantity %q", s)
	}

	value := q.Value()
	if kind == model.ResourceCPU {
		value = q.MilliValue()
	}
	return &model.Quantity{Raw: q.String(), Value: value}, nil
}

// dataQualityFinding builds the finding recorded when a container is
// dropped for an unusable declaration.
func dataQualityFinding(w model.WorkloadDecl, podName, container string, kind model.ResourceKind, field, value string, err error) model.Finding {
	rule := model.RuleMalformedQuantity
	if _, parseErr := resource.ParseQuantity(value); parseErr == nil {
		rule = model.RuleNegativeQuantity
	}

	return model.Finding{
		Rule:        rule,
		Resource:    kind,
		Severity:    model.SeverityInfo,
		Namespace:   w.Namespace,
		Workload:    w.Name,
		Pod:         podName,
		Container:   container,
		Message:     "container dropped: unusable resource declaration",
		Detail:      fmt.Sprintf("%s=%q: %v", field, value, err),
		Remediation: fmt.Sprintf("correct the %s declaration on container %q", field, container),
	}
}

// QoSClass derives the scheduler quality-of-service class from a pod's
// parsed container specs: Guaranteed when every container pins request ==
// limit for both resources, BestEffort when nothing is declared at all,
// Burstable otherwise.
func QoSClass(containers []model.ResourceSnapshot) string {
	if len(containers) == 0 {
		return ""
	}

	anyDeclared := false
	allPinned := true

	for i := range containers {
		c := &containers[i]
		for _, spec := range []model.ResourceSpec{c.CPU, c.Memory} {
			if spec.Request != nil || spec.Limit != nil {
				anyDeclared = true
			}
			if spec.Request == nil || spec.Limit == nil || spec.Request.Value != spec.Limit.Value {
				allPinned = false
			}
		}
	}

	switch {
	case !anyDeclared:
		return model.QoSBestEffort
	case allPinned:
		return model.QoSGuaranteed
	default:
		return model.QoSBurstable
	}
}
