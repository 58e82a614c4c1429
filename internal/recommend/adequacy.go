package recommend

import (
	"fmt"

	"github.com/kubegov/kubegov-auditor/internal/normalize"
	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// Adequacy thresholds, expressed as fractions of the declared value.
const (
	// overProvisionedBelow flags a request whose average usage sits under
	// this fraction of it.
	overProvisionedBelow = 0.5
	// underProvisionedAbove flags a request whose P95 usage sits above
	// this fraction of it.
	underProvisionedAbove = 0.8
	// limitPressureAbove flags a limit whose peak usage sits above this
	// fraction of it.
	limitPressureAbove = 0.9
	// suggestionHeadroom pads observed usage before suggesting a new value.
	suggestionHeadroom = 1.2
)

// AdequacyInput bundles the declared spec and observed usage for one
// workload and resource kind.
type AdequacyInput struct {
	Namespace string
	Workload  string
	Kind      model.ResourceKind
	// Request and Limit are the per-pod aggregates of the declared values,
	// nil when no container declares one.
	Request *model.Quantity
	Limit   *model.Quantity
	// Usage is the avg-over-pods series, Peak the max-over-pods series.
	Usage model.SampleSeries
	Peak  model.SampleSeries
}

// Adequacy compares observed usage against the declared request and limit
// and returns advisory findings. A workload with no telemetry or no
// declarations produces nothing; the static rule set covers the latter.
func (r *Reducer) Adequacy(in AdequacyInput) []model.Finding {
	var findings []model.Finding

	usage := filterSamples(in.Usage)
	if in.Request != nil && in.Request.Value > 0 && len(usage) >= r.settings.MinSamples {
		values := usage.Values()
		avg := toModelUnits(in.Kind, mean(values))
		p95 := toModelUnits(in.Kind, percentile(values, 95))
		declared := float64(in.Request.Value)

		switch {
		case avg < declared*overProvisionedBelow:
			findings = append(findings, r.adequacyFinding(in, model.RuleOverProvisionedRequest, model.SeverityInfo,
				fmt.Sprintf("%s request looks over-provisioned", in.Kind),
				fmt.Sprintf("avg=%s, request=%s, utilization=%.0f%%",
					normalize.FormatValue(in.Kind, ceilModelUnits(in.Kind, avg)), in.Request.Raw, avg/declared*100),
				fmt.Sprintf("Consider lowering the %s request toward %s based on observed usage",
					in.Kind, normalize.FormatValue(in.Kind, ceilModelUnits(in.Kind, avg*suggestionHeadroom)))))
		case p95 > declared*underProvisionedAbove:
			findings = append(findings, r.adequacyFinding(in, model.RuleUnderProvisionedRequest, model.SeverityWarning,
				fmt.Sprintf("%s request looks under-provisioned", in.Kind),
				fmt.Sprintf("p95=%s, request=%s, utilization=%.0f%%",
					normalize.FormatValue(in.Kind, ceilModelUnits(in.Kind, p95)), in.Request.Raw, p95/declared*100),
				fmt.Sprintf("Consider raising the %s request toward %s based on observed usage",
					in.Kind, normalize.FormatValue(in.Kind, ceilModelUnits(in.Kind, p95*suggestionHeadroom)))))
		}
	}

	peak := filterSamples(in.Peak)
	if in.Limit != nil && in.Limit.Value > 0 && len(peak) >= r.settings.MinSamples {
		max := toModelUnits(in.Kind, maxValue(peak.Values()))
		declared := float64(in.Limit.Value)

		if max > declared*limitPressureAbove {
			findings = append(findings, r.adequacyFinding(in, model.RuleLimitPressure, model.SeverityWarning,
				fmt.Sprintf("peak usage is pressing against the %s limit", in.Kind),
				fmt.Sprintf("max=%s, limit=%s, utilization=%.0f%%",
					normalize.FormatValue(in.Kind, ceilModelUnits(in.Kind, max)), in.Limit.Raw, max/declared*100),
				fmt.Sprintf("Consider raising the %s limit toward %s to avoid throttling or eviction",
					in.Kind, normalize.FormatValue(in.Kind, ceilModelUnits(in.Kind, max*suggestionHeadroom)))))
		}
	}

	return findings
}

func (r *Reducer) adequacyFinding(in AdequacyInput, rule string, severity model.Severity, message, detail, remediation string) model.Finding {
	return model.Finding{
		Rule:        rule,
		Resource:    in.Kind,
		Severity:    severity,
		Namespace:   in.Namespace,
		Workload:    in.Workload,
		Message:     message,
		Detail:      detail,
		Remediation: remediation,
	}
}
