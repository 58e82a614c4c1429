package validate

import (
	"fmt"

	"github.com/kubegov/kubegov-auditor/internal/normalize"
	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// Thresholds are the tunable boundaries the rule set evaluates against.
// Callers override individual fields per report; Default covers the rest.
type Thresholds struct {
	// CPULimitRatio is the target limit:request ratio for CPU.
	CPULimitRatio float64
	// MemoryLimitRatio is the target limit:request ratio for memory.
	MemoryLimitRatio float64
	// RatioTolerance widens the target before a ratio counts as out of
	// bounds. A target of 3 with tolerance 1.5 accepts ratios up to 4.5.
	RatioTolerance float64
	// MinCPUMillicores is the floor below which a CPU request is flagged.
	MinCPUMillicores int64
	// MinMemoryBytes is the floor below which a memory request is flagged.
	MinMemoryBytes int64
}

// Default returns the thresholds used when the caller does not override.
func Default() Thresholds {
	return Thresholds{
		CPULimitRatio:    3.0,
		MemoryLimitRatio: 3.0,
		RatioTolerance:   1.5,
		MinCPUMillicores: 10,
		MinMemoryBytes:   32 * 1024 * 1024,
	}
}

func (t Thresholds) target(kind model.ResourceKind) float64 {
	if kind == model.ResourceCPU {
		return t.CPULimitRatio
	}
	return t.MemoryLimitRatio
}

func (t Thresholds) floor(kind model.ResourceKind) int64 {
	if kind == model.ResourceCPU {
		return t.MinCPUMillicores
	}
	return t.MinMemoryBytes
}

// violation is one rule hit before workload identity is attached.
type violation struct {
	severity    model.Severity
	message     string
	detail      string
	remediation string
}

// rule pairs a stable identifier with a pure check. Checks never mutate
// their input and never look outside the values they are handed, so the
// same snapshot always produces the same findings.
type rule struct {
	id    string
	check func(t Thresholds, kind model.ResourceKind, spec model.ResourceSpec) *violation
}

// ruleOrder fixes the emission order for one container. Reordering this
// table changes report output, so it is append-only.
var ruleOrder = []rule{
	{model.RuleMissingRequest, checkMissingRequest},
	{model.RuleMissingLimit, checkMissingLimit},
	{model.RuleRatioOutOfBounds, checkRatio},
	{model.RuleBelowMinimumRequest, checkMinimumRequest},
}

func checkMissingRequest(_ Thresholds, kind model.ResourceKind, spec model.ResourceSpec) *violation {
	if spec.Request != nil {
		return nil
	}
	return &violation{
		severity:    model.SeverityError,
		message:     fmt.Sprintf("%s request is not declared", kind),
		detail:      "request=none",
		remediation: fmt.Sprintf("Define a %s request to guarantee scheduling and QoS", kind),
	}
}

func checkMissingLimit(_ Thresholds, kind model.ResourceKind, spec model.ResourceSpec) *violation {
	if spec.Request == nil || spec.Limit != nil {
		return nil
	}
	return &violation{
		severity:    model.SeverityWarning,
		message:     fmt.Sprintf("%s limit is not declared", kind),
		detail:      fmt.Sprintf("request=%s, limit=none", quantityString(kind, spec.Request)),
		remediation: fmt.Sprintf("Define a %s limit to avoid unbounded consumption", kind),
	}
}

func checkRatio(t Thresholds, kind model.ResourceKind, spec model.ResourceSpec) *violation {
	// Ratio is undefined without both values or with a zero request; the
	// zero request is handled by the minimum-request rule instead.
	if spec.Request == nil || spec.Limit == nil || spec.Request.Value <= 0 {
		return nil
	}

	ratio := float64(spec.Limit.Value) / float64(spec.Request.Value)
	band := t.target(kind) * t.RatioTolerance
	detail := fmt.Sprintf("request=%s, limit=%s, ratio=%.1f",
		quantityString(kind, spec.Request), quantityString(kind, spec.Limit), ratio)

	switch {
	case ratio < 1.0:
		return &violation{
			severity:    model.SeverityError,
			message:     fmt.Sprintf("%s limit is below its request", kind),
			detail:      detail,
			remediation: fmt.Sprintf("Raise the %s limit to at least the request", kind),
		}
	case ratio > band*2:
		return &violation{
			severity:    model.SeverityError,
			message:     fmt.Sprintf("%s limit:request ratio far exceeds the allowed band", kind),
			detail:      detail,
			remediation: fmt.Sprintf("Reduce the %s limit or raise the request toward the %.0f:1 target", kind, t.target(kind)),
		}
	case ratio > band:
		return &violation{
			severity:    model.SeverityWarning,
			message:     fmt.Sprintf("%s limit:request ratio exceeds the allowed band", kind),
			detail:      detail,
			remediation: fmt.Sprintf("Reduce the %s limit or raise the request toward the %.0f:1 target", kind, t.target(kind)),
		}
	}
	return nil
}

func checkMinimumRequest(t Thresholds, kind model.ResourceKind, spec model.ResourceSpec) *violation {
	if spec.Request == nil || spec.Request.Value >= t.floor(kind) {
		return nil
	}
	return &violation{
		severity: model.SeverityWarning,
		message:  fmt.Sprintf("%s request is below the recommended minimum", kind),
		detail: fmt.Sprintf("request=%s, minimum=%s",
			quantityString(kind, spec.Request), normalize.FormatValue(kind, t.floor(kind))),
		remediation: fmt.Sprintf("Raise the %s request to at least %s", kind, normalize.FormatValue(kind, t.floor(kind))),
	}
}

// quantityString prefers the declared form so findings echo what the
// owner actually wrote.
func quantityString(kind model.ResourceKind, q *model.Quantity) string {
	if q.Raw != "" {
		return q.Raw
	}
	return normalize.FormatValue(kind, q.Value)
}
