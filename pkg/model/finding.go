package model

// Severity ranks findings for triage. Order from most to least severe:
// critical, error, warning, info.
type Severity string

// Finding severities.
const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// severityRank orders severities for comparison; lower is more severe.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityError:    1,
	SeverityWarning:  2,
	SeverityInfo:     3,
}

// MoreSevere reports whether s outranks other.
func (s Severity) MoreSevere(other Severity) bool {
	return severityRank[s] < severityRank[other]
}

// Rule identifiers. Configuration rules are emitted by the validation
// engine in this fixed order; data-quality and history rules come from the
// normalizer and the recommendation reducer respectively.
const (
	RuleMissingRequest      = "missing-request"
	RuleMissingLimit        = "missing-limit"
	RuleRatioOutOfBounds    = "ratio-out-of-bounds"
	RuleBelowMinimumRequest = "below-minimum-request"

	RuleMalformedQuantity = "malformed-quantity"
	RuleNegativeQuantity  = "negative-quantity"
	RuleMissingMetadata   = "missing-metadata"

	RuleOverProvisionedRequest  = "over-provisioned-request"
	RuleUnderProvisionedRequest = "under-provisioned-request"
	RuleLimitPressure           = "limit-pressure"
)

// Finding is one rule violation tied to a subject container or workload.
// Detail embeds the literal observed values so the finding is actionable
// without re-querying the source.
type Finding struct {
	Rule      string       `json:"rule"`
	Resource  ResourceKind `json:"resource,omitempty"`
	Severity  Severity     `json:"severity"`
	Namespace string       `json:"namespace"`
	Workload  string       `json:"workload"`
	Pod       string       `json:"pod,omitempty"`
	Container string       `json:"container,omitempty"`

	Message     string `json:"message"`
	Detail      string `json:"detail,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}
