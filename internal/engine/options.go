package engine

import (
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/kubegov/kubegov-auditor/internal/config"
	auditerrors "github.com/kubegov/kubegov-auditor/internal/errors"
	"github.com/kubegov/kubegov-auditor/internal/overcommit"
	"github.com/kubegov/kubegov-auditor/internal/recommend"
	"github.com/kubegov/kubegov-auditor/internal/telemetry"
	"github.com/kubegov/kubegov-auditor/internal/validate"
)

// Options are the per-report policy knobs. Every field is overridable per
// call; DefaultOptions documents the defaults. GenerateReport validates the
// whole struct up front and rejects invalid values instead of clamping
// them, so a typo in a threshold surfaces as an error rather than as a
// silently different report.
type Options struct {
	// Percentile of observed usage suggested as the request, (0, 100].
	Percentile float64
	// CPULimitRatio and MemoryLimitRatio are the target limit:request
	// ratios, used both to validate declared ratios and to derive
	// suggested limits.
	CPULimitRatio    float64
	MemoryLimitRatio float64
	// RatioTolerance widens the target ratio before a declared ratio
	// counts as out of bounds.
	RatioTolerance float64
	// MinCPURequest and MinMemoryRequest are the request floors, declared
	// as Kubernetes quantity strings ("10m", "32Mi").
	MinCPURequest    string
	MinMemoryRequest string
	// MinSamples and MinSpan below which a series is insufficient.
	MinSamples int
	MinSpan    time.Duration

	// Overcommit severity thresholds on the requested:capacity ratio.
	OvercommitWarning  float64
	OvercommitCritical float64

	// IncludeSystemNamespaces admits namespaces matching
	// SystemNamespacePrefixes into cluster-scope reports. Explicitly
	// scoped requests are never filtered.
	IncludeSystemNamespaces bool
	SystemNamespacePrefixes []string

	// Query execution bounds, passed through to the telemetry executor.
	QueryConcurrency int
	QueryQPS         float64
	QueryTimeout     time.Duration
	BatchDeadline    time.Duration

	// LiveUsage enriches snapshots with instant metrics-server readings
	// when a sampler is wired.
	LiveUsage bool
}

// DefaultOptions returns the documented defaults: P95 over 3+ samples
// spanning 30m+, a 3:1 limit:request target with 1.5x tolerance, 10m/32Mi
// request floors and 0.75/0.90 overcommit thresholds.
func DefaultOptions() Options {
	return Options{
		Percentile:       95,
		CPULimitRatio:    3.0,
		MemoryLimitRatio: 3.0,
		RatioTolerance:   1.5,
		MinCPURequest:    "10m",
		MinMemoryRequest: "32Mi",
		MinSamples:       3,
		MinSpan:          30 * time.Minute,

		OvercommitWarning:  0.75,
		OvercommitCritical: 0.90,

		SystemNamespacePrefixes: []string{"kube-", "openshift-", "default"},

		QueryConcurrency: 5,
		QueryQPS:         10,
		QueryTimeout:     30 * time.Second,
		BatchDeadline:    2 * time.Minute,

		LiveUsage: true,
	}
}

// OptionsFromConfig maps the process configuration onto report options.
// The config has already been validated at startup; Validate still runs
// per call because callers may override fields afterwards.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Percentile:       cfg.Percentile,
		CPULimitRatio:    cfg.CPULimitRatio,
		MemoryLimitRatio: cfg.MemoryLimitRatio,
		RatioTolerance:   1.5,
		MinCPURequest:    cfg.MinCPURequest,
		MinMemoryRequest: cfg.MinMemoryRequest,
		MinSamples:       cfg.MinSamples,
		MinSpan:          cfg.MinSpan,

		OvercommitWarning:  cfg.OvercommitWarning,
		OvercommitCritical: cfg.OvercommitCritical,

		IncludeSystemNamespaces: cfg.IncludeSystemNamespaces,
		SystemNamespacePrefixes: cfg.SystemNamespacePrefixes,

		QueryConcurrency: cfg.QueryConcurrency,
		QueryQPS:         cfg.QueryQPS,
		QueryTimeout:     cfg.QueryTimeout,
		BatchDeadline:    cfg.BatchDeadline,

		LiveUsage: cfg.LiveUsageEnabled,
	}
}

// Validate checks every option and returns a typed invalid-options error
// describing the first bad field. Values are never clamped.
func (o Options) Validate() error {
	if o.Percentile <= 0 || o.Percentile > 100 {
		return invalidOptions(fmt.Sprintf("percentile must be in (0, 100], got %v", o.Percentile))
	}
	if o.CPULimitRatio <= 0 {
		return invalidOptions(fmt.Sprintf("cpu limit ratio must be > 0, got %v", o.CPULimitRatio))
	}
	if o.MemoryLimitRatio <= 0 {
		return invalidOptions(fmt.Sprintf("memory limit ratio must be > 0, got %v", o.MemoryLimitRatio))
	}
	if o.RatioTolerance <= 0 {
		return invalidOptions(fmt.Sprintf("ratio tolerance must be > 0, got %v", o.RatioTolerance))
	}
	if _, err := parsePositiveQuantity(o.MinCPURequest); err != nil {
		return invalidOptions(fmt.Sprintf("min cpu request: %v", err))
	}
	if _, err := parsePositiveQuantity(o.MinMemoryRequest); err != nil {
		return invalidOptions(fmt.Sprintf("min memory request: %v", err))
	}
	if o.MinSamples < 1 {
		return invalidOptions(fmt.Sprintf("min samples must be >= 1, got %d", o.MinSamples))
	}
	if o.MinSpan < 0 {
		return invalidOptions(fmt.Sprintf("min span must be >= 0, got %v", o.MinSpan))
	}
	if o.OvercommitWarning <= 0 {
		return invalidOptions(fmt.Sprintf("overcommit warning threshold must be > 0, got %v", o.OvercommitWarning))
	}
	if o.OvercommitCritical <= o.OvercommitWarning {
		return invalidOptions(fmt.Sprintf("overcommit critical threshold must exceed warning, got %v <= %v",
			o.OvercommitCritical, o.OvercommitWarning))
	}
	if o.QueryConcurrency < 1 || o.QueryConcurrency > 10 {
		return invalidOptions(fmt.Sprintf("query concurrency must be 1-10, got %d", o.QueryConcurrency))
	}
	if o.QueryQPS < 0 {
		return invalidOptions(fmt.Sprintf("query qps must be >= 0, got %v", o.QueryQPS))
	}
	if o.QueryTimeout <= 0 {
		return invalidOptions(fmt.Sprintf("query timeout must be > 0, got %v", o.QueryTimeout))
	}
	if o.BatchDeadline < 0 {
		return invalidOptions(fmt.Sprintf("batch deadline must be >= 0, got %v", o.BatchDeadline))
	}
	return nil
}

func invalidOptions(msg string) error {
	return &auditerrors.EngineError{
		Code:      auditerrors.ErrInvalidOptions,
		Message:   "invalid options: " + msg,
		Component: "engine",
	}
}

func parsePositiveQuantity(s string) (resource.Quantity, error) {
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return q, fmt.Errorf("malformed quantity %q", s)
	}
	if q.Sign() <= 0 {
		return q, fmt.Errorf("quantity must be positive, got %q", s)
	}
	return q, nil
}

// thresholds converts the options into the rule engine's form. Only valid
// after Validate has passed.
func (o Options) thresholds() validate.Thresholds {
	cpu, _ := parsePositiveQuantity(o.MinCPURequest)
	mem, _ := parsePositiveQuantity(o.MinMemoryRequest)
	return validate.Thresholds{
		CPULimitRatio:    o.CPULimitRatio,
		MemoryLimitRatio: o.MemoryLimitRatio,
		RatioTolerance:   o.RatioTolerance,
		MinCPUMillicores: cpu.MilliValue(),
		MinMemoryBytes:   mem.Value(),
	}
}

func (o Options) settings() recommend.Settings {
	s := recommend.DefaultSettings()
	s.Percentile = o.Percentile
	s.CPULimitRatio = o.CPULimitRatio
	s.MemoryLimitRatio = o.MemoryLimitRatio
	s.MinSamples = o.MinSamples
	s.MinSpan = o.MinSpan
	return s
}

func (o Options) overcommit() overcommit.Thresholds {
	return overcommit.Thresholds{
		Warning:  o.OvercommitWarning,
		Critical: o.OvercommitCritical,
	}
}

func (o Options) limits() telemetry.Limits {
	return telemetry.Limits{
		Concurrency:   o.QueryConcurrency,
		QPS:           o.QueryQPS,
		QueryTimeout:  o.QueryTimeout,
		BatchDeadline: o.BatchDeadline,
	}
}
