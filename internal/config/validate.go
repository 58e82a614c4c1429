package config

import (
	"fmt"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/api/resource"
)

// Validate checks that the Config contains valid values.
// Returns an error describing the first invalid field found.
func (c Config) Validate() error {
	if c.AnalysisWindow < 10*time.Minute {
		return fmt.Errorf("config: AnalysisWindow must be >= 10m, got %v", c.AnalysisWindow)
	}

	if c.Percentile <= 0 || c.Percentile > 100 {
		return fmt.Errorf("config: Percentile must be in (0, 100], got %v", c.Percentile)
	}

	if c.CPULimitRatio < 1 {
		return fmt.Errorf("config: CPULimitRatio must be >= 1, got %v", c.CPULimitRatio)
	}
	if c.MemoryLimitRatio < 1 {
		return fmt.Errorf("config: MemoryLimitRatio must be >= 1, got %v", c.MemoryLimitRatio)
	}

	if q, err := resource.ParseQuantity(c.MinCPURequest); err != nil || q.Sign() <= 0 {
		return fmt.Errorf("config: KUBEGOV_MIN_CPU_REQUEST must be a positive quantity, got %q", c.MinCPURequest)
	}
	if q, err := resource.ParseQuantity(c.MinMemoryRequest); err != nil || q.Sign() <= 0 {
		return fmt.Errorf("config: KUBEGOV_MIN_MEMORY_REQUEST must be a positive quantity, got %q", c.MinMemoryRequest)
	}

	if c.MinSamples < 1 {
		return fmt.Errorf("config: MinSamples must be >= 1, got %d", c.MinSamples)
	}
	if c.MinSpan < 0 {
		return fmt.Errorf("config: MinSpan must be >= 0, got %v", c.MinSpan)
	}

	if c.OvercommitWarning <= 0 || c.OvercommitCritical <= 0 {
		return fmt.Errorf("config: overcommit thresholds must be > 0, got warning=%v critical=%v", c.OvercommitWarning, c.OvercommitCritical)
	}
	if c.OvercommitWarning >= c.OvercommitCritical {
		return fmt.Errorf("config: OvercommitWarning must be < OvercommitCritical, got %v >= %v", c.OvercommitWarning, c.OvercommitCritical)
	}

	if c.Workload != "" && c.Namespace == "" {
		return fmt.Errorf("config: KUBEGOV_WORKLOAD requires KUBEGOV_NAMESPACE")
	}

	if c.PrometheusURL != "" && !strings.HasPrefix(c.PrometheusURL, "http://") && !strings.HasPrefix(c.PrometheusURL, "https://") {
		return fmt.Errorf("config: KUBEGOV_PROMETHEUS_URL must be an http(s) URL, got %q", c.PrometheusURL)
	}

	if c.QueryTimeout < time.Second {
		return fmt.Errorf("config: QueryTimeout must be >= 1s, got %v", c.QueryTimeout)
	}
	if c.QueryConcurrency < 1 || c.QueryConcurrency > 10 {
		return fmt.Errorf("config: QueryConcurrency must be 1-10, got %d", c.QueryConcurrency)
	}
	if c.QueryQPS <= 0 {
		return fmt.Errorf("config: QueryQPS must be > 0, got %v", c.QueryQPS)
	}
	if c.BatchDeadline < c.QueryTimeout {
		return fmt.Errorf("config: BatchDeadline must be >= QueryTimeout, got %v < %v", c.BatchDeadline, c.QueryTimeout)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("config: CacheTTL must be >= 0, got %v", c.CacheTTL)
	}

	if c.RunInterval != 0 && c.RunInterval < time.Minute {
		return fmt.Errorf("config: KUBEGOV_INTERVAL must be 0 (one-shot) or >= 1m, got %v", c.RunInterval)
	}

	if c.SinkURL != "" && !c.AllowInsecure && !strings.HasPrefix(c.SinkURL, "https://") {
		return fmt.Errorf("config: KUBEGOV_SINK_URL must use https:// (got %q); set KUBEGOV_ALLOW_INSECURE=true to override", c.SinkURL)
	}

	if c.CompressionLevel < 1 || c.CompressionLevel > 4 {
		return fmt.Errorf("config: CompressionLevel must be 1-4, got %d", c.CompressionLevel)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("config: MaxRetries must be >= 0, got %d", c.MaxRetries)
	}

	if c.HealthPort < 1 || c.HealthPort > 65535 {
		return fmt.Errorf("config: HealthPort must be 1-65535, got %d", c.HealthPort)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: LogLevel must be debug|info|warn|error, got %q", c.LogLevel)
	}

	return nil
}
