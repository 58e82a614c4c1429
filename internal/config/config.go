package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all auditor configuration values.
type Config struct {
	// Analysis policy. These become the engine's per-call option
	// defaults; callers can still override per report.
	AnalysisWindow   time.Duration // KUBEGOV_ANALYSIS_WINDOW, default: 24h
	Percentile       float64       // KUBEGOV_PERCENTILE, default: 95
	CPULimitRatio    float64       // KUBEGOV_CPU_LIMIT_RATIO, default: 3.0
	MemoryLimitRatio float64       // KUBEGOV_MEMORY_LIMIT_RATIO, default: 3.0
	MinCPURequest    string        // KUBEGOV_MIN_CPU_REQUEST, default: "10m"
	MinMemoryRequest string        // KUBEGOV_MIN_MEMORY_REQUEST, default: "32Mi"
	MinSamples       int           // KUBEGOV_MIN_SAMPLES, default: 3
	MinSpan          time.Duration // KUBEGOV_MIN_SPAN, default: 30m

	// Overcommit thresholds.
	OvercommitWarning  float64 // KUBEGOV_OVERCOMMIT_WARNING, default: 0.75
	OvercommitCritical float64 // KUBEGOV_OVERCOMMIT_CRITICAL, default: 0.90

	// Scope selection for the run loop. Empty Namespace means cluster
	// scope; Workload narrows to one workload within Namespace.
	Namespace               string
	Workload                string
	IncludeSystemNamespaces bool     // KUBEGOV_INCLUDE_SYSTEM_NAMESPACES, default: false
	SystemNamespacePrefixes []string // KUBEGOV_SYSTEM_NAMESPACE_PREFIXES, prefix match
	CriticalNamespaces      []string // KUBEGOV_CRITICAL_NAMESPACES, priority boost

	// Metrics backend.
	PrometheusURL    string        // KUBEGOV_PROMETHEUS_URL
	PrometheusToken  string        // KUBEGOV_PROMETHEUS_TOKEN, bearer token
	QueryTimeout     time.Duration // KUBEGOV_QUERY_TIMEOUT, per range query, default: 30s
	QueryConcurrency int           // KUBEGOV_QUERY_CONCURRENCY, in-flight cap, default: 5
	QueryQPS         float64       // KUBEGOV_QUERY_QPS, token-bucket rate, default: 10
	BatchDeadline    time.Duration // KUBEGOV_BATCH_DEADLINE, whole metrics batch, default: 2m
	CacheTTL         time.Duration // KUBEGOV_CACHE_TTL, query result cache, default: 5m
	LiveUsageEnabled bool          // KUBEGOV_LIVE_USAGE_ENABLED, metrics-server enrichment, default: true

	// Run mode. Zero interval runs a single pass and exits.
	RunInterval time.Duration // KUBEGOV_INTERVAL, default: 0
	Version     string

	// Report sink. Empty SinkURL disables delivery.
	SinkURL          string        // KUBEGOV_SINK_URL
	SinkToken        string        // KUBEGOV_SINK_TOKEN
	CompressionLevel int           // KUBEGOV_COMPRESSION_LEVEL, default: 3
	MaxRetries       int           // KUBEGOV_MAX_RETRIES, default: 5
	RequestTimeout   time.Duration // KUBEGOV_REQUEST_TIMEOUT, default: 30s

	HealthPort int    // KUBEGOV_HEALTH_PORT, default: 8080
	LogLevel   string // KUBEGOV_LOG_LEVEL, default: "info"

	// Security
	AllowInsecure  bool // KUBEGOV_ALLOW_INSECURE, default: false — allows http:// sink URLs
	DebugEndpoints bool // KUBEGOV_DEBUG_ENDPOINTS, default: false — enables pprof/debug on health port
}

// Load reads configuration from environment variables and returns a Config
// with defaults applied for any unset values.
func Load() Config {
	cfg := Config{
		AnalysisWindow:   parseDuration("KUBEGOV_ANALYSIS_WINDOW", 24*time.Hour),
		Percentile:       parseFloat("KUBEGOV_PERCENTILE", 95),
		CPULimitRatio:    parseFloat("KUBEGOV_CPU_LIMIT_RATIO", 3.0),
		MemoryLimitRatio: parseFloat("KUBEGOV_MEMORY_LIMIT_RATIO", 3.0),
		MinCPURequest:    envOrDefault("KUBEGOV_MIN_CPU_REQUEST", "10m"),
		MinMemoryRequest: envOrDefault("KUBEGOV_MIN_MEMORY_REQUEST", "32Mi"),
		MinSamples:       parseInt("KUBEGOV_MIN_SAMPLES", 3),
		MinSpan:          parseDuration("KUBEGOV_MIN_SPAN", 30*time.Minute),

		OvercommitWarning:  parseFloat("KUBEGOV_OVERCOMMIT_WARNING", 0.75),
		OvercommitCritical: parseFloat("KUBEGOV_OVERCOMMIT_CRITICAL", 0.90),

		Namespace:               os.Getenv("KUBEGOV_NAMESPACE"),
		Workload:                os.Getenv("KUBEGOV_WORKLOAD"),
		IncludeSystemNamespaces: parseBool("KUBEGOV_INCLUDE_SYSTEM_NAMESPACES", false),
		SystemNamespacePrefixes: parseStringSlice("KUBEGOV_SYSTEM_NAMESPACE_PREFIXES"),
		CriticalNamespaces:      parseStringSlice("KUBEGOV_CRITICAL_NAMESPACES"),

		PrometheusURL:    envOrDefault("KUBEGOV_PROMETHEUS_URL", "http://prometheus.monitoring.svc.cluster.local:9090"),
		PrometheusToken:  os.Getenv("KUBEGOV_PROMETHEUS_TOKEN"),
		QueryTimeout:     parseDuration("KUBEGOV_QUERY_TIMEOUT", 30*time.Second),
		QueryConcurrency: parseInt("KUBEGOV_QUERY_CONCURRENCY", 5),
		QueryQPS:         parseFloat("KUBEGOV_QUERY_QPS", 10),
		BatchDeadline:    parseDuration("KUBEGOV_BATCH_DEADLINE", 2*time.Minute),
		CacheTTL:         parseDuration("KUBEGOV_CACHE_TTL", 5*time.Minute),
		LiveUsageEnabled: parseBool("KUBEGOV_LIVE_USAGE_ENABLED", true),

		RunInterval: parseDuration("KUBEGOV_INTERVAL", 0),

		SinkURL:          os.Getenv("KUBEGOV_SINK_URL"),
		SinkToken:        os.Getenv("KUBEGOV_SINK_TOKEN"),
		CompressionLevel: parseInt("KUBEGOV_COMPRESSION_LEVEL", 3),
		MaxRetries:       parseInt("KUBEGOV_MAX_RETRIES", 5),
		RequestTimeout:   parseDuration("KUBEGOV_REQUEST_TIMEOUT", 30*time.Second),

		HealthPort: parseInt("KUBEGOV_HEALTH_PORT", 8080),
		LogLevel:   envOrDefault("KUBEGOV_LOG_LEVEL", "info"),
	}

	if cfg.SystemNamespacePrefixes == nil {
		cfg.SystemNamespacePrefixes = []string{"kube-", "openshift-", "default"}
	}
	if cfg.CriticalNamespaces == nil {
		cfg.CriticalNamespaces = []string{"default", "production", "prod"}
	}

	cfg.AllowInsecure = parseBool("KUBEGOV_ALLOW_INSECURE", false)
	cfg.DebugEndpoints = parseBool("KUBEGOV_DEBUG_ENDPOINTS", false)

	return cfg
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// parseDuration tries time.ParseDuration first, then falls back to treating
// the value as integer seconds.
func parseDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(v)
	if err == nil {
		return d
	}

	// Fallback: treat as integer seconds
	secs, err := strconv.Atoi(v)
	if err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}

func parseBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func parseInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func parseFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func parseStringSlice(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var result []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}
