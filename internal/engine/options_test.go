package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubegov/kubegov-auditor/internal/config"
	auditerrors "github.com/kubegov/kubegov-auditor/internal/errors"
)

func TestDefaultOptions_Valid(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
}

func TestOptionsValidate_RejectsInsteadOfClamping(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		message string
	}{
		{"zero percentile", func(o *Options) { o.Percentile = 0 }, "percentile"},
		{"percentile above 100", func(o *Options) { o.Percentile = 101 }, "percentile"},
		{"negative cpu ratio", func(o *Options) { o.CPULimitRatio = -3 }, "cpu limit ratio"},
		{"zero memory ratio", func(o *Options) { o.MemoryLimitRatio = 0 }, "memory limit ratio"},
		{"zero tolerance", func(o *Options) { o.RatioTolerance = 0 }, "ratio tolerance"},
		{"malformed cpu floor", func(o *Options) { o.MinCPURequest = "ten-millicores" }, "min cpu request"},
		{"zero cpu floor", func(o *Options) { o.MinCPURequest = "0" }, "min cpu request"},
		{"malformed memory floor", func(o *Options) { o.MinMemoryRequest = "32Zi" }, "min memory request"},
		{"zero min samples", func(o *Options) { o.MinSamples = 0 }, "min samples"},
		{"negative min span", func(o *Options) { o.MinSpan = -time.Minute }, "min span"},
		{"negative overcommit warning", func(o *Options) { o.OvercommitWarning = -0.5 }, "overcommit warning"},
		{"critical below warning", func(o *Options) { o.OvercommitCritical = 0.5 }, "overcommit critical"},
		{"zero concurrency", func(o *Options) { o.QueryConcurrency = 0 }, "query concurrency"},
		{"excessive concurrency", func(o *Options) { o.QueryConcurrency = 64 }, "query concurrency"},
		{"negative qps", func(o *Options) { o.QueryQPS = -1 }, "query qps"},
		{"zero query timeout", func(o *Options) { o.QueryTimeout = 0 }, "query timeout"},
		{"negative batch deadline", func(o *Options) { o.BatchDeadline = -time.Second }, "batch deadline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)

			err := opts.Validate()
			require.Error(t, err)

			var engineErr *auditerrors.EngineError
			require.ErrorAs(t, err, &engineErr)
			assert.Equal(t, auditerrors.ErrInvalidOptions, engineErr.Code)
			assert.Contains(t, engineErr.Message, tt.message)
		})
	}
}

func TestOptionsValidate_ZeroQPSMeansUnlimited(t *testing.T) {
	opts := DefaultOptions()
	opts.QueryQPS = 0
	assert.NoError(t, opts.Validate())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Percentile:       90,
		CPULimitRatio:    2.5,
		MemoryLimitRatio: 2.0,
		MinCPURequest:    "25m",
		MinMemoryRequest: "64Mi",
		MinSamples:       5,
		MinSpan:          time.Hour,

		OvercommitWarning:  0.7,
		OvercommitCritical: 0.85,

		IncludeSystemNamespaces: true,
		SystemNamespacePrefixes: []string{"kube-"},

		QueryConcurrency: 8,
		QueryQPS:         20,
		QueryTimeout:     10 * time.Second,
		BatchDeadline:    time.Minute,

		LiveUsageEnabled: true,
	}

	opts := OptionsFromConfig(cfg)

	require.NoError(t, opts.Validate())
	assert.Equal(t, 90.0, opts.Percentile)
	assert.Equal(t, 2.5, opts.CPULimitRatio)
	assert.Equal(t, "25m", opts.MinCPURequest)
	assert.Equal(t, 5, opts.MinSamples)
	assert.True(t, opts.IncludeSystemNamespaces)
	assert.Equal(t, []string{"kube-"}, opts.SystemNamespacePrefixes)
	assert.Equal(t, 8, opts.QueryConcurrency)
	assert.True(t, opts.LiveUsage)
}

func TestOptionsThresholds_ParsesFloors(t *testing.T) {
	opts := DefaultOptions()
	opts.MinCPURequest = "250m"
	opts.MinMemoryRequest = "1Gi"

	th := opts.thresholds()
	assert.Equal(t, int64(250), th.MinCPUMillicores)
	assert.Equal(t, int64(1<<30), th.MinMemoryBytes)
	assert.Equal(t, 3.0, th.CPULimitRatio)
	assert.Equal(t, 1.5, th.RatioTolerance)
}
