package recommend

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// tuesday is a fixed weekday anchor so series built from it stay clear of
// weekend buckets unless a test wants them.
var tuesday = time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)

func makeSeries(start time.Time, step time.Duration, values ...float64) model.SampleSeries {
	series := make(model.SampleSeries, len(values))
	for i, v := range values {
		series[i] = model.Sample{
			Timestamp: start.Add(time.Duration(i) * step).UnixMilli(),
			Value:     v,
		}
	}
	return series
}

func TestReduce_UniformCPUSeries(t *testing.T) {
	// 100 samples spread uniformly across 100-199 millicores, expressed
	// in cores as the telemetry backend reports them.
	values := make([]float64, 100)
	for i := range values {
		values[i] = 0.100 + float64(i)*0.001
	}
	series := makeSeries(tuesday, 15*time.Minute, values...)

	rec := NewReducer(DefaultSettings()).Reduce(model.ResourceCPU, series)

	if rec.Confidence != model.ConfidenceSufficient {
		t.Fatalf("confidence = %q, want sufficient-data (%s)", rec.Confidence, rec.FailureReason)
	}
	if rec.SuggestedRequest == nil || rec.SuggestedLimit == nil {
		t.Fatal("sufficient data must produce both suggestions")
	}
	if rec.SuggestedRequest.Value < 190 || rec.SuggestedRequest.Value > 200 {
		t.Errorf("P95 request = %dm, want within [190m, 200m]", rec.SuggestedRequest.Value)
	}
	if want := rec.SuggestedRequest.Value * 3; rec.SuggestedLimit.Value != want {
		t.Errorf("limit = %dm, want request x3 = %dm", rec.SuggestedLimit.Value, want)
	}
	if !strings.HasSuffix(rec.SuggestedRequest.Raw, "m") {
		t.Errorf("request raw = %q, want millicore form", rec.SuggestedRequest.Raw)
	}
	if rec.SampleCount != 100 {
		t.Errorf("sample count = %d, want 100", rec.SampleCount)
	}
}

func TestReduce_TooFewSamples(t *testing.T) {
	series := makeSeries(tuesday, time.Hour, 0.1, 0.1)

	rec := NewReducer(DefaultSettings()).Reduce(model.ResourceCPU, series)

	if rec.Confidence != model.ConfidenceInsufficient {
		t.Fatalf("confidence = %q, want insufficient-data", rec.Confidence)
	}
	if rec.SuggestedRequest != nil || rec.SuggestedLimit != nil {
		t.Error("insufficient data must never carry a numeric suggestion")
	}
	if rec.FailureReason == "" {
		t.Error("insufficient data must explain itself")
	}
	if rec.SampleCount != 2 {
		t.Errorf("sample count = %d, want 2", rec.SampleCount)
	}
}

func TestReduce_TooShortSpan(t *testing.T) {
	// Five samples but only 20 minutes of coverage.
	series := makeSeries(tuesday, 5*time.Minute, 0.1, 0.1, 0.1, 0.1, 0.1)

	rec := NewReducer(DefaultSettings()).Reduce(model.ResourceCPU, series)

	if rec.Confidence != model.ConfidenceInsufficient {
		t.Fatalf("confidence = %q, want insufficient-data for a 20m span", rec.Confidence)
	}
	if rec.SuggestedRequest != nil {
		t.Error("short span must not produce a suggestion")
	}
}

func TestReduce_DiscardsMalformedSamples(t *testing.T) {
	series := makeSeries(tuesday, 20*time.Minute, 0.1, math.NaN(), 0.1, math.Inf(1), -5, 0.1)

	rec := NewReducer(DefaultSettings()).Reduce(model.ResourceCPU, series)

	if rec.SampleCount != 3 {
		t.Fatalf("sample count = %d, want 3 after filtering", rec.SampleCount)
	}
	if rec.Confidence != model.ConfidenceSufficient {
		t.Fatalf("confidence = %q, want sufficient-data (%s)", rec.Confidence, rec.FailureReason)
	}
	if rec.SuggestedRequest.Value != 100 {
		t.Errorf("request = %dm, want 100m", rec.SuggestedRequest.Value)
	}
}

func TestReduce_AllSamplesMalformed(t *testing.T) {
	series := makeSeries(tuesday, 20*time.Minute, math.NaN(), math.Inf(-1), -1)

	rec := NewReducer(DefaultSettings()).Reduce(model.ResourceCPU, series)

	if rec.Confidence != model.ConfidenceInsufficient {
		t.Fatalf("confidence = %q, want insufficient-data", rec.Confidence)
	}
	if rec.SampleCount != 0 {
		t.Errorf("sample count = %d, want 0", rec.SampleCount)
	}
}

func TestReduce_MemoryRoundsUpToWholeMiB(t *testing.T) {
	// 50,000,000 bytes is 47.68 MiB; the suggestion must round up to 48Mi.
	series := makeSeries(tuesday, 20*time.Minute, 50e6, 50e6, 50e6)

	rec := NewReducer(DefaultSettings()).Reduce(model.ResourceMemory, series)

	if rec.Confidence != model.ConfidenceSufficient {
		t.Fatalf("confidence = %q, want sufficient-data (%s)", rec.Confidence, rec.FailureReason)
	}
	if want := int64(48) << 20; rec.SuggestedRequest.Value != want {
		t.Errorf("request = %d bytes, want %d (48Mi)", rec.SuggestedRequest.Value, want)
	}
	if rec.SuggestedRequest.Raw != "48Mi" {
		t.Errorf("request raw = %q, want 48Mi", rec.SuggestedRequest.Raw)
	}
	if want := int64(144) << 20; rec.SuggestedLimit.Value != want {
		t.Errorf("limit = %d bytes, want %d (144Mi)", rec.SuggestedLimit.Value, want)
	}
}

func TestReduce_SeasonalPattern(t *testing.T) {
	// A full week sampled hourly: weekdays run at 1.0 cores, the weekend
	// idles at 0.2. Monday 2024-01-01 anchors the window.
	monday := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	values := make([]float64, 7*24)
	for i := range values {
		day := monday.Add(time.Duration(i) * time.Hour).Weekday()
		if day == time.Saturday || day == time.Sunday {
			values[i] = 0.2
		} else {
			values[i] = 1.0
		}
	}
	series := makeSeries(monday, time.Hour, values...)

	rec := NewReducer(DefaultSettings()).Reduce(model.ResourceCPU, series)

	if rec.Confidence != model.ConfidenceSeasonal {
		t.Fatalf("confidence = %q, want seasonal-pattern-detected", rec.Confidence)
	}
	// The flag is advisory: the numeric suggestion is still present.
	if rec.SuggestedRequest == nil || rec.SuggestedLimit == nil {
		t.Fatal("seasonal flag must not suppress the suggestion")
	}
}

func TestReduce_SteadyWeekIsNotSeasonal(t *testing.T) {
	monday := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	values := make([]float64, 7*24)
	for i := range values {
		values[i] = 0.5
	}
	series := makeSeries(monday, time.Hour, values...)

	rec := NewReducer(DefaultSettings()).Reduce(model.ResourceCPU, series)

	if rec.Confidence != model.ConfidenceSufficient {
		t.Fatalf("confidence = %q, want sufficient-data", rec.Confidence)
	}
}

func TestReduce_CustomPercentile(t *testing.T) {
	settings := DefaultSettings()
	settings.Percentile = 50

	values := make([]float64, 101)
	for i := range values {
		values[i] = float64(i) / 1000.0 // 0m .. 100m
	}
	series := makeSeries(tuesday, 15*time.Minute, values...)

	rec := NewReducer(settings).Reduce(model.ResourceCPU, series)

	if rec.Percentile != 50 {
		t.Errorf("recorded percentile = %.0f, want 50", rec.Percentile)
	}
	if rec.SuggestedRequest.Value != 50 {
		t.Errorf("P50 request = %dm, want 50m", rec.SuggestedRequest.Value)
	}
}
