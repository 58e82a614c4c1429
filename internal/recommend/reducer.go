// Package recommend reduces historical usage series into percentile-based
// sizing recommendations and usage-adequacy findings.
//
// The reducer never fabricates numbers: when a series carries too few
// samples or covers too little time, the recommendation says so and omits
// any suggested value. This is a correctness rule for the report, not a
// presentation choice.
package recommend

import (
	"fmt"
	"math"
	"time"

	"github.com/kubegov/kubegov-auditor/internal/normalize"
	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// Settings control the reduction. Zero values are not usable; start from
// DefaultSettings and override fields.
type Settings struct {
	// Percentile of observed usage suggested as the request, (0, 100].
	Percentile float64
	// CPULimitRatio multiplies the suggested CPU request into a limit.
	CPULimitRatio float64
	// MemoryLimitRatio multiplies the suggested memory request into a limit.
	MemoryLimitRatio float64
	// MinSamples below which a series is insufficient.
	MinSamples int
	// MinSpan below which a series is insufficient.
	MinSpan time.Duration
	// SeasonalCV is the coefficient-of-variation threshold across
	// weekday/weekend sub-windows above which usage is flagged seasonal.
	SeasonalCV float64
}

// DefaultSettings returns the reduction defaults.
func DefaultSettings() Settings {
	return Settings{
		Percentile:       95,
		CPULimitRatio:    3.0,
		MemoryLimitRatio: 3.0,
		MinSamples:       3,
		MinSpan:          30 * time.Minute,
		SeasonalCV:       0.5,
	}
}

func (s Settings) ratio(kind model.ResourceKind) float64 {
	if kind == model.ResourceCPU {
		return s.CPULimitRatio
	}
	return s.MemoryLimitRatio
}

// Reducer turns one usage series into one per-kind recommendation.
type Reducer struct {
	settings Settings
}

// NewReducer creates a reducer bound to the given settings.
func NewReducer(s Settings) *Reducer {
	return &Reducer{settings: s}
}

// Reduce computes the suggested request and limit for one workload and
// resource kind from its usage series. Series values are cores for CPU
// and bytes for memory; suggestions come out in whole millicores and
// whole MiB so they can be pasted into a manifest as-is.
//
// Pure function — no side effects, no time.Now(), no external calls.
func (r *Reducer) Reduce(kind model.ResourceKind, series model.SampleSeries) model.ResourceRecommendation {
	rec := model.ResourceRecommendation{
		Kind:       kind,
		Percentile: r.settings.Percentile,
	}

	clean := filterSamples(series)
	rec.SampleCount = len(clean)
	rec.SpanSeconds = int64(clean.Span() / time.Second)

	if len(clean) < r.settings.MinSamples || clean.Span() < r.settings.MinSpan {
		rec.Confidence = model.ConfidenceInsufficient
		rec.FailureReason = fmt.Sprintf("%d samples spanning %s, need at least %d samples spanning %s",
			len(clean), clean.Span(), r.settings.MinSamples, r.settings.MinSpan)
		return rec
	}

	p := percentile(clean.Values(), r.settings.Percentile)
	request := ceilModelUnits(kind, toModelUnits(kind, p))
	limit := ceilModelUnits(kind, float64(request)*r.settings.ratio(kind))

	rec.Confidence = model.ConfidenceSufficient
	if r.seasonal(clean) {
		// Advisory only: the flag changes how the numbers should be read,
		// never the numbers themselves.
		rec.Confidence = model.ConfidenceSeasonal
	}
	rec.SuggestedRequest = &model.Quantity{Raw: normalize.FormatValue(kind, request), Value: request}
	rec.SuggestedLimit = &model.Quantity{Raw: normalize.FormatValue(kind, limit), Value: limit}

	return rec
}

// filterSamples drops non-finite and negative values, which scrapers
// occasionally emit around container restarts.
func filterSamples(series model.SampleSeries) model.SampleSeries {
	clean := make(model.SampleSeries, 0, len(series))
	for _, s := range series {
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) || s.Value < 0 {
			continue
		}
		clean = append(clean, s)
	}
	return clean
}

// toModelUnits converts a series value (cores or bytes) into the model's
// declared units (millicores or bytes).
func toModelUnits(kind model.ResourceKind, v float64) float64 {
	if kind == model.ResourceCPU {
		return v * 1000.0
	}
	return v
}

// ceilModelUnits rounds a value in model units up to the smallest sizing
// granularity: whole millicores for CPU, whole MiB for memory.
func ceilModelUnits(kind model.ResourceKind, v float64) int64 {
	if kind == model.ResourceCPU {
		return int64(math.Ceil(v))
	}
	const mib = 1 << 20
	return int64(math.Ceil(v/float64(mib))) * mib
}
