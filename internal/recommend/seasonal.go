package recommend

import (
	"time"

	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// seasonal reports whether usage differs markedly between weekday and
// weekend sub-windows. It compares the mean of each sub-window and flags
// when the coefficient of variation across the two means exceeds the
// configured threshold. Timestamps are bucketed in UTC.
func (r *Reducer) seasonal(series model.SampleSeries) bool {
	var weekday, weekend []float64

	for _, s := range series {
		day := time.UnixMilli(s.Timestamp).UTC().Weekday()
		if day == time.Saturday || day == time.Sunday {
			weekend = append(weekend, s.Value)
		} else {
			weekday = append(weekday, s.Value)
		}
	}

	// Both sub-windows must be populated; a series confined to one kind
	// of day says nothing about weekly shape.
	if len(weekday) == 0 || len(weekend) == 0 {
		return false
	}

	means := []float64{mean(weekday), mean(weekend)}
	return coefficientOfVariation(means) > r.settings.SeasonalCV
}
