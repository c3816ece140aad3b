package pipeline

import (
	"slices"
	"time"

	"cloud.google.com/go/civil"

	"chart_backend/internal/feature/chart/domain/entity"
)

// DayBounds returns the instant window covering the exchange-local date d.
// A UTC instant falls in the window exactly when its local date equals d.
func DayBounds(d civil.Date, loc *time.Location) entity.Window {
	return entity.Window{From: d.In(loc), To: d.AddDays(1).In(loc)}
}

// ExtractDay returns the bars whose exchange-local date is d, sorted by time
// with duplicate instants removed. An empty result means the day has no data.
func ExtractDay(bars []entity.Bar, d civil.Date) []entity.Bar {
	out := make([]entity.Bar, 0)
	for _, b := range bars {
		if civil.DateOf(b.Time) == d {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b entity.Bar) int {
		return a.Time.Compare(b.Time)
	})
	return slices.CompactFunc(out, func(a, b entity.Bar) bool {
		return a.Time.Equal(b.Time)
	})
}
