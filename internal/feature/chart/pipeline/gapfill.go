package pipeline

import (
	"cloud.google.com/go/civil"

	"chart_backend/internal/feature/chart/domain/entity"
)

// FillGaps reindexes a filtered day series onto the session grid of date d.
//
// A slot with an exact-instant match takes that bar. A slot without one
// repeats the previous slot's close on all four prices with zero volume.
// Slots before the first match are dropped. Bars that do not sit on a grid
// minute are ignored.
func FillGaps(day []entity.Bar, d civil.Date, s Session) []entity.Bar {
	byInstant := make(map[int64]entity.Bar, len(day))
	for _, b := range day {
		k := b.Time.UnixNano()
		if _, ok := byInstant[k]; !ok {
			byInstant[k] = b
		}
	}

	grid := s.Grid(d)
	out := make([]entity.Bar, 0, len(grid))
	for _, slot := range grid {
		if b, ok := byInstant[slot.UnixNano()]; ok {
			b.Time = slot
			b.Filled = false
			out = append(out, b)
			continue
		}
		if len(out) == 0 {
			continue
		}
		c := out[len(out)-1].Close
		out = append(out, entity.Bar{Time: slot, Open: c, High: c, Low: c, Close: c, Filled: true})
	}
	return out
}
