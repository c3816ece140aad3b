// Package pipeline implements the stages that turn raw minute bars into a
// gapless single-session series: time normalization, day extraction,
// session filtering and gap filling.
package pipeline

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // exchange zones must resolve without a system zoneinfo

	"chart_backend/internal/feature/chart/domain/entity"
)

// zonedLayouts carry an explicit offset or Z.
var zonedLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
}

// naiveLayouts have no zone information and are read as UTC.
var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// ParseInstant parses a source timestamp into a UTC instant.
// Timestamps without a zone are assumed to be UTC.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Normalizer converts UTC bars into exchange-local bars.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer returns a Normalizer for the exchange location loc.
func NewNormalizer(loc *time.Location) *Normalizer {
	return &Normalizer{loc: loc}
}

// Normalize moves one raw bar into exchange-local time. The offset is
// looked up for the bar's own instant, so DST changes inside a file are honored.
func (n *Normalizer) Normalize(raw entity.RawBar) entity.Bar {
	return entity.Bar{
		Time:   raw.Time.In(n.loc),
		Open:   raw.Open,
		High:   raw.High,
		Low:    raw.Low,
		Close:  raw.Close,
		Volume: raw.Volume,
	}
}

// NormalizeAll normalizes every bar, preserving order.
func (n *Normalizer) NormalizeAll(raws []entity.RawBar) []entity.Bar {
	out := make([]entity.Bar, 0, len(raws))
	for _, r := range raws {
		out = append(out, n.Normalize(r))
	}
	return out
}
