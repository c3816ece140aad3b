// Package entity defines the domain models for the chart feature.
package entity

import "time"

// RawBar is one minute-bar record as read from a source file.
// Time is always a UTC instant.
type RawBar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Bar is a RawBar whose Time has been moved into the exchange's location.
// The zone offset carried by Time is resolved from the bar's own instant.
type Bar struct {
	Time   time.Time // Exchange-local wall-clock time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	// Filled is true for bars synthesized by gap filling.
	Filled bool
}

// Offset returns the bar's UTC offset in seconds.
func (b Bar) Offset() int {
	_, off := b.Time.Zone()
	return off
}

// Window is a half-open instant range [From, To). A zero bound is unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !t.Before(w.To) {
		return false
	}
	return true
}

// IsZero reports whether the window is unbounded on both sides.
func (w Window) IsZero() bool {
	return w.From.IsZero() && w.To.IsZero()
}
