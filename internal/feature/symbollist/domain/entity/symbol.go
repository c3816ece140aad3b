// Package entity defines the domain models for the symbollist feature.
package entity

// Symbol is a chartable ticker and the ordered source locations of its minute-bar history.
// Locations are chunk files of one series; earlier locations win on duplicate timestamps.
type Symbol struct {
	Code      string
	Name      string
	Locations []string
}
