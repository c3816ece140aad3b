// Package domain defines domain-level errors for the chart feature.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors for chart generation.
// Every error returned by the chart usecase matches exactly one of these via errors.Is.
var (
	// ErrUnknownSymbol indicates that the requested ticker is not in the catalog.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrSourceUnavailable indicates that a backing file of a known symbol is missing or unreadable.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedSource indicates that a source lacks required columns or has unparsable values.
	ErrMalformedSource = errors.New("malformed source")

	// ErrNoDataForDate indicates that the symbol has no session-hours bars on the requested date.
	ErrNoDataForDate = errors.New("no data for date")

	// ErrRender indicates that the chart backend failed to produce an image.
	ErrRender = errors.New("chart render failed")

	// ErrInvalidDate indicates that the requested date could not be parsed.
	ErrInvalidDate = errors.New("invalid date")
)

// SourceError describes a failure of one source location.
// It matches both its Kind and its underlying cause with errors.Is.
type SourceError struct {
	Kind     error
	Location string
	Err      error
}

// NewSourceError wraps err as a failure of kind at location.
func NewSourceError(kind error, location string, err error) *SourceError {
	return &SourceError{Kind: kind, Location: location, Err: err}
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Location)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Location, e.Err)
}

func (e *SourceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
