package pipeline

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"chart_backend/internal/feature/chart/domain/entity"
)

// Step is the spacing of the session grid.
const Step = time.Minute

// Clock is an exchange-local wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) sinceMidnight() time.Duration {
	return time.Duration(c.Hour)*time.Hour + time.Duration(c.Minute)*time.Minute
}

// Session is a daily trading window [Open, Close], both ends inclusive,
// expressed in the exchange's location.
type Session struct {
	loc   *time.Location
	open  Clock
	close Clock
}

// NewSession validates and builds a Session.
func NewSession(loc *time.Location, open, close Clock) (Session, error) {
	if loc == nil {
		return Session{}, fmt.Errorf("session location is nil")
	}
	if open.sinceMidnight() >= close.sinceMidnight() {
		return Session{}, fmt.Errorf("session open %s must be before close %s", open, close)
	}
	return Session{loc: loc, open: open, close: close}, nil
}

// Location returns the exchange location.
func (s Session) Location() *time.Location { return s.loc }

// Open returns the session open clock.
func (s Session) Open() Clock { return s.open }

// Close returns the session close clock.
func (s Session) Close() Clock { return s.close }

// Slots returns the number of grid minutes in the session, both ends included.
func (s Session) Slots() int {
	return int((s.close.sinceMidnight()-s.open.sinceMidnight())/Step) + 1
}

// Contains reports whether the exchange-local time of day of t lies in [open, close].
func (s Session) Contains(t time.Time) bool {
	lt := t.In(s.loc)
	tod := time.Duration(lt.Hour())*time.Hour +
		time.Duration(lt.Minute())*time.Minute +
		time.Duration(lt.Second())*time.Second +
		time.Duration(lt.Nanosecond())
	return tod >= s.open.sinceMidnight() && tod <= s.close.sinceMidnight()
}

// Grid returns every minute of the session on date d. Each slot is built
// from the wall clock, never by adding durations to the open instant.
func (s Session) Grid(d civil.Date) []time.Time {
	n := s.Slots()
	grid := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		grid = append(grid, time.Date(d.Year, d.Month, d.Day, s.open.Hour, s.open.Minute+i, 0, 0, s.loc))
	}
	return grid
}

// FilterSession keeps the bars inside the session window, in input order.
func FilterSession(bars []entity.Bar, s Session) []entity.Bar {
	out := make([]entity.Bar, 0, len(bars))
	for _, b := range bars {
		if s.Contains(b.Time) {
			out = append(out, b)
		}
	}
	return out
}
