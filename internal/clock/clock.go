// Package clock abstracts "today" so date-sensitive logic can be pinned
// to arbitrary dates in tests. Engines never read wall-clock time directly.
package clock

import "time"

// Clock supplies the current calendar date.
type Clock interface {
	Today() time.Time
}

// Real reads the system clock.
type Real struct{}

func (Real) Today() time.Time { return time.Now() }

// Fixed always returns the same date. Test helper.
type Fixed struct {
	Date time.Time
}

func (f Fixed) Today() time.Time { return f.Date }
