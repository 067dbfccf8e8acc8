package model

import "time"

// Occurrence is a single concrete instance of an event after window
// filtering and recurrence expansion. Occurrences are created only by
// the expander, never mutated afterwards, and consumed once by the
// rendering layer.
type Occurrence struct {
	Summary     string
	Description string
	Location    string
	Organizer   string // raw value; MAILTO: stripping happens at render time

	AllDay bool

	// Start / End are timezone-aware instants. End is the zero time
	// when the source event carried no usable end.
	Start time.Time
	End   time.Time
}

// HasEnd reports whether the occurrence carries a concrete end instant.
func (o Occurrence) HasEnd() bool {
	return !o.End.IsZero()
}
