package models

import "time"

// Boundary is one end of an event's extent. Providers signal an all-day
// event by supplying only a calendar date for the boundary; in that case
// DateOnly is set and Instant is the zero time.
type Boundary struct {
	Instant  time.Time
	DateOnly bool
}

// TimeFields is the normalized temporal state of a single event, computed
// against a reference day in a target timezone.
type TimeFields struct {
	AllDay bool

	// Start and End are the boundary instants shifted into the target
	// timezone. Zero when the raw boundaries were date-only.
	Start time.Time
	End   time.Time

	// StartsBefore/EndsAfter mark one-sided spillover: the start (resp. end)
	// falls on a different local calendar day than the reference day. Only
	// meaningful for timed events.
	StartsBefore bool
	EndsAfter    bool

	// StartFormatted/EndFormatted are clock strings like "2:30pm", empty for
	// date-only events.
	StartFormatted string
	EndFormatted   string
}

// RawEvent is a single event as returned by the calendar provider, tagged
// with the display name of the calendar it came from.
type RawEvent struct {
	Title       string
	Description string
	Location    string
	Link        string
	Calendar    string
	Start       Boundary
	End         Boundary
}

// Summary is the display-ready form of one event, the unit a destination
// row is built from.
type Summary struct {
	Name        string
	Description string
	Location    string
	Link        string
	Calendar    string
	Time        TimeFields
	DisplayDate string
}
