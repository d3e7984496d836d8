package event

import (
	"time"

	"gcalnotion/internal/models"
)

// clockLayout renders 12-hour time with lowercase am/pm and no leading zero.
const clockLayout = "3:04pm"

// Normalize computes the temporal state of an event relative to the calendar
// day that now falls on in loc.
//
// A date-only boundary on either side makes the event all-day with no time
// fields. Otherwise both instants are shifted into loc and compared against
// now's local date; an event that both started before today and ends after
// today is also treated as all-day for display purposes.
//
// Pure function of its arguments; deterministic for a fixed now.
func Normalize(start, end models.Boundary, now time.Time, loc *time.Location) models.TimeFields {
	if start.DateOnly || end.DateOnly {
		return models.TimeFields{AllDay: true}
	}

	s := start.Instant.In(loc)
	e := end.Instant.In(loc)
	today := now.In(loc)

	startsBefore := !sameDay(s, today)
	endsAfter := !sameDay(e, today)

	return models.TimeFields{
		AllDay:         startsBefore && endsAfter,
		Start:          s,
		End:            e,
		StartsBefore:   startsBefore,
		EndsAfter:      endsAfter,
		StartFormatted: s.Format(clockLayout),
		EndFormatted:   e.Format(clockLayout),
	}
}

// DisplayDate derives the single human-readable label for an event's extent.
func DisplayDate(f models.TimeFields) string {
	switch {
	case f.AllDay:
		return "All Day"
	case f.StartsBefore:
		// Already in progress, only the end matters.
		return "Ends " + f.EndFormatted
	case f.EndsAfter:
		// Continues past today, only the start matters.
		return f.StartFormatted
	default:
		return f.StartFormatted + " - " + f.EndFormatted
	}
}

// MixedBoundaries reports whether exactly one boundary is date-only. Providers
// are expected to keep the pair consistent; callers should log when this
// returns true because Normalize falls back to all-day in that case.
func MixedBoundaries(start, end models.Boundary) bool {
	return start.DateOnly != end.DateOnly
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
