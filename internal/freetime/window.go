package freetime

import (
	"time"
)

// BusyEvent is one occupied interval taken from a calendar.
// A zero Start or End means the source could not resolve that timestamp.
type BusyEvent struct {
	Start time.Time
	End   time.Time
}

// FreeInterval is a gap between two busy events, clipped to active hours.
type FreeInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	// Duration in minutes
	Duration int `json:"duration"`
}

// PlanningWindow bounds a single calculation.
type PlanningWindow struct {
	// Reference is "now" for the calculation. Only its calendar day matters.
	Reference    time.Time
	HorizonDays  int
	DayStartHour int
	DayEndHour   int
	// IANA zone id (e.g. "Asia/Jerusalem"). Empty means Reference.Location().
	Timezone string
}

// Validate reports an *InvalidWindowError if the window cannot be used.
func (w PlanningWindow) Validate() error {
	_, err := w.validate()
	return err
}

// Location resolves the window's timezone.
func (w PlanningWindow) Location() (*time.Location, error) {
	if w.Timezone == "" {
		if w.Reference.IsZero() {
			return time.UTC, nil
		}
		return w.Reference.Location(), nil
	}
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return nil, &InvalidWindowError{Field: "timezone", Reason: err.Error()}
	}
	return loc, nil
}

func (w PlanningWindow) validate() (*time.Location, error) {
	switch {
	case w.Reference.IsZero():
		return nil, &InvalidWindowError{Field: "reference", Reason: "must be set"}
	case w.HorizonDays < 1:
		return nil, &InvalidWindowError{Field: "horizonDays", Reason: "must be at least 1"}
	case w.DayStartHour < 0 || w.DayStartHour > 23:
		return nil, &InvalidWindowError{Field: "dayStartHour", Reason: "must be within [0,23]"}
	case w.DayEndHour < 0 || w.DayEndHour > 23:
		return nil, &InvalidWindowError{Field: "dayEndHour", Reason: "must be within [0,23]"}
	case w.DayEndHour <= w.DayStartHour:
		return nil, &InvalidWindowError{Field: "dayEndHour", Reason: "must be after dayStartHour"}
	}
	return w.Location()
}

// startOfDay returns local midnight of t's calendar day.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// atHour returns hour:00 on t's calendar day. Wall clock, so DST days keep their hours.
func atHour(t time.Time, hour int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, t.Location())
}

// bounds holds the active-hours boundaries of one planning window.
type bounds struct {
	loc       *time.Location
	startHour int
	endHour   int

	// dayStartHour on the first horizon day
	first time.Time
	// dayStartHour and dayEndHour on the day horizonDays after the first
	last     time.Time
	lastSnap time.Time
}

func newBounds(w PlanningWindow, loc *time.Location) bounds {
	day := startOfDay(w.Reference.In(loc))
	end := day.AddDate(0, 0, w.HorizonDays)
	return bounds{
		loc:       loc,
		startHour: w.DayStartHour,
		endHour:   w.DayEndHour,
		first:     atHour(day, w.DayStartHour),
		last:      atHour(end, w.DayStartHour),
		lastSnap:  atHour(end, w.DayEndHour),
	}
}

// adjust clips t to active hours.
//
// The late-window check compares against dayStartHour of the final boundary day
// but snaps to dayEndHour. Rolling past dayEndHour only replaces the hour, so
// 21:45 becomes 07:45 the next morning. Existing callers depend on both.
func (b bounds) adjust(t time.Time) time.Time {
	t = t.In(b.loc)
	switch {
	case t.Before(b.first):
		return b.first
	case t.After(b.last):
		return b.lastSnap
	case t.After(atHour(t, b.endHour)):
		return nextMorning(t, b.startHour)
	}
	return t
}

// nextMorning moves t to the following calendar day at hour, keeping its minutes and seconds.
func nextMorning(t time.Time, hour int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, hour, t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
