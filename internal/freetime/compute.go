// Package freetime computes the free windows between busy calendar events.
//
// Compute is a pure function: it never touches global state and does not
// retain its inputs, so it can be called concurrently for different users.
package freetime

import (
	"slices"
	"time"
)

// Option tweaks a single Compute call.
type Option func(*options)

type options struct {
	boundsDuration bool
	onSkip         func(*MalformedEventError)
}

// WithBoundsDuration computes each interval's duration from its clipped
// bounds instead of the raw gap between the events.
func WithBoundsDuration() Option {
	return func(o *options) { o.boundsDuration = true }
}

// WithSkipHandler registers fn to be called for every event that is skipped
// because it lacks a usable start or end.
func WithSkipHandler(fn func(*MalformedEventError)) Option {
	return func(o *options) { o.onSkip = fn }
}

// Compute returns the free intervals between busy events inside window.
//
// Events starting outside [start of reference day, +HorizonDays] are ignored.
// Only gaps between consecutive events are reported: nothing before the first
// event of the horizon beyond the first day's start, and nothing after the last.
func Compute(busy []BusyEvent, window PlanningWindow, opts ...Option) ([]FreeInterval, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := window.validate()
	if err != nil {
		return nil, err
	}

	b := newBounds(window, loc)
	day := startOfDay(window.Reference.In(loc))
	horizonEnd := day.AddDate(0, 0, window.HorizonDays)

	events := make([]BusyEvent, 0, len(busy))
	for i, ev := range busy {
		if bad := checkEvent(i, ev); bad != nil {
			if o.onSkip != nil {
				o.onSkip(bad)
			}
			continue
		}
		if ev.Start.Before(day) || ev.Start.After(horizonEnd) {
			continue
		}
		events = append(events, BusyEvent{Start: ev.Start.In(loc), End: ev.End.In(loc)})
	}

	slices.SortStableFunc(events, func(a, b BusyEvent) int {
		return a.Start.Compare(b.Start)
	})

	free := []FreeInterval{}
	cursor := atHour(day, window.DayStartHour)

	for _, ev := range events {
		from := b.adjust(cursor)
		to := b.adjust(ev.Start)
		gap := int(ev.Start.Sub(cursor) / time.Minute)

		if gap > 0 && to.After(from) {
			minutes := gap
			if o.boundsDuration {
				minutes = int(to.Sub(from) / time.Minute)
			}
			if minutes > 0 {
				free = append(free, FreeInterval{Start: from, End: to, Duration: minutes})
			}
		}

		cursor = ev.End
	}

	return free, nil
}

// Total sums the durations of intervals, in minutes.
func Total(intervals []FreeInterval) int {
	total := 0
	for _, iv := range intervals {
		total += iv.Duration
	}
	return total
}
