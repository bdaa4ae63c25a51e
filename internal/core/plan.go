package core

import (
	"context"
	"fmt"
	"time"

	"github.com/theakshaypant/gaps/internal/freetime"
)

// Plan is one free-time calculation and the events it was computed from.
type Plan struct {
	Window  freetime.PlanningWindow
	Events  []Event
	Free    []freetime.FreeInterval
	Skipped []*freetime.MalformedEventError
}

// Day groups a plan's results by the calendar day they start on.
type Day struct {
	Date   time.Time
	Events []Event
	Free   []freetime.FreeInterval
}

// FreeMinutes sums the day's free intervals.
func (d Day) FreeMinutes() int { return freetime.Total(d.Free) }

// WindowRange returns the fetch range covering window. End is one minute past
// the horizon since providers treat the upper bound as exclusive.
func WindowRange(window freetime.PlanningWindow) (time.Time, time.Time, error) {
	if err := window.Validate(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	loc, err := window.Location()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	ref := window.Reference.In(loc)
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)
	return day, day.AddDate(0, 0, window.HorizonDays).Add(time.Minute), nil
}

// FetchPlan fetches p's events over the window and computes free time between
// the busy ones. filter supplies the type and status filters; its range is replaced.
func FetchPlan(ctx context.Context, p Provider, filter FetchOptions, window freetime.PlanningWindow, opts ...freetime.Option) (*Plan, error) {
	start, end, err := WindowRange(window)
	if err != nil {
		return nil, err
	}
	filter.Start, filter.End = start, end

	events, err := p.FetchEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch events from %s: %w", p.Name(), err)
	}
	return ComputePlan(window, events, BusyEvents(events), opts...)
}

// ComputePlan runs the calculator over busy and records the events that were skipped.
// events is kept for display only.
func ComputePlan(window freetime.PlanningWindow, events []Event, busy []freetime.BusyEvent, opts ...freetime.Option) (*Plan, error) {
	plan := &Plan{Window: window, Events: events}

	collect := freetime.WithSkipHandler(func(e *freetime.MalformedEventError) {
		plan.Skipped = append(plan.Skipped, e)
	})
	free, err := freetime.Compute(busy, window, append([]freetime.Option{collect}, opts...)...)
	if err != nil {
		return nil, err
	}
	plan.Free = free
	return plan, nil
}

// Days splits the plan into one entry per day of the horizon. Items starting
// outside the horizon are left out.
func (p *Plan) Days() []Day {
	loc, err := p.Window.Location()
	if err != nil || p.Window.HorizonDays < 1 {
		return nil
	}

	ref := p.Window.Reference.In(loc)
	first := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)

	days := make([]Day, p.Window.HorizonDays)
	index := make(map[string]int, len(days))
	for i := range days {
		days[i].Date = first.AddDate(0, 0, i)
		index[days[i].Date.Format(time.DateOnly)] = i
	}

	for _, e := range p.Events {
		if e.Start.IsZero() {
			continue
		}
		if i, ok := index[e.Start.In(loc).Format(time.DateOnly)]; ok {
			days[i].Events = append(days[i].Events, e)
		}
	}
	for _, iv := range p.Free {
		if i, ok := index[iv.Start.In(loc).Format(time.DateOnly)]; ok {
			days[i].Free = append(days[i].Free, iv)
		}
	}
	return days
}
