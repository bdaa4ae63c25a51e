package core

import (
	"context"
	"slices"
	"time"
)

// FetchOptions configures which events to retrieve.
type FetchOptions struct {
	Start time.Time
	End   time.Time

	// Filter by calendar ID. Empty means all calendars.
	CalendarIDs []string

	// Filter by event type. Empty means all types.
	IncludeTypes []EventType

	// Filter by response status. Empty means all statuses.
	IncludeStatuses []EventStatus

	// ExcludeAllDay filters out all-day events when true.
	ExcludeAllDay bool
}

// DefaultFetchOptions returns the options used for free-time lookups:
// everything that can block time, in any response state except declined.
func DefaultFetchOptions(start, end time.Time) FetchOptions {
	return FetchOptions{
		Start: start,
		End:   end,
		IncludeTypes: []EventType{
			TypeDefault,
			TypeOutOfOffice,
			TypeFocusTime,
		},
		IncludeStatuses: []EventStatus{
			StatusAccepted,
			StatusTentative,
			StatusAwaiting,
			StatusNoResponse,
		},
		ExcludeAllDay: true,
	}
}

// Matches applies the type, status and all-day filters to a single event.
func (o FetchOptions) Matches(e Event) bool {
	if len(o.IncludeTypes) > 0 && !slices.Contains(o.IncludeTypes, e.Type) {
		return false
	}
	if len(o.IncludeStatuses) > 0 && !slices.Contains(o.IncludeStatuses, e.Status) {
		return false
	}
	if o.ExcludeAllDay && e.IsAllDay {
		return false
	}
	return true
}

// Provider represents a calendar source (Google, Outlook, a stored snapshot).
type Provider interface {
	// ID returns the unique identifier from the config (e.g. "work_calendar")
	ID() string
	// Name returns a human-readable label (e.g. "Work Account")
	Name() string
	// FetchEvents retrieves events matching the given options, sorted by start.
	// This should block until done or context is cancelled.
	FetchEvents(ctx context.Context, opts FetchOptions) ([]Event, error)
}

// Deduplicate keeps the first occurrence of events that share a DedupeKey.
// Events without a key are always kept.
func Deduplicate(events []Event) []Event {
	seen := make(map[string]bool)
	var result []Event

	for _, event := range events {
		if event.DedupeKey != "" {
			if seen[event.DedupeKey] {
				continue
			}
			seen[event.DedupeKey] = true
		}
		result = append(result, event)
	}

	return result
}

// SortByStart orders events by start time, keeping the relative order of ties.
func SortByStart(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		return a.Start.Compare(b.Start)
	})
}
