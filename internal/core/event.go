package core

import (
	"time"

	"github.com/theakshaypant/gaps/internal/freetime"
)

// EventStatus represents the user's response to an event invitation.
type EventStatus int

const (
	StatusAccepted EventStatus = iota
	// User declined
	StatusRejected
	// User marked as tentative
	StatusTentative
	// Awaiting user's response
	StatusAwaiting
	// No response needed (subscribed calendars, self-created events)
	StatusNoResponse
)

// EventType represents the kind of calendar entry.
type EventType int

const (
	TypeDefault      EventType = iota // Regular meeting/event
	TypeOutOfOffice                   // Out of office block
	TypeFocusTime                     // Focus time block
	TypeWorkLocation                  // Working location (home/office)
)

// Calendar represents the calendar an event belongs to.
type Calendar struct {
	// Calendar ID (e.g., "primary", "user@example.com")
	ID string
	// Human-readable name (e.g., "Work", "Holidays in India")
	Name string
}

// Event is what every adapter (Google, Outlook, snapshot) converts its data to.
type Event struct {
	// Unique ID (provided by the source)
	ID string
	// Same meeting seen on several calendars shares this key (iCalUID)
	DedupeKey string
	// The ID of the provider source (e.g., "google")
	ProviderID string
	Calendar   Calendar
	Type       EventType
	Title      string
	Location   string
	Status     EventStatus
	URL        string
	// Zero when the source had no parseable timestamp
	Start    time.Time
	End      time.Time
	IsAllDay bool
}

// Duration returns the length of the event.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// InProgress checks if the event is happening right now.
func (e Event) InProgress(now time.Time) bool {
	return now.After(e.Start) && now.Before(e.End)
}

// Busy reports whether the event occupies time, and the interval it occupies.
// Declined invitations, working-location markers and all-day entries do not.
func (e Event) Busy() (freetime.BusyEvent, bool) {
	if e.Status == StatusRejected || e.Type == TypeWorkLocation || e.IsAllDay {
		return freetime.BusyEvent{}, false
	}
	return freetime.BusyEvent{Start: e.Start, End: e.End}, true
}

// BusyEvents converts events to the calculator's input, dropping the ones that are not busy.
func BusyEvents(events []Event) []freetime.BusyEvent {
	busy := make([]freetime.BusyEvent, 0, len(events))
	for _, e := range events {
		if b, ok := e.Busy(); ok {
			busy = append(busy, b)
		}
	}
	return busy
}
