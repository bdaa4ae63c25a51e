package google

import (
	"time"

	"github.com/theakshaypant/gaps/internal/core"
	"google.golang.org/api/calendar/v3"
)

// ParseEvent converts a Google Calendar event to our unified Event type.
// Timestamps that are missing or unparseable stay zero.
func ParseEvent(providerID string, item *calendar.Event, calendarID, calendarName string) core.Event {
	eventType := core.TypeDefault
	switch item.EventType {
	case "outOfOffice":
		eventType = core.TypeOutOfOffice
	case "focusTime":
		eventType = core.TypeFocusTime
	case "workingLocation":
		eventType = core.TypeWorkLocation
	}

	var startTime, endTime time.Time
	isAllDay := false

	if item.Start != nil && item.Start.DateTime != "" {
		startTime = parseDateTime(item.Start.DateTime)
		if item.End != nil {
			endTime = parseDateTime(item.End.DateTime)
		}
	} else if item.Start != nil && item.Start.Date != "" {
		// All day event (YYYY-MM-DD), end date is exclusive
		startTime, _ = time.Parse("2006-01-02", item.Start.Date)
		if item.End != nil {
			endTime, _ = time.Parse("2006-01-02", item.End.Date)
		}
		isAllDay = true
	}

	return core.Event{
		ID:         item.Id,
		DedupeKey:  item.ICalUID,
		ProviderID: providerID,
		Calendar: core.Calendar{
			ID:   calendarID,
			Name: calendarName,
		},
		Type:     eventType,
		Title:    item.Summary,
		Location: item.Location,
		Status:   parseEventStatus(item),
		URL:      item.HtmlLink,
		Start:    startTime,
		End:      endTime,
		IsAllDay: isAllDay,
	}
}

func parseDateTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseEventStatus determines the user's response status for an event.
func parseEventStatus(item *calendar.Event) core.EventStatus {
	if item.Status == "cancelled" {
		return core.StatusRejected
	}

	for _, attendee := range item.Attendees {
		if attendee.Self {
			switch attendee.ResponseStatus {
			case "declined":
				return core.StatusRejected
			case "tentative":
				return core.StatusTentative
			case "needsAction":
				return core.StatusAwaiting
			case "accepted":
				return core.StatusAccepted
			}
		}
	}

	// Self-created, subscribed or imported: nobody asked us to respond
	return core.StatusNoResponse
}
