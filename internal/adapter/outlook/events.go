package outlook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"

	"github.com/theakshaypant/gaps/internal/core"
)

var selectFields = []string{
	"id", "iCalUId", "subject", "start", "end", "location",
	"isAllDay", "showAs", "responseStatus", "webLink", "isCancelled", "categories",
}

// FetchEvents retrieves events from the user's calendars matching the given options.
func (o *OutlookAdapter) FetchEvents(ctx context.Context, opts core.FetchOptions) ([]core.Event, error) {
	var results []core.Event
	var errs []error
	fetched := 0

	calendarIDs := opts.CalendarIDs
	if len(calendarIDs) == 0 {
		for calID := range o.calendars {
			calendarIDs = append(calendarIDs, calID)
		}
	}

	for _, calID := range calendarIDs {
		if _, exists := o.calendars[calID]; !exists {
			continue
		}
		events, err := o.fetchEventsFromCalendar(ctx, calID, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("calendar %s: %w", calID, err))
			continue
		}
		fetched++
		results = append(results, events...)
	}

	if fetched == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	results = core.Deduplicate(results)
	core.SortByStart(results)

	return results, nil
}

func (o *OutlookAdapter) fetchEventsFromCalendar(ctx context.Context, calendarID string, opts core.FetchOptions) ([]core.Event, error) {
	startStr := opts.Start.UTC().Format(time.RFC3339)
	endStr := opts.End.UTC().Format(time.RFC3339)
	orderBy := []string{"start/dateTime"}
	top := int32(100)

	// Ask Graph for UTC so parseSDKDateTime never has to resolve Windows zone names
	headers := abstractions.NewRequestHeaders()
	headers.Add("Prefer", `outlook.timezone="UTC"`)

	var result models.EventCollectionResponseable
	var err error

	if calendarID == defaultCalendar {
		result, err = o.client.Me().CalendarView().Get(ctx, &users.ItemCalendarViewRequestBuilderGetRequestConfiguration{
			QueryParameters: &users.ItemCalendarViewRequestBuilderGetQueryParameters{
				StartDateTime: &startStr,
				EndDateTime:   &endStr,
				Select:        selectFields,
				Orderby:       orderBy,
				Top:           &top,
			},
			Headers: headers,
		})
	} else {
		result, err = o.client.Me().Calendars().ByCalendarId(calendarID).CalendarView().Get(ctx, &users.ItemCalendarsItemCalendarViewRequestBuilderGetRequestConfiguration{
			QueryParameters: &users.ItemCalendarsItemCalendarViewRequestBuilderGetQueryParameters{
				StartDateTime: &startStr,
				EndDateTime:   &endStr,
				Select:        selectFields,
				Orderby:       orderBy,
				Top:           &top,
			},
			Headers: headers,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("fetch calendar view: %w", err)
	}

	calendar := core.Calendar{ID: calendarID, Name: o.calendars[calendarID]}
	var results []core.Event

	pageIterator, err := msgraphcore.NewPageIterator[models.Eventable](
		result,
		o.client.GetAdapter(),
		models.CreateEventCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return nil, fmt.Errorf("create page iterator: %w", err)
	}

	err = pageIterator.Iterate(ctx, func(item models.Eventable) bool {
		if derefBool(item.GetIsCancelled()) {
			return true
		}
		event := parseGraphEvent(o.ID(), item, calendar)
		if opts.Matches(event) {
			results = append(results, event)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return results, nil
}

// parseGraphEvent converts a Graph SDK event into our unified core.Event.
func parseGraphEvent(providerID string, item models.Eventable, calendar core.Calendar) core.Event {
	location := ""
	if loc := item.GetLocation(); loc != nil {
		location = derefStr(loc.GetDisplayName())
	}

	return core.Event{
		ID:         derefStr(item.GetId()),
		DedupeKey:  derefStr(item.GetICalUId()),
		ProviderID: providerID,
		Calendar:   calendar,
		Type:       graphEventType(item),
		Title:      derefStr(item.GetSubject()),
		Location:   location,
		Status:     parseSDKEventStatus(item),
		URL:        derefStr(item.GetWebLink()),
		Start:      parseSDKDateTime(item.GetStart()),
		End:        parseSDKDateTime(item.GetEnd()),
		IsAllDay:   derefBool(item.GetIsAllDay()),
	}
}

// graphEventType maps Outlook's showAs and categories to an EventType.
func graphEventType(item models.Eventable) core.EventType {
	for _, cat := range item.GetCategories() {
		lower := strings.ToLower(cat)
		if lower == "focus time" || lower == "focustime" {
			return core.TypeFocusTime
		}
	}
	if showAs := item.GetShowAs(); showAs != nil {
		switch *showAs {
		case models.OOF_FREEBUSYSTATUS:
			return core.TypeOutOfOffice
		case models.WORKINGELSEWHERE_FREEBUSYSTATUS:
			return core.TypeWorkLocation
		}
	}
	return core.TypeDefault
}

// parseSDKDateTime converts a Graph DateTimeTimeZone (requested in UTC) to time.Time.
func parseSDKDateTime(dt models.DateTimeTimeZoneable) time.Time {
	if dt == nil {
		return time.Time{}
	}
	dateTimeStr := dt.GetDateTime()
	if dateTimeStr == nil {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02T15:04:05.0000000", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, *dateTimeStr); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// parseSDKEventStatus maps Outlook response status to our unified EventStatus.
func parseSDKEventStatus(item models.Eventable) core.EventStatus {
	rs := item.GetResponseStatus()
	if rs == nil || rs.GetResponse() == nil {
		return core.StatusNoResponse
	}
	switch *rs.GetResponse() {
	case models.ACCEPTED_RESPONSETYPE, models.ORGANIZER_RESPONSETYPE:
		return core.StatusAccepted
	case models.DECLINED_RESPONSETYPE:
		return core.StatusRejected
	case models.TENTATIVELYACCEPTED_RESPONSETYPE:
		return core.StatusTentative
	case models.NOTRESPONDED_RESPONSETYPE:
		return core.StatusAwaiting
	default:
		return core.StatusNoResponse
	}
}
