package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/theakshaypant/gaps/internal/core"
	"github.com/theakshaypant/gaps/internal/freetime"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type GoogleAdapter struct {
	id        string
	name      string
	client    *http.Client
	service   *calendar.Service
	config    *oauth2.Config
	credsFile string
	tokenFile string
	calendars map[string]string
}

func NewGoogleAdapter(id, name, credsFile, tokenFile string) *GoogleAdapter {
	return &GoogleAdapter{
		id:        id,
		name:      name,
		credsFile: credsFile,
		tokenFile: tokenFile,
		calendars: make(map[string]string),
	}
}

func (g *GoogleAdapter) ID() string   { return g.id }
func (g *GoogleAdapter) Name() string { return g.name }

// Login loads credentials and token, then initializes the Calendar service.
// Run `gaps auth` first to generate the token file.
func (g *GoogleAdapter) Login(ctx context.Context) error {
	b, err := os.ReadFile(g.credsFile)
	if err != nil {
		return fmt.Errorf("read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return fmt.Errorf("parse credentials: %w", err)
	}
	g.config = config

	tok, err := tokenFromFile(g.tokenFile)
	if err != nil {
		return fmt.Errorf("read token file (run 'gaps auth' first): %w", err)
	}

	g.client = g.config.Client(ctx, tok)
	g.service, err = calendar.NewService(ctx, option.WithHTTPClient(g.client))
	if err != nil {
		return err
	}

	if err := g.loadCalendarList(ctx); err != nil {
		return fmt.Errorf("load calendar list: %w", err)
	}

	return nil
}

func (g *GoogleAdapter) loadCalendarList(ctx context.Context) error {
	calList, err := g.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return err
	}

	for _, cal := range calList.Items {
		g.calendars[cal.Id] = cal.Summary
	}
	return nil
}

// Calendars returns a list of available calendars (ID -> Name).
func (g *GoogleAdapter) Calendars() map[string]string {
	return g.calendars
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func (g *GoogleAdapter) calendarIDs(requested []string) []string {
	if len(requested) > 0 {
		return requested
	}
	ids := make([]string, 0, len(g.calendars))
	for calID := range g.calendars {
		ids = append(ids, calID)
	}
	return ids
}

// FetchEvents pulls events from the selected calendars. A calendar that fails
// is skipped; an error is returned only when every calendar failed.
func (g *GoogleAdapter) FetchEvents(ctx context.Context, opts core.FetchOptions) ([]core.Event, error) {
	var results []core.Event
	var errs []error
	fetched := 0

	for _, calID := range g.calendarIDs(opts.CalendarIDs) {
		if _, exists := g.calendars[calID]; !exists {
			continue
		}
		events, err := g.fetchEventsFromCalendar(ctx, calID, opts)
		if err != nil {
			errs = append(errs, err)
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

func (g *GoogleAdapter) fetchEventsFromCalendar(ctx context.Context, calendarID string, opts core.FetchOptions) ([]core.Event, error) {
	// Google API requires RFC3339 format
	tMin := opts.Start.Format(time.RFC3339)
	tMax := opts.End.Format(time.RFC3339)

	var results []core.Event
	pageToken := ""

	calendarName := g.calendars[calendarID]

	for {
		req := g.service.Events.List(calendarID).
			ShowDeleted(false).
			SingleEvents(true).
			TimeMin(tMin).
			TimeMax(tMax).
			OrderBy("startTime").
			Context(ctx)

		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		eventsResult, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("api call failed for calendar %s: %w", calendarID, err)
		}

		for _, item := range eventsResult.Items {
			event := ParseEvent(g.ID(), item, calendarID, calendarName)
			if opts.Matches(event) {
				results = append(results, event)
			}
		}

		pageToken = eventsResult.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return results, nil
}

// FreeBusy asks Google for the busy blocks of the given calendars directly.
// Blocks from different calendars are returned together, unmerged.
func (g *GoogleAdapter) FreeBusy(ctx context.Context, calendarIDs []string, start, end time.Time) ([]freetime.BusyEvent, error) {
	ids := g.calendarIDs(calendarIDs)
	items := make([]*calendar.FreeBusyRequestItem, len(ids))
	for i, id := range ids {
		items[i] = &calendar.FreeBusyRequestItem{Id: id}
	}

	query := &calendar.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   items,
	}

	result, err := g.service.Freebusy.Query(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("query freebusy: %w", err)
	}

	var busy []freetime.BusyEvent
	for calID, cal := range result.Calendars {
		if len(cal.Errors) > 0 {
			return nil, fmt.Errorf("freebusy for calendar %s: %s", calID, cal.Errors[0].Reason)
		}
		for _, period := range cal.Busy {
			busy = append(busy, freetime.BusyEvent{
				Start: parseDateTime(period.Start),
				End:   parseDateTime(period.End),
			})
		}
	}

	return busy, nil
}
