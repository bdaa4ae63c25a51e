package outlook

import (
	"context"
	"fmt"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
)

// defaultCalendar addresses /me/calendarView instead of a specific calendar.
const defaultCalendar = "default"

// OutlookAdapter reads busy time from Microsoft Outlook / Office 365
// using the official Microsoft Graph SDK.
type OutlookAdapter struct {
	id        string
	name      string
	tokens    *tokenStore
	calendars map[string]string
	client    *msgraphsdk.GraphServiceClient
}

func NewOutlookAdapter(id, name, clientID, tenantID, tokenFile string) *OutlookAdapter {
	return &OutlookAdapter{
		id:        id,
		name:      name,
		tokens:    newTokenStore(OAuthConfig(clientID, tenantID), tokenFile),
		calendars: make(map[string]string),
	}
}

func (o *OutlookAdapter) ID() string   { return o.id }
func (o *OutlookAdapter) Name() string { return o.name }

// Login loads the saved OAuth token and initializes the Graph SDK client.
func (o *OutlookAdapter) Login(ctx context.Context) error {
	if err := o.tokens.load(); err != nil {
		return err
	}

	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(o.tokens, []string{
		"https://graph.microsoft.com/.default",
	})
	if err != nil {
		return fmt.Errorf("create graph client: %w", err)
	}
	o.client = client

	o.loadCalendarList(ctx)
	return nil
}

// Calendars returns all available calendars (ID -> Name).
func (o *OutlookAdapter) Calendars() map[string]string {
	return o.calendars
}

// loadCalendarList falls back to the default calendar view when the
// calendar list cannot be read (e.g. missing Calendars.Read.Shared).
func (o *OutlookAdapter) loadCalendarList(ctx context.Context) {
	result, err := o.client.Me().Calendars().Get(ctx, nil)
	if err != nil {
		o.calendars[defaultCalendar] = "Calendar"
		return
	}

	for _, cal := range result.GetValue() {
		id := cal.GetId()
		name := cal.GetName()
		if id != nil && name != nil {
			o.calendars[*id] = *name
		}
	}
}
