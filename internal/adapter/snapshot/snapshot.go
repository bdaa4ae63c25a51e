// Package snapshot serves calendar events from a file exported from Google
// Calendar, for offline use and tests.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/api/calendar/v3"

	"github.com/theakshaypant/gaps/internal/adapter/google"
	"github.com/theakshaypant/gaps/internal/core"
)

// Adapter implements core.Provider over a JSON file holding either an array of
// Google Calendar events or an events.list response ({"items": [...]}).
type Adapter struct {
	id       string
	path     string
	calendar core.Calendar
	events   []core.Event
}

func NewAdapter(id, path string) *Adapter {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Adapter{
		id:       id,
		path:     path,
		calendar: core.Calendar{ID: "snapshot", Name: name},
	}
}

func (a *Adapter) ID() string   { return a.id }
func (a *Adapter) Name() string { return "Snapshot " + a.calendar.Name }

// Login reads the snapshot file. It is named like the other adapters' Login so
// the CLI can treat every provider the same way.
func (a *Adapter) Login(_ context.Context) error {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	items, err := decode(data)
	if err != nil {
		return fmt.Errorf("parse snapshot %s: %w", a.path, err)
	}

	a.events = a.events[:0]
	for _, item := range items {
		a.events = append(a.events, google.ParseEvent(a.id, item, a.calendar.ID, a.calendar.Name))
	}
	core.SortByStart(a.events)
	return nil
}

// Calendars returns the single pseudo-calendar backing the snapshot.
func (a *Adapter) Calendars() map[string]string {
	return map[string]string{a.calendar.ID: a.calendar.Name}
}

// FetchEvents returns events overlapping [opts.Start, opts.End] that pass the filters.
// Events without timestamps are returned as-is; the calculator skips them.
func (a *Adapter) FetchEvents(ctx context.Context, opts core.FetchOptions) ([]core.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var results []core.Event
	for _, e := range a.events {
		if !opts.Matches(e) {
			continue
		}
		if !e.Start.IsZero() && !e.End.IsZero() {
			if !opts.End.IsZero() && e.Start.After(opts.End) {
				continue
			}
			if !opts.Start.IsZero() && e.End.Before(opts.Start) {
				continue
			}
		}
		results = append(results, e)
	}
	return core.Deduplicate(results), nil
}

func decode(data []byte) ([]*calendar.Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var items []*calendar.Event
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var list calendar.Events
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}
