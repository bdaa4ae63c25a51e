package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theakshaypant/gaps/internal/core"
)

const listResponse = `{
  "kind": "calendar#events",
  "items": [
    {"id": "b", "summary": "Review", "iCalUID": "x",
     "start": {"dateTime": "2026-03-02T13:00:00+02:00"}, "end": {"dateTime": "2026-03-02T14:00:00+02:00"}},
    {"id": "a", "summary": "Standup",
     "start": {"dateTime": "2026-03-02T10:00:00+02:00"}, "end": {"dateTime": "2026-03-02T10:15:00+02:00"}},
    {"id": "dup", "summary": "Review (copy)", "iCalUID": "x",
     "start": {"dateTime": "2026-03-02T13:00:00+02:00"}, "end": {"dateTime": "2026-03-02T14:00:00+02:00"}},
    {"id": "holiday", "start": {"date": "2026-03-03"}, "end": {"date": "2026-03-04"}},
    {"id": "next-month",
     "start": {"dateTime": "2026-04-02T10:00:00+03:00"}, "end": {"dateTime": "2026-04-02T11:00:00+03:00"}},
    {"id": "broken", "start": {}, "end": {}}
  ]
}`

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "week.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAdapter_FetchEvents(t *testing.T) {
	a := NewAdapter("snapshot", writeSnapshot(t, listResponse))
	require.NoError(t, a.Login(context.Background()))

	assert.Equal(t, "Snapshot week", a.Name())
	assert.Equal(t, map[string]string{"snapshot": "week"}, a.Calendars())

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	events, err := a.FetchEvents(context.Background(), core.DefaultFetchOptions(start, start.AddDate(0, 0, 7)))
	require.NoError(t, err)

	var ids []string
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	// sorted, deduped, all-day and out-of-range dropped, untimed kept
	assert.Equal(t, []string{"broken", "a", "b"}, ids)
}

func TestAdapter_ArrayForm(t *testing.T) {
	path := writeSnapshot(t, `[{"id": "only",
		"start": {"dateTime": "2026-03-02T10:00:00Z"}, "end": {"dateTime": "2026-03-02T11:00:00Z"}}]`)

	a := NewAdapter("snapshot", path)
	require.NoError(t, a.Login(context.Background()))

	events, err := a.FetchEvents(context.Background(), core.FetchOptions{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "only", events[0].ID)
}

func TestAdapter_Errors(t *testing.T) {
	a := NewAdapter("snapshot", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, a.Login(context.Background()))

	a = NewAdapter("snapshot", writeSnapshot(t, `{"items": 7}`))
	assert.Error(t, a.Login(context.Background()))

	a = NewAdapter("snapshot", writeSnapshot(t, "  "))
	require.NoError(t, a.Login(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.FetchEvents(ctx, core.FetchOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
