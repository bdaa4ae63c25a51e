package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theakshaypant/gaps/internal/core"
	"github.com/theakshaypant/gaps/internal/freetime"
	"github.com/theakshaypant/gaps/internal/store"
)

type fakeProvider struct {
	events []core.Event
	err    error
}

func (f *fakeProvider) ID() string   { return "fake" }
func (f *fakeProvider) Name() string { return "Fake" }
func (f *fakeProvider) FetchEvents(_ context.Context, _ core.FetchOptions) ([]core.Event, error) {
	return f.events, f.err
}

func jerusalemAt(t *testing.T, day, hour int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)
	return time.Date(2026, time.March, day, hour, 0, 0, 0, loc)
}

func newTestServer(t *testing.T, provider core.Provider, ratePerMinute int) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "users.json"), filepath.Join(dir, "groups.json"))
	require.NoError(t, err)

	now := jerusalemAt(t, 1, 8)
	srv, err := New(Config{
		Storage:       st,
		Provider:      provider,
		RatePerMinute: ratePerMinute,
		Now:           func() time.Time { return now },
	})
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func weekEvents(t *testing.T) []core.Event {
	return []core.Event{
		{ID: "standup", Start: jerusalemAt(t, 1, 10), End: jerusalemAt(t, 1, 11), Status: core.StatusAccepted},
		{ID: "declined", Start: jerusalemAt(t, 1, 12), End: jerusalemAt(t, 1, 13), Status: core.StatusRejected},
		{ID: "untimed", Status: core.StatusAccepted},
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{Provider: &fakeProvider{}})
	assert.Error(t, err)

	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "u.json"), filepath.Join(dir, "g.json"))
	require.NoError(t, err)
	_, err = New(Config{Storage: st})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, 0)
	rec := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRegisterLoginCalculate(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{events: weekEvents(t)}, 0)

	rec := do(t, srv, http.MethodPost, "/register", `{"username":"dana","email":"dana@example.com","password":"pw"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/register", `{"username":"dana2","email":"dana@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/login", `{"username":"dana","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodPost, "/login", `{"username":"dana","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/calculate-free-time", `{"username":"dana"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		FreeTime []freetime.FreeInterval `json:"freeTime"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.FreeTime, 1)
	assert.True(t, resp.FreeTime[0].Start.Equal(jerusalemAt(t, 1, 7)))
	assert.True(t, resp.FreeTime[0].End.Equal(jerusalemAt(t, 1, 10)))
	assert.Equal(t, 180, resp.FreeTime[0].Duration)
	assert.Contains(t, rec.Body.String(), `"start":"2026-03-01T07:00:00+02:00"`)

	user, err := srv.cfg.Storage.User(context.Background(), "dana")
	require.NoError(t, err)
	assert.Len(t, user.Events, 2, "declined event is not busy")
	assert.Len(t, user.FreeTime, 1)

	rec = do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gaps_busy_events_skipped_total 1")
	assert.Contains(t, rec.Body.String(), `gaps_free_time_calculations_total{outcome="ok"} 1`)
}

func TestCalculate_Errors(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, 0)
	require.Equal(t, http.StatusCreated,
		do(t, srv, http.MethodPost, "/register", `{"username":"dana","email":"d@example.com","password":"pw"}`).Code)

	rec := do(t, srv, http.MethodPost, "/calculate-free-time", `{"username":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPost, "/calculate-free-time", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/calculate-free-time", `{"username":"dana","dayStartHour":21,"dayEndHour":7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "dayEndHour")

	rec = do(t, srv, http.MethodPost, "/calculate-free-time", `{"username":"dana","timezone":"Mars/Olympus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/calculate-free-time", `{"username":"dana","horizonDays":3,"timezone":"UTC"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"freeTime":[]}`, rec.Body.String())
}

func TestEvents(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{events: weekEvents(t)}, 0)
	rec := do(t, srv, http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Events []freetime.BusyEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 2)
	assert.True(t, resp.Events[0].Start.Equal(jerusalemAt(t, 1, 10)))

	failing := newTestServer(t, &fakeProvider{err: errors.New("calendar down")}, 0)
	rec = do(t, failing, http.MethodGet, "/events", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "calendar down")
}

func TestLogin_FetchFailure(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{err: errors.New("calendar down")}, 0)
	require.Equal(t, http.StatusCreated,
		do(t, srv, http.MethodPost, "/register", `{"username":"dana","email":"d@example.com","password":"pw"}`).Code)

	rec := do(t, srv, http.MethodPost, "/login", `{"username":"dana","password":"pw"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGroups(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, 0)

	assert.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/groups", `{"groupName":"climbers"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/groups", `{"groupName":"climbers"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/groups", `{}`).Code)

	assert.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/groups/climbers/users", `{"username":"dana"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/groups/divers/users", `{"username":"dana"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/groups/climbers/users", `{}`).Code)

	groups, err := srv.cfg.Storage.Groups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"dana"}, groups[0].Users)
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, 2)

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, srv, http.MethodGet, "/health", "").Code)
}

func TestWindowOverrides(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, 0)

	w := srv.window(calculateRequest{})
	assert.Equal(t, "Asia/Jerusalem", w.Timezone)
	assert.Equal(t, 7, w.DayStartHour)
	assert.Equal(t, 21, w.DayEndHour)
	assert.Equal(t, 7, w.HorizonDays)

	start, days, zone := 9, 3, "UTC"
	w = srv.window(calculateRequest{DayStartHour: &start, HorizonDays: &days, Timezone: &zone})
	assert.Equal(t, 9, w.DayStartHour)
	assert.Equal(t, 21, w.DayEndHour)
	assert.Equal(t, 3, w.HorizonDays)
	assert.Equal(t, "UTC", w.Timezone)
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	clock := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	l := newRateLimiter(60)
	l.now = func() time.Time { return clock }

	first := l.get("10.0.0.1")
	l.get("10.0.0.2")
	assert.Same(t, first, l.get("10.0.0.1"))
	assert.Len(t, l.limiters, 2)

	// 10.0.0.1 stays active while 10.0.0.2 goes quiet.
	clock = clock.Add(limiterIdleTTL / 2)
	l.get("10.0.0.1")
	clock = clock.Add(limiterIdleTTL/2 + time.Second)
	l.get("10.0.0.3")

	assert.Len(t, l.limiters, 2)
	assert.Contains(t, l.limiters, "10.0.0.1")
	assert.NotContains(t, l.limiters, "10.0.0.2")
	assert.Same(t, first, l.get("10.0.0.1"), "active clients keep their bucket")
}
