package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theakshaypant/gaps/internal/core"
	"github.com/theakshaypant/gaps/internal/freetime"
)

var monday = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func testPlan(t *testing.T, ref time.Time) *core.Plan {
	t.Helper()
	window := freetime.PlanningWindow{
		Reference: ref, HorizonDays: 3, DayStartHour: 7, DayEndHour: 21, Timezone: "UTC",
	}
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	events := []core.Event{
		{ID: "a", Title: "Standup", Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour), URL: "https://example.com/a"},
		{ID: "b", Title: "Review", Start: day.Add(14 * time.Hour), End: day.Add(15 * time.Hour)},
	}
	plan, err := core.ComputePlan(window, events, core.BusyEvents(events))
	require.NoError(t, err)
	return plan
}

func loadedModel(t *testing.T) Model {
	t.Helper()
	m := NewModel(func(_ context.Context, ref time.Time) (*core.Plan, error) {
		return testPlan(t, ref), nil
	}, monday, 3)
	m.now = func() time.Time { return monday }

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	next, _ = next.Update(planLoadedMsg{plan: testPlan(t, monday)})
	return next.(Model)
}

func TestModel_LoadsPlan(t *testing.T) {
	m := loadedModel(t)

	assert.False(t, m.loading)
	require.Len(t, m.days, 3)
	assert.Equal(t, 0, m.selectedIdx, "today is selected")

	view := m.View()
	assert.Contains(t, view, "Today")
	assert.Contains(t, view, "Standup")
	assert.Contains(t, view, "free 3h")
}

func TestModel_Navigation(t *testing.T) {
	m := loadedModel(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 1, m.selectedIdx)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 2, m.selectedIdx, "stops at the last day")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	assert.Equal(t, 1, m.selectedIdx)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(Model)
	assert.True(t, m.loading)
	assert.True(t, m.reference.Equal(monday.AddDate(0, 0, 3)))
	require.NotNil(t, cmd)

	msg := cmd()
	loaded, ok := msg.(planLoadedMsg)
	require.True(t, ok)
	require.NoError(t, loaded.err)
	assert.True(t, loaded.plan.Window.Reference.Equal(monday.AddDate(0, 0, 3)))
}

func TestModel_HelpAndQuit(t *testing.T) {
	m := loadedModel(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	m = next.(Model)
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(Model)
	assert.False(t, m.showHelp, "any key closes help")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_LoadError(t *testing.T) {
	m := loadedModel(t)
	next, _ := m.Update(planLoadedMsg{err: errors.New("token expired")})
	m = next.(Model)
	assert.Contains(t, m.View(), "token expired")
}

func TestModel_NextEvent(t *testing.T) {
	m := loadedModel(t)

	e, ok := m.nextEvent()
	require.True(t, ok)
	assert.Equal(t, "a", e.ID)

	m.now = func() time.Time { return monday.Add(3 * time.Hour) }
	e, ok = m.nextEvent()
	require.True(t, ok)
	assert.Equal(t, "b", e.ID)

	m.selectedIdx = 2
	_, ok = m.nextEvent()
	assert.False(t, ok)
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "45m", formatMinutes(45))
	assert.Equal(t, "2h", formatMinutes(120))
	assert.Equal(t, "2h 30m", formatMinutes(150))
	assert.Equal(t, "1d", formatMinutes(24*60))
	assert.Equal(t, "1d 2h", formatMinutes(26*60+5))
	assert.Equal(t, "0m", formatMinutes(0))
}

func TestFormatSpan(t *testing.T) {
	start := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	assert.Equal(t, "11:00 – 14:00", formatSpan(start, start.Add(3*time.Hour)))
	assert.Equal(t, "11:00 – Tue 09:00", formatSpan(start, start.Add(22*time.Hour)))
	assert.Equal(t, "--:--", formatSpan(time.Time{}, time.Time{}))
}
