package freetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundsAdjust(t *testing.T) {
	w := weekWindow(t)
	loc := jerusalem(t)
	b := newBounds(w, loc)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"before first day start", at(t, 1, 5, 0), at(t, 1, 7, 0)},
		{"previous day", at(t, 0, 12, 0), at(t, 1, 7, 0)},
		{"inside active hours", at(t, 3, 12, 34), at(t, 3, 12, 34)},
		{"exactly day end", at(t, 3, 21, 0), at(t, 3, 21, 0)},
		{"after day end keeps minutes", at(t, 3, 21, 30), at(t, 4, 7, 30)},
		{"after day end on the hour", at(t, 3, 22, 0), at(t, 4, 7, 0)},
		{"early morning later day", at(t, 3, 5, 0), at(t, 3, 5, 0)},
		{"exactly final boundary", at(t, 8, 7, 0), at(t, 8, 7, 0)},
		{"past final boundary", at(t, 8, 7, 1), at(t, 8, 21, 0)},
		{"well past horizon", at(t, 12, 9, 0), at(t, 8, 21, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.adjust(tt.in)
			assert.True(t, got.Equal(tt.want), "adjust(%s) = %s, want %s", tt.in, got, tt.want)
		})
	}
}

func TestBoundsAdjust_ConvertsZone(t *testing.T) {
	b := newBounds(weekWindow(t), jerusalem(t))

	// 03:00 UTC is 05:00 in Jerusalem, before the first day start.
	got := b.adjust(time.Date(2026, time.March, 2, 3, 0, 0, 0, time.UTC))
	assert.True(t, got.Equal(at(t, 1, 7, 0)))
}

func TestPlanningWindow_Location(t *testing.T) {
	w := PlanningWindow{Timezone: "Europe/Berlin"}
	loc, err := w.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	w = PlanningWindow{}
	loc, err = w.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	w = PlanningWindow{Timezone: "Nowhere/Special"}
	_, err = w.Location()
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestPlanningWindow_Validate(t *testing.T) {
	assert.NoError(t, weekWindow(t).Validate())

	w := weekWindow(t)
	w.HorizonDays = -3
	assert.ErrorIs(t, w.Validate(), ErrInvalidWindow)
}
