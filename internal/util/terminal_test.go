package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateText(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"standup", 10, "standup"},
		{"standup", 7, "standup"},
		{"standup", 5, "stan…"},
		{"שלום עולם", 4, "שלו…"},
		{"standup", 1, "…"},
		{"standup", 0, "standup"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TruncateText(tt.in, tt.max), "%q/%d", tt.in, tt.max)
	}
}

func TestMakeHyperlink(t *testing.T) {
	assert.Equal(t, "\033]8;;https://example.com\aevent\033]8;;\a", MakeHyperlink("https://example.com", "event"))
	assert.Equal(t, "event", MakeHyperlink("", "event"))
}
