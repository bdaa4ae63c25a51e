package freetime

import (
	"encoding/json"
	"time"
)

type busyEventJSON struct {
	Start json.RawMessage `json:"start"`
	End   json.RawMessage `json:"end"`
}

// UnmarshalJSON accepts {"start": "<RFC3339>", "end": ...} as well as the
// Google Calendar shape {"start": {"dateTime": ...}, "end": {"dateTime": ...}}.
// Timestamps that cannot be read are left zero so Compute skips the event;
// a stored snapshot with one bad entry still loads.
func (e *BusyEvent) UnmarshalJSON(data []byte) error {
	var raw busyEventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		*e = BusyEvent{}
		return nil
	}
	e.Start = parseStamp(raw.Start)
	e.End = parseStamp(raw.End)
	return nil
}

// MarshalJSON always writes the flat form. Zero timestamps become "".
func (e BusyEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}{formatStamp(e.Start), formatStamp(e.End)})
}

func parseStamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseTime(s)
	}

	var obj struct {
		DateTime string `json:"dateTime"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return parseTime(obj.DateTime)
	}
	return time.Time{}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
