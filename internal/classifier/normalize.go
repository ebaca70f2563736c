package classifier

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"
	_ "time/tzdata"
)

// ScheduleEventTool is the capability whose start_time is normalized to UTC.
const ScheduleEventTool = "schedule_event"

// ErrInvalidTime is returned for scheduling times that cannot be interpreted.
var ErrInvalidTime = errors.New("invalid start_time")

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// NormalizeStartTime converts a timestamp to RFC 3339 UTC.
// Values already ending in "Z" are returned unchanged. Values carrying an
// offset are converted; naive values are interpreted in loc.
func NormalizeStartTime(value string, loc *time.Location) (string, error) {
	if strings.HasSuffix(value, "Z") {
		return value, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format(time.RFC3339), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTime, value)
}

func normalizeScheduleArgs(args map[string]any, loc *time.Location) (map[string]any, error) {
	out := maps.Clone(args)
	raw, _ := out["start_time"].(string)
	normalized, err := NormalizeStartTime(raw, loc)
	if err != nil {
		return nil, err
	}
	out["start_time"] = normalized
	return out, nil
}
