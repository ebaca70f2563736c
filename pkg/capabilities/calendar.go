package capabilities

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/schema"
)

const (
	CalendarName           = "schedule_event"
	DefaultCalendarBaseURL = "https://www.googleapis.com/calendar/v3"
	DefaultCalendarID      = "primary"
	calendarFailure        = "Failed to schedule event. Please try again later."
)

// CalendarConfig configures the Google Calendar provider.
// Token is an OAuth access token; its lifecycle is managed outside this process.
type CalendarConfig struct {
	Token      string
	BaseURL    string
	CalendarID string
}

type calendarInput struct {
	Title     string `mapstructure:"title"`
	StartTime string `mapstructure:"start_time"`
	Duration  int    `mapstructure:"duration"`
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type eventRequest struct {
	Summary   string    `json:"summary"`
	Start     eventTime `json:"start"`
	End       eventTime `json:"end"`
	Reminders struct {
		UseDefault bool `json:"useDefault"`
	} `json:"reminders"`
}

// NewCalendar returns the schedule_event capability.
func NewCalendar(cfg CalendarConfig, opts Options) capability.Capability {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultCalendarBaseURL
	}
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	logger := opts.logger()
	client := opts.client()

	s := schema.Schema{
		"title":      schema.Field(schema.String(), schema.WithDescription("Event title")),
		"start_time": schema.Field(schema.String(), schema.WithDescription("Start time in ISO format")),
		"duration":   schema.Field(schema.Int(), schema.WithDescription("Duration in minutes")),
	}

	return capability.New(CalendarName, "Schedule an event in Google Calendar.", s, func(ctx context.Context, args map[string]any) (string, error) {
		var in calendarInput
		if err := capability.Decode(args, &in); err != nil {
			return "", err
		}

		start, err := time.Parse(time.RFC3339, in.StartTime)
		if err != nil {
			logger.Error("calendar api error", "capability", CalendarName, "error", err)
			return calendarFailure, nil
		}
		start = start.UTC()
		end := start.Add(time.Duration(in.Duration) * time.Minute)

		body := eventRequest{
			Summary: in.Title,
			Start:   eventTime{DateTime: start.Format(time.RFC3339), TimeZone: "UTC"},
			End:     eventTime{DateTime: end.Format(time.RFC3339), TimeZone: "UTC"},
		}
		body.Reminders.UseDefault = true

		endpoint := fmt.Sprintf("%s/calendars/%s/events?sendUpdates=all", base, url.PathEscape(calendarID))
		headers := map[string]string{"Authorization": "Bearer " + cfg.Token}

		var created struct {
			HTMLLink string `json:"htmlLink"`
		}
		if err := doJSON(ctx, client, http.MethodPost, endpoint, headers, body, &created); err != nil {
			logger.Error("calendar api error", "capability", CalendarName, "error", err)
			return calendarFailure, nil
		}

		return fmt.Sprintf("📅 Event scheduled successfully!\nTitle: %s\nStart: %s\nDuration: %d minutes\nLink: %s",
			in.Title, in.StartTime, in.Duration, created.HTMLLink), nil
	})
}
