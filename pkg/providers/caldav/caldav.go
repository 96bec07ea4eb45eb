package caldav

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"github.com/stivan622/jarvis-system/pkg/planner"
	"github.com/stivan622/jarvis-system/pkg/providers"
)

// Config holds CalDAV server credentials (basic auth, e.g. an app
// password).
type Config struct {
	Name      string
	ServerURL string
	Username  string
	Password  string
}

// Source reads events from a CalDAV server. Write operations are out of
// scope; the grid treats these events exactly like Google ones.
type Source struct {
	cfg    Config
	client *caldav.Client
}

// NewSource connects to a CalDAV server with basic auth.
func NewSource(cfg Config) (*Source, error) {
	httpClient := webdav.HTTPClientWithBasicAuth(nil, cfg.Username, cfg.Password)
	client, err := caldav.NewClient(httpClient, cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create CalDAV client: %w", err)
	}
	return &Source{cfg: cfg, client: client}, nil
}

// Name identifies the source in logs.
func (s *Source) Name() string {
	if s.cfg.Name != "" {
		return "caldav:" + s.cfg.Name
	}
	return "caldav:" + s.cfg.ServerURL
}

// Calendars discovers the server's calendars via the calendar home set.
func (s *Source) Calendars(ctx context.Context) ([]providers.Calendar, error) {
	homeSet, err := s.client.FindCalendarHomeSet(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar home: %w", err)
	}

	cals, err := s.client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	var calendars []providers.Calendar
	for _, cal := range cals {
		name := cal.Name
		if name == "" {
			name = cal.Path
		}
		calendars = append(calendars, providers.Calendar{
			ID:   cal.Path,
			Name: name,
		})
	}
	return calendars, nil
}

// Events queries VEVENTs in the date range and converts each stored
// concrete occurrence to grid fields. Recurrence rules are ignored.
func (s *Source) Events(ctx context.Context, calendarID, dateFrom, dateTo string) ([]planner.RemoteEvent, error) {
	from, err := time.ParseInLocation("2006-01-02", dateFrom, time.Local)
	if err != nil {
		return nil, fmt.Errorf("bad date_from %q: %w", dateFrom, err)
	}
	to, err := time.ParseInLocation("2006-01-02", dateTo, time.Local)
	if err != nil {
		return nil, fmt.Errorf("bad date_to %q: %w", dateTo, err)
	}

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: from,
				End:   to.AddDate(0, 0, 1),
			}},
		},
	}

	objects, err := s.client.QueryCalendar(ctx, calendarID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	var events []planner.RemoteEvent
	for _, obj := range objects {
		ev, err := parseVEvent(&obj, calendarID)
		if err != nil {
			continue // skip malformed objects
		}
		events = append(events, *ev)
	}
	return events, nil
}

// parseVEvent converts the first VEVENT of a calendar object.
func parseVEvent(obj *caldav.CalendarObject, calendarID string) (*planner.RemoteEvent, error) {
	if obj.Data == nil {
		return nil, fmt.Errorf("no data in calendar object")
	}

	for _, component := range obj.Data.Children {
		if component.Name != ical.CompEvent {
			continue
		}

		if prop := component.Props.Get(ical.PropStatus); prop != nil && prop.Value == "CANCELLED" {
			return nil, fmt.Errorf("cancelled event")
		}

		ev := &planner.RemoteEvent{CalendarID: calendarID}
		if prop := component.Props.Get(ical.PropUID); prop != nil {
			ev.ID = prop.Value
		}
		if prop := component.Props.Get(ical.PropSummary); prop != nil {
			ev.Title = prop.Value
		}

		startProp := component.Props.Get(ical.PropDateTimeStart)
		if startProp == nil {
			return nil, fmt.Errorf("no DTSTART")
		}
		start, err := startProp.DateTime(nil)
		if err != nil {
			return nil, fmt.Errorf("bad DTSTART: %w", err)
		}
		// DATE-valued starts mark all-day events
		allDay := startProp.Params.Get("VALUE") == "DATE"

		end := start
		if prop := component.Props.Get(ical.PropDateTimeEnd); prop != nil {
			if t, err := prop.DateTime(nil); err == nil {
				end = t
			}
		}

		ev.Date, ev.StartMinutes, ev.DurationMinutes = providers.GridTimes(start, end, allDay)
		ev.AllDay = allDay
		return ev, nil
	}

	return nil, fmt.Errorf("no VEVENT found")
}

// Ensure Source implements the provider interface
var _ providers.Source = (*Source)(nil)
