package providers

import (
	"context"
	"time"

	"github.com/stivan622/jarvis-system/pkg/planner"
)

// Calendar is one calendar listed by a source.
type Calendar struct {
	ID      string
	Name    string
	Color   string
	Primary bool
}

// Source is a read-only external calendar feed. Events from a source are
// rendered on the grid and counted as busy time but never created,
// moved, or deleted by this system.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// Calendars lists the calendars available on the source.
	Calendars(ctx context.Context) ([]Calendar, error)

	// Events returns the concrete event occurrences of one calendar
	// within an inclusive date range, already converted to naive
	// wall-clock grid fields. Recurrence rules are not expanded.
	Events(ctx context.Context, calendarID, dateFrom, dateTo string) ([]planner.RemoteEvent, error)
}

// GridTimes converts a concrete occurrence to the grid's naive
// wall-clock fields. The clock is read in the event's own timezone (as
// carried by start) and never converted; a 10:00 meeting stays at 10:00
// on the grid regardless of the viewer's zone. Duration is floored at
// the 15-minute minimum block; all-day occurrences span the whole day.
func GridTimes(start, end time.Time, allDay bool) (date string, startMinutes, durationMinutes int) {
	date = start.Format("2006-01-02")
	if allDay {
		return date, 0, 1440
	}
	startMinutes = start.Hour()*60 + start.Minute()
	durationMinutes = int(end.Sub(start).Minutes())
	if durationMinutes < 15 {
		durationMinutes = 15
	}
	return date, startMinutes, durationMinutes
}
