package timegrid

import (
	"math"
	"time"
)

// Metrics describes the on-screen geometry of the scrollable week grid
// so pointer coordinates can be converted to grid positions. Units are
// whatever the host surface uses (pixels in a windowed UI, character
// cells in a terminal); only ratios matter.
type Metrics struct {
	SlotHeight  int // height of one 15-minute slot
	GutterWidth int // time-label gutter left of the first day column
	GridLeft    int // left edge of the grid in pointer coordinates
	GridTop     int // top edge of the visible grid area
	GridWidth   int // full grid width including the gutter
	ScrollTop   int // current vertical scroll offset of the grid
}

// RawMinutesAtY converts a pointer y coordinate to an unsnapped minute
// position on the day axis, accounting for scroll.
func (m Metrics) RawMinutesAtY(y int) float64 {
	rel := float64(y-m.GridTop+m.ScrollTop) / float64(m.SlotHeight)
	return rel * SlotMinutes
}

// MinutesAtY converts a pointer y coordinate to a snapped minute-of-day.
func (m Metrics) MinutesAtY(y int) int {
	return SnapMinutes(m.RawMinutesAtY(y))
}

// SlotStartAtY converts a pointer y coordinate to the start minute of
// the slot under the pointer (floored, used for click-to-create).
func (m Metrics) SlotStartAtY(y int) int {
	slot := int(math.Floor(m.RawMinutesAtY(y) / SlotMinutes))
	return clampInt(slot*SlotMinutes, 0, MinutesPerDay-SlotMinutes)
}

// DayIndexAtX converts a pointer x coordinate to a visible day index,
// clamped to the 7 columns of the week.
func (m Metrics) DayIndexAtX(x int) int {
	dayWidth := float64(m.GridWidth-m.GutterWidth) / DaysPerWeek
	if dayWidth <= 0 {
		return 0
	}
	idx := int(math.Floor(float64(x-m.GridLeft-m.GutterWidth) / dayWidth))
	return clampInt(idx, 0, DaysPerWeek-1)
}

// YAtMinutes is the inverse mapping, used to position rendered blocks.
func (m Metrics) YAtMinutes(minutes int) int {
	return minutes/SlotMinutes*m.SlotHeight - m.ScrollTop + m.GridTop
}

// DateFormat is the wire format for calendar days throughout the system.
const DateFormat = "2006-01-02"

// DateStr renders a time as a calendar-day string, dropping the clock.
func DateStr(t time.Time) string {
	return t.Format(DateFormat)
}

// WeekStart returns midnight of the Monday of t's week.
func WeekStart(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	shift := int(d.Weekday())
	if shift == 0 {
		shift = 7
	}
	return d.AddDate(0, 0, -(shift - 1))
}

// WeekDays returns the 7 days of the week starting at weekStart.
func WeekDays(weekStart time.Time) [DaysPerWeek]time.Time {
	var days [DaysPerWeek]time.Time
	for i := range days {
		days[i] = weekStart.AddDate(0, 0, i)
	}
	return days
}

// MinuteOfDay returns t's wall-clock position in minutes since midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// SameDate reports whether two times fall on the same calendar day.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
