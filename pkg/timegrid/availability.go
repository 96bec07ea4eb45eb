package timegrid

import "time"

// BusyEvent is the minimal view of an event the availability aggregator
// needs. Local events set Linked when they carry a task reference;
// external events set AllDay when the source marks them as all-day.
type BusyEvent struct {
	Date            string
	StartMinutes    int
	DurationMinutes int
	Linked          bool
	AllDay          bool
}

// Availability summarizes the current week's free task capacity inside
// the daily work window. All values are minutes except RemainingPct.
type Availability struct {
	TotalWindowMinutes   int
	NonTaskMinutes       int
	TaskMinutes          int
	TaskAvailableMinutes int
	RemainingMinutes     int
	RemainingPct         int
}

// ComputeAvailability walks the Monday-start week containing now and
// measures, inside the [windowStart, windowEnd) daily work window:
//
//   - TotalWindowMinutes: the window summed over the week, with days
//     before today contributing zero and today's window start clamped
//     forward to now.
//   - NonTaskMinutes: merged busy time from local events with no linked
//     task plus non-all-day external events, each clipped to the day's
//     effective window. Overlapping busy blocks count once, so busy
//     time can never exceed the window.
//   - TaskMinutes: merged busy time from local events that do have a
//     linked task, clipped the same way.
//
// It is a pure read-side computation: callers re-run it on every event
// change and at least once per minute as now advances.
func ComputeAvailability(local, external []BusyEvent, windowStart, windowEnd int, now time.Time) Availability {
	today := DateStr(now)
	nowMinute := MinuteOfDay(now)

	windows := make(map[string]Interval, DaysPerWeek)
	var a Availability
	for _, day := range WeekDays(WeekStart(now)) {
		date := DateStr(day)
		start, end := windowStart, windowEnd
		if date < today {
			continue
		}
		if date == today && nowMinute > start {
			start = nowMinute
		}
		if start >= end {
			continue
		}
		windows[date] = Interval{Start: start, End: end}
		a.TotalWindowMinutes += end - start
	}

	// Busy intervals are grouped per day before merging: events on
	// different days share the same minute range and must never merge
	// with each other.
	nonTask := make(map[string][]Interval)
	task := make(map[string][]Interval)
	add := func(dst map[string][]Interval, ev BusyEvent) {
		w, ok := windows[ev.Date]
		if !ok {
			return
		}
		iv, ok := Clip(ev.StartMinutes, ev.DurationMinutes, w.Start, w.End)
		if !ok {
			return
		}
		dst[ev.Date] = append(dst[ev.Date], iv)
	}
	for _, ev := range local {
		if ev.Linked {
			add(task, ev)
		} else {
			add(nonTask, ev)
		}
	}
	for _, ev := range external {
		if ev.AllDay {
			continue
		}
		add(nonTask, ev)
	}

	for _, ivs := range nonTask {
		a.NonTaskMinutes += MergeAndSum(ivs)
	}
	for _, ivs := range task {
		a.TaskMinutes += MergeAndSum(ivs)
	}

	a.TaskAvailableMinutes = a.TotalWindowMinutes - a.NonTaskMinutes
	if a.TaskAvailableMinutes < 0 {
		a.TaskAvailableMinutes = 0
	}
	a.RemainingMinutes = a.TaskAvailableMinutes - a.TaskMinutes
	if a.RemainingMinutes < 0 {
		a.RemainingMinutes = 0
	}
	if a.TaskAvailableMinutes > 0 {
		a.RemainingPct = roundToInt(float64(a.RemainingMinutes) / float64(a.TaskAvailableMinutes) * 100)
	}
	return a
}
