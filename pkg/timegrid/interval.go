package timegrid

import "sort"

// Grid constants shared by the layout engine, the interaction machine
// and the presentation layer.
const (
	SlotMinutes     = 15
	MinutesPerDay   = 24 * 60
	DaysPerWeek     = 7
	MinDuration     = SlotMinutes
	DefaultDuration = 30
)

// Interval is a half-open minute range [Start, End) within one day.
type Interval struct {
	Start int
	End   int
}

// Minutes returns the length of the interval.
func (iv Interval) Minutes() int {
	return iv.End - iv.Start
}

// Overlaps reports whether two intervals share at least one minute.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && a.End > b.Start
}

// Clip intersects [start, start+duration) with the window
// [windowStart, windowEnd). The second return value is false when the
// overlap is empty or non-positive.
func Clip(start, duration, windowStart, windowEnd int) (Interval, bool) {
	s := start
	if s < windowStart {
		s = windowStart
	}
	e := start + duration
	if e > windowEnd {
		e = windowEnd
	}
	if e <= s {
		return Interval{}, false
	}
	return Interval{Start: s, End: e}, true
}

// MergeAndSum merges overlapping or touching intervals and returns the
// total covered minutes. Overlap between two sources must never be
// counted twice, so busy time is measured as the length of the union.
// The input slice is not modified.
func MergeAndSum(intervals []Interval) int {
	if len(intervals) == 0 {
		return 0
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	total := 0
	cur := sorted[0]
	for _, iv := range sorted[1:] {
		if iv.Start <= cur.End {
			if iv.End > cur.End {
				cur.End = iv.End
			}
			continue
		}
		total += cur.Minutes()
		cur = iv
	}
	total += cur.Minutes()
	return total
}

// Merge returns the merged (non-overlapping, sorted) form of the input.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// SnapMinutes rounds a raw minute value to the nearest 15-minute slot
// boundary. Snapping happens before any clamping so a drag past the day
// boundary lands exactly on the boundary.
func SnapMinutes(raw float64) int {
	return roundToInt(raw/SlotMinutes) * SlotMinutes
}

func roundToInt(f float64) int {
	if f < 0 {
		return -int(-f + 0.5)
	}
	return int(f + 0.5)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
