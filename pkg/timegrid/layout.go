package timegrid

import "sort"

// Item is anything placeable on a day column. The id is opaque so local
// schedule events and read-only external events can share one layout
// pass; a local and an external event that overlap in time end up in
// different columns exactly as if they were the same kind of event.
type Item struct {
	ID              string
	StartMinutes    int
	DurationMinutes int
}

func (it Item) end() int {
	return it.StartMinutes + it.DurationMinutes
}

// Placement assigns an item a column lane for side-by-side rendering.
// TotalColumns is the width of the item's own overlap cluster, not a
// per-day maximum: two non-overlapping clusters on the same day can
// report different TotalColumns, so an isolated event keeps full width.
type Placement struct {
	ID           string
	Column       int
	TotalColumns int
}

// ComputeLayout assigns each item a {column, totalColumns} pair so that
// no two items sharing a column overlap in time. Items are expected to
// belong to a single day and to have strictly positive durations;
// zero-length items are filtered out upstream.
//
// Greedy interval coloring: items are taken in start order (stable, so
// re-layout of the same input is deterministic) and each is dropped into
// the leftmost column that is free by the time it starts. Running out of
// free columns is not an error, a new column is appended.
func ComputeLayout(items []Item) []Placement {
	if len(items) == 0 {
		return nil
	}

	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartMinutes < sorted[j].StartMinutes
	})

	type assignment struct {
		item   Item
		column int
	}

	var columnEnds []int // columnEnds[i] = end minute of the item currently holding column i
	assignments := make([]assignment, 0, len(sorted))

	for _, item := range sorted {
		placed := false
		for col, end := range columnEnds {
			if end <= item.StartMinutes {
				columnEnds[col] = item.end()
				assignments = append(assignments, assignment{item, col})
				placed = true
				break
			}
		}
		if !placed {
			columnEnds = append(columnEnds, item.end())
			assignments = append(assignments, assignment{item, len(columnEnds) - 1})
		}
	}

	result := make([]Placement, 0, len(assignments))
	for _, a := range assignments {
		iv := Interval{Start: a.item.StartMinutes, End: a.item.end()}
		maxCol := 0
		for _, other := range assignments {
			if !Overlaps(iv, Interval{Start: other.item.StartMinutes, End: other.item.end()}) {
				continue
			}
			if other.column > maxCol {
				maxCol = other.column
			}
		}
		result = append(result, Placement{
			ID:           a.item.ID,
			Column:       a.column,
			TotalColumns: maxCol + 1,
		})
	}
	return result
}
