package timegrid

// DragThreshold is the pointer displacement, in surface units, below
// which a press-and-release is still a click rather than a drag.
const DragThreshold = 5

// GridEvent is the snapshot of an event as the interaction machine sees
// it: just enough placement data to move it and to re-issue an update.
// The machine holds the snapshot by value; the live event list is never
// touched until a commit.
type GridEvent struct {
	ID              string
	Date            string
	StartMinutes    int
	DurationMinutes int
}

// DragKind distinguishes a whole-block move from a bottom-edge resize.
type DragKind int

const (
	DragMove DragKind = iota
	DragResize
)

// State is the observable phase of the interaction machine.
type State int

const (
	StateIdle State = iota
	StatePendingMove
	StateActiveMove
	StatePendingResize
	StateActiveResize
)

type dragState struct {
	kind     DragKind
	original GridEvent

	date            string
	startMinutes    int
	durationMinutes int

	grabOffsetMinutes int
	activated         bool
	startX, startY    int
}

// Result is what a finished interaction produced: exactly one of Commit
// (the drag crossed the activation threshold and the candidate placement
// should be written to the store) or Click (it never did, and the press
// should be treated as a plain click on the original event). Both nil
// means the machine had nothing in flight.
type Result struct {
	Commit *GridEvent
	Click  *Click
}

// Click reports a below-threshold press-release on an event, anchored at
// the press coordinates so the host can place a quick-edit popover.
type Click struct {
	Event GridEvent
	X, Y  int
}

// Machine drives move and resize gestures on the week grid. It is bound
// to the UI goroutine: every transition happens synchronously inside a
// pointer event handler, and only one interaction can be in flight at a
// time. Commits are returned to the caller rather than performed, so the
// store write always happens after the machine is back in idle.
type Machine struct {
	metrics Metrics
	days    [DaysPerWeek]string
	drag    *dragState
}

// NewMachine creates a machine for the given grid geometry and visible
// week (day date strings in display order).
func NewMachine(metrics Metrics, days [DaysPerWeek]string) *Machine {
	return &Machine{metrics: metrics, days: days}
}

// SetMetrics updates the grid geometry, e.g. after a resize or scroll.
func (m *Machine) SetMetrics(metrics Metrics) {
	m.metrics = metrics
}

// SetWeek updates the visible day columns.
func (m *Machine) SetWeek(days [DaysPerWeek]string) {
	m.days = days
}

// State returns the current phase.
func (m *Machine) State() State {
	switch {
	case m.drag == nil:
		return StateIdle
	case m.drag.kind == DragMove && m.drag.activated:
		return StateActiveMove
	case m.drag.kind == DragMove:
		return StatePendingMove
	case m.drag.activated:
		return StateActiveResize
	default:
		return StatePendingResize
	}
}

// Dragging reports the id of the event being actively dragged, if any.
// A pending (not yet activated) press is not a drag.
func (m *Machine) Dragging() (string, bool) {
	if m.drag == nil || !m.drag.activated {
		return "", false
	}
	return m.drag.original.ID, true
}

// Candidate returns the event with the live candidate placement applied,
// for rendering the block under the pointer before commit.
func (m *Machine) Candidate() (GridEvent, bool) {
	if m.drag == nil || !m.drag.activated {
		return GridEvent{}, false
	}
	ev := m.drag.original
	ev.Date = m.drag.date
	ev.StartMinutes = m.drag.startMinutes
	ev.DurationMinutes = m.drag.durationMinutes
	return ev, true
}

// BeginMove starts a move gesture on an existing event. Any interaction
// already in flight is discarded: entering a new one always tears down
// the previous one first. The grab offset keeps the block from jumping
// so its top edge aligns with the cursor; it is snapped to a slot at
// grab time, matching the grid the block will land on.
func (m *Machine) BeginMove(ev GridEvent, x, y int) {
	grab := SnapMinutes(m.metrics.RawMinutesAtY(y) - float64(ev.StartMinutes))
	if grab < 0 {
		grab = 0
	}
	m.drag = &dragState{
		kind:              DragMove,
		original:          ev,
		date:              ev.Date,
		startMinutes:      ev.StartMinutes,
		durationMinutes:   ev.DurationMinutes,
		grabOffsetMinutes: grab,
		startX:            x,
		startY:            y,
	}
}

// BeginResize starts a bottom-edge resize gesture on an existing event.
func (m *Machine) BeginResize(ev GridEvent, x, y int) {
	m.drag = &dragState{
		kind:            DragResize,
		original:        ev,
		date:            ev.Date,
		startMinutes:    ev.StartMinutes,
		durationMinutes: ev.DurationMinutes,
		startX:          x,
		startY:          y,
	}
}

// PointerMove feeds a pointer position into the machine. Until the
// press displacement crosses DragThreshold the candidate placement stays
// untouched, so an ordinary click never nudges the event. Each move
// fully supersedes the previous candidate; snapping always happens
// before clamping, so an overshoot past the day boundary lands exactly
// on the boundary.
func (m *Machine) PointerMove(x, y int) {
	d := m.drag
	if d == nil {
		return
	}

	if !d.activated {
		dx := x - d.startX
		dy := y - d.startY
		if abs(dx) <= DragThreshold && abs(dy) <= DragThreshold {
			return
		}
		d.activated = true
	}

	if d.kind == DragMove {
		raw := m.metrics.RawMinutesAtY(y) - float64(d.grabOffsetMinutes)
		d.startMinutes = clampInt(SnapMinutes(raw), 0, MinutesPerDay-d.durationMinutes)
		d.date = m.days[m.metrics.DayIndexAtX(x)]
		return
	}

	end := m.metrics.MinutesAtY(y)
	dur := end - d.startMinutes
	if dur < MinDuration {
		dur = MinDuration
	}
	if max := MinutesPerDay - d.startMinutes; dur > max {
		dur = max
	}
	d.durationMinutes = dur
}

// PointerUp ends the interaction at the release position and returns
// what it produced. A sub-threshold release is a click anchored where
// the pointer let go. The machine is back in idle before the caller
// sees the result, so the commit side effect can never re-enter an
// in-flight transition.
func (m *Machine) PointerUp(x, y int) Result {
	d := m.drag
	if d == nil {
		return Result{}
	}
	m.drag = nil

	if !d.activated {
		return Result{Click: &Click{Event: d.original, X: x, Y: y}}
	}

	ev := d.original
	ev.Date = d.date
	ev.StartMinutes = d.startMinutes
	ev.DurationMinutes = d.durationMinutes
	return Result{Commit: &ev}
}

// Cancel abandons any in-flight interaction without producing a result.
func (m *Machine) Cancel() {
	m.drag = nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// CreatingSlot is the not-yet-persisted block shown while the user types
// a title into an inline-create box on empty grid space. It supports its
// own move and resize with the same quantization as committed events,
// but operates purely on local values until saved.
type CreatingSlot struct {
	Date            string
	StartMinutes    int
	DurationMinutes int
}

// NewCreatingSlot pins a block of the given duration to the clicked
// slot, clipped so it never spills past midnight. A non-positive
// duration falls back to the default block.
func NewCreatingSlot(date string, startMinutes, durationMinutes int) CreatingSlot {
	dur := durationMinutes
	if dur <= 0 {
		dur = DefaultDuration
	}
	if dur < MinDuration {
		dur = MinDuration
	}
	if max := MinutesPerDay - startMinutes; dur > max {
		dur = max
	}
	return CreatingSlot{Date: date, StartMinutes: startMinutes, DurationMinutes: dur}
}

// MovedBy returns the slot shifted by a vertical pointer delta.
func (c CreatingSlot) MovedBy(deltaY int, metrics Metrics) CreatingSlot {
	deltaSlots := roundToInt(float64(deltaY) / float64(metrics.SlotHeight))
	c.StartMinutes = clampInt(
		c.StartMinutes+deltaSlots*SlotMinutes,
		0,
		MinutesPerDay-c.DurationMinutes,
	)
	return c
}

// ResizedBy returns the slot with its duration adjusted by a vertical
// pointer delta, floored at the minimum block and capped at midnight.
func (c CreatingSlot) ResizedBy(deltaY int, metrics Metrics) CreatingSlot {
	deltaSlots := roundToInt(float64(deltaY) / float64(metrics.SlotHeight))
	dur := c.DurationMinutes + deltaSlots*SlotMinutes
	if dur < MinDuration {
		dur = MinDuration
	}
	if max := MinutesPerDay - c.StartMinutes; dur > max {
		dur = max
	}
	c.DurationMinutes = dur
	return c
}
