package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stivan622/jarvis-system/pkg/planner"
	"github.com/stivan622/jarvis-system/pkg/stores"
	"github.com/stivan622/jarvis-system/pkg/timegrid"
)

// outcomeMsg carries the remote half of a store mutation back to the
// UI goroutine, where Apply reconciles or reverts.
type outcomeMsg struct {
	outcome stores.Outcome
}

type tickMsg time.Time

// runMutation executes the network half of a mutation off the UI
// goroutine. Store state is only touched again when the outcome is
// applied inside Update.
func runMutation(m stores.Mutation) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return outcomeMsg{outcome: m(ctx)}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Minute, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.recalcMetrics()
		return m, nil

	case tickMsg:
		m.now = m.clock()
		return m, tick()

	case outcomeMsg:
		msg.outcome.Apply()
		if msg.outcome.Err != nil {
			m.status = errorStyle.Render(msg.outcome.Err.Error())
		}
		return m, nil

	case tea.KeyMsg:
		if m.creating != nil {
			return m.updateCreating(msg)
		}
		return m.updateNormal(msg)

	case tea.MouseMsg:
		return m.updateMouse(msg)
	}

	return m, nil
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "left", "h":
		return m.shiftWeek(-timegrid.DaysPerWeek)

	case "right", "l":
		return m.shiftWeek(timegrid.DaysPerWeek)

	case "t":
		m.machine.Cancel()
		m.selectedID = ""
		m.setWeek(timegrid.WeekStart(m.clock()))
		return m, m.loadWeek()

	case "up", "k":
		return m.scrollBy(-4), nil

	case "down", "j":
		return m.scrollBy(4), nil

	case "pgup":
		return m.scrollBy(-m.gridRows()), nil

	case "pgdown":
		return m.scrollBy(m.gridRows()), nil

	case "g":
		m.status = "reloading"
		return m, m.loadWeek()

	case "d", "delete":
		if m.selectedID == "" {
			return m, nil
		}
		id := m.selectedID
		m.selectedID = ""
		return m, runMutation(m.schedule.Delete(id))

	case "x":
		// toggle the selected event's linked task
		if ev, ok := m.schedule.Find(m.selectedID); ok && ev.TaskID != nil {
			return m, runMutation(m.tasks.ToggleDone(*ev.TaskID))
		}
		return m, nil

	case "esc":
		m.machine.Cancel()
		m.selectedID = ""
		m.status = ""
		return m, nil
	}

	return m, nil
}

func (m Model) shiftWeek(days int) (tea.Model, tea.Cmd) {
	m.machine.Cancel()
	m.selectedID = ""
	m.setWeek(m.weekStart.AddDate(0, 0, days))
	return m, m.loadWeek()
}

func (m Model) scrollBy(slots int) Model {
	maxScroll := timegrid.MinutesPerDay/timegrid.SlotMinutes - m.gridRows()
	if maxScroll < 0 {
		maxScroll = 0
	}
	m.scrollSlots += slots
	if m.scrollSlots < 0 {
		m.scrollSlots = 0
	}
	if m.scrollSlots > maxScroll {
		m.scrollSlots = maxScroll
	}
	m.recalcMetrics()
	return m
}

func (m Model) updateCreating(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.creating = nil
		m.titleInput.Reset()
		return m, nil

	case "enter", "tab":
		return m.saveCreating()

	case "up":
		c := m.creating.MovedBy(-m.metrics.SlotHeight, m.metrics)
		m.creating = &c
		return m, nil

	case "down":
		c := m.creating.MovedBy(m.metrics.SlotHeight, m.metrics)
		m.creating = &c
		return m, nil

	case "shift+up":
		c := m.creating.ResizedBy(-m.metrics.SlotHeight, m.metrics)
		m.creating = &c
		return m, nil

	case "shift+down":
		c := m.creating.ResizedBy(m.metrics.SlotHeight, m.metrics)
		m.creating = &c
		return m, nil
	}

	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}

// saveCreating persists the inline block. An empty title discards it,
// matching the escape path.
func (m Model) saveCreating() (tea.Model, tea.Cmd) {
	c := m.creating
	m.creating = nil
	title := strings.TrimSpace(m.titleInput.Value())
	m.titleInput.Reset()
	if title == "" {
		return m, nil
	}
	ev := planner.ScheduleEvent{
		Title:           title,
		Date:            c.Date,
		StartMinutes:    c.StartMinutes,
		DurationMinutes: c.DurationMinutes,
	}
	return m, runMutation(m.schedule.Create(ev))
}

func (m Model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return m.scrollBy(-2), nil
	case tea.MouseButtonWheelDown:
		return m.scrollBy(2), nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		return m.pointerDown(msg.X, msg.Y)

	case tea.MouseActionMotion:
		// with the button held, drag motion arrives as motion events
		if m.machine.State() != timegrid.StateIdle {
			m.machine.PointerMove(msg.X, msg.Y)
		}
		return m, nil

	case tea.MouseActionRelease:
		return m.pointerUp(msg.X, msg.Y)
	}

	return m, nil
}

func (m Model) pointerDown(x, y int) (tea.Model, tea.Cmd) {
	if m.creating != nil {
		// a press outside the inline block commits or discards it
		return m.saveCreating()
	}
	if !m.inGrid(x, y) {
		return m, nil
	}

	if hit, resize, ok := m.hitTest(x, y); ok {
		if resize {
			m.machine.BeginResize(hit, x, y)
		} else {
			m.machine.BeginMove(hit, x, y)
		}
		return m, nil
	}

	// empty slot: open the inline-create block
	date := m.days[m.metrics.DayIndexAtX(x)]
	slot := timegrid.NewCreatingSlot(date, m.metrics.SlotStartAtY(y), m.cfg.DefaultEventMinutes)
	m.creating = &slot
	m.selectedID = ""
	m.titleInput.Focus()
	return m, nil
}

func (m Model) pointerUp(x, y int) (tea.Model, tea.Cmd) {
	result := m.machine.PointerUp(x, y)
	switch {
	case result.Commit != nil:
		c := result.Commit
		m.selectedID = c.ID
		return m, runMutation(m.schedule.Move(c.ID, c.Date, c.StartMinutes, c.DurationMinutes))

	case result.Click != nil:
		ev := result.Click.Event
		m.selectedID = ev.ID
		m.status = m.describeEvent(ev.ID)
		return m, nil
	}
	return m, nil
}

func (m Model) inGrid(x, y int) bool {
	return x >= m.metrics.GutterWidth && x < m.metrics.GridWidth &&
		y >= m.metrics.GridTop && y < m.metrics.GridTop+m.gridRows()
}

// hitTest resolves the pointer to a draggable local event, honoring the
// overlap columns the renderer draws. External events never match.
func (m Model) hitTest(x, y int) (timegrid.GridEvent, bool, bool) {
	dayIdx := m.metrics.DayIndexAtX(x)
	date := m.days[dayIdx]
	slotStart := m.metrics.SlotStartAtY(y)
	cellX := m.metrics.GutterWidth + dayIdx*m.dayWidth()

	for _, b := range m.dayBlocks(date) {
		if b.kind == blockExternal || b.kind == blockCreating {
			continue
		}
		if slotStart < b.start || slotStart >= b.start+b.duration {
			continue
		}
		x0, x1 := b.cellRange(cellX, m.dayWidth())
		if x < x0 || x >= x1 {
			continue
		}
		ev := timegrid.GridEvent{
			ID:              b.id,
			Date:            date,
			StartMinutes:    b.start,
			DurationMinutes: b.duration,
		}
		resize := slotStart >= b.start+b.duration-timegrid.SlotMinutes
		return ev, resize, true
	}
	return timegrid.GridEvent{}, false, false
}

func (m Model) describeEvent(id string) string {
	ev, ok := m.schedule.Find(id)
	if !ok {
		return ""
	}
	desc := fmt.Sprintf("%s  %s %s-%s", ev.Title, ev.Date,
		clockLabel(ev.StartMinutes), clockLabel(ev.EndMinutes()))
	if ev.TaskID != nil {
		if task, ok := m.tasks.Find(*ev.TaskID); ok {
			state := " "
			if task.Done {
				state = "x"
			}
			desc += fmt.Sprintf("  [%s] %s", state, task.Title)
		}
	}
	return desc
}

func clockLabel(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
