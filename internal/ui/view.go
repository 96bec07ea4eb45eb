package ui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/stivan622/jarvis-system/pkg/timegrid"
)

type blockKind int

const (
	blockLocal blockKind = iota
	blockLinked
	blockExternal
	blockCandidate
	blockCreating
)

// block is one laid-out event on a day column, ready to render and to
// hit-test against.
type block struct {
	id              string
	kind            blockKind
	title           string
	start, duration int
	col, total      int
}

// cellRange returns the block's horizontal extent inside a day column
// of the given width. The last overlap column absorbs the remainder.
func (b block) cellRange(cellX, dayWidth int) (int, int) {
	colW := dayWidth / b.total
	if colW < 1 {
		colW = 1
	}
	x0 := cellX + b.col*colW
	x1 := x0 + colW
	if b.col == b.total-1 {
		x1 = cellX + dayWidth
	}
	if x1 > cellX+dayWidth {
		x1 = cellX + dayWidth
	}
	return x0, x1
}

// dayBlocks collects everything visible on one day column and runs the
// overlap layout over it. The actively dragged event is replaced by its
// live candidate placement.
func (m Model) dayBlocks(date string) []block {
	draggingID, dragging := m.machine.Dragging()
	cand, candOK := m.machine.Candidate()

	var blocks []block
	for _, ev := range m.schedule.Events() {
		if dragging && ev.ID == draggingID {
			continue
		}
		if ev.Date != date || ev.DurationMinutes <= 0 {
			continue
		}
		kind := blockLocal
		if ev.Linked() {
			kind = blockLinked
		}
		blocks = append(blocks, block{
			id: ev.ID, kind: kind, title: ev.Title,
			start: ev.StartMinutes, duration: ev.DurationMinutes,
		})
	}
	if candOK && cand.Date == date {
		blocks = append(blocks, block{
			id: cand.ID, kind: blockCandidate, title: "",
			start: cand.StartMinutes, duration: cand.DurationMinutes,
		})
	}
	if m.creating != nil && m.creating.Date == date {
		blocks = append(blocks, block{
			kind:  blockCreating,
			start: m.creating.StartMinutes, duration: m.creating.DurationMinutes,
		})
	}
	for _, ev := range m.external.Events() {
		if ev.Date != date || ev.AllDay || ev.DurationMinutes <= 0 {
			continue
		}
		blocks = append(blocks, block{
			id: "x:" + ev.ID, kind: blockExternal, title: ev.Title,
			start: ev.StartMinutes, duration: ev.DurationMinutes,
		})
	}

	items := make([]timegrid.Item, len(blocks))
	for i, b := range blocks {
		items[i] = timegrid.Item{
			ID:              fmt.Sprintf("%d", i),
			StartMinutes:    b.start,
			DurationMinutes: b.duration,
		}
	}
	for _, p := range timegrid.ComputeLayout(items) {
		i, _ := strconv.Atoi(p.ID)
		blocks[i].col = p.Column
		blocks[i].total = p.TotalColumns
	}
	return blocks
}

func (m Model) View() string {
	if m.width == 0 {
		return "loading"
	}

	var sb strings.Builder
	sb.WriteString(m.headerView())
	sb.WriteString("\n")
	sb.WriteString(m.dayHeaderView())
	sb.WriteString("\n")

	perDay := make(map[string][]block, timegrid.DaysPerWeek)
	for _, d := range m.days {
		perDay[d] = m.dayBlocks(d)
	}

	today := timegrid.DateStr(m.now)
	nowSlot := timegrid.MinuteOfDay(m.now) / timegrid.SlotMinutes
	rows := m.gridRows()
	for r := 0; r < rows; r++ {
		slot := m.scrollSlots + r
		minutes := slot * timegrid.SlotMinutes
		if minutes >= timegrid.MinutesPerDay {
			sb.WriteString("\n")
			continue
		}
		if minutes%60 == 0 {
			sb.WriteString(hourLabelStyle.Render(fmt.Sprintf("%5s ", clockLabel(minutes))))
		} else {
			sb.WriteString(strings.Repeat(" ", gutterWidth))
		}
		for _, date := range m.days {
			nowRow := date == today && slot == nowSlot
			sb.WriteString(m.renderCell(perDay[date], minutes, nowRow))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(m.statusView())
	return sb.String()
}

func (m Model) headerView() string {
	head := titleStyle.Render("jarvis") + "  week of " + m.weekStart.Format("Jan 2, 2006")
	if m.days[0] == timegrid.DateStr(timegrid.WeekStart(m.now)) {
		a := m.availability()
		head += dayHeaderStyle.Render(fmt.Sprintf("   task time left %s of %s (%d%%)",
			durLabel(a.RemainingMinutes), durLabel(a.TaskAvailableMinutes), a.RemainingPct))
	}
	return head
}

func (m Model) dayHeaderView() string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", gutterWidth))
	today := timegrid.DateStr(m.now)
	w := m.dayWidth()
	for i, d := range timegrid.WeekDays(m.weekStart) {
		label := pad(d.Format("Mon 02"), w)
		if m.days[i] == today {
			sb.WriteString(todayHeaderStyle.Render(label))
		} else {
			sb.WriteString(dayHeaderStyle.Render(label))
		}
	}
	return sb.String()
}

// renderCell draws one slot row of one day column: the overlap columns
// of every block covering the row, empty space elsewhere.
func (m Model) renderCell(blocks []block, minutes int, nowRow bool) string {
	w := m.dayWidth()

	var row []block
	for _, b := range blocks {
		if minutes >= b.start && minutes < b.start+b.duration {
			row = append(row, b)
		}
	}
	sort.Slice(row, func(i, j int) bool {
		ix, _ := row[i].cellRange(0, w)
		jx, _ := row[j].cellRange(0, w)
		return ix < jx
	})

	var sb strings.Builder
	pos := 0
	for _, b := range row {
		x0, x1 := b.cellRange(0, w)
		if x0 < pos {
			x0 = pos
		}
		if x1 <= x0 {
			continue
		}
		if x0 > pos {
			sb.WriteString(emptyRun(x0-pos, nowRow))
		}
		label := ""
		if minutes == b.start {
			label = b.title
			if b.kind == blockCreating {
				label = m.titleInput.Value() + "▏"
			}
		}
		sb.WriteString(m.blockStyle(b).Render(pad(truncate(label, x1-x0), x1-x0)))
		pos = x1
	}
	if pos < w {
		sb.WriteString(emptyRun(w-pos, nowRow))
	}
	return sb.String()
}

func (m Model) blockStyle(b block) lipgloss.Style {
	if b.id != "" && b.id == m.selectedID {
		return selectedStyle
	}
	switch b.kind {
	case blockLinked:
		return linkedEventStyle
	case blockExternal:
		return externalEventStyle
	case blockCandidate:
		return candidateStyle
	case blockCreating:
		return creatingStyle
	}
	return eventStyle
}

func emptyRun(n int, nowRow bool) string {
	if nowRow {
		return nowMarkerStyle.Render(strings.Repeat("╌", n))
	}
	return strings.Repeat(" ", n)
}

func (m Model) statusView() string {
	hints := "←/→ week • t today • drag to move/resize • d delete • x toggle task • q quit"
	if m.creating != nil {
		hints = "enter save • esc discard • ↑/↓ move • shift+↑/↓ resize"
	}
	line := hints
	if m.status != "" {
		line = m.status + "  " + hints
	}
	return statusBar.Render(truncate(line, max(0, m.width-2)))
}

// availability summarizes the current week's remaining task capacity
// from the loaded event caches and the configured workday window.
func (m Model) availability() timegrid.Availability {
	var local, external []timegrid.BusyEvent
	for _, ev := range m.schedule.Events() {
		local = append(local, timegrid.BusyEvent{
			Date:            ev.Date,
			StartMinutes:    ev.StartMinutes,
			DurationMinutes: ev.DurationMinutes,
			Linked:          ev.Linked(),
		})
	}
	for _, ev := range m.external.Events() {
		external = append(external, timegrid.BusyEvent{
			Date:            ev.Date,
			StartMinutes:    ev.StartMinutes,
			DurationMinutes: ev.DurationMinutes,
			AllDay:          ev.AllDay,
		})
	}
	return timegrid.ComputeAvailability(local, external,
		m.cfg.WorkdayStartMinutes, m.cfg.WorkdayEndMinutes, m.now)
}

func durLabel(minutes int) string {
	h, mm := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", mm)
	case mm == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%02dm", h, mm)
	}
}

func pad(s string, w int) string {
	r := []rune(s)
	if len(r) >= w {
		return string(r[:w])
	}
	return s + strings.Repeat(" ", w-len(r))
}

func truncate(s string, w int) string {
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w < 1 {
		return ""
	}
	return string(r[:w])
}
