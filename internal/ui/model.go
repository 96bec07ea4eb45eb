package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stivan622/jarvis-system/internal/config"
	"github.com/stivan622/jarvis-system/pkg/stores"
	"github.com/stivan622/jarvis-system/pkg/timegrid"
)

const (
	gutterWidth = 6 // "08:00 "
	headerRows  = 2 // title/availability line + day header line
	footerRows  = 1 // status line
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	dayHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	todayHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true)

	hourLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("25"))

	linkedEventStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("231")).
				Background(lipgloss.Color("28"))

	externalEventStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("231")).
				Background(lipgloss.Color("96"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("215")).
			Bold(true)

	candidateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("81")).
			Bold(true)

	creatingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("229"))

	nowMarkerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusBar = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Background(lipgloss.Color("237")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

// Model hosts the week grid. All store state lives on this goroutine;
// remote halves of mutations run as commands and come back as
// outcomeMsg, where Apply reconciles or reverts.
type Model struct {
	cfg   config.Config
	clock func() time.Time

	schedule *stores.ScheduleStore
	tasks    *stores.TaskStore
	external *stores.GoogleCalendarStore

	machine   *timegrid.Machine
	metrics   timegrid.Metrics
	weekStart time.Time
	days      [timegrid.DaysPerWeek]string
	now       time.Time

	width, height int
	scrollSlots   int

	selectedID string
	creating   *timegrid.CreatingSlot
	titleInput textinput.Model

	status string
}

// NewModel builds the week view over the given API client.
func NewModel(cfg config.Config, client *stores.Client) Model {
	clock := time.Now
	now := clock()

	input := textinput.New()
	input.Placeholder = "Event title"
	input.Prompt = ""
	input.Width = 24

	m := Model{
		cfg:      cfg,
		clock:    clock,
		schedule: stores.NewScheduleStore(client),
		tasks:    stores.NewTaskStore(client),
		external: stores.NewGoogleCalendarStore(client),
		now:      now,
		// open the view roughly one hour above the configured workday
		scrollSlots: max(0, cfg.WorkdayStartMinutes/timegrid.SlotMinutes-4),
		titleInput:  input,
	}
	m.setWeek(timegrid.WeekStart(now))
	m.machine = timegrid.NewMachine(m.metrics, m.days)
	return m
}

func (m *Model) setWeek(weekStart time.Time) {
	m.weekStart = weekStart
	for i, d := range timegrid.WeekDays(weekStart) {
		m.days[i] = timegrid.DateStr(d)
	}
	if m.machine != nil {
		m.machine.SetWeek(m.days)
	}
}

func (m *Model) recalcMetrics() {
	day := (m.width - gutterWidth) / timegrid.DaysPerWeek
	if day < 3 {
		day = 3
	}
	m.metrics = timegrid.Metrics{
		SlotHeight:  1,
		GutterWidth: gutterWidth,
		GridLeft:    0,
		GridTop:     headerRows,
		GridWidth:   gutterWidth + day*timegrid.DaysPerWeek,
		ScrollTop:   m.scrollSlots,
	}
	m.machine.SetMetrics(m.metrics)
}

func (m Model) dayWidth() int {
	return (m.metrics.GridWidth - m.metrics.GutterWidth) / timegrid.DaysPerWeek
}

func (m Model) gridRows() int {
	rows := m.height - headerRows - footerRows
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadWeek(), tick())
}

// loadWeek fetches both event sources and the task list for the
// visible range.
func (m Model) loadWeek() tea.Cmd {
	from, to := m.days[0], m.days[timegrid.DaysPerWeek-1]
	return tea.Batch(
		runMutation(m.schedule.Load(from, to)),
		runMutation(m.external.Load(from, to)),
		runMutation(m.tasks.Load()),
	)
}
