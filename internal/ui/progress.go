// Package ui renders the progress of a check run in the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"kappa/internal/driver"
)

// maxRows bounds the definition list; the header still counts them all.
const maxRows = 24

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle = map[driver.Status]lipgloss.Style{
		driver.StatusChecking:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		driver.StatusChecked:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		driver.StatusHasErrors:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		driver.StatusInterrupted: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		driver.StatusSkipped:     lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		driver.StatusStale:       lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	}
)

type defItem struct {
	name    string
	status  driver.Status
	elapsed time.Duration
}

type progressModel struct {
	title  string
	events <-chan driver.Event

	spinner spinner.Model
	bar     progress.Model
	width   int

	items []defItem
	index map[string]int
	done  bool
}

type eventMsg driver.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model listing defs with their
// status. Definitions first seen in an event are appended. The model
// quits when events is closed.
func NewProgressModel(title string, defs []string, events <-chan driver.Event) tea.Model {
	m := &progressModel{
		title:   title,
		events:  events,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(statusStyle[driver.StatusChecking])),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(76)),
		width:   80,
		index:   make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		m.lookup(d)
	}
	return m
}

func (m *progressModel) lookup(name string) *defItem {
	idx, ok := m.index[name]
	if !ok {
		idx = len(m.items)
		m.index[name] = idx
		m.items = append(m.items, defItem{name: name, status: driver.StatusQueued})
	}
	return &m.items[idx]
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next)
}

// next blocks on the event channel; Update schedules it again after
// every event.
func (m *progressModel) next() tea.Msg {
	ev, ok := <-m.events
	if !ok {
		return doneMsg{}
	}
	return eventMsg(ev)
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		if msg.Def == "" {
			return m, m.next
		}
		it := m.lookup(msg.Def)
		it.status, it.elapsed = msg.Status, msg.Elapsed
		return m, tea.Batch(m.bar.SetPercent(m.percent()), m.next)
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = max(msg.Width-4, 10)
		}
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	header := fmt.Sprintf("%s (%d/%d)", m.title, m.finished(), len(m.items))
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header) + "\n\n")
	rows := m.visible()
	nameWidth := max(m.width-28, 20)
	for _, it := range rows {
		st := statusStyle[it.status].Render(fmt.Sprintf("%12s", it.status))
		fmt.Fprintf(&b, "  %s %s", st, truncate(it.name, nameWidth))
		if it.status.Final() && it.elapsed > 0 {
			b.WriteString("  " + it.elapsed.Round(time.Microsecond).String())
		}
		b.WriteByte('\n')
	}
	if hidden := len(m.items) - len(rows); hidden > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ... %d more", hidden)) + "\n")
	}
	b.WriteByte('\n')
	if m.done {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteByte('\n')
	return b.String()
}

// visible picks the rows to draw: definitions being checked, then the
// rest in declaration order.
func (m *progressModel) visible() []defItem {
	if len(m.items) <= maxRows {
		return m.items
	}
	rows := make([]defItem, 0, maxRows)
	for _, it := range m.items {
		if it.status == driver.StatusChecking && len(rows) < maxRows {
			rows = append(rows, it)
		}
	}
	for _, it := range m.items {
		if it.status != driver.StatusChecking && len(rows) < maxRows {
			rows = append(rows, it)
		}
	}
	return rows
}

func (m *progressModel) finished() (n int) {
	for _, it := range m.items {
		if it.status.Final() {
			n++
		}
	}
	return n
}

// percent counts a definition being checked as half done.
func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	var done float64
	for _, it := range m.items {
		if it.status.Final() {
			done++
		} else if it.status == driver.StatusChecking {
			done += 0.5
		}
	}
	return done / float64(len(m.items))
}

func truncate(s string, width int) string {
	switch {
	case width <= 0 || runewidth.StringWidth(s) <= width:
		return s
	case width <= 3:
		return runewidth.Truncate(s, width, "")
	default:
		return runewidth.Truncate(s, width, "...")
	}
}
