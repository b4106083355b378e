// Package live renders scenario progress in the terminal with Bubble Tea.
package live

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model renders a live console UI using Bubble Tea.
type Model struct {
	state        State
	table        table.Model
	events       <-chan Event
	tickInterval time.Duration
	now          time.Time
	clock        func() time.Time
	noColor      bool
	width        int
}

// Options configures the live UI model.
type Options struct {
	NoColor      bool
	TickInterval time.Duration
	// Now overrides the wall clock.
	Now func() time.Time
}

// NewModel constructs a live UI model for an event stream.
func NewModel(events <-chan Event, opts Options) Model {
	tickInterval := opts.TickInterval
	if tickInterval <= 0 {
		tickInterval = 200 * time.Millisecond
	}
	clock := opts.Now
	if clock == nil {
		clock = time.Now
	}
	t := table.New(
		table.WithColumns(defaultColumns()),
		table.WithRows([]table.Row{}),
		table.WithFocused(false),
	)
	t.SetStyles(tableStyles(opts.NoColor))
	return Model{
		table:        t,
		events:       events,
		tickInterval: tickInterval,
		now:          clock(),
		clock:        clock,
		noColor:      opts.NoColor,
		width:        100,
	}
}

// State returns the current UI state.
func (m Model) State() State {
	return m.state
}

// Init starts ticking and waits for the first event.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), tick(m.tickInterval))
}

// Update consumes UI events and timer ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.table.SetWidth(typed.Width)
		m.table.SetHeight(max(typed.Height-6, 1))
		m.table.SetColumns(columnsForWidth(typed.Width))
		m.refreshRows()
		return m, nil
	case tea.KeyMsg:
		if typed.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	case EventMsg:
		m = applyEvent(m, typed.Event)
		return m, waitForEvent(m.events)
	case tickMsg:
		m.now = time.Time(typed)
		m.refreshRows()
		return m, tick(m.tickInterval)
	}
	return m, nil
}

// View renders the live UI.
func (m Model) View() string {
	parts := []string{
		renderHeader(m.state, m.now, m.noColor),
		renderSummary(m.state, m.noColor),
		m.table.View(),
	}
	if results := renderResults(m.state, m.noColor); results != "" {
		parts = append(parts, results)
	}
	parts = append(parts, renderFooter(m.state, m.noColor))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// EventMsg wraps a UI event for Bubble Tea.
type EventMsg struct {
	Event Event
}

// tickMsg carries a clock tick for updates.
type tickMsg time.Time

// waitForEvent blocks until a UI event is available.
func waitForEvent(events <-chan Event) tea.Cmd {
	return func() tea.Msg {
		if events == nil {
			return nil
		}
		event, ok := <-events
		if !ok {
			return tea.Quit()
		}
		return EventMsg{Event: event}
	}
}

// tick emits a periodic tick message.
func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) refreshRows() {
	questionWidth := columnsForWidth(m.width)[1].Width
	m.table.SetRows(rowsForState(m.state, m.now, m.noColor, questionWidth))
}

// applyEvent mutates model state based on a UI event.
func applyEvent(model Model, event Event) Model {
	switch event.Kind {
	case EventScenarioStart:
		model.now = model.clock()
		model.state = StartScenario(model.state, event.Scenario, model.now)
	case EventQuestion:
		model.state = Reduce(model.state, event.Question)
	case EventScenarioEnd:
		model.state = FinishScenario(model.state, event.Run, event.Trend)
	case EventScenarioAbort:
		model.state = AbortScenario(model.state, event.Name, event.Err)
	}
	model.refreshRows()
	return model
}
