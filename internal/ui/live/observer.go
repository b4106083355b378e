package live

import (
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"rageval/internal/results"
	"rageval/internal/runner"
	"rageval/internal/trend"
)

// Controller runs the live UI and implements runner.RunObserver.
type Controller struct {
	events    chan Event
	program   *tea.Program
	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Start launches a live UI controller that writes to stdout.
func Start(stdout io.Writer, opts Options) *Controller {
	if stdout == nil {
		stdout = os.Stdout
	}
	events := make(chan Event, 256)
	model := NewModel(events, opts)
	program := tea.NewProgram(model, tea.WithOutput(stdout), tea.WithInput(nil))
	controller := &Controller{
		events:  events,
		program: program,
		done:    make(chan struct{}),
	}
	go func() {
		_, controller.err = program.Run()
		close(controller.done)
	}()
	return controller
}

// Close signals the UI to stop after draining queued events.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.events)
	})
}

// Wait blocks until the UI has exited and returns its error.
func (c *Controller) Wait() error {
	if c == nil {
		return nil
	}
	<-c.done
	return c.err
}

// OnScenarioStart forwards scenario start events to the UI.
func (c *Controller) OnScenarioStart(info runner.ScenarioInfo) {
	c.send(Event{Kind: EventScenarioStart, Scenario: info})
}

// OnQuestionEvent forwards question status updates to the UI.
func (c *Controller) OnQuestionEvent(event runner.QuestionEvent) {
	c.send(Event{Kind: EventQuestion, Question: event})
}

// OnScenarioEnd forwards the persisted run and its trend to the UI.
func (c *Controller) OnScenarioEnd(run results.RunResult, summary trend.Summary) {
	c.send(Event{Kind: EventScenarioEnd, Run: run, Trend: summary})
}

// OnScenarioAbort forwards aborted scenarios to the UI.
func (c *Controller) OnScenarioAbort(scenario string, err error) {
	c.send(Event{Kind: EventScenarioAbort, Name: scenario, Err: err})
}

// send enqueues an event. Question updates are dropped when the queue is full;
// scenario boundaries wait for room.
func (c *Controller) send(event Event) {
	if c == nil {
		return
	}
	if event.Kind != EventQuestion {
		select {
		case c.events <- event:
		case <-c.done:
		}
		return
	}
	select {
	case c.events <- event:
	default:
	}
}
