package runner

import "fmt"

// State is a step of the evaluation lifecycle.
type State string

const (
	StateInit           State = "INIT"
	StateConfigResolved State = "CONFIG_RESOLVED"
	StateSelecting      State = "SELECTING"
	StateEvaluating     State = "EVALUATING"
	StateAggregating    State = "AGGREGATING"
	StatePersisted      State = "PERSISTED"
	StateTrendComputed  State = "TREND_COMPUTED"
	StateAborted        State = "ABORTED"
)

// transitions lists the legal successors of each state. A new scenario may start
// after the previous one finished or aborted.
var transitions = map[State][]State{
	StateInit:           {StateConfigResolved, StateAborted},
	StateConfigResolved: {StateSelecting, StateAborted},
	StateSelecting:      {StateEvaluating, StateAborted},
	StateEvaluating:     {StateAggregating, StateAborted},
	StateAggregating:    {StatePersisted, StateAborted},
	StatePersisted:      {StateTrendComputed, StateAborted},
	StateTrendComputed:  {StateSelecting},
	StateAborted:        {StateSelecting},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError reports an illegal lifecycle step.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s", e.From, e.To)
}
