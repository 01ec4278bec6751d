package executor

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned for a run state change the state machine
// does not allow. It indicates a programming error.
var ErrInvalidTransition = errors.New("invalid run state transition")

// RunState is the state of one run.
type RunState int

const (
	Pending RunState = iota
	Validating
	Running
	Completed
	Failed
	Cancelled
)

var runStateNames = [...]string{"pending", "validating", "running", "completed", "failed", "cancelled"}

func (s RunState) String() string {
	if s >= 0 && int(s) < len(runStateNames) {
		return runStateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s RunState) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

var transitions = map[RunState][]RunState{
	Pending:    {Validating, Cancelled},
	Validating: {Running, Failed, Cancelled},
	Running:    {Completed, Failed, Cancelled},
}

// stateMachine guards run state changes. It is only touched by the
// goroutine driving the run.
type stateMachine struct {
	state RunState
}

func (m *stateMachine) transition(to RunState) error {
	for _, allowed := range transitions[m.state] {
		if allowed == to {
			m.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
}
