package decision

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// FSM state and event names. Stage states reuse the Step vocabulary; the two
// terminal states reuse the RunStatus values.
const (
	fsmComplete = string(StatusComplete)
	fsmFailed   = string(StatusFailed)

	// EventAdvance moves the run to the next stage in order.
	EventAdvance = "advance"
	// EventFail aborts the run from any non-terminal state.
	EventFail = "fail"
)

// runContext carries state machine data.
type runContext struct {
	RunID string
}

// RunStateMachine sequences a decision run through its stages. Every stage
// may advance to its successor or fail; both terminal states are absorbing.
type RunStateMachine struct {
	runID       string
	interpreter *statekit.Interpreter[runContext]
}

// NewRunStateMachine builds the stage machine for one run, starting at the
// classifying stage.
func NewRunStateMachine(runID string) (*RunStateMachine, error) {
	steps := Steps()

	builder := statekit.NewMachine[runContext]("decision-run").
		WithInitial(statekit.StateID(string(steps[0]))).
		WithContext(runContext{RunID: runID})

	for i, step := range steps {
		next := fsmComplete
		if i+1 < len(steps) {
			next = string(steps[i+1])
		}
		builder.State(statekit.StateID(string(step))).
			On(EventAdvance).Target(statekit.StateID(next)).
			On(EventFail).Target(statekit.StateID(fsmFailed)).
			Done()
	}

	builder.State(statekit.StateID(fsmComplete)).Done()
	builder.State(statekit.StateID(fsmFailed)).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build run state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &RunStateMachine{runID: runID, interpreter: interpreter}, nil
}

// Transition applies an event. Events that do not move the machine are
// rejected; terminal states accept nothing.
func (sm *RunStateMachine) Transition(event string) error {
	before := sm.Current()
	sm.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if sm.Current() == before {
		return &TransitionError{RunID: sm.runID, From: before, Event: event}
	}
	return nil
}

// Advance moves the run to the next stage (or to complete from the last).
func (sm *RunStateMachine) Advance() error {
	return sm.Transition(EventAdvance)
}

// Fail aborts the run.
func (sm *RunStateMachine) Fail() error {
	return sm.Transition(EventFail)
}

// Current returns the current state name.
func (sm *RunStateMachine) Current() string {
	return string(sm.interpreter.State().Value)
}

// Stage returns the current stage, or false once the run is terminal.
func (sm *RunStateMachine) Stage() (Step, bool) {
	cur := sm.Current()
	if cur == fsmComplete || cur == fsmFailed {
		return "", false
	}
	return Step(cur), true
}

// Terminal reports whether the machine reached complete or failed.
func (sm *RunStateMachine) Terminal() bool {
	_, running := sm.Stage()
	return !running
}
