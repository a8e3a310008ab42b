package decision

import "errors"

// Domain errors for the decision pipeline.
var (
	// ErrInvalidClassification indicates a classification violated the
	// level/dimension vocabulary or its structural bounds.
	ErrInvalidClassification = errors.New("invalid classification")

	// ErrInvalidPerspective indicates a perspective output failed its
	// structural contract.
	ErrInvalidPerspective = errors.New("invalid perspective output")

	// ErrRunNotFound indicates no run exists for the requested id.
	ErrRunNotFound = errors.New("decision run not found")

	// ErrInvalidTransition indicates a run stage transition that the run
	// state machine does not allow.
	ErrInvalidTransition = errors.New("invalid run transition")
)

// TransitionError describes a rejected run stage transition.
type TransitionError struct {
	RunID string
	From  string
	Event string
}

func (e *TransitionError) Error() string {
	return "run " + e.RunID + ": cannot apply " + e.Event + " in state " + e.From
}

// Is allows errors.Is to work with TransitionError.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
