package reasoning

import (
	"errors"
	"fmt"
)

// FaultKind categorizes why a reasoning call failed.
type FaultKind string

const (
	// FaultTimeout: the call exceeded its deadline.
	FaultTimeout FaultKind = "timeout"
	// FaultParse: no JSON payload could be extracted from the answer.
	FaultParse FaultKind = "parse"
	// FaultValidation: the payload parsed but violated its schema.
	FaultValidation FaultKind = "validation"
	// FaultAPI: the upstream service itself errored.
	FaultAPI FaultKind = "api"
)

// Fault is the typed failure every reasoning call resolves to when it does
// not produce validated structured data.
type Fault struct {
	Kind FaultKind
	Err  error
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("reasoning %s fault", f.Kind)
	}
	return fmt.Sprintf("reasoning %s fault: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// NewFault wraps err with a failure kind.
func NewFault(kind FaultKind, err error) *Fault {
	return &Fault{Kind: kind, Err: err}
}

// KindOf extracts the fault kind from an error chain. Errors outside the
// taxonomy are treated as api faults.
func KindOf(err error) FaultKind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return FaultAPI
}

// IsFault reports whether err carries the given fault kind.
func IsFault(err error, kind FaultKind) bool {
	var f *Fault
	return errors.As(err, &f) && f.Kind == kind
}
