package knowledge

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for corpus loading and validation.
var (
	// ErrInvalidAtom indicates a corpus record failed shape validation.
	ErrInvalidAtom = errors.New("invalid corpus atom")

	// ErrDuplicateAtom indicates two corpus records share an id.
	ErrDuplicateAtom = errors.New("duplicate atom id")

	// ErrEmptyCorpus indicates the corpus contains no valid atoms.
	ErrEmptyCorpus = errors.New("corpus contains no valid atoms")
)

// InvalidAtomError lists every shape violation found on one record.
type InvalidAtomError struct {
	ID       string
	Problems []string
}

func (e *InvalidAtomError) Error() string {
	id := e.ID
	if id == "" {
		id = "(missing id)"
	}
	return fmt.Sprintf("atom %s: %s", id, strings.Join(e.Problems, "; "))
}

// Is allows errors.Is to work with InvalidAtomError.
func (e *InvalidAtomError) Is(target error) bool {
	return target == ErrInvalidAtom
}

// DuplicateAtomError identifies the colliding record.
type DuplicateAtomError struct {
	ID string
}

func (e *DuplicateAtomError) Error() string {
	return "duplicate atom id " + e.ID
}

// Is allows errors.Is to work with DuplicateAtomError.
func (e *DuplicateAtomError) Is(target error) bool {
	return target == ErrDuplicateAtom
}
