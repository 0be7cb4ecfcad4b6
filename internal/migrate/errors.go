package migrate

import (
	"errors"
	"fmt"
)

// ErrAttributeConflict marks rows glued together that disagree on an attribute.
var ErrAttributeConflict = errors.New("conflicting attribute values")

// SolverError wraps a failed limit, colimit or universal-map computation.
// The migration that hit it returns no instance.
type SolverError struct {
	Op  string // "limit", "colimit", "universal" or "attribute"
	At  string // target generator being computed
	Err error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("solver: %s for %s: %v", e.Op, e.At, e.Err)
}

func (e *SolverError) Unwrap() error { return e.Err }

// DomainMismatchError reports an instance whose schema is not the one the
// migration reads.
type DomainMismatchError struct {
	Want string
	Got  string
}

func (e *DomainMismatchError) Error() string {
	return fmt.Sprintf("migration reads instances of %s, got an instance of %s", e.Want, e.Got)
}
