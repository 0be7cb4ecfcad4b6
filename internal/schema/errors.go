package schema

import (
	"fmt"
	"strings"
)

// SchemaError reports a malformed presentation, functor or diagram.
// It is never retried: the input itself is wrong.
type SchemaError struct {
	Schema string // schema or functor being built
	Name   string // offending generator, if any
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("schema %s: %s: %s", e.Schema, e.Name, e.Reason)
	}
	return fmt.Sprintf("schema %s: %s", e.Schema, e.Reason)
}

// CycleError reports that a schema graph that must be acyclic contains a cycle.
// Obs lists the objects left unordered by the topological sort.
type CycleError struct {
	Schema string
	Obs    []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("schema %s is not acyclic: cycle through %s", e.Schema, strings.Join(e.Obs, ", "))
}
