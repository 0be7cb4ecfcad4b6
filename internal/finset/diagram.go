package finset

import (
	"context"
	"errors"
	"fmt"
)

// ErrMalformedDiagram marks a diagram whose functions do not fit their endpoints.
var ErrMalformedDiagram = errors.New("malformed diagram")

// ErrIncompatibleCone marks a cone or cocone that does not commute with the diagram.
var ErrIncompatibleCone = errors.New("incompatible cone")

// Edge is a function between two vertices of a diagram.
type Edge struct {
	Src int
	Tgt int
	Fn  Function
}

// Diagram is a finite diagram of finite sets: one set size per vertex and
// one function per edge.
type Diagram struct {
	Sets  []int
	Edges []Edge
}

// Validate checks every edge function against its endpoints.
func (d Diagram) Validate() error {
	for i, e := range d.Edges {
		if e.Src < 0 || e.Src >= len(d.Sets) || e.Tgt < 0 || e.Tgt >= len(d.Sets) {
			return fmt.Errorf("%w: edge %d endpoints %d->%d out of range", ErrMalformedDiagram, i, e.Src, e.Tgt)
		}
		if e.Fn.Dom() != d.Sets[e.Src] || e.Fn.Cod != d.Sets[e.Tgt] {
			return fmt.Errorf("%w: edge %d is %d->%d, vertices are %d->%d",
				ErrMalformedDiagram, i, e.Fn.Dom(), e.Fn.Cod, d.Sets[e.Src], d.Sets[e.Tgt])
		}
		if err := e.Fn.Validate(); err != nil {
			return fmt.Errorf("%w: edge %d: %v", ErrMalformedDiagram, i, err)
		}
	}
	return nil
}

// Solver computes limits and colimits of finite diagrams.
type Solver interface {
	Limit(ctx context.Context, d Diagram) (*Limit, error)
	Colimit(ctx context.Context, d Diagram) (*Colimit, error)
}
