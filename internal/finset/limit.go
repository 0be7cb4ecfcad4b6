package finset

import (
	"fmt"
	"slices"
	"strconv"
)

// Limit is the limit of a finite diagram: the set of compatible tuples, one
// component per vertex, with the projections as legs.
type Limit struct {
	Diagram Diagram
	Apex    int
	Legs    []Function

	tuples [][]int
	index  map[string]int
}

// NewLimit builds a limit from the tuples satisfying every edge equation.
// Tuples are sorted lexicographically and deduplicated so that any two solvers
// return the same apex numbering.
func NewLimit(d Diagram, tuples [][]int) *Limit {
	slices.SortFunc(tuples, func(a, b []int) int { return slices.Compare(a, b) })
	tuples = slices.CompactFunc(tuples, func(a, b []int) bool { return slices.Equal(a, b) })

	l := &Limit{
		Diagram: d,
		Apex:    len(tuples),
		Legs:    make([]Function, len(d.Sets)),
		tuples:  tuples,
		index:   make(map[string]int, len(tuples)),
	}
	for v, n := range d.Sets {
		m := make([]int, len(tuples))
		for i, t := range tuples {
			m[i] = t[v]
		}
		l.Legs[v] = Function{Map: m, Cod: n}
	}
	for i, t := range tuples {
		l.index[tupleKey(t)] = i
	}
	return l
}

// Tuple returns the components of apex element i.
func (l *Limit) Tuple(i int) []int { return l.tuples[i] }

// Universal returns the unique function from a cone with apex of size n into
// the limit. legs[v] maps the cone apex into vertex v.
func (l *Limit) Universal(n int, legs []Function) (Function, error) {
	if len(legs) != len(l.Diagram.Sets) {
		return Function{}, fmt.Errorf("%w: %d legs for %d vertices", ErrIncompatibleCone, len(legs), len(l.Diagram.Sets))
	}
	for v, leg := range legs {
		if leg.Dom() != n || leg.Cod != l.Diagram.Sets[v] {
			return Function{}, fmt.Errorf("%w: leg %d has type %d->%d", ErrIncompatibleCone, v, leg.Dom(), leg.Cod)
		}
	}
	m := make([]int, n)
	t := make([]int, len(legs))
	for i := 0; i < n; i++ {
		for v, leg := range legs {
			t[v] = leg.Map[i]
		}
		j, ok := l.index[tupleKey(t)]
		if !ok {
			return Function{}, fmt.Errorf("%w: element %d does not satisfy the diagram", ErrIncompatibleCone, i)
		}
		m[i] = j
	}
	return Function{Map: m, Cod: l.Apex}, nil
}

func tupleKey(t []int) string {
	b := make([]byte, 0, len(t)*4)
	for _, x := range t {
		b = strconv.AppendInt(b, int64(x), 36)
		b = append(b, ',')
	}
	return string(b)
}
