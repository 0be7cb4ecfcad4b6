// Package finset implements finite sets, functions between them and the
// limit/colimit solver the migration engine treats as a black box.
// A finite set of size n is {0, ..., n-1}; a function is its table of values.
package finset

import "fmt"

// Function is a total function {0..len(Map)-1} -> {0..Cod-1}.
type Function struct {
	Map []int
	Cod int
}

// NewFunction wraps a value table.
func NewFunction(values []int, cod int) Function {
	return Function{Map: values, Cod: cod}
}

// Identity returns the identity on a set of size n.
func Identity(n int) Function {
	m := make([]int, n)
	for i := range m {
		m[i] = i
	}
	return Function{Map: m, Cod: n}
}

// Empty returns the unique function from the empty set into a set of size cod.
func Empty(cod int) Function {
	return Function{Map: []int{}, Cod: cod}
}

// Dom returns the size of the domain.
func (f Function) Dom() int { return len(f.Map) }

// At applies the function.
func (f Function) At(i int) int { return f.Map[i] }

// Then composes f followed by g.
func (f Function) Then(g Function) Function {
	m := make([]int, len(f.Map))
	for i, x := range f.Map {
		m[i] = g.Map[x]
	}
	return Function{Map: m, Cod: g.Cod}
}

// Validate checks every value lands in the codomain.
func (f Function) Validate() error {
	for i, x := range f.Map {
		if x < 0 || x >= f.Cod {
			return fmt.Errorf("value %d at %d outside codomain of size %d", x, i, f.Cod)
		}
	}
	return nil
}
