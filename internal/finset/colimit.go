package finset

import "fmt"

// Element is an element of one vertex set of a diagram.
type Element struct {
	Vertex int
	Elem   int
}

// Colimit is the colimit of a finite diagram: the disjoint union of the vertex
// sets quotiented by x ~ f(x) for every edge f. Classes are numbered in order
// of their first member.
type Colimit struct {
	Diagram Diagram
	Apex    int
	Legs    []Function

	members [][]Element
}

// Members lists the elements glued into each apex class.
func (c *Colimit) Members() [][]Element {
	if c.members != nil {
		return c.members
	}
	members := make([][]Element, c.Apex)
	for v, leg := range c.Legs {
		for x, class := range leg.Map {
			members[class] = append(members[class], Element{Vertex: v, Elem: x})
		}
	}
	c.members = members
	return members
}

// Universal returns the unique function out of the colimit into a set of size
// cod, given a cocone whose leg v maps vertex v into that set.
func (c *Colimit) Universal(cod int, legs []Function) (Function, error) {
	if len(legs) != len(c.Diagram.Sets) {
		return Function{}, fmt.Errorf("%w: %d legs for %d vertices", ErrIncompatibleCone, len(legs), len(c.Diagram.Sets))
	}
	m := make([]int, c.Apex)
	set := make([]bool, c.Apex)
	for v, leg := range legs {
		if leg.Dom() != c.Diagram.Sets[v] || leg.Cod != cod {
			return Function{}, fmt.Errorf("%w: leg %d has type %d->%d", ErrIncompatibleCone, v, leg.Dom(), leg.Cod)
		}
		for x, y := range leg.Map {
			class := c.Legs[v].Map[x]
			if !set[class] {
				m[class] = y
				set[class] = true
				continue
			}
			if m[class] != y {
				return Function{}, fmt.Errorf("%w: class %d sent to both %d and %d", ErrIncompatibleCone, class, m[class], y)
			}
		}
	}
	return Function{Map: m, Cod: cod}, nil
}

// unionFind is a disjoint-set forest over 0..n-1 with path halving.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}
