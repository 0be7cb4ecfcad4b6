// Package schema represents finite category presentations used as database schemas.
// A schema is a directed multigraph: vertices are generating objects, edges are
// generating morphisms, and a side table maps attribute edges to external value types.
// All algorithms work on integer indices; names are resolved once at construction.
package schema

import (
	"fmt"
	"strings"
)

// Ob is a generating object (a table).
type Ob struct {
	Name string
}

// Hom is a generating morphism (a foreign key) between two objects.
type Hom struct {
	Name string
	Dom  int
	Cod  int
}

// Attr is an attribute edge from an object into an external value type.
type Attr struct {
	Name string
	Dom  int
	Type string
}

// Schema is an immutable, arena-indexed category presentation.
type Schema struct {
	Name  string
	Obs   []Ob
	Homs  []Hom
	Attrs []Attr

	obIndex   map[string]int
	homIndex  map[string]int
	attrIndex map[string]int
	out       [][]int
	in        [][]int
}

// NObs returns the number of object generators.
func (s *Schema) NObs() int { return len(s.Obs) }

// NHoms returns the number of morphism generators.
func (s *Schema) NHoms() int { return len(s.Homs) }

// NAttrs returns the number of attribute generators.
func (s *Schema) NAttrs() int { return len(s.Attrs) }

// Ob resolves an object generator by name.
func (s *Schema) Ob(name string) (int, bool) {
	i, ok := s.obIndex[name]
	return i, ok
}

// Hom resolves a morphism generator by name.
func (s *Schema) Hom(name string) (int, bool) {
	i, ok := s.homIndex[name]
	return i, ok
}

// Attr resolves an attribute generator by name.
func (s *Schema) Attr(name string) (int, bool) {
	i, ok := s.attrIndex[name]
	return i, ok
}

// Out lists the morphism generators leaving ob.
func (s *Schema) Out(ob int) []int { return s.out[ob] }

// In lists the morphism generators entering ob.
func (s *Schema) In(ob int) []int { return s.in[ob] }

// AttrsOf lists the attribute generators whose domain is ob.
func (s *Schema) AttrsOf(ob int) []int {
	var attrs []int
	for i, a := range s.Attrs {
		if a.Dom == ob {
			attrs = append(attrs, i)
		}
	}
	return attrs
}

// ObsOver lists the objects in the preimage set {c : F(c) = ob} of an object map.
func ObsOver(obMap []int, ob int) []int {
	var obs []int
	for c, d := range obMap {
		if d == ob {
			obs = append(obs, c)
		}
	}
	return obs
}

// String renders a one-line summary, e.g. "Graph{V,E; src:E->V}".
func (s *Schema) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteString("{")
	for i, ob := range s.Obs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(ob.Name)
	}
	if len(s.Homs) > 0 {
		b.WriteString("; ")
		for i, h := range s.Homs {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "%s:%s->%s", h.Name, s.Obs[h.Dom].Name, s.Obs[h.Cod].Name)
		}
	}
	b.WriteString("}")
	return b.String()
}

// index builds the lookup tables. Callers have already checked every endpoint.
func (s *Schema) index() {
	s.obIndex = make(map[string]int, len(s.Obs))
	for i, ob := range s.Obs {
		s.obIndex[ob.Name] = i
	}
	s.homIndex = make(map[string]int, len(s.Homs))
	s.out = make([][]int, len(s.Obs))
	s.in = make([][]int, len(s.Obs))
	for i, h := range s.Homs {
		s.homIndex[h.Name] = i
		s.out[h.Dom] = append(s.out[h.Dom], i)
		s.in[h.Cod] = append(s.in[h.Cod], i)
	}
	s.attrIndex = make(map[string]int, len(s.Attrs))
	for i, a := range s.Attrs {
		s.attrIndex[a.Name] = i
	}
}

// Equivalent reports whether two schemas present the same category with the same
// generator names, endpoints and attribute types. Schema names are ignored.
func Equivalent(a, b *Schema) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if len(a.Obs) != len(b.Obs) || len(a.Homs) != len(b.Homs) || len(a.Attrs) != len(b.Attrs) {
		return false
	}
	for i := range a.Obs {
		if a.Obs[i] != b.Obs[i] {
			return false
		}
	}
	for i := range a.Homs {
		if a.Homs[i] != b.Homs[i] {
			return false
		}
	}
	for i := range a.Attrs {
		if a.Attrs[i] != b.Attrs[i] {
			return false
		}
	}
	return true
}
