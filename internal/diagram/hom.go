package diagram

import (
	"fmt"

	"catmig/internal/schema"
)

// Hom is a morphism of diagrams in one ambient schema.
//
// For a conjunctive hom from d to e, ShapeMap sends each vertex j of e's shape
// to a vertex of d's shape and Components[j] runs from d.Ob[ShapeMap[j]] to
// e.Ob[j]. For a gluing hom from d to e, ShapeMap sends each vertex j of d's
// shape to a vertex of e's shape and Components[j] runs from d.Ob[j] to
// e.Ob[ShapeMap[j]]. Either way the hom induces a function from the solution
// of d to the solution of e.
type Hom struct {
	ShapeMap   []int
	Components []schema.Path
}

// Validate checks the hom is well typed between from and to.
func (m Hom) Validate(kind Kind, from, to Diagram, ambient *schema.Schema) error {
	var index, target Diagram
	switch kind {
	case Conjunctive:
		index, target = to, from
	case Gluing:
		index, target = from, to
	default:
		return fmt.Errorf("no plain diagram homs of kind %s", kind)
	}
	if len(m.ShapeMap) != len(index.Ob) || len(m.Components) != len(index.Ob) {
		return fmt.Errorf("%s hom covers %d vertices, want %d", kind, len(m.ShapeMap), len(index.Ob))
	}
	for j, k := range m.ShapeMap {
		if k < 0 || k >= len(target.Ob) {
			return fmt.Errorf("vertex %d maps to %d, outside the shape", j, k)
		}
		p := m.Components[j]
		if err := ambient.Check(p); err != nil {
			return fmt.Errorf("component %d: %w", j, err)
		}
		dom, cod := target.Ob[k], index.Ob[j]
		if kind == Gluing {
			dom, cod = index.Ob[j], target.Ob[k]
		}
		if p.Dom != dom || p.Cod != cod {
			return fmt.Errorf("component %d runs %s->%s, want %s->%s", j,
				ambient.Obs[p.Dom].Name, ambient.Obs[p.Cod].Name, ambient.Obs[dom].Name, ambient.Obs[cod].Name)
		}
	}
	return nil
}

// Compound is a gluing diagram whose vertices are conjunctive diagrams. The
// outer shape is read covariantly; Hom[h] is the conjunctive hom between the
// inner diagrams at the ends of shape morphism h.
type Compound struct {
	Shape *schema.Schema
	Ob    []Diagram
	Hom   []Hom
}

// Validate checks every inner diagram and inner hom.
func (c Compound) Validate(ambient *schema.Schema) error {
	if c.Shape == nil {
		return fmt.Errorf("compound diagram without shape")
	}
	if len(c.Ob) != c.Shape.NObs() || len(c.Hom) != c.Shape.NHoms() {
		return fmt.Errorf("compound diagram %s: images do not cover the shape", c.Shape.Name)
	}
	for k, d := range c.Ob {
		if err := d.Validate(ambient); err != nil {
			return fmt.Errorf("vertex %s: %w", c.Shape.Obs[k].Name, err)
		}
	}
	for h, m := range c.Hom {
		hom := c.Shape.Homs[h]
		if err := m.Validate(Conjunctive, c.Ob[hom.Dom], c.Ob[hom.Cod], ambient); err != nil {
			return fmt.Errorf("%s: %w", hom.Name, err)
		}
	}
	return nil
}

// CompoundHom maps compound diagram c to compound diagram e: ShapeMap sends
// each outer vertex k of c to an outer vertex of e and Components[k] is a
// conjunctive hom from c.Ob[k] to e.Ob[ShapeMap[k]].
type CompoundHom struct {
	ShapeMap   []int
	Components []Hom
}

// Validate checks the hom is well typed from c to e.
func (m CompoundHom) Validate(c, e Compound, ambient *schema.Schema) error {
	if len(m.ShapeMap) != len(c.Ob) || len(m.Components) != len(c.Ob) {
		return fmt.Errorf("gluc hom covers %d vertices, want %d", len(m.ShapeMap), len(c.Ob))
	}
	for k, l := range m.ShapeMap {
		if l < 0 || l >= len(e.Ob) {
			return fmt.Errorf("vertex %d maps to %d, outside the shape", k, l)
		}
		if err := m.Components[k].Validate(Conjunctive, c.Ob[k], e.Ob[l], ambient); err != nil {
			return fmt.Errorf("component %d: %w", k, err)
		}
	}
	return nil
}
