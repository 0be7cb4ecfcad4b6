// Package diagram defines diagrams in a schema: a small shape schema plus a
// structure-preserving map of that shape into an ambient schema. Diagrams are
// the queries of the conjunctive, gluing and gluc migrations.
package diagram

import (
	"fmt"

	"catmig/internal/finset"
	"catmig/internal/schema"
)

// Kind says how a diagram's shape is read.
type Kind int

const (
	// Conjunctive diagrams are read contravariantly and solved by limits.
	Conjunctive Kind = iota
	// Gluing diagrams are read covariantly and solved by colimits.
	Gluing
	// Gluc diagrams are gluing diagrams of conjunctive diagrams.
	Gluc
)

func (k Kind) String() string {
	switch k {
	case Conjunctive:
		return "conjunctive"
	case Gluing:
		return "gluing"
	case Gluc:
		return "gluc"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Diagram maps each shape object to an ambient object and each shape morphism
// to an ambient path. The map need not be injective.
type Diagram struct {
	Shape *schema.Schema
	Ob    []int
	Hom   []schema.Path
}

var (
	pointShape = schema.MustFreeDiagram(schema.Presentation{Name: "Point", Obs: []string{"*"}})
	emptyShape = schema.MustFreeDiagram(schema.Presentation{Name: "Empty"})
)

// Point is the single-object diagram picking out ob.
func Point(ob int) Diagram {
	return Diagram{Shape: pointShape, Ob: []int{ob}, Hom: []schema.Path{}}
}

// Empty is the diagram with no objects. Its limit is a single row and its
// colimit has none.
func Empty() Diagram {
	return Diagram{Shape: emptyShape, Ob: []int{}, Hom: []schema.Path{}}
}

// Validate checks the diagram preserves domains and codomains in ambient.
func (d Diagram) Validate(ambient *schema.Schema) error {
	if d.Shape == nil {
		return &schema.SchemaError{Schema: ambient.Name, Reason: "diagram without shape"}
	}
	name := "diagram " + d.Shape.Name
	if len(d.Ob) != d.Shape.NObs() || len(d.Hom) != d.Shape.NHoms() {
		return &schema.SchemaError{Schema: ambient.Name, Name: name, Reason: "images do not cover the shape"}
	}
	for j, ob := range d.Ob {
		if ob < 0 || ob >= ambient.NObs() {
			return &schema.SchemaError{Schema: ambient.Name, Name: name, Reason: fmt.Sprintf("vertex %s maps outside the schema", d.Shape.Obs[j].Name)}
		}
	}
	for h, p := range d.Hom {
		hom := d.Shape.Homs[h]
		if err := ambient.Check(p); err != nil {
			return &schema.SchemaError{Schema: ambient.Name, Name: name, Reason: fmt.Sprintf("%s: %v", hom.Name, err)}
		}
		if p.Dom != d.Ob[hom.Dom] || p.Cod != d.Ob[hom.Cod] {
			return &schema.SchemaError{Schema: ambient.Name, Name: name, Reason: hom.Name + " does not preserve its endpoints"}
		}
	}
	return nil
}

// Data is read access to an instance of the ambient schema.
type Data interface {
	NParts(ob int) int
	PathFunction(p schema.Path) finset.Function
}

// Compose evaluates the diagram in an instance, giving a diagram of finite sets
// with the same shape.
func (d Diagram) Compose(x Data) finset.Diagram {
	fd := finset.Diagram{Sets: make([]int, len(d.Ob)), Edges: make([]finset.Edge, len(d.Hom))}
	for j, ob := range d.Ob {
		fd.Sets[j] = x.NParts(ob)
	}
	for h, p := range d.Hom {
		hom := d.Shape.Homs[h]
		fd.Edges[h] = finset.Edge{Src: hom.Dom, Tgt: hom.Cod, Fn: x.PathFunction(p)}
	}
	return fd
}

// AttrImage locates an attribute in a conjunctive diagram: the value is read
// through Path from the row chosen at shape vertex Vertex.
type AttrImage struct {
	Vertex int
	Path   schema.AttrPath
}

// Validate checks the image starts at its vertex and has the given type.
func (a AttrImage) Validate(d Diagram, ambient *schema.Schema, typ string) error {
	if a.Vertex < 0 || a.Vertex >= len(d.Ob) {
		return fmt.Errorf("vertex %d out of range", a.Vertex)
	}
	if err := ambient.CheckAttr(a.Path); err != nil {
		return err
	}
	if a.Path.Path.Dom != d.Ob[a.Vertex] {
		return fmt.Errorf("attribute path does not start at vertex %s", d.Shape.Obs[a.Vertex].Name)
	}
	if got := ambient.Attrs[a.Path.Attr].Type; got != typ {
		return fmt.Errorf("attribute path has type %s, want %s", got, typ)
	}
	return nil
}
