// Package migrate transports instances along schema functors. A Migration is
// a closed set of variants, one per kind; Engine.Migrate dispatches on it and
// assembles a fresh target instance from limits and colimits computed by a
// finset.Solver.
package migrate

import (
	"fmt"

	"catmig/internal/diagram"
	"catmig/internal/schema"
)

// Kind names a migration semantics.
type Kind int

const (
	Delta Kind = iota
	Conjunctive
	Gluing
	Gluc
	Sigma
)

var kindNames = [...]string{"delta", "conjunctive", "gluing", "gluc", "sigma"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind resolves a kind by name.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown migration kind %q", name)
}

// Migration is one of DeltaMigration, ConjunctiveMigration, GluingMigration,
// GlucMigration or SigmaMigration.
type Migration interface {
	Kind() Kind
	// Source is the schema of the instances the migration reads.
	Source() *schema.Schema
	// Target is the schema of the instances it builds.
	Target() *schema.Schema
	Validate() error

	migration()
}

// DeltaMigration pulls back along F: D → C, sending an instance X of C to X∘F.
type DeltaMigration struct {
	Functor *schema.Functor
}

// SigmaMigration pushes forward along F: C → D, the left adjoint of delta.
// F.Cod must be acyclic.
type SigmaMigration struct {
	Functor *schema.Functor
}

// ConjunctiveMigration sends each target object to a conjunctive diagram in
// the source schema. Hom[h] is a conjunctive diagram hom from the diagram of
// dom(h) to that of cod(h); Attr[a] locates attribute a in the diagram of its
// domain.
type ConjunctiveMigration struct {
	From *schema.Schema
	To   *schema.Schema
	Ob   []diagram.Diagram
	Hom  []diagram.Hom
	Attr []diagram.AttrImage
}

// GluingMigration sends each target object to a gluing diagram. Attr[a][j]
// reads attribute a from shape vertex j of the diagram of its domain; glued
// rows must agree.
type GluingMigration struct {
	From *schema.Schema
	To   *schema.Schema
	Ob   []diagram.Diagram
	Hom  []diagram.Hom
	Attr [][]schema.AttrPath
}

// GlucMigration sends each target object to a gluing diagram of conjunctive
// diagrams. Attr[a][k] locates attribute a in inner diagram k.
type GlucMigration struct {
	From *schema.Schema
	To   *schema.Schema
	Ob   []diagram.Compound
	Hom  []diagram.CompoundHom
	Attr [][]diagram.AttrImage
}

func (DeltaMigration) Kind() Kind       { return Delta }
func (SigmaMigration) Kind() Kind       { return Sigma }
func (ConjunctiveMigration) Kind() Kind { return Conjunctive }
func (GluingMigration) Kind() Kind      { return Gluing }
func (GlucMigration) Kind() Kind        { return Gluc }

func (m DeltaMigration) Source() *schema.Schema { return m.Functor.Cod }
func (m DeltaMigration) Target() *schema.Schema { return m.Functor.Dom }
func (m SigmaMigration) Source() *schema.Schema { return m.Functor.Dom }
func (m SigmaMigration) Target() *schema.Schema { return m.Functor.Cod }

func (m ConjunctiveMigration) Source() *schema.Schema { return m.From }
func (m ConjunctiveMigration) Target() *schema.Schema { return m.To }
func (m GluingMigration) Source() *schema.Schema      { return m.From }
func (m GluingMigration) Target() *schema.Schema      { return m.To }
func (m GlucMigration) Source() *schema.Schema        { return m.From }
func (m GlucMigration) Target() *schema.Schema        { return m.To }

func (DeltaMigration) migration()       {}
func (SigmaMigration) migration()       {}
func (ConjunctiveMigration) migration() {}
func (GluingMigration) migration()      {}
func (GlucMigration) migration()        {}

func (m DeltaMigration) Validate() error {
	if m.Functor == nil {
		return &schema.SchemaError{Schema: "delta", Reason: "missing functor"}
	}
	return m.Functor.Validate()
}

func (m SigmaMigration) Validate() error {
	if m.Functor == nil {
		return &schema.SchemaError{Schema: "sigma", Reason: "missing functor"}
	}
	return m.Functor.Validate()
}

func (m ConjunctiveMigration) Validate() error {
	if err := checkCover(m.Kind(), m.From, m.To, len(m.Ob), len(m.Hom), len(m.Attr)); err != nil {
		return err
	}
	for d, dg := range m.Ob {
		if err := dg.Validate(m.From); err != nil {
			return imageError(m.To, m.To.Obs[d].Name, err)
		}
	}
	for h, hom := range m.To.Homs {
		if err := m.Hom[h].Validate(diagram.Conjunctive, m.Ob[hom.Dom], m.Ob[hom.Cod], m.From); err != nil {
			return imageError(m.To, hom.Name, err)
		}
	}
	for a, attr := range m.To.Attrs {
		if err := m.Attr[a].Validate(m.Ob[attr.Dom], m.From, attr.Type); err != nil {
			return imageError(m.To, attr.Name, err)
		}
	}
	return nil
}

func (m GluingMigration) Validate() error {
	if err := checkCover(m.Kind(), m.From, m.To, len(m.Ob), len(m.Hom), len(m.Attr)); err != nil {
		return err
	}
	for d, dg := range m.Ob {
		if err := dg.Validate(m.From); err != nil {
			return imageError(m.To, m.To.Obs[d].Name, err)
		}
	}
	for h, hom := range m.To.Homs {
		if err := m.Hom[h].Validate(diagram.Gluing, m.Ob[hom.Dom], m.Ob[hom.Cod], m.From); err != nil {
			return imageError(m.To, hom.Name, err)
		}
	}
	for a, attr := range m.To.Attrs {
		dg := m.Ob[attr.Dom]
		if len(m.Attr[a]) != len(dg.Ob) {
			return imageError(m.To, attr.Name, fmt.Errorf("%d attribute paths for %d vertices", len(m.Attr[a]), len(dg.Ob)))
		}
		for j, ap := range m.Attr[a] {
			img := diagram.AttrImage{Vertex: j, Path: ap}
			if err := img.Validate(dg, m.From, attr.Type); err != nil {
				return imageError(m.To, attr.Name, err)
			}
		}
	}
	return nil
}

func (m GlucMigration) Validate() error {
	if err := checkCover(m.Kind(), m.From, m.To, len(m.Ob), len(m.Hom), len(m.Attr)); err != nil {
		return err
	}
	for d, c := range m.Ob {
		if err := c.Validate(m.From); err != nil {
			return imageError(m.To, m.To.Obs[d].Name, err)
		}
	}
	for h, hom := range m.To.Homs {
		if err := m.Hom[h].Validate(m.Ob[hom.Dom], m.Ob[hom.Cod], m.From); err != nil {
			return imageError(m.To, hom.Name, err)
		}
	}
	for a, attr := range m.To.Attrs {
		c := m.Ob[attr.Dom]
		if len(m.Attr[a]) != len(c.Ob) {
			return imageError(m.To, attr.Name, fmt.Errorf("%d attribute images for %d vertices", len(m.Attr[a]), len(c.Ob)))
		}
		for k, img := range m.Attr[a] {
			if err := img.Validate(c.Ob[k], m.From, attr.Type); err != nil {
				return imageError(m.To, attr.Name, err)
			}
		}
	}
	return nil
}

func checkCover(kind Kind, from, to *schema.Schema, obs, homs, attrs int) error {
	if from == nil || to == nil {
		return &schema.SchemaError{Schema: kind.String(), Reason: "missing source or target schema"}
	}
	if obs != to.NObs() || homs != to.NHoms() || attrs != to.NAttrs() {
		return &schema.SchemaError{Schema: to.Name, Reason: kind.String() + " migration does not cover the target schema"}
	}
	return nil
}

func imageError(to *schema.Schema, name string, err error) error {
	return &schema.SchemaError{Schema: to.Name, Name: name, Reason: err.Error()}
}
