package schema

import "fmt"

// Functor maps the generators of Dom into the free category on Cod: objects to
// objects, morphisms to paths, attributes to attribute paths. Only pointwise
// typing is checked; equations are never verified.
type Functor struct {
	Dom  *Schema
	Cod  *Schema
	Ob   []int
	Hom  []Path
	Attr []AttrPath
}

// IdentityFunctor returns the identity functor on s.
func IdentityFunctor(s *Schema) *Functor {
	f := &Functor{
		Dom:  s,
		Cod:  s,
		Ob:   make([]int, len(s.Obs)),
		Hom:  make([]Path, len(s.Homs)),
		Attr: make([]AttrPath, len(s.Attrs)),
	}
	for i := range s.Obs {
		f.Ob[i] = i
	}
	for i := range s.Homs {
		f.Hom[i] = s.Generator(i)
	}
	for i, a := range s.Attrs {
		f.Attr[i] = AttrPath{Path: Id(a.Dom), Attr: i}
	}
	return f
}

// Validate checks that every generator image is well typed.
func (f *Functor) Validate() error {
	name := "functor"
	if f.Dom != nil && f.Cod != nil {
		name = fmt.Sprintf("functor %s->%s", f.Dom.Name, f.Cod.Name)
	}
	if f.Dom == nil || f.Cod == nil {
		return &SchemaError{Schema: name, Reason: "missing domain or codomain"}
	}
	if len(f.Ob) != len(f.Dom.Obs) || len(f.Hom) != len(f.Dom.Homs) || len(f.Attr) != len(f.Dom.Attrs) {
		return &SchemaError{Schema: name, Reason: "generator images do not cover the domain"}
	}
	for c, d := range f.Ob {
		if d < 0 || d >= len(f.Cod.Obs) {
			return &SchemaError{Schema: name, Name: f.Dom.Obs[c].Name, Reason: "object image out of range"}
		}
	}
	for h, p := range f.Hom {
		hom := f.Dom.Homs[h]
		if err := f.Cod.Check(p); err != nil {
			return &SchemaError{Schema: name, Name: hom.Name, Reason: err.Error()}
		}
		if p.Dom != f.Ob[hom.Dom] || p.Cod != f.Ob[hom.Cod] {
			return &SchemaError{Schema: name, Name: hom.Name, Reason: "image does not respect domain and codomain"}
		}
	}
	for a, ap := range f.Attr {
		attr := f.Dom.Attrs[a]
		if err := f.Cod.CheckAttr(ap); err != nil {
			return &SchemaError{Schema: name, Name: attr.Name, Reason: err.Error()}
		}
		if ap.Path.Dom != f.Ob[attr.Dom] {
			return &SchemaError{Schema: name, Name: attr.Name, Reason: "image does not start at the image of its domain"}
		}
		if f.Cod.Attrs[ap.Attr].Type != attr.Type {
			return &SchemaError{Schema: name, Name: attr.Name, Reason: "attribute type changes under the functor"}
		}
	}
	return nil
}

// MapPath sends a path of Dom to its image path in Cod.
func (f *Functor) MapPath(p Path) Path {
	out := Id(f.Ob[p.Dom])
	for _, h := range p.Homs {
		out = out.Then(f.Hom[h])
	}
	return out
}

// MapAttrPath sends an attribute path of Dom to its image in Cod.
func (f *Functor) MapAttrPath(ap AttrPath) AttrPath {
	img := f.Attr[ap.Attr]
	return AttrPath{Path: f.MapPath(ap.Path).Then(img.Path), Attr: img.Attr}
}

// Compose returns f∘g, which applies g first. g.Cod must be f.Dom.
func (f *Functor) Compose(g *Functor) (*Functor, error) {
	if !Equivalent(g.Cod, f.Dom) {
		return nil, &SchemaError{Schema: "composite", Reason: fmt.Sprintf("cannot compose %s after %s", f.Dom.Name, g.Cod.Name)}
	}
	h := &Functor{
		Dom:  g.Dom,
		Cod:  f.Cod,
		Ob:   make([]int, len(g.Ob)),
		Hom:  make([]Path, len(g.Hom)),
		Attr: make([]AttrPath, len(g.Attr)),
	}
	for i, ob := range g.Ob {
		h.Ob[i] = f.Ob[ob]
	}
	for i, p := range g.Hom {
		h.Hom[i] = f.MapPath(p)
	}
	for i, ap := range g.Attr {
		h.Attr[i] = f.MapAttrPath(ap)
	}
	return h, nil
}
