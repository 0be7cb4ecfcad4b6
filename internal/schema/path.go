package schema

import (
	"fmt"
	"strings"
)

// Path is a morphism of the free category on a schema: a chain of generators
// read in diagrammatic order. An empty chain is the identity on Dom.
type Path struct {
	Dom  int
	Cod  int
	Homs []int
}

// Id returns the identity path on ob.
func Id(ob int) Path {
	return Path{Dom: ob, Cod: ob}
}

// Generator returns the length-one path of a single morphism generator.
func (s *Schema) Generator(hom int) Path {
	h := s.Homs[hom]
	return Path{Dom: h.Dom, Cod: h.Cod, Homs: []int{hom}}
}

// PathOf builds a composite path from consecutive generators.
func (s *Schema) PathOf(homs ...int) (Path, error) {
	if len(homs) == 0 {
		return Path{}, fmt.Errorf("empty path needs an explicit domain")
	}
	p := s.Generator(homs[0])
	for _, h := range homs[1:] {
		if s.Homs[h].Dom != p.Cod {
			return Path{}, fmt.Errorf("cannot compose %s after %s", s.Homs[h].Name, s.Homs[p.Homs[len(p.Homs)-1]].Name)
		}
		p.Homs = append(p.Homs, h)
		p.Cod = s.Homs[h].Cod
	}
	return p, nil
}

// IsIdentity reports whether the path has no generators.
func (p Path) IsIdentity() bool { return len(p.Homs) == 0 }

// Then composes p followed by q. The caller guarantees p.Cod == q.Dom.
func (p Path) Then(q Path) Path {
	if len(p.Homs)+len(q.Homs) == 0 {
		return Path{Dom: p.Dom, Cod: q.Cod}
	}
	homs := make([]int, 0, len(p.Homs)+len(q.Homs))
	homs = append(homs, p.Homs...)
	homs = append(homs, q.Homs...)
	return Path{Dom: p.Dom, Cod: q.Cod, Homs: homs}
}

// Equal is syntactic equality, which is equality of morphisms in a free category.
func (p Path) Equal(q Path) bool {
	if p.Dom != q.Dom || p.Cod != q.Cod || len(p.Homs) != len(q.Homs) {
		return false
	}
	for i := range p.Homs {
		if p.Homs[i] != q.Homs[i] {
			return false
		}
	}
	return true
}

// Key is a compact map key for the path.
func (p Path) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:", p.Dom)
	for i, h := range p.Homs {
		if i > 0 {
			b.WriteByte('.')
		}
		fmt.Fprintf(&b, "%d", h)
	}
	return b.String()
}

// Check verifies the path is well typed in s.
func (s *Schema) Check(p Path) error {
	if p.Dom < 0 || p.Dom >= len(s.Obs) || p.Cod < 0 || p.Cod >= len(s.Obs) {
		return fmt.Errorf("path endpoints %d->%d out of range", p.Dom, p.Cod)
	}
	at := p.Dom
	for _, h := range p.Homs {
		if h < 0 || h >= len(s.Homs) {
			return fmt.Errorf("morphism index %d out of range", h)
		}
		if s.Homs[h].Dom != at {
			return fmt.Errorf("%s does not start at %s", s.Homs[h].Name, s.Obs[at].Name)
		}
		at = s.Homs[h].Cod
	}
	if at != p.Cod {
		return fmt.Errorf("path ends at %s, not %s", s.Obs[at].Name, s.Obs[p.Cod].Name)
	}
	return nil
}

// FormatPath renders a path in document syntax: "f.g" or "id(X)".
func (s *Schema) FormatPath(p Path) string {
	if p.IsIdentity() {
		return "id(" + s.Obs[p.Dom].Name + ")"
	}
	names := make([]string, len(p.Homs))
	for i, h := range p.Homs {
		names[i] = s.Homs[h].Name
	}
	return strings.Join(names, ".")
}

// ParsePath parses document syntax: "f", "f.g.h" or "id(X)".
func (s *Schema) ParsePath(expr string) (Path, error) {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "id(") && strings.HasSuffix(expr, ")") {
		name := strings.TrimSpace(expr[3 : len(expr)-1])
		ob, ok := s.Ob(name)
		if !ok {
			return Path{}, fmt.Errorf("unknown object %q in %q", name, expr)
		}
		return Id(ob), nil
	}
	if expr == "" {
		return Path{}, fmt.Errorf("empty path")
	}
	parts := strings.Split(expr, ".")
	homs := make([]int, len(parts))
	for i, name := range parts {
		h, ok := s.Hom(strings.TrimSpace(name))
		if !ok {
			return Path{}, fmt.Errorf("unknown morphism %q in %q", name, expr)
		}
		homs[i] = h
	}
	return s.PathOf(homs...)
}

// AttrPath is a path followed by an attribute edge: the image of an attribute.
type AttrPath struct {
	Path Path
	Attr int
}

// CheckAttr verifies the attribute path is well typed in s.
func (s *Schema) CheckAttr(ap AttrPath) error {
	if err := s.Check(ap.Path); err != nil {
		return err
	}
	if ap.Attr < 0 || ap.Attr >= len(s.Attrs) {
		return fmt.Errorf("attribute index %d out of range", ap.Attr)
	}
	if s.Attrs[ap.Attr].Dom != ap.Path.Cod {
		return fmt.Errorf("attribute %s does not start at %s", s.Attrs[ap.Attr].Name, s.Obs[ap.Path.Cod].Name)
	}
	return nil
}

// FormatAttrPath renders "f.g.attr" or "attr".
func (s *Schema) FormatAttrPath(ap AttrPath) string {
	if ap.Path.IsIdentity() {
		return s.Attrs[ap.Attr].Name
	}
	return s.FormatPath(ap.Path) + "." + s.Attrs[ap.Attr].Name
}

// ParseAttrPath parses "attr" or "f.g.attr". The path domain for a bare
// attribute is the attribute's own domain.
func (s *Schema) ParseAttrPath(expr string) (AttrPath, error) {
	expr = strings.TrimSpace(expr)
	cut := strings.LastIndex(expr, ".")
	name := expr[cut+1:]
	attr, ok := s.Attr(name)
	if !ok {
		return AttrPath{}, fmt.Errorf("unknown attribute %q in %q", name, expr)
	}
	if cut < 0 {
		return AttrPath{Path: Id(s.Attrs[attr].Dom), Attr: attr}, nil
	}
	p, err := s.ParsePath(expr[:cut])
	if err != nil {
		return AttrPath{}, err
	}
	ap := AttrPath{Path: p, Attr: attr}
	if err := s.CheckAttr(ap); err != nil {
		return AttrPath{}, err
	}
	return ap, nil
}
