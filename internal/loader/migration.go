package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"catmig/internal/diagram"
	"catmig/internal/logging"
	"catmig/internal/migrate"
	"catmig/internal/schema"
)

// migrationDoc is the YAML form of a migration. Delta and sigma give a
// functor from dom to cod; the diagram kinds give a diagram in from for each
// object of to, plus homs and attribute images.
type migrationDoc struct {
	Kind string `yaml:"kind"`

	Dom     *schema.Presentation `yaml:"dom,omitempty"`
	Cod     *schema.Presentation `yaml:"cod,omitempty"`
	Functor *functorDoc          `yaml:"functor,omitempty"`

	From  *schema.Presentation `yaml:"from,omitempty"`
	To    *schema.Presentation `yaml:"to,omitempty"`
	Obs   map[string]yaml.Node `yaml:"obs,omitempty"`
	Homs  map[string]yaml.Node `yaml:"homs,omitempty"`
	Attrs map[string]yaml.Node `yaml:"attrs,omitempty"`
}

type functorDoc struct {
	Obs   map[string]string `yaml:"obs"`
	Homs  map[string]string `yaml:"homs,omitempty"`
	Attrs map[string]string `yaml:"attrs,omitempty"`
}

// diagramDoc is a diagram in an ambient schema. A missing shape name defaults
// to the object the diagram represents.
type diagramDoc struct {
	Shape schema.Presentation `yaml:"shape"`
	Obs   map[string]string   `yaml:"obs"`
	Homs  map[string]string   `yaml:"homs,omitempty"`
}

// homDoc is a diagram hom. Both maps are keyed by the vertices of the indexing
// diagram: the codomain for conjunctive homs, the domain for gluing homs.
type homDoc struct {
	ShapeMap   map[string]string `yaml:"shape_map"`
	Components map[string]string `yaml:"components"`
}

// attrImageDoc locates an attribute at a vertex of a conjunctive diagram.
type attrImageDoc struct {
	Vertex string `yaml:"vertex"`
	Path   string `yaml:"path"`
}

// compoundDoc is a gluing diagram of conjunctive diagrams.
type compoundDoc struct {
	Shape schema.Presentation   `yaml:"shape"`
	Obs   map[string]diagramDoc `yaml:"obs"`
	Homs  map[string]homDoc     `yaml:"homs,omitempty"`
}

type compoundHomDoc struct {
	ShapeMap   map[string]string `yaml:"shape_map"`
	Components map[string]homDoc `yaml:"components"`
}

// LoadMigration reads a migration document.
func LoadMigration(path string) (migrate.Migration, error) {
	timer := logging.StartTimer(logging.CategoryLoader, "LoadMigration")
	defer timer.Stop()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	m, err := ParseMigration(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	logging.LoaderDebug("Loaded %s migration %s -> %s from %s", m.Kind(), m.Source().Name, m.Target().Name, path)
	return m, nil
}

// ParseMigration decodes a migration document and validates it.
func ParseMigration(data []byte) (migrate.Migration, error) {
	var doc migrationDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	kind, err := migrate.ParseKind(doc.Kind)
	if err != nil {
		return nil, err
	}

	var m migrate.Migration
	switch kind {
	case migrate.Delta, migrate.Sigma:
		f, err := convertFunctor(doc)
		if err != nil {
			return nil, err
		}
		if kind == migrate.Delta {
			m = migrate.DeltaMigration{Functor: f}
		} else {
			m = migrate.SigmaMigration{Functor: f}
		}
	default:
		from, to, err := schemas(doc.From, doc.To, "from", "to")
		if err != nil {
			return nil, err
		}
		c := converter{from: from, to: to}
		switch kind {
		case migrate.Conjunctive:
			m, err = c.conjunctive(doc)
		case migrate.Gluing:
			m, err = c.gluing(doc)
		default:
			m, err = c.gluc(doc)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func schemas(a, b *schema.Presentation, aKey, bKey string) (*schema.Schema, *schema.Schema, error) {
	if a == nil || b == nil {
		return nil, nil, fmt.Errorf("migration needs both %s and %s schemas", aKey, bKey)
	}
	sa, err := schema.FreeDiagram(*a)
	if err != nil {
		return nil, nil, err
	}
	sb, err := schema.FreeDiagram(*b)
	if err != nil {
		return nil, nil, err
	}
	return sa, sb, nil
}

func convertFunctor(doc migrationDoc) (*schema.Functor, error) {
	dom, cod, err := schemas(doc.Dom, doc.Cod, "dom", "cod")
	if err != nil {
		return nil, err
	}
	if doc.Functor == nil {
		return nil, &schema.SchemaError{Schema: doc.Kind, Reason: "missing functor"}
	}
	fd := doc.Functor
	f := &schema.Functor{
		Dom:  dom,
		Cod:  cod,
		Ob:   make([]int, dom.NObs()),
		Hom:  make([]schema.Path, dom.NHoms()),
		Attr: make([]schema.AttrPath, dom.NAttrs()),
	}
	for i, o := range dom.Obs {
		target, ok := fd.Obs[o.Name]
		if !ok {
			return nil, &schema.SchemaError{Schema: dom.Name, Name: o.Name, Reason: "object has no image"}
		}
		if f.Ob[i], ok = cod.Ob(target); !ok {
			return nil, &schema.SchemaError{Schema: cod.Name, Name: target, Reason: "unknown object"}
		}
	}
	for i, h := range dom.Homs {
		expr, ok := fd.Homs[h.Name]
		if !ok {
			return nil, &schema.SchemaError{Schema: dom.Name, Name: h.Name, Reason: "morphism has no image"}
		}
		p, err := parsePath(cod, expr, f.Ob[h.Dom])
		if err != nil {
			return nil, &schema.SchemaError{Schema: dom.Name, Name: h.Name, Reason: err.Error()}
		}
		f.Hom[i] = p
	}
	for i, a := range dom.Attrs {
		expr, ok := fd.Attrs[a.Name]
		if !ok {
			return nil, &schema.SchemaError{Schema: dom.Name, Name: a.Name, Reason: "attribute has no image"}
		}
		ap, err := cod.ParseAttrPath(expr)
		if err != nil {
			return nil, &schema.SchemaError{Schema: dom.Name, Name: a.Name, Reason: err.Error()}
		}
		f.Attr[i] = ap
	}
	if err := checkExtra(dom, fd.Obs, fd.Homs, fd.Attrs); err != nil {
		return nil, err
	}
	return f, nil
}

// parsePath parses expr in s. An empty expression is the identity at ob.
func parsePath(s *schema.Schema, expr string, ob int) (schema.Path, error) {
	if expr == "" {
		return schema.Id(ob), nil
	}
	return s.ParsePath(expr)
}

// checkExtra rejects images given for generators s does not have.
func checkExtra(s *schema.Schema, obs, homs, attrs map[string]string) error {
	for name := range obs {
		if _, ok := s.Ob(name); !ok {
			return &schema.SchemaError{Schema: s.Name, Name: name, Reason: "image given for unknown object"}
		}
	}
	for name := range homs {
		if _, ok := s.Hom(name); !ok {
			return &schema.SchemaError{Schema: s.Name, Name: name, Reason: "image given for unknown morphism"}
		}
	}
	for name := range attrs {
		if _, ok := s.Attr(name); !ok {
			return &schema.SchemaError{Schema: s.Name, Name: name, Reason: "image given for unknown attribute"}
		}
	}
	return nil
}

// converter resolves diagram-kind documents between a source and target schema.
type converter struct {
	from *schema.Schema
	to   *schema.Schema
}

func (c converter) errorf(name, format string, args ...any) error {
	return &schema.SchemaError{Schema: c.to.Name, Name: name, Reason: fmt.Sprintf(format, args...)}
}

// node returns the document node for a target generator.
func (c converter) node(nodes map[string]yaml.Node, name string) (*yaml.Node, error) {
	n, ok := nodes[name]
	if !ok {
		return nil, c.errorf(name, "generator has no image")
	}
	return &n, nil
}

func (c converter) checkNodes(obs, homs, attrs map[string]yaml.Node) error {
	keys := func(m map[string]yaml.Node) map[string]string {
		out := make(map[string]string, len(m))
		for k := range m {
			out[k] = ""
		}
		return out
	}
	return checkExtra(c.to, keys(obs), keys(homs), keys(attrs))
}

func (c converter) diagram(doc diagramDoc, name string) (diagram.Diagram, error) {
	if doc.Shape.Name == "" {
		doc.Shape.Name = name
	}
	shape, err := schema.FreeDiagram(doc.Shape)
	if err != nil {
		return diagram.Diagram{}, err
	}
	d := diagram.Diagram{Shape: shape, Ob: make([]int, shape.NObs()), Hom: make([]schema.Path, shape.NHoms())}
	for j, v := range shape.Obs {
		target, ok := doc.Obs[v.Name]
		if !ok {
			return d, c.errorf(name, "vertex %s has no image", v.Name)
		}
		if d.Ob[j], ok = c.from.Ob(target); !ok {
			return d, c.errorf(name, "vertex %s maps to unknown object %s", v.Name, target)
		}
	}
	for h, e := range shape.Homs {
		p, err := parsePath(c.from, doc.Homs[e.Name], d.Ob[e.Dom])
		if err != nil {
			return d, c.errorf(name, "edge %s: %v", e.Name, err)
		}
		d.Hom[h] = p
	}
	if err := checkExtra(shape, doc.Obs, doc.Homs, nil); err != nil {
		return d, err
	}
	return d, nil
}

// hom resolves a diagram hom. index is the diagram whose vertices key the
// document; other is the diagram the shape map points into.
func (c converter) hom(doc homDoc, index, other diagram.Diagram, name string) (diagram.Hom, error) {
	m := diagram.Hom{ShapeMap: make([]int, len(index.Ob)), Components: make([]schema.Path, len(index.Ob))}
	for j, v := range index.Shape.Obs {
		target, ok := doc.ShapeMap[v.Name]
		if !ok {
			return m, c.errorf(name, "vertex %s is not mapped", v.Name)
		}
		k, ok := other.Shape.Ob(target)
		if !ok {
			return m, c.errorf(name, "vertex %s maps to unknown vertex %s", v.Name, target)
		}
		m.ShapeMap[j] = k
		// blank components are identities
		p, err := parsePath(c.from, doc.Components[v.Name], other.Ob[k])
		if err != nil {
			return m, c.errorf(name, "component %s: %v", v.Name, err)
		}
		m.Components[j] = p
	}
	return m, nil
}

func (c converter) attrImage(doc attrImageDoc, d diagram.Diagram, name string) (diagram.AttrImage, error) {
	v, ok := d.Shape.Ob(doc.Vertex)
	if !ok {
		return diagram.AttrImage{}, c.errorf(name, "unknown vertex %s", doc.Vertex)
	}
	ap, err := c.from.ParseAttrPath(doc.Path)
	if err != nil {
		return diagram.AttrImage{}, c.errorf(name, "%v", err)
	}
	return diagram.AttrImage{Vertex: v, Path: ap}, nil
}

func (c converter) diagrams(nodes map[string]yaml.Node) ([]diagram.Diagram, error) {
	ds := make([]diagram.Diagram, c.to.NObs())
	for i, o := range c.to.Obs {
		n, err := c.node(nodes, o.Name)
		if err != nil {
			return nil, err
		}
		var doc diagramDoc
		if err := n.Decode(&doc); err != nil {
			return nil, c.errorf(o.Name, "%v", err)
		}
		if ds[i], err = c.diagram(doc, o.Name); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func (c converter) homs(nodes map[string]yaml.Node, ds []diagram.Diagram, conjunctive bool) ([]diagram.Hom, error) {
	homs := make([]diagram.Hom, c.to.NHoms())
	for h, hom := range c.to.Homs {
		n, err := c.node(nodes, hom.Name)
		if err != nil {
			return nil, err
		}
		var doc homDoc
		if err := n.Decode(&doc); err != nil {
			return nil, c.errorf(hom.Name, "%v", err)
		}
		index, other := ds[hom.Dom], ds[hom.Cod]
		if conjunctive {
			index, other = other, index
		}
		if homs[h], err = c.hom(doc, index, other, hom.Name); err != nil {
			return nil, err
		}
	}
	return homs, nil
}

func (c converter) conjunctive(doc migrationDoc) (migrate.Migration, error) {
	if err := c.checkNodes(doc.Obs, doc.Homs, doc.Attrs); err != nil {
		return nil, err
	}
	ds, err := c.diagrams(doc.Obs)
	if err != nil {
		return nil, err
	}
	homs, err := c.homs(doc.Homs, ds, true)
	if err != nil {
		return nil, err
	}
	attrs := make([]diagram.AttrImage, c.to.NAttrs())
	for a, attr := range c.to.Attrs {
		n, err := c.node(doc.Attrs, attr.Name)
		if err != nil {
			return nil, err
		}
		var img attrImageDoc
		if err := n.Decode(&img); err != nil {
			return nil, c.errorf(attr.Name, "%v", err)
		}
		if attrs[a], err = c.attrImage(img, ds[attr.Dom], attr.Name); err != nil {
			return nil, err
		}
	}
	return migrate.ConjunctiveMigration{From: c.from, To: c.to, Ob: ds, Hom: homs, Attr: attrs}, nil
}

func (c converter) gluing(doc migrationDoc) (migrate.Migration, error) {
	if err := c.checkNodes(doc.Obs, doc.Homs, doc.Attrs); err != nil {
		return nil, err
	}
	ds, err := c.diagrams(doc.Obs)
	if err != nil {
		return nil, err
	}
	homs, err := c.homs(doc.Homs, ds, false)
	if err != nil {
		return nil, err
	}
	attrs := make([][]schema.AttrPath, c.to.NAttrs())
	for a, attr := range c.to.Attrs {
		n, err := c.node(doc.Attrs, attr.Name)
		if err != nil {
			return nil, err
		}
		// vertex name -> attribute path
		var byVertex map[string]string
		if err := n.Decode(&byVertex); err != nil {
			return nil, c.errorf(attr.Name, "%v", err)
		}
		d := ds[attr.Dom]
		attrs[a] = make([]schema.AttrPath, len(d.Ob))
		for j, v := range d.Shape.Obs {
			expr, ok := byVertex[v.Name]
			if !ok {
				return nil, c.errorf(attr.Name, "vertex %s has no attribute path", v.Name)
			}
			if attrs[a][j], err = c.from.ParseAttrPath(expr); err != nil {
				return nil, c.errorf(attr.Name, "vertex %s: %v", v.Name, err)
			}
		}
	}
	return migrate.GluingMigration{From: c.from, To: c.to, Ob: ds, Hom: homs, Attr: attrs}, nil
}

func (c converter) compound(doc compoundDoc, name string) (diagram.Compound, error) {
	if doc.Shape.Name == "" {
		doc.Shape.Name = name
	}
	shape, err := schema.FreeDiagram(doc.Shape)
	if err != nil {
		return diagram.Compound{}, err
	}
	cd := diagram.Compound{Shape: shape, Ob: make([]diagram.Diagram, shape.NObs()), Hom: make([]diagram.Hom, shape.NHoms())}
	for k, v := range shape.Obs {
		inner, ok := doc.Obs[v.Name]
		if !ok {
			return cd, c.errorf(name, "vertex %s has no diagram", v.Name)
		}
		if cd.Ob[k], err = c.diagram(inner, v.Name); err != nil {
			return cd, err
		}
	}
	for h, e := range shape.Homs {
		hd, ok := doc.Homs[e.Name]
		if !ok {
			return cd, c.errorf(name, "edge %s has no hom", e.Name)
		}
		// inner homs are conjunctive: keyed by the codomain's vertices
		if cd.Hom[h], err = c.hom(hd, cd.Ob[e.Cod], cd.Ob[e.Dom], name+"/"+e.Name); err != nil {
			return cd, err
		}
	}
	return cd, nil
}

func (c converter) gluc(doc migrationDoc) (migrate.Migration, error) {
	if err := c.checkNodes(doc.Obs, doc.Homs, doc.Attrs); err != nil {
		return nil, err
	}
	m := migrate.GlucMigration{
		From: c.from,
		To:   c.to,
		Ob:   make([]diagram.Compound, c.to.NObs()),
		Hom:  make([]diagram.CompoundHom, c.to.NHoms()),
		Attr: make([][]diagram.AttrImage, c.to.NAttrs()),
	}
	for i, o := range c.to.Obs {
		n, err := c.node(doc.Obs, o.Name)
		if err != nil {
			return nil, err
		}
		var cd compoundDoc
		if err := n.Decode(&cd); err != nil {
			return nil, c.errorf(o.Name, "%v", err)
		}
		if m.Ob[i], err = c.compound(cd, o.Name); err != nil {
			return nil, err
		}
	}
	for h, hom := range c.to.Homs {
		n, err := c.node(doc.Homs, hom.Name)
		if err != nil {
			return nil, err
		}
		var hd compoundHomDoc
		if err := n.Decode(&hd); err != nil {
			return nil, c.errorf(hom.Name, "%v", err)
		}
		from, to := m.Ob[hom.Dom], m.Ob[hom.Cod]
		ch := diagram.CompoundHom{ShapeMap: make([]int, len(from.Ob)), Components: make([]diagram.Hom, len(from.Ob))}
		for k, v := range from.Shape.Obs {
			target, ok := hd.ShapeMap[v.Name]
			if !ok {
				return nil, c.errorf(hom.Name, "vertex %s is not mapped", v.Name)
			}
			l, ok := to.Shape.Ob(target)
			if !ok {
				return nil, c.errorf(hom.Name, "vertex %s maps to unknown vertex %s", v.Name, target)
			}
			ch.ShapeMap[k] = l
			comp, ok := hd.Components[v.Name]
			if !ok {
				return nil, c.errorf(hom.Name, "vertex %s has no component", v.Name)
			}
			if ch.Components[k], err = c.hom(comp, to.Ob[l], from.Ob[k], hom.Name+"/"+v.Name); err != nil {
				return nil, err
			}
		}
		m.Hom[h] = ch
	}
	for a, attr := range c.to.Attrs {
		n, err := c.node(doc.Attrs, attr.Name)
		if err != nil {
			return nil, err
		}
		var byVertex map[string]attrImageDoc
		if err := n.Decode(&byVertex); err != nil {
			return nil, c.errorf(attr.Name, "%v", err)
		}
		cd := m.Ob[attr.Dom]
		m.Attr[a] = make([]diagram.AttrImage, len(cd.Ob))
		for k, v := range cd.Shape.Obs {
			img, ok := byVertex[v.Name]
			if !ok {
				return nil, c.errorf(attr.Name, "vertex %s has no attribute image", v.Name)
			}
			if m.Attr[a][k], err = c.attrImage(img, cd.Ob[k], attr.Name); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}
