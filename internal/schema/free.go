package schema

// Presentation is the named, symbolic form of a schema as it appears in documents.
type Presentation struct {
	Name  string     `yaml:"name" json:"name"`
	Obs   []string   `yaml:"obs" json:"obs"`
	Homs  []HomDecl  `yaml:"homs,omitempty" json:"homs,omitempty"`
	Attrs []AttrDecl `yaml:"attrs,omitempty" json:"attrs,omitempty"`
}

// HomDecl declares a morphism generator by the names of its endpoints.
type HomDecl struct {
	Name string `yaml:"name" json:"name"`
	Dom  string `yaml:"dom" json:"dom"`
	Cod  string `yaml:"cod" json:"cod"`
}

// AttrDecl declares an attribute generator.
type AttrDecl struct {
	Name string `yaml:"name" json:"name"`
	Dom  string `yaml:"dom" json:"dom"`
	Type string `yaml:"type" json:"type"`
}

// FreeDiagram resolves a presentation into its graph: one vertex per object
// generator and one edge per morphism generator, with endpoints looked up by name.
// A dangling endpoint or a duplicate generator name yields a *SchemaError.
func FreeDiagram(p Presentation) (*Schema, error) {
	s := &Schema{Name: p.Name}

	seen := make(map[string]bool, len(p.Obs))
	obs := make(map[string]int, len(p.Obs))
	for i, name := range p.Obs {
		if name == "" {
			return nil, &SchemaError{Schema: p.Name, Reason: "empty object name"}
		}
		if seen[name] {
			return nil, &SchemaError{Schema: p.Name, Name: name, Reason: "duplicate generator"}
		}
		seen[name] = true
		obs[name] = i
		s.Obs = append(s.Obs, Ob{Name: name})
	}

	for _, h := range p.Homs {
		if seen[h.Name] {
			return nil, &SchemaError{Schema: p.Name, Name: h.Name, Reason: "duplicate generator"}
		}
		seen[h.Name] = true
		dom, ok := obs[h.Dom]
		if !ok {
			return nil, &SchemaError{Schema: p.Name, Name: h.Name, Reason: "unknown domain " + h.Dom}
		}
		cod, ok := obs[h.Cod]
		if !ok {
			return nil, &SchemaError{Schema: p.Name, Name: h.Name, Reason: "unknown codomain " + h.Cod}
		}
		s.Homs = append(s.Homs, Hom{Name: h.Name, Dom: dom, Cod: cod})
	}

	for _, a := range p.Attrs {
		if seen[a.Name] {
			return nil, &SchemaError{Schema: p.Name, Name: a.Name, Reason: "duplicate generator"}
		}
		seen[a.Name] = true
		dom, ok := obs[a.Dom]
		if !ok {
			return nil, &SchemaError{Schema: p.Name, Name: a.Name, Reason: "unknown domain " + a.Dom}
		}
		s.Attrs = append(s.Attrs, Attr{Name: a.Name, Dom: dom, Type: a.Type})
	}

	s.index()
	return s, nil
}

// MustFreeDiagram is FreeDiagram for presentations known to be well formed.
func MustFreeDiagram(p Presentation) *Schema {
	s, err := FreeDiagram(p)
	if err != nil {
		panic(err)
	}
	return s
}

// Presentation converts the schema back to its named form.
func (s *Schema) Presentation() Presentation {
	p := Presentation{Name: s.Name}
	for _, ob := range s.Obs {
		p.Obs = append(p.Obs, ob.Name)
	}
	for _, h := range s.Homs {
		p.Homs = append(p.Homs, HomDecl{Name: h.Name, Dom: s.Obs[h.Dom].Name, Cod: s.Obs[h.Cod].Name})
	}
	for _, a := range s.Attrs {
		p.Attrs = append(p.Attrs, AttrDecl{Name: a.Name, Dom: s.Obs[a.Dom].Name, Type: a.Type})
	}
	return p
}
