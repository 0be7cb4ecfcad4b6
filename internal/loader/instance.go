// Package loader reads and writes the YAML documents catmig works with:
// schema presentations, instances and migrations. Generators are referred to
// by name and paths use the "f.g", "id(X)" and "f.g.attr" syntax.
package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"catmig/internal/instance"
	"catmig/internal/logging"
	"catmig/internal/schema"
)

// instanceDoc is the YAML form of an instance.
type instanceDoc struct {
	Schema schema.Presentation `yaml:"schema"`
	Parts  map[string]int      `yaml:"parts"`
	Homs   map[string][]int    `yaml:"homs,omitempty"`
	Attrs  map[string][]any    `yaml:"attrs,omitempty"`
}

// LoadSchema reads a schema presentation document.
func LoadSchema(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema decodes a schema presentation document.
func ParseSchema(data []byte) (*schema.Schema, error) {
	var p schema.Presentation
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return schema.FreeDiagram(p)
}

// LoadInstance reads an instance document.
func LoadInstance(path string) (*instance.Instance, error) {
	timer := logging.StartTimer(logging.CategoryLoader, "LoadInstance")
	defer timer.Stop()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	x, err := ParseInstance(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	logging.LoaderDebug("Loaded instance %s from %s", x, path)
	return x, nil
}

// ParseInstance decodes an instance document. Every morphism must be given in
// full; attributes may be omitted and are then nil.
func ParseInstance(data []byte) (*instance.Instance, error) {
	var doc instanceDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return convertInstance(doc)
}

func convertInstance(doc instanceDoc) (*instance.Instance, error) {
	s, err := schema.FreeDiagram(doc.Schema)
	if err != nil {
		return nil, err
	}
	x := instance.New(s)

	for name, n := range doc.Parts {
		ob, ok := s.Ob(name)
		if !ok {
			return nil, &schema.SchemaError{Schema: s.Name, Name: name, Reason: "parts given for unknown object"}
		}
		if n < 0 {
			return nil, &schema.SchemaError{Schema: s.Name, Name: name, Reason: fmt.Sprintf("negative part count %d", n)}
		}
		x.AddParts(ob, n)
	}
	for name, values := range doc.Homs {
		h, ok := s.Hom(name)
		if !ok {
			return nil, &schema.SchemaError{Schema: s.Name, Name: name, Reason: "values given for unknown morphism"}
		}
		if err := x.SetHom(h, values); err != nil {
			return nil, fmt.Errorf("morphism %s: %w", name, err)
		}
	}
	for name, values := range doc.Attrs {
		a, ok := s.Attr(name)
		if !ok {
			return nil, &schema.SchemaError{Schema: s.Name, Name: name, Reason: "values given for unknown attribute"}
		}
		if err := x.SetAttr(a, values); err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
	}
	if err := x.Validate(); err != nil {
		return nil, err
	}
	return x, nil
}

// MarshalInstance encodes x as an instance document.
func MarshalInstance(x *instance.Instance) ([]byte, error) {
	s := x.Schema()
	doc := instanceDoc{
		Schema: s.Presentation(),
		Parts:  make(map[string]int, s.NObs()),
	}
	for ob, o := range s.Obs {
		doc.Parts[o.Name] = x.NParts(ob)
	}
	if s.NHoms() > 0 {
		doc.Homs = make(map[string][]int, s.NHoms())
		for h, hom := range s.Homs {
			values := make([]int, x.NParts(hom.Dom))
			for row := range values {
				values[row] = x.Subpart(h, row)
			}
			doc.Homs[hom.Name] = values
		}
	}
	if s.NAttrs() > 0 {
		doc.Attrs = make(map[string][]any, s.NAttrs())
		for a, attr := range s.Attrs {
			values := make([]any, x.NParts(attr.Dom))
			for row := range values {
				values[row] = x.AttrValue(a, row)
			}
			doc.Attrs[attr.Name] = values
		}
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal instance: %w", err)
	}
	return data, nil
}

// WriteInstance writes x to path, creating parent directories.
func WriteInstance(path string, x *instance.Instance) error {
	data, err := MarshalInstance(x)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write instance: %w", err)
	}
	logging.LoaderDebug("Wrote %s to %s", x, path)
	return nil
}
