// Package instance stores the data of a schema: rows per object and total
// functions per morphism and attribute. Rows of an object are 0..n-1.
package instance

import (
	"fmt"
	"reflect"

	"catmig/internal/finset"
	"catmig/internal/schema"
)

// Instance is a concrete database state for a schema.
type Instance struct {
	schema *schema.Schema
	nparts []int
	homs   [][]int
	attrs  [][]any
}

// New creates an empty instance of s.
func New(s *schema.Schema) *Instance {
	return &Instance{
		schema: s,
		nparts: make([]int, s.NObs()),
		homs:   make([][]int, s.NHoms()),
		attrs:  make([][]any, s.NAttrs()),
	}
}

// Schema returns the schema the instance realises.
func (x *Instance) Schema() *schema.Schema { return x.schema }

// NParts returns the row count of an object.
func (x *Instance) NParts(ob int) int { return x.nparts[ob] }

// Parts lists the rows of an object.
func (x *Instance) Parts(ob int) []int {
	rows := make([]int, x.nparts[ob])
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// Subpart applies a morphism to a row of its domain. Unset entries are -1.
func (x *Instance) Subpart(hom, row int) int { return x.homs[hom][row] }

// AttrValue applies an attribute to a row of its domain.
func (x *Instance) AttrValue(attr, row int) any { return x.attrs[attr][row] }

// AddParts appends n rows to ob and returns the first new row. Morphisms and
// attributes out of ob are extended with unset entries.
func (x *Instance) AddParts(ob, n int) int {
	first := x.nparts[ob]
	x.nparts[ob] += n
	for h, hom := range x.schema.Homs {
		if hom.Dom != ob {
			continue
		}
		for i := 0; i < n; i++ {
			x.homs[h] = append(x.homs[h], -1)
		}
	}
	for a, attr := range x.schema.Attrs {
		if attr.Dom == ob {
			x.attrs[a] = append(x.attrs[a], make([]any, n)...)
		}
	}
	return first
}

// SetHom assigns a morphism's whole function.
func (x *Instance) SetHom(hom int, values []int) error {
	h := x.schema.Homs[hom]
	if len(values) != x.nparts[h.Dom] {
		return fmt.Errorf("%s: %d values for %d rows of %s", h.Name, len(values), x.nparts[h.Dom], x.schema.Obs[h.Dom].Name)
	}
	for row, v := range values {
		if v < 0 || v >= x.nparts[h.Cod] {
			return fmt.Errorf("%s: row %d maps to %d, outside %s", h.Name, row, v, x.schema.Obs[h.Cod].Name)
		}
	}
	x.homs[hom] = append([]int(nil), values...)
	return nil
}

// SetSubpart assigns one entry of a morphism.
func (x *Instance) SetSubpart(hom, row, value int) error {
	h := x.schema.Homs[hom]
	if row < 0 || row >= x.nparts[h.Dom] || value < 0 || value >= x.nparts[h.Cod] {
		return fmt.Errorf("%s: cannot set row %d to %d", h.Name, row, value)
	}
	x.homs[hom][row] = value
	return nil
}

// SetAttr assigns an attribute's whole function.
func (x *Instance) SetAttr(attr int, values []any) error {
	a := x.schema.Attrs[attr]
	if len(values) != x.nparts[a.Dom] {
		return fmt.Errorf("%s: %d values for %d rows of %s", a.Name, len(values), x.nparts[a.Dom], x.schema.Obs[a.Dom].Name)
	}
	x.attrs[attr] = append([]any(nil), values...)
	return nil
}

// HomFunction returns a copy of a morphism as a finite function.
func (x *Instance) HomFunction(hom int) finset.Function {
	h := x.schema.Homs[hom]
	return finset.NewFunction(append([]int(nil), x.homs[hom]...), x.nparts[h.Cod])
}

// PathFunction composes the functions along a path.
func (x *Instance) PathFunction(p schema.Path) finset.Function {
	f := finset.Identity(x.nparts[p.Dom])
	for _, h := range p.Homs {
		f = f.Then(x.HomFunction(h))
	}
	return f
}

// Validate checks the totality invariant: every morphism is defined on every
// row of its domain and lands inside its codomain.
func (x *Instance) Validate() error {
	for h, hom := range x.schema.Homs {
		if len(x.homs[h]) != x.nparts[hom.Dom] {
			return fmt.Errorf("%s defined on %d of %d rows", hom.Name, len(x.homs[h]), x.nparts[hom.Dom])
		}
		for row, v := range x.homs[h] {
			if v < 0 || v >= x.nparts[hom.Cod] {
				return fmt.Errorf("%s: row %d maps to %d, outside %s", hom.Name, row, v, x.schema.Obs[hom.Cod].Name)
			}
		}
	}
	for a, attr := range x.schema.Attrs {
		if len(x.attrs[a]) != x.nparts[attr.Dom] {
			return fmt.Errorf("%s defined on %d of %d rows", attr.Name, len(x.attrs[a]), x.nparts[attr.Dom])
		}
	}
	return nil
}

// Equal reports literal equality of rows and functions over equivalent schemas.
func (x *Instance) Equal(y *Instance) bool {
	if !schema.Equivalent(x.schema, y.schema) {
		return false
	}
	return reflect.DeepEqual(x.nparts, y.nparts) &&
		reflect.DeepEqual(normalizeHoms(x.homs), normalizeHoms(y.homs)) &&
		reflect.DeepEqual(normalizeAttrs(x.attrs), normalizeAttrs(y.attrs))
}

func normalizeHoms(homs [][]int) [][]int {
	out := make([][]int, len(homs))
	for i, h := range homs {
		out[i] = append([]int{}, h...)
	}
	return out
}

func normalizeAttrs(attrs [][]any) [][]any {
	out := make([][]any, len(attrs))
	for i, a := range attrs {
		out[i] = append([]any{}, a...)
	}
	return out
}

// String renders the row counts, e.g. "Graph{V:3, E:2}".
func (x *Instance) String() string {
	s := x.schema.Name + "{"
	for ob, o := range x.schema.Obs {
		if ob > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s:%d", o.Name, x.nparts[ob])
	}
	return s + "}"
}
