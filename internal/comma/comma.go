// Package comma builds the comma categories (F ↓ d) of a functor F: C → D
// between free schemas, together with the inclusions (F ↓ d') → (F ↓ d)
// induced by each generator g: d' → d of D.
//
// D must be acyclic. Categories are built in topological order, each from the
// categories of its predecessors, so every (F ↓ d) is finite and morphisms of
// D are compared syntactically.
package comma

import (
	"fmt"

	"catmig/internal/finset"
	"catmig/internal/logging"
	"catmig/internal/schema"
)

// Object is a pair (c, f) with f: F(c) → d a path in D.
type Object struct {
	Source int
	Path   schema.Path
}

// Morphism is a generator h: c → c' of C seen as an arrow (c, f) → (c', f')
// with F(h)·f' = f.
type Morphism struct {
	Src int
	Tgt int
	Hom int
}

// Category is the comma category (F ↓ Target), presented by generators.
type Category struct {
	Target    int
	Objects   []Object
	Morphisms []Morphism

	index map[string]int
}

func newCategory(target int) *Category {
	return &Category{Target: target, index: make(map[string]int)}
}

func objectKey(c int, p schema.Path) string {
	return fmt.Sprintf("%d/%s", c, p.Key())
}

func (k *Category) addObject(c int, p schema.Path) int {
	key := objectKey(c, p)
	if i, ok := k.index[key]; ok {
		return i
	}
	i := len(k.Objects)
	k.Objects = append(k.Objects, Object{Source: c, Path: p})
	k.index[key] = i
	return i
}

// Lookup finds the object (c, p).
func (k *Category) Lookup(c int, p schema.Path) (int, bool) {
	i, ok := k.index[objectKey(c, p)]
	return i, ok
}

// Inclusion is the functor (F ↓ Dom) → (F ↓ Cod) induced by the generator Hom
// of D. Objects[i] is the image of object i and Morphisms[i] the image of
// morphism i.
type Inclusion struct {
	Hom       int
	Dom       int
	Cod       int
	Objects   []int
	Morphisms []int
}

// Diagram is the D-indexed diagram of comma categories.
type Diagram struct {
	Functor    *schema.Functor
	Order      []int
	Categories []*Category
	Inclusions []Inclusion
}

// Build constructs (F ↓ d) for every object d of F.Cod. It returns a
// *schema.CycleError, and nothing else, when F.Cod is not acyclic.
func Build(f *schema.Functor) (*Diagram, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	c, d := f.Dom, f.Cod
	order, err := d.TopologicalOrder()
	if err != nil {
		logging.Get(logging.CategoryComma).Warn("cannot build comma categories over %s: %v", d.Name, err)
		return nil, err
	}
	timer := logging.StartTimer(logging.CategoryComma, "comma categories over "+d.Name)
	defer timer.Stop()

	out := &Diagram{
		Functor:    f,
		Order:      order,
		Categories: make([]*Category, d.NObs()),
		Inclusions: make([]Inclusion, d.NHoms()),
	}

	for _, target := range order {
		k := newCategory(target)

		// objects over target, with the generators sent to the identity
		for _, src := range schema.ObsOver(f.Ob, target) {
			k.addObject(src, schema.Id(target))
		}
		for h, hom := range c.Homs {
			if f.Ob[hom.Dom] != target || !f.Hom[h].IsIdentity() {
				continue
			}
			src, _ := k.Lookup(hom.Dom, schema.Id(target))
			tgt, _ := k.Lookup(hom.Cod, schema.Id(target))
			k.Morphisms = append(k.Morphisms, Morphism{Src: src, Tgt: tgt, Hom: h})
		}

		// everything over a predecessor, pushed forward along g
		for _, g := range d.In(target) {
			prev := out.Categories[d.Homs[g].Dom]
			incl := Inclusion{
				Hom:       g,
				Dom:       prev.Target,
				Cod:       target,
				Objects:   make([]int, len(prev.Objects)),
				Morphisms: make([]int, len(prev.Morphisms)),
			}
			gen := d.Generator(g)
			for i, ob := range prev.Objects {
				p := ob.Path.Then(gen)
				j := k.addObject(ob.Source, p)
				incl.Objects[i] = j
				for _, h := range c.Out(ob.Source) {
					if !f.Hom[h].Equal(p) {
						continue
					}
					tgt, ok := k.Lookup(c.Homs[h].Cod, schema.Id(target))
					if !ok {
						return nil, fmt.Errorf("comma category over %s: %s has no identity object", d.Obs[target].Name, c.Obs[c.Homs[h].Cod].Name)
					}
					k.Morphisms = append(k.Morphisms, Morphism{Src: j, Tgt: tgt, Hom: h})
				}
			}
			for i, m := range prev.Morphisms {
				incl.Morphisms[i] = len(k.Morphisms)
				k.Morphisms = append(k.Morphisms, Morphism{
					Src: incl.Objects[m.Src],
					Tgt: incl.Objects[m.Tgt],
					Hom: m.Hom,
				})
			}
			out.Inclusions[g] = incl
		}

		out.Categories[target] = k
		logging.CommaDebug("(F ↓ %s): %d objects, %d morphisms", d.Obs[target].Name, len(k.Objects), len(k.Morphisms))
	}
	return out, nil
}

// Data is read access to an instance of the functor's domain.
type Data interface {
	NParts(ob int) int
	HomFunction(hom int) finset.Function
}

// Compose evaluates (F ↓ d) in an instance X of C: vertex i is X(c) for
// object (c, f) and each morphism h becomes X(h).
func (k *Category) Compose(x Data) finset.Diagram {
	fd := finset.Diagram{Sets: make([]int, len(k.Objects)), Edges: make([]finset.Edge, len(k.Morphisms))}
	for i, ob := range k.Objects {
		fd.Sets[i] = x.NParts(ob.Source)
	}
	for i, m := range k.Morphisms {
		fd.Edges[i] = finset.Edge{Src: m.Src, Tgt: m.Tgt, Fn: x.HomFunction(m.Hom)}
	}
	return fd
}
