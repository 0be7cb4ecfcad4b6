package migrate

import (
	"context"

	"catmig/internal/diagram"
	"catmig/internal/finset"
)

// glued is the solution for one gluc target object: the limit of every inner
// diagram and the colimit gluing them.
type glued struct {
	limits []*finset.Limit
	colim  *finset.Colimit
}

// gluc takes a colimit of limits per target object. Inner homs are limit
// transports; target morphisms compose a transport with the outer inclusion.
func (e *Engine) gluc(ctx context.Context, src Source, m GlucMigration) (*output, error) {
	out := newOutput(m.To)
	solved := make([]glued, m.To.NObs())

	err := e.each(ctx, len(m.Ob), func(ctx context.Context, d int) error {
		s, err := e.solveCompound(ctx, src, m.Ob[d], m.To.Obs[d].Name)
		if err != nil {
			return err
		}
		solved[d] = s
		out.nparts[d] = s.colim.Apex
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = e.each(ctx, len(m.Hom), func(_ context.Context, h int) error {
		hom := m.To.Homs[h]
		from, to := solved[hom.Dom], solved[hom.Cod]
		ch := m.Hom[h]
		legs := make([]finset.Function, len(ch.ShapeMap))
		for k, l := range ch.ShapeMap {
			t, err := transport(src, from.limits[k], to.limits[l], ch.Components[k])
			if err != nil {
				return &SolverError{Op: "universal", At: hom.Name, Err: err}
			}
			legs[k] = t.Then(to.colim.Legs[l])
		}
		fn, err := from.colim.Universal(to.colim.Apex, legs)
		if err != nil {
			return &SolverError{Op: "universal", At: hom.Name, Err: err}
		}
		out.homs[h] = fn
		return nil
	})
	if err != nil {
		return nil, err
	}

	for a, attr := range m.To.Attrs {
		s := solved[attr.Dom]
		reads := make([][]any, len(s.limits))
		for k, img := range m.Attr[a] {
			reads[k] = attrValues(src, s.limits[k].Legs[img.Vertex], img.Path)
		}
		values, err := gluedValues(s.colim, attr.Name, func(k, x int) (any, bool) {
			return reads[k][x], true
		})
		if err != nil {
			return nil, err
		}
		out.attrs[a] = values
	}
	return out, nil
}

func (e *Engine) solveCompound(ctx context.Context, src Source, c diagram.Compound, at string) (glued, error) {
	s := glued{limits: make([]*finset.Limit, len(c.Ob))}
	outer := finset.Diagram{Sets: make([]int, len(c.Ob)), Edges: make([]finset.Edge, len(c.Hom))}
	for k, inner := range c.Ob {
		lim, err := e.limit(ctx, src, inner, at+"/"+c.Shape.Obs[k].Name)
		if err != nil {
			return glued{}, err
		}
		s.limits[k] = lim
		outer.Sets[k] = lim.Apex
	}
	for h, hom := range c.Shape.Homs {
		fn, err := transport(src, s.limits[hom.Dom], s.limits[hom.Cod], c.Hom[h])
		if err != nil {
			return glued{}, &SolverError{Op: "universal", At: at + "/" + hom.Name, Err: err}
		}
		outer.Edges[h] = finset.Edge{Src: hom.Dom, Tgt: hom.Cod, Fn: fn}
	}
	colim, err := e.colimit(ctx, outer, at)
	if err != nil {
		return glued{}, err
	}
	s.colim = colim
	return s, nil
}
