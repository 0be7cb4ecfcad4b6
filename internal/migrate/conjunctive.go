package migrate

import (
	"context"

	"catmig/internal/diagram"
	"catmig/internal/finset"
	"catmig/internal/logging"
)

// conjunctive solves one limit per target object. A target morphism becomes
// the universal map into the limit of its codomain.
func (e *Engine) conjunctive(ctx context.Context, src Source, m ConjunctiveMigration) (*output, error) {
	out := newOutput(m.To)
	limits := make([]*finset.Limit, m.To.NObs())

	err := e.each(ctx, len(m.Ob), func(ctx context.Context, d int) error {
		lim, err := e.limit(ctx, src, m.Ob[d], m.To.Obs[d].Name)
		if err != nil {
			return err
		}
		limits[d] = lim
		out.nparts[d] = lim.Apex
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = e.each(ctx, len(m.Hom), func(_ context.Context, h int) error {
		hom := m.To.Homs[h]
		fn, err := transport(src, limits[hom.Dom], limits[hom.Cod], m.Hom[h])
		if err != nil {
			return &SolverError{Op: "universal", At: hom.Name, Err: err}
		}
		out.homs[h] = fn
		return nil
	})
	if err != nil {
		return nil, err
	}

	for a, img := range m.Attr {
		lim := limits[m.To.Attrs[a].Dom]
		out.attrs[a] = attrValues(src, lim.Legs[img.Vertex], img.Path)
	}
	return out, nil
}

func (e *Engine) limit(ctx context.Context, src Source, d diagram.Diagram, at string) (*finset.Limit, error) {
	lim, err := e.solver.Limit(ctx, d.Compose(src))
	if err != nil {
		return nil, &SolverError{Op: "limit", At: at, Err: err}
	}
	logging.SolverDebug("limit for %s: %d rows over %d vertices", at, lim.Apex, len(d.Ob))
	return lim, nil
}

// transport is the map from one limit to another induced by a conjunctive
// diagram hom: the cone over the target diagram whose leg j projects onto
// vertex ShapeMap[j] and follows component j.
func transport(src Source, from, to *finset.Limit, m diagram.Hom) (finset.Function, error) {
	legs := make([]finset.Function, len(m.ShapeMap))
	for j, k := range m.ShapeMap {
		legs[j] = from.Legs[k].Then(src.PathFunction(m.Components[j]))
	}
	return to.Universal(from.Apex, legs)
}
