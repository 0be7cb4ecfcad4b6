package migrate

import (
	"context"

	"catmig/internal/diagram"
	"catmig/internal/finset"
	"catmig/internal/logging"
)

// gluing solves one colimit per target object. A target morphism becomes the
// universal map out of the colimit of its domain.
func (e *Engine) gluing(ctx context.Context, src Source, m GluingMigration) (*output, error) {
	out := newOutput(m.To)
	colimits := make([]*finset.Colimit, m.To.NObs())

	err := e.each(ctx, len(m.Ob), func(ctx context.Context, d int) error {
		colim, err := e.colimit(ctx, m.Ob[d].Compose(src), m.To.Obs[d].Name)
		if err != nil {
			return err
		}
		colimits[d] = colim
		out.nparts[d] = colim.Apex
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = e.each(ctx, len(m.Hom), func(_ context.Context, h int) error {
		hom := m.To.Homs[h]
		fn, err := glue(src, colimits[hom.Dom], colimits[hom.Cod], m.Hom[h])
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
		dg := m.Ob[attr.Dom]
		reads := make([][]any, len(dg.Ob))
		for j, ap := range m.Attr[a] {
			reads[j] = attrValues(src, finset.Identity(src.NParts(dg.Ob[j])), ap)
		}
		values, err := gluedValues(colimits[attr.Dom], attr.Name, func(j, x int) (any, bool) {
			return reads[j][x], true
		})
		if err != nil {
			return nil, err
		}
		out.attrs[a] = values
	}
	return out, nil
}

func (e *Engine) colimit(ctx context.Context, fd finset.Diagram, at string) (*finset.Colimit, error) {
	colim, err := e.solver.Colimit(ctx, fd)
	if err != nil {
		return nil, &SolverError{Op: "colimit", At: at, Err: err}
	}
	logging.SolverDebug("colimit for %s: %d rows over %d vertices", at, colim.Apex, len(fd.Sets))
	return colim, nil
}

// glue is the map between colimits induced by a gluing diagram hom: the
// cocone whose leg j follows component j and includes at vertex ShapeMap[j].
func glue(src Source, from, to *finset.Colimit, m diagram.Hom) (finset.Function, error) {
	legs := make([]finset.Function, len(m.ShapeMap))
	for j, k := range m.ShapeMap {
		legs[j] = src.PathFunction(m.Components[j]).Then(to.Legs[k])
	}
	return from.Universal(to.Apex, legs)
}
