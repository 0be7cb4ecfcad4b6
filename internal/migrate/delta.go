package migrate

import (
	"context"

	"catmig/internal/finset"
)

// delta re-indexes src along F: rows of d are the rows of F(d) and every
// morphism or attribute is read through its image path.
func (e *Engine) delta(ctx context.Context, src Source, m DeltaMigration) (*output, error) {
	f := m.Functor
	out := newOutput(f.Dom)
	for d, c := range f.Ob {
		out.nparts[d] = src.NParts(c)
	}
	err := e.each(ctx, len(f.Hom), func(_ context.Context, h int) error {
		out.homs[h] = src.PathFunction(f.Hom[h])
		return nil
	})
	if err != nil {
		return nil, err
	}
	for a, ap := range f.Attr {
		dom := f.Dom.Attrs[a].Dom
		out.attrs[a] = attrValues(src, finset.Identity(out.nparts[dom]), ap)
	}
	return out, nil
}
