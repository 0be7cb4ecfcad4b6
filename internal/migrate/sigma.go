package migrate

import (
	"context"
	"fmt"
	"reflect"

	"catmig/internal/comma"
	"catmig/internal/finset"
	"catmig/internal/logging"
)

// sigma pushes src forward along F: C → D. Rows of d are the colimit of src
// over (F ↓ d); a generator g: d' → d becomes the universal map induced by the
// inclusion (F ↓ d') → (F ↓ d).
//
// An attribute b of D takes, on each row, the value of any source attribute a
// with F(a) = f.b read at a member (c, f, x) of that row. Rows no source
// attribute reaches are left nil.
func (e *Engine) sigma(ctx context.Context, src Source, m SigmaMigration) (*output, error) {
	f := m.Functor
	cd, err := comma.Build(f)
	if err != nil {
		return nil, err
	}

	d := f.Cod
	out := newOutput(d)
	colimits := make([]*finset.Colimit, d.NObs())
	err = e.each(ctx, d.NObs(), func(ctx context.Context, ob int) error {
		colim, err := e.colimit(ctx, cd.Categories[ob].Compose(src), d.Obs[ob].Name)
		if err != nil {
			return err
		}
		colimits[ob] = colim
		out.nparts[ob] = colim.Apex
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = e.each(ctx, d.NHoms(), func(_ context.Context, g int) error {
		incl := cd.Inclusions[g]
		from, to := colimits[incl.Dom], colimits[incl.Cod]
		if from.Apex == 0 {
			out.homs[g] = finset.Empty(to.Apex)
			return nil
		}
		legs := make([]finset.Function, len(incl.Objects))
		for i, j := range incl.Objects {
			legs[i] = to.Legs[j]
		}
		fn, err := from.Universal(to.Apex, legs)
		if err != nil {
			return &SolverError{Op: "universal", At: d.Homs[g].Name, Err: err}
		}
		out.homs[g] = fn
		return nil
	})
	if err != nil {
		return nil, err
	}

	for b, attr := range d.Attrs {
		k := cd.Categories[attr.Dom]
		// reads[i] is the value table at comma object i, if some source
		// attribute lands there
		reads := make([][]any, len(k.Objects))
		for a, ap := range f.Attr {
			if ap.Attr != b {
				continue
			}
			i, ok := k.Lookup(f.Dom.Attrs[a].Dom, ap.Path)
			if !ok {
				continue
			}
			n := src.NParts(k.Objects[i].Source)
			values := make([]any, n)
			for x := 0; x < n; x++ {
				values[x] = src.AttrValue(a, x)
			}
			if prev := reads[i]; prev != nil {
				for x := range values {
					if !reflect.DeepEqual(prev[x], values[x]) {
						return nil, &SolverError{Op: "attribute", At: attr.Name,
							Err: fmt.Errorf("%w: %s and %s disagree at row %d", ErrAttributeConflict, f.Dom.Attrs[a].Name, attr.Name, x)}
					}
				}
				continue
			}
			reads[i] = values
		}
		values, err := gluedValues(colimits[attr.Dom], attr.Name, func(i, x int) (any, bool) {
			if reads[i] == nil {
				return nil, false
			}
			return reads[i][x], true
		})
		if err != nil {
			return nil, err
		}
		if len(values) > 0 && !anyRead(reads) {
			logging.EngineDebug("attribute %s has no source: %d rows left nil", attr.Name, len(values))
		}
		out.attrs[b] = values
	}
	return out, nil
}

func anyRead(reads [][]any) bool {
	for _, r := range reads {
		if r != nil {
			return true
		}
	}
	return false
}
