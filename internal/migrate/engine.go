package migrate

import (
	"context"
	"fmt"
	"reflect"
	"runtime"

	"golang.org/x/sync/errgroup"

	"catmig/internal/finset"
	"catmig/internal/instance"
	"catmig/internal/logging"
	"catmig/internal/schema"
)

// Source is read access to the instance being migrated. The engine never
// writes to it.
type Source interface {
	Schema() *schema.Schema
	NParts(ob int) int
	HomFunction(hom int) finset.Function
	PathFunction(p schema.Path) finset.Function
	AttrValue(attr, row int) any
}

// Config holds engine configuration.
type Config struct {
	// Solver computes limits and colimits. Defaults to finset.NativeSolver.
	Solver finset.Solver
	// Parallelism bounds how many generators are solved at once.
	// Zero means GOMAXPROCS.
	Parallelism int
	// StrictSchemaMatch also requires the instance's schema name to match.
	StrictSchemaMatch bool
}

// Engine runs migrations. It keeps no state between calls and is safe for
// concurrent use.
type Engine struct {
	solver      finset.Solver
	parallelism int
	strict      bool
}

// NewEngine creates an engine.
func NewEngine(cfg Config) *Engine {
	e := &Engine{solver: cfg.Solver, parallelism: cfg.Parallelism, strict: cfg.StrictSchemaMatch}
	if e.solver == nil {
		e.solver = finset.NativeSolver{}
	}
	if e.parallelism <= 0 {
		e.parallelism = runtime.GOMAXPROCS(0)
	}
	return e
}

// Migrate builds the target instance of m from src. Either the whole instance
// is returned or an error and no instance.
func (e *Engine) Migrate(ctx context.Context, src Source, m Migration) (*instance.Instance, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := e.checkSource(src, m.Source()); err != nil {
		return nil, err
	}

	log := logging.Get(logging.CategoryEngine)
	log.Info("%s migration %s -> %s", m.Kind(), m.Source().Name, m.Target().Name)
	timer := logging.StartTimer(logging.CategoryEngine, m.Kind().String()+" migration")
	defer timer.Stop()

	var (
		out *output
		err error
	)
	switch m := m.(type) {
	case DeltaMigration:
		out, err = e.delta(ctx, src, m)
	case ConjunctiveMigration:
		out, err = e.conjunctive(ctx, src, m)
	case GluingMigration:
		out, err = e.gluing(ctx, src, m)
	case GlucMigration:
		out, err = e.gluc(ctx, src, m)
	case SigmaMigration:
		out, err = e.sigma(ctx, src, m)
	default:
		err = fmt.Errorf("unsupported migration %T", m)
	}
	if err != nil {
		log.Warn("%s migration failed: %v", m.Kind(), err)
		return nil, err
	}
	return out.assemble(m.Target())
}

func (e *Engine) checkSource(src Source, want *schema.Schema) error {
	got := src.Schema()
	if !schema.Equivalent(want, got) || (e.strict && want.Name != got.Name) {
		return &DomainMismatchError{Want: want.String(), Got: got.String()}
	}
	if want.Name != got.Name {
		logging.EngineDebug("accepting instance of %s for %s: same presentation", got.Name, want.Name)
	}
	return nil
}

// each runs fn for 0..n-1 with bounded parallelism, stopping at the first error.
func (e *Engine) each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	return g.Wait()
}

// output is the target instance before assembly.
type output struct {
	nparts []int
	homs   []finset.Function
	attrs  [][]any
}

func newOutput(target *schema.Schema) *output {
	return &output{
		nparts: make([]int, target.NObs()),
		homs:   make([]finset.Function, target.NHoms()),
		attrs:  make([][]any, target.NAttrs()),
	}
}

func (o *output) assemble(target *schema.Schema) (*instance.Instance, error) {
	y := instance.New(target)
	for ob, n := range o.nparts {
		y.AddParts(ob, n)
	}
	for h, fn := range o.homs {
		if err := y.SetHom(h, fn.Map); err != nil {
			return nil, fmt.Errorf("assemble %s: %w", target.Name, err)
		}
	}
	for a, values := range o.attrs {
		if err := y.SetAttr(a, values); err != nil {
			return nil, fmt.Errorf("assemble %s: %w", target.Name, err)
		}
	}
	if err := y.Validate(); err != nil {
		return nil, fmt.Errorf("assemble %s: %w", target.Name, err)
	}
	return y, nil
}

// attrValues reads attribute path ap of src through fn, a function into the
// rows where the path starts.
func attrValues(src Source, fn finset.Function, ap schema.AttrPath) []any {
	read := fn.Then(src.PathFunction(ap.Path))
	values := make([]any, read.Dom())
	for r, row := range read.Map {
		values[r] = src.AttrValue(ap.Attr, row)
	}
	return values
}

// gluedValues picks one value per colimit class. Classes no member has a value
// for stay nil; members that disagree are a conflict.
func gluedValues(colim *finset.Colimit, at string, value func(v, x int) (any, bool)) ([]any, error) {
	values := make([]any, colim.Apex)
	for class, members := range colim.Members() {
		set := false
		for _, el := range members {
			val, ok := value(el.Vertex, el.Elem)
			if !ok {
				continue
			}
			if set && !reflect.DeepEqual(values[class], val) {
				return nil, &SolverError{Op: "attribute", At: at,
					Err: fmt.Errorf("%w: row %d is both %v and %v", ErrAttributeConflict, class, values[class], val)}
			}
			values[class], set = val, true
		}
	}
	return values, nil
}
