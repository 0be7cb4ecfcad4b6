// Package mangle computes finite limits as Datalog queries on Google Mangle.
//
// A diagram becomes one unary predicate per vertex holding its elements, one
// binary predicate per edge holding its graph, and a single rule
//
//	lim(X0, ..., Xn) :- v0(X0), ..., vn(Xn), e0(Xs, Xt), ...
//
// whose facts are the compatible tuples. Colimits are not expressible without
// recursion over equivalence classes, so they go to the native solver.
package mangle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"catmig/internal/finset"
	"catmig/internal/logging"
)

// ErrFactLimit is returned when a diagram needs more facts than configured.
var ErrFactLimit = errors.New("fact limit exceeded")

// Config holds Mangle solver configuration.
type Config struct {
	FactLimit    int           `yaml:"fact_limit"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FactLimit:    100000,
		QueryTimeout: 30 * time.Second,
	}
}

// Solver is a finset.Solver whose limits are evaluated by Mangle.
type Solver struct {
	config   Config
	colimits finset.Solver
}

var _ finset.Solver = (*Solver)(nil)

// NewSolver creates a solver.
func NewSolver(cfg Config) *Solver {
	return &Solver{config: cfg, colimits: finset.NativeSolver{}}
}

// Limit evaluates the limit program of d. Mangle evaluation cannot be
// interrupted: when ctx ends first, Limit returns ctx's error at once and the
// evaluation runs to completion in the background, its result discarded.
func (s *Solver) Limit(ctx context.Context, d finset.Diagram) (*finset.Limit, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(d.Sets) == 0 {
		return finset.NewLimit(d, [][]int{{}}), nil
	}
	for _, n := range d.Sets {
		if n == 0 {
			return finset.NewLimit(d, nil), nil
		}
	}

	facts := 0
	for _, n := range d.Sets {
		facts += n
	}
	for _, e := range d.Edges {
		facts += e.Fn.Dom()
	}
	if s.config.FactLimit > 0 && facts > s.config.FactLimit {
		return nil, fmt.Errorf("%w: diagram needs %d facts, limit is %d", ErrFactLimit, facts, s.config.FactLimit)
	}

	program := limitProgram(d)
	logging.DatalogDebug("limit program:\n%s", program)

	unit, err := parse.Unit(strings.NewReader(program))
	if err != nil {
		return nil, fmt.Errorf("failed to parse limit program: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze limit program: %w", err)
	}
	preds := make(map[string]ast.PredicateSym, len(programInfo.Decls))
	for sym := range programInfo.Decls {
		preds[sym.Symbol] = sym
	}

	store := factstore.NewSimpleInMemoryStore()
	for v, n := range d.Sets {
		sym := preds[vertexPred(v)]
		for x := 0; x < n; x++ {
			store.Add(ast.Atom{Predicate: sym, Args: []ast.BaseTerm{ast.Number(int64(x))}})
		}
	}
	for k, e := range d.Edges {
		sym := preds[edgePred(k)]
		for x, y := range e.Fn.Map {
			store.Add(ast.Atom{Predicate: sym, Args: []ast.BaseTerm{ast.Number(int64(x)), ast.Number(int64(y))}})
		}
	}

	if _, ok := ctx.Deadline(); !ok && s.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.QueryTimeout)
		defer cancel()
	}

	start := time.Now()
	resultChan := make(chan [][]int, 1)
	errChan := make(chan error, 1)

	go func() {
		stats, err := mengine.EvalProgramWithStats(programInfo, store)
		if err != nil {
			errChan <- err
			return
		}
		logging.DatalogDebug("evaluation stats: %+v", stats)

		var tuples [][]int
		err = store.GetFacts(ast.NewQuery(preds[limitPred]), func(a ast.Atom) error {
			tuple := make([]int, len(a.Args))
			for i, arg := range a.Args {
				c, ok := arg.(ast.Constant)
				if !ok || c.Type != ast.NumberType {
					return fmt.Errorf("unexpected term %v in lim", arg)
				}
				tuple[i] = int(c.NumValue)
			}
			tuples = append(tuples, tuple)
			return nil
		})
		if err != nil {
			errChan <- err
			return
		}
		if ctx.Err() != nil {
			logging.DatalogDebug("dropping limit result after %v: %v", time.Since(start), ctx.Err())
			return
		}
		resultChan <- tuples
	}()

	select {
	case tuples := <-resultChan:
		logging.DatalogDebug("limit of %d vertices: %d tuples in %v", len(d.Sets), len(tuples), time.Since(start))
		return finset.NewLimit(d, tuples), nil
	case err := <-errChan:
		return nil, fmt.Errorf("limit evaluation failed: %w", err)
	case <-ctx.Done():
		return nil, fmt.Errorf("limit evaluation timed out after %v: %w", time.Since(start), ctx.Err())
	}
}

// Colimit delegates to the native solver.
func (s *Solver) Colimit(ctx context.Context, d finset.Diagram) (*finset.Colimit, error) {
	return s.colimits.Colimit(ctx, d)
}

const limitPred = "lim"

func vertexPred(v int) string { return fmt.Sprintf("v%d", v) }

func edgePred(k int) string { return fmt.Sprintf("e%d", k) }

// limitProgram declares the vertex and edge predicates and the lim rule.
func limitProgram(d finset.Diagram) string {
	vars := make([]string, len(d.Sets))
	for v := range d.Sets {
		vars[v] = fmt.Sprintf("X%d", v)
	}

	var b strings.Builder
	for v := range d.Sets {
		fmt.Fprintf(&b, "Decl %s(X).\n", vertexPred(v))
	}
	for k := range d.Edges {
		fmt.Fprintf(&b, "Decl %s(X, Y).\n", edgePred(k))
	}
	fmt.Fprintf(&b, "Decl %s(%s).\n\n", limitPred, strings.Join(vars, ", "))

	body := make([]string, 0, len(d.Sets)+len(d.Edges))
	for v := range d.Sets {
		body = append(body, fmt.Sprintf("%s(%s)", vertexPred(v), vars[v]))
	}
	for k, e := range d.Edges {
		body = append(body, fmt.Sprintf("%s(%s, %s)", edgePred(k), vars[e.Src], vars[e.Tgt]))
	}
	fmt.Fprintf(&b, "%s(%s) :- %s.\n", limitPred, strings.Join(vars, ", "), strings.Join(body, ", "))
	return b.String()
}
