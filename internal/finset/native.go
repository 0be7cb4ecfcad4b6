package finset

import "context"

// pollEvery is how many candidate tuples the limit search visits between context checks.
const pollEvery = 4096

// NativeSolver computes limits by constrained backtracking and colimits by union-find.
type NativeSolver struct{}

// step assigns one vertex during the limit search. When forcedBy is an edge
// index the vertex value is determined by that edge; otherwise every element
// is tried. checks lists the edges that become fully assigned at this step.
type step struct {
	vertex   int
	forcedBy int
	checks   []int
}

// Limit enumerates the tuples satisfying every edge equation.
func (NativeSolver) Limit(ctx context.Context, d Diagram) (*Limit, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if len(d.Sets) == 0 {
		return NewLimit(d, [][]int{{}}), nil
	}
	for _, n := range d.Sets {
		if n == 0 {
			return NewLimit(d, nil), nil
		}
	}

	plan := limitPlan(d)
	var tuples [][]int
	current := make([]int, len(d.Sets))
	visited := 0

	var search func(k int) error
	search = func(k int) error {
		if k == len(plan) {
			tuples = append(tuples, append([]int(nil), current...))
			return nil
		}
		s := plan[k]
		try := func(x int) error {
			visited++
			if visited%pollEvery == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			current[s.vertex] = x
			for _, ei := range s.checks {
				e := d.Edges[ei]
				if e.Fn.Map[current[e.Src]] != current[e.Tgt] {
					return nil
				}
			}
			return search(k + 1)
		}
		if s.forcedBy >= 0 {
			e := d.Edges[s.forcedBy]
			return try(e.Fn.Map[current[e.Src]])
		}
		for x := 0; x < d.Sets[s.vertex]; x++ {
			if err := try(x); err != nil {
				return err
			}
		}
		return nil
	}

	if err := search(0); err != nil {
		return nil, err
	}
	return NewLimit(d, tuples), nil
}

// limitPlan orders the vertices so that forced assignments come as early as
// possible and free choices start with the smallest sets.
func limitPlan(d Diagram) []step {
	assigned := make([]bool, len(d.Sets))
	usedEdge := make([]bool, len(d.Edges))
	plan := make([]step, 0, len(d.Sets))

	for len(plan) < len(d.Sets) {
		next := step{vertex: -1, forcedBy: -1}
		for i, e := range d.Edges {
			if assigned[e.Src] && !assigned[e.Tgt] {
				next.vertex, next.forcedBy = e.Tgt, i
				break
			}
		}
		if next.vertex < 0 {
			for v, n := range d.Sets {
				if !assigned[v] && (next.vertex < 0 || n < d.Sets[next.vertex]) {
					next.vertex = v
				}
			}
		}
		assigned[next.vertex] = true
		if next.forcedBy >= 0 {
			usedEdge[next.forcedBy] = true
		}
		for i, e := range d.Edges {
			if !usedEdge[i] && assigned[e.Src] && assigned[e.Tgt] {
				usedEdge[i] = true
				next.checks = append(next.checks, i)
			}
		}
		plan = append(plan, next)
	}
	return plan
}

// Colimit glues the disjoint union of the vertex sets along every edge.
func (NativeSolver) Colimit(ctx context.Context, d Diagram) (*Colimit, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	offset := make([]int, len(d.Sets)+1)
	for v, n := range d.Sets {
		offset[v+1] = offset[v] + n
	}
	uf := newUnionFind(offset[len(d.Sets)])
	for _, e := range d.Edges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x, y := range e.Fn.Map {
			uf.union(offset[e.Src]+x, offset[e.Tgt]+y)
		}
	}

	classOf := make(map[int]int)
	c := &Colimit{Diagram: d, Legs: make([]Function, len(d.Sets))}
	for v, n := range d.Sets {
		m := make([]int, n)
		for x := 0; x < n; x++ {
			root := uf.find(offset[v] + x)
			class, ok := classOf[root]
			if !ok {
				class = len(classOf)
				classOf[root] = class
			}
			m[x] = class
		}
		c.Legs[v] = Function{Map: m}
	}
	c.Apex = len(classOf)
	for v := range c.Legs {
		c.Legs[v].Cod = c.Apex
	}
	return c, nil
}
