package schema

// TopologicalOrder orders the objects so that every morphism generator runs from
// an earlier object to a later one (Kahn's algorithm, ties broken by index).
// A self-loop or longer cycle yields a *CycleError and no order.
func (s *Schema) TopologicalOrder() ([]int, error) {
	indegree := make([]int, len(s.Obs))
	for _, h := range s.Homs {
		indegree[h.Cod]++
	}

	queue := make([]int, 0, len(s.Obs))
	for ob, n := range indegree {
		if n == 0 {
			queue = append(queue, ob)
		}
	}

	order := make([]int, 0, len(s.Obs))
	for len(queue) > 0 {
		ob := queue[0]
		queue = queue[1:]
		order = append(order, ob)
		for _, h := range s.out[ob] {
			cod := s.Homs[h].Cod
			indegree[cod]--
			if indegree[cod] == 0 {
				queue = append(queue, cod)
			}
		}
	}

	if len(order) < len(s.Obs) {
		var stuck []string
		for ob, n := range indegree {
			if n > 0 {
				stuck = append(stuck, s.Obs[ob].Name)
			}
		}
		return nil, &CycleError{Schema: s.Name, Obs: stuck}
	}
	return order, nil
}

// IsAcyclic reports whether the schema graph has no directed cycle.
func (s *Schema) IsAcyclic() bool {
	_, err := s.TopologicalOrder()
	return err == nil
}
