package schedule

// CriticalTasks returns a copy of the critical set in topological order.
// Several zero-slack chains may run in parallel; the set holds all of them.
func (r *Result) CriticalTasks() []string {
	out := make([]string, len(r.Critical))
	copy(out, r.Critical)
	return out
}

// MaxChains is the number of critical chains callers list by default.
// Parallel zero-slack tasks multiply the number of distinct chains, so
// enumeration is always bounded.
const MaxChains = 8

// CriticalChains reconstructs up to limit ordered chains through the
// critical set by following only critical-to-critical edges. Each chain
// starts at a critical task with no critical predecessor and ends at one
// with no critical successor. Chains are emitted in topological order of
// their first task, then depth-first by successor id. A limit of zero or
// less returns nil; the full critical set is always in r.Critical.
func (r *Result) CriticalChains(limit int) [][]string {
	if r.graph == nil || len(r.Critical) == 0 || limit <= 0 {
		return nil
	}
	critical := func(id string) bool {
		tr, ok := r.Task(id)
		return ok && tr.IsCritical
	}

	// nextCritical lists distinct critical successors; parallel edges of
	// different types between the same pair collapse to one step.
	nextCritical := func(id string) []string {
		var next []string
		seen := make(map[string]bool)
		for _, e := range r.graph.Successors(id) {
			if critical(e.To) && !seen[e.To] {
				seen[e.To] = true
				next = append(next, e.To)
			}
		}
		return next
	}

	var chains [][]string
	var walk func(path []string)
	walk = func(path []string) {
		if len(chains) >= limit {
			return
		}
		next := nextCritical(path[len(path)-1])
		if len(next) == 0 {
			chain := make([]string, len(path))
			copy(chain, path)
			chains = append(chains, chain)
			return
		}
		for _, n := range next {
			if len(chains) >= limit {
				return
			}
			walk(append(path, n))
		}
	}

	for _, id := range r.Critical {
		hasCriticalPred := false
		for _, e := range r.graph.Predecessors(id) {
			if critical(e.From) {
				hasCriticalPred = true
				break
			}
		}
		if !hasCriticalPred {
			walk([]string{id})
		}
		if len(chains) >= limit {
			break
		}
	}
	return chains
}
