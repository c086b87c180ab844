package schedule

import (
	"time"

	"github.com/sourcegraph/conc/iter"
)

// Project bundles the inputs for one independent graph.
type Project struct {
	Name         string
	Tasks        []Task
	Dependencies []Dependency

	// Start overrides Options.ProjectStart for this project when set.
	Start time.Time
}

// Outcome pairs a project with its result or the validation error that
// prevented one.
type Outcome struct {
	Name   string
	Result *Result
	Err    error
}

// ComputeAll runs CPM over independent projects in parallel. Projects share
// no state; each worker reads its own inputs and fills its own outcome slot,
// so outcomes line up index-for-index with projects. A failure in one project
// does not affect the others.
func ComputeAll(projects []Project, opts Options) []Outcome {
	mapper := iter.Mapper[Project, Outcome]{MaxGoroutines: opts.Workers}
	return mapper.Map(projects, func(p *Project) Outcome {
		o := opts
		if !p.Start.IsZero() {
			o.ProjectStart = p.Start
		}
		res, err := Compute(p.Tasks, p.Dependencies, o)
		return Outcome{Name: p.Name, Result: res, Err: err}
	})
}
