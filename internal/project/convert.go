package project

import (
	"fmt"
	"time"

	"github.com/papapumpkin/gantry/internal/calendar"
	"github.com/papapumpkin/gantry/internal/dag"
	"github.com/papapumpkin/gantry/internal/pert"
	"github.com/papapumpkin/gantry/internal/resource"
	"github.com/papapumpkin/gantry/internal/schedule"
)

// Start returns the declared project start, or the zero time when unset.
func (f *File) Start() (time.Time, error) {
	if f.Project.Start == "" {
		return time.Time{}, nil
	}
	return calendar.ParseDate(f.Project.Start)
}

// ToTasks converts task specs into engine tasks with durations in working
// days. A task with only an estimate takes its PERT expected value; with
// useEstimates set, every task carrying an estimate does.
func (f *File) ToTasks(useEstimates bool) ([]schedule.Task, error) {
	tasks := make([]schedule.Task, 0, len(f.Tasks))
	for _, ts := range f.Tasks {
		d, err := ts.days()
		if err != nil {
			return nil, err
		}
		t := schedule.Task{ID: ts.ID, Duration: d}
		if ts.Start != "" {
			start, err := calendar.ParseDate(ts.Start)
			if err != nil {
				return nil, fmt.Errorf("task %q: %w", ts.ID, err)
			}
			t.Start = &start
		}
		tasks = append(tasks, t)
	}
	if !useEstimates {
		return tasks, nil
	}

	expected, err := pert.ExpectedDurations(f.Estimates())
	if err != nil {
		return nil, err
	}
	return schedule.ApplyEstimates(tasks, expected), nil
}

// days resolves a task's declared duration in working days.
func (ts TaskSpec) days() (float64, error) {
	var d float64
	switch {
	case ts.Duration != nil:
		d = *ts.Duration
	case ts.Estimate != nil:
		r, err := pert.Calculate(inDays(*ts.Estimate, ts.unit()))
		if err != nil {
			return 0, fmt.Errorf("task %q: %w", ts.ID, err)
		}
		return r.Expected, nil
	default:
		return 0, fmt.Errorf("task %q: %w: duration or estimate", ts.ID, ErrMissingField)
	}
	if ts.unit() == UnitHours {
		d = calendar.HoursToDays(d)
	}
	return d, nil
}

// Estimates returns the PERT estimate of every task that declares one,
// converted to working days.
func (f *File) Estimates() map[string]pert.Estimate {
	out := make(map[string]pert.Estimate)
	for _, ts := range f.Tasks {
		if ts.Estimate != nil {
			out[ts.ID] = inDays(*ts.Estimate, ts.unit())
		}
	}
	return out
}

func inDays(e pert.Estimate, unit string) pert.Estimate {
	if unit != UnitHours {
		return e
	}
	return pert.Estimate{
		Optimistic:  calendar.HoursToDays(e.Optimistic),
		MostLikely:  calendar.HoursToDays(e.MostLikely),
		Pessimistic: calendar.HoursToDays(e.Pessimistic),
	}
}

// ToEdges converts dependency specs into typed graph edges.
func (f *File) ToEdges() ([]dag.Edge, error) {
	edges := make([]dag.Edge, 0, len(f.Dependencies))
	for _, d := range f.Dependencies {
		rel, err := dag.ParseRelation(d.Type)
		if err != nil {
			return nil, fmt.Errorf("dependency %s -> %s: %w", d.From, d.To, err)
		}
		edges = append(edges, dag.Edge{From: d.From, To: d.To, Relation: rel, Lag: d.Lag})
	}
	return edges, nil
}

// Capacity returns the daily capacity of every declared resource.
func (f *File) Capacity() resource.Capacity {
	c := make(resource.Capacity, len(f.Resources))
	for _, r := range f.Resources {
		c[r.ID] = r.HoursPerDay
	}
	return c
}

// ToAllocations converts allocation specs into dated resource allocations.
func (f *File) ToAllocations() ([]resource.Allocation, error) {
	out := make([]resource.Allocation, 0, len(f.Allocations))
	for i, a := range f.Allocations {
		start, err := calendar.ParseDate(a.Start)
		if err != nil {
			return nil, fmt.Errorf("allocations[%d] start: %w", i, err)
		}
		end, err := calendar.ParseDate(a.End)
		if err != nil {
			return nil, fmt.Errorf("allocations[%d] end: %w", i, err)
		}
		out = append(out, resource.Allocation{
			ResourceID:  a.Resource,
			TaskID:      a.Task,
			Start:       start,
			End:         end,
			HoursPerDay: a.HoursPerDay,
		})
	}
	return out, nil
}
