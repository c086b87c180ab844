// Package schedule implements the Critical Path Method over a typed
// dependency graph: a forward pass for early dates, a backward pass for late
// dates, then slack and the critical set. Computation is pure and
// deterministic; the same inputs always produce bit-identical results.
package schedule

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/papapumpkin/gantry/internal/calendar"
	"github.com/papapumpkin/gantry/internal/dag"
)

// ErrInvalidDuration is returned when a task duration is negative or not a
// finite number.
var ErrInvalidDuration = errors.New("invalid duration")

// Aliases so callers can match every engine failure from this package.
var (
	ErrCyclicDependency = dag.ErrCycle
	ErrUnknownTask      = dag.ErrUnknownTask
)

// Compute runs CPM over tasks and deps. Validation happens up front; on
// any error no partial result is returned.
func Compute(tasks []Task, deps []Dependency, opts Options) (*Result, error) {
	byID := make(map[string]Task, len(tasks))
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if t.Duration < 0 || math.IsNaN(t.Duration) || math.IsInf(t.Duration, 0) {
			return nil, fmt.Errorf("%w: task %q has duration %v", ErrInvalidDuration, t.ID, t.Duration)
		}
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	g, err := dag.Build(ids, deps)
	if err != nil {
		return nil, err
	}

	start := projectStart(tasks, opts.ProjectStart)
	order := g.Order()
	res := make(map[string]*TaskResult, len(order))

	if err := forwardPass(g, order, byID, start, res); err != nil {
		return nil, err
	}

	finish := 0.0
	for _, tr := range res {
		finish = math.Max(finish, tr.EF)
	}

	if err := backwardPass(g, order, byID, finish, res); err != nil {
		return nil, err
	}

	result := &Result{
		Tasks:         res,
		Order:         order,
		ProjectFinish: finish,
		Tracks:        g.ComputeTracks(),
		graph:         g,
	}
	for _, id := range order {
		tr := res[id]
		tr.Slack = tr.LS - tr.ES
		tr.IsCritical = tr.Slack <= Epsilon
		if tr.IsCritical {
			result.Critical = append(result.Critical, id)
		}
	}

	if !start.IsZero() {
		attachDates(result, start)
	}
	return result, nil
}

// forwardPass computes ES and EF in topological order. Each incoming edge
// yields an independent lower bound; the binding one is the maximum. ES is
// never earlier than the project start.
func forwardPass(g *dag.Graph, order []string, tasks map[string]Task, start time.Time, res map[string]*TaskResult) error {
	for _, id := range order {
		t := tasks[id]
		es := 0.0
		if t.Start != nil && !start.IsZero() {
			es = math.Max(es, float64(calendar.WorkingDaysBetween(start, *t.Start)))
		}
		for _, e := range g.Predecessors(id) {
			bound, err := earliestStart(e, res[e.From], t.Duration)
			if err != nil {
				return err
			}
			es = math.Max(es, bound)
		}
		res[id] = &TaskResult{
			TaskID:   id,
			Duration: t.Duration,
			ES:       es,
			EF:       es + t.Duration,
		}
	}
	return nil
}

// backwardPass computes LF and LS in reverse topological order. Each
// outgoing edge yields an independent upper bound; the binding one is the
// minimum. Sinks, and any task whose bounds exceed it, finish at the project
// finish.
func backwardPass(g *dag.Graph, order []string, tasks map[string]Task, finish float64, res map[string]*TaskResult) error {
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		dur := tasks[id].Duration
		lf := finish
		for _, e := range g.Successors(id) {
			bound, err := latestFinish(e, res[e.To], dur)
			if err != nil {
				return err
			}
			lf = math.Min(lf, bound)
		}
		tr := res[id]
		tr.LF = lf
		tr.LS = lf - dur
	}
	return nil
}

// projectStart resolves the calendar anchor: the explicit start if given,
// else the earliest fixed task start, else zero (relative mode).
func projectStart(tasks []Task, explicit time.Time) time.Time {
	if !explicit.IsZero() {
		return calendar.NextWorkingDay(explicit)
	}
	var earliest time.Time
	for _, t := range tasks {
		if t.Start == nil {
			continue
		}
		if earliest.IsZero() || t.Start.Before(earliest) {
			earliest = *t.Start
		}
	}
	if earliest.IsZero() {
		return time.Time{}
	}
	return calendar.NextWorkingDay(earliest)
}

// attachDates maps every offset onto working-day calendar dates.
func attachDates(r *Result, start time.Time) {
	s := start
	r.StartDate = &s
	if len(r.Tasks) > 0 {
		f := finishDate(start, r.ProjectFinish, r.ProjectFinish)
		r.FinishDate = &f
	}
	for _, tr := range r.Tasks {
		tr.Dates = &DateWindow{
			EarlyStart:  startDate(start, tr.ES),
			EarlyFinish: finishDate(start, tr.EF, tr.Duration),
			LateStart:   startDate(start, tr.LS),
			LateFinish:  finishDate(start, tr.LF, tr.Duration),
		}
	}
}

// startDate returns the working day on which work at offset begins.
func startDate(start time.Time, offset float64) time.Time {
	return calendar.AddWorkingDays(start, int(math.Floor(offset+Epsilon)))
}

// finishDate returns the last working day occupied by work ending at
// offset. Zero-length work finishes on the day it starts.
func finishDate(start time.Time, offset, duration float64) time.Time {
	if duration <= Epsilon {
		return startDate(start, offset)
	}
	return calendar.AddWorkingDays(start, int(math.Ceil(offset-Epsilon))-1)
}

// ApplyEstimates returns a copy of tasks with durations replaced by the
// matching entries in durations. Tasks absent from durations keep theirs.
func ApplyEstimates(tasks []Task, durations map[string]float64) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	for i := range out {
		if d, ok := durations[out[i].ID]; ok {
			out[i].Duration = d
		}
	}
	return out
}
