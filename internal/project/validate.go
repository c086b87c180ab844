package project

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/papapumpkin/gantry/internal/calendar"
	"github.com/papapumpkin/gantry/internal/dag"
)

// Validate checks a project for structural correctness: required fields,
// unique IDs, resolvable references, well-formed values. Every problem is
// reported; cycles are left to the graph builder.
func Validate(f *File) []ValidationError {
	v := validator{file: f.SourceFile}
	if v.file == "" {
		v.file = "<project>"
	}

	if f.Project.Name == "" {
		v.add(ValCatMissingField, "", "project.name", fmt.Errorf("%w: project.name", ErrMissingField))
	}
	v.date("", "project.start", f.Project.Start)

	tasks := make(map[string]bool, len(f.Tasks))
	for i, t := range f.Tasks {
		if t.ID == "" {
			v.add(ValCatMissingField, fmt.Sprintf("tasks[%d]", i), "id", fmt.Errorf("%w: id", ErrMissingField))
			continue
		}
		subject := fmt.Sprintf("task %q", t.ID)
		if tasks[t.ID] {
			v.add(ValCatDuplicateID, subject, "id", fmt.Errorf("%w: task %q already defined", ErrDuplicateID, t.ID))
		}
		tasks[t.ID] = true

		switch {
		case t.Duration == nil && t.Estimate == nil:
			v.add(ValCatMissingField, subject, "duration", fmt.Errorf("%w: duration or estimate", ErrMissingField))
		case t.Duration != nil && !nonNegative(*t.Duration):
			v.add(ValCatBadValue, subject, "duration", fmt.Errorf("%w: duration must be >= 0, got %v", ErrBadValue, *t.Duration))
		}
		if t.Estimate != nil {
			if err := t.Estimate.Validate(); err != nil {
				v.add(ValCatBadValue, subject, "estimate", fmt.Errorf("%w: %w", ErrBadValue, err))
			}
		}
		if u := t.unit(); u != UnitDays && u != UnitHours {
			v.add(ValCatBadValue, subject, "unit", fmt.Errorf("%w: unit must be %q or %q, got %q", ErrBadValue, UnitDays, UnitHours, u))
		}
		v.date(subject, "start", t.Start)
	}

	for i, d := range f.Dependencies {
		subject := fmt.Sprintf("dependencies[%d]", i)
		if d.From != "" && d.To != "" {
			subject = fmt.Sprintf("dependency %s -> %s", d.From, d.To)
		}
		v.ref(subject, "from", d.From, "task", tasks)
		v.ref(subject, "to", d.To, "task", tasks)
		if _, err := dag.ParseRelation(d.Type); err != nil {
			v.add(ValCatBadValue, subject, "type", fmt.Errorf("%w: %w", ErrBadValue, err))
		}
		if math.IsNaN(d.Lag) || math.IsInf(d.Lag, 0) {
			v.add(ValCatBadValue, subject, "lag", fmt.Errorf("%w: lag must be finite", ErrBadValue))
		}
	}

	resources := make(map[string]bool, len(f.Resources))
	for i, r := range f.Resources {
		if r.ID == "" {
			v.add(ValCatMissingField, fmt.Sprintf("resources[%d]", i), "id", fmt.Errorf("%w: id", ErrMissingField))
			continue
		}
		subject := fmt.Sprintf("resource %q", r.ID)
		if resources[r.ID] {
			v.add(ValCatDuplicateID, subject, "id", fmt.Errorf("%w: resource %q already defined", ErrDuplicateID, r.ID))
		}
		resources[r.ID] = true
		if !nonNegative(r.HoursPerDay) {
			v.add(ValCatBadValue, subject, "hours_per_day", fmt.Errorf("%w: hours_per_day must be >= 0, got %v", ErrBadValue, r.HoursPerDay))
		}
	}

	for i, a := range f.Allocations {
		subject := fmt.Sprintf("allocations[%d]", i)
		v.ref(subject, "resource", a.Resource, "resource", resources)
		v.ref(subject, "task", a.Task, "task", tasks)
		if !nonNegative(a.HoursPerDay) {
			v.add(ValCatBadValue, subject, "hours_per_day", fmt.Errorf("%w: hours_per_day must be >= 0, got %v", ErrBadValue, a.HoursPerDay))
		}
		if a.Start == "" {
			v.add(ValCatMissingField, subject, "start", fmt.Errorf("%w: start", ErrMissingField))
		}
		if a.End == "" {
			v.add(ValCatMissingField, subject, "end", fmt.Errorf("%w: end", ErrMissingField))
		}
		start, okStart := v.date(subject, "start", a.Start)
		end, okEnd := v.date(subject, "end", a.End)
		if okStart && okEnd && end.Before(start) {
			v.add(ValCatBadValue, subject, "end", fmt.Errorf("%w: end %s is before start %s", ErrBadValue, a.End, a.Start))
		}
	}

	return v.errs
}

// Check validates f and folds any problems into a single error wrapping
// ErrInvalid and every individual ValidationError.
func Check(f *File) error {
	verrs := Validate(f)
	if len(verrs) == 0 {
		return nil
	}
	errs := make([]error, 0, len(verrs)+1)
	errs = append(errs, fmt.Errorf("%w: %d problem(s)", ErrInvalid, len(verrs)))
	for i := range verrs {
		errs = append(errs, &verrs[i])
	}
	return errors.Join(errs...)
}

type validator struct {
	file string
	errs []ValidationError
}

func (v *validator) add(cat ValidationCategory, subject, field string, err error) {
	v.errs = append(v.errs, ValidationError{
		Category:   cat,
		Subject:    subject,
		SourceFile: v.file,
		Field:      field,
		Err:        err,
	})
}

func (v *validator) ref(subject, field, id, kind string, known map[string]bool) {
	switch {
	case id == "":
		v.add(ValCatMissingField, subject, field, fmt.Errorf("%w: %s", ErrMissingField, field))
	case !known[id]:
		v.add(ValCatUnknownRef, subject, field, fmt.Errorf("%w: %s %q", ErrUnknownRef, kind, id))
	}
}

// date parses an optional date field, recording a problem when malformed.
// The bool reports whether a usable date was parsed.
func (v *validator) date(subject, field, s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	d, err := calendar.ParseDate(s)
	if err != nil {
		v.add(ValCatBadValue, subject, field, fmt.Errorf("%w: %w", ErrBadValue, err))
		return time.Time{}, false
	}
	return d, true
}

func nonNegative(x float64) bool {
	return x >= 0 && !math.IsInf(x, 0)
}
