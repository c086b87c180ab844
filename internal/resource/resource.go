// Package resource detects per-resource, per-day overallocation from
// task allocations. The detector is calendar-agnostic: every date in an
// allocation's inclusive interval carries the full declared hours, weekends
// included, unless the caller opts to skip them.
package resource

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/papapumpkin/gantry/internal/calendar"
)

// Epsilon absorbs floating-point error when comparing summed hours against
// capacity.
const Epsilon = 1e-6

var (
	// ErrInvalidInterval is returned when an allocation ends before it starts.
	ErrInvalidInterval = errors.New("invalid allocation interval")
	// ErrInvalidHours is returned for negative or non-finite hours.
	ErrInvalidHours = errors.New("invalid hours")
	// ErrUnknownResource is returned when an allocation names a resource
	// missing from the capacity table.
	ErrUnknownResource = errors.New("unknown resource")
)

// Allocation commits HoursPerDay of a resource to a task on every date in
// [Start, End].
type Allocation struct {
	ResourceID  string    `json:"resource_id"`
	TaskID      string    `json:"task_id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	HoursPerDay float64   `json:"hours_per_day"`
}

// Capacity maps a resource id to its available hours per day.
type Capacity map[string]float64

// Conflict records one overallocated resource-day.
type Conflict struct {
	ResourceID string    `json:"resource_id"`
	Date       time.Time `json:"date"`
	Allocated  float64   `json:"allocated"`
	Available  float64   `json:"available"`
	TaskIDs    []string  `json:"task_ids"`
}

// Overage returns the hours allocated beyond capacity.
func (c Conflict) Overage() float64 {
	return c.Allocated - c.Available
}

// Options tunes detection.
type Options struct {
	// SkipWeekends drops Saturdays and Sundays from the analysis.
	SkipWeekends bool

	// Workers bounds how many resources are analysed concurrently. Zero
	// means GOMAXPROCS.
	Workers int
}

// dayLoad is the summed commitment of one resource on one date.
type dayLoad struct {
	date  time.Time
	hours float64
	tasks []string
}

// Detect returns every resource-day whose summed hours exceed the
// resource's capacity, sorted by resource id then date. Inputs are
// validated up front; on error nothing is returned.
func Detect(capacity Capacity, allocs []Allocation, opts Options) ([]Conflict, error) {
	groups, err := group(capacity, allocs)
	if err != nil {
		return nil, err
	}

	perResource := analyse(groups, opts, func(id string, loads []dayLoad) []Conflict {
		available := capacity[id]
		var out []Conflict
		for _, l := range loads {
			if l.hours > available+Epsilon {
				out = append(out, Conflict{
					ResourceID: id,
					Date:       l.date,
					Allocated:  l.hours,
					Available:  available,
					TaskIDs:    l.tasks,
				})
			}
		}
		return out
	})

	var conflicts []Conflict
	for _, cs := range perResource {
		conflicts = append(conflicts, cs...)
	}
	return conflicts, nil
}

// Usage summarizes how heavily a resource is booked over the dates its
// allocations cover.
type Usage struct {
	ResourceID        string    `json:"resource_id"`
	Available         float64   `json:"available"`
	TotalHours        float64   `json:"total_hours"`
	PeakHours         float64   `json:"peak_hours"`
	PeakDate          time.Time `json:"peak_date"`
	Days              int       `json:"days"`
	OverallocatedDays int       `json:"overallocated_days"`
}

// Utilization returns one Usage per allocated resource, sorted by id.
func Utilization(capacity Capacity, allocs []Allocation, opts Options) ([]Usage, error) {
	groups, err := group(capacity, allocs)
	if err != nil {
		return nil, err
	}

	return analyse(groups, opts, func(id string, loads []dayLoad) Usage {
		u := Usage{ResourceID: id, Available: capacity[id], Days: len(loads)}
		for _, l := range loads {
			u.TotalHours += l.hours
			if l.hours > u.PeakHours {
				u.PeakHours = l.hours
				u.PeakDate = l.date
			}
			if l.hours > u.Available+Epsilon {
				u.OverallocatedDays++
			}
		}
		return u
	}), nil
}

type resourceGroup struct {
	id     string
	allocs []Allocation
}

// group validates allocations and buckets them by resource, sorted by id.
func group(capacity Capacity, allocs []Allocation) ([]resourceGroup, error) {
	for id, hours := range capacity {
		if hours < 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
			return nil, fmt.Errorf("%w: resource %q has capacity %v", ErrInvalidHours, id, hours)
		}
	}

	byResource := make(map[string][]Allocation)
	for _, a := range allocs {
		if _, ok := capacity[a.ResourceID]; !ok {
			return nil, fmt.Errorf("%w: %q (allocated to task %q)", ErrUnknownResource, a.ResourceID, a.TaskID)
		}
		if a.HoursPerDay < 0 || math.IsNaN(a.HoursPerDay) || math.IsInf(a.HoursPerDay, 0) {
			return nil, fmt.Errorf("%w: task %q on %q has %v hours/day", ErrInvalidHours, a.TaskID, a.ResourceID, a.HoursPerDay)
		}
		if calendar.Normalize(a.End).Before(calendar.Normalize(a.Start)) {
			return nil, fmt.Errorf("%w: task %q on %q ends %s before it starts %s", ErrInvalidInterval,
				a.TaskID, a.ResourceID, calendar.FormatDate(a.End), calendar.FormatDate(a.Start))
		}
		byResource[a.ResourceID] = append(byResource[a.ResourceID], a)
	}

	groups := make([]resourceGroup, 0, len(byResource))
	for id, as := range byResource {
		groups = append(groups, resourceGroup{id: id, allocs: as})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].id < groups[j].id })
	return groups, nil
}

// analyse fans resources out across workers. Resources share no state, so
// each worker computes its own daily loads and writes only its own slot.
func analyse[R any](groups []resourceGroup, opts Options, f func(id string, loads []dayLoad) R) []R {
	mapper := iter.Mapper[resourceGroup, R]{MaxGoroutines: opts.Workers}
	return mapper.Map(groups, func(g *resourceGroup) R {
		return f(g.id, dailyLoads(g.allocs, opts.SkipWeekends))
	})
}

// dailyLoads sums hours per date across allocations, sorted by date.
func dailyLoads(allocs []Allocation, skipWeekends bool) []dayLoad {
	loads := make(map[time.Time]*dayLoad)
	for _, a := range allocs {
		for _, d := range calendar.Dates(a.Start, a.End) {
			if skipWeekends && !calendar.IsWorkingDay(d) {
				continue
			}
			l, ok := loads[d]
			if !ok {
				l = &dayLoad{date: d}
				loads[d] = l
			}
			l.hours += a.HoursPerDay
			if a.HoursPerDay > 0 {
				l.tasks = append(l.tasks, a.TaskID)
			}
		}
	}

	out := make([]dayLoad, 0, len(loads))
	for _, l := range loads {
		l.tasks = dedupeSorted(l.tasks)
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].date.Before(out[j].date) })
	return out
}

func dedupeSorted(ids []string) []string {
	if len(ids) == 0 {
		return ids
	}
	sort.Strings(ids)
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
