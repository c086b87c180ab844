// Package project reads project files (TOML or YAML), validates them, and
// converts them into scheduling and allocation input.
package project

import "github.com/papapumpkin/gantry/internal/pert"

// Duration units accepted on a task.
const (
	UnitDays  = "days"
	UnitHours = "hours"
)

// File is the on-disk description of one project.
type File struct {
	Project      Header           `toml:"project" yaml:"project"`
	Tasks        []TaskSpec       `toml:"tasks" yaml:"tasks"`
	Dependencies []DependencySpec `toml:"dependencies" yaml:"dependencies"`
	Resources    []ResourceSpec   `toml:"resources" yaml:"resources"`
	Allocations  []AllocationSpec `toml:"allocations" yaml:"allocations"`

	// SourceFile is the base name of the file the project was read from.
	SourceFile string `toml:"-" yaml:"-"`
}

// Header carries project-wide settings.
type Header struct {
	Name  string `toml:"name" yaml:"name"`
	Start string `toml:"start" yaml:"start"` // YYYY-MM-DD, optional
}

// TaskSpec declares a task. Either Duration or Estimate must be present;
// when both are, Duration wins unless estimates are requested explicitly.
type TaskSpec struct {
	ID       string         `toml:"id" yaml:"id"`
	Name     string         `toml:"name" yaml:"name"`
	Duration *float64       `toml:"duration" yaml:"duration"`
	Unit     string         `toml:"unit" yaml:"unit"`   // "days" (default) or "hours"
	Start    string         `toml:"start" yaml:"start"` // start-no-earlier-than date
	Estimate *pert.Estimate `toml:"estimate" yaml:"estimate"`
}

// DependencySpec declares a typed precedence between two tasks. Lag is in
// working days; negative lag is a lead.
type DependencySpec struct {
	From string  `toml:"from" yaml:"from"`
	To   string  `toml:"to" yaml:"to"`
	Type string  `toml:"type" yaml:"type"` // FS (default), SS, FF, SF
	Lag  float64 `toml:"lag" yaml:"lag"`
}

// ResourceSpec declares a resource and its daily capacity.
type ResourceSpec struct {
	ID          string  `toml:"id" yaml:"id"`
	HoursPerDay float64 `toml:"hours_per_day" yaml:"hours_per_day"`
}

// AllocationSpec commits a resource to a task over an inclusive date range.
type AllocationSpec struct {
	Resource    string  `toml:"resource" yaml:"resource"`
	Task        string  `toml:"task" yaml:"task"`
	Start       string  `toml:"start" yaml:"start"`
	End         string  `toml:"end" yaml:"end"`
	HoursPerDay float64 `toml:"hours_per_day" yaml:"hours_per_day"`
}

// unit returns the task's unit with the default applied.
func (t TaskSpec) unit() string {
	if t.Unit == "" {
		return UnitDays
	}
	return t.Unit
}
