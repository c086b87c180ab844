package schedule

import (
	"time"

	"github.com/papapumpkin/gantry/internal/dag"
)

// Epsilon absorbs floating-point error when deciding whether a task has
// zero slack. Expressed in working days.
const Epsilon = 1e-6

// Task is one schedulable unit of work. Duration is in working days.
type Task struct {
	ID       string
	Duration float64
	// Start, when set, pins the task to start no earlier than this date.
	Start *time.Time
}

// Dependency is a typed precedence edge between two tasks.
type Dependency = dag.Edge

// Options tunes a computation.
type Options struct {
	// ProjectStart anchors offset 0 to a calendar date. When zero, the
	// earliest fixed task start is used; with no fixed starts the result
	// carries relative offsets only.
	ProjectStart time.Time

	// Workers bounds parallelism in ComputeAll. Zero means GOMAXPROCS.
	Workers int
}

// DateWindow holds the calendar dates corresponding to a task's offsets.
// Finish dates name the last working day the task occupies.
type DateWindow struct {
	EarlyStart  time.Time `json:"early_start"`
	EarlyFinish time.Time `json:"early_finish"`
	LateStart   time.Time `json:"late_start"`
	LateFinish  time.Time `json:"late_finish"`
}

// TaskResult is the CPM outcome for one task. Offsets are working days from
// the project start.
type TaskResult struct {
	TaskID     string      `json:"task_id"`
	Duration   float64     `json:"duration"`
	ES         float64     `json:"es"`
	EF         float64     `json:"ef"`
	LS         float64     `json:"ls"`
	LF         float64     `json:"lf"`
	Slack      float64     `json:"slack"`
	IsCritical bool        `json:"is_critical"`
	Dates      *DateWindow `json:"dates,omitempty"`
}

// Result is the complete CPM analysis of one project.
type Result struct {
	Tasks map[string]*TaskResult `json:"tasks"`

	// Order is the topological order both passes walked.
	Order []string `json:"order"`

	// ProjectFinish is the largest early finish across all tasks.
	ProjectFinish float64 `json:"project_finish"`

	// Critical lists every zero-slack task in topological order.
	Critical []string `json:"critical"`

	// Tracks partitions the tasks into independent sub-projects.
	Tracks []dag.Track `json:"tracks"`

	StartDate  *time.Time `json:"start_date,omitempty"`
	FinishDate *time.Time `json:"finish_date,omitempty"`

	graph *dag.Graph
}

// Graph returns the validated dependency graph the result was computed on.
func (r *Result) Graph() *dag.Graph {
	return r.graph
}

// Task returns the result for id.
func (r *Result) Task(id string) (*TaskResult, bool) {
	tr, ok := r.Tasks[id]
	return tr, ok
}
