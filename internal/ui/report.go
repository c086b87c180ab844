package ui

import (
	"fmt"
	"strings"

	"github.com/papapumpkin/gantry/internal/calendar"
	"github.com/papapumpkin/gantry/internal/pert"
	"github.com/papapumpkin/gantry/internal/project"
	"github.com/papapumpkin/gantry/internal/resource"
	"github.com/papapumpkin/gantry/internal/schedule"
	"github.com/papapumpkin/gantry/internal/store"
)

// Schedule prints the CPM table in topological order followed by the
// project summary and at most schedule.MaxChains critical chains.
func (p *Printer) Schedule(name string, r *schedule.Result) {
	dated := r.StartDate != nil
	headers := []string{"Task", "Dur", "ES", "EF", "LS", "LF", "Slack", "Crit"}
	if dated {
		headers = append(headers, "Start", "Finish")
	}

	rows := make([][]string, 0, len(r.Order))
	critical := make([]bool, 0, len(r.Order))
	for _, id := range r.Order {
		t := r.Tasks[id]
		row := []string{id, num(t.Duration), num(t.ES), num(t.EF), num(t.LS), num(t.LF), num(t.Slack), ""}
		if t.IsCritical {
			row[7] = "●"
		}
		if dated && t.Dates != nil {
			row = append(row, calendar.FormatDate(t.Dates.EarlyStart), calendar.FormatDate(t.Dates.EarlyFinish))
		}
		rows = append(rows, row)
		critical = append(critical, t.IsCritical)
	}
	p.table(headers, rows, func(i int) bool { return i >= 0 && i < len(critical) && critical[i] })

	summary := fmt.Sprintf("%s: %d task(s), finish at day %s", name, len(r.Tasks), num(r.ProjectFinish))
	if dated && r.FinishDate != nil {
		summary += fmt.Sprintf(" (%s → %s)", calendar.FormatDate(*r.StartDate), calendar.FormatDate(*r.FinishDate))
	}
	p.Info(summary)
	chains := r.CriticalChains(schedule.MaxChains + 1)
	if len(chains) > schedule.MaxChains {
		p.Info(fmt.Sprintf("critical set: %d task(s) on more than %d chains", len(r.Critical), schedule.MaxChains))
		chains = chains[:schedule.MaxChains]
	}
	for _, chain := range chains {
		p.Info("critical: " + strings.Join(chain, " → "))
	}
}

// PERTRow pairs a task's estimate with its computed result.
type PERTRow struct {
	TaskID   string
	Estimate pert.Estimate
	Result   pert.Result
}

// PERT prints per-task PERT figures and, when rows is non-empty, the
// aggregate over them.
func (p *Printer) PERT(rows []PERTRow, total pert.Result, label string) {
	headers := []string{"Task", "O", "M", "P", "Expected", "σ", "68%", "95%"}
	body := make([][]string, 0, len(rows))
	for _, r := range rows {
		body = append(body, []string{
			r.TaskID,
			num(r.Estimate.Optimistic), num(r.Estimate.MostLikely), num(r.Estimate.Pessimistic),
			num(r.Result.Expected), num(r.Result.StdDev),
			interval(r.Result.Confidence68), interval(r.Result.Confidence95),
		})
	}
	p.table(headers, body, nil)
	if len(rows) > 0 {
		p.Info(fmt.Sprintf("%s: expected %s, σ %s, 95%% %s",
			label, num(total.Expected), num(total.StdDev), interval(total.Confidence95)))
	}
}

func interval(i pert.Interval) string {
	return "[" + num(i.Low) + ", " + num(i.High) + "]"
}

// Conflicts prints overallocated resource-days, or a success line when
// there are none.
func (p *Printer) Conflicts(conflicts []resource.Conflict) {
	if len(conflicts) == 0 {
		p.Success("no resource conflicts")
		return
	}
	rows := make([][]string, 0, len(conflicts))
	for _, c := range conflicts {
		rows = append(rows, []string{
			c.ResourceID,
			calendar.FormatDate(c.Date),
			num(c.Allocated),
			num(c.Available),
			"+" + num(c.Overage()),
			strings.Join(c.TaskIDs, ", "),
		})
	}
	p.table([]string{"Resource", "Date", "Allocated", "Available", "Over", "Tasks"}, rows, nil)
	p.Warn(fmt.Sprintf("%d overallocated resource-day(s)", len(conflicts)))
}

// Utilization prints per-resource load figures.
func (p *Printer) Utilization(usage []resource.Usage) {
	rows := make([][]string, 0, len(usage))
	for _, u := range usage {
		peak := "-"
		if !u.PeakDate.IsZero() {
			peak = num(u.PeakHours) + " on " + calendar.FormatDate(u.PeakDate)
		}
		rows = append(rows, []string{
			u.ResourceID, num(u.Available), fmt.Sprint(u.Days), num(u.TotalHours), peak, fmt.Sprint(u.OverallocatedDays),
		})
	}
	p.table([]string{"Resource", "Capacity", "Days", "Hours", "Peak", "Over days"}, rows, func(i int) bool {
		return i >= 0 && i < len(usage) && usage[i].OverallocatedDays > 0
	})
}

// ValidateResult prints the outcome of validating a project file.
func (p *Printer) ValidateResult(name string, taskCount int, errs []project.ValidationError) {
	if len(errs) == 0 {
		p.Success(fmt.Sprintf("project %q: %d task(s), no errors", name, taskCount))
		return
	}
	p.Error(fmt.Sprintf("project %q: %d error(s)", name, len(errs)))
	for _, e := range errs {
		fmt.Fprintf(p.msg, "  %s %s\n", p.muted.Render("["+string(e.Category)+"]"), e.Error())
	}
}

// Runs prints a run history table.
func (p *Printer) Runs(runs []store.Run) {
	if len(runs) == 0 {
		p.Info("no saved runs")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			r.Project,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprint(r.TaskCount),
			num(r.ProjectFinish),
			r.FinishDate,
			fmt.Sprint(r.CriticalCount),
			fmt.Sprint(r.ConflictCount),
		})
	}
	p.table([]string{"Run", "Project", "Saved", "Tasks", "Finish", "Date", "Critical", "Conflicts"}, rows, nil)
}

// TaskResults prints stored per-task rows without dates.
func (p *Printer) TaskResults(tasks []schedule.TaskResult) {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		crit := ""
		if t.IsCritical {
			crit = "●"
		}
		rows = append(rows, []string{t.TaskID, num(t.Duration), num(t.ES), num(t.EF), num(t.LS), num(t.LF), num(t.Slack), crit})
	}
	p.table([]string{"Task", "Dur", "ES", "EF", "LS", "LF", "Slack", "Crit"}, rows, func(i int) bool {
		return i >= 0 && i < len(tasks) && tasks[i].IsCritical
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
