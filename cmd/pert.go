package cmd

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/gantry/internal/pert"
	"github.com/papapumpkin/gantry/internal/schedule"
	"github.com/papapumpkin/gantry/internal/store"
	"github.com/papapumpkin/gantry/internal/ui"
)

var pertCmd = &cobra.Command{
	Use:   "pert <project-file>",
	Short: "Compute PERT estimates and the critical-path completion distribution",
	Long: "Computes expected duration, variance, and confidence intervals for every task with a " +
		"three-point estimate, schedules the project on expected durations, and aggregates the " +
		"estimates along the longest critical chain. Tasks without an estimate count as fixed.",
	Args: cobra.ExactArgs(1),
	RunE: runPERT,
}

func init() {
	pertCmd.Flags().Float64("target", 0, "report the probability of finishing within this many working days")
	pertCmd.Flags().Bool("save", false, "save the expected-duration schedule to the run history")
	rootCmd.AddCommand(pertCmd)
}

type pertReport struct {
	Project     string                 `json:"project"`
	Tasks       map[string]pert.Result `json:"tasks"`
	Chain       []string               `json:"critical_chain"`
	Total       pert.Result            `json:"total"`
	Target      float64                `json:"target,omitempty"`
	Probability *float64               `json:"probability,omitempty"`
}

func runPERT(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, "pert")
	if err != nil {
		return err
	}
	f, err := s.load(args[0])
	if err != nil {
		return err
	}
	p, err := s.plan(f, true)
	if err != nil {
		s.printer.Error(err.Error())
		return err
	}
	if err := cmd.Context().Err(); err != nil {
		return err
	}

	estimates := f.Estimates()
	var (
		results map[string]pert.Result
		res     *schedule.Result
	)
	err = s.observe("pert", func() error {
		var err error
		if results, err = pert.CalculateAll(estimates); err != nil {
			return err
		}
		res, err = schedule.Compute(p.Tasks, p.Dependencies, schedule.Options{ProjectStart: p.Start})
		return err
	})
	if err != nil {
		s.reportScheduleError(p.Name, err)
		return err
	}

	// Tasks without an estimate contribute their fixed duration and no
	// variance.
	all := make(map[string]pert.Result, len(res.Tasks))
	for id, tr := range res.Tasks {
		if r, ok := results[id]; ok {
			all[id] = r
		} else {
			all[id] = pert.Aggregate(pert.Result{Expected: tr.Duration})
		}
	}

	chain, total, err := longestChain(res, all)
	if err != nil {
		s.printer.Error(err.Error())
		return err
	}
	s.log.Info("pert computed", "project", p.Name, "estimated", len(results),
		"expected", total.Expected, "std_dev", total.StdDev)

	target, _ := cmd.Flags().GetFloat64("target")
	report := pertReport{Project: p.Name, Tasks: results, Chain: chain, Total: total}
	if cmd.Flags().Changed("target") {
		prob := total.Probability(target)
		report.Target = target
		report.Probability = &prob
	}

	if err := s.save(cmd.Context(), cmd, store.Record{Project: p.Name, Schedule: res}); err != nil {
		s.printer.Error(err.Error())
		return err
	}

	if s.json {
		return s.emitJSON(report)
	}

	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := make([]ui.PERTRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, ui.PERTRow{TaskID: id, Estimate: estimates[id], Result: results[id]})
	}
	s.printer.PERT(rows, total, "critical chain "+strings.Join(chain, " → "))
	if report.Probability != nil {
		s.printer.Info(fmt.Sprintf("P(finish ≤ %g days) = %.1f%%", target, *report.Probability*100))
	}
	return nil
}

// longestChain returns the critical chain with the largest aggregated
// expected duration, ties broken by larger variance. It makes one pass over
// the topological order, so the number of parallel chains does not matter.
func longestChain(res *schedule.Result, results map[string]pert.Result) ([]string, pert.Result, error) {
	g := res.Graph()
	if g == nil || len(res.Critical) == 0 {
		return nil, pert.Result{}, nil
	}
	critical := func(id string) bool {
		tr, ok := res.Task(id)
		return ok && tr.IsCritical
	}

	// best is the heaviest chain ending at a task.
	type best struct {
		expected, variance float64
		prev               string
		ok                 bool
	}
	beats := func(expected, variance float64, b best) bool {
		return !b.ok || expected > b.expected+schedule.Epsilon ||
			(expected > b.expected-schedule.Epsilon && variance > b.variance)
	}

	acc := make(map[string]best, len(res.Critical))
	var (
		end string
		top best
	)
	for _, id := range res.Order {
		if !critical(id) {
			continue
		}
		r, ok := results[id]
		if !ok {
			return nil, pert.Result{}, fmt.Errorf("%w: %q", pert.ErrUnknownTask, id)
		}

		var (
			pred     string
			fromPred best
		)
		for _, e := range g.Predecessors(id) {
			if p, ok := acc[e.From]; ok && beats(p.expected, p.variance, fromPred) {
				pred, fromPred = e.From, p
			}
		}
		cur := best{expected: r.Expected, variance: r.Variance, prev: pred, ok: true}
		if fromPred.ok {
			cur.expected += fromPred.expected
			cur.variance += fromPred.variance
		}
		acc[id] = cur

		last := true
		for _, e := range g.Successors(id) {
			if critical(e.To) {
				last = false
				break
			}
		}
		if last && beats(cur.expected, cur.variance, top) {
			end, top = id, cur
		}
	}

	var chain []string
	for id := end; id != ""; id = acc[id].prev {
		chain = append(chain, id)
	}
	slices.Reverse(chain)

	total, err := pert.AggregatePath(results, chain)
	if err != nil {
		return nil, pert.Result{}, err
	}
	return chain, total, nil
}
