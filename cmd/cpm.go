package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/gantry/internal/dag"
	"github.com/papapumpkin/gantry/internal/project"
	"github.com/papapumpkin/gantry/internal/schedule"
	"github.com/papapumpkin/gantry/internal/store"
)

var cpmCmd = &cobra.Command{
	Use:   "cpm <project-file>...",
	Short: "Compute the critical-path schedule of one or more projects",
	Long: "Runs forward and backward passes over each project's typed dependency graph and " +
		"reports early/late dates, slack, and the critical path. Several files are scheduled in parallel.",
	Args: cobra.MinimumNArgs(1),
	RunE: runCPM,
}

func init() {
	cpmCmd.Flags().Bool("pert", false, "use PERT expected durations for tasks with estimates")
	cpmCmd.Flags().Bool("save", false, "save the results to the run history")
	rootCmd.AddCommand(cpmCmd)
}

// cpmReport is the JSON shape of one scheduled project.
type cpmReport struct {
	Project string           `json:"project"`
	Result  *schedule.Result `json:"result,omitempty"`
	Chains  [][]string       `json:"critical_chains,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func runCPM(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, "cpm")
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	usePERT, _ := cmd.Flags().GetBool("pert")

	projects := make([]schedule.Project, 0, len(args))
	for _, path := range args {
		f, err := s.load(path)
		if err != nil {
			return err
		}
		p, err := s.plan(f, usePERT)
		if err != nil {
			s.printer.Error(err.Error())
			return err
		}
		projects = append(projects, p)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	var outcomes []schedule.Outcome
	_ = s.observe("cpm", func() error {
		outcomes = schedule.ComputeAll(projects, schedule.Options{Workers: s.cfg.Workers})
		for _, o := range outcomes {
			if o.Err != nil {
				return o.Err
			}
		}
		return nil
	})

	var (
		failed  int
		reports []cpmReport
	)
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			s.reportScheduleError(o.Name, o.Err)
			reports = append(reports, cpmReport{Project: o.Name, Error: o.Err.Error()})
			continue
		}
		s.metrics.SetSchedule(o.Result.ProjectFinish, len(o.Result.Critical))
		s.log.Info("schedule computed", "project", o.Name, "tasks", len(o.Result.Tasks),
			"finish", o.Result.ProjectFinish, "critical", len(o.Result.Critical))

		if s.json {
			reports = append(reports, cpmReport{Project: o.Name, Result: o.Result, Chains: o.Result.CriticalChains(schedule.MaxChains)})
		} else {
			s.printer.Schedule(o.Name, o.Result)
		}
		if err := s.save(ctx, cmd, store.Record{Project: o.Name, Schedule: o.Result}); err != nil {
			s.printer.Error(err.Error())
			return err
		}
	}

	if s.json {
		if err := s.emitJSON(reports); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d project(s) could not be scheduled", failed, len(outcomes))
	}
	return nil
}

// plan converts a loaded project file into engine input.
func (s *session) plan(f *project.File, usePERT bool) (schedule.Project, error) {
	tasks, err := f.ToTasks(usePERT)
	if err != nil {
		return schedule.Project{}, err
	}
	edges, err := f.ToEdges()
	if err != nil {
		return schedule.Project{}, err
	}
	start, err := s.start(f)
	if err != nil {
		return schedule.Project{}, err
	}
	return schedule.Project{Name: projectName(f), Tasks: tasks, Dependencies: edges, Start: start}, nil
}

// reportScheduleError prints an engine error, with a hint naming the
// dependencies to break when it is a cycle.
func (s *session) reportScheduleError(name string, err error) {
	s.printer.Error(fmt.Sprintf("%s: %v", name, err))
	var cyc *dag.CycleError
	if errors.As(err, &cyc) && len(cyc.Path) > 1 {
		s.printer.Info(fmt.Sprintf("remove one of the %d dependencies along the cycle to continue", len(cyc.Path)-1))
	}
}
