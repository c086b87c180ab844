package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/gantry/internal/project"
	"github.com/papapumpkin/gantry/internal/resource"
	"github.com/papapumpkin/gantry/internal/store"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts <project-file>",
	Short: "Report days on which a resource is allocated beyond its capacity",
	Args:  cobra.ExactArgs(1),
	RunE:  runConflicts,
}

func init() {
	conflictsCmd.Flags().Bool("skip-weekends", false, "ignore allocations falling on Saturdays and Sundays")
	conflictsCmd.Flags().Bool("utilization", false, "also print per-resource utilization")
	conflictsCmd.Flags().Bool("save", false, "save the conflicts to the run history")
	_ = viper.BindPFlag("skip_weekends", conflictsCmd.Flags().Lookup("skip-weekends"))
	rootCmd.AddCommand(conflictsCmd)
}

type conflictsReport struct {
	Project     string              `json:"project"`
	Conflicts   []resource.Conflict `json:"conflicts"`
	Utilization []resource.Usage    `json:"utilization,omitempty"`
}

func runConflicts(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, "conflicts")
	if err != nil {
		return err
	}
	f, err := s.load(args[0])
	if err != nil {
		return err
	}
	if err := cmd.Context().Err(); err != nil {
		return err
	}

	withUsage, _ := cmd.Flags().GetBool("utilization")
	report, err := s.detect(f, withUsage)
	if err != nil {
		s.printer.Error(err.Error())
		return err
	}

	if err := s.save(cmd.Context(), cmd, store.Record{Project: report.Project, Conflicts: report.Conflicts}); err != nil {
		s.printer.Error(err.Error())
		return err
	}

	if s.json {
		return s.emitJSON(report)
	}
	s.printer.Conflicts(report.Conflicts)
	if withUsage {
		s.printer.Utilization(report.Utilization)
	}
	return nil
}

// detect runs conflict detection, and optionally utilization, over the
// project's allocations.
func (s *session) detect(f *project.File, withUsage bool) (conflictsReport, error) {
	allocs, err := f.ToAllocations()
	if err != nil {
		return conflictsReport{}, err
	}
	opts := resource.Options{SkipWeekends: s.cfg.SkipWeekends, Workers: s.cfg.Workers}
	report := conflictsReport{Project: projectName(f)}

	err = s.observe("conflicts", func() error {
		var err error
		if report.Conflicts, err = resource.Detect(f.Capacity(), allocs, opts); err != nil {
			return err
		}
		if withUsage {
			report.Utilization, err = resource.Utilization(f.Capacity(), allocs, opts)
		}
		return err
	})
	if err != nil {
		return conflictsReport{}, fmt.Errorf("%s: %w", report.Project, err)
	}

	s.metrics.SetConflicts(len(report.Conflicts))
	s.log.Info("conflicts checked", "project", report.Project, "allocations", len(allocs),
		"conflicts", len(report.Conflicts), "skip_weekends", opts.SkipWeekends)
	return report, nil
}
