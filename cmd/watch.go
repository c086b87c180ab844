package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/gantry/internal/project"
	"github.com/papapumpkin/gantry/internal/schedule"
)

var watchCmd = &cobra.Command{
	Use:   "watch <project-file>",
	Short: "Recompute the schedule and conflicts whenever the project file changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9464)")
	watchCmd.Flags().Bool("pert", false, "use PERT expected durations for tasks with estimates")
	_ = viper.BindPFlag("metrics_addr", watchCmd.Flags().Lookup("metrics-addr"))
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, "watch")
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	usePERT, _ := cmd.Flags().GetBool("pert")

	w, err := project.NewWatcher(args[0])
	if err != nil {
		s.printer.Error(err.Error())
		return err
	}
	if err := w.Start(); err != nil {
		s.printer.Error(err.Error())
		return err
	}
	defer w.Stop()

	var wg conc.WaitGroup
	defer wg.Wait()
	if addr := s.cfg.MetricsAddr; addr != "" {
		srv := &http.Server{Addr: addr, Handler: metricsMux(s), ReadHeaderTimeout: 5 * time.Second}
		wg.Go(func() {
			s.log.Info("serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("metrics server stopped", "error", err)
			}
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Initial computation, then one per debounced change.
	if f, err := project.Load(w.Path); err != nil {
		s.printer.Error(err.Error())
	} else {
		s.recompute(f, usePERT)
	}
	s.printer.Info("watching " + w.Path + " (ctrl-c to stop)")

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-w.Changes:
			if !ok {
				return nil
			}
			switch {
			case change.Kind == project.ChangeRemoved:
				s.printer.Warn(change.Path + " was removed; waiting for it to return")
			case change.Err != nil:
				s.printer.Error(change.Err.Error())
			default:
				s.log.Debug("project changed", "file", change.Path)
				s.recompute(change.File, usePERT)
			}
		}
	}
}

// recompute validates f and prints its schedule and conflicts. Problems are
// reported, never fatal, so the watch keeps running.
func (s *session) recompute(f *project.File, usePERT bool) {
	if errs := project.Validate(f); len(errs) > 0 {
		s.printer.ValidateResult(f.Project.Name, len(f.Tasks), errs)
		return
	}
	p, err := s.plan(f, usePERT)
	if err != nil {
		s.printer.Error(err.Error())
		return
	}

	var res *schedule.Result
	err = s.observe("cpm", func() error {
		var err error
		res, err = schedule.Compute(p.Tasks, p.Dependencies, schedule.Options{ProjectStart: p.Start})
		return err
	})
	if err != nil {
		s.reportScheduleError(p.Name, err)
		return
	}
	s.metrics.SetSchedule(res.ProjectFinish, len(res.Critical))
	s.printer.Schedule(p.Name, res)

	if len(f.Allocations) == 0 {
		return
	}
	report, err := s.detect(f, false)
	if err != nil {
		s.printer.Error(err.Error())
		return
	}
	s.printer.Conflicts(report.Conflicts)
}

func metricsMux(s *session) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}
