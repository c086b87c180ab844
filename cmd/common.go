package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/gantry/internal/config"
	"github.com/papapumpkin/gantry/internal/logging"
	"github.com/papapumpkin/gantry/internal/metrics"
	"github.com/papapumpkin/gantry/internal/project"
	"github.com/papapumpkin/gantry/internal/store"
	"github.com/papapumpkin/gantry/internal/ui"
)

// session bundles what every engine command needs.
type session struct {
	cfg     config.Config
	log     *slog.Logger
	printer *ui.Printer
	metrics *metrics.Collector
	json    bool
	out     io.Writer
}

func newSession(cmd *cobra.Command, component string) (*session, error) {
	printer := ui.New()
	cfg, err := config.Load()
	if err != nil {
		printer.Error(err.Error())
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.LogLevel
	if cfg.Verbose {
		level = "debug"
	}
	logger, err := logging.New(os.Stderr, level, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	return &session{
		cfg:     cfg,
		log:     logging.Component(logger, component),
		printer: printer,
		metrics: metrics.NewCollector(),
		json:    asJSON,
		out:     cmd.OutOrStdout(),
	}, nil
}

// load reads and validates a project file, reporting problems through the
// printer.
func (s *session) load(path string) (*project.File, error) {
	f, err := project.Load(path)
	if err != nil {
		s.printer.Error(err.Error())
		return nil, err
	}
	if errs := project.Validate(f); len(errs) > 0 {
		s.printer.ValidateResult(f.Project.Name, len(f.Tasks), errs)
		return nil, fmt.Errorf("%s: validation failed with %d error(s)", f.SourceFile, len(errs))
	}
	s.log.Debug("project loaded", "file", f.SourceFile, "tasks", len(f.Tasks), "dependencies", len(f.Dependencies))
	return f, nil
}

// start resolves the project start: config/flag first, then the file.
func (s *session) start(f *project.File) (time.Time, error) {
	if s.cfg.ProjectStart != "" {
		return s.cfg.Start()
	}
	return f.Start()
}

// observe times fn and records the outcome under kind.
func (s *session) observe(kind string, fn func() error) error {
	began := time.Now()
	err := fn()
	elapsed := time.Since(began)
	s.metrics.Observe(kind, elapsed, err)
	if err != nil {
		s.log.Debug("computation failed", "kind", kind, "elapsed", elapsed, "error", err)
	} else {
		s.log.Debug("computation finished", "kind", kind, "elapsed", elapsed)
	}
	return err
}

// save persists a run when --save was given.
func (s *session) save(ctx context.Context, cmd *cobra.Command, rec store.Record) error {
	if ok, _ := cmd.Flags().GetBool("save"); !ok {
		return nil
	}
	st, err := store.Open(ctx, s.cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.SaveRun(ctx, rec)
	if err != nil {
		return err
	}
	s.log.Info("run saved", "run_id", run.ID, "project", run.Project, "db", s.cfg.DBPath)
	return nil
}

func (s *session) emitJSON(v any) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func projectName(f *project.File) string {
	if f.Project.Name != "" {
		return f.Project.Name
	}
	return f.SourceFile
}
