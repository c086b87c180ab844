package cmd

import (
	"github.com/spf13/cobra"

	"github.com/papapumpkin/gantry/internal/store"
	"github.com/papapumpkin/gantry/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List saved runs, or show one run in full",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().String("project", "", "only list runs of this project")
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, "history")
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	st, err := store.Open(ctx, s.cfg.DBPath)
	if err != nil {
		s.printer.Error(err.Error())
		return err
	}
	defer st.Close()

	if len(args) == 1 {
		detail, err := st.Run(ctx, args[0])
		if err != nil {
			s.printer.Error(err.Error())
			return err
		}
		if s.json {
			return s.emitJSON(detail)
		}
		showRun(s.printer, detail)
		return nil
	}

	project, _ := cmd.Flags().GetString("project")
	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := st.Runs(ctx, project, limit)
	if err != nil {
		s.printer.Error(err.Error())
		return err
	}
	s.log.Debug("runs listed", "count", len(runs), "project", project)
	if s.json {
		if runs == nil {
			runs = []store.Run{}
		}
		return s.emitJSON(runs)
	}
	s.printer.Runs(runs)
	return nil
}

func showRun(p *ui.Printer, d *store.RunDetail) {
	p.Runs([]store.Run{d.Run})
	if len(d.Tasks) > 0 {
		p.TaskResults(d.Tasks)
	}
	if d.Run.ConflictCount > 0 {
		p.Conflicts(d.Conflicts)
	}
}
