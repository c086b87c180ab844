package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/gantry/internal/dag"
	"github.com/papapumpkin/gantry/internal/project"
	"github.com/papapumpkin/gantry/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate <project-file>",
	Short: "Validate a project file's structure and dependency graph",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	printer := ui.New()

	f, err := project.Load(args[0])
	if err != nil {
		printer.Error(err.Error())
		return err
	}

	errs := project.Validate(f)
	if len(errs) > 0 {
		printer.ValidateResult(f.Project.Name, len(f.Tasks), errs)
		return fmt.Errorf("validation failed with %d error(s)", len(errs))
	}

	// Structure is sound; the graph may still be cyclic.
	ids := make([]string, len(f.Tasks))
	for i, t := range f.Tasks {
		ids[i] = t.ID
	}
	edges, err := f.ToEdges()
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	g, err := dag.Build(ids, edges)
	if err != nil {
		printer.Error(fmt.Sprintf("%s: %v", f.SourceFile, err))
		return err
	}

	printer.ValidateResult(f.Project.Name, len(f.Tasks), nil)
	if tracks := g.ComputeTracks(); len(tracks) > 1 {
		printer.Info(fmt.Sprintf("%d independent tracks", len(tracks)))
	}
	return nil
}
