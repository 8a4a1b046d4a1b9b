package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/tribunal/internal/output"
	"github.com/joescharf/tribunal/internal/rubric"
)

var rubricPath string

var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "Show the grading rubric",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			r   *rubric.Rubric
			err error
		)
		if rubricPath != "" {
			r, err = rubric.Load(rubricPath)
		} else {
			r, err = getRubric()
		}
		if err != nil {
			return err
		}

		ui.Info("%s v%s (target: %s)", r.Metadata.Name, r.Metadata.Version, r.Metadata.Target)

		table := ui.Table([]string{"ID", "Name", "Artifact"})
		for _, c := range r.Dimensions {
			table.Append([]string{output.Cyan(c.ID), c.Name, c.TargetArtifact})
		}
		table.Render()

		if verbose {
			for _, c := range r.Dimensions {
				ui.Info("%s", output.Cyan(c.ID))
				ui.Info("  forensic: %s", c.ForensicInstruction)
				ui.Info("  prosecutor: %s", c.JudicialLogic.Prosecutor)
				ui.Info("  defense: %s", c.JudicialLogic.Defense)
				ui.Info("  tech lead: %s", c.JudicialLogic.TechLead)
			}
		}
		return nil
	},
}

func init() {
	rubricCmd.Flags().StringVar(&rubricPath, "rubric", "", "Rubric file to show instead of the configured one")
	rootCmd.AddCommand(rubricCmd)
}
