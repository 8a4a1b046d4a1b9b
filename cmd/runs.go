package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/tribunal/internal/output"
	"github.com/joescharf/tribunal/internal/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived audit runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runsListRun()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one archived run with full verdicts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runsShowRun(args[0])
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to list (0 for all)")
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func runsListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	runs, err := s.ListRuns(context.Background(), runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		ui.Info("No archived runs. Use 'tribunal audit --repo <ref>' to create one.")
		return nil
	}

	table := ui.Table([]string{"ID", "Repo", "Score", "Status", "Date"})
	for _, r := range runs {
		status := output.Green("done")
		if r.Aborted {
			status = output.Red("aborted")
		}
		table.Append([]string{
			r.ID,
			r.RepoRef,
			fmt.Sprintf("%d/%d", r.TotalScore, r.MaxScore),
			status,
			r.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	table.Render()
	return nil
}

func runsShowRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	ctx := context.Background()
	r, err := s.GetRun(ctx, id)
	if err != nil {
		r, err = s.GetRunByTraceID(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("run not found: %s", id)
	}

	printRun(r)
	return nil
}

func printRun(r *store.Run) {
	ui.Info("Run %s (trace %s)", r.ID, r.TraceID)
	ui.Info("Repo: %s", r.RepoRef)
	if r.DocRef != "" {
		ui.Info("Doc: %s", r.DocRef)
	}
	ui.Info("Score: %d/%d", r.TotalScore, r.MaxScore)
	if r.Aborted {
		ui.Error("Run aborted at evidence gate")
	}

	if len(r.Verdicts) > 0 {
		table := ui.Table([]string{"Criterion", "Score", "Status", "Dissent"})
		for _, v := range r.Verdicts {
			table.Append([]string{v.CriterionID, output.ScoreColor(v.FinalScore), v.Status(), firstLine(v.DissentSummary)})
		}
		table.Render()
	}

	for _, w := range r.Warnings {
		ui.Warning("%s", w)
	}
	for _, e := range r.Errors {
		ui.Error("%s", e)
	}

	if r.ArtifactFull != "" {
		ui.Info("Report: %s", r.ArtifactFull)
	}
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	return s
}
