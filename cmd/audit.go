package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/tribunal/internal/detect"
	"github.com/joescharf/tribunal/internal/engine"
	"github.com/joescharf/tribunal/internal/judge"
	"github.com/joescharf/tribunal/internal/justice"
	"github.com/joescharf/tribunal/internal/output"
	"github.com/joescharf/tribunal/internal/report"
	"github.com/joescharf/tribunal/internal/store"
)

var (
	auditRepo  string
	auditPDF   string
	auditBatch []string
	auditPDFs  []string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit one or more repositories against the rubric",
	Long: `Run the full audit workflow: evidence collection, adversarial
scoring, and verdict synthesis. Reports are written to the configured
report directory and the run is archived in the local database.

Single run:
  tribunal audit --repo https://github.com/org/repo --pdf ./report.pdf

Batch (one audit per repo, run concurrently; --pdfs aligns by index):
  tribunal audit --batch repoA --batch repoB --pdfs a.pdf --pdfs b.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if auditRepo == "" && len(auditBatch) == 0 {
			return fmt.Errorf("either --repo or --batch is required")
		}
		if auditRepo != "" && len(auditBatch) > 0 {
			return fmt.Errorf("--repo and --batch are mutually exclusive")
		}

		eng, err := newEngine()
		if err != nil {
			return err
		}

		ctx := context.Background()
		if auditRepo != "" {
			return auditSingleRun(ctx, eng)
		}
		return auditBatchRun(ctx, eng)
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditRepo, "repo", "", "Repository reference to audit (path or clone URL)")
	auditCmd.Flags().StringVar(&auditPDF, "pdf", "", "Submission document to cross-examine")
	auditCmd.Flags().StringSliceVar(&auditBatch, "batch", nil, "Repository references for a concurrent batch audit")
	auditCmd.Flags().StringSliceVar(&auditPDFs, "pdfs", nil, "Submission documents aligned by index with --batch")
	rootCmd.AddCommand(auditCmd)
}

// newEngine wires the full audit pipeline from configuration.
func newEngine() (*engine.Engine, error) {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no Anthropic API key configured (set anthropic.api_key or ANTHROPIC_API_KEY)")
	}

	r, err := getRubric()
	if err != nil {
		return nil, err
	}

	s, err := getStore()
	if err != nil {
		return nil, err
	}

	client := judge.NewClient(apiKey, viper.GetString("anthropic.model"), viper.GetInt64("judge.max_tokens"))

	return engine.New(engine.Config{
		Collectors: []engine.Collector{
			detect.NewRepoInvestigator(detect.NewGitClient()),
			detect.NewDocAnalyst(),
			detect.NewVisionInspector(),
		},
		Verifiers:   []engine.Verifier{detect.NewClaimVerifier()},
		Pool:        judge.NewPool(client, r),
		Synthesizer: justice.New(r),
		Assembler:   report.NewAssembler(viper.GetString("report_dir")),
		Archive:     store.NewArchiver(s),
		Workdir:     viper.GetString("workdir"),
		UI:          ui,
	}), nil
}

func auditSingleRun(ctx context.Context, eng *engine.Engine) error {
	ui.Info("Auditing %s", auditRepo)

	st, err := eng.Run(ctx, auditRepo, auditPDF)
	if err != nil && !errors.Is(err, engine.ErrAborted) {
		return err
	}

	printRunResult(st)
	if st.Aborted {
		return fmt.Errorf("audit of %s aborted at evidence gate", auditRepo)
	}
	return nil
}

func auditBatchRun(ctx context.Context, eng *engine.Engine) error {
	ui.Info("Auditing %d repositories", len(auditBatch))

	results, err := eng.BatchRun(ctx, auditBatch, auditPDFs)
	if err != nil {
		return err
	}

	table := ui.Table([]string{"Repo", "Score", "Status", "Report", "Trace"})
	aborted := 0
	for _, res := range results {
		table.Append(batchRow(res))
		if res.State != nil && res.State.Aborted {
			aborted++
		}
	}
	table.Render()

	if aborted > 0 {
		return fmt.Errorf("%d of %d audits aborted", aborted, len(results))
	}
	return nil
}

// batchRow renders one batch result, including the generated report
// path so batch output surfaces artifacts the same way single runs do.
func batchRow(res engine.BatchResult) []string {
	score, status, artifact := "-", output.Red("failed"), "-"
	if res.State != nil {
		if res.State.Report != nil {
			score = fmt.Sprintf("%d/%d", res.State.Report.TotalScore(), res.State.Report.MaxScore())
		}
		if res.State.Aborted {
			status = output.Red("aborted")
		} else if res.Err == nil {
			status = output.Green("done")
		}
		if res.State.Artifacts.Full != "" {
			artifact = res.State.Artifacts.Full
		}
	}
	return []string{res.RepoRef, score, status, artifact, traceOf(res.State)}
}

func printRunResult(st *engine.RunState) {
	if st.Report != nil {
		ui.Success("Total score: %d/%d", st.Report.TotalScore(), st.Report.MaxScore())
		table := ui.Table([]string{"Criterion", "Score", "Status", "Overrides"})
		for _, v := range st.Report.CriterionBreakdown {
			table.Append([]string{v.CriterionID, output.ScoreColor(v.FinalScore), v.Status(), overrideFlags(v.SecurityOverrideApplied, v.FactSupremacyApplied)})
		}
		table.Render()
	}

	for _, w := range st.Warnings {
		ui.Warning("%s", w)
	}
	for _, e := range st.Errors {
		ui.Error("%s", e)
	}

	if st.Artifacts.Full != "" {
		ui.Info("Report: %s", st.Artifacts.Full)
		ui.VerboseLog("summary: %s", st.Artifacts.Summary)
		ui.VerboseLog("json: %s", st.Artifacts.JSON)
	}
	ui.VerboseLog("trace: %s, detective retries: %d, judge retries: %d",
		st.TraceID, st.DetectiveAttempts, st.JudgeAttempts)
}

func overrideFlags(security, factSupremacy bool) string {
	switch {
	case security && factSupremacy:
		return "security, fact supremacy"
	case security:
		return "security"
	case factSupremacy:
		return "fact supremacy"
	}
	return ""
}

func traceOf(st *engine.RunState) string {
	if st == nil {
		return "-"
	}
	return st.TraceID
}
