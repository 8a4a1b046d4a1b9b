// Package report renders the audit report into persisted artifacts.
// Pure formatting: nothing here may change a score or a verdict text.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joescharf/tribunal/internal/engine"
	"github.com/joescharf/tribunal/internal/models"
)

// Assembler writes the three report artifacts for a run.
type Assembler struct {
	dir string
}

// NewAssembler creates an assembler writing into dir.
func NewAssembler(dir string) *Assembler {
	return &Assembler{dir: dir}
}

// Assemble renders the run's report into a full narrative, a
// summary-only view, and a structured JSON view, named from the run
// timestamp and trace id. The trace id keeps concurrent batch runs
// that finish within the same second from clobbering each other.
func (a *Assembler) Assemble(st *engine.RunState) (engine.Artifacts, error) {
	if st.Report == nil {
		return engine.Artifacts{}, fmt.Errorf("run %s has no report", st.TraceID)
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return engine.Artifacts{}, fmt.Errorf("create report dir: %w", err)
	}

	prefix := fmt.Sprintf("audit_%s_%s", st.Report.Timestamp.Format("20060102_150405"), st.TraceID)
	artifacts := engine.Artifacts{
		Full:    filepath.Join(a.dir, prefix+"_full.md"),
		Summary: filepath.Join(a.dir, prefix+"_summary.md"),
		JSON:    filepath.Join(a.dir, prefix+"_report.json"),
	}

	if err := os.WriteFile(artifacts.Full, []byte(renderFull(st)), 0o644); err != nil {
		return engine.Artifacts{}, fmt.Errorf("write full report: %w", err)
	}
	if err := os.WriteFile(artifacts.Summary, []byte(st.Report.ExecutiveSummary), 0o644); err != nil {
		return engine.Artifacts{}, fmt.Errorf("write summary report: %w", err)
	}

	data, err := json.MarshalIndent(structuredView(st), "", "  ")
	if err != nil {
		return engine.Artifacts{}, fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(artifacts.JSON, data, 0o644); err != nil {
		return engine.Artifacts{}, fmt.Errorf("write json report: %w", err)
	}

	return artifacts, nil
}

// renderFull writes the complete narrative document.
func renderFull(st *engine.RunState) string {
	r := st.Report
	var sb strings.Builder

	sb.WriteString(r.ExecutiveSummary)

	sb.WriteString("\n\n## Evidence Summary\n\n")
	fmt.Fprintf(&sb, "- Git commits analyzed: %d\n", r.RawEvidenceSummary.GitCommits)
	fmt.Fprintf(&sb, "- Code analyzed: %t\n", r.RawEvidenceSummary.CodeAnalyzed)
	fmt.Fprintf(&sb, "- Document analyzed: %t\n", r.RawEvidenceSummary.DocumentAnalyzed)
	fmt.Fprintf(&sb, "- Diagrams analyzed: %d\n", r.RawEvidenceSummary.DiagramsAnalyzed)

	sb.WriteString("\n\n## Criterion Breakdown\n\n")
	for _, v := range r.CriterionBreakdown {
		fmt.Fprintf(&sb, "### %s\n", v.CriterionID)
		fmt.Fprintf(&sb, "**Score:** %d/5 (%s)\n\n", v.FinalScore, v.Status())
		if narrative := r.CriterionNarratives[v.CriterionID]; narrative != "" {
			sb.WriteString("**Narrative:**\n")
			sb.WriteString(narrative)
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "**Dissent:** %s\n\n", v.DissentSummary)
		sb.WriteString("**Remediation:**\n")
		for _, step := range v.RemediationPlan {
			fmt.Fprintf(&sb, "- %s\n", step)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Complete Remediation Plan\n\n")
	// Breakdown order keeps the plan listing stable.
	for _, v := range r.CriterionBreakdown {
		fmt.Fprintf(&sb, "### %s\n", v.CriterionID)
		for _, step := range r.RemediationPlan[v.CriterionID] {
			fmt.Fprintf(&sb, "- %s\n", step)
		}
		sb.WriteString("\n")
	}

	if len(st.Errors) > 0 || len(st.Warnings) > 0 {
		sb.WriteString("\n## Run Diagnostics\n\n")
		for _, e := range st.Errors {
			fmt.Fprintf(&sb, "- error: %s\n", e)
		}
		for _, w := range st.Warnings {
			fmt.Fprintf(&sb, "- warning: %s\n", w)
		}
	}

	return sb.String()
}

// runView pairs the report with run metadata for the JSON artifact.
type runView struct {
	TraceID  string              `json:"trace_id"`
	Aborted  bool                `json:"aborted"`
	Report   *models.AuditReport `json:"report"`
	Errors   []string            `json:"errors,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`
}

// structuredView builds the machine-readable artifact payload.
func structuredView(st *engine.RunState) runView {
	return runView{
		TraceID:  st.TraceID,
		Aborted:  st.Aborted,
		Report:   st.Report,
		Errors:   st.Errors,
		Warnings: st.Warnings,
	}
}
