package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/tribunal/internal/engine"
	"github.com/joescharf/tribunal/internal/models"
)

func testState() *engine.RunState {
	ts := time.Date(2026, 8, 23, 14, 30, 5, 0, time.UTC)
	verdicts := []models.FinalVerdict{
		{
			CriterionID:     "forensic_accuracy_code",
			FinalScore:      4,
			DissentSummary:  "Prosecution: Score 2 - thin\n\nFinal Ruling: Score 4",
			RemediationPlan: []string{"Polish: nearly there"},
		},
		{
			CriterionID:             "orchestration_rigor",
			FinalScore:              2,
			DissentSummary:          "Final Ruling: Score 2",
			RemediationPlan:         []string{"Critical: missing fan-out", "Implement: wire the graph"},
			SecurityOverrideApplied: true,
		},
	}
	return &engine.RunState{
		TraceID: "trace-123",
		RepoRef: "repo",
		Report: &models.AuditReport{
			RepoRef:            "repo",
			Timestamp:          ts,
			ExecutiveSummary:   "# Audit Report\n\nexecutive text",
			CriterionBreakdown: verdicts,
			RemediationPlan: map[string][]string{
				"forensic_accuracy_code": verdicts[0].RemediationPlan,
				"orchestration_rigor":    verdicts[1].RemediationPlan,
			},
			RawEvidenceSummary:  models.EvidenceSummary{GitCommits: 7, CodeAnalyzed: true},
			CriterionNarratives: map[string]string{"forensic_accuracy_code": "narrative text"},
		},
		Warnings: []string{"doc_analyst skipped: no document provided"},
	}
}

func TestAssemble_WritesThreeArtifacts(t *testing.T) {
	dir := t.TempDir()
	st := testState()

	artifacts, err := NewAssembler(dir).Assemble(st)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "audit_20260823_143005_trace-123_full.md"), artifacts.Full)
	assert.Equal(t, filepath.Join(dir, "audit_20260823_143005_trace-123_summary.md"), artifacts.Summary)
	assert.Equal(t, filepath.Join(dir, "audit_20260823_143005_trace-123_report.json"), artifacts.JSON)

	full, err := os.ReadFile(artifacts.Full)
	require.NoError(t, err)
	text := string(full)
	assert.Contains(t, text, "executive text")
	assert.Contains(t, text, "## Criterion Breakdown")
	assert.Contains(t, text, "forensic_accuracy_code")
	assert.Contains(t, text, "**Score:** 2/5 (critical)")
	assert.Contains(t, text, "narrative text")
	assert.Contains(t, text, "Critical: missing fan-out")
	assert.Contains(t, text, "## Complete Remediation Plan")
	assert.Contains(t, text, "## Run Diagnostics")
	assert.Contains(t, text, "doc_analyst skipped")

	summary, err := os.ReadFile(artifacts.Summary)
	require.NoError(t, err)
	assert.Equal(t, st.Report.ExecutiveSummary, string(summary))
}

func TestAssemble_JSONRoundTrips(t *testing.T) {
	dir := t.TempDir()
	st := testState()

	artifacts, err := NewAssembler(dir).Assemble(st)
	require.NoError(t, err)

	data, err := os.ReadFile(artifacts.JSON)
	require.NoError(t, err)

	var view struct {
		TraceID  string              `json:"trace_id"`
		Aborted  bool                `json:"aborted"`
		Report   *models.AuditReport `json:"report"`
		Warnings []string            `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(data, &view))

	assert.Equal(t, "trace-123", view.TraceID)
	assert.False(t, view.Aborted)
	require.NotNil(t, view.Report)
	assert.Len(t, view.Report.CriterionBreakdown, 2)
	assert.True(t, view.Report.CriterionBreakdown[1].SecurityOverrideApplied)
	assert.Equal(t, 7, view.Report.RawEvidenceSummary.GitCommits)
}

func TestAssemble_ConcurrentRunsGetDistinctPaths(t *testing.T) {
	// Batch runs routinely finish within the same second; the trace id
	// keeps their artifacts apart.
	dir := t.TempDir()
	a := NewAssembler(dir)

	stA := testState()
	stA.TraceID = "trace-a"
	stA.Report.ExecutiveSummary = "summary for run A"
	stB := testState()
	stB.TraceID = "trace-b"
	stB.Report.ExecutiveSummary = "summary for run B"

	artA, err := a.Assemble(stA)
	require.NoError(t, err)
	artB, err := a.Assemble(stB)
	require.NoError(t, err)

	assert.NotEqual(t, artA.Full, artB.Full)
	assert.NotEqual(t, artA.Summary, artB.Summary)
	assert.NotEqual(t, artA.JSON, artB.JSON)

	sumA, err := os.ReadFile(artA.Summary)
	require.NoError(t, err)
	assert.Equal(t, "summary for run A", string(sumA))
	sumB, err := os.ReadFile(artB.Summary)
	require.NoError(t, err)
	assert.Equal(t, "summary for run B", string(sumB))
}

func TestAssemble_NoReportErrors(t *testing.T) {
	_, err := NewAssembler(t.TempDir()).Assemble(&engine.RunState{TraceID: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no report")
}

func TestAssemble_CreatesReportDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")

	artifacts, err := NewAssembler(dir).Assemble(testState())
	require.NoError(t, err)
	_, err = os.Stat(artifacts.Full)
	assert.NoError(t, err)
}
