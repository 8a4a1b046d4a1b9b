package models

import "time"

// FinalVerdict is the synthesized outcome for a single rubric criterion.
type FinalVerdict struct {
	CriterionID             string   `json:"criterion_id"`
	FinalScore              int      `json:"final_score"`
	DissentSummary          string   `json:"dissent_summary"`
	RemediationPlan         []string `json:"remediation_plan,omitempty"`
	SecurityOverrideApplied bool     `json:"security_override_applied"`
	FactSupremacyApplied    bool     `json:"fact_supremacy_applied"`
}

// Status buckets the verdict for the executive summary.
func (v FinalVerdict) Status() string {
	switch {
	case v.FinalScore >= 4:
		return "strong"
	case v.FinalScore <= 2:
		return "critical"
	default:
		return "needs improvement"
	}
}

// EvidenceSummary is the raw-evidence snapshot embedded in the report.
type EvidenceSummary struct {
	GitCommits       int  `json:"git_commits"`
	CodeAnalyzed     bool `json:"code_analyzed"`
	DocumentAnalyzed bool `json:"document_analyzed"`
	DiagramsAnalyzed int  `json:"diagrams_analyzed"`
}

// AuditReport is the terminal output of a run.
type AuditReport struct {
	RepoRef             string              `json:"repo_ref"`
	Timestamp           time.Time           `json:"timestamp"`
	ExecutiveSummary    string              `json:"executive_summary"`
	CriterionBreakdown  []FinalVerdict      `json:"criterion_breakdown"`
	RemediationPlan     map[string][]string `json:"remediation_plan"`
	RawEvidenceSummary  EvidenceSummary     `json:"raw_evidence_summary"`
	CriterionNarratives map[string]string   `json:"criterion_narratives,omitempty"`
}

// TotalScore sums the final scores across all criteria.
func (r AuditReport) TotalScore() int {
	total := 0
	for _, v := range r.CriterionBreakdown {
		total += v.FinalScore
	}
	return total
}

// MaxScore is the highest achievable total.
func (r AuditReport) MaxScore() int {
	return len(r.CriterionBreakdown) * 5
}
