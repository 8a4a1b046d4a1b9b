// Package justice reconciles the three personas' conflicting opinions
// into one final verdict per criterion. The rules are deterministic:
// identical judgments and evidence always produce identical verdicts.
package justice

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joescharf/tribunal/internal/engine"
	"github.com/joescharf/tribunal/internal/models"
	"github.com/joescharf/tribunal/internal/rubric"
)

// securityKeywords trigger the security-override rule when found in a
// low-scoring prosecutor argument.
var securityKeywords = []string{"security", "vulnerability", "bypass", "injection"}

// securityCap is the maximum final score once the override fires.
const securityCap = 3

// Synthesizer applies the conflict-resolution rules.
type Synthesizer struct {
	rubric *rubric.Rubric
}

// New creates a Synthesizer over the given rubric. The rubric is read
// only for remediation guidance; it is never mutated.
func New(r *rubric.Rubric) *Synthesizer {
	return &Synthesizer{rubric: r}
}

// Synthesize deliberates every criterion judgment and assembles the
// audit report. Criteria are processed in sorted id order so verdict
// ordering is stable.
func (s *Synthesizer) Synthesize(st *engine.RunState) engine.Update {
	ids := make([]string, 0, len(st.Judgments))
	for id := range st.Judgments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	verdicts := make([]models.FinalVerdict, 0, len(ids))
	narratives := make(map[string]string, len(ids))
	for _, id := range ids {
		j := st.Judgments[id]
		v := s.deliberate(j, st.Evidences)
		verdicts = append(verdicts, v)
		narratives[id] = narrate(j, v)
	}

	report := s.buildReport(st, verdicts, narratives)
	return engine.Update{Verdicts: verdicts, Report: report}
}

// deliberate resolves one criterion. The tech lead's pragmatic score is
// the base; the security-override and fact-supremacy rules adjust it.
func (s *Synthesizer) deliberate(j models.CriterionJudgment, ev models.EvidenceCollection) models.FinalVerdict {
	prosecutor := j.ByPersona(models.PersonaProsecutor)
	defense := j.ByPersona(models.PersonaDefense)
	techLead := j.ByPersona(models.PersonaTechLead)

	base := techLead
	if base == nil {
		base = prosecutor
	}
	if base == nil {
		base = defense
	}
	if base == nil {
		return models.FinalVerdict{
			CriterionID:     j.CriterionID,
			DissentSummary:  "No opinions were rendered for this criterion.",
			RemediationPlan: []string{"No remediation guidance available."},
		}
	}

	finalScore := base.Score
	securityOverride := false
	factSupremacy := false

	// Security-override rule: a credible security charge caps the score.
	if prosecutor != nil && prosecutor.Score <= 1 && mentionsSecurity(prosecutor.Argument) {
		if finalScore > securityCap {
			finalScore = securityCap
		}
		securityOverride = true
	}

	// Fact-supremacy rule: a generous defense citing evidence that the
	// collection disproves is overruled by the pragmatic base score.
	// The security override, if applied, stays flagged either way.
	if defense != nil && defense.Score >= 4 && !verifyCitations(defense.CitedEvidence, ev) {
		finalScore = base.Score
		factSupremacy = true
	}

	return models.FinalVerdict{
		CriterionID:             j.CriterionID,
		FinalScore:              finalScore,
		DissentSummary:          dissent(j, prosecutor, defense, techLead, finalScore),
		RemediationPlan:         s.remediation(j.CriterionID, finalScore, prosecutor, defense, techLead),
		SecurityOverrideApplied: securityOverride,
		FactSupremacyApplied:    factSupremacy,
	}
}

// mentionsSecurity reports whether the argument contains any security
// keyword, case-insensitive.
func mentionsSecurity(argument string) bool {
	lower := strings.ToLower(argument)
	for _, kw := range securityKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// verifyCitations fact-checks defense citations against the evidence
// collection. Citations the checker does not recognize pass by default.
func verifyCitations(citations []string, ev models.EvidenceCollection) bool {
	for _, citation := range citations {
		lower := strings.ToLower(citation)
		if strings.Contains(lower, "architecture_notes") {
			if ev.Structure == nil || !ev.Structure.ArchitectureNotesExists {
				return false
			}
		} else if strings.Contains(lower, "git") {
			if ev.History == nil || ev.History.CommitCount == 0 {
				return false
			}
		}
	}
	return true
}

// dissent records each persona's position and the final ruling.
func dissent(j models.CriterionJudgment, prosecutor, defense, techLead *models.Opinion, finalScore int) string {
	var parts []string

	if prosecutor != nil {
		parts = append(parts, fmt.Sprintf("Prosecution: Score %d - %s", prosecutor.Score, excerpt(prosecutor.Argument, 100)))
	}
	if defense != nil {
		parts = append(parts, fmt.Sprintf("Defense: Score %d - %s", defense.Score, excerpt(defense.Argument, 100)))
	}
	if techLead != nil {
		parts = append(parts, fmt.Sprintf("Tech Lead: Score %d - %s", techLead.Score, excerpt(techLead.Argument, 100)))
	}

	parts = append(parts, fmt.Sprintf("Final Ruling: Score %d", finalScore))

	if j.Variance() > 2 {
		parts = append(parts, "NOTE: Significant disagreement between evaluators resolved by the tech lead.")
	}
	return strings.Join(parts, "\n\n")
}

// remediation builds score-bucketed remediation steps.
func (s *Synthesizer) remediation(criterionID string, score int, prosecutor, defense, techLead *models.Opinion) []string {
	criterion := s.rubric.Criterion(criterionID)
	if criterion == nil {
		return []string{"No remediation guidance available."}
	}

	var steps []string
	switch {
	case score <= 2:
		if prosecutor != nil {
			steps = append(steps, "Critical: "+excerpt(prosecutor.Argument, 200))
		}
		if criterion.ForensicInstruction != "" {
			steps = append(steps, "Implement: "+criterion.ForensicInstruction)
		}
	case score == 3:
		if techLead != nil {
			steps = append(steps, "Refine: "+excerpt(techLead.Argument, 200))
		}
	default:
		if defense != nil {
			steps = append(steps, "Polish: "+excerpt(defense.Argument, 200))
		}
	}

	if prosecutor != nil && len(prosecutor.CitedEvidence) > 0 {
		cited := prosecutor.CitedEvidence
		if len(cited) > 3 {
			cited = cited[:3]
		}
		steps = append(steps, "Review evidence: "+strings.Join(cited, ", "))
	}
	return steps
}

// narrate writes the per-criterion narrative for the report.
func narrate(j models.CriterionJudgment, v models.FinalVerdict) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Final score %d/5 with a variance of %d across evaluators.", v.FinalScore, j.Variance())
	if v.SecurityOverrideApplied {
		sb.WriteString(" The security override capped the score.")
	}
	if v.FactSupremacyApplied {
		sb.WriteString(" Fact supremacy overruled the defense's citations.")
	}
	for _, p := range models.Personas {
		if o := j.ByPersona(p); o != nil {
			fmt.Fprintf(&sb, "\n%s (%d): %s", p, o.Score, excerpt(o.Argument, 150))
		}
	}
	return sb.String()
}

// buildReport assembles the terminal audit report.
func (s *Synthesizer) buildReport(st *engine.RunState, verdicts []models.FinalVerdict, narratives map[string]string) *models.AuditReport {
	totalScore := 0
	for _, v := range verdicts {
		totalScore += v.FinalScore
	}
	maxScore := len(verdicts) * 5
	percentage := 0.0
	if maxScore > 0 {
		percentage = float64(totalScore) / float64(maxScore) * 100
	}

	var sb strings.Builder
	sb.WriteString("# Audit Report\n\n")
	fmt.Fprintf(&sb, "**Repository:** %s\n", st.RepoRef)
	fmt.Fprintf(&sb, "**Timestamp:** %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "**Trace ID:** %s\n\n", st.TraceID)
	sb.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&sb, "**Overall Score:** %d/%d (%.1f%%)\n\n", totalScore, maxScore, percentage)
	fmt.Fprintf(&sb, "This audit evaluated the submission against %d criteria using a dialectical process with Prosecutor, Defense, and Tech Lead personas.\n\n", len(verdicts))
	sb.WriteString("### Key Findings:\n")
	for _, v := range verdicts {
		switch v.Status() {
		case "strong":
			fmt.Fprintf(&sb, "- ✅ %s: Strong implementation\n", v.CriterionID)
		case "critical":
			fmt.Fprintf(&sb, "- ❌ %s: Critical issues\n", v.CriterionID)
		default:
			fmt.Fprintf(&sb, "- ⚠️ %s: Needs improvement\n", v.CriterionID)
		}
	}

	remediation := make(map[string][]string, len(verdicts))
	for _, v := range verdicts {
		remediation[v.CriterionID] = v.RemediationPlan
	}

	summary := models.EvidenceSummary{
		CodeAnalyzed:     st.Evidences.Structure != nil,
		DocumentAnalyzed: st.Evidences.Document != nil,
	}
	if st.Evidences.History != nil {
		summary.GitCommits = st.Evidences.History.CommitCount
	}
	if st.Evidences.Diagram != nil {
		summary.DiagramsAnalyzed = st.Evidences.Diagram.ImageCount
	}

	return &models.AuditReport{
		RepoRef:             st.RepoRef,
		Timestamp:           time.Now().UTC(),
		ExecutiveSummary:    sb.String(),
		CriterionBreakdown:  verdicts,
		RemediationPlan:     remediation,
		RawEvidenceSummary:  summary,
		CriterionNarratives: narratives,
	}
}

// excerpt truncates s to at most n characters, never splitting a
// multibyte rune.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
