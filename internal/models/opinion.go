package models

import "fmt"

// Persona identifies one of the three fixed scoring biases.
type Persona string

const (
	PersonaProsecutor Persona = "Prosecutor"
	PersonaDefense    Persona = "Defense"
	PersonaTechLead   Persona = "TechLead"
)

// Personas lists all scoring personas in dispatch order.
var Personas = []Persona{PersonaProsecutor, PersonaDefense, PersonaTechLead}

// Valid reports whether p is a known persona.
func (p Persona) Valid() bool {
	switch p {
	case PersonaProsecutor, PersonaDefense, PersonaTechLead:
		return true
	}
	return false
}

// Bias describes a persona's fixed evaluation policy. It is a contract
// the scoring worker must honor, not a prompt template.
type Bias struct {
	Philosophy string
	Guidance   string
}

// Bias returns the persona's evaluation policy.
func (p Persona) Bias() Bias {
	switch p {
	case PersonaProsecutor:
		return Bias{
			Philosophy: "Trust no one. Scrutinize evidence for gaps, security flaws, and laziness.",
			Guidance: "Score 0-1 for critical failures, security flaws, or missing core components. " +
				"Score 2-3 for present but flawed implementation. " +
				"Reserve 4-5 for irrefutable, fully-integrated, production-grade evidence.",
		}
	case PersonaDefense:
		return Bias{
			Philosophy: "Reward effort and intent. Look for the spirit of the law.",
			Guidance: "Be generous: give partial credit for partial implementations, " +
				"boost scores for documented intent even when code is incomplete, " +
				"and credit iterative history that shows learning.",
		}
	default:
		return Bias{
			Philosophy: "Does it actually work? Is it maintainable?",
			Guidance: "Score 1 for unworkable or incomprehensible work. " +
				"Score 3 for code that works but needs refactoring. " +
				"Score 5 for production-grade, clean, well-architected work. " +
				"You are the pragmatic tie-breaker.",
		}
	}
}

// Opinion is a single persona's scored assessment of one rubric criterion.
// Opinions are created exactly once per (persona, criterion) pair per
// scoring attempt and never mutated afterwards.
type Opinion struct {
	Persona       Persona  `json:"persona"`
	CriterionID   string   `json:"criterion_id"`
	Score         int      `json:"score"`
	Argument      string   `json:"argument"`
	CitedEvidence []string `json:"cited_evidence,omitempty"`
	Confidence    float64  `json:"confidence"`
}

// Validate checks the opinion against the scoring contract.
func (o Opinion) Validate() error {
	if !o.Persona.Valid() {
		return fmt.Errorf("unknown persona %q", o.Persona)
	}
	if o.CriterionID == "" {
		return fmt.Errorf("missing criterion id")
	}
	if o.Score < 0 || o.Score > 5 {
		return fmt.Errorf("score %d out of range [0,5]", o.Score)
	}
	if o.Confidence < 0 || o.Confidence > 1 {
		return fmt.Errorf("confidence %.2f out of range [0,1]", o.Confidence)
	}
	return nil
}

// CriterionJudgment collects all persona opinions for one criterion.
type CriterionJudgment struct {
	CriterionID   string    `json:"criterion_id"`
	CriterionName string    `json:"criterion_name"`
	Opinions      []Opinion `json:"opinions"`
}

// Variance is the spread between the highest and lowest score.
func (j CriterionJudgment) Variance() int {
	if len(j.Opinions) < 2 {
		return 0
	}
	lo, hi := j.Opinions[0].Score, j.Opinions[0].Score
	for _, o := range j.Opinions[1:] {
		if o.Score < lo {
			lo = o.Score
		}
		if o.Score > hi {
			hi = o.Score
		}
	}
	return hi - lo
}

// ByPersona returns the judgment's opinion for the given persona, or nil.
// When retries have left multiple opinions for the same persona, the
// latest one wins.
func (j CriterionJudgment) ByPersona(p Persona) *Opinion {
	for i := len(j.Opinions) - 1; i >= 0; i-- {
		if j.Opinions[i].Persona == p {
			return &j.Opinions[i]
		}
	}
	return nil
}

// MergeJudgments combines two partial judgment maps produced by parallel
// scoring branches. Keys are unioned; on collision the opinion lists are
// concatenated. Supersession of retried opinions happens in the scoring
// pool before the merge, so concatenation here stays order-independent.
func MergeJudgments(left, right map[string]CriterionJudgment) map[string]CriterionJudgment {
	if len(left) == 0 && len(right) == 0 {
		return nil
	}
	out := make(map[string]CriterionJudgment, len(left)+len(right))
	for k, v := range left {
		out[k] = v
	}
	for k, v := range right {
		if existing, ok := out[k]; ok {
			existing.Opinions = append(append([]Opinion{}, existing.Opinions...), v.Opinions...)
			out[k] = existing
			continue
		}
		out[k] = v
	}
	return out
}
