package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOpinion() Opinion {
	return Opinion{
		Persona:     PersonaProsecutor,
		CriterionID: "forensic_accuracy_code",
		Score:       3,
		Argument:    "Structure is present but the checkpointer is missing.",
		Confidence:  0.8,
	}
}

func TestOpinionValidate(t *testing.T) {
	assert.NoError(t, validOpinion().Validate())

	o := validOpinion()
	o.Score = 6
	assert.Error(t, o.Validate())

	o = validOpinion()
	o.Score = -1
	assert.Error(t, o.Validate())

	o = validOpinion()
	o.Confidence = 1.2
	assert.Error(t, o.Validate())

	o = validOpinion()
	o.Persona = "Jury"
	assert.Error(t, o.Validate())

	o = validOpinion()
	o.CriterionID = ""
	assert.Error(t, o.Validate())
}

func TestPersonaBias(t *testing.T) {
	for _, p := range Personas {
		b := p.Bias()
		assert.NotEmpty(t, b.Philosophy, "persona %s", p)
		assert.NotEmpty(t, b.Guidance, "persona %s", p)
	}
}

func TestCriterionJudgmentVariance(t *testing.T) {
	j := CriterionJudgment{Opinions: []Opinion{
		{Persona: PersonaProsecutor, Score: 1},
		{Persona: PersonaDefense, Score: 5},
		{Persona: PersonaTechLead, Score: 3},
	}}
	assert.Equal(t, 4, j.Variance())

	assert.Equal(t, 0, CriterionJudgment{}.Variance())
	assert.Equal(t, 0, CriterionJudgment{Opinions: []Opinion{{Score: 2}}}.Variance())
}

func TestByPersona_LatestWins(t *testing.T) {
	j := CriterionJudgment{Opinions: []Opinion{
		{Persona: PersonaDefense, Score: 2, Argument: "first attempt"},
		{Persona: PersonaDefense, Score: 4, Argument: "retry"},
	}}

	op := j.ByPersona(PersonaDefense)
	require.NotNil(t, op)
	assert.Equal(t, 4, op.Score)

	assert.Nil(t, j.ByPersona(PersonaTechLead))
}

func TestMergeJudgments(t *testing.T) {
	left := map[string]CriterionJudgment{
		"a": {CriterionID: "a", Opinions: []Opinion{{Persona: PersonaProsecutor, Score: 1}}},
	}
	right := map[string]CriterionJudgment{
		"a": {CriterionID: "a", Opinions: []Opinion{{Persona: PersonaDefense, Score: 5}}},
		"b": {CriterionID: "b", Opinions: []Opinion{{Persona: PersonaTechLead, Score: 3}}},
	}

	out := MergeJudgments(left, right)
	require.Len(t, out, 2)
	assert.Len(t, out["a"].Opinions, 2)
	assert.Len(t, out["b"].Opinions, 1)

	// Merge does not mutate its inputs
	assert.Len(t, left["a"].Opinions, 1)

	assert.Nil(t, MergeJudgments(nil, nil))
}
