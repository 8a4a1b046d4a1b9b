// Package judge runs the scoring pool: three persona-biased evaluators
// scoring every rubric criterion in parallel branches. The pool is
// total — every (persona, criterion) pair yields exactly one opinion,
// with deterministic fallbacks substituted for failed workers.
package judge

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/joescharf/tribunal/internal/engine"
	"github.com/joescharf/tribunal/internal/models"
	"github.com/joescharf/tribunal/internal/rubric"
)

// Worker scores one criterion under one persona's bias. Implementations
// may fail; the pool handles fallback substitution.
type Worker interface {
	Score(ctx context.Context, criterion rubric.Criterion, evidenceSummary string, persona models.Persona) (models.Opinion, error)
}

// Pool coordinates the persona fan-out over the rubric.
type Pool struct {
	worker Worker
	rubric *rubric.Rubric
}

// NewPool creates a scoring pool over the given worker and rubric.
func NewPool(w Worker, r *rubric.Rubric) *Pool {
	return &Pool{worker: w, rubric: r}
}

// Fallback is the opinion substituted when a worker fails: score 1,
// confidence 0.1, the failure description as argument.
func Fallback(persona models.Persona, criterionID, reason string) models.Opinion {
	return models.Opinion{
		Persona:     persona,
		CriterionID: criterionID,
		Score:       1,
		Argument:    "Judgment failed: " + reason,
		Confidence:  0.1,
	}
}

// branchResult is one persona branch's output. Branches never observe
// each other; the pool merges them after the fan-in.
type branchResult struct {
	judgments map[string]models.CriterionJudgment
	errs      []string
}

// Score fans out the three personas concurrently, each scoring all
// rubric criteria sequentially, and merges their opinions into one
// partial update. Worker failures become fallback opinions; upstream
// failures are additionally recorded as judge errors so the judgment
// gate can retry once.
func (p *Pool) Score(ctx context.Context, st *engine.RunState) engine.Update {
	summary := Summarize(st.Evidences)

	branches := make([]branchResult, len(models.Personas))

	var g errgroup.Group
	for i, persona := range models.Personas {
		g.Go(func() error {
			branches[i] = p.scorePersona(ctx, persona, summary)
			return nil
		})
	}
	_ = g.Wait() // branch failures live in their results

	var u engine.Update
	for _, b := range branches {
		u.Judgments = models.MergeJudgments(u.Judgments, b.judgments)
		u.JudgeErrors = append(u.JudgeErrors, b.errs...)
	}
	return u
}

// scorePersona runs one persona over every rubric criterion.
func (p *Pool) scorePersona(ctx context.Context, persona models.Persona, summary string) branchResult {
	b := branchResult{judgments: make(map[string]models.CriterionJudgment, len(p.rubric.Dimensions))}

	for _, criterion := range p.rubric.Dimensions {
		op, err := p.worker.Score(ctx, criterion, summary, persona)
		if err != nil {
			op = Fallback(persona, criterion.ID, err.Error())
			// Schema-invalid responses stay local; only upstream
			// failures count as judge errors and can drive a retry.
			if !errors.Is(err, ErrInvalidOpinion) {
				b.errs = append(b.errs, fmt.Sprintf("%s/%s: %v", persona, criterion.ID, err))
			}
		} else {
			// Never trust identity fields from the worker.
			op.Persona = persona
			op.CriterionID = criterion.ID
			if verr := op.Validate(); verr != nil {
				// Validation failure stays local: fallback opinion,
				// no run-level judge error.
				op = Fallback(persona, criterion.ID, verr.Error())
			}
		}

		j, ok := b.judgments[criterion.ID]
		if !ok {
			j = models.CriterionJudgment{
				CriterionID:   criterion.ID,
				CriterionName: criterion.Name,
			}
		}
		j.Opinions = append(j.Opinions, op)
		b.judgments[criterion.ID] = j
	}
	return b
}
