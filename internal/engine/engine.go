// Package engine drives the fixed six-stage audit workflow: evidence
// fan-out, evidence gate, scoring fan-out, judgment gate, synthesis,
// and report assembly. Stage nodes read a state view and return sparse
// updates; the engine merges them through the reducer table before any
// later stage observes the result.
package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/joescharf/tribunal/internal/output"
)

// CollectorStatus is the terminal status a collector reports.
type CollectorStatus string

const (
	CollectDone    CollectorStatus = "done"
	CollectFailed  CollectorStatus = "failed"
	CollectSkipped CollectorStatus = "skipped"
)

// Target identifies what a collector should examine.
type Target struct {
	RepoRef string
	DocRef  string
	Workdir string
}

// CollectorResult is the collector output contract. Collectors never
// panic or error past this boundary: failures are carried in Err.
type CollectorResult struct {
	Status CollectorStatus
	Err    string
	Update Update
}

// Collector produces one evidence component for a run target.
type Collector interface {
	Name() string
	Collect(ctx context.Context, target Target) CollectorResult
}

// Verifier is a post-fan-in step: it reads the settled evidence state
// and returns a partial update. Cross-checks that would race a sibling
// collector branch (claim verification against the clone) live here,
// after the fan-in barrier, instead of inside a branch.
type Verifier interface {
	Verify(st *RunState) Update
}

// ScoringPool runs all persona evaluators over the rubric and returns
// their opinions as a partial update. It must yield exactly one opinion
// per (persona, criterion) pair, substituting fallbacks on failure.
type ScoringPool interface {
	Score(ctx context.Context, st *RunState) Update
}

// Synthesizer reconciles conflicting opinions into final verdicts and
// the audit report.
type Synthesizer interface {
	Synthesize(st *RunState) Update
}

// Assembler renders the audit report into persisted artifacts. Pure
// formatting: it must not alter scores or text.
type Assembler interface {
	Assemble(st *RunState) (Artifacts, error)
}

// Archive checkpoints terminal run states. Optional.
type Archive interface {
	SaveRun(ctx context.Context, st *RunState) error
}

// Engine executes audit runs.
type Engine struct {
	collectors []Collector
	verifiers  []Verifier
	pool       ScoringPool
	synth      Synthesizer
	assembler  Assembler
	archive    Archive
	workdir    string
	ui         *output.UI
}

// Config wires an Engine.
type Config struct {
	Collectors  []Collector
	Verifiers   []Verifier // may be empty
	Pool        ScoringPool
	Synthesizer Synthesizer
	Assembler   Assembler
	Archive     Archive // may be nil
	Workdir     string  // base directory for per-run clone workspaces
	UI          *output.UI
}

// New creates an Engine from the given config.
func New(cfg Config) *Engine {
	ui := cfg.UI
	if ui == nil {
		ui = output.New()
	}
	return &Engine{
		collectors: cfg.Collectors,
		verifiers:  cfg.Verifiers,
		pool:       cfg.Pool,
		synth:      cfg.Synthesizer,
		assembler:  cfg.Assembler,
		archive:    cfg.Archive,
		workdir:    cfg.Workdir,
		ui:         ui,
	}
}

// ErrAborted marks a run that the evidence gate aborted. The returned
// RunState still carries whatever partial report was derivable.
var ErrAborted = fmt.Errorf("run aborted at evidence gate")

// Run executes the full workflow for one repository and returns the
// terminal state. The pipeline is total: every failure short of an
// explicit abort degrades to recorded errors plus safe defaults, and
// even an abort assembles a partial report first.
func (e *Engine) Run(ctx context.Context, repoRef, docRef string) (*RunState, error) {
	st := newRunState(repoRef, docRef)
	st.Workdir = filepath.Join(e.workdir, st.TraceID)
	e.ui.VerboseLog("run %s: auditing %s", st.TraceID, repoRef)

	// Stage 1+2: evidence fan-out behind the evidence gate. Retries
	// re-dispatch every collector; accumulated errors bound the loop
	// through the gate's abort threshold.
	for {
		st.applyAll(e.collectEvidence(ctx, st))

		route := EvidenceRoute(
			st.CloneOK,
			len(st.EvidenceErrors),
			st.Evidences.History != nil,
			st.Evidences.Structure != nil,
		)
		e.ui.VerboseLog("run %s: evidence gate -> %s (errors=%d attempts=%d)",
			st.TraceID, route, len(st.EvidenceErrors), st.DetectiveAttempts)

		if route == RouteAbort {
			st.Aborted = true
			st.Errors = append(st.Errors, "evidence gate aborted the run")
			e.finish(ctx, st)
			return st, ErrAborted
		}
		if route == RouteRetry {
			st.DetectiveAttempts++
			continue
		}
		break
	}

	// Post-fan-in verification: every collector branch has settled, so
	// cross-checks against their combined output (and the on-disk clone)
	// are race-free here.
	for _, v := range e.verifiers {
		st.apply(v.Verify(st))
	}

	// Stage 3+4: scoring fan-out behind the judgment gate. A retry
	// supersedes the previous attempt: all opinions are regenerated, so
	// the prior judgment map is dropped rather than appended to.
	for {
		u := e.pool.Score(ctx, st)
		st.apply(u)

		route := JudgeRoute(len(st.JudgeErrors), st.JudgeAttempts)
		e.ui.VerboseLog("run %s: judgment gate -> %s (errors=%d attempts=%d)",
			st.TraceID, route, len(st.JudgeErrors), st.JudgeAttempts)

		if route == RouteRetry {
			st.JudgeAttempts++
			st.Warnings = append(st.Warnings,
				fmt.Sprintf("retrying scoring after %d judge errors", len(st.JudgeErrors)))
			st.Judgments = nil
			continue
		}
		break
	}

	// Stage 5+6: synthesis and assembly.
	st.apply(e.synth.Synthesize(st))
	e.finish(ctx, st)
	return st, nil
}

// finish renders artifacts and checkpoints the terminal state. Called on
// both normal completion and abort.
func (e *Engine) finish(ctx context.Context, st *RunState) {
	if st.Report == nil {
		// Aborted before synthesis: derive whatever partial report the
		// collected state allows.
		st.apply(e.synth.Synthesize(st))
	}
	artifacts, err := e.assembler.Assemble(st)
	if err != nil {
		st.Errors = append(st.Errors, fmt.Sprintf("assemble report: %v", err))
	} else {
		st.Artifacts = artifacts
	}

	if e.archive != nil {
		if err := e.archive.SaveRun(ctx, st); err != nil {
			st.Warnings = append(st.Warnings, fmt.Sprintf("archive run: %v", err))
		}
	}
}

// collectEvidence fans out all collectors concurrently and returns their
// partial updates. Branches never observe each other's output; a slow or
// failed branch does not cancel its siblings, and the fan-in waits for
// every branch regardless of outcome.
func (e *Engine) collectEvidence(ctx context.Context, st *RunState) []Update {
	target := Target{RepoRef: st.RepoRef, DocRef: st.DocRef, Workdir: st.Workdir}
	updates := make([]Update, len(e.collectors))

	var g errgroup.Group
	for i, c := range e.collectors {
		g.Go(func() error {
			res := c.Collect(ctx, target)
			switch res.Status {
			case CollectFailed:
				res.Update.EvidenceErrors = append(res.Update.EvidenceErrors,
					fmt.Sprintf("%s: %s", c.Name(), res.Err))
			case CollectSkipped:
				res.Update.Warnings = append(res.Update.Warnings,
					fmt.Sprintf("%s skipped: %s", c.Name(), res.Err))
			}
			updates[i] = res.Update
			return nil
		})
	}
	_ = g.Wait() // branch failures live in their updates, never here
	return updates
}

// BatchResult is the outcome of one batch item.
type BatchResult struct {
	RepoRef string
	State   *RunState
	Err     error
}

// BatchRun audits many repositories concurrently. Each run is fully
// isolated; one run's failure is captured in its result, not propagated.
// docRefs must be empty or index-aligned with repoRefs.
func (e *Engine) BatchRun(ctx context.Context, repoRefs, docRefs []string) ([]BatchResult, error) {
	if len(docRefs) > 0 && len(docRefs) != len(repoRefs) {
		return nil, fmt.Errorf("got %d doc refs for %d repos", len(docRefs), len(repoRefs))
	}

	results := make([]BatchResult, len(repoRefs))
	var g errgroup.Group
	for i, repoRef := range repoRefs {
		docRef := ""
		if len(docRefs) > 0 {
			docRef = docRefs[i]
		}
		g.Go(func() error {
			st, err := e.Run(ctx, repoRef, docRef)
			results[i] = BatchResult{RepoRef: repoRef, State: st, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}
