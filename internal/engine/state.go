package engine

import (
	"math/rand"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/tribunal/internal/models"
)

// RunState is the full per-run record. It is exclusively owned by its
// run and mutated only by applying reducer-merged partial updates.
type RunState struct {
	TraceID string
	RepoRef string
	DocRef  string

	CloneOK bool
	Workdir string

	Evidences         models.EvidenceCollection
	EvidenceErrors    []string
	DetectiveAttempts int

	Judgments     map[string]models.CriterionJudgment
	JudgeErrors   []string
	JudgeAttempts int

	Verdicts []models.FinalVerdict
	Report   *models.AuditReport

	Artifacts Artifacts

	Errors   []string
	Warnings []string

	StartedAt time.Time
	Aborted   bool
}

// Artifacts holds the paths of the rendered report documents.
type Artifacts struct {
	Full    string `json:"full"`
	Summary string `json:"summary"`
	JSON    string `json:"json"`
}

// Update is a sparse partial update emitted by a stage node. Nil/zero
// fields are absent and leave the state untouched.
type Update struct {
	Evidences      *models.EvidenceCollection
	EvidenceErrors []string

	Judgments   map[string]models.CriterionJudgment
	JudgeErrors []string

	Verdicts []models.FinalVerdict
	Report   *models.AuditReport

	CloneOK *bool
	Workdir *string

	Errors   []string
	Warnings []string
}

// reducer merges one field of an Update into the state. Every reducer
// must be associative with the field's zero value as identity so that
// fan-in merge order never changes the result.
type reducer func(st *RunState, u Update)

// reducerTable maps state field names to their merge functions. Appending
// fields accumulate, the evidence collection merges right-presence-wins,
// judgment maps union with opinion concatenation, and pointer-carried
// scalars are last-write-wins when set.
var reducerTable = map[string]reducer{
	"evidences": func(st *RunState, u Update) {
		if u.Evidences != nil {
			st.Evidences = models.MergeEvidence(st.Evidences, *u.Evidences)
		}
	},
	"evidence_errors": func(st *RunState, u Update) {
		st.EvidenceErrors = append(st.EvidenceErrors, u.EvidenceErrors...)
	},
	"judgments": func(st *RunState, u Update) {
		if len(u.Judgments) > 0 {
			st.Judgments = models.MergeJudgments(st.Judgments, u.Judgments)
		}
	},
	"judge_errors": func(st *RunState, u Update) {
		st.JudgeErrors = append(st.JudgeErrors, u.JudgeErrors...)
	},
	"verdicts": func(st *RunState, u Update) {
		if len(u.Verdicts) > 0 {
			st.Verdicts = u.Verdicts
		}
	},
	"report": func(st *RunState, u Update) {
		if u.Report != nil {
			st.Report = u.Report
		}
	},
	"clone_ok": func(st *RunState, u Update) {
		if u.CloneOK != nil {
			st.CloneOK = *u.CloneOK
		}
	},
	"workdir": func(st *RunState, u Update) {
		if u.Workdir != nil {
			st.Workdir = *u.Workdir
		}
	},
	"errors": func(st *RunState, u Update) {
		st.Errors = append(st.Errors, u.Errors...)
	},
	"warnings": func(st *RunState, u Update) {
		st.Warnings = append(st.Warnings, u.Warnings...)
	},
}

// reducerOrder is the fixed field application order, derived once from
// the table keys so apply is deterministic.
var reducerOrder = func() []string {
	keys := make([]string, 0, len(reducerTable))
	for k := range reducerTable {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}()

// apply merges a single partial update into the state through the
// reducer table.
func (st *RunState) apply(u Update) {
	for _, k := range reducerOrder {
		reducerTable[k](st, u)
	}
}

// applyAll merges a batch of fan-out updates. Branch completion order is
// unconstrained; reducers make the merged result independent of it.
func (st *RunState) applyAll(updates []Update) {
	for _, u := range updates {
		st.apply(u)
	}
}

// newRunState creates the initial state for a run: counters zero, all
// optional fields absent, fresh trace id.
func newRunState(repoRef, docRef string) *RunState {
	return &RunState{
		TraceID:   newTraceID(),
		RepoRef:   repoRef,
		DocRef:    docRef,
		StartedAt: time.Now().UTC(),
	}
}

// newTraceID generates a ULID trace identifier.
func newTraceID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// BoolPtr is a convenience for Update's pointer-carried scalars.
func BoolPtr(b bool) *bool { return &b }

// StrPtr is a convenience for Update's pointer-carried scalars.
func StrPtr(s string) *string { return &s }
