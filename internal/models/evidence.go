package models

import (
	"strings"
	"time"
)

// Evidence is a single forensic finding recorded by a collector.
type Evidence struct {
	Found      bool      `json:"found"`
	Content    string    `json:"content,omitempty"`
	Location   string    `json:"location"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Clamp forces confidence into [0, 1].
func (e *Evidence) Clamp() {
	if e.Confidence < 0 {
		e.Confidence = 0
	}
	if e.Confidence > 1 {
		e.Confidence = 1
	}
}

// Commit holds structured git commit information mined from the repo log.
type Commit struct {
	Hash         string    `json:"hash"`
	Message      string    `json:"message"`
	Author       string    `json:"author"`
	Timestamp    time.Time `json:"timestamp"`
	FilesChanged []string  `json:"files_changed,omitempty"`
}

// atomicPrefixes are commit-message markers that indicate deliberate,
// reviewable units of work rather than bulk dumps.
var atomicPrefixes = []string{
	"feat:", "fix:", "docs:", "style:", "refactor:",
	"perf:", "test:", "chore:", "Add", "Implement",
	"Update", "Remove", "Fix",
}

// IsAtomic reports whether the commit message looks like an atomic unit of work.
func (c Commit) IsAtomic() bool {
	for _, p := range atomicPrefixes {
		if strings.Contains(c.Message, p) {
			return true
		}
	}
	return false
}

// HistoryEvidence is the git-history component of an evidence collection.
type HistoryEvidence struct {
	Commits       []Commit `json:"commits"`
	CommitCount   int      `json:"commit_count"`
	AtomicHistory bool     `json:"atomic_history"`
	// Progression is one of: analysis_scaffolding_logic, bulk_dump,
	// monolithic, unknown.
	Progression string `json:"progression"`
}

// StructureEvidence is the static code-structure component.
type StructureEvidence struct {
	ArchitectureNotesExists  bool     `json:"architecture_notes_exists"`
	ArchitectureNotePaths    []string `json:"architecture_note_paths,omitempty"`
	StateModelsDetected      bool     `json:"state_models_detected"`
	StateModelPaths          []string `json:"state_model_paths,omitempty"`
	FanOutDetected           bool     `json:"fan_out_detected"`
	FanInDetected            bool     `json:"fan_in_detected"`
	ConditionalEdgesDetected bool     `json:"conditional_edges_detected"`
	CheckpointerDetected     bool     `json:"checkpointer_detected"`
	NodeCount                int      `json:"node_count"`
	EdgeCount                int      `json:"edge_count"`
	TestFilesDetected        bool     `json:"test_files_detected"`
}

// DocumentEvidence is the submitted-document component.
type DocumentEvidence struct {
	ClaimedPaths      []string `json:"claimed_paths,omitempty"`
	VerifiedPaths     []string `json:"verified_paths,omitempty"`
	HallucinatedPaths []string `json:"hallucinated_paths,omitempty"`
	WordCount         int      `json:"word_count"`
	SectionCount      int      `json:"section_count"`
}

// DiagramEvidence is the diagram/image component.
type DiagramEvidence struct {
	ImageCount   int      `json:"image_count"`
	DiagramTypes []string `json:"diagram_types,omitempty"`
	FlowLabeled  bool     `json:"flow_labeled"`
}

// EvidenceCollection aggregates all collector output for one run.
// Once the run reaches scoring the collection is treated as immutable.
type EvidenceCollection struct {
	History   *HistoryEvidence   `json:"history,omitempty"`
	Structure *StructureEvidence `json:"structure,omitempty"`
	Document  *DocumentEvidence  `json:"document,omitempty"`
	Diagram   *DiagramEvidence   `json:"diagram,omitempty"`

	Raw map[string]Evidence `json:"raw,omitempty"`
}

// MergeEvidence combines two partial evidence collections produced by
// concurrent collectors. Presence wins on the right for the structured
// components; the raw map is merged key-wise with right overriding.
// The zero collection is the identity, and the merge is associative, so
// fan-in order never changes the result.
func MergeEvidence(left, right EvidenceCollection) EvidenceCollection {
	out := EvidenceCollection{
		History:   left.History,
		Structure: left.Structure,
		Document:  left.Document,
		Diagram:   left.Diagram,
	}
	if right.History != nil {
		out.History = right.History
	}
	if right.Structure != nil {
		out.Structure = right.Structure
	}
	if right.Document != nil {
		out.Document = right.Document
	}
	if right.Diagram != nil {
		out.Diagram = right.Diagram
	}

	if len(left.Raw) > 0 || len(right.Raw) > 0 {
		out.Raw = make(map[string]Evidence, len(left.Raw)+len(right.Raw))
		for k, v := range left.Raw {
			out.Raw[k] = v
		}
		for k, v := range right.Raw {
			out.Raw[k] = v
		}
	}
	return out
}
