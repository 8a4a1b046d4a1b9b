// Package detect implements the evidence collectors. Each collector
// examines one facet of a submission and reports a partial evidence
// update through the engine's collector contract; failures are carried
// as status + error string, never as panics.
package detect

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joescharf/tribunal/internal/engine"
	"github.com/joescharf/tribunal/internal/models"
)

// RepoInvestigator clones the submission repository and mines its git
// history and code structure.
type RepoInvestigator struct {
	git GitClient
}

// NewRepoInvestigator creates a repo investigator with the given git client.
func NewRepoInvestigator(gc GitClient) *RepoInvestigator {
	return &RepoInvestigator{git: gc}
}

func (r *RepoInvestigator) Name() string { return "repo_investigator" }

// Collect clones the repo and produces history and structure evidence.
// A clone failure is fatal for the run and reported through CloneOK.
func (r *RepoInvestigator) Collect(ctx context.Context, target engine.Target) engine.CollectorResult {
	dest := filepath.Join(target.Workdir, "repo")

	// Retries re-dispatch the full fan-out, so a previous clone may
	// still be on disk. Reuse it rather than cloning again.
	if _, err := os.Stat(filepath.Join(dest, ".git")); err != nil {
		if err := os.MkdirAll(target.Workdir, 0o755); err != nil {
			return engine.CollectorResult{
				Status: engine.CollectFailed,
				Err:    err.Error(),
				Update: engine.Update{CloneOK: engine.BoolPtr(false)},
			}
		}
		if err := r.git.Clone(target.RepoRef, dest); err != nil {
			return engine.CollectorResult{
				Status: engine.CollectFailed,
				Err:    err.Error(),
				Update: engine.Update{CloneOK: engine.BoolPtr(false)},
			}
		}
	}

	commits, err := r.git.Log(dest)
	if err != nil {
		return engine.CollectorResult{
			Status: engine.CollectFailed,
			Err:    err.Error(),
			Update: engine.Update{CloneOK: engine.BoolPtr(true)},
		}
	}

	history := buildHistoryEvidence(commits)
	structure := scanStructure(dest)

	messages := make([]string, len(commits))
	for i, c := range commits {
		messages[i] = c.Message
	}

	ev := models.EvidenceCollection{
		History:   history,
		Structure: structure,
		Raw: map[string]models.Evidence{
			"git_commits": {
				Found:      len(commits) > 0,
				Content:    strings.Join(messages, "; "),
				Location:   "git_log",
				Confidence: 1.0,
				Timestamp:  time.Now().UTC(),
			},
			"graph_structure": {
				Found:      structure.FanOutDetected || structure.FanInDetected,
				Content:    structureSummary(structure),
				Location:   "static_analysis",
				Confidence: 0.9,
				Timestamp:  time.Now().UTC(),
			},
		},
	}

	return engine.CollectorResult{
		Status: engine.CollectDone,
		Update: engine.Update{
			Evidences: &ev,
			CloneOK:   engine.BoolPtr(true),
			Workdir:   engine.StrPtr(target.Workdir),
		},
	}
}

// buildHistoryEvidence derives the history component from raw commits.
func buildHistoryEvidence(commits []models.Commit) *models.HistoryEvidence {
	atomic := 0
	for _, c := range commits {
		if c.IsAtomic() {
			atomic++
		}
	}
	return &models.HistoryEvidence{
		Commits:       commits,
		CommitCount:   len(commits),
		AtomicHistory: len(commits) > 0 && atomic*2 >= len(commits),
		Progression:   classifyProgression(commits),
	}
}

// classifyProgression buckets the commit history shape.
func classifyProgression(commits []models.Commit) string {
	switch {
	case len(commits) == 0:
		return "unknown"
	case len(commits) == 1:
		return "monolithic"
	}

	first, last := commits[0].Timestamp, commits[len(commits)-1].Timestamp
	if !first.IsZero() && !last.IsZero() && last.Sub(first) < time.Hour {
		return "bulk_dump"
	}

	atomic := 0
	for _, c := range commits {
		if c.IsAtomic() {
			atomic++
		}
	}
	if len(commits) >= 5 && atomic*2 >= len(commits) {
		return "analysis_scaffolding_logic"
	}
	return "unknown"
}

// structureMarkers are textual patterns searched across source files.
var structureMarkers = struct {
	stateModel  []string
	fanEdge     string
	conditional []string
	checkpoint  []string
}{
	stateModel:  []string{"BaseModel", "TypedDict", "type RunState", "reducer"},
	fanEdge:     "add_edge",
	conditional: []string{"add_conditional_edges", "conditional_edges"},
	checkpoint:  []string{"checkpointer", "MemorySaver", "Checkpoint"},
}

// scanStructure walks the cloned repo and pattern-searches source files
// for structural markers. It is deterministic for identical trees.
func scanStructure(root string) *models.StructureEvidence {
	se := &models.StructureEvidence{}

	edgeSources := make(map[string]int) // fan-out: one source, many edges
	edgeTargets := make(map[string]int) // fan-in: many edges, one target

	_ = filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		name := info.Name()
		lower := strings.ToLower(name)
		rel, _ := filepath.Rel(root, p)

		if strings.HasPrefix(lower, "architecture") || lower == "architecture_notes.md" || lower == "design.md" {
			se.ArchitectureNotesExists = true
			se.ArchitectureNotePaths = append(se.ArchitectureNotePaths, rel)
		}
		if strings.HasSuffix(name, "_test.go") || strings.HasPrefix(name, "test_") {
			se.TestFilesDetected = true
		}

		ext := filepath.Ext(name)
		if ext != ".go" && ext != ".py" && ext != ".ts" && ext != ".js" {
			return nil
		}
		if info.Size() > 1<<20 {
			return nil
		}

		f, err := os.Open(p)
		if err != nil {
			return nil
		}
		defer func() { _ = f.Close() }()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := scanner.Text()

			for _, m := range structureMarkers.stateModel {
				if strings.Contains(line, m) {
					if !se.StateModelsDetected {
						se.StateModelsDetected = true
					}
					if len(se.StateModelPaths) == 0 || se.StateModelPaths[len(se.StateModelPaths)-1] != rel {
						se.StateModelPaths = append(se.StateModelPaths, rel)
					}
					break
				}
			}
			for _, m := range structureMarkers.conditional {
				if strings.Contains(line, m) {
					se.ConditionalEdgesDetected = true
					break
				}
			}
			for _, m := range structureMarkers.checkpoint {
				if strings.Contains(line, m) {
					se.CheckpointerDetected = true
					break
				}
			}
			if src, dst, ok := parseEdge(line); ok {
				se.EdgeCount++
				edgeSources[src]++
				edgeTargets[dst]++
			}
			if strings.Contains(line, "add_node") {
				se.NodeCount++
			}
		}
		return nil
	})

	for _, n := range edgeSources {
		if n > 1 {
			se.FanOutDetected = true
			break
		}
	}
	for _, n := range edgeTargets {
		if n > 1 {
			se.FanInDetected = true
			break
		}
	}
	return se
}

// parseEdge extracts the (source, target) pair from an add_edge call.
func parseEdge(line string) (src, dst string, ok bool) {
	idx := strings.Index(line, structureMarkers.fanEdge+"(")
	if idx < 0 {
		return "", "", false
	}
	rest := line[idx+len(structureMarkers.fanEdge)+1:]
	end := strings.Index(rest, ")")
	if end < 0 {
		return "", "", false
	}
	parts := strings.Split(rest[:end], ",")
	if len(parts) != 2 {
		return "", "", false
	}
	src = strings.Trim(strings.TrimSpace(parts[0]), `"'`)
	dst = strings.Trim(strings.TrimSpace(parts[1]), `"'`)
	if src == "" || dst == "" {
		return "", "", false
	}
	return src, dst, true
}

// structureSummary renders a stable one-line description of the scan.
func structureSummary(se *models.StructureEvidence) string {
	var sb strings.Builder
	sb.WriteString("fan_out=")
	sb.WriteString(boolWord(se.FanOutDetected))
	sb.WriteString(" fan_in=")
	sb.WriteString(boolWord(se.FanInDetected))
	sb.WriteString(" conditional=")
	sb.WriteString(boolWord(se.ConditionalEdgesDetected))
	sb.WriteString(" checkpointer=")
	sb.WriteString(boolWord(se.CheckpointerDetected))
	return sb.String()
}

func boolWord(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
