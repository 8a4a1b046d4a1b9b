package detect

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joescharf/tribunal/internal/engine"
	"github.com/joescharf/tribunal/internal/models"
)

// DocAnalyst reads the submitted report document and cross-references
// the file paths it claims against the cloned repository.
type DocAnalyst struct{}

// NewDocAnalyst creates a document analyst.
func NewDocAnalyst() *DocAnalyst {
	return &DocAnalyst{}
}

func (d *DocAnalyst) Name() string { return "doc_analyst" }

// claimedPathRe matches path-like tokens with a source/docs extension.
var claimedPathRe = regexp.MustCompile(`[\w.-]+(?:/[\w.-]+)+\.(?:go|py|ts|js|md|ya?ml|json)`)

// Collect extracts claims from the document. Skipped when the run has
// no document reference.
func (d *DocAnalyst) Collect(ctx context.Context, target engine.Target) engine.CollectorResult {
	if target.DocRef == "" {
		return engine.CollectorResult{Status: engine.CollectSkipped, Err: "no document provided"}
	}

	data, err := os.ReadFile(target.DocRef)
	if err != nil {
		return engine.CollectorResult{Status: engine.CollectFailed, Err: "read document: " + err.Error()}
	}
	text := string(data)

	claimed := uniqueStrings(claimedPathRe.FindAllString(text, -1))

	// Only the claims are extracted here. The repo branch may still be
	// mid-clone while this branch runs, so bucketing into verified vs
	// hallucinated waits for ClaimVerifier after the fan-in, when the
	// clone has settled.
	doc := &models.DocumentEvidence{
		ClaimedPaths: claimed,
		WordCount:    len(strings.Fields(text)),
		SectionCount: strings.Count(text, "\n#"),
	}

	ev := models.EvidenceCollection{
		Document: doc,
		Raw: map[string]models.Evidence{
			"doc_claims": {
				Found:      len(claimed) > 0,
				Content:    strings.Join(claimed, ", "),
				Location:   target.DocRef,
				Confidence: 0.8,
				Timestamp:  time.Now().UTC(),
			},
		},
	}

	return engine.CollectorResult{
		Status: engine.CollectDone,
		Update: engine.Update{Evidences: &ev},
	}
}

// ClaimVerifier cross-checks the document's claimed paths against the
// completed clone. It runs as a post-fan-in step, after every collector
// branch has finished, so bucketing never observes a clone in progress.
type ClaimVerifier struct{}

// NewClaimVerifier creates a claim verifier.
func NewClaimVerifier() *ClaimVerifier {
	return &ClaimVerifier{}
}

// Verify buckets claimed paths into verified and hallucinated. Claims
// stay unbucketed when there is no completed clone to check against.
func (c *ClaimVerifier) Verify(st *engine.RunState) engine.Update {
	doc := st.Evidences.Document
	if doc == nil || len(doc.ClaimedPaths) == 0 || !st.CloneOK {
		return engine.Update{}
	}
	repoDir := filepath.Join(st.Workdir, "repo")
	if _, err := os.Stat(repoDir); err != nil {
		return engine.Update{}
	}

	out := *doc
	out.VerifiedPaths, out.HallucinatedPaths = nil, nil
	for _, p := range doc.ClaimedPaths {
		if _, err := os.Stat(filepath.Join(repoDir, p)); err == nil {
			out.VerifiedPaths = append(out.VerifiedPaths, p)
		} else {
			out.HallucinatedPaths = append(out.HallucinatedPaths, p)
		}
	}

	ev := models.EvidenceCollection{Document: &out}
	return engine.Update{Evidences: &ev}
}

// uniqueStrings deduplicates while preserving first-seen order.
func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
