package judge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joescharf/tribunal/internal/models"
)

// Summarize renders the evidence collection as a deterministic text
// block for scoring workers. Field order is fixed and raw keys are
// sorted, so identical evidence always produces an identical summary.
func Summarize(ev models.EvidenceCollection) string {
	var sb strings.Builder

	if h := ev.History; h != nil {
		fmt.Fprintf(&sb, "Git History: %d commits\n", h.CommitCount)
		fmt.Fprintf(&sb, "Progression: %s\n", h.Progression)
		fmt.Fprintf(&sb, "Atomic: %t\n", h.AtomicHistory)
	}

	if s := ev.Structure; s != nil {
		fmt.Fprintf(&sb, "Architecture Notes: %t\n", s.ArchitectureNotesExists)
		fmt.Fprintf(&sb, "State Models: %t\n", s.StateModelsDetected)
		fmt.Fprintf(&sb, "Graph Structure: fan_out=%t, fan_in=%t, conditional=%t, checkpointer=%t, nodes=%d, edges=%d\n",
			s.FanOutDetected, s.FanInDetected, s.ConditionalEdgesDetected,
			s.CheckpointerDetected, s.NodeCount, s.EdgeCount)
		fmt.Fprintf(&sb, "Tests Present: %t\n", s.TestFilesDetected)
	}

	if d := ev.Document; d != nil {
		fmt.Fprintf(&sb, "Document Claims: %d paths\n", len(d.ClaimedPaths))
		fmt.Fprintf(&sb, "Verified: %d\n", len(d.VerifiedPaths))
		fmt.Fprintf(&sb, "Hallucinated: %d\n", len(d.HallucinatedPaths))
	}

	if di := ev.Diagram; di != nil {
		fmt.Fprintf(&sb, "Diagrams: %d\n", di.ImageCount)
		fmt.Fprintf(&sb, "Diagram Types: %s\n", strings.Join(di.DiagramTypes, ", "))
	}

	if len(ev.Raw) > 0 {
		keys := make([]string, 0, len(ev.Raw))
		for k := range ev.Raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			r := ev.Raw[k]
			fmt.Fprintf(&sb, "Raw[%s]: found=%t location=%s confidence=%.1f\n",
				k, r.Found, r.Location, r.Confidence)
		}
	}

	if sb.Len() == 0 {
		return "No evidence collected.\n"
	}
	return sb.String()
}
