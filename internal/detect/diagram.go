package detect

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joescharf/tribunal/internal/engine"
	"github.com/joescharf/tribunal/internal/models"
)

// VisionInspector scans the directory around the submitted document for
// diagrams and classifies them by filename hints.
type VisionInspector struct{}

// NewVisionInspector creates a vision inspector.
func NewVisionInspector() *VisionInspector {
	return &VisionInspector{}
}

func (v *VisionInspector) Name() string { return "vision_inspector" }

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".svg": true,
	".gif": true, ".mmd": true,
}

// Collect counts images next to the document and infers diagram types.
// Skipped when the run has no document reference.
func (v *VisionInspector) Collect(ctx context.Context, target engine.Target) engine.CollectorResult {
	if target.DocRef == "" {
		return engine.CollectorResult{Status: engine.CollectSkipped, Err: "no document provided"}
	}

	dir := filepath.Dir(target.DocRef)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return engine.CollectorResult{Status: engine.CollectFailed, Err: "read document dir: " + err.Error()}
	}

	de := &models.DiagramEvidence{}
	types := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if !imageExts[filepath.Ext(name)] {
			continue
		}
		de.ImageCount++
		switch {
		case strings.Contains(name, "flow"):
			types["flow"] = true
			de.FlowLabeled = true
		case strings.Contains(name, "sequence"):
			types["sequence"] = true
		case strings.Contains(name, "arch"):
			types["architecture"] = true
		case strings.Contains(name, "state"):
			types["state"] = true
		default:
			types["unclassified"] = true
		}
	}
	for t := range types {
		de.DiagramTypes = append(de.DiagramTypes, t)
	}
	sort.Strings(de.DiagramTypes)

	ev := models.EvidenceCollection{
		Diagram: de,
		Raw: map[string]models.Evidence{
			"diagrams": {
				Found:      de.ImageCount > 0,
				Content:    strings.Join(de.DiagramTypes, ", "),
				Location:   dir,
				Confidence: 0.7,
				Timestamp:  time.Now().UTC(),
			},
		},
	}

	return engine.CollectorResult{
		Status: engine.CollectDone,
		Update: engine.Update{Evidences: &ev},
	}
}
