// Package rubric loads the grading rubric the tribunal scores against.
// A Rubric is constructed once at process start and passed by reference
// into the engine and synthesizer; nothing mutates it afterwards.
package rubric

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_rubric.json
var defaultRubricJSON []byte

// JudicialLogic holds per-persona evaluation hints for one criterion.
type JudicialLogic struct {
	Prosecutor string `json:"prosecutor" yaml:"prosecutor"`
	Defense    string `json:"defense" yaml:"defense"`
	TechLead   string `json:"tech_lead" yaml:"tech_lead"`
}

// Criterion is a single rubric dimension.
type Criterion struct {
	ID                  string        `json:"id" yaml:"id"`
	Name                string        `json:"name" yaml:"name"`
	TargetArtifact      string        `json:"target_artifact" yaml:"target_artifact"`
	ForensicInstruction string        `json:"forensic_instruction" yaml:"forensic_instruction"`
	JudicialLogic       JudicialLogic `json:"judicial_logic" yaml:"judicial_logic"`
}

// Metadata describes the rubric document itself.
type Metadata struct {
	Name    string `json:"rubric_name" yaml:"rubric_name"`
	Target  string `json:"grading_target" yaml:"grading_target"`
	Version string `json:"version" yaml:"version"`
}

// Rubric is the full grading rubric.
type Rubric struct {
	Metadata   Metadata    `json:"rubric_metadata" yaml:"rubric_metadata"`
	Dimensions []Criterion `json:"dimensions" yaml:"dimensions"`
}

// Criterion returns the dimension with the given id, or nil.
func (r *Rubric) Criterion(id string) *Criterion {
	for i := range r.Dimensions {
		if r.Dimensions[i].ID == id {
			return &r.Dimensions[i]
		}
	}
	return nil
}

// Load reads a rubric from path. YAML and JSON are both accepted, decided
// by file extension. An empty path loads the embedded default rubric.
func Load(path string) (*Rubric, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rubric: %w", err)
	}

	var r Rubric
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse rubric yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse rubric json: %w", err)
		}
	}

	if len(r.Dimensions) == 0 {
		return nil, fmt.Errorf("rubric %s has no dimensions", path)
	}
	seen := make(map[string]bool, len(r.Dimensions))
	for _, c := range r.Dimensions {
		if c.ID == "" {
			return nil, fmt.Errorf("rubric %s has a dimension without an id", path)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("rubric %s has duplicate dimension id %q", path, c.ID)
		}
		seen[c.ID] = true
	}
	return &r, nil
}

// Default returns the embedded rubric.
func Default() (*Rubric, error) {
	var r Rubric
	if err := json.Unmarshal(defaultRubricJSON, &r); err != nil {
		return nil, fmt.Errorf("parse embedded rubric: %w", err)
	}
	return &r, nil
}
