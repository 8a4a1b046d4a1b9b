package rubric

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	assert.NotEmpty(t, r.Metadata.Name)
	require.NotEmpty(t, r.Dimensions)
	seen := map[string]bool{}
	for _, c := range r.Dimensions {
		assert.NotEmpty(t, c.ID)
		assert.NotEmpty(t, c.ForensicInstruction, "criterion %s", c.ID)
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
	}
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	def, err := Default()
	require.NoError(t, err)
	assert.Equal(t, def, r)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rubric.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"rubric_metadata": {"rubric_name": "Custom", "version": "2.0"},
		"dimensions": [
			{"id": "one", "name": "One", "forensic_instruction": "look",
			 "judicial_logic": {"prosecutor": "p", "defense": "d", "tech_lead": "t"}}
		]
	}`), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Custom", r.Metadata.Name)
	require.Len(t, r.Dimensions, 1)
	assert.Equal(t, "p", r.Dimensions[0].JudicialLogic.Prosecutor)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rubric.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rubric_metadata:
  rubric_name: Custom YAML
dimensions:
  - id: one
    name: One
    forensic_instruction: look
  - id: two
    name: Two
    forensic_instruction: verify
`), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Custom YAML", r.Metadata.Name)
	assert.Len(t, r.Dimensions, 2)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"dimensions": []}`), 0o644))
	_, err = Load(empty)
	assert.Error(t, err)

	dup := filepath.Join(t.TempDir(), "dup.json")
	require.NoError(t, os.WriteFile(dup, []byte(`{"dimensions": [
		{"id": "same", "name": "A"}, {"id": "same", "name": "B"}
	]}`), 0o644))
	_, err = Load(dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestCriterionLookup(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	c := r.Criterion(r.Dimensions[0].ID)
	require.NotNil(t, c)
	assert.Equal(t, r.Dimensions[0].ID, c.ID)

	assert.Nil(t, r.Criterion("no_such_dimension"))
}
