package skills

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSkill(t *testing.T) {
	content, err := RenderSkill(ScaffoldOptions{
		Name:        "pdf-tools",
		Description: "Work with PDFs: split, merge",
		Author:      "jane",
		Tags:        []string{"pdf", "docs"},
		Category:    skilltypes.CategoryData,
	})
	require.NoError(t, err)

	skill, err := ParseContent(content, SkillFileName)
	require.NoError(t, err)
	assert.Equal(t, "pdf-tools", skill.Metadata.Name)
	assert.Equal(t, "Work with PDFs: split, merge", skill.Metadata.Description)
	assert.Equal(t, "1.0.0", skill.Metadata.Version)
	assert.Equal(t, "MIT", skill.Metadata.License)
	assert.Equal(t, []string{"pdf", "docs"}, skill.Metadata.Tags)
	assert.Equal(t, skilltypes.CategoryData, skill.Metadata.Category)
	assert.Contains(t, skill.Content, "# pdf-tools")
	assert.Contains(t, skill.Content, "invokes `/pdf-tools`")
}

func TestRenderSkillRejectsInvalidName(t *testing.T) {
	_, err := RenderSkill(ScaffoldOptions{Name: "Bad Name"})
	assert.True(t, skilltypes.IsValidation(err))
}

func TestScaffold(t *testing.T) {
	parent := t.TempDir()

	dir, err := Scaffold(parent, ScaffoldOptions{Name: "new-skill"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "new-skill"), dir)

	for _, sub := range []string{"scripts", "references"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	skill, err := ParseFile(filepath.Join(dir, SkillFileName))
	require.NoError(t, err)
	assert.Equal(t, "A skill for new-skill", skill.Metadata.Description)

	raw, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	require.NoError(t, err)
	var manifest Manifest
	require.NoError(t, json.Unmarshal(raw, &manifest))
	assert.Equal(t, "new-skill", manifest.Name)
	assert.Equal(t, skilltypes.CategoryOther, manifest.Category)

	_, err = Scaffold(parent, ScaffoldOptions{Name: "new-skill"})
	assert.ErrorContains(t, err, "already exists")
}

func TestJSONSchemaMarshalsProperties(t *testing.T) {
	schema := JSONSchema()
	require.NotNil(t, schema)

	raw, err := json.Marshal(schema)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"name", "description", "allowed-tools", "trust-level", "min-skillli-version", "quiz"} {
		assert.Contains(t, props, key)
	}
	assert.ElementsMatch(t, []any{"name", "description"}, doc["required"])
}
