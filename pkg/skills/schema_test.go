package skills

import (
	"strings"
	"testing"

	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validationDetails(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	var verr *skilltypes.ValidationError
	require.True(t, errors.As(err, &verr), "expected a validation error, got %v", err)
	return verr.Details()
}

func TestValidateDefaults(t *testing.T) {
	meta, err := Validate(map[string]any{"name": "x", "description": "d"})
	require.NoError(t, err)

	assert.Equal(t, "x", meta.Name)
	assert.Equal(t, "d", meta.Description)
	assert.Equal(t, skilltypes.TrustCommunity, meta.TrustLevel)
	assert.True(t, meta.UserInvocable)
	assert.False(t, meta.DisableModelInvocation)
	assert.Empty(t, meta.Tags)
	assert.Nil(t, meta.Metadata)
	assert.Nil(t, meta.Extra)
}

func TestValidateNameGrammar(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"my-skill", true},
		{"a", true},
		{"skill2", true},
		{"a1-b2-c3", true},
		{strings.Repeat("a", 64), true},
		{"MySkill", false},
		{"-bad", false},
		{"bad-", false},
		{"my--skill", false},
		{"my_skill", false},
		{"my skill", false},
		{strings.Repeat("a", 65), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidName(tt.name))

			_, err := Validate(map[string]any{"name": tt.name, "description": "d"})
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			details := validationDetails(t, err)
			require.Len(t, details, 1)
			assert.True(t, strings.HasPrefix(details[0], "name: "), details[0])
		})
	}
}

func TestValidateRequiredFields(t *testing.T) {
	details := validationDetails(t, func() error {
		_, err := Validate(map[string]any{})
		return err
	}())

	assert.Contains(t, details, "name: required")
	assert.Contains(t, details, "description: required")
}

func TestValidateDescriptionLength(t *testing.T) {
	_, err := Validate(map[string]any{"name": "x", "description": strings.Repeat("d", 1024)})
	assert.NoError(t, err)

	_, err = Validate(map[string]any{"name": "x", "description": strings.Repeat("d", 1025)})
	details := validationDetails(t, err)
	assert.Equal(t, []string{"description: must be at most 1024 characters"}, details)
}

func TestNormalizeTagsEquivalence(t *testing.T) {
	fromString, err := NormalizeTags("a, b ,c")
	require.NoError(t, err)
	fromList, err := NormalizeTags([]any{"a", "b", "c"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, fromString)
	assert.Equal(t, fromString, fromList)

	empty, err := NormalizeTags(" , ,")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = NormalizeTags([]any{"a", 3})
	assert.Error(t, err)
}

func TestValidateTags(t *testing.T) {
	meta, err := Validate(map[string]any{"name": "x", "description": "d", "tags": "api, design"})
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "design"}, meta.Tags)

	tooMany := make([]any, 21)
	for i := range tooMany {
		tooMany[i] = "t"
	}
	_, err = Validate(map[string]any{"name": "x", "description": "d", "tags": tooMany})
	assert.Contains(t, validationDetails(t, err), "tags: must have at most 20 tags")

	_, err = Validate(map[string]any{"name": "x", "description": "d", "tags": []any{"ok", strings.Repeat("t", 51)}})
	assert.Contains(t, validationDetails(t, err), "tags[1]: must be at most 50 characters")
}

func TestValidateTopLevelWinsOverMetadata(t *testing.T) {
	meta, err := Validate(map[string]any{
		"name":        "x",
		"description": "d",
		"version":     "3.0.0",
		"metadata": map[string]any{
			"version":  "1.0.0",
			"author":   "sub-author",
			"category": "data",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "3.0.0", meta.Version)
	assert.Equal(t, "sub-author", meta.Author)
	assert.Equal(t, skilltypes.CategoryData, meta.Category)
	assert.Equal(t, map[string]string{"version": "1.0.0", "author": "sub-author", "category": "data"}, meta.Metadata)
}

func TestValidateMetadataSubMap(t *testing.T) {
	t.Run("scalars are stringified", func(t *testing.T) {
		meta, err := Validate(map[string]any{
			"name":        "x",
			"description": "d",
			"metadata": map[string]any{
				"priority":    3,
				"beta":        true,
				"tags":        "one, two",
				"trust-level": "verified",
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "3", meta.Metadata["priority"])
		assert.Equal(t, "true", meta.Metadata["beta"])
		assert.Equal(t, []string{"one", "two"}, meta.Tags)
		assert.Equal(t, skilltypes.TrustVerified, meta.TrustLevel)
	})

	t.Run("invalid values report the sub-map path", func(t *testing.T) {
		_, err := Validate(map[string]any{
			"name":        "x",
			"description": "d",
			"metadata":    map[string]any{"version": "v1"},
		})
		assert.Equal(t, []string{"metadata.version: must be valid semver (major.minor.patch)"}, validationDetails(t, err))
	})

	t.Run("compound values are rejected", func(t *testing.T) {
		_, err := Validate(map[string]any{
			"name":        "x",
			"description": "d",
			"metadata":    map[string]any{"nested": map[string]any{"a": "b"}},
		})
		assert.Contains(t, validationDetails(t, err), "metadata.nested: must be a string")
	})

	t.Run("min client version alias", func(t *testing.T) {
		meta, err := Validate(map[string]any{
			"name":        "x",
			"description": "d",
			"metadata":    map[string]any{"min-client-version": "0.2.0"},
		})
		require.NoError(t, err)
		assert.Equal(t, "0.2.0", meta.MinClientVersion)
	})
}

func TestValidateAccumulatesErrors(t *testing.T) {
	_, err := Validate(map[string]any{
		"name":        "Bad_Name",
		"description": "d",
		"version":     "1.0",
		"category":    "games",
		"trust-level": "gold",
		"repository":  "not a url",
		"homepage":    "https://example.com",
	})
	details := validationDetails(t, err)

	assert.Len(t, details, 5)
	assert.Contains(t, details, "version: must be valid semver (major.minor.patch)")
	assert.Contains(t, details, "category: must be one of development, creative, enterprise, data, devops, other")
	assert.Contains(t, details, "trust-level: must be one of community, verified, official")
	assert.Contains(t, details, "repository: must be a valid URL")
	assert.Contains(t, err.Error(), "invalid skill metadata")
}

func TestValidateTypeMismatch(t *testing.T) {
	_, err := Validate(map[string]any{"name": "x", "description": "d", "user-invocable": "yes"})
	details := validationDetails(t, err)

	require.Len(t, details, 1)
	assert.True(t, strings.HasPrefix(details[0], "user-invocable: "), details[0])
}

func TestValidateWrongTypeReportedOnce(t *testing.T) {
	_, err := Validate(map[string]any{"name": 5, "description": []any{"x"}})
	details := validationDetails(t, err)

	require.Len(t, details, 2, details)
	var fields []string
	for _, d := range details {
		fields = append(fields, strings.SplitN(d, ":", 2)[0])
	}
	assert.ElementsMatch(t, []string{"name", "description"}, fields)
	assert.NotContains(t, details, "name: required")
	assert.NotContains(t, details, "description: required")
}

func TestValidateAgentFields(t *testing.T) {
	meta, err := Validate(map[string]any{
		"name":                     "x",
		"description":              "d",
		"allowed-tools":            "Read  Grep Bash",
		"compatibility":            "claude-code>=1.0",
		"argument-hint":            "[file]",
		"disable-model-invocation": true,
		"user-invocable":           false,
		"model":                    "sonnet",
		"hooks":                    map[string]any{"pre": "echo"},
		"x-custom":                 "kept",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Read", "Grep", "Bash"}, meta.AllowedTools)
	assert.Equal(t, []string{"claude-code>=1.0"}, meta.Compatibility)
	assert.Equal(t, "[file]", meta.ArgumentHint)
	assert.True(t, meta.DisableModelInvocation)
	assert.False(t, meta.UserInvocable)
	assert.Equal(t, "sonnet", meta.Model)
	assert.Equal(t, map[string]any{"pre": "echo"}, meta.Hooks)
	assert.Equal(t, map[string]any{"x-custom": "kept"}, meta.Extra)

	_, err = Validate(map[string]any{"name": "x", "description": "d", "compatibility": []any{strings.Repeat("c", 501)}})
	assert.Contains(t, validationDetails(t, err), "compatibility[0]: must be at most 500 characters")
}

func TestValidateQuiz(t *testing.T) {
	question := func(options ...any) map[string]any {
		return map[string]any{"question": "Which?", "options": options}
	}
	option := func(label string, correct bool) map[string]any {
		return map[string]any{"label": label, "correct": correct}
	}

	t.Run("valid quiz gets defaults", func(t *testing.T) {
		meta, err := Validate(map[string]any{
			"name":        "x",
			"description": "d",
			"quiz": []any{map[string]any{
				"gate":      true,
				"questions": []any{question(option("a", true), option("b", false))},
			}},
		})
		require.NoError(t, err)

		require.Len(t, meta.Quizzes, 1)
		assert.Equal(t, 100, meta.Quizzes[0].PassingScore)
		assert.True(t, meta.HasGate())
		assert.Len(t, meta.Quizzes[0].Questions[0].Options, 2)
	})

	t.Run("branches", func(t *testing.T) {
		q := question(option("a", true), option("b", false))
		q["on-correct"] = map[string]any{"goto-section": "#usage", "message": "Great"}
		q["on-incorrect"] = map[string]any{"load-skill": "Not_Valid"}

		_, err := Validate(map[string]any{
			"name":        "x",
			"description": "d",
			"quiz":        []any{map[string]any{"questions": []any{q}}},
		})
		assert.Equal(t, []string{"quiz[0].questions[0].on-incorrect.load-skill: must be a valid skill name"}, validationDetails(t, err))
	})

	t.Run("structural violations", func(t *testing.T) {
		_, err := Validate(map[string]any{
			"name":        "x",
			"description": "d",
			"quiz": []any{
				map[string]any{"passing-score": 120, "questions": []any{question(option("only", true))}},
				map[string]any{"questions": []any{}},
				map[string]any{"questions": []any{question(option("", true), option("b", false))}},
			},
		})
		details := validationDetails(t, err)

		assert.Contains(t, details, "quiz[0].passing-score: must be between 0 and 100")
		assert.Contains(t, details, "quiz[0].questions[0].options: must have at least 2 options")
		assert.Contains(t, details, "quiz[1].questions: must contain at least one question")
		assert.Contains(t, details, "quiz[2].questions[0].options[0].label: required")
	})
}

func TestResolveRegistryFields(t *testing.T) {
	top, sub := "2.0.0", "1.0.0"
	r := resolveRegistryFields(RegistryFrontmatter{Version: &top}, RegistryFrontmatter{Version: &sub, Author: &sub})

	assert.Equal(t, resolvedString{Value: "2.0.0", Path: "version", Set: true}, r.Version)
	assert.Equal(t, resolvedString{Value: "1.0.0", Path: "metadata.author", Set: true}, r.Author)
	assert.False(t, r.Homepage.Set)
}

func TestNormalizeYAML(t *testing.T) {
	in := map[string]any{
		"hooks": map[any]any{"pre": []any{map[any]any{"cmd": "echo"}}},
	}
	out := normalizeYAML(in).(map[string]any)

	hooks, ok := out["hooks"].(map[string]any)
	require.True(t, ok)
	list := hooks["pre"].([]any)
	assert.Equal(t, map[string]any{"cmd": "echo"}, list[0])
}

func TestJSONSchema(t *testing.T) {
	schema := JSONSchema()

	assert.Equal(t, "SKILL.md frontmatter", schema.Title)
	assert.ElementsMatch(t, []string{"name", "description"}, schema.Required)

	name, ok := schema.Properties.Get("name")
	require.True(t, ok)
	assert.Equal(t, `^[a-z0-9]+(-[a-z0-9]+)*$`, name.Pattern)
	assert.Equal(t, uint64(64), *name.MaxLength)

	_, ok = schema.Properties.Get("version")
	assert.True(t, ok, "registry fields are inlined")
	_, ok = schema.Properties.Get("user-invocable")
	assert.True(t, ok)
}
