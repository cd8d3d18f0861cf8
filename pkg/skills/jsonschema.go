package skills

import (
	"github.com/invopop/jsonschema"
)

// JSONSchema describes the frontmatter accepted in SKILL.md files
func JSONSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&frontmatter{})
	schema.Title = "SKILL.md frontmatter"
	schema.Description = "Frontmatter of a skillli skill bundle. Unknown keys are preserved."
	return schema
}
