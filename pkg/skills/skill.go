// Package skills normalizes and validates SKILL.md frontmatter, parses
// skill bundles and discovers skills installed on disk. A skill is a
// directory containing a SKILL.md file whose YAML frontmatter describes
// it and whose markdown body holds the instructions.
package skills

import skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"

// Skill is a parsed skill found in a skills directory
type Skill struct {
	*skilltypes.ParsedSkill
	Directory string // Full path to the skill directory
}

// Name returns the skill's identity key
func (s *Skill) Name() string {
	return s.Metadata.Name
}

// Description returns the skill's description
func (s *Skill) Description() string {
	return s.Metadata.Description
}
