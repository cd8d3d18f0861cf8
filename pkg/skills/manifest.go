package skills

import (
	"time"

	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
)

// Manifest is the registry record emitted when a skill is published
type Manifest struct {
	Name        string                `json:"name"`
	Version     string                `json:"version,omitempty"`
	Description string                `json:"description"`
	Author      string                `json:"author,omitempty"`
	License     string                `json:"license,omitempty"`
	Tags        []string              `json:"tags,omitempty"`
	Category    skilltypes.Category   `json:"category,omitempty"`
	Repository  string                `json:"repository,omitempty"`
	TrustLevel  skilltypes.TrustLevel `json:"trust_level"`
	Checksum    string                `json:"checksum,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	Files       []string              `json:"files,omitempty"`
	SizeBytes   int64                 `json:"size_bytes,omitempty"`
}

// ExtractManifest builds the publish manifest of a parsed skill stamped
// with now
func ExtractManifest(skill *skilltypes.ParsedSkill, now time.Time) *Manifest {
	m := skill.Metadata
	return &Manifest{
		Name:        m.Name,
		Version:     m.Version,
		Description: m.Description,
		Author:      m.Author,
		License:     m.License,
		Tags:        m.Tags,
		Category:    m.Category,
		Repository:  m.Repository,
		TrustLevel:  m.TrustLevel,
		Checksum:    m.Checksum,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
}
