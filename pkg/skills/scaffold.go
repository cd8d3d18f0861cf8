package skills

import (
	"bytes"
	"embed"
	"encoding/json"
	"os"
	"path/filepath"
	"text/template"
	"time"

	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TemplateFS holds the SKILL.md body template
//
//go:embed templates/*
var TemplateFS embed.FS

const (
	skillBodyTemplate = "templates/skill.md.tmpl"

	// ManifestFileName is the manifest written next to a scaffolded SKILL.md
	ManifestFileName = "skillli.json"
)

// ScaffoldOptions describes a new skill. Empty fields take defaults.
type ScaffoldOptions struct {
	Name        string
	Version     string
	Description string
	Author      string
	License     string
	Tags        []string
	Category    skilltypes.Category
}

// scaffoldFrontmatter fixes the key order of generated frontmatter
type scaffoldFrontmatter struct {
	Name          string   `yaml:"name"`
	Version       string   `yaml:"version"`
	Description   string   `yaml:"description"`
	Author        string   `yaml:"author,omitempty"`
	License       string   `yaml:"license"`
	Tags          []string `yaml:"tags,omitempty,flow"`
	Category      string   `yaml:"category"`
	TrustLevel    string   `yaml:"trust-level"`
	UserInvocable bool     `yaml:"user-invocable"`
}

func (o *ScaffoldOptions) applyDefaults() {
	if o.Version == "" {
		o.Version = "1.0.0"
	}
	if o.Description == "" {
		o.Description = "A skill for " + o.Name
	}
	if o.License == "" {
		o.License = "MIT"
	}
	if o.Category == "" {
		o.Category = skilltypes.CategoryOther
	}
}

// RenderSkill renders a SKILL.md document and validates the result
func RenderSkill(opts ScaffoldOptions) (string, error) {
	opts.applyDefaults()

	header, err := yaml.Marshal(scaffoldFrontmatter{
		Name:          opts.Name,
		Version:       opts.Version,
		Description:   opts.Description,
		Author:        opts.Author,
		License:       opts.License,
		Tags:          opts.Tags,
		Category:      string(opts.Category),
		TrustLevel:    string(skilltypes.TrustCommunity),
		UserInvocable: true,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal frontmatter")
	}

	tmplContent, err := TemplateFS.ReadFile(skillBodyTemplate)
	if err != nil {
		return "", errors.Wrap(err, "failed to read template file")
	}

	tmpl, err := template.New("skill").Parse(string(tmplContent))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse template")
	}

	var buf bytes.Buffer
	buf.WriteString(frontmatterFence + "\n")
	buf.Write(header)
	buf.WriteString(frontmatterFence + "\n\n")
	if err := tmpl.Execute(&buf, opts); err != nil {
		return "", errors.Wrap(err, "failed to execute template")
	}

	rendered := buf.String()
	if _, err := ParseContent(rendered, SkillFileName); err != nil {
		return "", err
	}
	return rendered, nil
}

// Scaffold creates <parentDir>/<name> with a SKILL.md, a manifest and empty
// scripts/ and references/ directories. It returns the skill directory.
func Scaffold(parentDir string, opts ScaffoldOptions) (string, error) {
	content, err := RenderSkill(opts)
	if err != nil {
		return "", err
	}

	skillDir := filepath.Join(parentDir, opts.Name)
	if _, err := os.Stat(skillDir); err == nil {
		return "", errors.Errorf("directory %s already exists", skillDir)
	}

	for _, dir := range []string{skillDir, filepath.Join(skillDir, "scripts"), filepath.Join(skillDir, "references")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}

	skillPath := filepath.Join(skillDir, SkillFileName)
	if err := os.WriteFile(skillPath, []byte(content), 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write SKILL.md")
	}

	parsed, err := ParseContent(content, skillPath)
	if err != nil {
		return "", err
	}
	manifest, err := json.MarshalIndent(ExtractManifest(parsed, time.Now()), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal manifest")
	}
	if err := os.WriteFile(filepath.Join(skillDir, ManifestFileName), manifest, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write manifest")
	}

	return skillDir, nil
}
