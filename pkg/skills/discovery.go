package skills

import (
	"os"
	"path/filepath"
	"sort"

	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/pkg/errors"
)

// Discovery handles skill discovery from configured directories
type Discovery struct {
	skillDirs []string
	invalid   map[string]error
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithSkillDirs sets custom skill directories, highest precedence first
func WithSkillDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.skillDirs = dirs
		return nil
	}
}

// WithDefaultDirs uses the project-linked skills directory followed by the
// skillli store under home. An empty home resolves to ~/.skillli.
func WithDefaultDirs(home string) Option {
	return func(d *Discovery) error {
		if home == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return errors.Wrap(err, "failed to get user home directory")
			}
			home = filepath.Join(homeDir, ".skillli")
		}
		d.skillDirs = []string{
			filepath.Join(".", ".claude", "skills"), // Project-linked (highest precedence)
			filepath.Join(home, "skills"),           // skillli store
		}
		return nil
	}
}

// NewDiscovery creates a new skill discovery instance
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{}

	if len(opts) == 0 {
		if err := WithDefaultDirs("")(d); err != nil {
			return nil, err
		}
	} else {
		for _, opt := range opts {
			if err := opt(d); err != nil {
				return nil, err
			}
		}
	}

	return d, nil
}

// DiscoverSkills finds all valid skills in the configured directories.
// When two directories hold a skill with the same name the first wins.
func (d *Discovery) DiscoverSkills() (map[string]*Skill, error) {
	skills := make(map[string]*Skill)
	d.invalid = make(map[string]error)

	for _, dir := range d.skillDirs {
		d.discoverSkillsFromDir(dir, skills)
	}

	return skills, nil
}

// Invalid returns the skill directories skipped by the last discovery run
// together with the reason they failed to parse
func (d *Discovery) Invalid() map[string]error {
	return d.invalid
}

func (d *Discovery) discoverSkillsFromDir(dir string, skills map[string]*Skill) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		entryPath := filepath.Join(dir, entry.Name())

		info, err := os.Stat(entryPath)
		if err != nil || !info.IsDir() {
			continue
		}

		skillPath := filepath.Join(entryPath, SkillFileName)
		if _, err := os.Stat(skillPath); err != nil {
			continue
		}

		parsed, err := ParseFile(skillPath)
		if err != nil {
			d.invalid[entryPath] = err
			continue
		}

		if _, exists := skills[parsed.Metadata.Name]; !exists {
			skills[parsed.Metadata.Name] = &Skill{ParsedSkill: parsed, Directory: entryPath}
		}
	}
}

// GetSkill returns a specific skill by name
func (d *Discovery) GetSkill(name string) (*Skill, error) {
	skills, err := d.DiscoverSkills()
	if err != nil {
		return nil, err
	}

	skill, exists := skills[name]
	if !exists {
		return nil, &skilltypes.NotFoundError{Name: name}
	}

	return skill, nil
}

// ListSkillNames returns the sorted names of all available skills
func (d *Discovery) ListSkillNames() ([]string, error) {
	skills, err := d.DiscoverSkills()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}
