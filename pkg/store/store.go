// Package store persists the client state under the skillli home
// directory: the cached registry index, the client configuration and the
// installed skill bundles.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jingkaihe/skillli/pkg/logger"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/pkg/errors"
)

// DefaultRegistryURL is the public catalog
const DefaultRegistryURL = "https://raw.githubusercontent.com/skillli/registry/main/index.json"

const (
	indexFile  = "index.json"
	configFile = "config.json"
	skillsDir  = "skills"
	cacheDir   = "cache"
)

// DefaultHome returns ~/.skillli
func DefaultHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, ".skillli"), nil
}

// Store reads and writes the state files of one home directory. It is safe
// for concurrent use within a process.
type Store struct {
	home string
	mu   sync.Mutex
}

// New creates a store rooted at home and ensures its directory layout
func New(home string) (*Store, error) {
	if home == "" {
		var err error
		if home, err = DefaultHome(); err != nil {
			return nil, err
		}
	}
	for _, dir := range []string{home, filepath.Join(home, skillsDir), filepath.Join(home, cacheDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create %s", dir)
		}
	}
	return &Store{home: home}, nil
}

// Home returns the root directory
func (s *Store) Home() string { return s.home }

// SkillsDir is where installed bundles live
func (s *Store) SkillsDir() string { return filepath.Join(s.home, skillsDir) }

// CacheDir holds temporary downloads
func (s *Store) CacheDir() string { return filepath.Join(s.home, cacheDir) }

// SkillPath is the install location of a named skill
func (s *Store) SkillPath(name string) string { return filepath.Join(s.SkillsDir(), name) }

func defaultConfig() *skilltypes.LocalConfig {
	return &skilltypes.LocalConfig{
		InstalledSkills: map[string]skilltypes.InstalledSkill{},
		RegistryURL:     DefaultRegistryURL,
	}
}

// LoadIndex returns the cached index. A missing or corrupt file yields an
// empty index, which is written back.
func (s *Store) LoadIndex(ctx context.Context) (*skilltypes.LocalIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := skilltypes.NewLocalIndex()
	if ok := s.readJSON(ctx, indexFile, index); !ok {
		index = skilltypes.NewLocalIndex()
		return index, s.writeJSON(indexFile, index)
	}
	if index.Skills == nil {
		index.Skills = map[string]skilltypes.RegistryEntry{}
	}
	return index, nil
}

// SaveIndex persists index
func (s *Store) SaveIndex(_ context.Context, index *skilltypes.LocalIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(indexFile, index)
}

// LoadConfig returns the client configuration, resetting a missing or
// corrupt file to defaults
func (s *Store) LoadConfig(ctx context.Context) (*skilltypes.LocalConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadConfig(ctx)
}

func (s *Store) loadConfig(ctx context.Context) (*skilltypes.LocalConfig, error) {
	cfg := defaultConfig()
	if ok := s.readJSON(ctx, configFile, cfg); !ok {
		cfg = defaultConfig()
		return cfg, s.writeJSON(configFile, cfg)
	}
	if cfg.InstalledSkills == nil {
		cfg.InstalledSkills = map[string]skilltypes.InstalledSkill{}
	}
	return cfg, nil
}

// SaveConfig persists cfg
func (s *Store) SaveConfig(_ context.Context, cfg *skilltypes.LocalConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(configFile, cfg)
}

// updateConfig applies fn to the stored configuration under the lock
func (s *Store) updateConfig(ctx context.Context, fn func(*skilltypes.LocalConfig)) (*skilltypes.LocalConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	fn(cfg)
	return cfg, s.writeJSON(configFile, cfg)
}

// MarkInstalled records skill, replacing any previous record of that name
func (s *Store) MarkInstalled(ctx context.Context, skill skilltypes.InstalledSkill) error {
	_, err := s.updateConfig(ctx, func(cfg *skilltypes.LocalConfig) {
		cfg.InstalledSkills[skill.Name] = skill
	})
	return err
}

// MarkUninstalled forgets the named skill
func (s *Store) MarkUninstalled(ctx context.Context, name string) error {
	_, err := s.updateConfig(ctx, func(cfg *skilltypes.LocalConfig) {
		delete(cfg.InstalledSkills, name)
	})
	return err
}

// InstalledSkills returns the installed skills sorted by name
func (s *Store) InstalledSkills(ctx context.Context) ([]skilltypes.InstalledSkill, error) {
	cfg, err := s.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	skills := make([]skilltypes.InstalledSkill, 0, len(cfg.InstalledSkills))
	for _, sk := range cfg.InstalledSkills {
		skills = append(skills, sk)
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills, nil
}

// InstalledSkill looks up one installed skill
func (s *Store) InstalledSkill(ctx context.Context, name string) (*skilltypes.InstalledSkill, error) {
	cfg, err := s.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	sk, ok := cfg.InstalledSkills[name]
	if !ok {
		return nil, &skilltypes.NotFoundError{Name: name}
	}
	return &sk, nil
}

// EnsureUserID returns the anonymous user id used for ratings, generating
// and persisting one on first use
func (s *Store) EnsureUserID(ctx context.Context) (string, error) {
	cfg, err := s.updateConfig(ctx, func(cfg *skilltypes.LocalConfig) {
		if cfg.UserID == "" {
			cfg.UserID = uuid.NewString()
		}
	})
	if err != nil {
		return "", err
	}
	return cfg.UserID, nil
}

// readJSON decodes name into out and reports whether it succeeded
func (s *Store) readJSON(ctx context.Context, name string, out any) bool {
	path := filepath.Join(s.home, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.G(ctx).WithError(err).WithField("path", path).Warn("failed to read state file, resetting to defaults")
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.G(ctx).WithError(err).WithField("path", path).Warn("corrupt state file, resetting to defaults")
		return false
	}
	return true
}

// writeJSON writes through a temporary file and a rename
func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s", name)
	}

	path := filepath.Join(s.home, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", name)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "failed to replace %s", name)
	}
	return nil
}
