package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), ".skillli"))
	require.NoError(t, err)
	return s
}

func TestNewCreatesLayout(t *testing.T) {
	s := newStore(t)

	for _, dir := range []string{s.Home(), s.SkillsDir(), s.CacheDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.Equal(t, filepath.Join(s.Home(), "skills", "pdf-tools"), s.SkillPath("pdf-tools"))
}

func TestLoadIndexDefaults(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	index, err := s.LoadIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, skilltypes.LocalIndexVersion, index.Version)
	assert.Empty(t, index.Skills)
	assert.FileExists(t, filepath.Join(s.Home(), "index.json"))
}

func TestIndexRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	index := skilltypes.NewLocalIndex()
	index.LastUpdated = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	index.Skills["pdf-tools"] = skilltypes.RegistryEntry{Name: "pdf-tools", Description: "PDF", Downloads: 3}
	require.NoError(t, s.SaveIndex(ctx, index))

	loaded, err := s.LoadIndex(ctx)
	require.NoError(t, err)
	assert.True(t, index.LastUpdated.Equal(loaded.LastUpdated))
	assert.Equal(t, index.Skills, loaded.Skills)
	assert.NoFileExists(t, filepath.Join(s.Home(), "index.json.tmp"))
}

func TestCorruptFilesReset(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(s.Home(), "index.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Home(), "config.json"), []byte("[]"), 0o644))

	index, err := s.LoadIndex(ctx)
	require.NoError(t, err)
	assert.Empty(t, index.Skills)

	cfg, err := s.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultRegistryURL, cfg.RegistryURL)
	assert.NotNil(t, cfg.InstalledSkills)

	data, err := os.ReadFile(filepath.Join(s.Home(), "config.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), DefaultRegistryURL)
}

func TestInstalledSkills(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.MarkInstalled(ctx, skilltypes.InstalledSkill{Name: "zeta", Version: "1.0.0", Source: skilltypes.InstallFromLocal}))
	require.NoError(t, s.MarkInstalled(ctx, skilltypes.InstalledSkill{Name: "alpha", Version: "1.0.0", Source: skilltypes.InstallFromRegistry}))
	require.NoError(t, s.MarkInstalled(ctx, skilltypes.InstalledSkill{Name: "alpha", Version: "2.0.0", Source: skilltypes.InstallFromRegistry}))

	skills, err := s.InstalledSkills(ctx)
	require.NoError(t, err)
	require.Len(t, skills, 2)
	assert.Equal(t, "alpha", skills[0].Name)
	assert.Equal(t, "2.0.0", skills[0].Version)
	assert.Equal(t, "zeta", skills[1].Name)

	sk, err := s.InstalledSkill(ctx, "zeta")
	require.NoError(t, err)
	assert.Equal(t, skilltypes.InstallFromLocal, sk.Source)

	require.NoError(t, s.MarkUninstalled(ctx, "zeta"))
	_, err = s.InstalledSkill(ctx, "zeta")
	assert.True(t, skilltypes.IsNotFound(err))

	require.NoError(t, s.MarkUninstalled(ctx, "never-installed"))
}

func TestEnsureUserID(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id, err := s.EnsureUserID(ctx)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	again, err := s.EnsureUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	reopened, err := New(s.Home())
	require.NoError(t, err)
	cfg, err := reopened.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, cfg.UserID)
}

func TestConcurrentMarkInstalled(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			assert.NoError(t, s.MarkInstalled(ctx, skilltypes.InstalledSkill{Name: name}))
		}(name)
	}
	wg.Wait()

	skills, err := s.InstalledSkills(ctx)
	require.NoError(t, err)
	assert.Len(t, skills, len(names))
}
