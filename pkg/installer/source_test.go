package installer

import (
	"testing"

	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/stretchr/testify/assert"
)

func TestValidateRepoName(t *testing.T) {
	tests := []struct {
		repo    string
		wantErr bool
	}{
		{"jingkaihe/skills", false},
		{"", true},
		{"skills", true},
		{"/skills", true},
		{"owner/", true},
		{"a/b/c", true},
	}
	for _, tt := range tests {
		t.Run(tt.repo, func(t *testing.T) {
			err := ValidateRepoName(tt.repo)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveSource(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, skilltypes.InstallFromLocal, ResolveSource(dir))
	assert.Equal(t, skilltypes.InstallFromGitHub, ResolveSource("https://github.com/a/b"))
	assert.Equal(t, skilltypes.InstallFromGitHub, ResolveSource("git@github.com:a/b.git"))
	assert.Equal(t, skilltypes.InstallFromGitHub, ResolveSource("a/b"))
	assert.Equal(t, skilltypes.InstallFromRegistry, ResolveSource("pdf-tools"))
}

func TestRepositoryURL(t *testing.T) {
	assert.Equal(t, "https://github.com/a/b", RepositoryURL("a/b"))
	assert.Equal(t, "git@github.com:a/b.git", RepositoryURL("git@github.com:a/b.git"))
	assert.Equal(t, "https://gitlab.com/a/b", RepositoryURL("https://gitlab.com/a/b"))
}

func TestOutdated(t *testing.T) {
	index := skilltypes.NewLocalIndex()
	index.Skills["alpha"] = skilltypes.RegistryEntry{Name: "alpha", Version: "1.1.0"}
	index.Skills["beta"] = skilltypes.RegistryEntry{Name: "beta", Version: "1.0.0"}
	index.Skills["gamma"] = skilltypes.RegistryEntry{Name: "gamma"}

	updates := Outdated([]skilltypes.InstalledSkill{
		{Name: "beta", Version: "1.0.0"},
		{Name: "alpha", Version: "1.0.9"},
		{Name: "gamma", Version: "0.1.0"},
		{Name: "local-only", Version: "0.1.0"},
		{Name: "beta-broken", Version: "x"},
	}, index)

	assert.Equal(t, []Update{{Name: "alpha", Installed: "1.0.9", Available: "1.1.0"}}, updates)
	assert.Nil(t, Outdated(nil, nil))
}
