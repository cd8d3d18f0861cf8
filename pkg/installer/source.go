package installer

import (
	"os"
	"sort"
	"strings"

	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/jingkaihe/skillli/pkg/version"
	"github.com/pkg/errors"
)

const githubURLPrefix = "https://github.com/"

// ValidateRepoName checks the "owner/repo" shorthand
func ValidateRepoName(repo string) error {
	if repo == "" {
		return errors.New("repository name cannot be empty")
	}
	owner, name, ok := strings.Cut(repo, "/")
	if !ok {
		return errors.Errorf("invalid repository format %q: expected 'owner/repo'", repo)
	}
	if owner == "" || name == "" || strings.Contains(name, "/") {
		return errors.Errorf("invalid repository format %q: expected 'owner/repo'", repo)
	}
	return nil
}

func isGitURL(ref string) bool {
	return strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "git@") ||
		strings.HasPrefix(ref, "ssh://") ||
		strings.HasSuffix(ref, ".git")
}

// ResolveSource classifies an install reference
func ResolveSource(ref string) skilltypes.InstallSource {
	if info, err := os.Stat(ref); err == nil && info.IsDir() {
		return skilltypes.InstallFromLocal
	}
	if isGitURL(ref) || ValidateRepoName(ref) == nil {
		return skilltypes.InstallFromGitHub
	}
	return skilltypes.InstallFromRegistry
}

// RepositoryURL expands the owner/repo shorthand to a GitHub URL and leaves
// full URLs untouched
func RepositoryURL(ref string) string {
	if !isGitURL(ref) && ValidateRepoName(ref) == nil {
		return githubURLPrefix + ref
	}
	return ref
}

// Update is an installed skill with a newer catalog version
type Update struct {
	Name      string `json:"name"`
	Installed string `json:"installed"`
	Available string `json:"available"`
}

// Outdated compares installed skills against index. Skills missing from the
// catalog or with unparseable versions are skipped.
func Outdated(installed []skilltypes.InstalledSkill, index *skilltypes.LocalIndex) []Update {
	if index == nil {
		return nil
	}
	var updates []Update
	for _, sk := range installed {
		entry, ok := index.Skills[sk.Name]
		if !ok || entry.Version == "" {
			continue
		}
		cmp, err := version.Compare(sk.Version, entry.Version)
		if err != nil || cmp >= 0 {
			continue
		}
		updates = append(updates, Update{Name: sk.Name, Installed: sk.Version, Available: entry.Version})
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].Name < updates[j].Name })
	return updates
}
