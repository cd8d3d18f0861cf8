// Package installer installs skill bundles into the local skills directory
// from the registry, from git repositories or from local directories. Every
// bundle is parsed and passed through the safeguards before it is copied.
package installer

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jingkaihe/skillli/pkg/logger"
	"github.com/jingkaihe/skillli/pkg/registry"
	"github.com/jingkaihe/skillli/pkg/safeguards"
	"github.com/jingkaihe/skillli/pkg/skills"
	"github.com/jingkaihe/skillli/pkg/telemetry"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/jingkaihe/skillli/pkg/version"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// ProjectSkillsDir is where Link exposes installed skills inside a project
var ProjectSkillsDir = filepath.Join(".claude", "skills")

// defaultVersion is recorded for skills that declare none
const defaultVersion = "0.0.0"

// StateStore is the persistence the installer needs
type StateStore interface {
	SkillPath(name string) string
	CacheDir() string
	MarkInstalled(ctx context.Context, skill skilltypes.InstalledSkill) error
	MarkUninstalled(ctx context.Context, name string) error
}

// Cloner fetches the repository at url into the empty directory dest
type Cloner func(ctx context.Context, url, dest string) error

// Installer installs and removes skills
type Installer struct {
	store         StateStore
	clone         Cloner
	clientVersion string
	projectDir    string
	now           func() time.Time
}

// Option is a function that configures an Installer
type Option func(*Installer) error

// WithCloner replaces the git command line cloner
func WithCloner(c Cloner) Option {
	return func(i *Installer) error {
		if c == nil {
			return errors.New("cloner must not be nil")
		}
		i.clone = c
		return nil
	}
}

// WithClientVersion sets the version compared against min-skillli-version
func WithClientVersion(v string) Option {
	return func(i *Installer) error {
		i.clientVersion = v
		return nil
	}
}

// WithProjectDir sets the project Link and Uninstall operate on
func WithProjectDir(dir string) Option {
	return func(i *Installer) error {
		i.projectDir = dir
		return nil
	}
}

// WithClock overrides the install timestamp source
func WithClock(now func() time.Time) Option {
	return func(i *Installer) error {
		i.now = now
		return nil
	}
}

// New creates an installer backed by store
func New(store StateStore, opts ...Option) (*Installer, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	i := &Installer{
		store:         store,
		clone:         GitClone,
		clientVersion: version.Version,
		now:           time.Now,
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	if i.projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get working directory")
		}
		i.projectDir = wd
	}
	return i, nil
}

// GitClone shallow-clones url with the git command line
func GitClone(ctx context.Context, url, dest string) error {
	if _, err := exec.LookPath("git"); err != nil {
		return errors.New("git is not installed or not in PATH")
	}
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", "--", url, dest)
	if output, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "git clone failed: %s", strings.TrimSpace(string(output)))
	}
	return nil
}

// Install resolves ref and installs from the matching source. An existing
// directory is a local install, a URL or owner/repo is a git install and
// anything else is looked up in index.
func (i *Installer) Install(ctx context.Context, index *skilltypes.LocalIndex, ref string) (*skilltypes.InstalledSkill, error) {
	switch ResolveSource(ref) {
	case skilltypes.InstallFromLocal:
		return i.InstallFromLocal(ctx, ref)
	case skilltypes.InstallFromGitHub:
		return i.InstallFromGit(ctx, RepositoryURL(ref), "")
	default:
		return i.InstallFromRegistry(ctx, index, ref)
	}
}

// InstallFromRegistry installs the repository of a catalog entry under the
// entry's name
func (i *Installer) InstallFromRegistry(ctx context.Context, index *skilltypes.LocalIndex, name string) (*skilltypes.InstalledSkill, error) {
	entry, err := registry.GetEntry(index, name)
	if err != nil {
		return nil, err
	}
	if entry.Repository == "" {
		return nil, &skilltypes.InstallError{Message: "skill " + name + " has no repository URL"}
	}
	return i.installRemote(ctx, entry.Repository, name, skilltypes.InstallFromRegistry)
}

// InstallFromGit clones url and installs the skill at its root. name
// overrides the skill's declared name when non-empty.
func (i *Installer) InstallFromGit(ctx context.Context, url, name string) (*skilltypes.InstalledSkill, error) {
	return i.installRemote(ctx, url, name, skilltypes.InstallFromGitHub)
}

func (i *Installer) installRemote(ctx context.Context, url, name string, source skilltypes.InstallSource) (*skilltypes.InstalledSkill, error) {
	if name != "" && !skills.ValidName(name) {
		return nil, skilltypes.NewValidationErrorf("invalid skill name", "name: "+name)
	}
	var installed *skilltypes.InstalledSkill
	err := telemetry.WithSpan(ctx, "installer.install_remote", func(ctx context.Context) error {
		if err := os.MkdirAll(i.store.CacheDir(), 0o755); err != nil {
			return errors.Wrap(err, "failed to create cache directory")
		}
		tempDir, err := os.MkdirTemp(i.store.CacheDir(), "clone-*")
		if err != nil {
			return errors.Wrap(err, "failed to create temp directory")
		}
		defer os.RemoveAll(tempDir)

		checkout := filepath.Join(tempDir, "repo")
		logger.G(ctx).WithField("url", url).Debug("cloning skill repository")
		if err := i.clone(ctx, url, checkout); err != nil {
			return &skilltypes.InstallError{Message: "failed to clone " + url, Err: err}
		}

		installed, err = i.installDir(ctx, checkout, name, source)
		return err
	}, attribute.String("install.url", url), attribute.String("install.source", string(source)))
	return installed, err
}

// InstallFromLocal copies the skill in dir into the skills directory
func (i *Installer) InstallFromLocal(ctx context.Context, dir string) (*skilltypes.InstalledSkill, error) {
	var installed *skilltypes.InstalledSkill
	err := telemetry.WithSpan(ctx, "installer.install_local", func(ctx context.Context) error {
		var err error
		installed, err = i.installDir(ctx, dir, "", skilltypes.InstallFromLocal)
		return err
	}, attribute.String("install.dir", dir))
	return installed, err
}

// installDir validates the bundle in src and copies it into place
func (i *Installer) installDir(ctx context.Context, src, name string, source skilltypes.InstallSource) (*skilltypes.InstalledSkill, error) {
	if name != "" && !skills.ValidName(name) {
		return nil, skilltypes.NewValidationErrorf("invalid skill name", "name: "+name)
	}
	skillFile := filepath.Join(src, skills.SkillFileName)
	if _, err := os.Stat(skillFile); err != nil {
		return nil, &skilltypes.InstallError{Message: "no " + skills.SkillFileName + " found in " + src}
	}

	skill, err := skills.ParseFile(skillFile)
	if err != nil {
		return nil, err
	}

	result := safeguards.Run(skill, src)
	if !result.Passed {
		var messages []string
		for _, c := range result.Failed() {
			messages = append(messages, c.Message)
		}
		return nil, &skilltypes.InstallError{Message: "skill failed safety checks: " + strings.Join(messages, "; ")}
	}

	ok, err := version.SatisfiesMinimum(i.clientVersion, skill.Metadata.MinClientVersion)
	if err != nil {
		return nil, &skilltypes.InstallError{Message: "invalid min-skillli-version", Err: err}
	}
	if !ok {
		return nil, &skilltypes.InstallError{Message: "skill " + skill.Metadata.Name + " requires skillli " +
			skill.Metadata.MinClientVersion + " or newer, running " + i.clientVersion}
	}

	if name == "" {
		name = skill.Metadata.Name
	}
	dest := i.store.SkillPath(name)
	if err := i.replaceDir(src, dest); err != nil {
		return nil, &skilltypes.InstallError{Message: "failed to install " + name, Err: err}
	}

	installed := skilltypes.InstalledSkill{
		Name:        name,
		Version:     skill.Metadata.Version,
		InstalledAt: i.now().UTC(),
		Path:        dest,
		Source:      source,
	}
	if installed.Version == "" {
		installed.Version = defaultVersion
	}
	if err := i.store.MarkInstalled(ctx, installed); err != nil {
		return nil, errors.Wrap(err, "failed to record installed skill")
	}

	logger.G(ctx).WithField("skill", name).WithField("source", source).Info("skill installed")
	return &installed, nil
}

// replaceDir copies src into a staging directory next to dest, then swaps
// it into place
func (i *Installer) replaceDir(src, dest string) error {
	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}
	staging, err := os.MkdirTemp(parent, ".staging-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	if err := copyDir(src, staging); err != nil {
		return err
	}
	if err := os.RemoveAll(dest); err != nil {
		return errors.Wrap(err, "failed to remove existing skill")
	}
	return os.Rename(staging, dest)
}

// copyDir copies the payload files of src, leaving out ignored directories
func copyDir(src, dst string) error {
	return safeguards.WalkFiles(src, func(rel string, info os.FileInfo) error {
		return copyFile(filepath.Join(src, filepath.FromSlash(rel)), filepath.Join(dst, filepath.FromSlash(rel)), info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}

// Link exposes an installed skill to the project through a symlink and
// returns the link path
func (i *Installer) Link(skill *skilltypes.InstalledSkill) (string, error) {
	dir := filepath.Join(i.projectDir, ProjectSkillsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create project skills directory")
	}

	target, err := filepath.Abs(skill.Path)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve skill path")
	}

	link := filepath.Join(dir, skill.Name)
	if err := os.RemoveAll(link); err != nil {
		return "", errors.Wrap(err, "failed to remove existing link")
	}
	if err := os.Symlink(target, link); err != nil {
		return "", errors.Wrap(err, "failed to link skill")
	}
	return link, nil
}

// Uninstall removes the installed copy, the project link and the record
func (i *Installer) Uninstall(ctx context.Context, name string) error {
	if !skills.ValidName(name) {
		return skilltypes.NewValidationErrorf("invalid skill name", "name: "+name)
	}
	if err := os.RemoveAll(i.store.SkillPath(name)); err != nil {
		return errors.Wrapf(err, "failed to remove skill %s", name)
	}
	if err := os.RemoveAll(filepath.Join(i.projectDir, ProjectSkillsDir, name)); err != nil {
		return errors.Wrapf(err, "failed to remove link for %s", name)
	}
	if err := i.store.MarkUninstalled(ctx, name); err != nil {
		return errors.Wrap(err, "failed to update installed skills")
	}
	logger.G(ctx).WithField("skill", name).Info("skill uninstalled")
	return nil
}
