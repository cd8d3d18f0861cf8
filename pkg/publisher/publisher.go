// Package publisher prepares a skill directory for submission to the
// registry: it validates the bundle, fingerprints its files and emits the
// manifest.
package publisher

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jingkaihe/skillli/pkg/safeguards"
	"github.com/jingkaihe/skillli/pkg/skills"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/pkg/errors"
)

// ChecksumPrefix tags the digest algorithm in manifests
const ChecksumPrefix = "sha256:"

// Package is a validated bundle ready to publish
type Package struct {
	Skill      *skilltypes.ParsedSkill
	Safeguards *skilltypes.SafeguardResult
	Manifest   *skills.Manifest
	Checksum   string
}

// Build parses and checks the skill in dir and computes its manifest. A
// bundle failing any blocking safeguard is rejected with a ValidationError
// whose details read "[severity] message".
func Build(dir string, now time.Time) (*Package, error) {
	skillFile := filepath.Join(dir, skills.SkillFileName)
	if _, err := os.Stat(skillFile); err != nil {
		return nil, skilltypes.NewValidationErrorf("no " + skills.SkillFileName + " found in " + dir)
	}

	skill, err := skills.ParseFile(skillFile)
	if err != nil {
		return nil, err
	}

	result := safeguards.Run(skill, dir)
	if !result.Passed {
		var details []string
		for _, c := range result.Failed() {
			details = append(details, "["+string(c.Severity)+"] "+c.Message)
		}
		return nil, skilltypes.NewValidationErrorf("skill failed safety checks", details...)
	}

	files, size, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}
	sum, err := Checksum(dir, files)
	if err != nil {
		return nil, err
	}

	manifest := skills.ExtractManifest(skill, now)
	manifest.Checksum = ChecksumPrefix + sum
	manifest.Files = files
	manifest.SizeBytes = size

	return &Package{
		Skill:      skill,
		Safeguards: result,
		Manifest:   manifest,
		Checksum:   sum,
	}, nil
}

// ListFiles returns the sorted slash-separated payload paths of dir and
// their total size
func ListFiles(dir string) ([]string, int64, error) {
	var files []string
	var size int64
	err := safeguards.WalkFiles(dir, func(rel string, info fs.FileInfo) error {
		files = append(files, rel)
		size += info.Size()
		return nil
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list skill files")
	}
	sort.Strings(files)
	return files, size, nil
}

// Checksum hashes each relative path followed by the file's content, in the
// order given
func Checksum(dir string, files []string) (string, error) {
	h := sha256.New()
	for _, rel := range files {
		io.WriteString(h, rel)
		if err := hashFile(h, filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	return nil
}

// WriteManifest stores the manifest as skillli.json in dir
func WriteManifest(dir string, manifest *skills.Manifest) (string, error) {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal manifest")
	}
	path := filepath.Join(dir, skills.ManifestFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write manifest")
	}
	return path, nil
}
