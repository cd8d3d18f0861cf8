// Package version reports the client version and compares it against the
// minimum versions skills declare.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
)

var (
	// Version of the skillli client, overridden at build time via ldflags
	Version = "0.1.0"

	// GitCommit is the commit the binary was built from
	GitCommit = "unknown"
)

// Info represents version information
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	GoVersion string `json:"goVersion"`
}

// Get returns the version information
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
	}
}

func (i Info) String() string {
	return fmt.Sprintf("skillli %s (commit %s, %s)", i.Version, i.GitCommit, i.GoVersion)
}

// JSON returns the indented JSON form of i
func (i Info) JSON() (string, error) {
	b, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal version info")
	}
	return string(b), nil
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// Compare orders two major.minor.patch versions like strings.Compare. An
// optional leading "v" is accepted.
func Compare(a, b string) (int, error) {
	ca, cb := canonical(a), canonical(b)
	if !semver.IsValid(ca) {
		return 0, errors.Errorf("invalid version %q", a)
	}
	if !semver.IsValid(cb) {
		return 0, errors.Errorf("invalid version %q", b)
	}
	return semver.Compare(ca, cb), nil
}

// SatisfiesMinimum reports whether current is at least minimum. An empty
// minimum is always satisfied. Development builds satisfy everything.
func SatisfiesMinimum(current, minimum string) (bool, error) {
	if minimum == "" || current == "dev" {
		return true, nil
	}
	cmp, err := Compare(current, minimum)
	if err != nil {
		return false, err
	}
	return cmp >= 0, nil
}
