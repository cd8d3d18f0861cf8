// Package safeguards runs static safety checks against parsed skills and
// computes their informational trust score.
package safeguards

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jingkaihe/skillli/pkg/skills"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
)

// Check names
const (
	CheckNameSchema             = "schema-validation"
	CheckNameLineCount          = "line-count"
	CheckNameProhibitedPatterns = "prohibited-patterns"
	CheckNameScriptSafety       = "script-safety"
	CheckNameFileSize           = "file-size"
	CheckNameQuizIntegrity      = "quiz-integrity"
)

const (
	// MaxSkillLines is the line ceiling of a SKILL.md body
	MaxSkillLines = 500
	// MaxSkillSizeBytes is the size ceiling of a skill directory
	MaxSkillSizeBytes = 5 * 1024 * 1024

	scriptsDirName = "scripts"
)

// AllowedScriptExtensions lists the file types accepted under scripts/
var AllowedScriptExtensions = []string{".sh", ".py", ".js", ".ts"}

// prohibitedPatterns is evaluated in order; labels appear in the report in
// the same order
var prohibitedPatterns = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`\beval\s*\(`), "eval()"},
	{regexp.MustCompile(`\bexec\s*\(`), "exec()"},
	{regexp.MustCompile(`\bexecSync\s*\(`), "execSync()"},
	{regexp.MustCompile(`rm\s+-rf\s+/`), "rm -rf /"},
	{regexp.MustCompile(`\bchild_process\b`), "child_process"},
	{regexp.MustCompile(`\bsubprocess\.(?:run|call|Popen|check_call|check_output)\s*\(`), "subprocess"},
	{regexp.MustCompile(`(?i)\bProcess\.kill\b`), "Process.kill"},
	{regexp.MustCompile(`password\s*[:=]\s*['"][^'"]+['"]`), "hardcoded password"},
	{regexp.MustCompile(`api[_-]?key\s*[:=]\s*['"][^'"]+['"]`), "hardcoded API key"},
	{regexp.MustCompile(`[A-Za-z0-9+/]{100,}={0,2}`), "large base64 blob"},
}

// CheckSchema records that the metadata already passed validation
func CheckSchema(_ *skilltypes.ParsedSkill) skilltypes.SafeguardCheck {
	return skilltypes.SafeguardCheck{
		Name:     CheckNameSchema,
		Passed:   true,
		Severity: skilltypes.SeverityInfo,
		Message:  "SKILL.md metadata is valid",
	}
}

// CheckLineCount warns when the body exceeds MaxSkillLines lines
func CheckLineCount(content string) skilltypes.SafeguardCheck {
	lines := strings.Count(content, "\n") + 1
	if lines <= MaxSkillLines {
		return skilltypes.SafeguardCheck{
			Name:     CheckNameLineCount,
			Passed:   true,
			Severity: skilltypes.SeverityInfo,
			Message:  fmt.Sprintf("SKILL.md has %d lines (max %d)", lines, MaxSkillLines),
		}
	}
	return skilltypes.SafeguardCheck{
		Name:     CheckNameLineCount,
		Passed:   false,
		Severity: skilltypes.SeverityWarning,
		Message:  fmt.Sprintf("SKILL.md has %d lines, exceeds max of %d", lines, MaxSkillLines),
	}
}

// CheckProhibitedPatterns scans text for code execution primitives,
// destructive commands, hardcoded secrets and large encoded blobs
func CheckProhibitedPatterns(text string) skilltypes.SafeguardCheck {
	var found []string
	for _, p := range prohibitedPatterns {
		if p.re.MatchString(text) {
			found = append(found, p.label)
		}
	}

	if len(found) == 0 {
		return skilltypes.SafeguardCheck{
			Name:     CheckNameProhibitedPatterns,
			Passed:   true,
			Severity: skilltypes.SeverityInfo,
			Message:  "No prohibited patterns detected",
		}
	}
	return skilltypes.SafeguardCheck{
		Name:     CheckNameProhibitedPatterns,
		Passed:   false,
		Severity: skilltypes.SeverityError,
		Message:  "Prohibited patterns found: " + strings.Join(found, ", "),
	}
}

// HasScriptsDir reports whether dir contains a scripts/ directory
func HasScriptsDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, scriptsDirName))
	return err == nil && info.IsDir()
}

// CheckScriptSafety requires every file under dir/scripts to carry an
// allowed extension
func CheckScriptSafety(dir string) skilltypes.SafeguardCheck {
	if !HasScriptsDir(dir) {
		return skilltypes.SafeguardCheck{
			Name:     CheckNameScriptSafety,
			Passed:   true,
			Severity: skilltypes.SeverityInfo,
			Message:  "No scripts directory found",
		}
	}

	var bad []string
	err := doublestar.GlobWalk(os.DirFS(filepath.Join(dir, scriptsDirName)), "**", func(path string, d fs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		if !allowedScript(path) {
			bad = append(bad, path)
		}
		return nil
	})
	if err != nil {
		return skilltypes.SafeguardCheck{
			Name:     CheckNameScriptSafety,
			Passed:   false,
			Severity: skilltypes.SeverityError,
			Message:  fmt.Sprintf("Unable to inspect scripts: %v", err),
		}
	}

	if len(bad) == 0 {
		return skilltypes.SafeguardCheck{
			Name:     CheckNameScriptSafety,
			Passed:   true,
			Severity: skilltypes.SeverityInfo,
			Message:  "All scripts use allowed extensions",
		}
	}

	sort.Strings(bad)
	return skilltypes.SafeguardCheck{
		Name:     CheckNameScriptSafety,
		Passed:   false,
		Severity: skilltypes.SeverityError,
		Message:  "Disallowed script types: " + strings.Join(bad, ", "),
	}
}

func allowedScript(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range AllowedScriptExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// CheckFileSize warns when the files under dir exceed MaxSkillSizeBytes.
// Version control and dependency cache directories are not counted.
func CheckFileSize(dir string) skilltypes.SafeguardCheck {
	total, err := DirSize(dir)
	if err != nil {
		return skilltypes.SafeguardCheck{
			Name:     CheckNameFileSize,
			Passed:   false,
			Severity: skilltypes.SeverityWarning,
			Message:  fmt.Sprintf("Unable to compute skill size: %v", err),
		}
	}

	maxMB := MaxSkillSizeBytes / 1024 / 1024
	if total <= MaxSkillSizeBytes {
		return skilltypes.SafeguardCheck{
			Name:     CheckNameFileSize,
			Passed:   true,
			Severity: skilltypes.SeverityInfo,
			Message:  fmt.Sprintf("Total size: %.1fKB (max %dMB)", float64(total)/1024, maxMB),
		}
	}
	return skilltypes.SafeguardCheck{
		Name:     CheckNameFileSize,
		Passed:   false,
		Severity: skilltypes.SeverityWarning,
		Message:  fmt.Sprintf("Total size %.1fMB exceeds max of %dMB", float64(total)/1024/1024, maxMB),
	}
}

// CheckQuizIntegrity warns about quiz branches that point at headings the
// body does not have, and gate questions with no correct option
func CheckQuizIntegrity(skill *skilltypes.ParsedSkill) skilltypes.SafeguardCheck {
	anchors := make(map[string]bool)
	for _, a := range skills.SectionAnchors(skill.Content) {
		anchors[a] = true
	}

	var issues []string
	for i, quiz := range skill.Metadata.Quizzes {
		for j, q := range quiz.Questions {
			path := fmt.Sprintf("quiz[%d].questions[%d]", i, j)

			if quiz.Gate && !hasCorrectOption(q) {
				issues = append(issues, path+" has no correct option")
			}

			branches := []struct {
				name   string
				branch *skilltypes.QuizBranch
			}{{"on-correct", q.OnCorrect}, {"on-incorrect", q.OnIncorrect}}
			for _, b := range branches {
				if b.branch == nil || b.branch.GotoSection == "" {
					continue
				}
				if !anchors[b.branch.GotoSection] {
					issues = append(issues, fmt.Sprintf("%s.%s.goto-section %q does not match any heading", path, b.name, b.branch.GotoSection))
				}
			}
		}
	}

	if len(issues) == 0 {
		return skilltypes.SafeguardCheck{
			Name:     CheckNameQuizIntegrity,
			Passed:   true,
			Severity: skilltypes.SeverityInfo,
			Message:  "Quiz references are consistent",
		}
	}
	return skilltypes.SafeguardCheck{
		Name:     CheckNameQuizIntegrity,
		Passed:   false,
		Severity: skilltypes.SeverityWarning,
		Message:  "Quiz issues: " + strings.Join(issues, "; "),
	}
}

func hasCorrectOption(q skilltypes.QuizQuestion) bool {
	for _, o := range q.Options {
		if o.Correct {
			return true
		}
	}
	return false
}
