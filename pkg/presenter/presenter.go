// Package presenter renders skillli command output for the terminal:
// status messages, search and trawl listings, safeguard reports and skill
// details, with color support and quiet mode.
package presenter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/pkg/errors"
)

// Presenter defines the interface for CLI output
type Presenter interface {
	Error(err error, context string)
	Success(message string)
	Warning(message string)
	Info(message string)
	Section(title string)
	Separator()
	SearchResults(results []skilltypes.SearchResult)
	TrawlResults(results []skilltypes.TrawlResult)
	SafeguardReport(result *skilltypes.SafeguardResult)
	SkillInfo(entry skilltypes.RegistryEntry, installed *skilltypes.InstalledSkill)
	InstalledList(skills []skilltypes.InstalledSkill)
	JSON(v any) error
	SetQuiet(quiet bool)
	IsQuiet() bool
}

// ColorMode represents different color output modes
type ColorMode int

const (
	// ColorAuto lets the color package detect terminal support
	ColorAuto ColorMode = iota
	// ColorAlways forces colored output
	ColorAlways
	// ColorNever disables colored output
	ColorNever
)

// TerminalPresenter implements Presenter for terminal output
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	colorMode   ColorMode
	quiet       bool
}

// New creates a presenter writing to stdout and stderr
func New() *TerminalPresenter {
	return NewWithOptions(os.Stdout, os.Stderr, detectColorMode())
}

// NewWithOptions creates a TerminalPresenter with custom settings
func NewWithOptions(output, errorOutput io.Writer, colorMode ColorMode) *TerminalPresenter {
	switch colorMode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	}
	return &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
		colorMode:   colorMode,
	}
}

func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}
	switch os.Getenv("SKILLLI_COLOR") {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// Error writes err to the error output. Errors are shown in quiet mode.
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}
	c := color.New(color.FgRed, color.Bold)
	if context != "" {
		c.Fprintf(p.errorOutput, "[ERROR] %s: %v\n", context, err)
		return
	}
	c.Fprintf(p.errorOutput, "[ERROR] %v\n", err)
}

// Success displays a success message
func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(p.output, "✓ %s\n", message)
}

// Warning displays a warning message
func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgYellow, color.Bold).Fprintf(p.output, "⚠ %s\n", message)
}

// Info displays an informational message
func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.output, message)
}

// Section displays an underlined header
func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}
	c := color.New(color.Bold)
	c.Fprintln(p.output, title)
	c.Fprintln(p.output, strings.Repeat("-", len(title)))
}

// Separator displays a horizontal rule
func (p *TerminalPresenter) Separator() {
	if p.quiet {
		return
	}
	color.New(color.Faint).Fprintln(p.output, strings.Repeat("-", 60))
}

// SearchResults lists local search hits in rank order
func (p *TerminalPresenter) SearchResults(results []skilltypes.SearchResult) {
	if p.quiet {
		return
	}
	if len(results) == 0 {
		p.Info("No skills found")
		return
	}
	for _, r := range results {
		p.entryLine(r.Skill)
		fields := make([]string, len(r.MatchedOn))
		for i, f := range r.MatchedOn {
			fields[i] = string(f)
		}
		color.New(color.Faint).Fprintf(p.output, "    score %.1f, matched %s\n", r.RelevanceScore, strings.Join(fields, ", "))
	}
}

// TrawlResults lists discovery hits with their source and confidence
func (p *TerminalPresenter) TrawlResults(results []skilltypes.TrawlResult) {
	if p.quiet {
		return
	}
	if len(results) == 0 {
		p.Info("No skills found")
		return
	}
	for _, r := range results {
		name := r.Skill.Name
		if name == "" {
			name = r.URL
		}
		fmt.Fprintf(p.output, "%s %s %s\n",
			color.New(color.Bold).Sprint(name),
			color.New(color.FgCyan).Sprintf("[%s]", r.Source),
			color.New(color.Faint).Sprintf("%.0f%%", r.Confidence*100),
		)
		if r.Skill.Description != "" {
			fmt.Fprintf(p.output, "    %s\n", r.Skill.Description)
		}
		if r.URL != "" && r.URL != name {
			fmt.Fprintf(p.output, "    %s\n", r.URL)
		}
	}
}

// SafeguardReport prints every check and the trust score
func (p *TerminalPresenter) SafeguardReport(result *skilltypes.SafeguardResult) {
	if p.quiet || result == nil {
		return
	}
	for _, check := range result.Checks {
		switch {
		case check.Passed:
			color.New(color.FgGreen).Fprintf(p.output, "  ✓ %-20s %s\n", check.Name, check.Message)
		case check.Severity == skilltypes.SeverityError:
			color.New(color.FgRed).Fprintf(p.output, "  ✗ %-20s %s\n", check.Name, check.Message)
		default:
			color.New(color.FgYellow).Fprintf(p.output, "  ⚠ %-20s %s\n", check.Name, check.Message)
		}
	}
	fmt.Fprintf(p.output, "Trust score: %s\n", FormatScore(result.Score))
}

// SkillInfo prints the details of a catalog entry
func (p *TerminalPresenter) SkillInfo(entry skilltypes.RegistryEntry, installed *skilltypes.InstalledSkill) {
	if p.quiet {
		return
	}
	p.Section(entry.Name)
	fmt.Fprintln(p.output, entry.Description)
	fmt.Fprintln(p.output)

	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(p.output, "%-12s %s\n", label+":", value)
	}
	row("Version", entry.Version)
	row("Author", entry.Author)
	row("License", entry.License)
	row("Category", string(entry.Category))
	row("Trust", FormatTrust(entry.TrustLevel))
	row("Tags", strings.Join(entry.Tags, ", "))
	row("Rating", FormatRating(entry.Rating))
	if entry.Downloads > 0 {
		row("Downloads", fmt.Sprintf("%d", entry.Downloads))
	}
	row("Repository", entry.Repository)
	row("Homepage", entry.Homepage)
	if installed != nil {
		row("Installed", fmt.Sprintf("%s at %s", installed.Version, installed.Path))
	}
}

// InstalledList prints the installed skills
func (p *TerminalPresenter) InstalledList(skills []skilltypes.InstalledSkill) {
	if p.quiet {
		return
	}
	if len(skills) == 0 {
		p.Info("No skills installed")
		return
	}
	for _, s := range skills {
		fmt.Fprintf(p.output, "%s %s %s\n",
			color.New(color.Bold).Sprint(s.Name),
			s.Version,
			color.New(color.Faint).Sprintf("(%s, %s)", s.Source, s.InstalledAt.Format("2006-01-02")),
		)
	}
}

// JSON writes v as indented JSON. It is not affected by quiet mode.
func (p *TerminalPresenter) JSON(v any) error {
	enc := json.NewEncoder(p.output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode output")
	}
	return nil
}

func (p *TerminalPresenter) entryLine(entry skilltypes.RegistryEntry) {
	fmt.Fprintf(p.output, "%s %s %s %s\n",
		color.New(color.Bold).Sprint(entry.Name),
		entry.Version,
		FormatTrust(entry.TrustLevel),
		FormatRating(entry.Rating),
	)
	if entry.Description != "" {
		fmt.Fprintf(p.output, "    %s\n", entry.Description)
	}
}

// SetQuiet enables or disables quiet mode
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// IsQuiet returns whether quiet mode is enabled
func (p *TerminalPresenter) IsQuiet() bool {
	return p.quiet
}

// FormatRating renders an average and vote count, or "unrated"
func FormatRating(r skilltypes.RatingInfo) string {
	if r.Count == 0 {
		return "unrated"
	}
	return fmt.Sprintf("★ %.1f (%d)", r.Average, r.Count)
}

// FormatTrust colors a trust level by how much it can be relied on
func FormatTrust(t skilltypes.TrustLevel) string {
	switch t {
	case skilltypes.TrustOfficial:
		return color.New(color.FgGreen).Sprint(t)
	case skilltypes.TrustVerified:
		return color.New(color.FgCyan).Sprint(t)
	case "":
		return ""
	default:
		return color.New(color.FgYellow).Sprint(t)
	}
}

// FormatScore colors a 0-100 trust score
func FormatScore(score int) string {
	text := fmt.Sprintf("%d/100", score)
	switch {
	case score >= 80:
		return color.New(color.FgGreen, color.Bold).Sprint(text)
	case score >= 50:
		return color.New(color.FgYellow, color.Bold).Sprint(text)
	default:
		return color.New(color.FgRed, color.Bold).Sprint(text)
	}
}

var defaultPresenter = New()

// Default returns the process-wide presenter
func Default() *TerminalPresenter {
	return defaultPresenter
}

// Error displays an error using the default presenter
func Error(err error, context string) {
	defaultPresenter.Error(err, context)
}

// Success displays a success message using the default presenter
func Success(message string) {
	defaultPresenter.Success(message)
}

// Warning displays a warning using the default presenter
func Warning(message string) {
	defaultPresenter.Warning(message)
}

// Info displays a message using the default presenter
func Info(message string) {
	defaultPresenter.Info(message)
}

// SetQuiet toggles quiet mode on the default presenter
func SetQuiet(quiet bool) {
	defaultPresenter.SetQuiet(quiet)
}
