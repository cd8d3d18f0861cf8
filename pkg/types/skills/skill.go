// Package skills defines the shared data model for skill bundles, registry
// catalog records, search and trawl results, and safeguard reports.
package skills

import "time"

// Category is the registry category of a skill
type Category string

// Skill categories
const (
	CategoryDevelopment Category = "development"
	CategoryCreative    Category = "creative"
	CategoryEnterprise  Category = "enterprise"
	CategoryData        Category = "data"
	CategoryDevOps      Category = "devops"
	CategoryOther       Category = "other"
)

// Categories lists every valid category in display order
var Categories = []Category{
	CategoryDevelopment,
	CategoryCreative,
	CategoryEnterprise,
	CategoryData,
	CategoryDevOps,
	CategoryOther,
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// TrustLevel is the provenance tier of a skill
type TrustLevel string

// Trust levels
const (
	TrustCommunity TrustLevel = "community"
	TrustVerified  TrustLevel = "verified"
	TrustOfficial  TrustLevel = "official"
)

// TrustLevels lists every valid trust level from lowest to highest
var TrustLevels = []TrustLevel{TrustCommunity, TrustVerified, TrustOfficial}

// Valid reports whether t is a known trust level
func (t TrustLevel) Valid() bool {
	for _, known := range TrustLevels {
		if t == known {
			return true
		}
	}
	return false
}

// SkillMetadata is the canonical, validated frontmatter of a SKILL.md file.
// Unknown frontmatter keys are carried in Extra.
type SkillMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	License       string            `json:"license,omitempty"`
	Compatibility []string          `json:"compatibility,omitempty"`
	AllowedTools  []string          `json:"allowedTools,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`

	ArgumentHint           string `json:"argumentHint,omitempty"`
	DisableModelInvocation bool   `json:"disableModelInvocation"`
	UserInvocable          bool   `json:"userInvocable"`
	Model                  string `json:"model,omitempty"`
	Context                string `json:"context,omitempty"`
	Agent                  string `json:"agent,omitempty"`
	Hooks                  any    `json:"hooks,omitempty"`

	Version          string     `json:"version,omitempty"`
	Author           string     `json:"author,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	Category         Category   `json:"category,omitempty"`
	Repository       string     `json:"repository,omitempty"`
	Homepage         string     `json:"homepage,omitempty"`
	MinClientVersion string     `json:"minClientVersion,omitempty"`
	TrustLevel       TrustLevel `json:"trustLevel"`
	Checksum         string     `json:"checksum,omitempty"`

	Quizzes []Quiz `json:"quizzes,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// Quiz is a comprehension check embedded in a skill
type Quiz struct {
	Title        string         `json:"title,omitempty"`
	Description  string         `json:"description,omitempty"`
	Gate         bool           `json:"gate"`
	PassingScore int            `json:"passingScore"`
	Questions    []QuizQuestion `json:"questions"`
}

// QuizQuestion is a single multiple-choice question
type QuizQuestion struct {
	Question    string       `json:"question"`
	Options     []QuizOption `json:"options"`
	Explanation string       `json:"explanation,omitempty"`
	OnCorrect   *QuizBranch  `json:"onCorrect,omitempty"`
	OnIncorrect *QuizBranch  `json:"onIncorrect,omitempty"`
}

// QuizOption is one answer of a question
type QuizOption struct {
	Label   string `json:"label"`
	Correct bool   `json:"correct,omitempty"`
}

// QuizBranch tells the agent what to do after an answer
type QuizBranch struct {
	GotoSection   string `json:"gotoSection,omitempty"`
	LoadSkill     string `json:"loadSkill,omitempty"`
	LoadReference string `json:"loadReference,omitempty"`
	Message       string `json:"message,omitempty"`
}

// HasGate reports whether any quiz must be answered before the body is used
func (m *SkillMetadata) HasGate() bool {
	for _, q := range m.Quizzes {
		if q.Gate {
			return true
		}
	}
	return false
}

// ParsedSkill is a validated skill plus its body
type ParsedSkill struct {
	Metadata       SkillMetadata `json:"metadata"`
	Content        string        `json:"content"`
	RawFrontmatter string        `json:"rawFrontmatter"`
	FilePath       string        `json:"filePath"`
}

// RatingInfo aggregates user ratings of a skill
type RatingInfo struct {
	Average      float64   `json:"average"`
	Count        uint64    `json:"count"`
	Distribution [5]uint64 `json:"distribution"`
}

// RatingSubmission is a single user rating
type RatingSubmission struct {
	SkillName string    `json:"skillName"`
	Rating    int       `json:"rating"`
	UserID    string    `json:"userId"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RegistryEntry is the catalog record of a published skill. Trawl results
// carry partial entries where zero values mean absent.
type RegistryEntry struct {
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Version          string     `json:"version,omitempty"`
	Author           string     `json:"author,omitempty"`
	License          string     `json:"license,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	Category         Category   `json:"category,omitempty"`
	Repository       string     `json:"repository,omitempty"`
	Homepage         string     `json:"homepage,omitempty"`
	MinClientVersion string     `json:"minClientVersion,omitempty"`
	TrustLevel       TrustLevel `json:"trustLevel,omitempty"`
	Checksum         string     `json:"checksum,omitempty"`
	Downloads        uint64     `json:"downloads"`
	Rating           RatingInfo `json:"rating"`
	PublishedAt      time.Time  `json:"publishedAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// LocalIndexVersion is the format version written by this client
const LocalIndexVersion = "1.0.0"

// LocalIndex is the locally cached registry catalog keyed by skill name
type LocalIndex struct {
	Version     string                   `json:"version"`
	LastUpdated time.Time                `json:"lastUpdated"`
	Skills      map[string]RegistryEntry `json:"skills"`
}

// NewLocalIndex returns an empty index
func NewLocalIndex() *LocalIndex {
	return &LocalIndex{
		Version: LocalIndexVersion,
		Skills:  map[string]RegistryEntry{},
	}
}

// MatchField names the entry field a search query matched
type MatchField string

// Match fields
const (
	MatchName        MatchField = "name"
	MatchDescription MatchField = "description"
	MatchTags        MatchField = "tags"
	MatchCategory    MatchField = "category"
)

// SearchResult is one ranked hit of the local search engine
type SearchResult struct {
	Skill          RegistryEntry `json:"skill"`
	RelevanceScore float64       `json:"relevanceScore"`
	MatchedOn      []MatchField  `json:"matchedOn"`
}

// Source identifies where a trawl result came from
type Source string

// Trawl sources
const (
	SourceRegistry Source = "registry"
	SourceGitHub   Source = "github"
	SourceNPM      Source = "npm"
	SourceWeb      Source = "web"
)

// TrawlResult is one discovery hit from any source
type TrawlResult struct {
	Source     Source        `json:"source"`
	Skill      RegistryEntry `json:"skill"`
	Confidence float64       `json:"confidence"`
	URL        string        `json:"url"`
}

// Severity is the level of a safeguard check
type Severity string

// Safeguard severities
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// SafeguardCheck is the outcome of one static check
type SafeguardCheck struct {
	Name     string   `json:"name"`
	Passed   bool     `json:"passed"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Blocking reports whether the check failed with error severity
func (c SafeguardCheck) Blocking() bool {
	return !c.Passed && c.Severity == SeverityError
}

// SafeguardResult aggregates every check run against a skill
type SafeguardResult struct {
	Passed bool             `json:"passed"`
	Score  int              `json:"score"`
	Checks []SafeguardCheck `json:"checks"`
}

// Failed returns the checks that did not pass
func (r *SafeguardResult) Failed() []SafeguardCheck {
	var failed []SafeguardCheck
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// InstallSource is where an installed skill was obtained from
type InstallSource string

// Install sources
const (
	InstallFromRegistry InstallSource = "registry"
	InstallFromLocal    InstallSource = "local"
	InstallFromGitHub   InstallSource = "github"
)

// InstalledSkill records a skill present in the local skills directory
type InstalledSkill struct {
	Name        string        `json:"name"`
	Version     string        `json:"version"`
	InstalledAt time.Time     `json:"installedAt"`
	Path        string        `json:"path"`
	Source      InstallSource `json:"source"`
}

// LocalConfig is the persisted client configuration
type LocalConfig struct {
	InstalledSkills map[string]InstalledSkill `json:"installedSkills"`
	RegistryURL     string                    `json:"registryUrl"`
	LastSync        time.Time                 `json:"lastSync"`
	UserID          string                    `json:"userId,omitempty"`
	Onboarded       bool                      `json:"onboarded,omitempty"`
}
