package skills

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

const (
	maxNameLen          = 64
	maxDescriptionLen   = 1024
	maxCompatibilityLen = 500
	maxTags             = 20
	maxTagLen           = 50
	defaultPassingScore = 100
)

var (
	namePattern   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

	// mapstructure reports "'<path>' <reason>"
	decodeErrorPattern = regexp.MustCompile(`^'([^']*)' (.*)$`)
)

// frontmatter mirrors the top-level keys accepted in SKILL.md
type frontmatter struct {
	Name                   *string `mapstructure:"name" json:"name" jsonschema:"required,minLength=1,maxLength=64,pattern=^[a-z0-9]+(-[a-z0-9]+)*$"`
	Description            *string `mapstructure:"description" json:"description" jsonschema:"required,minLength=1,maxLength=1024"`
	Compatibility          any     `mapstructure:"compatibility" json:"compatibility,omitempty" jsonschema:"description=String or list of strings (each at most 500 characters)"`
	AllowedTools           any     `mapstructure:"allowed-tools" json:"allowed-tools,omitempty" jsonschema:"description=Space separated string or list of tool names"`
	Metadata               any     `mapstructure:"metadata" json:"metadata,omitempty" jsonschema:"description=Open string map; skillli registry keys are read from it"`
	ArgumentHint           *string `mapstructure:"argument-hint" json:"argument-hint,omitempty"`
	DisableModelInvocation *bool   `mapstructure:"disable-model-invocation" json:"disable-model-invocation,omitempty" jsonschema:"default=false"`
	UserInvocable          *bool   `mapstructure:"user-invocable" json:"user-invocable,omitempty" jsonschema:"default=true"`
	Model                  *string `mapstructure:"model" json:"model,omitempty"`
	Context                *string `mapstructure:"context" json:"context,omitempty"`
	Agent                  *string `mapstructure:"agent" json:"agent,omitempty"`
	Hooks                  any     `mapstructure:"hooks" json:"hooks,omitempty"`

	RegistryFrontmatter `mapstructure:",squash"`

	Quiz []quizFrontmatter `mapstructure:"quiz" json:"quiz,omitempty"`

	Extra map[string]any `mapstructure:",remain" json:"-"`
}

// RegistryFrontmatter holds the skillli extensions that may appear either at the
// top level or inside the metadata sub-map
type RegistryFrontmatter struct {
	Version               *string `mapstructure:"version" json:"version,omitempty" jsonschema:"pattern=^\\d+\\.\\d+\\.\\d+$"`
	Author                *string `mapstructure:"author" json:"author,omitempty"`
	License               *string `mapstructure:"license" json:"license,omitempty"`
	Tags                  any     `mapstructure:"tags" json:"tags,omitempty" jsonschema:"description=List or comma separated string; at most 20 tags of 50 characters"`
	Category              *string `mapstructure:"category" json:"category,omitempty" jsonschema:"enum=development,enum=creative,enum=enterprise,enum=data,enum=devops,enum=other"`
	TrustLevel            *string `mapstructure:"trust-level" json:"trust-level,omitempty" jsonschema:"enum=community,enum=verified,enum=official,default=community"`
	Repository            *string `mapstructure:"repository" json:"repository,omitempty" jsonschema:"format=uri"`
	Homepage              *string `mapstructure:"homepage" json:"homepage,omitempty" jsonschema:"format=uri"`
	MinClientVersion      *string `mapstructure:"min-skillli-version" json:"min-skillli-version,omitempty"`
	MinClientVersionAlias *string `mapstructure:"min-client-version" json:"min-client-version,omitempty"`
	Checksum              *string `mapstructure:"checksum" json:"checksum,omitempty"`
}

type quizFrontmatter struct {
	Title        string                `mapstructure:"title" json:"title,omitempty"`
	Description  string                `mapstructure:"description" json:"description,omitempty"`
	Gate         bool                  `mapstructure:"gate" json:"gate,omitempty"`
	PassingScore *int                  `mapstructure:"passing-score" json:"passing-score,omitempty" jsonschema:"minimum=0,maximum=100,default=100"`
	Questions    []questionFrontmatter `mapstructure:"questions" json:"questions" jsonschema:"minItems=1"`
}

type questionFrontmatter struct {
	Question    string              `mapstructure:"question" json:"question"`
	Options     []optionFrontmatter `mapstructure:"options" json:"options" jsonschema:"minItems=2"`
	Explanation string              `mapstructure:"explanation" json:"explanation,omitempty"`
	OnCorrect   *branchFrontmatter  `mapstructure:"on-correct" json:"on-correct,omitempty"`
	OnIncorrect *branchFrontmatter  `mapstructure:"on-incorrect" json:"on-incorrect,omitempty"`
}

type optionFrontmatter struct {
	Label   string `mapstructure:"label" json:"label"`
	Correct bool   `mapstructure:"correct" json:"correct,omitempty"`
}

type branchFrontmatter struct {
	GotoSection   string `mapstructure:"goto-section" json:"goto-section,omitempty"`
	LoadSkill     string `mapstructure:"load-skill" json:"load-skill,omitempty"`
	LoadReference string `mapstructure:"load-reference" json:"load-reference,omitempty"`
	Message       string `mapstructure:"message" json:"message,omitempty"`
}

// resolvedString is a registry value after precedence resolution. Path is
// the frontmatter location it came from, used in validation messages.
type resolvedString struct {
	Value string
	Path  string
	Set   bool
}

type resolvedRegistry struct {
	Version          resolvedString
	Author           resolvedString
	License          resolvedString
	Category         resolvedString
	TrustLevel       resolvedString
	Repository       resolvedString
	Homepage         resolvedString
	MinClientVersion resolvedString
	Checksum         resolvedString
	Tags             any
	TagsPath         string
}

// resolveRegistryFields merges the top-level layer over the metadata
// sub-map layer. The top level always wins when a key is present in both.
func resolveRegistryFields(top, sub RegistryFrontmatter) resolvedRegistry {
	pick := func(key string, candidates ...*string) resolvedString {
		for i, c := range candidates {
			if c == nil {
				continue
			}
			path := key
			if i >= len(candidates)/2 {
				path = "metadata." + key
			}
			return resolvedString{Value: *c, Path: path, Set: true}
		}
		return resolvedString{}
	}

	r := resolvedRegistry{
		Version:          pick("version", top.Version, sub.Version),
		Author:           pick("author", top.Author, sub.Author),
		License:          pick("license", top.License, sub.License),
		Category:         pick("category", top.Category, sub.Category),
		TrustLevel:       pick("trust-level", top.TrustLevel, sub.TrustLevel),
		Repository:       pick("repository", top.Repository, sub.Repository),
		Homepage:         pick("homepage", top.Homepage, sub.Homepage),
		MinClientVersion: pick("min-skillli-version", top.MinClientVersion, top.MinClientVersionAlias, sub.MinClientVersion, sub.MinClientVersionAlias),
		Checksum:         pick("checksum", top.Checksum, sub.Checksum),
	}

	switch {
	case top.Tags != nil:
		r.Tags, r.TagsPath = top.Tags, "tags"
	case sub.Tags != nil:
		r.Tags, r.TagsPath = sub.Tags, "metadata.tags"
	}

	return r
}

// Validate normalizes raw frontmatter into canonical metadata. Every
// violated constraint is reported in the returned ValidationError.
func Validate(raw map[string]any) (*skilltypes.SkillMetadata, error) {
	var errs *multierror.Error

	var fm frontmatter
	failed := map[string]bool{}
	if err := decode(normalizeYAML(raw), &fm); err != nil {
		errs = appendDecodeErrors(errs, err, failed)
	}

	metadata, subLayer, err := decodeMetadataMap(fm.Metadata)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	reg := resolveRegistryFields(fm.RegistryFrontmatter, subLayer)
	meta := &skilltypes.SkillMetadata{
		Metadata:               metadata,
		DisableModelInvocation: boolOr(fm.DisableModelInvocation, false),
		UserInvocable:          boolOr(fm.UserInvocable, true),
		ArgumentHint:           stringOr(fm.ArgumentHint),
		Model:                  stringOr(fm.Model),
		Context:                stringOr(fm.Context),
		Agent:                  stringOr(fm.Agent),
		Hooks:                  fm.Hooks,
		Version:                reg.Version.Value,
		Author:                 reg.Author.Value,
		License:                reg.License.Value,
		Repository:             reg.Repository.Value,
		Homepage:               reg.Homepage.Value,
		MinClientVersion:       reg.MinClientVersion.Value,
		Checksum:               reg.Checksum.Value,
		Category:               skilltypes.Category(reg.Category.Value),
		TrustLevel:             skilltypes.TrustCommunity,
	}
	if len(fm.Extra) > 0 {
		meta.Extra = fm.Extra
	}

	errs = validateIdentity(errs, fm, failed, meta)
	errs = validateRegistry(errs, reg, meta)

	if compat, err := normalizeStringList(fm.Compatibility, "compatibility", false); err != nil {
		errs = multierror.Append(errs, err)
	} else {
		for i, c := range compat {
			if utf8.RuneCountInString(c) > maxCompatibilityLen {
				errs = multierror.Append(errs, fieldError(fmt.Sprintf("compatibility[%d]", i), "must be at most %d characters", maxCompatibilityLen))
			}
		}
		meta.Compatibility = compat
	}

	if tools, err := normalizeStringList(fm.AllowedTools, "allowed-tools", true); err != nil {
		errs = multierror.Append(errs, err)
	} else {
		meta.AllowedTools = tools
	}

	quizzes, quizErrs := convertQuizzes(fm.Quiz)
	for _, e := range quizErrs {
		errs = multierror.Append(errs, e)
	}
	meta.Quizzes = quizzes

	if errs.ErrorOrNil() != nil {
		return nil, skilltypes.NewValidationError("invalid skill metadata", errs)
	}
	return meta, nil
}

// ValidName reports whether name satisfies the skill name grammar
func ValidName(name string) bool {
	return len(name) >= 1 && len(name) <= maxNameLen && namePattern.MatchString(name)
}

// validateIdentity checks name and description. Fields that already failed
// to decode are not reported again as missing.
func validateIdentity(errs *multierror.Error, fm frontmatter, failed map[string]bool, meta *skilltypes.SkillMetadata) *multierror.Error {
	switch {
	case failed["name"]:
	case fm.Name == nil || *fm.Name == "":
		errs = multierror.Append(errs, fieldError("name", "required"))
	case len(*fm.Name) > maxNameLen:
		errs = multierror.Append(errs, fieldError("name", "must be at most %d characters", maxNameLen))
	case !namePattern.MatchString(*fm.Name):
		errs = multierror.Append(errs, fieldError("name", "must be lowercase alphanumeric with single hyphens, no leading, trailing or consecutive hyphens"))
	default:
		meta.Name = *fm.Name
	}

	switch {
	case failed["description"]:
	case fm.Description == nil || strings.TrimSpace(*fm.Description) == "":
		errs = multierror.Append(errs, fieldError("description", "required"))
	case utf8.RuneCountInString(*fm.Description) > maxDescriptionLen:
		errs = multierror.Append(errs, fieldError("description", "must be at most %d characters", maxDescriptionLen))
	default:
		meta.Description = *fm.Description
	}

	return errs
}

func validateRegistry(errs *multierror.Error, reg resolvedRegistry, meta *skilltypes.SkillMetadata) *multierror.Error {
	if reg.Version.Set && !semverPattern.MatchString(reg.Version.Value) {
		errs = multierror.Append(errs, fieldError(reg.Version.Path, "must be valid semver (major.minor.patch)"))
	}

	if reg.Category.Set && !meta.Category.Valid() {
		errs = multierror.Append(errs, fieldError(reg.Category.Path, "must be one of %s", joinEnum(skilltypes.Categories)))
	}

	if reg.TrustLevel.Set {
		level := skilltypes.TrustLevel(reg.TrustLevel.Value)
		if level.Valid() {
			meta.TrustLevel = level
		} else {
			errs = multierror.Append(errs, fieldError(reg.TrustLevel.Path, "must be one of %s", joinEnum(skilltypes.TrustLevels)))
		}
	}

	for _, u := range []resolvedString{reg.Repository, reg.Homepage} {
		if u.Set && !validURL(u.Value) {
			errs = multierror.Append(errs, fieldError(u.Path, "must be a valid URL"))
		}
	}

	if reg.Tags != nil {
		tags, err := NormalizeTags(reg.Tags)
		if err != nil {
			errs = multierror.Append(errs, fieldError(reg.TagsPath, "%s", err.Error()))
		} else {
			if len(tags) > maxTags {
				errs = multierror.Append(errs, fieldError(reg.TagsPath, "must have at most %d tags", maxTags))
			}
			for i, tag := range tags {
				if utf8.RuneCountInString(tag) > maxTagLen {
					errs = multierror.Append(errs, fieldError(fmt.Sprintf("%s[%d]", reg.TagsPath, i), "must be at most %d characters", maxTagLen))
				}
			}
			meta.Tags = tags
		}
	}

	return errs
}

// NormalizeTags accepts a list of strings or a comma separated string and
// returns the trimmed, non-empty tags in their original order
func NormalizeTags(value any) ([]string, error) {
	var parts []string
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		parts = strings.Split(v, ",")
	case []string:
		parts = v
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errors.Errorf("item %d must be a string", i)
			}
			parts = append(parts, s)
		}
	default:
		return nil, errors.New("must be a list of strings or a comma separated string")
	}

	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags, nil
}

// normalizeStringList accepts a string or a list of strings. When
// splitFields is set a single string is split on whitespace.
func normalizeStringList(value any, path string, splitFields bool) ([]string, error) {
	var items []string
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		if splitFields {
			items = strings.Fields(v)
		} else {
			items = []string{v}
		}
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fieldError(fmt.Sprintf("%s[%d]", path, i), "must be a string")
			}
			items = append(items, s)
		}
	default:
		return nil, fieldError(path, "must be a string or a list of strings")
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// decodeMetadataMap stringifies the open metadata map and extracts the
// registry layer from it
func decodeMetadataMap(value any) (map[string]string, RegistryFrontmatter, error) {
	var sub RegistryFrontmatter
	if value == nil {
		return nil, sub, nil
	}

	raw, ok := value.(map[string]any)
	if !ok {
		return nil, sub, fieldError("metadata", "must be a map of strings")
	}

	out := make(map[string]string, len(raw))
	for key, v := range raw {
		switch s := v.(type) {
		case nil:
			out[key] = ""
		case string:
			out[key] = s
		case bool:
			out[key] = strconv.FormatBool(s)
		case int:
			out[key] = strconv.Itoa(s)
		case int64:
			out[key] = strconv.FormatInt(s, 10)
		case uint64:
			out[key] = strconv.FormatUint(s, 10)
		case float64:
			out[key] = strconv.FormatFloat(s, 'f', -1, 64)
		default:
			return nil, sub, fieldError("metadata."+key, "must be a string")
		}
	}

	draft := make(map[string]any, len(out))
	for k, v := range out {
		draft[k] = v
	}
	if err := decode(draft, &sub); err != nil {
		return nil, sub, errors.Wrap(err, "metadata")
	}
	return out, sub, nil
}

func convertQuizzes(raw []quizFrontmatter) ([]skilltypes.Quiz, []error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var errs []error
	quizzes := make([]skilltypes.Quiz, 0, len(raw))
	for i, q := range raw {
		path := fmt.Sprintf("quiz[%d]", i)
		quiz := skilltypes.Quiz{
			Title:        q.Title,
			Description:  q.Description,
			Gate:         q.Gate,
			PassingScore: defaultPassingScore,
		}
		if q.PassingScore != nil {
			if *q.PassingScore < 0 || *q.PassingScore > 100 {
				errs = append(errs, fieldError(path+".passing-score", "must be between 0 and 100"))
			}
			quiz.PassingScore = *q.PassingScore
		}
		if len(q.Questions) == 0 {
			errs = append(errs, fieldError(path+".questions", "must contain at least one question"))
		}

		for j, question := range q.Questions {
			qpath := fmt.Sprintf("%s.questions[%d]", path, j)
			if strings.TrimSpace(question.Question) == "" {
				errs = append(errs, fieldError(qpath+".question", "required"))
			}
			if len(question.Options) < 2 {
				errs = append(errs, fieldError(qpath+".options", "must have at least 2 options"))
			}

			converted := skilltypes.QuizQuestion{
				Question:    question.Question,
				Explanation: question.Explanation,
				OnCorrect:   convertBranch(question.OnCorrect),
				OnIncorrect: convertBranch(question.OnIncorrect),
			}
			for k, opt := range question.Options {
				if strings.TrimSpace(opt.Label) == "" {
					errs = append(errs, fieldError(fmt.Sprintf("%s.options[%d].label", qpath, k), "required"))
				}
				converted.Options = append(converted.Options, skilltypes.QuizOption{Label: opt.Label, Correct: opt.Correct})
			}

			for name, branch := range map[string]*skilltypes.QuizBranch{"on-correct": converted.OnCorrect, "on-incorrect": converted.OnIncorrect} {
				if branch != nil && branch.LoadSkill != "" && !ValidName(branch.LoadSkill) {
					errs = append(errs, fieldError(fmt.Sprintf("%s.%s.load-skill", qpath, name), "must be a valid skill name"))
				}
			}

			quiz.Questions = append(quiz.Questions, converted)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, errs
}

func convertBranch(b *branchFrontmatter) *skilltypes.QuizBranch {
	if b == nil {
		return nil
	}
	return &skilltypes.QuizBranch{
		GotoSection:   strings.TrimPrefix(b.GotoSection, "#"),
		LoadSkill:     b.LoadSkill,
		LoadReference: b.LoadReference,
		Message:       b.Message,
	}
}

func decode(input any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  result,
		TagName: "mapstructure",
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	return decoder.Decode(input)
}

// appendDecodeErrors rewrites mapstructure messages into "<path>: <reason>"
// and records each reported path in failed
func appendDecodeErrors(errs *multierror.Error, err error, failed map[string]bool) *multierror.Error {
	var merr *mapstructure.Error
	if !errors.As(err, &merr) {
		return multierror.Append(errs, err)
	}
	for _, msg := range merr.Errors {
		if m := decodeErrorPattern.FindStringSubmatch(msg); m != nil {
			failed[m[1]] = true
			errs = multierror.Append(errs, fieldError(m[1], "%s", m[2]))
			continue
		}
		errs = multierror.Append(errs, errors.New(msg))
	}
	return errs
}

// normalizeYAML converts map[interface{}]interface{} values produced by
// YAML v2 decoders into map[string]any so they can round-trip as JSON
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func fieldError(path, format string, args ...any) error {
	return errors.Errorf("%s: %s", path, fmt.Sprintf(format, args...))
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
