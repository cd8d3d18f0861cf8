// Package search ranks entries of the local skill index against a query
// using deterministic lexical scoring.
package search

import (
	"math"
	"regexp"
	"sort"
	"strings"

	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
)

// DefaultLimit is the page size used when Options.Limit is not positive
const DefaultLimit = 20

const (
	nameWeight        = 5
	exactNameBonus    = 10
	descriptionWeight = 2
	tagTokenBonus     = 4
	filterTagBonus    = 3
	categoryBonus     = 2
	officialBoost     = 3
	verifiedBoost     = 1.5
	ratingWeight      = 0.5
	downloadsWeight   = 0.5
)

var tokenSeparators = regexp.MustCompile(`[\s\-_,./]+`)

// Options controls a search. Category, TrustLevel and MinRating are hard
// filters; Tags only boost entries that carry them.
type Options struct {
	Query      string
	Tags       []string
	Category   skilltypes.Category
	TrustLevel skilltypes.TrustLevel
	MinRating  float64
	Offset     int
	Limit      int
}

// Tokenize lowercases text and splits it on whitespace, hyphens,
// underscores, commas, slashes and periods. Tokens of one character are
// dropped.
func Tokenize(text string) []string {
	var tokens []string
	for _, t := range tokenSeparators.Split(strings.ToLower(text), -1) {
		if len(t) > 1 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Search scores every entry of index that survives the filters and returns
// the requested page ordered by relevance. Ties are ordered by name.
func Search(index *skilltypes.LocalIndex, opts Options) []skilltypes.SearchResult {
	if index == nil {
		return nil
	}

	tokens := Tokenize(opts.Query)

	names := make([]string, 0, len(index.Skills))
	for name := range index.Skills {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []skilltypes.SearchResult
	for _, name := range names {
		entry := index.Skills[name]
		if !passesFilters(entry, opts) {
			continue
		}

		score, matchedOn := scoreEntry(entry, tokens, opts)
		if score > 0 {
			results = append(results, skilltypes.SearchResult{
				Skill:          entry,
				RelevanceScore: score,
				MatchedOn:      matchedOn,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	return paginate(results, opts.Offset, opts.Limit)
}

// ByTags searches for entries carrying any of tags
func ByTags(index *skilltypes.LocalIndex, tags []string) []skilltypes.SearchResult {
	return Search(index, Options{Query: strings.Join(tags, " "), Tags: tags})
}

// ByCategory lists entries of a category
func ByCategory(index *skilltypes.LocalIndex, category skilltypes.Category) []skilltypes.SearchResult {
	return Search(index, Options{Category: category})
}

func passesFilters(entry skilltypes.RegistryEntry, opts Options) bool {
	if opts.Category != "" && entry.Category != opts.Category {
		return false
	}
	if opts.TrustLevel != "" && entry.TrustLevel != opts.TrustLevel {
		return false
	}
	if opts.MinRating > 0 && entry.Rating.Average < opts.MinRating {
		return false
	}
	return true
}

func scoreEntry(entry skilltypes.RegistryEntry, tokens []string, opts Options) (float64, []skilltypes.MatchField) {
	var score float64
	var matchedOn []skilltypes.MatchField
	matchedTags := false

	if n := containedTokens(tokens, entry.Name); n > 0 {
		score += float64(n * nameWeight)
		matchedOn = append(matchedOn, skilltypes.MatchName)
	}

	if query := strings.ToLower(strings.TrimSpace(opts.Query)); query != "" && query == strings.ToLower(entry.Name) {
		score += exactNameBonus
	}

	if n := containedTokens(tokens, entry.Description); n > 0 {
		score += float64(n * descriptionWeight)
		matchedOn = append(matchedOn, skilltypes.MatchDescription)
	}

	for _, token := range tokens {
		if hasTag(entry.Tags, token) {
			score += tagTokenBonus
			matchedTags = true
		}
	}

	for _, tag := range opts.Tags {
		if hasTag(entry.Tags, tag) {
			score += filterTagBonus
			matchedTags = true
		}
	}

	if matchedTags {
		matchedOn = append(matchedOn, skilltypes.MatchTags)
	}

	if opts.Category != "" && entry.Category == opts.Category {
		score += categoryBonus
		matchedOn = append(matchedOn, skilltypes.MatchCategory)
	}

	if len(matchedOn) > 0 {
		switch entry.TrustLevel {
		case skilltypes.TrustOfficial:
			score += officialBoost
		case skilltypes.TrustVerified:
			score += verifiedBoost
		}
		score += entry.Rating.Average * ratingWeight
		if entry.Downloads > 0 {
			score += math.Log10(float64(entry.Downloads)) * downloadsWeight
		}
	}

	return score, matchedOn
}

// containedTokens counts the tokens that occur as substrings of text
func containedTokens(tokens []string, text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			n++
		}
	}
	return n
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

func paginate(results []skilltypes.SearchResult, offset, limit int) []skilltypes.SearchResult {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset >= len(results) {
		return []skilltypes.SearchResult{}
	}
	end := offset + min(limit, len(results)-offset)
	return results[offset:end]
}
