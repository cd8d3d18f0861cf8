package trawler

import (
	"sort"
	"strings"

	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
)

const (
	registryBonus  = 0.2
	githubBonus    = 0.05
	nameTokenBonus = 0.15
	tagTokenBonus  = 0.10
	maxConfidence  = 1.0
)

// queryTokens splits a trawl query on whitespace
func queryTokens(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// dedupKey groups results by lowercase name, or by URL for nameless hits
func dedupKey(r skilltypes.TrawlResult) string {
	if r.Skill.Name != "" {
		return strings.ToLower(r.Skill.Name)
	}
	return r.URL
}

// Deduplicate keeps one result per key: the one with the highest
// confidence, the earliest on ties. Output follows first-seen key order.
func Deduplicate(results []skilltypes.TrawlResult) []skilltypes.TrawlResult {
	positions := make(map[string]int, len(results))
	out := make([]skilltypes.TrawlResult, 0, len(results))

	for _, r := range results {
		key := dedupKey(r)
		if i, ok := positions[key]; ok {
			if r.Confidence > out[i].Confidence {
				out[i] = r
			}
			continue
		}
		positions[key] = len(out)
		out = append(out, r)
	}
	return out
}

// Rank adds source and query bonuses to each confidence, clamps it to 1 and
// sorts descending. Equal confidences keep their input order.
func Rank(results []skilltypes.TrawlResult, query string) []skilltypes.TrawlResult {
	tokens := queryTokens(query)

	ranked := make([]skilltypes.TrawlResult, len(results))
	for i, r := range results {
		bonus := 0.0
		switch r.Source {
		case skilltypes.SourceRegistry:
			bonus += registryBonus
		case skilltypes.SourceGitHub:
			bonus += githubBonus
		}

		name := strings.ToLower(r.Skill.Name)
		for _, token := range tokens {
			if strings.Contains(name, token) {
				bonus += nameTokenBonus
			}
			if hasTag(r.Skill.Tags, token) {
				bonus += tagTokenBonus
			}
		}

		r.Confidence = min(r.Confidence+bonus, maxConfidence)
		ranked[i] = r
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	return ranked
}

// tokenRatio is the share of tokens found as substrings of text
func tokenRatio(tokens []string, text string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	matched := 0
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			matched++
		}
	}
	return min(float64(matched)/float64(len(tokens)), maxConfidence)
}

func entryText(e skilltypes.RegistryEntry) string {
	return e.Name + " " + e.Description + " " + strings.Join(e.Tags, " ")
}

func hasTag(tags []string, token string) bool {
	for _, t := range tags {
		if strings.ToLower(t) == token {
			return true
		}
	}
	return false
}
