package trawler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jingkaihe/skillli/pkg/github"
	"github.com/jingkaihe/skillli/pkg/logger"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/pkg/errors"
)

const (
	// DefaultNPMRegistryURL is the public npm registry
	DefaultNPMRegistryURL = "https://registry.npmjs.org"

	// WellKnownIndexPath is probed on every domain by the web source
	WellKnownIndexPath = "/.well-known/skills/index.json"

	remotePageSize     = 10
	maxResponseBytes   = 10 << 20
	npmQuerySuffix     = " skill agent claude"
	githubBaseScore    = 0.3
	githubStarsLow     = 10
	githubStarsHigh    = 100
	githubStarsBonus   = 0.2
	githubMaxScore     = 0.9
	npmScoreWeight     = 0.7
	npmMaxScore        = 0.85
	webConfidenceScale = 0.6
)

// RegistrySource scans the local index
type RegistrySource struct {
	index *skilltypes.LocalIndex
}

// NewRegistrySource creates a searcher over index
func NewRegistrySource(index *skilltypes.LocalIndex) *RegistrySource {
	return &RegistrySource{index: index}
}

// Source implements Searcher
func (s *RegistrySource) Source() skilltypes.Source { return skilltypes.SourceRegistry }

// Search returns every entry matching at least one query token. The
// confidence is the share of tokens found.
func (s *RegistrySource) Search(_ context.Context, query string, _ Options) ([]skilltypes.TrawlResult, error) {
	if s.index == nil {
		return nil, nil
	}
	return matchIndex(s.index, queryTokens(query), skilltypes.SourceRegistry, 1, func(e skilltypes.RegistryEntry) string {
		if e.Repository != "" {
			return e.Repository
		}
		return "skillli://registry/" + e.Name
	}), nil
}

// matchIndex scores the entries of index by token ratio scaled by weight,
// in name order
func matchIndex(index *skilltypes.LocalIndex, tokens []string, source skilltypes.Source, weight float64, urlFor func(skilltypes.RegistryEntry) string) []skilltypes.TrawlResult {
	var results []skilltypes.TrawlResult
	for _, name := range sortedNames(index) {
		entry := index.Skills[name]
		ratio := tokenRatio(tokens, entryText(entry))
		if ratio == 0 {
			continue
		}
		results = append(results, skilltypes.TrawlResult{
			Source:     source,
			Skill:      entry,
			Confidence: ratio * weight,
			URL:        urlFor(entry),
		})
	}
	return results
}

// RepositorySearcher finds repositories containing skills
type RepositorySearcher interface {
	SearchSkillRepositories(ctx context.Context, query string, perPage int) ([]github.Repository, error)
}

// GitHubSource searches GitHub repositories that contain a SKILL.md
type GitHubSource struct {
	client RepositorySearcher
}

// NewGitHubSource creates a searcher backed by client
func NewGitHubSource(client RepositorySearcher) *GitHubSource {
	return &GitHubSource{client: client}
}

// Source implements Searcher
func (s *GitHubSource) Source() skilltypes.Source { return skilltypes.SourceGitHub }

// Search maps repository hits to partial entries scored by popularity
func (s *GitHubSource) Search(ctx context.Context, query string, _ Options) ([]skilltypes.TrawlResult, error) {
	repos, err := s.client.SearchSkillRepositories(ctx, query, remotePageSize)
	if err != nil {
		return nil, err
	}

	results := make([]skilltypes.TrawlResult, 0, len(repos))
	for _, repo := range repos {
		results = append(results, skilltypes.TrawlResult{
			Source: skilltypes.SourceGitHub,
			Skill: skilltypes.RegistryEntry{
				Name:        repo.Name,
				Description: repo.Description,
				Author:      repo.Owner,
				Repository:  repo.HTMLURL,
				Tags:        repo.Topics,
			},
			Confidence: githubConfidence(repo.Stars),
			URL:        repo.HTMLURL,
		})
	}
	return results, nil
}

func githubConfidence(stars int) float64 {
	score := githubBaseScore
	if stars > githubStarsLow {
		score += githubStarsBonus
	}
	if stars > githubStarsHigh {
		score += githubStarsBonus
	}
	return min(score, githubMaxScore)
}

// NPMSource searches the npm registry for skill packages
type NPMSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewNPMSource creates a searcher against the registry at baseURL. Empty
// values select the public registry and http.DefaultClient.
func NewNPMSource(baseURL string, httpClient *http.Client) *NPMSource {
	if baseURL == "" {
		baseURL = DefaultNPMRegistryURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &NPMSource{baseURL: strings.TrimSuffix(baseURL, "/"), httpClient: httpClient}
}

// Source implements Searcher
func (s *NPMSource) Source() skilltypes.Source { return skilltypes.SourceNPM }

type npmSearchResponse struct {
	Objects []struct {
		Package struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Version     string   `json:"version"`
			Keywords    []string `json:"keywords"`
			Links       struct {
				Repository string `json:"repository"`
				NPM        string `json:"npm"`
			} `json:"links"`
		} `json:"package"`
		Score struct {
			Final float64 `json:"final"`
		} `json:"score"`
	} `json:"objects"`
}

// Search queries the registry's search endpoint
func (s *NPMSource) Search(ctx context.Context, query string, _ Options) ([]skilltypes.TrawlResult, error) {
	params := url.Values{}
	params.Set("text", query+npmQuerySuffix)
	params.Set("size", strconv.Itoa(remotePageSize))

	var resp npmSearchResponse
	if err := getJSON(ctx, s.httpClient, s.baseURL+"/-/v1/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	results := make([]skilltypes.TrawlResult, 0, len(resp.Objects))
	for _, obj := range resp.Objects {
		pkg := obj.Package
		results = append(results, skilltypes.TrawlResult{
			Source: skilltypes.SourceNPM,
			Skill: skilltypes.RegistryEntry{
				Name:        pkg.Name,
				Description: pkg.Description,
				Version:     pkg.Version,
				Repository:  pkg.Links.Repository,
				Tags:        pkg.Keywords,
			},
			Confidence: min(max(obj.Score.Final*npmScoreWeight, 0), npmMaxScore),
			URL:        pkg.Links.NPM,
		})
	}
	return results, nil
}

// WebSource probes domains for a well-known skill index
type WebSource struct {
	httpClient *http.Client
}

// NewWebSource creates a well-known index prober. A nil client selects
// http.DefaultClient.
func NewWebSource(httpClient *http.Client) *WebSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WebSource{httpClient: httpClient}
}

// Source implements Searcher
func (s *WebSource) Source() skilltypes.Source { return skilltypes.SourceWeb }

// Search probes opts.Domains in order. Unreachable domains are logged and
// skipped; an error is returned only when every domain failed.
func (s *WebSource) Search(ctx context.Context, query string, opts Options) ([]skilltypes.TrawlResult, error) {
	tokens := queryTokens(query)

	var results []skilltypes.TrawlResult
	var errs *multierror.Error
	succeeded := 0
	for _, domain := range opts.Domains {
		base, err := normalizeDomain(domain)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}

		var index skilltypes.LocalIndex
		if err := getJSON(ctx, s.httpClient, base+WellKnownIndexPath, &index); err != nil {
			logger.G(ctx).WithField("domain", domain).WithError(err).Debug("well-known skill index unavailable")
			errs = multierror.Append(errs, err)
			continue
		}
		succeeded++

		results = append(results, matchIndex(&index, tokens, skilltypes.SourceWeb, webConfidenceScale, func(e skilltypes.RegistryEntry) string {
			if e.Repository != "" {
				return e.Repository
			}
			return base + "/.well-known/skills/" + e.Name
		})...)
	}

	if succeeded == 0 && errs.ErrorOrNil() != nil {
		return nil, errs
	}
	return results, nil
}

// normalizeDomain turns a bare host or URL into a base URL without a
// trailing slash. Bare hosts use https.
func normalizeDomain(domain string) (string, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return "", errors.New("empty domain")
	}
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	u, err := url.Parse(domain)
	if err != nil || u.Host == "" {
		return "", errors.Errorf("invalid domain %q", domain)
	}
	return strings.TrimSuffix(u.Scheme+"://"+u.Host+u.Path, "/"), nil
}

func getJSON(ctx context.Context, client *http.Client, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request to %s failed", target)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("request to %s returned status %d", target, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode response from %s", target)
	}
	return nil
}

func sortedNames(index *skilltypes.LocalIndex) []string {
	names := make([]string, 0, len(index.Skills))
	for name := range index.Skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
