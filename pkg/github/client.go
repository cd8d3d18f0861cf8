// Package github searches GitHub for repositories that ship skills.
package github

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/jingkaihe/skillli/pkg/logger"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// skillPathQualifier restricts repository search to repos with a SKILL.md
const skillPathQualifier = "SKILL.md in:path"

// Client wraps the GitHub API client with skill discovery helpers
type Client struct {
	client *github.Client
}

// Repository is the subset of a repository search hit used for discovery
type Repository struct {
	FullName    string
	Owner       string
	Name        string
	Description string
	HTMLURL     string
	Stars       int
	Topics      []string
}

// NewClient creates a new GitHub client. An empty token yields an
// unauthenticated client; a non-empty baseURL points it at another API
// endpoint such as GitHub Enterprise.
func NewClient(ctx context.Context, token, baseURL string) (*Client, error) {
	log := logger.G(ctx)

	var client *github.Client
	if token == "" {
		log.Debug("no GitHub token provided - API rate limits will be restricted")
		client = github.NewClient(nil)
	} else {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(ctx, ts))
		log.Debug("GitHub client initialized with authentication")
	}

	if baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, errors.Wrapf(err, "invalid GitHub API URL %q", baseURL)
		}
		client.BaseURL = u
	}

	return &Client{client: client}, nil
}

// SearchSkillRepositories returns up to perPage repositories that contain a
// SKILL.md file and match query
func (c *Client) SearchSkillRepositories(ctx context.Context, query string, perPage int) ([]Repository, error) {
	q := strings.TrimSpace(query + " " + skillPathQualifier)
	result, _, err := c.client.Search.Repositories(ctx, q, &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search GitHub repositories")
	}

	repos := make([]Repository, 0, len(result.Repositories))
	for _, r := range result.Repositories {
		fullName := r.GetFullName()
		owner, name := splitFullName(fullName)
		repos = append(repos, Repository{
			FullName:    fullName,
			Owner:       owner,
			Name:        name,
			Description: r.GetDescription(),
			HTMLURL:     r.GetHTMLURL(),
			Stars:       r.GetStargazersCount(),
			Topics:      r.Topics,
		})
	}
	return repos, nil
}

// splitFullName splits "owner/repo" into its parts. The name is the last
// path segment; the owner is the first.
func splitFullName(fullName string) (string, string) {
	parts := strings.Split(fullName, "/")
	return parts[0], parts[len(parts)-1]
}
