package trawler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jingkaihe/skillli/pkg/github"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepos struct {
	repos []github.Repository
	err   error
}

func (f *fakeRepos) SearchSkillRepositories(_ context.Context, _ string, _ int) ([]github.Repository, error) {
	return f.repos, f.err
}

type funcSearcher struct {
	source skilltypes.Source
	fn     func(ctx context.Context) ([]skilltypes.TrawlResult, error)
	calls  atomic.Int32
}

func (f *funcSearcher) Source() skilltypes.Source { return f.source }

func (f *funcSearcher) Search(ctx context.Context, _ string, _ Options) ([]skilltypes.TrawlResult, error) {
	f.calls.Add(1)
	return f.fn(ctx)
}

func sampleIndex() *skilltypes.LocalIndex {
	index := skilltypes.NewLocalIndex()
	index.Skills["pdf-tools"] = skilltypes.RegistryEntry{
		Name:        "pdf-tools",
		Description: "Merge and split PDF documents",
		Tags:        []string{"pdf"},
		Repository:  "https://github.com/skillli/pdf-tools",
	}
	index.Skills["video-cutter"] = skilltypes.RegistryEntry{
		Name:        "video-cutter",
		Description: "Trim videos",
	}
	index.Skills["doc-writer"] = skilltypes.RegistryEntry{
		Name:        "doc-writer",
		Description: "Write documents",
	}
	return index
}

func TestRegistrySource(t *testing.T) {
	results, err := NewRegistrySource(sampleIndex()).Search(context.Background(), "pdf documents", Options{})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "doc-writer", results[0].Skill.Name)
	assert.Equal(t, 0.5, results[0].Confidence)
	assert.Equal(t, "skillli://registry/doc-writer", results[0].URL)

	assert.Equal(t, "pdf-tools", results[1].Skill.Name)
	assert.Equal(t, 1.0, results[1].Confidence)
	assert.Equal(t, "https://github.com/skillli/pdf-tools", results[1].URL)
}

func TestGitHubSource(t *testing.T) {
	src := NewGitHubSource(&fakeRepos{repos: []github.Repository{
		{Name: "few", Owner: "a", HTMLURL: "https://github.com/a/few", Stars: 3},
		{Name: "some", Owner: "b", HTMLURL: "https://github.com/b/some", Stars: 50, Topics: []string{"pdf"}},
		{Name: "many", Owner: "c", HTMLURL: "https://github.com/c/many", Stars: 5000},
	}})

	results, err := src.Search(context.Background(), "pdf", Options{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.InDelta(t, 0.3, results[0].Confidence, 1e-9)
	assert.InDelta(t, 0.5, results[1].Confidence, 1e-9)
	assert.InDelta(t, 0.7, results[2].Confidence, 1e-9)
	assert.Equal(t, "b", results[1].Skill.Author)
	assert.Equal(t, []string{"pdf"}, results[1].Skill.Tags)
	assert.Equal(t, "https://github.com/c/many", results[2].URL)
}

func TestNPMSource(t *testing.T) {
	var gotText, gotSize string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/-/v1/search", r.URL.Path)
		gotText = r.URL.Query().Get("text")
		gotSize = r.URL.Query().Get("size")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"objects": []map[string]any{
				{
					"package": map[string]any{
						"name":        "claude-pdf-skill",
						"description": "PDF skill",
						"version":     "1.0.0",
						"keywords":    []string{"pdf"},
						"links":       map[string]any{"npm": "https://www.npmjs.com/package/claude-pdf-skill", "repository": "https://github.com/x/y"},
					},
					"score": map[string]any{"final": 0.9},
				},
				{
					"package": map[string]any{"name": "top-skill", "links": map[string]any{"npm": "https://www.npmjs.com/package/top-skill"}},
					"score":   map[string]any{"final": 1.5},
				},
			},
		})
	}))
	defer srv.Close()

	results, err := NewNPMSource(srv.URL, srv.Client()).Search(context.Background(), "pdf", Options{})
	require.NoError(t, err)

	assert.Equal(t, "pdf skill agent claude", gotText)
	assert.Equal(t, "10", gotSize)

	require.Len(t, results, 2)
	assert.InDelta(t, 0.63, results[0].Confidence, 1e-9)
	assert.Equal(t, "1.0.0", results[0].Skill.Version)
	assert.Equal(t, "https://github.com/x/y", results[0].Skill.Repository)
	assert.Equal(t, "https://www.npmjs.com/package/claude-pdf-skill", results[0].URL)
	assert.Equal(t, 0.85, results[1].Confidence)
}

func TestNPMSourceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewNPMSource(srv.URL, srv.Client()).Search(context.Background(), "pdf", Options{})
	assert.ErrorContains(t, err, "status 502")
}

func TestWebSource(t *testing.T) {
	index := skilltypes.NewLocalIndex()
	index.Skills["pdf-tools"] = skilltypes.RegistryEntry{Name: "pdf-tools", Description: "PDF helpers"}
	index.Skills["unrelated"] = skilltypes.RegistryEntry{Name: "unrelated", Description: "Nothing"}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != WellKnownIndexPath {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(index)
	}))
	defer srv.Close()

	src := NewWebSource(srv.Client())

	t.Run("skips unreachable domains", func(t *testing.T) {
		results, err := src.Search(context.Background(), "pdf helpers", Options{Domains: []string{srv.URL + "/missing", srv.URL}})
		require.NoError(t, err)

		require.Len(t, results, 1)
		assert.Equal(t, skilltypes.SourceWeb, results[0].Source)
		assert.InDelta(t, 0.6, results[0].Confidence, 1e-9)
		assert.Equal(t, srv.URL+"/.well-known/skills/pdf-tools", results[0].URL)
	})

	t.Run("fails when every domain fails", func(t *testing.T) {
		_, err := src.Search(context.Background(), "pdf", Options{Domains: []string{srv.URL + "/missing", ""}})
		assert.Error(t, err)
	})
}

func TestNormalizeDomain(t *testing.T) {
	base, err := normalizeDomain("skills.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://skills.example.com", base)

	base, err = normalizeDomain("http://localhost:8080/team/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/team", base)

	_, err = normalizeDomain("  ")
	assert.Error(t, err)
}

func TestTrawl(t *testing.T) {
	npm := &funcSearcher{source: skilltypes.SourceNPM, fn: func(context.Context) ([]skilltypes.TrawlResult, error) {
		return []skilltypes.TrawlResult{result(skilltypes.SourceNPM, "npm-pdf", 0.5)}, nil
	}}

	tr, err := New(
		WithSearcher(NewRegistrySource(sampleIndex())),
		WithSearcher(NewGitHubSource(&fakeRepos{repos: []github.Repository{
			{Name: "pdf-tools", Owner: "someone", HTMLURL: "https://github.com/someone/pdf-tools", Stars: 500},
			{Name: "pdf-extra", Owner: "other", HTMLURL: "https://github.com/other/pdf-extra", Stars: 1},
		}})),
		WithSearcher(npm),
	)
	require.NoError(t, err)

	results := tr.Trawl(context.Background(), "pdf", Options{})

	assert.Zero(t, npm.calls.Load(), "npm is not a default source")
	require.Len(t, results, 2)
	assert.Equal(t, "pdf-tools", results[0].Skill.Name)
	assert.Equal(t, skilltypes.SourceRegistry, results[0].Source)
	assert.Equal(t, 1.0, results[0].Confidence)
	assert.Equal(t, "pdf-extra", results[1].Skill.Name)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Confidence, results[i].Confidence)
	}
}

func TestTrawlIsolatesFailures(t *testing.T) {
	failing := &funcSearcher{source: skilltypes.SourceGitHub, fn: func(context.Context) ([]skilltypes.TrawlResult, error) {
		return nil, errors.New("rate limited")
	}}
	panicking := &funcSearcher{source: skilltypes.SourceNPM, fn: func(context.Context) ([]skilltypes.TrawlResult, error) {
		panic("boom")
	}}

	tr, err := New(WithSearcher(NewRegistrySource(sampleIndex())), WithSearcher(failing), WithSearcher(panicking))
	require.NoError(t, err)

	results := tr.Trawl(context.Background(), "video", Options{Sources: []skilltypes.Source{
		skilltypes.SourceRegistry, skilltypes.SourceGitHub, skilltypes.SourceNPM,
	}})

	require.Len(t, results, 1)
	assert.Equal(t, "video-cutter", results[0].Skill.Name)
	assert.EqualValues(t, 1, failing.calls.Load())
	assert.EqualValues(t, 1, panicking.calls.Load())
}

func TestTrawlSourceTimeout(t *testing.T) {
	slow := &funcSearcher{source: skilltypes.SourceGitHub, fn: func(ctx context.Context) ([]skilltypes.TrawlResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	tr, err := New(WithSearcher(NewRegistrySource(sampleIndex())), WithSearcher(slow), WithSourceTimeout(20*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	results := tr.Trawl(context.Background(), "pdf", Options{})
	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, results, 1)
	assert.Equal(t, "pdf-tools", results[0].Skill.Name)
}

func TestTrawlWebOnlyWithDomains(t *testing.T) {
	web := &funcSearcher{source: skilltypes.SourceWeb, fn: func(context.Context) ([]skilltypes.TrawlResult, error) {
		return []skilltypes.TrawlResult{result(skilltypes.SourceWeb, "web-skill", 0.4)}, nil
	}}
	tr, err := New(WithSearcher(web))
	require.NoError(t, err)

	assert.Empty(t, tr.Trawl(context.Background(), "web", Options{Sources: []skilltypes.Source{skilltypes.SourceWeb}}))
	assert.Zero(t, web.calls.Load())

	results := tr.Trawl(context.Background(), "web", Options{Domains: []string{"skills.example.com"}})
	require.Len(t, results, 1)
	assert.EqualValues(t, 1, web.calls.Load())
}

func TestTrawlMaxResults(t *testing.T) {
	many := &funcSearcher{source: skilltypes.SourceRegistry, fn: func(context.Context) ([]skilltypes.TrawlResult, error) {
		var out []skilltypes.TrawlResult
		for _, n := range strings.Split("a b c d e f g h i j k l", " ") {
			out = append(out, result(skilltypes.SourceRegistry, "skill-"+n, 0.1))
		}
		return out, nil
	}}
	tr, err := New(WithSearcher(many))
	require.NoError(t, err)

	assert.Len(t, tr.Trawl(context.Background(), "x", Options{}), DefaultMaxResults)
	assert.Len(t, tr.Trawl(context.Background(), "x", Options{MaxResults: 3}), 3)
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	_, err := New(WithSourceTimeout(-time.Second))
	assert.Error(t, err)

	_, err = New(WithSearcher(nil))
	assert.Error(t, err)
}
