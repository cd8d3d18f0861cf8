package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jingkaihe/skillli/pkg/store"
	"github.com/jingkaihe/skillli/pkg/trawler"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInstaller struct {
	refs   []string
	linked []string
	err    error
}

func (f *fakeInstaller) Install(_ context.Context, _ *skilltypes.LocalIndex, ref string) (*skilltypes.InstalledSkill, error) {
	f.refs = append(f.refs, ref)
	if f.err != nil {
		return nil, f.err
	}
	return &skilltypes.InstalledSkill{Name: ref, Version: "1.0.0", Path: "/skills/" + ref, Source: skilltypes.InstallFromRegistry}, nil
}

func (f *fakeInstaller) Link(skill *skilltypes.InstalledSkill) (string, error) {
	f.linked = append(f.linked, skill.Name)
	return "/project/.claude/skills/" + skill.Name, nil
}

type fakeTrawler struct {
	query string
	opts  trawler.Options
}

func (f *fakeTrawler) Trawl(_ context.Context, query string, opts trawler.Options) []skilltypes.TrawlResult {
	f.query, f.opts = query, opts
	return []skilltypes.TrawlResult{{Source: skilltypes.SourceGitHub, Skill: skilltypes.RegistryEntry{Name: "found"}, Confidence: 0.5}}
}

type harness struct {
	server    *Server
	store     *store.Store
	installer *fakeInstaller
	trawler   *fakeTrawler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "home"))
	require.NoError(t, err)

	index := skilltypes.NewLocalIndex()
	index.Skills["pdf-tools"] = skilltypes.RegistryEntry{Name: "pdf-tools", Description: "Merge PDF files", Tags: []string{"pdf"}, Category: skilltypes.CategoryData}
	index.Skills["video-cutter"] = skilltypes.RegistryEntry{Name: "video-cutter", Description: "Trim videos", Category: skilltypes.CategoryCreative}
	require.NoError(t, s.SaveIndex(context.Background(), index))

	h := &harness{store: s, installer: &fakeInstaller{}, trawler: &fakeTrawler{}}
	h.server = NewServer(s, h.installer, h.trawler)
	h.server.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return h
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func decodeResult(t *testing.T, result *mcp.CallToolResult, out any) {
	t.Helper()
	require.False(t, result.IsError, resultText(t, result))
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), out))
}

func TestSearchSkills(t *testing.T) {
	h := newHarness(t)

	result, err := h.server.handleSearch(context.Background(), call(map[string]any{"query": "pdf"}))
	require.NoError(t, err)

	var hits []skilltypes.SearchResult
	decodeResult(t, result, &hits)
	require.Len(t, hits, 1)
	assert.Equal(t, "pdf-tools", hits[0].Skill.Name)

	result, err = h.server.handleSearch(context.Background(), call(map[string]any{"category": "creative"}))
	require.NoError(t, err)
	decodeResult(t, result, &hits)
	require.Len(t, hits, 1)
	assert.Equal(t, "video-cutter", hits[0].Skill.Name)
}

func TestInstallSkill(t *testing.T) {
	h := newHarness(t)

	result, err := h.server.handleInstall(context.Background(), call(map[string]any{"name": "pdf-tools", "link": true}))
	require.NoError(t, err)

	var out map[string]any
	decodeResult(t, result, &out)
	assert.Equal(t, "pdf-tools", out["name"])
	assert.Equal(t, "/project/.claude/skills/pdf-tools", out["link"])
	assert.Equal(t, []string{"pdf-tools"}, h.installer.refs)
	assert.Equal(t, []string{"pdf-tools"}, h.installer.linked)
}

func TestInstallSkillErrors(t *testing.T) {
	h := newHarness(t)

	result, err := h.server.handleInstall(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	h.installer.err = errors.New("clone failed")
	result, err = h.server.handleInstall(context.Background(), call(map[string]any{"name": "x"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "clone failed", resultText(t, result))
}

func TestGetSkillInfo(t *testing.T) {
	h := newHarness(t)

	result, err := h.server.handleInfo(context.Background(), call(map[string]any{"name": "pdf-tools"}))
	require.NoError(t, err)
	var entry skilltypes.RegistryEntry
	decodeResult(t, result, &entry)
	assert.Equal(t, "Merge PDF files", entry.Description)

	result, err = h.server.handleInfo(context.Background(), call(map[string]any{"name": "missing"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "skill not found: missing", resultText(t, result))
}

func TestTrawlSkills(t *testing.T) {
	h := newHarness(t)

	result, err := h.server.handleTrawl(context.Background(), call(map[string]any{
		"query":       "pdf",
		"sources":     []any{"github", "npm"},
		"domains":     "a.example, b.example",
		"max_results": float64(5),
	}))
	require.NoError(t, err)

	var hits []skilltypes.TrawlResult
	decodeResult(t, result, &hits)
	require.Len(t, hits, 1)

	assert.Equal(t, "pdf", h.trawler.query)
	assert.Equal(t, trawler.Options{
		Sources:    []skilltypes.Source{skilltypes.SourceGitHub, skilltypes.SourceNPM},
		Domains:    []string{"a.example", "b.example"},
		MaxResults: 5,
	}, h.trawler.opts)

	result, err = h.server.handleTrawl(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestRateSkill(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result, err := h.server.handleRate(ctx, call(map[string]any{"name": "pdf-tools", "rating": float64(4)}))
	require.NoError(t, err)
	var rating skilltypes.RatingInfo
	decodeResult(t, result, &rating)
	assert.Equal(t, uint64(1), rating.Count)
	assert.Equal(t, 4.0, rating.Average)

	index, err := h.store.LoadIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), index.Skills["pdf-tools"].Rating.Count)

	result, err = h.server.handleRate(ctx, call(map[string]any{"name": "pdf-tools", "rating": float64(9)}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestValidateSkill(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	good := filepath.Join(t.TempDir(), "good")
	require.NoError(t, os.MkdirAll(good, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(good, "SKILL.md"), []byte("---\nname: good\ndescription: Fine\n---\nBody\n"), 0o644))

	result, err := h.server.handleValidate(ctx, call(map[string]any{"path": good}))
	require.NoError(t, err)
	var out validation
	decodeResult(t, result, &out)
	assert.True(t, out.Valid)
	assert.Equal(t, "good", out.Metadata.Name)
	require.NotNil(t, out.Safeguards)
	assert.NotEmpty(t, out.Safeguards.Checks)

	bad := filepath.Join(t.TempDir(), "bad")
	require.NoError(t, os.MkdirAll(bad, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, "SKILL.md"), []byte("---\ndescription: Missing name\n---\nBody\n"), 0o644))

	result, err = h.server.handleValidate(ctx, call(map[string]any{"path": filepath.Join(bad, "SKILL.md")}))
	require.NoError(t, err)
	out = validation{}
	decodeResult(t, result, &out)
	assert.False(t, out.Valid)
	assert.Contains(t, out.Errors, "name: required")
}

func TestResources(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.MarkInstalled(ctx, skilltypes.InstalledSkill{Name: "pdf-tools", Version: "1.0.0"}))

	contents, err := h.server.readInstalled(ctx, mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, InstalledResourceURI, text.URI)
	assert.Equal(t, "application/json", text.MIMEType)
	assert.Contains(t, text.Text, `"name": "pdf-tools"`)

	contents, err = h.server.readIndex(ctx, mcp.ReadResourceRequest{})
	require.NoError(t, err)
	text, ok = contents[0].(mcp.TextResourceContents)
	require.True(t, ok)

	var index skilltypes.LocalIndex
	require.NoError(t, json.Unmarshal([]byte(text.Text), &index))
	assert.Len(t, index.Skills, 2)
}

func TestArgumentHelpers(t *testing.T) {
	args := map[string]any{"n": "3.5", "m": float64(2), "list": []string{" a ", ""}, "flag": true}
	assert.Equal(t, 3.5, numberArg(args, "n"))
	assert.Equal(t, 2.0, numberArg(args, "m"))
	assert.Zero(t, numberArg(args, "missing"))
	assert.Equal(t, []string{"a"}, stringsArg(args, "list"))
	assert.True(t, boolArg(args, "flag"))
	assert.Empty(t, stringArg(args, "flag"))
}
