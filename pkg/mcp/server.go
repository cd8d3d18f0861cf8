// Package mcp exposes skill search, discovery, installation, rating and
// validation to coding agents as a Model Context Protocol server over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/jingkaihe/skillli/pkg/logger"
	"github.com/jingkaihe/skillli/pkg/registry"
	"github.com/jingkaihe/skillli/pkg/safeguards"
	"github.com/jingkaihe/skillli/pkg/search"
	"github.com/jingkaihe/skillli/pkg/skills"
	"github.com/jingkaihe/skillli/pkg/trawler"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/jingkaihe/skillli/pkg/version"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
)

// Resource URIs
const (
	InstalledResourceURI = "skillli://installed"
	IndexResourceURI     = "skillli://index"
)

// Store is the local state the server reads and updates
type Store interface {
	LoadIndex(ctx context.Context) (*skilltypes.LocalIndex, error)
	SaveIndex(ctx context.Context, index *skilltypes.LocalIndex) error
	InstalledSkills(ctx context.Context) ([]skilltypes.InstalledSkill, error)
	EnsureUserID(ctx context.Context) (string, error)
}

// Installer installs skills on behalf of the agent
type Installer interface {
	Install(ctx context.Context, index *skilltypes.LocalIndex, ref string) (*skilltypes.InstalledSkill, error)
	Link(skill *skilltypes.InstalledSkill) (string, error)
}

// Trawler discovers skills beyond the local index
type Trawler interface {
	Trawl(ctx context.Context, query string, opts trawler.Options) []skilltypes.TrawlResult
}

// Server bundles the MCP server with the skillli services behind its tools
type Server struct {
	mcpServer *server.MCPServer
	store     Store
	installer Installer
	trawler   Trawler
	now       func() time.Time
}

// NewServer creates the server and registers every tool and resource
func NewServer(store Store, installer Installer, tr Trawler) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer("skillli", version.Version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
		store:     store,
		installer: installer,
		trawler:   tr,
		now:       time.Now,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves requests on stdin and stdout until EOF
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("search_skills",
		mcp.WithDescription("Search the local skill index by keywords and filters"),
		mcp.WithString("query", mcp.Description("Free text query")),
		mcp.WithArray("tags", mcp.Description("Tags to require, any of"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("category", mcp.Description("Category filter")),
		mcp.WithString("trust_level", mcp.Description("Trust level filter"), mcp.Enum("community", "verified", "official")),
		mcp.WithNumber("min_rating", mcp.Description("Minimum average rating")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
	), s.handleSearch)

	s.mcpServer.AddTool(mcp.NewTool("install_skill",
		mcp.WithDescription("Install a skill by registry name, git URL, owner/repo or local path"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Skill reference")),
		mcp.WithBoolean("link", mcp.Description("Link the skill into the project's .claude/skills")),
	), s.handleInstall)

	s.mcpServer.AddTool(mcp.NewTool("get_skill_info",
		mcp.WithDescription("Show the registry entry of a skill"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Skill name")),
	), s.handleInfo)

	s.mcpServer.AddTool(mcp.NewTool("trawl_skills",
		mcp.WithDescription("Discover skills across the registry, GitHub, npm and well-known web indexes"),
		mcp.WithString("query", mcp.Required(), mcp.Description("What to look for")),
		mcp.WithArray("sources", mcp.Description("Sources to query"), mcp.Items(map[string]any{"type": "string", "enum": []string{"registry", "github", "npm", "web"}})),
		mcp.WithArray("domains", mcp.Description("Domains to probe for a well-known skill index"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of results")),
	), s.handleTrawl)

	s.mcpServer.AddTool(mcp.NewTool("rate_skill",
		mcp.WithDescription("Rate a skill from 1 to 5"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Skill name")),
		mcp.WithNumber("rating", mcp.Required(), mcp.Description("Rating between 1 and 5")),
		mcp.WithString("comment", mcp.Description("Optional comment")),
	), s.handleRate)

	s.mcpServer.AddTool(mcp.NewTool("validate_skill",
		mcp.WithDescription("Validate a skill directory and run the safeguards"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Skill directory")),
	), s.handleValidate)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(InstalledResourceURI, "Installed skills",
		mcp.WithResourceDescription("Skills installed in the local skills directory"),
		mcp.WithMIMEType("application/json"),
	), s.readInstalled)

	s.mcpServer.AddResource(mcp.NewResource(IndexResourceURI, "Skill index",
		mcp.WithResourceDescription("The locally cached registry index"),
		mcp.WithMIMEType("application/json"),
	), s.readIndex)
}

func (s *Server) readInstalled(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	installed, err := s.store.InstalledSkills(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(InstalledResourceURI, installed)
}

func (s *Server) readIndex(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	index, err := s.store.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(IndexResourceURI, index)
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)
	index, err := s.store.LoadIndex(ctx)
	if err != nil {
		return toolError(err), nil
	}

	results := search.Search(index, search.Options{
		Query:      stringArg(args, "query"),
		Tags:       stringsArg(args, "tags"),
		Category:   skilltypes.Category(stringArg(args, "category")),
		TrustLevel: skilltypes.TrustLevel(stringArg(args, "trust_level")),
		MinRating:  numberArg(args, "min_rating"),
		Limit:      int(numberArg(args, "limit")),
	})
	return jsonResult(results)
}

func (s *Server) handleInstall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)
	ref := stringArg(args, "name")
	if ref == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	index, err := s.store.LoadIndex(ctx)
	if err != nil {
		return toolError(err), nil
	}
	installed, err := s.installer.Install(ctx, index, ref)
	if err != nil {
		return toolError(err), nil
	}

	out := struct {
		*skilltypes.InstalledSkill
		Link string `json:"link,omitempty"`
	}{InstalledSkill: installed}
	if boolArg(args, "link") {
		if out.Link, err = s.installer.Link(installed); err != nil {
			return toolError(err), nil
		}
	}
	return jsonResult(out)
}

func (s *Server) handleInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := s.store.LoadIndex(ctx)
	if err != nil {
		return toolError(err), nil
	}
	entry, err := registry.GetEntry(index, stringArg(arguments(req), "name"))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(entry)
}

func (s *Server) handleTrawl(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)
	query := stringArg(args, "query")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	var sources []skilltypes.Source
	for _, src := range stringsArg(args, "sources") {
		sources = append(sources, skilltypes.Source(src))
	}
	results := s.trawler.Trawl(ctx, query, trawler.Options{
		Sources:    sources,
		Domains:    stringsArg(args, "domains"),
		MaxResults: int(numberArg(args, "max_results")),
	})
	return jsonResult(results)
}

func (s *Server) handleRate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)

	userID, err := s.store.EnsureUserID(ctx)
	if err != nil {
		return toolError(err), nil
	}
	index, err := s.store.LoadIndex(ctx)
	if err != nil {
		return toolError(err), nil
	}

	rating, err := registry.SubmitRating(index, skilltypes.RatingSubmission{
		SkillName: stringArg(args, "name"),
		Rating:    int(numberArg(args, "rating")),
		UserID:    userID,
		Comment:   stringArg(args, "comment"),
		Timestamp: s.now().UTC(),
	})
	if err != nil {
		return toolError(err), nil
	}
	if err := s.store.SaveIndex(ctx, index); err != nil {
		return toolError(err), nil
	}
	return jsonResult(rating)
}

// validation is the validate_skill payload
type validation struct {
	Valid      bool                        `json:"valid"`
	Errors     []string                    `json:"errors,omitempty"`
	Metadata   *skilltypes.SkillMetadata   `json:"metadata,omitempty"`
	Safeguards *skilltypes.SafeguardResult `json:"safeguards,omitempty"`
}

func (s *Server) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := stringArg(arguments(req), "path")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	skillFile := skillFilePath(path)

	skill, err := skills.ParseFile(skillFile)
	if err != nil {
		var verr *skilltypes.ValidationError
		if errors.As(err, &verr) {
			details := verr.Details()
			if len(details) == 0 {
				details = []string{verr.Message}
			}
			return jsonResult(validation{Valid: false, Errors: details})
		}
		return toolError(err), nil
	}

	result := safeguards.Run(skill, filepath.Dir(skillFile))
	logger.G(ctx).WithField("skill", skill.Metadata.Name).WithField("passed", result.Passed).Debug("validated skill")
	return jsonResult(validation{
		Valid:      result.Passed,
		Metadata:   &skill.Metadata,
		Safeguards: result,
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode tool result")
	}
	return mcp.NewToolResultText(string(data)), nil
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode resource")
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}, nil
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
