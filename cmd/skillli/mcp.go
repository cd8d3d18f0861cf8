package main

import (
	"github.com/jingkaihe/skillli/pkg/logger"
	"github.com/jingkaihe/skillli/pkg/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve skillli to agents over the Model Context Protocol",
	Long: `Run an MCP server on stdin and stdout. It exposes the tools search_skills,
install_skill, get_skill_info, trawl_skills, rate_skill and validate_skill, and
the resources skillli://installed and skillli://index.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		s, err := openStore()
		if err != nil {
			return err
		}
		index, err := loadIndex(ctx, s)
		if err != nil {
			return err
		}
		inst, err := newInstaller(s)
		if err != nil {
			return err
		}
		tr, err := newTrawler(ctx, index)
		if err != nil {
			return err
		}

		logger.G(ctx).WithField("skills", len(index.Skills)).Info("serving MCP on stdio")
		return mcp.NewServer(s, inst, tr).ServeStdio()
	},
}
