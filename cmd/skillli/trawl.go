package main

import (
	"strings"

	"github.com/jingkaihe/skillli/pkg/presenter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var trawlCmd = &cobra.Command{
	Use:   "trawl <query...>",
	Short: "Discover skills across the registry, GitHub, npm and the web",
	Long: `Query several discovery sources concurrently, merge duplicates and rank the
results by confidence. Sources that fail or time out are skipped.

The web source probes /.well-known/skills/index.json on the given domains and
only runs when at least one domain is configured.

Examples:
  skillli trawl pdf merge
  skillli trawl video --source github --source npm
  skillli trawl docs --domain example.com`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore()
		if err != nil {
			return err
		}
		index, err := s.LoadIndex(ctx)
		if err != nil {
			return err
		}
		tr, err := newTrawler(ctx, index)
		if err != nil {
			return err
		}

		sources, _ := cmd.Flags().GetStringSlice("source")
		domains, _ := cmd.Flags().GetStringSlice("domain")
		maxResults, _ := cmd.Flags().GetInt("max-results")

		results := tr.Trawl(ctx, strings.Join(args, " "), trawlOptions(sources, domains, maxResults))

		if jsonOutput(cmd) {
			return presenter.Default().JSON(results)
		}
		presenter.Default().TrawlResults(results)
		return nil
	},
}

func init() {
	trawlCmd.Flags().StringSliceP("source", "s", nil, "Sources to query (registry, github, npm, web)")
	trawlCmd.Flags().StringSliceP("domain", "d", nil, "Domains to probe for a well-known skill index")
	trawlCmd.Flags().IntP("max-results", "n", 0, "Maximum number of results")
	trawlCmd.Flags().String("github-token", "", "GitHub token for repository search")
	trawlCmd.Flags().String("github-api-url", "", "GitHub API base URL")
	trawlCmd.Flags().String("npm-registry-url", "", "npm registry base URL")
	trawlCmd.Flags().Duration("source-timeout", 0, "Time limit for each source")

	viper.BindPFlag("github.token", trawlCmd.Flags().Lookup("github-token"))
	viper.BindPFlag("github.api_url", trawlCmd.Flags().Lookup("github-api-url"))
	viper.BindPFlag("npm.registry_url", trawlCmd.Flags().Lookup("npm-registry-url"))
	viper.BindPFlag("trawl.source_timeout", trawlCmd.Flags().Lookup("source-timeout"))
}
