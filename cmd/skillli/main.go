package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/jingkaihe/skillli/pkg/logger"
	"github.com/jingkaihe/skillli/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Environment variables, e.g. SKILLLI_GITHUB_TOKEN for github.token
	viper.SetEnvPrefix("SKILLLI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// ~/.skillli/config.yaml, overridden by ./skillli.yaml
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillli")
	_ = viper.ReadInConfig()

	viper.SetConfigFile("skillli.yaml")
	_ = viper.MergeInConfig()
}

func setDefaults() {
	viper.SetDefault("registry.retries", 2)
	viper.SetDefault("trawl.sources", []string{"registry", "github"})
	viper.SetDefault("trawl.max_results", 10)
	viper.SetDefault("trawl.source_timeout", 15*time.Second)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.sampler", "ratio")
	viper.SetDefault("tracing.ratio", 1.0)
}

var shutdownTracing func(context.Context) error

var rootCmd = &cobra.Command{
	Use:   "skillli",
	Short: "Find, vet and install agent skills",
	Long: `skillli is a package manager for agent skills: SKILL.md bundles with YAML
frontmatter. It searches a local copy of the skill registry, discovers skills on
GitHub, npm and well-known web indexes, checks bundles against static safeguards,
and installs them into ~/.skillli/skills.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Configure(viper.GetString("log_level"), viper.GetString("log_format")); err != nil {
			return err
		}
		quiet, _ := cmd.Flags().GetBool("quiet")
		presenter.SetQuiet(quiet)

		shutdown, err := initTracing(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "failed to initialize tracing")
		}
		shutdownTracing = shutdown
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		if shutdownTracing == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.G(cmd.Context()).WithError(err).Warn("failed to flush traces")
		}
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func main() {
	rootCmd.PersistentFlags().String("home", "", "skillli home directory (default ~/.skillli)")
	rootCmd.PersistentFlags().String("registry-url", "", "URL of the registry index")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text or json)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress informational output")
	rootCmd.PersistentFlags().Bool("json", false, "Print results as JSON")

	viper.BindPFlag("home", rootCmd.PersistentFlags().Lookup("home"))
	viper.BindPFlag("registry_url", rootCmd.PersistentFlags().Lookup("registry-url"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(withTracing(searchCmd))
	rootCmd.AddCommand(withTracing(trawlCmd))
	rootCmd.AddCommand(withTracing(validateCmd))
	rootCmd.AddCommand(withTracing(infoCmd))
	rootCmd.AddCommand(withTracing(installCmd))
	rootCmd.AddCommand(withTracing(uninstallCmd))
	rootCmd.AddCommand(withTracing(listCmd))
	rootCmd.AddCommand(withTracing(rateCmd))
	rootCmd.AddCommand(withTracing(updateCmd))
	rootCmd.AddCommand(withTracing(publishCmd))
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	ctx := logger.WithComponent(context.Background(), "cli")
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		presenter.Error(err, "")
		os.Exit(1)
	}
}

// jsonOutput reports whether the --json flag was set
func jsonOutput(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("json")
	return asJSON
}
