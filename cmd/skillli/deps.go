package main

import (
	"context"
	"net/http"

	"github.com/jingkaihe/skillli/pkg/github"
	"github.com/jingkaihe/skillli/pkg/installer"
	"github.com/jingkaihe/skillli/pkg/logger"
	"github.com/jingkaihe/skillli/pkg/registry"
	"github.com/jingkaihe/skillli/pkg/store"
	"github.com/jingkaihe/skillli/pkg/trawler"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/jingkaihe/skillli/pkg/version"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// openStore opens the skillli home, ~/.skillli unless configured
func openStore() (*store.Store, error) {
	return store.New(viper.GetString("home"))
}

// registryURL prefers the configured URL over the one persisted in the
// local config
func registryURL(ctx context.Context, s *store.Store) string {
	if u := viper.GetString("registry_url"); u != "" {
		return u
	}
	cfg, err := s.LoadConfig(ctx)
	if err != nil || cfg.RegistryURL == "" {
		return store.DefaultRegistryURL
	}
	return cfg.RegistryURL
}

func newRegistryClient(ctx context.Context, s *store.Store) (*registry.Client, error) {
	return registry.NewClient(registryURL(ctx, s), s,
		registry.WithAttempts(viper.GetInt("registry.retries")),
	)
}

// syncIndex refreshes the local index from the registry and records the
// sync time
func syncIndex(ctx context.Context, s *store.Store) (*skilltypes.LocalIndex, error) {
	client, err := newRegistryClient(ctx, s)
	if err != nil {
		return nil, err
	}
	index, err := client.FetchIndex(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := s.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	cfg.LastSync = index.LastUpdated
	if err := s.SaveConfig(ctx, cfg); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to record sync time")
	}
	return index, nil
}

// loadIndex returns the local index, syncing first when it is empty
func loadIndex(ctx context.Context, s *store.Store) (*skilltypes.LocalIndex, error) {
	index, err := s.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}
	if len(index.Skills) > 0 {
		return index, nil
	}

	synced, err := syncIndex(ctx, s)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("local index is empty and the registry is unreachable")
		return index, nil
	}
	return synced, nil
}

func newInstaller(s *store.Store) (*installer.Installer, error) {
	return installer.New(s, installer.WithClientVersion(version.Version))
}

// newTrawler wires every discovery source. The registry source searches
// index.
func newTrawler(ctx context.Context, index *skilltypes.LocalIndex) (*trawler.Trawler, error) {
	gh, err := github.NewClient(ctx, viper.GetString("github.token"), viper.GetString("github.api_url"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GitHub client")
	}

	httpClient := &http.Client{Timeout: viper.GetDuration("trawl.source_timeout")}
	return trawler.New(
		trawler.WithSearcher(trawler.NewRegistrySource(index)),
		trawler.WithSearcher(trawler.NewGitHubSource(gh)),
		trawler.WithSearcher(trawler.NewNPMSource(viper.GetString("npm.registry_url"), httpClient)),
		trawler.WithSearcher(trawler.NewWebSource(httpClient)),
		trawler.WithSourceTimeout(viper.GetDuration("trawl.source_timeout")),
	)
}

// trawlOptions builds trawl options from config, overridden by non-empty
// arguments
func trawlOptions(sources, domains []string, maxResults int) trawler.Options {
	if len(sources) == 0 {
		sources = viper.GetStringSlice("trawl.sources")
	}
	if len(domains) == 0 {
		domains = viper.GetStringSlice("trawl.domains")
	}
	if maxResults <= 0 {
		maxResults = viper.GetInt("trawl.max_results")
	}

	opts := trawler.Options{Domains: domains, MaxResults: maxResults}
	for _, src := range sources {
		opts.Sources = append(opts.Sources, skilltypes.Source(src))
	}
	return opts
}
