package main

import (
	"strings"

	"github.com/jingkaihe/skillli/pkg/presenter"
	"github.com/jingkaihe/skillli/pkg/search"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// SearchConfig holds the flags of the search command
type SearchConfig struct {
	Tags       []string
	Category   string
	TrustLevel string
	MinRating  float64
	Offset     int
	Limit      int
}

// NewSearchConfig returns the default search flags
func NewSearchConfig() *SearchConfig {
	return &SearchConfig{
		Limit: search.DefaultLimit,
	}
}

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search the local skill index",
	Long: `Search the locally cached registry index. Results are ranked by how well the
name, description and tags match the query. The index is synced first when it is
empty.

Examples:
  skillli search pdf
  skillli search --category data --min-rating 4
  skillli search video --tag ffmpeg --trust verified`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := getSearchConfigFromFlags(cmd)

		if config.Category != "" && !skilltypes.Category(config.Category).Valid() {
			return errors.Errorf("unknown category %q", config.Category)
		}
		if config.TrustLevel != "" && !skilltypes.TrustLevel(config.TrustLevel).Valid() {
			return errors.Errorf("unknown trust level %q", config.TrustLevel)
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		index, err := loadIndex(ctx, s)
		if err != nil {
			return err
		}

		results := search.Search(index, search.Options{
			Query:      strings.Join(args, " "),
			Tags:       config.Tags,
			Category:   skilltypes.Category(config.Category),
			TrustLevel: skilltypes.TrustLevel(config.TrustLevel),
			MinRating:  config.MinRating,
			Offset:     config.Offset,
			Limit:      config.Limit,
		})

		if jsonOutput(cmd) {
			return presenter.Default().JSON(results)
		}
		presenter.Default().SearchResults(results)
		return nil
	},
}

func init() {
	defaults := NewSearchConfig()
	searchCmd.Flags().StringSliceP("tag", "t", defaults.Tags, "Boost skills carrying these tags")
	searchCmd.Flags().StringP("category", "c", defaults.Category, "Only show skills of this category")
	searchCmd.Flags().String("trust", defaults.TrustLevel, "Only show skills of this trust level (community, verified, official)")
	searchCmd.Flags().Float64("min-rating", defaults.MinRating, "Only show skills rated at least this")
	searchCmd.Flags().Int("offset", defaults.Offset, "Number of results to skip")
	searchCmd.Flags().IntP("limit", "n", defaults.Limit, "Maximum number of results")
}

func getSearchConfigFromFlags(cmd *cobra.Command) *SearchConfig {
	config := NewSearchConfig()
	if tags, err := cmd.Flags().GetStringSlice("tag"); err == nil {
		config.Tags = tags
	}
	if category, err := cmd.Flags().GetString("category"); err == nil {
		config.Category = category
	}
	if trust, err := cmd.Flags().GetString("trust"); err == nil {
		config.TrustLevel = trust
	}
	if minRating, err := cmd.Flags().GetFloat64("min-rating"); err == nil {
		config.MinRating = minRating
	}
	if offset, err := cmd.Flags().GetInt("offset"); err == nil {
		config.Offset = offset
	}
	if limit, err := cmd.Flags().GetInt("limit"); err == nil {
		config.Limit = limit
	}
	return config
}
