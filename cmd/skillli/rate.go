package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jingkaihe/skillli/pkg/presenter"
	"github.com/jingkaihe/skillli/pkg/registry"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var rateCmd = &cobra.Command{
	Use:   "rate <name> <1-5>",
	Short: "Rate a skill",
	Long: `Record a rating between 1 and 5 for a skill in the local index.

Examples:
  skillli rate pdf-tools 5
  skillli rate pdf-tools 3 --comment "works but slow on large files"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		comment, _ := cmd.Flags().GetString("comment")

		rating, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.Errorf("rating must be a number between 1 and 5, got %q", args[1])
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		userID, err := s.EnsureUserID(ctx)
		if err != nil {
			return err
		}
		index, err := loadIndex(ctx, s)
		if err != nil {
			return err
		}

		info, err := registry.SubmitRating(index, skilltypes.RatingSubmission{
			SkillName: args[0],
			Rating:    rating,
			UserID:    userID,
			Comment:   comment,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if err := s.SaveIndex(ctx, index); err != nil {
			return err
		}

		presenter.Success(fmt.Sprintf("Rated %s %d/5, now %s", args[0], rating, presenter.FormatRating(info)))
		return nil
	},
}

func init() {
	rateCmd.Flags().StringP("comment", "m", "", "Optional comment")
}
