package main

import (
	"fmt"

	"github.com/jingkaihe/skillli/pkg/presenter"
	"github.com/jingkaihe/skillli/pkg/skills"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Create a new skill",
	Long: `Create <dir>/<name> with a SKILL.md template, a skillli.json manifest and
empty scripts/ and references/ directories.

Examples:
  skillli init pdf-tools
  skillli init pdf-tools --description "Merge and split PDFs" --tags pdf,merge --category data`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		description, _ := cmd.Flags().GetString("description")
		author, _ := cmd.Flags().GetString("author")
		license, _ := cmd.Flags().GetString("license")
		tags, _ := cmd.Flags().GetStringSlice("tags")
		category, _ := cmd.Flags().GetString("category")

		skillDir, err := skills.Scaffold(dir, skills.ScaffoldOptions{
			Name:        args[0],
			Description: description,
			Author:      author,
			License:     license,
			Tags:        tags,
			Category:    skilltypes.Category(category),
		})
		if err != nil {
			return err
		}
		presenter.Success(fmt.Sprintf("Created %s", skillDir))
		return nil
	},
}

func init() {
	initCmd.Flags().String("dir", ".", "Parent directory of the new skill")
	initCmd.Flags().String("description", "", "What the skill does")
	initCmd.Flags().String("author", "", "Skill author")
	initCmd.Flags().String("license", "", "License (default MIT)")
	initCmd.Flags().StringSlice("tags", nil, "Comma separated tags")
	initCmd.Flags().String("category", "", "Category (default other)")
}
