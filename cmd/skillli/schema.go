package main

import (
	"github.com/jingkaihe/skillli/pkg/presenter"
	"github.com/jingkaihe/skillli/pkg/skills"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of SKILL.md frontmatter",
	RunE: func(_ *cobra.Command, _ []string) error {
		return presenter.Default().JSON(skills.JSONSchema())
	},
}
