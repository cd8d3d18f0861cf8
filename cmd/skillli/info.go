package main

import (
	"github.com/jingkaihe/skillli/pkg/presenter"
	"github.com/jingkaihe/skillli/pkg/registry"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show the registry entry of a skill",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore()
		if err != nil {
			return err
		}
		index, err := loadIndex(ctx, s)
		if err != nil {
			return err
		}
		entry, err := registry.GetEntry(index, args[0])
		if err != nil {
			return err
		}

		installed, err := s.InstalledSkill(ctx, entry.Name)
		if err != nil && !skilltypes.IsNotFound(err) {
			return err
		}

		if jsonOutput(cmd) {
			return presenter.Default().JSON(entry)
		}
		presenter.Default().SkillInfo(*entry, installed)
		return nil
	},
}
