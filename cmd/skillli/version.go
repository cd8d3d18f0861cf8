package main

import (
	"fmt"

	"github.com/jingkaihe/skillli/pkg/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version information of skillli. Use --json for machine readable output.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := version.Get()
		if !jsonOutput(cmd) {
			fmt.Println(info.String())
			return nil
		}
		out, err := info.JSON()
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}
