package main

import (
	"fmt"
	"time"

	"github.com/jingkaihe/skillli/pkg/presenter"
	"github.com/jingkaihe/skillli/pkg/publisher"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish [dir]",
	Short: "Package a skill for the registry",
	Long: `Validate the skill in dir (default: the current directory), run the
safeguards, fingerprint its files and write the registry manifest to
skillli.json. Submit the manifest to the registry repository to publish.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		pkg, err := publisher.Build(dir, time.Now().UTC())
		if err != nil {
			return err
		}

		if jsonOutput(cmd) {
			if err := presenter.Default().JSON(pkg.Manifest); err != nil {
				return err
			}
		} else {
			presenter.Default().SafeguardReport(pkg.Safeguards)
			presenter.Info(fmt.Sprintf("Checksum: %s", pkg.Checksum))
			presenter.Info(fmt.Sprintf("Files: %d (%d bytes)", len(pkg.Manifest.Files), pkg.Manifest.SizeBytes))
		}

		if dryRun {
			return nil
		}
		path, err := publisher.WriteManifest(dir, pkg.Manifest)
		if err != nil {
			return err
		}
		presenter.Success(fmt.Sprintf("Wrote %s", path))
		return nil
	},
}

func init() {
	publishCmd.Flags().Bool("dry-run", false, "Check the skill without writing the manifest")
}
