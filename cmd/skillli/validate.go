package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jingkaihe/skillli/pkg/presenter"
	"github.com/jingkaihe/skillli/pkg/safeguards"
	"github.com/jingkaihe/skillli/pkg/skills"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// validateReport is the --json output of validate
type validateReport struct {
	Metadata   *skilltypes.SkillMetadata   `json:"metadata"`
	Safeguards *skilltypes.SafeguardResult `json:"safeguards"`
	TrustScore int                         `json:"trustScore"`
}

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate a skill and run the safeguards",
	Long: `Parse the SKILL.md in dir (default: the current directory), validate its
frontmatter and run the static safeguard checks. The command fails when the
metadata is invalid or a blocking check fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		skillFile := dir
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			skillFile = filepath.Join(dir, skills.SkillFileName)
		}

		skill, err := skills.ParseFile(skillFile)
		if err != nil {
			return err
		}

		result := safeguards.Run(skill, filepath.Dir(skillFile))
		report := validateReport{
			Metadata:   &skill.Metadata,
			Safeguards: result,
			TrustScore: safeguards.ComputeTrustScore(skill, nil),
		}

		if jsonOutput(cmd) {
			if err := presenter.Default().JSON(report); err != nil {
				return err
			}
		} else {
			presenter.Default().Section(fmt.Sprintf("%s %s", skill.Metadata.Name, skill.Metadata.Version))
			presenter.Default().SafeguardReport(result)
			presenter.Info(fmt.Sprintf("Metadata trust score: %s", presenter.FormatScore(report.TrustScore)))
		}

		if !result.Passed {
			return errors.Errorf("%s failed %d safety check(s)", skill.Metadata.Name, len(result.Failed()))
		}
		presenter.Success(fmt.Sprintf("%s is valid", skill.Metadata.Name))
		return nil
	},
}
