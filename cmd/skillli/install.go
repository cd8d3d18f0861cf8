package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/jingkaihe/skillli/pkg/installer"
	"github.com/jingkaihe/skillli/pkg/presenter"
	"github.com/jingkaihe/skillli/pkg/skills"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// InstallConfig holds the flags of the install command
type InstallConfig struct {
	Link bool
	Name string
}

// NewInstallConfig returns the default install flags
func NewInstallConfig() *InstallConfig {
	return &InstallConfig{}
}

var installCmd = &cobra.Command{
	Use:   "install <skill>...",
	Short: "Install skills",
	Long: `Install skills into ~/.skillli/skills. Each argument is resolved in order as:

  - a local directory containing a SKILL.md
  - a git URL or a GitHub owner/repo
  - a skill name from the registry index

Every skill is parsed and checked by the safeguards before it is copied.

Examples:
  skillli install pdf-tools
  skillli install acme/skills --name pdf-tools
  skillli install ./my-skill --link`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := getInstallConfigFromFlags(cmd)
		if config.Name != "" && len(args) > 1 {
			return errors.New("--name can only be used with a single skill")
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		inst, err := newInstaller(s)
		if err != nil {
			return err
		}

		var index *skilltypes.LocalIndex
		for _, ref := range args {
			var skill *skilltypes.InstalledSkill
			switch installer.ResolveSource(ref) {
			case skilltypes.InstallFromGitHub:
				presenter.Info(fmt.Sprintf("Cloning %s...", ref))
				skill, err = inst.InstallFromGit(ctx, installer.RepositoryURL(ref), config.Name)
			default:
				if index == nil {
					if index, err = loadIndex(ctx, s); err != nil {
						return err
					}
				}
				skill, err = inst.Install(ctx, index, ref)
			}
			if err != nil {
				return errors.Wrapf(err, "failed to install %s", ref)
			}
			presenter.Success(fmt.Sprintf("Installed %s %s to %s", skill.Name, skill.Version, skill.Path))

			if config.Link {
				link, err := inst.Link(skill)
				if err != nil {
					return err
				}
				presenter.Info(fmt.Sprintf("Linked %s", link))
			}
		}
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <name>...",
	Short: "Remove installed skills",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		inst, err := newInstaller(s)
		if err != nil {
			return err
		}
		for _, name := range args {
			if err := inst.Uninstall(cmd.Context(), name); err != nil {
				return err
			}
			presenter.Success(fmt.Sprintf("Uninstalled %s", name))
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed skills",
	Long: `List the skills recorded as installed. With --discover, scan ./.claude/skills
and the skills directory on disk instead and report bundles that fail to parse.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		if discover, _ := cmd.Flags().GetBool("discover"); discover {
			return listDiscovered(cmd, s.Home())
		}

		installed, err := s.InstalledSkills(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return presenter.Default().JSON(installed)
		}
		presenter.Default().InstalledList(installed)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Sync the registry index and upgrade installed skills",
	Long: `Download the registry index, then reinstall every installed skill for which
the registry lists a newer version. Use --check to only report them.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		check, _ := cmd.Flags().GetBool("check")

		s, err := openStore()
		if err != nil {
			return err
		}
		index, err := syncIndex(ctx, s)
		if err != nil {
			return err
		}
		presenter.Success(fmt.Sprintf("Registry index has %d skills", len(index.Skills)))

		installed, err := s.InstalledSkills(ctx)
		if err != nil {
			return err
		}
		updates := installer.Outdated(installed, index)
		if jsonOutput(cmd) && check {
			return presenter.Default().JSON(updates)
		}
		if len(updates) == 0 {
			presenter.Info("All installed skills are up to date")
			return nil
		}

		inst, err := newInstaller(s)
		if err != nil {
			return err
		}
		for _, u := range updates {
			if check {
				presenter.Info(fmt.Sprintf("%s %s -> %s", u.Name, u.Installed, u.Available))
				continue
			}
			if _, err := inst.InstallFromRegistry(ctx, index, u.Name); err != nil {
				presenter.Error(err, fmt.Sprintf("Failed to update %s", u.Name))
				continue
			}
			presenter.Success(fmt.Sprintf("Updated %s %s -> %s", u.Name, u.Installed, u.Available))
		}
		return nil
	},
}

func init() {
	defaults := NewInstallConfig()
	installCmd.Flags().BoolP("link", "l", defaults.Link, "Link the installed skill into ./.claude/skills")
	installCmd.Flags().String("name", defaults.Name, "Install a git repository under this name")

	listCmd.Flags().Bool("discover", false, "Scan skill directories on disk")

	updateCmd.Flags().Bool("check", false, "Only report outdated skills")
}

func listDiscovered(cmd *cobra.Command, home string) error {
	discovery, err := skills.NewDiscovery(skills.WithDefaultDirs(home))
	if err != nil {
		return err
	}
	found, err := discovery.DiscoverSkills()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)

	if jsonOutput(cmd) {
		out := make([]map[string]string, 0, len(names))
		for _, name := range names {
			out = append(out, map[string]string{
				"name":        name,
				"description": found[name].Description(),
				"directory":   found[name].Directory,
			})
		}
		return presenter.Default().JSON(out)
	}

	if len(names) == 0 {
		presenter.Info("No skills found")
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, found[name].Metadata.Version, found[name].Directory)
	}
	tw.Flush()

	for dir, err := range discovery.Invalid() {
		presenter.Warning(fmt.Sprintf("%s: %v", dir, err))
	}
	return nil
}

func getInstallConfigFromFlags(cmd *cobra.Command) *InstallConfig {
	config := NewInstallConfig()
	if link, err := cmd.Flags().GetBool("link"); err == nil {
		config.Link = link
	}
	if name, err := cmd.Flags().GetString("name"); err == nil {
		config.Name = name
	}
	return config
}
