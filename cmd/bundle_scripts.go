package cmd

import (
	"github.com/spf13/cobra"

	"github.com/starwort/domgen-tools/pkg"
)

var bundleScriptsCmd = &cobra.Command{
	Use:   "bundle-scripts",
	Short: "Bundles the script entry points",
	Long: `Resolves the module graph of every entry point listed in assets.yml and
writes one bundle per entry into the configured output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		ctx, cfg, err := buildContext()
		if err != nil {
			return err
		}

		pkg.PrintTask("Bundling scripts")
		return pkg.BundleScripts(ctx, cfg, pkg.ScriptOptions{Force: force})
	},
}

func init() {
	bundleScriptsCmd.Flags().BoolP("force", "f", false, "rebuild bundles even if they're up to date")

	rootCmd.AddCommand(bundleScriptsCmd)
}
