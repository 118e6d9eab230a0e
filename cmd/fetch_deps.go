package cmd

import (
	"github.com/spf13/cobra"

	"github.com/starwort/domgen-tools/pkg"
)

var fetchDepsCmd = &cobra.Command{
	Use:   "fetch-deps",
	Short: "Downloads and unpacks external tools",
	Long: `Downloads and unpacks the tool archives listed in DEPS.yml (like the
dart-sass compiler) into the .tools directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		update, err := cmd.Flags().GetBool("update")
		if err != nil {
			return err
		}

		pkg.PrintTask("Loading config")
		projectRoot, err := pkg.GetProjectRoot()
		if err != nil {
			return err
		}

		manifest, rawManifest, stamps, err := pkg.LoadToolManifest(projectRoot)
		if err != nil {
			return err
		}

		pkg.PrintTask("Downloading tools")
		err = pkg.FetchTools(projectRoot, manifest, rawManifest, stamps, pkg.FetchOptions{Update: update})

		// The stamps for everything fetched so far are saved even if a later
		// entry failed; those downloads don't have to be repeated.
		sErr := pkg.SaveStamps(projectRoot, stamps)
		if sErr != nil {
			pkg.PrintError(sErr.Error())
		}

		if err == nil {
			pkg.PrintTask("Done")
		}
		return err
	},
}

func init() {
	fetchDepsCmd.Flags().BoolP("update", "u", false, "Update checksums")

	rootCmd.AddCommand(fetchDepsCmd)
}
