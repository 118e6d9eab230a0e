package cmd

import (
	"github.com/spf13/cobra"

	"github.com/starwort/domgen-tools/pkg"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Builds all web assets",
	Long: `Compiles every style source file and then bundles the configured script
entry points. The style step always finishes before the bundler starts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		keepGoing, err := cmd.Flags().GetBool("keep-going")
		if err != nil {
			return err
		}

		skipHooks, err := cmd.Flags().GetBool("skip-hooks")
		if err != nil {
			return err
		}

		ctx, cfg, err := buildContext()
		if err != nil {
			return err
		}

		pkg.PrintTask("Building assets")
		err = pkg.RunBuild(ctx, cfg, pkg.BuildOptions{
			Force:     force,
			KeepGoing: keepGoing,
			SkipHooks: skipHooks,
		})
		if err != nil {
			return err
		}

		pkg.PrintTask("Done")
		return nil
	},
}

func init() {
	buildCmd.Flags().BoolP("force", "f", false, "rebuild outputs even if they're up to date")
	buildCmd.Flags().BoolP("keep-going", "k", false, "compile the remaining style files after a failure and report all failures at the end")
	buildCmd.Flags().Bool("skip-hooks", false, "skip the pre and post hooks from assets.yml")

	rootCmd.AddCommand(buildCmd)
}
