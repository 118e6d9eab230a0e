package cmd

import (
	"github.com/spf13/cobra"

	"github.com/starwort/domgen-tools/pkg"
)

var buildStylesCmd = &cobra.Command{
	Use:   "build-styles",
	Short: "Compiles the style sources",
	Long: `Runs the sass compiler once per file in the configured style source
directory. Each output file is named after its source with the extension
replaced by .css.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		keepGoing, err := cmd.Flags().GetBool("keep-going")
		if err != nil {
			return err
		}

		ctx, cfg, err := buildContext()
		if err != nil {
			return err
		}

		pkg.PrintTask("Compiling styles")
		return pkg.CompileStyles(ctx, cfg, pkg.StyleOptions{
			Force:     force,
			KeepGoing: keepGoing,
		})
	},
}

func init() {
	buildStylesCmd.Flags().BoolP("force", "f", false, "recompile files even if their output is up to date")
	buildStylesCmd.Flags().BoolP("keep-going", "k", false, "compile the remaining files after a failure and report all failures at the end")

	rootCmd.AddCommand(buildStylesCmd)
}
