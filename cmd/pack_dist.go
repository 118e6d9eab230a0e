package cmd

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/starwort/domgen-tools/pkg"
)

var packDistCmd = &cobra.Command{
	Use:   "pack-dist archive_name content_directory",
	Short: "Packs built assets into a compressed archive",
	Long: `Recursively packs the contents of the passed directory into a
brotli-compressed tar archive (.tar.br) for distribution.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return eris.New("Expected 2 arguments!")
		}

		return pkg.PackDist(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(packDistCmd)
}
