package cmd

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/starwort/domgen-tools/pkg"
)

var rootCmd = &cobra.Command{
	Use:   "tool",
	Short: "Build tools for domgen",
	Long: `This command bundles several tools that are used to build domgen's web assets.
This includes the style and script build steps as well as helpers to download
the external tools they need.`,
}

// buildContext loads assets.yml and prepares a context with an attached
// console logger. Shared by all commands that run pipeline steps.
func buildContext() (context.Context, *pkg.Config, error) {
	projectRoot, err := pkg.GetProjectRoot()
	if err != nil {
		return nil, nil, err
	}

	cfg, err := pkg.LoadConfig(projectRoot)
	if err != nil {
		return nil, nil, err
	}

	logger := zerolog.New(NewConsoleWriter())
	ctx := pkg.WithLogger(context.Background(), &logger)
	return ctx, cfg, nil
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
