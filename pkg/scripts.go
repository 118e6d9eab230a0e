package pkg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rotisserie/eris"
)

// ScriptOptions control how the bundling step runs.
type ScriptOptions struct {
	// Force rebuilds bundles whose output is already up to date.
	Force bool
}

// BundleScripts resolves the module graph of every configured entry point
// and writes one bundle per entry into scripts.dest. Bundles are processed
// in name order to keep runs deterministic.
func BundleScripts(ctx context.Context, cfg *Config, opts ScriptOptions) error {
	destDir := cfg.AbsPath(cfg.Scripts.Dest)
	err := os.MkdirAll(destDir, os.FileMode(0770))
	if err != nil {
		return eris.Wrapf(err, "Failed to create output directory %s", destDir)
	}

	names := make([]string, 0, len(cfg.Scripts.Entry))
	for name := range cfg.Scripts.Entry {
		names = append(names, name)
	}
	sort.Strings(names)

	bundled := 0
	for _, name := range names {
		if err = ctx.Err(); err != nil {
			return err
		}

		entry := cfg.AbsPath(cfg.Scripts.Entry[name])
		outfile := filepath.Join(destDir, ResolveBundleFilename(cfg.Scripts.Filename, name))

		if !opts.Force && isFresh(entry, outfile) {
			log(ctx).Info().
				Str("step", "scripts").
				Str("file", name).
				Msg("nothing to do (bundle is newer)")
			continue
		}

		log(ctx).Info().
			Str("step", "scripts").
			Str("path", entry).
			Msgf("Bundling %s", name)

		result := api.Build(api.BuildOptions{
			EntryPoints:       []string{entry},
			Outfile:           outfile,
			Bundle:            true,
			Write:             true,
			Sourcemap:         api.SourceMapNone,
			MinifyWhitespace:  cfg.Scripts.Minify,
			MinifyIdentifiers: cfg.Scripts.Minify,
			MinifySyntax:      cfg.Scripts.Minify,
			LogLevel:          api.LogLevelSilent,
		})

		if len(result.Errors) > 0 {
			return bundleError(name, result.Errors)
		}

		for _, warning := range result.Warnings {
			log(ctx).Warn().
				Str("step", "scripts").
				Msg(formatMessage(warning))
		}

		bundled++
	}

	log(ctx).Info().
		Str("step", "scripts").
		Msgf("Bundled %d entry point(s)", bundled)
	return nil
}

func bundleError(name string, messages []api.Message) error {
	lines := make([]string, len(messages))
	for idx, msg := range messages {
		lines[idx] = formatMessage(msg)
	}

	return eris.Errorf("Failed to bundle %s:\n%s", name, strings.Join(lines, "\n"))
}

func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}

	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}
