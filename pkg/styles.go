package pkg

import (
	"context"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
)

// StyleOptions control how the style compilation step runs.
type StyleOptions struct {
	// Force recompiles files whose output is already up to date.
	Force bool
	// KeepGoing compiles the remaining files after a failure and reports
	// all failures at the end instead of aborting on the first one.
	KeepGoing bool
}

// FindSass locates the sass binary. The copy fetch-deps places in the
// project's .tools directory wins over whatever is on the PATH.
func FindSass(projectRoot string) (string, error) {
	name := "sass"
	if runtime.GOOS == "windows" {
		name = "sass.bat"
	}

	toolPath := filepath.Join(projectRoot, ".tools", "dart-sass", name)
	_, err := os.Stat(toolPath)
	if err == nil {
		return toolPath, nil
	}

	if !eris.Is(err, os.ErrNotExist) {
		return "", eris.Wrapf(err, "Failed to check %s", toolPath)
	}

	sassPath, err := exec.LookPath("sass")
	if err != nil {
		return "", eris.Wrap(err, "Could not find sass; run \"tool fetch-deps\" to download it")
	}

	return sassPath, nil
}

// isStyleSource reports whether the given directory entry should be fed to
// the compiler. Partials (leading underscore) and dotfiles only exist to be
// imported by other style files and produce no standalone output.
func isStyleSource(info os.FileInfo) bool {
	name := info.Name()
	if info.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
		return false
	}

	return true
}

// StyleOutputName maps a style source filename to its output filename by
// replacing the extension with .css.
func StyleOutputName(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)] + ".css"
}

// CompileStyles runs the sass compiler once per file in styles.source,
// sequentially and in directory-listing order.
func CompileStyles(ctx context.Context, cfg *Config, opts StyleOptions) error {
	sassPath, err := FindSass(cfg.Root())
	if err != nil {
		return err
	}

	sourceDir := cfg.AbsPath(cfg.Styles.Source)
	destDir := cfg.AbsPath(cfg.Styles.Dest)

	entries, err := ioutil.ReadDir(sourceDir)
	if err != nil {
		return eris.Wrapf(err, "Failed to list style sources in %s", sourceDir)
	}

	err = os.MkdirAll(destDir, os.FileMode(0770))
	if err != nil {
		return eris.Wrapf(err, "Failed to create output directory %s", destDir)
	}

	compiled := 0
	var failed []string
	var firstErr error

	for _, info := range entries {
		if err = ctx.Err(); err != nil {
			return err
		}

		if !isStyleSource(info) {
			continue
		}

		input := filepath.Join(sourceDir, info.Name())
		output := filepath.Join(destDir, StyleOutputName(info.Name()))

		if !opts.Force && isFresh(input, output) {
			log(ctx).Info().
				Str("step", "styles").
				Str("file", info.Name()).
				Msg("nothing to do (output is newer)")
			continue
		}

		log(ctx).Info().
			Str("step", "styles").
			Str("path", input).
			Msgf("Compiling %s", input)

		err = runSass(ctx, sassPath, cfg, input, output)
		if err != nil {
			err = eris.Wrapf(err, "Failed to compile %s", info.Name())
			if !opts.KeepGoing {
				return err
			}

			log(ctx).Error().
				Str("step", "styles").
				Err(err).
				Msgf("Compilation of %s failed", info.Name())
			failed = append(failed, info.Name())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		compiled++
	}

	if len(failed) > 0 {
		return eris.Wrapf(firstErr, "%d of %d style files failed to compile (%s)",
			len(failed), len(failed)+compiled, strings.Join(failed, ", "))
	}

	log(ctx).Info().
		Str("step", "styles").
		Msgf("Compiled %d style file(s)", compiled)
	return nil
}

func runSass(ctx context.Context, sassPath string, cfg *Config, input, output string) error {
	args := []string{"--style=" + cfg.Styles.Style}
	if !cfg.Styles.SourceMap {
		args = append(args, "--no-source-map")
	}

	for _, include := range cfg.Styles.IncludePaths {
		args = append(args, "--load-path="+cfg.AbsPath(include))
	}

	args = append(args, input, output)

	cmd := exec.CommandContext(ctx, sassPath, args...)
	cmd.Dir = cfg.Root()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// isFresh reports whether the output exists and is newer than the input.
func isFresh(input, output string) bool {
	outInfo, err := os.Stat(output)
	if err != nil {
		return false
	}

	inInfo, err := os.Stat(input)
	if err != nil {
		return false
	}

	return outInfo.ModTime().Sub(inInfo.ModTime()) > 0
}
