package pkg

import (
	"context"
	"time"

	"github.com/aidarkhanov/nanoid"
)

// BuildOptions control a full pipeline run.
type BuildOptions struct {
	Force     bool
	KeepGoing bool
	SkipHooks bool
}

// RunBuild runs the whole pipeline: pre-hooks, style compilation, script
// bundling, post-hooks. Every style file has been handed to the compiler
// before the bundler starts; the run stops at the first failing step.
func RunBuild(ctx context.Context, cfg *Config, opts BuildOptions) error {
	runLogger := log(ctx).With().Str("run", nanoid.New()).Logger()
	ctx = WithLogger(ctx, &runLogger)

	if !opts.SkipHooks {
		err := RunHooks(ctx, cfg, "pre", cfg.Hooks.Pre)
		if err != nil {
			return err
		}
	}

	start := time.Now()
	err := CompileStyles(ctx, cfg, StyleOptions{
		Force:     opts.Force,
		KeepGoing: opts.KeepGoing,
	})
	if err != nil {
		return err
	}

	runLogger.Info().
		Str("step", "styles").
		Msgf("Finished in %.2fs", time.Since(start).Seconds())

	start = time.Now()
	err = BundleScripts(ctx, cfg, ScriptOptions{Force: opts.Force})
	if err != nil {
		return err
	}

	runLogger.Info().
		Str("step", "scripts").
		Msgf("Finished in %.2fs", time.Since(start).Seconds())

	if !opts.SkipHooks {
		err = RunHooks(ctx, cfg, "post", cfg.Hooks.Post)
		if err != nil {
			return err
		}
	}

	return nil
}
