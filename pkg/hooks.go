package pkg

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

var defaultExecHandler = interp.DefaultExecHandler(2)

// execHandler intercepts mv, rm and mkdir and runs the cross-platform
// in-process implementations instead. Hook scripts keep working even when
// the pipeline runs through "go run" and no helper binary is on the PATH.
func execHandler(ctx context.Context, args []string) error {
	if len(args) > 0 {
		handled, err := runFileBuiltin(interp.HandlerCtx(ctx).Dir, args)
		if handled {
			return err
		}
	}

	return defaultExecHandler(ctx, args)
}

// runFileBuiltin dispatches mv/rm/mkdir invocations to the pkg file
// operations, resolving relative paths against the interpreter's working
// directory. Unknown flags fall through to the default handler.
func runFileBuiltin(dir string, args []string) (bool, error) {
	switch args[0] {
	case "mkdir":
		parents := false
		paths := []string{}
		for _, arg := range args[1:] {
			switch arg {
			case "-p", "--parents":
				parents = true
			default:
				if strings.HasPrefix(arg, "-") {
					return false, nil
				}
				paths = append(paths, resolveHookPath(dir, arg))
			}
		}
		return true, MakeDirs(paths, parents)

	case "rm":
		recursive := false
		force := false
		paths := []string{}
		for _, arg := range args[1:] {
			switch arg {
			case "-r", "-R", "--recursive":
				recursive = true
			case "-f", "--force":
				force = true
			case "-rf", "-fr":
				recursive = true
				force = true
			default:
				if strings.HasPrefix(arg, "-") {
					return false, nil
				}
				paths = append(paths, resolveHookPath(dir, arg))
			}
		}
		return true, RemoveItems(paths, recursive, force)

	case "mv":
		items := make([]string, 0, len(args)-1)
		for _, arg := range args[1:] {
			if strings.HasPrefix(arg, "-") {
				return false, nil
			}
			items = append(items, resolveHookPath(dir, arg))
		}
		return true, MoveItems(items)
	}

	return false, nil
}

func resolveHookPath(dir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(dir, path)
}

var defaultOpenHandler = interp.DefaultOpenHandler()

func openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == "/dev/null" {
		path = os.DevNull
	}

	return defaultOpenHandler(ctx, path, flag, perm)
}

// RunHooks executes the given hook snippets sequentially with -e semantics
// and the project root as working directory. phase is only used for
// diagnostics ("pre" or "post").
func RunHooks(ctx context.Context, cfg *Config, phase string, snippets []string) error {
	if len(snippets) == 0 {
		return nil
	}

	runner, err := interp.New(
		interp.Dir(cfg.Root()),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.ExecHandler(execHandler),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, os.Stdout, os.Stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return eris.Wrap(err, "Failed to initialize hook runner")
	}

	parser := syntax.NewParser()
	printer := syntax.NewPrinter(
		syntax.Minify(true),
	)
	strBuffer := strings.Builder{}

	for idx, snippet := range snippets {
		result, err := parser.Parse(strings.NewReader(snippet), fmt.Sprintf("hooks.%s:%d", phase, idx))
		if err != nil {
			return eris.Wrapf(err, "failed to parse hook %s", snippet)
		}

		for _, stm := range result.Stmts {
			strBuffer.Reset()
			printer.Print(&strBuffer, stm)
			log(ctx).Info().
				Str("step", "hooks."+phase).
				Bool("command", true).
				Msg(strBuffer.String())

			err = runner.Run(ctx, stm)
			if err != nil {
				return eris.Wrapf(err, "hooks.%s failed", phase)
			}

			if runner.Exited() {
				return nil
			}
		}

		if err = ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}
