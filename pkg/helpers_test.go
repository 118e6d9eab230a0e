package pkg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	logger := zerolog.Nop()
	return WithLogger(context.Background(), &logger)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	err := os.MkdirAll(filepath.Dir(path), 0755)
	require.NoError(t, err)
	err = os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

// writeTestConfig writes an assets.yml into root and loads it.
func writeTestConfig(t *testing.T, root, content string) *Config {
	t.Helper()
	writeFile(t, root, ConfigFile, content)
	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	return cfg
}

// writeStubSass installs a fake sass binary into the project's .tools
// directory. The script copies its input to its output, fails for inputs
// whose name contains "broken" and stalls for names containing "slow".
func writeStubSass(t *testing.T, root string) {
	t.Helper()
	script := `#!/bin/sh
while [ $# -gt 2 ]; do shift; done
case "$1" in
  *broken*) echo "Error: expected \"}\"." >&2; exit 65 ;;
  *slow*) sleep 5 ;;
esac
cp "$1" "$2"
`
	path := filepath.Join(root, ".tools", "dart-sass", "sass")
	err := os.MkdirAll(filepath.Dir(path), 0755)
	require.NoError(t, err)
	err = os.WriteFile(path, []byte(script), 0755)
	require.NoError(t, err)
}
