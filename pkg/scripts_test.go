package pkg

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scriptsConfig = `
styles:
  source: assets/scss
  dest: dist/css
scripts:
  entry:
    top_app_bar: assets/js/top_app_bar.js
    drawer: assets/js/drawer.js
  dest: dist/js
`

func newScriptsFixture(t *testing.T) *Config {
	t.Helper()
	root := t.TempDir()
	cfg := writeTestConfig(t, root, scriptsConfig)

	jsDir := filepath.Join(root, "assets", "js")
	writeFile(t, jsDir, "shared.js", `export const shadow = "domgenShadowToken";`)
	writeFile(t, jsDir, "top_app_bar.js", `import { shadow } from "./shared.js";
console.log("bar", shadow);`)
	writeFile(t, jsDir, "drawer.js", `import { shadow } from "./shared.js";
console.log("drawer", shadow);`)
	return cfg
}

func TestBundleScripts_OneBundlePerEntry(t *testing.T) {
	cfg := newScriptsFixture(t)

	err := BundleScripts(testContext(), cfg, ScriptOptions{})
	require.NoError(t, err)

	destDir := cfg.AbsPath(cfg.Scripts.Dest)
	for _, name := range []string{"top_app_bar.js", "drawer.js"} {
		content, err := os.ReadFile(filepath.Join(destDir, name))
		require.NoError(t, err)
		assert.Contains(t, string(content), "domgenShadowToken", "bundle %s should inline its imports", name)
		assert.NotContains(t, string(content), "sourceMappingURL")
	}
}

func TestBundleScripts_FilenameTemplate(t *testing.T) {
	cfg := newScriptsFixture(t)
	cfg.Scripts.Filename = "[name].bundle.js"

	err := BundleScripts(testContext(), cfg, ScriptOptions{})
	require.NoError(t, err)

	destDir := cfg.AbsPath(cfg.Scripts.Dest)
	_, err = os.Stat(filepath.Join(destDir, "top_app_bar.bundle.js"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(destDir, "drawer.bundle.js"))
	assert.NoError(t, err)
}

func TestBundleScripts_MissingEntryLeavesOldBundle(t *testing.T) {
	root := t.TempDir()
	cfg := writeTestConfig(t, root, `
styles:
  source: assets/scss
  dest: dist/css
scripts:
  entry:
    top_app_bar: assets/js/does_not_exist.js
  dest: dist/js
`)

	stale := writeFile(t, cfg.AbsPath(cfg.Scripts.Dest), "top_app_bar.js", "console.log('old');")

	err := BundleScripts(testContext(), cfg, ScriptOptions{Force: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top_app_bar")

	content, readErr := os.ReadFile(stale)
	require.NoError(t, readErr)
	assert.Equal(t, "console.log('old');", string(content))
}

func TestBundleScripts_CancelledContext(t *testing.T) {
	cfg := newScriptsFixture(t)

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	err := BundleScripts(ctx, cfg, ScriptOptions{})
	assert.ErrorIs(t, err, context.Canceled)

	entries, readErr := os.ReadDir(cfg.AbsPath(cfg.Scripts.Dest))
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestBundleScripts_SkipsFreshBundles(t *testing.T) {
	cfg := newScriptsFixture(t)

	err := BundleScripts(testContext(), cfg, ScriptOptions{})
	require.NoError(t, err)

	output := filepath.Join(cfg.AbsPath(cfg.Scripts.Dest), "top_app_bar.js")
	require.NoError(t, os.WriteFile(output, []byte("edited"), 0644))
	newer := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(output, newer, newer))

	err = BundleScripts(testContext(), cfg, ScriptOptions{})
	require.NoError(t, err)
	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "edited", string(content))

	err = BundleScripts(testContext(), cfg, ScriptOptions{Force: true})
	require.NoError(t, err)
	content, err = os.ReadFile(output)
	require.NoError(t, err)
	assert.NotEqual(t, "edited", string(content))
}
