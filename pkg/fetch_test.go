package pkg

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalConditions(t *testing.T) {
	vars := map[string]string{
		"linux":   "true",
		"VERSION": "1.77.8",
	}

	spec := ToolSpec{
		Condition: "linux",
		URL:       "https://example.org/sass-{VERSION}.tar.gz",
	}
	assert.True(t, EvalConditions(&spec, vars))
	assert.Equal(t, "https://example.org/sass-1.77.8.tar.gz", spec.URL)

	spec = ToolSpec{Condition: "windows"}
	assert.False(t, EvalConditions(&spec, vars))

	spec = ToolSpec{Condition: "linux", Rejections: "linux"}
	assert.False(t, EvalConditions(&spec, vars))

	spec = ToolSpec{Condition: "linux", Rejections: "arm64"}
	assert.True(t, EvalConditions(&spec, vars))

	spec = ToolSpec{URL: "https://example.org/{UNKNOWN}.tar.gz"}
	assert.True(t, EvalConditions(&spec, vars))
	assert.Equal(t, "https://example.org/.tar.gz", spec.URL)
}

func TestPlatformVars(t *testing.T) {
	vars := PlatformVars(ToolManifest{Vars: map[string]string{"VERSION": "1"}})
	assert.Equal(t, "1", vars["VERSION"])
	assert.Equal(t, "true", vars[runtime.GOOS])
	assert.Equal(t, "true", vars[runtime.GOARCH])
}

func TestLoadToolManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, DepsFile, `
vars:
  VERSION: "2.0"
deps:
  sass:
    if: linux
    url: https://example.org/sass-{VERSION}.tar.gz
    dest: .tools
    sha256: abc
    markExec:
      - dart-sass/sass
`)

	manifest, raw, stamps, err := LoadToolManifest(root)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Empty(t, stamps)
	assert.Equal(t, "2.0", manifest.Vars["VERSION"])
	spec := manifest.Deps["sass"]
	assert.Equal(t, "linux", spec.Condition)
	assert.Equal(t, []string{"dart-sass/sass"}, spec.MarkExec)

	require.NoError(t, SaveStamps(root, map[string]string{"sass": "token"}))
	_, _, stamps, err = LoadToolManifest(root)
	require.NoError(t, err)
	assert.Equal(t, "token", stamps["sass"])
}

func TestFetchTools(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("exec bit semantics differ on windows")
	}
	t.Setenv("CI", "true")

	archive := makeTarGz(t, map[string]string{
		"dart-sass/sass": "#!/bin/sh\necho stub\n",
	})
	archiveData, err := io.ReadAll(archive)
	require.NoError(t, err)
	archive.Close()
	digest := sha256.Sum256(archiveData)

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write(archiveData)
	}))
	defer server.Close()

	root := t.TempDir()
	manifest := ToolManifest{
		Deps: map[string]ToolSpec{
			"dart-sass": {
				Condition: runtime.GOOS,
				URL:       server.URL + "/dart-sass.tar.gz",
				Dest:      ".tools",
				Sha256:    hex.EncodeToString(digest[:]),
				MarkExec:  []string{"dart-sass/sass"},
			},
			"other-os": {
				Condition: "someotheros",
				URL:       server.URL + "/other.tar.gz",
				Dest:      ".tools-other",
				Sha256:    "unchecked",
			},
		},
	}

	stamps := map[string]string{}
	err = FetchTools(root, manifest, "", stamps, FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, requests, "non-matching entries shouldn't be downloaded")

	sassPath := filepath.Join(root, ".tools", "dart-sass", "sass")
	info, err := os.Stat(sassPath)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0100, "markExec should make the binary executable")
	assert.Contains(t, stamps, "dart-sass")

	// a second run is satisfied by the stamp
	err = FetchTools(root, manifest, "", stamps, FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, requests)
}

func TestFetchTools_ChecksumMismatch(t *testing.T) {
	t.Setenv("CI", "true")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not the archive"))
	}))
	defer server.Close()

	root := t.TempDir()
	manifest := ToolManifest{
		Deps: map[string]ToolSpec{
			"dart-sass": {
				URL:    server.URL + "/dart-sass.tar.gz",
				Dest:   ".tools",
				Sha256: "0000000000000000000000000000000000000000000000000000000000000000",
			},
		},
	}

	err := FetchTools(root, manifest, "", map[string]string{}, FetchOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Checksum")

	_, statErr := os.Stat(filepath.Join(root, ".tools"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestUpdateManifestChecksums(t *testing.T) {
	raw := `deps:
  dart-sass:
    url: https://example.org/sass.tar.gz
    dest: .tools
    sha256: oldsum
`
	manifest := ToolManifest{
		Deps: map[string]ToolSpec{
			"dart-sass": {Sha256: "oldsum"},
		},
	}

	updated, err := updateManifestChecksums(raw, manifest, map[string]string{"dart-sass": "newsum"})
	require.NoError(t, err)
	assert.Contains(t, updated, "sha256: newsum")
	assert.NotContains(t, updated, "oldsum")
}
