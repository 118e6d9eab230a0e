package pkg

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"
)

const (
	// DepsFile lists the external tool archives the pipeline depends on.
	DepsFile = "DEPS.yml"
	// StampsFile records which archives have already been unpacked.
	StampsFile = "DEPS.stamps"
)

// ToolSpec describes one downloadable tool archive.
type ToolSpec struct {
	Condition  string `yaml:"if,omitempty"`
	Rejections string `yaml:"ifNot,omitempty"`
	URL        string
	Dest       string
	Sha256     string
	Strip      int
	MarkExec   []string `yaml:"markExec,omitempty"`
}

// ToolManifest is the parsed DEPS.yml.
type ToolManifest struct {
	Vars map[string]string
	Deps map[string]ToolSpec
}

// LoadToolManifest reads DEPS.yml and the stamp file from the project root.
// The raw manifest text is returned as well since the checksum update has
// to rewrite it in place without disturbing comments.
func LoadToolManifest(projectRoot string) (ToolManifest, string, map[string]string, error) {
	var manifest ToolManifest
	cfgPath := filepath.Join(projectRoot, DepsFile)
	cfgData, err := ioutil.ReadFile(cfgPath)
	if err != nil {
		return manifest, "", nil, eris.Wrapf(err, "Could not open file %s.", cfgPath)
	}

	err = yaml.Unmarshal(cfgData, &manifest)
	if err != nil {
		return manifest, "", nil, eris.Wrapf(err, "Failed to parse %s.", cfgPath)
	}

	stamps := map[string]string{}
	stampPath := filepath.Join(projectRoot, StampsFile)
	stampData, err := ioutil.ReadFile(stampPath)
	if err != nil {
		if !eris.Is(err, os.ErrNotExist) {
			return manifest, "", nil, eris.Wrapf(err, "Failed to read stamps file %s.", stampPath)
		}
	} else {
		err = json.Unmarshal(stampData, &stamps)
		if err != nil {
			return manifest, "", nil, eris.Wrapf(err, "Failed to parse JSON file %s.", stampPath)
		}
	}

	return manifest, string(cfgData), stamps, nil
}

// SaveStamps persists the stamp map next to DEPS.yml.
func SaveStamps(projectRoot string, stamps map[string]string) error {
	stampData, err := json.Marshal(stamps)
	if err != nil {
		return eris.Wrap(err, "Failed to serialize stamps")
	}

	stampPath := filepath.Join(projectRoot, StampsFile)
	err = ioutil.WriteFile(stampPath, stampData, os.FileMode(0660))
	if err != nil {
		return eris.Wrapf(err, "Failed to write %s", stampPath)
	}

	return nil
}

var varPattern = regexp.MustCompile(`\{([A-Z0-9_]+)\}`)

// EvalConditions substitutes {VAR} placeholders in the spec's URL and
// checks the if/ifNot condition lists against the given variables. It
// returns false when the spec doesn't apply to this platform.
func EvalConditions(spec *ToolSpec, vars map[string]string) bool {
	spec.URL = varPattern.ReplaceAllStringFunc(spec.URL, func(varName string) string {
		return vars[varName[1:len(varName)-1]]
	})

	for _, condition := range strings.Split(spec.Condition, ",") {
		if condition == "" {
			continue
		}

		if vars[strings.TrimSpace(condition)] == "" {
			return false
		}
	}

	for _, condition := range strings.Split(spec.Rejections, ",") {
		if condition == "" {
			continue
		}

		if vars[strings.TrimSpace(condition)] != "" {
			return false
		}
	}

	return true
}

// PlatformVars returns the implicit condition variables: GOOS, GOARCH and
// ci are set so DEPS.yml entries can select the right archive.
func PlatformVars(manifest ToolManifest) map[string]string {
	vars := map[string]string{}
	for k, v := range manifest.Vars {
		vars[k] = v
	}

	vars[runtime.GOARCH] = "true"
	vars[runtime.GOOS] = "true"
	if os.Getenv("CI") == "true" {
		vars["ci"] = "true"
	}

	return vars
}

// FetchOptions control the tool fetcher.
type FetchOptions struct {
	// Update replaces outdated checksums in DEPS.yml instead of failing.
	Update bool
}

// FetchTools downloads, verifies and unpacks every DEPS.yml entry that
// applies to this platform. Entries whose stamp still matches and whose
// destination exists are skipped.
func FetchTools(projectRoot string, manifest ToolManifest, rawManifest string, stamps map[string]string, opts FetchOptions) error {
	client := &http.Client{
		Timeout: time.Minute * 30,
	}

	vars := PlatformVars(manifest)
	changes := map[string]string{}

	for name, spec := range manifest.Deps {
		// Conditions are evaluated even for skipped entries since that also
		// resolves the URL placeholders the update pass needs.
		applies := EvalConditions(&spec, vars)
		if !applies && !opts.Update {
			continue
		}

		destPath := filepath.Join(projectRoot, spec.Dest)
		destInfo, err := os.Stat(destPath)
		destExists := err == nil

		stampToken := spec.URL + "#" + spec.Sha256
		if stamps[name] == stampToken && destExists {
			continue
		}

		PrintSubtask(name + ":  " + spec.URL)
		if spec.Sha256 == "" && !opts.Update {
			return eris.Errorf("Tool %s doesn't have a checksum", name)
		}

		archive, digest, err := downloadVerified(client, spec.URL)
		if err != nil {
			return err
		}

		if digest != spec.Sha256 {
			if !opts.Update {
				archive.discard()
				return eris.Errorf("Checksum of %s doesn't match (expected %s, got %s)", spec.URL, spec.Sha256, digest)
			}

			fmt.Println("      Updating checksum")
			changes[name] = digest
		}

		if !applies {
			archive.discard()
			continue
		}

		if destExists {
			PrintSubtask(fmt.Sprintf("Remove %s", destPath))
			if destInfo.IsDir() {
				err = os.RemoveAll(destPath)
			} else {
				err = os.Remove(destPath)
			}
			if err != nil {
				archive.discard()
				return eris.Wrapf(err, "Failed to remove %s", destPath)
			}
		}

		err = unpackTool(archive, destPath, spec)
		archive.discard()
		if err != nil {
			return err
		}

		stamps[name] = stampToken
	}

	if opts.Update && len(changes) > 0 {
		PrintTask("Updating " + DepsFile)
		updated, err := updateManifestChecksums(rawManifest, manifest, changes)
		if err != nil {
			return err
		}

		cfgPath := filepath.Join(projectRoot, DepsFile)
		err = ioutil.WriteFile(cfgPath, []byte(updated), os.FileMode(0660))
		if err != nil {
			return eris.Wrapf(err, "Failed to write %s", cfgPath)
		}
	}

	return nil
}

type downloadedArchive struct {
	handle *os.File
	size   int64
}

func (a *downloadedArchive) discard() {
	a.handle.Close()
	os.Remove(a.handle.Name())
}

// downloadVerified streams the given URL into a temporary file, hashing it
// on the way.
func downloadVerified(client *http.Client, url string) (*downloadedArchive, string, error) {
	handle, err := ioutil.TempFile("", "domgen-dl-")
	if err != nil {
		return nil, "", eris.Wrap(err, "Failed to create download file")
	}

	resp, err := client.Get(url)
	if err != nil {
		handle.Close()
		os.Remove(handle.Name())
		return nil, "", eris.Wrapf(err, "Failed to start download for %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		handle.Close()
		os.Remove(handle.Name())
		return nil, "", eris.Errorf("Download of %s failed with status %d", url, resp.StatusCode)
	}

	hash := sha256.New()
	bar := getProgressBar(resp.ContentLength, "     download")
	size, err := io.Copy(io.MultiWriter(handle, hash, bar), resp.Body)
	bar.Finish()
	if err != nil {
		handle.Close()
		os.Remove(handle.Name())
		return nil, "", eris.Wrapf(err, "Failed during download of %s", url)
	}

	return &downloadedArchive{handle: handle, size: size}, hex.EncodeToString(hash.Sum(nil)), nil
}

func unpackTool(archive *downloadedArchive, destPath string, spec ToolSpec) error {
	extractor, err := GetExtractor(spec.URL)
	if err != nil {
		return err
	}

	_, err = archive.handle.Seek(0, io.SeekStart)
	if err != nil {
		return eris.Wrap(err, "Failed to rewind download")
	}

	bar := getProgressBar(archive.size, "      extract")
	err = extractor(archive.handle, bar, destPath, spec.Strip)
	bar.Finish()
	if err != nil {
		return err
	}

	if runtime.GOOS != "windows" {
		// .zip files don't carry permissions which means we have to manually fix permissions for binaries in .zip files
		for _, binPath := range spec.MarkExec {
			binPath = filepath.Join(destPath, binPath)
			fi, err := os.Stat(binPath)
			if err != nil {
				return eris.Wrapf(err, "Failed to read permissions for %s", binPath)
			}

			err = os.Chmod(binPath, fi.Mode()|0700)
			if err != nil {
				return eris.Wrapf(err, "Failed to mark %s as executable", binPath)
			}
		}
	}

	return nil
}

func getProgressBar(length int64, desc string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.DefaultBytes(length, desc)
}

// updateManifestChecksums rewrites the sha256 lines of the changed entries
// without touching the rest of the file (comments included).
func updateManifestChecksums(rawManifest string, manifest ToolManifest, changes map[string]string) (string, error) {
	generated := rawManifest
	for name, newChecksum := range changes {
		pos := strings.Index(generated, name+":\n")
		if pos == -1 {
			return "", eris.Errorf("Failed to find the section for %s!", name)
		}

		oldChecksum := manifest.Deps[name].Sha256
		subPos := strings.Index(generated[pos:], "sha256: "+oldChecksum)
		if subPos == -1 {
			if oldChecksum != "" {
				return "", eris.Errorf("Couldn't find checksum section for %s.", name)
			}

			start := pos + len(name) + 2
			generated = generated[:start] + "    sha256: " + newChecksum + "\n" + generated[start:]
		} else {
			start := pos + subPos + 8
			end := start + len(oldChecksum)
			generated = generated[:start] + newChecksum + generated[end:]
		}
	}

	return generated, nil
}
