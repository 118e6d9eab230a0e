package pkg

import (
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// NamePlaceholder is substituted with the bundle name when the output
// filename template is resolved.
const NamePlaceholder = "[name]"

// StylesConfig describes the style compilation step.
type StylesConfig struct {
	Source       string   `yaml:"source"`
	Dest         string   `yaml:"dest"`
	Style        string   `yaml:"style"`
	SourceMap    bool     `yaml:"sourceMap"`
	IncludePaths []string `yaml:"includePaths"`
}

// ScriptsConfig describes the bundling step.
type ScriptsConfig struct {
	Entry    map[string]string `yaml:"entry"`
	Filename string            `yaml:"filename"`
	Dest     string            `yaml:"dest"`
	Minify   bool              `yaml:"minify"`
}

// HooksConfig lists shell snippets which run around the pipeline.
type HooksConfig struct {
	Pre  []string `yaml:"pre"`
	Post []string `yaml:"post"`
}

// Config is the parsed assets.yml. It's loaded once per invocation and
// never modified afterwards.
type Config struct {
	Styles  StylesConfig  `yaml:"styles"`
	Scripts ScriptsConfig `yaml:"scripts"`
	Hooks   HooksConfig   `yaml:"hooks"`

	root string
}

// LoadConfig reads and validates the assets.yml in the given project root.
func LoadConfig(projectRoot string) (*Config, error) {
	cfgPath := filepath.Join(projectRoot, ConfigFile)
	cfgData, err := ioutil.ReadFile(cfgPath)
	if err != nil {
		return nil, eris.Wrapf(err, "Could not open file %s.", cfgPath)
	}

	cfg := Config{
		Styles: StylesConfig{
			Style: "compressed",
		},
		Scripts: ScriptsConfig{
			Filename: NamePlaceholder + ".js",
			Minify:   true,
		},
	}
	err = yaml.Unmarshal(cfgData, &cfg)
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to parse %s.", cfgPath)
	}

	cfg.root = projectRoot
	err = cfg.validate()
	if err != nil {
		return nil, eris.Wrapf(err, "Invalid configuration in %s", cfgPath)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Styles.Source == "" {
		return eris.New("styles.source is missing")
	}

	if c.Styles.Dest == "" {
		return eris.New("styles.dest is missing")
	}

	if c.Styles.Style != "compressed" && c.Styles.Style != "expanded" {
		return eris.Errorf("styles.style must be \"compressed\" or \"expanded\", not %q", c.Styles.Style)
	}

	if len(c.Scripts.Entry) == 0 {
		return eris.New("scripts.entry must contain at least one bundle")
	}

	if c.Scripts.Dest == "" {
		return eris.New("scripts.dest is missing")
	}

	if !strings.Contains(c.Scripts.Filename, NamePlaceholder) {
		return eris.Errorf("scripts.filename %q doesn't contain the %s placeholder", c.Scripts.Filename, NamePlaceholder)
	}

	for name, entry := range c.Scripts.Entry {
		if entry == "" {
			return eris.Errorf("scripts.entry.%s has no entry point", name)
		}
	}

	return nil
}

// Root returns the project root the configuration was loaded from.
func (c *Config) Root() string {
	return c.root
}

// AbsPath resolves the given config path against the project root.
func (c *Config) AbsPath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(c.root, path)
}

// ResolveBundleFilename substitutes the bundle name into the filename
// template from scripts.filename.
func ResolveBundleFilename(template, name string) string {
	return strings.ReplaceAll(template, NamePlaceholder, name)
}
