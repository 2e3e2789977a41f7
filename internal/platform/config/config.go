package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultStateDir = ".cardadapter"
	defaultLogLevel = "info"
)

// Pipeline is the flat plugin configuration as written in config files. Pairs
// are checked later by the pipeline domain, not here.
type Pipeline struct {
	TemplateSelectorInstallPath string `yaml:"templateSelectorInstallPath"`
	TemplateSelectorPackageName string `yaml:"templateSelectorPackageName"`
	PreProcessorInstallPath     string `yaml:"preProcessorInstallPath"`
	PreProcessorPackageName     string `yaml:"preProcessorPackageName"`
	PostProcessorInstallPath    string `yaml:"postProcessorInstallPath"`
	PostProcessorPackageName    string `yaml:"postProcessorPackageName"`
	ForceReinstall              bool   `yaml:"forceReinstall"`
}

type Config struct {
	ProjectRoot     string `yaml:"projectRoot"`
	StateDir        string `yaml:"stateDir"`
	StrictTemplates bool   `yaml:"strictTemplates"`
	LogLevel        string `yaml:"logLevel"`
	DBPath          string `yaml:"-"`
	PluginDir       string `yaml:"-"`

	Pipeline `yaml:",inline"`
}

func New(projectRoot string) (Config, error) {
	if projectRoot == "" {
		return Config{}, fmt.Errorf("project root is required")
	}
	cfg := Config{
		ProjectRoot:     projectRoot,
		StateDir:        defaultStateDir,
		StrictTemplates: true,
		LogLevel:        defaultLogLevel,
	}
	return cfg.finalize(projectRoot)
}

// Load reads a YAML config file. Relative projectRoot and stateDir values are
// resolved against the directory holding the file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Config{
		ProjectRoot:     ".",
		StateDir:        defaultStateDir,
		StrictTemplates: true,
		LogLevel:        defaultLogLevel,
	}
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return Config{}, fmt.Errorf("resolve config dir: %w", err)
	}
	return cfg.finalize(base)
}

func (c Config) finalize(base string) (Config, error) {
	if c.ProjectRoot == "" {
		return Config{}, fmt.Errorf("project root is required")
	}
	if !filepath.IsAbs(c.ProjectRoot) {
		c.ProjectRoot = filepath.Clean(filepath.Join(base, c.ProjectRoot))
	}
	if c.StateDir == "" {
		c.StateDir = defaultStateDir
	}
	if !filepath.IsAbs(c.StateDir) {
		c.StateDir = filepath.Join(c.ProjectRoot, c.StateDir)
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	c.DBPath = filepath.Join(c.StateDir, "cardadapter.db")
	c.PluginDir = filepath.Join(c.StateDir, "plugins")
	return c, nil
}
