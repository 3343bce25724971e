// Package config resolves the YAML run configuration plus the
// event-type XML file list: explicit path > env var > default directory,
// files merged with later files winning on key collision.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sentinel errors so callers can branch with errors.Is.
var (
	ErrConfigParse    = errors.New("regulog: invalid config content")
	ErrNoEventTypes   = errors.New("regulog: no event type files configured")
	ErrConfigNotFound = errors.New("regulog: config file not found")
)

const (
	// EnvConfigPath overrides config resolution, matching LOGVIEWER_CONFIG.
	EnvConfigPath = "REGULOG_CONFIG"

	// DefaultConfigDir is the directory under the user's home searched
	// when no explicit path or env var is given.
	DefaultConfigDir = ".regulog"

	// DefaultConfigFile is the config filename inside DefaultConfigDir.
	DefaultConfigFile = "config.yaml"
)

// RunConfig holds the defaults the CLI flags may override.
type RunConfig struct {
	PathFilter        string   `yaml:"path_filter"`
	ArchiveExtensions string   `yaml:"archive_extensions"`
	EventTypeFiles    []string `yaml:"event_type_files"`
	OutputDirectory   string   `yaml:"output_directory"`
	Chronological     bool     `yaml:"chronological"`
}

// ResolveConfigPaths determines which configuration files to load, in
// precedence order: explicitPath, then REGULOG_CONFIG (colon-separated
// list via os.PathListSeparator), then ~/.regulog/config.yaml.
func ResolveConfigPaths(explicitPath string) ([]string, error) {
	var files []string

	switch {
	case strings.TrimSpace(explicitPath) != "":
		files = []string{explicitPath}
	case strings.TrimSpace(os.Getenv(EnvConfigPath)) != "":
		files = strings.Split(os.Getenv(EnvConfigPath), string(os.PathListSeparator))
	default:
		home, err := os.UserHomeDir()
		if err == nil {
			main := filepath.Join(home, DefaultConfigDir, DefaultConfigFile)
			if _, err := os.Stat(main); err == nil {
				files = append(files, main)
			}
		}
	}

	if len(files) == 0 && explicitPath != "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, explicitPath)
	}
	return files, nil
}

// Load resolves and merges every configured YAML file, later files
// winning on scalar-field collision and extending list fields.
func Load(explicitPath string) (*RunConfig, error) {
	files, err := ResolveConfigPaths(explicitPath)
	if err != nil {
		return nil, err
	}

	merged := &RunConfig{
		PathFilter:        `.*\.log$`,
		ArchiveExtensions: ".zip;.tar;.tar.gz;.tgz",
	}

	for _, path := range files {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if explicitPath != "" || os.Getenv(EnvConfigPath) != "" {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			continue
		}
		partial, err := loadSingleFile(path)
		if err != nil {
			return nil, err
		}
		mergeInto(merged, partial)
	}

	return merged, nil
}

func loadSingleFile(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("regulog: reading config %s: %w", path, err)
	}
	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
	}
	return &cfg, nil
}

func mergeInto(dst, src *RunConfig) {
	if src.PathFilter != "" {
		dst.PathFilter = src.PathFilter
	}
	if src.ArchiveExtensions != "" {
		dst.ArchiveExtensions = src.ArchiveExtensions
	}
	if src.OutputDirectory != "" {
		dst.OutputDirectory = src.OutputDirectory
	}
	if src.Chronological {
		dst.Chronological = true
	}
	dst.EventTypeFiles = append(dst.EventTypeFiles, src.EventTypeFiles...)
}
