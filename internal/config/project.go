package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Project represents the top-level waveling.yaml configuration.
type Project struct {
	// Output is the default path for the emitted IR document. Empty means
	// stdout unless overridden on the command line.
	Output string `yaml:"output,omitempty"`

	// Pretty enables indented IR output.
	Pretty bool `yaml:"pretty,omitempty"`

	// Cache configures the compile cache.
	Cache CacheConfig `yaml:"cache,omitempty"`
}

// CacheConfig controls the sqlite-backed compile cache.
type CacheConfig struct {
	// Enabled turns the cache on. Off by default.
	Enabled bool `yaml:"enabled,omitempty"`

	// Path is the cache database location. Defaults to
	// .waveling/cache.db next to the project file.
	Path string `yaml:"path,omitempty"`
}

// LoadProject reads waveling.yaml from dir or any parent directory.
// A missing file is not an error; the zero Project is returned.
func LoadProject(dir string) (*Project, error) {
	path, err := findProjectFile(dir)
	if err != nil || path == "" {
		return &Project{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseProject(data, filepath.Dir(path))
}

// ParseProject decodes a waveling.yaml document. baseDir anchors relative
// defaults like the cache location.
func ParseProject(data []byte, baseDir string) (*Project, error) {
	var proj Project
	if err := yaml.Unmarshal(data, &proj); err != nil {
		return nil, err
	}

	if proj.Cache.Enabled && proj.Cache.Path == "" {
		proj.Cache.Path = filepath.Join(baseDir, ".waveling", "cache.db")
	}

	return &proj, nil
}

func findProjectFile(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ProjectFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
