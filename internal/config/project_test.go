package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/synthizer/waveling/internal/config"
)

func TestParseProject(t *testing.T) {
	proj, err := config.ParseProject([]byte(`
output: build/out.json
pretty: true
cache:
  enabled: true
`), "/proj")
	if err != nil {
		t.Fatal(err)
	}
	if proj.Output != "build/out.json" || !proj.Pretty {
		t.Errorf("parsed %+v", proj)
	}
	if proj.Cache.Path != filepath.Join("/proj", ".waveling", "cache.db") {
		t.Errorf("default cache path is %q", proj.Cache.Path)
	}
}

func TestLoadProjectWalksUpward(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, config.ProjectFileName), []byte("pretty: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	proj, err := config.LoadProject(sub)
	if err != nil {
		t.Fatal(err)
	}
	if !proj.Pretty {
		t.Error("project file in an ancestor directory was not found")
	}
}

func TestLoadProjectMissingIsZero(t *testing.T) {
	proj, err := config.LoadProject(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if proj.Pretty || proj.Cache.Enabled {
		t.Errorf("missing project file should yield the zero config, got %+v", proj)
	}
}
