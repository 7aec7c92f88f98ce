package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dontdude/tiobot/resources"
)

// Table file names, looked up under RESOURCES_DIR first and then in the embedded defaults.
const (
	QuickMapFile     = "quick_map.yml"
	DefaultLangsFile = "default_langs.yml"
	WrappingFile     = "wrapping.yml"
)

// Tables holds the externally supplied language data. It is read-only after LoadTables.
type Tables struct {
	// QuickAlias maps short hands ("py") to a language or family name.
	QuickAlias map[string]string
	// FamilyDefault maps a family name ("python") to a canonical identifier.
	FamilyDefault map[string]string
	// Wrapping maps a family to a template containing the code placeholder.
	Wrapping map[string]string
	// WrapExcluded lists canonical identifiers that refuse --wrapped even though their family has a template.
	WrapExcluded []string
}

type wrappingFile struct {
	Templates map[string]string `yaml:"templates"`
	Exclude   []string          `yaml:"exclude"`
}

// LoadTables reads the three tables. Files present in dir win over the embedded copies.
func LoadTables(dir string) (*Tables, error) {
	t := &Tables{}

	if err := loadYAML(dir, QuickMapFile, &t.QuickAlias); err != nil {
		return nil, err
	}
	if err := loadYAML(dir, DefaultLangsFile, &t.FamilyDefault); err != nil {
		return nil, err
	}

	var w wrappingFile
	if err := loadYAML(dir, WrappingFile, &w); err != nil {
		return nil, err
	}
	t.Wrapping = w.Templates
	t.WrapExcluded = w.Exclude

	if t.QuickAlias == nil {
		t.QuickAlias = map[string]string{}
	}
	if t.FamilyDefault == nil {
		t.FamilyDefault = map[string]string{}
	}
	if t.Wrapping == nil {
		t.Wrapping = map[string]string{}
	}
	return t, nil
}

func loadYAML(dir, name string, out any) error {
	data, err := readTable(dir, name)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func readTable(dir, name string) ([]byte, error) {
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
	}

	data, err := resources.Eval.ReadFile("eval/" + name)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded %s: %w", name, err)
	}
	return data, nil
}
