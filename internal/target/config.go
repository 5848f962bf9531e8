package target

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Dir returns the storecheck config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/storecheck if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "storecheck"), nil
}

// targetsFile is the YAML document shape of targets.yaml.
type targetsFile struct {
	Targets []Target `yaml:"targets"`
}

// LoadFile parses a targets YAML file. Targets without a package id are
// rejected; a missing name falls back to the package id.
func LoadFile(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc targetsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(doc.Targets) == 0 {
		return nil, fmt.Errorf("%s declares no targets", path)
	}

	for i := range doc.Targets {
		t := &doc.Targets[i]
		if t.Package == "" {
			return nil, fmt.Errorf("%s: target %d has no package id", path, i)
		}
		if t.Name == "" {
			t.Name = t.Package
		}
		switch t.Locator.Kind {
		case AccessibilityID, ClassName, XPath:
		case "":
			t.Locator.Kind = AccessibilityID
		default:
			return nil, fmt.Errorf("%s: target %s has unknown locator kind %q", path, t.Package, t.Locator.Kind)
		}
	}

	return doc.Targets, nil
}

// Load returns the configured target list. If an explicit path is given
// it must exist; otherwise {config dir}/targets.yaml is used when present
// and the built-in defaults when it is not.
func Load(path string) ([]Target, error) {
	if path != "" {
		return LoadFile(path)
	}

	dir, err := Dir()
	if err != nil {
		return Defaults(), nil
	}

	candidate := filepath.Join(dir, "targets.yaml")
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return Defaults(), nil
	}
	return LoadFile(candidate)
}
