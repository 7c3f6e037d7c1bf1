package manifest

import (
	"fmt"
	"os"

	goversion "github.com/hashicorp/go-version"
	"gopkg.in/yaml.v2"
)

type packageYAML struct {
	Name         string            `yaml:"Name"`
	Version      string            `yaml:"Version"`
	URL          string            `yaml:"URL"`
	Dependencies map[string]string `yaml:"Dependencies"`
}

// Load reads the package manifest at path: an ordered YAML sequence of
// package records. Manifest order is preserved; it is the order packages are
// built in for each platform.
func Load(path string) ([]*Package, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var entries []packageYAML
	if err := yaml.Unmarshal(contents, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	packages := make([]*Package, 0, len(entries))
	for i, entry := range entries {
		pkg, err := newPackage(entry)
		if err != nil {
			return nil, fmt.Errorf("manifest %s, entry %d: %w", path, i, err)
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}

func newPackage(entry packageYAML) (*Package, error) {
	if entry.Name == "" {
		return nil, fmt.Errorf("package has no Name")
	}
	if entry.Version == "" {
		return nil, fmt.Errorf("package %s has no Version", entry.Name)
	}
	if _, err := goversion.NewVersion(entry.Version); err != nil {
		return nil, fmt.Errorf("package %s has malformed version %q: %w", entry.Name, entry.Version, err)
	}
	if entry.URL == "" {
		return nil, fmt.Errorf("package %s has no URL", entry.Name)
	}

	deps := make(map[string]string, len(entry.Dependencies))
	for name, constraint := range entry.Dependencies {
		deps[name] = constraint
	}

	return &Package{
		Name:         entry.Name,
		Version:      entry.Version,
		DownloadURL:  entry.URL,
		Dependencies: deps,
	}, nil
}
