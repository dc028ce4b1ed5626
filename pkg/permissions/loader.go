package permissions

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/brokerhive/portal/pkg/observability"
)

// catalogFile is the on-disk shape of a catalog definition.
type catalogFile struct {
	Version    string     `yaml:"version"`
	Categories []Category `yaml:"categories"`
}

// LoadCatalog reads a catalog definition from YAML. The same
// validation as NewCatalog applies, so a file with duplicate or empty
// keys fails here rather than at first use.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if f.Version != "" && f.Version != "v1" {
		return nil, fmt.Errorf("unsupported catalog version %q", f.Version)
	}
	return NewCatalog(f.Categories)
}

// LoadCatalogFile reads a catalog definition from a YAML file.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	catalog, err := LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}
	return catalog, nil
}

// templatesFile is the on-disk shape of role template definitions.
type templatesFile struct {
	Version  string           `yaml:"version"`
	Fallback string           `yaml:"fallback"`
	Roles    map[string][]Key `yaml:"roles"`
}

// LoadTemplates reads role template definitions from YAML and binds
// them to the catalog.
func LoadTemplates(r io.Reader, catalog *Catalog, logger *observability.Logger) (*Templates, error) {
	var f templatesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	if f.Version != "" && f.Version != "v1" {
		return nil, fmt.Errorf("unsupported templates version %q", f.Version)
	}
	return NewTemplates(catalog, f.Roles, f.Fallback, logger)
}
