// Package app provides application services that orchestrate domain logic.
package app

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/artpar/sage/domain/bundle"
	"github.com/artpar/sage/domain/catalog"
	"github.com/artpar/sage/domain/sender"
)

// SpecService loads and schema-checks specification documents. Specs are
// loaded once per processing run and immutable for its duration.
type SpecService struct {
	catalogDir string
	logger     zerolog.Logger
}

// NewSpecService creates a spec service rooted at the catalogs directory.
func NewSpecService(catalogDir string, logger zerolog.Logger) *SpecService {
	return &SpecService{
		catalogDir: catalogDir,
		logger:     logger.With().Str("component", "specs").Logger(),
	}
}

// CatalogDir returns the directory catalog spec paths resolve against.
func (s *SpecService) CatalogDir() string { return s.catalogDir }

// LoadCatalog loads a catalog spec. Relative paths resolve against the
// catalogs directory.
func (s *SpecService) LoadCatalog(path string) (*catalog.Spec, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.catalogDir, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, &ConfigError{Path: full, Err: err}
	}
	spec, err := catalog.ParseSpec(data)
	if err != nil {
		return nil, &ConfigError{Path: full, Err: err}
	}
	s.logger.Debug().Str("catalog", spec.Name).Str("path", full).Msg("catalog spec loaded")
	return spec, nil
}

// LoadPackage loads a package spec from an explicit path.
func (s *SpecService) LoadPackage(path string) (*bundle.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	spec, err := bundle.ParseSpec(data)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	s.logger.Debug().Str("package", spec.Name).Str("path", path).Msg("package spec loaded")
	return spec, nil
}

// LoadSenders loads a senders spec from an explicit path.
func (s *SpecService) LoadSenders(path string) (*sender.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	spec, err := sender.ParseSpec(data)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return spec, nil
}
