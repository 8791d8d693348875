// Package bundle defines package specifications: submittable bundles that
// reference one or more catalogs and declare an expected file format.
package bundle

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the expected artifact format of a package.
type Format string

const (
	FormatCSV  Format = "CSV"
	FormatXLSX Format = "XLSX"
	FormatZIP  Format = "ZIP"
)

// ParseFormat normalizes a declared format string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToUpper(s)) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, "XLS":
		return FormatXLSX, nil
	case FormatZIP:
		return FormatZIP, nil
	}
	return "", fmt.Errorf("unsupported file format %q", s)
}

// FormatFromFilename maps a filename extension to its format.
// XLS and XLSX collapse to XLSX.
func FormatFromFilename(name string) (Format, error) {
	ext := strings.ToUpper(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "CSV":
		return FormatCSV, nil
	case "XLS", "XLSX":
		return FormatXLSX, nil
	case "ZIP":
		return FormatZIP, nil
	}
	return "", fmt.Errorf("unsupported file extension %q", ext)
}

// CatalogRef binds one expected member file to the catalog that validates it.
type CatalogRef struct {
	Name            string `yaml:"name"`
	Path            string `yaml:"path"`
	Filename        string `yaml:"filename"`
	FilenamePattern string `yaml:"filename_pattern"`
}

// Rule is a package-level validation rule.
type Rule struct {
	Name string `yaml:"name"`
	Rule string `yaml:"validation_expression"`
}

// Spec is one package specification.
type Spec struct {
	Name            string
	Description     string
	Format          Format
	FilenamePattern string
	Catalogs        []CatalogRef
	Rules           []Rule
}

type specDoc struct {
	Package *packageDoc `yaml:"package"`
}

type packageDoc struct {
	Name            string                `yaml:"name"`
	Description     string                `yaml:"description"`
	FilenamePattern string                `yaml:"filename_pattern"`
	Methods         methodsDoc            `yaml:"methods"`
	Catalogs        []CatalogRef          `yaml:"catalogs"`
	Components      map[string]yaml.Node  `yaml:"components"`
	Validation      *packageValidationDoc `yaml:"package_validation"`
}

type methodsDoc struct {
	FileFormat fileFormatDoc `yaml:"file_format"`
}

type fileFormatDoc struct {
	Type string `yaml:"type"`
}

type packageValidationDoc struct {
	Rules []Rule `yaml:"validation_rules"`
}

// ParseSpec decodes and schema-checks a package YAML document. Legacy
// `components` maps are normalized into CatalogRefs by stripping the member's
// extension and assuming a sibling `<name>.yaml` spec.
func ParseSpec(data []byte) (*Spec, error) {
	var doc specDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse package: %w", err)
	}
	if doc.Package == nil {
		return nil, fmt.Errorf("missing top-level 'package' key")
	}
	p := doc.Package

	if p.Name == "" {
		return nil, fmt.Errorf("package missing 'name'")
	}
	if p.Description == "" {
		return nil, fmt.Errorf("package %q missing 'description'", p.Name)
	}
	if p.Methods.FileFormat.Type == "" {
		return nil, fmt.Errorf("package %q missing 'methods.file_format.type'", p.Name)
	}
	format, err := ParseFormat(p.Methods.FileFormat.Type)
	if err != nil {
		return nil, fmt.Errorf("package %q: %w", p.Name, err)
	}

	spec := &Spec{
		Name:            p.Name,
		Description:     p.Description,
		Format:          format,
		FilenamePattern: p.FilenamePattern,
	}

	switch {
	case len(p.Catalogs) > 0:
		for i, ref := range p.Catalogs {
			if ref.Path == "" {
				return nil, fmt.Errorf("package %q: catalog %d missing 'path'", p.Name, i)
			}
			if ref.Name == "" {
				base := filepath.Base(ref.Path)
				ref.Name = strings.TrimSuffix(base, filepath.Ext(base))
			}
			spec.Catalogs = append(spec.Catalogs, ref)
		}
	case len(p.Components) > 0:
		spec.Catalogs = legacyComponents(p.Components)
	default:
		return nil, fmt.Errorf("package %q: no catalogs defined", p.Name)
	}

	if p.Validation != nil {
		for i, r := range p.Validation.Rules {
			if r.Name == "" {
				return nil, fmt.Errorf("package %q: validation rule %d missing 'name'", p.Name, i)
			}
			if r.Rule == "" {
				return nil, fmt.Errorf("package %q: validation rule %q missing 'validation_expression'", p.Name, r.Name)
			}
		}
		spec.Rules = p.Validation.Rules
	}

	return spec, nil
}

// MatchesFilename reports whether an artifact filename matches the package's
// declared filename pattern. A package without a pattern matches nothing.
func (s *Spec) MatchesFilename(name string) bool {
	if s.FilenamePattern == "" {
		return false
	}
	re, err := regexp.Compile(s.FilenamePattern)
	if err != nil {
		return false
	}
	return re.MatchString(name)
}

// legacyComponents converts the old member-file map into catalog references.
// Map order is not stable in YAML, so entries are sorted by member name.
func legacyComponents(components map[string]yaml.Node) []CatalogRef {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)

	refs := make([]CatalogRef, 0, len(names))
	for _, name := range names {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		refs = append(refs, CatalogRef{
			Name:     base,
			Path:     base + ".yaml",
			Filename: name,
		})
	}
	return refs
}
