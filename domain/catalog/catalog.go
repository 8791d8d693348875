// Package catalog defines catalog specifications (one tabular schema plus its
// validation rules) and validates datasets against them.
package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/artpar/sage/domain/diagnostic"
)

// FieldType is the declared type of a field.
type FieldType string

const (
	TypeText    FieldType = "text"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeDate    FieldType = "date"
)

var fieldTypes = map[FieldType]bool{
	TypeText:    true,
	TypeNumber:  true,
	TypeBoolean: true,
	TypeDate:    true,
}

// FieldSpec declares one expected column and its checks.
type FieldSpec struct {
	Name     string    `yaml:"name"`
	Type     FieldType `yaml:"type"`
	Required bool      `yaml:"required"`
	Unique   bool      `yaml:"unique"`
	Length   int       `yaml:"length"`
	Severity string    `yaml:"severity"`
	Message  string    `yaml:"message"`
	Rule     string    `yaml:"validation_expression"`
}

// DiagnosticSeverity returns the field's severity, defaulting to ERROR.
func (f FieldSpec) DiagnosticSeverity() diagnostic.Severity {
	return diagnostic.ParseSeverity(f.Severity)
}

// Spec is one catalog specification.
type Spec struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Fields      []FieldSpec `yaml:"fields"`
	RowRule     string      `yaml:"row_validation"`
	CatalogRule string      `yaml:"catalog_validation"`
}

type document struct {
	Catalog *Spec `yaml:"catalog"`
}

// ParseSpec decodes and schema-checks a catalog YAML document.
func ParseSpec(data []byte) (*Spec, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if doc.Catalog == nil {
		return nil, fmt.Errorf("missing top-level 'catalog' key")
	}
	if err := doc.Catalog.validateSchema(); err != nil {
		return nil, err
	}
	return doc.Catalog, nil
}

func (s *Spec) validateSchema() error {
	if s.Name == "" {
		return fmt.Errorf("catalog missing 'name'")
	}
	if s.Description == "" {
		return fmt.Errorf("catalog %q missing 'description'", s.Name)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("catalog %q missing 'fields'", s.Name)
	}
	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("catalog %q: field %d missing 'name'", s.Name, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("catalog %q: duplicate field %q", s.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Type == "" {
			return fmt.Errorf("catalog %q: field %q missing 'type'", s.Name, f.Name)
		}
		if !fieldTypes[f.Type] {
			return fmt.Errorf("catalog %q: field %q has invalid type %q", s.Name, f.Name, f.Type)
		}
		if f.Length < 0 {
			return fmt.Errorf("catalog %q: field %q has negative length", s.Name, f.Name)
		}
	}
	return nil
}

// Field returns the field spec by name.
func (s *Spec) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}
