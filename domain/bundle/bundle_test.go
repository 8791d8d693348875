package bundle_test

import (
	"testing"

	"github.com/artpar/sage/domain/bundle"
)

const packageYAML = `
package:
  name: monthly_report
  description: Monthly financial report
  filename_pattern: "^monthly_.*\\.zip$"
  methods:
    file_format:
      type: ZIP
  catalogs:
    - name: payments
      path: payments.yaml
      filename: payments.csv
    - path: specs/customers.yaml
      filename_pattern: "^cust.*\\.csv$"
  package_validation:
    validation_rules:
      - name: non_empty
        validation_expression: COUNT() > 0
`

func TestParseSpec(t *testing.T) {
	spec, err := bundle.ParseSpec([]byte(packageYAML))
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}
	if spec.Name != "monthly_report" {
		t.Errorf("name = %q", spec.Name)
	}
	if spec.Format != bundle.FormatZIP {
		t.Errorf("format = %s, want ZIP", spec.Format)
	}
	if len(spec.Catalogs) != 2 {
		t.Fatalf("got %d catalogs, want 2", len(spec.Catalogs))
	}
	if spec.Catalogs[0].Name != "payments" || spec.Catalogs[0].Filename != "payments.csv" {
		t.Errorf("catalog 0 = %+v", spec.Catalogs[0])
	}
	// A ref without a name takes its spec file's stem.
	if spec.Catalogs[1].Name != "customers" {
		t.Errorf("catalog 1 name = %q, want customers", spec.Catalogs[1].Name)
	}
	if len(spec.Rules) != 1 || spec.Rules[0].Name != "non_empty" {
		t.Errorf("rules = %+v", spec.Rules)
	}
}

func TestParseSpec_LegacyComponents(t *testing.T) {
	src := `
package:
  name: legacy
  description: Legacy component map
  methods:
    file_format:
      type: CSV
  components:
    customers.csv: {}
    accounts.csv: {}
`
	spec, err := bundle.ParseSpec([]byte(src))
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}
	if len(spec.Catalogs) != 2 {
		t.Fatalf("got %d catalogs, want 2", len(spec.Catalogs))
	}
	// Entries come out sorted by member name with sibling yaml spec paths.
	if spec.Catalogs[0].Name != "accounts" || spec.Catalogs[0].Path != "accounts.yaml" {
		t.Errorf("catalog 0 = %+v", spec.Catalogs[0])
	}
	if spec.Catalogs[0].Filename != "accounts.csv" {
		t.Errorf("catalog 0 filename = %q", spec.Catalogs[0].Filename)
	}
	if spec.Catalogs[1].Name != "customers" {
		t.Errorf("catalog 1 = %+v", spec.Catalogs[1])
	}
}

func TestParseSpec_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no package key", "catalog:\n  name: x\n"},
		{"missing name", "package:\n  description: d\n  methods:\n    file_format:\n      type: CSV\n  catalogs:\n    - path: a.yaml\n"},
		{"missing description", "package:\n  name: p\n  methods:\n    file_format:\n      type: CSV\n  catalogs:\n    - path: a.yaml\n"},
		{"missing format", "package:\n  name: p\n  description: d\n  catalogs:\n    - path: a.yaml\n"},
		{"bad format", "package:\n  name: p\n  description: d\n  methods:\n    file_format:\n      type: PDF\n  catalogs:\n    - path: a.yaml\n"},
		{"no catalogs", "package:\n  name: p\n  description: d\n  methods:\n    file_format:\n      type: CSV\n"},
		{"catalog without path", "package:\n  name: p\n  description: d\n  methods:\n    file_format:\n      type: CSV\n  catalogs:\n    - name: a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := bundle.ParseSpec([]byte(tt.src)); err == nil {
				t.Error("ParseSpec succeeded, want error")
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    bundle.Format
		wantErr bool
	}{
		{"CSV", bundle.FormatCSV, false},
		{"csv", bundle.FormatCSV, false},
		{"XLSX", bundle.FormatXLSX, false},
		{"XLS", bundle.FormatXLSX, false},
		{"zip", bundle.FormatZIP, false},
		{"PDF", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := bundle.ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("format = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		in      string
		want    bundle.Format
		wantErr bool
	}{
		{"data.csv", bundle.FormatCSV, false},
		{"data.CSV", bundle.FormatCSV, false},
		{"report.xlsx", bundle.FormatXLSX, false},
		{"report.xls", bundle.FormatXLSX, false},
		{"bundle.zip", bundle.FormatZIP, false},
		{"notes.txt", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := bundle.FormatFromFilename(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("format = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMatchesFilename(t *testing.T) {
	spec, err := bundle.ParseSpec([]byte(packageYAML))
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}
	if !spec.MatchesFilename("monthly_2024_01.zip") {
		t.Error("expected pattern match")
	}
	if spec.MatchesFilename("yearly_2024.zip") {
		t.Error("unexpected pattern match")
	}

	noPattern := &bundle.Spec{Name: "p"}
	if noPattern.MatchesFilename("p.zip") {
		t.Error("spec without pattern must match nothing")
	}
}
