// Package diagnostic defines the structured validation findings produced by
// catalog and package validation, and the report that aggregates them.
package diagnostic

import "github.com/artpar/sage/domain/dataset"

// Severity classifies a finding. Only ERROR findings fail a run.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// ParseSeverity normalizes a severity string, defaulting to ERROR.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityWarning:
		return SeverityWarning
	case SeverityInfo:
		return SeverityInfo
	default:
		return SeverityError
	}
}

// Scope marks where in the data a finding applies.
type Scope string

const (
	ScopeField   Scope = "field"
	ScopeRow     Scope = "row"
	ScopeCatalog Scope = "catalog"
	ScopePackage Scope = "package"
)

// Diagnostic is one validation finding. It is created during a single
// validation pass, immutable thereafter, and never persisted.
type Diagnostic struct {
	Severity Severity          `json:"severity"`
	Scope    Scope             `json:"scope"`
	Message  string            `json:"message"`
	Catalog  string            `json:"catalog,omitempty"`
	Field    string            `json:"field,omitempty"`
	Value    *dataset.Value    `json:"-"`
	CellText string            `json:"value,omitempty"`
	Line     int               `json:"line,omitempty"`
	Rule     string            `json:"rule,omitempty"`
	Context  map[string]string `json:"context,omitempty"`
}

// WithValue attaches a cell value, rendering it for transport.
func (d Diagnostic) WithValue(v dataset.Value) Diagnostic {
	d.Value = &v
	d.CellText = v.String()
	return d
}

// Success reports whether a set of findings leaves the run successful:
// true iff no ERROR-severity entry is present.
func Success(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return false
		}
	}
	return true
}

// CountBySeverity tallies findings per severity.
func CountBySeverity(diags []Diagnostic) map[Severity]int {
	counts := make(map[Severity]int)
	for _, d := range diags {
		counts[d.Severity]++
	}
	return counts
}

// Report is the aggregated outcome of one processing run, handed to
// logging and notification collaborators.
type Report struct {
	Package     string             `json:"package"`
	Success     bool               `json:"success"`
	Duplicate   bool               `json:"duplicate,omitempty"`
	Errors      []string           `json:"errors,omitempty"` // structural: resolution, extraction
	Diagnostics []Diagnostic       `json:"diagnostics"`
	RowCounts   map[string]int     `json:"row_counts,omitempty"` // rows per catalog
	Summary     map[Severity]int   `json:"summary,omitempty"`
}

// FirstError returns a one-line description of the first failure in the
// report, preferring structural errors over diagnostics. Empty on success.
func (r *Report) FirstError() string {
	if len(r.Errors) > 0 {
		return r.Errors[0]
	}
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return d.Message
		}
	}
	return ""
}

// Finalize computes the verdict and summary. Overall success requires no
// structural errors and no ERROR-severity diagnostics.
func (r *Report) Finalize() {
	r.Summary = CountBySeverity(r.Diagnostics)
	r.Success = len(r.Errors) == 0 && Success(r.Diagnostics)
}
