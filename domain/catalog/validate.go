package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/artpar/sage/domain/dataset"
	"github.com/artpar/sage/domain/diagnostic"
	"github.com/artpar/sage/domain/expr"
)

// Validator applies one catalog specification to one dataset. The zero value
// is usable; Now only matters for rules using NOW().
type Validator struct {
	Now func() time.Time
}

// Validate applies spec to ds, field by field in declared order, and returns
// the ordered diagnostics. Within a field, findings appear in ascending row
// order; row-rule and catalog-rule findings are appended last. The dataset is
// never mutated.
func Validate(ds *dataset.Dataset, spec *Spec) []diagnostic.Diagnostic {
	return Validator{}.Validate(ds, spec)
}

// Validate is the clock-aware form of the package-level Validate.
func (v Validator) Validate(ds *dataset.Dataset, spec *Spec) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic

	for _, f := range spec.Fields {
		out = append(out, v.validateField(ds, spec, f)...)
	}

	if spec.RowRule != "" {
		out = append(out, v.validateRowRule(ds, spec)...)
	}
	if spec.CatalogRule != "" {
		out = append(out, v.validateCatalogRule(ds, spec)...)
	}

	return out
}

func (v Validator) evaluator() expr.Evaluator {
	return expr.Evaluator{Now: v.Now}
}

func (v Validator) validateField(ds *dataset.Dataset, spec *Spec, f FieldSpec) []diagnostic.Diagnostic {
	sev := f.DiagnosticSeverity()

	if !ds.Has(f.Name) {
		msg := f.Message
		if msg == "" {
			msg = fmt.Sprintf("field not found in data: %s", f.Name)
		}
		return []diagnostic.Diagnostic{{
			Severity: sev,
			Scope:    diagnostic.ScopeField,
			Catalog:  spec.Name,
			Field:    f.Name,
			Message:  msg,
		}}
	}

	var diags []diagnostic.Diagnostic
	if f.Rule != "" {
		diags = v.applyRule(ds, spec, f)
	} else {
		diags = v.applyBuiltins(ds, spec, f)
	}

	// Stable sort keeps check order for findings on the same row.
	sort.SliceStable(diags, func(i, j int) bool { return diags[i].Line < diags[j].Line })
	return diags
}

// applyRule compiles and evaluates a declared field rule. Failures localize
// to this field; a rule that cannot compile or evaluate becomes a single
// ERROR finding and sibling fields still run.
func (v Validator) applyRule(ds *dataset.Dataset, spec *Spec, f FieldSpec) []diagnostic.Diagnostic {
	sev := f.DiagnosticSeverity()

	ex, err := expr.Compile(f.Rule)
	if err != nil {
		return []diagnostic.Diagnostic{evalFailure(spec.Name, f.Name, f.Rule, err)}
	}

	if dupCol, ok := ex.DuplicateColumn(); ok && dupCol == f.Name {
		return v.expandDuplicates(ds, spec.Name, f.Name, sev, f.Message, f.Rule)
	}

	vec, err := v.evaluator().EvalVector(ex, ds)
	if err != nil {
		return []diagnostic.Diagnostic{evalFailure(spec.Name, f.Name, f.Rule, err)}
	}

	related := relatedColumns(ex, f.Name)
	var diags []diagnostic.Diagnostic
	for row, ok := range vec {
		if ok {
			continue
		}
		cell, _ := ds.Cell(f.Name, row)
		d := diagnostic.Diagnostic{
			Severity: sev,
			Scope:    diagnostic.ScopeField,
			Catalog:  spec.Name,
			Field:    f.Name,
			Message:  messageOr(f.Message, fmt.Sprintf("value failed rule: %s", f.Rule)),
			Line:     dataset.LineOf(row),
			Rule:     f.Rule,
			Context:  rowContext(ds, related, row),
		}.WithValue(cell)
		diags = append(diags, d)
	}
	return diags
}

func (v Validator) applyBuiltins(ds *dataset.Dataset, spec *Spec, f FieldSpec) []diagnostic.Diagnostic {
	sev := f.DiagnosticSeverity()
	col, _ := ds.Column(f.Name)
	var diags []diagnostic.Diagnostic

	emit := func(row int, msg string) {
		d := diagnostic.Diagnostic{
			Severity: sev,
			Scope:    diagnostic.ScopeField,
			Catalog:  spec.Name,
			Field:    f.Name,
			Message:  messageOr(f.Message, msg),
			Line:     dataset.LineOf(row),
		}.WithValue(col.Values[row])
		diags = append(diags, d)
	}

	if f.Required {
		for row, cell := range col.Values {
			if cell.IsNull() {
				emit(row, fmt.Sprintf("required value missing for field %s", f.Name))
			}
		}
	}

	for row, cell := range col.Values {
		if cell.IsNull() {
			continue
		}
		if !conforms(f.Type, cell) {
			emit(row, fmt.Sprintf("invalid type, expected %s", f.Type))
		}
	}

	if f.Length > 0 {
		for row, cell := range col.Values {
			if cell.IsNull() {
				continue
			}
			if len(cell.String()) > f.Length {
				emit(row, fmt.Sprintf("value exceeds maximum length of %d", f.Length))
			}
		}
	}

	if f.Unique {
		diags = append(diags, v.expandDuplicates(ds, spec.Name, f.Name, sev, f.Message, "")...)
	}

	return diags
}

// expandDuplicates emits one finding per occurrence of a repeated value, all
// occurrences included, with the colliding value in context.
func (v Validator) expandDuplicates(ds *dataset.Dataset, catalogName, field string, sev diagnostic.Severity, message, rule string) []diagnostic.Diagnostic {
	col, ok := ds.Column(field)
	if !ok {
		return nil
	}
	counts := make(map[string]int, len(col.Values))
	for _, cell := range col.Values {
		if cell.IsNull() {
			continue
		}
		counts[cell.Key()]++
	}

	var diags []diagnostic.Diagnostic
	for row, cell := range col.Values {
		if cell.IsNull() || counts[cell.Key()] < 2 {
			continue
		}
		d := diagnostic.Diagnostic{
			Severity: sev,
			Scope:    diagnostic.ScopeField,
			Catalog:  catalogName,
			Field:    field,
			Message:  messageOr(message, fmt.Sprintf("duplicate value found: %s", cell.String())),
			Line:     dataset.LineOf(row),
			Rule:     rule,
			Context:  map[string]string{"duplicate_value": cell.String()},
		}.WithValue(cell)
		diags = append(diags, d)
	}
	return diags
}

func (v Validator) validateRowRule(ds *dataset.Dataset, spec *Spec) []diagnostic.Diagnostic {
	ex, err := expr.Compile(spec.RowRule)
	if err != nil {
		return []diagnostic.Diagnostic{evalFailure(spec.Name, "", spec.RowRule, err)}
	}
	vec, err := v.evaluator().EvalVector(ex, ds)
	if err != nil {
		return []diagnostic.Diagnostic{evalFailure(spec.Name, "", spec.RowRule, err)}
	}

	cols := ex.Columns()
	var diags []diagnostic.Diagnostic
	for row, ok := range vec {
		if ok {
			continue
		}
		diags = append(diags, diagnostic.Diagnostic{
			Severity: diagnostic.SeverityError,
			Scope:    diagnostic.ScopeRow,
			Catalog:  spec.Name,
			Message:  fmt.Sprintf("row failed rule: %s", spec.RowRule),
			Line:     dataset.LineOf(row),
			Rule:     spec.RowRule,
			Context:  rowContext(ds, cols, row),
		})
	}
	return diags
}

func (v Validator) validateCatalogRule(ds *dataset.Dataset, spec *Spec) []diagnostic.Diagnostic {
	ex, err := expr.Compile(spec.CatalogRule)
	if err != nil {
		return []diagnostic.Diagnostic{evalFailure(spec.Name, "", spec.CatalogRule, err)}
	}
	ok, err := v.evaluator().EvalScalar(ex, ds)
	if err != nil {
		return []diagnostic.Diagnostic{evalFailure(spec.Name, "", spec.CatalogRule, err)}
	}
	if ok {
		return nil
	}
	return []diagnostic.Diagnostic{{
		Severity: diagnostic.SeverityError,
		Scope:    diagnostic.ScopeCatalog,
		Catalog:  spec.Name,
		Message:  fmt.Sprintf("catalog failed rule: %s", spec.CatalogRule),
		Rule:     spec.CatalogRule,
		Context:  map[string]string{"rows": strconv.Itoa(ds.Rows())},
	}}
}

// evalFailure converts a rule compile/evaluate error into a single ERROR
// finding; it is never propagated as a crash.
func evalFailure(catalogName, field, rule string, err error) diagnostic.Diagnostic {
	return diagnostic.Diagnostic{
		Severity: diagnostic.SeverityError,
		Scope:    diagnostic.ScopeField,
		Catalog:  catalogName,
		Field:    field,
		Message:  fmt.Sprintf("error evaluating rule: %v", err),
		Rule:     rule,
	}
}

func relatedColumns(ex *expr.Expr, field string) []string {
	var related []string
	for _, c := range ex.Columns() {
		if c != field {
			related = append(related, c)
		}
	}
	return related
}

func rowContext(ds *dataset.Dataset, cols []string, row int) map[string]string {
	if len(cols) == 0 {
		return nil
	}
	ctx := make(map[string]string, len(cols))
	for _, c := range cols {
		if cell, ok := ds.Cell(c, row); ok {
			ctx[c] = cell.String()
		}
	}
	return ctx
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

func conforms(t FieldType, v dataset.Value) bool {
	switch t {
	case TypeText:
		return true
	case TypeNumber:
		if v.Kind == dataset.KindBool {
			return false
		}
		_, ok := v.AsNumber()
		return ok
	case TypeBoolean:
		if v.Kind == dataset.KindBool {
			return true
		}
		if v.Kind == dataset.KindText {
			s := v.Text
			return s == "true" || s == "false" || s == "TRUE" || s == "FALSE" || s == "True" || s == "False"
		}
		return false
	case TypeDate:
		_, ok := v.ParseTime()
		return ok
	}
	return false
}
