package expr_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/artpar/sage/domain/dataset"
	"github.com/artpar/sage/domain/expr"
)

func mustDataset(t *testing.T, columns ...dataset.Column) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(columns...)
	if err != nil {
		t.Fatalf("New dataset: %v", err)
	}
	return ds
}

func amounts(values ...float64) dataset.Column {
	col := dataset.Column{Name: "amount"}
	for _, v := range values {
		col.Values = append(col.Values, dataset.Number(v))
	}
	return col
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"dangling operator", "amount >"},
		{"unbalanced paren", "(amount > 1"},
		{"trailing garbage", "amount > 1 2"},
		{"bad in list", "status IN ()"},
		{"is without null", "amount IS"},
		{"bad regex", "MATCHES(code, '[')"},
		{"duplicated without column", "DUPLICATED()"},
		{"sum without column", "SUM()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := expr.Compile(tt.src); err == nil {
				t.Errorf("Compile(%q) succeeded, want error", tt.src)
			}
		})
	}
}

func TestEvalVector_Comparisons(t *testing.T) {
	ds := mustDataset(t, amounts(5, 10, 15))

	tests := []struct {
		src  string
		want []bool
	}{
		{"amount > 5", []bool{false, true, true}},
		{"amount >= 5", []bool{true, true, true}},
		{"amount < 10", []bool{true, false, false}},
		{"amount <= 10", []bool{true, true, false}},
		{"amount == 10", []bool{false, true, false}},
		{"amount != 10", []bool{true, false, true}},
		{"amount > 0 AND amount < 12", []bool{true, true, false}},
		{"amount < 7 OR amount > 12", []bool{true, false, true}},
		{"NOT amount > 5", []bool{true, false, false}},
		{"amount * 2 <= 20", []bool{true, true, false}},
		{"amount + 5 == 10", []bool{true, false, false}},
		{"-amount < -9", []bool{false, true, true}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			ex, err := expr.Compile(tt.src)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			got, err := ex.EvalVector(ds)
			if err != nil {
				t.Fatalf("EvalVector: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("EvalVector = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvalVector_NullSemantics(t *testing.T) {
	ds := mustDataset(t, dataset.Column{
		Name:   "amount",
		Values: []dataset.Value{dataset.Number(5), dataset.Null(), dataset.Number(20)},
	})

	tests := []struct {
		src  string
		want []bool
	}{
		// Comparisons against null fail rather than error.
		{"amount > 1", []bool{true, false, true}},
		{"amount == 5", []bool{true, false, false}},
		{"amount IS NULL", []bool{false, true, false}},
		{"amount IS NOT NULL", []bool{true, false, true}},
		// Arithmetic with null yields null, which is falsy.
		{"amount + 1 > 0", []bool{true, false, true}},
		// Division by zero yields null.
		{"amount / 0 IS NULL", []bool{true, true, true}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			ex, err := expr.Compile(tt.src)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			got, err := ex.EvalVector(ds)
			if err != nil {
				t.Fatalf("EvalVector: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("EvalVector = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvalVector_InAndMatches(t *testing.T) {
	ds := mustDataset(t, dataset.Column{
		Name: "status",
		Values: []dataset.Value{
			dataset.Text("active"),
			dataset.Text("retired"),
			dataset.Null(),
		},
	})

	tests := []struct {
		src  string
		want []bool
	}{
		{"status IN ('active', 'pending')", []bool{true, false, false}},
		{"status NOT IN ('active', 'pending')", []bool{false, true, true}},
		{"MATCHES(status, '^act')", []bool{true, false, false}},
		{"MATCHES(status, 'ed$')", []bool{false, true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			ex, err := expr.Compile(tt.src)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			got, err := ex.EvalVector(ds)
			if err != nil {
				t.Fatalf("EvalVector: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("EvalVector = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvalVector_Duplicated(t *testing.T) {
	ds := mustDataset(t, dataset.Column{
		Name: "code",
		Values: []dataset.Value{
			dataset.Text("A"),
			dataset.Text("A"),
			dataset.Text("B"),
			dataset.Null(),
			dataset.Null(),
		},
	})

	ex, err := expr.Compile("NOT DUPLICATED(code)")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got, err := ex.EvalVector(ds)
	if err != nil {
		t.Fatalf("EvalVector: %v", err)
	}
	// Both occurrences of A flag as duplicates; nulls never do.
	want := []bool{false, false, true, true, true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EvalVector = %v, want %v", got, want)
	}
}

func TestEvalVector_DuplicatedNumericTextCollision(t *testing.T) {
	ds := mustDataset(t, dataset.Column{
		Name: "id",
		Values: []dataset.Value{
			dataset.Number(100),
			dataset.Text("100"),
			dataset.Text("200"),
		},
	})

	ex, err := expr.Compile("DUPLICATED(id)")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got, err := ex.EvalVector(ds)
	if err != nil {
		t.Fatalf("EvalVector: %v", err)
	}
	want := []bool{true, true, false}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EvalVector = %v, want %v", got, want)
	}
}

func TestEvalVector_Dates(t *testing.T) {
	ds := mustDataset(t, dataset.Column{
		Name: "signed",
		Values: []dataset.Value{
			dataset.Text("2024-01-15"),
			dataset.Text("2025-06-01"),
		},
	})

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ev := expr.Evaluator{Now: func() time.Time { return now }}

	tests := []struct {
		src  string
		want []bool
	}{
		{`signed > DATE "2024-01-01"`, []bool{true, true}},
		{`signed < DATE "2024-12-31"`, []bool{true, false}},
		{"signed < NOW()", []bool{true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			ex, err := expr.Compile(tt.src)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			got, err := ev.EvalVector(ex, ds)
			if err != nil {
				t.Fatalf("EvalVector: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("EvalVector = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvalScalar_Aggregates(t *testing.T) {
	ds := mustDataset(t, amounts(5, 10, 15))

	tests := []struct {
		src  string
		want bool
	}{
		{"COUNT() == 3", true},
		{"COUNT() > 5", false},
		{"SUM(amount) == 30", true},
		{"AVG(amount) == 10", true},
		{"MIN(amount) >= 5", true},
		{"MAX(amount) <= 12", false},
		{"SUM(amount) / COUNT() == 10", true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			ex, err := expr.Compile(tt.src)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			got, err := ex.EvalScalar(ds)
			if err != nil {
				t.Fatalf("EvalScalar: %v", err)
			}
			if got != tt.want {
				t.Errorf("EvalScalar = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvalScalar_NonAggregateRequiresAllRows(t *testing.T) {
	ds := mustDataset(t, amounts(5, 10, 15))

	ex, err := expr.Compile("amount > 0")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	ok, err := ex.EvalScalar(ds)
	if err != nil {
		t.Fatalf("EvalScalar: %v", err)
	}
	if !ok {
		t.Error("EvalScalar = false, want true when every row passes")
	}

	ex, err = expr.Compile("amount > 5")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	ok, err = ex.EvalScalar(ds)
	if err != nil {
		t.Fatalf("EvalScalar: %v", err)
	}
	if ok {
		t.Error("EvalScalar = true, want false when any row fails")
	}
}

func TestEvalVector_MissingColumn(t *testing.T) {
	ds := mustDataset(t, amounts(1))

	ex, err := expr.Compile("missing > 1")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := ex.EvalVector(ds); err == nil {
		t.Error("EvalVector succeeded, want error for missing column")
	}
}

func TestColumns(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"amount > 1", []string{"amount"}},
		{"amount > 1 AND status IN ('a')", []string{"amount", "status"}},
		{"NOT DUPLICATED(code)", []string{"code"}},
		{"SUM(amount) > COUNT()", []string{"amount"}},
		{"amount > amount", []string{"amount"}},
		{"COUNT() > 0", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			ex, err := expr.Compile(tt.src)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			got := ex.Columns()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Columns = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDuplicateColumn(t *testing.T) {
	tests := []struct {
		src      string
		wantCol  string
		detected bool
	}{
		{"DUPLICATED(code)", "code", true},
		{"NOT DUPLICATED(code)", "code", true},
		{"DUPLICATED(code) AND amount > 1", "", false},
		{"amount > 1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			ex, err := expr.Compile(tt.src)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			col, ok := ex.DuplicateColumn()
			if ok != tt.detected || col != tt.wantCol {
				t.Errorf("DuplicateColumn = (%q, %v), want (%q, %v)", col, ok, tt.wantCol, tt.detected)
			}
		})
	}
}
