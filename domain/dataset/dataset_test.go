package dataset_test

import (
	"testing"
	"time"

	"github.com/artpar/sage/domain/dataset"
)

func TestLineOf(t *testing.T) {
	// Line 1 is the header, so row 0 sits on line 2.
	tests := []struct{ row, line int }{
		{0, 2},
		{1, 3},
		{99, 101},
	}
	for _, tt := range tests {
		if got := dataset.LineOf(tt.row); got != tt.line {
			t.Errorf("LineOf(%d) = %d, want %d", tt.row, got, tt.line)
		}
	}
}

func TestNew_RejectsRaggedColumns(t *testing.T) {
	_, err := dataset.New(
		dataset.Column{Name: "a", Values: []dataset.Value{dataset.Number(1)}},
		dataset.Column{Name: "b", Values: []dataset.Value{dataset.Number(1), dataset.Number(2)}},
	)
	if err == nil {
		t.Error("New accepted columns of different lengths")
	}
}

func TestNew_RejectsDuplicateColumns(t *testing.T) {
	_, err := dataset.New(
		dataset.Column{Name: "a"},
		dataset.Column{Name: "a"},
	)
	if err == nil {
		t.Error("New accepted duplicate column names")
	}
}

func TestValueKey_NumericTextCollapses(t *testing.T) {
	tests := []struct {
		a, b dataset.Value
		same bool
	}{
		{dataset.Number(100), dataset.Text("100"), true},
		{dataset.Text("1.50"), dataset.Text("1.5"), true},
		{dataset.Text("abc"), dataset.Text("abc"), true},
		{dataset.Text("abc"), dataset.Text("abd"), false},
		{dataset.Number(1), dataset.Number(2), false},
	}
	for _, tt := range tests {
		if got := tt.a.Key() == tt.b.Key(); got != tt.same {
			t.Errorf("Key(%v) == Key(%v) = %v, want %v", tt.a, tt.b, got, tt.same)
		}
	}
}

func TestValueCompare_Coercion(t *testing.T) {
	tests := []struct {
		name string
		a, b dataset.Value
		want int
		ok   bool
	}{
		{"numbers", dataset.Number(1), dataset.Number(2), -1, true},
		{"numeric text vs number", dataset.Text("10"), dataset.Number(2), 1, true},
		{"date text vs time", dataset.Text("2024-01-02"), dataset.Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), 1, true},
		{"text vs text", dataset.Text("a"), dataset.Text("b"), -1, true},
		{"incomparable", dataset.Text("abc"), dataset.Number(1), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.a.Compare(tt.b)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("Compare = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    dataset.Value
		want string
	}{
		{dataset.Null(), "NULL"},
		{dataset.Text("x"), "x"},
		{dataset.Number(1.5), "1.5"},
		{dataset.Number(3), "3"},
		{dataset.Bool(true), "true"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String(%v) = %q, want %q", tt.v.Kind, got, tt.want)
		}
	}
}

func TestDatasetAccessors(t *testing.T) {
	ds, err := dataset.New(
		dataset.Column{Name: "a", Values: []dataset.Value{dataset.Number(1), dataset.Number(2)}},
		dataset.Column{Name: "b", Values: []dataset.Value{dataset.Text("x"), dataset.Text("y")}},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if ds.Rows() != 2 {
		t.Errorf("Rows = %d, want 2", ds.Rows())
	}
	if !ds.Has("a") || ds.Has("c") {
		t.Error("Has misreports columns")
	}
	cell, ok := ds.Cell("b", 1)
	if !ok || cell.Text != "y" {
		t.Errorf("Cell(b, 1) = %v, %v", cell, ok)
	}
	if _, ok := ds.Cell("b", 2); ok {
		t.Error("Cell out of range must not resolve")
	}
	cols := ds.Columns()
	if len(cols) != 2 || cols[0] != "a" || cols[1] != "b" {
		t.Errorf("Columns = %v", cols)
	}
}
