package tabular_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/artpar/sage/adapters/tabular"
	"github.com/artpar/sage/domain/dataset"
)

func TestReadCSV(t *testing.T) {
	data := []byte("name,amount,active\nAlice,100,true\nBob,,false\n")

	ds, err := tabular.ReadCSV(data)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if ds.Rows() != 2 {
		t.Fatalf("rows = %d, want 2", ds.Rows())
	}

	cell, _ := ds.Cell("name", 0)
	if cell.Kind != dataset.KindText || cell.Text != "Alice" {
		t.Errorf("name[0] = %v", cell)
	}
	cell, _ = ds.Cell("amount", 0)
	if cell.Kind != dataset.KindNumber || cell.Number != 100 {
		t.Errorf("amount[0] = %v", cell)
	}
	cell, _ = ds.Cell("amount", 1)
	if !cell.IsNull() {
		t.Errorf("amount[1] = %v, want null", cell)
	}
	cell, _ = ds.Cell("active", 1)
	if cell.Kind != dataset.KindBool || cell.Bool {
		t.Errorf("active[1] = %v, want false", cell)
	}
}

func TestReadCSV_RaggedRowsPadWithNull(t *testing.T) {
	data := []byte("a,b,c\n1,2\n4,5,6\n")

	ds, err := tabular.ReadCSV(data)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	cell, ok := ds.Cell("c", 0)
	if !ok || !cell.IsNull() {
		t.Errorf("c[0] = %v, want null", cell)
	}
	cell, _ = ds.Cell("c", 1)
	if cell.Number != 6 {
		t.Errorf("c[1] = %v, want 6", cell)
	}
}

func TestReadCSV_InvalidUTF8(t *testing.T) {
	data := []byte("name\n")
	data = append(data, 0xff, 0xfe, '\n')

	ds, err := tabular.ReadCSV(data)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if ds.Rows() != 1 {
		t.Errorf("rows = %d, want 1", ds.Rows())
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty file", nil},
		{"blank header cell", []byte("a,,c\n1,2,3\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tabular.ReadCSV(tt.data); err == nil {
				t.Error("ReadCSV succeeded, want error")
			}
		})
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"name", "amount"},
		{"Alice", 100},
		{"Bob", nil},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	ds, err := tabular.ReadXLSX(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if ds.Rows() != 2 {
		t.Fatalf("rows = %d, want 2", ds.Rows())
	}
	cell, _ := ds.Cell("amount", 0)
	if cell.Kind != dataset.KindNumber || cell.Number != 100 {
		t.Errorf("amount[0] = %v", cell)
	}
	cell, ok := ds.Cell("amount", 1)
	if !ok || !cell.IsNull() {
		t.Errorf("amount[1] = %v, want null", cell)
	}
}

func TestReadFile_Dispatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte("a\n1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ds, err := tabular.Reader{}.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if ds.Rows() != 1 {
		t.Errorf("rows = %d, want 1", ds.Rows())
	}

	bad := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(bad, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := (tabular.Reader{}).ReadFile(bad); err == nil {
		t.Error("ReadFile accepted unsupported extension")
	}
}
