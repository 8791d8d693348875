// Package tabular parses CSV and XLSX files into datasets. Cell values are
// inferred independently of any catalog: empty cells become null, numeric and
// boolean text become typed values, everything else stays text. Date strings
// stay text and are interpreted where rules compare them.
package tabular

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/artpar/sage/domain/dataset"
	"github.com/artpar/sage/ports"
)

// Reader implements ports.DatasetReader for CSV and XLSX files.
type Reader struct{}

var _ ports.DatasetReader = Reader{}

// ReadFile loads a tabular file, dispatching on extension.
func (Reader) ReadFile(path string) (*dataset.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	switch strings.ToUpper(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "CSV":
		return ReadCSV(data)
	case "XLS", "XLSX":
		return ReadXLSX(data)
	}
	return nil, fmt.Errorf("unsupported tabular file %q", filepath.Base(path))
}

// fromRecords builds a dataset from header + data rows, padding ragged rows
// with nulls.
func fromRecords(records [][]string) (*dataset.Dataset, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("file has no header row")
	}
	header := records[0]
	if len(header) == 0 {
		return nil, fmt.Errorf("file has an empty header row")
	}

	cols := make([]dataset.Column, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("header column %d is empty", i+1)
		}
		cols[i] = dataset.Column{
			Name:   name,
			Values: make([]dataset.Value, len(records)-1),
		}
	}

	for r, rec := range records[1:] {
		for c := range cols {
			if c < len(rec) {
				cols[c].Values[r] = inferCell(rec[c])
			} else {
				cols[c].Values[r] = dataset.Null()
			}
		}
	}

	return dataset.New(cols...)
}

// inferCell types a raw cell string.
func inferCell(raw string) dataset.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return dataset.Null()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return dataset.Number(f)
	}
	switch s {
	case "true", "TRUE", "True":
		return dataset.Bool(true)
	case "false", "FALSE", "False":
		return dataset.Bool(false)
	}
	return dataset.Text(s)
}
