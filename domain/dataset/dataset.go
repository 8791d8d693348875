// Package dataset provides a column-oriented, typed view of tabular data.
// A Dataset is immutable once built; validators and rule evaluation treat it
// as read-only input.
package dataset

import (
	"fmt"
	"strconv"
	"time"
)

// Kind identifies the type of a cell value.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindTime:
		return "date"
	default:
		return "unknown"
	}
}

// Value is a single typed cell.
type Value struct {
	Kind   Kind
	Text   string
	Number float64
	Bool   bool
	Time   time.Time
}

// Null returns the null value.
func Null() Value { return Value{Kind: KindNull} }

// Text wraps a string.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Number wraps a float.
func Number(f float64) Value { return Value{Kind: KindNumber, Number: f} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Time wraps a timestamp.
func Time(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// String renders the value for diagnostics. Null renders as "NULL", matching
// how findings are reported downstream.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindText:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindTime:
		return v.Time.Format("2006-01-02")
	default:
		return ""
	}
}

// DateLayouts are the accepted date formats, tried in order.
var DateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
}

// ParseTime attempts to interpret a value as a timestamp.
func (v Value) ParseTime() (time.Time, bool) {
	switch v.Kind {
	case KindTime:
		return v.Time, true
	case KindText:
		for _, layout := range DateLayouts {
			if t, err := time.Parse(layout, v.Text); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// AsNumber attempts to interpret the value numerically.
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Number, true
	case KindText:
		f, err := strconv.ParseFloat(v.Text, 64)
		return f, err == nil
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Key returns a canonical representation used for duplicate grouping.
// Numeric text and numbers collapse to the same key so a CSV column compares
// consistently regardless of inference.
func (v Value) Key() string {
	if v.Kind == KindText {
		if f, err := strconv.ParseFloat(v.Text, 64); err == nil {
			return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
		}
	}
	if v.Kind == KindNumber {
		return "n:" + strconv.FormatFloat(v.Number, 'g', -1, 64)
	}
	return v.Kind.String() + ":" + v.String()
}

// Equal reports value equality with numeric and date coercion between
// text and typed values.
func (v Value) Equal(o Value) bool {
	if v.Kind == KindNull || o.Kind == KindNull {
		return v.Kind == o.Kind
	}
	if c, ok := v.Compare(o); ok {
		return c == 0
	}
	return false
}

// Compare orders two values, coercing text to numbers or dates when the other
// side is typed. It reports false when the values are not comparable.
func (v Value) Compare(o Value) (int, bool) {
	if v.Kind == KindNull || o.Kind == KindNull {
		return 0, false
	}

	// Numeric comparison when either side is a number.
	if v.Kind == KindNumber || o.Kind == KindNumber {
		a, aok := v.AsNumber()
		b, bok := o.AsNumber()
		if !aok || !bok {
			return 0, false
		}
		return compareFloat(a, b), true
	}

	// Date comparison when either side is a timestamp.
	if v.Kind == KindTime || o.Kind == KindTime {
		a, aok := v.ParseTime()
		b, bok := o.ParseTime()
		if !aok || !bok {
			return 0, false
		}
		switch {
		case a.Before(b):
			return -1, true
		case a.After(b):
			return 1, true
		default:
			return 0, true
		}
	}

	if v.Kind == KindBool && o.Kind == KindBool {
		if v.Bool == o.Bool {
			return 0, true
		}
		if !v.Bool {
			return -1, true
		}
		return 1, true
	}

	if v.Kind == KindText && o.Kind == KindText {
		switch {
		case v.Text < o.Text:
			return -1, true
		case v.Text > o.Text:
			return 1, true
		default:
			return 0, true
		}
	}

	return 0, false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Column is an ordered sequence of values under one name.
type Column struct {
	Name   string
	Values []Value
}

// Dataset is an ordered set of equal-length named columns. Row i of the
// dataset corresponds to line i+2 of the source file (the header is line 1).
type Dataset struct {
	cols  []Column
	index map[string]int
	rows  int
}

// New builds a Dataset, verifying column names are unique and lengths match.
func New(columns ...Column) (*Dataset, error) {
	d := &Dataset{index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if _, dup := d.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			d.rows = len(c.Values)
		} else if len(c.Values) != d.rows {
			return nil, fmt.Errorf("column %q has %d values, want %d", c.Name, len(c.Values), d.rows)
		}
		d.index[c.Name] = i
	}
	d.cols = columns
	return d, nil
}

// Rows returns the number of data rows.
func (d *Dataset) Rows() int { return d.rows }

// Columns returns the column names in declaration order.
func (d *Dataset) Columns() []string {
	names := make([]string, len(d.cols))
	for i, c := range d.cols {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column returns a column by name.
func (d *Dataset) Column(name string) (Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return Column{}, false
	}
	return d.cols[i], true
}

// Cell returns the value at (column, row).
func (d *Dataset) Cell(name string, row int) (Value, bool) {
	i, ok := d.index[name]
	if !ok || row < 0 || row >= d.rows {
		return Value{}, false
	}
	return d.cols[i].Values[row], true
}

// LineOf maps a 0-based row index to its source line number. The header
// occupies line 1, so data row i sits on line i+2.
func LineOf(row int) int { return row + 2 }
