package dataset

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Dataset is an in-memory table: a header row plus data rows. Cells hold
// whatever the loader produced (string, float64, nil); accessors coerce on
// read so callers never type-switch on raw cells.
type Dataset struct {
	Columns []string
	Rows    [][]interface{}

	colIndex map[string]int
}

// New creates a dataset from a header and rows. Rows shorter than the
// header are padded with nil so column access stays aligned.
func New(columns []string, rows [][]interface{}) *Dataset {
	d := &Dataset{
		Columns: columns,
		Rows:    make([][]interface{}, 0, len(rows)),
	}
	for _, row := range rows {
		if len(row) < len(columns) {
			padded := make([]interface{}, len(columns))
			copy(padded, row)
			row = padded
		}
		d.Rows = append(d.Rows, row[:len(columns)])
	}
	d.reindex()
	return d
}

func (d *Dataset) reindex() {
	d.colIndex = make(map[string]int, len(d.Columns))
	for i, name := range d.Columns {
		d.colIndex[name] = i
	}
}

// NumRows returns the number of data rows
func (d *Dataset) NumRows() int {
	return len(d.Rows)
}

// NumColumns returns the number of columns
func (d *Dataset) NumColumns() int {
	return len(d.Columns)
}

// ColumnIndex returns the position of a column by name
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	idx, ok := d.colIndex[name]
	return idx, ok
}

// HasColumn reports whether the named column exists
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.colIndex[name]
	return ok
}

// Cell returns the raw cell value at (row, column index)
func (d *Dataset) Cell(row, col int) interface{} {
	if row < 0 || row >= len(d.Rows) || col < 0 || col >= len(d.Columns) {
		return nil
	}
	return d.Rows[row][col]
}

// SetCell overwrites the cell at (row, column index)
func (d *Dataset) SetCell(row, col int, value interface{}) {
	if row < 0 || row >= len(d.Rows) || col < 0 || col >= len(d.Columns) {
		return
	}
	d.Rows[row][col] = value
}

// IsMissing reports whether a cell is empty: nil or a blank/placeholder string
func IsMissing(value interface{}) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return true
		}
		switch strings.ToLower(trimmed) {
		case "na", "n/a", "null", "none", "nan", "-":
			return true
		}
	}
	return false
}

// Float coerces the cell at (row, col) to float64. Currency symbols,
// thousands separators and percent signs are stripped before parsing.
func (d *Dataset) Float(row, col int) (float64, bool) {
	return ToFloat(d.Cell(row, col))
}

// String returns the cell at (row, col) as a trimmed string
func (d *Dataset) String(row, col int) string {
	v := d.Cell(row, col)
	if v == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

// ToFloat coerces a single cell value to float64, tolerating the formats
// spreadsheets produce: "$1,200.50", "(300)" for negatives, "12%".
func ToFloat(value interface{}) (float64, bool) {
	if IsMissing(value) {
		return 0, false
	}
	if f, err := cast.ToFloat64E(value); err == nil {
		return f, true
	}
	s, ok := value.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	replacer := strings.NewReplacer("$", "", "€", "", "£", "", ",", "", "%", "", " ", "")
	s = replacer.Replace(s)

	f, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

// FloatColumn returns all coercible values of the named column in row
// order, skipping cells that are missing or non-numeric.
func (d *Dataset) FloatColumn(name string) []float64 {
	idx, ok := d.colIndex[name]
	if !ok {
		return nil
	}
	values := make([]float64, 0, len(d.Rows))
	for _, row := range d.Rows {
		if f, ok := ToFloat(row[idx]); ok {
			values = append(values, f)
		}
	}
	return values
}

// StringColumn returns the named column as trimmed strings, preserving
// row order and keeping empty entries for missing cells.
func (d *Dataset) StringColumn(name string) []string {
	idx, ok := d.colIndex[name]
	if !ok {
		return nil
	}
	values := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		if row[idx] != nil {
			values[i] = strings.TrimSpace(cast.ToString(row[idx]))
		}
	}
	return values
}

// RenameColumn renames a column in place. Renaming to an existing name
// is an error since it would shadow a column.
func (d *Dataset) RenameColumn(from, to string) error {
	idx, ok := d.colIndex[from]
	if !ok {
		return fmt.Errorf("column %q not found", from)
	}
	if from == to {
		return nil
	}
	if _, exists := d.colIndex[to]; exists {
		return fmt.Errorf("column %q already exists", to)
	}
	d.Columns[idx] = to
	d.reindex()
	return nil
}

// Clone returns a deep copy; mutating the copy leaves the original intact
func (d *Dataset) Clone() *Dataset {
	columns := make([]string, len(d.Columns))
	copy(columns, d.Columns)
	rows := make([][]interface{}, len(d.Rows))
	for i, row := range d.Rows {
		rows[i] = make([]interface{}, len(row))
		copy(rows[i], row)
	}
	return New(columns, rows)
}

// DropRows removes the rows at the given indices and returns the number
// removed. Indices outside the dataset are ignored.
func (d *Dataset) DropRows(indices []int) int {
	if len(indices) == 0 {
		return 0
	}
	drop := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(d.Rows) {
			drop[idx] = true
		}
	}
	if len(drop) == 0 {
		return 0
	}
	kept := make([][]interface{}, 0, len(d.Rows)-len(drop))
	for i, row := range d.Rows {
		if !drop[i] {
			kept = append(kept, row)
		}
	}
	d.Rows = kept
	return len(drop)
}

// RowKey builds a fingerprint of a row for duplicate detection
func (d *Dataset) RowKey(row int) string {
	if row < 0 || row >= len(d.Rows) {
		return ""
	}
	var b strings.Builder
	for i, cell := range d.Rows[row] {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		if cell != nil {
			b.WriteString(strings.TrimSpace(strings.ToLower(cast.ToString(cell))))
		}
	}
	return b.String()
}
