package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Dataset {
	return New(
		[]string{"sku", "quantity", "unit_cost"},
		[][]interface{}{
			{"A-1", "10", "$1,200.50"},
			{"A-2", "5", "99"},
			{"A-3", nil, "(300)"},
		},
	)
}

func TestNewPadsShortRows(t *testing.T) {
	d := New([]string{"a", "b", "c"}, [][]interface{}{{"x"}})
	require.Equal(t, 1, d.NumRows())
	assert.Nil(t, d.Cell(0, 1))
	assert.Nil(t, d.Cell(0, 2))
}

func TestFloatCoercion(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  float64
		ok    bool
	}{
		{"plain number", "42", 42, true},
		{"float", 3.5, 3.5, true},
		{"currency with separators", "$1,200.50", 1200.50, true},
		{"euro", "€99", 99, true},
		{"accounting negative", "(300)", -300, true},
		{"percent", "12%", 12, true},
		{"nil", nil, 0, false},
		{"blank", "   ", 0, false},
		{"na placeholder", "N/A", 0, false},
		{"text", "hello", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToFloat(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 0.001)
			}
		})
	}
}

func TestIsMissing(t *testing.T) {
	assert.True(t, IsMissing(nil))
	assert.True(t, IsMissing(""))
	assert.True(t, IsMissing("  "))
	assert.True(t, IsMissing("null"))
	assert.True(t, IsMissing("NaN"))
	assert.True(t, IsMissing("-"))
	assert.False(t, IsMissing("0"))
	assert.False(t, IsMissing(0.0))
}

func TestFloatColumnSkipsBadCells(t *testing.T) {
	d := sample()
	values := d.FloatColumn("quantity")
	// row with nil quantity is skipped
	assert.Equal(t, []float64{10, 5}, values)

	costs := d.FloatColumn("unit_cost")
	require.Len(t, costs, 3)
	assert.InDelta(t, -300, costs[2], 0.001)
}

func TestStringColumnPreservesOrder(t *testing.T) {
	d := sample()
	assert.Equal(t, []string{"A-1", "A-2", "A-3"}, d.StringColumn("sku"))
	assert.Nil(t, d.StringColumn("missing"))
}

func TestRenameColumn(t *testing.T) {
	d := sample()
	require.NoError(t, d.RenameColumn("sku", "product_id"))
	assert.True(t, d.HasColumn("product_id"))
	assert.False(t, d.HasColumn("sku"))

	// index follows the rename
	idx, ok := d.ColumnIndex("product_id")
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	assert.Error(t, d.RenameColumn("nope", "x"))
	assert.Error(t, d.RenameColumn("product_id", "quantity"))
	assert.NoError(t, d.RenameColumn("product_id", "product_id"))
}

func TestCloneIsIndependent(t *testing.T) {
	d := sample()
	clone := d.Clone()
	clone.SetCell(0, 0, "changed")
	require.NoError(t, clone.RenameColumn("sku", "item"))

	assert.Equal(t, "A-1", d.String(0, 0))
	assert.True(t, d.HasColumn("sku"))
}

func TestDropRows(t *testing.T) {
	d := sample()
	removed := d.DropRows([]int{1, 99, -1})
	assert.Equal(t, 1, removed)
	require.Equal(t, 2, d.NumRows())
	assert.Equal(t, "A-3", d.String(1, 0))

	assert.Equal(t, 0, d.DropRows(nil))
}

func TestRowKeyDuplicateDetection(t *testing.T) {
	d := New(
		[]string{"a", "b"},
		[][]interface{}{
			{"X", "1"},
			{" x ", "1"},
			{"y", "2"},
		},
	)
	// case and surrounding whitespace do not distinguish rows
	assert.Equal(t, d.RowKey(0), d.RowKey(1))
	assert.NotEqual(t, d.RowKey(0), d.RowKey(2))
	assert.Empty(t, d.RowKey(99))
}
