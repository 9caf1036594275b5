package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erplens/internal/config"
	"erplens/internal/dataset"
	"erplens/pkg/contracts/domain"
)

func newTestManufacturing() *ManufacturingAnalyzer {
	return NewManufacturingAnalyzer(config.DefaultAnalysis(), nil)
}

func TestManufacturingKPIs(t *testing.T) {
	d := dataset.New(
		[]string{"product_id", "planned_quantity", "actual_quantity", "good_quantity", "rejected_quantity", "total_cost"},
		[][]interface{}{
			{"P-1", 1000.0, 950.0, 920.0, 30.0, 4_750.0},
			{"P-2", 500.0, 400.0, 380.0, 20.0, 2_400.0},
		},
	)

	kpis := newTestManufacturing().KPIs(d)

	assert.InDelta(t, 1500.0, kpis["total_planned_quantity"], 0.001)
	assert.InDelta(t, 1350.0, kpis["total_actual_quantity"], 0.001)
	assert.InDelta(t, 90.0, kpis["production_efficiency_pct"], 0.01)
	assert.InDelta(t, 96.3, kpis["yield_rate_pct"], 0.01)
	assert.InDelta(t, 3.7, kpis["rejection_rate_pct"], 0.01)
	assert.InDelta(t, 5.3, kpis["cost_per_unit"], 0.01)
	assert.InDelta(t, 150.0, kpis["shortfall_units"], 0.001)
}

func TestManufacturingEfficiencyInsight(t *testing.T) {
	d := dataset.New(
		[]string{"product_name", "planned_quantity", "actual_quantity"},
		[][]interface{}{
			{"Widget A", 1000.0, 900.0},
			{"Widget B", 1000.0, 700.0},
			{"Widget C", 1000.0, 800.0},
		},
	)

	got := newTestManufacturing().efficiencyInsights(d)

	// Overall efficiency 80% triggers the shortfall insight.
	require.Len(t, got, 1)
	in := got[0]
	assert.Equal(t, domain.SeverityHigh, in.Severity)
	assert.Equal(t, domain.CategoryManufacturing, in.Category)
	assert.Contains(t, in.Finding, "80.0%")
	// Worst performers listed ascending by efficiency.
	assert.Contains(t, in.Finding, "Widget B (70%)")
	assert.Contains(t, in.Impact, "$30,000")
}

func TestManufacturingLineEfficiency(t *testing.T) {
	d := dataset.New(
		[]string{"production_line", "planned_quantity", "actual_quantity"},
		[][]interface{}{
			{"Line 1", 1000.0, 950.0},
			{"Line 2", 1000.0, 700.0},
		},
	)

	got := newTestManufacturing().efficiencyInsights(d)

	// Overall 82.5% fires the shortfall insight; Line 2 at 70% adds the
	// line-level one.
	require.Len(t, got, 2)
	assert.Equal(t, domain.SeverityMedium, got[1].Severity)
	assert.Contains(t, got[1].Finding, "Line 2")
	assert.Contains(t, got[1].Finding, "70.0%")
}

func TestManufacturingWastage(t *testing.T) {
	tests := []struct {
		name         string
		wastage      float64
		rejected     float64
		wantSeverity domain.Severity
	}{
		{"medium above five percent", 40.0, 30.0, domain.SeverityMedium},
		{"high above ten percent", 80.0, 50.0, domain.SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := dataset.New(
				[]string{"product_id", "actual_quantity", "wastage_quantity", "rejected_quantity"},
				[][]interface{}{{"P-1", 1000.0, tt.wastage, tt.rejected}},
			)

			got := newTestManufacturing().wastageInsights(d)

			require.Len(t, got, 1)
			assert.Equal(t, tt.wantSeverity, got[0].Severity)
		})
	}
}

func TestManufacturingWastageConcentration(t *testing.T) {
	d := dataset.New(
		[]string{"product_name", "actual_quantity", "wastage_quantity"},
		[][]interface{}{
			{"Widget A", 500.0, 60.0},
			{"Widget B", 500.0, 10.0},
		},
	)

	got := newTestManufacturing().wastageInsights(d)

	// 7% waste rate plus one product holding 86% of all waste.
	require.Len(t, got, 2)
	assert.Contains(t, got[1].Finding, "Widget A")
	assert.Contains(t, got[1].Finding, "86%")
}

func TestManufacturingCostPerUnitTrend(t *testing.T) {
	d := dataset.New(
		[]string{"date", "actual_quantity", "total_cost"},
		[][]interface{}{
			{"2024-01-05", 100.0, 500.0},
			{"2024-01-15", 100.0, 500.0},
			{"2024-01-25", 100.0, 500.0},
			{"2024-02-05", 100.0, 600.0},
			{"2024-02-15", 100.0, 600.0},
			{"2024-02-25", 100.0, 600.0},
		},
	)

	got := newTestManufacturing().costPerUnitInsights(d)

	// Cost per unit moved from $5.00 to $6.00 between halves.
	require.Len(t, got, 1)
	assert.Equal(t, domain.SeverityHigh, got[0].Severity)
	assert.Contains(t, got[0].Finding, "20.0%")
}

func TestManufacturingYield(t *testing.T) {
	d := dataset.New(
		[]string{"product_id", "actual_quantity", "good_quantity"},
		[][]interface{}{
			{"P-1", 100.0, 85.0},
			{"P-2", 100.0, 88.0},
		},
	)

	got := newTestManufacturing().yieldInsights(d)

	require.Len(t, got, 1)
	assert.Equal(t, domain.SeverityMedium, got[0].Severity)
}

func TestManufacturingAnalyzeEnvelope(t *testing.T) {
	d := dataset.New(
		[]string{"product_name", "planned_quantity", "actual_quantity"},
		[][]interface{}{
			{"Widget A", 100.0, 98.0},
			{"Widget B", 100.0, 97.0},
		},
	)

	res, err := newTestManufacturing().Analyze(d)

	require.NoError(t, err)
	assert.Equal(t, domain.Manufacturing, res.Domain)
	assert.Contains(t, res.KPIs, "production_efficiency_pct")
	assert.Contains(t, res.Charts, "efficiency_by_product")
}
