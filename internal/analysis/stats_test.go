package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erplens/internal/dataset"
)

func monthlyRevenue(values map[string]float64) *dataset.Dataset {
	months := []string{"2024-01", "2024-02", "2024-03", "2024-04", "2024-05", "2024-06"}
	var rows [][]interface{}
	for _, m := range months {
		if v, ok := values[m]; ok {
			rows = append(rows, []interface{}{m + "-15", v})
		}
	}
	return dataset.New([]string{"period", "revenue"}, rows)
}

func TestTrendRising(t *testing.T) {
	d := monthlyRevenue(map[string]float64{"2024-01": 100, "2024-02": 110, "2024-03": 121})

	got := Trend(d, "revenue", "period")

	require.Equal(t, StatusOK, got.Status)
	assert.Equal(t, 3, got.DataPoints)
	assert.InDelta(t, 10.0, got.MoMChangePct, 0.01)
	assert.Equal(t, "rising", got.Direction)
	assert.InDelta(t, 121.0, got.CurrentValue, 0.001)
	assert.InDelta(t, 110.0, got.PriorValue, 0.001)
}

func TestTrendFalling(t *testing.T) {
	d := monthlyRevenue(map[string]float64{"2024-01": 200, "2024-02": 150})

	got := Trend(d, "revenue", "period")

	require.Equal(t, StatusOK, got.Status)
	assert.InDelta(t, -25.0, got.MoMChangePct, 0.01)
	assert.Equal(t, "falling", got.Direction)
	// With only two months QoQ falls back to the MoM change.
	assert.InDelta(t, got.MoMChangePct, got.QoQChangePct, 0.001)
}

func TestTrendQoQ(t *testing.T) {
	d := monthlyRevenue(map[string]float64{
		"2024-01": 100, "2024-02": 100, "2024-03": 100,
		"2024-04": 120, "2024-05": 120, "2024-06": 120,
	})

	got := Trend(d, "revenue", "period")

	require.Equal(t, StatusOK, got.Status)
	// Last three months average 120 against a prior average of 100.
	assert.InDelta(t, 20.0, got.QoQChangePct, 0.01)
}

func TestTrendAnomalies(t *testing.T) {
	d := monthlyRevenue(map[string]float64{
		"2024-01": 100, "2024-02": 100, "2024-03": 100,
		"2024-04": 100, "2024-05": 100, "2024-06": 500,
	})

	got := Trend(d, "revenue", "period")

	require.Equal(t, StatusOK, got.Status)
	require.Len(t, got.Anomalies, 1)
	assert.InDelta(t, 500.0, got.Anomalies["2024-06"], 0.001)
}

func TestTrendTaggedStatuses(t *testing.T) {
	missing := dataset.New([]string{"sku", "quantity"}, [][]interface{}{{"A", 1.0}})
	assert.Equal(t, StatusMissingColumns, Trend(missing, "revenue", "period").Status)

	single := monthlyRevenue(map[string]float64{"2024-01": 100})
	assert.Equal(t, StatusInsufficientData, Trend(single, "revenue", "period").Status)
}

func TestVariance(t *testing.T) {
	d := dataset.New(
		[]string{"category", "actual", "budget"},
		[][]interface{}{
			{"Marketing", 120.0, 100.0},
			{"Payroll", 80.0, 100.0},
			{"Freight", 150.0, 100.0},
		},
	)

	got := Variance(d, "actual", "budget", "category")

	require.Equal(t, StatusOK, got.Status)
	assert.InDelta(t, 350.0, got.TotalActual, 0.001)
	assert.InDelta(t, 300.0, got.TotalPlanned, 0.001)
	assert.InDelta(t, 50.0, got.TotalVariance, 0.001)
	assert.InDelta(t, 16.67, got.TotalVariancePct, 0.01)
	assert.True(t, got.IsOverBudget)
	assert.True(t, got.Material)

	require.Len(t, got.TopOverruns, 2)
	assert.Equal(t, "Freight", got.TopOverruns[0].Label)
	assert.Equal(t, "Marketing", got.TopOverruns[1].Label)
}

func TestVarianceZeroPlannedRow(t *testing.T) {
	d := dataset.New(
		[]string{"category", "actual", "budget"},
		[][]interface{}{{"New line", 50.0, 0.0}},
	)

	got := Variance(d, "actual", "budget", "category")

	require.Equal(t, StatusOK, got.Status)
	require.Len(t, got.TopOverruns, 1)
	assert.Zero(t, got.TopOverruns[0].VariancePct)
}

func TestVarianceMissingColumns(t *testing.T) {
	d := dataset.New([]string{"actual"}, [][]interface{}{{10.0}})
	assert.Equal(t, StatusMissingColumns, Variance(d, "actual", "budget", "category").Status)
}

func TestPareto(t *testing.T) {
	d := dataset.New(
		[]string{"product_id", "total_amount"},
		[][]interface{}{
			{"P-1", 500.0}, {"P-2", 350.0}, {"P-3", 40.0}, {"P-4", 30.0},
			{"P-5", 25.0}, {"P-6", 20.0}, {"P-7", 15.0}, {"P-8", 10.0},
			{"P-9", 6.0}, {"P-10", 4.0},
		},
	)

	got := Pareto(d, "product_id", "total_amount", 10, 80, 60)

	require.Equal(t, StatusOK, got.Status)
	assert.InDelta(t, 1000.0, got.TotalValue, 0.001)
	// P-1 and P-2 together cross 80% of the total.
	assert.Equal(t, 2, got.ItemsFor80Pct)
	// Top 20% of ten items is the top two, holding 85%.
	assert.InDelta(t, 85.0, got.Top20ContributionPct, 0.01)
	assert.Equal(t, "HIGH", got.Concentration)
	require.NotEmpty(t, got.FullPareto)
	assert.Equal(t, "P-1", got.FullPareto[0].Label)
	assert.Equal(t, 1, got.FullPareto[0].Rank)
	assert.InDelta(t, 50.0, got.FullPareto[0].ContributionPct, 0.01)
}

func TestParetoLowConcentration(t *testing.T) {
	d := dataset.New(
		[]string{"product_id", "total_amount"},
		[][]interface{}{
			{"P-1", 100.0}, {"P-2", 100.0}, {"P-3", 100.0},
			{"P-4", 100.0}, {"P-5", 100.0}, {"P-6", 100.0},
			{"P-7", 100.0}, {"P-8", 100.0}, {"P-9", 100.0}, {"P-10", 100.0},
		},
	)

	got := Pareto(d, "product_id", "total_amount", 5, 80, 60)

	require.Equal(t, StatusOK, got.Status)
	assert.Equal(t, "LOW", got.Concentration)
	assert.Len(t, got.TopContributors, 5)
	assert.Len(t, got.FullPareto, 10)
}

func TestRatio(t *testing.T) {
	d := dataset.New(
		[]string{"gross_profit", "revenue"},
		[][]interface{}{
			{40.0, 100.0},
			{30.0, 100.0},
			{10.0, 0.0}, // zero denominator dropped
			{50.0, 200.0},
		},
	)

	got := Ratio(d, "gross_profit", "revenue", "gross_margin")

	require.Equal(t, StatusOK, got.Status)
	assert.Equal(t, 3, got.DataPoints)
	assert.InDelta(t, 0.25, got.CurrentValue, 0.0001)
	assert.InDelta(t, 0.3167, got.AverageValue, 0.0001)
	assert.InDelta(t, 0.25, got.MinValue, 0.0001)
	assert.InDelta(t, 0.4, got.MaxValue, 0.0001)
}

func TestGroupSumOrdering(t *testing.T) {
	d := dataset.New(
		[]string{"category", "amount"},
		[][]interface{}{
			{"B", 50.0},
			{"A", 30.0},
			{"B", 50.0},
			{"C", 100.0},
			{"A", 0.0},
		},
	)

	got := GroupSum(d, "category", "amount")

	require.Len(t, got, 3)
	assert.Equal(t, "B", got[0].Label)
	assert.InDelta(t, 100.0, got[0].Value, 0.001)
	assert.Equal(t, "C", got[1].Label)
	assert.Equal(t, "A", got[2].Label)
	assert.Equal(t, 2, got[2].Count)
}

func TestGroupSumTieBreak(t *testing.T) {
	d := dataset.New(
		[]string{"category", "amount"},
		[][]interface{}{{"Zeta", 10.0}, {"Alpha", 10.0}},
	)

	got := GroupSum(d, "category", "amount")

	require.Len(t, got, 2)
	assert.Equal(t, "Alpha", got[0].Label)
	assert.Equal(t, "Zeta", got[1].Label)
}

func TestGroupMean(t *testing.T) {
	d := dataset.New(
		[]string{"supplier_id", "lead_time_days"},
		[][]interface{}{{"S1", 10.0}, {"S1", 20.0}, {"S2", 5.0}},
	)

	got := GroupMean(d, "supplier_id", "lead_time_days")

	require.Len(t, got, 2)
	assert.Equal(t, "S1", got[0].Label)
	assert.InDelta(t, 15.0, got[0].Value, 0.001)
}

func TestMonthlySum(t *testing.T) {
	d := dataset.New(
		[]string{"order_date", "total_amount"},
		[][]interface{}{
			{"2024-03-10", 50.0},
			{"2024-01-05", 100.0},
			{"2024-01-20", 25.0},
			// February absent: only months present appear.
		},
	)

	got := monthlySum(d, "order_date", "total_amount")

	require.Len(t, got, 2)
	assert.Equal(t, "2024-01", got[0].Period)
	assert.InDelta(t, 125.0, got[0].Value, 0.001)
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, "2024-03", got[1].Period)
}

func TestFirstColumn(t *testing.T) {
	d := dataset.New([]string{"period", "revenue"}, [][]interface{}{{"2024-01", 1.0}})

	col, ok := firstColumn(d, "order_date", "date", "period")
	require.True(t, ok)
	assert.Equal(t, "period", col)

	_, ok = firstColumn(d, "sku")
	assert.False(t, ok)
}

func TestStddevSample(t *testing.T) {
	assert.InDelta(t, 1.5811, stddevOf([]float64{1, 2, 3, 4, 5}), 0.001)
	assert.Zero(t, stddevOf([]float64{7}))
}

func TestMedian(t *testing.T) {
	assert.InDelta(t, 3.0, medianOf([]float64{5, 1, 3}), 0.001)
	assert.InDelta(t, 2.5, medianOf([]float64{4, 1, 2, 3}), 0.001)
	assert.Zero(t, medianOf(nil))
}
