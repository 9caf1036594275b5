package analysis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erplens/internal/config"
	"erplens/internal/dataset"
	"erplens/pkg/contracts/domain"
)

func newTestPurchase() *PurchaseAnalyzer {
	return NewPurchaseAnalyzer(config.DefaultAnalysis(), nil)
}

func TestPurchaseKPIs(t *testing.T) {
	d := dataset.New(
		[]string{"po_number", "supplier_id", "total_amount", "lead_time_days", "is_on_time"},
		[][]interface{}{
			{"PO-1", "S-1", 1_000.0, 10.0, true},
			{"PO-2", "S-1", 2_000.0, 14.0, false},
			{"PO-3", "S-2", 3_000.0, 12.0, true},
			{"PO-4", "S-3", 4_000.0, 8.0, true},
		},
	)

	kpis := newTestPurchase().KPIs(d)

	assert.InDelta(t, 10_000.0, kpis["total_spend"], 0.001)
	assert.InDelta(t, 4.0, kpis["order_count"], 0.001)
	assert.InDelta(t, 3.0, kpis["supplier_count"], 0.001)
	assert.InDelta(t, 2_500.0, kpis["average_order_value"], 0.01)
	assert.InDelta(t, 11.0, kpis["average_lead_time_days"], 0.01)
	assert.InDelta(t, 75.0, kpis["on_time_delivery_rate"], 0.01)
}

func TestPurchaseKPIsWithoutOnTime(t *testing.T) {
	d := dataset.New(
		[]string{"po_number", "supplier_id", "total_amount"},
		[][]interface{}{{"PO-1", "S-1", 500.0}},
	)

	kpis := newTestPurchase().KPIs(d)

	_, present := kpis["on_time_delivery_rate"]
	assert.False(t, present)
}

func TestPurchaseLeadTimeFromDates(t *testing.T) {
	d := dataset.New(
		[]string{"po_number", "supplier_id", "total_amount", "order_date", "expected_delivery_date"},
		[][]interface{}{
			{"PO-1", "S-1", 100.0, "2024-03-01", "2024-03-11"},
			{"PO-2", "S-1", 100.0, "2024-03-05", "2024-03-25"},
		},
	)

	kpis := newTestPurchase().KPIs(d)

	assert.InDelta(t, 15.0, kpis["average_lead_time_days"], 0.01)
}

func TestPurchaseDeliveryBelowThreshold(t *testing.T) {
	// 18 of 25 on time: a 72% rate, well under the 85% line.
	headers := []string{"po_number", "supplier_id", "total_amount", "is_on_time"}
	var rows [][]interface{}
	for i := 0; i < 25; i++ {
		rows = append(rows, []interface{}{fmt.Sprintf("PO-%d", i), fmt.Sprintf("S-%d", i%7), 100.0, i < 18})
	}
	d := dataset.New(headers, rows)

	got := newTestPurchase().deliveryInsights(d)

	require.Len(t, got, 1)
	assert.Equal(t, domain.SeverityHigh, got[0].Severity)
	assert.Equal(t, domain.CategoryPurchase, got[0].Category)
	assert.Contains(t, got[0].Finding, "72.0%")
}

func TestPurchaseLateDays(t *testing.T) {
	d := dataset.New(
		[]string{"po_number", "supplier_id", "total_amount", "is_on_time", "days_late"},
		[][]interface{}{
			{"PO-1", "S-1", 100.0, true, 0.0},
			{"PO-2", "S-1", 100.0, false, 4.0},
			{"PO-3", "S-2", 100.0, false, 8.0},
		},
	)

	got := newTestPurchase().deliveryInsights(d)

	// 66.7% on time plus an average 6-day delay when late.
	require.Len(t, got, 2)
	assert.Contains(t, got[1].Finding, "6.0 days")
}

func TestPurchaseSupplierPerformance(t *testing.T) {
	d := dataset.New(
		[]string{"supplier_name", "total_amount", "is_on_time"},
		[][]interface{}{
			{"VendorBad", 100.0, false},
			{"VendorBad", 100.0, false},
			{"VendorBad", 100.0, true},
			{"VendorGood", 100.0, true},
			{"VendorGood", 100.0, true},
		},
	)

	got := newTestPurchase().supplierPerformanceInsights(d)

	require.Len(t, got, 1)
	assert.Equal(t, domain.SeverityHigh, got[0].Severity)
	assert.Contains(t, got[0].Finding, "VendorBad")
	assert.Contains(t, got[0].Finding, "33%")
}

func TestPurchaseQualityRejection(t *testing.T) {
	d := dataset.New(
		[]string{"supplier_name", "total_amount", "quality_rejection_rate"},
		[][]interface{}{
			{"VendorRough", 10_000.0, 0.08},
			{"VendorClean", 10_000.0, 0.01},
		},
	)

	got := newTestPurchase().supplierPerformanceInsights(d)

	require.Len(t, got, 1)
	assert.Equal(t, domain.SeverityMedium, got[0].Severity)
	assert.Contains(t, got[0].Finding, "VendorRough")
	assert.Contains(t, got[0].Finding, "8.0%")
}

func TestPurchaseSupplierConcentration(t *testing.T) {
	d := dataset.New(
		[]string{"supplier_name", "total_amount"},
		[][]interface{}{
			{"MegaSupply", 4_000.0},
			{"SideSupply", 2_000.0},
			{"OtherSupply", 2_000.0},
			{"SmallSupply", 2_000.0},
		},
	)

	got := newTestPurchase().supplierConcentrationInsights(d)

	// Top supplier at 40%, top three at 80%.
	require.Len(t, got, 2)
	assert.Equal(t, domain.SeverityCritical, got[0].Severity)
	assert.Contains(t, got[0].Finding, "MegaSupply")
	assert.Contains(t, got[0].Finding, "40.0%")
	assert.Equal(t, domain.SeverityHigh, got[1].Severity)
	assert.Contains(t, got[1].Finding, "80.0%")
}

func TestPurchaseLeadTimeVariability(t *testing.T) {
	d := dataset.New(
		[]string{"po_number", "supplier_id", "total_amount", "lead_time_days"},
		[][]interface{}{
			{"PO-1", "S-1", 100.0, 2.0},
			{"PO-2", "S-1", 100.0, 30.0},
			{"PO-3", "S-2", 100.0, 3.0},
			{"PO-4", "S-2", 100.0, 25.0},
		},
	)

	got := newTestPurchase().leadTimeInsights(d)

	// Std dev well above half the 15-day average, and half the orders
	// run 50%+ longer than average.
	require.Len(t, got, 2)
	assert.Equal(t, domain.SeverityMedium, got[0].Severity)
	assert.Equal(t, domain.SeverityMedium, got[1].Severity)
}

func TestPurchasePriceTrend(t *testing.T) {
	d := dataset.New(
		[]string{"order_date", "supplier_id", "total_amount", "unit_price", "quantity_ordered"},
		[][]interface{}{
			{"2024-01-10", "S-1", 1_000.0, 10.0, 100.0},
			{"2024-02-10", "S-1", 1_100.0, 11.0, 100.0},
			{"2024-03-10", "S-1", 1_200.0, 12.0, 100.0},
		},
	)

	got := newTestPurchase().priceTrendInsights(d)

	// Unit price up 20% from January to March.
	require.Len(t, got, 1)
	assert.Equal(t, domain.SeverityHigh, got[0].Severity)
	assert.Contains(t, got[0].Finding, "20.0%")
}

func TestPurchasePriceDecrease(t *testing.T) {
	d := dataset.New(
		[]string{"order_date", "supplier_id", "total_amount", "unit_price"},
		[][]interface{}{
			{"2024-01-10", "S-1", 1_000.0, 10.0},
			{"2024-02-10", "S-1", 900.0, 9.0},
			{"2024-03-10", "S-1", 800.0, 8.0},
		},
	)

	got := newTestPurchase().priceTrendInsights(d)

	require.Len(t, got, 1)
	assert.Equal(t, domain.SeverityLow, got[0].Severity)
}

func TestPurchaseAnalyzeEnvelope(t *testing.T) {
	d := dataset.New(
		[]string{"po_number", "supplier_name", "total_amount", "lead_time_days", "is_on_time", "order_date"},
		[][]interface{}{
			{"PO-1", "VendorCo", 1_000.0, 10.0, true, "2024-05-01"},
			{"PO-2", "OtherCo", 1_200.0, 12.0, true, "2024-06-01"},
		},
	)

	res, err := newTestPurchase().Analyze(d)

	require.NoError(t, err)
	assert.Equal(t, domain.Purchase, res.Domain)
	assert.Contains(t, res.KPIs, "total_spend")
	assert.Contains(t, res.Charts, "spend_by_supplier")
	assert.Contains(t, res.Charts, "lead_time_trend")
	assert.Contains(t, res.Charts, "delivery_performance")
}
