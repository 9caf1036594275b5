package insight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erplens/pkg/contracts/domain"
)

func mustInsight(t *testing.T, cat domain.InsightCategory, sev domain.Severity, finding string) domain.Insight {
	t.Helper()
	in, err := domain.NewInsight(cat, sev, finding, "impact of "+finding, "action for "+finding)
	require.NoError(t, err)
	return in
}

func TestMergeSortsBySeverityThenCategory(t *testing.T) {
	e := NewEngine(nil)

	results := []domain.AnalysisResult{
		{Domain: domain.Sales, Insights: []domain.Insight{
			mustInsight(t, domain.CategorySales, domain.SeverityLow, "sales low"),
			mustInsight(t, domain.CategorySales, domain.SeverityCritical, "sales critical"),
		}},
		{Domain: domain.Financial, Insights: []domain.Insight{
			mustInsight(t, domain.CategoryFinancial, domain.SeverityHigh, "financial high"),
			mustInsight(t, domain.CategoryFinancial, domain.SeverityCritical, "financial critical"),
		}},
	}

	got := e.Merge(results)

	require.Len(t, got, 4)
	assert.Equal(t, "financial critical", got[0].Finding)
	assert.Equal(t, "sales critical", got[1].Finding)
	assert.Equal(t, "financial high", got[2].Finding)
	assert.Equal(t, "sales low", got[3].Finding)
}

func TestMergeDeduplicates(t *testing.T) {
	e := NewEngine(nil)

	first := mustInsight(t, domain.CategoryInventory, domain.SeverityHigh, "Dead stock alert for warehouse A")
	duplicate := mustInsight(t, domain.CategoryInventory, domain.SeverityHigh, "DEAD STOCK ALERT FOR WAREHOUSE A")
	duplicate.Impact = "different impact"

	got := e.Merge([]domain.AnalysisResult{{Insights: []domain.Insight{first, duplicate}}})

	// Case-insensitive key on the finding; the first occurrence wins.
	require.Len(t, got, 1)
	assert.Equal(t, first.Impact, got[0].Impact)
}

func TestMergeDedupKeyUsesFirst100Chars(t *testing.T) {
	e := NewEngine(nil)

	prefix := strings.Repeat("x", 100)
	a := mustInsight(t, domain.CategorySales, domain.SeverityLow, prefix+" tail one")
	b := mustInsight(t, domain.CategorySales, domain.SeverityLow, prefix+" tail two")

	got := e.Merge([]domain.AnalysisResult{{Insights: []domain.Insight{a, b}}})

	// Identical first 100 chars collapse even when the tails differ.
	require.Len(t, got, 1)
}

func TestCategorize(t *testing.T) {
	e := NewEngine(nil)

	insights := []domain.Insight{
		mustInsight(t, domain.CategoryFinancial, domain.SeverityHigh, "a"),
		mustInsight(t, domain.CategoryFinancial, domain.SeverityLow, "b"),
		mustInsight(t, domain.CategoryInventory, domain.SeverityMedium, "c"),
	}

	got := e.Categorize(insights)

	require.Len(t, got, 2)
	assert.Len(t, got["Financial Insights"], 2)
	assert.Len(t, got["Inventory & Stock Insights"], 1)
	_, hasEmpty := got["Sales Insights"]
	assert.False(t, hasEmpty)
}

func TestExecutiveSummaryLeadsWithCriticals(t *testing.T) {
	e := NewEngine(nil)

	insights := []domain.Insight{
		mustInsight(t, domain.CategoryFinancial, domain.SeverityCritical, "margin collapse"),
		mustInsight(t, domain.CategorySales, domain.SeverityCritical, "customer dependency"),
		mustInsight(t, domain.CategoryInventory, domain.SeverityCritical, "third critical"),
	}
	kpis := map[string]float64{
		"total_revenue":  1_500_000,
		"net_margin_pct": 4.2,
	}

	got := e.ExecutiveSummary(insights, kpis)

	require.GreaterOrEqual(t, len(got), 4)
	assert.LessOrEqual(t, len(got), 7)
	// Only the two worst criticals lead the summary.
	assert.Equal(t, "CRITICAL: margin collapse", got[0])
	assert.Equal(t, "CRITICAL: customer dependency", got[1])
	assert.Contains(t, got, "Total Revenue: $1,500,000")
	assert.Contains(t, got, "Net Margin: 4.2%")
	assert.Contains(t, got[len(got)-1], "IMMEDIATE ACTION:")
}

func TestExecutiveSummaryHighFallback(t *testing.T) {
	e := NewEngine(nil)

	insights := []domain.Insight{
		mustInsight(t, domain.CategorySales, domain.SeverityHigh, "sales sliding"),
	}

	got := e.ExecutiveSummary(insights, map[string]float64{"revenue_growth": -12.5})

	require.NotEmpty(t, got)
	assert.Equal(t, "HIGH PRIORITY: sales sliding", got[0])
	assert.Contains(t, got, "Revenue Growth: ↓ 12.5%")
}

func TestExecutiveSummaryCapsAtSeven(t *testing.T) {
	e := NewEngine(nil)

	insights := []domain.Insight{
		mustInsight(t, domain.CategoryFinancial, domain.SeverityCritical, "one"),
		mustInsight(t, domain.CategoryFinancial, domain.SeverityCritical, "two"),
	}
	kpis := map[string]float64{
		"total_revenue":              100,
		"net_margin_pct":             10,
		"revenue_growth":             5,
		"total_stock_value":          200,
		"days_inventory_outstanding": 45,
	}

	got := e.ExecutiveSummary(insights, kpis)

	assert.Len(t, got, 7)
}

func TestExecutiveSummaryEmpty(t *testing.T) {
	e := NewEngine(nil)
	assert.Empty(t, e.ExecutiveSummary(nil, nil))
}
