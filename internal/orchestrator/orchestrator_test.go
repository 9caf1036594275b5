package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erplens/internal/analysis"
	"erplens/internal/config"
	"erplens/internal/dataset"
	"erplens/internal/infrastructure"
	"erplens/pkg/contracts/domain"
)

var orchestratorClock = time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

func newTestOrchestrator(metrics *infrastructure.Metrics) *Orchestrator {
	o := New(config.DefaultAnalysis(), metrics, nil)
	o.now = func() time.Time { return orchestratorClock }
	return o
}

func financialFile() *dataset.Dataset {
	return dataset.New(
		[]string{"period", "revenue", "cogs", "operating_expenses", "net_income"},
		[][]interface{}{
			{"2024-01", 100000.0, 60000.0, 20000.0, 15000.0},
			{"2024-02", 110000.0, 64000.0, 21000.0, 18000.0},
			{"2024-03", 121000.0, 70000.0, 22000.0, 21000.0},
		},
	)
}

func salesFile() *dataset.Dataset {
	return dataset.New(
		[]string{"order_id", "product_id", "quantity", "total_amount", "order_date", "customer_id"},
		[][]interface{}{
			{"SO-1", "P-1", 10.0, 1000.0, "2024-01-15", "C-1"},
			{"SO-2", "P-2", 5.0, 800.0, "2024-02-15", "C-2"},
			{"SO-3", "P-1", 8.0, 900.0, "2024-03-15", "C-3"},
			{"SO-4", "P-3", 2.0, 400.0, "2024-03-20", "C-1"},
		},
	)
}

func inventoryFile() *dataset.Dataset {
	return dataset.New(
		[]string{"sku", "quantity", "unit_cost", "last_movement"},
		[][]interface{}{
			{"SKU-1", 100.0, 50.0, "2024-09-01"},
			{"SKU-2", 20.0, 12.0, "2024-08-15"},
		},
	)
}

func TestAnalyzeMultiFileTwoDomains(t *testing.T) {
	o := newTestOrchestrator(nil)

	report := o.AnalyzeMultiFile(context.Background(), map[string]*dataset.Dataset{
		"financial": financialFile(),
		"sales":     salesFile(),
	})

	assert.Equal(t, []string{"financial", "sales"}, report.EnabledDomains)
	assert.Equal(t, 2, report.FilesAnalyzed)
	assert.Equal(t, "multi_file", report.DataSource)
	assert.Equal(t, orchestratorClock, report.GeneratedAt)

	require.Contains(t, report.KPIs, "financial")
	require.Contains(t, report.KPIs, "sales")
	assert.Equal(t, 331000.0, report.KPIs["financial"]["total_revenue"])
	assert.Contains(t, report.Charts, "financial")
	assert.Contains(t, report.Charts, "sales")

	categorized := 0
	for _, insights := range report.InsightsByCategory {
		categorized += len(insights)
	}
	assert.Equal(t, categorized+len(report.CrossDomainInsights), report.TotalInsights)

	// Neither cross-domain rule involves the financial/sales pair alone.
	assert.Empty(t, report.CrossDomainInsights)
	assert.NotEmpty(t, report.ExecutiveSummary)
}

func TestGateRejectsUnmappableColumns(t *testing.T) {
	metrics := infrastructure.NewMetrics()
	o := newTestOrchestrator(metrics)

	noise := dataset.New([]string{"alpha", "beta"}, [][]interface{}{{"x", "y"}})
	report := o.AnalyzeMultiFile(context.Background(), map[string]*dataset.Dataset{
		"financial": noise,
		"inventory": inventoryFile(),
	})

	assert.Equal(t, []string{"inventory"}, report.EnabledDomains)
	assert.NotContains(t, report.KPIs, "financial")
	assert.NotContains(t, report.InsightsByCategory, domain.CategoryFinancial.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DomainsSkipped.WithLabelValues("missing_fields")))
}

func TestGateRejectsLowConfidence(t *testing.T) {
	cfg := config.DefaultAnalysis()
	cfg.MinSchemaConfidence = 0.9
	o := New(cfg, nil, nil)
	o.now = func() time.Time { return orchestratorClock }

	// Only one of the two required financial fields maps: coverage 0.5
	// puts confidence at 0.75, under the raised bar.
	partial := dataset.New([]string{"revenue", "notes"}, [][]interface{}{{1000.0, "q1"}})
	report := o.AnalyzeMultiFile(context.Background(), map[string]*dataset.Dataset{
		"financial": partial,
	})

	assert.Empty(t, report.EnabledDomains)
	assert.Empty(t, report.KPIs)
}

func TestZeroDomainsExplanatoryReport(t *testing.T) {
	o := newTestOrchestrator(nil)

	for name, files := range map[string]map[string]*dataset.Dataset{
		"no files":       {},
		"unknown domain": {"weather": financialFile()},
		"empty dataset":  {"financial": dataset.New([]string{"period", "revenue"}, nil)},
	} {
		t.Run(name, func(t *testing.T) {
			report := o.AnalyzeMultiFile(context.Background(), files)

			assert.NotNil(t, report.EnabledDomains)
			assert.Empty(t, report.EnabledDomains)
			assert.Zero(t, report.TotalInsights)
			assert.Zero(t, report.CriticalCount)
			assert.Zero(t, report.FilesAnalyzed)
			require.NotEmpty(t, report.ExecutiveSummary)
			assert.Contains(t, report.ExecutiveSummary[0], "No valid data detected")
		})
	}
}

type explodingAnalyzer struct{ err error }

func (a explodingAnalyzer) Analyze(*dataset.Dataset) (domain.AnalysisResult, error) {
	if a.err != nil {
		return domain.AnalysisResult{}, a.err
	}
	panic("bad slice index")
}

func (explodingAnalyzer) KPIs(*dataset.Dataset) map[string]float64 { return nil }

func (explodingAnalyzer) Category() domain.InsightCategory { return domain.CategoryFinancial }

func TestDomainFailureIsolation(t *testing.T) {
	tests := []struct {
		name    string
		failure analysis.Analyzer
	}{
		{"panic", explodingAnalyzer{}},
		{"error", explodingAnalyzer{err: errors.New("column vanished")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(nil)
			o.analyzerFor = func(dt domain.DataType, cfg config.AnalysisConfig, logger *slog.Logger) (analysis.Analyzer, error) {
				if dt == domain.Financial {
					return tt.failure, nil
				}
				return analysis.ForDataType(dt, cfg, logger)
			}

			report := o.AnalyzeMultiFile(context.Background(), map[string]*dataset.Dataset{
				"financial": financialFile(),
				"sales":     salesFile(),
			})

			assert.Equal(t, []string{"sales"}, report.EnabledDomains)
			assert.Equal(t, 1, report.FilesAnalyzed)
			assert.NotContains(t, report.KPIs, "financial")
		})
	}
}

func synthResult(dt domain.DataType, insightCount int) domain.AnalysisResult {
	insights := make([]domain.Insight, 0, insightCount)
	for i := 0; i < insightCount; i++ {
		in, _ := domain.NewInsight(domain.CategoryForDataType(dt), domain.SeverityMedium,
			fmt.Sprintf("%s finding %d", dt, i), "impact", "action")
		insights = append(insights, in)
	}
	return domain.AnalysisResult{Domain: dt, Insights: insights}
}

func TestCrossDomainInsights(t *testing.T) {
	o := newTestOrchestrator(nil)

	tests := []struct {
		name     string
		results  []domain.AnalysisResult
		want     int
		severity domain.Severity
		finding  string
	}{
		{
			name:     "inventory issues with sales concerns",
			results:  []domain.AnalysisResult{synthResult(domain.Inventory, 3), synthResult(domain.Sales, 1)},
			want:     1,
			severity: domain.SeverityMedium,
			finding:  "inventory issues detected alongside sales concerns",
		},
		{
			name:    "too few inventory issues",
			results: []domain.AnalysisResult{synthResult(domain.Inventory, 2), synthResult(domain.Sales, 1)},
			want:    0,
		},
		{
			name:     "financial and manufacturing correlation",
			results:  []domain.AnalysisResult{synthResult(domain.Financial, 2), synthResult(domain.Manufacturing, 2)},
			want:     1,
			severity: domain.SeverityMedium,
			finding:  "correlated with manufacturing issues",
		},
		{
			name:     "inventory and purchase correlation",
			results:  []domain.AnalysisResult{synthResult(domain.Inventory, 2), synthResult(domain.Purchase, 1)},
			want:     1,
			severity: domain.SeverityLow,
			finding:  "purchase/supplier performance",
		},
		{
			name:    "single domain never correlates",
			results: []domain.AnalysisResult{synthResult(domain.Inventory, 5)},
			want:    0,
		},
		{
			name:    "three domains can trigger two rules",
			results: []domain.AnalysisResult{synthResult(domain.Inventory, 3), synthResult(domain.Sales, 1), synthResult(domain.Purchase, 1)},
			want:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := o.crossDomainInsights(tt.results)
			require.Len(t, got, tt.want)
			if tt.want == 1 {
				assert.Equal(t, domain.CategoryCrossDomain, got[0].Category)
				assert.Equal(t, tt.severity, got[0].Severity)
				assert.Contains(t, got[0].Finding, tt.finding)
			}
		})
	}
}

func TestAnalysisMetricsRecorded(t *testing.T) {
	metrics := infrastructure.NewMetrics()
	o := newTestOrchestrator(metrics)

	o.AnalyzeMultiFile(context.Background(), map[string]*dataset.Dataset{
		"financial": financialFile(),
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FilesAnalyzed.WithLabelValues("financial")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.RowsProcessed))
}
