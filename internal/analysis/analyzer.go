package analysis

import (
	"fmt"
	"log/slog"
	"time"

	"erplens/internal/config"
	"erplens/internal/dataset"
	"erplens/pkg/contracts/domain"
)

// Analyzer is the contract every domain analyzer satisfies. Analyze
// runs the full pass; KPIs computes only the headline numbers. Both
// treat the dataset as read-only.
type Analyzer interface {
	Analyze(d *dataset.Dataset) (domain.AnalysisResult, error)
	KPIs(d *dataset.Dataset) map[string]float64
	Category() domain.InsightCategory
}

// ForDataType returns the analyzer responsible for the given data type
func ForDataType(dt domain.DataType, cfg config.AnalysisConfig, logger *slog.Logger) (Analyzer, error) {
	switch dt {
	case domain.Financial:
		return NewFinancialAnalyzer(cfg, logger), nil
	case domain.Manufacturing:
		return NewManufacturingAnalyzer(cfg, logger), nil
	case domain.Inventory:
		return NewInventoryAnalyzer(cfg, logger), nil
	case domain.Sales:
		return NewSalesAnalyzer(cfg, logger), nil
	case domain.Purchase:
		return NewPurchaseAnalyzer(cfg, logger), nil
	default:
		return nil, fmt.Errorf("no analyzer for data type %q", dt)
	}
}

// newInsight builds an insight for an analyzer. All analyzer call sites
// pass non-empty literals, so the triple check cannot fire.
func newInsight(cat domain.InsightCategory, sev domain.Severity, finding, impact, action string) domain.Insight {
	in, _ := domain.NewInsight(cat, sev, finding, impact, action)
	return in
}

func componentLogger(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("component", name))
}

// result assembles the shared AnalysisResult envelope
func result(dt domain.DataType, kpis map[string]float64, insights []domain.Insight, charts map[string][]domain.ChartPoint) domain.AnalysisResult {
	if insights == nil {
		insights = []domain.Insight{}
	}
	return domain.AnalysisResult{
		Domain:    dt,
		Timestamp: time.Now().UTC(),
		KPIs:      kpis,
		Insights:  insights,
		Charts:    charts,
	}
}
