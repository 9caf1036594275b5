package insight

import (
	"fmt"
	"log/slog"
	"strings"

	"erplens/internal/analysis"
	"erplens/pkg/contracts/domain"
)

// RiskAssessor derives forward-looking risks from severe insights and
// from headline KPI breaches.
type RiskAssessor struct {
	log *slog.Logger
}

// NewRiskAssessor creates a risk engine
func NewRiskAssessor(logger *slog.Logger) *RiskAssessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RiskAssessor{log: logger.With(slog.String("component", "risk_engine"))}
}

// Risks maps critical and high insights to risks, appends KPI-derived
// risks, and deduplicates by title.
func (r *RiskAssessor) Risks(results []domain.AnalysisResult, insights []domain.Insight) []domain.Risk {
	var risks []domain.Risk
	for _, in := range insights {
		if in.Severity == domain.SeverityCritical || in.Severity == domain.SeverityHigh {
			risks = append(risks, r.fromInsight(in))
		}
	}
	risks = append(risks, r.kpiRisks(results)...)
	return r.deduplicate(risks)
}

func (r *RiskAssessor) fromInsight(in domain.Insight) domain.Risk {
	probability := "Medium-High"
	if in.Severity == domain.SeverityCritical {
		probability = "High"
	}
	return domain.Risk{
		Title:           "Risk: " + truncate(in.Finding, 80),
		Category:        in.Category,
		Description:     in.Finding,
		Probability:     probability,
		FinancialImpact: in.Impact,
		TimeToImpact:    "3-6 months",
		Severity:        in.Severity,
		Mitigation:      in.Action,
	}
}

// kpiRisks scans each domain's KPIs for structural breaches that merit
// a risk even without a matching insight.
func (r *RiskAssessor) kpiRisks(results []domain.AnalysisResult) []domain.Risk {
	var risks []domain.Risk
	for _, res := range results {
		if net, ok := res.KPIs["net_margin_pct"]; ok && net < 5 {
			risks = append(risks, domain.Risk{
				Title:           "Margin Erosion Risk",
				Category:        domain.CategoryFinancial,
				Description:     fmt.Sprintf("Net margin at %.1f%% - critically low", net),
				Probability:     "High",
				FinancialImpact: "Business at risk of losses",
				TimeToImpact:    "1-3 months",
				Severity:        domain.SeverityCritical,
				Mitigation:      "Immediate cost reduction and pricing review",
			})
		}
		if dio, ok := res.KPIs["days_inventory_outstanding"]; ok && dio > 90 {
			risks = append(risks, domain.Risk{
				Title:           "Inventory Obsolescence Risk",
				Category:        domain.CategoryInventory,
				Description:     fmt.Sprintf("Days inventory at %.0f - too high", dio),
				Probability:     "Medium-High",
				FinancialImpact: analysis.FormatAmount(res.KPIs["total_stock_value"]) + " at risk",
				TimeToImpact:    "3-6 months",
				Severity:        domain.SeverityHigh,
				Mitigation:      "Accelerate turnover, reduce stock levels",
			})
		}
	}
	return risks
}

// deduplicate keeps the first risk per title key (first 50 characters,
// lowercased).
func (r *RiskAssessor) deduplicate(risks []domain.Risk) []domain.Risk {
	seen := make(map[string]struct{}, len(risks))
	unique := make([]domain.Risk, 0, len(risks))
	for _, risk := range risks {
		key := dedupeKey(risk.Title, 50)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, risk)
	}

	r.log.Debug("risks assessed", slog.Int("count", len(unique)))
	return unique
}

// Matrix buckets risks into a probability/impact grid for rendering
type Matrix map[string][]domain.Risk

// RiskMatrix groups risks by severity level and probability level
func (r *RiskAssessor) RiskMatrix(risks []domain.Risk) Matrix {
	matrix := make(Matrix)
	for _, risk := range risks {
		prob := "low"
		switch strings.ToLower(risk.Probability) {
		case "high", "medium-high":
			prob = "high"
		case "medium":
			prob = "medium"
		}
		sev := "low"
		if risk.Severity == domain.SeverityCritical || risk.Severity == domain.SeverityHigh {
			sev = "high"
		}
		key := sev + "_" + prob
		matrix[key] = append(matrix[key], risk)
	}
	return matrix
}
