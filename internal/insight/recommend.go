package insight

import (
	"log/slog"
	"strings"

	"erplens/internal/config"
	"erplens/pkg/contracts/domain"
)

// Recommender converts each insight into exactly one prioritized,
// time-boxed recommendation.
type Recommender struct {
	cfg config.AnalysisConfig
	log *slog.Logger
}

// NewRecommender creates a recommendation engine
func NewRecommender(cfg config.AnalysisConfig, logger *slog.Logger) *Recommender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recommender{cfg: cfg, log: logger.With(slog.String("component", "recommendation_engine"))}
}

// Recommendations maps insights 1:1 onto recommendations, preserving
// the input order.
func (r *Recommender) Recommendations(insights []domain.Insight) []domain.Recommendation {
	out := make([]domain.Recommendation, 0, len(insights))
	for _, in := range insights {
		out = append(out, r.fromInsight(in))
	}
	return out
}

func (r *Recommender) fromInsight(in domain.Insight) domain.Recommendation {
	priority := priorityFor(in.Severity)
	what, how := r.playbook(in)

	return domain.Recommendation{
		Title:            strings.ToUpper(in.Severity.String()) + ": " + truncate(in.Finding, 50) + "...",
		What:             what,
		Why:              in.Impact,
		How:              how,
		Impact:           "Expected " + truncate(in.Action, 100) + "...",
		Priority:         priority,
		Timeline:         priority.Timeline(),
		EstimatedSavings: r.estimatedSavings(in),
	}
}

func priorityFor(sev domain.Severity) domain.Priority {
	switch sev {
	case domain.SeverityCritical:
		return domain.PriorityImmediate
	case domain.SeverityHigh, domain.SeverityMedium:
		return domain.PriorityShortTerm
	default:
		return domain.PriorityMediumTerm
	}
}

// estimatedSavings applies the configured recovery-rate multipliers to
// the insight's metrics. Zero when no metric applies.
func (r *Recommender) estimatedSavings(in domain.Insight) float64 {
	if in.Metrics == nil {
		return 0
	}
	if v, ok := in.Metrics["dead_value"]; ok {
		return v * r.cfg.DeadStockRecoveryRate
	}
	if v, ok := in.Metrics["excess_value"]; ok {
		return v * r.cfg.ExcessStockRecoveryRate
	}
	if v, ok := in.Metrics["variance"]; ok {
		return abs(v) * r.cfg.VarianceRecoveryRate
	}
	if v, ok := in.Metrics["value"]; ok {
		return v * r.cfg.GenericRecoveryRate
	}
	return 0
}

// playbook picks the what/how pair for the insight's category and
// finding keywords, falling back to a generic three-step plan.
func (r *Recommender) playbook(in domain.Insight) (what, how string) {
	finding := strings.ToLower(in.Finding)

	switch in.Category {
	case domain.CategoryFinancial:
		switch {
		case strings.Contains(finding, "margin"):
			return "Improve gross margin by 5-10 percentage points",
				"1) Renegotiate top 5 supplier contracts within 30 days\n2) Increase prices on bottom 20% margin products\n3) Reduce material waste by 15%\n4) Audit overhead costs"
		case strings.Contains(finding, "revenue"):
			return "Reverse revenue decline and restore growth",
				"1) Contact top 20 customers to identify issues\n2) Analyze lost deals in CRM\n3) Launch customer retention campaign\n4) Review pricing strategy"
		case strings.Contains(finding, "expense") || strings.Contains(finding, "budget"):
			return "Reduce expenses to budget",
				"1) Freeze discretionary spending immediately\n2) Conduct line-item expense review within 2 weeks\n3) Identify top 5 cost reduction opportunities\n4) Implement cost controls"
		}
	case domain.CategoryManufacturing:
		switch {
		case strings.Contains(finding, "efficiency"):
			return "Improve production efficiency to 95%",
				"1) Root cause analysis on worst performing lines\n2) Address equipment downtime\n3) Optimize material flow\n4) Cross-train operators"
		case strings.Contains(finding, "wastage") || strings.Contains(finding, "waste"):
			return "Reduce wastage to below 5%",
				"1) Quality control audit\n2) Review raw material quality\n3) Retrain operators\n4) Set weekly wastage targets"
		}
	case domain.CategoryInventory:
		switch {
		case strings.Contains(finding, "dead") || strings.Contains(finding, "stagnant"):
			return "Liquidate dead stock and recover capital",
				"1) Run flash sale at 40% discount on top SKUs\n2) Liquidate remaining via clearance channels\n3) Stop reordering dead stock items\n4) Improve demand forecasting"
		case strings.Contains(finding, "overstock"):
			return "Reduce overstock by 50%",
				"1) Reduce reorder quantities by 40%\n2) Push slow movers via promotions\n3) Adjust safety stock levels\n4) Improve demand planning"
		}
	case domain.CategorySales:
		switch {
		case strings.Contains(finding, "concentration") || strings.Contains(finding, "customer"):
			return "Diversify customer base to reduce concentration risk",
				"1) Assign dedicated account managers to top customers\n2) Launch customer acquisition program\n3) Develop new market segments\n4) Set concentration reduction targets"
		case strings.Contains(finding, "margin") || strings.Contains(finding, "discount"):
			return "Improve product margins",
				"1) Review pricing for bottom performers\n2) Discontinue low-margin products\n3) Increase prices strategically\n4) Negotiate better terms"
		}
	}

	return in.Action,
		"Step 1: Analyze " + truncate(in.Finding, 30) + "\nStep 2: Implement " + truncate(in.Action, 50) + "\nStep 3: Track results"
}

// ActionPlan buckets recommendations by priority and sums the
// estimated savings.
func (r *Recommender) ActionPlan(recommendations []domain.Recommendation) domain.ActionPlan {
	plan := domain.ActionPlan{TotalCount: len(recommendations)}
	for _, rec := range recommendations {
		plan.TotalEstimatedImpact += rec.EstimatedSavings
		switch rec.Priority {
		case domain.PriorityImmediate:
			plan.ImmediateActions = append(plan.ImmediateActions, rec)
		case domain.PriorityShortTerm:
			plan.ShortTermActions = append(plan.ShortTermActions, rec)
		default:
			plan.MediumTermActions = append(plan.MediumTermActions, rec)
		}
	}
	plan.ImmediateCount = len(plan.ImmediateActions)

	r.log.Debug("action plan assembled",
		slog.Int("total", plan.TotalCount),
		slog.Int("immediate", plan.ImmediateCount),
		slog.Float64("estimated_impact", plan.TotalEstimatedImpact))
	return plan
}
