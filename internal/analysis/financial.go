package analysis

import (
	"fmt"
	"log/slog"

	"erplens/internal/config"
	"erplens/internal/dataset"
	"erplens/pkg/contracts/domain"
)

// FinancialAnalyzer covers P&L structure: revenue, margins, expenses,
// budget variance, and customer revenue concentration.
type FinancialAnalyzer struct {
	cfg config.AnalysisConfig
	log *slog.Logger
}

// NewFinancialAnalyzer creates a financial analyzer
func NewFinancialAnalyzer(cfg config.AnalysisConfig, logger *slog.Logger) *FinancialAnalyzer {
	return &FinancialAnalyzer{cfg: cfg, log: componentLogger(logger, "financial_analyzer")}
}

// Category implements Analyzer
func (a *FinancialAnalyzer) Category() domain.InsightCategory { return domain.CategoryFinancial }

// Analyze implements Analyzer
func (a *FinancialAnalyzer) Analyze(d *dataset.Dataset) (domain.AnalysisResult, error) {
	kpis := a.KPIs(d)

	var insights []domain.Insight
	insights = append(insights, a.marginInsights(d)...)
	insights = append(insights, a.revenueInsights(d)...)
	insights = append(insights, a.expenseInsights(d)...)
	insights = append(insights, a.customerConcentrationInsights(d)...)
	insights = append(insights, a.budgetVarianceInsights(d)...)

	a.log.Debug("financial analysis complete",
		slog.Int("insights", len(insights)),
		slog.Float64("total_revenue", kpis["total_revenue"]))

	return result(domain.Financial, kpis, insights, a.charts(d)), nil
}

// KPIs implements Analyzer
func (a *FinancialAnalyzer) KPIs(d *dataset.Dataset) map[string]float64 {
	totalRevenue := sumColumn(d, "revenue")

	var grossProfit, grossMarginPct, cogs float64
	if d.HasColumn("cost_of_goods_sold") {
		cogs = sumColumn(d, "cost_of_goods_sold")
		grossProfit = totalRevenue - cogs
		if totalRevenue > 0 {
			grossMarginPct = grossProfit / totalRevenue * 100
		}
	}

	operatingExpenses := sumColumn(d, "operating_expenses")
	operatingIncome := grossProfit - operatingExpenses
	netIncome := operatingIncome
	if d.HasColumn("net_income") {
		netIncome = sumColumn(d, "net_income")
	}

	var netMarginPct, operatingMarginPct, expenseRatio float64
	if totalRevenue > 0 {
		netMarginPct = netIncome / totalRevenue * 100
		operatingMarginPct = operatingIncome / totalRevenue * 100
		expenseRatio = operatingExpenses / totalRevenue * 100
	}

	return map[string]float64{
		"total_revenue":        totalRevenue,
		"gross_profit":         grossProfit,
		"gross_margin_pct":     round2(grossMarginPct),
		"operating_income":     operatingIncome,
		"operating_margin_pct": round2(operatingMarginPct),
		"net_income":           netIncome,
		"net_margin_pct":       round2(netMarginPct),
		"total_expenses":       operatingExpenses,
		"expense_ratio":        round2(expenseRatio),
		"revenue_growth":       a.periodGrowth(d, "revenue"),
	}
}

// periodGrowth is last-period vs prior-period change of a column, with
// rows ordered by the period column.
func (a *FinancialAnalyzer) periodGrowth(d *dataset.Dataset, col string) float64 {
	if !d.HasColumn(col) || !d.HasColumn("period") {
		return 0
	}
	ordered := rowsByDate(d, "period")
	if len(ordered) < 2 {
		return 0
	}
	colIdx, _ := d.ColumnIndex(col)
	current, okC := dataset.ToFloat(d.Cell(ordered[len(ordered)-1], colIdx))
	prior, okP := dataset.ToFloat(d.Cell(ordered[len(ordered)-2], colIdx))
	if !okC || !okP || prior == 0 {
		return 0
	}
	return round2((current - prior) / prior * 100)
}

// marginInsights flags a gross-margin slide over three periods, a
// structurally thin gross margin, and a razor-thin net margin.
func (a *FinancialAnalyzer) marginInsights(d *dataset.Dataset) []domain.Insight {
	var insights []domain.Insight
	if !d.HasColumn("period") {
		return insights
	}
	ordered := rowsByDate(d, "period")

	margins := a.rowMargins(d, ordered, "revenue", "cost_of_goods_sold")
	if len(margins) >= 3 {
		recent := margins[len(margins)-1]
		prior := margins[len(margins)-3]
		change := recent - prior

		if change < -5 {
			in := newInsight(a.Category(), domain.SeverityCritical,
				fmt.Sprintf("Gross margin dropped from %.1f%% to %.1f%% (%.1f%% decline over 3 periods)", prior, recent, change),
				fmt.Sprintf("At this rate, you will lose %.1f%% more margin in next 6 months, directly threatening profitability", -change*2),
				"IMMEDIATE: (1) Renegotiate top 5 supplier contracts within 30 days targeting 10% cost reduction, (2) Review pricing on bottom 20% margin products, (3) Audit material waste in production")
			insights = append(insights, in.WithMetrics(map[string]float64{
				"current_margin": round2(recent),
				"prior_margin":   round2(prior),
				"change":         round2(change),
			}))
		}

		if recent < 20 {
			insights = append(insights, newInsight(a.Category(), domain.SeverityHigh,
				fmt.Sprintf("Gross margin is critically low at %.1f%% (industry benchmark: 30-40%%)", recent),
				fmt.Sprintf("Every $1 of revenue generates only $%.2f gross profit - insufficient to cover operating costs", recent/100),
				"Conduct 3-week margin improvement project: (1) Identify products with margin <15%, (2) Increase prices by 8-12% on those products, (3) Switch to lower-cost suppliers for top 10 SKUs by volume"))
		}
	}

	if d.HasColumn("net_income") && d.HasColumn("revenue") && len(ordered) >= 2 {
		revIdx, _ := d.ColumnIndex("revenue")
		netIdx, _ := d.ColumnIndex("net_income")
		last := ordered[len(ordered)-1]
		revenue, okR := dataset.ToFloat(d.Cell(last, revIdx))
		net, okN := dataset.ToFloat(d.Cell(last, netIdx))
		if okR && okN && revenue > 0 {
			currentNet := net / revenue * 100
			if currentNet < 5 {
				insights = append(insights, newInsight(a.Category(), domain.SeverityHigh,
					fmt.Sprintf("Net margin at %.1f%% - barely covering cost of capital", currentNet),
					"Business is operating with razor-thin profitability. Any increase in costs or drop in sales will result in losses.",
					"Reduce fixed costs by 10% within 60 days through: (1) Renegotiate rent/leases, (2) Consolidate vendors, (3) Automate manual processes"))
			}
		}
	}

	return insights
}

// rowMargins computes (revenue-cost)/revenue per ordered row. An empty
// costCol yields no margins.
func (a *FinancialAnalyzer) rowMargins(d *dataset.Dataset, ordered []int, revenueCol, costCol string) []float64 {
	revIdx, okR := d.ColumnIndex(revenueCol)
	costIdx, okC := d.ColumnIndex(costCol)
	if !okR || !okC {
		return nil
	}
	var margins []float64
	for _, row := range ordered {
		revenue, okRev := dataset.ToFloat(d.Cell(row, revIdx))
		cost, okCost := dataset.ToFloat(d.Cell(row, costIdx))
		if !okRev || !okCost || revenue <= 0 {
			continue
		}
		margins = append(margins, (revenue-cost)/revenue*100)
	}
	return margins
}

func (a *FinancialAnalyzer) revenueInsights(d *dataset.Dataset) []domain.Insight {
	var insights []domain.Insight

	dateCol := "period"
	if !d.HasColumn(dateCol) {
		dateCol = "date"
	}
	trend := Trend(d, "revenue", dateCol)
	if trend.Status != StatusOK {
		return insights
	}

	if trend.MoMChangePct < -10 {
		insights = append(insights, newInsight(a.Category(), domain.SeverityHigh,
			fmt.Sprintf("Revenue dropped %.1f%% MoM (from %s to %s)", -trend.MoMChangePct, FormatAmount(trend.PriorValue), FormatAmount(trend.CurrentValue)),
			fmt.Sprintf("If decline continues, quarterly revenue will be %s - %s below target", FormatAmount(trend.CurrentValue*3), FormatAmount((trend.PriorValue-trend.CurrentValue)*3)),
			"Week 1: (1) Contact top 20 customers to identify issues, (2) Analyze lost deals, (3) Review competitive landscape. Week 2: Launch retention campaign for at-risk accounts."))
	}

	if trend.Direction == "rising" && trend.MoMChangePct > 15 {
		insights = append(insights, newInsight(a.Category(), domain.SeverityLow,
			fmt.Sprintf("Revenue growing strongly at %.1f%% MoM", trend.MoMChangePct),
			"Strong momentum - opportunity to capitalize before competitors react",
			"Double down on winning channels: (1) Increase marketing spend by 20%, (2) Stock up on top-selling SKUs, (3) Expedite hiring for sales team"))
	}

	return insights
}

func (a *FinancialAnalyzer) expenseInsights(d *dataset.Dataset) []domain.Insight {
	var insights []domain.Insight

	if d.HasColumn("category") && d.HasColumn("amount") {
		byCategory := GroupSum(d, "category", "amount")
		if len(byCategory) > 0 {
			total := 0.0
			for _, g := range byCategory {
				total += g.Value
			}
			top := byCategory[0]
			if total > 0 {
				topPct := top.Value / total * 100
				if topPct > 40 {
					insights = append(insights, newInsight(a.Category(), domain.SeverityHigh,
						fmt.Sprintf("%s represents %.0f%% of total expenses (%s)", top.Label, topPct, FormatAmount(top.Value)),
						fmt.Sprintf("Heavy concentration in %s creates cost vulnerability - any price increase here directly hurts margins", top.Label),
						fmt.Sprintf("Diversify %s spend: (1) Qualify 2-3 alternative suppliers, (2) Negotiate volume discounts with current supplier, (3) Reduce consumption by 10%% through efficiency gains", top.Label)))
				}
			}
		}
	}

	variance := Variance(d, "actual", "budget", "category")
	if variance.Status == StatusOK && variance.IsOverBudget {
		severity := domain.SeverityHigh
		if variance.TotalVariancePct > 20 {
			severity = domain.SeverityCritical
		}
		annualized := variance.TotalVariance * 12
		annualPct := 0.0
		if variance.TotalPlanned > 0 {
			annualPct = annualized / variance.TotalPlanned * 100
		}
		insights = append(insights, newInsight(a.Category(), severity,
			fmt.Sprintf("Expenses are %.1f%% over budget (%s overspend)", variance.TotalVariancePct, FormatAmount(variance.TotalVariance)),
			fmt.Sprintf("At this rate, annual overspend will be %s - equivalent to %.0f%% of annual budget", FormatAmount(annualized), annualPct),
			fmt.Sprintf("IMMEDIATE: Freeze all discretionary spending. Within 2 weeks: conduct line-item expense review. Identify top 5 cost reduction opportunities totaling %s in annual savings.", FormatAmount(variance.TotalVariance*2))))
	}

	return insights
}

func (a *FinancialAnalyzer) customerConcentrationInsights(d *dataset.Dataset) []domain.Insight {
	var insights []domain.Insight
	if !d.HasColumn("customer_id") || !d.HasColumn("revenue") {
		return insights
	}

	byCustomer := GroupSum(d, "customer_id", "revenue")
	total := 0.0
	for _, g := range byCustomer {
		total += g.Value
	}
	if total == 0 || len(byCustomer) == 0 {
		return insights
	}

	top := byCustomer[0]
	topPct := top.Value / total * 100
	if topPct > 25 {
		insights = append(insights, newInsight(a.Category(), domain.SeverityCritical,
			fmt.Sprintf("Customer '%s' represents %.1f%% of revenue (%s)", top.Label, topPct, FormatAmount(top.Value)),
			fmt.Sprintf("LOSS OF THIS CUSTOMER = LOSS OF %s ANNUAL REVENUE. Business continuity at extreme risk.", FormatAmount(top.Value)),
			"IMMEDIATE: (1) Assign dedicated account manager with weekly check-ins, (2) Schedule quarterly business review with executive, (3) Develop 3+ new customers in same segment within 90 days to reduce dependency below 20%"))
	}

	top3 := 0.0
	for i, g := range byCustomer {
		if i >= 3 {
			break
		}
		top3 += g.Value
	}
	if top3Pct := top3 / total * 100; top3Pct > 60 {
		insights = append(insights, newInsight(a.Category(), domain.SeverityHigh,
			fmt.Sprintf("Top 3 customers represent %.1f%% of total revenue - dangerously concentrated", top3Pct),
			"Losing any top customer severely impacts business. Revenue base lacks diversification.",
			"Launch customer diversification program: Target 10 new mid-tier customers ($50K-$200K annual) within 6 months. Budget: $50K for acquisition."))
	}

	return insights
}

func (a *FinancialAnalyzer) budgetVarianceInsights(d *dataset.Dataset) []domain.Insight {
	var insights []domain.Insight

	variance := Variance(d, "actual", "budget", "category")
	if variance.Status == StatusOK && variance.Material && variance.IsOverBudget {
		insights = append(insights, newInsight(a.Category(), domain.SeverityHigh,
			fmt.Sprintf("Budget variance of %.1f%% (%s over budget)", variance.TotalVariancePct, FormatAmount(variance.TotalVariance)),
			"Variance exceeds materiality threshold of 10%. Management attention required.",
			"Conduct variance analysis: (1) Categorize variances by driver, (2) Identify one-time vs recurring, (3) Adjust next quarter budget or reduce spending accordingly"))
	}

	return insights
}

func (a *FinancialAnalyzer) charts(d *dataset.Dataset) map[string][]domain.ChartPoint {
	charts := make(map[string][]domain.ChartPoint)
	if !d.HasColumn("period") {
		return charts
	}
	ordered := rowsByDate(d, "period")
	periodIdx, _ := d.ColumnIndex("period")

	if revIdx, ok := d.ColumnIndex("revenue"); ok {
		var points []domain.ChartPoint
		for _, row := range ordered {
			t, _ := CellTime(d.Cell(row, periodIdx))
			if revenue, ok := dataset.ToFloat(d.Cell(row, revIdx)); ok {
				points = append(points, domain.ChartPoint{Label: t.Format("2006-01"), Value: revenue})
			}
		}
		charts["revenue_trend"] = points
	}

	if d.HasColumn("revenue") && d.HasColumn("cost_of_goods_sold") {
		revIdx, _ := d.ColumnIndex("revenue")
		costIdx, _ := d.ColumnIndex("cost_of_goods_sold")
		var points []domain.ChartPoint
		for _, row := range ordered {
			t, _ := CellTime(d.Cell(row, periodIdx))
			revenue, okR := dataset.ToFloat(d.Cell(row, revIdx))
			cost, okC := dataset.ToFloat(d.Cell(row, costIdx))
			if !okR || !okC {
				continue
			}
			margin := 0.0
			if revenue > 0 {
				margin = (revenue - cost) / revenue * 100
			}
			points = append(points, domain.ChartPoint{Label: t.Format("2006-01"), Value: round2(margin)})
		}
		charts["margin_trend"] = points
	}

	return charts
}

// sumColumn totals a numeric column, treating a missing column as zero
func sumColumn(d *dataset.Dataset, name string) float64 {
	sum := 0.0
	for _, v := range d.FloatColumn(name) {
		sum += v
	}
	return sum
}
