package analysis

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"erplens/internal/config"
	"erplens/internal/dataset"
	"erplens/pkg/contracts/domain"
)

// SalesAnalyzer covers revenue trends, product and customer
// concentration, Pareto structure, and discount discipline.
type SalesAnalyzer struct {
	cfg config.AnalysisConfig
	log *slog.Logger
	now func() time.Time
}

// NewSalesAnalyzer creates a sales analyzer
func NewSalesAnalyzer(cfg config.AnalysisConfig, logger *slog.Logger) *SalesAnalyzer {
	return &SalesAnalyzer{
		cfg: cfg,
		log: componentLogger(logger, "sales_analyzer"),
		now: time.Now,
	}
}

// Category implements Analyzer
func (a *SalesAnalyzer) Category() domain.InsightCategory { return domain.CategorySales }

// Analyze implements Analyzer
func (a *SalesAnalyzer) Analyze(d *dataset.Dataset) (domain.AnalysisResult, error) {
	kpis := a.KPIs(d)

	var insights []domain.Insight
	insights = append(insights, a.trendInsights(d)...)
	insights = append(insights, a.productInsights(d)...)
	insights = append(insights, a.customerConcentrationInsights(d)...)
	insights = append(insights, a.paretoInsights(d)...)
	insights = append(insights, a.discountInsights(d)...)

	a.log.Debug("sales analysis complete",
		slog.Int("insights", len(insights)),
		slog.Float64("total_revenue", kpis["total_revenue"]))

	return result(domain.Sales, kpis, insights, a.charts(d)), nil
}

// KPIs implements Analyzer
func (a *SalesAnalyzer) KPIs(d *dataset.Dataset) map[string]float64 {
	totalRevenue := sumColumn(d, "total_amount")

	orderCount := float64(d.NumRows())
	if orderCol, ok := firstColumn(d, "order_id", "order"); ok {
		orderCount = float64(uniqueCount(d, orderCol))
	}

	avgOrderValue := 0.0
	if orderCount > 0 {
		avgOrderValue = totalRevenue / orderCount
	}

	uniqueCustomers := 0.0
	if customerCol, ok := firstColumn(d, "customer_id", "customer_name"); ok {
		uniqueCustomers = float64(uniqueCount(d, customerCol))
	}
	uniqueProducts := 0.0
	if productCol, ok := firstColumn(d, "product_id", "product_name"); ok {
		uniqueProducts = float64(uniqueCount(d, productCol))
	}

	var grossMargin, avgMarginPct float64
	if d.HasColumn("total_amount") && d.HasColumn("cost_of_goods_sold") {
		grossMargin = totalRevenue - sumColumn(d, "cost_of_goods_sold")
		if totalRevenue > 0 {
			avgMarginPct = grossMargin / totalRevenue * 100
		}
	}

	growth := 0.0
	if dateCol, ok := a.dateColumn(d); ok {
		monthly := monthlySum(d, dateCol, "total_amount")
		if len(monthly) >= 2 {
			prior := monthly[len(monthly)-2].Value
			current := monthly[len(monthly)-1].Value
			if prior != 0 {
				growth = round2((current - prior) / prior * 100)
			}
		}
	}

	return map[string]float64{
		"total_revenue":       totalRevenue,
		"order_count":         orderCount,
		"average_order_value": round2(avgOrderValue),
		"unique_customers":    uniqueCustomers,
		"unique_products":     uniqueProducts,
		"gross_margin":        grossMargin,
		"average_margin_pct":  round2(avgMarginPct),
		"revenue_growth_pct":  growth,
	}
}

func (a *SalesAnalyzer) dateColumn(d *dataset.Dataset) (string, bool) {
	return firstColumn(d, "order_date", "date", "period")
}

func (a *SalesAnalyzer) trendInsights(d *dataset.Dataset) []domain.Insight {
	var insights []domain.Insight
	dateCol, ok := a.dateColumn(d)
	if !ok || !d.HasColumn("total_amount") {
		return insights
	}

	trend := Trend(d, "total_amount", dateCol)
	if trend.Status != StatusOK {
		return insights
	}

	if trend.MoMChangePct < -10 {
		insights = append(insights, newInsight(a.Category(), domain.SeverityHigh,
			fmt.Sprintf("Sales dropped %.1f%% MoM (%s to %s)", -trend.MoMChangePct, FormatAmount(trend.PriorValue), FormatAmount(trend.CurrentValue)),
			fmt.Sprintf("If decline continues, Q4 revenue will be %s vs projected %s - a %s shortfall",
				FormatAmount(trend.CurrentValue*3), FormatAmount(trend.PriorValue*3), FormatAmount((trend.PriorValue-trend.CurrentValue)*3)),
			"IMMEDIATE (Week 1): (1) Check top 10 accounts for issues/churn signals, (2) Analyze lost deals in CRM, (3) Review competitive activity. Week 2: Launch retention campaign for at-risk customers. Target: recover 50% of lost revenue within 30 days."))
	}

	if trend.QoQChangePct > 20 {
		insights = append(insights, newInsight(a.Category(), domain.SeverityLow,
			fmt.Sprintf("Sales growing strongly at %.1f%% quarter-over-quarter", trend.QoQChangePct),
			"Strong growth trajectory. Ensure operations can scale to meet demand before it becomes a capacity constraint.",
			"CAPACITY PLANNING: (1) Review inventory levels for top 20 SKUs, (2) Assess production capacity, (3) Plan for 25% additional volume. Consider promotional limits to manage demand."))
	}

	if trend.DataPoints >= 4 {
		values := seriesValues(trend.Series)
		m := meanOf(values)
		if m > 0 {
			volatility := stddevOf(values) / m * 100
			if volatility > 30 {
				insights = append(insights, newInsight(a.Category(), domain.SeverityMedium,
					fmt.Sprintf("Sales volatility at %.1f%% - inconsistent performance", volatility),
					"High volatility makes planning difficult. Some months significantly underperforming.",
					"STABILIZE SALES: (1) Identify what's driving volatility (seasonality? promotions?), (2) Build rolling 3-month forecast, (3) Implement lead indicators to predict slow months."))
			}
		}
	}

	return insights
}

func (a *SalesAnalyzer) productInsights(d *dataset.Dataset) []domain.Insight {
	var insights []domain.Insight
	if !d.HasColumn("product_id") || !d.HasColumn("total_amount") {
		return insights
	}

	byProduct := GroupSum(d, "product_id", "total_amount")
	total := 0.0
	for _, g := range byProduct {
		total += g.Value
	}
	if total <= 0 {
		return insights
	}
	productCount := len(byProduct)

	if productCount > 20 {
		bottom := byProduct
		if len(bottom) > 10 {
			bottom = bottom[len(bottom)-10:]
		}
		bottomValue := 0.0
		for _, g := range bottom {
			bottomValue += g.Value
		}
		bottomPct := bottomValue / total * 100
		if bottomPct < 5 {
			insights = append(insights, newInsight(a.Category(), domain.SeverityMedium,
				fmt.Sprintf("Bottom 10 products contribute only %s (%.1f%% of revenue) - inefficient SKU portfolio", FormatAmount(bottomValue), bottomPct),
				"These products consume resources (inventory, warehouse space, management attention) without meaningful return. Cost to carry likely exceeds margin.",
				"SKU RATIONALIZATION: (1) Discontinue bottom 5 products immediately, (2) Conduct margin analysis on next 5, (3) Reallocate resources to top 20 products. Expected savings: $50K in reduced inventory + $20K in operational efficiency."))
		}
	}

	top5Value := 0.0
	for i, g := range byProduct {
		if i >= 5 {
			break
		}
		top5Value += g.Value
	}
	if top5Pct := top5Value / total * 100; top5Pct > 60 {
		insights = append(insights, newInsight(a.Category(), domain.SeverityMedium,
			fmt.Sprintf("Top 5 products represent %.1f%% of revenue - product concentration risk", top5Pct),
			"Business heavily dependent on few products. Any issue with these products (supply, quality, competition) severely impacts revenue.",
			"PRODUCT DIVERSIFICATION: (1) Analyze what makes top products successful, (2) Develop next tier of products with similar characteristics, (3) Set target to reduce top 5 concentration below 50% within 12 months."))
	}

	return insights
}

func (a *SalesAnalyzer) customerConcentrationInsights(d *dataset.Dataset) []domain.Insight {
	var insights []domain.Insight
	if !d.HasColumn("customer_id") || !d.HasColumn("total_amount") {
		return insights
	}

	byCustomer := GroupSum(d, "customer_id", "total_amount")
	total := 0.0
	for _, g := range byCustomer {
		total += g.Value
	}
	if total <= 0 || len(byCustomer) == 0 {
		return insights
	}

	top := byCustomer[0]
	topName := a.customerName(d, top.Label)
	topPct := top.Value / total * 100

	if topPct > a.cfg.CustomerConcentrationCriticalPct {
		insights = append(insights, newInsight(a.Category(), domain.SeverityCritical,
			fmt.Sprintf("Customer '%s' represents %.1f%% of revenue (%s)", topName, topPct, FormatAmount(top.Value)),
			fmt.Sprintf("SINGLE POINT OF FAILURE. Loss of this customer = loss of %s annual revenue. Business continuity at extreme risk.", FormatAmount(top.Value)),
			"IMMEDIATE CUSTOMER RETENTION: (1) Assign executive sponsor to this account, (2) Schedule quarterly business review with customer execs, (3) Develop 3+ new customers in similar segment within 6 months to reduce dependency below 20%, (4) Create switching costs via integration/customization. Budget: $100K for relationship deepening."))
	}

	if len(byCustomer) >= 5 {
		top5 := 0.0
		for i := 0; i < 5; i++ {
			top5 += byCustomer[i].Value
		}
		if top5Pct := top5 / total * 100; top5Pct > 70 {
			insights = append(insights, newInsight(a.Category(), domain.SeverityHigh,
				fmt.Sprintf("Top 5 customers represent %.1f%% of revenue (%s of %s)", top5Pct, FormatAmount(top5), FormatAmount(total)),
				"Customer base dangerously concentrated. Revenue highly vulnerable to customer churn. Losing 2 top customers would be catastrophic.",
				"CUSTOMER DIVERSIFICATION PROGRAM: (1) Launch mid-market acquisition initiative targeting 15 new customers in $25K-$100K tier within 12 months, (2) Increase marketing spend on customer acquisition, (3) Set KPI: reduce top 5 concentration below 50%. Budget: $150K for acquisition program."))
		}
	}

	insights = append(insights, a.decliningCustomerInsights(d)...)
	return insights
}

// decliningCustomerInsights flags customers whose revenue in the last
// 90 days fell 30%+ versus everything before.
func (a *SalesAnalyzer) decliningCustomerInsights(d *dataset.Dataset) []domain.Insight {
	var insights []domain.Insight
	dateCol, ok := a.dateColumn(d)
	if !ok {
		return insights
	}

	dateIdx, _ := d.ColumnIndex(dateCol)
	customerIdx, okC := d.ColumnIndex("customer_id")
	amountIdx, okA := d.ColumnIndex("total_amount")
	if !okC || !okA {
		return insights
	}

	cutoff := a.now().AddDate(0, 0, -90)
	recent := make(map[string]float64)
	prior := make(map[string]float64)
	for i := range d.Rows {
		t, okT := CellTime(d.Cell(i, dateIdx))
		if !okT {
			continue
		}
		customer := d.String(i, customerIdx)
		amount, okAmt := dataset.ToFloat(d.Cell(i, amountIdx))
		if customer == "" || !okAmt {
			continue
		}
		if t.Before(cutoff) {
			prior[customer] += amount
		} else {
			recent[customer] += amount
		}
	}

	type decline struct {
		customer  string
		changePct float64
		recent    float64
	}
	var declining []decline
	for customer, recentValue := range recent {
		priorValue, had := prior[customer]
		if !had || priorValue <= 0 {
			continue
		}
		change := (recentValue - priorValue) / priorValue * 100
		if change < -30 {
			declining = append(declining, decline{customer: customer, changePct: change, recent: recentValue})
		}
	}
	if len(declining) == 0 {
		return insights
	}

	sort.SliceStable(declining, func(i, j int) bool {
		if declining[i].changePct != declining[j].changePct {
			return declining[i].changePct < declining[j].changePct
		}
		return declining[i].customer < declining[j].customer
	})
	top := declining
	if len(top) > 3 {
		top = top[:3]
	}
	atRisk := 0.0
	for _, dec := range top {
		atRisk += dec.recent
	}

	insights = append(insights, newInsight(a.Category(), domain.SeverityHigh,
		fmt.Sprintf("%d customers showing 30%%+ revenue decline - churn risk", len(declining)),
		fmt.Sprintf("%s in declining revenue. These customers may be at risk of leaving.", FormatAmount(atRisk)),
		"CHURN PREVENTION: (1) Contact each declining customer within 1 week, (2) Understand their issues, (3) Offer retention incentives, (4) Document feedback for product/operations. Target: reverse decline in 2 customers."))

	return insights
}

func (a *SalesAnalyzer) paretoInsights(d *dataset.Dataset) []domain.Insight {
	var insights []domain.Insight

	pareto := Pareto(d, "product_id", "total_amount", 10,
		a.cfg.ParetoHighConcentrationPct, a.cfg.ParetoMediumConcentrationPct)
	if pareto.Status != StatusOK {
		return insights
	}

	totalProducts := len(pareto.FullPareto)
	remaining := totalProducts - pareto.ItemsFor80Pct

	severity := domain.SeverityLow
	impact := "Healthy distribution across product portfolio"
	if pareto.Concentration == "HIGH" {
		severity = domain.SeverityMedium
		impact = "Heavy concentration - focus resources on winners"
	}

	insights = append(insights, newInsight(a.Category(), severity,
		fmt.Sprintf("%d products (%.1f%% of SKUs) generate 80%% of revenue",
			pareto.ItemsFor80Pct, float64(pareto.ItemsFor80Pct)/float64(totalProducts)*100),
		impact,
		fmt.Sprintf("RESOURCE ALLOCATION: Prioritize top %d products for: (1) Inventory investment, (2) Marketing spend, (3) Sales focus. Review ROI on remaining %d products - consider pruning underperformers.",
			pareto.ItemsFor80Pct, remaining)))

	return insights
}

func (a *SalesAnalyzer) discountInsights(d *dataset.Dataset) []domain.Insight {
	var insights []domain.Insight
	discountCol, ok := firstColumn(d, "discount", "discount_amount")
	if !ok || !d.HasColumn("total_amount") {
		return insights
	}

	discountIdx, _ := d.ColumnIndex(discountCol)
	amountIdx, _ := d.ColumnIndex("total_amount")

	var rates []float64
	highDiscountOrders := 0
	for i := range d.Rows {
		discount, okD := dataset.ToFloat(d.Cell(i, discountIdx))
		amount, okA := dataset.ToFloat(d.Cell(i, amountIdx))
		if !okD || !okA || amount <= 0 {
			continue
		}
		rate := discount / amount * 100
		rates = append(rates, rate)
		if rate > 20 {
			highDiscountOrders++
		}
	}
	if len(rates) == 0 {
		return insights
	}

	avgDiscount := meanOf(rates)
	if avgDiscount > 15 {
		insights = append(insights, newInsight(a.Category(), domain.SeverityHigh,
			fmt.Sprintf("Average discount rate at %.1f%% - eroding margins", avgDiscount),
			fmt.Sprintf("Every 1%% of discount directly reduces margin. At %.1f%%, you're giving away %s in potential margin.",
				avgDiscount, FormatAmount(sumColumn(d, "total_amount")*avgDiscount/100)),
			"DISCIPLINE DISCOUNTS: (1) Set maximum discount thresholds by product category, (2) Require manager approval for discounts >15%, (3) Train sales on value-based selling instead of price-based. Target: reduce average discount to <10%."))
	}

	if highDiscountOrders > 10 {
		insights = append(insights, newInsight(a.Category(), domain.SeverityMedium,
			fmt.Sprintf("%d orders with >20%% discount - potential discounting abuse", highDiscountOrders),
			fmt.Sprintf("Deep discounting on %d orders. Revenue leakage opportunity.", highDiscountOrders),
			"DISCOUNT AUDIT: Review top 10 high-discount orders: (1) Were approvals obtained?, (2) What's the customer reason?, (3) Is there pattern by sales rep? Implement stricter controls."))
	}

	return insights
}

// customerName resolves a customer id to its display name when the
// dataset carries one.
func (a *SalesAnalyzer) customerName(d *dataset.Dataset, customerID string) string {
	idIdx, okID := d.ColumnIndex("customer_id")
	nameIdx, okName := d.ColumnIndex("customer_name")
	if !okID || !okName {
		return customerID
	}
	for i := range d.Rows {
		if d.String(i, idIdx) == customerID {
			if name := d.String(i, nameIdx); name != "" {
				return name
			}
			break
		}
	}
	return customerID
}

func (a *SalesAnalyzer) charts(d *dataset.Dataset) map[string][]domain.ChartPoint {
	charts := make(map[string][]domain.ChartPoint)

	if dateCol, ok := a.dateColumn(d); ok && d.HasColumn("total_amount") {
		monthly := monthlySum(d, dateCol, "total_amount")
		points := make([]domain.ChartPoint, len(monthly))
		for i, pv := range monthly {
			points[i] = domain.ChartPoint{Label: pv.Period, Value: pv.Value}
		}
		charts["revenue_trend"] = points
	}

	if productCol, ok := firstColumn(d, "product_name", "product_id"); ok && d.HasColumn("total_amount") {
		byProduct := GroupSum(d, productCol, "total_amount")
		if len(byProduct) > 10 {
			byProduct = byProduct[:10]
		}
		points := make([]domain.ChartPoint, len(byProduct))
		for i, g := range byProduct {
			points[i] = domain.ChartPoint{Label: g.Label, Value: g.Value}
		}
		charts["top_products"] = points
	}

	if customerCol, ok := firstColumn(d, "customer_name", "customer_id"); ok && d.HasColumn("total_amount") {
		byCustomer := GroupSum(d, customerCol, "total_amount")
		if len(byCustomer) > 10 {
			byCustomer = byCustomer[:10]
		}
		points := make([]domain.ChartPoint, len(byCustomer))
		for i, g := range byCustomer {
			points[i] = domain.ChartPoint{Label: g.Label, Value: g.Value}
		}
		charts["top_customers"] = points
	}

	return charts
}
