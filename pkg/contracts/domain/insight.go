package domain

import (
	"fmt"
)

// Insight is a single structured finding.
//
// Every insight MUST carry the full triple:
//   - Finding: what is wrong, specific and with numbers
//   - Impact: why it matters, the business consequence
//   - Action: the exact, time-boxed action to take
//
// The triple is the system's core contract; NewInsight enforces it.
type Insight struct {
	Category InsightCategory    `json:"category"`
	Severity Severity           `json:"severity"`
	Finding  string             `json:"finding"`
	Impact   string             `json:"impact"`
	Action   string             `json:"action"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
	Product  string             `json:"product_sku,omitempty"`
	Customer string             `json:"customer_id,omitempty"`
}

// NewInsight builds an insight, rejecting any empty member of the triple.
// An error here is a programming error in an analyzer, not a data problem.
func NewInsight(category InsightCategory, severity Severity, finding, impact, action string) (Insight, error) {
	if finding == "" || impact == "" || action == "" {
		return Insight{}, fmt.Errorf("insight requires non-empty finding/impact/action (got %q/%q/%q)", finding, impact, action)
	}
	return Insight{
		Category: category,
		Severity: severity,
		Finding:  finding,
		Impact:   impact,
		Action:   action,
	}, nil
}

// WithMetrics attaches supporting metrics to the insight
func (i Insight) WithMetrics(metrics map[string]float64) Insight {
	i.Metrics = metrics
	return i
}

// Recommendation is an actionable, prioritized plan derived from exactly
// one insight
type Recommendation struct {
	Title            string   `json:"title"`
	What             string   `json:"what"`
	Why              string   `json:"why"`
	How              string   `json:"how"`
	Impact           string   `json:"impact"`
	Priority         Priority `json:"priority"`
	Timeline         string   `json:"timeline"`
	EstimatedSavings float64  `json:"estimated_savings,omitempty"`
}

// Risk is a forward-looking exposure with probability and mitigation
type Risk struct {
	Title           string          `json:"title"`
	Category        InsightCategory `json:"category"`
	Description     string          `json:"description"`
	Probability     string          `json:"probability"`
	FinancialImpact string          `json:"financial_impact"`
	TimeToImpact    string          `json:"time_to_impact"`
	Severity        Severity        `json:"severity"`
	Mitigation      string          `json:"mitigation"`
}

// ActionPlan groups recommendations by priority with a summed impact
type ActionPlan struct {
	ImmediateActions     []Recommendation `json:"immediate_actions"`
	ShortTermActions     []Recommendation `json:"short_term_actions"`
	MediumTermActions    []Recommendation `json:"medium_term_actions"`
	TotalEstimatedImpact float64          `json:"total_estimated_impact"`
	ImmediateCount       int              `json:"immediate_count"`
	TotalCount           int              `json:"total_count"`
}
