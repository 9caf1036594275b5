package domain

import (
	"time"
)

// ChartPoint is a single label/value pair in a chart-ready series.
// Presentation layers render these as-is; the core only guarantees the
// label/value contract.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// AnalysisResult is the per-domain output bundle of one analyzer run.
// It is produced once and never mutated afterwards.
type AnalysisResult struct {
	Domain    DataType                `json:"domain"`
	Timestamp time.Time               `json:"timestamp"`
	KPIs      map[string]float64      `json:"kpis"`
	Insights  []Insight               `json:"insights"`
	Charts    map[string][]ChartPoint `json:"charts_data"`
}

// InsightCount returns the number of insights in the result
func (r AnalysisResult) InsightCount() int { return len(r.Insights) }

// CriticalInsights returns only critical-severity insights
func (r AnalysisResult) CriticalInsights() []Insight {
	var out []Insight
	for _, insight := range r.Insights {
		if insight.Severity == SeverityCritical {
			out = append(out, insight)
		}
	}
	return out
}

// Report is the unified multi-domain deliverable consumed by the
// executive-report renderer. Maps are keyed only by enabled domains;
// a domain that failed its schema gate never appears in any map.
type Report struct {
	GeneratedAt         time.Time                          `json:"generated_at"`
	DataSource          string                             `json:"data_source"`
	EnabledDomains      []string                           `json:"enabled_domains"`
	ExecutiveSummary    []string                           `json:"executive_summary"`
	KPIs                map[string]map[string]float64      `json:"kpis"`
	InsightsByCategory  map[string][]Insight               `json:"insights_by_category"`
	CrossDomainInsights []Insight                          `json:"cross_domain_insights"`
	CriticalRisks       []Risk                             `json:"critical_risks"`
	ActionPlan          ActionPlan                         `json:"action_plan"`
	Charts              map[string]map[string][]ChartPoint `json:"charts_data"`
	TotalInsights       int                                `json:"total_insights"`
	CriticalCount       int                                `json:"critical_count"`
	FilesAnalyzed       int                                `json:"files_analyzed"`
}

// SingleReport is the full single-file deliverable: the quality report for
// the load plus the same engine outputs as the multi-domain report.
type SingleReport struct {
	GeneratedAt        time.Time               `json:"generated_at"`
	DataSource         string                  `json:"data_source"`
	DataType           DataType                `json:"data_type"`
	DataQuality        DataQualityReport       `json:"data_quality"`
	DataQualitySummary string                  `json:"data_quality_summary"`
	ExecutiveSummary   []string                `json:"executive_summary"`
	KPIs               map[string]float64      `json:"kpis"`
	InsightsByCategory map[string][]Insight    `json:"insights_by_category"`
	CriticalRisks      []Risk                  `json:"critical_risks"`
	ActionPlan         ActionPlan              `json:"action_plan"`
	Charts             map[string][]ChartPoint `json:"charts_data"`
	TotalInsights      int                     `json:"total_insights"`
	CriticalCount      int                     `json:"critical_count"`
}
