package insight

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"erplens/internal/analysis"
	"erplens/pkg/contracts/domain"
)

// Engine merges, deduplicates, and orders insights across domains and
// renders the executive summary.
type Engine struct {
	log *slog.Logger
}

// NewEngine creates an insight engine
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{log: logger.With(slog.String("component", "insight_engine"))}
}

// Merge combines the insights of all results into one list: duplicates
// removed, then sorted by severity with category as the tie-break.
func (e *Engine) Merge(results []domain.AnalysisResult) []domain.Insight {
	var all []domain.Insight
	for _, r := range results {
		all = append(all, r.Insights...)
	}

	merged := e.sorted(e.deduplicate(all))
	e.log.Debug("insights merged",
		slog.Int("input", len(all)),
		slog.Int("output", len(merged)))
	return merged
}

// deduplicate drops insights whose finding matches an earlier one. The
// key is the first 100 characters of the finding, lowercased; the first
// occurrence wins.
func (e *Engine) deduplicate(insights []domain.Insight) []domain.Insight {
	seen := make(map[string]struct{}, len(insights))
	unique := make([]domain.Insight, 0, len(insights))
	for _, in := range insights {
		key := dedupeKey(in.Finding, 100)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, in)
	}
	return unique
}

func dedupeKey(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}
	return strings.TrimSpace(strings.ToLower(s))
}

// sorted orders insights by severity rank, then category. The sort is
// stable so equal insights keep their input order.
func (e *Engine) sorted(insights []domain.Insight) []domain.Insight {
	out := make([]domain.Insight, len(insights))
	copy(out, insights)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity.Rank() < out[j].Severity.Rank()
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Categorize groups insights by their category display name, dropping
// empty categories.
func (e *Engine) Categorize(insights []domain.Insight) map[string][]domain.Insight {
	out := make(map[string][]domain.Insight)
	for _, in := range insights {
		key := in.Category.String()
		out[key] = append(out[key], in)
	}
	return out
}

// ExecutiveSummary renders at most seven bullets: the worst findings
// first, then headline KPIs, then the most urgent action.
func (e *Engine) ExecutiveSummary(insights []domain.Insight, kpis map[string]float64) []string {
	var summary []string

	var criticals, highs []domain.Insight
	for _, in := range insights {
		switch in.Severity {
		case domain.SeverityCritical:
			criticals = append(criticals, in)
		case domain.SeverityHigh:
			highs = append(highs, in)
		}
	}

	if len(criticals) > 0 {
		for i, in := range criticals {
			if i >= 2 {
				break
			}
			summary = append(summary, "CRITICAL: "+in.Finding)
		}
	} else if len(highs) > 0 {
		summary = append(summary, "HIGH PRIORITY: "+highs[0].Finding)
	}

	if v, ok := kpis["total_revenue"]; ok {
		summary = append(summary, "Total Revenue: "+analysis.FormatAmount(v))
	}
	if v, ok := kpis["net_margin_pct"]; ok {
		summary = append(summary, "Net Margin: "+analysis.FormatPct(v))
	}
	if v, ok := kpis["revenue_growth"]; ok {
		arrow := "↑"
		if v < 0 {
			arrow = "↓"
		}
		summary = append(summary, fmt.Sprintf("Revenue Growth: %s %.1f%%", arrow, abs(v)))
	}
	if v, ok := kpis["total_stock_value"]; ok {
		summary = append(summary, "Inventory Value: "+analysis.FormatAmount(v))
	}
	if v, ok := kpis["days_inventory_outstanding"]; ok {
		summary = append(summary, fmt.Sprintf("Days Inventory: %.0f", v))
	}

	if len(insights) > 0 {
		summary = append(summary, "IMMEDIATE ACTION: "+truncate(insights[0].Action, 100)+"...")
	}

	if len(summary) > 7 {
		summary = summary[:7]
	}
	return summary
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
