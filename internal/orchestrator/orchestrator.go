package orchestrator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"erplens/internal/analysis"
	"erplens/internal/config"
	"erplens/internal/dataset"
	"erplens/internal/infrastructure"
	"erplens/internal/insight"
	"erplens/internal/schema"
	"erplens/pkg/contracts/domain"
)

// Orchestrator runs the multi-domain analysis pipeline. It is safe for
// concurrent use; each run works on private normalized copies of the
// input datasets.
type Orchestrator struct {
	cfg       config.AnalysisConfig
	detector  *schema.Detector
	insights  *insight.Engine
	recommend *insight.Recommender
	risks     *insight.RiskAssessor
	metrics   *infrastructure.Metrics
	log       *slog.Logger
	now       func() time.Time

	// analyzerFor is swapped in tests to exercise failure isolation
	analyzerFor func(dt domain.DataType, cfg config.AnalysisConfig, logger *slog.Logger) (analysis.Analyzer, error)
}

// New creates an orchestrator. metrics may be nil when no instrumentation
// is wanted; logger nil falls back to slog.Default.
func New(cfg config.AnalysisConfig, metrics *infrastructure.Metrics, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "orchestrator"))
	return &Orchestrator{
		cfg:         cfg,
		detector:    schema.NewDetector(logger),
		insights:    insight.NewEngine(logger),
		recommend:   insight.NewRecommender(cfg, logger),
		risks:       insight.NewRiskAssessor(logger),
		metrics:     metrics,
		log:         log,
		now:         time.Now,
		analyzerFor: analysis.ForDataType,
	}
}

// outcome is the fate of one candidate domain after gating and analysis
type outcome struct {
	name   string
	result domain.AnalysisResult
	ok     bool
}

// AnalyzeMultiFile analyzes one dataset per domain and assembles the
// unified report. Keys of files are domain wire names ("financial",
// "inventory", ...); unknown keys are skipped. Per-domain failures are
// isolated: the domain is left out of the report and the remaining
// domains still complete.
func (o *Orchestrator) AnalyzeMultiFile(ctx context.Context, files map[string]*dataset.Dataset) domain.Report {
	started := o.now()

	candidates := o.gate(files)
	outcomes := make([]outcome, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	for i, c := range candidates {
		g.Go(func() error {
			outcomes[i] = o.analyzeDomain(ctx, c.dt, c.data)
			return nil
		})
	}
	// Goroutines never return errors; failures land in their outcome slot.
	_ = g.Wait()

	var results []domain.AnalysisResult
	var enabled []string
	for _, out := range outcomes {
		if !out.ok {
			continue
		}
		results = append(results, out.result)
		enabled = append(enabled, out.name)
	}
	sort.Strings(enabled)

	if len(results) == 0 {
		o.log.Warn("no domain passed the schema gate", slog.Int("files", len(files)))
		return o.emptyReport()
	}

	report := o.assemble(results, enabled)
	o.log.Info("multi-file analysis complete",
		slog.Int("files", len(files)),
		slog.Int("enabled_domains", len(enabled)),
		slog.Int("total_insights", report.TotalInsights),
		slog.Duration("elapsed", o.now().Sub(started)))
	return report
}

type candidate struct {
	dt   domain.DataType
	data *dataset.Dataset
}

// gate applies the schema gate to every input file and returns the
// domains allowed to run, in sorted name order for determinism.
func (o *Orchestrator) gate(files map[string]*dataset.Dataset) []candidate {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []candidate
	for _, name := range names {
		d := files[name]
		dt, err := domain.ParseDataType(name)
		if err != nil || dt == domain.Unknown {
			o.log.Warn("skipping file with unknown domain", slog.String("domain", name))
			o.countSkip("unknown_domain")
			continue
		}
		if d == nil || d.NumRows() == 0 {
			o.log.Warn("skipping empty dataset", slog.String("domain", name))
			o.countSkip("empty_dataset")
			continue
		}

		match := o.detector.CreateSchemaMatch(d, dt)
		if match.Confidence < o.cfg.MinSchemaConfidence {
			o.log.Info("schema gate: confidence too low",
				slog.String("domain", name),
				slog.Float64("confidence", match.Confidence),
				slog.Float64("min", o.cfg.MinSchemaConfidence))
			o.countSkip("low_confidence")
			continue
		}
		coverage := match.RequiredCoverage(schema.RequiredFields(dt))
		if coverage < o.cfg.MinRequiredFieldRatio {
			o.log.Info("schema gate: required fields missing",
				slog.String("domain", name),
				slog.Float64("coverage", coverage),
				slog.Any("missing", match.MissingFields))
			o.countSkip("missing_fields")
			continue
		}
		out = append(out, candidate{dt: dt, data: d})
	}
	return out
}

// analyzeDomain runs one domain end to end on a private normalized copy.
// A panic inside an analyzer disables only that domain.
func (o *Orchestrator) analyzeDomain(ctx context.Context, dt domain.DataType, d *dataset.Dataset) (out outcome) {
	name := dt.String()
	out = outcome{name: name}

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("analyzer panicked, domain disabled",
				slog.String("domain", name), slog.Any("panic", r))
			o.countSkip("panic")
			out.ok = false
		}
	}()

	if err := ctx.Err(); err != nil {
		o.log.Warn("analysis cancelled", slog.String("domain", name))
		o.countSkip("cancelled")
		return out
	}

	started := o.now()
	normalized := o.detector.NormalizeColumns(d, dt)

	analyzer, err := o.analyzerFor(dt, o.cfg, o.log)
	if err != nil {
		o.log.Error("no analyzer for domain", slog.String("domain", name), slog.Any("error", err))
		o.countSkip("no_analyzer")
		return out
	}
	result, err := analyzer.Analyze(normalized)
	if err != nil {
		o.log.Error("domain analysis failed, domain disabled",
			slog.String("domain", name), slog.Any("error", err))
		o.countSkip("analyzer_error")
		return out
	}

	if o.metrics != nil {
		o.metrics.FilesAnalyzed.WithLabelValues(name).Inc()
		o.metrics.AnalysisDuration.WithLabelValues(name).Observe(o.now().Sub(started).Seconds())
		o.metrics.RowsProcessed.Add(float64(normalized.NumRows()))
		for _, in := range result.Insights {
			o.metrics.InsightsGenerated.WithLabelValues(in.Severity.String()).Inc()
		}
	}

	out.result = result
	out.ok = true
	return out
}

// assemble folds per-domain results through the engines into the report
func (o *Orchestrator) assemble(results []domain.AnalysisResult, enabled []string) domain.Report {
	merged := o.insights.Merge(results)
	cross := o.crossDomainInsights(results)

	kpis := make(map[string]map[string]float64, len(results))
	charts := make(map[string]map[string][]domain.ChartPoint, len(results))
	for _, res := range results {
		kpis[res.Domain.String()] = res.KPIs
		charts[res.Domain.String()] = res.Charts
	}

	all := make([]domain.Insight, 0, len(merged)+len(cross))
	all = append(all, merged...)
	all = append(all, cross...)

	recommendations := o.recommend.Recommendations(all)
	risks := o.risks.Risks(results, merged)

	criticalCount := 0
	for _, r := range risks {
		if r.Severity == domain.SeverityCritical {
			criticalCount++
		}
	}

	return domain.Report{
		GeneratedAt:         o.now(),
		DataSource:          "multi_file",
		EnabledDomains:      enabled,
		ExecutiveSummary:    o.insights.ExecutiveSummary(merged, o.flattenKPIs(results)),
		KPIs:                kpis,
		InsightsByCategory:  o.insights.Categorize(merged),
		CrossDomainInsights: cross,
		CriticalRisks:       risks,
		ActionPlan:          o.recommend.ActionPlan(recommendations),
		Charts:              charts,
		TotalInsights:       len(all),
		CriticalCount:       criticalCount,
		FilesAnalyzed:       len(results),
	}
}

// flattenKPIs merges the per-domain KPI maps into one flat map for the
// executive summary. Domains are walked in name order so a key claimed
// by two domains resolves the same way on every run.
func (o *Orchestrator) flattenKPIs(results []domain.AnalysisResult) map[string]float64 {
	ordered := make([]domain.AnalysisResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Domain.String() < ordered[j].Domain.String()
	})

	flat := make(map[string]float64)
	for _, res := range ordered {
		for key, value := range res.KPIs {
			flat[key] = value
		}
	}
	return flat
}

// crossDomainInsights correlates findings across domains. Correlations
// only make sense with at least two enabled domains.
func (o *Orchestrator) crossDomainInsights(results []domain.AnalysisResult) []domain.Insight {
	if len(results) < 2 {
		return nil
	}
	counts := make(map[string]int, len(results))
	present := make(map[string]bool, len(results))
	for _, res := range results {
		counts[res.Domain.String()] = len(res.Insights)
		present[res.Domain.String()] = true
	}

	var out []domain.Insight
	if present["inventory"] && present["sales"] && counts["inventory"] > 2 && counts["sales"] >= 1 {
		out = append(out, crossInsight(domain.SeverityMedium,
			"Multiple inventory issues detected alongside sales concerns",
			"Potential inventory-sales mismatch affecting working capital",
			"Conduct cross-functional review of inventory and sales planning"))
	}
	if present["financial"] && present["manufacturing"] && counts["financial"] > 1 && counts["manufacturing"] > 1 {
		out = append(out, crossInsight(domain.SeverityMedium,
			"Financial costs correlated with manufacturing issues",
			"Production inefficiencies may be driving up costs",
			"Analyze cost drivers in manufacturing process"))
	}
	if present["inventory"] && present["purchase"] && counts["inventory"] > 1 && counts["purchase"] >= 1 {
		out = append(out, crossInsight(domain.SeverityLow,
			"Inventory issues may relate to purchase/supplier performance",
			"Supplier delays or quality issues affecting inventory levels",
			"Review supplier performance metrics and lead times"))
	}
	return out
}

func crossInsight(sev domain.Severity, finding, impact, action string) domain.Insight {
	in, _ := domain.NewInsight(domain.CategoryCrossDomain, sev, finding, impact, action)
	return in
}

// emptyReport is the zero-domain result: a valid report that explains
// itself instead of an error.
func (o *Orchestrator) emptyReport() domain.Report {
	return domain.Report{
		GeneratedAt:        o.now(),
		DataSource:         "multi_file",
		EnabledDomains:     []string{},
		ExecutiveSummary:   []string{"No valid data detected. Please upload files with required columns."},
		KPIs:               map[string]map[string]float64{},
		InsightsByCategory: map[string][]domain.Insight{},
		Charts:             map[string]map[string][]domain.ChartPoint{},
	}
}

func (o *Orchestrator) countSkip(reason string) {
	if o.metrics != nil {
		o.metrics.DomainsSkipped.WithLabelValues(reason).Inc()
	}
}
