package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"erplens/internal/analysis"
	"erplens/internal/config"
	"erplens/internal/dataset"
	apierrors "erplens/internal/errors"
	"erplens/internal/infrastructure"
	"erplens/internal/insight"
	"erplens/internal/orchestrator"
	"erplens/internal/quality"
	"erplens/internal/schema"
	"erplens/pkg/contracts/domain"
)

// UnusableDataError carries the quality report for a dataset the
// validator refused. Transport layers render it as 422 with the
// blocking issues attached.
type UnusableDataError struct {
	Report domain.DataQualityReport
}

func (e *UnusableDataError) Error() string {
	return fmt.Sprintf("data not usable for analysis: %s", strings.Join(e.Report.BlockingIssues, "; "))
}

// AnalysisService drives the single-file pipeline: detect the domain,
// validate quality, clean, normalize columns, analyze, then run the
// insight engines. Multi-file runs are delegated to the orchestrator.
type AnalysisService struct {
	cfg       config.AnalysisConfig
	detector  *schema.Detector
	validator *quality.Validator
	insights  *insight.Engine
	recommend *insight.Recommender
	risks     *insight.RiskAssessor
	multi     *orchestrator.Orchestrator
	metrics   *infrastructure.Metrics
	log       *slog.Logger
	now       func() time.Time
}

// NewAnalysisService wires the full pipeline. metrics may be nil.
func NewAnalysisService(cfg config.AnalysisConfig, metrics *infrastructure.Metrics, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		cfg:       cfg,
		detector:  schema.NewDetector(logger),
		validator: quality.NewValidator(logger),
		insights:  insight.NewEngine(logger),
		recommend: insight.NewRecommender(cfg, logger),
		risks:     insight.NewRiskAssessor(logger),
		multi:     orchestrator.New(cfg, metrics, logger),
		metrics:   metrics,
		log:       logger.With(slog.String("component", "analysis_service")),
		now:       time.Now,
	}
}

// Analyze runs one dataset through the full pipeline and returns the
// single-file report. source is a display label (typically the uploaded
// filename) echoed back in the report. declared overrides schema
// detection when it is not Unknown.
func (s *AnalysisService) Analyze(ctx context.Context, d *dataset.Dataset, source string, declared domain.DataType) (domain.SingleReport, error) {
	if err := ctx.Err(); err != nil {
		return domain.SingleReport{}, err
	}
	if d == nil || d.NumRows() == 0 {
		return domain.SingleReport{}, apierrors.ErrEmptyDataset
	}
	started := s.now()

	dataType, confidence := declared, 1.0
	if dataType == domain.Unknown {
		dataType, confidence = s.detector.DetectWithConfidence(d)
	}
	if dataType == domain.Unknown {
		return domain.SingleReport{}, fmt.Errorf("%w: columns %v", apierrors.ErrSchemaUnknown, d.Columns)
	}
	s.log.Info("schema detected",
		slog.String("source", source),
		slog.String("data_type", dataType.String()),
		slog.Float64("confidence", confidence))

	qualityReport := s.validator.Validate(d, dataType)
	if !qualityReport.IsUsable {
		return domain.SingleReport{}, &UnusableDataError{Report: qualityReport}
	}

	cleaner := quality.NewCleaner(s.log)
	cleaned, cleaningIssues := cleaner.Clean(d)
	qualityReport.Issues = append(qualityReport.Issues, cleaningIssues...)

	normalized := s.detector.NormalizeColumns(cleaned, dataType)

	analyzer, err := analysis.ForDataType(dataType, s.cfg, s.log)
	if err != nil {
		return domain.SingleReport{}, err
	}
	result, err := analyzer.Analyze(normalized)
	if err != nil {
		return domain.SingleReport{}, fmt.Errorf("analyzing %s data: %w", dataType, err)
	}

	report := s.buildReport(result, qualityReport, dataType, source)
	s.observe(result, normalized.NumRows(), s.now().Sub(started))
	s.log.Info("analysis complete",
		slog.String("source", source),
		slog.String("data_type", dataType.String()),
		slog.Int("insights", report.TotalInsights))
	return report, nil
}

// AnalyzeMulti runs one dataset per domain through the orchestrator.
// Keys are domain wire names; see orchestrator.AnalyzeMultiFile.
func (s *AnalysisService) AnalyzeMulti(ctx context.Context, files map[string]*dataset.Dataset) domain.Report {
	return s.multi.AnalyzeMultiFile(ctx, files)
}

func (s *AnalysisService) buildReport(result domain.AnalysisResult, qualityReport domain.DataQualityReport, dataType domain.DataType, source string) domain.SingleReport {
	results := []domain.AnalysisResult{result}
	merged := s.insights.Merge(results)
	recommendations := s.recommend.Recommendations(merged)
	risks := s.risks.Risks(results, merged)

	criticalCount := 0
	for _, r := range risks {
		if r.Severity == domain.SeverityCritical {
			criticalCount++
		}
	}

	return domain.SingleReport{
		GeneratedAt:        s.now(),
		DataSource:         source,
		DataType:           dataType,
		DataQuality:        qualityReport,
		DataQualitySummary: qualityReport.Summary(),
		ExecutiveSummary:   s.insights.ExecutiveSummary(merged, result.KPIs),
		KPIs:               result.KPIs,
		InsightsByCategory: s.insights.Categorize(merged),
		CriticalRisks:      risks,
		ActionPlan:         s.recommend.ActionPlan(recommendations),
		Charts:             result.Charts,
		TotalInsights:      len(merged),
		CriticalCount:      criticalCount,
	}
}

func (s *AnalysisService) observe(result domain.AnalysisResult, rows int, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	name := result.Domain.String()
	s.metrics.FilesAnalyzed.WithLabelValues(name).Inc()
	s.metrics.AnalysisDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	s.metrics.RowsProcessed.Add(float64(rows))
	for _, in := range result.Insights {
		s.metrics.InsightsGenerated.WithLabelValues(in.Severity.String()).Inc()
	}
}
