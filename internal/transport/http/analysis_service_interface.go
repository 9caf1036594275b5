package http

import (
	"context"

	"erplens/internal/dataset"
	"erplens/pkg/contracts/domain"
)

// AnalysisService is the slice of the service layer the analyze
// handlers consume. Kept as an interface so handler tests can substitute
// failing implementations.
type AnalysisService interface {
	Analyze(ctx context.Context, d *dataset.Dataset, source string, declared domain.DataType) (domain.SingleReport, error)
	AnalyzeMulti(ctx context.Context, files map[string]*dataset.Dataset) domain.Report
}
