package quality

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"erplens/internal/dataset"
	"erplens/internal/schema"
	"erplens/pkg/contracts/domain"
)

// positiveOnlyPatterns flag columns whose values are expected to be
// non-negative; a substring match on the column name is enough.
var positiveOnlyPatterns = []string{
	"revenue", "quantity", "unit_price", "total_amount", "cost",
	"quantity_on_hand", "planned_quantity", "actual_quantity",
	"good_quantity", "unit_cost", "stock_value", "margin",
}

// Validator inspects a record set and reports every quality problem it
// finds. Nothing is suppressed: low-severity issues are reported next to
// blocking ones so callers can decide what to tolerate.
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a data validator
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger.With(slog.String("component", "data_validator"))}
}

// Validate runs every check independently and returns the full report.
// The checks never short-circuit: a missing required column does not stop
// outlier detection on the columns that are present.
func (v *Validator) Validate(d *dataset.Dataset, dataType domain.DataType) domain.DataQualityReport {
	var issues []domain.DataQualityIssue

	duplicates := countDuplicateRows(d)
	if duplicates > 0 {
		severity := domain.SeverityMedium
		if float64(duplicates) >= float64(d.NumRows())*0.05 {
			severity = domain.SeverityHigh
		}
		issues = append(issues, domain.DataQualityIssue{
			Column:         "_all_",
			Type:           domain.IssueDuplicate,
			AffectedRows:   duplicates,
			Severity:       severity,
			Description:    fmt.Sprintf("%d duplicate rows found (%.1f%%)", duplicates, float64(duplicates)/float64(d.NumRows())*100),
			Recommendation: "Remove duplicate rows before analysis",
		})
	}

	missingPct, missingIssues := analyzeMissingData(d)
	issues = append(issues, missingIssues...)
	issues = append(issues, validateRequiredColumns(d, dataType)...)
	issues = append(issues, validateValues(d)...)

	isUsable := true
	var blocking []string
	for _, issue := range issues {
		if issue.Severity == domain.SeverityCritical {
			isUsable = false
			blocking = append(blocking, issue.Description)
		}
	}

	v.logger.Debug("validation complete",
		slog.String("data_type", dataType.String()),
		slog.Int("issues", len(issues)),
		slog.Bool("is_usable", isUsable))

	return domain.DataQualityReport{
		TotalRows:         d.NumRows(),
		TotalColumns:      d.NumColumns(),
		Columns:           append([]string{}, d.Columns...),
		Issues:            issues,
		MissingPercentage: missingPct,
		DuplicateRows:     duplicates,
		IsUsable:          isUsable,
		BlockingIssues:    blocking,
	}
}

func countDuplicateRows(d *dataset.Dataset) int {
	seen := make(map[string]bool, d.NumRows())
	duplicates := 0
	for i := 0; i < d.NumRows(); i++ {
		key := d.RowKey(i)
		if seen[key] {
			duplicates++
		}
		seen[key] = true
	}
	return duplicates
}

// analyzeMissingData computes per-column missing percentages and grades
// them: LOW up to 10%, MEDIUM up to 20%, HIGH up to 50%, CRITICAL beyond.
func analyzeMissingData(d *dataset.Dataset) (map[string]float64, []domain.DataQualityIssue) {
	missingPct := make(map[string]float64)
	var issues []domain.DataQualityIssue
	if d.NumRows() == 0 {
		return missingPct, issues
	}

	for colIdx, col := range d.Columns {
		missing := 0
		for rowIdx := 0; rowIdx < d.NumRows(); rowIdx++ {
			if dataset.IsMissing(d.Cell(rowIdx, colIdx)) {
				missing++
			}
		}
		if missing == 0 {
			continue
		}
		pct := float64(missing) / float64(d.NumRows()) * 100
		missingPct[col] = pct

		switch {
		case pct > 20:
			severity := domain.SeverityHigh
			if pct > 50 {
				severity = domain.SeverityCritical
			}
			issues = append(issues, domain.DataQualityIssue{
				Column:         col,
				Type:           domain.IssueMissing,
				AffectedRows:   missing,
				Severity:       severity,
				Description:    fmt.Sprintf("Column '%s' has %.1f%% missing values (%d rows)", col, pct, missing),
				Recommendation: fmt.Sprintf("Impute or remove column '%s' - high missing rate affects analysis", col),
			})
		case pct > 10:
			issues = append(issues, domain.DataQualityIssue{
				Column:         col,
				Type:           domain.IssueMissing,
				AffectedRows:   missing,
				Severity:       domain.SeverityMedium,
				Description:    fmt.Sprintf("Column '%s' has %.1f%% missing values", col, pct),
				Recommendation: fmt.Sprintf("Consider imputation strategy for '%s'", col),
			})
		default:
			issues = append(issues, domain.DataQualityIssue{
				Column:         col,
				Type:           domain.IssueMissing,
				AffectedRows:   missing,
				Severity:       domain.SeverityLow,
				Description:    fmt.Sprintf("Column '%s' has %.1f%% missing values", col, pct),
				Recommendation: "Minor - can be handled with standard imputation",
			})
		}
	}
	return missingPct, issues
}

// validateRequiredColumns flags each absent required canonical column as
// CRITICAL; these are the only issues that make a record set unusable.
func validateRequiredColumns(d *dataset.Dataset, dataType domain.DataType) []domain.DataQualityIssue {
	var issues []domain.DataQualityIssue
	present := make(map[string]bool, d.NumColumns())
	for _, col := range d.Columns {
		present[strings.ToLower(col)] = true
	}
	for _, required := range schema.RequiredFields(dataType) {
		if !present[strings.ToLower(required)] {
			issues = append(issues, domain.DataQualityIssue{
				Column:         required,
				Type:           domain.IssueMissingColumn,
				AffectedRows:   d.NumRows(),
				Severity:       domain.SeverityCritical,
				Description:    fmt.Sprintf("Required column '%s' is missing", required),
				Recommendation: fmt.Sprintf("Add column '%s' or map an existing column", required),
			})
		}
	}
	return issues
}

func validateValues(d *dataset.Dataset) []domain.DataQualityIssue {
	var issues []domain.DataQualityIssue
	for colIdx, col := range d.Columns {
		colLower := strings.ToLower(col)

		if matchesAny(colLower, positiveOnlyPatterns) {
			negatives := 0
			for rowIdx := 0; rowIdx < d.NumRows(); rowIdx++ {
				if f, ok := d.Float(rowIdx, colIdx); ok && f < 0 {
					negatives++
				}
			}
			if negatives > 0 {
				issues = append(issues, domain.DataQualityIssue{
					Column:         col,
					Type:           domain.IssueInvalidValue,
					AffectedRows:   negatives,
					Severity:       domain.SeverityHigh,
					Description:    fmt.Sprintf("Column '%s' has %d negative values (expected positive)", col, negatives),
					Recommendation: fmt.Sprintf("Review and correct negative values in '%s'", col),
				})
			}
		}

		if isNumericColumn(d, colIdx) {
			if issue, ok := checkOutliers(d, col, colIdx); ok {
				issues = append(issues, issue)
			}
		}
	}
	return issues
}

// isNumericColumn reports whether every non-missing cell coerces to a
// number. Mixed columns are not treated as numeric.
func isNumericColumn(d *dataset.Dataset, colIdx int) bool {
	nonMissing := 0
	for rowIdx := 0; rowIdx < d.NumRows(); rowIdx++ {
		cell := d.Cell(rowIdx, colIdx)
		if dataset.IsMissing(cell) {
			continue
		}
		nonMissing++
		if _, ok := dataset.ToFloat(cell); !ok {
			return false
		}
	}
	return nonMissing > 0
}

// checkOutliers applies the IQR method; series below 10 values are too
// small to judge. Only flagged when more than 5% of values fall outside
// [Q1-1.5*IQR, Q3+1.5*IQR].
func checkOutliers(d *dataset.Dataset, col string, colIdx int) (domain.DataQualityIssue, bool) {
	var series []float64
	for rowIdx := 0; rowIdx < d.NumRows(); rowIdx++ {
		if f, ok := d.Float(rowIdx, colIdx); ok {
			series = append(series, f)
		}
	}
	if len(series) < 10 {
		return domain.DataQualityIssue{}, false
	}

	sorted := append([]float64{}, series...)
	sort.Float64s(sorted)
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	outliers := 0
	for _, v := range series {
		if v < lower || v > upper {
			outliers++
		}
	}
	pct := float64(outliers) / float64(len(series)) * 100
	if pct <= 5 {
		return domain.DataQualityIssue{}, false
	}

	return domain.DataQualityIssue{
		Column:         col,
		Type:           domain.IssueOutlier,
		AffectedRows:   outliers,
		Severity:       domain.SeverityMedium,
		Description:    fmt.Sprintf("Column '%s' has %d outliers (%.1f%%)", col, outliers, pct),
		Recommendation: fmt.Sprintf("Review outliers in '%s' - may indicate data entry errors or genuine anomalies", col),
	}, true
}

// quantile computes the q-th quantile of a sorted series with linear
// interpolation between adjacent ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lower := int(pos)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}
