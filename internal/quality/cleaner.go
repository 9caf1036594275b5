package quality

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"erplens/internal/dataset"
	"erplens/pkg/contracts/domain"
)

var (
	separatorPattern = regexp.MustCompile(`[\s\-/]+`)
	nonWordPattern   = regexp.MustCompile(`[^a-z0-9_]`)

	datePatterns    = []string{"date", "time", "period"}
	numericPatterns = []string{
		"amount", "revenue", "cost", "price", "quantity", "qty",
		"total", "margin", "profit", "rate", "pct", "percent",
	}

	dateLayouts = []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		time.RFC3339,
		"01/02/2006",
		"2006/01/02",
		"02.01.2006",
		"2006-01",
		"Jan 2006",
		"January 2006",
		"Jan 2, 2006",
	}
)

// ChangeEntry is one audited cleaning transformation
type ChangeEntry struct {
	Type         string    `json:"type"`
	AffectedRows int       `json:"affected_rows"`
	Description  string    `json:"description"`
	Timestamp    time.Time `json:"timestamp"`
}

// ChangesSummary reports every transformation a cleaner applied
type ChangesSummary struct {
	ChangesCount int           `json:"changes_count"`
	Changes      []ChangeEntry `json:"changes"`
}

// Cleaner applies audited, per-column-isolated cleaning transformations.
// A cleaner instance accumulates its change log across calls; use one
// instance per file.
type Cleaner struct {
	logger  *slog.Logger
	changes []ChangeEntry
	now     func() time.Time
}

// NewCleaner creates a data cleaner
func NewCleaner(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		logger: logger.With(slog.String("component", "data_cleaner")),
		now:    time.Now,
	}
}

// Clean runs the transformation sequence on a private copy and returns
// the cleaned record set plus issues the cleaning itself surfaced.
// Cleaning already-clean data is a no-op: no new changes are logged.
func (c *Cleaner) Clean(d *dataset.Dataset) (*dataset.Dataset, []domain.DataQualityIssue) {
	out := d.Clone()
	var issues []domain.DataQualityIssue

	if removed := dropEmptyRows(out); removed > 0 {
		c.logChange("remove_empty_rows", removed, fmt.Sprintf("Removed %d empty rows", removed))
	}

	if removed := dropDuplicateRows(out); removed > 0 {
		c.logChange("remove_duplicates", removed, fmt.Sprintf("Removed %d duplicate rows", removed))
		issues = append(issues, domain.DataQualityIssue{
			Column:         "_all_",
			Type:           domain.IssueDuplicate,
			AffectedRows:   removed,
			Severity:       domain.SeverityMedium,
			Description:    fmt.Sprintf("Found and removed %d duplicate rows", removed),
			Recommendation: "Data cleaned - duplicates removed",
		})
	}

	c.cleanColumnNames(out)
	c.convertDates(out)
	c.cleanNumerics(out)
	c.handleMissingValues(out)

	return out, issues
}

// ChangesSummary returns the audit trail of all changes made so far
func (c *Cleaner) ChangesSummary() ChangesSummary {
	changes := make([]ChangeEntry, len(c.changes))
	copy(changes, c.changes)
	return ChangesSummary{ChangesCount: len(changes), Changes: changes}
}

func (c *Cleaner) logChange(changeType string, affected int, description string) {
	entry := ChangeEntry{
		Type:         changeType,
		AffectedRows: affected,
		Description:  description,
		Timestamp:    c.now(),
	}
	c.changes = append(c.changes, entry)
	c.logger.Debug("cleaning change",
		slog.String("type", changeType),
		slog.Int("affected_rows", affected))
}

func dropEmptyRows(d *dataset.Dataset) int {
	var empty []int
	for i := 0; i < d.NumRows(); i++ {
		allMissing := true
		for j := 0; j < d.NumColumns(); j++ {
			if !dataset.IsMissing(d.Cell(i, j)) {
				allMissing = false
				break
			}
		}
		if allMissing {
			empty = append(empty, i)
		}
	}
	return d.DropRows(empty)
}

func dropDuplicateRows(d *dataset.Dataset) int {
	seen := make(map[string]bool, d.NumRows())
	var duplicates []int
	for i := 0; i < d.NumRows(); i++ {
		key := d.RowKey(i)
		if seen[key] {
			duplicates = append(duplicates, i)
		}
		seen[key] = true
	}
	return d.DropRows(duplicates)
}

// cleanColumnNames lowercases names and folds separators to underscores.
// A rename that would collide with an existing column is skipped; the
// column keeps its raw name rather than shadowing another.
func (c *Cleaner) cleanColumnNames(d *dataset.Dataset) {
	renamed := 0
	var names []string
	snapshot := make([]string, len(d.Columns))
	copy(snapshot, d.Columns)

	for _, col := range snapshot {
		cleaned := strings.ToLower(strings.TrimSpace(col))
		cleaned = separatorPattern.ReplaceAllString(cleaned, "_")
		cleaned = nonWordPattern.ReplaceAllString(cleaned, "")
		if cleaned == col || cleaned == "" {
			continue
		}
		if err := d.RenameColumn(col, cleaned); err != nil {
			c.logger.Debug("column rename skipped", slog.String("column", col), slog.String("error", err.Error()))
			continue
		}
		renamed++
		names = append(names, cleaned)
	}
	if renamed > 0 {
		c.logChange("rename_columns", renamed, fmt.Sprintf("Renamed columns: %s", strings.Join(names, ", ")))
	}
}

// convertDates coerces date-like columns to time values. Only newly
// invalid cells are logged; cells that were already empty do not count.
func (c *Cleaner) convertDates(d *dataset.Dataset) {
	for colIdx, col := range d.Columns {
		if !matchesAny(strings.ToLower(col), datePatterns) {
			continue
		}
		newlyInvalid := 0
		for rowIdx := 0; rowIdx < d.NumRows(); rowIdx++ {
			cell := d.Cell(rowIdx, colIdx)
			if dataset.IsMissing(cell) {
				continue
			}
			if _, ok := cell.(time.Time); ok {
				continue
			}
			if t, ok := ParseDate(cast.ToString(cell)); ok {
				d.SetCell(rowIdx, colIdx, t)
			} else {
				d.SetCell(rowIdx, colIdx, nil)
				newlyInvalid++
			}
		}
		if newlyInvalid > 0 {
			c.logChange("date_conversion", newlyInvalid,
				fmt.Sprintf("Column '%s': %d rows became invalid dates", col, newlyInvalid))
		}
	}
}

// cleanNumerics strips currency formatting from numeric-looking string
// columns and re-types them, but only when at least half of the non-null
// values convert successfully. A column that fails the threshold is left
// untouched.
func (c *Cleaner) cleanNumerics(d *dataset.Dataset) {
	for colIdx, col := range d.Columns {
		if !matchesAny(strings.ToLower(col), numericPatterns) {
			continue
		}

		hasStrings := false
		nonNull := 0
		converted := 0
		parsed := make(map[int]float64)
		for rowIdx := 0; rowIdx < d.NumRows(); rowIdx++ {
			cell := d.Cell(rowIdx, colIdx)
			if dataset.IsMissing(cell) {
				continue
			}
			nonNull++
			if _, ok := cell.(string); ok {
				hasStrings = true
			}
			if f, ok := dataset.ToFloat(cell); ok {
				parsed[rowIdx] = f
				converted++
			}
		}
		if !hasStrings || nonNull == 0 {
			continue
		}
		if float64(converted) <= float64(nonNull)*0.5 {
			continue
		}

		for rowIdx := 0; rowIdx < d.NumRows(); rowIdx++ {
			if f, ok := parsed[rowIdx]; ok {
				d.SetCell(rowIdx, colIdx, f)
			}
		}
		c.logChange("clean_numeric", nonNull,
			fmt.Sprintf("Column '%s': cleaned currency/formatting, %d valid values", col, converted))
	}
}

// handleMissingValues imputes per column: numeric columns below 10%
// missing get the median, categorical columns get the literal "Unknown".
// Numeric columns with heavy missing rates are left null on purpose.
func (c *Cleaner) handleMissingValues(d *dataset.Dataset) {
	if d.NumRows() == 0 {
		return
	}
	for colIdx, col := range d.Columns {
		missingRows := make([]int, 0)
		var numericValues []float64
		numeric := true
		hasValues := false
		dateColumn := false

		for rowIdx := 0; rowIdx < d.NumRows(); rowIdx++ {
			cell := d.Cell(rowIdx, colIdx)
			if dataset.IsMissing(cell) {
				missingRows = append(missingRows, rowIdx)
				continue
			}
			hasValues = true
			if _, ok := cell.(time.Time); ok {
				dateColumn = true
				continue
			}
			if f, ok := dataset.ToFloat(cell); ok {
				numericValues = append(numericValues, f)
			} else {
				numeric = false
			}
		}

		if len(missingRows) == 0 || dateColumn {
			continue
		}
		missingPct := float64(len(missingRows)) / float64(d.NumRows()) * 100

		if numeric && hasValues {
			if missingPct >= 10 {
				continue
			}
			med := median(numericValues)
			for _, rowIdx := range missingRows {
				d.SetCell(rowIdx, colIdx, med)
			}
			c.logChange("fillna_median", len(missingRows),
				fmt.Sprintf("Column '%s': filled %d missing values with median (%g)", col, len(missingRows), med))
			continue
		}

		for _, rowIdx := range missingRows {
			d.SetCell(rowIdx, colIdx, "Unknown")
		}
		c.logChange("fillna_unknown", len(missingRows),
			fmt.Sprintf("Column '%s': filled %d missing values with 'Unknown'", col, len(missingRows)))
	}
}

// ParseDate tries the common spreadsheet date layouts
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
