package schema

import (
	"log/slog"
	"math"
	"strings"

	"github.com/spf13/cast"

	"erplens/internal/dataset"
	"erplens/pkg/contracts/domain"
)

// Detector classifies a record set into a business domain and maps its
// raw column names onto canonical field names. Detection is a pure
// function of the data; the detector itself holds no per-file state.
type Detector struct {
	logger *slog.Logger
}

// NewDetector creates a schema detector
func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{logger: logger.With(slog.String("component", "schema_detector"))}
}

// contentSampleSize caps how many cell values per column participate in
// content-based scoring.
const contentSampleSize = 10

// DetectWithConfidence scores the record set's columns against each
// domain's keyword set and returns the winning domain with a confidence
// in [0,1]. Column-name hits count 1.0, content hits 0.5. Ties go to the
// domain declared first in the enum. Returns (Unknown, 0) when nothing
// matches.
func (det *Detector) DetectWithConfidence(d *dataset.Dataset) (domain.DataType, float64) {
	colCount := d.NumColumns()
	if colCount == 0 {
		return domain.Unknown, 0
	}

	normalized := make([]string, colCount)
	for i, col := range d.Columns {
		normalized[i] = normalizeName(col)
	}
	samples := contentSamples(d)

	var (
		best      = domain.Unknown
		bestScore float64
	)
	for _, dt := range domain.AllDataTypes {
		keywords, ok := typeKeywords[dt]
		if !ok {
			continue
		}
		var score float64
		for _, col := range normalized {
			for _, keyword := range keywords {
				if strings.Contains(col, keyword) {
					score++
				}
			}
		}
		for _, sample := range samples {
			for _, keyword := range keywords {
				if strings.Contains(sample, keyword) {
					score += 0.5
				}
			}
		}
		if score > bestScore {
			bestScore = score
			best = dt
		}
	}

	if bestScore == 0 {
		return domain.Unknown, 0
	}

	confidence := bestScore / math.Max(3, float64(colCount)*0.5)
	if confidence > 1 {
		confidence = 1
	}
	return best, round2(confidence)
}

// CreateSchemaMatch maps every raw column to its canonical field and
// reports which required fields the record set is missing. Overall
// confidence is driven by required-field coverage: 0.5 base plus 0.5
// scaled by the fraction of required fields matched.
func (det *Detector) CreateSchemaMatch(d *dataset.Dataset, dataType domain.DataType) domain.SchemaMatch {
	if dataType == domain.Unknown {
		return domain.SchemaMatch{DataType: domain.Unknown}
	}

	mappings := det.mapColumns(d.Columns)
	matchedCols := make([]string, 0, len(mappings))
	matchedFields := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		matchedCols = append(matchedCols, m.ColumnName)
		matchedFields[m.CanonicalName] = true
	}

	required := requiredFields[dataType]
	var missing []string
	requiredMatched := 0
	for _, field := range required {
		if matchedFields[field] {
			requiredMatched++
		} else {
			missing = append(missing, field)
		}
	}

	var coverage float64
	if len(required) > 0 {
		coverage = float64(requiredMatched) / float64(len(required))
	} else if len(mappings) > 0 {
		coverage = float64(len(mappings)) / 10
	}

	confidence := 0.5 + coverage*0.5
	if confidence > 1 {
		confidence = 1
	}

	return domain.SchemaMatch{
		DataType:       dataType,
		Confidence:     round2(confidence),
		MatchedColumns: matchedCols,
		MissingFields:  missing,
		Mappings:       mappings,
	}
}

// NormalizeColumns returns a copy of the record set with matched columns
// renamed to their canonical names. When two columns map to the same
// canonical field, the first keeps it and the later duplicate is dropped
// rather than overwritten. Repeated normalization is stable: canonical
// names map onto themselves.
func (det *Detector) NormalizeColumns(d *dataset.Dataset, dataType domain.DataType) *dataset.Dataset {
	if dataType == domain.Unknown {
		return d.Clone()
	}

	out := d.Clone()
	used := make(map[string]bool)
	snapshot := make([]string, len(out.Columns))
	copy(snapshot, out.Columns)

	for _, col := range snapshot {
		canonical, _, ok := mapColumn(col)
		if !ok {
			continue
		}
		if col == canonical {
			used[canonical] = true
			continue
		}
		if used[canonical] || out.HasColumn(canonical) {
			dropColumn(out, col)
			det.logger.Debug("dropped duplicate column",
				slog.String("column", col),
				slog.String("canonical", canonical))
			continue
		}
		if err := out.RenameColumn(col, canonical); err != nil {
			det.logger.Warn("column rename failed",
				slog.String("column", col),
				slog.String("error", err.Error()))
			continue
		}
		used[canonical] = true
	}
	return out
}

// mapColumns maps raw columns in order with a first-claim-wins policy:
// once a canonical field is claimed by an earlier column, later columns
// that would map to it are left unmapped. Order-dependent but
// deterministic for a given header.
func (det *Detector) mapColumns(columns []string) []domain.ColumnMapping {
	claimed := make(map[string]bool)
	var mappings []domain.ColumnMapping
	for _, col := range columns {
		canonical, confidence, ok := mapColumn(col)
		if !ok || claimed[canonical] {
			continue
		}
		claimed[canonical] = true
		mappings = append(mappings, domain.ColumnMapping{
			ColumnName:    col,
			CanonicalName: canonical,
			Confidence:    confidence,
		})
	}
	return mappings
}

// mapColumn resolves one raw column against the alias table. Match
// priority per alias: exact (1.0), whole word (0.9), then prefix/suffix
// for aliases of at most 4 characters (0.8).
func mapColumn(col string) (string, float64, bool) {
	normalized := normalizeName(col)

	// A column already carrying a canonical name keeps it, even when an
	// earlier entry lists that name as one of its aliases ("sku" is also
	// an alias of product_id).
	for _, entry := range aliasTable {
		if normalized == entry.Canonical {
			return entry.Canonical, 1.0, true
		}
	}

	for _, entry := range aliasTable {
		for _, alias := range entry.Aliases {
			if normalized == alias {
				return entry.Canonical, 1.0, true
			}
			if wordMatchers[alias].MatchString(normalized) {
				return entry.Canonical, 0.9, true
			}
			if len(alias) <= 4 && (strings.HasPrefix(normalized, alias) || strings.HasSuffix(normalized, alias)) {
				return entry.Canonical, 0.8, true
			}
		}
	}
	return "", 0, false
}

// normalizeName lowers a column name and folds spaces and hyphens to
// underscores for matching purposes.
func normalizeName(col string) string {
	col = strings.ToLower(strings.TrimSpace(col))
	col = strings.ReplaceAll(col, " ", "_")
	col = strings.ReplaceAll(col, "-", "_")
	return col
}

// contentSamples stringifies the first few non-missing values of each
// column for content-based domain scoring.
func contentSamples(d *dataset.Dataset) []string {
	samples := make([]string, 0, d.NumColumns())
	for colIdx := range d.Columns {
		var b strings.Builder
		count := 0
		for rowIdx := 0; rowIdx < d.NumRows() && count < contentSampleSize; rowIdx++ {
			cell := d.Cell(rowIdx, colIdx)
			if dataset.IsMissing(cell) {
				continue
			}
			b.WriteString(strings.ToLower(cast.ToString(cell)))
			b.WriteByte(' ')
			count++
		}
		if b.Len() > 0 {
			samples = append(samples, b.String())
		}
	}
	return samples
}

func dropColumn(d *dataset.Dataset, name string) {
	idx, ok := d.ColumnIndex(name)
	if !ok {
		return
	}
	columns := append(append([]string{}, d.Columns[:idx]...), d.Columns[idx+1:]...)
	rows := make([][]interface{}, len(d.Rows))
	for i, row := range d.Rows {
		rows[i] = append(append([]interface{}{}, row[:idx]...), row[idx+1:]...)
	}
	*d = *dataset.New(columns, rows)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
