package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "erplens/internal/errors"
)

// Loader reads CSV and XLSX files into datasets with configured limits
type Loader struct {
	MaxFileSizeMB int
	MaxRows       int
}

// NewLoader creates a loader with the given limits. Zero limits mean
// unlimited; the server always configures both.
func NewLoader(maxFileSizeMB, maxRows int) *Loader {
	return &Loader{MaxFileSizeMB: maxFileSizeMB, MaxRows: maxRows}
}

// Load reads the file at path, choosing the parser by extension
func (l *Loader) Load(path string) (*Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if l.MaxFileSizeMB > 0 && info.Size() > int64(l.MaxFileSizeMB)*1024*1024 {
		return nil, fmt.Errorf("%s is %d bytes: %w", filepath.Base(path), info.Size(), apperrors.ErrFileSizeExceeded)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	return l.LoadReader(file, filepath.Ext(path))
}

// LoadReader parses a stream using the parser implied by ext (".csv" or
// ".xlsx"). The caller is responsible for size-capping the reader when
// the source is an upload rather than a local file.
func (l *Loader) LoadReader(r io.Reader, ext string) (*Dataset, error) {
	switch strings.ToLower(ext) {
	case ".csv":
		return l.loadCSV(r)
	case ".xlsx":
		return l.loadXLSX(r)
	default:
		return nil, fmt.Errorf("%q: %w", ext, apperrors.ErrUnsupportedFileType)
	}
}

func (l *Loader) loadCSV(r io.Reader) (*Dataset, error) {
	br := bufio.NewReader(r)
	stripBOM(br)

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apperrors.ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := normalizeHeader(header)
	if len(columns) == 0 {
		return nil, apperrors.ErrNoColumns
	}

	var rows [][]interface{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(rows)+2, err)
		}
		if isBlankRecord(record) {
			continue
		}
		rows = append(rows, recordToRow(record, len(columns)))
		if l.MaxRows > 0 && len(rows) > l.MaxRows {
			return nil, fmt.Errorf("more than %d rows: %w", l.MaxRows, apperrors.ErrFileSizeExceeded)
		}
	}

	if len(rows) == 0 {
		return nil, apperrors.ErrEmptyDataset
	}
	return New(columns, rows), nil
}

func (l *Loader) loadXLSX(r io.Reader) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.ErrEmptyDataset
	}

	// First sheet only; multi-sheet workbooks are submitted one sheet
	// per request.
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, apperrors.ErrEmptyDataset
	}

	columns := normalizeHeader(records[0])
	if len(columns) == 0 {
		return nil, apperrors.ErrNoColumns
	}

	var rows [][]interface{}
	for _, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		rows = append(rows, recordToRow(record, len(columns)))
		if l.MaxRows > 0 && len(rows) > l.MaxRows {
			return nil, fmt.Errorf("more than %d rows: %w", l.MaxRows, apperrors.ErrFileSizeExceeded)
		}
	}

	if len(rows) == 0 {
		return nil, apperrors.ErrEmptyDataset
	}
	return New(columns, rows), nil
}

// stripBOM consumes a UTF-8 byte order mark if present. Exported files
// from Excel routinely carry one.
func stripBOM(br *bufio.Reader) {
	bom, err := br.Peek(3)
	if err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		br.Discard(3)
	}
}

// normalizeHeader trims cells and drops trailing empty header columns
func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
	}
	for len(columns) > 0 && columns[len(columns)-1] == "" {
		columns = columns[:len(columns)-1]
	}
	// unnamed interior columns get positional names so indexing holds up
	for i, name := range columns {
		if name == "" {
			columns[i] = fmt.Sprintf("column_%d", i+1)
		}
	}
	return columns
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// recordToRow converts raw string cells to dataset cells, mapping empty
// strings to nil so missing-value checks stay uniform.
func recordToRow(record []string, width int) []interface{} {
	row := make([]interface{}, width)
	for i := 0; i < width && i < len(record); i++ {
		cell := strings.TrimSpace(record[i])
		if cell == "" {
			continue
		}
		row[i] = cell
	}
	return row
}
