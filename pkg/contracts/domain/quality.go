package domain

import (
	"fmt"
	"strings"
)

// IssueType classifies a data quality problem
type IssueType string

const (
	IssueMissing       IssueType = "missing"
	IssueInvalidValue  IssueType = "invalid_value"
	IssueOutlier       IssueType = "outlier"
	IssueDuplicate     IssueType = "duplicate"
	IssueMissingColumn IssueType = "missing_column"
)

// DataQualityIssue is a single detected problem. Issues are append-only:
// once created they are accumulated, never mutated or suppressed.
type DataQualityIssue struct {
	Column         string    `json:"column"`
	Type           IssueType `json:"issue_type"`
	AffectedRows   int       `json:"affected_rows"`
	Severity       Severity  `json:"severity"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation"`
}

// DataQualityReport aggregates every issue found in one record set.
// No problem is hidden: every issue is reported regardless of severity.
type DataQualityReport struct {
	TotalRows         int                `json:"total_rows"`
	TotalColumns      int                `json:"total_columns"`
	Columns           []string           `json:"columns"`
	Issues            []DataQualityIssue `json:"issues"`
	MissingPercentage map[string]float64 `json:"missing_percentage"`
	DuplicateRows     int                `json:"duplicate_rows"`
	IsUsable          bool               `json:"is_usable"`
	BlockingIssues    []string           `json:"blocking_issues"`
}

// IssueCount returns the total number of recorded issues
func (r DataQualityReport) IssueCount() int { return len(r.Issues) }

// HasCritical reports whether any issue blocks analysis
func (r DataQualityReport) HasCritical() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// CountBySeverity returns the number of issues at the given severity
func (r DataQualityReport) CountBySeverity(s Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == s {
			n++
		}
	}
	return n
}

// Summary renders a one-paragraph human-readable quality summary
func (r DataQualityReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d rows, %d columns.", r.TotalRows, r.TotalColumns)
	if len(r.Issues) == 0 {
		b.WriteString(" No data quality issues detected.")
		return b.String()
	}
	fmt.Fprintf(&b, " %d quality issue(s) found", len(r.Issues))
	if n := r.CountBySeverity(SeverityCritical); n > 0 {
		fmt.Fprintf(&b, ", %d critical", n)
	}
	if n := r.CountBySeverity(SeverityHigh); n > 0 {
		fmt.Fprintf(&b, ", %d high", n)
	}
	b.WriteString(".")
	if r.DuplicateRows > 0 {
		fmt.Fprintf(&b, " %d duplicate rows.", r.DuplicateRows)
	}
	if !r.IsUsable {
		fmt.Fprintf(&b, " Data is NOT usable for analysis: %s", strings.Join(r.BlockingIssues, "; "))
	}
	return b.String()
}
