package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DataType identifies the business domain of a record set. Detection is a
// pure function of column names and content; once detected for a record set
// it is never mutated.
type DataType int

const (
	Financial DataType = iota
	Manufacturing
	Inventory
	Sales
	Purchase
	Unknown
)

// AllDataTypes lists the analyzable data types in declaration order.
// Declaration order doubles as the tie-break order for schema detection.
var AllDataTypes = []DataType{
	Financial,
	Manufacturing,
	Inventory,
	Sales,
	Purchase,
}

// String returns the lowercase wire name of the data type
func (dt DataType) String() string {
	switch dt {
	case Financial:
		return "financial"
	case Manufacturing:
		return "manufacturing"
	case Inventory:
		return "inventory"
	case Sales:
		return "sales"
	case Purchase:
		return "purchase"
	default:
		return "unknown"
	}
}

// ParseDataType maps a wire name back to a DataType
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "financial":
		return Financial, nil
	case "manufacturing":
		return Manufacturing, nil
	case "inventory":
		return Inventory, nil
	case "sales":
		return Sales, nil
	case "purchase":
		return Purchase, nil
	case "unknown", "":
		return Unknown, nil
	default:
		return Unknown, fmt.Errorf("unknown data type %q", s)
	}
}

// MarshalJSON implements json.Marshaler
func (dt DataType) MarshalJSON() ([]byte, error) {
	return json.Marshal(dt.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (dt *DataType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDataType(s)
	if err != nil {
		return err
	}
	*dt = parsed
	return nil
}

// Severity ranks insights, quality issues, and risks. Declaration order is
// the sort order: critical sorts before high, high before medium, and so on.
type Severity int

const (
	SeverityCritical Severity = iota
	SeverityHigh
	SeverityMedium
	SeverityLow
)

// Rank returns the sort rank; lower is more severe
func (s Severity) Rank() int { return int(s) }

// String returns the lowercase wire name of the severity
func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	case SeverityLow:
		return "low"
	default:
		return "unknown"
	}
}

// ParseSeverity maps a wire name back to a Severity
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical, nil
	case "high":
		return SeverityHigh, nil
	case "medium":
		return SeverityMedium, nil
	case "low":
		return SeverityLow, nil
	default:
		return SeverityLow, fmt.Errorf("unknown severity %q", s)
	}
}

// MarshalJSON implements json.Marshaler
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseSeverity(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// InsightCategory groups insights by the domain that produced them
type InsightCategory int

const (
	CategoryFinancial InsightCategory = iota
	CategoryManufacturing
	CategoryInventory
	CategorySales
	CategoryPurchase
	CategoryRisk
	CategoryCrossDomain
)

// String returns the display name used in reports
func (c InsightCategory) String() string {
	switch c {
	case CategoryFinancial:
		return "Financial Insights"
	case CategoryManufacturing:
		return "Manufacturing & Operations Insights"
	case CategoryInventory:
		return "Inventory & Stock Insights"
	case CategorySales:
		return "Sales Insights"
	case CategoryPurchase:
		return "Purchase & Supply Chain Insights"
	case CategoryRisk:
		return "Critical Risks"
	case CategoryCrossDomain:
		return "Cross-Domain Insights"
	default:
		return "Uncategorized"
	}
}

// MarshalJSON implements json.Marshaler
func (c InsightCategory) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (c *InsightCategory) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, cat := range []InsightCategory{
		CategoryFinancial, CategoryManufacturing, CategoryInventory,
		CategorySales, CategoryPurchase, CategoryRisk, CategoryCrossDomain,
	} {
		if cat.String() == s {
			*c = cat
			return nil
		}
	}
	return fmt.Errorf("unknown insight category %q", s)
}

// CategoryForDataType returns the insight category an analyzer for the
// given data type emits under
func CategoryForDataType(dt DataType) InsightCategory {
	switch dt {
	case Financial:
		return CategoryFinancial
	case Manufacturing:
		return CategoryManufacturing
	case Inventory:
		return CategoryInventory
	case Sales:
		return CategorySales
	case Purchase:
		return CategoryPurchase
	default:
		return CategoryRisk
	}
}

// Priority orders recommendations for execution
type Priority int

const (
	PriorityImmediate Priority = iota
	PriorityShortTerm
	PriorityMediumTerm
)

// String returns the lowercase wire name of the priority
func (p Priority) String() string {
	switch p {
	case PriorityImmediate:
		return "immediate"
	case PriorityShortTerm:
		return "short_term"
	case PriorityMediumTerm:
		return "medium_term"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Timeline returns the human-readable execution window that mirrors the priority
func (p Priority) Timeline() string {
	switch p {
	case PriorityImmediate:
		return "0-30 days"
	case PriorityShortTerm:
		return "1-3 months"
	case PriorityMediumTerm:
		return "3-6 months"
	default:
		return ""
	}
}
