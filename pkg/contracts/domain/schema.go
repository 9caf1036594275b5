package domain

// ColumnMapping records that a raw column maps to a canonical field.
// Confidence reflects how the match was made: 1.0 exact alias, 0.9 whole-word
// match, 0.8 prefix/suffix match on a short alias.
type ColumnMapping struct {
	ColumnName    string  `json:"column_name"`
	CanonicalName string  `json:"canonical_name"`
	Confidence    float64 `json:"confidence"`
}

// SchemaMatch is the result of matching a record set's columns against one
// data type's expected schema. Derived once per record set.
type SchemaMatch struct {
	DataType       DataType        `json:"data_type"`
	Confidence     float64         `json:"confidence"`
	MatchedColumns []string        `json:"matched_columns"`
	MissingFields  []string        `json:"missing_fields"`
	Mappings       []ColumnMapping `json:"column_mappings"`
}

// MatchedFields returns the canonical fields claimed by the mappings,
// in mapping order
func (m SchemaMatch) MatchedFields() []string {
	fields := make([]string, 0, len(m.Mappings))
	for _, mapping := range m.Mappings {
		fields = append(fields, mapping.CanonicalName)
	}
	return fields
}

// RequiredCoverage returns the fraction of required fields present among
// the matched canonical fields
func (m SchemaMatch) RequiredCoverage(required []string) float64 {
	if len(required) == 0 {
		return 1.0
	}
	matched := make(map[string]bool, len(m.Mappings))
	for _, mapping := range m.Mappings {
		matched[mapping.CanonicalName] = true
	}
	hit := 0
	for _, field := range required {
		if matched[field] {
			hit++
		}
	}
	return float64(hit) / float64(len(required))
}
