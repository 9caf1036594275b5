package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"millions", 2_450_000, "$2.5M"},
		{"exact million", 1_000_000, "$1.0M"},
		{"thousands", 125_400, "$125.4K"},
		{"exact thousand", 1_000, "$1.0K"},
		{"small", 850, "$850"},
		{"zero", 0, "$0"},
		{"negative millions", -3_200_000, "$-3.2M"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCurrency(tt.value))
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"grouped", 1_234_567, "$1,234,567"},
		{"rounded", 999.6, "$1,000"},
		{"three digits", 999, "$999"},
		{"negative", -45_000, "-$45,000"},
		{"zero", 0, "$0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(tt.value))
		})
	}
}

func TestFormatPct(t *testing.T) {
	assert.Equal(t, "12.3%", FormatPct(12.34))
	assert.Equal(t, "-5.0%", FormatPct(-5))
	assert.Equal(t, "0.0%", FormatPct(0))
}
