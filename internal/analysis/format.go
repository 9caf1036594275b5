package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatCurrency renders a value in the compact form used in findings:
// $1.2M at a million or more, $3.4K at a thousand or more, $850 below.
func FormatCurrency(value float64) string {
	abs := math.Abs(value)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("$%.1fM", value/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("$%.1fK", value/1_000)
	default:
		return FormatAmount(value)
	}
}

// FormatAmount renders a full dollar amount with thousands separators,
// rounded to whole dollars: $1,234,567.
func FormatAmount(value float64) string {
	rounded := int64(math.Round(value))
	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}
	return sign + "$" + comma(rounded)
}

// FormatPct renders a percentage with one decimal place: 12.3%
func FormatPct(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
