package render

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const NotAvailable = "N/A"

// Table renders a markdown table. Rows shorter than headers are padded with N/A.
func Table(headers []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("| ")
	b.WriteString(strings.Join(headers, " | "))
	b.WriteString(" |\n|")
	for i := range headers {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString("--------")
	}
	b.WriteString("|\n")

	for _, row := range rows {
		cells := make([]string, len(headers))
		for i := range cells {
			cells[i] = NotAvailable
			if i < len(row) && row[i] != "" {
				cells[i] = row[i]
			}
		}
		b.WriteString("| ")
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" |\n")
	}
	return b.String()
}

// Fixed formats v with exactly places decimals; NaN and infinities are N/A.
func Fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotAvailable
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// Number formats v without trailing zeros, rounded to at most places decimals.
func Number(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotAvailable
	}
	return decimal.NewFromFloat(v).Round(places).String()
}
