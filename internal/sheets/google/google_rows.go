package google

import (
	"strings"

	"finance/internal/core"
)

// monthlyTotalsRows lays totals out as a header row followed by one row per
// category in id order. Months without transactions are left blank.
func monthlyTotalsRows(totals core.MonthlyCategoryTotals) [][]any {
	months := totals.Months()

	header := make([]any, 0, len(months)+2)
	header = append(header, "Category", "Color")
	for _, m := range months {
		header = append(header, m)
	}
	rows := [][]any{header}

	for _, id := range totals.CategoryIDs() {
		cat := totals[id]
		color := ""
		if cat.Color != nil {
			color = *cat.Color
		}
		row := make([]any, 0, len(header))
		row = append(row, cat.Title, color)
		for _, m := range months {
			if amount, ok := cat.Reports[m]; ok {
				row = append(row, amount.Decimal().InexactFloat64())
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// columnName converts a 1-based column index to A1 notation letters.
func columnName(n int) string {
	if n < 1 {
		return "A"
	}
	var b strings.Builder
	var letters []byte
	for n > 0 {
		n--
		letters = append(letters, byte('A'+n%26))
		n /= 26
	}
	for i := len(letters) - 1; i >= 0; i-- {
		b.WriteByte(letters[i])
	}
	return b.String()
}
