package cli

import (
	"fmt"
	"sort"
	"strings"

	"finance/internal/core"
)

// MonthlyTotalsMarkdown renders one table row per category with a column
// per month and a row total. Missing months are left blank.
func MonthlyTotalsMarkdown(totals core.MonthlyCategoryTotals) string {
	var b strings.Builder
	b.WriteString("## Monthly totals\n\n")
	if len(totals) == 0 {
		b.WriteString("_No transactions._\n")
		return b.String()
	}

	months := totals.Months()
	b.WriteString("| Category |")
	for _, m := range months {
		fmt.Fprintf(&b, " %s |", m)
	}
	b.WriteString(" Total |\n|---|")
	b.WriteString(strings.Repeat("---:|", len(months)+1))
	b.WriteString("\n")

	for _, id := range totals.CategoryIDs() {
		entry := totals[id]
		var sum core.Money
		fmt.Fprintf(&b, "| %s |", escapeCell(entry.Title))
		for _, m := range months {
			amount, ok := entry.Reports[m]
			if !ok {
				b.WriteString("  |")
				continue
			}
			sum = sum.Add(amount)
			fmt.Fprintf(&b, " %s |", amount)
		}
		fmt.Fprintf(&b, " **%s** |\n", sum)
	}
	return b.String()
}

// AmountByCategoryMarkdown renders one section per transaction type with
// categories sorted by title.
func AmountByCategoryMarkdown(amounts core.AmountByCategory) string {
	var b strings.Builder
	b.WriteString("## Amount by category\n")
	for _, typ := range []core.TransactionType{core.Income, core.Expense, core.Investment} {
		bucket := amounts[typ]
		fmt.Fprintf(&b, "\n### %s\n\n", typ)
		if len(bucket) == 0 {
			b.WriteString("_None._\n")
			continue
		}

		titles := make([]string, 0, len(bucket))
		for title := range bucket {
			titles = append(titles, title)
		}
		sort.Strings(titles)

		b.WriteString("| Category | Amount |\n|---|---:|\n")
		for _, title := range titles {
			fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(title), bucket[title])
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
