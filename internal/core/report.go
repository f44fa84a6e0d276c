package core

import "sort"

// CategoryMonthly holds the per-month totals of one category, keyed "MM-YY".
type CategoryMonthly struct {
	Title   string
	Color   *string
	Reports map[string]Money
}

// MonthlyCategoryTotals maps category id to its monthly totals. Categories
// without dated transactions are absent.
type MonthlyCategoryTotals map[int64]CategoryMonthly

// Add accumulates amount into the bucket of category c for month.
func (m MonthlyCategoryTotals) Add(c CategorySummary, month string, amount Money) {
	entry, ok := m[c.ID]
	if !ok {
		entry = CategoryMonthly{Title: c.Title, Color: c.Color, Reports: map[string]Money{}}
	}
	entry.Reports[month] = entry.Reports[month].Add(amount)
	m[c.ID] = entry
}

// CategoryIDs returns the keys of m in ascending order.
func (m MonthlyCategoryTotals) CategoryIDs() []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Months returns every month key present in m, chronologically.
func (m MonthlyCategoryTotals) Months() []string {
	seen := map[string]bool{}
	var months []string
	for _, entry := range m {
		for k := range entry.Reports {
			if !seen[k] {
				seen[k] = true
				months = append(months, k)
			}
		}
	}
	sort.Slice(months, func(i, j int) bool { return monthOrder(months[i]) < monthOrder(months[j]) })
	return months
}

// monthOrder turns "MM-YY" into "YYMM" so keys sort chronologically.
func monthOrder(key string) string {
	if len(key) != 5 {
		return key
	}
	return key[3:] + key[:2]
}

// AmountByCategory sums amounts by category title within each transaction
// type. Every type is present even when empty.
type AmountByCategory map[TransactionType]map[string]Money

func NewAmountByCategory() AmountByCategory {
	return AmountByCategory{
		Income:     {},
		Expense:    {},
		Investment: {},
	}
}

// Add accumulates amount under typ and title. Unknown types are ignored.
func (a AmountByCategory) Add(typ TransactionType, title string, amount Money) {
	bucket, ok := a[typ]
	if !ok {
		return
	}
	bucket[title] = bucket[title].Add(amount)
}
