package core

// DefaultPageSize is the number of transactions per page.
const DefaultPageSize = 5

// Window is the slice of an ordered result set to return.
type Window struct {
	Offset int
	Limit  int
}

// PageInfo describes one page of a filtered set.
type PageInfo struct {
	Page       int
	TotalPages int
	Next       *int
	Prev       *int
	Window     Window
}

// TotalPages is max(1, ceil(count/size)).
func TotalPages(count, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (count + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate validates page against count and size. It returns ErrInvalidPage
// when page falls outside [1, TotalPages].
func Paginate(page, count, size int) (PageInfo, error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := TotalPages(count, size)
	if page < 1 || page > total {
		return PageInfo{}, ErrInvalidPage
	}

	info := PageInfo{
		Page:       page,
		TotalPages: total,
		Window:     Window{Offset: (page - 1) * size, Limit: size},
	}
	if page < total {
		next := page + 1
		info.Next = &next
	}
	if page > 1 {
		prev := page - 1
		info.Prev = &prev
	}
	return info, nil
}

// TransactionStats totals a filtered, unpaginated set.
type TransactionStats struct {
	Count   int
	Income  Money
	Expense Money
}

// Add folds t into s.
func (s TransactionStats) Add(t Transaction) TransactionStats {
	s.Count++
	switch t.Type {
	case Income:
		s.Income = s.Income.Add(t.Amount)
	case Expense:
		s.Expense = s.Expense.Add(t.Amount)
	}
	return s
}

// TransactionPage is the paginated listing envelope.
type TransactionPage struct {
	PageInfo
	Stats   TransactionStats
	Results []Transaction
}
