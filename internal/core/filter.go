package core

// ClauseKind enumerates the predicates a transaction filter can contribute.
type ClauseKind int

const (
	ClauseCategory ClauseKind = iota
	ClauseType
	ClauseStartDate
	ClauseEndDate
)

// Clause is one ANDed predicate over transactions. Only the field matching
// Kind is meaningful.
type Clause struct {
	Kind       ClauseKind
	CategoryID int64
	Type       TransactionType
	Date       Date
}

// TransactionFilter selects transactions. Page only drives pagination and
// never contributes a predicate.
type TransactionFilter struct {
	Page       *int
	CategoryID *int64
	Type       *TransactionType
	StartDate  *Date
	EndDate    *Date
}

// Clauses returns the predicates of f in a fixed order.
func (f TransactionFilter) Clauses() []Clause {
	var clauses []Clause
	if f.CategoryID != nil {
		clauses = append(clauses, Clause{Kind: ClauseCategory, CategoryID: *f.CategoryID})
	}
	if f.Type != nil {
		clauses = append(clauses, Clause{Kind: ClauseType, Type: *f.Type})
	}
	if f.StartDate != nil {
		clauses = append(clauses, Clause{Kind: ClauseStartDate, Date: *f.StartDate})
	}
	if f.EndDate != nil {
		clauses = append(clauses, Clause{Kind: ClauseEndDate, Date: *f.EndDate})
	}
	return clauses
}

// Matches reports whether t satisfies the clause. Date bounds are inclusive
// whole days in UTC.
func (c Clause) Matches(t Transaction) bool {
	switch c.Kind {
	case ClauseCategory:
		return t.CategoryID == c.CategoryID
	case ClauseType:
		return t.Type == c.Type
	case ClauseStartDate:
		return !t.DueDate.Before(c.Date.Time)
	case ClauseEndDate:
		return !t.DueDate.After(c.Date.EndOfDay())
	}
	return false
}

// Matches reports whether t satisfies every clause of f.
func (f TransactionFilter) Matches(t Transaction) bool {
	for _, c := range f.Clauses() {
		if !c.Matches(t) {
			return false
		}
	}
	return true
}

// WithoutPage returns a copy of f that selects the same rows unpaginated.
func (f TransactionFilter) WithoutPage() TransactionFilter {
	f.Page = nil
	return f
}
