package storage

import (
	"strings"
	"testing"

	"finance/internal/core"
)

func TestDialectBind(t *testing.T) {
	q := `SELECT * FROM t WHERE a = ? AND b = ? LIMIT ?`
	if got := sqliteDialect.bind(q); got != q {
		t.Fatalf("sqlite bind changed query: %s", got)
	}
	want := `SELECT * FROM t WHERE a = $1 AND b = $2 LIMIT $3`
	if got := postgresDialect.bind(q); got != want {
		t.Fatalf("postgres bind = %s, want %s", got, want)
	}
}

func TestWhere(t *testing.T) {
	s := &sqlStore{d: sqliteDialect}

	if where, args := s.where(core.TransactionFilter{}); where != "" || len(args) != 0 {
		t.Fatalf("empty filter = %q %v", where, args)
	}

	page := 2
	cat := int64(3)
	typ := core.Income
	start, end := core.NewDate(2025, 9, 1), core.NewDate(2025, 9, 30)
	where, args := s.where(core.TransactionFilter{Page: &page, CategoryID: &cat, Type: &typ, StartDate: &start, EndDate: &end})

	for _, frag := range []string{"t.category_id = ?", "t.type = ?", "t.due_date >= ?", "t.due_date <= ?"} {
		if !strings.Contains(where, frag) {
			t.Fatalf("where %q missing %q", where, frag)
		}
	}
	if strings.Count(where, "?") != 4 || len(args) != 4 {
		t.Fatalf("page must not add a predicate: %q %v", where, args)
	}
	if args[2] != "2025-09-01" || args[3] != "2025-09-30" {
		t.Fatalf("sqlite date args = %v", args[2:])
	}
}
