package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finance/internal/cache"
	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/middleware/ratelimit"
	"finance/internal/services"
	"finance/internal/storage/memory"
)

type fakeExporter struct {
	got core.MonthlyCategoryTotals
	err error
}

func (f *fakeExporter) ExportMonthlyTotals(_ context.Context, totals core.MonthlyCategoryTotals) (string, error) {
	f.got = totals
	if f.err != nil {
		return "", f.err
	}
	return "'Monthly totals'!A1:C2", nil
}

type testServer struct {
	*Server
	t *testing.T
}

func newTestServer(t *testing.T, mutate func(*Deps)) testServer {
	t.Helper()
	store := memory.New()
	reports, err := services.NewReports(cache.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(reports.Close)

	deps := Deps{
		Categories:   services.NewCategoryService(store, reports, nil),
		Transactions: services.NewTransactionService(store, store, reports, nil, core.DefaultPageSize),
		Ready:        store.Ping,
		Logger: applog.New(applog.Config{
			Component: applog.ComponentApp,
			Handler:   slog.NewTextHandler(io.Discard, nil),
		}),
		RateLimit: ratelimit.Config{RequestsPerMinute: 1000},
	}
	if mutate != nil {
		mutate(&deps)
	}
	srv := NewServer(":0", deps)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return testServer{Server: srv, t: t}
}

func (s testServer) do(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	return rr
}

func (s testServer) expect(method, path, body string, status int) map[string]any {
	s.t.Helper()
	rr := s.do(method, path, body)
	if rr.Code != status {
		s.t.Fatalf("%s %s: status %d, want %d; body %s", method, path, rr.Code, status, rr.Body.String())
	}
	if rr.Body.Len() == 0 || rr.Body.Bytes()[0] != '{' {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		s.t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	return out
}

func (s testServer) expectList(path string) []map[string]any {
	s.t.Helper()
	rr := s.do(http.MethodGet, path, "")
	if rr.Code != http.StatusOK {
		s.t.Fatalf("GET %s: status %d; body %s", path, rr.Code, rr.Body.String())
	}
	var out []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		s.t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	return out
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := srv.do(http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	down := newTestServer(t, func(d *Deps) {
		d.Ready = func(context.Context) error { return errors.New("db gone") }
	})
	body := down.expect(http.MethodGet, "/readyz", "", http.StatusServiceUnavailable)
	if body["status"] != float64(http.StatusServiceUnavailable) {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestSecurityAndTraceHeaders(t *testing.T) {
	srv := newTestServer(t, nil)
	rr := srv.do(http.MethodGet, "/categories", "")
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing security headers")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id")
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type %q", ct)
	}
}

func TestCategoryEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	if got := srv.expectList("/categories"); len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}

	food := srv.expect(http.MethodPost, "/categories", `{"title":"Food"}`, http.StatusCreated)
	if food["slug"] != "food" || food["color"] != core.DefaultCategoryColor || food["id"] != float64(1) {
		t.Fatalf("unexpected category %v", food)
	}
	if _, ok := food["createdAt"].(string); !ok {
		t.Fatalf("createdAt not a string: %v", food)
	}

	dup := srv.expect(http.MethodPost, "/categories", `{"title":"food"}`, http.StatusBadRequest)
	if dup["status"] != float64(400) || !strings.Contains(dup["error"].(string), "already exists") {
		t.Fatalf("unexpected duplicate body %v", dup)
	}

	srv.expect(http.MethodPost, "/categories", `{"title":""}`, http.StatusBadRequest)
	srv.expect(http.MethodPost, "/categories", `{"title":`, http.StatusBadRequest)
	srv.expect(http.MethodPost, "/categories", `{"title":"`+strings.Repeat("x", 101)+`"}`, http.StatusBadRequest)

	got := srv.expect(http.MethodGet, "/categories/1", "", http.StatusOK)
	if got["title"] != "Food" {
		t.Fatalf("unexpected category %v", got)
	}
	srv.expect(http.MethodGet, "/categories/99", "", http.StatusNotFound)
	srv.expect(http.MethodGet, "/categories/abc", "", http.StatusNotFound)

	renamed := srv.expect(http.MethodPut, "/categories/1", `{"title":"Food And Drinks","color":"#000000"}`, http.StatusOK)
	if renamed["slug"] != "food-and-drinks" || renamed["color"] != "#000000" {
		t.Fatalf("unexpected rename %v", renamed)
	}
	srv.expect(http.MethodPut, "/categories/99", `{"title":"Other"}`, http.StatusNotFound)

	srv.expect(http.MethodPost, "/categories", `{"title":"Rent"}`, http.StatusCreated)
	srv.expect(http.MethodPut, "/categories/2", `{"title":"food and drinks"}`, http.StatusBadRequest)

	srv.expect(http.MethodDelete, "/categories/2", "", http.StatusNoContent)
	srv.expect(http.MethodDelete, "/categories/2", "", http.StatusNotFound)

	if got := srv.expectList("/categories"); len(got) != 1 {
		t.Fatalf("expected one category, got %v", got)
	}
}

func TestTransactionEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.expect(http.MethodPost, "/categories", `{"title":"Food"}`, http.StatusCreated)

	notFound := srv.expect(http.MethodPost, "/transactions",
		`{"amount":10,"dueDate":"2024-01-15","type":"expense","categoryId":99}`, http.StatusNotFound)
	if notFound["status"] != float64(404) {
		t.Fatalf("unexpected body %v", notFound)
	}

	created := srv.expect(http.MethodPost, "/transactions",
		`{"amount":12.5,"dueDate":"2024-01-15","type":"expense","categoryId":1,"description":"lunch"}`, http.StatusCreated)
	if created["amount"] != 12.5 || created["dueDate"] != "2024-01-15" || created["description"] != "lunch" {
		t.Fatalf("unexpected transaction %v", created)
	}
	category, _ := created["category"].(map[string]any)
	if category["title"] != "Food" || category["id"] != float64(1) || category["color"] != core.DefaultCategoryColor {
		t.Fatalf("unexpected category summary %v", created["category"])
	}
	if _, ok := created["categoryId"]; ok {
		t.Fatal("categoryId must not be exposed")
	}

	for name, body := range map[string]string{
		"missing amount":  `{"dueDate":"2024-01-15","type":"expense","categoryId":1}`,
		"zero amount":     `{"amount":0,"dueDate":"2024-01-15","type":"expense","categoryId":1}`,
		"bad type":        `{"amount":1,"dueDate":"2024-01-15","type":"gift","categoryId":1}`,
		"bad date":        `{"amount":1,"dueDate":"15/01/2024","type":"expense","categoryId":1}`,
		"missing date":    `{"amount":1,"type":"expense","categoryId":1}`,
		"string category": `{"amount":1,"dueDate":"2024-01-15","type":"expense","categoryId":"1"}`,
		"huge amount":     `{"amount":200000000000000000,"dueDate":"2024-01-15","type":"expense","categoryId":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			if rr := srv.do(http.MethodPost, "/transactions", body); rr.Code != http.StatusBadRequest {
				t.Fatalf("status %d, want 400; body %s", rr.Code, rr.Body.String())
			}
		})
	}

	srv.expect(http.MethodGet, "/transactions/1", "", http.StatusOK)
	srv.expect(http.MethodGet, "/transactions/2", "", http.StatusNotFound)

	updated := srv.expect(http.MethodPut, "/transactions/1", `{"amount":"20.00"}`, http.StatusOK)
	if updated["amount"] != float64(20) || updated["description"] != "lunch" || updated["type"] != "expense" {
		t.Fatalf("partial update lost fields %v", updated)
	}
	srv.expect(http.MethodPut, "/transactions/1", `{"categoryId":42}`, http.StatusNotFound)
	srv.expect(http.MethodPut, "/transactions/77", `{"amount":1}`, http.StatusNotFound)
	srv.expect(http.MethodPut, "/transactions/1", `{"type":"gift"}`, http.StatusBadRequest)

	conflict := srv.expect(http.MethodDelete, "/categories/1", "", http.StatusConflict)
	if conflict["status"] != float64(409) {
		t.Fatalf("unexpected body %v", conflict)
	}

	srv.expect(http.MethodDelete, "/transactions/1", "", http.StatusNoContent)
	srv.expect(http.MethodGet, "/transactions/1", "", http.StatusNotFound)
	srv.expect(http.MethodDelete, "/categories/1", "", http.StatusNoContent)
}

func seedTransactions(srv testServer, n int) {
	srv.t.Helper()
	srv.expect(http.MethodPost, "/categories", `{"title":"Food"}`, http.StatusCreated)
	srv.expect(http.MethodPost, "/categories", `{"title":"Salary"}`, http.StatusCreated)
	for i := 1; i <= n; i++ {
		typ, cat := "expense", 1
		if i%3 == 0 {
			typ, cat = "income", 2
		}
		body := fmt.Sprintf(`{"amount":%d,"dueDate":"2024-%02d-10","type":"%s","categoryId":%d}`, i*10, (i-1)%12+1, typ, cat)
		srv.expect(http.MethodPost, "/transactions", body, http.StatusCreated)
	}
}

func TestTransactionListing(t *testing.T) {
	srv := newTestServer(t, nil)
	seedTransactions(srv, 7)

	all := srv.expectList("/transactions")
	if len(all) != 7 {
		t.Fatalf("got %d transactions", len(all))
	}
	if all[0]["dueDate"] != "2024-07-10" || all[6]["dueDate"] != "2024-01-10" {
		t.Fatalf("not ordered by due date desc: first %v last %v", all[0]["dueDate"], all[6]["dueDate"])
	}

	page1 := srv.expect(http.MethodGet, "/transactions?page=1", "", http.StatusOK)
	if page1["page"] != float64(1) || page1["next"] != float64(2) || page1["prev"] != nil || page1["count"] != float64(7) {
		t.Fatalf("unexpected envelope %v", page1)
	}
	// income: 30 + 60; expense: 10+20+40+50+70
	if page1["income"] != float64(90) || page1["expense"] != float64(190) {
		t.Fatalf("unexpected totals %v / %v", page1["income"], page1["expense"])
	}
	if results := page1["results"].([]any); len(results) != 5 {
		t.Fatalf("page 1 has %d results", len(results))
	}

	page2 := srv.expect(http.MethodGet, "/transactions?page=2", "", http.StatusOK)
	if page2["next"] != nil || page2["prev"] != float64(1) || len(page2["results"].([]any)) != 2 {
		t.Fatalf("unexpected page 2 %v", page2)
	}

	srv.expect(http.MethodGet, "/transactions?page=3", "", http.StatusBadRequest)
	srv.expect(http.MethodGet, "/transactions?page=0", "", http.StatusBadRequest)
	srv.expect(http.MethodGet, "/transactions?page=abc", "", http.StatusBadRequest)

	income := srv.expectList("/transactions?type=income")
	if len(income) != 2 {
		t.Fatalf("got %d income transactions", len(income))
	}
	if got := srv.expectList("/transactions?categoryId=2&type=expense"); len(got) != 0 {
		t.Fatalf("expected no rows, got %d", len(got))
	}
	ranged := srv.expectList("/transactions?startDate=2024-02-10&endDate=2024-04-10")
	if len(ranged) != 3 {
		t.Fatalf("date range returned %d rows", len(ranged))
	}

	filtered := srv.expect(http.MethodGet, "/transactions?page=1&type=income", "", http.StatusOK)
	if filtered["count"] != float64(2) || filtered["expense"] != float64(0) || filtered["next"] != nil {
		t.Fatalf("unexpected filtered envelope %v", filtered)
	}

	srv.expect(http.MethodGet, "/transactions?type=gift", "", http.StatusBadRequest)
	srv.expect(http.MethodGet, "/transactions?startDate=yesterday", "", http.StatusBadRequest)
	srv.expect(http.MethodGet, "/transactions?categoryId=-1", "", http.StatusBadRequest)
}

func TestEmptyListingFirstPage(t *testing.T) {
	srv := newTestServer(t, nil)
	page := srv.expect(http.MethodGet, "/transactions?page=1", "", http.StatusOK)
	if page["count"] != float64(0) || page["next"] != nil || len(page["results"].([]any)) != 0 {
		t.Fatalf("unexpected empty page %v", page)
	}
}

func TestReports(t *testing.T) {
	srv := newTestServer(t, nil)
	seedTransactions(srv, 4)
	srv.expect(http.MethodPost, "/categories", `{"title":"Unused"}`, http.StatusCreated)

	totals := srv.expect(http.MethodGet, "/categories-monthly-totals", "", http.StatusOK)
	food, _ := totals["1"].(map[string]any)
	if food["title"] != "Food" {
		t.Fatalf("unexpected totals %v", totals)
	}
	reports := food["reports"].(map[string]any)
	if reports["01-24"] != float64(10) || reports["04-24"] != float64(40) {
		t.Fatalf("unexpected food reports %v", reports)
	}
	if _, ok := totals["3"]; ok {
		t.Fatal("category without transactions should be absent")
	}

	amounts := srv.expect(http.MethodGet, "/categories-amount", "", http.StatusOK)
	if amounts["expense"].(map[string]any)["Food"] != float64(70) {
		t.Fatalf("unexpected amounts %v", amounts)
	}
	if amounts["income"].(map[string]any)["Salary"] != float64(30) {
		t.Fatalf("unexpected amounts %v", amounts)
	}
	if inv, ok := amounts["investment"].(map[string]any); !ok || len(inv) != 0 {
		t.Fatalf("investment should be an empty object: %v", amounts["investment"])
	}

	filtered := srv.expect(http.MethodGet, "/categories-amount?endDate=2024-02-10", "", http.StatusOK)
	if filtered["expense"].(map[string]any)["Food"] != float64(30) {
		t.Fatalf("unexpected filtered amounts %v", filtered)
	}

	// writes invalidate cached reports
	srv.expect(http.MethodPost, "/transactions", `{"amount":5,"dueDate":"2024-01-20","type":"expense","categoryId":1}`, http.StatusCreated)
	totals = srv.expect(http.MethodGet, "/categories-monthly-totals", "", http.StatusOK)
	if got := totals["1"].(map[string]any)["reports"].(map[string]any)["01-24"]; got != float64(15) {
		t.Fatalf("stale monthly totals: %v", got)
	}
}

func TestExportMonthlyTotals(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.expect(http.MethodPost, "/categories-monthly-totals/export", "", http.StatusServiceUnavailable)

	exporter := &fakeExporter{}
	srv = newTestServer(t, func(d *Deps) { d.Exporter = exporter })
	seedTransactions(srv, 2)

	body := srv.expect(http.MethodPost, "/categories-monthly-totals/export", "", http.StatusOK)
	if body["range"] != "'Monthly totals'!A1:C2" {
		t.Fatalf("unexpected body %v", body)
	}
	if len(exporter.got) != 1 || exporter.got[1].Reports["02-24"].Cents != 2000 {
		t.Fatalf("exporter received %v", exporter.got)
	}

	exporter.err = errors.New("quota exceeded")
	failed := srv.expect(http.MethodPost, "/categories-monthly-totals/export", "", http.StatusInternalServerError)
	if failed["error"] != "internal server error" {
		t.Fatalf("internal error leaked: %v", failed)
	}
}

func TestRateLimitAppliesToWritesOnly(t *testing.T) {
	srv := newTestServer(t, func(d *Deps) { d.RateLimit = ratelimit.Config{RequestsPerMinute: 2} })

	srv.expect(http.MethodPost, "/categories", `{"title":"A"}`, http.StatusCreated)
	srv.expect(http.MethodPost, "/categories", `{"title":"B"}`, http.StatusCreated)
	limited := srv.expect(http.MethodPost, "/categories", `{"title":"C"}`, http.StatusTooManyRequests)
	if limited["status"] != float64(429) {
		t.Fatalf("unexpected body %v", limited)
	}

	for i := 0; i < 5; i++ {
		srv.expectList("/categories")
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	srv := newTestServer(t, nil)
	body := srv.expect(http.MethodGet, "/nope", "", http.StatusNotFound)
	if body["error"] != "route not found" {
		t.Fatalf("unexpected body %v", body)
	}
	srv.expect(http.MethodPatch, "/categories/1", "", http.StatusMethodNotAllowed)
}

func TestRecoversFromPanics(t *testing.T) {
	srv := newTestServer(t, func(d *Deps) {
		d.Ready = func(context.Context) error { panic("boom") }
	})
	rr := srv.do(http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
}
