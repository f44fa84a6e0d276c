package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"finance/internal/core"
	applog "finance/internal/log"
)

// timestampLayout is RFC 3339 with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		http.Error(w, `{"status":500,"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
}

type errorBody struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// ErrorResponse creates the standard {"status","error"} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Status: statusCode, Error: message})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, core.ErrAlreadyExists),
		errors.Is(err, core.ErrInvalidPage):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrInvalidCategory):
		return http.StatusNotFound
	case errors.Is(err, core.ErrCategoryInUse):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and writes the error body. Unexpected
// errors are logged and their message withheld.
func writeError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(ctx)).
			LogError(ctx, "Request failed", err, applog.ComponentHTTP, operation, nil)
		message = "internal server error"
	}
	ErrorResponse(status, message).Write(w)
}

type categoryDTO struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Slug      string  `json:"slug"`
	Color     *string `json:"color"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

type categorySummaryDTO struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Color *string `json:"color"`
}

type transactionDTO struct {
	ID          int64                `json:"id"`
	Amount      core.Money           `json:"amount"`
	DueDate     core.Date            `json:"dueDate"`
	Type        core.TransactionType `json:"type"`
	Description *string              `json:"description"`
	CreatedAt   string               `json:"createdAt"`
	UpdatedAt   string               `json:"updatedAt"`
	Category    categorySummaryDTO   `json:"category"`
}

type transactionPageDTO struct {
	Page    int              `json:"page"`
	Next    *int             `json:"next"`
	Prev    *int             `json:"prev"`
	Count   int              `json:"count"`
	Income  core.Money       `json:"income"`
	Expense core.Money       `json:"expense"`
	Results []transactionDTO `json:"results"`
}

type categoryMonthlyDTO struct {
	Title   string                `json:"title"`
	Color   *string               `json:"color"`
	Reports map[string]core.Money `json:"reports"`
}

type amountByCategoryDTO struct {
	Income     map[string]core.Money `json:"income"`
	Expense    map[string]core.Money `json:"expense"`
	Investment map[string]core.Money `json:"investment"`
}

type exportDTO struct {
	Range string `json:"range"`
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func newCategoryDTO(c core.Category) categoryDTO {
	return categoryDTO{
		ID:        c.ID,
		Title:     c.Title,
		Slug:      c.Slug,
		Color:     c.Color,
		CreatedAt: formatTimestamp(c.CreatedAt),
		UpdatedAt: formatTimestamp(c.UpdatedAt),
	}
}

func newCategoryDTOs(cs []core.Category) []categoryDTO {
	out := make([]categoryDTO, 0, len(cs))
	for _, c := range cs {
		out = append(out, newCategoryDTO(c))
	}
	return out
}

func newTransactionDTO(t core.Transaction) transactionDTO {
	summary := categorySummaryDTO{ID: t.CategoryID}
	if t.Category != nil {
		summary = categorySummaryDTO{ID: t.Category.ID, Title: t.Category.Title, Color: t.Category.Color}
	}
	return transactionDTO{
		ID:          t.ID,
		Amount:      t.Amount,
		DueDate:     t.DueDate,
		Type:        t.Type,
		Description: t.Description,
		CreatedAt:   formatTimestamp(t.CreatedAt),
		UpdatedAt:   formatTimestamp(t.UpdatedAt),
		Category:    summary,
	}
}

func newTransactionDTOs(ts []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, 0, len(ts))
	for _, t := range ts {
		out = append(out, newTransactionDTO(t))
	}
	return out
}

func newTransactionPageDTO(p core.TransactionPage) transactionPageDTO {
	return transactionPageDTO{
		Page:    p.Page,
		Next:    p.Next,
		Prev:    p.Prev,
		Count:   p.Stats.Count,
		Income:  p.Stats.Income,
		Expense: p.Stats.Expense,
		Results: newTransactionDTOs(p.Results),
	}
}

func newMonthlyTotalsDTO(m core.MonthlyCategoryTotals) map[int64]categoryMonthlyDTO {
	out := make(map[int64]categoryMonthlyDTO, len(m))
	for id, entry := range m {
		out[id] = categoryMonthlyDTO{Title: entry.Title, Color: entry.Color, Reports: entry.Reports}
	}
	return out
}

func newAmountByCategoryDTO(a core.AmountByCategory) amountByCategoryDTO {
	orEmpty := func(m map[string]core.Money) map[string]core.Money {
		if m == nil {
			return map[string]core.Money{}
		}
		return m
	}
	return amountByCategoryDTO{
		Income:     orEmpty(a[core.Income]),
		Expense:    orEmpty(a[core.Expense]),
		Investment: orEmpty(a[core.Investment]),
	}
}
