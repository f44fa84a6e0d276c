package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"finance/internal/core"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type categoryRequest struct {
	Title string  `json:"title" validate:"required,max=100"`
	Color *string `json:"color" validate:"omitempty,max=32"`
}

type createTransactionRequest struct {
	Amount      *core.Money `json:"amount" validate:"required"`
	DueDate     *core.Date  `json:"dueDate" validate:"required"`
	Type        string      `json:"type" validate:"required,oneof=income expense investment"`
	CategoryID  int64       `json:"categoryId" validate:"required,gt=0"`
	Description *string     `json:"description" validate:"omitempty,max=200"`
}

func (r createTransactionRequest) transaction() core.Transaction {
	return core.Transaction{
		Amount:      *r.Amount,
		DueDate:     *r.DueDate,
		Type:        core.TransactionType(r.Type),
		CategoryID:  r.CategoryID,
		Description: r.Description,
	}
}

// updateTransactionRequest is sparse: absent fields keep the stored value.
type updateTransactionRequest struct {
	Amount      *core.Money `json:"amount"`
	DueDate     *core.Date  `json:"dueDate"`
	Type        *string     `json:"type" validate:"omitempty,oneof=income expense investment"`
	CategoryID  *int64      `json:"categoryId" validate:"omitempty,gt=0"`
	Description *string     `json:"description" validate:"omitempty,max=200"`
}

func (r updateTransactionRequest) patch() core.TransactionPatch {
	p := core.TransactionPatch{
		Amount:      r.Amount,
		DueDate:     r.DueDate,
		CategoryID:  r.CategoryID,
		Description: r.Description,
	}
	if r.Type != nil {
		typ := core.TransactionType(*r.Type)
		p.Type = &typ
	}
	return p
}

// decodeJSON reads a JSON body into dst and validates its tags. Every
// failure is a *core.ValidationError.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return core.Invalid("body", describeDecodeError(err))
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %s has the wrong type", typeErr.Field)
	case errors.As(err, &maxErr):
		return "request body too large"
	case errors.Is(err, core.ErrInvalidAmount):
		return "amount is out of range"
	default:
		return "malformed JSON: " + err.Error()
	}
}

// validationError converts the first validator failure into a
// *core.ValidationError named after the JSON field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return core.Invalid("body", err.Error())
	}
	fe := verrs[0]
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "max":
		reason = fmt.Sprintf("too long (max %s characters)", fe.Param())
	case "oneof":
		reason = "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		reason = "must be greater than " + fe.Param()
	default:
		reason = "failed " + fe.Tag() + " validation"
	}
	return core.Invalid(fe.Field(), reason)
}

// parseID reads the {id} route parameter. Anything that is not a positive
// integer cannot name a stored record.
func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseTransactionFilter builds a filter from the query string. Empty
// parameters are treated as absent.
func parseTransactionFilter(q url.Values) (core.TransactionFilter, error) {
	var f core.TransactionFilter

	if v := strings.TrimSpace(q.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return f, core.Invalid("page", "must be an integer")
		}
		f.Page = &page
	}

	if v := strings.TrimSpace(q.Get("categoryId")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return f, core.Invalid("categoryId", "must be a positive integer")
		}
		f.CategoryID = &id
	}

	if v := strings.TrimSpace(q.Get("type")); v != "" {
		typ, err := core.ParseTransactionType(v)
		if err != nil {
			return f, err
		}
		f.Type = &typ
	}

	for _, p := range []struct {
		name string
		dst  **core.Date
	}{
		{"startDate", &f.StartDate},
		{"endDate", &f.EndDate},
	} {
		v := strings.TrimSpace(q.Get(p.name))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return f, core.Invalid(p.name, "must be YYYY-MM-DD or an RFC 3339 timestamp")
		}
		*p.dst = &d
	}

	return f, nil
}
