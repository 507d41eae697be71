package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tracker/internal/core"
)

// maxFormBytes bounds non-upload request bodies.
const maxFormBytes = 64 << 10

// RequestBodyParser reads a JSON or form-encoded body once and exposes its
// fields by name.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxFormBytes))
	return p
}

// Parse decodes the body as JSON when it looks like an object, otherwise as
// a form.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}
	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal(p.body, &p.jsonData)
		return p.err
	}
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns the sanitized value of key, or "".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput trims s and drops control characters other than tab and
// newlines.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// FieldError names the form field that failed validation.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

// parseDateField parses date, defaulting to today when empty.
func parseDateField(v string) (core.Date, error) {
	if v == "" {
		return core.Today(), nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, &FieldError{Field: "date", Err: err}
	}
	return d, nil
}

// ParseExpenseInput builds an expense from date, category, amount and
// description fields. The result is not validated.
func ParseExpenseInput(get func(string) string) (core.Expense, error) {
	date, err := parseDateField(get("date"))
	if err != nil {
		return core.Expense{}, err
	}
	amount, err := core.ParseMoney(get("amount"))
	if err != nil {
		return core.Expense{}, &FieldError{Field: "amount", Err: err}
	}
	return core.Expense{
		Date:        date,
		Category:    core.Category(get("category")),
		Amount:      amount,
		Description: get("description"),
	}, nil
}

// ParseIncomeInput builds an income from date, source, amount and
// description fields. The result is not validated.
func ParseIncomeInput(get func(string) string) (core.Income, error) {
	date, err := parseDateField(get("date"))
	if err != nil {
		return core.Income{}, err
	}
	amount, err := core.ParseMoney(get("amount"))
	if err != nil {
		return core.Income{}, &FieldError{Field: "amount", Err: err}
	}
	return core.Income{
		Date:        date,
		Source:      get("source"),
		Amount:      amount,
		Description: get("description"),
	}, nil
}

// errDeleteTarget means neither id nor index was sent.
var errDeleteTarget = errors.New("id or index is required")

// DeleteTarget is either a stable ID or a position in the sequence.
type DeleteTarget struct {
	ID    string
	Index int
}

// ParseDeleteTarget prefers id over index when both are present.
func ParseDeleteTarget(get func(string) string) (DeleteTarget, error) {
	if id := get("id"); id != "" {
		return DeleteTarget{ID: id}, nil
	}
	raw := get("index")
	if raw == "" {
		return DeleteTarget{}, errDeleteTarget
	}
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return DeleteTarget{}, &FieldError{Field: "index", Err: err}
	}
	return DeleteTarget{Index: idx}, nil
}

// RequireMethod returns a 405 response unless r uses one of methods.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// userMessage turns a validation error into text for the page.
func userMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidDate):
		return "Invalid date, use YYYY-MM-DD"
	case errors.Is(err, core.ErrInvalidAmount):
		return "Invalid amount"
	case errors.Is(err, core.ErrUnknownCategory):
		return "Unknown category"
	case errors.Is(err, core.ErrEmptySource):
		return "Income source is required"
	case errors.Is(err, core.ErrDescriptionTooLong):
		return "Description is too long (max 200 characters)"
	case errors.Is(err, errDeleteTarget):
		return "Choose a record to delete"
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		return "Invalid " + fe.Field
	}
	return "Invalid data"
}
