package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind selects one of the two ledger sequences. Its string form is the
// value written to the Type column of the combined export.
type Kind string

const (
	KindExpense Kind = "Expense"
	KindIncome  Kind = "Income"
)

// Recognized expense categories.
const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Entertainment Category = "Entertainment"
	Shopping      Category = "Shopping"
	Utilities     Category = "Utilities"
	Medical       Category = "Medical"
	Other         Category = "Other"
)

const maxDescriptionLen = 200

type (
	Category string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID          string
		Date        Date
		Category    Category
		Amount      Money
		Description string
	}

	Income struct {
		ID          string
		Date        Date
		Source      string
		Amount      Money
		Description string
	}

	// Transaction is one row of the combined export. Party holds the
	// category for expenses and the source for incomes.
	Transaction struct {
		Type        Kind
		ID          string
		Date        Date
		Party       string
		Amount      Money
		Description string
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrEmptySource        = errors.New("empty income source")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrUnknownKind        = errors.New("unknown transaction type")
)

// Categories returns the recognized categories in display order.
func Categories() []Category {
	return []Category{Food, Transport, Entertainment, Shopping, Utilities, Medical, Other}
}

// IsRecognized reports whether c belongs to the fixed category set.
func (c Category) IsRecognized() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseKind accepts "Expense"/"Income" case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expense":
		return KindExpense, nil
	case "income":
		return KindIncome, nil
	}
	return "", ErrUnknownKind
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses the YYYY-MM-DD form used by forms and CSV files.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the current date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// String returns the YYYY-MM-DD form.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Validate rejects negative amounts. Zero is allowed.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Category.IsRecognized() {
		return ErrUnknownCategory
	}
	if utf8.RuneCountInString(e.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

func (i Income) Validate() error {
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	if utf8.RuneCountInString(i.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// Transaction converts the expense into a combined-export row.
func (e Expense) Transaction() Transaction {
	return Transaction{
		Type:        KindExpense,
		ID:          e.ID,
		Date:        e.Date,
		Party:       string(e.Category),
		Amount:      e.Amount,
		Description: e.Description,
	}
}

// Transaction converts the income into a combined-export row.
func (i Income) Transaction() Transaction {
	return Transaction{
		Type:        KindIncome,
		ID:          i.ID,
		Date:        i.Date,
		Party:       i.Source,
		Amount:      i.Amount,
		Description: i.Description,
	}
}
