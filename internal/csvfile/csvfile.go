// Package csvfile reads and writes the flat CSV format used to save the
// ledger: one header row followed by one row per transaction.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"tracker/internal/core"
)

// Header is the column layout written by WriteCombined.
var Header = []string{"Date", "Category", "Amount", "Description", "Type"}

// ErrMalformedImport reports a CSV file that cannot be loaded. The wrapping
// error names the offending line.
var ErrMalformedImport = errors.New("malformed import")

const bom = "\ufeff"

// WriteCombined writes txs under Header.
func WriteCombined(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tx := range txs {
		row := []string{
			tx.Date.String(),
			tx.Party,
			tx.Amount.String(),
			tx.Description,
			string(tx.Type),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveFile creates or truncates path and writes txs into it.
func SaveFile(path string, txs []core.Transaction) error {
	fd, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCombined(fd, txs); err != nil {
		fd.Close()
		return err
	}
	return fd.Close()
}

type columns struct {
	date, category, amount, description, typ int
}

func parseHeader(record []string) (columns, error) {
	cols := columns{date: -1, category: -1, amount: -1, description: -1, typ: -1}
	for i, name := range record {
		if i == 0 {
			name = strings.TrimPrefix(name, bom)
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			cols.date = i
		case "category":
			cols.category = i
		case "amount":
			cols.amount = i
		case "description":
			cols.description = i
		case "type":
			cols.typ = i
		}
	}
	var missing []string
	if cols.date < 0 {
		missing = append(missing, "Date")
	}
	if cols.category < 0 {
		missing = append(missing, "Category")
	}
	if cols.amount < 0 {
		missing = append(missing, "Amount")
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: line 1: missing column %s", ErrMalformedImport, strings.Join(missing, ", "))
	}
	return cols, nil
}

func field(record []string, i int) string {
	return strings.TrimSpace(rawField(record, i))
}

// rawField keeps surrounding whitespace, for free-text columns.
func rawField(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

type row struct {
	kind        core.Kind
	date        core.Date
	party       string
	amount      core.Money
	description string
}

// readRows parses every data row or none: the first bad line aborts.
func readRows(r io.Reader) ([]row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedImport)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: line 1: %v", ErrMalformedImport, err)
	}
	cols, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []row
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
		}
		line, _ := cr.FieldPos(0)
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		rw := row{kind: core.KindExpense}
		if cols.typ >= 0 {
			kind, err := core.ParseKind(field(record, cols.typ))
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: unknown type %q", ErrMalformedImport, line, field(record, cols.typ))
			}
			rw.kind = kind
		}
		rw.date, err = core.ParseDate(field(record, cols.date))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid date %q", ErrMalformedImport, line, field(record, cols.date))
		}
		rw.amount, err = core.ParseMoney(field(record, cols.amount))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid amount %q", ErrMalformedImport, line, field(record, cols.amount))
		}
		rw.party = rawField(record, cols.category)
		rw.description = rawField(record, cols.description)
		rows = append(rows, rw)
	}
	return rows, nil
}

// ReadExpenses parses a CSV with at least Date, Category and Amount columns.
// When a Type column is present only Expense rows are returned, so a
// combined export loads back its expense half. Categories are taken as-is.
func ReadExpenses(r io.Reader) ([]core.Expense, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}
	expenses := make([]core.Expense, 0, len(rows))
	for _, rw := range rows {
		if rw.kind != core.KindExpense {
			continue
		}
		expenses = append(expenses, core.Expense{
			Date:        rw.date,
			Category:    core.Category(rw.party),
			Amount:      rw.amount,
			Description: rw.description,
		})
	}
	return expenses, nil
}

// ReadCombined parses both halves of a combined export. Rows without a Type
// column are treated as expenses.
func ReadCombined(r io.Reader) ([]core.Expense, []core.Income, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, nil, err
	}
	var (
		expenses []core.Expense
		incomes  []core.Income
	)
	for _, rw := range rows {
		switch rw.kind {
		case core.KindIncome:
			incomes = append(incomes, core.Income{
				Date:        rw.date,
				Source:      rw.party,
				Amount:      rw.amount,
				Description: rw.description,
			})
		default:
			expenses = append(expenses, core.Expense{
				Date:        rw.date,
				Category:    core.Category(rw.party),
				Amount:      rw.amount,
				Description: rw.description,
			})
		}
	}
	return expenses, incomes, nil
}

// OpenExpenses reads expenses from the file at path.
func OpenExpenses(path string) ([]core.Expense, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fd.Close()
	return ReadExpenses(fd)
}
