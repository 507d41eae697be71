package report

import (
	"fmt"

	"dario.cat/mergo"
	"github.com/xuri/excelize/v2"

	"tracker/internal/core"
)

const (
	transactionsSheet = "Transactions"
	categoriesSheet   = "Categories"
)

// XLSX renders a workbook with every transaction, the per-category expense
// totals and two charts over those totals.
func XLSX(txs []core.Transaction, totals []core.CategoryAmount, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	f := excelize.NewFile()
	defer f.Close()

	_ = f.SetDocProps(&excelize.DocProperties{
		Title:   opts.Title,
		Created: opts.Generated.UTC().Format("2006-01-02T15:04:05Z"),
	})

	if err := f.SetSheetName(f.GetSheetName(0), transactionsSheet); err != nil {
		return nil, err
	}
	if err := writeTransactions(f, txs); err != nil {
		return nil, fmt.Errorf("transactions sheet: %w", err)
	}

	if _, err := f.NewSheet(categoriesSheet); err != nil {
		return nil, err
	}
	if err := writeCategories(f, totals); err != nil {
		return nil, fmt.Errorf("categories sheet: %w", err)
	}
	if err := addCharts(f, len(totals)); err != nil {
		return nil, fmt.Errorf("charts: %w", err)
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTransactions(f *excelize.File, txs []core.Transaction) error {
	sheet := transactionsSheet
	header := []any{"Date", "Type", "Category", "Amount", "Description", "ID"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, tx := range txs {
		row := []any{tx.Date.String(), string(tx.Type), tx.Party, amount(tx.Amount), tx.Description, tx.ID}
		if err := f.SetSheetRow(sheet, cell('A', i+2), &row); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(mergeStyles(fontBold(), fill("#DDEBF7"), thinBorder("bottom")))
	if err != nil {
		return err
	}
	moneyStyle, err := f.NewStyle(mergeStyles(numberFormat(), textAlignment("right")))
	if err != nil {
		return err
	}
	_ = f.SetCellStyle(sheet, "A1", "F1", headerStyle)
	if len(txs) > 0 {
		_ = f.SetCellStyle(sheet, "D2", cell('D', len(txs)+1), moneyStyle)
	}
	_ = f.SetColWidth(sheet, "A", "B", 12)
	_ = f.SetColWidth(sheet, "C", "C", 16)
	_ = f.SetColWidth(sheet, "D", "D", 12)
	_ = f.SetColWidth(sheet, "E", "E", 40)
	_ = f.SetColWidth(sheet, "F", "F", 38)
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeCategories(f *excelize.File, totals []core.CategoryAmount) error {
	sheet := categoriesSheet
	var sum core.Money
	for _, t := range totals {
		sum = sum.Add(t.Amount)
	}

	header := []any{"Category", "Amount", "Share %"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, t := range totals {
		share, _ := core.Share(t.Amount, sum).Float64()
		row := []any{t.Name, amount(t.Amount), share}
		if err := f.SetSheetRow(sheet, cell('A', i+2), &row); err != nil {
			return err
		}
	}
	last := len(totals) + 2
	_ = f.SetCellValue(sheet, cell('A', last), "Total")
	_ = f.SetCellFormula(sheet, cell('B', last), fmt.Sprintf("SUM(B2:B%d)", max(last-1, 2)))

	headerStyle, err := f.NewStyle(mergeStyles(fontBold(), fill("#DDEBF7"), thinBorder("bottom")))
	if err != nil {
		return err
	}
	totalStyle, err := f.NewStyle(mergeStyles(fontBold(), numberFormat(), thinBorder("top")))
	if err != nil {
		return err
	}
	moneyStyle, err := f.NewStyle(numberFormat())
	if err != nil {
		return err
	}
	_ = f.SetCellStyle(sheet, "A1", "C1", headerStyle)
	_ = f.SetCellStyle(sheet, "B2", cell('B', last), moneyStyle)
	_ = f.SetCellStyle(sheet, cell('A', last), cell('C', last), totalStyle)
	return f.SetColWidth(sheet, "A", "A", 18)
}

// addCharts places a bar and a pie chart next to the category table. An
// empty table gets no charts.
func addCharts(f *excelize.File, n int) error {
	if n == 0 {
		return nil
	}
	categories := fmt.Sprintf("%s!$A$2:$A$%d", categoriesSheet, n+1)
	values := fmt.Sprintf("%s!$B$2:$B$%d", categoriesSheet, n+1)
	series := []excelize.ChartSeries{{
		Name:       categoriesSheet + "!$B$1",
		Categories: categories,
		Values:     values,
	}}

	if err := f.AddChart(categoriesSheet, "E2", &excelize.Chart{
		Type:   excelize.Col,
		Series: series,
		Title:  []excelize.RichTextRun{{Text: "Expenses by category"}},
		Legend: excelize.ChartLegend{Position: "none"},
	}); err != nil {
		return err
	}
	return f.AddChart(categoriesSheet, "E20", &excelize.Chart{
		Type:   excelize.Pie,
		Series: series,
		Title:  []excelize.RichTextRun{{Text: "Share of expenses"}},
		Legend: excelize.ChartLegend{Position: "right"},
		PlotArea: excelize.ChartPlotArea{
			ShowPercent: true,
		},
	})
}

func amount(m core.Money) float64 {
	f, _ := m.Decimal().Float64()
	return f
}

func cell(col rune, row int) string {
	return fmt.Sprintf("%c%d", col, row)
}

func mergeStyles(ext ...*excelize.Style) *excelize.Style {
	if len(ext) == 0 {
		return nil
	}
	for _, e := range ext[1:] {
		_ = mergo.Merge(ext[0], e, mergo.WithOverride)
	}
	return ext[0]
}

func fontBold() *excelize.Style {
	return &excelize.Style{Font: &excelize.Font{Bold: true}}
}

func fill(color string) *excelize.Style {
	return &excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	}
}

func numberFormat() *excelize.Style {
	format := "#,##0.00"
	return &excelize.Style{CustomNumFmt: &format}
}

func textAlignment(a string) *excelize.Style {
	return &excelize.Style{Alignment: &excelize.Alignment{Horizontal: a}}
}

func thinBorder(where ...string) *excelize.Style {
	s := &excelize.Style{}
	for _, w := range where {
		s.Border = append(s.Border, excelize.Border{Type: w, Color: "#000000", Style: 1})
	}
	return s
}
