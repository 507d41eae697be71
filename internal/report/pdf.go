package report

import (
	"bytes"
	"unicode/utf8"

	"github.com/phpdave11/gofpdf"

	"tracker/internal/core"
)

var (
	pdfHeader = []string{"Date", "Type", "Category", "Amount", "Description"}
	pdfWidths = []float64{24, 20, 34, 28, 76}
)

const pageBottom = 275

// PDF renders a statement: income, expense and balance totals followed by
// the transaction table. The table header repeats on every page.
func PDF(txs []core.Transaction, opts Options) ([]byte, error) {
	pdf := buildPDF(txs, opts)
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildPDF(txs []core.Transaction, opts Options) *gofpdf.Fpdf {
	opts = opts.withDefaults()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(opts.Title, true)
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(false, 14)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	money := func(m core.Money) string { return tr(opts.Formatter.Format(m)) }

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(opts.Title))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, "Generated "+opts.Generated.Format("2006-01-02 15:04"))
	pdf.Ln(10)

	sum := Summarize(txs)
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 11)
	sumW := 60.0
	pdf.CellFormat(sumW, 10, "Income", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW, 10, "Expenses", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW, 10, "Balance", "1", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(sumW, 10, money(sum.Income), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW, 10, money(sum.Expenses), "1", 0, "C", false, 0, "")
	if sum.Balance.Cents < 0 {
		pdf.SetTextColor(180, 30, 30)
	}
	pdf.CellFormat(sumW, 10, money(sum.Balance), "1", 1, "C", false, 0, "")
	pdf.SetTextColor(20, 20, 20)
	pdf.Ln(6)

	tableHeader(pdf)
	if len(txs) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, "No transactions", "1", 1, "C", false, 0, "")
	}
	for _, tx := range txs {
		if pdf.GetY()+7 > pageBottom {
			pdf.AddPage()
			tableHeader(pdf)
		}
		cells := []string{
			tx.Date.String(),
			string(tx.Type),
			tr(truncate(tx.Party, 18)),
			money(tx.Amount),
			tr(truncate(tx.Description, 45)),
		}
		for i, c := range cells {
			align := "L"
			if i == 3 {
				align = "R"
			}
			ln := 0
			if i == len(cells)-1 {
				ln = 1
			}
			pdf.CellFormat(pdfWidths[i], 7, c, "1", ln, align, false, 0, "")
		}
	}
	return pdf
}

func tableHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	for i, h := range pdfHeader {
		ln := 0
		if i == len(pdfHeader)-1 {
			ln = 1
		}
		pdf.CellFormat(pdfWidths[i], 8, h, "1", ln, "C", true, 0, "")
	}
	pdf.SetFont("Helvetica", "", 9)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
