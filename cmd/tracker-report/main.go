package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/alecthomas/kingpin"

	"tracker/internal/core"
	"tracker/internal/csvfile"
	"tracker/internal/ledger"
	applog "tracker/internal/log"
	"tracker/internal/report"
)

func main() {
	cmdSummary := kingpin.Command("summary", "Show expense and income statistics")
	cmdTotals := kingpin.Command("totals", "Show expense totals per category")
	cmdXLSX := kingpin.Command("xlsx", "Write an Excel workbook")
	xlsxOut := cmdXLSX.Flag("out", "Output file").Short('o').Default("transactions.xlsx").String()
	cmdPDF := kingpin.Command("pdf", "Write a PDF statement")
	pdfOut := cmdPDF.Flag("out", "Output file").Short('o').Default("transactions.pdf").String()
	infile := kingpin.Flag("input", "Combined transactions CSV, default stdin").Short('i').OpenFile(os.O_RDONLY, 0o666)
	symbol := kingpin.Flag("currency", "Currency symbol").Default("₹").String()
	locale := kingpin.Flag("locale", "Locale for digit grouping").Default("en").String()
	cmd := kingpin.Parse()

	input := io.Reader(os.Stdin)
	if *infile != nil {
		input = *infile
	}
	err := run(cmd, input, core.NewFormatter(*symbol, *locale), map[string]string{
		cmdXLSX.FullCommand(): *xlsxOut,
		cmdPDF.FullCommand():  *pdfOut,
	})
	if *infile != nil {
		(*infile).Close()
	}
	if err != nil {
		slog.Error("Report failed", "command", cmd, applog.FieldError, err)
		os.Exit(1)
	}
}

// run executes one command. out maps the file-writing commands to their
// output paths.
func run(cmd string, input io.Reader, f core.Formatter, out map[string]string) error {
	l, err := load(input)
	if err != nil {
		return err
	}

	switch cmd {
	case "summary":
		summaryReport(os.Stdout, l, f)
	case "totals":
		totalsReport(os.Stdout, l, f)
	case "xlsx":
		totals, _ := l.SortedCategoryTotals()
		data, err := report.XLSX(l.ExportCombined(), totals, report.Options{Formatter: f})
		if err != nil {
			return err
		}
		return writeFile(out[cmd], data)
	case "pdf":
		data, err := report.PDF(l.ExportCombined(), report.Options{Formatter: f})
		if err != nil {
			return err
		}
		return writeFile(out[cmd], data)
	}
	return nil
}

// load reads a combined export into a fresh ledger.
func load(r io.Reader) (*ledger.Ledger, error) {
	expenses, incomes, err := csvfile.ReadCombined(r)
	if err != nil {
		return nil, err
	}
	l := ledger.New()
	l.Restore(ledger.Snapshot{Expenses: expenses, Incomes: incomes})
	return l, nil
}

func summaryReport(w io.Writer, l *ledger.Ledger, f core.Formatter) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	defer tw.Flush()

	if st, err := l.ExpenseStatistics(); err == nil {
		fmt.Fprintf(tw, "Total Expenses\t%s\t\n", f.Format(st.Total))
		fmt.Fprintf(tw, "Average Expense\t%s\t\n", f.Format(st.MeanMoney()))
		fmt.Fprintf(tw, "Maximum Expense\t%s\t\n", f.Format(st.Max))
		fmt.Fprintf(tw, "Minimum Expense\t%s\t\n", f.Format(st.Min))
	} else {
		fmt.Fprintln(tw, "No expenses to summarize!")
	}
	if st, err := l.IncomeStatistics(); err == nil {
		fmt.Fprintf(tw, "Total Income\t%s\t\n", f.Format(st.Total))
		fmt.Fprintf(tw, "Average Income\t%s\t\n", f.Format(st.MeanMoney()))
	} else {
		fmt.Fprintln(tw, "No income to summarize!")
	}
	fmt.Fprintf(tw, "Remaining Budget\t%s\t\n", f.Format(l.RemainingBudget()))
}

func totalsReport(w io.Writer, l *ledger.Ledger, f core.Formatter) {
	totals, err := l.SortedCategoryTotals()
	if err != nil {
		fmt.Fprintln(w, "No expenses to visualize!")
		return
	}
	var sum core.Money
	for _, t := range totals {
		sum = sum.Add(t.Amount)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	defer tw.Flush()
	for _, t := range totals {
		fmt.Fprintf(tw, "%s\t%s\t%s%%\t\n", t.Name, f.Format(t.Amount), core.Share(t.Amount, sum).StringFixed(1))
	}
	fmt.Fprintf(tw, "Total\t%s\t\t\n", f.Format(sum))
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d bytes)\n", path, len(data))
	return nil
}
