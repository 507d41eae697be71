package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tracker/internal/core"
	"tracker/internal/csvfile"
	"tracker/internal/ledger"
	applog "tracker/internal/log"
	"tracker/internal/report"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

// snapshotTransactions returns the combined export of one consistent
// snapshot, expenses first.
func snapshotTransactions(snap ledger.Snapshot) []core.Transaction {
	txs := make([]core.Transaction, 0, len(snap.Expenses)+len(snap.Incomes))
	for _, e := range snap.Expenses {
		txs = append(txs, e.Transaction())
	}
	for _, in := range snap.Incomes {
		txs = append(txs, in.Transaction())
	}
	return txs
}

func snapshotTotals(snap ledger.Snapshot) []core.CategoryAmount {
	totals := make(map[core.Category]core.Money)
	for _, e := range snap.Expenses {
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}
	return ledger.SortTotals(totals)
}

func attachment(w http.ResponseWriter, contentType, ext string, size int) {
	name := fmt.Sprintf("transactions-%s.%s", time.Now().Format("2006-01-02"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	if size > 0 {
		w.Header().Set("Content-Length", strconv.Itoa(size))
	}
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	var buf bytes.Buffer
	if err := csvfile.WriteCombined(&buf, s.svc.Ledger().ExportCombined()); err != nil {
		reqLog(r).ErrorContext(r.Context(), "CSV export failed", applog.FieldOperation, applog.OpExport, applog.FieldError, err)
		InternalServerError("Error exporting transactions").Write(w)
		return
	}
	attachment(w, contentTypeCSV, "csv", buf.Len())
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, "xlsx", contentTypeXLSX, func(snap ledger.Snapshot) ([]byte, error) {
		return report.XLSX(snapshotTransactions(snap), snapshotTotals(snap), s.reportOptions())
	})
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, "pdf", contentTypePDF, func(snap ledger.Snapshot) ([]byte, error) {
		return report.PDF(snapshotTransactions(snap), s.reportOptions())
	})
}

func (s *Server) reportOptions() report.Options {
	return report.Options{Formatter: s.opts.Formatter}
}

// serveReport renders a report once per ledger version and format.
func (s *Server) serveReport(w http.ResponseWriter, r *http.Request, format, contentType string, render func(ledger.Snapshot) ([]byte, error)) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	snap := s.svc.Ledger().Snapshot()
	start := time.Now()
	data, hit, err := s.reports.GetOrRender(format, snap.Version, func() ([]byte, error) {
		return render(snap)
	})
	if err != nil {
		reqLog(r).WithComponent(applog.ComponentReport).ErrorContext(r.Context(), "Report rendering failed",
			applog.FieldOperation, applog.OpRender,
			applog.FieldType, format,
			applog.FieldError, err)
		InternalServerError("Error generating report").Write(w)
		return
	}
	if hit {
		s.metrics.reportHits.Add(1)
	} else {
		s.metrics.reportMisses.Add(1)
		reqLog(r).WithComponent(applog.ComponentReport).InfoContext(r.Context(), "Report rendered",
			applog.FieldOperation, applog.OpRender,
			applog.FieldType, format,
			applog.FieldVersion, snap.Version,
			applog.FieldDuration, time.Since(start).Milliseconds())
	}
	attachment(w, contentType, format, len(data))
	_, _ = w.Write(data)
}
