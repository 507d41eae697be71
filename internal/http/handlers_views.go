package http

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"tracker/internal/core"
	"tracker/internal/ledger"
	applog "tracker/internal/log"
)

// AllCategories is the filter value that disables category filtering.
const AllCategories = "All"

type indexPage struct {
	Title      string
	Categories []core.Category
	Today      string
	Symbol     string
}

type expenseRow struct {
	Index int
	core.Expense
}

type expensesView struct {
	Empty    bool
	Filter   string
	Filters  []string
	Rows     []expenseRow
	Total    core.Money
	Filtered bool
}

type incomeRow struct {
	Index int
	core.Income
}

type incomesView struct {
	Rows  []incomeRow
	Total core.Money
}

type summaryView struct {
	Expenses *core.ExpenseStats
	Incomes  *core.Stats
	Budget   core.Money
}

type chartBar struct {
	Name    string
	Amount  core.Money
	Percent string
	Color   string
}

type pieSlice struct {
	Name   string
	Amount core.Money
	Share  string
	Color  string
	Path   string
	Full   bool
}

type chartsView struct {
	Kind   string
	Empty  bool
	Bars   []chartBar
	Slices []pieSlice
}

var chartPalette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2",
	"#59a14f", "#edc948", "#b07aa1", "#ff9da7",
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Page not found").Write(w)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	s.render(w, r, "index_page", indexPage{
		Title:      "Transaction Ledger",
		Categories: core.Categories(),
		Today:      core.Today().String(),
		Symbol:     s.opts.Formatter.Symbol,
	})
}

// handleExpensesPartial lists expenses, optionally narrowed to one category.
func (s *Server) handleExpensesPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	filter := r.URL.Query().Get("category")
	if filter == "" {
		filter = AllCategories
	}

	l := s.svc.Ledger()
	all := l.Expenses()
	view := expensesView{Filter: filter, Filters: filterOptions(all), Empty: len(all) == 0}
	if view.Empty {
		s.render(w, r, "expenses_list", view)
		return
	}

	positions := make(map[string]int, len(all))
	for i, e := range all {
		positions[e.ID] = i
	}
	if filter == AllCategories {
		for i, e := range all {
			view.Rows = append(view.Rows, expenseRow{Index: i, Expense: e})
			view.Total = view.Total.Add(e.Amount)
		}
	} else if seq, ok := l.FilterByCategory(core.Category(filter)); ok {
		view.Filtered = true
		for e := range seq {
			view.Rows = append(view.Rows, expenseRow{Index: positions[e.ID], Expense: e})
			view.Total = view.Total.Add(e.Amount)
		}
	}
	s.render(w, r, "expenses_list", view)
}

// filterOptions is "All", the recognized categories, then any imported
// categories not among them.
func filterOptions(expenses []core.Expense) []string {
	out := []string{AllCategories}
	seen := make(map[string]bool)
	for _, c := range core.Categories() {
		out = append(out, string(c))
		seen[string(c)] = true
	}
	for _, e := range expenses {
		if !seen[string(e.Category)] {
			seen[string(e.Category)] = true
			out = append(out, string(e.Category))
		}
	}
	return out
}

func (s *Server) handleIncomesPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	var view incomesView
	for i, in := range s.svc.Ledger().Incomes() {
		view.Rows = append(view.Rows, incomeRow{Index: i, Income: in})
		view.Total = view.Total.Add(in.Amount)
	}
	s.render(w, r, "incomes_list", view)
}

func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	l := s.svc.Ledger()
	view := summaryView{Budget: l.RemainingBudget()}
	if st, err := l.ExpenseStatistics(); err == nil {
		view.Expenses = &st
	}
	if st, err := l.IncomeStatistics(); err == nil {
		view.Incomes = &st
	}
	s.render(w, r, "summary", view)
}

// handleChartsPartial renders category totals as a bar or pie chart.
func (s *Server) handleChartsPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	kind := r.URL.Query().Get("kind")
	if kind != "pie" {
		kind = "bar"
	}
	view := chartsView{Kind: kind}
	totals, err := s.svc.Ledger().SortedCategoryTotals()
	if errors.Is(err, ledger.ErrEmptyLedger) {
		view.Empty = true
		s.render(w, r, "charts", view)
		return
	}
	if err != nil {
		InternalServerError("Error building chart").Write(w)
		return
	}
	if kind == "pie" {
		view.Slices = pieSlices(totals)
	} else {
		view.Bars = barChart(totals)
	}
	s.render(w, r, "charts", view)
}

// barChart scales each bar against the largest total.
func barChart(totals []core.CategoryAmount) []chartBar {
	var largest int64
	for _, t := range totals {
		largest = max(largest, t.Amount.Cents)
	}
	bars := make([]chartBar, len(totals))
	for i, t := range totals {
		pct := 0.0
		if largest > 0 {
			pct = float64(t.Amount.Cents) * 100 / float64(largest)
		}
		bars[i] = chartBar{
			Name:    t.Name,
			Amount:  t.Amount,
			Percent: strconv.FormatFloat(pct, 'f', 1, 64),
			Color:   chartPalette[i%len(chartPalette)],
		}
	}
	return bars
}

const (
	pieCenter = 100.0
	pieRadius = 90.0
)

// pieSlices lays slices clockwise from twelve o'clock as SVG arc paths.
func pieSlices(totals []core.CategoryAmount) []pieSlice {
	var sum core.Money
	for _, t := range totals {
		sum = sum.Add(t.Amount)
	}
	out := make([]pieSlice, 0, len(totals))
	angle := 0.0
	for i, t := range totals {
		share := core.Share(t.Amount, sum)
		slice := pieSlice{
			Name:   t.Name,
			Amount: t.Amount,
			Share:  share.StringFixed(1),
			Color:  chartPalette[i%len(chartPalette)],
		}
		if sum.Cents <= 0 {
			out = append(out, slice)
			continue
		}
		if t.Amount.Cents == sum.Cents {
			slice.Full = true
			out = append(out, slice)
			continue
		}
		sweep := 2 * math.Pi * float64(t.Amount.Cents) / float64(sum.Cents)
		slice.Path = arcPath(angle, angle+sweep)
		angle += sweep
		out = append(out, slice)
	}
	return out
}

func arcPath(from, to float64) string {
	x1, y1 := polar(from)
	x2, y2 := polar(to)
	large := 0
	if to-from > math.Pi {
		large = 1
	}
	return fmt.Sprintf("M %.0f %.0f L %.2f %.2f A %.0f %.0f 0 %d 1 %.2f %.2f Z",
		pieCenter, pieCenter, x1, y1, pieRadius, pieRadius, large, x2, y2)
}

func polar(angle float64) (x, y float64) {
	return pieCenter + pieRadius*math.Sin(angle), pieCenter - pieRadius*math.Cos(angle)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusServiceUnavailable)
		return
	}
	if s.opts.Ready != nil {
		if err := s.opts.Ready(r.Context()); err != nil {
			reqLog(r).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			http.Error(w, "backend not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	req := s.tracer.GetMetrics()
	l := s.svc.Ledger()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	metric := func(name, help, typ string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n", name, help, name, typ, name, value)
	}
	metric("tracker_uptime_seconds", "Seconds since the server started.", "gauge", int64(time.Since(s.metrics.started).Seconds()))
	metric("tracker_http_requests_total", "HTTP requests served.", "counter", req.TotalRequests)
	metric("tracker_http_client_errors_total", "Responses with a 4xx status.", "counter", req.ClientErrors)
	metric("tracker_http_server_errors_total", "Responses with a 5xx status.", "counter", req.ServerErrors)
	metric("tracker_http_request_duration_avg_ms", "Mean request duration.", "gauge", req.AverageDuration.Milliseconds())
	metric("tracker_rate_limited_total", "Requests rejected by the rate limiter.", "counter", s.limiter.Hits())
	metric("tracker_rate_limit_clients", "Clients tracked by the rate limiter.", "gauge", s.limiter.ActiveClients())
	metric("tracker_suspicious_requests_total", "Requests flagged by the detector.", "counter", s.detector.SuspiciousRequests())
	metric("tracker_transactions_added_total", "Expenses and incomes added.", "counter", s.metrics.added.Load())
	metric("tracker_transactions_deleted_total", "Expenses and incomes deleted.", "counter", s.metrics.deleted.Load())
	metric("tracker_imports_total", "CSV imports accepted.", "counter", s.metrics.imports.Load())
	metric("tracker_saves_total", "Combined CSV saves.", "counter", s.metrics.saves.Load())
	metric("tracker_report_cache_hits_total", "Reports served from cache.", "counter", s.metrics.reportHits.Load())
	metric("tracker_report_cache_misses_total", "Reports rendered on demand.", "counter", s.metrics.reportMisses.Load())
	metric("tracker_report_cache_entries", "Reports held in cache.", "gauge", s.reports.Size())
	metric("tracker_expenses", "Expenses in the ledger.", "gauge", l.Len(core.KindExpense))
	metric("tracker_incomes", "Incomes in the ledger.", "gauge", l.Len(core.KindIncome))
	metric("tracker_ledger_version", "Ledger mutation counter.", "counter", l.Version())
}
