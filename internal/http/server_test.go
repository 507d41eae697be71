package http

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tracker/internal/core"
	"tracker/internal/ledger"
	"tracker/internal/services"
)

func newTestServer(t *testing.T, opts Options) (*Server, *ledger.Ledger) {
	t.Helper()
	l := ledger.New()
	svc := services.NewLedgerService(l, nil, nil)
	if opts.TransactionsFile == "" {
		opts.TransactionsFile = filepath.Join(t.TempDir(), "transactions.csv")
	}
	srv := NewServer(":0", svc, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, l
}

func do(srv *Server, method, target string, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, r)
	return rr
}

func form(kv ...string) string {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v.Encode()
}

func seedExpenses(l *ledger.Ledger, descs ...string) []core.Expense {
	out := make([]core.Expense, len(descs))
	for i, d := range descs {
		out[i] = l.AddExpense(core.NewDate(2025, 1, i+1), core.Food, core.Money{Cents: int64(100 * (i + 1))}, d)
	}
	return out
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Add Expense") {
		t.Fatalf("index body missing form heading")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Fatalf("expected security headers")
	}

	if rr := do(srv, http.MethodGet, "/nope", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
	for _, path := range []string{"/healthz", "/readyz", "/static/app.css"} {
		if rr := do(srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestReadyReportsBackendFailure(t *testing.T) {
	srv, _ := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db down") }})
	if rr := do(srv, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", rr.Code)
	}
}

func TestAddExpense(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
		wantBody   string
		wantCount  int
	}{
		{
			name:       "valid",
			method:     http.MethodPost,
			body:       form("date", "2025-03-01", "category", "Food", "amount", "12.50", "description", "lunch"),
			wantStatus: http.StatusOK,
			wantBody:   "Expense added!",
			wantCount:  1,
		},
		{
			name:       "empty date defaults to today",
			method:     http.MethodPost,
			body:       form("category", "Transport", "amount", "3"),
			wantStatus: http.StatusOK,
			wantBody:   "Expense added!",
			wantCount:  1,
		},
		{
			name:       "bad amount",
			method:     http.MethodPost,
			body:       form("date", "2025-03-01", "category", "Food", "amount", "abc"),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "Invalid amount",
		},
		{
			name:       "unknown category",
			method:     http.MethodPost,
			body:       form("date", "2025-03-01", "category", "Rent", "amount", "5"),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "Unknown category",
		},
		{
			name:       "bad date",
			method:     http.MethodPost,
			body:       form("date", "2025-13-01", "category", "Food", "amount", "5"),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "Invalid date",
		},
		{
			name:       "wrong method",
			method:     http.MethodGet,
			wantStatus: http.StatusMethodNotAllowed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, l := newTestServer(t, Options{})
			rr := do(srv, tt.method, "/expenses", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
			}
			if tt.wantBody != "" && !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Fatalf("body %q missing %q", rr.Body.String(), tt.wantBody)
			}
			if got := l.Len(core.KindExpense); got != tt.wantCount {
				t.Fatalf("expenses=%d, want %d", got, tt.wantCount)
			}
			if tt.wantStatus == http.StatusOK {
				trig := rr.Header().Get("HX-Trigger")
				for _, ev := range []string{EventLedgerChanged, EventFormReset, EventNotification} {
					if !strings.Contains(trig, ev) {
						t.Fatalf("HX-Trigger %q missing %s", trig, ev)
					}
				}
			}
		})
	}
}

func TestAddIncomeJSON(t *testing.T) {
	srv, l := newTestServer(t, Options{})
	r := httptest.NewRequest(http.MethodPost, "/incomes", strings.NewReader(`{"date":"2025-01-31","source":"Salary","amount":"1500","description":"jan"}`))
	r.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, r)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Income added!") {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	got := l.Incomes()
	if len(got) != 1 || got[0].Source != "Salary" || got[0].Amount.Cents != 150000 {
		t.Fatalf("unexpected incomes %+v", got)
	}

	rr = do(srv, http.MethodPost, "/incomes", form("source", "  ", "amount", "1"))
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "Income source is required") {
		t.Fatalf("empty source: status=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestDeleteExpense(t *testing.T) {
	srv, l := newTestServer(t, Options{})
	seeded := seedExpenses(l, "a", "b", "c")

	rr := do(srv, http.MethodPost, "/expenses/delete", form("index", "1"))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Expense 1 deleted!") {
		t.Fatalf("delete by index: status=%d body=%q", rr.Code, rr.Body.String())
	}
	if got := l.Expenses(); len(got) != 2 || got[1].Description != "c" {
		t.Fatalf("unexpected expenses after delete %+v", got)
	}

	rr = do(srv, http.MethodPost, "/expenses/delete", form("index", "5"))
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "Invalid index!") {
		t.Fatalf("out of range: status=%d body=%q", rr.Code, rr.Body.String())
	}

	rr = do(srv, http.MethodPost, "/expenses/delete", form("id", seeded[0].ID))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Expense deleted!") {
		t.Fatalf("delete by id: status=%d body=%q", rr.Code, rr.Body.String())
	}
	if got := l.Expenses(); len(got) != 1 || got[0].Description != "c" {
		t.Fatalf("unexpected expenses after id delete %+v", got)
	}

	if rr := do(srv, http.MethodPost, "/expenses/delete", form("id", seeded[0].ID)); rr.Code != http.StatusNotFound {
		t.Fatalf("deleted id: status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodPost, "/expenses/delete", form("x", "1")); rr.Code != http.StatusBadRequest {
		t.Fatalf("no target: status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodPost, "/incomes/delete", form("index", "0")); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty incomes: status=%d", rr.Code)
	}
}

func multipartUpload(t *testing.T, field, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write([]byte(content))
	} else {
		_ = mw.WriteField("other", "value")
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestImportExpenses(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		content    string
		wantStatus int
		wantBody   string
		wantCount  int
	}{
		{
			name:       "replaces expenses",
			field:      "file",
			content:    "Date,Category,Amount,Description\n2025-02-01,Groceries,40.00,market\n2025-02-02,Food,5,\n",
			wantStatus: http.StatusOK,
			wantBody:   "Expenses loaded successfully!",
			wantCount:  2,
		},
		{
			name:       "missing file",
			wantStatus: http.StatusBadRequest,
			wantBody:   "Please upload a CSV file to load expenses.",
			wantCount:  1,
		},
		{
			name:       "malformed",
			field:      "file",
			content:    "Date,Amount\n2025-02-01,4\n",
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "not a valid expenses CSV",
			wantCount:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, l := newTestServer(t, Options{})
			seedExpenses(l, "existing")

			body, contentType := multipartUpload(t, tt.field, "expenses.csv", tt.content)
			r := httptest.NewRequest(http.MethodPost, "/expenses/import", body)
			r.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rr, r)

			if rr.Code != tt.wantStatus || !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
			}
			if got := l.Len(core.KindExpense); got != tt.wantCount {
				t.Fatalf("expenses=%d, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestImportTooLarge(t *testing.T) {
	srv, _ := newTestServer(t, Options{MaxUploadBytes: 64})
	body, contentType := multipartUpload(t, "file", "big.csv", "Date,Category,Amount\n"+strings.Repeat("2025-01-01,Food,1\n", 20))
	r := httptest.NewRequest(http.MethodPost, "/expenses/import", body)
	r.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, r)
	if rr.Code != http.StatusRequestEntityTooLarge && rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestSaveTransactions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	srv, l := newTestServer(t, Options{TransactionsFile: path})
	seedExpenses(l, "a")
	l.AddIncome(core.NewDate(2025, 1, 2), "Salary", core.Money{Cents: 5000}, "")

	rr := do(srv, http.MethodPost, "/transactions/save", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Transactions saved successfully!") {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if lines := strings.Count(strings.TrimSpace(string(data)), "\n"); lines != 2 {
		t.Fatalf("expected header plus 2 rows, got %q", data)
	}
}

func TestExports(t *testing.T) {
	srv, l := newTestServer(t, Options{})
	seedExpenses(l, "bread", "milk")

	rr := do(srv, http.MethodGet, "/transactions/export.csv", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("csv status=%d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Disposition"), "attachment;") {
		t.Fatalf("missing attachment disposition")
	}
	if !strings.Contains(rr.Body.String(), "Date,Category,Amount,Description,Type") {
		t.Fatalf("unexpected csv %q", rr.Body.String())
	}

	rr = do(srv, http.MethodGet, "/transactions/export.pdf", "")
	if rr.Code != http.StatusOK || !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("pdf status=%d", rr.Code)
	}

	first := do(srv, http.MethodGet, "/transactions/export.xlsx", "")
	second := do(srv, http.MethodGet, "/transactions/export.xlsx", "")
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("xlsx status=%d/%d", first.Code, second.Code)
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatalf("cached xlsx differs from first render")
	}
	if hits := srv.metrics.reportHits.Load(); hits != 1 {
		t.Fatalf("expected 1 cache hit, got %d", hits)
	}

	seedExpenses(l, "eggs")
	do(srv, http.MethodGet, "/transactions/export.xlsx", "")
	if misses := srv.metrics.reportMisses.Load(); misses != 3 {
		t.Fatalf("a new ledger version must re-render, misses=%d", misses)
	}
}

func TestExpensesPartial(t *testing.T) {
	srv, l := newTestServer(t, Options{})

	rr := do(srv, http.MethodGet, "/ui/expenses", "")
	if !strings.Contains(rr.Body.String(), "No expenses available!") {
		t.Fatalf("empty ledger body %q", rr.Body.String())
	}

	l.AddExpense(core.NewDate(2025, 1, 1), core.Food, core.Money{Cents: 1250}, "bread")
	l.AddExpense(core.NewDate(2025, 1, 2), core.Transport, core.Money{Cents: 300}, "bus")
	l.AddExpense(core.NewDate(2025, 1, 3), "Groceries", core.Money{Cents: 700}, "market")

	body := do(srv, http.MethodGet, "/ui/expenses?category=All", "").Body.String()
	for _, want := range []string{"bread", "bus", "market", "₹12.50", "Groceries"} {
		if !strings.Contains(body, want) {
			t.Fatalf("all view missing %q", want)
		}
	}

	body = do(srv, http.MethodGet, "/ui/expenses?category=Transport", "").Body.String()
	if !strings.Contains(body, "bus") || strings.Contains(body, "bread") {
		t.Fatalf("filtered view wrong: %q", body)
	}

	body = do(srv, http.MethodGet, "/ui/expenses?category=Medical", "").Body.String()
	if !strings.Contains(body, "No expenses in Medical") {
		t.Fatalf("no-match view wrong: %q", body)
	}
}

func TestIncomesPartial(t *testing.T) {
	srv, l := newTestServer(t, Options{})
	if body := do(srv, http.MethodGet, "/ui/incomes", "").Body.String(); !strings.Contains(body, "No income recorded.") {
		t.Fatalf("empty body %q", body)
	}
	l.AddIncome(core.NewDate(2025, 1, 1), "Salary", core.Money{Cents: 100000}, "jan")
	if body := do(srv, http.MethodGet, "/ui/incomes", "").Body.String(); !strings.Contains(body, "₹1,000.00") {
		t.Fatalf("income body %q", body)
	}
}

func TestSummaryPartial(t *testing.T) {
	srv, l := newTestServer(t, Options{})

	body := do(srv, http.MethodGet, "/ui/summary", "").Body.String()
	for _, want := range []string{"No expenses to summarize!", "No income to summarize!", "Remaining Budget"} {
		if !strings.Contains(body, want) {
			t.Fatalf("empty summary missing %q", want)
		}
	}

	seedExpenses(l, "a", "b")
	l.AddIncome(core.NewDate(2025, 1, 1), "Salary", core.Money{Cents: 1000}, "")
	body = do(srv, http.MethodGet, "/ui/summary", "").Body.String()
	for _, want := range []string{"Total Expenses", "₹3.00", "Average Expense", "₹1.50", "Maximum Expense", "₹2.00", "Minimum Expense", "Total Income", "₹10.00", "₹7.00"} {
		if !strings.Contains(body, want) {
			t.Fatalf("summary missing %q in %q", want, body)
		}
	}
}

func TestChartsPartial(t *testing.T) {
	srv, l := newTestServer(t, Options{})
	if body := do(srv, http.MethodGet, "/ui/charts", "").Body.String(); !strings.Contains(body, "No expenses to visualize!") {
		t.Fatalf("empty chart body %q", body)
	}

	l.AddExpense(core.NewDate(2025, 1, 1), core.Food, core.Money{Cents: 300}, "")
	l.AddExpense(core.NewDate(2025, 1, 1), core.Transport, core.Money{Cents: 100}, "")

	body := do(srv, http.MethodGet, "/ui/charts?kind=bar", "").Body.String()
	if !strings.Contains(body, "width: 100.0%") || !strings.Contains(body, "width: 33.3%") {
		t.Fatalf("bar chart body %q", body)
	}
	body = do(srv, http.MethodGet, "/ui/charts?kind=pie", "").Body.String()
	if strings.Count(body, "<path") != 2 || !strings.Contains(body, "75.0%") {
		t.Fatalf("pie chart body %q", body)
	}
}

func TestPieSlices(t *testing.T) {
	single := pieSlices([]core.CategoryAmount{{Name: "Food", Amount: core.Money{Cents: 500}}})
	if len(single) != 1 || !single[0].Full || single[0].Share != "100.0" {
		t.Fatalf("single slice %+v", single)
	}

	halves := pieSlices([]core.CategoryAmount{
		{Name: "Food", Amount: core.Money{Cents: 100}},
		{Name: "Other", Amount: core.Money{Cents: 100}},
	})
	if halves[0].Path != "M 100 100 L 100.00 10.00 A 90 90 0 0 1 100.00 190.00 Z" {
		t.Fatalf("first half path %q", halves[0].Path)
	}

	major := pieSlices([]core.CategoryAmount{
		{Name: "Food", Amount: core.Money{Cents: 300}},
		{Name: "Other", Amount: core.Money{Cents: 100}},
	})
	if !strings.Contains(major[0].Path, " 0 1 1 ") {
		t.Fatalf("slice over half must use the large arc flag: %q", major[0].Path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, l := newTestServer(t, Options{})
	seedExpenses(l, "a")
	do(srv, http.MethodPost, "/expenses", form("category", "Food", "amount", "1"))

	body := do(srv, http.MethodGet, "/metrics", "").Body.String()
	for _, want := range []string{"tracker_expenses 2", "tracker_transactions_added_total 1", "# TYPE tracker_http_requests_total counter"} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q in %q", want, body)
		}
	}
}

func TestRateLimitedWrites(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	var last *httptest.ResponseRecorder
	for i := 0; i < 61; i++ {
		last = do(srv, http.MethodPost, "/transactions/save", "")
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the limit, got %d", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
	if rr := do(srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, got %d", rr.Code)
	}
}
