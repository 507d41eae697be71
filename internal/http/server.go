package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"tracker/internal/cache"
	"tracker/internal/core"
	applog "tracker/internal/log"
	"tracker/internal/middleware/ratelimit"
	"tracker/internal/middleware/security"
	"tracker/internal/middleware/trace"
	"tracker/internal/services"
	appweb "tracker/web"
)

// Options configures a Server. Zero values fall back to sensible defaults.
type Options struct {
	TransactionsFile string
	MaxUploadBytes   int64
	Formatter        core.Formatter
	ReportCacheTTL   time.Duration
	Logger           *applog.Logger

	// Templates must contain templates/*.html. Defaults to the embedded set.
	Templates fs.FS
	Static    fs.FS

	// Ready reports backend readiness for /readyz. Nil means always ready.
	Ready func(context.Context) error

	RateLimit ratelimit.Config
}

func (o Options) withDefaults() Options {
	if o.TransactionsFile == "" {
		o.TransactionsFile = "transactions.csv"
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 10 << 20
	}
	if o.Formatter.Symbol == "" {
		o.Formatter = core.NewFormatter("₹", "en")
	}
	if o.ReportCacheTTL <= 0 {
		o.ReportCacheTTL = 10 * time.Minute
	}
	if o.Logger == nil {
		o.Logger = applog.New(applog.DefaultConfig())
	}
	if o.Templates == nil {
		o.Templates = appweb.TemplatesFS
	}
	if o.Static == nil {
		o.Static = appweb.StaticFS
	}
	if o.RateLimit.RequestsPerWindow == 0 {
		o.RateLimit = ratelimit.DefaultConfig()
	}
	return o
}

type appMetrics struct {
	started      time.Time
	added        atomic.Int64
	deleted      atomic.Int64
	imports      atomic.Int64
	saves        atomic.Int64
	reportHits   atomic.Int64
	reportMisses atomic.Int64
}

// Server serves the ledger UI, its HTMX partials and the export endpoints.
type Server struct {
	http.Server
	logger    *applog.Logger
	templates *template.Template
	svc       *services.LedgerService
	opts      Options

	reports  *cache.ReportCache
	cacheMgr *cache.Manager
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector

	metrics      *appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates.
func NewServer(addr string, svc *services.LedgerService, opts Options) *Server {
	opts = opts.withDefaults()
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		logger:   logger,
		svc:      svc,
		opts:     opts,
		reports:  cache.NewReportCache(32, opts.ReportCacheTTL),
		cacheMgr: cache.NewManager(opts.Logger),
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector: security.NewDetector(),
		metrics:  &appMetrics{started: time.Now()},
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	s.cacheMgr.Register(s.reports)
	s.cacheMgr.StartCleanup(opts.ReportCacheTTL)

	t, err := template.New("").Funcs(s.templateFuncs()).ParseFS(opts.Templates, "templates/*.html")
	if err != nil {
		logger.WithComponent(applog.ComponentTemplate).Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	if sub, err := fs.Sub(opts.Static, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount static FS", applog.FieldError, err)
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/expenses", s.handleAddExpense)
	mux.HandleFunc("/incomes", s.handleAddIncome)
	mux.HandleFunc("/expenses/delete", s.handleDelete(core.KindExpense))
	mux.HandleFunc("/incomes/delete", s.handleDelete(core.KindIncome))
	mux.HandleFunc("/expenses/import", s.handleImport)
	mux.HandleFunc("/transactions/save", s.handleSave)
	mux.HandleFunc("/transactions/export.csv", s.handleExportCSV)
	mux.HandleFunc("/transactions/export.xlsx", s.handleExportXLSX)
	mux.HandleFunc("/transactions/export.pdf", s.handleExportPDF)

	mux.HandleFunc("/ui/expenses", s.handleExpensesPartial)
	mux.HandleFunc("/ui/incomes", s.handleIncomesPartial)
	mux.HandleFunc("/ui/summary", s.handleSummaryPartial)
	mux.HandleFunc("/ui/charts", s.handleChartsPartial)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests, try again later").Write(w)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(s.detector.Middleware(limited(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": s.opts.Formatter.Format,
	}
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
		s.logger.Info("HTTP server stopped", applog.FieldOperation, applog.OpShutdown)
	})
	return shutdownErr
}

// render executes a named template, logging failures with the request ID.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		reqLog(r).WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(), "Templates not loaded")
		InternalServerError("Templates not loaded").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		reqLog(r).WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			"template", name,
			applog.FieldError, err)
	}
}

// reqLog returns the request-scoped logger installed by the trace middleware.
func reqLog(r *http.Request) *applog.Logger {
	return applog.FromContext(r.Context())
}
