package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"expensetracker/internal/adapters"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	appweb "expensetracker/web"
)

// ExpenseRecorder adds an expense from raw user input.
type ExpenseRecorder interface {
	Record(ctx context.Context, amount, category, description string) (core.Expense, error)
}

// ExpenseReader serves the read side of the ledger.
type ExpenseReader interface {
	ListExpenses(ctx context.Context, f adapters.Filter) ([]core.Expense, error)
	Report(ctx context.Context) (core.Report, error)
	ReadMonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error)
}

// HealthChecker reports whether the record store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Options tunes a Server. Zero values pick the defaults.
type Options struct {
	Logger             *log.Logger
	RateLimitPerMinute int
	CacheTTL           time.Duration
	// Now is the clock used for the default month. Defaults to time.Now.
	Now func() time.Time
	// Templates overrides the embedded templates.
	Templates fs.FS
}

type Server struct {
	http.Server
	templates *template.Template
	recorder  ExpenseRecorder
	reader    ExpenseReader
	health    HealthChecker
	logger    *log.Logger
	now       func() time.Time

	monthCache   *cache.LRUCache[core.MonthOverview]
	cacheManager *cache.Manager
	rateLimiter  *ratelimit.Limiter
	tracer       *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates.
func NewServer(addr string, recorder ExpenseRecorder, reader ExpenseReader, health HealthChecker, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Templates == nil {
		opts.Templates = appweb.TemplatesFS
	}

	s := &Server{
		recorder:     recorder,
		reader:       reader,
		health:       health,
		logger:       logger.WithComponent(log.ComponentHTTP),
		now:          opts.Now,
		monthCache:   cache.NewLRUCache[core.MonthOverview](100, opts.CacheTTL),
		cacheManager: cache.NewManager(logger),
	}
	s.cacheManager.Register(s.monthCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := parseTemplates(opts.Templates)
	if err != nil {
		logger.WithComponent(log.ComponentTemplate).Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/add", s.handleAdd)
	mux.HandleFunc("/report", s.handleReport)
	mux.HandleFunc("/month", s.handleMonth)
	mux.HandleFunc("/download_report_csv", s.handleDownloadCSV)
	mux.HandleFunc("/download_report_xlsx", s.handleDownloadXLSX)
	mux.HandleFunc("/api/category_summary", s.handleCategorySummary)
	mux.HandleFunc("/api/expenses", s.handleAPIExpenses)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	ips := security.NewClientIPResolver()
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: opts.RateLimitPerMinute,
		Methods:           []string{http.MethodPost},
		Logger:            logger,
	})
	s.tracer = trace.NewMiddleware(logger, ips.ClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var h http.Handler = mux
	h = s.rateLimiter.Middleware(ips.ClientIP)(h)
	h = headers.Middleware(h)
	h = log.RequestIDMiddleware(trace.GetRequestID)(h)
	h = log.Middleware(logger.WithComponent(log.ComponentHTTP))(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

func parseTemplates(fsys fs.FS) (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"amount":    core.FormatAmount,
		"monthName": func(m int) string { return time.Month(m).String() },
	}).ParseFS(fsys, "templates/*.html")
}

// Start serves until Shutdown. A clean shutdown returns nil.
func (s *Server) Start(context.Context) error {
	s.logger.Info("Starting HTTP server", "addr", s.Addr, log.FieldOperation, log.OpStartup)
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// render executes name into a buffer first so a template error still yields
// a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		InternalServerError("templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender, "template", name, log.FieldError, err)
		InternalServerError("failed to render page").Write(w)
		return
	}
	NewResponse().Status(status).BodyHTML(buf.String()).Write(w)
}

func monthKey(year, month int) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

// getOverview reads a month through the cache.
func (s *Server) getOverview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	key := monthKey(year, month)
	if ov, ok := s.monthCache.Get(key); ok {
		log.FromContext(ctx).DebugContext(ctx, "Month overview cache hit", log.FieldYear, year, log.FieldMonth, month)
		return ov, nil
	}
	ov, err := s.reader.ReadMonthOverview(ctx, year, month)
	if err != nil {
		return core.MonthOverview{}, err
	}
	s.monthCache.Set(key, ov)
	return ov, nil
}

// invalidateMonths drops cached month views after a write.
func (s *Server) invalidateMonths() {
	s.monthCache.Clear()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().Header("Content-Type", "text/plain; charset=utf-8").Body([]byte("ok")).Write(w)
}

// handleReady checks templates and the record store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"templates": "ok", "store": "ok"}
	status := http.StatusOK
	if s.templates == nil {
		checks["templates"] = "not loaded"
		status = http.StatusServiceUnavailable
	}
	if s.health != nil {
		if err := s.health.Ping(ctx); err != nil {
			checks["store"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", "checks", checks)
	}
	NewResponse().Status(status).JSON(map[string]any{"status": state, "checks": checks}).Write(w)
}
