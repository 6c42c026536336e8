// Package web serves the dashboard and the JSON API over the analyzed mail.
package web

import (
	"context"
	"crypto/rand"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/inboxlens/inboxlens/internal/analysis"
	"github.com/inboxlens/inboxlens/internal/config"
	"github.com/inboxlens/inboxlens/internal/history"
	"github.com/inboxlens/inboxlens/internal/inbox"
	"github.com/inboxlens/inboxlens/internal/ingest"
	"github.com/inboxlens/inboxlens/internal/metrics"
)

//go:embed templates/*
var templatesFS embed.FS

const (
	defaultRateLimit  = 30
	defaultRateWindow = time.Minute
	maxBodyBytes      = 1 << 20
	syncTimeout       = 10 * time.Minute
	jobRetention      = time.Hour
)

type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

func (rl *RateLimiter) filterRecent(times []time.Time, windowStart time.Time) []time.Time {
	n := 0
	for _, t := range times {
		if t.After(windowStart) {
			times[n] = t
			n++
		}
	}
	return times[:n]
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := rl.filterRecent(rl.requests[key], now.Add(-rl.window))

	if len(recent) >= rl.limit {
		rl.requests[key] = recent
		return false
	}
	rl.requests[key] = append(recent, now)
	return true
}

// Middleware rejects clients over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(r.RemoteAddr) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MailSource opens the mailbox for one sync. The returned func releases it.
type MailSource func(ctx context.Context) (ingest.Fetcher, func(), error)

// IMAPSource connects to the configured IMAP mailbox.
func IMAPSource(cfg config.InboxConfig, log zerolog.Logger) MailSource {
	return func(ctx context.Context) (ingest.Fetcher, func(), error) {
		monitor := inbox.NewMonitor(cfg, log)
		if err := monitor.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return monitor, func() { _ = monitor.Disconnect() }, nil
	}
}

type Server struct {
	config         *config.Config
	store          *history.Store
	analyzer       *analysis.Analyzer
	syncer         *ingest.Syncer
	source         MailSource
	templates      map[string]*template.Template
	httpServer     *http.Server
	port           int
	csrfKey        []byte
	rateLimiter    *RateLimiter
	jobManager     *JobManager
	jobPersistence *JobPersistence
	now            func() time.Time
	log            zerolog.Logger
}

type Option func(*Server)

// WithMailSource replaces the IMAP connection used by syncs.
func WithMailSource(src MailSource) Option {
	return func(s *Server) { s.source = src }
}

// WithDataDir sets where the last sync outcome is kept.
func WithDataDir(dir string) Option {
	return func(s *Server) { s.jobPersistence = NewJobPersistence(dir) }
}

// WithClock sets the time source for "due today" views.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func NewServer(cfg *config.Config, store *history.Store, analyzer *analysis.Analyzer, log zerolog.Logger, opts ...Option) (*Server, error) {
	csrfKey := make([]byte, 32)
	if _, err := rand.Read(csrfKey); err != nil {
		return nil, fmt.Errorf("failed to generate CSRF key: %w", err)
	}

	s := &Server{
		config:         cfg,
		store:          store,
		analyzer:       analyzer,
		port:           cfg.Server.Port,
		csrfKey:        csrfKey,
		rateLimiter:    NewRateLimiter(defaultRateLimit, defaultRateWindow),
		jobManager:     NewJobManager(),
		jobPersistence: NewJobPersistence(config.DefaultDir()),
		now:            time.Now,
		log:            log,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.source == nil {
		s.source = IMAPSource(cfg.Inbox, log)
	}
	s.syncer = ingest.NewSyncer(store, analyzer,
		ingest.WithWorkers(cfg.Analysis.Workers),
		ingest.WithScreening(cfg.Inbox.SkipAutomatedMail()),
		ingest.WithLogger(log),
	)

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s.templates = tmpl
	return s, nil
}

// parseTemplates gives each page its own set so "content" blocks don't clash.
func parseTemplates() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"formatTime": func(t time.Time) string {
			return t.Format("Jan 2, 2006 3:04 PM")
		},
		"formatDate": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},
		"score": func(f float64) string {
			return strconv.FormatFloat(f, 'f', 1, 64)
		},
	}

	templates := make(map[string]*template.Template)
	for _, page := range []string{"dashboard"} {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", page, err)
		}
		templates[page] = tmpl
	}
	return templates, nil
}

// Handler returns the full router.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Start serves on 127.0.0.1 until Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info().Str("addr", "http://"+s.httpServer.Addr).Msg("starting web UI")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops the listener and cancels a running sync.
func (s *Server) Shutdown(ctx context.Context) error {
	if job := s.jobManager.GetActive(); job != nil {
		job.Cancel()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(securityHeaders)

	if s.config.Server.MetricsEnabled() {
		r.Handle("/metrics", promhttp.Handler())
	}

	// HTML pages and their forms carry a CSRF token.
	r.Group(func(r chi.Router) {
		r.Use(plaintextLocalhost)
		r.Use(csrf.Protect(
			s.csrfKey,
			csrf.Secure(false), // Allow HTTP for localhost
			csrf.Path("/"),
			csrf.HttpOnly(true),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.TrustedOrigins([]string{"localhost", "127.0.0.1", fmt.Sprintf("localhost:%d", s.port), fmt.Sprintf("127.0.0.1:%d", s.port)}),
		))

		r.Get("/", s.handleDashboard)
		r.Post("/actions/{id}/toggle", s.handleActionToggle)
		r.Post("/sync", s.handleSyncForm)
	})

	// The JSON API uses no cookies, so it sits outside the CSRF group.
	r.Route("/api", func(r chi.Router) {
		r.With(s.rateLimiter.Middleware).Post("/analyze", s.handleAPIAnalyze)

		r.Get("/emails", s.handleAPIEmails)
		r.Get("/emails/important", s.handleAPIEmailsPreset(history.EmailFilter{Important: true}))
		r.Get("/emails/starred", s.handleAPIEmailsPreset(history.EmailFilter{Starred: true}))
		r.Get("/emails/followup", s.handleAPIEmailsPreset(history.EmailFilter{NeedsFollowup: true}))
		r.Get("/emails/category/{category}", s.handleAPIEmailsByCategory)
		r.Get("/emails/sentiment/{sentiment}", s.handleAPIEmailsBySentiment)
		r.Get("/emails/{id}", s.handleAPIEmail)

		r.Get("/entities", s.handleAPIEntities)
		r.Get("/keywords", s.handleAPIKeywords)
		r.Get("/action-items", s.handleAPIActionItems)
		r.Patch("/action-items/{id}", s.handleAPIActionItemUpdate)
		r.Get("/contacts", s.handleAPIContacts)
		r.Get("/stats", s.handleAPIStats)

		r.With(s.rateLimiter.Middleware).Post("/sync", s.handleAPISync)
		r.Get("/jobs/{id}", s.handleAPIJobStatus)
		r.Post("/jobs/{id}/cancel", s.handleAPIJobCancel)
	})

	return r
}

// requestLogger logs each request and records its duration by route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		took := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.RecordHTTPRequestDuration(r.Method, route, strconv.Itoa(status), took)

		s.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("took", took).
			Msg("http request")
	})
}

// plaintextLocalhost tells the CSRF check that a request without TLS is
// plain HTTP, so it does not demand an HTTPS Referer.
func plaintextLocalhost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			r = csrf.PlaintextHTTPRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}

// securityHeaders adds security headers to all responses
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// The dashboard is server-rendered with no scripts.
		csp := "default-src 'self'; " +
			"style-src 'self' 'unsafe-inline'; " +
			"img-src 'self' data:; " +
			"frame-ancestors 'none'; " +
			"form-action 'self'; " +
			"base-uri 'self'"
		w.Header().Set("Content-Security-Policy", csp)

		// Mail content should never be cached
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")

		next.ServeHTTP(w, r)
	})
}

// startSync launches a background sync unless one is already running.
func (s *Server) startSync() (*Job, bool) {
	job, started := s.jobManager.Start()
	if !started {
		return job, false
	}
	s.jobManager.Cleanup(jobRetention)
	go s.runSync(job)
	return job, true
}

func (s *Server) runSync(job *Job) {
	ctx, cancel := context.WithTimeout(job.Context(), syncTimeout)
	defer cancel()

	log := s.log.With().Str("job_id", job.ID).Logger()
	defer func() {
		if err := s.jobPersistence.Save(job.Snapshot()); err != nil {
			log.Warn().Err(err).Msg("failed to save sync outcome")
		}
	}()

	fetcher, release, err := s.source(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to open mailbox")
		job.StopWithError(fmt.Errorf("failed to open mailbox: %w", err))
		return
	}
	defer release()

	report, err := s.syncer.Sync(ctx, fetcher, s.config.Inbox.Days, s.config.Inbox.MaxMessages, job.Update)
	if err != nil {
		log.Error().Err(err).Msg("sync failed")
		job.Update(report)
		job.StopWithError(err)
		return
	}
	job.Complete(report)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	data["CSRFField"] = csrf.TemplateField(r)

	tmpl, ok := s.templates[name]
	if !ok {
		http.Error(w, "Template not found: "+name, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		s.log.Error().Err(err).Str("template", name).Msg("template error")
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}
