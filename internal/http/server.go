// Package http exposes the entries and types REST API.
package http

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"

	"keuangan/internal/core"
	"keuangan/internal/log"
	"keuangan/internal/middleware/ratelimit"
	"keuangan/internal/middleware/security"
	"keuangan/internal/middleware/trace"
	"keuangan/internal/storage"
)

// EntryService is the entry use-case surface the handlers depend on.
type EntryService interface {
	List(ctx context.Context, opts core.ListOptions) ([]core.Entry, error)
	Get(ctx context.Context, id int64) (core.Entry, error)
	Totals(ctx context.Context, f core.Filter) (core.Balance, error)
	TotalsByType(ctx context.Context, typeRef int64) (core.Balance, error)
	Export(ctx context.Context, w io.Writer, opts core.ListOptions) (int, error)
	Create(ctx context.Context, in core.EntryInput) (storage.CreateResult, error)
	Update(ctx context.Context, id int64, p core.EntryPatch) (int64, error)
	Remove(ctx context.Context, id int64) (int64, error)
}

// TypeService is the type use-case surface the handlers depend on.
type TypeService interface {
	List(ctx context.Context) ([]core.Type, error)
	Get(ctx context.Context, id int64) (core.Type, error)
	Create(ctx context.Context, label string) (int64, error)
	Update(ctx context.Context, id int64, label string) (int64, error)
	Remove(ctx context.Context, id int64) (int64, error)
}

// Pinger reports storage reachability for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures routing and the middleware chain.
type Options struct {
	APIPrefix         string
	CORSAllowedOrigin string
	RateLimitRPS      float64
	RateLimitBurst    int
}

type Server struct {
	http.Server
	entries     EntryService
	types       TypeService
	pinger      Pinger
	logger      *log.Logger
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

func NewServer(addr string, opts Options, entries EntryService, types TypeService, pinger Pinger, logger *log.Logger) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		entries: entries,
		types:   types,
		pinger:  pinger,
		logger:  logger.WithComponent(log.ComponentHTTP),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: opts.RateLimitRPS,
			Burst:             opts.RateLimitBurst,
		}),
	}

	clientIP := security.NewClientIP()
	s.tracer = trace.NewMiddleware(clientIP.Extract, logger)

	api := http.NewServeMux()
	api.HandleFunc("GET /acc/{$}", s.handleListEntries)
	api.HandleFunc("POST /acc/{$}", s.handleCreateEntry)
	api.HandleFunc("GET /acc/totals", s.handleTotals)
	api.HandleFunc("GET /acc/totals/{tipe}", s.handleTotalsByType)
	api.HandleFunc("GET /acc/export", s.handleExport)
	api.HandleFunc("GET /acc/{id}", s.handleGetEntry)
	api.HandleFunc("PUT /acc/{id}", s.handleUpdateEntry)
	api.HandleFunc("DELETE /acc/{id}", s.handleDeleteEntry)

	api.HandleFunc("GET /types/{$}", s.handleListTypes)
	api.HandleFunc("POST /types/{$}", s.handleCreateType)
	api.HandleFunc("GET /types/{id}", s.handleGetType)
	api.HandleFunc("PUT /types/{id}", s.handleUpdateType)
	api.HandleFunc("DELETE /types/{id}", s.handleDeleteType)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)
	if opts.APIPrefix == "" {
		root.Handle("/", api)
	} else {
		root.Handle(opts.APIPrefix+"/", http.StripPrefix(opts.APIPrefix, api))
	}

	var handler http.Handler = root
	handler = s.rateLimiter.Middleware(clientIP.Extract, handleRateLimited)(handler)
	handler = security.CORS(opts.CORSAllowedOrigin)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(handler)
	s.Handler = handler

	return s
}

// Metrics returns the request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.pinger.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
		ErrorResponse(http.StatusServiceUnavailable, "database unreachable").Write(w)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests").
		Header("Retry-After", "1").
		Write(w)
}
