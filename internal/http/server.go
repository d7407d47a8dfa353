package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"insights/internal/backend"
	"insights/internal/cache"
	"insights/internal/config"
	"insights/internal/dashboard"
	applog "insights/internal/log"
	"insights/internal/metrics"
	"insights/internal/middleware/ratelimit"
	"insights/internal/middleware/security"
	"insights/internal/middleware/trace"
	appweb "insights/web"
)

const (
	defaultChartCacheSize = 32
	defaultChartCacheTTL  = 10 * time.Minute
	defaultRawPageSize    = 100

	// Upper bound for one dashboard or chart computation.
	buildTimeout = 7 * time.Second
)

// Server serves the insights dashboard over one immutable dataset.
type Server struct {
	http.Server
	templates *template.Template
	backend   backend.Backend
	builder   *dashboard.Builder
	logger    *applog.Logger
	metrics   *metrics.Metrics

	charts       *cache.LRUCache[[]byte]
	chartTTL     time.Duration
	cacheManager *cache.Manager
	limiter      *ratelimit.Limiter

	rawPageSize int
	ready       atomic.Bool

	shutdownOnce sync.Once
}

// Options tunes NewServer. Zero values take the defaults.
type Options struct {
	Logger         *applog.Logger
	Metrics        *metrics.Metrics
	Policies       *config.Policies
	ChartCacheSize int
	ChartCacheTTL  time.Duration
	RawPageSize    int

	// RateLimitPerMinute caps chart and raw-data requests per client;
	// zero leaves them unlimited.
	RateLimitPerMinute int
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, b backend.Backend, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.ChartCacheSize <= 0 {
		opts.ChartCacheSize = defaultChartCacheSize
	}
	if opts.ChartCacheTTL <= 0 {
		opts.ChartCacheTTL = defaultChartCacheTTL
	}
	if opts.RawPageSize <= 0 {
		opts.RawPageSize = defaultRawPageSize
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	builderOpts := []dashboard.Option{
		dashboard.WithLogger(logger.Slog()),
		dashboard.WithObserver(opts.Metrics.ObserveBlock),
	}
	if opts.Policies != nil {
		builderOpts = append(builderOpts, dashboard.WithPolicies(*opts.Policies))
	}

	s := &Server{
		templates:    t,
		backend:      b,
		builder:      dashboard.NewBuilder(b, builderOpts...),
		logger:       logger,
		metrics:      opts.Metrics,
		charts:       cache.NewLRUCache[[]byte](opts.ChartCacheSize, opts.ChartCacheTTL),
		chartTTL:     opts.ChartCacheTTL,
		cacheManager: cache.NewManager(logger.Slog()),
		rawPageSize:  opts.RawPageSize,
	}
	s.cacheManager.Register(s.charts)
	s.cacheManager.StartCleanup(opts.ChartCacheTTL)

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, err
	}
	mux.Handle("GET /static/", security.CacheControl(3600)(http.StripPrefix("/static/", http.FileServerFS(static))))

	ip, err := security.NewClientIP()
	if err != nil {
		return nil, err
	}

	limit := func(h http.HandlerFunc) http.Handler { return h }
	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
		mw := s.limiter.Middleware(ip.Extract, func(r *http.Request) {
			s.metrics.ObserveRateLimited(trace.Route(r))
			applog.FromContext(r.Context()).Warn("Rate limit exceeded", applog.FieldPath, r.URL.Path)
		})
		limit = func(h http.HandlerFunc) http.Handler { return mw(h) }
	}

	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.Handle("GET /ui/raw-data", limit(s.handleRawData))
	mux.Handle("GET /charts/{file}", limit(s.handleChart))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(ip.Extract, s.metrics)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           applog.Middleware(logger)(tracer.Middleware(headers.Middleware(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	s.ready.Store(true)
	return s, nil
}

// Shutdown stops accepting requests, waits for in-flight ones and stops
// the background sweepers.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.ready.Store(false)
		s.cacheManager.Stop()
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the backend answers a shape query.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.backend.Shape(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
