package service

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// TimestampLayout renders UTC instants with millisecond precision and a Z
// suffix.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var processStart = time.Now()

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status    string  `json:"status"`
	Service   string  `json:"service"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
}

// Info is the body of GET /.
type Info struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// App is one service stub. It holds no mutable request state, so a single App
// may serve concurrent requests.
type App struct {
	cfg      Config
	engine   *gin.Engine
	log      *zap.Logger
	now      func() time.Time
	started  time.Time
	registry *prometheus.Registry
	metrics  *metrics
}

type Option func(*App)

func WithLogger(log *zap.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithClock overrides the time source and the instant uptime is measured from.
func WithClock(now func() time.Time, started time.Time) Option {
	return func(a *App) {
		a.now = now
		a.started = started
	}
}

// WithRegistry registers the request metrics on reg instead of a private
// registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) { a.registry = reg }
}

// New builds the router for cfg.
func New(cfg Config, opts ...Option) *App {
	if cfg.Version == "" {
		cfg.Version = Version
	}
	a := &App{
		cfg:     cfg,
		log:     zap.NewNop(),
		now:     time.Now,
		started: processStart,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
	}
	a.metrics = newMetrics(a.registry, cfg.Name)

	a.engine = gin.New()
	// A redirect Location would lack the prefix API Gateway routed on.
	a.engine.RedirectTrailingSlash = false
	a.engine.RedirectFixedPath = false
	a.engine.Use(gin.Recovery(), requestID(), a.observe())
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		a.engine.Handle(method, "/health", a.health)
		a.engine.Handle(method, "/", a.root)
	}
	return a
}

// ServeHTTP routes case-insensitively and ignores a trailing slash.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p := normalizePath(r.URL.Path); p != r.URL.Path {
		r2 := new(http.Request)
		*r2 = *r
		r2.URL = new(url.URL)
		*r2.URL = *r.URL
		r2.URL.Path = p
		r2.URL.RawPath = ""
		r = r2
	}
	a.engine.ServeHTTP(w, r)
}

func normalizePath(p string) string {
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return strings.ToLower(p)
}

// MetricsHandler exposes this app's registry in the Prometheus text format.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

// Health computes the current health payload.
func (a *App) Health() HealthStatus {
	now := a.now()
	return HealthStatus{
		Status:    "OK",
		Service:   a.cfg.Name,
		Timestamp: now.UTC().Format(TimestampLayout),
		Uptime:    now.Sub(a.started).Seconds(),
	}
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, a.Health())
}

func (a *App) root(c *gin.Context) {
	c.JSON(http.StatusOK, Info{
		Message: a.cfg.Title + " API",
		Version: a.cfg.Version,
	})
}
