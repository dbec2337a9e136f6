package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/RubioRobin/qr-ifc-viewer/internal/core/service"
	"github.com/RubioRobin/qr-ifc-viewer/internal/server/httpserver/handler"
	"github.com/RubioRobin/qr-ifc-viewer/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Issuer handles token issuance and resolution.
	Issuer *service.Issuer

	// ViewerBaseURL is the public base for issued viewer links.
	ViewerBaseURL string

	// Logger for request logging.
	Logger *slog.Logger

	// Metrics registry; nil disables instrumentation.
	Metrics *metric.Registry

	// CORSOrigins is the allowed origin list ("*" allows all).
	CORSOrigins []string

	// RateLimitRPS enables per-IP throttling when positive.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	h := handler.New(cfg.Issuer, cfg.ViewerBaseURL, log)

	// base is the chain shared by every route; rate limiting is added
	// only to the API routes so probes and metrics stay unthrottled.
	base := func(route string, hf http.Handler) http.Handler {
		return Chain(hf,
			Recover(log),
			RequestID(),
			CORS(cfg.CORSOrigins),
			Instrument(cfg.Metrics, route),
			AccessLog(log),
		)
	}
	api := func(route string, hf http.Handler) http.Handler {
		middlewares := []Middleware{
			Recover(log),
			RequestID(),
			CORS(cfg.CORSOrigins),
			Instrument(cfg.Metrics, route),
			AccessLog(log),
		}
		if cfg.RateLimitRPS > 0 {
			middlewares = append(middlewares, RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}
		return Chain(hf, middlewares...)
	}

	mux := http.NewServeMux()

	mux.Handle("POST /api/tokens", api("/api/tokens", http.HandlerFunc(h.CreateToken)))
	mux.Handle("GET /api/tokens/{token}", api("/api/tokens/{token}", http.HandlerFunc(h.ResolveToken)))
	mux.Handle("OPTIONS /api/tokens", api("/api/tokens", http.HandlerFunc(h.Preflight)))
	mux.Handle("OPTIONS /api/tokens/{token}", api("/api/tokens/{token}", http.HandlerFunc(h.Preflight)))

	mux.Handle("GET /api/health", base("/api/health", http.HandlerFunc(h.Health)))
	mux.Handle("GET /ready", base("/ready", http.HandlerFunc(h.Ready)))
	mux.Handle("GET /{$}", base("/", http.HandlerFunc(h.Root)))

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", base("/metrics", cfg.Metrics.Handler()))
	}

	return mux
}
