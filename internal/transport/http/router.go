// Package httptransport assembles the HTTP router: middleware, public reads,
// bearer-authenticated mutations and operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"shebuilds/internal/platform/health"
	dErrors "shebuilds/pkg/domain-errors"
	"shebuilds/pkg/platform/httputil"
	"shebuilds/pkg/platform/middleware/auth"
	"shebuilds/pkg/platform/middleware/request"
	"shebuilds/pkg/platform/middleware/requesttime"
	"shebuilds/pkg/requestcontext"
)

const (
	maxBodyBytes = 1 << 20
	rateWindow   = time.Minute
)

// LedgerRoutes is implemented by the ledger handler.
type LedgerRoutes interface {
	RegisterPublic(r chi.Router)
	RegisterAuthenticated(r chi.Router)
}

// Routes is implemented by handlers that only serve public routes.
type Routes interface {
	Register(r chi.Router)
}

// Config collects the router's dependencies. Metadata and Metrics are optional.
type Config struct {
	Logger             *slog.Logger
	Production         bool
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	Validator          auth.TokenValidator
	RequestMetrics     *request.Metrics
	Ledger             LedgerRoutes
	Metadata           Routes
	Health             *health.Handler
	Metrics            http.Handler
}

// NewRouter wires all endpoints with middleware.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.ClientIP)
	r.Use(requesttime.Middleware)
	r.Use(securityHeaders(cfg.Production).Handler)
	r.Use(request.Logger(logger))
	r.Use(request.Latency(cfg.RequestMetrics, routePattern))

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(api chi.Router) {
		api.Use(request.Timeout(timeout))
		api.Use(request.ContentTypeJSON)
		api.Use(request.BodyLimit(maxBodyBytes))

		cfg.Ledger.RegisterPublic(api)
		if cfg.Metadata != nil {
			cfg.Metadata.Register(api)
		}

		api.Group(func(authed chi.Router) {
			authed.Use(auth.RequireAuth(cfg.Validator, logger))
			authed.Use(rateLimiter(cfg.RateLimitPerMinute))
			cfg.Ledger.RegisterAuthenticated(authed)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	return r
}

func securityHeaders(production bool) *secure.Secure {
	return secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})
}

// rateLimiter throttles mutations per caller principal, falling back to the client IP.
func rateLimiter(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		perMinute = 60
	}
	return httprate.Limit(perMinute, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.ErrorResponse{
				Error:            "rate_limited",
				ErrorDescription: "too many requests",
			})
		}),
	)
}

func rateLimitKey(r *http.Request) (string, error) {
	if p, ok := requestcontext.Principal(r.Context()); ok {
		return "principal:" + p.String(), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
